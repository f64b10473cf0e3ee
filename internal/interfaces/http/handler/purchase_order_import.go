package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	importapp "github.com/erp/poimport/internal/application/import"
	csvimport "github.com/erp/poimport/internal/infrastructure/import"
	"github.com/erp/poimport/internal/interfaces/http/dto"
	"github.com/erp/poimport/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// uploadField is the multipart form field carrying the export file
const uploadField = "file"

// PurchaseOrderImporter runs one import over an uploaded file
type PurchaseOrderImporter interface {
	ImportReader(ctx context.Context, r io.Reader, format csvimport.Format) (*importapp.ImportSummary, error)
	Options() importapp.Options
}

// PurchaseOrderImportHandler accepts purchase order exports over HTTP
type PurchaseOrderImportHandler struct {
	BaseHandler
	importer      PurchaseOrderImporter
	maxUploadSize int64
	logger        *zap.Logger
}

// NewPurchaseOrderImportHandler creates a new PurchaseOrderImportHandler
func NewPurchaseOrderImportHandler(importer PurchaseOrderImporter, maxUploadSize int64, logger *zap.Logger) *PurchaseOrderImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderImportHandler{
		importer:      importer,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *PurchaseOrderImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/import/purchase-orders")
	g.POST("", middleware.BodyLimit(h.maxUploadSize), h.Import)
	g.GET("/options", h.GetOptions)
}

// Import reads the uploaded export and writes one purchase order per PO
// number. Per-PO failures are part of a 200 response; only an unreadable
// upload is rejected as a whole.
//
// @Summary      Import purchase orders
// @Description  Upload a tab separated, comma separated (.csv) or xlsx purchase order export
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file    formData  file    true   "Purchase order export"
// @Param        format  query     string  false  "Override the format detected from the file name"  Enums(delimited, csv, xlsx)
// @Success      200 {object} dto.Response{data=importapp.ImportSummary}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{data=importapp.ImportSummary,error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /import/purchase-orders [post]
func (h *PurchaseOrderImportHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.ErrorWithCode(c, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.ErrorWithCode(c, dto.ErrCodeImportMissingFile, "file is required")
		return
	}
	defer file.Close()

	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		h.ErrorWithCode(c, dto.ErrCodeTooLarge, "file exceeds maximum upload size")
		return
	}

	format := csvimport.DetectFormat(header.Filename)
	if f := c.Query("format"); f != "" {
		format = csvimport.Format(f)
		if !format.IsValid() {
			h.BadRequest(c, "format must be delimited, csv or xlsx")
			return
		}
	}

	log := h.logger.With(
		zap.String("request_id", getRequestID(c)),
		zap.String("file", header.Filename),
		zap.Int64("size", header.Size),
		zap.String("format", string(format)),
	)
	if sub := middleware.GetJWTSubject(c); sub != "" {
		log = log.With(zap.String("subject", sub))
	}
	log.Info("Purchase order upload received")

	summary, err := h.importer.ImportReader(c.Request.Context(), file, format)
	if err != nil {
		h.handleImportError(c, log, summary, err)
		return
	}

	log.Info("Purchase order upload imported",
		zap.Int("successful", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	h.Success(c, summary)
}

func (h *PurchaseOrderImportHandler) handleImportError(c *gin.Context, log *zap.Logger, summary *importapp.ImportSummary, err error) {
	// A summary means the run started and was cut short
	if summary != nil {
		log.Warn("Purchase order upload interrupted", zap.Error(err))
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeImportInterrupted), dto.Response{
			Success: false,
			Data:    summary,
			Error: &dto.ErrorInfo{
				Code:      dto.ErrCodeImportInterrupted,
				Message:   "import was interrupted before all purchase orders were processed",
				RequestID: getRequestID(c),
			},
		})
		return
	}

	log.Warn("Purchase order upload rejected", zap.Error(err))

	var missing *csvimport.MissingColumnsError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &missing):
		h.ErrorWithCode(c, dto.ErrCodeImportMissingColumns, err.Error(), missing.Columns...)
	case errors.As(err, &maxBytes):
		h.ErrorWithCode(c, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
	default:
		h.ErrorWithCode(c, dto.ErrCodeImportInvalidFile, err.Error())
	}
}

// GetOptions reports the import policy the server applies to uploads
//
// @Summary      Get import options
// @Tags         import
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.ImportOptionsResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /import/purchase-orders/options [get]
func (h *PurchaseOrderImportHandler) GetOptions(c *gin.Context) {
	opts := h.importer.Options()
	formats := make([]string, 0, len(csvimport.Formats))
	for _, f := range csvimport.Formats {
		formats = append(formats, string(f))
	}
	h.Success(c, dto.ImportOptionsResponse{
		DatePolicy:    string(opts.DatePolicy),
		StrictHeaders: opts.StrictHeaders,
		ConflictMode:  string(opts.ConflictMode),
		Formats:       formats,
		MaxUploadSize: h.maxUploadSize,
	})
}
