package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	importapp "github.com/erp/poimport/internal/application/import"
	csvimport "github.com/erp/poimport/internal/infrastructure/import"
	"github.com/erp/poimport/internal/interfaces/http/dto"
	"github.com/erp/poimport/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const uploadPath = "/api/v1/import/purchase-orders"

func newImportEngine(t *testing.T, importer PurchaseOrderImporter, limit int64) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(middleware.RequestID())
	NewPurchaseOrderImportHandler(importer, limit, zaptest.NewLogger(t)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func upload(t *testing.T, r *gin.Engine, field, filename string, content []byte, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, uploadPath+query, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPurchaseOrderImportHandler_Import(t *testing.T) {
	csvBody := []byte("PO No.,Item\nPO-1,Bolt\n")
	tsvBody := []byte("PO No.\tItem\nPO-1\tBolt\n")

	t.Run("csv upload returns the summary", func(t *testing.T) {
		importer := new(mockImporter)
		summary := &importapp.ImportSummary{TotalRows: 1, TotalGroups: 1, Succeeded: 1}
		importer.On("ImportReader", mock.Anything, csvimport.FormatCSV).Return(summary, nil)

		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "po.csv", csvBody, "")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 1, data["successful"])
		assert.EqualValues(t, 1, data["total"])
		assert.Equal(t, csvBody, importer.body)
		importer.AssertExpectations(t)
	})

	t.Run("tab separated export by default", func(t *testing.T) {
		importer := new(mockImporter)
		importer.On("ImportReader", mock.Anything, csvimport.FormatDelimited).Return(&importapp.ImportSummary{}, nil)

		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "export.txt", tsvBody, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tsvBody, importer.body)
		importer.AssertExpectations(t)
	})

	t.Run("workbook detected by extension", func(t *testing.T) {
		importer := new(mockImporter)
		importer.On("ImportReader", mock.Anything, csvimport.FormatWorkbook).Return(&importapp.ImportSummary{}, nil)

		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "History.XLSX", []byte("PK"), "")

		assert.Equal(t, http.StatusOK, w.Code)
		importer.AssertExpectations(t)
	})

	t.Run("format query overrides the extension", func(t *testing.T) {
		importer := new(mockImporter)
		importer.On("ImportReader", mock.Anything, csvimport.FormatWorkbook).Return(&importapp.ImportSummary{}, nil)

		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "upload.bin", []byte("PK"), "?format=xlsx")

		assert.Equal(t, http.StatusOK, w.Code)
		importer.AssertExpectations(t)
	})

	t.Run("unknown format", func(t *testing.T) {
		importer := new(mockImporter)
		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "po.csv", csvBody, "?format=ods")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		importer.AssertNotCalled(t, "ImportReader", mock.Anything, mock.Anything)
	})

	t.Run("missing file", func(t *testing.T) {
		importer := new(mockImporter)
		w := upload(t, newImportEngine(t, importer, 1<<20), "", "", nil, "")

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeImportMissingFile, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("missing columns are listed", func(t *testing.T) {
		importer := new(mockImporter)
		importer.On("ImportReader", mock.Anything, csvimport.FormatDelimited).
			Return(nil, &csvimport.MissingColumnsError{Columns: []string{"Vat", "Total"}})

		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "po.txt", tsvBody, "")

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeImportMissingColumns, resp.Error.Code)
		assert.Equal(t, []string{"Vat", "Total"}, resp.Error.Details)
	})

	t.Run("unreadable file", func(t *testing.T) {
		importer := new(mockImporter)
		importer.On("ImportReader", mock.Anything, csvimport.FormatDelimited).Return(nil, csvimport.ErrEmptyFile)

		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "po.txt", nil, "")

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeImportInvalidFile, decodeResponse(t, w).Error.Code)
	})

	t.Run("interrupted run keeps the partial summary", func(t *testing.T) {
		importer := new(mockImporter)
		partial := &importapp.ImportSummary{TotalGroups: 3, Succeeded: 1, Interrupted: true}
		importer.On("ImportReader", mock.Anything, csvimport.FormatDelimited).Return(partial, context.Canceled)

		w := upload(t, newImportEngine(t, importer, 1<<20), "file", "po.txt", tsvBody, "")

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeImportInterrupted, resp.Error.Code)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 1, data["successful"])
	})

	t.Run("oversized upload", func(t *testing.T) {
		importer := new(mockImporter)
		w := upload(t, newImportEngine(t, importer, 64), "file", "po.csv", bytes.Repeat([]byte("a"), 512), "")

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		importer.AssertNotCalled(t, "ImportReader", mock.Anything, mock.Anything)
	})
}

func TestPurchaseOrderImportHandler_GetOptions(t *testing.T) {
	importer := new(mockImporter)
	importer.On("Options").Return(importapp.DefaultOptions())

	req := httptest.NewRequest(http.MethodGet, uploadPath+"/options", nil)
	w := httptest.NewRecorder()
	newImportEngine(t, importer, 10<<20).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeResponse(t, w).Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "substitute", data["date_policy"])
	assert.Equal(t, true, data["strict_headers"])
	assert.Equal(t, "fail", data["conflict_mode"])
	assert.EqualValues(t, 10<<20, data["max_upload_size"])
	assert.Equal(t, []any{"delimited", "csv", "xlsx"}, data["formats"])
}
