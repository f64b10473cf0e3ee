package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/erp/poimport/internal/domain/purchasing"
	csvimport "github.com/erp/poimport/internal/infrastructure/import"
	"github.com/erp/poimport/internal/infrastructure/logger"
	"github.com/erp/poimport/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ConflictMode defines how to handle a PO number that is already in the store
type ConflictMode string

const (
	// ConflictModeSkip counts the group as skipped and writes nothing
	ConflictModeSkip ConflictMode = "skip"
	// ConflictModeFail fails the group with a ConflictError
	ConflictModeFail ConflictMode = "fail"
)

// IsValid checks if the conflict mode is valid
func (c ConflictMode) IsValid() bool {
	switch c {
	case ConflictModeSkip, ConflictModeFail:
		return true
	}
	return false
}

// sourceTolerance is how far the exported Vat/Total columns may drift from
// the computed totals before a warning is recorded
var sourceTolerance = decimal.RequireFromString("0.01")

// Options controls how an import run treats its input
type Options struct {
	DatePolicy       DatePolicy
	StrictHeaders    bool
	ConflictMode     ConflictMode
	VendorCodePrefix string
	Notes            string
	MaxErrors        int
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		DatePolicy:       DatePolicySubstitute,
		StrictHeaders:    true,
		ConflictMode:     ConflictModeFail,
		VendorCodePrefix: purchasing.DefaultVendorCodePrefix,
		Notes:            purchasing.DefaultImportNotes,
		MaxErrors:        csvimport.DefaultMaxErrors,
	}
}

// Validate checks the options and fills zero values with defaults
func (o *Options) Validate() error {
	def := DefaultOptions()
	if o.DatePolicy == "" {
		o.DatePolicy = def.DatePolicy
	}
	if !o.DatePolicy.IsValid() {
		return fmt.Errorf("invalid date policy %q: must be substitute or fail", o.DatePolicy)
	}
	if o.ConflictMode == "" {
		o.ConflictMode = def.ConflictMode
	}
	if !o.ConflictMode.IsValid() {
		return fmt.Errorf("invalid conflict mode %q: must be skip or fail", o.ConflictMode)
	}
	if o.VendorCodePrefix == "" {
		o.VendorCodePrefix = def.VendorCodePrefix
	}
	if o.Notes == "" {
		o.Notes = def.Notes
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = def.MaxErrors
	}
	return nil
}

// PurchaseOrderImportService loads historical purchase orders from export rows
type PurchaseOrderImportService struct {
	vendorRepo purchasing.VendorRepository
	itemRepo   purchasing.ItemRepository
	poRepo     purchasing.PurchaseOrderRepository
	writer     *PurchaseOrderWriter
	opts       Options
	logger     *zap.Logger
	metrics    ImportMetrics
	codes      CodeSequence
	now        func() time.Time
	validate   *validator.Validate
}

// ServiceOption is a functional option for PurchaseOrderImportService configuration
type ServiceOption func(*PurchaseOrderImportService)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *PurchaseOrderImportService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m ImportMetrics) ServiceOption {
	return func(s *PurchaseOrderImportService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSharedCodeSequence makes every run draw vendor codes from seq instead
// of a sequence seeded from the store at the start of the run
func WithSharedCodeSequence(seq CodeSequence) ServiceOption {
	return func(s *PurchaseOrderImportService) {
		s.codes = seq
	}
}

// WithServiceClock sets the clock used for substituted dates and timings
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *PurchaseOrderImportService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPurchaseOrderImportService creates a new PurchaseOrderImportService
func NewPurchaseOrderImportService(
	vendorRepo purchasing.VendorRepository,
	itemRepo purchasing.ItemRepository,
	poRepo purchasing.PurchaseOrderRepository,
	opts Options,
	svcOpts ...ServiceOption,
) (*PurchaseOrderImportService, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &PurchaseOrderImportService{
		vendorRepo: vendorRepo,
		itemRepo:   itemRepo,
		poRepo:     poRepo,
		writer:     NewPurchaseOrderWriter(poRepo),
		opts:       opts,
		logger:     zap.NewNop(),
		metrics:    noopMetrics{},
		now:        time.Now,
		validate:   newRowValidator(),
	}
	for _, opt := range svcOpts {
		opt(s)
	}
	return s, nil
}

// Options returns the effective options
func (s *PurchaseOrderImportService) Options() Options {
	return s.opts
}

func newRowValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// importRun holds the state owned by one call to Import
type importRun struct {
	log        *zap.Logger
	cache      *ResolutionCache
	normalizer *ValueNormalizer
	summary    *ImportSummary
}

func (s *PurchaseOrderImportService) newRun(log *zap.Logger) *importRun {
	cacheOpts := []CacheOption{
		WithVendorCodePrefix(s.opts.VendorCodePrefix),
		WithCacheLogger(log),
		WithCacheMetrics(s.metrics),
	}
	if s.codes != nil {
		cacheOpts = append(cacheOpts, WithCodeSequence(s.codes))
	}
	return &importRun{
		log:        log,
		cache:      NewResolutionCache(s.vendorRepo, s.itemRepo, cacheOpts...),
		normalizer: NewValueNormalizer(WithDatePolicy(s.opts.DatePolicy), WithClock(s.now)),
		summary:    &ImportSummary{StartedAt: s.now()},
	}
}

// ImportReader reads rows in the given format and imports them
func (s *PurchaseOrderImportService) ImportReader(ctx context.Context, r io.Reader, format csvimport.Format) (*ImportSummary, error) {
	rows, err := csvimport.ReadPurchaseOrders(r, format)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, rows)
}

// Import groups rows by PO number and writes each group as one purchase
// order. A failing group is recorded in the summary and the run continues.
// The returned error is non-nil only when the context ends the run early;
// the partial summary is returned with it.
func (s *PurchaseOrderImportService) Import(ctx context.Context, rows []csvimport.PurchaseOrderRow) (*ImportSummary, error) {
	ctx, span := telemetry.StartRunSpan(ctx, len(rows))

	// A logger carried by ctx already holds run_id and source.
	log := logger.WithTraceContext(ctx, logger.FromContextOr(ctx, s.logger))
	run := s.newRun(log)
	summary := run.summary

	agg := GroupRows(rows, s.opts.MaxErrors)
	summary.TotalRows = len(rows)
	summary.TotalGroups = len(agg.Groups)
	summary.SkippedRows = agg.SkippedRows.TotalCount()
	summary.RowErrors = agg.SkippedRows.Errors()

	log.Info("Starting purchase order import",
		zap.Int("rows", len(rows)),
		zap.Int("groups", len(agg.Groups)),
		zap.Int("rows_without_po", summary.SkippedRows),
		zap.String("date_policy", string(s.opts.DatePolicy)),
		zap.Bool("strict_headers", s.opts.StrictHeaders),
	)

	var runErr error
	for i, group := range agg.Groups {
		select {
		case <-ctx.Done():
			summary.Interrupted = true
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			log.Warn("Import interrupted",
				zap.Int("processed", i),
				zap.Int("remaining", len(agg.Groups)-i),
				zap.Error(runErr),
			)
			break
		}

		log.Debug("Processing purchase order",
			zap.String("po_number", group.PONumber),
			zap.Int("lines", len(group.Rows)),
			zap.Int("index", i+1),
			zap.Int("of", len(agg.Groups)),
		)
		result := s.processGroup(ctx, run, group)
		summary.record(result)
	}

	stats := run.cache.Stats()
	summary.VendorsCreated = stats.VendorsCreated
	summary.Duration = s.now().Sub(summary.StartedAt)

	telemetry.EndRunSpan(span, summary.TotalGroups, summary.Succeeded, summary.Failed, summary.Skipped, runErr)

	log.Info("Purchase order import finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("vendors_created", stats.VendorsCreated),
		zap.Int("store_lookups", stats.StoreLookups),
		zap.Duration("elapsed", summary.Duration),
	)
	return summary, runErr
}

// groupRun tracks one group through its states
type groupRun struct {
	result GroupResult
}

func (g *groupRun) enter(state GroupState) {
	g.result.State = state
	g.result.Stage = state
}

func (g *groupRun) warn(msg string) {
	g.result.Warnings = append(g.result.Warnings, msg)
}

func (g *groupRun) fail(err error) GroupResult {
	g.result.State = GroupFailed
	g.result.Error = err.Error()
	g.result.Code = purchasing.ErrorCode(err)
	return g.result
}

func (s *PurchaseOrderImportService) processGroup(ctx context.Context, run *importRun, group *POGroup) GroupResult {
	start := s.now()
	ctx, span := telemetry.StartGroupSpan(ctx, group.PONumber, len(group.Rows))

	g := &groupRun{result: GroupResult{PONumber: group.PONumber, State: GroupPending, Lines: len(group.Rows)}}
	result := s.runGroup(ctx, run, group, g)

	elapsed := s.now().Sub(start)
	s.metrics.GroupFinished(ctx, result.State, elapsed)
	telemetry.EndGroupSpan(span, telemetry.GroupOutcome{
		State: string(result.State),
		Stage: string(result.Stage),
		Code:  result.Code,
		Error: result.Error,
	})

	log := run.log.With(zap.String("po_number", group.PONumber))
	for _, w := range result.Warnings {
		log.Warn("Purchase order warning", zap.String("warning", w))
	}
	switch result.State {
	case GroupSucceeded:
		log.Info("Purchase order imported",
			zap.String("id", result.ID.String()),
			zap.String("total", result.Totals.Total.String()),
			zap.Duration("elapsed", elapsed),
		)
	case GroupSkipped:
		log.Info("Purchase order already exists, skipped")
	case GroupFailed:
		log.Error("Purchase order failed",
			zap.String("stage", string(result.Stage)),
			zap.String("code", result.Code),
			zap.String("error", result.Error),
		)
	}
	return result
}

// resolvedLine is a source row with its item resolved and numbers parsed
type resolvedLine struct {
	row       csvimport.PurchaseOrderRow
	item      *purchasing.Item
	quantity  decimal.Decimal
	unitCost  decimal.Decimal
	lineTotal decimal.Decimal

	// Exported VAT and Total; only compared against the computed totals.
	vat, total     decimal.Decimal
	vatOK, totalOK bool
}

func (s *PurchaseOrderImportService) runGroup(ctx context.Context, run *importRun, group *POGroup, g *groupRun) GroupResult {
	g.enter(GroupResolving)

	for _, row := range group.Rows {
		if err := s.validateRow(row); err != nil {
			return g.fail(err)
		}
	}
	if s.opts.StrictHeaders && len(group.Mismatches) > 0 {
		return g.fail(&purchasing.HeaderMismatchError{PONumber: group.PONumber, Mismatches: group.Mismatches})
	}
	if !s.opts.StrictHeaders {
		for _, m := range group.Mismatches {
			g.warn(fmt.Sprintf("row %d has %s %q, using %q from the first row", m.RowNum, m.Field, m.Other, m.First))
		}
	}

	exists, err := s.poRepo.ExistsByNumber(ctx, group.PONumber)
	if err != nil {
		return g.fail(&purchasing.PersistenceError{Op: "check purchase order " + group.PONumber, Err: err})
	}
	if exists {
		if s.opts.ConflictMode == ConflictModeSkip {
			g.result.State = GroupSkipped
			return g.result
		}
		return g.fail(&purchasing.ConflictError{PONumber: group.PONumber})
	}

	header := group.Header
	vendorID, err := run.cache.ResolveVendor(ctx, header.Vendor)
	if err != nil {
		return g.fail(err)
	}

	poDate, err := run.normalizer.ParseDate(csvimport.ColPODate, header.PODate)
	if err != nil {
		return g.fail(err)
	}
	if poDate.Substituted {
		g.warn(poDate.Warning)
	}
	invoiceDate, err := run.normalizer.ParseDate(csvimport.ColInvoiceDate, header.InvoiceDate)
	if err != nil {
		return g.fail(err)
	}
	if invoiceDate.Substituted {
		g.warn(invoiceDate.Warning)
	}

	lines := make([]resolvedLine, 0, len(group.Rows))
	for _, row := range group.Rows {
		line, err := s.resolveLine(ctx, run, row)
		if err != nil {
			return g.fail(err)
		}
		if row.UOM != "" && line.item.BaseUOM != "" && !strings.EqualFold(row.UOM, line.item.BaseUOM) {
			g.warn(fmt.Sprintf("row %d unit %q differs from item unit %q", row.Line, row.UOM, line.item.BaseUOM))
		}
		if !line.vatOK || !line.totalOK {
			g.warn(fmt.Sprintf("row %d exported VAT or total is not a number, not cross-checked", row.Line))
		}
		lines = append(lines, line)
	}

	g.enter(GroupComputing)

	po, err := purchasing.NewHistoricalPurchaseOrder(group.PONumber, vendorID, poDate.Time, invoiceDate.Time, header.InvoiceNo, s.opts.Notes)
	if err != nil {
		return g.fail(err)
	}
	sourceVAT, sourceTotal := decimal.Zero, decimal.Zero
	checkVAT, checkTotal := true, true
	for _, l := range lines {
		if _, err := po.AddLine(l.item.ID, l.quantity, l.unitCost, l.lineTotal); err != nil {
			return g.fail(err)
		}
		sourceVAT = sourceVAT.Add(l.vat)
		sourceTotal = sourceTotal.Add(l.total)
		checkVAT = checkVAT && l.vatOK
		checkTotal = checkTotal && l.totalOK
	}
	totals := po.ApplyTotals()
	g.result.Totals = totals

	if checkVAT && !sourceVAT.IsZero() && sourceVAT.Sub(totals.VAT).Abs().GreaterThan(sourceTolerance) {
		g.warn(fmt.Sprintf("exported VAT %s differs from computed %s", sourceVAT, totals.VAT))
	}
	if checkTotal && !sourceTotal.IsZero() && sourceTotal.Sub(totals.Total).Abs().GreaterThan(sourceTolerance) {
		g.warn(fmt.Sprintf("exported total %s differs from computed %s", sourceTotal, totals.Total))
	}

	g.enter(GroupPersisting)

	id, err := s.writer.Persist(ctx, po)
	if err != nil {
		return g.fail(err)
	}

	g.result.ID = id
	g.result.State = GroupSucceeded
	return g.result
}

func (s *PurchaseOrderImportService) resolveLine(ctx context.Context, run *importRun, row csvimport.PurchaseOrderRow) (resolvedLine, error) {
	item, err := run.cache.ResolveItem(ctx, row.Item)
	if err != nil {
		return resolvedLine{}, err
	}

	line := resolvedLine{row: row, item: item}
	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{csvimport.ColQuantity, row.Quantity, &line.quantity},
		{csvimport.ColUnitPrice, row.UnitPrice, &line.unitCost},
		{csvimport.ColGross, row.Gross, &line.lineTotal},
	}
	for _, f := range fields {
		d, err := cleanField(f.name, f.value)
		if err != nil {
			return resolvedLine{}, fmt.Errorf("row %d: %w", row.Line, err)
		}
		*f.dst = d
	}

	var vatErr, totalErr error
	line.vat, vatErr = CleanNumber(row.VAT)
	line.total, totalErr = CleanNumber(row.Total)
	line.vatOK, line.totalOK = vatErr == nil, totalErr == nil
	return line, nil
}

func (s *PurchaseOrderImportService) validateRow(row csvimport.PurchaseOrderRow) error {
	err := s.validate.Struct(row)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &purchasing.ValidationError{Row: row.Line, Violations: []string{err.Error()}}
	}
	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			violations = append(violations, fe.Field()+" is required")
		case "max":
			violations = append(violations, fmt.Sprintf("%s exceeds %s characters", fe.Field(), fe.Param()))
		default:
			violations = append(violations, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return &purchasing.ValidationError{Row: row.Line, Violations: violations}
}
