package purchasing

import (
	"strings"
	"time"

	"github.com/erp/poimport/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusCompleted PurchaseOrderStatus = "COMPLETED"
)

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// DefaultImportNotes is recorded on every purchase order loaded from historical data
const DefaultImportNotes = "Imported from historical data"

// PurchaseOrderLine is one item line of a purchase order
type PurchaseOrderLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	LineNo    int
	ItemID    uuid.UUID
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	LineTotal decimal.Decimal
}

// PurchaseOrder is a historical purchase order header with its lines.
// Historical orders are written once in COMPLETED status.
type PurchaseOrder struct {
	shared.BaseEntity
	PONumber        string
	VendorID        uuid.UUID
	PODate          time.Time
	ExpectedDate    time.Time
	ReferenceNumber string
	Subtotal        decimal.Decimal
	VATAmount       decimal.Decimal
	VATRate         decimal.Decimal
	Total           decimal.Decimal
	Status          PurchaseOrderStatus
	Notes           string
	Lines           []PurchaseOrderLine
}

// NewHistoricalPurchaseOrder creates a completed purchase order header.
// The invoice date becomes the expected date and the invoice number the reference.
func NewHistoricalPurchaseOrder(poNumber string, vendorID uuid.UUID, poDate, invoiceDate time.Time, invoiceNo, notes string) (*PurchaseOrder, error) {
	poNumber = strings.TrimSpace(poNumber)
	if poNumber == "" {
		return nil, shared.NewDomainError("INVALID_PO_NUMBER", "PO number cannot be empty")
	}
	if len(poNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_PO_NUMBER", "PO number cannot exceed 50 characters")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if notes == "" {
		notes = DefaultImportNotes
	}

	return &PurchaseOrder{
		BaseEntity:      shared.NewBaseEntity(),
		PONumber:        poNumber,
		VendorID:        vendorID,
		PODate:          poDate,
		ExpectedDate:    invoiceDate,
		ReferenceNumber: strings.TrimSpace(invoiceNo),
		Subtotal:        decimal.Zero,
		VATAmount:       decimal.Zero,
		VATRate:         VATRatePercent,
		Total:           decimal.Zero,
		Status:          PurchaseOrderStatusCompleted,
		Notes:           notes,
	}, nil
}

// AddLine appends a line. The line total is taken as given from the source
// and is not recomputed from quantity and unit cost.
func (po *PurchaseOrder) AddLine(itemID uuid.UUID, quantity, unitCost, lineTotal decimal.Decimal) (*PurchaseOrderLine, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}

	po.Lines = append(po.Lines, PurchaseOrderLine{
		ID:        uuid.New(),
		OrderID:   po.ID,
		LineNo:    len(po.Lines) + 1,
		ItemID:    itemID,
		Quantity:  quantity,
		UnitCost:  unitCost,
		LineTotal: lineTotal,
	})
	return &po.Lines[len(po.Lines)-1], nil
}

// LineTotals returns the line totals in line order
func (po *PurchaseOrder) LineTotals() []decimal.Decimal {
	totals := make([]decimal.Decimal, len(po.Lines))
	for i, l := range po.Lines {
		totals[i] = l.LineTotal
	}
	return totals
}

// ApplyTotals recomputes subtotal, VAT and total from the current lines
func (po *PurchaseOrder) ApplyTotals() Totals {
	t := ComputeTotals(po.LineTotals()...)
	po.Subtotal = t.Subtotal
	po.VATAmount = t.VAT
	po.Total = t.Total
	po.UpdatedAt = time.Now()
	return t
}
