package models

import (
	"time"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorModel is the persistence model for vendors
type VendorModel struct {
	BaseModel
	Code     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_suppliers_code"`
	Name     string `gorm:"type:varchar(200);not null;index:idx_suppliers_name"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Vendor
func (m *VendorModel) ToDomain() *purchasing.Vendor {
	return &purchasing.Vendor{
		BaseEntity: m.BaseModel.entity(),
		Code:       m.Code,
		Name:       m.Name,
		IsActive:   m.IsActive,
	}
}

// VendorModelFromDomain creates a persistence model from a domain Vendor
func VendorModelFromDomain(v *purchasing.Vendor) *VendorModel {
	m := &VendorModel{
		Code:     v.Code,
		Name:     v.Name,
		IsActive: v.IsActive,
	}
	m.BaseModel = baseFrom(v.BaseEntity)
	return m
}

// ItemModel is the persistence model for catalog items.
// The importer only reads this table.
type ItemModel struct {
	BaseModel
	Code        string `gorm:"type:varchar(50);not null;uniqueIndex:idx_items_code"`
	Description string `gorm:"type:varchar(500);not null;index:idx_items_description"`
	BaseUOM     string `gorm:"column:base_uom;type:varchar(20);not null;default:''"`
	IsActive    bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// ToDomain converts the persistence model to a domain Item
func (m *ItemModel) ToDomain() *purchasing.Item {
	return &purchasing.Item{
		ID:          m.ID,
		Code:        m.Code,
		Description: m.Description,
		BaseUOM:     m.BaseUOM,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// PurchaseOrderModel is the persistence model for purchase order headers
type PurchaseOrderModel struct {
	BaseModel
	PONumber        string                         `gorm:"column:po_number;type:varchar(50);not null;uniqueIndex:idx_purchase_orders_number"`
	VendorID        uuid.UUID                      `gorm:"type:uuid;not null;index"`
	PODate          time.Time                      `gorm:"column:po_date;type:date;not null"`
	ExpectedDate    time.Time                      `gorm:"type:date;not null"`
	ReferenceNumber string                         `gorm:"type:varchar(100);not null;default:''"`
	Subtotal        decimal.Decimal                `gorm:"type:decimal(18,4);not null;default:0"`
	VATAmount       decimal.Decimal                `gorm:"column:vat_amount;type:decimal(18,4);not null;default:0"`
	VATRate         decimal.Decimal                `gorm:"column:vat_rate;type:decimal(5,2);not null;default:7"`
	Total           decimal.Decimal                `gorm:"type:decimal(18,4);not null;default:0"`
	Status          purchasing.PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	Notes           string                         `gorm:"type:text"`
	Lines           []PurchaseOrderLineModel       `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() *purchasing.PurchaseOrder {
	po := &purchasing.PurchaseOrder{
		BaseEntity:      m.BaseModel.entity(),
		PONumber:        m.PONumber,
		VendorID:        m.VendorID,
		PODate:          m.PODate,
		ExpectedDate:    m.ExpectedDate,
		ReferenceNumber: m.ReferenceNumber,
		Subtotal:        m.Subtotal,
		VATAmount:       m.VATAmount,
		VATRate:         m.VATRate,
		Total:           m.Total,
		Status:          m.Status,
		Notes:           m.Notes,
		Lines:           make([]purchasing.PurchaseOrderLine, len(m.Lines)),
	}
	for i := range m.Lines {
		po.Lines[i] = m.Lines[i].ToDomain()
	}
	return po
}

// PurchaseOrderModelFromDomain creates a header model. Lines are written
// separately, so they are not copied.
func PurchaseOrderModelFromDomain(po *purchasing.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{
		PONumber:        po.PONumber,
		VendorID:        po.VendorID,
		PODate:          po.PODate,
		ExpectedDate:    po.ExpectedDate,
		ReferenceNumber: po.ReferenceNumber,
		Subtotal:        po.Subtotal,
		VATAmount:       po.VATAmount,
		VATRate:         po.VATRate,
		Total:           po.Total,
		Status:          po.Status,
		Notes:           po.Notes,
	}
	m.BaseModel = baseFrom(po.BaseEntity)
	return m
}

// PurchaseOrderLineModel is the persistence model for purchase order lines
type PurchaseOrderLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_purchase_order_lines_order_line,priority:1"`
	LineNo    int             `gorm:"not null;uniqueIndex:idx_purchase_order_lines_order_line,priority:2"`
	ItemID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain PurchaseOrderLine
func (m *PurchaseOrderLineModel) ToDomain() purchasing.PurchaseOrderLine {
	return purchasing.PurchaseOrderLine{
		ID:        m.ID,
		OrderID:   m.OrderID,
		LineNo:    m.LineNo,
		ItemID:    m.ItemID,
		Quantity:  m.Quantity,
		UnitCost:  m.UnitCost,
		LineTotal: m.LineTotal,
	}
}

// PurchaseOrderLineModelFromDomain creates a line model owned by orderID
func PurchaseOrderLineModelFromDomain(orderID uuid.UUID, l purchasing.PurchaseOrderLine) PurchaseOrderLineModel {
	id := l.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return PurchaseOrderLineModel{
		ID:        id,
		OrderID:   orderID,
		LineNo:    l.LineNo,
		ItemID:    l.ItemID,
		Quantity:  l.Quantity,
		UnitCost:  l.UnitCost,
		LineTotal: l.LineTotal,
		CreatedAt: time.Now(),
	}
}

// AllModels returns the models managed by AutoMigrate, in dependency order
func AllModels() []any {
	return []any{
		&VendorModel{},
		&ItemModel{},
		&PurchaseOrderModel{},
		&PurchaseOrderLineModel{},
	}
}
