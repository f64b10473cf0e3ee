package models

import (
	"testing"
	"time"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "suppliers", VendorModel{}.TableName())
	assert.Equal(t, "items", ItemModel{}.TableName())
	assert.Equal(t, "purchase_orders", PurchaseOrderModel{}.TableName())
	assert.Equal(t, "purchase_order_lines", PurchaseOrderLineModel{}.TableName())
	assert.Len(t, AllModels(), 4)
}

func TestPurchaseOrderModelFromDomain(t *testing.T) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	po, err := purchasing.NewHistoricalPurchaseOrder("PO-1", uuid.New(), day, day.AddDate(0, 0, 3), "INV-9", "")
	require.NoError(t, err)
	_, err = po.AddLine(uuid.New(), decimal.NewFromInt(2), decimal.NewFromInt(50), decimal.NewFromInt(100))
	require.NoError(t, err)
	po.ApplyTotals()

	m := PurchaseOrderModelFromDomain(po)

	assert.Equal(t, po.ID, m.ID)
	assert.Equal(t, "PO-1", m.PONumber)
	assert.Equal(t, "INV-9", m.ReferenceNumber)
	assert.Equal(t, purchasing.PurchaseOrderStatusCompleted, m.Status)
	assert.True(t, m.VATAmount.Equal(decimal.NewFromInt(7)))
	assert.Empty(t, m.Lines, "lines are written separately")

	line := PurchaseOrderLineModelFromDomain(m.ID, po.Lines[0])
	assert.Equal(t, m.ID, line.OrderID)
	assert.Equal(t, 1, line.LineNo)
	assert.False(t, line.CreatedAt.IsZero())

	m.Lines = []PurchaseOrderLineModel{line}
	back := m.ToDomain()
	assert.Equal(t, po.PONumber, back.PONumber)
	assert.Equal(t, po.ExpectedDate, back.ExpectedDate)
	require.Len(t, back.Lines, 1)
	assert.True(t, back.Lines[0].LineTotal.Equal(decimal.NewFromInt(100)))
}

func TestPurchaseOrderLineModelFromDomain_GeneratesID(t *testing.T) {
	line := PurchaseOrderLineModelFromDomain(uuid.New(), purchasing.PurchaseOrderLine{LineNo: 1})
	assert.NotEqual(t, uuid.Nil, line.ID)
}

func TestVendorModel_RoundTrip(t *testing.T) {
	v, err := purchasing.NewVendor("SUP-0001", "Siam Steel")
	require.NoError(t, err)

	m := VendorModelFromDomain(v)
	assert.Equal(t, v.ID, m.ID)

	back := m.ToDomain()
	assert.Equal(t, v.Code, back.Code)
	assert.Equal(t, v.Name, back.Name)
	assert.True(t, back.IsActive)
}

func TestBaseModel_BeforeCreate(t *testing.T) {
	var m ItemModel
	require.NoError(t, m.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, m.ID)

	id := uuid.New()
	m = ItemModel{BaseModel: BaseModel{ID: id}}
	require.NoError(t, m.BeforeCreate(nil))
	assert.Equal(t, id, m.ID)
}
