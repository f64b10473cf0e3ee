package purchasing

import (
	"testing"
	"time"

	"github.com/erp/poimport/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistoricalPurchaseOrder(t *testing.T) {
	vendorID := uuid.New()
	poDate := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	invDate := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)

	t.Run("maps invoice fields onto header", func(t *testing.T) {
		po, err := NewHistoricalPurchaseOrder(" PO-001 ", vendorID, poDate, invDate, " INV-9 ", "")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, po.ID)
		assert.Equal(t, "PO-001", po.PONumber)
		assert.Equal(t, invDate, po.ExpectedDate)
		assert.Equal(t, "INV-9", po.ReferenceNumber)
		assert.Equal(t, PurchaseOrderStatusCompleted, po.Status)
		assert.Equal(t, DefaultImportNotes, po.Notes)
		assert.True(t, po.VATRate.Equal(decimal.NewFromInt(7)))
	})

	t.Run("rejects empty PO number", func(t *testing.T) {
		_, err := NewHistoricalPurchaseOrder("  ", vendorID, poDate, invDate, "", "")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PO_NUMBER", domainErr.Code)
	})

	t.Run("rejects nil vendor", func(t *testing.T) {
		_, err := NewHistoricalPurchaseOrder("PO-001", uuid.Nil, poDate, invDate, "", "")
		assert.Error(t, err)
	})
}

func TestPurchaseOrder_AddLineAndTotals(t *testing.T) {
	po, err := NewHistoricalPurchaseOrder("PO-001", uuid.New(), time.Now(), time.Now(), "INV", "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", po.Notes)

	l1, err := po.AddLine(uuid.New(), decimal.NewFromInt(2), decimal.NewFromInt(50), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, 1, l1.LineNo)
	assert.Equal(t, po.ID, l1.OrderID)

	// Gross from the source wins even when it disagrees with quantity x price
	l2, err := po.AddLine(uuid.New(), decimal.NewFromInt(3), decimal.NewFromInt(50), decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, 2, l2.LineNo)

	_, err = po.AddLine(uuid.Nil, decimal.Zero, decimal.Zero, decimal.Zero)
	assert.Error(t, err)
	assert.Len(t, po.Lines, 2)

	totals := po.ApplyTotals()
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(300)))
	assert.True(t, po.VATAmount.Equal(decimal.NewFromInt(21)))
	assert.True(t, po.Total.Equal(decimal.NewFromInt(321)))
}
