package purchasing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		lines    []decimal.Decimal
		subtotal string
		vat      string
		total    string
	}{
		{
			name:     "two lines",
			lines:    []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(200)},
			subtotal: "300",
			vat:      "21",
			total:    "321",
		},
		{
			name:     "no lines",
			lines:    nil,
			subtotal: "0",
			vat:      "0",
			total:    "0",
		},
		{
			name:     "fractional amounts keep full precision",
			lines:    []decimal.Decimal{decimal.RequireFromString("10.15"), decimal.RequireFromString("0.10")},
			subtotal: "10.25",
			vat:      "0.7175",
			total:    "10.9675",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.lines...)
			assert.True(t, got.Subtotal.Equal(decimal.RequireFromString(tt.subtotal)), "subtotal %s", got.Subtotal)
			assert.True(t, got.VAT.Equal(decimal.RequireFromString(tt.vat)), "vat %s", got.VAT)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", got.Total)
		})
	}
}

func TestComputeTotals_TotalIsSubtotalPlusVAT(t *testing.T) {
	got := ComputeTotals(decimal.RequireFromString("1234.56"), decimal.RequireFromString("-34.56"))
	assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Subtotal.Mul(VATRate))))
}
