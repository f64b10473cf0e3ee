package importapp

import (
	"math"
	"testing"
	"time"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/erp/poimport/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatePolicy_IsValid(t *testing.T) {
	assert.True(t, DatePolicySubstitute.IsValid())
	assert.True(t, DatePolicyFail.IsValid())
	assert.False(t, DatePolicy("ignore").IsValid())
	assert.False(t, DatePolicy("").IsValid())
}

func TestValueNormalizer_ParseDate(t *testing.T) {
	today := time.Date(2026, 3, 15, 17, 45, 0, 0, time.UTC)
	n := NewValueNormalizer(WithClock(fixedClock(today)))

	t.Run("export format", func(t *testing.T) {
		d, err := n.ParseDate("Date Open PO", "2-Jan-25")
		require.NoError(t, err)
		assert.Equal(t, "2025-01-02", d.ISO())
		assert.False(t, d.Substituted)
		assert.Empty(t, d.Warning)
	})

	t.Run("two digit day and surrounding spaces", func(t *testing.T) {
		d, err := n.ParseDate("Date Open PO", "  28-Feb-24 ")
		require.NoError(t, err)
		assert.Equal(t, "2024-02-28", d.ISO())
	})

	t.Run("alternative layouts", func(t *testing.T) {
		cases := map[string]string{
			"2-Jan-2025":          "2025-01-02",
			"2025-01-02":          "2025-01-02",
			"2025-01-02 10:11:12": "2025-01-02",
			"2 Jan 2025":          "2025-01-02",
		}
		for in, want := range cases {
			d, err := n.ParseDate("Invoice Date Issue", in)
			require.NoError(t, err, in)
			assert.Equal(t, want, d.ISO(), in)
		}
	})

	t.Run("workbook serial", func(t *testing.T) {
		d, err := n.ParseDate("Invoice Date Issue", "45659")
		require.NoError(t, err)
		assert.Equal(t, "2025-01-02", d.ISO())
	})

	t.Run("number outside the serial window is not a date", func(t *testing.T) {
		for _, in := range []string{"20", "1", "32873", "73051", "-45659"} {
			d, err := n.ParseDate("Date Open PO", in)
			require.NoError(t, err, in)
			assert.True(t, d.Substituted, in)
			assert.Equal(t, "2026-03-15", d.ISO(), in)
		}

		d, err := n.ParseDate("Date Open PO", "32874")
		require.NoError(t, err)
		assert.Equal(t, "1990-01-01", d.ISO())
	})

	t.Run("unparseable substitutes today with a warning", func(t *testing.T) {
		d, err := n.ParseDate("Date Open PO", "sometime in March")
		require.NoError(t, err)
		assert.True(t, d.Substituted)
		assert.Equal(t, "2026-03-15", d.ISO())
		assert.Contains(t, d.Warning, "Date Open PO")
		assert.Contains(t, d.Warning, "sometime in March")
		assert.Contains(t, d.Warning, "2026-03-15")
	})

	t.Run("empty substitutes today", func(t *testing.T) {
		d, err := n.ParseDate("Date Open PO", "")
		require.NoError(t, err)
		assert.True(t, d.Substituted)
	})

	t.Run("fail policy returns FormatError", func(t *testing.T) {
		strict := NewValueNormalizer(WithDatePolicy(DatePolicyFail))
		assert.Equal(t, DatePolicyFail, strict.Policy())

		_, err := strict.ParseDate("Invoice Date Issue", "31-Foo-25")
		require.Error(t, err)

		var fe *purchasing.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Invoice Date Issue", fe.Field)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("location decides today", func(t *testing.T) {
		bangkok := time.FixedZone("ICT", 7*60*60)
		local := NewValueNormalizer(WithClock(fixedClock(today)), WithLocation(bangkok))

		d, err := local.ParseDate("Date Open PO", "")
		require.NoError(t, err)
		assert.Equal(t, "2026-03-16", d.ISO())
		assert.Equal(t, bangkok, d.Time.Location())
	})

	t.Run("invalid policy keeps default", func(t *testing.T) {
		assert.Equal(t, DatePolicySubstitute, NewValueNormalizer(WithDatePolicy("bogus")).Policy())
	})
}

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"thousands separator", "1,234.56", "1234.56"},
		{"empty string", "", "0"},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"float", 2.5, "2.5"},
		{"nil", nil, "0"},
		{"NaN", math.NaN(), "0"},
		{"nan text", "NaN", "0"},
		{"inner spaces", " 1 000 ", "1000"},
		{"non-breaking space", "1\u00a0250.00", "1250"},
		{"negative", "-12.5", "-12.5"},
		{"decimal", decimal.NewFromInt(9), "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanNumber(tt.input)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	t.Run("text that is not a number", func(t *testing.T) {
		_, err := CleanNumber("12 pcs")
		var fe *purchasing.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "12 pcs", fe.Value)
	})

	t.Run("infinity", func(t *testing.T) {
		_, err := CleanNumber(math.Inf(1))
		assert.Error(t, err)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := CleanNumber([]int{1})
		assert.Error(t, err)
	})

	t.Run("cleanField names the column", func(t *testing.T) {
		_, err := cleanField("Gross", "abc")
		var fe *purchasing.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Gross", fe.Field)
		assert.Contains(t, err.Error(), "invalid Gross")
	})
}
