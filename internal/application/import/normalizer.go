package importapp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/shopspring/decimal"
)

// DatePolicy decides what happens to a date that cannot be parsed
type DatePolicy string

const (
	// DatePolicySubstitute replaces an unparseable date with today's date and records a warning
	DatePolicySubstitute DatePolicy = "substitute"
	// DatePolicyFail fails the purchase order that carries the unparseable date
	DatePolicyFail DatePolicy = "fail"
)

// IsValid checks if the date policy is valid
func (p DatePolicy) IsValid() bool {
	switch p {
	case DatePolicySubstitute, DatePolicyFail:
		return true
	}
	return false
}

// ISODate is the layout of normalized dates
const ISODate = "2006-01-02"

// dateLayouts are tried in order. The first is the historical export format (2-Jan-25).
var dateLayouts = []string{
	"2-Jan-06",
	"2-Jan-2006",
	ISODate,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2 Jan 2006",
}

// Excel stores dates as days since 1899-12-30
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serial numbers outside this window are not treated as dates
const (
	minExcelSerial = 32874 // 1990-01-01
	maxExcelSerial = 73050 // 2099-12-31
)

// ParsedDate is the result of normalizing a date value
type ParsedDate struct {
	Time        time.Time
	Substituted bool
	Warning     string
}

// ISO returns the date as YYYY-MM-DD
func (d ParsedDate) ISO() string {
	return d.Time.Format(ISODate)
}

// ValueNormalizer converts raw text cells into typed values
type ValueNormalizer struct {
	policy   DatePolicy
	now      func() time.Time
	location *time.Location
}

// NormalizerOption is a functional option for ValueNormalizer configuration
type NormalizerOption func(*ValueNormalizer)

// WithDatePolicy sets the policy for unparseable dates (default substitute)
func WithDatePolicy(p DatePolicy) NormalizerOption {
	return func(n *ValueNormalizer) {
		if p.IsValid() {
			n.policy = p
		}
	}
}

// WithClock sets the clock used for substituted dates
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *ValueNormalizer) {
		n.now = now
	}
}

// WithLocation sets the location parsed dates are interpreted in (default UTC)
func WithLocation(loc *time.Location) NormalizerOption {
	return func(n *ValueNormalizer) {
		if loc != nil {
			n.location = loc
		}
	}
}

// NewValueNormalizer creates a new ValueNormalizer
func NewValueNormalizer(opts ...NormalizerOption) *ValueNormalizer {
	n := &ValueNormalizer{
		policy:   DatePolicySubstitute,
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Policy returns the configured date policy
func (n *ValueNormalizer) Policy() DatePolicy {
	return n.policy
}

// ParseDate interprets a date cell. field names the column in warnings and errors.
func (n *ValueNormalizer) ParseDate(field, text string) (ParsedDate, error) {
	value := strings.TrimSpace(text)
	if t, ok := n.parse(value); ok {
		return ParsedDate{Time: t}, nil
	}

	if n.policy == DatePolicyFail {
		return ParsedDate{}, &purchasing.FormatError{Field: field, Value: text, Err: errors.New("unrecognized date")}
	}

	today := n.today()
	return ParsedDate{
		Time:        today,
		Substituted: true,
		Warning:     fmt.Sprintf("could not parse %s %q, using %s", field, text, today.Format(ISODate)),
	}, nil
}

func (n *ValueNormalizer) parse(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, n.location); err == nil {
			return dateOnly(t, n.location), true
		}
	}
	// xlsx exports may carry the raw serial number instead of formatted text
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial >= minExcelSerial && serial < maxExcelSerial+1 {
		days := int(math.Floor(serial))
		t := excelEpoch.AddDate(0, 0, days)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, n.location), true
	}
	return time.Time{}, false
}

func (n *ValueNormalizer) today() time.Time {
	return dateOnly(n.now().In(n.location), n.location)
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// CleanNumber converts a numeric cell to a decimal. Numbers pass through;
// text has all whitespace and thousands separators removed. Missing values
// (nil, NaN, empty text) are zero.
func CleanNumber(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, nil
		}
		return *v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return cleanFloat(float64(v))
	case float64:
		return cleanFloat(v)
	case string:
		return cleanText(v)
	case fmt.Stringer:
		return cleanText(v.String())
	default:
		return decimal.Zero, &purchasing.FormatError{Field: "number", Value: fmt.Sprint(value), Err: fmt.Errorf("unsupported type %T", value)}
	}
}

func cleanFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) {
		return decimal.Zero, nil
	}
	if math.IsInf(f, 0) {
		return decimal.Zero, &purchasing.FormatError{Field: "number", Value: strconv.FormatFloat(f, 'g', -1, 64), Err: errors.New("infinite value")}
	}
	return decimal.NewFromFloat(f), nil
}

func cleanText(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' {
			return -1
		}
		return r
	}, s)
	if cleaned == "" || strings.EqualFold(cleaned, "nan") {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &purchasing.FormatError{Field: "number", Value: s, Err: errors.New("not a number")}
	}
	return d, nil
}

// cleanField runs CleanNumber and names the column in any FormatError
func cleanField(field string, value any) (decimal.Decimal, error) {
	d, err := CleanNumber(value)
	if err != nil {
		var fe *purchasing.FormatError
		if errors.As(err, &fe) {
			fe.Field = field
		}
		return decimal.Zero, err
	}
	return d, nil
}
