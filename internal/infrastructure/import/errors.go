package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCodeImportRequiredField marks a row whose mandatory cell is empty
const ErrCodeImportRequiredField = "ERR_IMPORT_REQUIRED_FIELD"

var (
	ErrEmptyFile       = errors.New("input file is empty")
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")
	ErrMissingHeader   = errors.New("input file missing header row")
	ErrNoSheets        = errors.New("workbook contains no sheets")
)

// MissingColumnsError lists required columns absent from the header row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// DefaultMaxErrors caps how many row errors a collection keeps.
const DefaultMaxErrors = 100

// RowError is a problem tied to one source line.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("line %d, %s: %s", e.Row, e.Column, e.Message)
}

// ErrorCollection counts every row error but keeps only the first max.
type ErrorCollection struct {
	kept  []RowError
	max   int
	total int
}

func NewErrorCollection(max int) *ErrorCollection {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	return &ErrorCollection{max: max}
}

func (ec *ErrorCollection) Add(err RowError) {
	ec.total++
	if len(ec.kept) < ec.max {
		ec.kept = append(ec.kept, err)
	}
}

// AddRequiredError records an empty mandatory cell.
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeImportRequiredField, Message: column + " is empty"})
}

func (ec *ErrorCollection) Errors() []RowError { return ec.kept }
func (ec *ErrorCollection) TotalCount() int     { return ec.total }
func (ec *ErrorCollection) HasErrors() bool     { return ec.total > 0 }
func (ec *ErrorCollection) IsTruncated() bool   { return ec.total > len(ec.kept) }
