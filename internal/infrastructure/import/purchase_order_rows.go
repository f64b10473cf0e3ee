package csvimport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Columns of the historical purchase order export
const (
	ColPONumber    = "PO No."
	ColPODate      = "Date Open PO"
	ColItem        = "Item"
	ColQuantity    = "Quantity"
	ColUOM         = "UOM"
	ColUnitPrice   = "Price/Unit"
	ColGross       = "Gross"
	ColVAT         = "Vat"
	ColTotal       = "Total"
	ColVendor      = "Vendor"
	ColInvoiceNo   = "Invoice No."
	ColInvoiceDate = "Invoice Date Issue"
)

// PurchaseOrderColumns lists the columns every export must carry
var PurchaseOrderColumns = []string{
	ColPONumber, ColPODate, ColItem, ColQuantity, ColUOM, ColUnitPrice,
	ColGross, ColVAT, ColTotal, ColVendor, ColInvoiceNo, ColInvoiceDate,
}

// columnAliases maps alternative header spellings seen in workbook exports
var columnAliases = map[string]string{
	"Invoice Issue": ColInvoiceDate,
	"PO Number":     ColPONumber,
}

// PurchaseOrderRow is one line of the export with cells kept as text.
// Line is the 1-based line number in the source, header included.
type PurchaseOrderRow struct {
	Line        int    `json:"line"`
	PONumber    string `json:"po_number"`
	PODate      string `json:"po_date"`
	Item        string `json:"item" validate:"required"`
	Quantity    string `json:"quantity"`
	UOM         string `json:"uom"`
	UnitPrice   string `json:"unit_price"`
	Gross       string `json:"gross"`
	VAT         string `json:"vat"`
	Total       string `json:"total"`
	Vendor      string `json:"vendor" validate:"required"`
	InvoiceNo   string `json:"invoice_no" validate:"max=100"`
	InvoiceDate string `json:"invoice_date"`
}

// resolveColumns maps each required column to its index, honoring aliases.
// The returned slice lists required columns that could not be found.
func resolveColumns(headers map[string]int) (map[string]int, []string) {
	index := make(map[string]int, len(PurchaseOrderColumns))
	for _, col := range PurchaseOrderColumns {
		if i, ok := headers[col]; ok {
			index[col] = i
		}
	}
	for alias, col := range columnAliases {
		if _, ok := index[col]; ok {
			continue
		}
		if i, ok := headers[alias]; ok {
			index[col] = i
		}
	}

	var missing []string
	for _, col := range PurchaseOrderColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	return index, missing
}

func rowFromFields(line int, fields []string, index map[string]int) PurchaseOrderRow {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	return PurchaseOrderRow{
		Line:        line,
		PONumber:    get(ColPONumber),
		PODate:      get(ColPODate),
		Item:        get(ColItem),
		Quantity:    get(ColQuantity),
		UOM:         get(ColUOM),
		UnitPrice:   get(ColUnitPrice),
		Gross:       get(ColGross),
		VAT:         get(ColVAT),
		Total:       get(ColTotal),
		Vendor:      get(ColVendor),
		InvoiceNo:   get(ColInvoiceNo),
		InvoiceDate: get(ColInvoiceDate),
	}
}

// ReadPurchaseOrderRows reads a delimited export. Extra and reordered
// columns are tolerated; missing required columns are a MissingColumnsError.
func ReadPurchaseOrderRows(r io.Reader, opts ...ParserOption) ([]PurchaseOrderRow, error) {
	dr, err := NewDelimitedReader(r, opts...)
	if err != nil {
		return nil, err
	}
	headers, err := dr.Header()
	if err != nil {
		return nil, err
	}
	index, missing := resolveColumns(headers)
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var out []PurchaseOrderRow
	for {
		line, fields, err := dr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rowFromFields(line, fields, index))
	}
}

// Format identifies the layout of an input file
type Format string

const (
	FormatDelimited Format = "delimited" // tab separated
	FormatCSV       Format = "csv"
	FormatWorkbook  Format = "xlsx"
)

// Formats lists every supported input format
var Formats = []Format{FormatDelimited, FormatCSV, FormatWorkbook}

// IsValid reports whether f is a supported format
func (f Format) IsValid() bool {
	return f == FormatDelimited || f == FormatCSV || f == FormatWorkbook
}

// DetectFormat picks the reader for a file name by its extension.
// Anything that is not a workbook or .csv is read as tab separated.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatWorkbook
	case ".csv":
		return FormatCSV
	default:
		return FormatDelimited
	}
}

// ReadPurchaseOrders reads rows in the given format
func ReadPurchaseOrders(r io.Reader, format Format) ([]PurchaseOrderRow, error) {
	switch format {
	case FormatWorkbook:
		return ReadPurchaseOrderWorkbook(r)
	case FormatCSV:
		return ReadPurchaseOrderRows(r, WithDelimiter(','))
	default:
		return ReadPurchaseOrderRows(r)
	}
}

// ReadPurchaseOrderFile opens a local file and reads its rows
func ReadPurchaseOrderFile(path string) ([]PurchaseOrderRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadPurchaseOrders(f, DetectFormat(path))
}
