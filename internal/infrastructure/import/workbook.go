package csvimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadPurchaseOrderWorkbook reads the first worksheet of an xlsx workbook.
// Cells are read raw, so date columns may arrive as Excel serial numbers.
func ReadPurchaseOrderWorkbook(r io.Reader) ([]PurchaseOrderRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, ErrMissingHeader
	}

	headers := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if _, dup := headers[h]; !dup {
			headers[h] = i
		}
	}
	index, missing := resolveColumns(headers)
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	out := make([]PurchaseOrderRow, 0, len(records)-1)
	for i, fields := range records[1:] {
		if isBlank(fields) {
			continue
		}
		out = append(out, rowFromFields(i+2, fields, index))
	}
	return out, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
