package importapp

import (
	"strings"

	"github.com/erp/poimport/internal/domain/purchasing"
	csvimport "github.com/erp/poimport/internal/infrastructure/import"
)

// POGroup is the set of rows that share a PO number, in file order.
// Header fields are taken from the first row.
type POGroup struct {
	PONumber   string
	Header     csvimport.PurchaseOrderRow
	Rows       []csvimport.PurchaseOrderRow
	Mismatches []purchasing.FieldMismatch
}

// headerFields lists the per-order fields every row of a group repeats
var headerFields = []struct {
	name string
	get  func(csvimport.PurchaseOrderRow) string
}{
	{csvimport.ColVendor, func(r csvimport.PurchaseOrderRow) string { return r.Vendor }},
	{csvimport.ColPODate, func(r csvimport.PurchaseOrderRow) string { return r.PODate }},
	{csvimport.ColInvoiceNo, func(r csvimport.PurchaseOrderRow) string { return r.InvoiceNo }},
	{csvimport.ColInvoiceDate, func(r csvimport.PurchaseOrderRow) string { return r.InvoiceDate }},
}

// Aggregation is the result of grouping source rows
type Aggregation struct {
	Groups      []*POGroup
	SkippedRows *csvimport.ErrorCollection
}

// GroupRows groups rows by trimmed PO number preserving first-seen order.
// Rows without a PO number are skipped and reported in SkippedRows.
func GroupRows(rows []csvimport.PurchaseOrderRow, maxErrors int) *Aggregation {
	agg := &Aggregation{SkippedRows: csvimport.NewErrorCollection(maxErrors)}
	index := make(map[string]*POGroup)

	for _, row := range rows {
		key := strings.TrimSpace(row.PONumber)
		if key == "" {
			agg.SkippedRows.AddRequiredError(row.Line, csvimport.ColPONumber)
			continue
		}

		group, ok := index[key]
		if !ok {
			group = &POGroup{PONumber: key, Header: row}
			index[key] = group
			agg.Groups = append(agg.Groups, group)
		} else {
			group.Mismatches = append(group.Mismatches, compareHeader(group.Header, row)...)
		}
		group.Rows = append(group.Rows, row)
	}

	return agg
}

func compareHeader(first, other csvimport.PurchaseOrderRow) []purchasing.FieldMismatch {
	var out []purchasing.FieldMismatch
	for _, f := range headerFields {
		a, b := strings.TrimSpace(f.get(first)), strings.TrimSpace(f.get(other))
		if a != b {
			out = append(out, purchasing.FieldMismatch{Field: f.name, First: a, Other: b, RowNum: other.Line})
		}
	}
	return out
}

// RowCount returns the number of rows grouped into POs
func (a *Aggregation) RowCount() int {
	n := 0
	for _, g := range a.Groups {
		n += len(g.Rows)
	}
	return n
}
