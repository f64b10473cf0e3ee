package importapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/google/uuid"
)

// PurchaseOrderWriter persists purchase order headers and lines
type PurchaseOrderWriter struct {
	repo purchasing.PurchaseOrderRepository
}

// NewPurchaseOrderWriter creates a new PurchaseOrderWriter
func NewPurchaseOrderWriter(repo purchasing.PurchaseOrderRepository) *PurchaseOrderWriter {
	return &PurchaseOrderWriter{repo: repo}
}

// WriteHeader inserts the header and returns the identifier the store assigned
func (w *PurchaseOrderWriter) WriteHeader(ctx context.Context, po *purchasing.PurchaseOrder) (uuid.UUID, error) {
	id, err := w.repo.CreateHeader(ctx, po)
	if err != nil {
		return uuid.Nil, &purchasing.PersistenceError{Op: "write header " + po.PONumber, Err: err}
	}
	if id == uuid.Nil {
		return uuid.Nil, &purchasing.PersistenceError{Op: "write header " + po.PONumber, Err: errors.New("store returned no identifier")}
	}
	return id, nil
}

// WriteLines batch-inserts all lines of a header
func (w *PurchaseOrderWriter) WriteLines(ctx context.Context, orderID uuid.UUID, lines []purchasing.PurchaseOrderLine) error {
	if len(lines) == 0 {
		return &purchasing.PersistenceError{Op: "write lines", Err: errors.New("purchase order has no lines")}
	}
	written, err := w.repo.CreateLines(ctx, orderID, lines)
	if err != nil {
		return &purchasing.PersistenceError{Op: "write lines", Err: err}
	}
	if written != int64(len(lines)) {
		return &purchasing.PersistenceError{Op: "write lines", Err: fmt.Errorf("store acknowledged %d of %d lines", written, len(lines))}
	}
	return nil
}

// Persist writes the header and its lines in one transaction, so a failed
// line insert leaves no header behind.
func (w *PurchaseOrderWriter) Persist(ctx context.Context, po *purchasing.PurchaseOrder) (uuid.UUID, error) {
	var id uuid.UUID
	err := w.repo.Transaction(ctx, func(tx purchasing.PurchaseOrderRepository) error {
		txWriter := NewPurchaseOrderWriter(tx)

		headerID, err := txWriter.WriteHeader(ctx, po)
		if err != nil {
			return err
		}
		if err := txWriter.WriteLines(ctx, headerID, po.Lines); err != nil {
			return err
		}
		id = headerID
		return nil
	})
	if err != nil {
		var pe *purchasing.PersistenceError
		if errors.As(err, &pe) {
			return uuid.Nil, err
		}
		return uuid.Nil, &purchasing.PersistenceError{Op: "commit " + po.PONumber, Err: err}
	}
	return id, nil
}
