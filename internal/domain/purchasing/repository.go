package purchasing

import (
	"context"

	"github.com/google/uuid"
)

// VendorRepository defines persistence for vendors
type VendorRepository interface {
	// FindByName finds a vendor by case-insensitive name, preferring an exact
	// match over a prefix match. Returns shared.ErrNotFound when none matches.
	FindByName(ctx context.Context, name string) (*Vendor, error)

	// Create inserts a new vendor. A duplicate code reports shared.ErrAlreadyExists.
	Create(ctx context.Context, vendor *Vendor) error

	// MaxCodeSequence returns the highest numeric suffix among codes with the prefix, or 0
	MaxCodeSequence(ctx context.Context, prefix string) (int64, error)
}

// ItemRepository defines read access to catalog items
type ItemRepository interface {
	// FindByDescription finds an item by exact description.
	// Returns shared.ErrNotFound when none matches.
	FindByDescription(ctx context.Context, description string) (*Item, error)
}

// PurchaseOrderRepository defines persistence for purchase orders
type PurchaseOrderRepository interface {
	// ExistsByNumber checks whether a purchase order with the number exists
	ExistsByNumber(ctx context.Context, poNumber string) (bool, error)

	// FindByNumber loads a purchase order with its lines
	FindByNumber(ctx context.Context, poNumber string) (*PurchaseOrder, error)

	// CreateHeader inserts the header row and returns its identifier
	CreateHeader(ctx context.Context, po *PurchaseOrder) (uuid.UUID, error)

	// CreateLines batch-inserts lines owned by the header and returns the rows written
	CreateLines(ctx context.Context, orderID uuid.UUID, lines []PurchaseOrderLine) (int64, error)

	// Transaction runs fn against a repository bound to a single store transaction.
	// The transaction is rolled back when fn returns an error.
	Transaction(ctx context.Context, fn func(tx PurchaseOrderRepository) error) error
}
