package persistence

import (
	"context"
	"fmt"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/erp/poimport/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// lineBatchSize bounds the rows per INSERT statement
const lineBatchSize = 100

// GormPurchaseOrderRepository implements purchasing.PurchaseOrderRepository
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// ExistsByNumber checks if a purchase order with the number exists
func (r *GormPurchaseOrderRepository) ExistsByNumber(ctx context.Context, poNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("po_number = ?", poNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByNumber loads a purchase order with its lines in line order
func (r *GormPurchaseOrderRepository) FindByNumber(ctx context.Context, poNumber string) (*purchasing.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Where("po_number = ?", poNumber).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// CreateHeader inserts the purchase order header without its lines
func (r *GormPurchaseOrderRepository) CreateHeader(ctx context.Context, po *purchasing.PurchaseOrder) (uuid.UUID, error) {
	model := models.PurchaseOrderModelFromDomain(po)
	if err := r.db.WithContext(ctx).Omit("Lines").Create(model).Error; err != nil {
		return uuid.Nil, translateError(err)
	}
	return model.ID, nil
}

// CreateLines batch-inserts the lines under orderID
func (r *GormPurchaseOrderRepository) CreateLines(ctx context.Context, orderID uuid.UUID, lines []purchasing.PurchaseOrderLine) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	rows := make([]models.PurchaseOrderLineModel, len(lines))
	for i, l := range lines {
		rows[i] = models.PurchaseOrderLineModelFromDomain(orderID, l)
	}

	result := r.db.WithContext(ctx).CreateInBatches(rows, lineBatchSize)
	if result.Error != nil {
		return result.RowsAffected, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// Transaction runs fn with a repository bound to one database transaction.
// Any error returned by fn, or a panic, rolls the transaction back.
func (r *GormPurchaseOrderRepository) Transaction(ctx context.Context, fn func(tx purchasing.PurchaseOrderRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormPurchaseOrderRepository{db: tx})
	})
	if err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}

var (
	_ purchasing.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
	_ purchasing.VendorRepository        = (*GormVendorRepository)(nil)
	_ purchasing.ItemRepository          = (*GormItemRepository)(nil)
)
