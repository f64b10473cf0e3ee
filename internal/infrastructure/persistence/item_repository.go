package persistence

import (
	"context"
	"strings"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/erp/poimport/internal/domain/shared"
	"github.com/erp/poimport/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormItemRepository implements purchasing.ItemRepository
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByDescription finds an item whose description equals the given text
func (r *GormItemRepository) FindByDescription(ctx context.Context, description string) (*purchasing.Item, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Item description cannot be empty")
	}

	var model models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("description = ?", description).
		Order("code").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a catalog item. The importer never calls it; it exists for
// seeding fixtures and the integration tests.
func (r *GormItemRepository) Create(ctx context.Context, item *purchasing.Item) error {
	model := &models.ItemModel{
		Code:        item.Code,
		Description: item.Description,
		BaseUOM:     item.BaseUOM,
		IsActive:    item.IsActive,
	}
	model.ID = item.ID
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	model.CreatedAt = item.CreatedAt
	model.UpdatedAt = item.UpdatedAt
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}
	return nil
}
