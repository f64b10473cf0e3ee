package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/erp/poimport/internal/domain/shared"
	"github.com/erp/poimport/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVendorRepository implements purchasing.VendorRepository on the suppliers table
type GormVendorRepository struct {
	db *gorm.DB
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

// FindByName finds a vendor by case-insensitive name. An exact match wins;
// otherwise the shortest name starting with the given text is returned.
func (r *GormVendorRepository) FindByName(ctx context.Context, name string) (*purchasing.Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Vendor name cannot be empty")
	}

	var model models.VendorModel
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		Order("code").
		First(&model).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(strings.ToLower(name))+"%").
		Order("LENGTH(name)").
		Order("code").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new vendor
func (r *GormVendorRepository) Create(ctx context.Context, vendor *purchasing.Vendor) error {
	model := models.VendorModelFromDomain(vendor)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// MaxCodeSequence returns the highest numeric suffix among vendor codes with
// the prefix. Codes with a non-numeric suffix are ignored.
func (r *GormVendorRepository) MaxCodeSequence(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		prefix = purchasing.DefaultVendorCodePrefix
	}

	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&models.VendorModel{}).
		Where(`code LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Pluck("code", &codes).Error; err != nil {
		return 0, err
	}

	var highest int64
	for _, code := range codes {
		if seq, ok := purchasing.ParseVendorCode(prefix, code); ok && seq > highest {
			highest = seq
		}
	}
	return highest, nil
}

// escapeLike escapes LIKE wildcards so user text matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
