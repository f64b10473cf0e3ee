package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/erp/poimport/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// maxCodeAttempts bounds retries when a generated vendor code collides with an existing one
const maxCodeAttempts = 5

// ResolutionCache resolves vendor names and item descriptions to store
// identifiers. A cache belongs to a single import run; each distinct key
// costs at most one store round trip during that run.
type ResolutionCache struct {
	vendorRepo purchasing.VendorRepository
	itemRepo   purchasing.ItemRepository
	codes      CodeSequence
	codePrefix string
	logger     *zap.Logger
	metrics    ImportMetrics

	mu           sync.Mutex
	fold         cases.Caser
	vendors      map[string]uuid.UUID
	items        map[string]*purchasing.Item
	created      int
	lookups      int
	createdCodes []string
}

// CacheOption is a functional option for ResolutionCache configuration
type CacheOption func(*ResolutionCache)

// WithCodeSequence replaces the default store-seeded vendor code sequence
func WithCodeSequence(seq CodeSequence) CacheOption {
	return func(c *ResolutionCache) {
		if seq != nil {
			c.codes = seq
		}
	}
}

// WithVendorCodePrefix sets the prefix of generated vendor codes
func WithVendorCodePrefix(prefix string) CacheOption {
	return func(c *ResolutionCache) {
		if prefix != "" {
			c.codePrefix = prefix
		}
	}
}

// WithCacheLogger sets the logger
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(c *ResolutionCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheMetrics sets the metrics recorder
func WithCacheMetrics(m ImportMetrics) CacheOption {
	return func(c *ResolutionCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewResolutionCache creates an empty cache for one import run
func NewResolutionCache(vendorRepo purchasing.VendorRepository, itemRepo purchasing.ItemRepository, opts ...CacheOption) *ResolutionCache {
	c := &ResolutionCache{
		vendorRepo: vendorRepo,
		itemRepo:   itemRepo,
		codePrefix: purchasing.DefaultVendorCodePrefix,
		logger:     zap.NewNop(),
		metrics:    noopMetrics{},
		fold:       cases.Fold(),
		vendors:    make(map[string]uuid.UUID),
		items:      make(map[string]*purchasing.Item),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.codes == nil {
		c.codes = NewStoreSeededSequence(vendorRepo, c.codePrefix)
	}
	return c
}

func (c *ResolutionCache) vendorKey(name string) string {
	return c.fold.String(name)
}

// ResolveVendor returns the ID of the vendor with the given name, creating
// the vendor with the next generated code when the store has none.
func (c *ResolutionCache) ResolveVendor(ctx context.Context, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, &purchasing.FormatError{Field: "Vendor", Value: name, Err: errors.New("vendor name is required")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.vendorKey(name)
	if id, ok := c.vendors[key]; ok {
		return id, nil
	}

	c.lookups++
	existing, err := c.vendorRepo.FindByName(ctx, name)
	if err == nil && existing != nil {
		c.vendors[key] = existing.ID
		c.logger.Info("Found existing vendor", zap.String("vendor", name), zap.String("code", existing.Code))
		return existing.ID, nil
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return uuid.Nil, &purchasing.PersistenceError{Op: "look up vendor " + name, Err: err}
	}

	vendor, err := c.createVendor(ctx, name)
	if err != nil {
		return uuid.Nil, err
	}

	c.vendors[key] = vendor.ID
	c.created++
	c.createdCodes = append(c.createdCodes, vendor.Code)
	c.metrics.VendorCreated(ctx)
	c.logger.Info("Created new vendor", zap.String("vendor", name), zap.String("code", vendor.Code))
	return vendor.ID, nil
}

// createVendor inserts a vendor, drawing a new code whenever the store
// reports the generated one as taken.
func (c *ResolutionCache) createVendor(ctx context.Context, name string) (*purchasing.Vendor, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		seq, err := c.codes.Next(ctx)
		if err != nil {
			return nil, &purchasing.PersistenceError{Op: "reserve vendor code", Err: err}
		}
		code := purchasing.FormatVendorCode(c.codePrefix, seq)

		vendor, err := purchasing.NewVendor(code, name)
		if err != nil {
			return nil, &purchasing.FormatError{Field: "Vendor", Value: name, Err: err}
		}

		err = c.vendorRepo.Create(ctx, vendor)
		if err == nil {
			if vendor.ID == uuid.Nil {
				return nil, &purchasing.PersistenceError{Op: "create vendor " + name, Err: errors.New("store returned no identifier")}
			}
			return vendor, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, &purchasing.PersistenceError{Op: "create vendor " + name, Err: err}
		}

		lastErr = err
		c.logger.Warn("Vendor code already taken, retrying", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	return nil, &purchasing.PersistenceError{
		Op:  "create vendor " + name,
		Err: fmt.Errorf("no free vendor code after %d attempts: %w", maxCodeAttempts, lastErr),
	}
}

// ResolveItem returns the item with exactly the given description.
// Items are never created; a missing item is a NotFoundError naming the description.
func (c *ResolutionCache) ResolveItem(ctx context.Context, description string) (*purchasing.Item, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &purchasing.FormatError{Field: "Item", Value: description, Err: errors.New("item description is required")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[description]; ok {
		return item, nil
	}

	c.lookups++
	item, err := c.itemRepo.FindByDescription(ctx, description)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &purchasing.NotFoundError{Entity: "item", Key: description}
		}
		return nil, &purchasing.PersistenceError{Op: "look up item " + description, Err: err}
	}
	if item == nil {
		return nil, &purchasing.NotFoundError{Entity: "item", Key: description}
	}

	c.items[description] = item
	return item, nil
}

// CacheStats reports what a cache did during its run
type CacheStats struct {
	Vendors        int      `json:"vendors"`
	Items          int      `json:"items"`
	VendorsCreated int      `json:"vendors_created"`
	StoreLookups   int      `json:"store_lookups"`
	CreatedCodes   []string `json:"created_codes,omitempty"`
}

// Stats returns a snapshot of the cache counters
func (c *ResolutionCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Vendors:        len(c.vendors),
		Items:          len(c.items),
		VendorsCreated: c.created,
		StoreLookups:   c.lookups,
		CreatedCodes:   append([]string(nil), c.createdCodes...),
	}
}
