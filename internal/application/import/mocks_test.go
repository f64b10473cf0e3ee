package importapp

import (
	"context"
	"sync"
	"time"

	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockVendorRepository is a mock implementation of purchasing.VendorRepository
type MockVendorRepository struct {
	mock.Mock
}

func (m *MockVendorRepository) FindByName(ctx context.Context, name string) (*purchasing.Vendor, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.Vendor), args.Error(1)
}

func (m *MockVendorRepository) Create(ctx context.Context, vendor *purchasing.Vendor) error {
	args := m.Called(ctx, vendor)
	return args.Error(0)
}

func (m *MockVendorRepository) MaxCodeSequence(ctx context.Context, prefix string) (int64, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(int64), args.Error(1)
}

// MockItemRepository is a mock implementation of purchasing.ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) FindByDescription(ctx context.Context, description string) (*purchasing.Item, error) {
	args := m.Called(ctx, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.Item), args.Error(1)
}

// MockPurchaseOrderRepository is a mock implementation of purchasing.PurchaseOrderRepository.
// Transaction runs fn against the mock itself when the expectation returns nil.
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) ExistsByNumber(ctx context.Context, poNumber string) (bool, error) {
	args := m.Called(ctx, poNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByNumber(ctx context.Context, poNumber string) (*purchasing.PurchaseOrder, error) {
	args := m.Called(ctx, poNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) CreateHeader(ctx context.Context, po *purchasing.PurchaseOrder) (uuid.UUID, error) {
	args := m.Called(ctx, po)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPurchaseOrderRepository) CreateLines(ctx context.Context, orderID uuid.UUID, lines []purchasing.PurchaseOrderLine) (int64, error) {
	args := m.Called(ctx, orderID, lines)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Transaction(ctx context.Context, fn func(tx purchasing.PurchaseOrderRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

// recordingMetrics collects ImportMetrics calls
type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []GroupState
	vendors  int
}

func (r *recordingMetrics) GroupFinished(_ context.Context, outcome GroupState, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) VendorCreated(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendors++
}

// fixedSequence hands out numbers from a preset list, then keeps counting
type fixedSequence struct {
	next int64
}

func (s *fixedSequence) Next(context.Context) (int64, error) {
	s.next++
	return s.next, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
