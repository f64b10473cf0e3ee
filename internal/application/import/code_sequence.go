package importapp

import (
	"context"
	"fmt"
	"sync"

	"github.com/erp/poimport/internal/domain/purchasing"
)

// CodeSequence hands out vendor code numbers. Each call reserves a number
// that no other caller of the same sequence will receive.
type CodeSequence interface {
	Next(ctx context.Context) (int64, error)
}

// StoreSeededSequence is an in-process sequence that starts after the highest
// vendor code already present in the store, so a fresh store begins at 1.
type StoreSeededSequence struct {
	repo   purchasing.VendorRepository
	prefix string

	mu     sync.Mutex
	seeded bool
	last   int64
}

// NewStoreSeededSequence creates a sequence seeded lazily from the vendor repository
func NewStoreSeededSequence(repo purchasing.VendorRepository, prefix string) *StoreSeededSequence {
	if prefix == "" {
		prefix = purchasing.DefaultVendorCodePrefix
	}
	return &StoreSeededSequence{repo: repo, prefix: prefix}
}

// Next implements CodeSequence
func (s *StoreSeededSequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		maxSeq, err := s.repo.MaxCodeSequence(ctx, s.prefix)
		if err != nil {
			return 0, fmt.Errorf("failed to seed vendor code sequence: %w", err)
		}
		s.last = maxSeq
		s.seeded = true
	}

	s.last++
	return s.last, nil
}
