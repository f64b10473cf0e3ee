package cache

import (
	"context"
	"fmt"

	importapp "github.com/erp/poimport/internal/application/import"
	"github.com/erp/poimport/internal/domain/purchasing"
	"github.com/erp/poimport/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CodeSequenceFactory creates vendor code sequences based on configuration
type CodeSequenceFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CodeSequenceFactoryOption is a functional option for configuring the factory
type CodeSequenceFactoryOption func(*CodeSequenceFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CodeSequenceFactoryOption {
	return func(f *CodeSequenceFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the
// in-process sequence. Default is true.
func WithInMemoryFallback(allow bool) CodeSequenceFactoryOption {
	return func(f *CodeSequenceFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCodeSequenceFactory creates a new factory
func NewCodeSequenceFactory(cfg config.RedisConfig, opts ...CodeSequenceFactoryOption) *CodeSequenceFactory {
	f := &CodeSequenceFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SequenceKey returns the Redis key for a code prefix
func (f *CodeSequenceFactory) SequenceKey(prefix string) string {
	return f.redisConfig.SequenceKey + ":" + prefix
}

// CreateSequence returns the sequence for prefix and a release function.
// With Redis disabled the in-process store-seeded sequence is used.
func (f *CodeSequenceFactory) CreateSequence(ctx context.Context, repo purchasing.VendorRepository, prefix string) (importapp.CodeSequence, func() error, error) {
	if prefix == "" {
		prefix = purchasing.DefaultVendorCodePrefix
	}
	local := func() (importapp.CodeSequence, func() error, error) {
		return importapp.NewStoreSeededSequence(repo, prefix), func() error { return nil }, nil
	}
	if !f.redisConfig.Enabled {
		return local()
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("Redis required for vendor codes but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-process vendor code sequence. "+
			"Concurrent runs may then race for the same codes.",
			zap.Error(err),
		)
		return local()
	}

	f.logger.Info("Using Redis vendor code sequence", zap.String("key", f.SequenceKey(prefix)))
	return f.sequenceOn(client, repo, prefix), client.Close, nil
}

func (f *CodeSequenceFactory) sequenceOn(client redis.Scripter, repo purchasing.VendorRepository, prefix string) *RedisCodeSequence {
	return NewRedisCodeSequence(client, f.SequenceKey(prefix), func(ctx context.Context) (int64, error) {
		return repo.MaxCodeSequence(ctx, prefix)
	})
}
