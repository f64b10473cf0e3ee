package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erp/poimport/internal/domain/shared"
	"github.com/erp/poimport/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is an open gorm connection and the driver it was opened with
type Database struct {
	DB     *gorm.DB
	Driver string

	sql *sql.DB
}

// Option adjusts the gorm configuration before the connection is opened
type Option func(*gorm.Config)

// WithGormLogger routes gorm's statement logging through l. The default is silent.
func WithGormLogger(l logger.Interface) Option {
	return func(c *gorm.Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// NewDatabase opens and pings the configured database
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	var dial gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres, "":
		dial = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dial = sqlite.Open(sqliteDSN(cfg.Path))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gcfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver != config.DriverSQLite,
		TranslateError:         true,
	}
	for _, opt := range opts {
		opt(gcfg)
	}

	db, err := gorm.Open(dial, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: db, Driver: cfg.Driver, sql: sqlDB}, nil
}

func configurePool(db *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == config.DriverSQLite {
		// single writer; an in-memory database lives only as long as its connection
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// sqliteDSN enables foreign keys, which SQLite leaves off by default
func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

// PingContext checks that the database is reachable
func (d *Database) PingContext(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// MaxOpenConnections reports the pool limit in effect
func (d *Database) MaxOpenConnections() int {
	return d.sql.Stats().MaxOpenConnections
}

// Close closes the connection pool
func (d *Database) Close() error {
	return d.sql.Close()
}

// Transaction runs fn in a transaction, rolling back when it returns an error
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}

// translateError maps GORM errors onto the shared domain errors.
// Requires gorm.Config.TranslateError so drivers report duplicates uniformly.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", shared.ErrAlreadyExists, err)
	default:
		return err
	}
}
