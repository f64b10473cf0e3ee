package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	importapp "github.com/erp/poimport/internal/application/import"
	"github.com/erp/poimport/internal/infrastructure/cache"
	"github.com/erp/poimport/internal/infrastructure/config"
	"github.com/erp/poimport/internal/infrastructure/logger"
	"github.com/erp/poimport/internal/infrastructure/persistence"
	"github.com/erp/poimport/internal/infrastructure/persistence/models"
	"github.com/erp/poimport/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// app holds the process-wide dependencies shared by the import and serve commands
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	tel     *telemetry.Telemetry
	db      *persistence.Database
	service *importapp.PurchaseOrderImportService

	// set by serve only
	profiler *telemetry.Profiler

	closers []func() error
}

// newApp loads configuration and starts logging and telemetry. The store is
// connected separately by openStore so that input checks can run first.
func newApp(ctx context.Context, configPath string, overrides importOverrides, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := overrides.apply(&cfg.Import); err != nil {
		return nil, err
	}

	logCfg := logger.ForEnvironment(cfg.App.Env).Merge(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	var logOpts []logger.Option
	if logOut != nil {
		logOpts = append(logOpts, logger.WithWriter(logOut))
	}
	log, err := logger.New(logCfg, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tel, err := telemetry.Setup(ctx, telemetry.Settings{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		LogLevel:          logger.ParseLevel(cfg.Log.Level),
	}, log)
	if err != nil {
		_ = logger.Sync(log)
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if tel.Logs.IsEnabled() {
		// Rebuild so every entry is also exported over OTLP
		bridged, err := logger.New(logCfg, append(logOpts,
			logger.WithCore(tel.LogCore(serviceName, logger.ParseLevel(cfg.Log.Level))))...)
		if err == nil {
			_ = logger.Sync(log)
			log = bridged
		}
	}

	return &app{cfg: cfg, log: log, tel: tel}, nil
}

// openStore connects the database and builds the import service
func (a *app) openStore(ctx context.Context) error {
	gormLog := logger.NewGormLogger(a.log, logger.MapGormLogLevel(a.cfg.Database.LogLevel),
		logger.WithSlowThreshold(a.cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabase(&a.cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         a.cfg.Telemetry.Enabled && a.cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      a.cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: a.cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        telemetry.DBSystemForDriver(a.cfg.Database.Driver),
	}, a.log)
	if err := plugin.RegisterOtelGorm(db.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	if a.cfg.Database.AutoMigrate {
		if err := db.DB.WithContext(ctx).AutoMigrate(models.AllModels()...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		a.log.Info("Schema migrated", zap.String("driver", a.cfg.Database.Driver))
	}

	vendorRepo := persistence.NewGormVendorRepository(db.DB)
	itemRepo := persistence.NewGormItemRepository(db.DB)
	poRepo := persistence.NewGormPurchaseOrderRepository(db.DB)

	opts := importapp.Options{
		DatePolicy:       importapp.DatePolicy(a.cfg.Import.DatePolicy),
		StrictHeaders:    a.cfg.Import.StrictHeaders,
		ConflictMode:     importapp.ConflictMode(a.cfg.Import.ConflictMode),
		VendorCodePrefix: a.cfg.Import.VendorCodePrefix,
		Notes:            a.cfg.Import.Notes,
		MaxErrors:        a.cfg.Import.MaxErrors,
	}

	seq, release, err := cache.NewCodeSequenceFactory(a.cfg.Redis, cache.WithLogger(a.log)).
		CreateSequence(ctx, vendorRepo, opts.VendorCodePrefix)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, release)

	service, err := importapp.NewPurchaseOrderImportService(vendorRepo, itemRepo, poRepo, opts,
		importapp.WithLogger(a.log),
		importapp.WithMetrics(importapp.NewOTelMetrics(a.tel.Metrics)),
		importapp.WithSharedCodeSequence(seq),
	)
	if err != nil {
		return err
	}
	a.service = service
	return nil
}

// Close releases resources in reverse order of acquisition, then flushes telemetry
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	errs = append(errs, a.tel.Shutdown(ctx))
	return errors.Join(errs...)
}
