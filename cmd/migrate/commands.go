package main

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/erp/poimport/internal/infrastructure/config"
	"github.com/erp/poimport/internal/infrastructure/logger"
	"github.com/erp/poimport/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

type migrateFlags struct {
	configPath string
	dir        string
	logLevel   string
	confirm    bool
}

// sourceDir is where create and list work. An empty --path means the
// embedded set for database commands and ./migrations for authoring.
func (f *migrateFlags) sourceDir() (string, error) {
	if f.dir == "" {
		return defaultMigrationsDir, nil
	}
	return filepath.Abs(f.dir)
}

func newRootCommand() *cobra.Command {
	f := &migrateFlags{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the purchase order store schema",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to config file (default ./config.toml)")
	root.PersistentFlags().StringVar(&f.dir, "path", "", "read migrations from this directory instead of the embedded set")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		dbCommand(f, "up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		dbCommand(f, "down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		dbCommand(f, "step <n>", "Apply n migrations, negative n rolls back", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		dbCommand(f, "goto <version>", "Migrate up or down to a version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		dbCommand(f, "force <version>", "Set the recorded version without running migrations", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		versionCommand(f),
		dropCommand(f),
		createCommand(f),
		listCommand(f),
	)
	return root
}

type migratorFunc func(m *migration.Migrator, args []string) error

// dbCommand wraps fn with config loading, a database handle and a migrator.
func dbCommand(f *migrateFlags, use, short string, args cobra.PositionalArgs, fn migratorFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withMigrator(cmd, func(m *migration.Migrator) error { return fn(m, args) })
		},
	}
}

func (f *migrateFlags) newLogger() (*zap.Logger, error) {
	return logger.New(&logger.Config{Level: f.logLevel, Format: "console", Output: "stderr"})
}

func (f *migrateFlags) withMigrator(cmd *cobra.Command, fn func(*migration.Migrator) error) error {
	log, err := f.newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync(log) }()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := openDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(cmd.Context()); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var opts []migration.Option
	if f.dir != "" {
		dir, err := filepath.Abs(f.dir)
		if err != nil {
			return err
		}
		opts = append(opts, migration.WithPath(dir))
	}
	m, err := migration.New(db, cfg.Database.Driver, log, opts...)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	log.Info("Running migration command", zap.String("command", cmd.Name()), zap.String("driver", cfg.Database.Driver))
	return fn(m)
}

func versionCommand(f *migrateFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.withMigrator(cmd, func(m *migration.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if v == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	}
}

func dropCommand(f *migrateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every object in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !f.confirm {
				return errors.New("drop needs --confirm")
			}
			return f.withMigrator(cmd, func(m *migration.Migrator) error { return m.Drop() })
		},
	}
	cmd.Flags().BoolVar(&f.confirm, "confirm", false, "confirm dropping all objects")
	return cmd
}

func createCommand(f *migrateFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Write the next numbered up/down file pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := f.sourceDir()
			if err != nil {
				return err
			}
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n  %s\n  %s\n", mf.Version, mf.UpPath, mf.DownPath)
			return nil
		},
	}
}

func listCommand(f *migrateFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List migrations in the migrations directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := f.sourceDir()
			if err != nil {
				return err
			}
			names, err := migration.ListMigrations(dir)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations found")
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func openDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := sql.Open("sqlite3", cfg.Path)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return db, nil
	}
	return sql.Open("postgres", cfg.DSN())
}
