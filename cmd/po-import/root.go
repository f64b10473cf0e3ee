package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	importapp "github.com/erp/poimport/internal/application/import"
	"github.com/erp/poimport/internal/infrastructure/config"
	csvimport "github.com/erp/poimport/internal/infrastructure/import"
	"github.com/erp/poimport/internal/infrastructure/logger"
	"github.com/erp/poimport/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Summary output formats
const (
	outputText = "text"
	outputJSON = "json"
)

// shutdownTimeout bounds telemetry flushing and server drain
const shutdownTimeout = 30 * time.Second

// ErrSourceNotFound is returned when the input file does not exist
var ErrSourceNotFound = errors.New("input file not found")

type rootFlags struct {
	configPath    string
	output        string
	datePolicy    string
	strictHeaders bool
	conflictMode  string

	// logOut replaces the configured log output, used by tests
	logOut io.Writer
}

// importOverrides carries the command-line settings that win over config
type importOverrides struct {
	datePolicy    string
	strictHeaders *bool
	conflictMode  string
}

func (o importOverrides) apply(c *config.ImportConfig) error {
	if o.datePolicy != "" {
		if !importapp.DatePolicy(o.datePolicy).IsValid() {
			return fmt.Errorf("invalid --date-policy %q: must be substitute or fail", o.datePolicy)
		}
		c.DatePolicy = o.datePolicy
	}
	if o.strictHeaders != nil {
		c.StrictHeaders = *o.strictHeaders
	}
	if o.conflictMode != "" {
		if !importapp.ConflictMode(o.conflictMode).IsValid() {
			return fmt.Errorf("invalid --conflict-mode %q: must be skip or fail", o.conflictMode)
		}
		c.ConflictMode = o.conflictMode
	}
	return nil
}

func (f *rootFlags) overrides(cmd *cobra.Command) importOverrides {
	o := importOverrides{datePolicy: f.datePolicy, conflictMode: f.conflictMode}
	if cmd.Flags().Changed("strict-headers") {
		strict := f.strictHeaders
		o.strictHeaders = &strict
	}
	return o
}

func newRootCommand() *cobra.Command {
	return newRootCommandWithFlags(&rootFlags{})
}

func newRootCommandWithFlags(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "po-import <file>",
		Short: "Import historical purchase orders",
		Long: "Reads a purchase order export from a local path or s3://bucket/key. Files\n" +
			"are tab separated unless named .csv (comma separated) or .xlsx (workbook).\n" +
			"Rows are grouped by PO number and each order is written with its lines in\n" +
			"one transaction. Failed orders are listed in the summary; the exit status is\n" +
			"non-zero only when the run itself could not complete.",
		Args:    cobra.ExactArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != outputText && flags.output != outputJSON {
				return fmt.Errorf("invalid --format %q: must be text or json", flags.output)
			}
			return runImport(cmd, flags, args[0])
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (default: ./config.toml)")
	cmd.Flags().StringVar(&flags.output, "format", outputText, "Summary output format (text or json)")
	cmd.PersistentFlags().StringVar(&flags.datePolicy, "date-policy", "", "Unparseable dates: substitute (today) or fail")
	cmd.PersistentFlags().BoolVar(&flags.strictHeaders, "strict-headers", true, "Fail a PO whose rows disagree on header fields")
	cmd.PersistentFlags().StringVar(&flags.conflictMode, "conflict-mode", "", "Existing PO numbers: fail or skip")

	cmd.AddCommand(newServeCommand(flags))
	return cmd
}

func runImport(cmd *cobra.Command, flags *rootFlags, source string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := storage.ParseLocation(source)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, flags.configPath, flags.overrides(cmd), flags.logOut)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	defer closeApp(a)

	opener, err := a.opener(ctx, loc)
	if err == nil {
		var exists bool
		exists, err = opener.Exists(ctx, loc)
		if err == nil && !exists {
			// usage stays on: the argument names nothing
			return fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
	}
	// Past the argument checks nothing is a usage error
	cmd.SilenceUsage = true
	if err != nil {
		return err
	}

	if err := a.openStore(ctx); err != nil {
		return err
	}

	rc, err := opener.Open(ctx, loc)
	if err != nil {
		return err
	}
	defer rc.Close()

	format := csvimport.DetectFormat(loc.Name())
	ctx, log := logger.WithRunID(ctx, a.log, uuid.NewString())
	ctx, log = logger.WithSource(ctx, log, source)
	log.Info("Import started", zap.String("format", string(format)))

	start := time.Now()
	summary, err := a.service.ImportReader(ctx, rc, format)
	elapsed := time.Since(start)
	a.tel.Metrics.RecordRun(ctx, runOutcome(summary, err), string(format), elapsed)

	if summary != nil {
		if werr := writeSummary(cmd.OutOrStdout(), summary, flags.output); werr != nil {
			return werr
		}
	}
	if err != nil {
		log.Error("Import did not complete", zap.Error(err))
		return err
	}

	log.Info("Import finished",
		zap.Int("successful", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// opener builds the source opener, connecting object storage only for s3:// sources
func (a *app) opener(ctx context.Context, loc storage.Location) (*storage.Opener, error) {
	if !loc.IsObject() {
		return storage.NewOpener(nil), nil
	}
	objects, err := storage.NewS3ObjectStorage(ctx, &a.cfg.Storage, storage.WithLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	return storage.NewOpener(objects), nil
}

func runOutcome(summary *importapp.ImportSummary, err error) string {
	switch {
	case summary == nil:
		return "rejected"
	case err != nil || summary.Interrupted:
		return "interrupted"
	case summary.Failed > 0:
		return "partial"
	default:
		return "completed"
	}
}

func writeSummary(w io.Writer, summary *importapp.ImportSummary, format string) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	_, err := io.WriteString(w, summary.String())
	return err
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.log.Warn("Shutdown incomplete", zap.Error(err))
	}
	_ = logger.Sync(a.log)
}
