// Package logger builds the zap loggers used by the importer and adapts them to
// gorm, gin and request contexts.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormat is used when Config.TimeFormat is empty
const DefaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

// ForEnvironment returns the baseline configuration for an app environment.
// Production logs JSON; everything else logs console lines.
// Both write to stderr, leaving stdout to the import summary.
func ForEnvironment(env string) *Config {
	cfg := &Config{Level: "info", Format: "console", Output: "stderr", TimeFormat: DefaultTimeFormat}
	if strings.EqualFold(env, "production") {
		cfg.Format = "json"
	}
	return cfg
}

// Merge overlays the non-empty fields of other onto a copy of c
func (c Config) Merge(other Config) *Config {
	for dst, src := range map[*string]string{
		&c.Level:      other.Level,
		&c.Format:     other.Format,
		&c.Output:     other.Output,
		&c.TimeFormat: other.TimeFormat,
	} {
		if src != "" {
			*dst = src
		}
	}
	return &c
}

// Option configures the logger built by New
type Option func(*options)

type options struct {
	writer zapcore.WriteSyncer
	cores  []zapcore.Core
}

// WithWriter replaces the configured output
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = zapcore.AddSync(w)
	}
}

// WithCore tees every entry into an additional core, e.g. the OTLP log bridge
func WithCore(core zapcore.Core) Option {
	return func(o *options) {
		if core != nil {
			o.cores = append(o.cores, core)
		}
	}
}

// New builds a zap logger from cfg. It fails only when a file output cannot be opened.
func New(cfg *Config, opts ...Option) (*zap.Logger, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.writer == nil {
		ws, err := openOutput(cfg.Output)
		if err != nil {
			return nil, err
		}
		o.writer = ws
	}

	cores := append([]zapcore.Core{
		zapcore.NewCore(newEncoder(cfg), o.writer, ParseLevel(cfg.Level)),
	}, o.cores...)

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// ParseLevel maps a configured level name onto zap, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "warning":
		return zapcore.WarnLevel
	case "":
		return zapcore.InfoLevel
	default:
		parsed, err := zapcore.ParseLevel(l)
		if err != nil {
			return zapcore.InfoLevel
		}
		return parsed
	}
}

func newEncoder(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = DefaultTimeFormat
	}
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(layout),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Format != "console" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openOutput(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

// Sync flushes any buffered log entries
func Sync(logger *zap.Logger) error {
	return logger.Sync()
}
