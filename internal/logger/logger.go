// Package logger builds the server's slog logger: colored console output in
// development, JSON in production, and an optional rotated JSON log file.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Rotation defaults for the log file.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 28
)

// Logger wraps slog.Logger and owns the log file, if any.
type Logger struct {
	*slog.Logger
	file io.Closer
}

// Config holds logger configuration.
type Config struct {
	Writer      io.Writer // Console output (default: os.Stdout)
	Format      string    // json or pretty; derived from Environment when empty
	Environment string
	Level       slog.Level
	AddSource   bool

	// File, when set, receives a JSON copy of every record, rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Format == "" {
		cfg.Format = FormatPretty
		if cfg.Environment == "production" {
			cfg.Format = FormatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: shortenSource,
	}

	var console slog.Handler
	if cfg.Format == FormatJSON {
		console = slog.NewJSONHandler(cfg.Writer, opts)
	} else {
		console = NewPrettyHandler(cfg.Writer, opts)
	}

	if cfg.File == "" {
		return &Logger{Logger: slog.New(console)}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    orDefault(cfg.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
		MaxAge:     orDefault(cfg.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   true,
	}
	file := slog.NewJSONHandler(rotator, opts)

	return &Logger{
		Logger: slog.New(NewFanoutHandler(console, file)),
		file:   rotator,
	}
}

// Close flushes and closes the log file. It is a no-op without one.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Fatal logs at error level and exits.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	_ = l.Close()
	os.Exit(1)
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func shortenSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if src, ok := a.Value.Any().(*slog.Source); ok {
			src.File = filepath.Base(src.File)
		}
	}
	return a
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// FanoutHandler sends each record to every handler that accepts its level.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler returns a handler writing to all of handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

// Enabled reports whether any handler accepts level.
func (f *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes r to each enabled handler and joins their errors.
func (f *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies attrs to every handler.
func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: next}
}

// WithGroup applies the group to every handler.
func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &FanoutHandler{handlers: next}
}
