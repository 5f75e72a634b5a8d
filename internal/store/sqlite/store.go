package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wardrobeapp/wardrobe-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed-width so that created_at sorts lexically in time order.
// RFC3339Nano trims trailing zeros and would not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides SQLite-backed persistence for the wardrobe catalog.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	closed atomic.Bool
}

var _ store.Catalog = (*Store)(nil)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, store.ErrUnavailable.WithMessage(fmt.Sprintf("exec pragma %q", pragma)).WithCause(err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// dsn applies per-connection settings to every pooled connection. Write
// transactions begin IMMEDIATE so concurrent read-modify-writes queue on the
// busy timeout instead of failing to upgrade their read lock.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Close closes the underlying database connection. It is safe to call twice.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return store.ErrUnavailable.WithMessage("sqlite db is closed")
	}
	return nil
}

// mapErr translates driver errors that mean "try again later" into store.ErrUnavailable.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, sql.ErrConnDone),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "unable to open database"):
		return store.ErrUnavailable.WithCause(err)
	}
	return err
}

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullableString returns a sql.NullString from a *string.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableFloat returns a sql.NullFloat64 from a *float64.
func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// boolToInt converts a bool to SQLite integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
