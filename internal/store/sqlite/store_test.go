package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobeapp/wardrobe-server/internal/store"
	"github.com/wardrobeapp/wardrobe-server/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='items'").Scan(&name)
	if err != nil {
		t.Errorf("table items not found: %v", err)
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	created, err := s.CreateItem(context.Background(), storetest.NewRecord("Beanie"))
	require.NoError(t, err)

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent) and keep the data.
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetItem(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beanie", got.Name)
}

func TestSQLiteCatalog(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Catalog {
		return newTestStore(t)
	})
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	whole := formatTime(base)
	fraction := formatTime(base.Add(100 * time.Millisecond))

	assert.Less(t, whole, fraction)

	parsed, err := parseTime(fraction)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(base.Add(100*time.Millisecond)))
}

func TestListItems_TieBreaksOnInsertOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateItem(ctx, storetest.NewRecord("A"))
	require.NoError(t, err)
	b, err := s.CreateItem(ctx, storetest.NewRecord("B"))
	require.NoError(t, err)

	// Force identical timestamps.
	_, err = s.db.Exec(`UPDATE items SET created_at = ?`, formatTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)
}

func TestNullableColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := storetest.NewRecord("Socks")
	in.Price = nil
	in.Image = nil
	rec, err := s.CreateItem(ctx, in)
	require.NoError(t, err)

	var price, image any
	require.NoError(t, s.db.QueryRow(`SELECT price, image FROM items WHERE id = ?`, rec.ID).Scan(&price, &image))
	assert.Nil(t, price)
	assert.Nil(t, image)

	got, err := s.GetItem(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Price)
	assert.Nil(t, got.Image)
}
