// Package memory is a process-local catalog driver, used for tests and
// ephemeral deployments. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidwall/btree"

	"github.com/wardrobeapp/wardrobe-server/internal/store"
)

// Store keeps records in a B-tree ordered by (created_at, seq).
type Store struct {
	mu sync.RWMutex

	// byOrder iterated in reverse yields newest first.
	byOrder *btree.Map[string, *store.Record]
	// orderKeys maps item id to its key in byOrder.
	orderKeys map[string]string

	seq    uint64
	closed bool
	logger *slog.Logger
}

var _ store.Catalog = (*Store)(nil)

// New returns an empty in-memory catalog.
func New(logger *slog.Logger) *Store {
	return &Store{
		byOrder:   btree.NewMap[string, *store.Record](0),
		orderKeys: make(map[string]string),
		logger:    logger,
	}
}

func orderKey(r *store.Record) string {
	return fmt.Sprintf("%020d:%020d", r.CreatedAt.UnixNano(), r.Seq)
}

func (s *Store) checkOpen() error {
	if s.closed {
		return store.ErrUnavailable.WithMessage("memory store is closed")
	}
	return nil
}

// CreateItem implements store.Catalog.
func (s *Store) CreateItem(ctx context.Context, in *store.Record) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	s.seq++
	rec, err := store.PrepareNew(in, s.seq)
	if err != nil {
		return nil, err
	}
	if _, exists := s.orderKeys[rec.ID]; exists {
		return nil, store.ErrAlreadyExists.WithMessage("item already exists")
	}

	key := orderKey(rec)
	s.byOrder.Set(key, rec.Clone())
	s.orderKeys[rec.ID] = key

	return rec, nil
}

// GetItem implements store.Catalog.
func (s *Store) GetItem(ctx context.Context, id string) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rec, ok := s.lookup(id)
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return rec.Clone(), nil
}

// UpdateItem implements store.Catalog.
func (s *Store) UpdateItem(ctx context.Context, id string, patch store.Patch) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rec, ok := s.lookup(id)
	if !ok {
		return nil, store.ErrItemNotFound
	}

	// Work on a copy so a reader holding the old pointer never sees a half-applied patch.
	next := rec.Clone()
	patch.Apply(next)
	next.UpdatedAt = store.Touch(next.CreatedAt)

	s.byOrder.Set(s.orderKeys[id], next)
	return next.Clone(), nil
}

// DeleteItem implements store.Catalog.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	key, ok := s.orderKeys[id]
	if !ok {
		return store.ErrItemNotFound
	}
	s.byOrder.Delete(key)
	delete(s.orderKeys, id)
	return nil
}

// ListItems implements store.Catalog.
func (s *Store) ListItems(ctx context.Context) ([]*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	items := make([]*store.Record, 0, s.byOrder.Len())
	s.byOrder.Reverse(func(_ string, rec *store.Record) bool {
		items = append(items, rec.Clone())
		return true
	})
	return items, nil
}

// Ping implements store.Catalog.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen()
}

// Close drops every record. Later calls return store.ErrUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.byOrder.Clear()
	clear(s.orderKeys)

	if s.logger != nil {
		s.logger.Info("In-memory catalog closed")
	}
	return nil
}

func (s *Store) lookup(id string) (*store.Record, bool) {
	key, ok := s.orderKeys[id]
	if !ok {
		return nil, false
	}
	return s.byOrder.Get(key)
}
