package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

const (
	itemPrefix = "item:"
	seqKey     = "meta:item_seq"

	// seqBandwidth is how many sequence numbers Badger leases at a time.
	seqBandwidth = 100
)

// Store is the Badger-backed catalog driver.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger

	// writeMu serializes read-modify-write transactions so concurrent
	// writers to one key resolve as last-write-wins instead of conflicting.
	writeMu sync.Mutex

	closed atomic.Bool
}

var _ Catalog = (*Store)(nil)

// New opens (or creates) a Badger catalog at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Badger's own logger is too chatty
	opts.SyncWrites = true       // an acknowledged write must survive a crash
	opts.CompactL0OnClose = true // faster startup

	return open(opts, logger)
}

// NewInMemory opens a Badger catalog that lives only in memory.
func NewInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ErrUnavailable.WithMessage("failed to open badger db").WithCause(err)
	}

	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to lease item sequence: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", opts.Dir, "in_memory", opts.InMemory)
	}

	return &Store{
		db:     db,
		seq:    seq,
		logger: logger,
	}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	if err := s.seq.Release(); err != nil && s.logger != nil {
		s.logger.Warn("failed to release item sequence", "error", err)
	}
	return s.db.Close()
}

// Ping reports ErrUnavailable once the store has been closed.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.checkOpen()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() || s.db.IsClosed() {
		return ErrUnavailable.WithMessage("badger db is closed")
	}
	return nil
}

// Helper methods for database operations.

// get retrieves a value by key inside txn.
func get(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// set stores a value by key inside txn.
func set(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// update runs fn in a read-write transaction. Writers take turns, so a
// conflict only arises from a transaction outside update and is retried.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	const maxAttempts = 3

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for range maxAttempts {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if s.logger != nil {
			s.logger.Debug("badger write conflict, retrying")
		}
	}
	return err
}

func unmarshalRecord(val []byte, rec *Record) error {
	return json.Unmarshal(val, rec)
}
