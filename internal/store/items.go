package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// CreateItem persists a new record and returns it with its assigned fields.
func (s *Store) CreateItem(ctx context.Context, r *Record) (*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seq, err := s.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("next item sequence: %w", err)
	}

	rec, err := PrepareNew(r, seq)
	if err != nil {
		return nil, err
	}

	key := buildKey(itemPrefix, rec.ID)
	defer releaseKey(key)

	err = s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists.WithMessage("item already exists")
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return set(txn, key, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("item created", "item_id", rec.ID)
	}
	return rec.Clone(), nil
}

// GetItem retrieves a record by ID.
func (s *Store) GetItem(ctx context.Context, itemID string) (*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(itemPrefix, itemID)
	defer releaseKey(key)

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, key, &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &rec, nil
}

// UpdateItem merges patch into an existing record.
func (s *Store) UpdateItem(ctx context.Context, itemID string, patch Patch) (*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(itemPrefix, itemID)
	defer releaseKey(key)

	var updated Record
	err := s.update(func(txn *badger.Txn) error {
		var rec Record
		if err := get(txn, key, &rec); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		patch.Apply(&rec)
		rec.UpdatedAt = Touch(rec.CreatedAt)

		if err := set(txn, key, &rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("item updated", "item_id", itemID)
	}
	return &updated, nil
}

// DeleteItem hard-deletes a record.
func (s *Store) DeleteItem(ctx context.Context, itemID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(itemPrefix, itemID)
	defer releaseKey(key)

	err := s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("item deleted", "item_id", itemID)
	}
	return nil
}

// ListItems returns every record, newest first.
func (s *Store) ListItems(ctx context.Context) ([]*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	records := make([]*Record, 0)
	prefix := []byte(itemPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalRecord(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	SortByRecency(records)
	return records, nil
}

// Touch returns the current time, never earlier than createdAt.
func Touch(createdAt time.Time) time.Time {
	now := time.Now().UTC()
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}
