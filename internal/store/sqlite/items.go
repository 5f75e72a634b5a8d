package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wardrobeapp/wardrobe-server/internal/store"
)

// itemColumns is the ordered list of columns selected in item queries.
// Must match the scan order in scanItem.
const itemColumns = `seq, id, name, brand, size, color, price, tags, liked, image, created_at, updated_at`

// scanItem scans a sql.Row (or sql.Rows via its Scan method) into a store.Record.
func scanItem(scanner interface{ Scan(dest ...any) error }) (*store.Record, error) {
	var r store.Record

	var (
		seq       int64
		price     sql.NullFloat64
		liked     int
		image     sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&seq,
		&r.ID,
		&r.Name,
		&r.Brand,
		&r.Size,
		&r.Color,
		&price,
		&r.Tags,
		&liked,
		&image,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Seq = uint64(seq)
	r.Liked = liked != 0
	if price.Valid {
		v := price.Float64
		r.Price = &v
	}
	if image.Valid {
		v := image.String
		r.Image = &v
	}

	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &r, nil
}

// CreateItem inserts a new item row.
func (s *Store) CreateItem(ctx context.Context, in *store.Record) (*store.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rec, err := store.PrepareNew(in, 0)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO items (
			id, name, brand, size, color, price, tags, liked, image, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Name,
		rec.Brand,
		rec.Size,
		rec.Color,
		nullableFloat(rec.Price),
		rec.Tags,
		boolToInt(rec.Liked),
		nullableString(rec.Image),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, store.ErrAlreadyExists.WithMessage("item already exists")
		}
		return nil, fmt.Errorf("insert item: %w", mapErr(err))
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read item seq: %w", err)
	}
	rec.Seq = uint64(seq)

	if s.logger != nil {
		s.logger.Debug("item created", "item_id", rec.ID)
	}
	return rec, nil
}

// GetItem retrieves an item by ID.
// Returns store.ErrItemNotFound if the item does not exist.
func (s *Store) GetItem(ctx context.Context, id string) (*store.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.getItem(ctx, s.db, id)
}

func (s *Store) getItem(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string) (*store.Record, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)

	r, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", mapErr(err))
	}
	return r, nil
}

// UpdateItem reads the row, merges the patch and writes it back in one transaction.
// Returns store.ErrItemNotFound if the item does not exist.
func (s *Store) UpdateItem(ctx context.Context, id string, patch store.Patch) (*store.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback()

	rec, err := s.getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(rec)
	rec.UpdatedAt = store.Touch(rec.CreatedAt)

	_, err = tx.ExecContext(ctx, `
		UPDATE items SET
			name = ?,
			brand = ?,
			size = ?,
			color = ?,
			price = ?,
			tags = ?,
			liked = ?,
			image = ?,
			updated_at = ?
		WHERE id = ?`,
		rec.Name,
		rec.Brand,
		rec.Size,
		rec.Color,
		nullableFloat(rec.Price),
		rec.Tags,
		boolToInt(rec.Liked),
		nullableString(rec.Image),
		formatTime(rec.UpdatedAt),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", mapErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit item update: %w", mapErr(err))
	}

	if s.logger != nil {
		s.logger.Debug("item updated", "item_id", id)
	}
	return rec, nil
}

// DeleteItem performs a hard delete.
// Returns store.ErrItemNotFound if the item does not exist.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", mapErr(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrItemNotFound
	}

	if s.logger != nil {
		s.logger.Debug("item deleted", "item_id", id)
	}
	return nil
}

// ListItems returns all items, newest first. Rows created in the same
// instant fall back to insertion order, latest first.
func (s *Store) ListItems(ctx context.Context) ([]*store.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", mapErr(err))
	}
	defer rows.Close()

	items := make([]*store.Record, 0)
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return items, nil
}
