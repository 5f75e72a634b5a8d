package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wardrobeapp/wardrobe-server/internal/id"
)

// Record is the persisted form of a clothing item.
// Tags holds the encoded tag list; only the service layer decodes it.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Price     *float64  `json:"price,omitempty"`
	Tags      string    `json:"tags"`
	Liked     bool      `json:"liked"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Seq is a per-store insertion counter used to order records created
	// within the same clock tick.
	Seq uint64 `json:"seq"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name  *string
	Brand *string
	Size  *string
	Color *string
	Price *float64
	Tags  *string
	Liked *bool
	Image *string

	// ClearPrice and ClearImage null the field. They win over Price/Image.
	ClearPrice bool
	ClearImage bool
}

// Apply merges the patch into r using replace-if-present semantics.
func (p Patch) Apply(r *Record) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Brand != nil {
		r.Brand = *p.Brand
	}
	if p.Size != nil {
		r.Size = *p.Size
	}
	if p.Color != nil {
		r.Color = *p.Color
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	if p.Liked != nil {
		r.Liked = *p.Liked
	}

	switch {
	case p.ClearPrice:
		r.Price = nil
	case p.Price != nil:
		v := *p.Price
		r.Price = &v
	}

	switch {
	case p.ClearImage:
		r.Image = nil
	case p.Image != nil:
		v := *p.Image
		r.Image = &v
	}
}

// Catalog is the record store behind the catalog service.
// Any durable store with these merge and ordering semantics is substitutable.
type Catalog interface {
	// CreateItem persists a new record. The store assigns ID, CreatedAt,
	// UpdatedAt and Seq, overwriting whatever the input carried.
	CreateItem(ctx context.Context, r *Record) (*Record, error)

	// UpdateItem merges patch into the record with the given id.
	// Returns ErrItemNotFound if the record does not exist.
	UpdateItem(ctx context.Context, itemID string, patch Patch) (*Record, error)

	// DeleteItem hard-deletes a record. Returns ErrItemNotFound if absent.
	DeleteItem(ctx context.Context, itemID string) error

	// ListItems returns every record, newest CreatedAt first.
	ListItems(ctx context.Context) ([]*Record, error)

	// GetItem returns a single record or ErrItemNotFound.
	GetItem(ctx context.Context, itemID string) (*Record, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// PrepareNew fills the store-assigned fields of a record about to be created.
func PrepareNew(r *Record, seq uint64) (*Record, error) {
	itemID, err := id.Generate(id.PrefixItem)
	if err != nil {
		return nil, fmt.Errorf("generate item id: %w", err)
	}

	now := time.Now().UTC()
	out := *r
	out.ID = itemID
	out.CreatedAt = now
	out.UpdatedAt = now
	out.Seq = seq
	return &out, nil
}

// SortByRecency orders records newest first, breaking ties by insertion order.
func SortByRecency(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Seq > b.Seq
	})
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := *r
	if r.Price != nil {
		v := *r.Price
		out.Price = &v
	}
	if r.Image != nil {
		v := *r.Image
		out.Image = &v
	}
	return &out
}
