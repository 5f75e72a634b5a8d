// Package search provides full-text item search using Bleve.
// It adds relevance ranking, fuzzy matching and facet counts on top of the
// exact filters in package filter.
package search

import (
	"github.com/wardrobeapp/wardrobe-server/internal/domain"
)

// ItemDocument is the indexed form of a clothing item.
type ItemDocument struct {
	ID        string
	Name      string
	Brand     string
	Size      string
	Color     string
	Tags      []string
	Price     *float64
	Liked     bool
	CreatedAt int64 // Unix millis
	UpdatedAt int64 // Unix millis
}

// ToMap returns the field map handed to Bleve. Brand is written twice:
// analyzed for text search and verbatim for filters and facets. Price is
// omitted for unpriced items, which carry has_price=false instead.
func (d *ItemDocument) ToMap() map[string]any {
	m := map[string]any{
		fieldID:         d.ID,
		fieldName:       d.Name,
		fieldBrand:      d.Brand,
		fieldBrandExact: d.Brand,
		fieldSize:       d.Size,
		fieldColor:      d.Color,
		fieldHasPrice:   d.Price != nil,
		fieldLiked:      d.Liked,
		fieldCreatedAt:  d.CreatedAt,
		fieldUpdatedAt:  d.UpdatedAt,
	}
	if len(d.Tags) > 0 {
		m[fieldTags] = d.Tags
	}
	if d.Price != nil {
		m[fieldPrice] = *d.Price
	}
	return m
}

// ItemToDocument converts a domain item to its search document.
func ItemToDocument(item *domain.ClothingItem) *ItemDocument {
	doc := &ItemDocument{
		ID:        item.ID,
		Name:      item.Name,
		Brand:     item.Brand,
		Size:      item.Size,
		Color:     item.Color,
		Tags:      append([]string(nil), item.Tags...),
		Liked:     item.Liked,
		CreatedAt: item.CreatedAt.UnixMilli(),
		UpdatedAt: item.UpdatedAt.UnixMilli(),
	}
	if item.Price != nil {
		p := *item.Price
		doc.Price = &p
	}
	return doc
}
