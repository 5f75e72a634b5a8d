// Package domain defines the wardrobe catalog's core types.
package domain

import "time"

// ClothingItem is a single piece of clothing in the catalog.
// Tags are always the decoded sequence here; the encoded form never leaves the store layer.
type ClothingItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Price     *float64  `json:"price"`
	Tags      []string  `json:"tags"`
	Liked     bool      `json:"liked"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPrice reports whether the item carries a price.
func (c *ClothingItem) HasPrice() bool {
	return c.Price != nil
}

// Clone returns a deep copy of the item.
func (c *ClothingItem) Clone() *ClothingItem {
	out := *c
	if c.Price != nil {
		p := *c.Price
		out.Price = &p
	}
	if c.Image != nil {
		img := *c.Image
		out.Image = &img
	}
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	return &out
}
