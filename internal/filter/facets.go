package filter

import (
	"slices"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
)

// Facets lists the distinct values a client can offer as filter options.
type Facets struct {
	Tags   []string    `json:"tags"`
	Colors []string    `json:"colors"`
	Brands []string    `json:"brands"`
	Sizes  []string    `json:"sizes"`
	Price  *PriceRange `json:"price,omitempty"` // nil when no item is priced
	Total  int         `json:"total"`
	Liked  int         `json:"liked"`
}

// CollectFacets gathers the sorted distinct tags, colors, brands and sizes
// across items, plus the observed price bounds.
func CollectFacets(items []*domain.ClothingItem) Facets {
	var (
		tags   = make(map[string]struct{})
		colors = make(map[string]struct{})
		brands = make(map[string]struct{})
		sizes  = make(map[string]struct{})
		f      Facets
	)

	for _, item := range items {
		if item == nil {
			continue
		}
		f.Total++
		if item.Liked {
			f.Liked++
		}
		for _, t := range item.Tags {
			tags[t] = struct{}{}
		}
		colors[item.Color] = struct{}{}
		brands[item.Brand] = struct{}{}
		sizes[item.Size] = struct{}{}

		if item.Price == nil {
			continue
		}
		p := *item.Price
		if f.Price == nil {
			f.Price = &PriceRange{Min: p, Max: p}
			continue
		}
		f.Price.Min = min(f.Price.Min, p)
		f.Price.Max = max(f.Price.Max, p)
	}

	f.Tags = sortedKeys(tags)
	f.Colors = sortedKeys(colors)
	f.Brands = sortedKeys(brands)
	f.Sizes = sortedKeys(sizes)
	return f
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
