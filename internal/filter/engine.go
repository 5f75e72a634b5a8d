// Package filter narrows a catalog listing by free text and selected facets.
//
// Fields combine with AND; values selected within one field combine with OR.
// Apply is pure: it never mutates its inputs and keeps their order.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
)

// PriceRange is an inclusive price window.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether p lies in [Min, Max].
func (r PriceRange) Contains(p float64) bool {
	return r.Min <= p && p <= r.Max
}

// Spec is a composite filter. The zero value matches everything.
type Spec struct {
	Tags   []string    `json:"tags,omitempty"`
	Colors []string    `json:"colors,omitempty"`
	Brands []string    `json:"brands,omitempty"`
	Sizes  []string    `json:"sizes,omitempty"`
	Price  *PriceRange `json:"price,omitempty"`

	// Keywords must each appear in the name, brand or a tag.
	Keywords []string `json:"keywords,omitempty"`

	LikedOnly bool `json:"liked_only,omitempty"`
}

// IsZero reports whether the spec selects nothing.
func (s Spec) IsZero() bool {
	return len(s.Tags) == 0 && len(s.Colors) == 0 && len(s.Brands) == 0 &&
		len(s.Sizes) == 0 && s.Price == nil && len(s.Keywords) == 0 && !s.LikedOnly
}

// Apply returns the items that match query and spec, in input order.
// The result is a new slice; the items themselves are shared with the input.
func Apply(items []*domain.ClothingItem, query string, spec Spec) []*domain.ClothingItem {
	m := newMatcher(query, spec)

	out := make([]*domain.ClothingItem, 0, len(items))
	for _, item := range items {
		if item != nil && m.match(item) {
			out = append(out, item)
		}
	}
	return out
}

// matcher holds the per-call precomputed form of a spec.
// cases.Caser is stateful, so each matcher owns one.
type matcher struct {
	fold cases.Caser

	query    string
	keywords []string
	tags     map[string]struct{}
	colors   map[string]struct{}
	brands   map[string]struct{}
	sizes    map[string]struct{}
	price    *PriceRange
	liked    bool
}

func newMatcher(query string, spec Spec) *matcher {
	m := &matcher{
		fold:   cases.Fold(),
		tags:   toSet(spec.Tags),
		colors: toSet(spec.Colors),
		brands: toSet(spec.Brands),
		sizes:  toSet(spec.Sizes),
		price:  spec.Price,
		liked:  spec.LikedOnly,
	}
	m.query = m.fold.String(strings.TrimSpace(query))
	for _, kw := range spec.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		m.keywords = append(m.keywords, m.fold.String(kw))
	}
	return m
}

func (m *matcher) match(item *domain.ClothingItem) bool {
	return m.matchQuery(item) &&
		m.matchTags(item) &&
		inSet(m.colors, item.Color) &&
		inSet(m.brands, item.Brand) &&
		inSet(m.sizes, item.Size) &&
		m.matchPrice(item) &&
		m.matchKeywords(item) &&
		(!m.liked || item.Liked)
}

func (m *matcher) matchQuery(item *domain.ClothingItem) bool {
	if m.query == "" {
		return true
	}
	return m.contains(item.Name, m.query) || m.contains(item.Brand, m.query)
}

func (m *matcher) matchTags(item *domain.ClothingItem) bool {
	if len(m.tags) == 0 {
		return true
	}
	for _, t := range item.Tags {
		if _, ok := m.tags[t]; ok {
			return true
		}
	}
	return false
}

// matchPrice lets unpriced items through any range.
func (m *matcher) matchPrice(item *domain.ClothingItem) bool {
	if m.price == nil || !item.HasPrice() {
		return true
	}
	return m.price.Contains(*item.Price)
}

func (m *matcher) matchKeywords(item *domain.ClothingItem) bool {
	for _, kw := range m.keywords {
		if !m.keywordHit(item, kw) {
			return false
		}
	}
	return true
}

func (m *matcher) keywordHit(item *domain.ClothingItem, kw string) bool {
	if m.contains(item.Name, kw) || m.contains(item.Brand, kw) {
		return true
	}
	for _, t := range item.Tags {
		if m.contains(t, kw) {
			return true
		}
	}
	return false
}

// contains does a case-folded substring test; needle is already folded.
func (m *matcher) contains(haystack, needle string) bool {
	return strings.Contains(m.fold.String(haystack), needle)
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// inSet treats an empty selection as "match all".
func inSet(set map[string]struct{}, v string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[v]
	return ok
}
