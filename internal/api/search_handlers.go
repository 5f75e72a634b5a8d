package api

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/filter"
	"github.com/wardrobeapp/wardrobe-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/items",
		Summary:     "Search items",
		Description: "Ranked, typo-tolerant search over item names and brands, with the same filters as listing",
		Tags:        []string{"Search"},
	}, s.handleSearchItems)
}

// === DTOs ===

// SearchItemsInput contains parameters for searching the catalog.
// Filter parameters follow the listing endpoint.
type SearchItemsInput struct {
	Query    string `query:"q" maxLength:"200" doc:"Search query"`
	Tags     string `query:"tags" doc:"Tags; an item matches if it has any of them"`
	Colors   string `query:"colors" doc:"Colors to include"`
	Brands   string `query:"brands" doc:"Brands to include"`
	Sizes    string `query:"sizes" doc:"Sizes to include"`
	Keywords string `query:"keywords" doc:"Extra search terms"`
	MinPrice string `query:"min_price" doc:"Lower price bound (inclusive)"`
	MaxPrice string `query:"max_price" doc:"Upper price bound (inclusive)"`
	Liked    string `query:"liked" doc:"Set to true to search liked items only"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Max results"`
	Offset   int    `query:"offset" minimum:"0" default:"0" doc:"Pagination offset"`
	Sort     string `query:"sort" enum:"relevance,recent,name,price" default:"relevance" doc:"Sort key"`
	Order    string `query:"order" enum:"asc,desc" default:"desc" doc:"Sort direction"`
	Facets   bool   `query:"facets" doc:"Include facet counts in response"`

	values url.Values
}

// Resolve captures the raw query so repeated parameters are not lost.
func (i *SearchItemsInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.values = u.Query()
	return nil
}

// SearchHitResult contains a single search result.
type SearchHitResult struct {
	ID         string            `json:"id" doc:"Item ID"`
	Score      float64           `json:"score" doc:"Search relevance score"`
	Name       string            `json:"name" doc:"Item name"`
	Brand      string            `json:"brand" doc:"Brand"`
	Color      string            `json:"color,omitempty" doc:"Color"`
	Size       string            `json:"size,omitempty" doc:"Size"`
	Tags       []string          `json:"tags,omitempty" doc:"Tags"`
	Price      *float64          `json:"price,omitempty" doc:"Price"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// SearchFacets contains facet counts for filtering.
type SearchFacets struct {
	Tags   []FacetCount `json:"tags,omitempty" doc:"Tag facets"`
	Colors []FacetCount `json:"colors,omitempty" doc:"Color facets"`
	Brands []FacetCount `json:"brands,omitempty" doc:"Brand facets"`
	Sizes  []FacetCount `json:"sizes,omitempty" doc:"Size facets"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value" doc:"Facet value"`
	Count int    `json:"count" doc:"Number of matches"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string            `json:"query" doc:"Original search query"`
	Total  int64             `json:"total" doc:"Total matches"`
	TookMs int64             `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult `json:"hits" doc:"Search results"`
	Facets *SearchFacets     `json:"facets,omitempty" doc:"Facet counts for filtering"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearchItems(ctx context.Context, input *SearchItemsInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("search is disabled")
	}

	spec, err := filter.ParseSpec(input.values)
	if err != nil {
		return nil, err
	}

	params := searchParams(input, spec)

	s.logger.Debug("Search request received",
		"query", params.Query,
		"limit", params.Limit,
	)

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", params.Query)
		return nil, err
	}

	resp := SearchResponse{
		Query:  params.Query,
		Total:  int64(result.Total), //nolint:gosec // Safe: total count won't exceed int64
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, 0, len(result.Hits)),
	}

	for i := range result.Hits {
		hit := &result.Hits[i]
		resp.Hits = append(resp.Hits, SearchHitResult{
			ID:         hit.ID,
			Score:      hit.Score,
			Name:       hit.Name,
			Brand:      hit.Brand,
			Color:      hit.Color,
			Size:       hit.Size,
			Tags:       hit.Tags,
			Price:      hit.Price,
			Highlights: hit.Highlights,
		})
	}

	if input.Facets {
		resp.Facets = &SearchFacets{
			Tags:   toFacetCounts(result.Facets.Tags),
			Colors: toFacetCounts(result.Facets.Colors),
			Brands: toFacetCounts(result.Facets.Brands),
			Sizes:  toFacetCounts(result.Facets.Sizes),
		}
	}

	return &SearchOutput{Body: resp}, nil
}

// searchParams maps the request onto index query parameters.
// Keywords are folded into the text query.
func searchParams(input *SearchItemsInput, spec filter.Spec) search.SearchParams {
	params := search.DefaultSearchParams()

	terms := append([]string{strings.TrimSpace(input.Query)}, spec.Keywords...)
	params.Query = strings.TrimSpace(strings.Join(terms, " "))

	params.Tags = spec.Tags
	params.Colors = spec.Colors
	params.Brands = spec.Brands
	params.Sizes = spec.Sizes
	params.LikedOnly = spec.LikedOnly

	if spec.Price != nil {
		lo := spec.Price.Min
		params.MinPrice = &lo
		if !math.IsInf(spec.Price.Max, 1) {
			hi := spec.Price.Max
			params.MaxPrice = &hi
		}
	}

	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Order != "" {
		params.SortOrder = input.Order
	}
	params.IncludeFacets = input.Facets

	// An empty query has no relevance to rank by.
	if params.Query == "" && params.SortBy == search.SortRelevance {
		params.SortBy = search.SortRecent
	}

	return params
}

func toFacetCounts(in []search.FacetCount) []FacetCount {
	if len(in) == 0 {
		return nil
	}
	out := make([]FacetCount, len(in))
	for i, f := range in {
		out[i] = FacetCount{Value: f.Value, Count: f.Count}
	}
	return out
}
