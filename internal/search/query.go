package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Index field names. They must match buildIndexMapping and ItemDocument.ToMap.
const (
	fieldID         = "id"
	fieldName       = "name"
	fieldBrand      = "brand"
	fieldBrandExact = "brand_exact"
	fieldColor      = "color"
	fieldSize       = "size"
	fieldTags       = "tags"
	fieldPrice      = "price"
	fieldHasPrice   = "has_price"
	fieldLiked      = "liked"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
)

// Sort keys accepted in SearchParams.SortBy.
const (
	SortRelevance = "relevance"
	SortRecent    = "recent"
	SortName      = "name"
	SortPrice     = "price"
)

// facetSize caps the number of values returned per facet.
const facetSize = 20

// SearchParams describes one query against the item index.
// Filters behave like filter.Spec: OR within a field, AND across fields,
// and unpriced items pass any price range.
type SearchParams struct {
	Query string

	Tags      []string
	Colors    []string
	Brands    []string
	Sizes     []string
	MinPrice  *float64
	MaxPrice  *float64
	LikedOnly bool

	Limit  int
	Offset int

	SortBy    string // one of the Sort* keys
	SortOrder string // "asc" or "desc"

	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns the first page ranked by relevance.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        SortRelevance,
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult is one page of hits.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets"`
}

// SearchHit is a matching item, read back from stored fields.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Name       string            `json:"name"`
	Brand      string            `json:"brand"`
	Color      string            `json:"color,omitempty"`
	Size       string            `json:"size,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Price      *float64          `json:"price,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchFacets holds value counts over all matches, not just the page.
type SearchFacets struct {
	Tags   []FacetCount `json:"tags,omitempty"`
	Colors []FacetCount `json:"colors,omitempty"`
	Brands []FacetCount `json:"brands,omitempty"`
	Sizes  []FacetCount `json:"sizes,omitempty"`
}

// FacetCount is one facet value.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search runs params against the index.
func (x *ItemIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	req := newSearchRequest(params)

	x.mu.RLock()
	res, err := x.index.SearchInContext(ctx, req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}

	out := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, len(res.Hits)),
	}
	for i, hit := range res.Hits {
		out.Hits[i] = SearchHit{
			ID:         hit.ID,
			Score:      hit.Score,
			Name:       storedString(hit.Fields[fieldName]),
			Brand:      storedString(hit.Fields[fieldBrand]),
			Color:      storedString(hit.Fields[fieldColor]),
			Size:       storedString(hit.Fields[fieldSize]),
			Tags:       storedStrings(hit.Fields[fieldTags]),
			Price:      storedNumber(hit.Fields[fieldPrice]),
			Highlights: firstFragments(hit.Fragments),
		}
	}
	if params.IncludeFacets {
		out.Facets = SearchFacets{
			Tags:   facetCounts(res, fieldTags),
			Colors: facetCounts(res, fieldColor),
			Brands: facetCounts(res, fieldBrandExact),
			Sizes:  facetCounts(res, fieldSize),
		}
	}
	return out, nil
}

func newSearchRequest(params SearchParams) *bleve.SearchRequest {
	req := bleve.NewSearchRequestOptions(matchQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{fieldName, fieldBrand, fieldColor, fieldSize, fieldTags, fieldPrice}
	req.SortBy(sortOrder(params))

	if params.IncludeFacets {
		for _, field := range []string{fieldTags, fieldColor, fieldBrandExact, fieldSize} {
			req.AddFacet(field, bleve.NewFacetRequest(field, facetSize))
		}
	}
	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField(fieldName)
		req.Highlight.AddField(fieldBrand)
	}
	return req
}

// matchQuery ANDs the text query with every active filter.
func matchQuery(params SearchParams) query.Query {
	var must []query.Query

	if q := textQuery(params.Query); q != nil {
		must = append(must, q)
	}
	must = appendIfSet(must, anyOf(fieldTags, params.Tags))
	must = appendIfSet(must, anyOf(fieldColor, params.Colors))
	must = appendIfSet(must, anyOf(fieldBrandExact, params.Brands))
	must = appendIfSet(must, anyOf(fieldSize, params.Sizes))
	must = appendIfSet(must, priceQuery(params.MinPrice, params.MaxPrice))

	if params.LikedOnly {
		liked := bleve.NewBoolFieldQuery(true)
		liked.SetField(fieldLiked)
		must = append(must, liked)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}

// textQuery scores name matches above brand matches. A one-edit fuzzy match
// and a prefix match on the name catch typos and partially typed words.
func textQuery(raw string) query.Query {
	q := strings.TrimSpace(raw)
	if q == "" {
		return nil
	}
	lower := strings.ToLower(q)

	name := bleve.NewMatchQuery(q)
	name.SetField(fieldName)
	name.SetBoost(3)

	brand := bleve.NewMatchQuery(q)
	brand.SetField(fieldBrand)
	brand.SetBoost(2)

	fuzzy := bleve.NewFuzzyQuery(lower)
	fuzzy.SetField(fieldName)
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.8)

	should := []query.Query{name, brand, fuzzy}
	if utf8.RuneCountInString(q) >= 2 {
		prefix := bleve.NewPrefixQuery(lower)
		prefix.SetField(fieldName)
		prefix.SetBoost(0.5)
		should = append(should, prefix)
	}
	return bleve.NewDisjunctionQuery(should...)
}

// anyOf matches documents whose keyword field equals one of values.
func anyOf(field string, values []string) query.Query {
	if len(values) == 0 {
		return nil
	}
	terms := make([]query.Query, len(values))
	for i, v := range values {
		t := bleve.NewTermQuery(v)
		t.SetField(field)
		terms[i] = t
	}
	return bleve.NewDisjunctionQuery(terms...)
}

// priceQuery matches priced items inside [lo, hi] and every unpriced item.
func priceQuery(lo, hi *float64) query.Query {
	if lo == nil && hi == nil {
		return nil
	}
	minV, maxV := 0.0, math.MaxFloat64
	if lo != nil {
		minV = *lo
	}
	if hi != nil {
		maxV = *hi
	}
	inclusive := true
	inRange := bleve.NewNumericRangeInclusiveQuery(&minV, &maxV, &inclusive, &inclusive)
	inRange.SetField(fieldPrice)

	unpriced := bleve.NewBoolFieldQuery(false)
	unpriced.SetField(fieldHasPrice)

	return bleve.NewDisjunctionQuery(inRange, unpriced)
}

func appendIfSet(qs []query.Query, q query.Query) []query.Query {
	if q == nil {
		return qs
	}
	return append(qs, q)
}

// sortOrder maps the sort key to Bleve sort fields. Name sorts A-Z unless
// "desc" is asked for explicitly; the other keys default to descending.
func sortOrder(params SearchParams) []string {
	dir := func(field string, desc bool) string {
		if desc {
			return "-" + field
		}
		return field
	}
	desc := params.SortOrder != "asc"

	switch params.SortBy {
	case SortName:
		return []string{dir(fieldName, params.SortOrder == "desc"), fieldID}
	case SortRecent:
		return []string{dir(fieldCreatedAt, desc)}
	case SortPrice:
		return []string{dir(fieldPrice, desc), "-_score"}
	default:
		return []string{"-_score", "-" + fieldCreatedAt}
	}
}

func facetCounts(res *bleve.SearchResult, field string) []FacetCount {
	facet, ok := res.Facets[field]
	if !ok || facet.Terms == nil {
		return nil
	}
	terms := facet.Terms.Terms()
	if len(terms) == 0 {
		return nil
	}
	out := make([]FacetCount, len(terms))
	for i, t := range terms {
		out[i] = FacetCount{Value: t.Term, Count: t.Count}
	}
	return out
}

// firstFragments keeps the best fragment per highlighted field.
func firstFragments(fragments map[string][]string) map[string]string {
	var out map[string]string
	for field, frags := range fragments {
		if len(frags) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(fragments))
		}
		out[field] = frags[0]
	}
	return out
}

func storedString(v any) string {
	s, _ := v.(string)
	return s
}

// storedStrings reads a stored multi-value field: a string for one value,
// a []any for several.
func storedStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func storedNumber(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}
