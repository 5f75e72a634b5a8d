package api

import (
	"encoding/json"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobeapp/wardrobe-server/internal/filter"
	"github.com/wardrobeapp/wardrobe-server/internal/search"
)

func searchHits(t *testing.T, ts *testServer, query string) SearchResponse {
	t.Helper()

	resp := ts.api.Get("/api/v1/search/items" + query)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var env testEnvelope[SearchResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Data
}

func hitNames(resp SearchResponse) []string {
	names := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		names = append(names, hit.Name)
	}
	return names
}

func TestSearchItems_Disabled(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/search/items?q=shirt")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestSearchItems_Ranked(t *testing.T) {
	ts := setupTestServer(t, withSearch())
	seedFilterCatalog(t, ts)

	result := searchHits(t, ts, "?q=jacket")
	assert.Equal(t, []string{"Denim Jacket"}, hitNames(result))
	assert.EqualValues(t, 1, result.Total)
	assert.Equal(t, "jacket", result.Query)
}

func TestSearchItems_FiltersApply(t *testing.T) {
	ts := setupTestServer(t, withSearch())
	seedFilterCatalog(t, ts)

	result := searchHits(t, ts, "?q=zara&sizes=M")
	assert.Equal(t, []string{"Linen Shirt"}, hitNames(result))

	result = searchHits(t, ts, "?liked=true")
	assert.Equal(t, []string{"Linen Shirt"}, hitNames(result))
}

func TestSearchItems_TracksDeletes(t *testing.T) {
	ts := setupTestServer(t, withSearch())
	ids := seedFilterCatalog(t, ts)

	require.Equal(t, http.StatusOK, ts.api.Delete("/api/v1/items/"+ids["Wool Coat"]).Code)

	result := searchHits(t, ts, "?q=coat")
	assert.Empty(t, result.Hits)
}

func TestSearchItems_Facets(t *testing.T) {
	ts := setupTestServer(t, withSearch())
	seedFilterCatalog(t, ts)

	result := searchHits(t, ts, "?facets=true")
	require.NotNil(t, result.Facets)

	counts := make(map[string]int)
	for _, f := range result.Facets.Brands {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, 2, counts["Zara"])

	assert.Nil(t, searchHits(t, ts, "").Facets)
}

func TestSearchItems_InvalidParams(t *testing.T) {
	ts := setupTestServer(t, withSearch())

	for _, query := range []string{"?limit=0", "?limit=101", "?sort=color", "?min_price=x"} {
		t.Run(query, func(t *testing.T) {
			resp := ts.api.Get("/api/v1/search/items" + query)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.Equal(t, "VALIDATION", decodeError(t, resp.Body.Bytes()).Code)
		})
	}
}

func TestSearchParams(t *testing.T) {
	spec := filter.Spec{
		Keywords: []string{"wool"},
		Tags:     []string{"Winter"},
		Price:    &filter.PriceRange{Min: 10, Max: math.Inf(1)},
	}

	params := searchParams(&SearchItemsInput{Query: " coat ", Limit: 5, Sort: search.SortName, Order: "asc"}, spec)

	assert.Equal(t, "coat wool", params.Query)
	assert.Equal(t, []string{"Winter"}, params.Tags)
	require.NotNil(t, params.MinPrice)
	assert.InDelta(t, 10, *params.MinPrice, 1e-9)
	assert.Nil(t, params.MaxPrice, "open upper bound is not sent to the index")
	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, search.SortName, params.SortBy)
	assert.Equal(t, "asc", params.SortOrder)
	assert.False(t, params.IncludeFacets)
}

func TestSearchParams_EmptyQuerySortsByRecency(t *testing.T) {
	params := searchParams(&SearchItemsInput{Sort: search.SortRelevance}, filter.Spec{})

	assert.Empty(t, params.Query)
	assert.Equal(t, search.SortRecent, params.SortBy)
}
