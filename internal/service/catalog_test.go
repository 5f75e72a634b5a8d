package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
	domainerrors "github.com/wardrobeapp/wardrobe-server/internal/errors"
	"github.com/wardrobeapp/wardrobe-server/internal/filter"
	"github.com/wardrobeapp/wardrobe-server/internal/sse"
	"github.com/wardrobeapp/wardrobe-server/internal/store"
	"github.com/wardrobeapp/wardrobe-server/internal/store/memory"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(sse.Event); ok {
		r.events = append(r.events, e)
	}
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type failingIndexer struct{}

func (failingIndexer) IndexItem(context.Context, *domain.ClothingItem) error {
	return errors.New("index offline")
}

func (failingIndexer) DeleteItem(context.Context, string) error {
	return errors.New("index offline")
}

// brokenCatalog fails every call with err.
type brokenCatalog struct{ err error }

func (b brokenCatalog) CreateItem(context.Context, *store.Record) (*store.Record, error) {
	return nil, b.err
}

func (b brokenCatalog) UpdateItem(context.Context, string, store.Patch) (*store.Record, error) {
	return nil, b.err
}
func (b brokenCatalog) DeleteItem(context.Context, string) error { return b.err }
func (b brokenCatalog) ListItems(context.Context) ([]*store.Record, error) { return nil, b.err }
func (b brokenCatalog) GetItem(context.Context, string) (*store.Record, error) { return nil, b.err }
func (b brokenCatalog) Ping(context.Context) error { return b.err }
func (b brokenCatalog) Close() error { return nil }

func setupTestCatalog(t *testing.T) (*CatalogService, *memory.Store, *recordingEmitter) {
	t.Helper()

	catalog := memory.New(nil)
	t.Cleanup(func() { _ = catalog.Close() })

	emitter := &recordingEmitter{}
	svc := NewCatalogService(catalog, emitter, slog.New(slog.DiscardHandler))
	return svc, catalog, emitter
}

func validInput(name string) CreateItemInput {
	return CreateItemInput{
		Name:  name,
		Brand: "Uniqlo",
		Size:  "M",
		Color: "navy",
		Tags:  []string{"Casual", "Spring"},
	}
}

func strPtr(s string) *string { return &s }

func TestCatalogService_CreateItem(t *testing.T) {
	svc, _, emitter := setupTestCatalog(t)
	ctx := context.Background()

	in := validInput("Oxford Shirt")
	in.Price = domain.PriceOf(39.9)

	item, err := svc.CreateItem(ctx, in)
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Oxford Shirt", item.Name)
	assert.Equal(t, []string{"Casual", "Spring"}, item.Tags)
	require.NotNil(t, item.Price)
	assert.InDelta(t, 39.9, *item.Price, 1e-9)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, item.CreatedAt, item.UpdatedAt)

	// The returned tags must not alias the caller's slice.
	in.Tags[0] = "Mutated"
	assert.Equal(t, "Casual", item.Tags[0])

	assert.Equal(t, []sse.EventType{sse.EventItemCreated}, emitter.types())
}

func TestCatalogService_CreateItem_EmptyTagsAllowed(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)

	in := validInput("Plain Tee")
	in.Tags = []string{}

	item, err := svc.CreateItem(context.Background(), in)
	require.NoError(t, err)
	assert.NotNil(t, item.Tags)
	assert.Empty(t, item.Tags)
	assert.Nil(t, item.Price)
}

func TestCatalogService_CreateItem_Validation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*CreateItemInput)
		wantFields []string
	}{
		{
			name:       "empty name",
			mutate:     func(in *CreateItemInput) { in.Name = "" },
			wantFields: []string{"name"},
		},
		{
			name:       "missing tags",
			mutate:     func(in *CreateItemInput) { in.Tags = nil },
			wantFields: []string{"tags"},
		},
		{
			name:       "empty tag element",
			mutate:     func(in *CreateItemInput) { in.Tags = []string{"ok", ""} },
			wantFields: []string{"tags[1]"},
		},
		{
			name: "several fields",
			mutate: func(in *CreateItemInput) {
				in.Brand = ""
				in.Color = ""
			},
			wantFields: []string{"brand", "color"},
		},
		{
			name:       "negative price",
			mutate:     func(in *CreateItemInput) { in.Price = domain.PriceOf(-5) },
			wantFields: []string{"price"},
		},
		{
			name:       "non-numeric price",
			mutate:     func(in *CreateItemInput) { in.Price = domain.PriceFromString("cheap") },
			wantFields: []string{"price"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, catalog, emitter := setupTestCatalog(t)

			in := validInput("Chinos")
			tt.mutate(&in)

			item, err := svc.CreateItem(context.Background(), in)
			require.Error(t, err)
			assert.Nil(t, item)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			for _, f := range tt.wantFields {
				assert.Contains(t, details, f)
				assert.Contains(t, domainErr.Message, f)
			}

			records, err := catalog.ListItems(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records, "nothing is persisted on validation failure")
			assert.Empty(t, emitter.types())
		})
	}
}

func TestCatalogService_CreateItem_PriceCoercion(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)

	in := validInput("Raincoat")
	in.Price = domain.PriceFromString("120.50")

	item, err := svc.CreateItem(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, item.Price)
	assert.InDelta(t, 120.5, *item.Price, 1e-9)

	in.Price = domain.PriceOf(0)
	free, err := svc.CreateItem(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, free.Price, "zero is a price, not an absent one")
	assert.Zero(t, *free.Price)
}

func TestCatalogService_ListItems_NewestFirst(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		item, err := svc.CreateItem(ctx, validInput(name))
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	items, err := svc.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, ids[2], items[0].ID)
	assert.Equal(t, ids[1], items[1].ID)
	assert.Equal(t, ids[0], items[2].ID)
	assert.Equal(t, []string{"Casual", "Spring"}, items[0].Tags)
}

func TestCatalogService_GetItem(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, validInput("Beanie"))
	require.NoError(t, err)

	got, err := svc.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.GetItem(ctx, "item-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCatalogService_UpdateItem_PartialMerge(t *testing.T) {
	svc, catalog, emitter := setupTestCatalog(t)
	ctx := context.Background()

	in := validInput("Denim Jacket")
	in.Price = domain.PriceOf(80)
	created, err := svc.CreateItem(ctx, in)
	require.NoError(t, err)

	liked := true
	updated, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{Liked: &liked})
	require.NoError(t, err)

	assert.True(t, updated.Liked)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Brand, updated.Brand)
	assert.Equal(t, created.Tags, updated.Tags)
	assert.Equal(t, created.Price, updated.Price)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	rec, err := catalog.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, rec.Liked)
	assert.Equal(t, "Denim Jacket", rec.Name)
	assert.Equal(t, `["Casual","Spring"]`, rec.Tags)

	assert.Equal(t, []sse.EventType{sse.EventItemCreated, sse.EventItemUpdated}, emitter.types())
}

func TestCatalogService_UpdateItem_ReplacesTags(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, validInput("Parka"))
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{Tags: []string{"Winter"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Winter"}, updated.Tags)

	cleared, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{Tags: []string{}})
	require.NoError(t, err)
	assert.NotNil(t, cleared.Tags)
	assert.Empty(t, cleared.Tags)

	got, err := svc.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestCatalogService_UpdateItem_ClearsNullableFields(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	in := validInput("Loafers")
	in.Price = domain.PriceOf(150)
	in.Image = strPtr("https://example.com/loafers.jpg")
	created, err := svc.CreateItem(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, created.Image)

	updated, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{
		Price: domain.NullPrice(),
		Image: strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Price)
	assert.Nil(t, updated.Image)

	// An absent price leaves the stored one alone.
	repriced, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{Price: domain.PriceOf(99)})
	require.NoError(t, err)
	untouched, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{Name: strPtr("Penny Loafers")})
	require.NoError(t, err)
	assert.Equal(t, repriced.Price, untouched.Price)
	assert.Equal(t, "Penny Loafers", untouched.Name)
}

func TestCatalogService_UpdateItem_Validation(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, validInput("Scarf"))
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, created.ID, UpdateItemInput{Name: strPtr("")})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.UpdateItem(ctx, created.ID, UpdateItemInput{Price: domain.PriceOf(-1)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	got, err := svc.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Scarf", got.Name)
}

func TestCatalogService_NotFound(t *testing.T) {
	svc, _, emitter := setupTestCatalog(t)
	ctx := context.Background()

	err := svc.DeleteItem(ctx, "nonexistent-id")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	liked := true
	_, err = svc.UpdateItem(ctx, "nonexistent-id", UpdateItemInput{Liked: &liked})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	assert.Empty(t, emitter.types())
}

func TestCatalogService_DeleteItem(t *testing.T) {
	svc, _, emitter := setupTestCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, validInput("Sandals"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, created.ID))

	_, err = svc.GetItem(ctx, created.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = svc.DeleteItem(ctx, created.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	assert.Equal(t, []sse.EventType{sse.EventItemCreated, sse.EventItemDeleted}, emitter.types())
}

func TestCatalogService_CorruptTagData(t *testing.T) {
	svc, catalog, _ := setupTestCatalog(t)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, validInput("Good"))
	require.NoError(t, err)

	bad, err := catalog.CreateItem(ctx, &store.Record{
		Name: "Bad", Brand: "X", Size: "S", Color: "red",
		Tags: "{not valid}",
	})
	require.NoError(t, err)

	_, err = svc.ListItems(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrCorruptTagData)

	_, err = svc.GetItem(ctx, bad.ID)
	assert.ErrorIs(t, err, domainerrors.ErrCorruptTagData)

	// Replacing the tags repairs the record.
	fixed, err := svc.UpdateItem(ctx, bad.ID, UpdateItemInput{Tags: []string{"Repaired"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Repaired"}, fixed.Tags)

	items, err := svc.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCatalogService_StoreFailures(t *testing.T) {
	cause := store.ErrUnavailable.WithMessage("database is closed")
	svc := NewCatalogService(brokenCatalog{err: cause}, nil, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, err := svc.ListItems(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, store.ErrUnavailable, "the store error stays in the chain")

	_, err = svc.GetItem(ctx, "item-1")
	assert.ErrorIs(t, err, domainerrors.ErrStoreUnavailable)

	_, err = svc.CreateItem(ctx, validInput("Hat"))
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	name := "Cap"
	_, err = svc.UpdateItem(ctx, "item-1", UpdateItemInput{Name: &name})
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)

	err = svc.DeleteItem(ctx, "item-1")
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)

	assert.ErrorIs(t, svc.Ping(ctx), domainerrors.ErrStoreUnavailable)
}

func TestCatalogService_CanceledContext(t *testing.T) {
	svc, catalog, _ := setupTestCatalog(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateItem(ctx, validInput("Vest"))
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)

	name := "Gilet"
	_, err = svc.UpdateItem(ctx, "item-1", UpdateItemInput{Name: &name})
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)

	err = svc.DeleteItem(ctx, "item-1")
	assert.ErrorIs(t, err, domainerrors.ErrPersistence)

	_, err = svc.ListItems(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrStoreUnavailable)

	records, err := catalog.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCatalogService_IndexerFailureDoesNotFailWrite(t *testing.T) {
	svc, _, emitter := setupTestCatalog(t)
	svc.SetIndexer(failingIndexer{})
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, validInput("Blazer"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, item.ID))

	assert.Equal(t, []sse.EventType{sse.EventItemCreated, sse.EventItemDeleted}, emitter.types())
}

func TestCatalogService_SearchItems(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	a := validInput("Running Shoe")
	a.Brand, a.Color, a.Price = "Nike", "blue", domain.PriceOf(40)
	b := validInput("Track Jacket")
	b.Brand, b.Color, b.Price = "Nike", "red", domain.PriceOf(90)
	c := validInput("Linen Shirt")
	c.Brand, c.Color = "Muji", "white"

	for _, in := range []CreateItemInput{a, b, c} {
		_, err := svc.CreateItem(ctx, in)
		require.NoError(t, err)
	}

	all, err := svc.SearchItems(ctx, "", filter.Spec{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := svc.SearchItems(ctx, "", filter.Spec{
		Brands: []string{"Nike"},
		Colors: []string{"blue"},
		Price:  &filter.PriceRange{Min: 0, Max: 100},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Running Shoe", got[0].Name)

	got, err = svc.SearchItems(ctx, "", filter.Spec{Price: &filter.PriceRange{Min: 0, Max: 10}})
	require.NoError(t, err)
	require.Len(t, got, 1, "only the unpriced item passes")
	assert.Equal(t, "Linen Shirt", got[0].Name)

	got, err = svc.SearchItems(ctx, "nike", filter.Spec{Colors: []string{"blue", "red"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Track Jacket", got[0].Name, "recency order is preserved")
}

func TestCatalogService_Facets(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	a := validInput("Tee")
	a.Price = domain.PriceOf(15)
	b := validInput("Coat")
	b.Brand, b.Color, b.Tags, b.Price = "Arket", "camel", []string{"Winter"}, domain.PriceOf(220)

	_, err := svc.CreateItem(ctx, a)
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, b)
	require.NoError(t, err)

	facets, err := svc.Facets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Arket", "Uniqlo"}, facets.Brands)
	assert.Equal(t, []string{"camel", "navy"}, facets.Colors)
	assert.Equal(t, []string{"Casual", "Spring", "Winter"}, facets.Tags)
	assert.Equal(t, 2, facets.Total)
	require.NotNil(t, facets.Price)
	assert.InDelta(t, 15, facets.Price.Min, 1e-9)
	assert.InDelta(t, 220, facets.Price.Max, 1e-9)
}

// The create and update responses reuse the caller's tags instead of
// decoding the stored value; both paths must agree.
func TestCatalogService_ReturnedTagsMatchStoredTagsProperty(t *testing.T) {
	svc, _, _ := setupTestCatalog(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	tag := gen.AnyString().SuchThat(func(s string) bool {
		return s != "" && utf8.ValidString(s)
	})

	properties.Property("create response tags == decoded stored tags", prop.ForAll(
		func(tags []string) bool {
			in := validInput("prop")
			in.Tags = tags
			created, err := svc.CreateItem(ctx, in)
			if err != nil {
				return false
			}
			stored, err := svc.GetItem(ctx, created.ID)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(created.Tags, stored.Tags)
		},
		gen.SliceOf(tag).Map(func(tags []string) []string {
			if tags == nil {
				return []string{}
			}
			return tags
		}),
	))

	properties.Property("update response tags == decoded stored tags", prop.ForAll(
		func(tags []string) bool {
			created, err := svc.CreateItem(ctx, validInput("prop"))
			if err != nil {
				return false
			}
			updated, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{Tags: tags})
			if err != nil {
				return false
			}
			stored, err := svc.GetItem(ctx, created.ID)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(updated.Tags, stored.Tags)
		},
		gen.SliceOf(tag).Map(func(tags []string) []string {
			if tags == nil {
				return []string{}
			}
			return tags
		}),
	))

	properties.TestingRun(t)
}
