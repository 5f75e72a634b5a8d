// Package storetest holds the behavioural suite every catalog driver must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobeapp/wardrobe-server/internal/id"
	"github.com/wardrobeapp/wardrobe-server/internal/store"
)

// Factory opens a fresh, empty catalog for one test. The suite closes it.
type Factory func(t *testing.T) store.Catalog

// Run executes the suite against catalogs produced by newCatalog.
func Run(t *testing.T, newCatalog Factory) {
	t.Helper()

	open := func(t *testing.T) store.Catalog {
		t.Helper()
		c := newCatalog(t)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	t.Run("CreateAssignsIdentity", func(t *testing.T) { testCreateAssignsIdentity(t, open(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, open(t)) })
	t.Run("UpdateMerges", func(t *testing.T) { testUpdateMerges(t, open(t)) })
	t.Run("UpdateClearsNullable", func(t *testing.T) { testUpdateClearsNullable(t, open(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, open(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, open(t)) })
	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) { testReturnedRecordsAreCopies(t, open(t)) })
	t.Run("ConcurrentUpdatesLastWriteWins", func(t *testing.T) { testConcurrentUpdates(t, open(t)) })
	t.Run("DeleteRacesUpdates", func(t *testing.T) { testDeleteRacesUpdates(t, open(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, open(t)) })
}

// NewRecord returns a fully populated record for tests.
func NewRecord(name string) *store.Record {
	price := 40.0
	image := "https://example.com/" + name + ".png"
	return &store.Record{
		Name:  name,
		Brand: "Acme",
		Size:  "M",
		Color: "Blue",
		Price: &price,
		Tags:  `["Casual","Summer"]`,
		Image: &image,
	}
}

func testCreateAssignsIdentity(t *testing.T, c store.Catalog) {
	ctx := context.Background()
	in := NewRecord("Linen Shirt")
	in.ID = "caller-chosen"

	rec, err := c.CreateItem(ctx, in)
	require.NoError(t, err)

	assert.True(t, id.HasPrefix(rec.ID, id.PrefixItem), "got id %q", rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.Equal(t, "Linen Shirt", rec.Name)
	assert.Equal(t, `["Casual","Summer"]`, rec.Tags)
	require.NotNil(t, rec.Price)
	assert.InDelta(t, 40.0, *rec.Price, 1e-9)

	got, err := c.GetItem(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Brand, got.Brand)
	assert.Equal(t, rec.Tags, got.Tags)
	assert.Equal(t, *rec.Image, *got.Image)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	second, err := c.CreateItem(ctx, NewRecord("Linen Shirt"))
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, second.ID)
}

func testGetMissing(t *testing.T, c store.Catalog) {
	_, err := c.GetItem(context.Background(), "item-doesnotexist")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, store.IsNotFound(err))
}

func testUpdateMerges(t *testing.T, c store.Catalog) {
	ctx := context.Background()
	rec, err := c.CreateItem(ctx, NewRecord("Chinos"))
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	name := "Slim Chinos"
	liked := true
	tags := `["Smart"]`
	updated, err := c.UpdateItem(ctx, rec.ID, store.Patch{Name: &name, Liked: &liked, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, "Slim Chinos", updated.Name)
	assert.True(t, updated.Liked)
	assert.Equal(t, `["Smart"]`, updated.Tags)
	assert.Equal(t, "Acme", updated.Brand, "absent fields are untouched")
	assert.Equal(t, "M", updated.Size)
	require.NotNil(t, updated.Price)
	assert.InDelta(t, 40.0, *updated.Price, 1e-9)
	assert.True(t, rec.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(rec.UpdatedAt))

	got, err := c.GetItem(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Slim Chinos", got.Name)
	assert.True(t, got.Liked)

	unchanged, err := c.UpdateItem(ctx, rec.ID, store.Patch{})
	require.NoError(t, err)
	assert.Equal(t, "Slim Chinos", unchanged.Name)
	assert.False(t, unchanged.UpdatedAt.Before(updated.UpdatedAt))
}

func testUpdateClearsNullable(t *testing.T, c store.Catalog) {
	ctx := context.Background()
	rec, err := c.CreateItem(ctx, NewRecord("Parka"))
	require.NoError(t, err)

	updated, err := c.UpdateItem(ctx, rec.ID, store.Patch{ClearPrice: true, ClearImage: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Price)
	assert.Nil(t, updated.Image)

	price := 0.0
	updated, err = c.UpdateItem(ctx, rec.ID, store.Patch{Price: &price})
	require.NoError(t, err)
	require.NotNil(t, updated.Price)
	assert.Zero(t, *updated.Price)

	got, err := c.GetItem(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assert.Zero(t, *got.Price)
	assert.Nil(t, got.Image)
}

func testUpdateMissing(t *testing.T, c store.Catalog) {
	name := "x"
	_, err := c.UpdateItem(context.Background(), "item-missing", store.Patch{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDelete(t *testing.T, c store.Catalog) {
	ctx := context.Background()
	keep, err := c.CreateItem(ctx, NewRecord("Keep"))
	require.NoError(t, err)
	drop, err := c.CreateItem(ctx, NewRecord("Drop"))
	require.NoError(t, err)

	require.NoError(t, c.DeleteItem(ctx, drop.ID))

	_, err = c.GetItem(ctx, drop.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = c.DeleteItem(ctx, drop.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "second delete reports not found")

	items, err := c.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)
}

func testListEmpty(t *testing.T, c store.Catalog) {
	items, err := c.ListItems(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func testListNewestFirst(t *testing.T, c store.Catalog) {
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"First", "Second", "Third", "Fourth"} {
		rec, err := c.CreateItem(ctx, NewRecord(name))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	// Updating must not reorder: ordering is by creation time.
	name := "First (edited)"
	_, err := c.UpdateItem(ctx, ids[0], store.Patch{Name: &name})
	require.NoError(t, err)

	items, err := c.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)

	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.ID)
	}
	assert.Equal(t, []string{ids[3], ids[2], ids[1], ids[0]}, got)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt))
	}
}

func testReturnedRecordsAreCopies(t *testing.T, c store.Catalog) {
	ctx := context.Background()
	rec, err := c.CreateItem(ctx, NewRecord("Scarf"))
	require.NoError(t, err)

	rec.Name = "mutated"
	*rec.Price = 1

	got, err := c.GetItem(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Scarf", got.Name)
	assert.InDelta(t, 40.0, *got.Price, 1e-9)
}

func testClosed(t *testing.T, c store.Catalog) {
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Ping(ctx), store.ErrUnavailable)

	_, err := c.ListItems(ctx)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	_, err = c.CreateItem(ctx, NewRecord("Late"))
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func testConcurrentUpdates(t *testing.T, c store.Catalog) {
	const writers = 32
	ctx := context.Background()

	rec, err := c.CreateItem(ctx, NewRecord("Hoodie"))
	require.NoError(t, err)

	names := make(map[string]bool, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		name := fmt.Sprintf("Hoodie %d", i)
		names[name] = true
		liked := i%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.UpdateItem(ctx, rec.ID, store.Patch{Name: &name, Liked: &liked})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}

	got, err := c.GetItem(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, names[got.Name], "final name %q was never written", got.Name)
}

func testDeleteRacesUpdates(t *testing.T, c store.Catalog) {
	const writers = 16
	ctx := context.Background()

	rec, err := c.CreateItem(ctx, NewRecord("Parka"))
	require.NoError(t, err)

	start := make(chan struct{})
	errs := make([]error, writers)
	var deleteErr error
	var wg sync.WaitGroup
	for i := range writers {
		liked := true
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = c.UpdateItem(ctx, rec.ID, store.Patch{Liked: &liked})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		deleteErr = c.DeleteItem(ctx, rec.ID)
	}()
	close(start)
	wg.Wait()

	require.NoError(t, deleteErr)
	for i, err := range errs {
		if err != nil {
			assert.True(t, errors.Is(err, store.ErrNotFound), "writer %d: %v", i, err)
		}
	}

	_, err = c.GetItem(ctx, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
