package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobeapp/wardrobe-server/internal/store"
	"github.com/wardrobeapp/wardrobe-server/internal/store/storetest"
)

func TestMemoryCatalog(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Catalog {
		return New(nil)
	})
}

func TestOrderKey_SortsByTimeThenSeq(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	a, err := s.CreateItem(ctx, storetest.NewRecord("A"))
	require.NoError(t, err)
	b, err := s.CreateItem(ctx, storetest.NewRecord("B"))
	require.NoError(t, err)

	assert.Less(t, orderKey(a), orderKey(b))
}

func TestConcurrentWrites(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := s.CreateItem(ctx, storetest.NewRecord("Tee"))
			if !assert.NoError(t, err) {
				return
			}
			liked := true
			_, err = s.UpdateItem(ctx, rec.ID, store.Patch{Liked: &liked})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 50)
	for _, it := range items {
		assert.True(t, it.Liked)
	}
}
