package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
	"github.com/wardrobeapp/wardrobe-server/internal/search"
)

// ItemLister supplies the full catalog for a reindex.
type ItemLister interface {
	ListItems(ctx context.Context) ([]*domain.ClothingItem, error)
}

// SearchService keeps the full-text index in step with the catalog and runs
// ranked queries against it.
type SearchService struct {
	// reindexMu is held exclusively for a whole ReindexAll, from catalog
	// snapshot to index sync. Single-item writes share it, so a write that
	// lands during a reindex is applied after the sync and not undone by it.
	reindexMu sync.RWMutex

	index  *search.ItemIndex
	items  ItemLister
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.ItemIndex, items ItemLister, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		items:  items,
		logger: logger,
	}
}

// Search runs a ranked query.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexItem indexes a single item.
// Call this when an item is created or updated.
func (s *SearchService) IndexItem(_ context.Context, item *domain.ClothingItem) error {
	s.reindexMu.RLock()
	defer s.reindexMu.RUnlock()

	if err := s.index.Put(search.ItemToDocument(item)); err != nil {
		return fmt.Errorf("index item: %w", err)
	}

	s.logger.Debug("indexed item", "id", item.ID, "name", item.Name)
	return nil
}

// DeleteItem removes an item from the index.
func (s *SearchService) DeleteItem(_ context.Context, itemID string) error {
	s.reindexMu.RLock()
	defer s.reindexMu.RUnlock()

	return s.index.Remove(itemID)
}

// DocumentCount returns the number of indexed items.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.Count()
}

// ReindexAll makes the index match the catalog exactly.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("starting full reindex")

	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()

	items, err := s.items.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	docs := make([]*search.ItemDocument, len(items))
	for i, item := range items {
		docs[i] = search.ItemToDocument(item)
	}

	stats, err := s.index.Sync(ctx, docs)
	if err != nil {
		return fmt.Errorf("sync index: %w", err)
	}

	s.logger.Info("reindex complete",
		"indexed", stats.Indexed,
		"removed", stats.Removed,
		"duration", time.Since(start),
	)
	return nil
}
