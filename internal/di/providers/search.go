package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/search"
	"github.com/wardrobeapp/wardrobe-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// ItemIndex is nil when search is disabled.
type SearchIndexHandle struct {
	*search.ItemIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.ItemIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if !cfg.Search.Enabled {
		log.Info("Search disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.Open(search.Options{
		DataPath: cfg.Search.Path,
		Logger:   log.Logger.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.Count()
	log.Info("Search index initialized", "path", cfg.Search.Path, "documents", docCount)

	return &SearchIndexHandle{ItemIndex: index}, nil
}

// SearchServiceHandle holds the search service, nil when search is disabled.
type SearchServiceHandle struct {
	*service.SearchService
}

// ProvideSearchService provides the search service and wires it into the
// catalog so writes keep the index current.
func ProvideSearchService(i do.Injector) (*SearchServiceHandle, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	catalog := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if indexHandle.ItemIndex == nil {
		return &SearchServiceHandle{}, nil
	}

	svc := service.NewSearchService(indexHandle.ItemIndex, catalog, log.Logger.Logger)
	catalog.SetIndexer(svc)

	return &SearchServiceHandle{SearchService: svc}, nil
}

// TriggerSearchReindex rebuilds the index from the catalog in the background.
// The catalog is the source of truth, so every start reconciles the two.
func TriggerSearchReindex(i do.Injector) {
	searchHandle := do.MustInvoke[*SearchServiceHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if searchHandle.SearchService == nil {
		return
	}

	go func() {
		if err := searchHandle.ReindexAll(context.Background()); err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		count, _ := searchHandle.DocumentCount()
		log.Info("Search reindex completed", "documents", count)
	}()
}
