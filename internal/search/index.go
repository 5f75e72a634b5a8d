package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// mappingVersion changes whenever buildIndexMapping does. An on-disk index
// written with a different version is discarded and recreated on open.
const mappingVersion = "wardrobe-items-2"

// mappingVersionKey is where the version lives in Bleve's internal storage.
var mappingVersionKey = []byte("_mapping_version")

// indexDirName is the index directory under Options.DataPath.
const indexDirName = "items.bleve"

// batchSize bounds the number of operations per Bleve batch.
const batchSize = 500

// ItemIndex is the full-text index of clothing items. It is a derived view
// of the catalog: the catalog service keeps it current and Sync rebuilds it.
// All methods are safe for concurrent use.
type ItemIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
}

// Options configures Open.
type Options struct {
	DataPath string // Parent directory of the index; ignored when InMemory
	InMemory bool
	Logger   *slog.Logger // Discards when nil
}

// SyncStats reports what Sync changed.
type SyncStats struct {
	Indexed int
	Removed int
}

// Open opens the item index under opts.DataPath, creating it when missing.
// An index that cannot be opened or was built with another mapping is
// recreated empty; callers repopulate it with Sync.
func Open(opts Options) (*ItemIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.InMemory {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		if err := index.SetInternal(mappingVersionKey, []byte(mappingVersion)); err != nil {
			index.Close()
			return nil, fmt.Errorf("record mapping version: %w", err)
		}
		return &ItemIndex{index: index, logger: logger}, nil
	}

	if opts.DataPath == "" {
		return nil, errors.New("search data path is required")
	}
	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search data dir: %w", err)
	}

	path := filepath.Join(opts.DataPath, indexDirName)
	index, err := openOnDisk(path, logger)
	if err != nil {
		return nil, err
	}

	return &ItemIndex{index: index, path: path, logger: logger}, nil
}

func openOnDisk(path string, logger *slog.Logger) (bleve.Index, error) {
	index, err := bleve.Open(path)
	switch {
	case err == nil:
		version, verr := index.GetInternal(mappingVersionKey)
		if verr == nil && string(version) == mappingVersion {
			logger.Info("opened search index", "path", path)
			return index, nil
		}
		logger.Info("search index mapping changed, recreating",
			"path", path,
			"found", string(version),
			"want", mappingVersion,
		)
		index.Close()
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
	default:
		logger.Warn("search index unreadable, recreating", "path", path, "error", err)
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove stale index: %w", err)
	}

	index, err = bleve.New(path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := index.SetInternal(mappingVersionKey, []byte(mappingVersion)); err != nil {
		index.Close()
		return nil, fmt.Errorf("record mapping version: %w", err)
	}

	logger.Info("created search index", "path", path, "mapping_version", mappingVersion)
	return index, nil
}

// Close releases the index.
func (x *ItemIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

// Put indexes doc, replacing any previous version with the same ID.
func (x *ItemIndex) Put(doc *ItemDocument) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.Index(doc.ID, doc.ToMap())
}

// PutAll indexes docs in batches.
func (x *ItemIndex) PutAll(docs []*ItemDocument) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.apply(docs, nil)
}

// Remove deletes the documents with the given IDs. Unknown IDs are ignored.
func (x *ItemIndex) Remove(ids ...string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.apply(nil, ids)
}

// Count returns the number of indexed items.
func (x *ItemIndex) Count() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// Sync makes the index hold exactly docs: every doc is (re)indexed and every
// indexed ID missing from docs is removed. Writers are blocked meanwhile.
func (x *ItemIndex) Sync(ctx context.Context, docs []*ItemDocument) (SyncStats, error) {
	if err := ctx.Err(); err != nil {
		return SyncStats{}, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	existing, err := x.allIDs(ctx)
	if err != nil {
		return SyncStats{}, err
	}

	keep := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		keep[doc.ID] = struct{}{}
	}
	var stale []string
	for _, id := range existing {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}

	if err := x.apply(docs, stale); err != nil {
		return SyncStats{}, err
	}
	return SyncStats{Indexed: len(docs), Removed: len(stale)}, nil
}

// allIDs lists every document ID in the index.
func (x *ItemIndex) allIDs(ctx context.Context) ([]string, error) {
	total, err := x.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	ids := make([]string, 0, total)
	for from := 0; uint64(from) < total; from += batchSize {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), batchSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := x.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < batchSize {
			break
		}
	}
	return ids, nil
}

// apply writes puts and deletes in batches of batchSize operations.
// The caller holds mu.
func (x *ItemIndex) apply(puts []*ItemDocument, deletes []string) error {
	batch := x.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		batch.Reset()
		return nil
	}

	for _, id := range deletes {
		batch.Delete(id)
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	for _, doc := range puts {
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("index %s: %w", doc.ID, err)
		}
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
