package providers

import (
	"fmt"
	"log/slog"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/store"
	"github.com/wardrobeapp/wardrobe-server/internal/store/memory"
	"github.com/wardrobeapp/wardrobe-server/internal/store/sqlite"
)

// OpenCatalog opens the store named by cfg.Driver. The seed command shares it.
func OpenCatalog(cfg config.DatabaseConfig, logger *slog.Logger) (store.Catalog, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		return db, nil
	case config.DriverBadger:
		db, err := store.New(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open badger catalog: %w", err)
		}
		return db, nil
	case config.DriverMemory:
		return memory.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
