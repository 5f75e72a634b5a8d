package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/sse"
	"github.com/wardrobeapp/wardrobe-server/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*LoggerHandle](i)

	manager := sse.NewManager(log.Logger.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the catalog store with shutdown capability.
type StoreHandle struct {
	store.Catalog
	Driver string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the catalog store selected by the database driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	catalog, err := OpenCatalog(cfg.Database, log.Logger.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized",
		"driver", cfg.Database.Driver,
		"path", cfg.Database.Path,
	)

	return &StoreHandle{Catalog: catalog, Driver: cfg.Database.Driver}, nil
}
