package providers

import (
	"github.com/samber/do/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/service"
)

// ProvideCatalogService provides the catalog service. Item events go to SSE clients.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewCatalogService(storeHandle.Catalog, sseHandle.Manager, log.Logger.Logger), nil
}
