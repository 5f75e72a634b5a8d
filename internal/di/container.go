// Package di provides dependency injection configuration for the wardrobe server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/di/providers"
	"github.com/wardrobeapp/wardrobe-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order and starts the server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.LoggerHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.CatalogService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchServiceHandle](injector); err != nil {
		return err
	}

	providers.TriggerSearchReindex(injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
