package api

import (
	"github.com/wardrobeapp/wardrobe-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Catalog *service.CatalogService
	Search  *service.SearchService // nil when search is disabled
}
