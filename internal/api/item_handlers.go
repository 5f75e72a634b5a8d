package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
	domainerrors "github.com/wardrobeapp/wardrobe-server/internal/errors"
	"github.com/wardrobeapp/wardrobe-server/internal/filter"
	"github.com/wardrobeapp/wardrobe-server/internal/service"
)

func (s *Server) registerItemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Description: "Returns the catalog newest first, optionally narrowed by text and filters",
		Tags:        []string{"Items"},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "getItemFacets",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/facets",
		Summary:     "Get filter facets",
		Description: "Returns the distinct tags, colors, brands and sizes in the catalog, plus the price range",
		Tags:        []string{"Items"},
	}, s.handleGetItemFacets)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createItem",
		Method:        http.MethodPost,
		Path:          "/api/v1/items",
		Summary:       "Create item",
		Description:   "Adds a clothing item to the catalog",
		Tags:          []string{"Items"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  MaxItemBodySize,
	}, s.handleCreateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "getItem",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}",
		Summary:     "Get item",
		Description: "Returns a single clothing item",
		Tags:        []string{"Items"},
	}, s.handleGetItem)

	huma.Register(s.api, huma.Operation{
		OperationID:  "updateItem",
		Method:       http.MethodPatch,
		Path:         "/api/v1/items/{id}",
		Summary:      "Update item",
		Description:  "Partially updates an item. Omitted fields are left unchanged; tags are replaced as a whole.",
		Tags:         []string{"Items"},
		MaxBodyBytes: MaxItemBodySize,
	}, s.handleUpdateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteItem",
		Method:      http.MethodDelete,
		Path:        "/api/v1/items/{id}",
		Summary:     "Delete item",
		Description: "Permanently removes an item",
		Tags:        []string{"Items"},
	}, s.handleDeleteItem)
}

// === DTOs ===

// ItemResponse contains clothing item data in API responses.
type ItemResponse struct {
	ID        string    `json:"id" doc:"Item ID"`
	Name      string    `json:"name" doc:"Item name"`
	Brand     string    `json:"brand" doc:"Brand"`
	Size      string    `json:"size" doc:"Size label"`
	Color     string    `json:"color" doc:"Color"`
	Price     *float64  `json:"price" nullable:"true" doc:"Price, null when unset"`
	Tags      []string  `json:"tags" doc:"Ordered tags"`
	Liked     bool      `json:"liked" doc:"Whether the item is marked as liked"`
	Image     *string   `json:"image,omitempty" doc:"Image URL or data URI"`
	CreatedAt time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt time.Time `json:"updatedAt" doc:"Last update time"`
}

// ItemOutput wraps a single item for Huma.
type ItemOutput struct {
	Body ItemResponse
}

// ListItemsInput contains the text query and filters for listing items.
// List parameters may be repeated or comma-separated.
type ListItemsInput struct {
	Query    string `query:"q" doc:"Case-insensitive text matched against name and brand"`
	Tags     string `query:"tags" doc:"Tags; an item matches if it has any of them"`
	Colors   string `query:"colors" doc:"Colors to include"`
	Brands   string `query:"brands" doc:"Brands to include"`
	Sizes    string `query:"sizes" doc:"Sizes to include"`
	Keywords string `query:"keywords" doc:"Keywords that must all match name, brand or a tag"`
	MinPrice string `query:"min_price" doc:"Lower price bound (inclusive). Unpriced items always match."`
	MaxPrice string `query:"max_price" doc:"Upper price bound (inclusive). Unpriced items always match."`
	Liked    string `query:"liked" doc:"Set to true to list liked items only"`

	values url.Values
}

// Resolve captures the raw query so repeated parameters are not lost.
func (i *ListItemsInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.values = u.Query()
	return nil
}

// ListItemsResponse contains a list of items.
type ListItemsResponse struct {
	Items []ItemResponse `json:"items" doc:"Matching items, newest first"`
	Total int            `json:"total" doc:"Number of matching items"`
}

// ListItemsOutput wraps the list items response for Huma.
type ListItemsOutput struct {
	Body ListItemsResponse
}

// FacetsOutput wraps the facets response for Huma.
type FacetsOutput struct {
	Body *filter.Facets
}

// CreateItemRequest is the request body for creating an item.
// Presence is checked by the catalog service so that every missing field is
// reported together.
type CreateItemRequest struct {
	Name  string    `json:"name" required:"false" doc:"Item name (required)"`
	Brand string    `json:"brand" required:"false" doc:"Brand (required)"`
	Size  string    `json:"size" required:"false" doc:"Size label (required)"`
	Color string    `json:"color" required:"false" doc:"Color (required)"`
	Price FlexPrice `json:"price" required:"false"`
	Tags  []string  `json:"tags" required:"false" doc:"Ordered tags (required, may be empty)"`
	Liked bool      `json:"liked" required:"false" doc:"Mark as liked"`
	Image *string   `json:"image" required:"false" nullable:"true" doc:"Image URL or data URI"`
}

// CreateItemInput wraps the create item request for Huma.
type CreateItemInput struct {
	Body CreateItemRequest
}

// GetItemInput contains parameters for getting an item.
type GetItemInput struct {
	ID string `path:"id" doc:"Item ID"`
}

// UpdateItemRequest is the request body for updating an item.
type UpdateItemRequest struct {
	Name  *string   `json:"name" required:"false" doc:"New name"`
	Brand *string   `json:"brand" required:"false" doc:"New brand"`
	Size  *string   `json:"size" required:"false" doc:"New size"`
	Color *string   `json:"color" required:"false" doc:"New color"`
	Price FlexPrice `json:"price" required:"false"`
	Tags  []string  `json:"tags" required:"false" doc:"Replacement tag list"`
	Liked *bool     `json:"liked" required:"false" doc:"Liked flag"`
	Image *string   `json:"image" required:"false" nullable:"true" doc:"New image; an empty string removes it"`
}

// UpdateItemInput wraps the update item request for Huma.
type UpdateItemInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body UpdateItemRequest
}

// DeleteItemInput contains parameters for deleting an item.
type DeleteItemInput struct {
	ID string `path:"id" doc:"Item ID"`
}

// MessageResponse is a confirmation with no payload.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps a confirmation for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleListItems(ctx context.Context, input *ListItemsInput) (*ListItemsOutput, error) {
	spec, err := filter.ParseSpec(input.values)
	if err != nil {
		return nil, err
	}

	items, err := s.services.Catalog.SearchItems(ctx, input.Query, spec)
	if err != nil {
		return nil, s.serviceError("list items", err)
	}

	return &ListItemsOutput{
		Body: ListItemsResponse{
			Items: toItemResponses(items),
			Total: len(items),
		},
	}, nil
}

func (s *Server) handleGetItemFacets(ctx context.Context, _ *struct{}) (*FacetsOutput, error) {
	facets, err := s.services.Catalog.Facets(ctx)
	if err != nil {
		return nil, s.serviceError("item facets", err)
	}
	return &FacetsOutput{Body: facets}, nil
}

func (s *Server) handleCreateItem(ctx context.Context, input *CreateItemInput) (*ItemOutput, error) {
	body := input.Body

	item, err := s.services.Catalog.CreateItem(ctx, service.CreateItemInput{
		Name:  body.Name,
		Brand: body.Brand,
		Size:  body.Size,
		Color: body.Color,
		Price: body.Price.PriceInput,
		Tags:  body.Tags,
		Liked: body.Liked,
		Image: body.Image,
	})
	if err != nil {
		return nil, s.serviceError("create item", err)
	}

	return &ItemOutput{Body: toItemResponse(item)}, nil
}

func (s *Server) handleGetItem(ctx context.Context, input *GetItemInput) (*ItemOutput, error) {
	item, err := s.services.Catalog.GetItem(ctx, input.ID)
	if err != nil {
		return nil, s.serviceError("get item", err)
	}
	return &ItemOutput{Body: toItemResponse(item)}, nil
}

func (s *Server) handleUpdateItem(ctx context.Context, input *UpdateItemInput) (*ItemOutput, error) {
	body := input.Body

	item, err := s.services.Catalog.UpdateItem(ctx, input.ID, service.UpdateItemInput{
		Name:  body.Name,
		Brand: body.Brand,
		Size:  body.Size,
		Color: body.Color,
		Price: body.Price.PriceInput,
		Tags:  body.Tags,
		Liked: body.Liked,
		Image: body.Image,
	})
	if err != nil {
		return nil, s.serviceError("update item", err)
	}

	return &ItemOutput{Body: toItemResponse(item)}, nil
}

func (s *Server) handleDeleteItem(ctx context.Context, input *DeleteItemInput) (*MessageOutput, error) {
	if err := s.services.Catalog.DeleteItem(ctx, input.ID); err != nil {
		return nil, s.serviceError("delete item", err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "Item deleted"}}, nil
}

// === Helpers ===

// serviceError logs failures the client cannot fix and returns err unchanged.
func (s *Server) serviceError(op string, err error) error {
	code := domainerrors.CodeOf(err)
	if code.HTTPStatus() >= http.StatusInternalServerError {
		s.logger.Error("catalog operation failed",
			"op", op,
			"code", string(code),
			"retryable", code.Retryable(),
			"error", err,
		)
	}
	return err
}

func toItemResponse(item *domain.ClothingItem) ItemResponse {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return ItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Brand:     item.Brand,
		Size:      item.Size,
		Color:     item.Color,
		Price:     item.Price,
		Tags:      tags,
		Liked:     item.Liked,
		Image:     item.Image,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func toItemResponses(items []*domain.ClothingItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	return out
}
