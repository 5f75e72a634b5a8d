package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	domainerrors "github.com/wardrobeapp/wardrobe-server/internal/errors"
	"github.com/wardrobeapp/wardrobe-server/internal/domain"
	"github.com/wardrobeapp/wardrobe-server/internal/filter"
	"github.com/wardrobeapp/wardrobe-server/internal/sse"
	"github.com/wardrobeapp/wardrobe-server/internal/store"
	"github.com/wardrobeapp/wardrobe-server/internal/tagcodec"
	"github.com/wardrobeapp/wardrobe-server/internal/validation"
)

// CreateItemInput is the payload for adding an item to the catalog.
// Tags must be present; an empty list is fine, a missing one is not.
type CreateItemInput struct {
	Name  string            `json:"name" validate:"required"`
	Brand string            `json:"brand" validate:"required"`
	Size  string            `json:"size" validate:"required"`
	Color string            `json:"color" validate:"required"`
	Price domain.PriceInput `json:"price"`
	Tags  []string          `json:"tags" validate:"required,dive,required"`
	Liked bool              `json:"liked"`
	Image *string           `json:"image,omitempty"`
}

// UpdateItemInput is a partial update. Nil fields are left untouched.
// A non-nil Tags replaces the whole list, even when empty.
// A present null price clears the price; an empty Image clears the image.
type UpdateItemInput struct {
	Name  *string           `json:"name,omitempty" validate:"omitnil,min=1"`
	Brand *string           `json:"brand,omitempty" validate:"omitnil,min=1"`
	Size  *string           `json:"size,omitempty" validate:"omitnil,min=1"`
	Color *string           `json:"color,omitempty" validate:"omitnil,min=1"`
	Price domain.PriceInput `json:"price"`
	Tags  []string          `json:"tags,omitempty" validate:"dive,required"`
	Liked *bool             `json:"liked,omitempty"`
	Image *string           `json:"image,omitempty"`
}

// CatalogService owns the wardrobe catalog: it validates input, translates
// between the caller-facing tag list and its stored encoding, and maps store
// failures onto domain errors.
type CatalogService struct {
	store     store.Catalog
	validator *validation.Validator
	emitter   EventEmitter
	indexer   ItemIndexer
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(catalog store.Catalog, emitter EventEmitter, logger *slog.Logger) *CatalogService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &CatalogService{
		store:     catalog,
		validator: validation.New(),
		emitter:   emitter,
		indexer:   NoopIndexer{},
		logger:    logger,
	}
}

// SetIndexer sets the search indexer for keeping search in sync.
// This is set after creation because the indexer is rebuilt from this service.
func (s *CatalogService) SetIndexer(indexer ItemIndexer) {
	if indexer == nil {
		indexer = NoopIndexer{}
	}
	s.indexer = indexer
}

// ListItems returns the whole catalog, newest first, with tags decoded.
func (s *CatalogService) ListItems(ctx context.Context) ([]*domain.ClothingItem, error) {
	records, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, domainerrors.StoreUnavailable(err, "failed to list items")
	}

	items := make([]*domain.ClothingItem, 0, len(records))
	for _, rec := range records {
		item, err := toItem(rec, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetItem returns a single item.
func (s *CatalogService) GetItem(ctx context.Context, itemID string) (*domain.ClothingItem, error) {
	rec, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainerrors.NotFoundf("item %s not found", itemID)
		}
		return nil, domainerrors.StoreUnavailable(err, "failed to get item")
	}
	return toItem(rec, nil)
}

// SearchItems lists the catalog and narrows it by query and spec.
func (s *CatalogService) SearchItems(ctx context.Context, query string, spec filter.Spec) ([]*domain.ClothingItem, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" && spec.IsZero() {
		return items, nil
	}
	return filter.Apply(items, query, spec), nil
}

// Facets returns the filter options the current catalog offers.
func (s *CatalogService) Facets(ctx context.Context) (*filter.Facets, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	f := filter.CollectFacets(items)
	return &f, nil
}

// CreateItem validates and stores a new item.
func (s *CatalogService) CreateItem(ctx context.Context, in CreateItemInput) (*domain.ClothingItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, domainerrors.Persistence(err, "request ended before item could be created")
	}

	fields, err := s.validator.FieldErrors(in)
	if err != nil {
		return nil, domainerrors.Internal("failed to validate item").WithCause(err)
	}
	price, priceErr := in.Price.Value()
	if priceErr != nil {
		fields = withField(fields, "price", priceErr.Error())
	}
	if len(fields) > 0 {
		return nil, domainerrors.ValidationWithDetails(validationMessage(fields), fields)
	}

	encoded, err := tagcodec.Encode(in.Tags)
	if err != nil {
		return nil, domainerrors.Internal("failed to encode tags").WithCause(err)
	}

	rec, err := s.store.CreateItem(ctx, &store.Record{
		Name:  in.Name,
		Brand: in.Brand,
		Size:  in.Size,
		Color: in.Color,
		Price: price,
		Tags:  encoded,
		Liked: in.Liked,
		Image: nonEmpty(in.Image),
	})
	if err != nil {
		return nil, domainerrors.Persistence(err, "failed to create item")
	}

	// The caller's tags are what was just encoded; skip the decode round trip.
	item, err := toItem(rec, in.Tags)
	if err != nil {
		return nil, err
	}

	s.logger.Info("item created",
		"item_id", item.ID,
		"name", item.Name,
		"brand", item.Brand,
	)

	s.afterWrite(ctx, item, sse.NewItemCreatedEvent(item))
	return item, nil
}

// UpdateItem applies a partial update.
func (s *CatalogService) UpdateItem(ctx context.Context, itemID string, in UpdateItemInput) (*domain.ClothingItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, domainerrors.Persistence(err, "request ended before item could be updated")
	}

	fields, err := s.validator.FieldErrors(in)
	if err != nil {
		return nil, domainerrors.Internal("failed to validate item").WithCause(err)
	}
	price, priceErr := in.Price.Value()
	if priceErr != nil {
		fields = withField(fields, "price", priceErr.Error())
	}
	if len(fields) > 0 {
		return nil, domainerrors.ValidationWithDetails(validationMessage(fields), fields)
	}

	patch := store.Patch{
		Name:  in.Name,
		Brand: in.Brand,
		Size:  in.Size,
		Color: in.Color,
		Liked: in.Liked,
	}

	if in.Price.IsSet() {
		if price == nil {
			patch.ClearPrice = true
		} else {
			patch.Price = price
		}
	}

	if in.Image != nil {
		if *in.Image == "" {
			patch.ClearImage = true
		} else {
			patch.Image = in.Image
		}
	}

	if in.Tags != nil {
		encoded, err := tagcodec.Encode(in.Tags)
		if err != nil {
			return nil, domainerrors.Internal("failed to encode tags").WithCause(err)
		}
		patch.Tags = &encoded
	}

	rec, err := s.store.UpdateItem(ctx, itemID, patch)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainerrors.NotFoundf("item %s not found", itemID)
		}
		return nil, domainerrors.Persistence(err, "failed to update item")
	}

	item, err := toItem(rec, in.Tags)
	if err != nil {
		return nil, err
	}

	s.logger.Info("item updated",
		"item_id", item.ID,
	)

	s.afterWrite(ctx, item, sse.NewItemUpdatedEvent(item))
	return item, nil
}

// DeleteItem removes an item permanently.
func (s *CatalogService) DeleteItem(ctx context.Context, itemID string) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.Persistence(err, "request ended before item could be deleted")
	}

	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		if store.IsNotFound(err) {
			return domainerrors.NotFoundf("item %s not found", itemID)
		}
		return domainerrors.Persistence(err, "failed to delete item")
	}

	s.logger.Info("item deleted",
		"item_id", itemID,
	)

	if err := s.indexer.DeleteItem(ctx, itemID); err != nil {
		s.logger.Warn("failed to remove item from search index",
			"item_id", itemID,
			"error", err,
		)
	}
	s.emitter.Emit(sse.NewItemDeletedEvent(itemID))
	return nil
}

// Ping reports whether the backing store is reachable.
func (s *CatalogService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return domainerrors.StoreUnavailable(err, "catalog store unreachable")
	}
	return nil
}

// afterWrite runs the side channels of a successful create or update.
// Their failures are logged and never change the outcome.
func (s *CatalogService) afterWrite(ctx context.Context, item *domain.ClothingItem, event sse.Event) {
	if err := s.indexer.IndexItem(ctx, item); err != nil {
		s.logger.Warn("failed to index item",
			"item_id", item.ID,
			"error", err,
		)
	}
	s.emitter.Emit(event)
}

// toItem converts a stored record to a domain item. When knownTags is
// non-nil it is used as-is instead of decoding rec.Tags.
func toItem(rec *store.Record, knownTags []string) (*domain.ClothingItem, error) {
	tags := knownTags
	if tags == nil {
		decoded, err := tagcodec.Decode(rec.Tags)
		if err != nil {
			return nil, domainerrors.CorruptTagData(err, fmt.Sprintf("item %s has corrupt tag data", rec.ID))
		}
		tags = decoded
	} else {
		tags = append(make([]string, 0, len(tags)), tags...)
	}

	return &domain.ClothingItem{
		ID:        rec.ID,
		Name:      rec.Name,
		Brand:     rec.Brand,
		Size:      rec.Size,
		Color:     rec.Color,
		Price:     rec.Price,
		Tags:      tags,
		Liked:     rec.Liked,
		Image:     rec.Image,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func withField(fields map[string]string, field, msg string) map[string]string {
	if fields == nil {
		fields = make(map[string]string, 1)
	}
	fields[field] = msg
	return fields
}

// validationMessage names the offending fields, e.g. "invalid fields: brand, name".
func validationMessage(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	slices.Sort(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// nonEmpty maps a blank optional string to nil.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
