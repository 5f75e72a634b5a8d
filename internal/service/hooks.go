package service

import (
	"context"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
)

// EventEmitter is the interface for emitting SSE events.
// The catalog uses it to broadcast changes without depending on SSE internals.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// ItemIndexer keeps a search index in sync with catalog mutations.
type ItemIndexer interface {
	IndexItem(ctx context.Context, item *domain.ClothingItem) error
	DeleteItem(ctx context.Context, itemID string) error
}

// NoopIndexer is a no-op ItemIndexer, used when search is disabled.
type NoopIndexer struct{}

// IndexItem is a no-op.
func (NoopIndexer) IndexItem(context.Context, *domain.ClothingItem) error { return nil }

// DeleteItem is a no-op.
func (NoopIndexer) DeleteItem(context.Context, string) error { return nil }
