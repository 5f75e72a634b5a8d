// Package sse implements Server-Sent Events for real-time catalog updates.
package sse

import (
	"fmt"
	"strings"
	"time"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventItemCreated represents an item creation event.
	EventItemCreated EventType = "item.created"
	// EventItemUpdated represents an item update event.
	EventItemUpdated EventType = "item.updated"
	// EventItemDeleted represents an item deletion event.
	EventItemDeleted EventType = "item.deleted"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// catalogEventTypes are the types a client may subscribe to.
var catalogEventTypes = map[EventType]struct{}{
	EventItemCreated: {},
	EventItemUpdated: {},
	EventItemDeleted: {},
}

// ParseEventTypes converts names such as "item.created" into event types.
// It fails on a name that is not a catalog event.
func ParseEventTypes(names []string) ([]EventType, error) {
	out := make([]EventType, 0, len(names))
	for _, name := range names {
		t := EventType(strings.TrimSpace(name))
		if t == "" {
			continue
		}
		if _, ok := catalogEventTypes[t]; !ok {
			return nil, fmt.Errorf("unknown event type %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Event is one message on the change feed.
// ID is assigned on publish and is zero for heartbeats.
type Event struct {
	ID        uint64    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// ItemEventData is the data payload for item create and update events.
// It carries the full decoded item so clients can patch their list in place.
type ItemEventData struct {
	Item *domain.ClothingItem `json:"item"`
}

// ItemDeletedEventData is the data payload for item delete events.
type ItemDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	ItemID    string    `json:"item_id"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewItemCreatedEvent creates an item.created event.
func NewItemCreatedEvent(item *domain.ClothingItem) Event {
	return Event{
		Type:      EventItemCreated,
		Data:      ItemEventData{Item: item.Clone()},
		Timestamp: time.Now(),
	}
}

// NewItemUpdatedEvent creates an item.updated event.
func NewItemUpdatedEvent(item *domain.ClothingItem) Event {
	return Event{
		Type:      EventItemUpdated,
		Data:      ItemEventData{Item: item.Clone()},
		Timestamp: time.Now(),
	}
}

// NewItemDeletedEvent creates an item.deleted event.
func NewItemDeletedEvent(itemID string) Event {
	now := time.Now()
	return Event{
		Type: EventItemDeleted,
		Data: ItemDeletedEventData{
			ItemID:    itemID,
			DeletedAt: now,
		},
		Timestamp: now,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
