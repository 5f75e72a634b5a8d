package sse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wardrobeapp/wardrobe-server/internal/id"
)

const (
	defaultHeartbeat   = 30 * time.Second
	defaultHistorySize = 256
	queueSize          = 1000
	clientBufferSize   = 100
)

// Client is one connected change-feed subscriber.
type Client struct {
	ID          string
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}

	// types limits delivery to these event types. Empty means all.
	types map[EventType]struct{}
}

// Wants reports whether the client subscribed to events of type t.
// Heartbeats are always delivered.
func (c *Client) Wants(t EventType) bool {
	if t == EventHeartbeat || len(c.types) == 0 {
		return true
	}
	_, ok := c.types[t]
	return ok
}

// Manager fans catalog change events out to connected clients and keeps a
// bounded history so a reconnecting client can catch up from its last event ID.
type Manager struct {
	logger *slog.Logger

	queue    chan Event
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	loopDone chan struct{}

	heartbeat   time.Duration
	historySize int

	mu      sync.RWMutex
	clients map[string]*Client
	history []Event // oldest first, at most historySize
	lastID  uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeartbeatInterval overrides the default 30s heartbeat.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.heartbeat = d
		}
	}
}

// WithHistorySize sets how many recent events are kept for replay.
func WithHistorySize(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.historySize = n
		}
	}
}

// NewManager creates a Manager. Call Start to begin delivery.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		logger:      logger,
		queue:       make(chan Event, queueSize),
		stop:        make(chan struct{}),
		loopDone:    make(chan struct{}),
		heartbeat:   defaultHeartbeat,
		historySize: defaultHistorySize,
		clients:     make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the delivery loop until ctx is canceled or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	defer close(m.loopDone)

	m.logger.Info("SSE manager starting", "heartbeat", m.heartbeat, "history", m.historySize)

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case evt := <-m.queue:
			m.publish(evt)
		case <-ticker.C:
			m.publish(NewHeartbeatEvent())
		case <-m.stop:
			return
		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, delivers what is still queued, and
// disconnects every client. It is safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	first := false
	m.stopOnce.Do(func() {
		first = true
		close(m.stop)
	})
	if !first {
		return nil
	}

	m.logger.Info("SSE manager shutdown initiated")

	if m.started.Load() {
		select {
		case <-m.loopDone:
		case <-ctx.Done():
		}
	}

drain:
	for {
		select {
		case evt := <-m.queue:
			m.publish(evt)
		case <-ctx.Done():
			m.logger.Warn("SSE drain timed out, queued events dropped", "remaining", len(m.queue))
			break drain
		default:
			break drain
		}
	}

	m.closeAllClients()
	m.logger.Info("SSE manager shutdown complete")
	return nil
}

// Emit queues event for delivery. Values that are not an Event, and events
// emitted after shutdown, are dropped. Emit never blocks.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("invalid event emitted", "type", fmt.Sprintf("%T", event))
		return
	}

	select {
	case <-m.stop:
		return
	default:
	}

	select {
	case m.queue <- evt:
	default:
		m.logger.Error("SSE queue full, dropping event", "event_type", string(evt.Type))
	}
}

// publish numbers a catalog event, records it for replay, and hands it to
// every interested client. Slow clients lose the event rather than block.
func (m *Manager) publish(evt Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if evt.Type != EventHeartbeat {
		m.lastID++
		evt.ID = m.lastID
		m.remember(evt)
	}

	var delivered, dropped int
	for _, c := range m.clients {
		if !c.Wants(evt.Type) {
			continue
		}
		select {
		case c.EventChan <- evt:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				"client_id", c.ID,
				"event_type", string(evt.Type))
		}
	}

	if evt.Type != EventHeartbeat {
		m.logger.Debug("event published",
			"event_id", evt.ID,
			"event_type", string(evt.Type),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("dropped", dropped)))
	}
}

func (m *Manager) remember(evt Event) {
	if m.historySize == 0 {
		return
	}
	if len(m.history) == m.historySize {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, evt)
}

// Connect registers a client subscribed to types (all when empty).
// Events newer than lastEventID that are still in history are queued for the
// client before any live event. When more are missed than the client buffer
// holds, only the newest are replayed.
func (m *Manager) Connect(lastEventID uint64, types ...EventType) (*Client, error) {
	clientID, err := id.Generate(id.PrefixSSE)
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:          clientID,
		ConnectedAt: time.Now(),
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
	}
	if len(types) > 0 {
		c.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			c.types[t] = struct{}{}
		}
	}

	m.mu.Lock()
	var missed []Event
	if lastEventID > 0 {
		for _, evt := range m.history {
			if evt.ID > lastEventID && c.Wants(evt.Type) {
				missed = append(missed, evt)
			}
		}
	}
	skipped := max(len(missed)-clientBufferSize, 0)
	for _, evt := range missed[skipped:] {
		c.EventChan <- evt
	}
	m.clients[c.ID] = c
	total := len(m.clients)
	m.mu.Unlock()

	if skipped > 0 {
		m.logger.Warn("SSE replay truncated to newest events",
			"client_id", clientID,
			"skipped", skipped)
	}
	m.logger.Info("SSE client connected",
		"client_id", clientID,
		"replayed", len(missed)-skipped,
		"total_clients", total)
	return c, nil
}

// Disconnect removes a client and closes its channels.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	total := len(m.clients)
	m.mu.Unlock()

	close(c.Done)
	close(c.EventChan)

	m.logger.Info("SSE client disconnected",
		"client_id", clientID,
		"duration", time.Since(c.ConnectedAt),
		"total_clients", total)
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// LastEventID returns the ID of the most recent catalog event.
func (m *Manager) LastEventID() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastID
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.clients {
		close(c.Done)
		close(c.EventChan)
	}
	clear(m.clients)
}
