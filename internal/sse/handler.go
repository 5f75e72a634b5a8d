package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// writeDeadline bounds each write; it is pushed forward after every event.
const writeDeadline = 60 * time.Second

// Handler streams the catalog change feed at GET /api/v1/events.
//
// Query parameters:
//
//	types          comma-separated event types to receive (default: all)
//	last_event_id  replay events after this ID (the Last-Event-ID header wins)
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// ServeHTTP handles one feed connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	types, err := ParseEventTypes(splitTypes(r.URL.Query()["types"]))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lastID, err := lastEventID(r)
	if err != nil {
		http.Error(w, "invalid last event id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", "error", err)
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(lastID, types...)
	if err != nil {
		h.logger.Error("failed to register SSE client", "error", err)
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With("client_id", client.ID)

	hello := map[string]any{
		"client_id":     client.ID,
		"last_event_id": h.manager.LastEventID(),
	}
	if err := h.write(w, rc, 0, "connected", hello); err != nil {
		log.Warn("failed to send connected event", "error", err)
		return
	}

	ctx := r.Context()
	for {
		select {
		case evt, ok := <-client.EventChan:
			if !ok {
				log.Info("client channel closed")
				return
			}
			if err := h.write(w, rc, evt.ID, string(evt.Type), evt); err != nil {
				log.Info("client disconnected during send")
				return
			}
		case <-client.Done:
			log.Info("client closed by manager")
			return
		case <-ctx.Done():
			log.Info("client context canceled")
			return
		}
	}
}

// write sends one SSE frame. An id line is written for numbered events so
// the browser reports it back in Last-Event-ID on reconnect.
func (h *Handler) write(w http.ResponseWriter, rc *http.ResponseController, eventID uint64, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if eventID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", eventID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	if err := rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		h.logger.Debug("failed to set write deadline", "error", err)
	}
	return nil
}

func splitTypes(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func lastEventID(r *http.Request) (uint64, error) {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
}
