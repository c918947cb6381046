package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/shelfscan/internal/aggregate"
	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/dto"
)

const (
	EventCapture     = "capture"
	clientSendBuffer = 16
)

// Hub pushes completed capture cycles to websocket clients. Clients that fall
// behind lose events rather than slowing the producer.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.With("component", "events"),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnCycle is registered as an aggregator observer.
func (h *Hub) OnCycle(snap aggregate.Snapshot) {
	if snap.Latest == nil {
		return
	}
	h.Publish(NewCaptureEvent(snap))
}

func NewCaptureEvent(snap aggregate.Snapshot) dto.CaptureEvent {
	dets := snap.Latest.Detections
	if dets == nil {
		dets = []detection.Detection{}
	}
	return dto.CaptureEvent{
		Type:       EventCapture,
		Domain:     snap.Domain.String(),
		Cycle:      snap.Latest.Cycle,
		ImageURL:   snap.Latest.ImageRef,
		Detections: dets,
		Counts:     snap.Counts,
		CapturedAt: snap.Latest.CapturedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Hub) Publish(event dto.CaptureEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.domain != "" && c.domain != event.Domain {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("event buffer full, dropping event", "domain", event.Domain)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
