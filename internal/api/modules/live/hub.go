package live

import (
	"context"
	"sync"

	"github.com/levra/voicebridge/internal/stores/session"
)

// EventType labels a live timeline event
type EventType string

const (
	EventTimeline       EventType = "timeline"
	EventContextUpdated EventType = "context_updated"
)

// Event is one message pushed to live subscribers of a room
type Event struct {
	Type     EventType       `json:"type"`
	RoomID   string          `json:"room_id"`
	Timeline []session.Entry `json:"timeline,omitempty"`
}

// subscriberBuffer bounds how many undelivered events a slow client may lag
// behind before older ones are dropped
const subscriberBuffer = 16

// Hub fans timeline updates out to websocket subscribers, one set per room.
// It also receives context-change notifications, satisfying the
// coordinator's Notifier contract.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a listener for a room's events. The returned cancel
// function must be called when the listener goes away.
func (h *Hub) Subscribe(roomID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[roomID] == nil {
		h.subscribers[roomID] = make(map[chan Event]struct{})
	}
	h.subscribers[roomID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[roomID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, roomID)
			}
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// PublishTimeline pushes a merged timeline snapshot to a room's subscribers
func (h *Hub) PublishTimeline(roomID string, entries []session.Entry) {
	h.broadcast(roomID, Event{Type: EventTimeline, RoomID: roomID, Timeline: entries})
}

// NotifyContextChanged broadcasts the context-change signal to a room's
// subscribers. It never fails, so a local pipeline's notification is always
// acknowledged.
func (h *Hub) NotifyContextChanged(ctx context.Context, roomID string) error {
	h.broadcast(roomID, Event{Type: EventContextUpdated, RoomID: roomID})
	return nil
}

// broadcast delivers an event without blocking on slow subscribers; a full
// buffer drops the oldest event first
func (h *Hub) broadcast(roomID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[roomID] {
		select {
		case ch <- event:
		default:
			// Drop the oldest undelivered event for this subscriber
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}
