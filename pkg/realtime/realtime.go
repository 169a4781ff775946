// Package realtime fans out marker updates to the maps listening for a
// session, so a map can refresh its markers as soon as a search completes.
//
// Delivery is best effort: every listener has a small buffer and events
// that do not fit are dropped for that listener only. There is no replay;
// a listener that connects late asks for the current markers instead.
package realtime

import (
	"sync"
	"time"

	"github.com/chartes/dicotopo/pkg/explorer"
)

// MarkerEvent carries the complete marker list of a session after a
// search. Markers replace whatever the map displayed before.
type MarkerEvent struct {
	SessionID string            `json:"-"`
	Markers   []explorer.Marker `json:"markers"`
	Count     int               `json:"count"`
	SentAt    time.Time         `json:"sent_at"`
}

// NewMarkerEvent builds an event for session id with a non-nil marker
// list.
func NewMarkerEvent(sessionID string, markers []explorer.Marker) MarkerEvent {
	if markers == nil {
		markers = []explorer.Marker{}
	}
	return MarkerEvent{
		SessionID: sessionID,
		Markers:   markers,
		Count:     len(markers),
		SentAt:    time.Now().UTC(),
	}
}

type listener struct {
	session string
	ch      chan MarkerEvent
}

// MarkerHub is an in-memory dispatcher of marker events. It is safe for
// concurrent use.
type MarkerHub struct {
	mu        sync.RWMutex
	listeners map[uint64]listener
	nextID    uint64
	bufSize   int
}

// NewMarkerHub creates a hub with the given per-listener buffer size. If
// bufSize <= 0, a default of 8 is used.
func NewMarkerHub(bufSize int) *MarkerHub {
	if bufSize <= 0 {
		bufSize = 8
	}
	return &MarkerHub{
		listeners: make(map[uint64]listener),
		bufSize:   bufSize,
	}
}

// Register subscribes to the events of sessionID. Callers must
// Unregister the returned id.
func (h *MarkerHub) Register(sessionID string) (uint64, <-chan MarkerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan MarkerEvent, h.bufSize)
	h.listeners[id] = listener{session: sessionID, ch: ch}
	return id, ch
}

// Unregister removes listener id and closes its channel. Unknown ids are
// ignored.
func (h *MarkerHub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(l.ch)
	}
}

// Broadcast delivers event to the listeners of event.SessionID and returns
// how many received it.
func (h *MarkerHub) Broadcast(event MarkerEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, l := range h.listeners {
		if l.session != event.SessionID {
			continue
		}
		select {
		case l.ch <- event:
			delivered++
		default:
			// listener is behind, drop
		}
	}
	return delivered
}

// Size returns the number of registered listeners.
func (h *MarkerHub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
