// Provides the Hub: the connection registry and event fan-out core.
package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chatrelay/server/internal/event"
	"github.com/chatrelay/server/internal/logger"
)

// Hub tracks the set of live connections and relays events to them. All
// registry access happens under one lock; fan-out delivers to a snapshot so
// no recipient is touched mid-removal.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn

	store  MessageStore // optional; nil disables archiving
	logger *logger.Logger
	wg     sync.WaitGroup
}

// New creates a Hub. store may be nil, in which case messages are relayed
// but not archived.
func New(store MessageStore, log *logger.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		store:  store,
		logger: log,
	}
}

// Register adds a connection to the registry and announces it to everyone
// else. Returns ErrDuplicateID when the identifier is already live; the
// registry is left unchanged and the existing session is untouched.
func (h *Hub) Register(c *Conn) error {
	h.mu.Lock()
	if _, exists := h.conns[c.ID]; exists {
		h.mu.Unlock()
		return ErrDuplicateID
	}
	c.closed = false
	h.conns[c.ID] = c
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Infof("Connection registered: %s (total %d)", c.ID, total)
	h.Broadcast(event.PresenceChange{Participant: c.ID, Online: true}, c.ID)
	return nil
}

// Unregister removes a connection. It is a no-op when the identifier is
// absent, which makes concurrent disconnect detection safe: only the call
// that actually removes the entry closes the send channel and emits the
// offline presence event.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, id)
	c.closed = true
	total := len(h.conns)
	h.mu.Unlock()

	close(c.send)
	h.logger.Infof("Connection unregistered: %s (total %d)", id, total)
	h.Broadcast(event.PresenceChange{Participant: id, Online: false}, "")
}

// Broadcast delivers ev to every registered connection except excludeID
// (empty string excludes nobody). A recipient whose send buffer is full is
// treated as unreachable: the failure is logged, the connection is torn
// down, and delivery to the others proceeds.
func (h *Hub) Broadcast(ev event.Event, excludeID string) {
	if msg, ok := ev.(event.Message); ok {
		h.archive(msg)
	}

	data, err := ev.Envelope().Encode()
	if err != nil {
		h.logger.Errorf("Failed to encode event: %v", err)
		return
	}

	for _, c := range h.snapshot(excludeID) {
		if !h.deliver(c, data) {
			derr := &DeliveryError{RecipientID: c.ID, Reason: "send buffer full or connection closed"}
			h.logger.Warnf("%v; dropping connection", derr)
			go c.Close(h)
		}
	}
}

// snapshot copies the current recipients so delivery happens outside the
// lock.
func (h *Hub) snapshot(excludeID string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]*Conn, 0, len(h.conns))
	for id, c := range h.conns {
		if id == excludeID {
			continue
		}
		conns = append(conns, c)
	}
	return conns
}

// deliver attempts a non-blocking send to one recipient. It re-checks
// registration under the lock so a connection removed since the snapshot
// never receives the event.
func (h *Hub) deliver(c *Conn, data []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Warnf("Recovered delivering to %s: %v", c.ID, r)
			ok = false
		}
	}()

	h.mu.RLock()
	defer h.mu.RUnlock()

	if current, exists := h.conns[c.ID]; !exists || current != c || c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) archive(msg event.Message) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveMessage(msg); err != nil {
		h.logger.Errorf("Failed to archive message from %s: %v", msg.From, err)
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Participant describes one entry of the presence roster.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Presence returns the current roster, ordered by identifier.
func (h *Hub) Presence() []Participant {
	h.mu.RLock()
	roster := make([]Participant, 0, len(h.conns))
	for _, c := range h.conns {
		roster = append(roster, Participant{
			ID:          c.ID,
			DisplayName: c.DisplayName,
			ConnectedAt: c.ConnectedAt,
		})
	}
	h.mu.RUnlock()

	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })
	return roster
}

// Shutdown tears down every live connection and waits for their pumps to
// finish, up to the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	h.logger.Infof("Shutting down %d connections", len(conns))
	for _, c := range conns {
		c.Close(h)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("Hub shutdown timed out; some pumps may still be running")
		return context.DeadlineExceeded
	}
}
