package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

// Conn represents one live client session. It is created on connect, owned
// by the hub while registered, and destroyed on disconnect. Its lifecycle is
// one-way: connected, then torn down exactly once.
type Conn struct {
	ID          string
	DisplayName string
	ConnectedAt time.Time

	ws       *websocket.Conn
	send     chan []byte
	closed   bool // guarded by the hub mutex
	teardown sync.Once
}

// NewConn builds a connection for the given identity. The identifier and
// display name come from the caller and are treated as opaque validated
// strings. ws may be nil in tests.
func NewConn(id, displayName string, ws *websocket.Conn) *Conn {
	if displayName == "" {
		displayName = id
	}
	return &Conn{
		ID:          id,
		DisplayName: displayName,
		ConnectedAt: time.Now(),
		ws:          ws,
		send:        make(chan []byte, sendBufferSize),
	}
}

// Close tears the connection down. Safe to call from multiple goroutines;
// only the first call unregisters from the hub and closes the transport.
// Disconnect detection is racy (read error, write error, heartbeat timeout,
// shutdown) and every path funnels through here.
func (c *Conn) Close(h *Hub) {
	c.teardown.Do(func() {
		h.Unregister(c.ID)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}
