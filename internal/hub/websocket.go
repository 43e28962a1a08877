package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatrelay/server/internal/event"
)

const (
	webSocketReadDeadline  = 60 * time.Second
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = (webSocketReadDeadline * 9) / 10 // must be less than the read deadline
	maxFrameSize           = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the frontend host is known.
		return true
	},
}

// ServeWs upgrades the HTTP connection, registers the client, and starts its
// read/write pumps. Identity arrives as query parameters, already validated
// upstream of the hub as far as authentication goes; only shape is checked
// here.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	if !validateUsername(username) {
		http.Error(w, "invalid username: must be 3-20 characters, alphanumeric and underscore only", http.StatusBadRequest)
		return
	}
	displayName := r.URL.Query().Get("display_name")

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	c := NewConn(username, displayName, ws)
	if err := h.Register(c); err != nil {
		h.logger.Warnf("Rejected connection %s: %v", username, err)
		deadline := time.Now().Add(webSocketWriteDeadline)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "id already connected"), deadline)
		ws.Close()
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		h.readPump(c)
	}()
	go func() {
		defer h.wg.Done()
		h.writePump(c)
	}()
}

// readPump reads frames from the socket until a transport error. A missed
// heartbeat surfaces here as a read deadline error.
func (h *Hub) readPump(c *Conn) {
	defer c.Close(h)

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Errorf("Transport error for %s: %v", c.ID, err)
			}
			return
		}

		env, err := event.Decode(data)
		if err != nil {
			h.sendError(c, "invalid frame")
			continue
		}
		h.HandleFrame(c, env)
	}
}

// writePump drains the send channel to the socket and keeps the heartbeat
// going. The hub closing the send channel ends the pump with a close frame.
func (h *Hub) writePump(c *Conn) {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		c.Close(h)
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.ws.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Flush whatever else is already queued into the same write.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
