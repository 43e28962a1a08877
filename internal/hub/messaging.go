package hub

import (
	"strings"

	"github.com/chatrelay/server/internal/event"
)

// validateUsername checks length (3-20 characters) and character set
// (alphanumeric and underscore).
func validateUsername(username string) bool {
	if len(username) < 3 || len(username) > 20 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}

// validateMessageText trims whitespace and checks length (1-500 characters).
func validateMessageText(text string) bool {
	text = strings.TrimSpace(text)
	return len(text) >= 1 && len(text) <= 500
}

// HandleFrame dispatches one inbound frame from a connected client. The
// sender field of the frame is ignored; identity always comes from the
// connection. Bad frames get a per-client error response and never affect
// anyone else.
func (h *Hub) HandleFrame(c *Conn, env event.Envelope) {
	switch env.Type {
	case event.TypeMessage:
		if !validateMessageText(env.Text) {
			h.sendError(c, "invalid message text: must be 1-500 characters")
			return
		}
		msg := event.NewMessage(c.ID, strings.TrimSpace(env.Text))
		h.Broadcast(msg, c.ID)
		h.sendAck(c)
		h.logger.Debugf("Message from %s relayed", c.ID)

	case event.TypeTyping:
		h.Broadcast(event.TypingNotice{From: c.ID, IsTyping: env.IsTyping}, c.ID)

	default:
		h.sendError(c, "unknown frame type")
	}
}

// sendError sends an error frame to a single client.
func (h *Hub) sendError(c *Conn, reason string) {
	env := event.Envelope{Version: event.ProtocolVersion, Type: event.TypeError, Text: reason}
	if data, err := env.Encode(); err == nil {
		h.deliver(c, data)
	}
}

// sendAck confirms receipt of a message to its sender.
func (h *Hub) sendAck(c *Conn) {
	env := event.Envelope{Version: event.ProtocolVersion, Type: event.TypeAck, Text: "message relayed"}
	if data, err := env.Encode(); err == nil {
		h.deliver(c, data)
	}
}
