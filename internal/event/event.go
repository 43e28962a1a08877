// Contains the event variants relayed between clients and their wire envelope.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolVersion is stamped into every outbound envelope.
const ProtocolVersion = "1.0"

// Wire type tags.
const (
	TypeMessage  = "message"
	TypeTyping   = "typing"
	TypePresence = "presence"
	TypeAck      = "ack"
	TypeError    = "error"
)

// Event is one of the relayed variants: Message, TypingNotice, or
// PresenceChange. Events are immutable once constructed.
type Event interface {
	// Envelope renders the wire form of the event.
	Envelope() Envelope
}

// Envelope is the versioned JSON frame exchanged over the transport.
type Envelope struct {
	Version   string `json:"version"`
	Type      string `json:"type"`
	Sender    string `json:"sender,omitempty"`
	Text      string `json:"text,omitempty"`
	IsTyping  bool   `json:"is_typing,omitempty"`
	Online    bool   `json:"online,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
}

// Encode marshals the envelope for transmission.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Message is a chat message. Timestamp is unix seconds, assigned by the
// server when the message is accepted.
type Message struct {
	From      string
	Text      string
	Timestamp int64
}

// NewMessage constructs a Message stamped with the current time.
func NewMessage(from, text string) Message {
	return Message{From: from, Text: text, Timestamp: time.Now().Unix()}
}

func (m Message) Envelope() Envelope {
	return Envelope{
		Version:   ProtocolVersion,
		Type:      TypeMessage,
		Sender:    m.From,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}

// TypingNotice signals that a participant started or stopped typing.
type TypingNotice struct {
	From     string
	IsTyping bool
}

func (t TypingNotice) Envelope() Envelope {
	return Envelope{
		Version:  ProtocolVersion,
		Type:     TypeTyping,
		Sender:   t.From,
		IsTyping: t.IsTyping,
	}
}

// PresenceChange announces a participant coming online or going offline.
type PresenceChange struct {
	Participant string
	Online      bool
}

func (p PresenceChange) Envelope() Envelope {
	return Envelope{
		Version: ProtocolVersion,
		Type:    TypePresence,
		Sender:  p.Participant,
		Online:  p.Online,
	}
}

// Decode parses an inbound frame into its envelope. The sender field of
// inbound frames is untrusted and ignored by callers; identity comes from
// the connection.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode event frame: %w", err)
	}
	return env, nil
}
