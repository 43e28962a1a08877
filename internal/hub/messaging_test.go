package hub

import (
	"strings"
	"testing"

	"github.com/chatrelay/server/internal/event"
)

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		username string
		valid    bool
	}{
		{"alice", true},
		{"a_b_1", true},
		{"AB3", true},
		{"ab", false},                       // too short
		{strings.Repeat("a", 21), false},    // too long
		{"bad name", false},                 // space
		{"nope!", false},                    // punctuation
		{"", false},
	}
	for _, tc := range cases {
		if got := validateUsername(tc.username); got != tc.valid {
			t.Errorf("validateUsername(%q) = %v, want %v", tc.username, got, tc.valid)
		}
	}
}

func TestValidateMessageText(t *testing.T) {
	cases := []struct {
		text  string
		valid bool
	}{
		{"hi", true},
		{"  padded  ", true},
		{strings.Repeat("x", 500), true},
		{strings.Repeat("x", 501), false},
		{"   ", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := validateMessageText(tc.text); got != tc.valid {
			t.Errorf("validateMessageText(%q) = %v, want %v", tc.text, got, tc.valid)
		}
	}
}

func TestHandleFrameMessageRelayedAndAcked(t *testing.T) {
	h := newTestHub(nil)

	a := NewConn("a", "", nil)
	b := NewConn("b", "", nil)
	h.Register(a)
	h.Register(b)
	recvEnvelope(t, a) // b's arrival

	h.HandleFrame(a, event.Envelope{Type: event.TypeMessage, Text: "  hi there  "})

	relayed := recvEnvelope(t, b)
	if relayed.Type != event.TypeMessage || relayed.Sender != "a" {
		t.Fatalf("expected relayed message from a, got %+v", relayed)
	}
	if relayed.Text != "hi there" {
		t.Errorf("expected trimmed text, got %q", relayed.Text)
	}
	if relayed.Timestamp == 0 {
		t.Error("expected a server-assigned timestamp")
	}

	ack := recvEnvelope(t, a)
	if ack.Type != event.TypeAck {
		t.Errorf("expected ack to sender, got %+v", ack)
	}
}

func TestHandleFrameInvalidTextRejected(t *testing.T) {
	h := newTestHub(nil)

	a := NewConn("a", "", nil)
	b := NewConn("b", "", nil)
	h.Register(a)
	h.Register(b)
	recvEnvelope(t, a) // b's arrival

	h.HandleFrame(a, event.Envelope{Type: event.TypeMessage, Text: "   "})

	errFrame := recvEnvelope(t, a)
	if errFrame.Type != event.TypeError {
		t.Errorf("expected error frame to sender, got %+v", errFrame)
	}
	expectNoFrame(t, b)
}

func TestHandleFrameSenderFieldIgnored(t *testing.T) {
	h := newTestHub(nil)

	a := NewConn("a", "", nil)
	b := NewConn("b", "", nil)
	h.Register(a)
	h.Register(b)
	recvEnvelope(t, a) // b's arrival

	// A client claiming to be someone else is still identified by its
	// connection.
	h.HandleFrame(a, event.Envelope{Type: event.TypeMessage, Sender: "b", Text: "spoofed"})

	relayed := recvEnvelope(t, b)
	if relayed.Sender != "a" {
		t.Errorf("expected sender a, got %q", relayed.Sender)
	}
}

func TestHandleFrameTypingExcludesSender(t *testing.T) {
	h := newTestHub(nil)

	a := NewConn("a", "", nil)
	b := NewConn("b", "", nil)
	h.Register(a)
	h.Register(b)
	recvEnvelope(t, a) // b's arrival

	h.HandleFrame(a, event.Envelope{Type: event.TypeTyping, IsTyping: true})

	notice := recvEnvelope(t, b)
	if notice.Type != event.TypeTyping || notice.Sender != "a" || !notice.IsTyping {
		t.Errorf("expected typing notice from a, got %+v", notice)
	}
	expectNoFrame(t, a)
}

func TestHandleFrameUnknownTypeErrors(t *testing.T) {
	h := newTestHub(nil)

	a := NewConn("a", "", nil)
	h.Register(a)

	h.HandleFrame(a, event.Envelope{Type: "subscribe"})

	errFrame := recvEnvelope(t, a)
	if errFrame.Type != event.TypeError {
		t.Errorf("expected error frame, got %+v", errFrame)
	}
}
