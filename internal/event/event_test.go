package event

import (
	"testing"
	"time"
)

func TestNewMessageStampsTimestamp(t *testing.T) {
	before := time.Now().Unix()
	msg := NewMessage("alice", "hello")
	after := time.Now().Unix()

	if msg.From != "alice" || msg.Text != "hello" {
		t.Errorf("unexpected message fields: %+v", msg)
	}
	if msg.Timestamp < before || msg.Timestamp > after {
		t.Errorf("timestamp %d outside [%d, %d]", msg.Timestamp, before, after)
	}
}

func TestMessageEnvelopeRoundTrip(t *testing.T) {
	msg := Message{From: "alice", Text: "hello", Timestamp: 1234}

	data, err := msg.Envelope().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if env.Version != ProtocolVersion {
		t.Errorf("version = %q, want %q", env.Version, ProtocolVersion)
	}
	if env.Type != TypeMessage || env.Sender != "alice" || env.Text != "hello" || env.Timestamp != 1234 {
		t.Errorf("round trip lost fields: %+v", env)
	}
}

func TestTypingNoticeEnvelope(t *testing.T) {
	env := TypingNotice{From: "bob", IsTyping: true}.Envelope()
	if env.Type != TypeTyping || env.Sender != "bob" || !env.IsTyping {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestPresenceChangeEnvelope(t *testing.T) {
	online := PresenceChange{Participant: "carol", Online: true}.Envelope()
	if online.Type != TypePresence || online.Sender != "carol" || !online.Online {
		t.Errorf("unexpected online envelope: %+v", online)
	}

	offline := PresenceChange{Participant: "carol", Online: false}.Envelope()
	if offline.Online {
		t.Error("offline envelope must not report online")
	}
}

func TestDecodeRejectsMalformedFrame(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error decoding malformed frame, got nil")
	}
}
