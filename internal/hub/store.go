package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chatrelay/server/internal/event"
	"github.com/chatrelay/server/internal/logger"
)

const (
	// StreamName is the JetStream stream holding archived chat messages.
	StreamName = "MESSAGES"
	// MessageSubject is the subject messages are published under.
	MessageSubject = "messages.chat"

	historyConsumerPrefix = "HISTORY_"
	historyFetchMaxWait   = 2 * time.Second
)

// MessageStore is the optional persistence collaborator. The hub relays
// messages regardless; a store only adds an archive.
type MessageStore interface {
	SaveMessage(msg event.Message) error
	RecentMessages(limit int) ([]event.Message, error)
}

// natsStore archives messages in a JetStream stream.
type natsStore struct {
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewNATSStore returns a MessageStore backed by JetStream.
func NewNATSStore(js nats.JetStreamContext, log *logger.Logger) MessageStore {
	return &natsStore{js: js, logger: log}
}

type storedMessage struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func (s *natsStore) SaveMessage(msg event.Message) error {
	data, err := json.Marshal(storedMessage{
		Username:  msg.From,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if _, err := s.js.Publish(MessageSubject, data); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// RecentMessages reads archived messages through an ephemeral pull consumer.
// The consumer is created per call and removed afterwards.
func (s *natsStore) RecentMessages(limit int) ([]event.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	consumerName := fmt.Sprintf("%s%d", historyConsumerPrefix, time.Now().UnixNano())
	_, err := s.js.AddConsumer(StreamName, &nats.ConsumerConfig{
		Name:          consumerName,
		DeliverPolicy: nats.DeliverAllPolicy,
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: MessageSubject,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create history consumer: %w", err)
	}

	sub, err := s.js.PullSubscribe(MessageSubject, consumerName)
	if err != nil {
		s.js.DeleteConsumer(StreamName, consumerName)
		return nil, fmt.Errorf("subscribe history consumer: %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warnf("Error unsubscribing history consumer %s: %v", consumerName, err)
		}
		if err := s.js.DeleteConsumer(StreamName, consumerName); err != nil {
			s.logger.Warnf("Error deleting history consumer %s: %v", consumerName, err)
		}
	}()

	msgs, err := sub.Fetch(limit, nats.MaxWait(historyFetchMaxWait))
	if err != nil && err != nats.ErrTimeout {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	history := make([]event.Message, 0, len(msgs))
	for _, m := range msgs {
		var stored storedMessage
		if err := json.Unmarshal(m.Data, &stored); err != nil {
			s.logger.Errorf("Error unmarshaling archived message: %v", err)
			m.Ack()
			continue
		}
		history = append(history, event.Message{
			From:      stored.Username,
			Text:      stored.Text,
			Timestamp: stored.Timestamp,
		})
		m.Ack()
	}
	return history, nil
}
