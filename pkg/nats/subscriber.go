package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"post-editor-be/pkg/events"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	conn   *Conn
	logger *zap.Logger
	ctxs   []jetstream.ConsumeContext
}

func NewSubscriber(conn *Conn, logger *zap.Logger) *Subscriber {
	return &Subscriber{conn: conn, logger: logger}
}

// Decode rebuilds an event from a message body. Bodies that are not an envelope are taken as
// the bare payload of the event named by the subject.
func Decode(subject string, body []byte) (events.BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return events.BaseEvent{}, err
	}
	if env.Type == "" || env.Data == nil {
		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			return events.BaseEvent{}, err
		}
		env.Type = strings.TrimPrefix(subject, "events.")
		env.Data = payload
	}
	return events.BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}, nil
}

// Subscribe registers a handler for a subject pattern on a durable consumer.
// A handler error naks the message so it is redelivered.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.conn.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := Decode(msg.Subject(), msg.Data())
		if err != nil {
			s.logger.Warn("dropping undecodable event", zap.String("subject", msg.Subject()), zap.Error(err))
			_ = msg.Term()
			return
		}

		if err := handler(context.Background(), event); err != nil {
			s.logger.Error("event handler failed", zap.String("subject", msg.Subject()), zap.Error(err))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.ctxs = append(s.ctxs, cc)

	s.logger.Info("subscribed", zap.String("subject", subject), zap.String("durable", durableName))
	return nil
}

// Stop ends every consumer started by Subscribe.
func (s *Subscriber) Stop() {
	for _, cc := range s.ctxs {
		cc.Stop()
	}
	s.ctxs = nil
}
