package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subscriber delivers typed search lifecycle events to a handler, for
// consumers that want a decoded feed instead of raw NATS messages.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeSearchEvents invokes handler for every completed and failed
// search until Close. Undecodable payloads are dropped with a log line.
func (s *Subscriber) SubscribeSearchEvents(ctx context.Context, handler func(ctx context.Context, event *SearchEvent) error) error {
	sub, err := s.conn.Subscribe(SubjectSearchAll, func(msg *nats.Msg) {
		var event SearchEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("dropping undecodable search event", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, &event); err != nil {
			slog.Warn("search event handler failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
