package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"geoscout/internal/core/domain"
)

// Subjects carrying search lifecycle events.
const (
	SubjectSearchCompleted = "search.completed"
	SubjectSearchFailed    = "search.failed"

	// SubjectSearchAll matches every search lifecycle subject.
	SubjectSearchAll = "search.>"
)

// SearchEvent is the wire form of a search lifecycle event: the
// published triple with the feature list reduced to a count, so the
// bus carries summaries rather than whole result sets.
type SearchEvent struct {
	Query        string             `json:"query"`
	State        domain.SearchState `json:"state"`
	Viewport     *domain.Viewport   `json:"viewport,omitempty"`
	FeatureCount int                `json:"feature_count"`
	Err          string             `json:"error,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewSearchEvent summarizes a published result for the bus.
func NewSearchEvent(result *domain.SearchResult) SearchEvent {
	return SearchEvent{
		Query:        result.Query,
		State:        result.State,
		Viewport:     result.Viewport,
		FeatureCount: len(result.Features),
		Err:          result.Err,
		UpdatedAt:    result.UpdatedAt,
	}
}

// Publisher implements ports.EventPublisher on core NATS. Events are
// fire-and-forget notifications; the search pipeline never depends on
// their delivery, so there is no stream or ack handling.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS. Reconnects retry forever so a broker
// restart does not take the publisher down with it.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// PublishSearchCompleted announces a successful pipeline run.
func (p *Publisher) PublishSearchCompleted(ctx context.Context, result *domain.SearchResult) error {
	return p.publish(SubjectSearchCompleted, result)
}

// PublishSearchFailed announces a failed pipeline run.
func (p *Publisher) PublishSearchFailed(ctx context.Context, result *domain.SearchResult) error {
	return p.publish(SubjectSearchFailed, result)
}

func (p *Publisher) publish(subject string, result *domain.SearchResult) error {
	data, err := json.Marshal(NewSearchEvent(result))
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. the
// WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
