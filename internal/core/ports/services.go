package ports

import (
	"context"

	"geoscout/internal/core/domain"
)

// EventPublisher publishes search lifecycle events to a message broker.
type EventPublisher interface {
	PublishSearchCompleted(ctx context.Context, result *domain.SearchResult) error
	PublishSearchFailed(ctx context.Context, result *domain.SearchResult) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
