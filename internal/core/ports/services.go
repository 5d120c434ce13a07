package ports

import (
	"context"
	"time"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLandEvent(ctx context.Context, event *domain.LandEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeLandEvents(ctx context.Context, handler func(ctx context.Context, event *domain.LandEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// SessionStore maps opaque session tokens to user IDs.
type SessionStore interface {
	Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}
