package ports

import (
	"context"

	"github.com/osoko/wayfind/internal/core/domain"
)

// DiscoveryClient resolves free-text place queries and discovers points of
// interest around a coordinate. Both operations are blocking and fallible;
// the caller decides what a failure means for session state.
type DiscoveryClient interface {
	// ResolvePlace converts a query to a coordinate. Returns an error
	// wrapping domain.ErrResolution when the provider answered but yielded
	// no coordinate; transport errors are wrapped without that sentinel.
	ResolvePlace(ctx context.Context, query string) (domain.Coordinate, error)

	// Discover returns the structured discovery bundle for a coordinate.
	// Missing fields degrade to empty collections; only an unparseable
	// payload yields an error wrapping domain.ErrDiscovery.
	Discover(ctx context.Context, coord domain.Coordinate, label string) (domain.Discovery, error)
}

// RouteClient computes a street route between two coordinates.
type RouteClient interface {
	Route(ctx context.Context, from, to domain.Coordinate) (domain.RouteFragment, error)
}

// Announcer is the fire-and-forget speech port. Implementations synthesize
// and deliver the announcement on their own; failures are logged and
// absorbed, never returned, so the session state machine stays free of
// audio concerns.
type Announcer interface {
	Announce(ctx context.Context, sessionID, text string)
}

// CacheService provides read-through caching for expensive lookups.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes session events and announcements to a message
// broker for the presentation layer to consume.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error
	PublishAnnouncement(ctx context.Context, sessionID, text string, audio []byte) error
}

// Subscription is a live location stream subscription.
type Subscription interface {
	Unsubscribe() error
}

// LocationStream delivers live position samples for a session. The handler
// runs for every sample until the subscription is released.
type LocationStream interface {
	Subscribe(sessionID string, handler func(domain.Coordinate)) (Subscription, error)
}
