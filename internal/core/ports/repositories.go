package ports

import (
	"context"

	"github.com/osoko/wayfind/internal/core/domain"
)

// TrackRepository persists the recorded track of a session.
type TrackRepository interface {
	Append(ctx context.Context, sessionID string, point domain.TrackPoint) error
	List(ctx context.Context, sessionID string, offset, limit int) ([]domain.TrackPoint, error)
	Count(ctx context.Context, sessionID string) (int, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// PlaceRepository persists the current discovery snapshot of a session.
// Snapshots are replaced wholesale whenever a new discovery is applied.
type PlaceRepository interface {
	ReplaceForSession(ctx context.Context, sessionID string, pois []domain.PointOfInterest, districts []domain.District) error
	DeleteBySession(ctx context.Context, sessionID string) error
}
