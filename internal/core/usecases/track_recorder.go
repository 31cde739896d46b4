package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/osoko/wayfind/internal/core/domain"
	"github.com/osoko/wayfind/internal/core/ports"
	"github.com/osoko/wayfind/internal/pkg/geospatial"
	"github.com/osoko/wayfind/internal/pkg/metrics"
)

// TrackRecorder turns a raw position stream into a noise-reduced persisted
// track. A sample is recorded only when it moved at least the displacement
// threshold away from the last recorded point and its timestamp advances;
// once recorded, points are never reordered or dropped. One recorder serves
// one session.
type TrackRecorder struct {
	repo            ports.TrackRepository
	minDisplacement float64 // meters

	mu    sync.Mutex
	last  *domain.TrackPoint
	count int
}

// NewTrackRecorder creates a recorder. repo may be nil, which keeps the
// track in memory only.
func NewTrackRecorder(repo ports.TrackRepository, minDisplacementMeters float64) *TrackRecorder {
	return &TrackRecorder{repo: repo, minDisplacement: minDisplacementMeters}
}

// Observe applies the displacement filter to one raw sample and appends it
// to the persisted track when it passes. Reports whether the point was
// recorded. Persistence failures are logged, not surfaced; the in-memory
// tail stays consistent either way.
func (r *TrackRecorder) Observe(ctx context.Context, sessionID string, c domain.Coordinate, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last != nil {
		if !at.After(r.last.At) {
			return false
		}
		moved := geospatial.Haversine(r.last.Coordinate.Lat, r.last.Coordinate.Lng, c.Lat, c.Lng)
		if moved < r.minDisplacement {
			return false
		}
	}

	point := domain.TrackPoint{At: at, Coordinate: c}
	if r.repo != nil {
		if err := r.repo.Append(ctx, sessionID, point); err != nil {
			slog.Warn("track point persist failed", "session_id", sessionID, "error", err)
		}
	}

	r.last = &point
	r.count++
	metrics.TrackPointsRecorded.Inc()
	return true
}

// Reset clears the recorded track, memory and persisted rows both.
func (r *TrackRecorder) Reset(ctx context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo != nil {
		if err := r.repo.DeleteBySession(ctx, sessionID); err != nil {
			slog.Warn("track clear failed", "session_id", sessionID, "error", err)
		}
	}
	r.last = nil
	r.count = 0
}

// Count returns the number of points recorded since the last reset.
func (r *TrackRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Last returns a copy of the most recently recorded point, or nil.
func (r *TrackRecorder) Last() *domain.TrackPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	point := *r.last
	return &point
}
