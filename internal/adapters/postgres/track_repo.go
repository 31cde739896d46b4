package postgres

import (
	"context"

	"github.com/osoko/wayfind/internal/core/domain"
)

// TrackRepo implements ports.TrackRepository.
type TrackRepo struct {
	db *DB
}

func NewTrackRepo(db *DB) *TrackRepo {
	return &TrackRepo{db: db}
}

func (r *TrackRepo) Append(ctx context.Context, sessionID string, point domain.TrackPoint) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO track_points (session_id, recorded_at, lat, lng)
		VALUES ($1, $2, $3, $4)
	`, sessionID, point.At, point.Coordinate.Lat, point.Coordinate.Lng)
	return err
}

func (r *TrackRepo) List(ctx context.Context, sessionID string, offset, limit int) ([]domain.TrackPoint, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT recorded_at, lat, lng
		FROM track_points
		WHERE session_id = $1
		ORDER BY recorded_at
		OFFSET $2 LIMIT $3
	`, sessionID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.TrackPoint
	for rows.Next() {
		var p domain.TrackPoint
		if err := rows.Scan(&p.At, &p.Coordinate.Lat, &p.Coordinate.Lng); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *TrackRepo) Count(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM track_points WHERE session_id = $1
	`, sessionID).Scan(&count)
	return count, err
}

func (r *TrackRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM track_points WHERE session_id = $1
	`, sessionID)
	return err
}
