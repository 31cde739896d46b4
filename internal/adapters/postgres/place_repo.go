package postgres

import (
	"context"

	"github.com/osoko/wayfind/internal/core/domain"
)

// PlaceRepo implements ports.PlaceRepository. The discovery snapshot is
// replaced wholesale inside one transaction so readers never see a mix of
// two discoveries.
type PlaceRepo struct {
	db *DB
}

func NewPlaceRepo(db *DB) *PlaceRepo {
	return &PlaceRepo{db: db}
}

func (r *PlaceRepo) ReplaceForSession(ctx context.Context, sessionID string, pois []domain.PointOfInterest, districts []domain.District) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM places WHERE session_id = $1`, sessionID); err != nil {
		return err
	}

	for _, p := range pois {
		_, err := tx.Exec(ctx, `
			INSERT INTO places (id, session_id, kind, name, category, lat, lng, address, status)
			VALUES ($1, $2, 'poi', $3, $4, $5, $6, $7, $8)
		`, p.ID, sessionID, p.Name, string(p.Category), p.Coordinate.Lat, p.Coordinate.Lng, nilIfEmpty(p.Address), string(p.Status))
		if err != nil {
			return err
		}
	}
	for _, d := range districts {
		_, err := tx.Exec(ctx, `
			INSERT INTO places (id, session_id, kind, name, category, lat, lng, description, population)
			VALUES ($1, $2, 'district', $3, 'district', $4, $5, $6, $7)
		`, d.ID, sessionID, d.Name, d.Coordinate.Lat, d.Coordinate.Lng, nilIfEmpty(d.Description), nilIfEmpty(d.Population))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PlaceRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM places WHERE session_id = $1
	`, sessionID)
	return err
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
