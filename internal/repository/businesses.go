package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
)

// BusinessRepo represents business directory repository.
type BusinessRepo struct{ db *pgxpool.Pool }

// NewBusinessRepo creates a new BusinessRepo.
func NewBusinessRepo(db *pgxpool.Pool) *BusinessRepo { return &BusinessRepo{db: db} }

// Upsert - inserts or replaces a business.
func (r *BusinessRepo) Upsert(ctx context.Context, b domain.Business) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO businesses (id, name, lat, lng, active, approved)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE
        SET name = EXCLUDED.name, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
            active = EXCLUDED.active, approved = EXCLUDED.approved`,
		b.ID, b.Name, b.Lat, b.Lng, b.Active, b.Approved,
	)
	if err != nil {
		return wrap(fmt.Sprintf("upsert business %q", b.ID), err)
	}
	return nil
}

// Get - returns business by its ID, or nil.
func (r *BusinessRepo) Get(ctx context.Context, id string) (*domain.Business, error) {
	var b domain.Business
	err := r.db.QueryRow(ctx,
		`SELECT id, name, lat, lng, active, approved FROM businesses WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Lat, &b.Lng, &b.Active, &b.Approved)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap(fmt.Sprintf("get business %q", id), err)
	}
	return &b, nil
}

// InBox returns active, approved businesses inside the bounding box.
func (r *BusinessRepo) InBox(ctx context.Context, box geo.Box) ([]domain.Business, error) {
	lngCond := `lng BETWEEN $3 AND $4`
	if box.WrapsAntimeridian() {
		lngCond = `(lng >= $3 OR lng <= $4)`
	}
	rows, err := r.db.Query(ctx, `
        SELECT id, name, lat, lng, active, approved
        FROM businesses
        WHERE active AND approved
          AND lat BETWEEN $1 AND $2
          AND `+lngCond+`
        ORDER BY id`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
	)
	if err != nil {
		return nil, wrap("businesses in box", err)
	}
	defer rows.Close()

	out := make([]domain.Business, 0)
	for rows.Next() {
		var b domain.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.Lat, &b.Lng, &b.Active, &b.Approved); err != nil {
			return nil, wrap("scan business", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("businesses in box", err)
	}
	return out, nil
}
