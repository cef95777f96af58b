package privacy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"quartier-geo/internal/models"
)

// RepositoryInterface declares the read-only access to the externally
// administered service-zone directory.
type RepositoryInterface interface {
	// ListZones returns every zone ordered by demand tier descending.
	ListZones(ctx context.Context) ([]models.Zone, error)
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a zone repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// ListZones retrieves the full zone directory.
func (r *Repository) ListZones(ctx context.Context) ([]models.Zone, error) {
	query := `
        SELECT id, name, code, classification,
               COALESCE(ST_Y(center::geometry), 0) AS lat,
               COALESCE(ST_X(center::geometry), 0) AS lon,
               radius_m, demand_tier, price_multiplier
        FROM service_zones
        ORDER BY CASE demand_tier WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repo.ListZones: %w", err)
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Code, &z.Classification,
			&z.Center.Latitude, &z.Center.Longitude,
			&z.RadiusMeters, &z.DemandTier, &z.PriceMultiplier); err != nil {
			return nil, fmt.Errorf("repo.ListZones scan: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ListZones rows: %w", err)
	}
	return zones, nil
}
