package proximity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmcloughlin/geohash"

	"quartier-geo/internal/models"
)

// dropPointGeohashPrecision is the precision of the precomputed geohash
// column on drop_points. A precision-5 cell is roughly 4.9 km on a side,
// so a cell plus its eight neighbors covers any query radius up to that.
const (
	dropPointGeohashPrecision = 5
	geohashCellCoverageMeters = 4900
)

// DropPointRepositoryInterface declares read access to the externally
// administered drop-point registry. Results are candidates only; the
// engine applies the exact distance filter.
type DropPointRepositoryInterface interface {
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.DropPoint, error)
}

// ImprintRepositoryInterface declares the append-only imprint store.
type ImprintRepositoryInterface interface {
	// Create appends a new imprint and fills its id and creation time.
	Create(ctx context.Context, imprint *models.Imprint) error
	// ListByUser returns the user's imprints, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Imprint, error)
}

// DropPointRepository implements DropPointRepositoryInterface using
// PostgreSQL with a geohash-cell prefilter.
type DropPointRepository struct {
	db *pgxpool.Pool
}

// NewDropPointRepository creates a drop-point repository.
func NewDropPointRepository(db *pgxpool.Pool) DropPointRepositoryInterface {
	return &DropPointRepository{db: db}
}

// FindNearby returns drop-point candidates around the coordinate. For radii
// the cell neighborhood can cover it narrows the scan to the query cell and
// its neighbors; larger radii fall back to a full registry scan.
func (r *DropPointRepository) FindNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.DropPoint, error) {
	query := `
        SELECT id, name, type,
               COALESCE(ST_Y(location::geometry), 0) AS lat,
               COALESCE(ST_X(location::geometry), 0) AS lon,
               bonus_stamp_id, geohash, created_at
        FROM drop_points`

	var args []interface{}
	if radiusMeters <= geohashCellCoverageMeters {
		cell := geohash.EncodeWithPrecision(lat, lon, dropPointGeohashPrecision)
		cells := append(geohash.Neighbors(cell), cell)
		query += `
        WHERE left(geohash, $1) = ANY($2)`
		args = append(args, dropPointGeohashPrecision, cells)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repo.FindNearby: %w", err)
	}
	defer rows.Close()

	var points []models.DropPoint
	for rows.Next() {
		var dp models.DropPoint
		if err := rows.Scan(&dp.ID, &dp.Name, &dp.Type, &dp.Latitude, &dp.Longitude,
			&dp.BonusStampID, &dp.Geohash, &dp.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo.FindNearby scan: %w", err)
		}
		points = append(points, dp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.FindNearby rows: %w", err)
	}
	return points, nil
}

// ImprintRepository implements ImprintRepositoryInterface using PostgreSQL.
type ImprintRepository struct {
	db *pgxpool.Pool
}

// NewImprintRepository creates an imprint repository.
func NewImprintRepository(db *pgxpool.Pool) ImprintRepositoryInterface {
	return &ImprintRepository{db: db}
}

// Create inserts the imprint. Imprints are append-only; there is no
// deduplication and no update path.
func (r *ImprintRepository) Create(ctx context.Context, imprint *models.Imprint) error {
	query := `
        INSERT INTO imprints (user_id, location, action, note, service_type, drop_point_id)
        VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4, $5, $6, $7)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		imprint.UserID, imprint.Longitude, imprint.Latitude,
		imprint.Action, imprint.Note, imprint.ServiceType, imprint.DropPointID).
		Scan(&imprint.ID, &imprint.CreatedAt)
	if err != nil {
		return fmt.Errorf("repo.CreateImprint: %w", err)
	}
	return nil
}

// ListByUser retrieves the user's imprints ordered newest first.
func (r *ImprintRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Imprint, error) {
	query := `
        SELECT id, user_id,
               COALESCE(ST_Y(location::geometry), 0) AS lat,
               COALESCE(ST_X(location::geometry), 0) AS lon,
               action, note, service_type, drop_point_id, created_at
        FROM imprints
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("repo.ListImprints: %w", err)
	}
	defer rows.Close()

	var imprints []models.Imprint
	for rows.Next() {
		var im models.Imprint
		if err := rows.Scan(&im.ID, &im.UserID, &im.Latitude, &im.Longitude,
			&im.Action, &im.Note, &im.ServiceType, &im.DropPointID, &im.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo.ListImprints scan: %w", err)
		}
		imprints = append(imprints, im)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ListImprints rows: %w", err)
	}
	return imprints, nil
}
