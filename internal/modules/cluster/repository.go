package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quartier-geo/internal/models"
)

// RepositoryInterface declares the database operations the optimizer
// needs: cluster reads, authorization reads, and the single result write.
type RepositoryInterface interface {
	FindClusterByID(ctx context.Context, clusterID string) (*models.Cluster, error)
	// IsOrganizer reports whether userID organizes the cluster.
	IsOrganizer(ctx context.Context, clusterID, userID string) (bool, error)
	// HasBid reports whether userID has an existing bid on the cluster.
	HasBid(ctx context.Context, clusterID, userID string) (bool, error)
	// ListConfirmedParticipants returns participants holding a unit id.
	ListConfirmedParticipants(ctx context.Context, clusterID string) ([]models.ClusterParticipant, error)
	ListTimeBlocks(ctx context.Context, clusterID string) ([]models.TimeBlock, error)
	// SaveOptimizationResult upserts the cluster's single result row.
	SaveOptimizationResult(ctx context.Context, result *models.OptimizationResult) error
	FindOptimizationResult(ctx context.Context, clusterID string) (*models.OptimizationResult, error)
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a cluster repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// FindClusterByID fetches one cluster. Returns models.ErrNotFound when it
// does not exist.
func (r *Repository) FindClusterByID(ctx context.Context, clusterID string) (*models.Cluster, error) {
	query := `
        SELECT id, site_name, address, organizer_id, organizer_email, status, created_at
        FROM clusters WHERE id = $1`
	cl := &models.Cluster{}
	err := r.db.QueryRow(ctx, query, clusterID).Scan(
		&cl.ID, &cl.SiteName, &cl.Address, &cl.OrganizerID, &cl.OrganizerEmail, &cl.Status, &cl.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.FindClusterByID: %w", err)
	}
	return cl, nil
}

// IsOrganizer checks cluster ownership without reading anything else.
func (r *Repository) IsOrganizer(ctx context.Context, clusterID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM clusters WHERE id = $1 AND organizer_id = $2)`
	var ok bool
	if err := r.db.QueryRow(ctx, query, clusterID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo.IsOrganizer: %w", err)
	}
	return ok, nil
}

// HasBid checks for an existing provider bid on the cluster.
func (r *Repository) HasBid(ctx context.Context, clusterID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM cluster_bids WHERE cluster_id = $1 AND provider_id = $2)`
	var ok bool
	if err := r.db.QueryRow(ctx, query, clusterID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo.HasBid: %w", err)
	}
	return ok, nil
}

// ListConfirmedParticipants returns participants with a non-null unit id,
// in sign-up order.
func (r *Repository) ListConfirmedParticipants(ctx context.Context, clusterID string) ([]models.ClusterParticipant, error) {
	query := `
        SELECT cluster_id, user_id, display_name, unit_id, COALESCE(preferred_blocks, '{}')
        FROM cluster_participants
        WHERE cluster_id = $1 AND unit_id IS NOT NULL
        ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, clusterID)
	if err != nil {
		return nil, fmt.Errorf("repo.ListConfirmedParticipants: %w", err)
	}
	defer rows.Close()

	var participants []models.ClusterParticipant
	for rows.Next() {
		var p models.ClusterParticipant
		if err := rows.Scan(&p.ClusterID, &p.UserID, &p.DisplayName, &p.UnitID, &p.PreferredBlocks); err != nil {
			return nil, fmt.Errorf("repo.ListConfirmedParticipants scan: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ListConfirmedParticipants rows: %w", err)
	}
	return participants, nil
}

// ListTimeBlocks returns the cluster's candidate blocks in stored order.
// The tally's tie-break follows this order, so it is kept stable.
func (r *Repository) ListTimeBlocks(ctx context.Context, clusterID string) ([]models.TimeBlock, error) {
	query := `
        SELECT id, cluster_id, name, start_time, end_time
        FROM cluster_time_blocks
        WHERE cluster_id = $1
        ORDER BY position, id`
	rows, err := r.db.Query(ctx, query, clusterID)
	if err != nil {
		return nil, fmt.Errorf("repo.ListTimeBlocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.TimeBlock
	for rows.Next() {
		var b models.TimeBlock
		if err := rows.Scan(&b.ID, &b.ClusterID, &b.Name, &b.StartTime, &b.EndTime); err != nil {
			return nil, fmt.Errorf("repo.ListTimeBlocks scan: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ListTimeBlocks rows: %w", err)
	}
	return blocks, nil
}

// SaveOptimizationResult writes the cluster's result row in one statement;
// a rerun replaces the previous result whole.
func (r *Repository) SaveOptimizationResult(ctx context.Context, result *models.OptimizationResult) error {
	route, err := json.Marshal(result.Route)
	if err != nil {
		return fmt.Errorf("repo.SaveOptimizationResult marshal: %w", err)
	}

	query := `
        INSERT INTO cluster_optimizations (cluster_id, block_id, block_name, confidence, route, summary, generated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (cluster_id) DO UPDATE
        SET block_id = EXCLUDED.block_id,
            block_name = EXCLUDED.block_name,
            confidence = EXCLUDED.confidence,
            route = EXCLUDED.route,
            summary = EXCLUDED.summary,
            generated_at = EXCLUDED.generated_at`
	_, err = r.db.Exec(ctx, query,
		result.ClusterID, result.BlockID, result.BlockName, result.Confidence,
		route, result.Summary, result.GeneratedAt)
	if err != nil {
		return fmt.Errorf("repo.SaveOptimizationResult: %w", err)
	}
	return nil
}

// FindOptimizationResult reads the stored result for a cluster.
func (r *Repository) FindOptimizationResult(ctx context.Context, clusterID string) (*models.OptimizationResult, error) {
	query := `
        SELECT cluster_id, block_id, block_name, confidence, route, summary, generated_at
        FROM cluster_optimizations WHERE cluster_id = $1`
	res := &models.OptimizationResult{}
	var route []byte
	err := r.db.QueryRow(ctx, query, clusterID).Scan(
		&res.ClusterID, &res.BlockID, &res.BlockName, &res.Confidence, &route, &res.Summary, &res.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.FindOptimizationResult: %w", err)
	}
	if err := json.Unmarshal(route, &res.Route); err != nil {
		return nil, fmt.Errorf("repo.FindOptimizationResult unmarshal: %w", err)
	}
	return res, nil
}
