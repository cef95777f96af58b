package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quartier-geo/internal/models"
)

type fakeRepo struct {
	cluster      *models.Cluster
	organizer    bool
	bidder       bool
	participants []models.ClusterParticipant
	blocks       []models.TimeBlock
	saved        *models.OptimizationResult
	saveErr      error
	stored       *models.OptimizationResult

	participantsRead bool
}

func (f *fakeRepo) FindClusterByID(ctx context.Context, clusterID string) (*models.Cluster, error) {
	if f.cluster == nil {
		return nil, models.ErrNotFound
	}
	return f.cluster, nil
}

func (f *fakeRepo) IsOrganizer(ctx context.Context, clusterID, userID string) (bool, error) {
	return f.organizer, nil
}

func (f *fakeRepo) HasBid(ctx context.Context, clusterID, userID string) (bool, error) {
	return f.bidder, nil
}

func (f *fakeRepo) ListConfirmedParticipants(ctx context.Context, clusterID string) ([]models.ClusterParticipant, error) {
	f.participantsRead = true
	return f.participants, nil
}

func (f *fakeRepo) ListTimeBlocks(ctx context.Context, clusterID string) ([]models.TimeBlock, error) {
	return f.blocks, nil
}

func (f *fakeRepo) SaveOptimizationResult(ctx context.Context, result *models.OptimizationResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = result
	return nil
}

func (f *fakeRepo) FindOptimizationResult(ctx context.Context, clusterID string) (*models.OptimizationResult, error) {
	if f.stored == nil {
		return nil, models.ErrNotFound
	}
	return f.stored, nil
}

func strPtr(s string) *string { return &s }

func participant(unitID string, preferred ...string) models.ClusterParticipant {
	return models.ClusterParticipant{UnitID: strPtr(unitID), PreferredBlocks: preferred}
}

func newTestService(repo *fakeRepo) *Service {
	s := NewService(repo, nil, nil, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }
	return s
}

func defaultRepo() *fakeRepo {
	return &fakeRepo{
		cluster:   &models.Cluster{ID: "cl-1", SiteName: "Le Vingt-Quatre", OrganizerID: "org-1"},
		organizer: true,
		participants: []models.ClusterParticipant{
			participant("B", "Morning"),
			participant("A", "Morning"),
			participant("C", "Morning"),
		},
		blocks: []models.TimeBlock{
			{ID: "blk-1", Name: "Morning", StartTime: "09:00", EndTime: "12:00"},
			{ID: "blk-2", Name: "Afternoon", StartTime: "13:00", EndTime: "17:00"},
		},
	}
}

func TestOptimizeRejectsUnrelatedCaller(t *testing.T) {
	repo := defaultRepo()
	repo.organizer = false
	repo.bidder = false
	s := newTestService(repo)

	_, err := s.Optimize(context.Background(), "cl-1", "stranger")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)
	// The unauthorized caller never triggers a cluster data read.
	assert.False(t, repo.participantsRead)
}

func TestOptimizeAllowsBidder(t *testing.T) {
	repo := defaultRepo()
	repo.organizer = false
	repo.bidder = true
	s := newTestService(repo)

	result, err := s.Optimize(context.Background(), "cl-1", "unit-owner")
	require.NoError(t, err)
	assert.Equal(t, "Morning", result.BlockName)
}

func TestOptimizeRequiresConfirmedUnits(t *testing.T) {
	repo := defaultRepo()
	repo.participants = nil
	s := newTestService(repo)

	_, err := s.Optimize(context.Background(), "cl-1", "org-1")
	assert.ErrorIs(t, err, models.ErrNoConfirmedUnits)
	assert.Nil(t, repo.saved)
}

func TestOptimizeRequiresTimeBlocks(t *testing.T) {
	repo := defaultRepo()
	repo.blocks = nil
	s := newTestService(repo)

	_, err := s.Optimize(context.Background(), "cl-1", "org-1")
	assert.ErrorIs(t, err, models.ErrNoTimeBlocks)
	assert.Nil(t, repo.saved)
}

func TestOptimizeLaysOutRouteLexicographically(t *testing.T) {
	repo := defaultRepo()
	s := newTestService(repo)

	result, err := s.Optimize(context.Background(), "cl-1", "org-1")
	require.NoError(t, err)

	require.Len(t, result.Route, 3)
	assert.Equal(t, "A", result.Route[0].UnitID)
	assert.Equal(t, "09:00", result.Route[0].Start)
	assert.Equal(t, "09:45", result.Route[0].End)
	assert.Equal(t, "B", result.Route[1].UnitID)
	assert.Equal(t, "09:50", result.Route[1].Start)
	assert.Equal(t, "10:35", result.Route[1].End)
	assert.Equal(t, "C", result.Route[2].UnitID)
	assert.Equal(t, "10:40", result.Route[2].Start)
	assert.Equal(t, "11:25", result.Route[2].End)

	require.NotNil(t, repo.saved)
	assert.Equal(t, "blk-1", repo.saved.BlockID)
}

func TestOptimizeRouteMayOverflowBlock(t *testing.T) {
	// Five units need 4h05m but the block is only three hours long; the
	// layout still runs to completion past the block's end.
	repo := defaultRepo()
	repo.participants = []models.ClusterParticipant{
		participant("U1", "Morning"), participant("U2", "Morning"),
		participant("U3", "Morning"), participant("U4", "Morning"),
		participant("U5", "Morning"),
	}
	s := newTestService(repo)

	result, err := s.Optimize(context.Background(), "cl-1", "org-1")
	require.NoError(t, err)
	require.Len(t, result.Route, 5)
	assert.Equal(t, "12:20", result.Route[4].Start)
	assert.Equal(t, "13:05", result.Route[4].End)
}

func TestOptimizeConfidenceTiers(t *testing.T) {
	tests := []struct {
		name        string
		preferring  int
		total       int
		wantTier    models.ConfidenceTier
		wantBlockID string
	}{
		{"eight of ten is high", 8, 10, models.ConfidenceHigh, "blk-2"},
		{"five of ten is medium", 5, 10, models.ConfidenceMedium, "blk-2"},
		{"two of ten is low", 2, 10, models.ConfidenceLow, "blk-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := defaultRepo()
			repo.participants = nil
			for i := 0; i < tt.total; i++ {
				unit := string(rune('A' + i))
				if i < tt.preferring {
					repo.participants = append(repo.participants, participant(unit, "Afternoon"))
				} else {
					repo.participants = append(repo.participants, participant(unit))
				}
			}
			s := newTestService(repo)

			result, err := s.Optimize(context.Background(), "cl-1", "org-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantBlockID, result.BlockID)
			assert.Equal(t, tt.wantTier, result.Confidence)
		})
	}
}

func TestOptimizeTieGoesToFirstBlock(t *testing.T) {
	repo := defaultRepo()
	repo.participants = []models.ClusterParticipant{
		participant("A", "Morning"),
		participant("B", "Afternoon"),
	}
	s := newTestService(repo)

	result, err := s.Optimize(context.Background(), "cl-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "blk-1", result.BlockID)
}

func TestOptimizeSurvivesSaveFailure(t *testing.T) {
	repo := defaultRepo()
	repo.saveErr = errors.New("connection reset")
	s := newTestService(repo)

	result, err := s.Optimize(context.Background(), "cl-1", "org-1")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Len(t, result.Route, 3)
}

func TestScheduleNotFound(t *testing.T) {
	s := newTestService(defaultRepo())

	_, err := s.Schedule(context.Background(), "cl-missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestScheduleReturnsStoredResult(t *testing.T) {
	repo := defaultRepo()
	repo.stored = &models.OptimizationResult{ClusterID: "cl-1", BlockName: "Morning"}
	s := newTestService(repo)

	result, err := s.Schedule(context.Background(), "cl-1")
	require.NoError(t, err)
	assert.Equal(t, "Morning", result.BlockName)
}
