// Package cluster implements the one-shot time/route optimizer for group
// bookings: a preference tally picks the shared time block, and a
// lexicographic unit ordering lays out a back-to-back visiting schedule.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"quartier-geo/internal/models"
	"quartier-geo/pkg/email"
)

const (
	// slotDuration is the fixed per-unit service slot.
	slotDuration = 45 * time.Minute
	// bufferDuration is the fixed gap before the next unit's slot.
	bufferDuration = 5 * time.Minute

	// wallClockLayout is the time-of-day format used by time blocks.
	wallClockLayout = "15:04"
)

// ServiceInterface defines the optimizer operations.
type ServiceInterface interface {
	Optimize(ctx context.Context, clusterID, callerID string) (*models.OptimizationResult, error)
	Schedule(ctx context.Context, clusterID string) (*models.OptimizationResult, error)
}

// Service implements ServiceInterface. The computation is deterministic
// and idempotent for unchanged participant data; each invocation works on
// a fresh read with no state shared across invocations. Concurrent reruns
// on the same cluster are last-writer-wins on the stored result.
type Service struct {
	repo            RepositoryInterface
	emailer         email.ServiceInterface
	templateManager *email.TemplateManager
	logger          *zap.Logger
	now             func() time.Time
}

// NewService creates the optimizer service. emailer may be nil when
// schedule notifications are disabled.
func NewService(repo RepositoryInterface, emailer email.ServiceInterface, tm *email.TemplateManager, logger *zap.Logger) *Service {
	return &Service{
		repo:            repo,
		emailer:         emailer,
		templateManager: tm,
		logger:          logger,
		now:             time.Now,
	}
}

// Optimize runs the batch computation for one cluster and persists the
// result. Authorization is checked before any cluster data is read, and a
// failed persistence write is logged but does not fail the call - the
// computation itself succeeded.
func (s *Service) Optimize(ctx context.Context, clusterID, callerID string) (*models.OptimizationResult, error) {
	// 1. Authorization precondition: organizer or existing bidder only.
	allowed, err := s.callerMayOptimize(ctx, clusterID, callerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.ErrNotAuthorized
	}

	// 2. Fresh read of the cluster, its confirmed participants, and the
	// candidate blocks.
	cl, err := s.repo.FindClusterByID(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	participants, err := s.repo.ListConfirmedParticipants(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("service.Optimize: %w", err)
	}
	if len(participants) == 0 {
		return nil, models.ErrNoConfirmedUnits
	}
	blocks, err := s.repo.ListTimeBlocks(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("service.Optimize: %w", err)
	}
	if len(blocks) == 0 {
		return nil, models.ErrNoTimeBlocks
	}

	// 3. Tally block preferences: one unweighted vote per participant per
	// listed block name. Ties go to the first maximum in stored block
	// order.
	chosen, votes := tallyPreferences(participants, blocks)

	// 4. Visiting order: plain lexicographic sort on unit id.
	sort.Slice(participants, func(i, j int) bool {
		return *participants[i].UnitID < *participants[j].UnitID
	})

	// 5. Back-to-back layout from the chosen block's start. The layout may
	// run past the block's end; overflow is produced, not rejected.
	route, err := layoutRoute(participants, chosen.StartTime)
	if err != nil {
		return nil, fmt.Errorf("service.Optimize: %w", err)
	}

	confidence := confidenceTier(votes, len(participants))

	result := &models.OptimizationResult{
		ClusterID:  clusterID,
		BlockID:    chosen.ID,
		BlockName:  chosen.Name,
		Confidence: confidence,
		Route:      route,
		Summary: fmt.Sprintf("%d units scheduled in %s starting %s (%d of %d preferred this block, %s confidence)",
			len(route), chosen.Name, route[0].Start, votes, len(participants), confidence),
		GeneratedAt: s.now(),
	}

	// 6. Persist whole; on failure the computed result is still returned.
	if err := s.repo.SaveOptimizationResult(ctx, result); err != nil {
		s.logger.Warn("optimization result not persisted",
			zap.String("cluster_id", clusterID), zap.Error(err))
	}

	s.notifyOrganizer(ctx, cl, result)
	return result, nil
}

// Schedule returns the stored result for a cluster.
func (s *Service) Schedule(ctx context.Context, clusterID string) (*models.OptimizationResult, error) {
	return s.repo.FindOptimizationResult(ctx, clusterID)
}

// callerMayOptimize runs the two authorization reads and nothing else, so
// an unauthorized caller learns nothing about the cluster.
func (s *Service) callerMayOptimize(ctx context.Context, clusterID, callerID string) (bool, error) {
	organizer, err := s.repo.IsOrganizer(ctx, clusterID, callerID)
	if err != nil {
		return false, fmt.Errorf("service.Optimize: %w", err)
	}
	if organizer {
		return true, nil
	}
	bidder, err := s.repo.HasBid(ctx, clusterID, callerID)
	if err != nil {
		return false, fmt.Errorf("service.Optimize: %w", err)
	}
	return bidder, nil
}

// tallyPreferences counts, per block, the participants whose preference
// list names it, and returns the first block holding the maximum count in
// block order along with that count.
func tallyPreferences(participants []models.ClusterParticipant, blocks []models.TimeBlock) (models.TimeBlock, int) {
	chosen := blocks[0]
	best := -1
	for _, block := range blocks {
		count := 0
		for _, p := range participants {
			for _, name := range p.PreferredBlocks {
				if name == block.Name {
					count++
					break
				}
			}
		}
		if count > best {
			chosen = block
			best = count
		}
	}
	return chosen, best
}

// layoutRoute assigns each unit a fixed slot with a fixed buffer before
// the next, starting at the wall-clock startTime.
func layoutRoute(participants []models.ClusterParticipant, startTime string) ([]models.RouteStop, error) {
	cursor, err := time.Parse(wallClockLayout, startTime)
	if err != nil {
		return nil, fmt.Errorf("parse block start %q: %w", startTime, err)
	}

	route := make([]models.RouteStop, 0, len(participants))
	for _, p := range participants {
		end := cursor.Add(slotDuration)
		route = append(route, models.RouteStop{
			UnitID: *p.UnitID,
			Start:  cursor.Format(wallClockLayout),
			End:    end.Format(wallClockLayout),
		})
		cursor = end.Add(bufferDuration)
	}
	return route, nil
}

// confidenceTier grades the chosen block by the fraction of all confirmed
// participants that preferred it.
func confidenceTier(votes, total int) models.ConfidenceTier {
	ratio := float64(votes) / float64(total)
	switch {
	case ratio >= 0.8:
		return models.ConfidenceHigh
	case ratio >= 0.5:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// notifyOrganizer sends the schedule-ready email, best effort. A missing
// emailer, template manager or organizer address skips the send silently;
// a send failure is logged and swallowed.
func (s *Service) notifyOrganizer(ctx context.Context, cl *models.Cluster, result *models.OptimizationResult) {
	if s.emailer == nil || s.templateManager == nil || cl.OrganizerEmail == "" {
		return
	}

	html, err := s.templateManager.GenerateScheduleReadyEmailHTML(email.ScheduleData{
		SiteName:  cl.SiteName,
		BlockName: result.BlockName,
		Summary:   result.Summary,
	})
	if err != nil {
		s.logger.Warn("schedule email render failed", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("Your visiting schedule for %s is ready", cl.SiteName)
	if err := s.emailer.SendEmail(ctx, cl.OrganizerEmail, subject, result.Summary, html); err != nil {
		s.logger.Warn("schedule email send failed",
			zap.String("cluster_id", cl.ID), zap.Error(err))
	}
}
