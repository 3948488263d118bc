package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/ukryl/stock-projection-app/backend-go/internal/cache"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
	"github.com/ukryl/stock-projection-app/backend-go/internal/ingest"
	"github.com/ukryl/stock-projection-app/backend-go/internal/pipeline"
	"github.com/ukryl/stock-projection-app/backend-go/internal/repository"
)

// ProjectionService runs projections and serves stored results, with a
// cache-aside layer over the repository reads.
type ProjectionService struct {
	repo   repository.ProjectionRepository
	cache  cache.ProjectionCache
	runner *pipeline.Runner
}

func NewProjectionService(repo repository.ProjectionRepository, cacheImpl cache.ProjectionCache, runner *pipeline.Runner) *ProjectionService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopProjectionCache()
	}
	return &ProjectionService{repo: repo, cache: cacheImpl, runner: runner}
}

// Run executes a projection over the snapshot, persists the result and
// invalidates cached reads. The run record is created before the pipeline
// starts so a crash leaves a visible failed run instead of nothing.
func (s *ProjectionService) Run(ctx context.Context, snap *ingest.Snapshot, params domain.RunParams) (*pipeline.Result, error) {
	run := &domain.ProjectionRun{
		StartPeriod: params.Start.Key(),
		Horizon:     params.HorizonMonths,
		SafetyStock: params.SafetyStockKg,
		Policy:      string(params.SafetyStockPolicy),
		Grouping:    string(params.Grouping),
		Status:      domain.RunStatusRunning,
		Degraded:    pq.StringArray(snap.Degraded),
		StartedAt:   time.Now(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	result, err := s.runner.Run(ctx, snap, params)
	if err != nil {
		if finishErr := s.repo.FinishRun(ctx, run.ID, domain.RunStatusFailed); finishErr != nil {
			log.Error().Err(finishErr).Int64("run_id", run.ID).Msg("failed to mark run failed")
		}
		return nil, err
	}

	if err := s.repo.SaveResult(ctx, run.ID, result); err != nil {
		if finishErr := s.repo.FinishRun(ctx, run.ID, domain.RunStatusFailed); finishErr != nil {
			log.Error().Err(finishErr).Int64("run_id", run.ID).Msg("failed to mark run failed")
		}
		return nil, fmt.Errorf("failed to persist run %d: %w", run.ID, err)
	}
	if err := s.repo.FinishRun(ctx, run.ID, domain.RunStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete run %d: %w", run.ID, err)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("projection: cache invalidation failed")
	}

	return result, nil
}

// GetGroupFlows returns the stored group trajectories for a run, filtered
// to the requested group keys when any are given.
func (s *ProjectionService) GetGroupFlows(ctx context.Context, filter domain.ProjectionFilter) ([]domain.GroupFlow, error) {
	if groups, ok, err := s.cache.GetGroupFlows(ctx, filter); err == nil && ok {
		return groups, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("projection: cache get flows failed")
	}

	runID, err := s.resolveRunID(ctx, filter.RunID)
	if err != nil {
		return nil, err
	}

	groups, err := s.repo.GetGroupFlows(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(filter.GroupKeys) > 0 {
		wanted := make(map[string]struct{}, len(filter.GroupKeys))
		for _, key := range filter.GroupKeys {
			wanted[key] = struct{}{}
		}
		filtered := make([]domain.GroupFlow, 0, len(groups))
		for _, group := range groups {
			if _, ok := wanted[group.GroupKey]; ok {
				filtered = append(filtered, group)
			}
		}
		groups = filtered
	}

	if err := s.cache.SetGroupFlows(ctx, filter, groups); err != nil {
		log.Warn().Err(err).Msg("projection: cache set flows failed")
	}
	return groups, nil
}

// GetRecommendations returns the stored winding worklist, optionally
// narrowed to one priority tier.
func (s *ProjectionService) GetRecommendations(ctx context.Context, filter domain.ProjectionFilter) ([]domain.Recommendation, error) {
	if recs, ok, err := s.cache.GetRecommendations(ctx, filter); err == nil && ok {
		return recs, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("projection: cache get recommendations failed")
	}

	runID, err := s.resolveRunID(ctx, filter.RunID)
	if err != nil {
		return nil, err
	}

	recs, err := s.repo.GetRecommendations(ctx, runID, filter.Priority)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetRecommendations(ctx, filter, recs); err != nil {
		log.Warn().Err(err).Msg("projection: cache set recommendations failed")
	}
	return recs, nil
}

// GetKPIs returns the stored KPI summary for a run.
func (s *ProjectionService) GetKPIs(ctx context.Context, filter domain.ProjectionFilter) (*domain.KPISummary, error) {
	if summary, ok, err := s.cache.GetKPIs(ctx, filter); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("projection: cache get kpis failed")
	}

	runID, err := s.resolveRunID(ctx, filter.RunID)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.GetKPIs(ctx, runID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, fmt.Errorf("no kpis stored for run %d", runID)
	}

	if err := s.cache.SetKPIs(ctx, filter, summary); err != nil {
		log.Warn().Err(err).Msg("projection: cache set kpis failed")
	}
	return summary, nil
}

// GetGroupKeys lists the group keys available in a run, for building
// level filters on the dashboard side.
func (s *ProjectionService) GetGroupKeys(ctx context.Context, filter domain.ProjectionFilter) ([]string, error) {
	runID, err := s.resolveRunID(ctx, filter.RunID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetGroupKeys(ctx, runID)
}

// LatestRun exposes the most recent completed run record.
func (s *ProjectionService) LatestRun(ctx context.Context) (*domain.ProjectionRun, error) {
	return s.repo.LatestCompletedRun(ctx)
}

func (s *ProjectionService) resolveRunID(ctx context.Context, requested int64) (int64, error) {
	if requested != 0 {
		return requested, nil
	}
	run, err := s.repo.LatestCompletedRun(ctx)
	if err != nil {
		return 0, err
	}
	if run == nil {
		return 0, fmt.Errorf("no completed projection run available")
	}
	return run.ID, nil
}
