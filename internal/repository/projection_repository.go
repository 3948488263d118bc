// Package repository defines the persistence contracts for projection
// runs and their results.
package repository

import (
	"context"

	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
	"github.com/ukryl/stock-projection-app/backend-go/internal/pipeline"
)

// ProjectionRepository persists projection runs and serves their results
// back to the API layer.
type ProjectionRepository interface {
	// CreateRun inserts a run record in the running state and fills in its ID.
	CreateRun(ctx context.Context, run *domain.ProjectionRun) error
	// FinishRun marks a run completed or failed.
	FinishRun(ctx context.Context, runID int64, status string) error
	// SaveResult stores the group flows, recommendations and KPIs of a run.
	SaveResult(ctx context.Context, runID int64, result *pipeline.Result) error

	// LatestCompletedRun returns the most recent completed run, or nil when
	// no run has completed yet.
	LatestCompletedRun(ctx context.Context) (*domain.ProjectionRun, error)
	GetGroupFlows(ctx context.Context, runID int64) ([]domain.GroupFlow, error)
	// GetGroupKeys lists the distinct group keys stored for a run, sorted.
	GetGroupKeys(ctx context.Context, runID int64) ([]string, error)
	GetRecommendations(ctx context.Context, runID int64, priority domain.Priority) ([]domain.Recommendation, error)
	GetKPIs(ctx context.Context, runID int64) (*domain.KPISummary, error)
}
