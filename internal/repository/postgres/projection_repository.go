package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
	"github.com/ukryl/stock-projection-app/backend-go/internal/engine"
	"github.com/ukryl/stock-projection-app/backend-go/internal/pipeline"
	"github.com/ukryl/stock-projection-app/backend-go/internal/repository"
)

type projectionRepository struct {
	db *DB
}

// NewProjectionRepository creates the Postgres-backed projection store.
func NewProjectionRepository(db *DB) repository.ProjectionRepository {
	return &projectionRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS projection_runs (
    id BIGSERIAL PRIMARY KEY,
    start_period TEXT NOT NULL,
    horizon INT NOT NULL,
    safety_stock DOUBLE PRECISION NOT NULL,
    policy TEXT NOT NULL,
    grouping TEXT NOT NULL,
    status TEXT NOT NULL,
    degraded TEXT[] NOT NULL DEFAULT '{}',
    started_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS group_flows (
    run_id BIGINT NOT NULL REFERENCES projection_runs(id) ON DELETE CASCADE,
    group_key TEXT NOT NULL,
    level TEXT NOT NULL,
    raw_stock DOUBLE PRECISION NOT NULL,
    finished_stock DOUBLE PRECISION NOT NULL,
    initial_stock DOUBLE PRECISION NOT NULL,
    has_stockout BOOLEAN NOT NULL,
    PRIMARY KEY (run_id, group_key)
);

CREATE TABLE IF NOT EXISTS flow_points (
    run_id BIGINT NOT NULL REFERENCES projection_runs(id) ON DELETE CASCADE,
    group_key TEXT NOT NULL,
    period TEXT NOT NULL,
    demand DOUBLE PRECISION NOT NULL,
    projected_stock DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, group_key, period)
);

CREATE TABLE IF NOT EXISTS recommendations (
    run_id BIGINT NOT NULL REFERENCES projection_runs(id) ON DELETE CASCADE,
    position INT NOT NULL,
    group_key TEXT NOT NULL,
    period TEXT NOT NULL,
    quantity_needed DOUBLE PRECISION NOT NULL,
    raw_stock_available DOUBLE PRECISION NOT NULL,
    finished_stock DOUBLE PRECISION NOT NULL,
    projected_stock DOUBLE PRECISION NOT NULL,
    monthly_demand DOUBLE PRECISION NOT NULL,
    days_needed INT NOT NULL,
    months_needed DOUBLE PRECISION NOT NULL,
    priority TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS run_kpis (
    run_id BIGINT PRIMARY KEY REFERENCES projection_runs(id) ON DELETE CASCADE,
    stockout_rate DOUBLE PRECISION NOT NULL,
    fill_rate DOUBLE PRECISION NOT NULL,
    days_of_inventory DOUBLE PRECISION NOT NULL,
    total_stock DOUBLE PRECISION NOT NULL,
    groups_at_risk INT NOT NULL,
    coverage_months DOUBLE PRECISION NOT NULL,
    coverage_known BOOLEAN NOT NULL,
    winding_efficiency DOUBLE PRECISION NOT NULL
);
`

// EnsureSchema creates the projection tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (r *projectionRepository) CreateRun(ctx context.Context, run *domain.ProjectionRun) error {
	query := `
        INSERT INTO projection_runs (
            start_period, horizon, safety_stock, policy, grouping,
            status, degraded, started_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.db.QueryRowContext(ctx, query,
		run.StartPeriod, run.Horizon, run.SafetyStock, run.Policy, run.Grouping,
		run.Status, run.Degraded, run.StartedAt,
	).Scan(&run.ID)
}

func (r *projectionRepository) FinishRun(ctx context.Context, runID int64, status string) error {
	query := `UPDATE projection_runs SET status = $1, completed_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), runID)
	return err
}

func (r *projectionRepository) SaveResult(ctx context.Context, runID int64, result *pipeline.Result) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		groupStmt, err := tx.PrepareContext(ctx, `
            INSERT INTO group_flows (
                run_id, group_key, level, raw_stock, finished_stock,
                initial_stock, has_stockout
            ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        `)
		if err != nil {
			return err
		}
		defer groupStmt.Close()

		pointStmt, err := tx.PrepareContext(ctx, `
            INSERT INTO flow_points (run_id, group_key, period, demand, projected_stock)
            VALUES ($1, $2, $3, $4, $5)
        `)
		if err != nil {
			return err
		}
		defer pointStmt.Close()

		for _, group := range result.Groups {
			if _, err := groupStmt.ExecContext(ctx,
				runID, group.GroupKey, string(group.Level), group.RawStock,
				group.FinishedStock, group.InitialStock, group.HasStockout,
			); err != nil {
				return fmt.Errorf("failed to insert group %s: %w", group.GroupKey, err)
			}
			for i, point := range group.Points {
				demand := 0.0
				if i < len(group.Demand) {
					demand = group.Demand[i]
				}
				if _, err := pointStmt.ExecContext(ctx,
					runID, group.GroupKey, point.Period.Key(), demand, point.ProjectedStock,
				); err != nil {
					return fmt.Errorf("failed to insert flow point for %s: %w", group.GroupKey, err)
				}
			}
		}

		recStmt, err := tx.PrepareContext(ctx, `
            INSERT INTO recommendations (
                run_id, position, group_key, period, quantity_needed,
                raw_stock_available, finished_stock, projected_stock,
                monthly_demand, days_needed, months_needed, priority
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        `)
		if err != nil {
			return err
		}
		defer recStmt.Close()

		for i, rec := range result.Recommendations {
			if _, err := recStmt.ExecContext(ctx,
				runID, i, rec.GroupKey, rec.Period.Key(), rec.QuantityNeeded,
				rec.RawStockAvailable, rec.FinishedStock, rec.ProjectedStock,
				rec.MonthlyDemand, rec.DaysNeeded, rec.MonthsNeeded, string(rec.Priority),
			); err != nil {
				return fmt.Errorf("failed to insert recommendation %d: %w", i, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
            INSERT INTO run_kpis (
                run_id, stockout_rate, fill_rate, days_of_inventory, total_stock,
                groups_at_risk, coverage_months, coverage_known, winding_efficiency
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        `,
			runID, result.KPIs.StockoutRate, result.KPIs.FillRate,
			result.KPIs.DaysOfInventory, result.KPIs.TotalStock, result.KPIs.GroupsAtRisk,
			result.KPIs.CoverageMonths, result.KPIs.CoverageKnown, result.KPIs.WindingEfficiency,
		)
		if err != nil {
			return fmt.Errorf("failed to insert kpis: %w", err)
		}
		return nil
	})
}

func (r *projectionRepository) LatestCompletedRun(ctx context.Context) (*domain.ProjectionRun, error) {
	query := `
        SELECT id, start_period, horizon, safety_stock, policy, grouping,
               status, degraded, started_at, completed_at
        FROM projection_runs
        WHERE status = $1
        ORDER BY started_at DESC
        LIMIT 1
    `
	var run domain.ProjectionRun
	err := r.db.GetContext(ctx, &run, query, domain.RunStatusCompleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type flowPointRow struct {
	GroupKey       string  `db:"group_key"`
	Period         string  `db:"period"`
	Demand         float64 `db:"demand"`
	ProjectedStock float64 `db:"projected_stock"`
}

type groupFlowRow struct {
	GroupKey      string  `db:"group_key"`
	Level         string  `db:"level"`
	RawStock      float64 `db:"raw_stock"`
	FinishedStock float64 `db:"finished_stock"`
	InitialStock  float64 `db:"initial_stock"`
	HasStockout   bool    `db:"has_stockout"`
}

func (r *projectionRepository) GetGroupFlows(ctx context.Context, runID int64) ([]domain.GroupFlow, error) {
	var groupRows []groupFlowRow
	err := r.db.SelectContext(ctx, &groupRows, `
        SELECT group_key, level, raw_stock, finished_stock, initial_stock, has_stockout
        FROM group_flows
        WHERE run_id = $1
        ORDER BY group_key
    `, runID)
	if err != nil {
		return nil, err
	}
	groups := make([]domain.GroupFlow, 0, len(groupRows))
	for _, row := range groupRows {
		groups = append(groups, domain.GroupFlow{
			GroupKey:      row.GroupKey,
			Level:         domain.GroupingLevel(row.Level),
			RawStock:      row.RawStock,
			FinishedStock: row.FinishedStock,
			InitialStock:  row.InitialStock,
			HasStockout:   row.HasStockout,
		})
	}

	var points []flowPointRow
	err = r.db.SelectContext(ctx, &points, `
        SELECT group_key, period, demand, projected_stock
        FROM flow_points
        WHERE run_id = $1
        ORDER BY group_key, period
    `, runID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]int, len(groups))
	for i := range groups {
		byKey[groups[i].GroupKey] = i
	}
	for _, row := range points {
		idx, ok := byKey[row.GroupKey]
		if !ok {
			continue
		}
		period, err := domain.ParsePeriod(row.Period)
		if err != nil {
			return nil, fmt.Errorf("stored flow point has bad period %q: %w", row.Period, err)
		}
		groups[idx].Demand = append(groups[idx].Demand, row.Demand)
		groups[idx].Points = append(groups[idx].Points, domain.FlowPoint{
			Period:         period,
			ProjectedStock: row.ProjectedStock,
		})
	}
	for i := range groups {
		groups[i].Quarters = engine.QuarterRollup(groups[i].Points)
	}
	return groups, nil
}

func (r *projectionRepository) GetGroupKeys(ctx context.Context, runID int64) ([]string, error) {
	var keys []string
	err := r.db.SelectContext(ctx, &keys, `
        SELECT group_key
        FROM group_flows
        WHERE run_id = $1
        ORDER BY group_key
    `, runID)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

type recommendationRow struct {
	GroupKey          string  `db:"group_key"`
	Period            string  `db:"period"`
	QuantityNeeded    float64 `db:"quantity_needed"`
	RawStockAvailable float64 `db:"raw_stock_available"`
	FinishedStock     float64 `db:"finished_stock"`
	ProjectedStock    float64 `db:"projected_stock"`
	MonthlyDemand     float64 `db:"monthly_demand"`
	DaysNeeded        int     `db:"days_needed"`
	MonthsNeeded      float64 `db:"months_needed"`
	Priority          string  `db:"priority"`
}

func (r *projectionRepository) GetRecommendations(ctx context.Context, runID int64, priority domain.Priority) ([]domain.Recommendation, error) {
	query := `
        SELECT group_key, period, quantity_needed, raw_stock_available,
               finished_stock, projected_stock, monthly_demand,
               days_needed, months_needed, priority
        FROM recommendations
        WHERE run_id = $1
    `
	args := []interface{}{runID}
	if priority != "" {
		query += ` AND priority = $2`
		args = append(args, string(priority))
	}
	query += ` ORDER BY position`

	var rows []recommendationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	recs := make([]domain.Recommendation, 0, len(rows))
	for _, row := range rows {
		period, err := domain.ParsePeriod(row.Period)
		if err != nil {
			return nil, fmt.Errorf("stored recommendation has bad period %q: %w", row.Period, err)
		}
		recs = append(recs, domain.Recommendation{
			GroupKey:          row.GroupKey,
			Period:            period,
			QuantityNeeded:    row.QuantityNeeded,
			RawStockAvailable: row.RawStockAvailable,
			FinishedStock:     row.FinishedStock,
			ProjectedStock:    row.ProjectedStock,
			MonthlyDemand:     row.MonthlyDemand,
			DaysNeeded:        row.DaysNeeded,
			MonthsNeeded:      row.MonthsNeeded,
			Priority:          domain.Priority(row.Priority),
		})
	}
	return recs, nil
}

func (r *projectionRepository) GetKPIs(ctx context.Context, runID int64) (*domain.KPISummary, error) {
	var summary domain.KPISummary
	err := r.db.GetContext(ctx, &summary, `
        SELECT stockout_rate, fill_rate, days_of_inventory, total_stock,
               groups_at_risk, coverage_months, coverage_known, winding_efficiency
        FROM run_kpis
        WHERE run_id = $1
    `, runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
