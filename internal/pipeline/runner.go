// Package pipeline orchestrates a full projection run: product universe
// assembly, per-product projection across a worker pool, hierarchy
// roll-ups, winding recommendations and KPIs.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ukryl/stock-projection-app/backend-go/internal/conversion"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
	"github.com/ukryl/stock-projection-app/backend-go/internal/engine"
	"github.com/ukryl/stock-projection-app/backend-go/internal/hierarchy"
	"github.com/ukryl/stock-projection-app/backend-go/internal/ingest"
	"github.com/ukryl/stock-projection-app/backend-go/internal/kpi"
	"github.com/ukryl/stock-projection-app/backend-go/internal/position"
	"github.com/ukryl/stock-projection-app/backend-go/internal/risk"
	"github.com/ukryl/stock-projection-app/backend-go/pkg/logger"
)

// Result is everything one projection run produces.
type Result struct {
	Params          domain.RunParams        `json:"params"`
	Horizon         []domain.Period         `json:"horizon"`
	Products        []domain.ProductFlow    `json:"products"`
	Groups          []domain.GroupFlow      `json:"groups"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	KPIs            domain.KPISummary       `json:"kpis"`
	Degraded        []string                `json:"degraded,omitempty"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// Runner executes projection runs. workerCount bounds the per-product
// projection fan-out.
type Runner struct {
	workerCount int
}

// NewRunner creates a runner.
func NewRunner(workerCount int) *Runner {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Runner{workerCount: workerCount}
}

// Run projects every product in the snapshot over the configured horizon.
// A structural defect in any product's inputs fails the whole run; partial
// results would silently misstate the totals and KPIs built from them.
func (r *Runner) Run(ctx context.Context, snap *ingest.Snapshot, params domain.RunParams) (*Result, error) {
	log := logger.Component("pipeline")
	start := time.Now()

	if params.HorizonMonths <= 0 {
		return nil, fmt.Errorf("horizon months must be positive, got %d", params.HorizonMonths)
	}
	if !params.Grouping.Valid() {
		return nil, fmt.Errorf("unknown grouping level %q", params.Grouping)
	}

	eng, err := engine.New(params.Start, params.HorizonMonths)
	if err != nil {
		return nil, err
	}
	resolver := conversion.NewResolver(snap.Relations)
	builder, err := position.NewBuilder(resolver, params.SafetyStockKg, params.SafetyStockPolicy)
	if err != nil {
		return nil, err
	}
	analyzer, err := risk.NewAnalyzer(params.WindingRateKgDay)
	if err != nil {
		return nil, err
	}
	index := hierarchy.NewIndex(snap.Hierarchy)

	codes := r.productUniverse(snap, resolver)
	log.Info().Int("products", len(codes)).Int("workers", r.workerCount).
		Str("start", params.Start.String()).Int("horizon", params.HorizonMonths).
		Msg("starting projection run")

	products, err := r.projectProducts(ctx, codes, snap, eng, builder, index)
	if err != nil {
		return nil, err
	}

	groups, err := r.rollUp(products, index, params.Grouping)
	if err != nil {
		return nil, err
	}

	recommendations := analyzer.Analyze(groups)
	summary := kpi.NewCalculator().Summarize(groups)

	log.Info().Int("groups", len(groups)).Int("recommendations", len(recommendations)).
		Dur("elapsed", time.Since(start)).Msg("projection run completed")

	return &Result{
		Params:          params,
		Horizon:         eng.Horizon(),
		Products:        products,
		Groups:          groups,
		Recommendations: recommendations,
		KPIs:            summary,
		Degraded:        snap.Degraded,
		GeneratedAt:     time.Now(),
	}, nil
}

// productUniverse is every finished code the run projects: codes with a
// forecast, codes on the finished side of a relation, and stocked codes
// that are not cones. Cones never get their own trajectory; their stock
// enters through the convertible side of finished positions.
func (r *Runner) productUniverse(snap *ingest.Snapshot, resolver *conversion.Resolver) []string {
	universe := make(map[string]struct{})
	for code := range snap.Forecast {
		universe[code] = struct{}{}
	}
	for _, code := range resolver.FinishedCodes() {
		universe[code] = struct{}{}
	}
	for code := range snap.Stock {
		if !resolver.IsRawCode(code) {
			universe[code] = struct{}{}
		}
	}

	codes := make([]string, 0, len(universe))
	for code := range universe {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// projectProducts fans the per-product projection out over a worker pool
// and returns the flows sorted by product code.
func (r *Runner) projectProducts(
	ctx context.Context,
	codes []string,
	snap *ingest.Snapshot,
	eng *engine.Engine,
	builder *position.Builder,
	index *hierarchy.Index,
) ([]domain.ProductFlow, error) {
	jobChan := make(chan string, len(codes))
	resultChan := make(chan domain.ProductFlow, len(codes))
	errChan := make(chan error, r.workerCount)
	var wg sync.WaitGroup

	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobChan {
				flow, err := r.projectOne(code, snap, eng, builder, index)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					continue
				}
				resultChan <- flow
			}
		}()
	}

	for _, code := range codes {
		select {
		case <-ctx.Done():
			close(jobChan)
			return nil, ctx.Err()
		case jobChan <- code:
		}
	}
	close(jobChan)

	wg.Wait()
	close(resultChan)
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	products := make([]domain.ProductFlow, 0, len(codes))
	for flow := range resultChan {
		products = append(products, flow)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductCode < products[j].ProductCode
	})
	return products, nil
}

func (r *Runner) projectOne(
	code string,
	snap *ingest.Snapshot,
	eng *engine.Engine,
	builder *position.Builder,
	index *hierarchy.Index,
) (domain.ProductFlow, error) {
	pos := builder.Build(code, snap.Stock)
	series := snap.Forecast[code]

	points, err := eng.Project(pos, series)
	if err != nil {
		return domain.ProductFlow{}, err
	}
	demand, err := eng.DemandVector(code, series)
	if err != nil {
		return domain.ProductFlow{}, err
	}

	family, superFamily := index.Resolve(code)
	return domain.ProductFlow{
		ProductCode: code,
		Family:      family,
		SuperFamily: superFamily,
		Position:    pos,
		Demand:      demand,
		Points:      points,
		Quarters:    engine.QuarterRollup(points),
	}, nil
}

// rollUp aggregates product flows to the requested hierarchy level.
func (r *Runner) rollUp(products []domain.ProductFlow, index *hierarchy.Index, level domain.GroupingLevel) ([]domain.GroupFlow, error) {
	type accumulator struct {
		flow   domain.GroupFlow
		series [][]domain.FlowPoint
	}

	byKey := make(map[string]*accumulator)
	order := make([]string, 0)
	for _, product := range products {
		key := index.GroupKey(product.ProductCode, level)
		acc, ok := byKey[key]
		if !ok {
			acc = &accumulator{flow: domain.GroupFlow{
				GroupKey: key,
				Level:    level,
				Demand:   make([]float64, len(product.Demand)),
			}}
			byKey[key] = acc
			order = append(order, key)
		}

		acc.flow.RawStock += product.Position.ConvertibleStock
		acc.flow.FinishedStock += product.Position.DirectStock
		acc.flow.InitialStock += product.Position.TotalStock
		for i, d := range product.Demand {
			acc.flow.Demand[i] += d
		}
		acc.series = append(acc.series, product.Points)
	}
	sort.Strings(order)

	groups := make([]domain.GroupFlow, 0, len(byKey))
	for _, key := range order {
		acc := byKey[key]
		points, err := engine.SumFlows(acc.series...)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", key, err)
		}
		acc.flow.Points = points
		acc.flow.Quarters = engine.QuarterRollup(points)
		for _, point := range points {
			if point.ProjectedStock < 0 {
				acc.flow.HasStockout = true
				break
			}
		}
		groups = append(groups, acc.flow)
	}
	return groups, nil
}
