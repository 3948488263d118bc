// Package engine implements the stock flow projection: a strictly
// sequential depletion of one shared stock pool by an ordered monthly
// forecast, with quarterly roll-ups and hierarchy-level aggregation.
package engine

import (
	"fmt"
	"math"

	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// Engine projects stock depletion over a fixed horizon of consecutive
// calendar months. It is stateless across runs: every call recomputes the
// trajectory from the inputs alone.
type Engine struct {
	horizon []domain.Period
}

// New creates an engine for n consecutive periods starting at start.
func New(start domain.Period, n int) (*Engine, error) {
	if n <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", n)
	}
	return &Engine{horizon: domain.Horizon(start, n)}, nil
}

// Horizon returns the period axis of this engine.
func (e *Engine) Horizon() []domain.Period {
	return append([]domain.Period(nil), e.horizon...)
}

// Project runs the depletion recurrence for one product.
//
// The balance starts at the position's total stock and each period's
// forecast demand is subtracted in order. Horizon months without a
// forecast point consume nothing but still appear on the axis. Negative
// balances carry forward unclamped; the shortfall depth feeds the risk
// analysis downstream.
//
// The series must be clean numeric input: NaN or Inf quantities, demand
// for periods outside the horizon, duplicate periods, or an unordered
// series are validation errors. Negative demand is rejected too; the
// ingestion boundary clamps data-entry defects before the engine sees them.
func (e *Engine) Project(pos domain.StockPosition, series []domain.ForecastPoint) ([]domain.FlowPoint, error) {
	demand, err := e.demandByPeriod(pos.ProductCode, series)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(pos.TotalStock) || math.IsInf(pos.TotalStock, 0) {
		return nil, fmt.Errorf("product %s: total stock is not a finite number", pos.ProductCode)
	}

	flow := make([]domain.FlowPoint, 0, len(e.horizon))
	balance := pos.TotalStock
	for _, p := range e.horizon {
		balance -= demand[p]
		flow = append(flow, domain.FlowPoint{Period: p, ProjectedStock: balance})
	}
	return flow, nil
}

// DemandVector expands a forecast series onto the horizon axis, filling
// gaps with zero. It shares Project's validation.
func (e *Engine) DemandVector(productCode string, series []domain.ForecastPoint) ([]float64, error) {
	demand, err := e.demandByPeriod(productCode, series)
	if err != nil {
		return nil, err
	}
	vec := make([]float64, len(e.horizon))
	for i, p := range e.horizon {
		vec[i] = demand[p]
	}
	return vec, nil
}

func (e *Engine) demandByPeriod(productCode string, series []domain.ForecastPoint) (map[domain.Period]float64, error) {
	inHorizon := make(map[domain.Period]bool, len(e.horizon))
	for _, p := range e.horizon {
		inHorizon[p] = true
	}

	demand := make(map[domain.Period]float64, len(series))
	var prev *domain.Period
	for _, fp := range series {
		if math.IsNaN(fp.Quantity) || math.IsInf(fp.Quantity, 0) {
			return nil, fmt.Errorf("product %s: forecast for %s is not a finite number", productCode, fp.Period)
		}
		if fp.Quantity < 0 {
			return nil, fmt.Errorf("product %s: negative forecast %v for %s", productCode, fp.Quantity, fp.Period)
		}
		if !inHorizon[fp.Period] {
			return nil, fmt.Errorf("product %s: forecast period %s outside horizon %s..%s",
				productCode, fp.Period, e.horizon[0], e.horizon[len(e.horizon)-1])
		}
		if prev != nil {
			if fp.Period == *prev {
				return nil, fmt.Errorf("product %s: duplicate forecast period %s", productCode, fp.Period)
			}
			if fp.Period.Before(*prev) {
				return nil, fmt.Errorf("product %s: forecast series not ordered at %s", productCode, fp.Period)
			}
		}
		p := fp.Period
		prev = &p
		demand[p] = fp.Quantity
	}
	return demand, nil
}

// QuarterRollup partitions a flow series into rolling groups of three
// periods from the start of the horizon and reports the balance at each
// group's last period. A trailing partial quarter uses whatever periods
// remain.
func QuarterRollup(points []domain.FlowPoint) []domain.QuarterPoint {
	quarters := make([]domain.QuarterPoint, 0, (len(points)+2)/3)
	for start := 0; start < len(points); start += 3 {
		end := start + 2
		if end >= len(points) {
			end = len(points) - 1
		}
		quarters = append(quarters, domain.QuarterPoint{
			Quarter:        start/3 + 1,
			EndPeriod:      points[end].Period,
			ProjectedStock: points[end].ProjectedStock,
		})
	}
	return quarters
}

// SumFlows adds flow series point-wise. All series must share the same
// period axis; the sum represents total pool depletion for a group of
// products and is exact only when the members draw on disjoint pools.
func SumFlows(series ...[]domain.FlowPoint) ([]domain.FlowPoint, error) {
	if len(series) == 0 {
		return nil, nil
	}
	total := make([]domain.FlowPoint, len(series[0]))
	copy(total, series[0])
	for _, s := range series[1:] {
		if len(s) != len(total) {
			return nil, fmt.Errorf("flow series length mismatch: %d vs %d", len(s), len(total))
		}
		for i := range s {
			if s[i].Period != total[i].Period {
				return nil, fmt.Errorf("flow series period mismatch at index %d: %s vs %s", i, s[i].Period, total[i].Period)
			}
			total[i].ProjectedStock += s[i].ProjectedStock
		}
	}
	return total, nil
}
