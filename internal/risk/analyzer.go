// Package risk turns projected stock trajectories into an ordered winding
// worklist: which groups need cone stock converted, how much, and when.
package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// Priority thresholds in months until the deficit period.
const (
	highPriorityMonths   = 1
	mediumPriorityMonths = 4
)

// Days assumed per month when translating winding days into months.
const daysPerMonth = 29

// Analyzer derives winding recommendations from group flow series.
// windingRate is the fixed daily conversion throughput in kg/day.
type Analyzer struct {
	windingRate float64
}

// NewAnalyzer returns an analyzer for the given winding rate.
func NewAnalyzer(windingRate float64) (*Analyzer, error) {
	if windingRate <= 0 {
		return nil, fmt.Errorf("winding rate must be positive, got %v", windingRate)
	}
	return &Analyzer{windingRate: windingRate}, nil
}

// Analyze walks each group's trajectory in period order and emits a
// recommendation for every period with negative projected stock while cone
// stock remains. The quantity needed is measured against the group's
// typical month (annual demand / 12) rather than the period's own
// forecast, so a single deep deficit and a string of shallow ones rank
// comparably. Cone stock is consumed greedily: earlier deficits claim it
// before later ones are considered. The result is a worklist ordered by
// (priority, period), not a reconciled allocation across groups.
func (a *Analyzer) Analyze(groups []domain.GroupFlow) []domain.Recommendation {
	recommendations := make([]domain.Recommendation, 0)

	for _, group := range groups {
		monthlyDemand := group.AnnualDemand() / 12
		rawAvailable := group.RawStock

		for idx, point := range group.Points {
			if point.ProjectedStock >= 0 || rawAvailable <= 0 {
				continue
			}

			needed := monthlyDemand - point.ProjectedStock
			daysNeeded := int(math.Round(math.Min(needed, rawAvailable) / a.windingRate))
			monthsNeeded := math.Round(float64(daysNeeded)/daysPerMonth*10) / 10

			recommendations = append(recommendations, domain.Recommendation{
				GroupKey:          group.GroupKey,
				Period:            point.Period,
				QuantityNeeded:    needed,
				RawStockAvailable: rawAvailable,
				FinishedStock:     group.FinishedStock,
				ProjectedStock:    point.ProjectedStock,
				MonthlyDemand:     monthlyDemand,
				DaysNeeded:        daysNeeded,
				MonthsNeeded:      monthsNeeded,
				Priority:          priorityFor(idx),
			})

			rawAvailable = math.Max(0, rawAvailable-needed)
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Priority.Rank() != recommendations[j].Priority.Rank() {
			return recommendations[i].Priority.Rank() < recommendations[j].Priority.Rank()
		}
		return recommendations[i].Period.Before(recommendations[j].Period)
	})
	return recommendations
}

func priorityFor(monthsUntilNeed int) domain.Priority {
	switch {
	case monthsUntilNeed <= highPriorityMonths:
		return domain.PriorityHigh
	case monthsUntilNeed <= mediumPriorityMonths:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
