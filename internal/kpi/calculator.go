// Package kpi derives the summary metric set from a finished projection.
package kpi

import (
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// Calculator computes KPIs over group flows. Metrics are descriptive
// aggregates of a single run; they carry the same fan-out double counting
// as the group stock figures they are built from.
type Calculator struct{}

// NewCalculator returns a KPI calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Summarize computes the KPI set for one projection result.
//
// StockoutRate is the share of (group, period) cells with negative
// projected stock. DaysOfInventory divides total stock by average daily
// demand derived from the first projection year; with zero demand it
// reports zero rather than infinite cover. CoverageMonths compares total
// stock against the average of the next three months of demand and is
// flagged unknown when that demand is zero.
func (c *Calculator) Summarize(groups []domain.GroupFlow) domain.KPISummary {
	var (
		totalCells    int
		stockoutCells int
		totalStock    float64
		rawStock      float64
		finishedStock float64
		annualDemand  float64
		nextQuarter   float64
		groupsAtRisk  int
	)

	for _, group := range groups {
		totalCells += len(group.Points)
		for _, point := range group.Points {
			if point.ProjectedStock < 0 {
				stockoutCells++
			}
		}
		if group.HasStockout {
			groupsAtRisk++
		}
		totalStock += group.InitialStock
		rawStock += group.RawStock
		finishedStock += group.FinishedStock
		annualDemand += group.AnnualDemand()
		for i, d := range group.Demand {
			if i >= 3 {
				break
			}
			nextQuarter += d
		}
	}

	summary := domain.KPISummary{
		TotalStock:   totalStock,
		GroupsAtRisk: groupsAtRisk,
	}

	if totalCells > 0 {
		summary.StockoutRate = float64(stockoutCells) / float64(totalCells) * 100
	}
	summary.FillRate = 100 - summary.StockoutRate
	if summary.FillRate < 0 {
		summary.FillRate = 0
	}

	if annualDemand > 0 {
		summary.DaysOfInventory = totalStock / (annualDemand / 365)
	}

	if nextQuarter > 0 {
		summary.CoverageMonths = totalStock / (nextQuarter / 3)
		summary.CoverageKnown = true
	}

	if finishedStock+rawStock > 0 {
		summary.WindingEfficiency = finishedStock / (finishedStock + rawStock) * 100
	}

	return summary
}
