package kpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

func period(year int, month time.Month) domain.Period {
	return domain.Period{Year: year, Month: month}
}

func TestSummarizeStockoutAndFillRate(t *testing.T) {
	groups := []domain.GroupFlow{
		{
			GroupKey:     "A",
			InitialStock: 100,
			Demand:       []float64{10, 10, 10},
			Points: []domain.FlowPoint{
				{Period: period(2026, time.January), ProjectedStock: 90},
				{Period: period(2026, time.February), ProjectedStock: 80},
				{Period: period(2026, time.March), ProjectedStock: -5},
			},
			HasStockout: true,
		},
		{
			GroupKey:     "B",
			InitialStock: 50,
			Demand:       []float64{5, 5, 5},
			Points: []domain.FlowPoint{
				{Period: period(2026, time.January), ProjectedStock: 45},
				{Period: period(2026, time.February), ProjectedStock: 40},
				{Period: period(2026, time.March), ProjectedStock: 35},
			},
		},
	}

	summary := NewCalculator().Summarize(groups)

	// 1 negative cell out of 6
	assert.InDelta(t, 16.6667, summary.StockoutRate, 0.001)
	assert.InDelta(t, 83.3333, summary.FillRate, 0.001)
	assert.Equal(t, 150.0, summary.TotalStock)
	assert.Equal(t, 1, summary.GroupsAtRisk)
}

func TestSummarizeDaysOfInventory(t *testing.T) {
	groups := []domain.GroupFlow{
		{
			GroupKey:     "A",
			InitialStock: 365,
			Demand:       []float64{30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 35},
		},
	}

	summary := NewCalculator().Summarize(groups)
	// annual demand 365 -> one kg per day -> 365 days of cover
	assert.InDelta(t, 365.0, summary.DaysOfInventory, 0.001)
}

func TestSummarizeZeroDemandReportsZeroNotInfinity(t *testing.T) {
	groups := []domain.GroupFlow{
		{GroupKey: "A", InitialStock: 500, Demand: []float64{0, 0, 0}},
	}

	summary := NewCalculator().Summarize(groups)
	assert.Equal(t, 0.0, summary.DaysOfInventory)
	assert.Equal(t, 0.0, summary.CoverageMonths)
	assert.False(t, summary.CoverageKnown)
}

func TestSummarizeCoverageMonths(t *testing.T) {
	groups := []domain.GroupFlow{
		{GroupKey: "A", InitialStock: 300, Demand: []float64{100, 100, 100, 50}},
	}

	summary := NewCalculator().Summarize(groups)
	// 300 kg against an average next-quarter month of 100 kg
	assert.True(t, summary.CoverageKnown)
	assert.InDelta(t, 3.0, summary.CoverageMonths, 0.001)
}

func TestSummarizeWindingEfficiency(t *testing.T) {
	groups := []domain.GroupFlow{
		{GroupKey: "A", RawStock: 25, FinishedStock: 75, InitialStock: 100},
	}

	summary := NewCalculator().Summarize(groups)
	assert.InDelta(t, 75.0, summary.WindingEfficiency, 0.001)
}

func TestSummarizeEmptyInput(t *testing.T) {
	summary := NewCalculator().Summarize(nil)
	assert.Equal(t, 0.0, summary.StockoutRate)
	assert.Equal(t, 100.0, summary.FillRate)
	assert.Equal(t, 0.0, summary.TotalStock)
	assert.Equal(t, 0, summary.GroupsAtRisk)
}
