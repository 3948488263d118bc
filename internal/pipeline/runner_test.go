package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
	"github.com/ukryl/stock-projection-app/backend-go/internal/ingest"
)

func period(year int, month time.Month) domain.Period {
	return domain.Period{Year: year, Month: month}
}

func testSnapshot() *ingest.Snapshot {
	return &ingest.Snapshot{
		Stock: map[string]float64{
			"P1": 60,
			"P2": 30,
			"C1": 40,
		},
		Forecast: map[string][]domain.ForecastPoint{
			"P1": {
				{ProductCode: "P1", Period: period(2026, time.January), Quantity: 50},
				{ProductCode: "P1", Period: period(2026, time.February), Quantity: 40},
			},
			"P2": {
				{ProductCode: "P2", Period: period(2026, time.January), Quantity: 10},
			},
		},
		Hierarchy: []domain.HierarchyEntry{
			{ProductCode: "P1", Family: "Merino", SuperFamily: "Lana"},
			{ProductCode: "P2", Family: "Alpaca", SuperFamily: "Lana"},
		},
		Relations: []domain.ConversionRelation{
			{FinishedCode: "P1", RawCode: "C1"},
		},
	}
}

func testParams(grouping domain.GroupingLevel) domain.RunParams {
	return domain.RunParams{
		Start:             period(2026, time.January),
		HorizonMonths:     2,
		SafetyStockKg:     0,
		SafetyStockPolicy: domain.SafetyBuffer,
		WindingRateKgDay:  500,
		Grouping:          grouping,
	}
}

func TestRunProjectsAndRollsUpBySuperFamily(t *testing.T) {
	runner := NewRunner(2)

	result, err := runner.Run(context.Background(), testSnapshot(), testParams(domain.GroupBySuperFamily))
	require.NoError(t, err)

	// cones are not projected on their own
	require.Len(t, result.Products, 2)
	p1 := result.Products[0]
	assert.Equal(t, "P1", p1.ProductCode)
	assert.Equal(t, 60.0, p1.Position.DirectStock)
	assert.Equal(t, 40.0, p1.Position.ConvertibleStock)
	assert.Equal(t, []float64{50, 40}, p1.Demand)
	require.Len(t, p1.Points, 2)
	assert.Equal(t, 50.0, p1.Points[0].ProjectedStock)
	assert.Equal(t, 10.0, p1.Points[1].ProjectedStock)

	p2 := result.Products[1]
	assert.Equal(t, "P2", p2.ProductCode)
	assert.Equal(t, 20.0, p2.Points[0].ProjectedStock)
	assert.Equal(t, 20.0, p2.Points[1].ProjectedStock)

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, "Lana", group.GroupKey)
	assert.Equal(t, 40.0, group.RawStock)
	assert.Equal(t, 90.0, group.FinishedStock)
	assert.Equal(t, 130.0, group.InitialStock)
	assert.Equal(t, []float64{60, 40}, group.Demand)
	assert.Equal(t, 70.0, group.Points[0].ProjectedStock)
	assert.Equal(t, 30.0, group.Points[1].ProjectedStock)
	assert.False(t, group.HasStockout)

	assert.Empty(t, result.Recommendations)
	assert.Equal(t, 0.0, result.KPIs.StockoutRate)
	assert.Equal(t, 130.0, result.KPIs.TotalStock)
}

func TestRunGroupingByProduct(t *testing.T) {
	runner := NewRunner(1)

	result, err := runner.Run(context.Background(), testSnapshot(), testParams(domain.GroupByProduct))
	require.NoError(t, err)

	require.Len(t, result.Groups, 2)
	assert.Equal(t, "P1", result.Groups[0].GroupKey)
	assert.Equal(t, "P2", result.Groups[1].GroupKey)
}

func TestRunFlagsStockoutAndRecommendsWinding(t *testing.T) {
	snap := testSnapshot()
	snap.Stock["P1"] = 10
	snap.Stock["C1"] = 500

	runner := NewRunner(2)
	result, err := runner.Run(context.Background(), snap, testParams(domain.GroupByFamily))
	require.NoError(t, err)

	var merino domain.GroupFlow
	for _, group := range result.Groups {
		if group.GroupKey == "Merino" {
			merino = group
		}
	}
	require.NotEmpty(t, merino.GroupKey, "expected a Merino group")

	// P1: 10 direct + 500 convertible = 510, demand 50 then 40
	assert.False(t, merino.HasStockout)

	snap.Stock["C1"] = 0
	result, err = runner.Run(context.Background(), snap, testParams(domain.GroupByFamily))
	require.NoError(t, err)

	for _, group := range result.Groups {
		if group.GroupKey == "Merino" {
			// 10 - 50 = -40, then -80
			assert.True(t, group.HasStockout)
		}
	}
	// no cone stock left, so nothing to recommend
	assert.Empty(t, result.Recommendations)
	assert.Positive(t, result.KPIs.StockoutRate)
}

func TestRunRecommendationUsesGroupConeStock(t *testing.T) {
	snap := testSnapshot()
	snap.Stock["P1"] = 10
	snap.Forecast["P1"] = []domain.ForecastPoint{
		{ProductCode: "P1", Period: period(2026, time.January), Quantity: 100},
	}
	snap.Stock["C1"] = 30 // convertible, but not enough to cover

	runner := NewRunner(1)
	result, err := runner.Run(context.Background(), snap, testParams(domain.GroupByFamily))
	require.NoError(t, err)

	var recs []domain.Recommendation
	for _, rec := range result.Recommendations {
		if rec.GroupKey == "Merino" {
			recs = append(recs, rec)
		}
	}
	require.Len(t, recs, 1)
	assert.Equal(t, "2026-01", recs[0].Period.Key())
	assert.Equal(t, domain.PriorityHigh, recs[0].Priority)
	assert.Equal(t, 30.0, recs[0].RawStockAvailable)
}

func TestRunFailsFastOnStructuralDefects(t *testing.T) {
	snap := testSnapshot()
	snap.Forecast["P1"] = []domain.ForecastPoint{
		{ProductCode: "P1", Period: period(2030, time.January), Quantity: 10},
	}

	runner := NewRunner(2)
	_, err := runner.Run(context.Background(), snap, testParams(domain.GroupBySuperFamily))
	assert.Error(t, err)
}

func TestRunValidatesParams(t *testing.T) {
	runner := NewRunner(1)
	snap := testSnapshot()

	params := testParams(domain.GroupBySuperFamily)
	params.HorizonMonths = 0
	_, err := runner.Run(context.Background(), snap, params)
	assert.Error(t, err)

	params = testParams("warehouse")
	_, err = runner.Run(context.Background(), snap, params)
	assert.Error(t, err)
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	single, err := NewRunner(1).Run(context.Background(), testSnapshot(), testParams(domain.GroupBySuperFamily))
	require.NoError(t, err)
	parallel, err := NewRunner(8).Run(context.Background(), testSnapshot(), testParams(domain.GroupBySuperFamily))
	require.NoError(t, err)

	assert.Equal(t, single.Products, parallel.Products)
	assert.Equal(t, single.Groups, parallel.Groups)
	assert.Equal(t, single.Recommendations, parallel.Recommendations)
	assert.Equal(t, single.KPIs, parallel.KPIs)
}

func TestExportCSV(t *testing.T) {
	runner := NewRunner(1)
	result, err := runner.Run(context.Background(), testSnapshot(), testParams(domain.GroupBySuperFamily))
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := ExportCSV(dir, result)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + two products

	header := records[0]
	assert.Equal(t, "product_code", header[0])
	assert.Equal(t, "2026-01", header[6])
	assert.Equal(t, "2026-02", header[7])

	row := records[1]
	assert.Equal(t, "P1", row[0])
	assert.Equal(t, "Merino", row[1])
	assert.Equal(t, "50.00", row[6])
	assert.Equal(t, "10.00", row[7])
}
