package domain

// FlowPoint is the projected remaining stock at the end of one period.
// Negative values are real shortfall depth and are never clamped.
type FlowPoint struct {
	Period         Period  `json:"period"`
	ProjectedStock float64 `json:"projected_stock"`
}

// QuarterPoint is the quarterly view of a flow series. Quarters are rolling
// groups of three periods counted from the start of the horizon, and the
// value is the balance at the quarter's last period, not a sum: stock is a
// point-in-time level, not a flow quantity.
type QuarterPoint struct {
	Quarter        int     `json:"quarter"`
	EndPeriod      Period  `json:"end_period"`
	ProjectedStock float64 `json:"projected_stock"`
}

// ProductFlow is the per-product projection detail.
type ProductFlow struct {
	ProductCode string         `json:"product_code"`
	Family      string         `json:"family"`
	SuperFamily string         `json:"super_family"`
	Position    StockPosition  `json:"position"`
	Demand      []float64      `json:"demand"`
	Points      []FlowPoint    `json:"points"`
	Quarters    []QuarterPoint `json:"quarters"`
}

// GroupFlow is the projection rolled up to one hierarchy group. Stock
// figures are plain sums over member products; when several members share
// a cone through conversion fan-out the shared raw stock is counted toward
// each of them, so group totals can overstate the truly available pool.
type GroupFlow struct {
	GroupKey      string         `json:"group_key"`
	Level         GroupingLevel  `json:"level"`
	RawStock      float64        `json:"raw_stock"`
	FinishedStock float64        `json:"finished_stock"`
	InitialStock  float64        `json:"initial_stock"`
	Demand        []float64      `json:"demand"`
	Points        []FlowPoint    `json:"points"`
	Quarters      []QuarterPoint `json:"quarters"`
	HasStockout   bool           `json:"has_stockout"`
}

// AnnualDemand returns the demand total over the first twelve horizon
// periods (or fewer when the horizon is shorter).
func (g GroupFlow) AnnualDemand() float64 {
	total := 0.0
	for i, d := range g.Demand {
		if i >= 12 {
			break
		}
		total += d
	}
	return total
}

// Priority tiers for winding recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation is one entry of the winding worklist: convert cone stock
// into finished stock for a group before the given period.
type Recommendation struct {
	GroupKey          string   `json:"group_key" db:"group_key"`
	Period            Period   `json:"period"`
	QuantityNeeded    float64  `json:"quantity_needed" db:"quantity_needed"`
	RawStockAvailable float64  `json:"raw_stock_available" db:"raw_stock_available"`
	FinishedStock     float64  `json:"finished_stock" db:"finished_stock"`
	ProjectedStock    float64  `json:"projected_stock" db:"projected_stock"`
	MonthlyDemand     float64  `json:"monthly_demand" db:"monthly_demand"`
	DaysNeeded        int      `json:"days_needed" db:"days_needed"`
	MonthsNeeded      float64  `json:"months_needed" db:"months_needed"`
	Priority          Priority `json:"priority" db:"priority"`
}

// KPISummary is the derived metric set over one projection result.
// FillRate is an approximation (100 - stockout rate), not a true
// service-level measurement. CoverageKnown is false when there was no
// demand in the next three months to compute coverage against.
type KPISummary struct {
	StockoutRate      float64 `json:"stockout_rate" db:"stockout_rate"`
	FillRate          float64 `json:"fill_rate" db:"fill_rate"`
	DaysOfInventory   float64 `json:"days_of_inventory" db:"days_of_inventory"`
	TotalStock        float64 `json:"total_stock" db:"total_stock"`
	GroupsAtRisk      int     `json:"groups_at_risk" db:"groups_at_risk"`
	CoverageMonths    float64 `json:"coverage_months" db:"coverage_months"`
	CoverageKnown     bool    `json:"coverage_known" db:"coverage_known"`
	WindingEfficiency float64 `json:"winding_efficiency" db:"winding_efficiency"`
}
