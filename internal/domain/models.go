// backend-go/internal/domain/models.go
package domain

import (
	"time"

	"github.com/lib/pq"
)

// Sentinel hierarchy values for product codes missing from the reference
// table. Kept in Spanish to stay compatible with the existing dashboards.
const (
	NoFamily      = "Sin Familia"
	NoSuperFamily = "Sin Super Familia"
)

// HierarchyEntry maps a product code into the two-level taxonomy.
type HierarchyEntry struct {
	ProductCode string `json:"product_code" db:"product_code"`
	Family      string `json:"family" db:"family"`
	SuperFamily string `json:"super_family" db:"super_family"`
}

// ConversionRelation links a finished skein code to a cone code whose raw
// stock can be wound into it. One finished code may draw from several cones
// and one cone may feed several finished codes.
type ConversionRelation struct {
	FinishedCode string `json:"finished_code" db:"finished_code"`
	RawCode      string `json:"raw_code" db:"raw_code"`
}

// StockRecord is one row of the stock snapshot, in kilograms.
type StockRecord struct {
	ProductCode string  `json:"product_code" db:"product_code"`
	Quantity    float64 `json:"quantity" db:"quantity"`
}

// StockPosition is the computed starting position for one finished product.
// TotalStock already includes the safety-stock adjustment for the run.
type StockPosition struct {
	ProductCode      string  `json:"product_code" db:"product_code"`
	DirectStock      float64 `json:"direct_stock" db:"direct_stock"`
	ConvertibleStock float64 `json:"convertible_stock" db:"convertible_stock"`
	TotalStock       float64 `json:"total_stock" db:"total_stock"`
}

// ForecastPoint is one row of the forecast snapshot: projected demand for a
// product in a calendar month.
type ForecastPoint struct {
	ProductCode string  `json:"product_code"`
	Period      Period  `json:"period"`
	Quantity    float64 `json:"quantity"`
}

// GroupingLevel selects the hierarchy level results are rolled up to.
type GroupingLevel string

const (
	GroupByProduct     GroupingLevel = "product"
	GroupByFamily      GroupingLevel = "family"
	GroupBySuperFamily GroupingLevel = "super_family"
)

// Valid reports whether the grouping level is one of the supported values.
func (g GroupingLevel) Valid() bool {
	switch g {
	case GroupByProduct, GroupByFamily, GroupBySuperFamily:
		return true
	}
	return false
}

// SafetyStockPolicy names how the safety stock enters a position.
type SafetyStockPolicy string

const (
	// SafetyBuffer adds the safety stock to every starting position.
	SafetyBuffer SafetyStockPolicy = "buffer"
	// SafetyReserve holds the safety stock back from every starting position.
	SafetyReserve SafetyStockPolicy = "reserve"
)

// RunParams are the knobs of a single projection run. SafetyStockKg applies
// uniformly to every product position; per-SKU buffers are out of scope.
type RunParams struct {
	Start             Period            `json:"start"`
	HorizonMonths     int               `json:"horizon_months"`
	SafetyStockKg     float64           `json:"safety_stock_kg"`
	SafetyStockPolicy SafetyStockPolicy `json:"safety_stock_policy"`
	WindingRateKgDay  float64           `json:"winding_rate_kg_day"`
	Grouping          GroupingLevel     `json:"grouping"`
}

// ProjectionRun tracks one persisted execution of the pipeline.
type ProjectionRun struct {
	ID          int64          `json:"id" db:"id"`
	StartPeriod string         `json:"start_period" db:"start_period"`
	Horizon     int            `json:"horizon" db:"horizon"`
	SafetyStock float64        `json:"safety_stock" db:"safety_stock"`
	Policy      string         `json:"policy" db:"policy"`
	Grouping    string         `json:"grouping" db:"grouping"`
	Status      string         `json:"status" db:"status"`
	Degraded    pq.StringArray `json:"degraded" db:"degraded"`
	StartedAt   time.Time      `json:"started_at" db:"started_at"`
	CompletedAt *time.Time     `json:"completed_at" db:"completed_at"`
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
