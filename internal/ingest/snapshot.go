package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// Input file names expected inside the data directory.
const (
	StockFile     = "stock.csv"
	ForecastFile  = "forecast.csv"
	HierarchyFile = "hierarchy.csv"
	RelationsFile = "relations.csv"
)

// Snapshot is one complete set of projection inputs plus the repair notes
// accumulated while loading them. A run that consumed a non-empty Degraded
// list still completes; the notes are persisted with the run record.
type Snapshot struct {
	Stock     map[string]float64
	Forecast  map[string][]domain.ForecastPoint
	Hierarchy []domain.HierarchyEntry
	Relations []domain.ConversionRelation
	Degraded  []string
}

// LoadDir loads all four inputs from a directory using the conventional
// file names. A missing file is not fatal: the run proceeds with that
// input empty (zero stock, zero demand, sentinel hierarchy, no
// conversions) and the gap lands in the degraded notes. A file that is
// present but malformed still aborts the load.
func LoadDir(dir string) (*Snapshot, error) {
	snap := &Snapshot{
		Stock:     make(map[string]float64),
		Forecast:  make(map[string][]domain.ForecastPoint),
		Hierarchy: make([]domain.HierarchyEntry, 0),
		Relations: make([]domain.ConversionRelation, 0),
		Degraded:  make([]string, 0),
	}

	stock, stockNotes, err := LoadStock(filepath.Join(dir, StockFile))
	switch {
	case isMissing(err):
		snap.reportMissing(StockFile)
	case err != nil:
		return nil, err
	default:
		snap.Stock = stock
		snap.Degraded = append(snap.Degraded, stockNotes...)
	}

	forecast, forecastNotes, err := LoadForecast(filepath.Join(dir, ForecastFile))
	switch {
	case isMissing(err):
		snap.reportMissing(ForecastFile)
	case err != nil:
		return nil, err
	default:
		snap.Forecast = forecast
		snap.Degraded = append(snap.Degraded, forecastNotes...)
	}

	hierarchy, err := LoadHierarchy(filepath.Join(dir, HierarchyFile))
	switch {
	case isMissing(err):
		snap.reportMissing(HierarchyFile)
	case err != nil:
		return nil, err
	default:
		snap.Hierarchy = hierarchy
	}

	relations, err := LoadRelations(filepath.Join(dir, RelationsFile))
	switch {
	case isMissing(err):
		snap.reportMissing(RelationsFile)
	case err != nil:
		return nil, err
	default:
		snap.Relations = relations
	}

	return snap, nil
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func (s *Snapshot) reportMissing(name string) {
	log.Warn().Str("file", name).Msg("input file missing, projecting without it")
	s.Degraded = append(s.Degraded, fmt.Sprintf("%s missing, treated as empty", name))
}
