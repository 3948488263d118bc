// Package ingest reads the four CSV inputs of a projection run: stock
// snapshot, demand forecast, hierarchy reference and cone relations.
// Data-entry defects are repaired here (and reported), so the projection
// engine downstream can insist on clean input.
package ingest

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// LoadStock reads the stock snapshot into quantity-by-code. Rows repeating
// a product code are summed: warehouses export one row per location, and a
// later row is more stock, not a correction. Repairs are appended as
// human-readable notes.
func LoadStock(path string) (map[string]float64, []string, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	if err := t.requireCols(
		[]string{"product_code", "codigo", "code", "sku"},
		[]string{"quantity", "cantidad", "stock", "kg"},
	); err != nil {
		return nil, nil, err
	}

	idxCode := t.colIndex("product_code", "codigo", "code", "sku")
	idxQty := t.colIndex("quantity", "cantidad", "stock", "kg")

	rows := make([]domain.StockRecord, 0, len(t.records))
	notes := make([]string, 0)
	for i, record := range t.records {
		code := get(record, idxCode)
		if code == "" {
			notes = append(notes, fmt.Sprintf("stock: skipped row %d without product code", i+2))
			continue
		}
		qty, err := parseFloat(record, idxQty)
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		rows = append(rows, domain.StockRecord{ProductCode: code, Quantity: qty})
	}

	stock := make(map[string]float64, len(rows))
	duplicates := 0
	for _, row := range rows {
		if _, seen := stock[row.ProductCode]; seen {
			duplicates++
		}
		stock[row.ProductCode] += row.Quantity
	}
	if duplicates > 0 {
		log.Warn().Int("rows", duplicates).Str("file", path).Msg("duplicate stock rows summed")
		notes = append(notes, fmt.Sprintf("stock: summed %d duplicate product rows", duplicates))
	}
	return stock, notes, nil
}

// LoadForecast reads the demand forecast into per-product series ordered by
// period. Negative quantities are clamped to zero (a forecast can never
// call for negative demand) and duplicate (product, period) rows are
// summed; both repairs are reported.
func LoadForecast(path string) (map[string][]domain.ForecastPoint, []string, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	if err := t.requireCols(
		[]string{"product_code", "codigo", "code", "sku"},
		[]string{"period", "periodo", "month", "mes", "fecha"},
		[]string{"quantity", "cantidad", "demand", "venta_proyectada"},
	); err != nil {
		return nil, nil, err
	}

	idxCode := t.colIndex("product_code", "codigo", "code", "sku")
	idxPeriod := t.colIndex("period", "periodo", "month", "mes", "fecha")
	idxQty := t.colIndex("quantity", "cantidad", "demand", "venta_proyectada")

	type cell struct {
		code   string
		period domain.Period
	}
	demand := make(map[cell]float64)
	notes := make([]string, 0)
	clamped := 0
	duplicates := 0
	for i, record := range t.records {
		code := get(record, idxCode)
		if code == "" {
			notes = append(notes, fmt.Sprintf("forecast: skipped row %d without product code", i+2))
			continue
		}
		period, err := domain.ParsePeriod(get(record, idxPeriod))
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		qty, err := parseFloat(record, idxQty)
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		if qty < 0 {
			log.Warn().Str("product_code", code).Str("period", period.String()).
				Float64("quantity", qty).Msg("negative forecast clamped to zero")
			qty = 0
			clamped++
		}
		key := cell{code: code, period: period}
		if _, seen := demand[key]; seen {
			duplicates++
		}
		demand[key] += qty
	}
	if clamped > 0 {
		notes = append(notes, fmt.Sprintf("forecast: clamped %d negative quantities to zero", clamped))
	}
	if duplicates > 0 {
		notes = append(notes, fmt.Sprintf("forecast: summed %d duplicate (product, period) rows", duplicates))
	}

	series := make(map[string][]domain.ForecastPoint)
	for key, qty := range demand {
		series[key.code] = append(series[key.code], domain.ForecastPoint{
			ProductCode: key.code,
			Period:      key.period,
			Quantity:    qty,
		})
	}
	for code := range series {
		s := series[code]
		sort.Slice(s, func(i, j int) bool { return s[i].Period.Before(s[j].Period) })
	}
	return series, notes, nil
}

// LoadHierarchy reads the product taxonomy reference.
func LoadHierarchy(path string) ([]domain.HierarchyEntry, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.requireCols(
		[]string{"product_code", "codigo", "code", "sku"},
	); err != nil {
		return nil, err
	}

	idxCode := t.colIndex("product_code", "codigo", "code", "sku")
	idxFamily := t.colIndex("family", "familia")
	idxSuper := t.colIndex("super_family", "super familia", "superfamilia")

	entries := make([]domain.HierarchyEntry, 0, len(t.records))
	for _, record := range t.records {
		code := get(record, idxCode)
		if code == "" {
			continue
		}
		entries = append(entries, domain.HierarchyEntry{
			ProductCode: code,
			Family:      get(record, idxFamily),
			SuperFamily: get(record, idxSuper),
		})
	}
	return entries, nil
}

// LoadRelations reads the cone-to-skein conversion table.
func LoadRelations(path string) ([]domain.ConversionRelation, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.requireCols(
		[]string{"finished_code", "ovillo_code", "ovillo", "codigo_ovillo"},
		[]string{"raw_code", "cono_code", "cono", "codigo_cono"},
	); err != nil {
		return nil, err
	}

	idxFinished := t.colIndex("finished_code", "ovillo_code", "ovillo", "codigo_ovillo")
	idxRaw := t.colIndex("raw_code", "cono_code", "cono", "codigo_cono")

	relations := make([]domain.ConversionRelation, 0, len(t.records))
	for _, record := range t.records {
		finished := get(record, idxFinished)
		raw := get(record, idxRaw)
		if finished == "" || raw == "" {
			continue
		}
		relations = append(relations, domain.ConversionRelation{
			FinishedCode: finished,
			RawCode:      raw,
		})
	}
	return relations, nil
}
