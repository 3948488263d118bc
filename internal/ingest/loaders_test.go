package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadStockSumsDuplicateRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stock.csv",
		"product_code,quantity\nP1,100\nP2,50\nP1,25\n")

	stock, notes, err := LoadStock(path)
	require.NoError(t, err)
	assert.Equal(t, 125.0, stock["P1"])
	assert.Equal(t, 50.0, stock["P2"])
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "duplicate")
}

func TestLoadStockSpanishHeadersAndThousandsSeparators(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stock.csv",
		"Codigo,Cantidad\nP1,\"1,250.5\"\n")

	stock, _, err := LoadStock(path)
	require.NoError(t, err)
	assert.Equal(t, 1250.5, stock["P1"])
}

func TestLoadStockRejectsNonNumericQuantity(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stock.csv",
		"product_code,quantity\nP1,muchos\n")

	_, _, err := LoadStock(path)
	assert.Error(t, err)
}

func TestLoadStockMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stock.csv", "foo,bar\n1,2\n")
	_, _, err := LoadStock(path)
	assert.Error(t, err)
}

func TestLoadForecastClampsNegativesAndSumsDuplicates(t *testing.T) {
	path := writeFile(t, t.TempDir(), "forecast.csv",
		"product_code,period,quantity\n"+
			"P1,2026-01,100\n"+
			"P1,2026-02,-40\n"+
			"P1,2026-01,20\n")

	series, notes, err := LoadForecast(path)
	require.NoError(t, err)
	require.Len(t, series["P1"], 2)

	jan := series["P1"][0]
	assert.Equal(t, "2026-01", jan.Period.Key())
	assert.Equal(t, 120.0, jan.Quantity)

	feb := series["P1"][1]
	assert.Equal(t, "2026-02", feb.Period.Key())
	assert.Equal(t, 0.0, feb.Quantity)

	require.Len(t, notes, 2)
}

func TestLoadForecastSeriesOrderedByPeriod(t *testing.T) {
	path := writeFile(t, t.TempDir(), "forecast.csv",
		"codigo,periodo,cantidad\n"+
			"P1,2026-03,30\n"+
			"P1,2026-01,10\n"+
			"P1,2026-02,20\n")

	series, _, err := LoadForecast(path)
	require.NoError(t, err)
	require.Len(t, series["P1"], 3)
	assert.Equal(t, "2026-01", series["P1"][0].Period.Key())
	assert.Equal(t, "2026-02", series["P1"][1].Period.Key())
	assert.Equal(t, "2026-03", series["P1"][2].Period.Key())
}

func TestLoadForecastRejectsBadPeriod(t *testing.T) {
	path := writeFile(t, t.TempDir(), "forecast.csv",
		"product_code,period,quantity\nP1,enero,10\n")

	_, _, err := LoadForecast(path)
	assert.Error(t, err)
}

func TestLoadHierarchy(t *testing.T) {
	path := writeFile(t, t.TempDir(), "hierarchy.csv",
		"codigo,familia,super familia\nP1,Merino,Lana\nP2,,\n")

	entries, err := LoadHierarchy(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.HierarchyEntry{ProductCode: "P1", Family: "Merino", SuperFamily: "Lana"}, entries[0])
	assert.Equal(t, "P2", entries[1].ProductCode)
	assert.Empty(t, entries[1].Family)
}

func TestLoadRelationsHeaderAliases(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relations.csv",
		"codigo_ovillo,codigo_cono\nP1,C1\nP1,C2\n,C3\n")

	relations, err := LoadRelations(path)
	require.NoError(t, err)
	require.Len(t, relations, 2)
	assert.Equal(t, domain.ConversionRelation{FinishedCode: "P1", RawCode: "C1"}, relations[0])
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, StockFile, "product_code,quantity\nP1,100\nC1,40\n")
	writeFile(t, dir, ForecastFile, "product_code,period,quantity\nP1,2026-01,-10\n")
	writeFile(t, dir, HierarchyFile, "product_code,family,super_family\nP1,Merino,Lana\n")
	writeFile(t, dir, RelationsFile, "finished_code,raw_code\nP1,C1\n")

	snap, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 100.0, snap.Stock["P1"])
	assert.Len(t, snap.Forecast["P1"], 1)
	assert.Len(t, snap.Hierarchy, 1)
	assert.Len(t, snap.Relations, 1)
	// the clamped negative shows up in the degraded notes
	require.Len(t, snap.Degraded, 1)
	assert.Contains(t, snap.Degraded[0], "clamped")
}

func TestLoadDirMissingFilesDegradeInsteadOfFailing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, StockFile, "product_code,quantity\nP1,100\n")
	writeFile(t, dir, ForecastFile, "product_code,period,quantity\nP1,2026-01,50\n")

	snap, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 100.0, snap.Stock["P1"])
	assert.Len(t, snap.Forecast["P1"], 1)
	assert.Empty(t, snap.Hierarchy)
	assert.Empty(t, snap.Relations)

	require.Len(t, snap.Degraded, 2)
	assert.Contains(t, snap.Degraded[0], HierarchyFile)
	assert.Contains(t, snap.Degraded[1], RelationsFile)
}

func TestLoadDirMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, StockFile, "product_code,quantity\nP1,100\n")
	writeFile(t, dir, ForecastFile, "product_code,period,quantity\nP1,enero,50\n")

	_, err := LoadDir(dir)
	assert.Error(t, err)
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "superfamilia", normalizeColumnName(" Super Familia "))
	assert.Equal(t, "superfamilia", normalizeColumnName("SUPER_FAMILIA"))
	assert.Equal(t, "superfamilia", normalizeColumnName("super-familia"))
}

func TestLoadForecastAcceptsFullDates(t *testing.T) {
	path := writeFile(t, t.TempDir(), "forecast.csv",
		"product_code,fecha,venta_proyectada\nP1,2026-01-15,10\n")

	series, _, err := LoadForecast(path)
	require.NoError(t, err)
	require.Len(t, series["P1"], 1)
	assert.Equal(t, domain.Period{Year: 2026, Month: time.January}, series["P1"][0].Period)
}
