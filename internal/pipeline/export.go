package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ExportCSV writes the consolidated run output: one row per product with
// its position and the projected balance for every horizon period. The
// file is the flat hand-off consumed by the existing dashboards.
func ExportCSV(dir string, result *Result) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("projection_%s.csv", result.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"product_code",
		"family",
		"super_family",
		"direct_stock",
		"convertible_stock",
		"total_stock",
	}
	for _, p := range result.Horizon {
		header = append(header, p.Key())
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, product := range result.Products {
		record := []string{
			product.ProductCode,
			product.Family,
			product.SuperFamily,
			formatKg(product.Position.DirectStock),
			formatKg(product.Position.ConvertibleStock),
			formatKg(product.Position.TotalStock),
		}
		for _, point := range product.Points {
			record = append(record, formatKg(point.ProjectedStock))
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return path, w.Error()
}

func formatKg(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
