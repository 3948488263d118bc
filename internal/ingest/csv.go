package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// table is one parsed CSV file: the raw header plus all data records.
type table struct {
	path    string
	header  []string
	records [][]string
}

func readTable(path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	records := make([][]string, 0)
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read record in %s: %w", path, err)
		}
		records = append(records, record)
	}

	return &table{path: path, header: header, records: records}, nil
}

// colIndex finds a column by any of its known header spellings, compared
// after normalization so "Super Familia", "super_familia" and
// "SUPER-FAMILIA" all match.
func (t *table) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// requireCols returns an error naming the first missing column group.
func (t *table) requireCols(groups ...[]string) error {
	for _, names := range groups {
		if t.colIndex(names...) == -1 {
			return fmt.Errorf("%s: missing required column %q", t.path, names[0])
		}
	}
	return nil
}

func get(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseFloat reads a numeric cell, tolerating thousands separators. A blank
// cell is zero; anything else that fails to parse is an error so silent
// data corruption cannot flow into a projection.
func parseFloat(record []string, idx int) (float64, error) {
	v := get(record, idx)
	if v == "" {
		return 0, nil
	}
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", get(record, idx))
	}
	return f, nil
}
