// Package conversion aggregates the cone (raw) stock that can be wound
// into each finished skein code.
package conversion

import (
	"strings"

	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// Resolver is a pure lookup over the static cone→skein relation table.
// When a cone feeds several finished codes its full stock is attributed to
// each of them independently; rollups over such groups count the shared
// cone more than once.
type Resolver struct {
	rawsByFinished map[string][]string
	finished       map[string]struct{}
	raws           map[string]struct{}
}

// NewResolver builds a resolver from the relation table. Blank codes and
// exact duplicate pairs are dropped.
func NewResolver(relations []domain.ConversionRelation) *Resolver {
	r := &Resolver{
		rawsByFinished: make(map[string][]string),
		finished:       make(map[string]struct{}),
		raws:           make(map[string]struct{}),
	}
	seen := make(map[domain.ConversionRelation]struct{}, len(relations))
	for _, rel := range relations {
		rel.FinishedCode = strings.TrimSpace(rel.FinishedCode)
		rel.RawCode = strings.TrimSpace(rel.RawCode)
		if rel.FinishedCode == "" || rel.RawCode == "" {
			continue
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		r.rawsByFinished[rel.FinishedCode] = append(r.rawsByFinished[rel.FinishedCode], rel.RawCode)
		r.finished[rel.FinishedCode] = struct{}{}
		r.raws[rel.RawCode] = struct{}{}
	}
	return r
}

// ConvertibleStockFor sums the available stock of every cone linked to the
// finished code. Cones without a stock record count as zero; a finished
// code with no relations yields zero and relies on direct stock alone.
func (r *Resolver) ConvertibleStockFor(finishedCode string, stockByCode map[string]float64) float64 {
	total := 0.0
	for _, raw := range r.rawsByFinished[strings.TrimSpace(finishedCode)] {
		total += stockByCode[raw]
	}
	return total
}

// FinishedCodes returns every finished code present in the relation table.
func (r *Resolver) FinishedCodes() []string {
	codes := make([]string, 0, len(r.finished))
	for code := range r.finished {
		codes = append(codes, code)
	}
	return codes
}

// IsRawCode reports whether the code appears on the cone side of any
// relation. Used to keep cones out of the finished-product universe.
func (r *Resolver) IsRawCode(code string) bool {
	_, ok := r.raws[strings.TrimSpace(code)]
	return ok
}
