// Package hierarchy resolves product codes into the two-level
// family / super-family taxonomy used by every grouping operation.
package hierarchy

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// Index is the in-memory lookup table built from the hierarchy reference
// data. Lookups never fail: unknown codes resolve to the sentinel values.
type Index struct {
	entries map[string]domain.HierarchyEntry

	mu     sync.Mutex
	warned map[string]struct{}
}

// NewIndex builds an index from the reference entries. Later duplicates for
// the same product code overwrite earlier ones.
func NewIndex(entries []domain.HierarchyEntry) *Index {
	idx := &Index{
		entries: make(map[string]domain.HierarchyEntry, len(entries)),
		warned:  make(map[string]struct{}),
	}
	for _, e := range entries {
		code := strings.TrimSpace(e.ProductCode)
		if code == "" {
			continue
		}
		if e.Family == "" {
			e.Family = domain.NoFamily
		}
		if e.SuperFamily == "" {
			e.SuperFamily = domain.NoSuperFamily
		}
		e.ProductCode = code
		idx.entries[code] = e
	}
	return idx
}

// Resolve returns the family and super family for a product code, falling
// back to the sentinels when the code is not in the reference table. A run
// resolves each product several times; the data-quality warning fires once
// per unknown code.
func (idx *Index) Resolve(productCode string) (family, superFamily string) {
	code := strings.TrimSpace(productCode)
	if e, ok := idx.entries[code]; ok {
		return e.Family, e.SuperFamily
	}
	idx.warnOnce(code)
	return domain.NoFamily, domain.NoSuperFamily
}

func (idx *Index) warnOnce(code string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, done := idx.warned[code]; done {
		return
	}
	idx.warned[code] = struct{}{}
	log.Warn().Str("product_code", code).Msg("product missing from hierarchy reference")
}

// GroupKey returns the grouping key for a product at the given level.
func (idx *Index) GroupKey(productCode string, level domain.GroupingLevel) string {
	switch level {
	case domain.GroupByProduct:
		return productCode
	case domain.GroupByFamily:
		family, _ := idx.Resolve(productCode)
		return family
	default:
		_, superFamily := idx.Resolve(productCode)
		return superFamily
	}
}

// Len returns the number of reference entries.
func (idx *Index) Len() int { return len(idx.entries) }
