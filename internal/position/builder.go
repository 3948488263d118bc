// Package position combines direct and convertible stock into the starting
// position a projection runs from.
package position

import (
	"fmt"

	"github.com/ukryl/stock-projection-app/backend-go/internal/conversion"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

// Builder assembles stock positions for one run. The safety stock is a
// single scalar applied uniformly to every product; the policy decides its
// sign: buffer adds it on top of the position, reserve withholds it.
type Builder struct {
	resolver    *conversion.Resolver
	safetyStock float64
	policy      domain.SafetyStockPolicy
}

// NewBuilder validates the run parameters and returns a Builder.
func NewBuilder(resolver *conversion.Resolver, safetyStock float64, policy domain.SafetyStockPolicy) (*Builder, error) {
	if safetyStock < 0 {
		return nil, fmt.Errorf("safety stock must be non-negative, got %v", safetyStock)
	}
	switch policy {
	case domain.SafetyBuffer, domain.SafetyReserve:
	case "":
		policy = domain.SafetyBuffer
	default:
		return nil, fmt.Errorf("unknown safety stock policy %q", policy)
	}
	return &Builder{resolver: resolver, safetyStock: safetyStock, policy: policy}, nil
}

// Build computes the position for one product. A code absent from both the
// stock snapshot and the relation table still yields a position: all-zero
// stock plus the safety adjustment.
func (b *Builder) Build(productCode string, stockByCode map[string]float64) domain.StockPosition {
	direct := stockByCode[productCode]
	convertible := b.resolver.ConvertibleStockFor(productCode, stockByCode)

	adjustment := b.safetyStock
	if b.policy == domain.SafetyReserve {
		adjustment = -b.safetyStock
	}

	return domain.StockPosition{
		ProductCode:      productCode,
		DirectStock:      direct,
		ConvertibleStock: convertible,
		TotalStock:       direct + convertible + adjustment,
	}
}
