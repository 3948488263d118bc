package conversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

func TestConvertibleStockSumsLinkedCones(t *testing.T) {
	r := NewResolver([]domain.ConversionRelation{
		{FinishedCode: "P1", RawCode: "C1"},
		{FinishedCode: "P1", RawCode: "C2"},
		{FinishedCode: "P2", RawCode: "C3"},
	})

	stock := map[string]float64{"C1": 10, "C2": 15, "C3": 100}
	assert.Equal(t, 25.0, r.ConvertibleStockFor("P1", stock))
	assert.Equal(t, 100.0, r.ConvertibleStockFor("P2", stock))
	assert.Equal(t, 0.0, r.ConvertibleStockFor("P3", stock))
}

func TestSharedConeCountsTowardEveryFinishedCode(t *testing.T) {
	r := NewResolver([]domain.ConversionRelation{
		{FinishedCode: "P1", RawCode: "C1"},
		{FinishedCode: "P2", RawCode: "C1"},
	})

	stock := map[string]float64{"C1": 40}
	assert.Equal(t, 40.0, r.ConvertibleStockFor("P1", stock))
	assert.Equal(t, 40.0, r.ConvertibleStockFor("P2", stock))
}

func TestResolverDropsBlanksAndDuplicates(t *testing.T) {
	r := NewResolver([]domain.ConversionRelation{
		{FinishedCode: " P1 ", RawCode: " C1 "},
		{FinishedCode: "P1", RawCode: "C1"},
		{FinishedCode: "", RawCode: "C2"},
		{FinishedCode: "P2", RawCode: ""},
	})

	stock := map[string]float64{"C1": 10}
	assert.Equal(t, 10.0, r.ConvertibleStockFor("P1", stock))
	assert.ElementsMatch(t, []string{"P1"}, r.FinishedCodes())
}

func TestIsRawCode(t *testing.T) {
	r := NewResolver([]domain.ConversionRelation{{FinishedCode: "P1", RawCode: "C1"}})
	assert.True(t, r.IsRawCode("C1"))
	assert.True(t, r.IsRawCode(" C1 "))
	assert.False(t, r.IsRawCode("P1"))
}
