package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

func TestFilterHashIsStable(t *testing.T) {
	a := domain.ProjectionFilter{RunID: 3, Priority: domain.PriorityHigh, GroupKeys: []string{"B", "A"}}
	b := domain.ProjectionFilter{RunID: 3, Priority: domain.PriorityHigh, GroupKeys: []string{"A", "B"}}

	assert.Equal(t, filterHash(a), filterHash(b))
}

func TestFilterHashDistinguishesFilters(t *testing.T) {
	base := domain.ProjectionFilter{RunID: 3}
	other := domain.ProjectionFilter{RunID: 4}
	assert.NotEqual(t, filterHash(base), filterHash(other))

	withPriority := domain.ProjectionFilter{RunID: 3, Priority: domain.PriorityLow}
	assert.NotEqual(t, filterHash(base), filterHash(withPriority))
}

func TestEmptyFilterUsesDefaultKey(t *testing.T) {
	assert.Equal(t, "default", filterHash(domain.ProjectionFilter{}))
	assert.Equal(t, "projection:kpis:default", buildKey("kpis", domain.ProjectionFilter{}))
}

func TestNoopCacheNeverHits(t *testing.T) {
	c := NewNoopProjectionCache()
	ctx := context.Background()
	filter := domain.ProjectionFilter{}

	require.NoError(t, c.SetGroupFlows(ctx, filter, []domain.GroupFlow{{GroupKey: "A"}}))
	groups, ok, err := c.GetGroupFlows(ctx, filter)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, groups)

	require.NoError(t, c.InvalidateAll(ctx))
}
