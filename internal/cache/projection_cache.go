package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ukryl/stock-projection-app/backend-go/internal/config"
	"github.com/ukryl/stock-projection-app/backend-go/internal/domain"
)

const (
	projectionKeyPrefix     = "projection"
	projectionScanBatchSize = 100
)

// ProjectionCache shields the projection read endpoints from repeated
// database hits. Entries are invalidated wholesale after each new run.
type ProjectionCache interface {
	GetGroupFlows(ctx context.Context, filter domain.ProjectionFilter) ([]domain.GroupFlow, bool, error)
	SetGroupFlows(ctx context.Context, filter domain.ProjectionFilter, groups []domain.GroupFlow) error
	GetRecommendations(ctx context.Context, filter domain.ProjectionFilter) ([]domain.Recommendation, bool, error)
	SetRecommendations(ctx context.Context, filter domain.ProjectionFilter, recs []domain.Recommendation) error
	GetKPIs(ctx context.Context, filter domain.ProjectionFilter) (*domain.KPISummary, bool, error)
	SetKPIs(ctx context.Context, filter domain.ProjectionFilter, summary *domain.KPISummary) error
	InvalidateAll(ctx context.Context) error
}

type redisProjectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopProjectionCache struct{}

// NewProjectionCache returns a redis-backed cache, or a noop cache when
// caching is disabled.
func NewProjectionCache(cfg config.CacheConfig) (ProjectionCache, error) {
	if !cfg.Enabled {
		return &noopProjectionCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisProjectionCache{client: client, ttl: ttl}, nil
}

// NewNoopProjectionCache returns a cache that never hits.
func NewNoopProjectionCache() ProjectionCache {
	return &noopProjectionCache{}
}

func (c *redisProjectionCache) GetGroupFlows(ctx context.Context, filter domain.ProjectionFilter) ([]domain.GroupFlow, bool, error) {
	var groups []domain.GroupFlow
	ok, err := c.get(ctx, buildKey("flows", filter), &groups)
	return groups, ok, err
}

func (c *redisProjectionCache) SetGroupFlows(ctx context.Context, filter domain.ProjectionFilter, groups []domain.GroupFlow) error {
	return c.set(ctx, buildKey("flows", filter), groups)
}

func (c *redisProjectionCache) GetRecommendations(ctx context.Context, filter domain.ProjectionFilter) ([]domain.Recommendation, bool, error) {
	var recs []domain.Recommendation
	ok, err := c.get(ctx, buildKey("recommendations", filter), &recs)
	return recs, ok, err
}

func (c *redisProjectionCache) SetRecommendations(ctx context.Context, filter domain.ProjectionFilter, recs []domain.Recommendation) error {
	return c.set(ctx, buildKey("recommendations", filter), recs)
}

func (c *redisProjectionCache) GetKPIs(ctx context.Context, filter domain.ProjectionFilter) (*domain.KPISummary, bool, error) {
	var summary domain.KPISummary
	ok, err := c.get(ctx, buildKey("kpis", filter), &summary)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &summary, true, nil
}

func (c *redisProjectionCache) SetKPIs(ctx context.Context, filter domain.ProjectionFilter, summary *domain.KPISummary) error {
	return c.set(ctx, buildKey("kpis", filter), summary)
}

func (c *redisProjectionCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, projectionKeyPrefix, projectionScanBatchSize)
}

func (c *redisProjectionCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decode projection cache entry: %w", err)
	}
	return true, nil
}

func (c *redisProjectionCache) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode projection cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopProjectionCache) GetGroupFlows(ctx context.Context, filter domain.ProjectionFilter) ([]domain.GroupFlow, bool, error) {
	return nil, false, nil
}

func (n *noopProjectionCache) SetGroupFlows(ctx context.Context, filter domain.ProjectionFilter, groups []domain.GroupFlow) error {
	return nil
}

func (n *noopProjectionCache) GetRecommendations(ctx context.Context, filter domain.ProjectionFilter) ([]domain.Recommendation, bool, error) {
	return nil, false, nil
}

func (n *noopProjectionCache) SetRecommendations(ctx context.Context, filter domain.ProjectionFilter, recs []domain.Recommendation) error {
	return nil
}

func (n *noopProjectionCache) GetKPIs(ctx context.Context, filter domain.ProjectionFilter) (*domain.KPISummary, bool, error) {
	return nil, false, nil
}

func (n *noopProjectionCache) SetKPIs(ctx context.Context, filter domain.ProjectionFilter, summary *domain.KPISummary) error {
	return nil
}

func (n *noopProjectionCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildKey(kind string, filter domain.ProjectionFilter) string {
	return fmt.Sprintf("%s:%s:%s", projectionKeyPrefix, kind, filterHash(filter))
}

func filterHash(filter domain.ProjectionFilter) string {
	parts := []string{}

	if filter.RunID != 0 {
		parts = append(parts, fmt.Sprintf("run_id=%d", filter.RunID))
	}
	if filter.Priority != "" {
		parts = append(parts, "priority="+strings.ToLower(strings.TrimSpace(string(filter.Priority))))
	}
	if len(filter.GroupKeys) > 0 {
		keys := append([]string(nil), filter.GroupKeys...)
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		sort.Strings(keys)
		parts = append(parts, "group_keys="+strings.Join(keys, ","))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
