package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultMarketListTTL is how long a fetched market list is served from cache.
const DefaultMarketListTTL = 10 * time.Second

// MarketListCache implements domain.MarketListCache. Each platform's list is
// one JSON string value with a short TTL.
//
// Key schema:
//
//	markets:{platform} - JSON array of domain.Market
type MarketListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketListCache creates a MarketListCache. A non-positive ttl selects
// DefaultMarketListTTL.
func NewMarketListCache(c *Client, ttl time.Duration) *MarketListCache {
	if ttl <= 0 {
		ttl = DefaultMarketListTTL
	}
	return &MarketListCache{rdb: c.Underlying(), ttl: ttl}
}

func marketListKey(p domain.Platform) string { return "markets:" + string(p) }

// SetMarkets replaces the cached list for platform.
func (mc *MarketListCache) SetMarkets(ctx context.Context, platform domain.Platform, markets []domain.Market) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal %s markets: %w", platform, err)
	}
	if err := mc.rdb.Set(ctx, marketListKey(platform), data, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s markets: %w", platform, err)
	}
	return nil
}

// GetMarkets returns the cached list for platform, or domain.ErrNotFound when
// it has expired or was never set.
func (mc *MarketListCache) GetMarkets(ctx context.Context, platform domain.Platform) ([]domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketListKey(platform)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get %s markets: %w", platform, err)
	}

	var markets []domain.Market
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("redis: unmarshal %s markets: %w", platform, err)
	}
	return markets, nil
}

// Compile-time interface check.
var _ domain.MarketListCache = (*MarketListCache)(nil)
