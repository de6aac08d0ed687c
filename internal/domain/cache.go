package domain

import (
	"context"
	"time"
)

// MarketListCache holds the most recent fetched market list per platform for
// a short time so repeated scans do not hammer the venue APIs.
type MarketListCache interface {
	SetMarkets(ctx context.Context, platform Platform, markets []Market) error
	// GetMarkets returns ErrNotFound when nothing fresh is cached.
	GetMarkets(ctx context.Context, platform Platform) ([]Market, error)
}

// EmbeddingCache stores embedding vectors keyed by model and text.
type EmbeddingCache interface {
	// GetEmbeddings returns the vectors found for texts; misses are absent
	// from the map.
	GetEmbeddings(ctx context.Context, model string, texts []string) (map[string][]float32, error)
	SetEmbeddings(ctx context.Context, model string, vectors map[string][]float32, ttl time.Duration) error
}

// ChannelArb carries one JSON-encoded Opportunity per message.
const ChannelArb = "arb"

// SignalBus provides pub/sub between the scanner and API clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LockManager provides distributed mutual exclusion, used so only one
// replica scans per interval.
type LockManager interface {
	// Acquire returns an unlock func, or ErrLockHeld if another holder has
	// the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
