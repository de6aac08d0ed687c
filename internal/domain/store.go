package domain

import (
	"context"
	"time"
)

// MarketStore is the durable catalog of the latest quote seen per market.
type MarketStore interface {
	UpsertBatch(ctx context.Context, markets []Market) error
	// ListFresh returns markets of the given platform updated at or after
	// since, most recently updated first.
	ListFresh(ctx context.Context, platform Platform, since time.Time, limit int) ([]Market, error)
}
