package domain

import (
	"encoding/json"
	"time"
)

// Platform identifies the venue a market is listed on.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// Valid reports whether p is a known venue.
func (p Platform) Valid() bool {
	switch p {
	case PlatformPolymarket, PlatformKalshi:
		return true
	default:
		return false
	}
}

// Market is a binary prediction market quote as fetched from one platform.
// Prices are fractional probabilities; a zero price means no quote.
type Market struct {
	Platform  Platform        `json:"platform"`
	MarketID  string          `json:"market_id"`
	Question  string          `json:"question"`
	YesPrice  float64         `json:"yes_price"`
	NoPrice   float64         `json:"no_price"`
	Liquidity *float64        `json:"liquidity,omitempty"`
	Volume    *float64        `json:"volume,omitempty"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
	RawData   json.RawMessage `json:"raw_data,omitempty"`
}

// Key returns a platform-qualified identifier, unique across venues.
func (m Market) Key() string {
	return string(m.Platform) + ":" + m.MarketID
}

// Float returns a pointer to v. Used for optional market fields.
func Float(v float64) *float64 {
	return &v
}
