package domain

import "time"

// Opportunity is an ArbitrageResult together with its rendered description,
// the unit published on the bus and served by the API.
type Opportunity struct {
	ScanID      string              `json:"scan_id"`
	Result      ArbitrageResult     `json:"result"`
	Description StrategyDescription `json:"description"`
	DetectedAt  time.Time           `json:"detected_at"`
}

// ScanReport summarises one detection run.
type ScanReport struct {
	ScanID          string        `json:"scan_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	PolymarketCount int           `json:"polymarket_count"`
	KalshiCount     int           `json:"kalshi_count"`
	MatchCount      int           `json:"match_count"`
	SemanticEnabled bool          `json:"semantic_enabled"`
	Opportunities   []Opportunity `json:"opportunities"`
}

// MarketSnapshot is the archived record of the quotes a scan worked from.
type MarketSnapshot struct {
	ScanID     string    `json:"scan_id"`
	CapturedAt time.Time `json:"captured_at"`
	Polymarket []Market  `json:"polymarket"`
	Kalshi     []Market  `json:"kalshi"`
}
