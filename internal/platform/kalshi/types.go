package kalshi

import (
	"encoding/json"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are in cents (0-100).
type KalshiMarket struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle"`
	Status       string  `json:"status"` // "active"/"open", "closed", "settled"
	YesBid       float64 `json:"yes_bid"`
	YesAsk       float64 `json:"yes_ask"`
	NoBid        float64 `json:"no_bid"`
	NoAsk        float64 `json:"no_ask"`
	LastPrice    float64 `json:"last_price"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"open_interest"`
	Category     string  `json:"category"`
	CloseTime    string  `json:"close_time"`
}

// marketsPage is one page of GET /markets.
type marketsPage struct {
	Markets []json.RawMessage `json:"markets"`
	Cursor  string            `json:"cursor"`
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// tradable reports whether a market status means quotes are live. The list
// endpoint is filtered with status=open but reports live markets as "active".
func tradable(status string) bool {
	return status == "active" || status == "open"
}

// ToDomainMarket converts a KalshiMarket to a domain.Market. It reports false
// when the market has no title, is not trading, or has no quote on either
// side. A side with no quote is filled as the complement of the other.
func (k *KalshiMarket) ToDomainMarket(raw json.RawMessage) (domain.Market, bool) {
	if k.Title == "" || !tradable(k.Status) {
		return domain.Market{}, false
	}

	yes := mid(k.YesBid, k.YesAsk)
	no := mid(k.NoBid, k.NoAsk)
	if yes == 0 && no == 0 {
		return domain.Market{}, false
	}
	if yes == 0 {
		yes = 1 - no
	} else if no == 0 {
		no = 1 - yes
	}

	dm := domain.Market{
		Platform:  domain.PlatformKalshi,
		MarketID:  k.Ticker,
		Question:  k.Title,
		YesPrice:  yes,
		NoPrice:   no,
		Liquidity: domain.Float(k.Volume + k.OpenInterest),
		Volume:    domain.Float(k.Volume),
		RawData:   raw,
	}
	if k.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, k.CloseTime); err == nil {
			t = t.UTC()
			dm.EndDate = &t
		}
	}
	return dm, true
}

// mid returns the bid/ask midpoint in dollars, or 0 when neither side quotes.
func mid(bidCents, askCents float64) float64 {
	bid, ask := bidCents/100, askCents/100
	if bid <= 0 && ask <= 0 {
		return 0
	}
	return (bid + ask) / 2
}
