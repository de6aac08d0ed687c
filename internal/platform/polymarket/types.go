package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "closed" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexPrices decodes outcomePrices, which Gamma sends either as a
// JSON-encoded string ("[\"0.45\",\"0.55\"]") or as a plain array. Entries
// may be strings or numbers. Malformed content decodes to nil rather than
// failing the whole market.
type flexPrices []float64

func (p *flexPrices) UnmarshalJSON(data []byte) error {
	*p = nil

	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		data = []byte(encoded)
	}

	var entries []flexFloat
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	out := make(flexPrices, len(entries))
	for i, e := range entries {
		out[i] = float64(e)
	}
	*p = out
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Only the fields the scanner reads are declared.
type APIMarket struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	ConditionID   string     `json:"conditionId"`
	Slug          string     `json:"slug"`
	Active        flexBool   `json:"active"`
	Closed        flexBool   `json:"closed"`
	OutcomePrices flexPrices `json:"outcomePrices"`
	LiquidityNum  *flexFloat `json:"liquidityNum"`
	VolumeNum     *flexFloat `json:"volumeNum"`
	EndDate       string     `json:"endDate"`
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market. It reports
// false for markets the scanner cannot quote: missing question, closed,
// anything other than two outcome prices, or both prices zero.
func (m *APIMarket) ToDomainMarket(raw json.RawMessage) (domain.Market, bool) {
	if m.Question == "" || bool(m.Closed) {
		return domain.Market{}, false
	}
	if len(m.OutcomePrices) != 2 {
		return domain.Market{}, false
	}
	yes, no := m.OutcomePrices[0], m.OutcomePrices[1]
	if yes == 0 && no == 0 {
		return domain.Market{}, false
	}

	dm := domain.Market{
		Platform: domain.PlatformPolymarket,
		MarketID: m.ConditionID,
		Question: m.Question,
		YesPrice: yes,
		NoPrice:  no,
		RawData:  raw,
	}
	if m.LiquidityNum != nil {
		dm.Liquidity = domain.Float(float64(*m.LiquidityNum))
	}
	if m.VolumeNum != nil {
		dm.Volume = domain.Float(float64(*m.VolumeNum))
	}
	if t, ok := parseTime(m.EndDate); ok {
		dm.EndDate = &t
	}
	return dm, true
}

// parseTime accepts RFC 3339 timestamps and bare dates.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
