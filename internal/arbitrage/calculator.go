// Package arbitrage decides whether a matched pair of binary markets admits a
// riskless two-leg hedge and, if so, which leg combination pays more.
package arbitrage

import (
	"io"
	"log/slog"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const (
	// Quotes whose yes+no sum falls outside this band are stale or corrupt.
	minQuoteSum = 0.95
	maxQuoteSum = 1.05

	DefaultMinProfitPct = 2.0
	DefaultMinLiquidity = 100.0
)

// Config holds the acceptance thresholds. A MinLiquidity of zero disables
// the liquidity gate.
type Config struct {
	MinProfitPct float64
	MinLiquidity float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{MinProfitPct: DefaultMinProfitPct, MinLiquidity: DefaultMinLiquidity}
}

// Calculator scores matched pairs. It holds no mutable state and is safe for
// concurrent use.
type Calculator struct {
	cfg    Config
	logger *slog.Logger
}

// NewCalculator returns a Calculator using cfg as given.
func NewCalculator(cfg Config, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Calculator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "arbitrage_calculator")),
	}
}

type scenario struct {
	strategy domain.Strategy
	cost     float64
}

// Calculate returns the better of the two hedges when both quotes are sane and
// the profit clears MinProfitPct. Rejections are policy, not errors, so the
// second return value is simply false.
func (c *Calculator) Calculate(a, b *domain.Market, matchConfidence float64) (domain.ArbitrageResult, bool) {
	if reason := c.reject(a, b); reason != "" {
		c.logger.Debug("pair rejected",
			slog.String("market_a", a.Key()),
			slog.String("market_b", b.Key()),
			slog.String("reason", reason),
		)
		return domain.ArbitrageResult{}, false
	}

	scenarios := [2]scenario{
		{domain.StrategyYesANoB, a.YesPrice + b.NoPrice},
		{domain.StrategyNoAYesB, a.NoPrice + b.YesPrice},
	}

	best := scenarios[0]
	bestProfit := (1.0 - best.cost) * 100
	for _, s := range scenarios[1:] {
		// Strictly greater: ties go to the first scenario.
		if p := (1.0 - s.cost) * 100; p > bestProfit {
			best, bestProfit = s, p
		}
	}

	if bestProfit < c.cfg.MinProfitPct {
		return domain.ArbitrageResult{}, false
	}

	return domain.ArbitrageResult{
		MarketA:         a,
		MarketB:         b,
		ProfitPct:       bestProfit,
		Strategy:        best.strategy,
		Cost:            best.cost,
		MatchConfidence: matchConfidence,
	}, true
}

// reject applies the validation gates in order and names the first that fails.
func (c *Calculator) reject(a, b *domain.Market) string {
	if a.YesPrice <= 0 || a.NoPrice <= 0 || b.YesPrice <= 0 || b.NoPrice <= 0 {
		return "missing quote"
	}
	if !saneSum(a) || !saneSum(b) {
		return "quote sum out of band"
	}
	if c.cfg.MinLiquidity > 0 && (thin(a, c.cfg.MinLiquidity) || thin(b, c.cfg.MinLiquidity)) {
		return "insufficient liquidity"
	}
	return ""
}

func saneSum(m *domain.Market) bool {
	s := m.YesPrice + m.NoPrice
	return s >= minQuoteSum && s <= maxQuoteSum
}

// thin reports liquidity below floor. Unknown liquidity is not thin.
func thin(m *domain.Market, floor float64) bool {
	return m.Liquidity != nil && *m.Liquidity < floor
}

// CalculateAll runs Calculate over every match, keeping input order.
func (c *Calculator) CalculateAll(matches []domain.MatchResult) []domain.ArbitrageResult {
	var out []domain.ArbitrageResult
	for _, m := range matches {
		if r, ok := c.Calculate(m.MarketA, m.MarketB, m.Confidence); ok {
			out = append(out, r)
		}
	}
	return out
}
