package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

var rule = strings.Repeat("=", 70)

// FormatOpportunity renders an opportunity as the plain-text block used on
// stdout and in notifications.
func FormatOpportunity(r domain.ArbitrageResult) string {
	desc := arbitrage.DescribeStrategy(r)

	lines := []string{
		"\n" + rule,
		"ARBITRAGE OPPORTUNITY FOUND",
		rule,
		fmt.Sprintf("Match Confidence: %.1f%%", r.MatchConfidence*100),
	}
	lines = append(lines, marketLines(r.MarketA)...)
	lines = append(lines, marketLines(r.MarketB)...)
	lines = append(lines,
		"\nSTRATEGY:",
		"  1. "+desc.ActionA,
		"  2. "+desc.ActionB,
		"  "+desc.Explanation,
		fmt.Sprintf("\nTotal Cost: %.3f", r.Cost),
		fmt.Sprintf("Guaranteed Profit: %.3f (%.2f%%)", 1-r.Cost, r.ProfitPct),
		rule,
	)
	return strings.Join(lines, "\n")
}

func marketLines(m *domain.Market) []string {
	liq := ""
	if m.Liquidity != nil && *m.Liquidity != 0 {
		liq = "  Liquidity: $" + groupThousands(*m.Liquidity)
	}
	return []string{
		fmt.Sprintf("\n%s: \"%s\"", strings.ToUpper(string(m.Platform)), m.Question),
		fmt.Sprintf("  Yes: %.3f | No: %.3f", m.YesPrice, m.NoPrice),
		liq,
	}
}

// groupThousands formats v with no decimals and comma separators.
func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}
