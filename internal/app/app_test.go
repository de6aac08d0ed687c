package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, domain.ScanReport{})
	if got := buf.String(); got != "No arbitrage opportunities found.\n" {
		t.Errorf("empty report printed %q", got)
	}

	a := domain.Market{Platform: domain.PlatformPolymarket, Question: "Q?", YesPrice: 0.35, NoPrice: 0.65}
	b := domain.Market{Platform: domain.PlatformKalshi, Question: "Q?", YesPrice: 0.62, NoPrice: 0.38}
	buf.Reset()
	printReport(&buf, domain.ScanReport{Opportunities: []domain.Opportunity{{
		Result: domain.ArbitrageResult{
			MarketA: &a, MarketB: &b, ProfitPct: 27, Strategy: domain.StrategyYesANoB, Cost: 0.73,
		},
	}}})
	out := buf.String()
	if !strings.HasPrefix(out, "Found 1 arbitrage opportunities\n") {
		t.Errorf("missing header: %q", out)
	}
	if strings.Count(out, "ARBITRAGE OPPORTUNITY FOUND") != 1 {
		t.Errorf("expected one block: %q", out)
	}
}

func TestLockTTL(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, 5 * time.Minute},
		{30 * time.Second, 30 * time.Second},
		{time.Hour, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := lockTTL(tt.in); got != tt.want {
			t.Errorf("lockTTL(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
