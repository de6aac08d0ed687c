package arbitrage

import (
	"fmt"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DescribeStrategy renders which side to buy on which platform. It only
// formats the prices already on the result.
func DescribeStrategy(r domain.ArbitrageResult) domain.StrategyDescription {
	if r.Strategy == domain.StrategyYesANoB {
		return domain.StrategyDescription{
			ActionA:     fmt.Sprintf("Buy Yes on %s (%.3f)", r.MarketA.Platform, r.MarketA.YesPrice),
			ActionB:     fmt.Sprintf("Buy No on %s (%.3f)", r.MarketB.Platform, r.MarketB.NoPrice),
			Explanation: "If event happens, profit from A. If not, profit from B.",
		}
	}
	return domain.StrategyDescription{
		ActionA:     fmt.Sprintf("Buy No on %s (%.3f)", r.MarketA.Platform, r.MarketA.NoPrice),
		ActionB:     fmt.Sprintf("Buy Yes on %s (%.3f)", r.MarketB.Platform, r.MarketB.YesPrice),
		Explanation: "If event happens, profit from B. If not, profit from A.",
	}
}
