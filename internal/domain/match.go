package domain

// MatchResult pairs one market from each platform. The markets are borrowed
// from the caller's input slices and must not be mutated.
type MatchResult struct {
	MarketA       *Market `json:"market_a"`
	MarketB       *Market `json:"market_b"`
	Confidence    float64 `json:"confidence"`
	FuzzyScore    float64 `json:"fuzzy_score"`
	SemanticScore float64 `json:"semantic_score"`
}

// Strategy names which side of each market the hedge buys.
type Strategy string

const (
	StrategyYesANoB Strategy = "yes_a_no_b"
	StrategyNoAYesB Strategy = "no_a_yes_b"
)

// ArbitrageResult is a matched pair whose combined pricing locks in a profit.
type ArbitrageResult struct {
	MarketA         *Market  `json:"market_a"`
	MarketB         *Market  `json:"market_b"`
	ProfitPct       float64  `json:"profit_pct"`
	Strategy        Strategy `json:"strategy"`
	Cost            float64  `json:"cost"`
	MatchConfidence float64  `json:"match_confidence"`
}

// StrategyDescription is the human readable form of an ArbitrageResult.
type StrategyDescription struct {
	ActionA     string `json:"action_a"`
	ActionB     string `json:"action_b"`
	Explanation string `json:"explanation"`
}
