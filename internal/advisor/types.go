package advisor

import (
	"github.com/camuig/miner-advisor/internal/sizing"
	"github.com/camuig/miner-advisor/internal/technicals"
)

// Recommendation is the advisor's parsed verdict for one ticker.
type Recommendation struct {
	Recommendation string `json:"recommendation"` // BUY, SELL or HOLD
	Confidence     string `json:"confidence"`     // LOW, MEDIUM or HIGH
	Reasoning      string `json:"reasoning"`
	KeyRisk        string `json:"key_risk"`
}

// TickerResult is everything an analysis run produced for one ticker.
type TickerResult struct {
	*technicals.Signals
	Recommendation   string           `json:"recommendation,omitempty"`
	Confidence       string           `json:"confidence,omitempty"`
	Reasoning        string           `json:"reasoning,omitempty"`
	KeyRisk          string           `json:"key_risk,omitempty"`
	BTCTrend         string           `json:"btc_trend,omitempty"`
	PositionGuidance *sizing.Guidance `json:"position_guidance"`
}

// RunResult is the output of one full analysis cycle.
type RunResult struct {
	Tickers   map[string]*TickerResult `json:"tickers"`
	Macro     map[string]any           `json:"macro"`
	MacroBias string                   `json:"macro_bias,omitempty"`
}
