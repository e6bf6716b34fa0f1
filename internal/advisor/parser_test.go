package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlainJSON(t *testing.T) {
	rec, err := ParseRecommendation(`{"recommendation": "BUY", "confidence": "HIGH", "reasoning": "Momentum confirmed.", "key_risk": "BTC reversal."}`)
	require.NoError(t, err)
	assert.Equal(t, "BUY", rec.Recommendation)
	assert.Equal(t, "HIGH", rec.Confidence)
	assert.Equal(t, "Momentum confirmed.", rec.Reasoning)
	assert.Equal(t, "BTC reversal.", rec.KeyRisk)
}

func TestParseCodeFences(t *testing.T) {
	rec, err := ParseRecommendation("```json\n{\"recommendation\": \"HOLD\", \"confidence\": \"MEDIUM\", \"reasoning\": \"r\", \"key_risk\": \"k\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "HOLD", rec.Recommendation)
}

func TestParseThinkTags(t *testing.T) {
	rec, err := ParseRecommendation("<think>hmm, the RSI looks stretched...</think>\n{\"recommendation\": \"SELL\", \"confidence\": \"LOW\", \"reasoning\": \"r\", \"key_risk\": \"k\"}")
	require.NoError(t, err)
	assert.Equal(t, "SELL", rec.Recommendation)
}

func TestParseEmbeddedObject(t *testing.T) {
	rec, err := ParseRecommendation("Here is my analysis:\n{\"recommendation\": \"buy\", \"confidence\": \"high\", \"reasoning\": \"r\", \"key_risk\": \"k\"}\nHope that helps!")
	require.NoError(t, err)
	assert.Equal(t, "BUY", rec.Recommendation)
	assert.Equal(t, "HIGH", rec.Confidence)
}

func TestParseMissingConfidenceDefaultsLow(t *testing.T) {
	rec, err := ParseRecommendation(`{"recommendation": "HOLD", "reasoning": "r"}`)
	require.NoError(t, err)
	assert.Equal(t, "LOW", rec.Confidence)
}

func TestParseRejectsUnknownRecommendation(t *testing.T) {
	_, err := ParseRecommendation(`{"recommendation": "SHORT", "confidence": "HIGH"}`)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseRecommendation("I can't decide today, sorry.")
	assert.Error(t, err)
}

func TestMacroSummary(t *testing.T) {
	s := MacroSummary(map[string]any{
		"btc_dvol":             65.0,
		"fear_greed_value":     22.0,
		"fear_greed_label":     "Extreme Fear",
		"puell_multiple":       0.4,
		"vix":                  18.5,
		"btc_funding_rate_pct": 0.05,
	})
	assert.Contains(t, s, "(DVOL): 65 (elevated)")
	assert.Contains(t, s, "Fear & Greed: 22/100 (Extreme Fear)")
	assert.Contains(t, s, "miner capitulation zone")
	assert.Contains(t, s, "crowded long")
	assert.Contains(t, s, "VIX: 18.5")
}

func TestMacroSummaryEmpty(t *testing.T) {
	assert.Empty(t, MacroSummary(nil))
	assert.Empty(t, MacroSummary(map[string]any{"unknown_key": 1.0}))
}
