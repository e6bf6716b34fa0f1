package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldReturnsNil(t *testing.T) {
	assert.Nil(t, Compute("HOLD", "HIGH", 100, 10, "neutral", 50000))
	assert.Nil(t, Compute("BUY", "HIGH", 100, 10, "neutral", 0))
	assert.Nil(t, Compute("BUY", "HIGH", 0, 10, "neutral", 50000))
}

func TestBuyDeploysTierPercentage(t *testing.T) {
	// neutral: deploy 6% of 50k = 3000, at $100/share -> 30 shares.
	g := Compute("BUY", "HIGH", 100, 0, "neutral", 50000)
	require.NotNil(t, g)
	assert.Equal(t, "BUY", g.Action)
	assert.Equal(t, 30, g.Shares)
	assert.Equal(t, 3000.0, g.Amount)
	assert.Equal(t, 6.0, g.PctOfCapital)
}

func TestBuyCappedByMaxPosition(t *testing.T) {
	// neutral max position = 10% of 50k = 5000; already holding 4500 worth.
	g := Compute("BUY", "HIGH", 100, 45, "neutral", 50000)
	require.NotNil(t, g)
	assert.Equal(t, 5, g.Shares) // only 500 of headroom left
}

func TestBuyAtMaxPosition(t *testing.T) {
	g := Compute("BUY", "HIGH", 100, 50, "neutral", 50000)
	require.NotNil(t, g)
	assert.Zero(t, g.Shares)
	assert.Equal(t, "Already at max position for tier", g.Note)
}

func TestBuyBelowConfidenceThreshold(t *testing.T) {
	g := Compute("BUY", "LOW", 100, 0, "conservative", 50000)
	require.NotNil(t, g)
	assert.Zero(t, g.Shares)
	assert.Contains(t, g.Note, "below HIGH threshold")
}

func TestSellTierShare(t *testing.T) {
	// neutral sells 75% of the position.
	g := Compute("SELL", "MEDIUM", 50, 100, "neutral", 50000)
	require.NotNil(t, g)
	assert.Equal(t, 75, g.Shares)
	assert.Equal(t, 3750.0, g.Amount)
	assert.Equal(t, 75.0, g.PctOfHolding)
}

func TestSellAtLeastOneShare(t *testing.T) {
	g := Compute("SELL", "MEDIUM", 50, 1, "conservative", 50000)
	require.NotNil(t, g)
	assert.Equal(t, 1, g.Shares)
}

func TestSellWithNoPosition(t *testing.T) {
	g := Compute("SELL", "MEDIUM", 50, 0, "neutral", 50000)
	require.NotNil(t, g)
	assert.Zero(t, g.Shares)
	assert.Equal(t, "No position held", g.Note)
}

func TestUnknownTierFallsBackToNeutral(t *testing.T) {
	g := Compute("BUY", "MEDIUM", 100, 0, "yolo", 50000)
	require.NotNil(t, g)
	assert.Equal(t, 30, g.Shares)
}

func TestValidTier(t *testing.T) {
	assert.True(t, ValidTier("neutral"))
	assert.False(t, ValidTier("reckless"))
}
