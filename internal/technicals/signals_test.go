package technicals

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/miner-advisor/internal/storage"
)

func makeBars(ticker string, closes []float64) []storage.PriceBar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]storage.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = storage.PriceBar{
			Ticker: ticker,
			Date:   start.AddDate(0, 0, i).Format(storage.DateFormat),
			Open:   c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return bars
}

func flatCloses(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestInsufficientData(t *testing.T) {
	s := ComputeFromBars("MARA", makeBars("MARA", flatCloses(10, 100)), nil)
	assert.NotEmpty(t, s.Error)
	assert.Zero(t, s.CurrentPrice)
}

func TestFlatSeries(t *testing.T) {
	s := ComputeFromBars("MARA", makeBars("MARA", flatCloses(60, 100)), nil)
	require.Empty(t, s.Error)

	assert.Equal(t, 100.0, s.CurrentPrice)
	require.NotNil(t, s.SMA20)
	assert.Equal(t, 100.0, *s.SMA20)
	require.NotNil(t, s.SMA50)
	assert.Equal(t, 100.0, *s.SMA50)
	require.NotNil(t, s.AboveSMA20)
	assert.False(t, *s.AboveSMA20)
	require.NotNil(t, s.WeekReturnPct)
	assert.Equal(t, 0.0, *s.WeekReturnPct)
	require.NotNil(t, s.MonthReturnPct)
	assert.Equal(t, 0.0, *s.MonthReturnPct)
}

func TestUptrendSignals(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i) // steady climb
	}
	s := ComputeFromBars("RIOT", makeBars("RIOT", closes), nil)
	require.Empty(t, s.Error)

	assert.Equal(t, 159.0, s.CurrentPrice)
	require.NotNil(t, s.AboveSMA20)
	assert.True(t, *s.AboveSMA20)
	require.NotNil(t, s.AboveSMA50)
	assert.True(t, *s.AboveSMA50)
	require.NotNil(t, s.RSI)
	assert.Greater(t, *s.RSI, 70.0) // monotonic climb pins RSI high
	require.NotNil(t, s.WeekReturnPct)
	assert.InDelta(t, (159.0/154.0-1)*100, *s.WeekReturnPct, 0.01)
}

func TestBTCCorrelationPerfect(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7) + float64(i)/3
	}
	bars := makeBars("WGMI", closes)
	btc := makeBars("BTC", closes) // identical moves, same dates

	s := ComputeFromBars("WGMI", bars, btc)
	require.NotNil(t, s.BTCCorrelation)
	assert.InDelta(t, 1.0, *s.BTCCorrelation, 0.001)
}

func TestBTCCorrelationNeedsOverlap(t *testing.T) {
	bars := makeBars("WGMI", flatCloses(40, 100))
	// BTC bars on disjoint dates: no joint observations.
	btc := makeBars("BTC", flatCloses(40, 50000))
	for i := range btc {
		btc[i].Date = fmt.Sprintf("1999-01-%02d", i%28+1)
	}

	s := ComputeFromBars("WGMI", bars, btc)
	assert.Nil(t, s.BTCCorrelation)
}

func TestAddRelativeStrength(t *testing.T) {
	w1, w2 := 10.0, -2.0
	m1 := 4.0
	all := map[string]*Signals{
		"A": {Ticker: "A", WeekReturnPct: &w1, MonthReturnPct: &m1},
		"B": {Ticker: "B", WeekReturnPct: &w2},
		"C": {Ticker: "C"}, // no returns: left unset
	}

	AddRelativeStrength(all)

	require.NotNil(t, all["A"].VsSector1W)
	assert.Equal(t, 6.0, *all["A"].VsSector1W) // 10 - avg(10,-2)=4
	require.NotNil(t, all["B"].VsSector1W)
	assert.Equal(t, -6.0, *all["B"].VsSector1W)
	require.NotNil(t, all["A"].VsSector1M)
	assert.Equal(t, 0.0, *all["A"].VsSector1M) // only member of the average
	assert.Nil(t, all["C"].VsSector1W)
}
