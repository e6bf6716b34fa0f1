package outcome

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/miner-advisor/internal/storage"
)

func newTestScorer(t *testing.T) (*Scorer, *storage.Repository) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "outcome_test.db"))
	require.NoError(t, err)
	repo := storage.NewRepository(db)
	return NewScorer(repo), repo
}

func daysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format(storage.DateFormat)
}

func saveAnalysis(t *testing.T, repo *storage.Repository, ticker, runDate, rec string, entry float64) {
	t.Helper()
	signals := `{"current_price": ` + strconv.FormatFloat(entry, 'f', -1, 64) + `, "rsi": 55.2}`
	if entry == 0 {
		signals = `{"rsi": 55.2}`
	}
	require.NoError(t, repo.SaveAnalysis(&storage.AnalysisRecord{
		RunDate:        runDate,
		Ticker:         ticker,
		Signals:        signals,
		Recommendation: rec,
		Reasoning:      "test",
		Confidence:     "MEDIUM",
	}))
}

func TestBuyCorrect(t *testing.T) {
	scorer, repo := newTestScorer(t)

	runDate := daysAgo(20)
	saveAnalysis(t, repo, "MARA", runDate, "BUY", 100)

	// First bar at the horizon lands two days after the target (weekend skip).
	exitDate := time.Now().AddDate(0, 0, -20+HorizonDays+2).Format(storage.DateFormat)
	require.NoError(t, repo.UpsertPrices("MARA", []storage.PriceBar{
		{Date: exitDate, Close: 110},
	}))

	history, err := scorer.History("MARA", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].ReturnPct)
	assert.Equal(t, 10.0, *history[0].ReturnPct)
	assert.Equal(t, Correct, history[0].Outcome)
}

func TestSellCorrectOnDrop(t *testing.T) {
	scorer, repo := newTestScorer(t)

	saveAnalysis(t, repo, "RIOT", daysAgo(30), "SELL", 50)
	require.NoError(t, repo.UpsertPrices("RIOT", []storage.PriceBar{
		{Date: daysAgo(30 - HorizonDays), Close: 45},
	}))

	history, err := scorer.History("RIOT", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, -10.0, *history[0].ReturnPct)
	assert.Equal(t, Correct, history[0].Outcome)
}

func TestHoldDeadBand(t *testing.T) {
	scorer, repo := newTestScorer(t)

	saveAnalysis(t, repo, "WGMI", daysAgo(30), "HOLD", 100)
	require.NoError(t, repo.UpsertPrices("WGMI", []storage.PriceBar{
		{Date: daysAgo(30 - HorizonDays), Close: 103},
	}))

	history, err := scorer.History("WGMI", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3.0, *history[0].ReturnPct)
	assert.Equal(t, Correct, history[0].Outcome)
}

func TestHoldOutsideBandIncorrect(t *testing.T) {
	scorer, repo := newTestScorer(t)

	saveAnalysis(t, repo, "WGMI", daysAgo(30), "HOLD", 100)
	require.NoError(t, repo.UpsertPrices("WGMI", []storage.PriceBar{
		{Date: daysAgo(30 - HorizonDays), Close: 112},
	}))

	history, err := scorer.History("WGMI", 10)
	require.NoError(t, err)
	assert.Equal(t, Incorrect, history[0].Outcome)
}

func TestPendingWhenHorizonInFuture(t *testing.T) {
	scorer, repo := newTestScorer(t)

	saveAnalysis(t, repo, "BITX", daysAgo(1), "BUY", 100)
	require.NoError(t, repo.UpsertPrices("BITX", []storage.PriceBar{
		{Date: daysAgo(0), Close: 200},
	}))

	history, err := scorer.History("BITX", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].ReturnPct)
	assert.Equal(t, Pending, history[0].Outcome)
}

func TestPendingWhenNoExitPriceStored(t *testing.T) {
	scorer, repo := newTestScorer(t)

	saveAnalysis(t, repo, "MSTX", daysAgo(30), "BUY", 100)
	// Only a bar before the horizon exists.
	require.NoError(t, repo.UpsertPrices("MSTX", []storage.PriceBar{
		{Date: daysAgo(29), Close: 101},
	}))

	history, err := scorer.History("MSTX", 10)
	require.NoError(t, err)
	assert.Equal(t, Pending, history[0].Outcome)
}

func TestPendingWhenEntryPriceMissing(t *testing.T) {
	scorer, repo := newTestScorer(t)

	saveAnalysis(t, repo, "CIFU", daysAgo(30), "BUY", 0)
	require.NoError(t, repo.UpsertPrices("CIFU", []storage.PriceBar{
		{Date: daysAgo(30 - HorizonDays), Close: 120},
	}))

	history, err := scorer.History("CIFU", 10)
	require.NoError(t, err)
	assert.Nil(t, history[0].ReturnPct)
	assert.Equal(t, Pending, history[0].Outcome)
}

func TestScoringIsIdempotent(t *testing.T) {
	scorer, repo := newTestScorer(t)

	saveAnalysis(t, repo, "MARA", daysAgo(30), "BUY", 100)
	require.NoError(t, repo.UpsertPrices("MARA", []storage.PriceBar{
		{Date: daysAgo(30 - HorizonDays), Close: 110},
	}))

	first, err := scorer.History("MARA", 10)
	require.NoError(t, err)
	second, err := scorer.History("MARA", 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
