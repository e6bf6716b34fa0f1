// Package technicals computes the per-ticker indicator snapshot fed to the
// advisor and stored with every analysis record.
package technicals

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/camuig/miner-advisor/internal/storage"
)

const (
	smaShortPeriod = 20
	smaLongPeriod  = 50
	rsiPeriod      = 14
	minBars        = 20
)

// Signals is one ticker's indicator snapshot. Nil pointer fields mean the
// indicator could not be computed from the available history. CurrentPrice
// is the entry price later used by outcome scoring.
type Signals struct {
	Ticker         string   `json:"ticker"`
	Error          string   `json:"error,omitempty"`
	CurrentPrice   float64  `json:"current_price,omitempty"`
	SMA20          *float64 `json:"sma20"`
	SMA50          *float64 `json:"sma50"`
	AboveSMA20     *bool    `json:"above_sma20"`
	AboveSMA50     *bool    `json:"above_sma50"`
	RSI            *float64 `json:"rsi"`
	WeekReturnPct  *float64 `json:"week_return_pct"`
	MonthReturnPct *float64 `json:"month_return_pct"`
	BTCCorrelation *float64 `json:"btc_correlation"`
	VsSector1W     *float64 `json:"vs_sector_1w"`
	VsSector1M     *float64 `json:"vs_sector_1m"`
}

// ComputeSignals loads cached prices for ticker (plus BTC for correlation)
// and derives the snapshot.
func ComputeSignals(repo *storage.Repository, ticker string) (*Signals, error) {
	bars, err := repo.Prices(ticker, 100)
	if err != nil {
		return nil, err
	}
	btcBars, err := repo.Prices("BTC", 60)
	if err != nil {
		return nil, err
	}
	return ComputeFromBars(ticker, bars, btcBars), nil
}

// ComputeFromBars derives the snapshot from price history already in memory.
func ComputeFromBars(ticker string, bars, btcBars []storage.PriceBar) *Signals {
	if len(bars) < minBars {
		return &Signals{Ticker: ticker, Error: "Insufficient data — run a refresh first."}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	current := closes[len(closes)-1]

	s := &Signals{Ticker: ticker, CurrentPrice: round2(current)}

	sma20 := last(talib.Sma(closes, smaShortPeriod))
	if sma20 != nil {
		v := round2(*sma20)
		s.SMA20 = &v
		above := current > *sma20
		s.AboveSMA20 = &above
	}
	if len(closes) >= smaLongPeriod {
		if sma50 := last(talib.Sma(closes, smaLongPeriod)); sma50 != nil {
			v := round2(*sma50)
			s.SMA50 = &v
			above := current > *sma50
			s.AboveSMA50 = &above
		}
	}
	if len(closes) > rsiPeriod {
		if rsi := last(talib.Rsi(closes, rsiPeriod)); rsi != nil {
			v := round2(*rsi)
			s.RSI = &v
		}
	}

	// 5 and 21 trading days back, matching one calendar week/month.
	if len(closes) >= 6 {
		v := round2((current/closes[len(closes)-6] - 1) * 100)
		s.WeekReturnPct = &v
	}
	if len(closes) >= 22 {
		v := round2((current/closes[len(closes)-22] - 1) * 100)
		s.MonthReturnPct = &v
	}

	s.BTCCorrelation = btcCorrelation(bars, btcBars)
	return s
}

// btcCorrelation is the correlation of daily returns against BTC over the
// overlapping window, nil when fewer than 10 joint observations exist.
func btcCorrelation(bars, btcBars []storage.PriceBar) *float64 {
	if len(bars) < 30 || len(btcBars) < 30 {
		return nil
	}
	btcByDate := make(map[string]float64, len(btcBars))
	for _, b := range btcBars {
		btcByDate[b.Date] = b.Close
	}

	var tickerCloses, btcCloses []float64
	for _, b := range bars {
		if btc, ok := btcByDate[b.Date]; ok {
			tickerCloses = append(tickerCloses, b.Close)
			btcCloses = append(btcCloses, btc)
		}
	}
	if len(tickerCloses) < 11 {
		return nil
	}

	tickerReturns := pctChanges(tickerCloses)
	btcReturns := pctChanges(btcCloses)
	corr := stat.Correlation(tickerReturns, btcReturns, nil)
	if math.IsNaN(corr) {
		return nil
	}
	v := round3(corr)
	return &v
}

// AddRelativeStrength annotates each ticker with its week/month return
// delta against the average of the whole set.
func AddRelativeStrength(all map[string]*Signals) map[string]*Signals {
	var weekSum, monthSum float64
	var weekN, monthN int
	for _, s := range all {
		if s.WeekReturnPct != nil {
			weekSum += *s.WeekReturnPct
			weekN++
		}
		if s.MonthReturnPct != nil {
			monthSum += *s.MonthReturnPct
			monthN++
		}
	}

	for _, s := range all {
		if s.WeekReturnPct != nil && weekN > 0 {
			v := round2(*s.WeekReturnPct - weekSum/float64(weekN))
			s.VsSector1W = &v
		}
		if s.MonthReturnPct != nil && monthN > 0 {
			v := round2(*s.MonthReturnPct - monthSum/float64(monthN))
			s.VsSector1M = &v
		}
	}
	return all
}

func pctChanges(closes []float64) []float64 {
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

func last(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	v := vals[len(vals)-1]
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
