// Package outcome retroactively grades stored recommendations against what
// the market actually did over a fixed horizon.
package outcome

import (
	"encoding/json"
	"math"
	"time"

	"github.com/camuig/miner-advisor/internal/ledger"
	"github.com/camuig/miner-advisor/internal/storage"
)

// HorizonDays is how long a recommendation gets before it is graded.
const HorizonDays = 14

// HoldBandPct is the dead-band within which a HOLD counts as correct.
const HoldBandPct = 5.0

const (
	Pending   = "pending"
	Correct   = "correct"
	Incorrect = "incorrect"
)

// ScoredAnalysis is one recommendation joined with its realized outcome.
// ReturnPct is nil while the outcome is still pending.
type ScoredAnalysis struct {
	ID             uint           `json:"id"`
	RunDate        string         `json:"run_date"`
	Ticker         string         `json:"ticker"`
	Signals        map[string]any `json:"signals"`
	Recommendation string         `json:"recommendation"`
	Reasoning      string         `json:"reasoning"`
	Confidence     string         `json:"confidence"`
	KeyRisk        string         `json:"key_risk"`
	ReturnPct      *float64       `json:"outcome_return_pct"`
	Outcome        string         `json:"outcome"`
}

type Scorer struct {
	repo *storage.Repository
}

func NewScorer(repo *storage.Repository) *Scorer {
	return &Scorer{repo: repo}
}

// History returns the newest analyses for ticker, each scored against the
// price cache. Scoring is read-only and idempotent: missing data yields
// pending, never an error, and new price bars can only move a record from
// pending to correct/incorrect.
func (s *Scorer) History(ticker string, limit int) ([]ScoredAnalysis, error) {
	recs, err := s.repo.AnalysesForTicker(ticker, limit)
	if err != nil {
		return nil, err
	}

	today := time.Now().Format(storage.DateFormat)
	out := make([]ScoredAnalysis, 0, len(recs))
	for _, rec := range recs {
		scored := ScoredAnalysis{
			ID:             rec.ID,
			RunDate:        rec.RunDate,
			Ticker:         rec.Ticker,
			Recommendation: rec.Recommendation,
			Reasoning:      rec.Reasoning,
			Confidence:     rec.Confidence,
			KeyRisk:        rec.KeyRisk,
			Outcome:        Pending,
		}
		if err := json.Unmarshal([]byte(rec.Signals), &scored.Signals); err != nil {
			scored.Signals = map[string]any{}
		}
		s.score(&scored, today)
		out = append(out, scored)
	}
	return out, nil
}

func (s *Scorer) score(a *ScoredAnalysis, today string) {
	entry := entryPrice(a.Signals)
	if entry == 0 {
		return // no entry price captured at run time: not yet knowable
	}

	runDate, err := time.Parse(storage.DateFormat, a.RunDate)
	if err != nil {
		return
	}
	targetDate := runDate.AddDate(0, 0, HorizonDays).Format(storage.DateFormat)
	if targetDate > today {
		return // horizon not reached yet
	}

	exit, err := s.repo.PriceOnOrAfter(a.Ticker, targetDate)
	if err != nil || exit == nil {
		return // price cache has no bar at the horizon yet
	}

	ret := math.Round((*exit/entry-1)*100*100) / 100
	a.ReturnPct = &ret

	var correct bool
	switch a.Recommendation {
	case ledger.TradeBuy:
		correct = ret > 0
	case ledger.TradeSell:
		correct = ret < 0
	default: // HOLD: small moves count as a correct "do nothing" call
		correct = ret >= -HoldBandPct && ret <= HoldBandPct
	}
	if correct {
		a.Outcome = Correct
	} else {
		a.Outcome = Incorrect
	}
}

func entryPrice(signals map[string]any) float64 {
	switch v := signals["current_price"].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}
