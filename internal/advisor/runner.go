package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/ledger"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/macro"
	"github.com/camuig/miner-advisor/internal/marketdata"
	"github.com/camuig/miner-advisor/internal/sizing"
	"github.com/camuig/miner-advisor/internal/storage"
	"github.com/camuig/miner-advisor/internal/technicals"
)

// Notifier receives run results for delivery. Implemented by the telegram
// notifier; nil disables notifications.
type Notifier interface {
	NotifyAnalysis(results map[string]*TickerResult, macroBias string)
	NotifyError(context string, err error)
}

// Runner executes one full analysis cycle: refresh prices, compute signals,
// ask the advisor per ticker, record every recommendation, and attach
// position guidance.
type Runner struct {
	repo     *storage.Repository
	ledger   *ledger.Service
	client   *Client
	market   *marketdata.Client
	macro    *macro.Client
	notifier Notifier
	cfg      *config.Config
	logger   *logger.Logger
}

func NewRunner(
	repo *storage.Repository,
	ledgerSvc *ledger.Service,
	client *Client,
	market *marketdata.Client,
	macroClient *macro.Client,
	notifier Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *Runner {
	return &Runner{
		repo:     repo,
		ledger:   ledgerSvc,
		client:   client,
		market:   market,
		macro:    macroClient,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
	}
}

// Run performs the analysis cycle for one owner. Price and macro fetch
// failures fall back to cached data; an advisor failure aborts the run.
func (r *Runner) Run(ctx context.Context, ownerID string) (*RunResult, error) {
	active := r.repo.ActiveTickers(ownerID, r.cfg.Portfolio.Tickers)

	if err := r.market.RefreshBTC(ctx, 90); err != nil {
		r.logger.Warn("BTC price fetch failed, using cache", "error", err)
	}
	if err := r.market.RefreshAll(ctx, active); err != nil {
		r.logger.Warn("stock price fetch failed, using cache", "error", err)
	}

	macroData := r.macro.FetchAll(ctx)
	if len(macroData) == 0 {
		cached, err := r.repo.LatestMacro()
		if err != nil {
			r.logger.Warn("load cached macro", "error", err)
		} else {
			macroData = cached
		}
	}

	signals := make(map[string]*technicals.Signals, len(active))
	for _, ticker := range active {
		s, err := technicals.ComputeSignals(r.repo, ticker)
		if err != nil {
			return nil, fmt.Errorf("compute signals for %s: %w", ticker, err)
		}
		signals[ticker] = s
	}
	technicals.AddRelativeStrength(signals)

	btcTrend := r.btcTrendSummary()
	macroSummary := MacroSummary(macroData)
	runDate := time.Now().Format(storage.DateFormat)

	result := &RunResult{
		Tickers: make(map[string]*TickerResult, len(signals)),
		Macro:   macroData,
	}

	for ticker, s := range signals {
		res := &TickerResult{Signals: s, BTCTrend: btcTrend}
		result.Tickers[ticker] = res
		if s.Error != "" {
			continue // not enough history yet; surfaced as-is
		}

		sigJSON, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		rec, err := r.client.Recommend(ctx, ticker, string(sigJSON), btcTrend, macroSummary)
		if err != nil {
			if r.notifier != nil {
				r.notifier.NotifyError("analysis "+ticker, err)
			}
			return nil, err
		}

		if err := r.repo.SaveAnalysis(&storage.AnalysisRecord{
			RunDate:        runDate,
			Ticker:         ticker,
			Signals:        string(sigJSON),
			Recommendation: rec.Recommendation,
			Reasoning:      rec.Reasoning,
			Confidence:     rec.Confidence,
			KeyRisk:        rec.KeyRisk,
		}); err != nil {
			return nil, fmt.Errorf("save analysis for %s: %w", ticker, err)
		}

		res.Recommendation = rec.Recommendation
		res.Confidence = rec.Confidence
		res.Reasoning = rec.Reasoning
		res.KeyRisk = rec.KeyRisk
		r.logger.Info("recommendation recorded",
			"ticker", ticker, "recommendation", rec.Recommendation, "confidence", rec.Confidence)
	}

	held, err := r.ledger.HeldShares(ownerID)
	if err != nil {
		return nil, err
	}

	if len(macroData) > 0 && macroSummary != "" {
		result.MacroBias = r.generateMacroBias(ctx, ownerID, macroSummary, result.Tickers, held)
	}

	r.attachGuidance(ownerID, result.Tickers, held)

	if r.notifier != nil {
		r.notifier.NotifyAnalysis(result.Tickers, result.MacroBias)
	}
	return result, nil
}

// generateMacroBias synthesizes the one-line macro summary from the
// recommendations on held positions (or all tickers when nothing is held).
// Best-effort: failures just leave the previous bias in place.
func (r *Runner) generateMacroBias(ctx context.Context, ownerID, macroSummary string, results map[string]*TickerResult, held map[string]float64) string {
	counts := map[string]int{}
	for ticker, res := range results {
		if res.Recommendation == "" {
			continue
		}
		if _, ok := held[ticker]; ok || len(held) == 0 {
			counts[res.Recommendation]++
		}
	}
	if len(counts) == 0 {
		return ""
	}

	bias, err := r.client.MacroBias(ctx, macroSummary, counts)
	if err != nil {
		r.logger.Warn("macro bias generation failed", "error", err)
		return ""
	}
	if err := r.repo.SetSetting(ownerID, "macro_bias", bias); err != nil {
		r.logger.Warn("save macro bias", "error", err)
	}
	return bias
}

func (r *Runner) attachGuidance(ownerID string, results map[string]*TickerResult, held map[string]float64) {
	tier, _ := r.repo.Setting(ownerID, "risk_tier", "neutral")
	capStr, _ := r.repo.Setting(ownerID, "total_capital", "")
	totalCapital, _ := strconv.ParseFloat(capStr, 64)

	for ticker, res := range results {
		if res.Recommendation == "" {
			continue
		}
		res.PositionGuidance = sizing.Compute(
			res.Recommendation, res.Confidence, res.CurrentPrice,
			held[ticker], tier, totalCapital)
	}
}

// btcTrendSummary renders BTC's 7-day move for prompt context.
func (r *Runner) btcTrendSummary() string {
	bars, err := r.repo.Prices("BTC", 10)
	if err != nil || len(bars) < 7 {
		return "unavailable"
	}
	weekAgo := bars[len(bars)-7].Close
	now := bars[len(bars)-1].Close
	if weekAgo == 0 {
		return "unavailable"
	}
	pct := (now/weekAgo - 1) * 100
	return fmt.Sprintf("%+.1f%% over 7 days (current: $%.0f)", pct, now)
}
