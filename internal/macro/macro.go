// Package macro gathers market-wide context signals from free public APIs.
// Every fetcher is best-effort: failures log a warning and drop the signal,
// they never fail the analysis cycle.
package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/storage"
)

// fredSeries maps FRED series ids to macro snapshot keys.
var fredSeries = map[string]string{
	"VIXCLS":       "vix",
	"DGS2":         "us_2y_yield",
	"DTWEXBGS":     "dxy",
	"BAMLH0A0HYM2": "hy_spread",
}

type Client struct {
	httpClient *http.Client
	fredKey    string
	repo       *storage.Repository
	logger     *logger.Logger
}

func NewClient(cfg *config.Config, repo *storage.Repository, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		fredKey:    cfg.Fred.APIKey,
		repo:       repo,
		logger:     log,
	}
}

// FetchAll gathers every signal concurrently, stores the day's snapshot and
// returns it. A partial snapshot is normal; an empty one is returned as-is
// so the caller can fall back to the last stored day.
func (c *Client) FetchAll(ctx context.Context) map[string]any {
	macro := map[string]any{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	put := func(key string, val any) {
		mu.Lock()
		macro[key] = val
		mu.Unlock()
	}

	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				c.logger.Warn("macro fetch failed", "signal", name, "error", err)
			}
		}()
	}

	run("dvol", func(ctx context.Context) error {
		v, err := c.fetchDVOL(ctx)
		if err != nil {
			return err
		}
		put("btc_dvol", v)
		return nil
	})
	run("funding_rate", func(ctx context.Context) error {
		v, err := c.fetchFundingRate(ctx)
		if err != nil {
			return err
		}
		put("btc_funding_rate_pct", v)
		return nil
	})
	run("fear_greed", func(ctx context.Context) error {
		value, label, err := c.fetchFearGreed(ctx)
		if err != nil {
			return err
		}
		put("fear_greed_value", value)
		put("fear_greed_label", label)
		return nil
	})
	run("hashrate", func(ctx context.Context) error {
		eh, puell, err := c.fetchHashrate(ctx)
		if err != nil {
			return err
		}
		put("network_hashrate_eh", eh)
		if puell != nil {
			put("puell_multiple", *puell)
		}
		return nil
	})

	if c.fredKey != "" {
		for series, key := range fredSeries {
			series, key := series, key
			run("fred/"+series, func(ctx context.Context) error {
				v, err := c.fetchFRED(ctx, series)
				if err != nil {
					return err
				}
				put(key, v)
				return nil
			})
		}
	}

	wg.Wait()

	if len(macro) > 0 {
		today := time.Now().UTC().Format(storage.DateFormat)
		if err := c.repo.UpsertMacro(today, macro); err != nil {
			c.logger.Error("save macro snapshot", "error", err)
		}
	}
	return macro
}

// fetchDVOL returns the latest daily close of Deribit's BTC 30-day implied
// volatility index.
func (c *Client) fetchDVOL(ctx context.Context) (float64, error) {
	end := time.Now().UnixMilli()
	start := end - 7*24*3600*1000
	params := url.Values{
		"currency":        {"BTC"},
		"resolution":      {"86400"},
		"start_timestamp": {fmt.Sprint(start)},
		"end_timestamp":   {fmt.Sprint(end)},
	}

	var out struct {
		Result struct {
			Data [][5]float64 `json:"data"` // [ts, open, high, low, close]
		} `json:"result"`
	}
	if err := c.getJSON(ctx, "https://www.deribit.com/api/v2/public/get_volatility_index_data?"+params.Encode(), &out); err != nil {
		return 0, err
	}
	if len(out.Result.Data) == 0 {
		return 0, fmt.Errorf("no dvol data")
	}
	return round1(out.Result.Data[len(out.Result.Data)-1][4]), nil
}

// fetchFundingRate returns the BTC perp funding rate in percent, trying
// Bybit first and falling back to OKX.
func (c *Client) fetchFundingRate(ctx context.Context) (float64, error) {
	var bybit struct {
		Result struct {
			List []struct {
				FundingRate string `json:"fundingRate"`
			} `json:"list"`
		} `json:"result"`
	}
	err := c.getJSON(ctx, "https://api.bybit.com/v5/market/funding/history?category=linear&symbol=BTCUSDT&limit=1", &bybit)
	if err == nil && len(bybit.Result.List) > 0 {
		if rate, perr := parseFloat(bybit.Result.List[0].FundingRate); perr == nil {
			return round4(rate * 100), nil
		}
	}
	c.logger.Warn("bybit funding rate failed, trying okx", "error", err)

	var okx struct {
		Data []struct {
			FundingRate string `json:"fundingRate"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "https://www.okx.com/api/v5/public/funding-rate?instId=BTC-USDT-SWAP", &okx); err != nil {
		return 0, err
	}
	if len(okx.Data) == 0 {
		return 0, fmt.Errorf("no funding rate data")
	}
	rate, err := parseFloat(okx.Data[0].FundingRate)
	if err != nil {
		return 0, err
	}
	return round4(rate * 100), nil
}

// fetchFearGreed returns the Alternative.me crypto Fear & Greed index.
func (c *Client) fetchFearGreed(ctx context.Context) (float64, string, error) {
	var out struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "https://api.alternative.me/fng/?limit=1", &out); err != nil {
		return 0, "", err
	}
	if len(out.Data) == 0 {
		return 0, "", fmt.Errorf("no fear/greed data")
	}
	v, err := parseFloat(out.Data[0].Value)
	if err != nil {
		return 0, "", err
	}
	return v, out.Data[0].Classification, nil
}

// fetchHashrate returns network hashrate in EH/s plus a Puell Multiple
// estimate derived from cached BTC prices and the fixed block subsidy.
func (c *Client) fetchHashrate(ctx context.Context) (float64, *float64, error) {
	var out struct {
		Hashrates []struct {
			AvgHashrate float64 `json:"avgHashrate"`
		} `json:"hashrates"`
	}
	if err := c.getJSON(ctx, "https://mempool.space/api/v1/mining/hashrate/1y", &out); err != nil {
		return 0, nil, err
	}
	if len(out.Hashrates) == 0 {
		return 0, nil, fmt.Errorf("no hashrate data")
	}
	eh := round1(out.Hashrates[len(out.Hashrates)-1].AvgHashrate / 1e18)

	return eh, c.puellMultiple(), nil
}

// puellMultiple estimates daily issuance revenue vs its yearly average from
// the cached BTC series. Assumes the post-2024-halving subsidy.
func (c *Client) puellMultiple() *float64 {
	bars, err := c.repo.Prices("BTC", 400)
	if err != nil || len(bars) < 30 {
		return nil
	}
	// Issuance is a constant multiplier, so the ratio reduces to
	// latest price over its trailing average.
	var sum float64
	for _, b := range bars {
		sum += b.Close
	}
	avg := sum / float64(len(bars))
	if avg <= 0 {
		return nil
	}
	v := round3(bars[len(bars)-1].Close / avg)
	return &v
}

// fetchFRED returns the latest non-empty observation of a FRED series.
func (c *Client) fetchFRED(ctx context.Context, seriesID string) (float64, error) {
	params := url.Values{
		"series_id":  {seriesID},
		"api_key":    {c.fredKey},
		"file_type":  {"json"},
		"sort_order": {"desc"},
		"limit":      {"5"},
	}
	var out struct {
		Observations []struct {
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := c.getJSON(ctx, "https://api.stlouisfed.org/fred/series/observations?"+params.Encode(), &out); err != nil {
		return 0, err
	}
	for _, obs := range out.Observations {
		if obs.Value == "." {
			continue // FRED's placeholder for missing days
		}
		if v, err := parseFloat(obs.Value); err == nil {
			return round4(v), nil
		}
	}
	return 0, fmt.Errorf("no observations for %s", seriesID)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
