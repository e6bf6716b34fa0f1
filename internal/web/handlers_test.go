package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/ledger"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/outcome"
	"github.com/camuig/miner-advisor/internal/storage"
	"github.com/camuig/miner-advisor/internal/users"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "web_test.db"))
	require.NoError(t, err)
	repo := storage.NewRepository(db)
	log := logger.New("error")

	cfg := &config.Config{}
	cfg.Portfolio.Tickers = []string{"MARA", "RIOT"}
	cfg.Portfolio.Universe = map[string][]string{"miners": {"MARA", "RIOT", "WGMI"}}
	cfg.Portfolio.MaxUsers = 5

	s := NewServer(repo, ledger.NewService(db, log), users.NewService(db, 5),
		outcome.NewScorer(repo), nil, cfg, log)

	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func register(t *testing.T, client *http.Client, base, username string) {
	t.Helper()
	resp := postJSON(t, client, base+"/api/auth/register",
		credentials{Username: username, Password: "long enough 1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestRequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/portfolio")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)

	register(t, client, ts.URL, "alice")

	resp, err := client.Get(ts.URL + "/api/auth/me")
	require.NoError(t, err)
	var me map[string]string
	decodeBody(t, resp, &me)
	assert.NotEmpty(t, me["user_id"])

	resp = postJSON(t, client, ts.URL+"/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.Get(ts.URL + "/api/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginBadPassword(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	resp := postJSON(t, newClient(t), ts.URL+"/api/auth/login",
		credentials{Username: "alice", Password: "wrong password 1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTradeFlow(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	resp := postJSON(t, client, ts.URL+"/api/trades", ledger.TradeInput{
		Ticker: "MARA", Date: "2025-06-02", Type: "BUY", Price: 20, Quantity: 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var trade storage.Trade
	decodeBody(t, resp, &trade)
	assert.Equal(t, "MARA", trade.Ticker)

	resp, err := client.Get(ts.URL + "/api/portfolio")
	require.NoError(t, err)
	var portfolio struct {
		Positions []positionView `json:"positions"`
		Cash      float64        `json:"cash"`
	}
	decodeBody(t, resp, &portfolio)
	require.Len(t, portfolio.Positions, 1)
	assert.Equal(t, 10.0, portfolio.Positions[0].Shares)
	assert.Equal(t, -200.0, portfolio.Cash)
}

func TestOversellReturnsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	resp := postJSON(t, client, ts.URL+"/api/trades", ledger.TradeInput{
		Ticker: "MARA", Date: "2025-06-02", Type: "SELL", Price: 20, Quantity: 5,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "MARA")
}

func TestValidationErrorReturnsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	resp := postJSON(t, client, ts.URL+"/api/trades", ledger.TradeInput{
		Ticker: "MARA", Date: "06/02/2025", Type: "BUY", Price: 20, Quantity: 10,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteUnknownTrade(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/trades/999", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCashEndpoints(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	resp := postJSON(t, client, ts.URL+"/api/cash", cashRequest{Amount: 1000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/cash/deposit", cashRequest{Amount: 250})
	var body map[string]float64
	decodeBody(t, resp, &body)
	assert.Equal(t, 1250.0, body["cash"])

	resp = postJSON(t, client, ts.URL+"/api/cash/withdraw", cashRequest{Amount: -5})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettingsValidation(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	resp := postJSON(t, client, ts.URL+"/api/settings", map[string]any{"risk_tier": "yolo"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/settings",
		map[string]any{"risk_tier": "aggressive", "total_capital": 50000})
	var settings map[string]any
	decodeBody(t, resp, &settings)
	assert.Equal(t, "aggressive", settings["risk_tier"])
	assert.Equal(t, 50000.0, settings["total_capital"])
}

func TestAddTickerOutsideUniverse(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	register(t, client, ts.URL, "alice")

	resp := postJSON(t, client, ts.URL+"/api/tickers", map[string]string{"ticker": "TSLA"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/tickers", map[string]string{"ticker": "WGMI"})
	var body struct {
		Active []string `json:"active"`
	}
	decodeBody(t, resp, &body)
	assert.Contains(t, body.Active, "WGMI")
}

func TestOwnersSeeOnlyTheirOwnTrades(t *testing.T) {
	ts := newTestServer(t)

	alice := newClient(t)
	register(t, alice, ts.URL, "alice")
	bob := newClient(t)
	register(t, bob, ts.URL, "bob")

	resp := postJSON(t, alice, ts.URL+"/api/trades", ledger.TradeInput{
		Ticker: "MARA", Date: "2025-06-02", Type: "BUY", Price: 20, Quantity: 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := bob.Get(ts.URL + "/api/trades")
	require.NoError(t, err)
	var trades []storage.Trade
	decodeBody(t, resp, &trades)
	assert.Empty(t, trades)
}
