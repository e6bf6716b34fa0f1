package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/camuig/miner-advisor/internal/ledger"
	"github.com/camuig/miner-advisor/internal/sizing"
	"github.com/camuig/miner-advisor/internal/technicals"
	"github.com/camuig/miner-advisor/internal/users"
)

// --- auth ---

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Register(creds.Username, creds.Password)
	switch {
	case errors.Is(err, users.ErrUserExists):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, users.ErrUserLimitReached):
		s.writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := s.users.CreateSession(user.ID, r.UserAgent())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "create session")
		return
	}
	s.setSessionCookie(w, token)
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Authenticate(creds.Username, creds.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := s.users.CreateSession(user.ID, r.UserAgent())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "create session")
		return
	}
	s.setSessionCookie(w, token)
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.users.Revoke(cookie.Value); err != nil {
			s.logger.Error("revoke session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"user_id": ownerID(r)})
}

// --- portfolio ---

type positionView struct {
	Ticker         string   `json:"ticker"`
	Shares         float64  `json:"shares"`
	AvgCost        float64  `json:"avg_cost"`
	CurrentPrice   *float64 `json:"current_price"`
	MarketValue    *float64 `json:"market_value"`
	GainPct        *float64 `json:"gain_pct"`
	Recommendation string   `json:"recommendation,omitempty"`
	RecommendedOn  string   `json:"recommended_on,omitempty"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	holdings, err := s.ledger.Holdings(owner)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load holdings")
		return
	}
	cash, err := s.ledger.Cash(owner)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load cash")
		return
	}

	positions := make([]positionView, 0, len(holdings))
	total := cash
	for _, h := range holdings {
		pv := positionView{Ticker: h.Ticker, Shares: h.Shares, AvgCost: h.AvgCost}
		if price, err := s.repo.LatestClose(h.Ticker); err == nil && price != nil {
			value := h.Shares * *price
			pv.CurrentPrice = price
			pv.MarketValue = &value
			total += value
			if h.AvgCost > 0 {
				gain := (*price/h.AvgCost - 1) * 100
				pv.GainPct = &gain
			}
		}
		if recs, err := s.repo.AnalysesForTicker(h.Ticker, 1); err == nil && len(recs) > 0 {
			pv.Recommendation = recs[0].Recommendation
			pv.RecommendedOn = recs[0].RunDate
		}
		positions = append(positions, pv)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"positions":   positions,
		"cash":        cash,
		"total_value": total,
	})
}

func (s *Server) handleSeedPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker  string  `json:"ticker"`
		Shares  float64 `json:"shares"`
		AvgCost float64 `json:"avg_cost"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" || req.Shares <= 0 || req.AvgCost <= 0 {
		s.writeError(w, http.StatusBadRequest, "ticker, positive shares and positive avg_cost required")
		return
	}

	if err := s.ledger.UpsertHolding(ownerID(r), req.Ticker, req.Shares, req.AvgCost); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save position")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "saved", "ticker": req.Ticker})
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	if err := s.ledger.ClosePosition(ownerID(r), ticker); err != nil {
		s.writeError(w, http.StatusInternalServerError, "close position")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "closed", "ticker": ticker})
}

// --- trades ---

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.ledger.Trades(ownerID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load trades")
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	var in ledger.TradeInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := s.ledger.AddTrade(ownerID(r), in)
	if err != nil {
		var vErr *ledger.ValidationError
		var oErr *ledger.OversellError
		switch {
		case errors.As(err, &vErr), errors.As(err, &oErr):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, "save trade")
		}
		return
	}
	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	err = s.ledger.DeleteTrade(ownerID(r), uint(id))
	if errors.Is(err, ledger.ErrTradeNotFound) {
		s.writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "delete trade")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- cash ---

type cashRequest struct {
	Amount float64 `json:"amount"`
}

func (s *Server) handleGetCash(w http.ResponseWriter, r *http.Request) {
	cash, err := s.ledger.Cash(ownerID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load cash")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{"cash": cash})
}

func (s *Server) handleSetCash(w http.ResponseWriter, r *http.Request) {
	s.mutateCash(w, r, s.ledger.SetCash)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.mutateCash(w, r, s.ledger.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.mutateCash(w, r, s.ledger.Withdraw)
}

func (s *Server) mutateCash(w http.ResponseWriter, r *http.Request, op func(string, float64) error) {
	var req cashRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := ownerID(r)
	if err := op(owner, req.Amount); err != nil {
		var vErr *ledger.ValidationError
		if errors.As(err, &vErr) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "update cash")
		return
	}

	cash, err := s.ledger.Cash(owner)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load cash")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{"cash": cash})
}

// --- analysis ---

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Run(r.Context(), ownerID(r))
	if err != nil {
		s.logger.Error("analysis run failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	limit := 30
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	history, err := s.scorer.History(ticker, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load history")
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

// handleSignals recomputes technical signals from the price cache without
// touching the network or the advisor.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	active := s.repo.ActiveTickers(owner, s.config.Portfolio.Tickers)

	signals := make(map[string]*technicals.Signals, len(active))
	for _, ticker := range active {
		sig, err := technicals.ComputeSignals(s.repo, ticker)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "compute signals")
			return
		}
		signals[ticker] = sig
	}
	s.writeJSON(w, http.StatusOK, technicals.AddRelativeStrength(signals))
}

func (s *Server) handleMacro(w http.ResponseWriter, r *http.Request) {
	macro, err := s.repo.LatestMacro()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load macro")
		return
	}
	s.writeJSON(w, http.StatusOK, macro)
}

// --- tickers and settings ---

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.repo.ActiveTickers(ownerID(r), s.config.Portfolio.Tickers),
		"universe": s.config.Portfolio.Universe,
	})
}

func (s *Server) handleAddTicker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string `json:"ticker"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if !s.config.InUniverse(ticker) {
		s.writeError(w, http.StatusBadRequest, "ticker not in the supported universe")
		return
	}

	owner := ownerID(r)
	if err := s.repo.AddActiveTicker(owner, ticker, s.config.Portfolio.Tickers); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save ticker")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active": s.repo.ActiveTickers(owner, s.config.Portfolio.Tickers),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	tier, _ := s.repo.Setting(owner, "risk_tier", "neutral")
	capStr, _ := s.repo.Setting(owner, "total_capital", "")
	bias, _ := s.repo.Setting(owner, "macro_bias", "")
	totalCapital, _ := strconv.ParseFloat(capStr, 64)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"risk_tier":     tier,
		"total_capital": totalCapital,
		"macro_bias":    bias,
		"tiers":         sizing.TierNames(),
	})
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiskTier     *string  `json:"risk_tier"`
		TotalCapital *float64 `json:"total_capital"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := ownerID(r)
	if req.RiskTier != nil {
		if !sizing.ValidTier(*req.RiskTier) {
			s.writeError(w, http.StatusBadRequest, "unknown risk tier")
			return
		}
		if err := s.repo.SetSetting(owner, "risk_tier", *req.RiskTier); err != nil {
			s.writeError(w, http.StatusInternalServerError, "save setting")
			return
		}
	}
	if req.TotalCapital != nil {
		if *req.TotalCapital < 0 {
			s.writeError(w, http.StatusBadRequest, "total_capital must be non-negative")
			return
		}
		value := strconv.FormatFloat(*req.TotalCapital, 'f', -1, 64)
		if err := s.repo.SetSetting(owner, "total_capital", value); err != nil {
			s.writeError(w, http.StatusInternalServerError, "save setting")
			return
		}
	}
	s.handleGetSettings(w, r)
}
