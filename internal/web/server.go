// Package web exposes the JSON API used by the browser frontend.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/camuig/miner-advisor/internal/advisor"
	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/ledger"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/outcome"
	"github.com/camuig/miner-advisor/internal/storage"
	"github.com/camuig/miner-advisor/internal/users"
)

type Server struct {
	httpServer *http.Server
	repo       *storage.Repository
	ledger     *ledger.Service
	users      *users.Service
	scorer     *outcome.Scorer
	runner     *advisor.Runner
	config     *config.Config
	logger     *logger.Logger
}

func NewServer(
	repo *storage.Repository,
	ledgerSvc *ledger.Service,
	userSvc *users.Service,
	scorer *outcome.Scorer,
	runner *advisor.Runner,
	cfg *config.Config,
	log *logger.Logger,
) *Server {
	s := &Server{
		repo:   repo,
		ledger: ledgerSvc,
		users:  userSvc,
		scorer: scorer,
		runner: runner,
		config: cfg,
		logger: log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.auth(s.handleMe))

	mux.HandleFunc("GET /api/portfolio", s.auth(s.handlePortfolio))
	mux.HandleFunc("POST /api/portfolio", s.auth(s.handleSeedPosition))
	mux.HandleFunc("DELETE /api/portfolio/{ticker}", s.auth(s.handleClosePosition))

	mux.HandleFunc("GET /api/trades", s.auth(s.handleListTrades))
	mux.HandleFunc("POST /api/trades", s.auth(s.handleAddTrade))
	mux.HandleFunc("DELETE /api/trades/{id}", s.auth(s.handleDeleteTrade))

	mux.HandleFunc("GET /api/cash", s.auth(s.handleGetCash))
	mux.HandleFunc("POST /api/cash", s.auth(s.handleSetCash))
	mux.HandleFunc("POST /api/cash/deposit", s.auth(s.handleDeposit))
	mux.HandleFunc("POST /api/cash/withdraw", s.auth(s.handleWithdraw))

	mux.HandleFunc("POST /api/analyze", s.auth(s.handleAnalyze))
	mux.HandleFunc("GET /api/signals", s.auth(s.handleSignals))
	mux.HandleFunc("GET /api/history/{ticker}", s.auth(s.handleHistory))
	mux.HandleFunc("GET /api/macro", s.auth(s.handleMacro))
	mux.HandleFunc("GET /api/tickers", s.auth(s.handleTickers))
	mux.HandleFunc("POST /api/tickers", s.auth(s.handleAddTicker))
	mux.HandleFunc("GET /api/settings", s.auth(s.handleGetSettings))
	mux.HandleFunc("POST /api/settings", s.auth(s.handleSetSettings))

	mux.Handle("/", http.FileServer(http.Dir("static")))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // analysis runs block on the advisor
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
