// Package scheduler drives the daily after-close analysis run.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/camuig/miner-advisor/internal/advisor"
	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/users"
)

type Scheduler struct {
	runner   *advisor.Runner
	users    *users.Service
	notifier advisor.Notifier
	config   *config.Config
	logger   *logger.Logger
	cron     *cron.Cron
}

func NewScheduler(
	runner *advisor.Runner,
	userSvc *users.Service,
	notifier advisor.Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		runner:   runner,
		users:    userSvc,
		notifier: notifier,
		config:   cfg,
		logger:   log,
	}
}

// Start registers the cron entry and begins running in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Schedule.Enabled {
		s.logger.Info("scheduler disabled")
		return nil
	}

	s.cron = cron.New(cron.WithSeconds())
	_, err := s.cron.AddFunc(s.config.Schedule.AnalysisCron, func() {
		s.runCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("register analysis schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "cron", s.config.Schedule.AnalysisCron)
	return nil
}

// Stop waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	}
}

// runCycle executes one analysis on behalf of the earliest-registered user.
// A panic is contained to the cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scheduler cycle", "panic", fmt.Sprint(r))
			if s.notifier != nil {
				s.notifier.NotifyError("scheduler panic", fmt.Errorf("%v", r))
			}
		}
	}()

	primary, err := s.users.PrimaryUserID()
	if err != nil {
		s.logger.Error("resolve primary user", "error", err)
		return
	}
	if primary == "" {
		s.logger.Info("no registered users, skipping scheduled analysis")
		return
	}

	s.logger.Info("scheduled analysis starting", "owner", primary)
	result, err := s.runner.Run(ctx, primary)
	if err != nil {
		s.logger.Error("scheduled analysis failed", "error", err)
		return
	}
	s.logger.Info("scheduled analysis complete", "tickers", len(result.Tickers))
}
