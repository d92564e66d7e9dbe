package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/config"
)

// Scheduler periodically sweeps for due scheduled posts and hands them
// to the publication service.
type Scheduler struct {
	config      *config.SchedulerConfig
	logger      *zap.Logger
	publication *PublicationService
	ticker      *time.Ticker
	stopCh      chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, publication *PublicationService) *Scheduler {
	return &Scheduler{
		config:      cfg,
		logger:      logger,
		publication: publication,
		stopCh:      make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.PollInterval)
	if err != nil {
		s.logger.Error("Invalid poll interval", zap.String("interval", s.config.PollInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("poll_interval", s.config.PollInterval))

	s.ticker = time.NewTicker(interval)

	// Run first sweep immediately
	go func() {
		s.logger.Info("Running initial sweep")
		s.runSweep(ctx)
	}()

	// Start periodic sweeps
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runSweep(ctx)
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	start := time.Now()
	outcomes, err := s.publication.RunDueSchedules(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Sweep failed",
			zap.Error(err),
			zap.Duration("duration", duration))
		return
	}

	published, failed := 0, 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
		} else {
			published++
		}
	}

	if len(outcomes) > 0 {
		s.logger.Info("Sweep completed",
			zap.Int("published", published),
			zap.Int("failed", failed),
			zap.Duration("duration", duration))
	}
}
