package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/metrics"
)

// DefaultPollInterval is used when the configured interval is not positive.
const DefaultPollInterval = 2000 * time.Millisecond

// Scheduler calls Drive once per tick until the context is cancelled. Step
// errors are logged and never stop the loop.
type Scheduler struct {
	crawler   Crawler
	interval  time.Duration
	inspector repository.FrontierInspector
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewScheduler creates a Scheduler. inspector and m may be nil; when both are
// set the queue length gauge is refreshed after every step.
func NewScheduler(c Crawler, interval time.Duration, inspector repository.FrontierInspector, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		logger.Warn("non-positive poll interval, using default",
			zap.Duration("interval", interval),
			zap.Duration("default", DefaultPollInterval),
		)
		interval = DefaultPollInterval
	}
	return &Scheduler{crawler: c, interval: interval, inspector: inspector, logger: logger, metrics: m}
}

// Run blocks until ctx is done and returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs a single step.
func (s *Scheduler) Tick(ctx context.Context) {
	progressed, err := s.crawler.Drive(ctx)
	if err != nil {
		s.logger.Error("crawl step error", zap.Error(err))
	} else if !progressed {
		s.logger.Debug("frontier empty")
	}

	if s.inspector != nil && s.metrics != nil {
		if n, err := s.inspector.Len(ctx); err == nil {
			s.metrics.SetQueueLength(n)
		}
	}
}
