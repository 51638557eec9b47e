package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/perimeterhq/tenantd/internal/metrics"
)

// RetentionExecutor runs one retention sweep. *Service satisfies it.
type RetentionExecutor interface {
	ExecuteRetentionPolicy(ctx context.Context, retentionDays int) (int64, error)
}

// Reporter receives retention sweep outcomes. Reporters must not block for
// long; they run on the sweep goroutine.
type Reporter interface {
	SweepCompleted(ctx context.Context, deleted int64)
	SweepFailed(ctx context.Context, err error)
}

// Sweeper runs the retention policy on a fixed interval, decoupled from
// request traffic. Unlike a fire-and-forget timer it reports every outcome
// and stops cleanly on context cancellation.
type Sweeper struct {
	executor      RetentionExecutor
	retentionDays int
	interval      time.Duration
	reporters     []Reporter
	logger        zerolog.Logger
}

func NewSweeper(executor RetentionExecutor, retentionDays int, interval time.Duration, logger zerolog.Logger, reporters ...Reporter) *Sweeper {
	return &Sweeper{
		executor:      executor,
		retentionDays: retentionDays,
		interval:      interval,
		reporters:     reporters,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled. The first sweep fires one full interval
// after start, so a restart never triggers an immediate mass deletion.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Int("retention_days", s.retentionDays).Msg("retention sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.executor.ExecuteRetentionPolicy(ctx, s.retentionDays)
	if err != nil {
		metrics.RetentionSweepsTotal.WithLabelValues("failure").Inc()
		s.logger.Error().Err(err).Msg("retention sweep failed")
		for _, r := range s.reporters {
			r.SweepFailed(ctx, err)
		}
		return
	}

	metrics.RetentionSweepsTotal.WithLabelValues("success").Inc()
	for _, r := range s.reporters {
		r.SweepCompleted(ctx, deleted)
	}
}
