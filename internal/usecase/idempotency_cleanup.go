package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/famledger/internal/infrastructure/metrics"
)

// CleanupConfig configures the Janitor.
type CleanupConfig struct {
	Store   IdempotencyStore
	Outbox  OutboxRepository
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
	// Interval between sweeps.
	Interval time.Duration
	// OutboxRetention is how long published outbox events are kept. Zero keeps them forever.
	OutboxRetention time.Duration
}

// Janitor periodically purges expired idempotency records and old
// published outbox events.
type Janitor struct {
	store     IdempotencyStore
	outbox    OutboxRepository
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewJanitor creates a Janitor.
func NewJanitor(cfg CleanupConfig) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCleanupInterval
	}
	return &Janitor{
		store:     cfg.Store,
		outbox:    cfg.Outbox,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		interval:  cfg.Interval,
		retention: cfg.OutboxRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start sweeps once immediately and then on every tick until ctx is done.
func (j *Janitor) Start(ctx context.Context) error {
	j.logger.Info().Dur("interval", j.interval).Msg("idempotency janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("idempotency janitor shutting down")
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if _, err := j.CleanupIdempotency(ctx); err != nil {
		j.logger.Error().Err(err).Msg("idempotency cleanup failed")
	}
	if j.outbox == nil || j.retention <= 0 {
		return
	}
	removed, err := j.outbox.DeletePublished(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.logger.Error().Err(err).Msg("outbox cleanup failed")
		return
	}
	if removed > 0 {
		j.logger.Info().Int64("removed", removed).Msg("published outbox events removed")
	}
}

// CleanupIdempotency removes expired idempotency records once and returns how many were removed.
func (j *Janitor) CleanupIdempotency(ctx context.Context) (int64, error) {
	removed, err := j.store.CleanupExpired(ctx)
	if err != nil {
		return 0, err
	}
	if j.metrics != nil {
		j.metrics.IdempotencyCleaned.Add(float64(removed))
	}
	if removed > 0 {
		j.logger.Info().Int64("removed", removed).Msg("expired idempotency records removed")
	}
	return removed, nil
}
