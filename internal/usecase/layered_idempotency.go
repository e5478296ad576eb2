package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/iho/famledger/internal/domain"
)

// LayeredIdempotencyStore reads through a fast cache store in front of a
// durable store. Writes go to the durable store first; cache failures are
// logged and never fail the caller because the durable store stays
// authoritative.
type LayeredIdempotencyStore struct {
	cache   IdempotencyStore
	durable IdempotencyStore
	logger  zerolog.Logger
}

// NewLayeredIdempotencyStore creates a LayeredIdempotencyStore.
func NewLayeredIdempotencyStore(cache, durable IdempotencyStore, logger zerolog.Logger) *LayeredIdempotencyStore {
	return &LayeredIdempotencyStore{
		cache:   cache,
		durable: durable,
		logger:  logger,
	}
}

func (s *LayeredIdempotencyStore) Get(ctx context.Context, requestID domain.RequestID) (*domain.IdempotencyRecord, error) {
	record, err := s.cache.Get(ctx, requestID)
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", requestID.String()).Msg("idempotency cache read failed")
	} else if record != nil {
		return record, nil
	}

	record, err = s.durable.Get(ctx, requestID)
	if err != nil || record == nil {
		return record, err
	}
	// Backfill with the remaining lifetime only.
	if err := s.cache.Save(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("request_id", requestID.String()).Msg("idempotency cache backfill failed")
	}
	return record, nil
}

func (s *LayeredIdempotencyStore) Save(ctx context.Context, record *domain.IdempotencyRecord) error {
	if err := s.durable.Save(ctx, record); err != nil {
		return err
	}
	if err := s.cache.Save(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("request_id", record.RequestID.String()).Msg("idempotency cache write failed")
	}
	return nil
}

func (s *LayeredIdempotencyStore) Delete(ctx context.Context, requestID domain.RequestID) error {
	return errors.Join(s.cache.Delete(ctx, requestID), s.durable.Delete(ctx, requestID))
}

func (s *LayeredIdempotencyStore) Exists(ctx context.Context, requestID domain.RequestID) (bool, error) {
	record, err := s.Get(ctx, requestID)
	return record != nil, err
}

// CleanupExpired purges the durable store; cached records expire natively.
func (s *LayeredIdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	return s.durable.CleanupExpired(ctx)
}
