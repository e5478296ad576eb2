package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/famledger/internal/domain"
)

// IdempotencyStore implements usecase.IdempotencyStore using Redis. Each
// record is one JSON value under "idempotency:{request_id}" with native expiry.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) key(requestID domain.RequestID) string {
	return s.prefix + requestID.String()
}

// Get returns nil when the record is absent or expired.
func (s *IdempotencyStore) Get(ctx context.Context, requestID domain.RequestID) (*domain.IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, s.key(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %w", domain.ErrDatabase, err)
	}

	var record domain.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: decode idempotency record: %w", domain.ErrDatabase, err)
	}
	// Redis expiry has second granularity; the record's own deadline is authoritative.
	if record.IsExpired(s.now()) {
		return nil, nil
	}
	return &record, nil
}

// Save overwrites the record. A record that is already expired is removed.
func (s *IdempotencyStore) Save(ctx context.Context, record *domain.IdempotencyRecord) error {
	ttl := record.TTL(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, record.RequestID)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode idempotency record: %w", domain.ErrDatabase, err)
	}
	if err := s.client.Set(ctx, s.key(record.RequestID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", domain.ErrDatabase, err)
	}
	return nil
}

func (s *IdempotencyStore) Delete(ctx context.Context, requestID domain.RequestID) error {
	if err := s.client.Del(ctx, s.key(requestID)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %w", domain.ErrDatabase, err)
	}
	return nil
}

func (s *IdempotencyStore) Exists(ctx context.Context, requestID domain.RequestID) (bool, error) {
	record, err := s.Get(ctx, requestID)
	return record != nil, err
}

// CleanupExpired is a no-op; Redis expires keys itself.
func (s *IdempotencyStore) CleanupExpired(context.Context) (int64, error) {
	return 0, nil
}
