package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/postgres/generated"
)

// IdempotencyStore is the durable usecase.IdempotencyStore. Expired rows
// are filtered at read time and reaped by CleanupExpired.
type IdempotencyStore struct {
	queries *generated.Queries
	now     func() time.Time
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(db generated.DBTX) *IdempotencyStore {
	return &IdempotencyStore{
		queries: generated.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns nil when the record is absent or expired.
func (s *IdempotencyStore) Get(ctx context.Context, requestID domain.RequestID) (*domain.IdempotencyRecord, error) {
	row, err := s.queries.GetIdempotencyRecord(ctx, generated.GetIdempotencyRecordParams{
		RequestID: requestID.UUID(),
		Now:       timeToPgTimestamptz(s.now()),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get idempotency record", err)
	}

	record := &domain.IdempotencyRecord{
		RequestID:     domain.IDFromUUID[domain.RequestKind](row.RequestID),
		Operation:     row.Operation,
		ResultPayload: row.ResultPayload,
		CreatedAt:     row.CreatedAt.Time.UTC(),
		ExpiresAt:     row.ExpiresAt.Time.UTC(),
	}
	if row.StatusCode.Valid {
		code := int(row.StatusCode.Int32)
		record.StatusCode = &code
	}
	return record, nil
}

// Save upserts the record; the last writer wins.
func (s *IdempotencyStore) Save(ctx context.Context, record *domain.IdempotencyRecord) error {
	var status pgtype.Int4
	if record.StatusCode != nil {
		status = pgtype.Int4{Int32: int32(*record.StatusCode), Valid: true}
	}

	err := s.queries.UpsertIdempotencyRecord(ctx, generated.UpsertIdempotencyRecordParams{
		RequestID:     record.RequestID.UUID(),
		Operation:     record.Operation,
		ResultPayload: record.ResultPayload,
		StatusCode:    status,
		CreatedAt:     timeToPgTimestamptz(record.CreatedAt),
		ExpiresAt:     timeToPgTimestamptz(record.ExpiresAt),
	})
	return wrapErr("save idempotency record", err)
}

func (s *IdempotencyStore) Delete(ctx context.Context, requestID domain.RequestID) error {
	return wrapErr("delete idempotency record", s.queries.DeleteIdempotencyRecord(ctx, requestID.UUID()))
}

func (s *IdempotencyStore) Exists(ctx context.Context, requestID domain.RequestID) (bool, error) {
	record, err := s.Get(ctx, requestID)
	return record != nil, err
}

// CleanupExpired removes expired records and returns how many were removed.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteExpiredIdempotencyRecords(ctx, timeToPgTimestamptz(s.now()))
	if err != nil {
		return 0, wrapErr("cleanup idempotency records", err)
	}
	return n, nil
}
