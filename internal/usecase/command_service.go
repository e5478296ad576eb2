package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/metrics"
)

// CommandService is the entry point for ledger commands. It looks up the
// request id before executing a command and stores the result afterwards,
// so a retried request returns the first result instead of running twice.
type CommandService struct {
	processor *LedgerProcessor
	store     IdempotencyStore
	ttl       time.Duration
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	// inflight collapses concurrent calls that share a request id.
	inflight singleflight.Group
}

// NewCommandService creates a CommandService. A non-positive ttl falls back
// to domain.DefaultIdempotencyTTL.
func NewCommandService(processor *LedgerProcessor, store IdempotencyStore, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *CommandService {
	if ttl <= 0 {
		ttl = domain.DefaultIdempotencyTTL
	}
	return &CommandService{
		processor: processor,
		store:     store,
		ttl:       ttl,
		metrics:   m,
		logger:    logger,
		now:       processor.now,
	}
}

func runIdempotent[R any](ctx context.Context, s *CommandService, requestID domain.RequestID, op string, fn func(ctx context.Context) (*R, error)) (*R, error) {
	if err := domain.ValidateRequestID(requestID); err != nil {
		return nil, err
	}

	v, err, shared := s.inflight.Do(requestID.String(), func() (any, error) {
		record, err := s.store.Get(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("%w: idempotency lookup: %w", domain.ErrDatabase, err)
		}
		if record != nil {
			return s.replay(record, requestID, op, new(R))
		}
		s.countIdempotency(op, false)

		result, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal %s result: %w", op, err)
		}
		status := http.StatusOK
		record = domain.NewIdempotencyRecord(requestID, op, string(payload), &status, s.ttl, s.now())
		if err := s.store.Save(ctx, record); err != nil {
			s.logger.Error().
				Err(err).
				Str("request_id", requestID.String()).
				Str("operation", op).
				Msg("command committed but result was not recorded")
			return nil, fmt.Errorf("%w: idempotency save: %w", domain.ErrDatabase, err)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug().Str("request_id", requestID.String()).Str("operation", op).Msg("concurrent request collapsed")
	}
	result, ok := v.(*R)
	if !ok {
		// The collapsed call ran a different operation under the same id.
		return nil, fmt.Errorf("%w: request id %s is in use by another operation", domain.ErrValidation, requestID)
	}
	return result, nil
}

func (s *CommandService) replay(record *domain.IdempotencyRecord, requestID domain.RequestID, op string, target any) (any, error) {
	if record.Operation != op {
		return nil, fmt.Errorf("%w: request id %s was already used for %s", domain.ErrValidation, requestID, record.Operation)
	}
	if err := json.Unmarshal([]byte(record.ResultPayload), target); err != nil {
		return nil, fmt.Errorf("%w: decode cached %s result: %w", domain.ErrDatabase, op, err)
	}
	s.countIdempotency(op, true)
	s.logger.Debug().Str("request_id", requestID.String()).Str("operation", op).Msg("returning cached result")
	return target, nil
}

func (s *CommandService) countIdempotency(op string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.IdempotencyHits.WithLabelValues(op).Inc()
		return
	}
	s.metrics.IdempotencyMisses.WithLabelValues(op).Inc()
}

func (s *CommandService) CreateTransaction(ctx context.Context, cmd domain.CreateTransactionCommand) (*domain.TransactionResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpCreateTransaction, func(ctx context.Context) (*domain.TransactionResult, error) {
		return s.processor.CreateTransaction(ctx, cmd)
	})
}

func (s *CommandService) UpdateTransaction(ctx context.Context, cmd domain.UpdateTransactionCommand) (*domain.TransactionResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpUpdateTransaction, func(ctx context.Context) (*domain.TransactionResult, error) {
		return s.processor.UpdateTransaction(ctx, cmd)
	})
}

func (s *CommandService) Transfer(ctx context.Context, cmd domain.TransferCommand) (*domain.TransferResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpTransfer, func(ctx context.Context) (*domain.TransferResult, error) {
		return s.processor.Transfer(ctx, cmd)
	})
}

func (s *CommandService) SplitTransaction(ctx context.Context, cmd domain.SplitTransactionCommand) (*domain.SplitTransactionResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpSplitTransaction, func(ctx context.Context) (*domain.SplitTransactionResult, error) {
		return s.processor.SplitTransaction(ctx, cmd)
	})
}

func (s *CommandService) DeleteTransaction(ctx context.Context, cmd domain.DeleteTransactionCommand) (*domain.DeleteResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpDeleteTransaction, func(ctx context.Context) (*domain.DeleteResult, error) {
		return s.processor.DeleteTransaction(ctx, cmd)
	})
}

func (s *CommandService) RestoreTransaction(ctx context.Context, cmd domain.RestoreTransactionCommand) (*domain.RestoreResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpRestoreTransaction, func(ctx context.Context) (*domain.RestoreResult, error) {
		return s.processor.RestoreTransaction(ctx, cmd)
	})
}

func (s *CommandService) SettleTransactions(ctx context.Context, cmd domain.SettleTransactionsCommand) (*domain.SettlementResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpSettleTransactions, func(ctx context.Context) (*domain.SettlementResult, error) {
		return s.processor.SettleTransactions(ctx, cmd)
	})
}

func (s *CommandService) ReconcileTransactions(ctx context.Context, cmd domain.ReconcileTransactionsCommand) (*domain.ReconciliationResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpReconcile, func(ctx context.Context) (*domain.ReconciliationResult, error) {
		return s.processor.ReconcileTransactions(ctx, cmd)
	})
}

func (s *CommandService) BulkImportTransactions(ctx context.Context, cmd domain.BulkImportTransactionsCommand) (*domain.BulkImportResult, error) {
	return runIdempotent(ctx, s, cmd.RequestID, domain.OpBulkImport, func(ctx context.Context) (*domain.BulkImportResult, error) {
		return s.processor.BulkImportTransactions(ctx, cmd)
	})
}
