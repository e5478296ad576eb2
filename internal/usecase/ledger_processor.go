package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/metrics"
)

// ProcessorConfig holds the collaborators of a LedgerProcessor.
type ProcessorConfig struct {
	TxManager    TransactionManager
	Accounts     AccountRepository
	Transactions TransactionRepository
	Entries      EntryRepository
	Balances     BalanceRepository
	Outbox       OutboxRepository
	Retrier      Retrier
	IDGen        IDGenerator
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
	TxTimeout    time.Duration
	Now          func() time.Time
}

// LedgerProcessor executes ledger commands inside storage transactions.
// Every command either commits fully or leaves no trace.
type LedgerProcessor struct {
	txManager    TransactionManager
	accounts     AccountRepository
	transactions TransactionRepository
	entries      EntryRepository
	balances     BalanceRepository
	outbox       OutboxRepository
	retrier      Retrier
	idGen        IDGenerator
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	txTimeout    time.Duration
	now          func() time.Time
}

// NewLedgerProcessor creates a LedgerProcessor.
func NewLedgerProcessor(cfg ProcessorConfig) *LedgerProcessor {
	if cfg.TxTimeout == 0 {
		cfg.TxTimeout = DefaultTransactionTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Retrier == nil {
		cfg.Retrier = noRetry{}
	}

	return &LedgerProcessor{
		txManager:    cfg.TxManager,
		accounts:     cfg.Accounts,
		transactions: cfg.Transactions,
		entries:      cfg.Entries,
		balances:     cfg.Balances,
		outbox:       cfg.Outbox,
		retrier:      cfg.Retrier,
		idGen:        cfg.IDGen,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		txTimeout:    cfg.TxTimeout,
		now:          cfg.Now,
	}
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }

// execute runs fn in a fresh storage transaction, retrying the whole
// transaction when the retrier classifies the failure as transient.
func execute[R any](ctx context.Context, p *LedgerProcessor, op string, fn func(ctx context.Context, tx Transaction) (R, error)) (R, error) {
	start := time.Now()
	var result R
	attempts := 0

	err := p.retrier.Retry(ctx, func() error {
		attempts++
		txCtx, cancel := context.WithTimeout(ctx, p.txTimeout)
		defer cancel()

		tx, err := p.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		// Rollback must run even when the caller's context is cancelled.
		defer func() { _ = tx.Rollback(context.WithoutCancel(txCtx)) }()

		r, err := fn(txCtx, tx)
		if err != nil {
			return err
		}
		if err := tx.Commit(txCtx); err != nil {
			return err
		}
		result = r
		return nil
	})

	p.observe(op, start, err)
	if err != nil {
		p.logger.Debug().
			Err(err).
			Str("operation", op).
			Int("attempts", attempts).
			Str("code", domain.ErrorCode(err)).
			Msg("ledger command failed")
		var zero R
		return zero, err
	}
	if attempts > 1 {
		p.logger.Info().Str("operation", op).Int("attempts", attempts).Msg("ledger command succeeded after retry")
	}
	return result, nil
}

func (p *LedgerProcessor) observe(op string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = domain.ErrorCode(err)
	}
	p.metrics.CommandsTotal.WithLabelValues(op, outcome).Inc()
	p.metrics.CommandDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// emit writes result into the outbox within tx.
func (p *LedgerProcessor) emit(ctx context.Context, tx Transaction, requestID domain.RequestID, eventType, aggregateType, aggregateID string, result any) error {
	if p.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return p.outbox.Create(ctx, tx, &domain.OutboxEvent{
		ID:            p.idGen.Generate().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		RequestID:     requestID,
		Actor:         domain.ActorFromContext(ctx).UserID,
		Payload:       payload,
		CreatedAt:     p.now(),
	})
}

func newID[K domain.Kind](p *LedgerProcessor) domain.ID[K] {
	return domain.IDFromUUID[K](p.idGen.Generate())
}

// balanceOf returns the account balance as seen inside tx.
func (p *LedgerProcessor) balanceOf(ctx context.Context, tx Transaction, account *domain.Account) (domain.Money, error) {
	balance, err := p.balances.CurrentBalance(ctx, tx, account.ID)
	if err != nil {
		return domain.Money{}, err
	}
	return domain.NewMoneyRounded(balance, account.Currency)
}

// loadAccount reads an account and checks that it belongs to ledgerID when given.
func (p *LedgerProcessor) loadAccount(ctx context.Context, tx Transaction, id domain.AccountID, ledgerID *domain.LedgerID) (*domain.Account, error) {
	account, err := p.accounts.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if ledgerID != nil && account.LedgerID != *ledgerID {
		return nil, fmt.Errorf("%w: account %s is not in ledger %s", domain.ErrLedgerMismatch, id, ledgerID)
	}
	return account, nil
}

// checkDebit verifies an outflow against the account's derived balance.
// Two debits passing the check concurrently cannot both commit: the storage
// transaction is serializable and the loser is retried.
func (p *LedgerProcessor) checkDebit(ctx context.Context, tx Transaction, account *domain.Account, amount domain.Money) error {
	if account.AllowNegativeBalance {
		return account.ValidateCurrency(amount)
	}
	balance, err := p.balances.CurrentBalance(ctx, tx, account.ID)
	if err != nil {
		return err
	}
	return account.ValidateDebit(balance, amount)
}

// insertWithEntry writes a transaction row and its single entry.
func (p *LedgerProcessor) insertWithEntry(ctx context.Context, tx Transaction, t *domain.Transaction, nature domain.Nature) (*domain.Entry, error) {
	entry := &domain.Entry{
		ID:            newID[domain.EntryKind](p),
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Amount:        t.Amount,
		Nature:        nature,
		Date:          t.Date,
		CreatedAt:     t.CreatedAt,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := p.transactions.Create(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := p.entries.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// lockTransactions locks ids in a stable order and fails with NotFound when any is missing.
func (p *LedgerProcessor) lockTransactions(ctx context.Context, tx Transaction, ids []domain.TransactionID) ([]*domain.Transaction, error) {
	locked, err := p.transactions.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(locked) != len(ids) {
		found := make(map[domain.TransactionID]bool, len(locked))
		for _, t := range locked {
			found[t.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
			}
		}
	}
	return locked, nil
}

func uniqueIDs(ids []domain.TransactionID) []domain.TransactionID {
	seen := make(map[domain.TransactionID]bool, len(ids))
	out := make([]domain.TransactionID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func signedSum(entries []*domain.Entry, accountID domain.AccountID) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.AccountID == accountID {
			total = total.Add(e.Signed().Amount())
		}
	}
	return total
}
