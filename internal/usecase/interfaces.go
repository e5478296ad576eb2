package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iho/famledger/internal/domain"
)

// AccountRepository defines read access to accounts. Accounts are managed
// outside the ledger core.
type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	GetByIDTx(ctx context.Context, tx Transaction, id domain.AccountID) (*domain.Account, error)
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, t *domain.Transaction) error
	Update(ctx context.Context, tx Transaction, t *domain.Transaction) error
	GetByID(ctx context.Context, tx Transaction, id domain.TransactionID) (*domain.Transaction, error)
	// GetByIDForUpdate blocks until the exclusive row lock on the transaction
	// and its entries is granted or the lock timeout elapses.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id domain.TransactionID) (*domain.Transaction, error)
	// GetByIDsForUpdate locks rows in id order. Missing ids are omitted.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []domain.TransactionID) ([]*domain.Transaction, error)
	ListByTransfer(ctx context.Context, tx Transaction, transferID domain.TransferID) ([]domain.TransactionID, error)
	// GetByExternalID returns nil when no transaction of the ledger carries externalID.
	GetByExternalID(ctx context.Context, tx Transaction, ledgerID domain.LedgerID, externalID string) (*domain.Transaction, error)
	CountSplits(ctx context.Context, tx Transaction, originalID domain.TransactionID) (int, error)
}

// EntryRepository defines data access for entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	ListByTransaction(ctx context.Context, tx Transaction, transactionID domain.TransactionID) ([]*domain.Entry, error)
	UpdateForTransaction(ctx context.Context, tx Transaction, transactionID domain.TransactionID, amount domain.Money, date time.Time) error
}

// BalanceTotals is the raw aggregate behind a balance summary. Settled
// covers completed and reconciled entries; PendingOutflow is the signed,
// non-positive sum of pending outflows.
type BalanceTotals struct {
	Settled             decimal.Decimal
	Pending             decimal.Decimal
	PendingOutflow      decimal.Decimal
	LastTransactionDate *time.Time
}

// BalanceRepository reads entry sums and stores materialized balances.
// A nil tx reads outside any transaction.
type BalanceRepository interface {
	CurrentBalance(ctx context.Context, tx Transaction, accountID domain.AccountID) (decimal.Decimal, error)
	Totals(ctx context.Context, accountID domain.AccountID) (*BalanceTotals, error)
	// ListEntries returns balance-affecting entries dated within [from, to], oldest first.
	ListEntries(ctx context.Context, tx Transaction, accountID domain.AccountID, from, to time.Time) ([]*domain.Entry, error)
	// SumBetween sums signed entries dated after `after` (exclusive) up to `through` (inclusive).
	// A zero `after` means from the beginning.
	SumBetween(ctx context.Context, tx Transaction, accountID domain.AccountID, after, through time.Time) (decimal.Decimal, error)
	LatestMaterializedBefore(ctx context.Context, tx Transaction, accountID domain.AccountID, before time.Time) (*domain.Balance, error)
	LatestMaterialized(ctx context.Context, tx Transaction, accountID domain.AccountID) (*domain.Balance, error)
	// SaveMaterialized upserts one row per account and day.
	SaveMaterialized(ctx context.Context, tx Transaction, balances []domain.Balance) error
	// InvalidateFrom drops materialized balances dated on or after date.
	InvalidateFrom(ctx context.Context, tx Transaction, accountID domain.AccountID, date time.Time) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) (int64, error)
}

// IdempotencyStore records processed requests. Get returns nil when the
// record is absent or expired.
type IdempotencyStore interface {
	Get(ctx context.Context, requestID domain.RequestID) (*domain.IdempotencyRecord, error)
	// Save upserts the record; the last writer wins.
	Save(ctx context.Context, record *domain.IdempotencyRecord) error
	Delete(ctx context.Context, requestID domain.RequestID) error
	Exists(ctx context.Context, requestID domain.RequestID) (bool, error)
	// CleanupExpired removes expired records and returns how many were removed.
	// Stores with native expiry return 0.
	CleanupExpired(ctx context.Context) (int64, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation while it fails with transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique 128-bit IDs.
type IDGenerator interface {
	Generate() uuid.UUID
}

// Cache defines caching operations. Get reports a miss with found=false.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
