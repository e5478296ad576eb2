package domain

import "time"

// Operation names recorded with idempotency records and outbox events.
const (
	OpCreateTransaction   = "create_transaction"
	OpUpdateTransaction   = "update_transaction"
	OpTransfer            = "transfer"
	OpSplitTransaction    = "split_transaction"
	OpDeleteTransaction   = "delete_transaction"
	OpRestoreTransaction  = "restore_transaction"
	OpSettleTransactions  = "settle_transactions"
	OpReconcile           = "reconcile_transactions"
	OpBulkImport          = "bulk_import_transactions"
	OpCleanupIdempotency  = "cleanup_idempotency"
	OpMaterializeBalances = "materialize_balances"
)

// CreateTransactionCommand records a single income or expense.
type CreateTransactionCommand struct {
	RequestID   RequestID          `json:"request_id"`
	LedgerID    LedgerID           `json:"ledger_id"`
	AccountID   AccountID          `json:"account_id"`
	Name        string             `json:"name"`
	Description *string            `json:"description,omitempty"`
	Amount      Money              `json:"amount"`
	Date        time.Time          `json:"date"`
	Type        TransactionType    `json:"transaction_type"`
	CategoryID  *CategoryID        `json:"category_id,omitempty"`
	PayeeID     *PayeeID           `json:"payee_id,omitempty"`
	Status      *TransactionStatus `json:"status,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
}

// UpdateTransactionCommand changes an existing transaction. Nil fields are left unchanged.
type UpdateTransactionCommand struct {
	RequestID     RequestID     `json:"request_id"`
	TransactionID TransactionID `json:"transaction_id"`
	Name          *string       `json:"name,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Amount        *Money        `json:"amount,omitempty"`
	Date          *time.Time    `json:"date,omitempty"`
	CategoryID    *CategoryID   `json:"category_id,omitempty"`
	PayeeID       *PayeeID      `json:"payee_id,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
}

// TransferCommand moves money between two accounts of the same ledger.
type TransferCommand struct {
	RequestID     RequestID   `json:"request_id"`
	LedgerID      LedgerID    `json:"ledger_id"`
	FromAccountID AccountID   `json:"from_account_id"`
	ToAccountID   AccountID   `json:"to_account_id"`
	Amount        Money       `json:"amount"`
	Date          time.Time   `json:"date"`
	Description   string      `json:"description"`
	CategoryID    *CategoryID `json:"category_id,omitempty"`
	FxSpec        *FxSpec     `json:"fx_spec,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	Notes         *string     `json:"notes,omitempty"`
}

// SplitSpec is one part of a split.
type SplitSpec struct {
	Amount      Money      `json:"amount"`
	CategoryID  CategoryID `json:"category_id"`
	Description *string    `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// SplitTransactionCommand divides a transaction into ordered parts.
type SplitTransactionCommand struct {
	RequestID             RequestID     `json:"request_id"`
	OriginalTransactionID TransactionID `json:"original_transaction_id"`
	Splits                []SplitSpec   `json:"splits"`
}

// DeleteTransactionCommand voids a transaction.
type DeleteTransactionCommand struct {
	RequestID     RequestID     `json:"request_id"`
	TransactionID TransactionID `json:"transaction_id"`
}

// RestoreTransactionCommand reverts a void.
type RestoreTransactionCommand struct {
	RequestID     RequestID     `json:"request_id"`
	TransactionID TransactionID `json:"transaction_id"`
}

// SettleTransactionsCommand completes pending transactions.
type SettleTransactionsCommand struct {
	RequestID      RequestID       `json:"request_id"`
	TransactionIDs []TransactionID `json:"transaction_ids"`
	SettlementDate time.Time       `json:"settlement_date"`
}

// ReconcileTransactionsCommand matches transactions against a bank statement.
type ReconcileTransactionsCommand struct {
	RequestID        RequestID       `json:"request_id"`
	AccountID        AccountID       `json:"account_id"`
	TransactionIDs   []TransactionID `json:"transaction_ids"`
	StatementDate    time.Time       `json:"statement_date"`
	StatementBalance Money           `json:"statement_balance"`
}

// ConflictStrategy decides what happens when an imported row already exists.
type ConflictStrategy string

const (
	ConflictSkip      ConflictStrategy = "skip"
	ConflictOverwrite ConflictStrategy = "overwrite"
	ConflictFail      ConflictStrategy = "fail"
)

// ImportPolicy controls bulk import behaviour.
type ImportPolicy struct {
	Upsert           bool             `json:"upsert"`
	ConflictStrategy ConflictStrategy `json:"conflict_strategy"`
}

// DefaultImportPolicy skips rows that already exist.
func DefaultImportPolicy() ImportPolicy {
	return ImportPolicy{ConflictStrategy: ConflictSkip}
}

// Overwrites reports whether existing rows are replaced.
func (p ImportPolicy) Overwrites() bool {
	return p.Upsert || p.ConflictStrategy == ConflictOverwrite
}

// ImportTransactionData is one row of a bulk import.
type ImportTransactionData struct {
	AccountID   AccountID       `json:"account_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Amount      Money           `json:"amount"`
	Date        time.Time       `json:"date"`
	Type        TransactionType `json:"transaction_type"`
	CategoryID  *CategoryID     `json:"category_id,omitempty"`
	PayeeID     *PayeeID        `json:"payee_id,omitempty"`
	ExternalID  *string         `json:"external_id,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

// BulkImportTransactionsCommand imports many rows into a ledger.
type BulkImportTransactionsCommand struct {
	RequestID    RequestID               `json:"request_id"`
	LedgerID     LedgerID                `json:"ledger_id"`
	Transactions []ImportTransactionData `json:"transactions"`
	Policy       ImportPolicy            `json:"policy"`
}
