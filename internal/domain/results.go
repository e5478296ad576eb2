package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryResult describes one written entry.
type EntryResult struct {
	EntryID      EntryID   `json:"entry_id"`
	AccountID    AccountID `json:"account_id"`
	Nature       Nature    `json:"nature"`
	Amount       Money     `json:"amount"`
	BalanceAfter Money     `json:"balance_after"`
}

// TransactionResult is the state of a transaction after a mutation.
type TransactionResult struct {
	ID                    TransactionID     `json:"id"`
	LedgerID              LedgerID          `json:"ledger_id"`
	AccountID             AccountID         `json:"account_id"`
	Name                  string            `json:"name"`
	Description           *string           `json:"description,omitempty"`
	Amount                Money             `json:"amount"`
	Date                  time.Time         `json:"date"`
	Type                  TransactionType   `json:"transaction_type"`
	Status                TransactionStatus `json:"status"`
	CategoryID            *CategoryID       `json:"category_id,omitempty"`
	PayeeID               *PayeeID          `json:"payee_id,omitempty"`
	OriginalTransactionID *TransactionID    `json:"original_transaction_id,omitempty"`
	TransferID            *TransferID       `json:"transfer_id,omitempty"`
	ExternalID            *string           `json:"external_id,omitempty"`
	Tags                  []string          `json:"tags,omitempty"`
	Notes                 *string           `json:"notes,omitempty"`
	Entries               []EntryResult     `json:"entries"`
	NewBalance            Money             `json:"new_balance"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// NewTransactionResult builds a result from a transaction, its entries and
// the account balance after the mutation.
func NewTransactionResult(t *Transaction, entries []*Entry, balance Money) *TransactionResult {
	res := &TransactionResult{
		ID:                    t.ID,
		LedgerID:              t.LedgerID,
		AccountID:             t.AccountID,
		Name:                  t.Name,
		Description:           t.Description,
		Amount:                t.Amount,
		Date:                  t.Date,
		Type:                  t.Type,
		Status:                t.Status,
		CategoryID:            t.CategoryID,
		PayeeID:               t.PayeeID,
		OriginalTransactionID: t.OriginalTransactionID,
		TransferID:            t.TransferID,
		ExternalID:            t.ExternalID,
		Tags:                  t.Tags,
		Notes:                 t.Notes,
		Entries:               make([]EntryResult, 0, len(entries)),
		NewBalance:            balance,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
	for _, e := range entries {
		res.Entries = append(res.Entries, EntryResult{
			EntryID:      e.ID,
			AccountID:    e.AccountID,
			Nature:       e.Nature,
			Amount:       e.Amount,
			BalanceAfter: balance,
		})
	}
	return res
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	TransferID      TransferID         `json:"transfer_id"`
	LedgerID        LedgerID           `json:"ledger_id"`
	FromTransaction *TransactionResult `json:"from_transaction"`
	ToTransaction   *TransactionResult `json:"to_transaction"`
	FromBalance     Money              `json:"from_balance"`
	ToBalance       Money              `json:"to_balance"`
	FxSpec          *FxSpec            `json:"fx_spec,omitempty"`
}

// SplitTransactionResult lists the children created by a split.
type SplitTransactionResult struct {
	OriginalID        TransactionID        `json:"original_id"`
	SplitTransactions []*TransactionResult `json:"split_transactions"`
	TotalAmount       Money                `json:"total_amount"`
}

// DeleteResult reports a void.
type DeleteResult struct {
	TransactionIDs []TransactionID `json:"transaction_ids"`
	DeletedAt      time.Time       `json:"deleted_at"`
	NewBalance     Money           `json:"new_balance"`
}

// RestoreResult reports a restore.
type RestoreResult struct {
	TransactionIDs []TransactionID   `json:"transaction_ids"`
	Status         TransactionStatus `json:"status"`
	RestoredAt     time.Time         `json:"restored_at"`
	NewBalance     Money             `json:"new_balance"`
}

// SettlementResult reports settled transactions.
type SettlementResult struct {
	TransactionIDs []TransactionID `json:"transaction_ids"`
	SettlementDate time.Time       `json:"settlement_date"`
	Count          int             `json:"count"`
}

// ReconciliationResult compares reconciled entries with a statement balance.
type ReconciliationResult struct {
	AccountID        AccountID       `json:"account_id"`
	TransactionIDs   []TransactionID `json:"transaction_ids"`
	StatementDate    time.Time       `json:"statement_date"`
	StatementBalance Money           `json:"statement_balance"`
	ComputedBalance  Money           `json:"computed_balance"`
	Difference       Money           `json:"difference"`
	IsBalanced       bool            `json:"is_balanced"`
}

// NewReconciliationResult computes the signed difference statement - computed.
func NewReconciliationResult(accountID AccountID, ids []TransactionID, statementDate time.Time, statement, computed Money) (*ReconciliationResult, error) {
	diff, err := statement.Sub(computed)
	if err != nil {
		return nil, err
	}
	return &ReconciliationResult{
		AccountID:        accountID,
		TransactionIDs:   ids,
		StatementDate:    statementDate,
		StatementBalance: statement,
		ComputedBalance:  computed,
		Difference:       diff,
		IsBalanced:       diff.IsZero(),
	}, nil
}

// ImportError describes a row that failed to import.
type ImportError struct {
	RowIndex     int     `json:"row_index"`
	ExternalID   *string `json:"external_id,omitempty"`
	Code         string  `json:"code"`
	ErrorMessage string  `json:"error_message"`
}

// BulkImportResult summarizes a bulk import.
type BulkImportResult struct {
	Total       int             `json:"total"`
	Imported    int             `json:"imported"`
	Updated     int             `json:"updated"`
	Skipped     int             `json:"skipped"`
	Failed      int             `json:"failed"`
	ImportedIDs []TransactionID `json:"imported_ids"`
	Errors      []ImportError   `json:"errors"`
	ImportedAt  time.Time       `json:"imported_at"`
}

// BalanceSummary is the current position of an account.
type BalanceSummary struct {
	AccountID           AccountID       `json:"account_id"`
	Currency            CurrencyCode    `json:"currency"`
	Balance             decimal.Decimal `json:"balance"`
	PendingTotal        decimal.Decimal `json:"pending_total"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
	LastTransactionDate *time.Time      `json:"last_transaction_date,omitempty"`
}
