package domain

import (
	"fmt"
	"time"
)

// TransactionType classifies a transaction.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusCompleted  TransactionStatus = "completed"
	StatusReconciled TransactionStatus = "reconciled"
	StatusVoided     TransactionStatus = "voided"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusReconciled, StatusVoided:
		return true
	}
	return false
}

// Transaction is a ledger record owning one or more entries.
type Transaction struct {
	ID                    TransactionID
	LedgerID              LedgerID
	AccountID             AccountID
	Name                  string
	Description           *string
	Amount                Money
	Date                  time.Time
	Type                  TransactionType
	Status                TransactionStatus
	PreviousStatus        *TransactionStatus
	CategoryID            *CategoryID
	PayeeID               *PayeeID
	OriginalTransactionID *TransactionID
	TransferID            *TransferID
	ExternalID            *string
	IsSplit               bool
	Tags                  []string
	Notes                 *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsSplitChild reports whether the transaction was produced by a split.
func (t *Transaction) IsSplitChild() bool {
	return t.OriginalTransactionID != nil
}

// CheckSplittable fails with ErrAlreadySplit when the transaction was split
// before or is itself a split child.
func (t *Transaction) CheckSplittable() error {
	if t.IsSplit {
		return fmt.Errorf("%w: %s", ErrAlreadySplit, t.ID)
	}
	if t.IsSplitChild() {
		return fmt.Errorf("%w: %s is a split of %s", ErrAlreadySplit, t.ID, t.OriginalTransactionID)
	}
	if t.Status == StatusVoided {
		return fmt.Errorf("%w: cannot split voided transaction %s", ErrInvalidTransition, t.ID)
	}
	return nil
}

// CheckEditable fails when the transaction can no longer change amount or metadata.
func (t *Transaction) CheckEditable() error {
	switch {
	case t.IsSplit:
		return fmt.Errorf("%w: %s", ErrAlreadySplit, t.ID)
	case t.Status == StatusVoided, t.Status == StatusReconciled:
		return fmt.Errorf("%w: cannot edit %s transaction %s", ErrInvalidTransition, t.Status, t.ID)
	}
	return nil
}

// Settle moves a pending transaction to completed.
func (t *Transaction) Settle(at time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidTransition, t.ID, t.Status, StatusPending)
	}
	t.Status = StatusCompleted
	t.UpdatedAt = at
	return nil
}

// Reconcile marks a pending or completed transaction as matched against a statement.
func (t *Transaction) Reconcile(at time.Time) error {
	if t.Status != StatusPending && t.Status != StatusCompleted {
		return fmt.Errorf("%w: %s is %s and cannot be reconciled", ErrInvalidTransition, t.ID, t.Status)
	}
	t.Status = StatusReconciled
	t.UpdatedAt = at
	return nil
}

// Void soft-deletes the transaction and remembers the state to restore.
func (t *Transaction) Void(at time.Time) error {
	if t.Status == StatusVoided {
		return fmt.Errorf("%w: %s is already voided", ErrInvalidTransition, t.ID)
	}
	if t.IsSplit {
		return fmt.Errorf("%w: %s was split, delete its splits instead", ErrInvalidTransition, t.ID)
	}
	prev := t.Status
	t.PreviousStatus = &prev
	t.Status = StatusVoided
	t.UpdatedAt = at
	return nil
}

// Restore reverts a void.
func (t *Transaction) Restore(at time.Time) error {
	if t.Status != StatusVoided {
		return fmt.Errorf("%w: %s is not voided", ErrInvalidTransition, t.ID)
	}
	t.Status = StatusCompleted
	if t.PreviousStatus != nil {
		t.Status = *t.PreviousStatus
	}
	t.PreviousStatus = nil
	t.UpdatedAt = at
	return nil
}

// AffectsBalance reports whether the transaction's entries count toward balances.
// Voided transactions and split originals are excluded, the latter because
// their children carry the amounts.
func (t *Transaction) AffectsBalance() bool {
	return t.Status != StatusVoided && !t.IsSplit
}
