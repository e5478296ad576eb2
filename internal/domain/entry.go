package domain

import (
	"fmt"
	"time"
)

// Nature is the direction of an entry relative to its account.
type Nature string

const (
	NatureInflow  Nature = "inflow"
	NatureOutflow Nature = "outflow"
)

// Opposite returns the other direction.
func (n Nature) Opposite() Nature {
	if n == NatureInflow {
		return NatureOutflow
	}
	return NatureInflow
}

func (n Nature) Valid() bool {
	return n == NatureInflow || n == NatureOutflow
}

// NatureForType returns the entry direction implied by a non-transfer
// transaction type. Transfers take their direction from the leg instead.
func NatureForType(t TransactionType) (Nature, error) {
	switch t {
	case TransactionTypeIncome:
		return NatureInflow, nil
	case TransactionTypeExpense:
		return NatureOutflow, nil
	default:
		return "", fmt.Errorf("%w: nature of %q depends on transfer side", ErrValidation, t)
	}
}

// Entry is one leg of a transaction against a single account.
type Entry struct {
	ID            EntryID
	TransactionID TransactionID
	AccountID     AccountID
	Amount        Money
	Nature        Nature
	Date          time.Time
	CreatedAt     time.Time
}

// Signed returns the amount as it affects the account balance.
func (e *Entry) Signed() Money {
	if e.Nature == NatureOutflow {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Validate checks entry invariants.
func (e *Entry) Validate() error {
	if !e.Amount.IsValid() {
		return fmt.Errorf("%w: entry amount has no currency", ErrInvalidCurrency)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: entry amount must be positive", ErrInvalidAmount)
	}
	if !e.Nature.Valid() {
		return fmt.Errorf("%w: unknown nature %q", ErrValidation, e.Nature)
	}
	return nil
}
