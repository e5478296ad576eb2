package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the ledger core wraps exactly one of these.
var (
	ErrValidation          = errors.New("validation error")
	ErrAlreadySplit        = errors.New("transaction already split")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDatabase            = errors.New("database error")
	ErrIntegrity           = errors.New("ledger integrity violation")
)

var (
	// Lookup errors
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

	// Money errors
	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", ErrInvalidCurrency)
	ErrDivisionByZero   = fmt.Errorf("%w: division by zero", ErrInvalidAmount)

	// Command errors
	ErrSplitSumMismatch     = fmt.Errorf("%w: split amounts do not sum to original amount", ErrValidation)
	ErrInsufficientSplits   = fmt.Errorf("%w: at least two splits are required", ErrValidation)
	ErrInvalidTransition    = fmt.Errorf("%w: invalid status transition", ErrValidation)
	ErrInvalidFxSpec        = fmt.Errorf("%w: invalid exchange rate", ErrValidation)
	ErrFxSpecExpired        = fmt.Errorf("%w: exchange rate expired", ErrValidation)
	ErrFxSpecRequired       = fmt.Errorf("%w: exchange rate required for cross-currency transfer", ErrValidation)
	ErrSameAccount          = fmt.Errorf("%w: cannot transfer to same account", ErrValidation)
	ErrLedgerMismatch       = fmt.Errorf("%w: account belongs to another ledger", ErrValidation)
	ErrImportConflict       = fmt.Errorf("%w: import conflict", ErrValidation)
	ErrInvalidRequestID     = fmt.Errorf("%w: invalid request id", ErrValidation)
	ErrInvalidDateRange     = fmt.Errorf("%w: invalid date range", ErrValidation)
	ErrEmptyTransactionList = fmt.Errorf("%w: no transactions given", ErrValidation)

	// Integrity errors
	ErrBalanceDrift = fmt.Errorf("%w: forward and reverse balances disagree", ErrIntegrity)
)

// Error codes reported in results, events and API bodies.
const (
	CodeValidation          = "validation_error"
	CodeAlreadySplit        = "already_split"
	CodeConcurrencyConflict = "concurrency_conflict"
	CodeNotFound            = "not_found"
	CodeInsufficientBalance = "insufficient_balance"
	CodeInvalidCurrency     = "invalid_currency"
	CodeInvalidAmount       = "invalid_amount"
	CodeDatabase            = "database_error"
	CodeIntegrity           = "integrity_error"
)

// ErrorCode returns the taxonomy code of err. Unclassified errors are reported
// as database errors since they originate below the domain.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadySplit):
		return CodeAlreadySplit
	case errors.Is(err, ErrConcurrencyConflict):
		return CodeConcurrencyConflict
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrInvalidCurrency):
		return CodeInvalidCurrency
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrIntegrity):
		return CodeIntegrity
	default:
		return CodeDatabase
	}
}

// IsTerminal reports whether err is a business-rule failure that retrying
// the same command can never fix.
func IsTerminal(err error) bool {
	switch ErrorCode(err) {
	case CodeConcurrencyConflict, CodeDatabase, CodeIntegrity, "":
		return false
	default:
		return true
	}
}
