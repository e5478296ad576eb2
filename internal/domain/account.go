package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a family member's wallet, bank or card account inside a ledger.
// Its balance is derived from entries and is not stored on the account.
type Account struct {
	ID                   AccountID
	LedgerID             LedgerID
	Name                 string
	Currency             CurrencyCode
	AllowNegativeBalance bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ValidateDebit checks that an outflow of amount keeps balance non-negative
// on accounts that forbid overdrafts.
func (a *Account) ValidateDebit(balance decimal.Decimal, amount Money) error {
	if amount.Currency() != a.Currency {
		return fmt.Errorf("%w: account %s is %s, amount is %s", ErrCurrencyMismatch, a.ID, a.Currency, amount.Currency())
	}
	if !a.AllowNegativeBalance && balance.Sub(amount.Amount()).IsNegative() {
		return fmt.Errorf("%w: account %s has %s, needs %s", ErrInsufficientBalance, a.ID, balance.StringFixed(a.Currency.MinorUnits()), amount)
	}
	return nil
}

// ValidateCurrency checks that amount is in the account currency.
func (a *Account) ValidateCurrency(amount Money) error {
	if amount.Currency() != a.Currency {
		return fmt.Errorf("%w: account %s is %s, amount is %s", ErrCurrencyMismatch, a.ID, a.Currency, amount.Currency())
	}
	return nil
}
