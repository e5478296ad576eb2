package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FxSpec is an exchange rate snapshot supplied with a cross-currency transfer.
// Rate converts one unit of the source currency into the destination currency.
type FxSpec struct {
	Rate       decimal.Decimal `json:"rate"`
	Source     string          `json:"source"`
	ObtainedAt time.Time       `json:"obtained_at"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
}

// Validate rejects non-positive rates and rates whose validity has passed.
func (f *FxSpec) Validate(now time.Time) error {
	if !f.Rate.IsPositive() {
		return fmt.Errorf("%w: rate %s must be positive", ErrInvalidFxSpec, f.Rate)
	}
	if f.ValidUntil != nil && !now.Before(*f.ValidUntil) {
		return fmt.Errorf("%w: valid until %s", ErrFxSpecExpired, f.ValidUntil.Format(time.RFC3339))
	}
	return nil
}

// Convert applies the rate to amount and rounds into the target currency.
func (f *FxSpec) Convert(amount Money, to CurrencyCode, now time.Time) (Money, error) {
	if err := f.Validate(now); err != nil {
		return Money{}, err
	}
	if !amount.IsValid() {
		return Money{}, fmt.Errorf("%w: money without currency", ErrInvalidCurrency)
	}
	return NewMoneyRounded(amount.Amount().Mul(f.Rate), to)
}
