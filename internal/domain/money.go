package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is an ISO 4217 currency code.
type CurrencyCode string

// Commonly used currencies.
const (
	USD CurrencyCode = "USD"
	EUR CurrencyCode = "EUR"
	GBP CurrencyCode = "GBP"
	JPY CurrencyCode = "JPY"
	CNY CurrencyCode = "CNY"
	HKD CurrencyCode = "HKD"
	SGD CurrencyCode = "SGD"
	AUD CurrencyCode = "AUD"
	CAD CurrencyCode = "CAD"
	CHF CurrencyCode = "CHF"
)

var currencyAliases = map[string]CurrencyCode{
	"RMB": CNY,
}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(code string) (CurrencyCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if alias, ok := currencyAliases[code]; ok {
		return alias, nil
	}
	if len(code) != 3 || gomoney.GetCurrency(code) == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return CurrencyCode(code), nil
}

// MinorUnits returns the number of decimal places used by the currency.
func (c CurrencyCode) MinorUnits() int32 {
	cur := gomoney.GetCurrency(string(c))
	if cur == nil {
		return 2
	}
	return int32(cur.Fraction)
}

// Valid reports whether c is a known currency.
func (c CurrencyCode) Valid() bool {
	_, err := ParseCurrency(string(c))
	return err == nil && c != ""
}

func (c CurrencyCode) String() string {
	return string(c)
}

// Money is an immutable amount in a single currency.
// The zero value has no currency and is rejected by every operation.
type Money struct {
	amount   decimal.Decimal
	currency CurrencyCode
}

// NewMoney validates that amount fits the currency's minor units.
func NewMoney(amount decimal.Decimal, currency CurrencyCode) (Money, error) {
	code, err := ParseCurrency(string(currency))
	if err != nil {
		return Money{}, err
	}
	places := code.MinorUnits()
	if !amount.Equal(amount.Round(places)) {
		return Money{}, fmt.Errorf("%w: %s has more than %d decimal places for %s", ErrInvalidAmount, amount, places, code)
	}
	return Money{amount: amount, currency: code}, nil
}

// NewMoneyRounded rounds amount to the currency's minor units.
func NewMoneyRounded(amount decimal.Decimal, currency CurrencyCode) (Money, error) {
	code, err := ParseCurrency(string(currency))
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount.Round(code.MinorUnits()), currency: code}, nil
}

// MustMoney parses amount and panics on error. Intended for tests and constants.
func MustMoney(amount string, currency CurrencyCode) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	m, err := NewMoney(d, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the additive identity for currency.
func Zero(currency CurrencyCode) (Money, error) {
	return NewMoney(decimal.Zero, currency)
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() CurrencyCode  { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) IsValid() bool           { return m.currency != "" }

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns |m|.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Equal reports whether both currency and amount match.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Mul multiplies by factor and rounds to minor units.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	if !m.IsValid() {
		return Money{}, fmt.Errorf("%w: money without currency", ErrInvalidCurrency)
	}
	return Money{amount: m.amount.Mul(factor).Round(m.currency.MinorUnits()), currency: m.currency}, nil
}

// Div divides by divisor and rounds to minor units.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if !m.IsValid() {
		return Money{}, fmt.Errorf("%w: money without currency", ErrInvalidCurrency)
	}
	if divisor.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	places := m.currency.MinorUnits()
	return Money{amount: m.amount.DivRound(divisor, places+2).Round(places), currency: m.currency}, nil
}

// Sum adds amounts that must all be in currency.
func Sum(currency CurrencyCode, amounts ...Money) (Money, error) {
	total, err := Zero(currency)
	if err != nil {
		return Money{}, err
	}
	for _, a := range amounts {
		if total, err = total.Add(a); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

func (m Money) checkCurrency(other Money) error {
	if !m.IsValid() || !other.IsValid() {
		return fmt.Errorf("%w: money without currency", ErrInvalidCurrency)
	}
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

// StringFixed renders the amount with exactly the currency's minor units.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.MinorUnits())
}

// String renders "<amount> <CODE>".
func (m Money) String() string {
	return m.StringFixed() + " " + string(m.currency)
}

// Format renders the amount with the currency symbol, e.g. "$1,234.50".
func (m Money) Format() string {
	minor := m.amount.Shift(m.currency.MinorUnits()).IntPart()
	return gomoney.New(minor, string(m.currency)).Display()
}

type moneyJSON struct {
	Amount   string       `json:"amount"`
	Currency CurrencyCode `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, raw.Amount)
	}
	parsed, err := NewMoney(amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
