package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is an account balance at the end of a day. It is derived from
// entries and may be materialized for faster reads.
type Balance struct {
	AccountID      AccountID       `json:"account_id"`
	Date           time.Time       `json:"date"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       CurrencyCode    `json:"currency"`
	IsMaterialized bool            `json:"is_materialized"`
	IsSynced       bool            `json:"is_synced"`
}

// BalanceStrategy selects how historical balances are reconstructed.
type BalanceStrategy string

const (
	BalanceForward BalanceStrategy = "forward"
	BalanceReverse BalanceStrategy = "reverse"
)

func (s BalanceStrategy) Valid() bool {
	return s == BalanceForward || s == BalanceReverse
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
