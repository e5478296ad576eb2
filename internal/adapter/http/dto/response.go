package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/famledger/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// BalancePoint is one end-of-day balance.
type BalancePoint struct {
	Date           Date            `json:"date"`
	Balance        decimal.Decimal `json:"balance"`
	IsMaterialized bool            `json:"is_materialized"`
}

// BalanceHistoryResponse lists end-of-day balances of an account.
type BalanceHistoryResponse struct {
	AccountID domain.AccountID       `json:"account_id"`
	Currency  domain.CurrencyCode    `json:"currency,omitempty"`
	Strategy  domain.BalanceStrategy `json:"strategy"`
	From      Date                   `json:"from"`
	To        Date                   `json:"to"`
	Balances  []BalancePoint         `json:"balances"`
}

// BalanceHistoryFromDomain converts calculator output to a response.
func BalanceHistoryFromDomain(accountID domain.AccountID, strategy domain.BalanceStrategy, from, to time.Time, balances []domain.Balance) *BalanceHistoryResponse {
	resp := &BalanceHistoryResponse{
		AccountID: accountID,
		Strategy:  strategy,
		From:      Date{from},
		To:        Date{to},
		Balances:  make([]BalancePoint, len(balances)),
	}
	for i, b := range balances {
		if resp.Currency == "" {
			resp.Currency = b.Currency
		}
		resp.Balances[i] = BalancePoint{
			Date:           Date{b.Date},
			Balance:        b.Balance,
			IsMaterialized: b.IsMaterialized,
		}
	}
	return resp
}
