package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/famledger/internal/domain"
)

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "calendar date", input: `"2026-03-01"`, want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", input: `"2026-03-01T15:04:05Z"`, want: time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `20260301`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d.Time), "got %s", d.Time)
		})
	}
}

func TestCreateTransactionRequestToCommand(t *testing.T) {
	ledger := domain.NewID[domain.LedgerKind]()
	account := domain.NewID[domain.AccountKind]()
	body := `{
		"ledger_id": "` + ledger.String() + `",
		"account_id": "` + account.String() + `",
		"name": "Groceries",
		"amount": {"amount": "42.50", "currency": "USD"},
		"date": "2026-03-01",
		"transaction_type": "expense",
		"tags": ["food"]
	}`

	var req CreateTransactionRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	requestID := domain.NewID[domain.RequestKind]()
	cmd := req.ToCommand(requestID)

	assert.Equal(t, requestID, cmd.RequestID)
	assert.Equal(t, ledger, cmd.LedgerID)
	assert.Equal(t, account, cmd.AccountID)
	assert.True(t, cmd.Amount.Equal(domain.MustMoney("42.50", domain.USD)))
	assert.Equal(t, domain.TransactionTypeExpense, cmd.Type)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), cmd.Date)
	assert.Equal(t, []string{"food"}, cmd.Tags)
	assert.Nil(t, cmd.Status)
}

func TestCreateTransactionRequestRejectsBadMoney(t *testing.T) {
	var req CreateTransactionRequest
	err := json.Unmarshal([]byte(`{"amount": {"amount": "1.234", "currency": "USD"}}`), &req)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestUpdateTransactionRequestKeepsAbsentFieldsNil(t *testing.T) {
	var req UpdateTransactionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Rent", "date": "2026-04-01"}`), &req))

	id := domain.NewID[domain.TransactionKind]()
	cmd := req.ToCommand(domain.NewID[domain.RequestKind](), id)

	require.NotNil(t, cmd.Name)
	assert.Equal(t, "Rent", *cmd.Name)
	require.NotNil(t, cmd.Date)
	assert.Equal(t, 2026, cmd.Date.Year())
	assert.Nil(t, cmd.Amount)
	assert.Nil(t, cmd.Notes)
	assert.Equal(t, id, cmd.TransactionID)
}

func TestSettleRequestDefaultsDate(t *testing.T) {
	now := time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC)
	req := SettleRequest{TransactionIDs: []domain.TransactionID{domain.NewID[domain.TransactionKind]()}}

	cmd := req.ToCommand(domain.NewID[domain.RequestKind](), now)
	assert.Equal(t, now, cmd.SettlementDate)

	req.SettlementDate = &Date{time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	cmd = req.ToCommand(domain.NewID[domain.RequestKind](), now)
	assert.Equal(t, 1, cmd.SettlementDate.Day())
}

func TestBulkImportRequestDefaultsPolicy(t *testing.T) {
	ext := "bank-1"
	req := BulkImportRequest{
		LedgerID: domain.NewID[domain.LedgerKind](),
		Transactions: []ImportRow{{
			AccountID:  domain.NewID[domain.AccountKind](),
			Name:       "Coffee",
			Amount:     domain.MustMoney("3.00", domain.USD),
			Date:       Date{time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
			Type:       domain.TransactionTypeExpense,
			ExternalID: &ext,
		}},
	}

	cmd := req.ToCommand(domain.NewID[domain.RequestKind]())
	assert.Equal(t, domain.DefaultImportPolicy(), cmd.Policy)
	require.Len(t, cmd.Transactions, 1)
	assert.Equal(t, &ext, cmd.Transactions[0].ExternalID)

	req.Policy = &domain.ImportPolicy{ConflictStrategy: domain.ConflictFail}
	cmd = req.ToCommand(domain.NewID[domain.RequestKind]())
	assert.Equal(t, domain.ConflictFail, cmd.Policy.ConflictStrategy)
}

func TestBalanceHistoryFromDomain(t *testing.T) {
	account := domain.NewID[domain.AccountKind]()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	resp := BalanceHistoryFromDomain(account, domain.BalanceForward, from, to, []domain.Balance{
		{AccountID: account, Date: from.AddDate(0, 0, 4), Balance: decimal.RequireFromString("10.00"), Currency: domain.EUR},
	})

	assert.Equal(t, domain.EUR, resp.Currency)
	require.Len(t, resp.Balances, 1)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"date":"2026-01-05"`)
	assert.Contains(t, string(raw), `"from":"2026-01-01"`)
}
