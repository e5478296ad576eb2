package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iho/famledger/internal/domain"
)

// Date accepts either a calendar date ("2026-03-01") or an RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", domain.ErrValidation)
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("%w: invalid date %q", domain.ErrValidation, s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.DateOnly))
}

func datePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// CreateTransactionRequest records an income or expense.
type CreateTransactionRequest struct {
	LedgerID    domain.LedgerID           `json:"ledger_id"`
	AccountID   domain.AccountID          `json:"account_id"`
	Name        string                    `json:"name"`
	Description *string                   `json:"description,omitempty"`
	Amount      domain.Money              `json:"amount"`
	Date        Date                      `json:"date"`
	Type        domain.TransactionType    `json:"transaction_type"`
	CategoryID  *domain.CategoryID        `json:"category_id,omitempty"`
	PayeeID     *domain.PayeeID           `json:"payee_id,omitempty"`
	Status      *domain.TransactionStatus `json:"status,omitempty"`
	Tags        []string                  `json:"tags,omitempty"`
	Notes       *string                   `json:"notes,omitempty"`
}

func (r *CreateTransactionRequest) ToCommand(requestID domain.RequestID) domain.CreateTransactionCommand {
	return domain.CreateTransactionCommand{
		RequestID:   requestID,
		LedgerID:    r.LedgerID,
		AccountID:   r.AccountID,
		Name:        r.Name,
		Description: r.Description,
		Amount:      r.Amount,
		Date:        r.Date.Time,
		Type:        r.Type,
		CategoryID:  r.CategoryID,
		PayeeID:     r.PayeeID,
		Status:      r.Status,
		Tags:        r.Tags,
		Notes:       r.Notes,
	}
}

// UpdateTransactionRequest changes the fields that are present.
type UpdateTransactionRequest struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Amount      *domain.Money      `json:"amount,omitempty"`
	Date        *Date              `json:"date,omitempty"`
	CategoryID  *domain.CategoryID `json:"category_id,omitempty"`
	PayeeID     *domain.PayeeID    `json:"payee_id,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
}

func (r *UpdateTransactionRequest) ToCommand(requestID domain.RequestID, id domain.TransactionID) domain.UpdateTransactionCommand {
	return domain.UpdateTransactionCommand{
		RequestID:     requestID,
		TransactionID: id,
		Name:          r.Name,
		Description:   r.Description,
		Amount:        r.Amount,
		Date:          datePtr(r.Date),
		CategoryID:    r.CategoryID,
		PayeeID:       r.PayeeID,
		Tags:          r.Tags,
		Notes:         r.Notes,
	}
}

// TransferRequest moves money between two accounts.
type TransferRequest struct {
	LedgerID      domain.LedgerID    `json:"ledger_id"`
	FromAccountID domain.AccountID   `json:"from_account_id"`
	ToAccountID   domain.AccountID   `json:"to_account_id"`
	Amount        domain.Money       `json:"amount"`
	Date          Date               `json:"date"`
	Description   string             `json:"description"`
	CategoryID    *domain.CategoryID `json:"category_id,omitempty"`
	FxSpec        *domain.FxSpec     `json:"fx_spec,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
}

func (r *TransferRequest) ToCommand(requestID domain.RequestID) domain.TransferCommand {
	return domain.TransferCommand{
		RequestID:     requestID,
		LedgerID:      r.LedgerID,
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Amount:        r.Amount,
		Date:          r.Date.Time,
		Description:   r.Description,
		CategoryID:    r.CategoryID,
		FxSpec:        r.FxSpec,
		Tags:          r.Tags,
		Notes:         r.Notes,
	}
}

// SplitRequest divides a transaction into parts.
type SplitRequest struct {
	Splits []domain.SplitSpec `json:"splits"`
}

func (r *SplitRequest) ToCommand(requestID domain.RequestID, id domain.TransactionID) domain.SplitTransactionCommand {
	return domain.SplitTransactionCommand{
		RequestID:             requestID,
		OriginalTransactionID: id,
		Splits:                r.Splits,
	}
}

// SettleRequest completes pending transactions.
type SettleRequest struct {
	TransactionIDs []domain.TransactionID `json:"transaction_ids"`
	SettlementDate *Date                  `json:"settlement_date,omitempty"`
}

// ToCommand defaults the settlement date to now.
func (r *SettleRequest) ToCommand(requestID domain.RequestID, now time.Time) domain.SettleTransactionsCommand {
	date := now
	if r.SettlementDate != nil {
		date = r.SettlementDate.Time
	}
	return domain.SettleTransactionsCommand{
		RequestID:      requestID,
		TransactionIDs: r.TransactionIDs,
		SettlementDate: date,
	}
}

// ReconcileRequest matches transactions against a statement.
type ReconcileRequest struct {
	TransactionIDs   []domain.TransactionID `json:"transaction_ids"`
	StatementDate    Date                   `json:"statement_date"`
	StatementBalance domain.Money           `json:"statement_balance"`
}

func (r *ReconcileRequest) ToCommand(requestID domain.RequestID, accountID domain.AccountID) domain.ReconcileTransactionsCommand {
	return domain.ReconcileTransactionsCommand{
		RequestID:        requestID,
		AccountID:        accountID,
		TransactionIDs:   r.TransactionIDs,
		StatementDate:    r.StatementDate.Time,
		StatementBalance: r.StatementBalance,
	}
}

// ImportRow is one transaction of a bulk import.
type ImportRow struct {
	AccountID   domain.AccountID       `json:"account_id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description,omitempty"`
	Amount      domain.Money           `json:"amount"`
	Date        Date                   `json:"date"`
	Type        domain.TransactionType `json:"transaction_type"`
	CategoryID  *domain.CategoryID     `json:"category_id,omitempty"`
	PayeeID     *domain.PayeeID        `json:"payee_id,omitempty"`
	ExternalID  *string                `json:"external_id,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Notes       *string                `json:"notes,omitempty"`
}

// BulkImportRequest imports many rows into one ledger.
type BulkImportRequest struct {
	LedgerID     domain.LedgerID      `json:"ledger_id"`
	Transactions []ImportRow          `json:"transactions"`
	Policy       *domain.ImportPolicy `json:"policy,omitempty"`
}

func (r *BulkImportRequest) ToCommand(requestID domain.RequestID) domain.BulkImportTransactionsCommand {
	policy := domain.DefaultImportPolicy()
	if r.Policy != nil {
		policy = *r.Policy
	}

	rows := make([]domain.ImportTransactionData, len(r.Transactions))
	for i, row := range r.Transactions {
		rows[i] = domain.ImportTransactionData{
			AccountID:   row.AccountID,
			Name:        row.Name,
			Description: row.Description,
			Amount:      row.Amount,
			Date:        row.Date.Time,
			Type:        row.Type,
			CategoryID:  row.CategoryID,
			PayeeID:     row.PayeeID,
			ExternalID:  row.ExternalID,
			Tags:        row.Tags,
			Notes:       row.Notes,
		}
	}

	return domain.BulkImportTransactionsCommand{
		RequestID:    requestID,
		LedgerID:     r.LedgerID,
		Transactions: rows,
		Policy:       policy,
	}
}
