package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/famledger/internal/adapter/http/dto"
	"github.com/iho/famledger/internal/domain"
)

// LedgerCommands is the command surface of the ledger engine.
type LedgerCommands interface {
	CreateTransaction(ctx context.Context, cmd domain.CreateTransactionCommand) (*domain.TransactionResult, error)
	UpdateTransaction(ctx context.Context, cmd domain.UpdateTransactionCommand) (*domain.TransactionResult, error)
	Transfer(ctx context.Context, cmd domain.TransferCommand) (*domain.TransferResult, error)
	SplitTransaction(ctx context.Context, cmd domain.SplitTransactionCommand) (*domain.SplitTransactionResult, error)
	DeleteTransaction(ctx context.Context, cmd domain.DeleteTransactionCommand) (*domain.DeleteResult, error)
	RestoreTransaction(ctx context.Context, cmd domain.RestoreTransactionCommand) (*domain.RestoreResult, error)
	SettleTransactions(ctx context.Context, cmd domain.SettleTransactionsCommand) (*domain.SettlementResult, error)
	ReconcileTransactions(ctx context.Context, cmd domain.ReconcileTransactionsCommand) (*domain.ReconciliationResult, error)
	BulkImportTransactions(ctx context.Context, cmd domain.BulkImportTransactionsCommand) (*domain.BulkImportResult, error)
}

// TransactionHandler handles transaction commands.
type TransactionHandler struct {
	commands LedgerCommands
	now      func() time.Time
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(commands LedgerCommands) *TransactionHandler {
	return &TransactionHandler{
		commands: commands,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create records an income or expense.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, err := requestID(r)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	var req dto.CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	res, err := h.commands.CreateTransaction(r.Context(), req.ToCommand(rid))
	if err != nil {
		writeDomainError(w, "failed to create transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// Update edits an existing transaction.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	res, err := h.commands.UpdateTransaction(r.Context(), req.ToCommand(rid, id))
	if err != nil {
		writeDomainError(w, "failed to update transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Delete voids a transaction. Both legs of a transfer are voided together.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	res, err := h.commands.DeleteTransaction(r.Context(), domain.DeleteTransactionCommand{
		RequestID:     rid,
		TransactionID: id,
	})
	if err != nil {
		writeDomainError(w, "failed to delete transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Restore reverts a void.
func (h *TransactionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	rid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	res, err := h.commands.RestoreTransaction(r.Context(), domain.RestoreTransactionCommand{
		RequestID:     rid,
		TransactionID: id,
	})
	if err != nil {
		writeDomainError(w, "failed to restore transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Split divides a transaction into categorized parts.
func (h *TransactionHandler) Split(w http.ResponseWriter, r *http.Request) {
	rid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req dto.SplitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	res, err := h.commands.SplitTransaction(r.Context(), req.ToCommand(rid, id))
	if err != nil {
		writeDomainError(w, "failed to split transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// Settle completes pending transactions.
func (h *TransactionHandler) Settle(w http.ResponseWriter, r *http.Request) {
	rid, err := requestID(r)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	var req dto.SettleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	res, err := h.commands.SettleTransactions(r.Context(), req.ToCommand(rid, h.now()))
	if err != nil {
		writeDomainError(w, "failed to settle transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Import runs a bulk import. Row failures are reported in the body with 200.
func (h *TransactionHandler) Import(w http.ResponseWriter, r *http.Request) {
	rid, err := requestID(r)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	var req dto.BulkImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	res, err := h.commands.BulkImportTransactions(r.Context(), req.ToCommand(rid))
	if err != nil {
		writeDomainError(w, "failed to import transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *TransactionHandler) target(w http.ResponseWriter, r *http.Request) (domain.RequestID, domain.TransactionID, bool) {
	rid, err := requestID(r)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return domain.RequestID{}, domain.TransactionID{}, false
	}
	id, err := pathID[domain.TransactionKind](r, "id")
	if err != nil {
		writeDomainError(w, "invalid transaction id", err)
		return domain.RequestID{}, domain.TransactionID{}, false
	}
	return rid, id, true
}
