package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/famledger/internal/adapter/http/dto"
	"github.com/iho/famledger/internal/domain"
)

const defaultHistoryDays = 30

// BalanceQueries reads derived balances.
type BalanceQueries interface {
	History(ctx context.Context, accountID domain.AccountID, from, to time.Time, strategy domain.BalanceStrategy) ([]domain.Balance, error)
	Verify(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error)
	Materialize(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error)
	Summary(ctx context.Context, accountID domain.AccountID) (*domain.BalanceSummary, error)
}

// AccountHandler serves account scoped reads and reconciliation.
type AccountHandler struct {
	commands LedgerCommands
	balances BalanceQueries
	now      func() time.Time
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(commands LedgerCommands, balances BalanceQueries) *AccountHandler {
	return &AccountHandler{
		commands: commands,
		balances: balances,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile matches transactions against a bank statement balance.
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rid, err := requestID(r)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}
	accountID, err := pathID[domain.AccountKind](r, "id")
	if err != nil {
		writeDomainError(w, "invalid account id", err)
		return
	}

	var req dto.ReconcileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	res, err := h.commands.ReconcileTransactions(r.Context(), req.ToCommand(rid, accountID))
	if err != nil {
		writeDomainError(w, "failed to reconcile account", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Summary returns the current balance position.
func (h *AccountHandler) Summary(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID[domain.AccountKind](r, "id")
	if err != nil {
		writeDomainError(w, "invalid account id", err)
		return
	}

	summary, err := h.balances.Summary(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// History returns end-of-day balances. Query: from, to (YYYY-MM-DD) and
// strategy (forward or reverse). The range defaults to the last 30 days.
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, from, to, ok := h.rangeQuery(w, r)
	if !ok {
		return
	}

	strategy := domain.BalanceStrategy(r.URL.Query().Get("strategy"))
	if strategy == "" {
		strategy = domain.BalanceForward
	}

	balances, err := h.balances.History(r.Context(), accountID, from, to, strategy)
	if err != nil {
		writeDomainError(w, "failed to get balance history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceHistoryFromDomain(accountID, strategy, from, to, balances))
}

// Verify cross-checks forward and reverse reconstruction over the range.
func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID, from, to, ok := h.rangeQuery(w, r)
	if !ok {
		return
	}

	balances, err := h.balances.Verify(r.Context(), accountID, from, to)
	if err != nil {
		writeDomainError(w, "balance verification failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceHistoryFromDomain(accountID, domain.BalanceForward, from, to, balances))
}

// Materialize stores the verified balances of the range.
func (h *AccountHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	accountID, from, to, ok := h.rangeQuery(w, r)
	if !ok {
		return
	}

	balances, err := h.balances.Materialize(r.Context(), accountID, from, to)
	if err != nil {
		writeDomainError(w, "failed to materialize balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceHistoryFromDomain(accountID, domain.BalanceForward, from, to, balances))
}

func (h *AccountHandler) rangeQuery(w http.ResponseWriter, r *http.Request) (domain.AccountID, time.Time, time.Time, bool) {
	accountID, err := pathID[domain.AccountKind](r, "id")
	if err != nil {
		writeDomainError(w, "invalid account id", err)
		return domain.AccountID{}, time.Time{}, time.Time{}, false
	}

	today := domain.Day(h.now())
	to, err := parseDateQuery(r, "to", today)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return domain.AccountID{}, time.Time{}, time.Time{}, false
	}
	from, err := parseDateQuery(r, "from", to.AddDate(0, 0, -defaultHistoryDays))
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return domain.AccountID{}, time.Time{}, time.Time{}, false
	}

	return accountID, from, to, true
}
