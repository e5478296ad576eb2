package usecase

import (
	"context"
	"fmt"

	"github.com/iho/famledger/internal/domain"
)

// transactionGroup returns the ids that must change together with id: both
// legs for a transfer, otherwise id alone.
func (p *LedgerProcessor) transactionGroup(ctx context.Context, tx Transaction, id domain.TransactionID) ([]domain.TransactionID, error) {
	t, err := p.transactions.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t.TransferID == nil {
		return []domain.TransactionID{id}, nil
	}
	return p.transactions.ListByTransfer(ctx, tx, *t.TransferID)
}

// applyToGroup locks the group of id, applies change to each member and
// persists the result. It returns the locked rows and the member matching id.
func (p *LedgerProcessor) applyToGroup(ctx context.Context, tx Transaction, id domain.TransactionID, change func(*domain.Transaction) error) ([]*domain.Transaction, *domain.Transaction, error) {
	ids, err := p.transactionGroup(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	locked, err := p.lockTransactions(ctx, tx, ids)
	if err != nil {
		return nil, nil, err
	}

	var target *domain.Transaction
	for _, t := range locked {
		if err := change(t); err != nil {
			return nil, nil, err
		}
		if err := p.transactions.Update(ctx, tx, t); err != nil {
			return nil, nil, err
		}
		if err := p.balances.InvalidateFrom(ctx, tx, t.AccountID, t.Date); err != nil {
			return nil, nil, err
		}
		if t.ID == id {
			target = t
		}
	}
	if target == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
	}
	return locked, target, nil
}

// guardOverdraft runs after a status change has been applied to members. Any
// non-overdraft account that received an entry of the given nature from a
// member must not be left negative.
func (p *LedgerProcessor) guardOverdraft(ctx context.Context, tx Transaction, members []*domain.Transaction, nature domain.Nature, action string) error {
	checked := make(map[domain.AccountID]bool)
	for _, t := range members {
		entries, err := p.entries.ListByTransaction(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Nature != nature || checked[e.AccountID] {
				continue
			}
			checked[e.AccountID] = true

			account, err := p.loadAccount(ctx, tx, e.AccountID, nil)
			if err != nil {
				return err
			}
			if account.AllowNegativeBalance {
				continue
			}
			balance, err := p.balances.CurrentBalance(ctx, tx, account.ID)
			if err != nil {
				return err
			}
			if balance.IsNegative() {
				return fmt.Errorf("%w: %s %s would overdraw account %s", domain.ErrInsufficientBalance, action, t.ID, account.ID)
			}
		}
	}
	return nil
}

func idsOf(ts []*domain.Transaction) []domain.TransactionID {
	ids := make([]domain.TransactionID, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	return ids
}

// DeleteTransaction voids a transaction. Transfers are voided on both legs.
func (p *LedgerProcessor) DeleteTransaction(ctx context.Context, cmd domain.DeleteTransactionCommand) (*domain.DeleteResult, error) {
	return execute(ctx, p, domain.OpDeleteTransaction, func(ctx context.Context, tx Transaction) (*domain.DeleteResult, error) {
		now := p.now()
		locked, target, err := p.applyToGroup(ctx, tx, cmd.TransactionID, func(t *domain.Transaction) error {
			return t.Void(now)
		})
		if err != nil {
			return nil, err
		}
		if err := p.guardOverdraft(ctx, tx, locked, domain.NatureInflow, "voiding"); err != nil {
			return nil, err
		}

		account, err := p.loadAccount(ctx, tx, target.AccountID, nil)
		if err != nil {
			return nil, err
		}
		balance, err := p.balanceOf(ctx, tx, account)
		if err != nil {
			return nil, err
		}
		result := &domain.DeleteResult{
			TransactionIDs: idsOf(locked),
			DeletedAt:      now,
			NewBalance:     balance,
		}
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransactionVoided, domain.AggregateTypeTransaction, target.ID.String(), result); err != nil {
			return nil, err
		}
		return result, nil
	})
}

// RestoreTransaction reverts a void to the status held before it.
func (p *LedgerProcessor) RestoreTransaction(ctx context.Context, cmd domain.RestoreTransactionCommand) (*domain.RestoreResult, error) {
	return execute(ctx, p, domain.OpRestoreTransaction, func(ctx context.Context, tx Transaction) (*domain.RestoreResult, error) {
		now := p.now()
		locked, target, err := p.applyToGroup(ctx, tx, cmd.TransactionID, func(t *domain.Transaction) error {
			return t.Restore(now)
		})
		if err != nil {
			return nil, err
		}
		if err := p.guardOverdraft(ctx, tx, locked, domain.NatureOutflow, "restoring"); err != nil {
			return nil, err
		}

		account, err := p.loadAccount(ctx, tx, target.AccountID, nil)
		if err != nil {
			return nil, err
		}
		balance, err := p.balanceOf(ctx, tx, account)
		if err != nil {
			return nil, err
		}
		result := &domain.RestoreResult{
			TransactionIDs: idsOf(locked),
			Status:         target.Status,
			RestoredAt:     now,
			NewBalance:     balance,
		}
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransactionRestored, domain.AggregateTypeTransaction, target.ID.String(), result); err != nil {
			return nil, err
		}
		return result, nil
	})
}

func validateBatch(ids []domain.TransactionID) ([]domain.TransactionID, error) {
	if len(ids) == 0 {
		return nil, domain.ErrEmptyTransactionList
	}
	ids = uniqueIDs(ids)
	if len(ids) > domain.MaxBatchTransactions {
		return nil, fmt.Errorf("%w: at most %d transactions per batch", domain.ErrValidation, domain.MaxBatchTransactions)
	}
	return ids, nil
}

// SettleTransactions moves pending transactions to completed. The batch is
// all-or-nothing: one ineligible transaction rejects the whole command.
func (p *LedgerProcessor) SettleTransactions(ctx context.Context, cmd domain.SettleTransactionsCommand) (*domain.SettlementResult, error) {
	ids, err := validateBatch(cmd.TransactionIDs)
	if err != nil {
		return nil, err
	}

	return execute(ctx, p, domain.OpSettleTransactions, func(ctx context.Context, tx Transaction) (*domain.SettlementResult, error) {
		locked, err := p.lockTransactions(ctx, tx, ids)
		if err != nil {
			return nil, err
		}
		now := p.now()
		settlementDate := cmd.SettlementDate
		if settlementDate.IsZero() {
			settlementDate = now
		}
		for _, t := range locked {
			if err := t.Settle(now); err != nil {
				return nil, err
			}
			if err := p.transactions.Update(ctx, tx, t); err != nil {
				return nil, err
			}
		}

		result := &domain.SettlementResult{
			TransactionIDs: idsOf(locked),
			SettlementDate: domain.Day(settlementDate),
			Count:          len(locked),
		}
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransactionsSettled, domain.AggregateTypeTransaction, locked[0].ID.String(), result); err != nil {
			return nil, err
		}
		return result, nil
	})
}

// ReconcileTransactions marks transactions of one account as reconciled and
// compares the sum of their entries with the statement balance.
func (p *LedgerProcessor) ReconcileTransactions(ctx context.Context, cmd domain.ReconcileTransactionsCommand) (*domain.ReconciliationResult, error) {
	ids, err := validateBatch(cmd.TransactionIDs)
	if err != nil {
		return nil, err
	}
	if !cmd.StatementBalance.IsValid() {
		return nil, fmt.Errorf("%w: statement balance has no currency", domain.ErrInvalidCurrency)
	}
	if err := domain.ValidateDate(cmd.StatementDate); err != nil {
		return nil, err
	}

	return execute(ctx, p, domain.OpReconcile, func(ctx context.Context, tx Transaction) (*domain.ReconciliationResult, error) {
		account, err := p.loadAccount(ctx, tx, cmd.AccountID, nil)
		if err != nil {
			return nil, err
		}
		if err := account.ValidateCurrency(cmd.StatementBalance); err != nil {
			return nil, err
		}

		locked, err := p.lockTransactions(ctx, tx, ids)
		if err != nil {
			return nil, err
		}
		now := p.now()
		var entries []*domain.Entry
		for _, t := range locked {
			if t.AccountID != account.ID {
				return nil, fmt.Errorf("%w: transaction %s belongs to account %s", domain.ErrValidation, t.ID, t.AccountID)
			}
			if t.IsSplit {
				return nil, fmt.Errorf("%w: reconcile the splits of %s instead", domain.ErrValidation, t.ID)
			}
			if err := t.Reconcile(now); err != nil {
				return nil, err
			}
			if err := p.transactions.Update(ctx, tx, t); err != nil {
				return nil, err
			}
			es, err := p.entries.ListByTransaction(ctx, tx, t.ID)
			if err != nil {
				return nil, err
			}
			entries = append(entries, es...)
		}

		computed, err := domain.NewMoneyRounded(signedSum(entries, account.ID), account.Currency)
		if err != nil {
			return nil, err
		}
		result, err := domain.NewReconciliationResult(account.ID, idsOf(locked), domain.Day(cmd.StatementDate), cmd.StatementBalance, computed)
		if err != nil {
			return nil, err
		}
		if !result.IsBalanced {
			p.logger.Warn().
				Str("account_id", account.ID.String()).
				Str("difference", result.Difference.String()).
				Msg("reconciliation difference")
		}
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeAccountReconciled, domain.AggregateTypeAccount, account.ID.String(), result); err != nil {
			return nil, err
		}
		return result, nil
	})
}
