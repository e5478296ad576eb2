package usecase

import (
	"context"
	"fmt"

	"github.com/iho/famledger/internal/domain"
)

func validateCreateCommand(cmd domain.CreateTransactionCommand) error {
	if err := domain.ValidateName(cmd.Name); err != nil {
		return err
	}
	if err := domain.ValidateAmount(cmd.Amount); err != nil {
		return err
	}
	if err := domain.ValidateDate(cmd.Date); err != nil {
		return err
	}
	if err := domain.ValidateTags(cmd.Tags); err != nil {
		return err
	}
	if err := domain.ValidateNotes(cmd.Notes); err != nil {
		return err
	}
	if cmd.Type == domain.TransactionTypeTransfer {
		return fmt.Errorf("%w: use a transfer command to move money between accounts", domain.ErrValidation)
	}
	if !cmd.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrValidation, cmd.Type)
	}
	if cmd.Status != nil && *cmd.Status != domain.StatusPending && *cmd.Status != domain.StatusCompleted {
		return fmt.Errorf("%w: new transactions must be pending or completed", domain.ErrValidation)
	}
	return nil
}

// CreateTransaction records an income or expense with a single entry.
func (p *LedgerProcessor) CreateTransaction(ctx context.Context, cmd domain.CreateTransactionCommand) (*domain.TransactionResult, error) {
	if err := validateCreateCommand(cmd); err != nil {
		return nil, err
	}
	nature, err := domain.NatureForType(cmd.Type)
	if err != nil {
		return nil, err
	}

	return execute(ctx, p, domain.OpCreateTransaction, func(ctx context.Context, tx Transaction) (*domain.TransactionResult, error) {
		account, err := p.loadAccount(ctx, tx, cmd.AccountID, &cmd.LedgerID)
		if err != nil {
			return nil, err
		}
		if nature == domain.NatureOutflow {
			err = p.checkDebit(ctx, tx, account, cmd.Amount)
		} else {
			err = account.ValidateCurrency(cmd.Amount)
		}
		if err != nil {
			return nil, err
		}

		status := domain.StatusCompleted
		if cmd.Status != nil {
			status = *cmd.Status
		}
		now := p.now()
		t := &domain.Transaction{
			ID:          newID[domain.TransactionKind](p),
			LedgerID:    cmd.LedgerID,
			AccountID:   cmd.AccountID,
			Name:        cmd.Name,
			Description: cmd.Description,
			Amount:      cmd.Amount,
			Date:        domain.Day(cmd.Date),
			Type:        cmd.Type,
			Status:      status,
			CategoryID:  cmd.CategoryID,
			PayeeID:     cmd.PayeeID,
			Tags:        cmd.Tags,
			Notes:       cmd.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		entry, err := p.insertWithEntry(ctx, tx, t, nature)
		if err != nil {
			return nil, err
		}
		if err := p.balances.InvalidateFrom(ctx, tx, account.ID, t.Date); err != nil {
			return nil, err
		}

		balance, err := p.balanceOf(ctx, tx, account)
		if err != nil {
			return nil, err
		}
		result := domain.NewTransactionResult(t, []*domain.Entry{entry}, balance)
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransactionCreated, domain.AggregateTypeTransaction, t.ID.String(), result); err != nil {
			return nil, err
		}
		if p.metrics != nil {
			p.metrics.TransactionAmount.WithLabelValues(string(account.Currency)).Observe(cmd.Amount.Amount().InexactFloat64())
		}
		return result, nil
	})
}

// UpdateTransaction changes fields of an editable transaction under its row lock.
// Split children and transfer legs keep their amount and date so the split sum
// and the two transfer legs stay consistent.
func (p *LedgerProcessor) UpdateTransaction(ctx context.Context, cmd domain.UpdateTransactionCommand) (*domain.TransactionResult, error) {
	if cmd.Name != nil {
		if err := domain.ValidateName(*cmd.Name); err != nil {
			return nil, err
		}
	}
	if cmd.Amount != nil {
		if err := domain.ValidateAmount(*cmd.Amount); err != nil {
			return nil, err
		}
	}
	if cmd.Tags != nil {
		if err := domain.ValidateTags(cmd.Tags); err != nil {
			return nil, err
		}
	}
	if err := domain.ValidateNotes(cmd.Notes); err != nil {
		return nil, err
	}

	return execute(ctx, p, domain.OpUpdateTransaction, func(ctx context.Context, tx Transaction) (*domain.TransactionResult, error) {
		t, err := p.transactions.GetByIDForUpdate(ctx, tx, cmd.TransactionID)
		if err != nil {
			return nil, err
		}
		if err := t.CheckEditable(); err != nil {
			return nil, err
		}
		structural := cmd.Amount != nil || cmd.Date != nil
		if structural && (t.IsSplitChild() || t.TransferID != nil) {
			return nil, fmt.Errorf("%w: amount and date of split or transfer transactions are fixed", domain.ErrValidation)
		}

		account, err := p.loadAccount(ctx, tx, t.AccountID, nil)
		if err != nil {
			return nil, err
		}
		invalidateFrom := t.Date

		if cmd.Name != nil {
			t.Name = *cmd.Name
		}
		if cmd.Description != nil {
			t.Description = cmd.Description
		}
		if cmd.CategoryID != nil {
			t.CategoryID = cmd.CategoryID
		}
		if cmd.PayeeID != nil {
			t.PayeeID = cmd.PayeeID
		}
		if cmd.Tags != nil {
			t.Tags = cmd.Tags
		}
		if cmd.Notes != nil {
			t.Notes = cmd.Notes
		}
		if cmd.Amount != nil {
			if err := account.ValidateCurrency(*cmd.Amount); err != nil {
				return nil, err
			}
			t.Amount = *cmd.Amount
		}
		if cmd.Date != nil {
			t.Date = domain.Day(*cmd.Date)
			if t.Date.Before(invalidateFrom) {
				invalidateFrom = t.Date
			}
		}
		t.UpdatedAt = p.now()

		if err := p.transactions.Update(ctx, tx, t); err != nil {
			return nil, err
		}
		if structural {
			if err := p.entries.UpdateForTransaction(ctx, tx, t.ID, t.Amount, t.Date); err != nil {
				return nil, err
			}
			if err := p.balances.InvalidateFrom(ctx, tx, account.ID, invalidateFrom); err != nil {
				return nil, err
			}
		}
		entries, err := p.entries.ListByTransaction(ctx, tx, t.ID)
		if err != nil {
			return nil, err
		}
		if structural && !account.AllowNegativeBalance {
			balance, err := p.balances.CurrentBalance(ctx, tx, account.ID)
			if err != nil {
				return nil, err
			}
			if balance.IsNegative() {
				return nil, fmt.Errorf("%w: account %s would drop to %s", domain.ErrInsufficientBalance, account.ID, balance)
			}
		}

		balance, err := p.balanceOf(ctx, tx, account)
		if err != nil {
			return nil, err
		}
		result := domain.NewTransactionResult(t, entries, balance)
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransactionUpdated, domain.AggregateTypeTransaction, t.ID.String(), result); err != nil {
			return nil, err
		}
		return result, nil
	})
}
