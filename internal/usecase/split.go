package usecase

import (
	"context"
	"fmt"

	"github.com/iho/famledger/internal/domain"
)

func validateSplitCommand(cmd domain.SplitTransactionCommand) error {
	if len(cmd.Splits) < 2 {
		return fmt.Errorf("%w: got %d", domain.ErrInsufficientSplits, len(cmd.Splits))
	}
	if len(cmd.Splits) > domain.MaxSplits {
		return fmt.Errorf("%w: at most %d splits allowed", domain.ErrValidation, domain.MaxSplits)
	}
	currency := cmd.Splits[0].Amount.Currency()
	for i, s := range cmd.Splits {
		if err := domain.ValidateAmount(s.Amount); err != nil {
			return fmt.Errorf("split %d: %w", i, err)
		}
		if s.Amount.Currency() != currency {
			return fmt.Errorf("split %d: %w", i, domain.ErrCurrencyMismatch)
		}
		if err := domain.ValidateTags(s.Tags); err != nil {
			return fmt.Errorf("split %d: %w", i, err)
		}
	}
	return nil
}

// SplitTransaction divides a transaction into children whose amounts sum to
// the original.
//
// The original's rows are locked with a blocking wait; the already-split
// check runs only after the lock is held so that of several concurrent
// splits exactly one commits and the rest observe ErrAlreadySplit. Sums are
// validated before any row is written.
func (p *LedgerProcessor) SplitTransaction(ctx context.Context, cmd domain.SplitTransactionCommand) (*domain.SplitTransactionResult, error) {
	if err := validateSplitCommand(cmd); err != nil {
		return nil, err
	}

	return execute(ctx, p, domain.OpSplitTransaction, func(ctx context.Context, tx Transaction) (*domain.SplitTransactionResult, error) {
		original, err := p.transactions.GetByIDForUpdate(ctx, tx, cmd.OriginalTransactionID)
		if err != nil {
			return nil, err
		}

		if err := original.CheckSplittable(); err != nil {
			return nil, err
		}
		existing, err := p.transactions.CountSplits(ctx, tx, original.ID)
		if err != nil {
			return nil, err
		}
		if existing > 0 {
			return nil, fmt.Errorf("%w: %s has %d splits", domain.ErrAlreadySplit, original.ID, existing)
		}

		amounts := make([]domain.Money, 0, len(cmd.Splits))
		for _, s := range cmd.Splits {
			amounts = append(amounts, s.Amount)
		}
		total, err := domain.Sum(original.Amount.Currency(), amounts...)
		if err != nil {
			return nil, err
		}
		if !total.Equal(original.Amount) {
			return nil, fmt.Errorf("%w: splits total %s, original is %s", domain.ErrSplitSumMismatch, total, original.Amount)
		}

		parentEntries, err := p.entries.ListByTransaction(ctx, tx, original.ID)
		if err != nil {
			return nil, err
		}
		if len(parentEntries) == 0 {
			return nil, fmt.Errorf("%w: transaction %s has no entries", domain.ErrValidation, original.ID)
		}
		nature := parentEntries[0].Nature

		account, err := p.loadAccount(ctx, tx, original.AccountID, nil)
		if err != nil {
			return nil, err
		}

		now := p.now()
		children := make([]*domain.Transaction, 0, len(cmd.Splits))
		childEntries := make([]*domain.Entry, 0, len(cmd.Splits))
		for _, s := range cmd.Splits {
			categoryID := s.CategoryID
			description := s.Description
			if description == nil {
				description = original.Description
			}
			child := &domain.Transaction{
				ID:                    newID[domain.TransactionKind](p),
				LedgerID:              original.LedgerID,
				AccountID:             original.AccountID,
				Name:                  original.Name,
				Description:           description,
				Amount:                s.Amount,
				Date:                  original.Date,
				Type:                  original.Type,
				Status:                original.Status,
				CategoryID:            &categoryID,
				PayeeID:               original.PayeeID,
				OriginalTransactionID: &original.ID,
				Tags:                  s.Tags,
				Notes:                 original.Notes,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			entry, err := p.insertWithEntry(ctx, tx, child, nature)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
			childEntries = append(childEntries, entry)
		}

		original.IsSplit = true
		original.UpdatedAt = now
		if err := p.transactions.Update(ctx, tx, original); err != nil {
			return nil, err
		}

		balance, err := p.balanceOf(ctx, tx, account)
		if err != nil {
			return nil, err
		}
		result := &domain.SplitTransactionResult{
			OriginalID:        original.ID,
			SplitTransactions: make([]*domain.TransactionResult, 0, len(children)),
			TotalAmount:       total,
		}
		for i, child := range children {
			result.SplitTransactions = append(result.SplitTransactions,
				domain.NewTransactionResult(child, []*domain.Entry{childEntries[i]}, balance))
		}
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransactionSplit, domain.AggregateTypeTransaction, original.ID.String(), result); err != nil {
			return nil, err
		}
		return result, nil
	})
}
