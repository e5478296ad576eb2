package usecase

import (
	"context"
	"fmt"

	"github.com/iho/famledger/internal/domain"
)

func validateTransferCommand(cmd domain.TransferCommand) error {
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
	if cmd.FromAccountID == cmd.ToAccountID {
		return domain.ErrSameAccount
	}
	return nil
}

// Transfer writes an outflow on the source account and an inflow on the
// destination account as one atomic unit. Cross-currency transfers convert
// the amount with the supplied FxSpec.
func (p *LedgerProcessor) Transfer(ctx context.Context, cmd domain.TransferCommand) (*domain.TransferResult, error) {
	if err := validateTransferCommand(cmd); err != nil {
		return nil, err
	}

	return execute(ctx, p, domain.OpTransfer, func(ctx context.Context, tx Transaction) (*domain.TransferResult, error) {
		from, err := p.loadAccount(ctx, tx, cmd.FromAccountID, &cmd.LedgerID)
		if err != nil {
			return nil, err
		}
		to, err := p.loadAccount(ctx, tx, cmd.ToAccountID, &cmd.LedgerID)
		if err != nil {
			return nil, err
		}
		if err := p.checkDebit(ctx, tx, from, cmd.Amount); err != nil {
			return nil, err
		}

		now := p.now()
		destAmount := cmd.Amount
		var fx *domain.FxSpec
		if to.Currency != from.Currency {
			if cmd.FxSpec == nil {
				return nil, fmt.Errorf("%w: %s to %s", domain.ErrFxSpecRequired, from.Currency, to.Currency)
			}
			destAmount, err = cmd.FxSpec.Convert(cmd.Amount, to.Currency, now)
			if err != nil {
				return nil, err
			}
			if !destAmount.IsPositive() {
				return nil, fmt.Errorf("%w: converted amount rounds to zero", domain.ErrInvalidAmount)
			}
			fx = cmd.FxSpec
		}

		transferID := newID[domain.TransferKind](p)
		date := domain.Day(cmd.Date)
		name := cmd.Description
		if name == "" {
			name = fmt.Sprintf("Transfer to %s", to.Name)
		}
		leg := func(account *domain.Account, amount domain.Money, legName string) *domain.Transaction {
			return &domain.Transaction{
				ID:         newID[domain.TransactionKind](p),
				LedgerID:   cmd.LedgerID,
				AccountID:  account.ID,
				Name:       legName,
				Amount:     amount,
				Date:       date,
				Type:       domain.TransactionTypeTransfer,
				Status:     domain.StatusCompleted,
				CategoryID: cmd.CategoryID,
				TransferID: &transferID,
				Tags:       cmd.Tags,
				Notes:      cmd.Notes,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
		}

		outLeg := leg(from, cmd.Amount, name)
		inName := cmd.Description
		if inName == "" {
			inName = fmt.Sprintf("Transfer from %s", from.Name)
		}
		inLeg := leg(to, destAmount, inName)

		outEntry, err := p.insertWithEntry(ctx, tx, outLeg, domain.NatureOutflow)
		if err != nil {
			return nil, err
		}
		inEntry, err := p.insertWithEntry(ctx, tx, inLeg, domain.NatureInflow)
		if err != nil {
			return nil, err
		}
		for _, account := range []*domain.Account{from, to} {
			if err := p.balances.InvalidateFrom(ctx, tx, account.ID, date); err != nil {
				return nil, err
			}
		}

		fromBalance, err := p.balanceOf(ctx, tx, from)
		if err != nil {
			return nil, err
		}
		toBalance, err := p.balanceOf(ctx, tx, to)
		if err != nil {
			return nil, err
		}

		result := &domain.TransferResult{
			TransferID:      transferID,
			LedgerID:        cmd.LedgerID,
			FromTransaction: domain.NewTransactionResult(outLeg, []*domain.Entry{outEntry}, fromBalance),
			ToTransaction:   domain.NewTransactionResult(inLeg, []*domain.Entry{inEntry}, toBalance),
			FromBalance:     fromBalance,
			ToBalance:       toBalance,
			FxSpec:          fx,
		}
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransferCreated, domain.AggregateTypeTransfer, transferID.String(), result); err != nil {
			return nil, err
		}
		return result, nil
	})
}
