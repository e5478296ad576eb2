package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/famledger/internal/domain"
)

func validateImportRow(row domain.ImportTransactionData) error {
	if err := domain.ValidateName(row.Name); err != nil {
		return err
	}
	if err := domain.ValidateAmount(row.Amount); err != nil {
		return err
	}
	if err := domain.ValidateDate(row.Date); err != nil {
		return err
	}
	if err := domain.ValidateTags(row.Tags); err != nil {
		return err
	}
	if err := domain.ValidateNotes(row.Notes); err != nil {
		return err
	}
	if row.ExternalID != nil && *row.ExternalID == "" {
		return fmt.Errorf("%w: external_id cannot be empty", domain.ErrValidation)
	}
	_, err := domain.NatureForType(row.Type)
	return err
}

// importBatch carries the state of one bulk import attempt.
type importBatch struct {
	p        *LedgerProcessor
	tx       Transaction
	cmd      domain.BulkImportTransactionsCommand
	now      time.Time
	accounts map[domain.AccountID]*domain.Account
	touched  map[domain.AccountID]time.Time
	seen     map[string]int
	result   *domain.BulkImportResult
}

func (b *importBatch) fail(index int, row domain.ImportTransactionData, err error) {
	b.result.Failed++
	b.result.Errors = append(b.result.Errors, domain.ImportError{
		RowIndex:     index,
		ExternalID:   row.ExternalID,
		Code:         domain.ErrorCode(err),
		ErrorMessage: err.Error(),
	})
}

func (b *importBatch) touch(accountID domain.AccountID, date time.Time) {
	if earliest, ok := b.touched[accountID]; !ok || date.Before(earliest) {
		b.touched[accountID] = date
	}
}

func (b *importBatch) account(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	if a, ok := b.accounts[id]; ok {
		return a, nil
	}
	a, err := b.p.loadAccount(ctx, b.tx, id, &b.cmd.LedgerID)
	if err != nil {
		return nil, err
	}
	b.accounts[id] = a
	return a, nil
}

// row imports one row. A returned error aborts the batch; row-level problems
// are recorded on the result instead.
func (b *importBatch) row(ctx context.Context, index int, row domain.ImportTransactionData) error {
	if err := validateImportRow(row); err != nil {
		b.fail(index, row, err)
		return nil
	}
	if row.ExternalID != nil {
		if prev, dup := b.seen[*row.ExternalID]; dup {
			b.fail(index, row, fmt.Errorf("%w: external_id %q repeats row %d", domain.ErrValidation, *row.ExternalID, prev))
			return nil
		}
		b.seen[*row.ExternalID] = index
	}

	account, err := b.account(ctx, row.AccountID)
	if err != nil {
		if domain.IsTerminal(err) {
			b.fail(index, row, err)
			return nil
		}
		return err
	}
	if err := account.ValidateCurrency(row.Amount); err != nil {
		b.fail(index, row, err)
		return nil
	}

	var existing *domain.Transaction
	if row.ExternalID != nil {
		existing, err = b.p.transactions.GetByExternalID(ctx, b.tx, b.cmd.LedgerID, *row.ExternalID)
		if err != nil {
			return err
		}
	}
	if existing == nil {
		return b.insert(ctx, row)
	}

	policy := b.cmd.Policy
	switch {
	case policy.Overwrites():
		return b.overwrite(ctx, index, row, existing)
	case policy.ConflictStrategy == domain.ConflictFail:
		return fmt.Errorf("%w: row %d external_id %q already imported as %s", domain.ErrImportConflict, index, *row.ExternalID, existing.ID)
	default:
		b.result.Skipped++
		return nil
	}
}

func (b *importBatch) insert(ctx context.Context, row domain.ImportTransactionData) error {
	nature, _ := domain.NatureForType(row.Type)
	t := &domain.Transaction{
		ID:          newID[domain.TransactionKind](b.p),
		LedgerID:    b.cmd.LedgerID,
		AccountID:   row.AccountID,
		Name:        row.Name,
		Description: row.Description,
		Amount:      row.Amount,
		Date:        domain.Day(row.Date),
		Type:        row.Type,
		Status:      domain.StatusCompleted,
		CategoryID:  row.CategoryID,
		PayeeID:     row.PayeeID,
		ExternalID:  row.ExternalID,
		Tags:        row.Tags,
		Notes:       row.Notes,
		CreatedAt:   b.now,
		UpdatedAt:   b.now,
	}
	if _, err := b.p.insertWithEntry(ctx, b.tx, t, nature); err != nil {
		return err
	}
	b.touch(t.AccountID, t.Date)
	b.result.Imported++
	b.result.ImportedIDs = append(b.result.ImportedIDs, t.ID)
	return nil
}

func (b *importBatch) overwrite(ctx context.Context, index int, row domain.ImportTransactionData, existing *domain.Transaction) error {
	locked, err := b.p.transactions.GetByIDForUpdate(ctx, b.tx, existing.ID)
	if err != nil {
		return err
	}
	if err := locked.CheckEditable(); err != nil {
		b.fail(index, row, err)
		return nil
	}
	if locked.IsSplitChild() || locked.TransferID != nil || locked.Type != row.Type || locked.AccountID != row.AccountID {
		b.fail(index, row, fmt.Errorf("%w: %s cannot be overwritten by an import row of a different shape", domain.ErrValidation, locked.ID))
		return nil
	}

	oldDate := locked.Date
	locked.Name = row.Name
	locked.Description = row.Description
	locked.Amount = row.Amount
	locked.Date = domain.Day(row.Date)
	locked.CategoryID = row.CategoryID
	locked.PayeeID = row.PayeeID
	locked.Tags = row.Tags
	locked.Notes = row.Notes
	locked.UpdatedAt = b.now

	if err := b.p.transactions.Update(ctx, b.tx, locked); err != nil {
		return err
	}
	if err := b.p.entries.UpdateForTransaction(ctx, b.tx, locked.ID, locked.Amount, locked.Date); err != nil {
		return err
	}
	b.touch(locked.AccountID, oldDate)
	b.touch(locked.AccountID, locked.Date)
	b.result.Updated++
	b.result.ImportedIDs = append(b.result.ImportedIDs, locked.ID)
	return nil
}

// BulkImportTransactions imports rows in one storage transaction. Invalid
// rows are reported and skipped; storage errors and the fail conflict
// strategy abort the whole batch. Balance limits are not enforced.
func (p *LedgerProcessor) BulkImportTransactions(ctx context.Context, cmd domain.BulkImportTransactionsCommand) (*domain.BulkImportResult, error) {
	if len(cmd.Transactions) == 0 {
		return nil, domain.ErrEmptyTransactionList
	}
	if len(cmd.Transactions) > domain.MaxBulkImportRows {
		return nil, fmt.Errorf("%w: at most %d rows per import", domain.ErrValidation, domain.MaxBulkImportRows)
	}
	if cmd.Policy.ConflictStrategy == "" {
		cmd.Policy.ConflictStrategy = domain.ConflictSkip
	}

	return execute(ctx, p, domain.OpBulkImport, func(ctx context.Context, tx Transaction) (*domain.BulkImportResult, error) {
		b := &importBatch{
			p:        p,
			tx:       tx,
			cmd:      cmd,
			now:      p.now(),
			accounts: make(map[domain.AccountID]*domain.Account),
			touched:  make(map[domain.AccountID]time.Time),
			seen:     make(map[string]int),
			result: &domain.BulkImportResult{
				Total:       len(cmd.Transactions),
				ImportedIDs: []domain.TransactionID{},
				Errors:      []domain.ImportError{},
			},
		}
		for i, row := range cmd.Transactions {
			if err := b.row(ctx, i, row); err != nil {
				return nil, err
			}
		}
		for accountID, from := range b.touched {
			if err := p.balances.InvalidateFrom(ctx, tx, accountID, from); err != nil {
				return nil, err
			}
		}

		b.result.ImportedAt = b.now
		if err := p.emit(ctx, tx, cmd.RequestID, domain.EventTypeTransactionsImported, domain.AggregateTypeLedger, cmd.LedgerID.String(), b.result); err != nil {
			return nil, err
		}
		return b.result, nil
	})
}
