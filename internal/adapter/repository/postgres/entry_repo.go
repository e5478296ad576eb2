package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/postgres/generated"
	"github.com/iho/famledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create creates a new entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	err = q.CreateEntry(ctx, generated.CreateEntryParams{
		ID:            entry.ID.UUID(),
		TransactionID: entry.TransactionID.UUID(),
		AccountID:     entry.AccountID.UUID(),
		Amount:        decimalToNumeric(entry.Amount.Amount()),
		Currency:      string(entry.Amount.Currency()),
		Nature:        string(entry.Nature),
		Date:          dateToPg(entry.Date),
		CreatedAt:     timeToPgTimestamptz(entry.CreatedAt),
	})
	return wrapErr("create entry", err)
}

// ListByTransaction returns the entries of a transaction.
func (r *EntryRepository) ListByTransaction(ctx context.Context, tx usecase.Transaction, transactionID domain.TransactionID) ([]*domain.Entry, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.ListEntriesByTransaction(ctx, transactionID.UUID())
	if err != nil {
		return nil, wrapErr("list entries", err)
	}
	return rowsToEntries(rows)
}

// UpdateForTransaction moves the entries of a transaction to a new amount and date.
func (r *EntryRepository) UpdateForTransaction(ctx context.Context, tx usecase.Transaction, transactionID domain.TransactionID, amount domain.Money, date time.Time) error {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	err = q.UpdateEntriesForTransaction(ctx, generated.UpdateEntriesForTransactionParams{
		TransactionID: transactionID.UUID(),
		Amount:        decimalToNumeric(amount.Amount()),
		Currency:      string(amount.Currency()),
		Date:          dateToPg(date),
	})
	return wrapErr("update entries", err)
}

func rowsToEntries(rows []generated.Entry) ([]*domain.Entry, error) {
	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		amount, err := moneyFromNumeric(row.Amount, row.Currency)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s: %w", domain.ErrDatabase, row.ID, err)
		}
		entries = append(entries, &domain.Entry{
			ID:            domain.IDFromUUID[domain.EntryKind](row.ID),
			TransactionID: domain.IDFromUUID[domain.TransactionKind](row.TransactionID),
			AccountID:     domain.IDFromUUID[domain.AccountKind](row.AccountID),
			Amount:        amount,
			Nature:        domain.Nature(row.Nature),
			Date:          pgToDate(row.Date),
			CreatedAt:     row.CreatedAt.Time,
		})
	}
	return entries, nil
}
