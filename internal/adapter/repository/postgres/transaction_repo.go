package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/postgres/generated"
	"github.com/iho/famledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// Create inserts a transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	err = q.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:                    t.ID.UUID(),
		LedgerID:              t.LedgerID.UUID(),
		AccountID:             t.AccountID.UUID(),
		Name:                  t.Name,
		Description:           textFromPtr(t.Description),
		Amount:                decimalToNumeric(t.Amount.Amount()),
		Currency:              string(t.Amount.Currency()),
		Date:                  dateToPg(t.Date),
		Type:                  string(t.Type),
		Status:                string(t.Status),
		PreviousStatus:        statusToPg(t.PreviousStatus),
		CategoryID:            idToPg(t.CategoryID),
		PayeeID:               idToPg(t.PayeeID),
		OriginalTransactionID: idToPg(t.OriginalTransactionID),
		TransferID:            idToPg(t.TransferID),
		ExternalID:            textFromPtr(t.ExternalID),
		IsSplit:               t.IsSplit,
		Tags:                  tagsOrEmpty(t.Tags),
		Notes:                 textFromPtr(t.Notes),
		CreatedAt:             timeToPgTimestamptz(t.CreatedAt),
		UpdatedAt:             timeToPgTimestamptz(t.UpdatedAt),
	})
	if pgErrorCode(err) == pgErrUniqueViolation {
		return fmt.Errorf("%w: external id %q already imported", domain.ErrImportConflict, deref(t.ExternalID))
	}
	return wrapErr("create transaction", err)
}

// Update writes the mutable columns of t.
func (r *TransactionRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	n, err := q.UpdateTransaction(ctx, generated.UpdateTransactionParams{
		ID:             t.ID.UUID(),
		Name:           t.Name,
		Description:    textFromPtr(t.Description),
		Amount:         decimalToNumeric(t.Amount.Amount()),
		Currency:       string(t.Amount.Currency()),
		Date:           dateToPg(t.Date),
		Status:         string(t.Status),
		PreviousStatus: statusToPg(t.PreviousStatus),
		CategoryID:     idToPg(t.CategoryID),
		PayeeID:        idToPg(t.PayeeID),
		IsSplit:        t.IsSplit,
		Tags:           tagsOrEmpty(t.Tags),
		Notes:          textFromPtr(t.Notes),
		UpdatedAt:      timeToPgTimestamptz(t.UpdatedAt),
	})
	if err != nil {
		return wrapErr("update transaction", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, t.ID)
	}
	return nil
}

// GetByID retrieves a transaction without locking it.
func (r *TransactionRepository) GetByID(ctx context.Context, tx usecase.Transaction, id domain.TransactionID) (*domain.Transaction, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}
	return scanOne(q.GetTransactionByID(ctx, id.UUID()))
}

// GetByIDForUpdate locks the transaction row and then its entries.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id domain.TransactionID) (*domain.Transaction, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	t, err := scanOne(q.GetTransactionByIDForUpdate(ctx, id.UUID()))
	if err != nil {
		return nil, err
	}
	if err := q.LockEntriesByTransaction(ctx, id.UUID()); err != nil {
		return nil, wrapErr("lock entries", err)
	}
	return t, nil
}

// GetByIDsForUpdate locks transactions in id order so concurrent batches
// cannot deadlock on each other.
func (r *TransactionRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []domain.TransactionID) ([]*domain.Transaction, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	raw := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		raw[i] = id.UUID()
	}

	rows, err := q.GetTransactionsByIDsForUpdate(ctx, raw)
	if err != nil {
		return nil, wrapErr("lock transactions", err)
	}

	out := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ListByTransfer returns the ids of both legs of a transfer.
func (r *TransactionRepository) ListByTransfer(ctx context.Context, tx usecase.Transaction, transferID domain.TransferID) ([]domain.TransactionID, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.ListTransactionIDsByTransfer(ctx, idToPg(&transferID))
	if err != nil {
		return nil, wrapErr("list transfer legs", err)
	}

	ids := make([]domain.TransactionID, len(rows))
	for i, row := range rows {
		ids[i] = domain.IDFromUUID[domain.TransactionKind](row)
	}
	return ids, nil
}

// GetByExternalID returns nil when no transaction of the ledger carries externalID.
func (r *TransactionRepository) GetByExternalID(ctx context.Context, tx usecase.Transaction, ledgerID domain.LedgerID, externalID string) (*domain.Transaction, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	t, err := scanOne(q.GetTransactionByExternalID(ctx, generated.GetTransactionByExternalIDParams{
		LedgerID:   ledgerID.UUID(),
		ExternalID: externalID,
	}))
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, nil
	}
	return t, err
}

// CountSplits counts the split children of originalID.
func (r *TransactionRepository) CountSplits(ctx context.Context, tx usecase.Transaction, originalID domain.TransactionID) (int, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return 0, err
	}

	n, err := q.CountSplits(ctx, idToPg(&originalID))
	if err != nil {
		return 0, wrapErr("count splits", err)
	}
	return int(n), nil
}

func scanOne(row generated.Transaction, err error) (*domain.Transaction, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, wrapErr("get transaction", err)
	}
	return rowToTransaction(row)
}

func rowToTransaction(row generated.Transaction) (*domain.Transaction, error) {
	amount, err := moneyFromNumeric(row.Amount, row.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s: %w", domain.ErrDatabase, row.ID, err)
	}

	t := &domain.Transaction{
		ID:                    domain.IDFromUUID[domain.TransactionKind](row.ID),
		LedgerID:              domain.IDFromUUID[domain.LedgerKind](row.LedgerID),
		AccountID:             domain.IDFromUUID[domain.AccountKind](row.AccountID),
		Name:                  row.Name,
		Description:           textPtr(row.Description),
		Amount:                amount,
		Date:                  pgToDate(row.Date),
		Type:                  domain.TransactionType(row.Type),
		Status:                domain.TransactionStatus(row.Status),
		CategoryID:            idFromPg[domain.CategoryKind](row.CategoryID),
		PayeeID:               idFromPg[domain.PayeeKind](row.PayeeID),
		OriginalTransactionID: idFromPg[domain.TransactionKind](row.OriginalTransactionID),
		TransferID:            idFromPg[domain.TransferKind](row.TransferID),
		ExternalID:            textPtr(row.ExternalID),
		IsSplit:               row.IsSplit,
		Tags:                  row.Tags,
		Notes:                 textPtr(row.Notes),
		CreatedAt:             row.CreatedAt.Time,
		UpdatedAt:             row.UpdatedAt.Time,
	}
	if row.PreviousStatus.Valid {
		prev := domain.TransactionStatus(row.PreviousStatus.String)
		t.PreviousStatus = &prev
	}
	return t, nil
}

func statusToPg(s *domain.TransactionStatus) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*s), Valid: true}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
