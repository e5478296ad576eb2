package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/postgres/generated"
	"github.com/iho/famledger/internal/usecase"
)

// BalanceRepository implements usecase.BalanceRepository on top of the
// entries table and the materialized balances table. Entries of voided
// transactions and split originals never count.
type BalanceRepository struct {
	queries *generated.Queries
	now     func() time.Time
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db generated.DBTX) *BalanceRepository {
	return &BalanceRepository{
		queries: generated.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CurrentBalance sums every balance-affecting entry of the account.
func (r *BalanceRepository) CurrentBalance(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID) (decimal.Decimal, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return decimal.Zero, err
	}

	n, err := q.SumAccountEntries(ctx, accountID.UUID())
	if err != nil {
		return decimal.Zero, wrapErr("sum entries", err)
	}
	return numericToDecimal(n), nil
}

func (r *BalanceRepository) Totals(ctx context.Context, accountID domain.AccountID) (*usecase.BalanceTotals, error) {
	row, err := r.queries.GetAccountTotals(ctx, accountID.UUID())
	if err != nil {
		return nil, wrapErr("account totals", err)
	}

	totals := &usecase.BalanceTotals{
		Settled:        numericToDecimal(row.Settled),
		Pending:        numericToDecimal(row.Pending),
		PendingOutflow: numericToDecimal(row.PendingOutflow),
	}
	if row.LastDate.Valid {
		last := pgToDate(row.LastDate)
		totals.LastTransactionDate = &last
	}
	return totals, nil
}

func (r *BalanceRepository) ListEntries(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, from, to time.Time) ([]*domain.Entry, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.ListBalanceEntries(ctx, generated.ListBalanceEntriesParams{
		AccountID: accountID.UUID(),
		FromDate:  dateToPg(from),
		ToDate:    dateToPg(to),
	})
	if err != nil {
		return nil, wrapErr("list balance entries", err)
	}
	return rowsToEntries(rows)
}

func (r *BalanceRepository) SumBetween(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, after, through time.Time) (decimal.Decimal, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return decimal.Zero, err
	}

	n, err := q.SumEntriesBetween(ctx, generated.SumEntriesBetweenParams{
		AccountID: accountID.UUID(),
		After:     dateToPg(after),
		Through:   dateToPg(through),
	})
	if err != nil {
		return decimal.Zero, wrapErr("sum entries between", err)
	}
	return numericToDecimal(n), nil
}

func (r *BalanceRepository) LatestMaterializedBefore(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, before time.Time) (*domain.Balance, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}
	return scanBalance(q.GetLatestBalanceBefore(ctx, generated.GetLatestBalanceBeforeParams{
		AccountID: accountID.UUID(),
		Date:      dateToPg(before),
	}))
}

func (r *BalanceRepository) LatestMaterialized(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID) (*domain.Balance, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}
	return scanBalance(q.GetLatestBalance(ctx, accountID.UUID()))
}

// SaveMaterialized upserts one row per account and day.
func (r *BalanceRepository) SaveMaterialized(ctx context.Context, tx usecase.Transaction, balances []domain.Balance) error {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	now := r.now()
	for _, b := range balances {
		err := q.UpsertBalance(ctx, generated.UpsertBalanceParams{
			AccountID: b.AccountID.UUID(),
			Date:      dateToPg(b.Date),
			Balance:   decimalToNumeric(b.Balance),
			Currency:  string(b.Currency),
			IsSynced:  b.IsSynced,
			UpdatedAt: timeToPgTimestamptz(now),
		})
		if err != nil {
			return wrapErr("save balance", err)
		}
	}
	return nil
}

// InvalidateFrom drops materialized balances dated on or after date.
func (r *BalanceRepository) InvalidateFrom(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, date time.Time) error {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	err = q.DeleteBalancesFrom(ctx, generated.DeleteBalancesFromParams{
		AccountID: accountID.UUID(),
		Date:      dateToPg(date),
	})
	return wrapErr("invalidate balances", err)
}

func scanBalance(row generated.Balance, err error) (*domain.Balance, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get balance", err)
	}
	return &domain.Balance{
		AccountID:      domain.IDFromUUID[domain.AccountKind](row.AccountID),
		Date:           pgToDate(row.Date),
		Balance:        numericToDecimal(row.Balance),
		Currency:       domain.CurrencyCode(row.Currency),
		IsMaterialized: true,
		IsSynced:       row.IsSynced,
	}, nil
}
