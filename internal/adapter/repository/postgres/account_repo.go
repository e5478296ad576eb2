package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/postgres/generated"
	"github.com/iho/famledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository. Account rows are
// read but never locked: balances derive from entries.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// Create inserts an account. Accounts are owned by the surrounding
// application; the ledger only needs this for seeding.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:                   account.ID.UUID(),
		LedgerID:             account.LedgerID.UUID(),
		Name:                 account.Name,
		Currency:             string(account.Currency),
		AllowNegativeBalance: account.AllowNegativeBalance,
		CreatedAt:            timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:            timeToPgTimestamptz(account.UpdatedAt),
	})
	return wrapErr("create account", err)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	return r.get(ctx, r.queries, id)
}

// GetByIDTx retrieves an account by ID within tx.
func (r *AccountRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id domain.AccountID) (*domain.Account, error) {
	q, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, q, id)
}

func (r *AccountRepository) get(ctx context.Context, q *generated.Queries, id domain.AccountID) (*domain.Account, error) {
	row, err := q.GetAccountByID(ctx, id.UUID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, wrapErr("get account", err)
	}

	return rowToAccount(row), nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:                   domain.IDFromUUID[domain.AccountKind](row.ID),
		LedgerID:             domain.IDFromUUID[domain.LedgerKind](row.LedgerID),
		Name:                 row.Name,
		Currency:             domain.CurrencyCode(row.Currency),
		AllowNegativeBalance: row.AllowNegativeBalance,
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
	}
}
