package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/usecase"
)

const setLockTimeout = `SELECT set_config('lock_timeout', $1, true)`

// ledgerTxOptions makes concurrent balance checks conflict: two commands
// that read an account's entries and then both debit it cannot both commit,
// the loser fails with 40001 and is retried by Retrier.
var ledgerTxOptions = pgx.TxOptions{IsoLevel: pgx.Serializable}

type pgxPool interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Every transaction it
// opens is SERIALIZABLE and bounds row lock waits by lockTimeout.
type TxManager struct {
	pool        pgxPool
	lockTimeout time.Duration
}

// NewTxManager creates a new TxManager. A zero lockTimeout waits for locks
// until the statement or context is cancelled.
func NewTxManager(pool *pgxpool.Pool, lockTimeout time.Duration) *TxManager {
	return newTxManagerWithPool(pool, lockTimeout)
}

func newTxManagerWithPool(pool pgxPool, lockTimeout time.Duration) *TxManager {
	return &TxManager{pool: pool, lockTimeout: lockTimeout}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, ledgerTxOptions)
	if err != nil {
		return nil, wrapErr("begin transaction", err)
	}

	if m.lockTimeout > 0 {
		// set_config with is_local=true is SET LOCAL and accepts a bind parameter.
		if _, err := tx.Exec(ctx, setLockTimeout, fmt.Sprintf("%dms", m.lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return nil, wrapErr("set lock timeout", err)
		}
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return wrapErr("commit", t.tx.Commit(ctx))
}

// Rollback rolls back the transaction. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

func pgxTxOf(tx usecase.Transaction) (pgx.Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected transaction type %T", domain.ErrDatabase, tx)
	}
	return t.tx, nil
}
