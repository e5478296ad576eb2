package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/metrics"
	"github.com/iho/famledger/internal/usecase"
	"github.com/iho/famledger/internal/usecase/mocks"
)

func TestCommandServiceReplaysStoredResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := usecase.NewCommandService(f.processor, f.idem, time.Hour, m, zerolog.Nop())

	cmd := domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Salary",
		Amount:    usd("2500.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	}
	first, err := svc.CreateTransaction(ctx, cmd)
	require.NoError(t, err)
	second, err := svc.CreateTransaction(ctx, cmd)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	assert.Equal(t, 1, f.store.TransactionCount())
	assert.Equal(t, 1, f.idem.Saves)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IdempotencyHits.WithLabelValues(domain.OpCreateTransaction)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IdempotencyMisses.WithLabelValues(domain.OpCreateTransaction)))
}

func TestCommandServiceSplitReplayDoesNotRevalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("100.00"), day(1))
	original := f.expense(t, f.checking, usd("60.00"), day(2))
	cat := domain.NewID[domain.CategoryKind]()

	cmd := domain.SplitTransactionCommand{
		RequestID:             newRequestID(),
		OriginalTransactionID: original.ID,
		Splits: []domain.SplitSpec{
			{Amount: usd("20.00"), CategoryID: cat},
			{Amount: usd("40.00"), CategoryID: cat},
		},
	}
	first, err := f.service.SplitTransaction(ctx, cmd)
	require.NoError(t, err)

	// A second execution would fail with ErrAlreadySplit.
	second, err := f.service.SplitTransaction(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.OriginalID, second.OriginalID)
	require.Len(t, second.SplitTransactions, 2)
	assert.Equal(t, first.SplitTransactions[1].ID, second.SplitTransactions[1].ID)
	assert.Len(t, f.store.Children(original.ID), 2)
}

func TestCommandServiceCollapsesConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	cmd := domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Gift",
		Amount:    usd("50.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*domain.TransactionResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.CreateTransaction(context.Background(), cmd)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
	}
	assert.Equal(t, 1, f.store.TransactionCount())
}

func TestCommandServiceRejectsReusedRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := newRequestID()
	created, err := f.service.CreateTransaction(ctx, domain.CreateTransactionCommand{
		RequestID: requestID,
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Salary",
		Amount:    usd("10.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	})
	require.NoError(t, err)

	_, err = f.service.DeleteTransaction(ctx, domain.DeleteTransactionCommand{
		RequestID:     requestID,
		TransactionID: created.ID,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	stored, _ := f.store.Transaction(created.ID)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

// gatedStore holds the first lookup until release is closed.
type gatedStore struct {
	*mocks.MemoryIdempotencyStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Get(ctx context.Context, requestID domain.RequestID) (*domain.IdempotencyRecord, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.MemoryIdempotencyStore.Get(ctx, requestID)
}

func TestCommandServiceConcurrentReuseAcrossOperations(t *testing.T) {
	f := newFixture(t)
	f.income(t, f.checking, usd("100.00"), day(1))
	store := &gatedStore{
		MemoryIdempotencyStore: f.idem,
		entered:                make(chan struct{}),
		release:                make(chan struct{}),
	}
	svc := usecase.NewCommandService(f.processor, store, time.Hour, nil, zerolog.Nop())
	requestID := newRequestID()

	var createErr error
	created := make(chan struct{})
	go func() {
		defer close(created)
		_, createErr = svc.CreateTransaction(context.Background(), domain.CreateTransactionCommand{
			RequestID: requestID,
			LedgerID:  f.ledgerID,
			AccountID: f.checking.ID,
			Name:      "Groceries",
			Amount:    usd("10.00"),
			Date:      day(2),
			Type:      domain.TransactionTypeExpense,
		})
	}()
	<-store.entered

	var transferErr error
	transferred := make(chan struct{})
	go func() {
		defer close(transferred)
		_, transferErr = svc.Transfer(context.Background(), domain.TransferCommand{
			RequestID:     requestID,
			LedgerID:      f.ledgerID,
			FromAccountID: f.checking.ID,
			ToAccountID:   f.savings.ID,
			Amount:        usd("20.00"),
			Date:          day(2),
		})
	}()

	// Whether the transfer joins the running call or arrives after it,
	// it must be refused rather than crash.
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	<-created
	<-transferred

	require.NoError(t, createErr)
	require.ErrorIs(t, transferErr, domain.ErrValidation)
	assert.Equal(t, 2, f.store.TransactionCount())
	assert.Equal(t, "90.00", f.balance(t, f.checking))
}

func TestCommandServiceFailuresAreNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Rent",
		Amount:    usd("500.00"),
		Date:      day(2),
		Type:      domain.TransactionTypeExpense,
	}

	_, err := f.service.CreateTransaction(ctx, cmd)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Zero(t, f.idem.Saves)

	f.income(t, f.checking, usd("600.00"), day(1))
	res, err := f.service.CreateTransaction(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.NewBalance.StringFixed())
}

func TestCommandServiceZeroTTLExpiresImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	record := domain.NewIdempotencyRecord(newRequestID(), domain.OpCreateTransaction, `{}`, nil, 0, testNow)
	require.NoError(t, f.idem.Save(ctx, record))

	got, err := f.idem.Get(ctx, record.RequestID)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := f.idem.Exists(ctx, record.RequestID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCommandServiceSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.idem.SaveErr = errors.New("disk full")

	_, err := f.service.CreateTransaction(context.Background(), domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Salary",
		Amount:    usd("10.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	})
	require.ErrorIs(t, err, domain.ErrDatabase)
	assert.Equal(t, domain.CodeDatabase, domain.ErrorCode(err))
}

func TestCommandServiceRequiresRequestID(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Transfer(context.Background(), domain.TransferCommand{
		LedgerID:      f.ledgerID,
		FromAccountID: f.checking.ID,
		ToAccountID:   f.savings.ID,
		Amount:        usd("1.00"),
		Date:          day(1),
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequestID)
	assert.Zero(t, f.store.Begins)
}
