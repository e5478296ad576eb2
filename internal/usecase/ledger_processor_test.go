package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/usecase"
	"github.com/iho/famledger/internal/usecase/mocks"
)

func TestCreateTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.income(t, f.checking, usd("1000.00"), day(1))
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "1000.00", res.NewBalance.StringFixed())
	require.Len(t, res.Entries, 1)
	assert.Equal(t, domain.NatureInflow, res.Entries[0].Nature)

	res = f.expense(t, f.checking, usd("250.50"), day(2))
	assert.Equal(t, "749.50", res.NewBalance.StringFixed())
	assert.Equal(t, domain.NatureOutflow, res.Entries[0].Nature)

	tests := []struct {
		name    string
		mutate  func(*domain.CreateTransactionCommand)
		wantErr error
	}{
		{
			name:    "overdraft",
			mutate:  func(c *domain.CreateTransactionCommand) { c.Amount = usd("749.51") },
			wantErr: domain.ErrInsufficientBalance,
		},
		{
			name:    "currency mismatch",
			mutate:  func(c *domain.CreateTransactionCommand) { c.Amount = eur("1.00") },
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name:    "other ledger",
			mutate:  func(c *domain.CreateTransactionCommand) { c.LedgerID = domain.NewID[domain.LedgerKind]() },
			wantErr: domain.ErrLedgerMismatch,
		},
		{
			name:    "unknown account",
			mutate:  func(c *domain.CreateTransactionCommand) { c.AccountID = domain.NewID[domain.AccountKind]() },
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "transfer type",
			mutate:  func(c *domain.CreateTransactionCommand) { c.Type = domain.TransactionTypeTransfer },
			wantErr: domain.ErrValidation,
		},
		{
			name: "reconciled status",
			mutate: func(c *domain.CreateTransactionCommand) {
				s := domain.StatusReconciled
				c.Status = &s
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "empty name",
			mutate:  func(c *domain.CreateTransactionCommand) { c.Name = "  " },
			wantErr: domain.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.store.TransactionCount()
			cmd := domain.CreateTransactionCommand{
				RequestID: newRequestID(),
				LedgerID:  f.ledgerID,
				AccountID: f.checking.ID,
				Name:      "Groceries",
				Amount:    usd("10.00"),
				Date:      day(3),
				Type:      domain.TransactionTypeExpense,
			}
			tt.mutate(&cmd)

			_, err := f.processor.CreateTransaction(ctx, cmd)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.store.TransactionCount(), "failed command must leave no rows")
		})
	}
}

func TestCreateTransactionOverdraftAllowed(t *testing.T) {
	f := newFixture(t)

	res := f.expense(t, f.card, usd("42.00"), day(1))

	assert.Equal(t, "-42.00", res.NewBalance.StringFixed())
}

func TestCreateTransactionWritesOutboxEvent(t *testing.T) {
	f := newFixture(t)
	ctx := domain.WithActor(context.Background(), domain.Actor{UserID: "user-7", FamilyID: "fam-1"})

	res, err := f.processor.CreateTransaction(ctx, domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Salary",
		Amount:    usd("3000.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	})
	require.NoError(t, err)

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeTransactionCreated, events[0].EventType)
	assert.Equal(t, res.ID.String(), events[0].AggregateID)
	assert.Equal(t, "user-7", events[0].Actor)
}

func TestSplitTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("500.00"), day(1))
	original := f.expense(t, f.checking, usd("120.00"), day(2))
	groceries := domain.NewID[domain.CategoryKind]()
	household := domain.NewID[domain.CategoryKind]()

	res, err := f.processor.SplitTransaction(ctx, domain.SplitTransactionCommand{
		RequestID:             newRequestID(),
		OriginalTransactionID: original.ID,
		Splits: []domain.SplitSpec{
			{Amount: usd("70.00"), CategoryID: groceries, Tags: []string{"food"}},
			{Amount: usd("50.00"), CategoryID: household},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.SplitTransactions, 2)
	assert.Equal(t, "120.00", res.TotalAmount.StringFixed())
	for _, child := range res.SplitTransactions {
		require.NotNil(t, child.OriginalTransactionID)
		assert.Equal(t, original.ID, *child.OriginalTransactionID)
		assert.Equal(t, f.checking.ID, child.AccountID)
		assert.Equal(t, original.Date, child.Date)
	}
	assert.Equal(t, groceries, *res.SplitTransactions[0].CategoryID)

	stored, ok := f.store.Transaction(original.ID)
	require.True(t, ok)
	assert.True(t, stored.IsSplit)
	assert.Len(t, f.store.Children(original.ID), 2)
	assert.Equal(t, "380.00", f.balance(t, f.checking), "split must not change the balance")
}

func TestSplitTransactionRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("500.00"), day(1))
	original := f.expense(t, f.checking, usd("100.00"), day(2))
	cat := domain.NewID[domain.CategoryKind]()

	split := func(id domain.TransactionID, amounts ...domain.Money) error {
		specs := make([]domain.SplitSpec, 0, len(amounts))
		for _, a := range amounts {
			specs = append(specs, domain.SplitSpec{Amount: a, CategoryID: cat})
		}
		_, err := f.processor.SplitTransaction(ctx, domain.SplitTransactionCommand{
			RequestID:             newRequestID(),
			OriginalTransactionID: id,
			Splits:                specs,
		})
		return err
	}

	before := f.store.TransactionCount()
	err := split(original.ID, usd("60.00"), usd("30.00"))
	require.ErrorIs(t, err, domain.ErrSplitSumMismatch)
	assert.Equal(t, before, f.store.TransactionCount(), "mismatched split must not write rows")

	require.ErrorIs(t, split(original.ID, usd("100.00")), domain.ErrInsufficientSplits)
	require.ErrorIs(t, split(original.ID, usd("50.00"), eur("50.00")), domain.ErrCurrencyMismatch)
	require.ErrorIs(t, split(domain.NewID[domain.TransactionKind](), usd("50.00"), usd("50.00")), domain.ErrTransactionNotFound)

	require.NoError(t, split(original.ID, usd("40.00"), usd("60.00")))
	err = split(original.ID, usd("40.00"), usd("60.00"))
	require.ErrorIs(t, err, domain.ErrAlreadySplit)
	assert.Equal(t, domain.CodeAlreadySplit, domain.ErrorCode(err))

	child := f.store.Children(original.ID)[0]
	require.ErrorIs(t, split(child.ID, usd("20.00"), usd("20.00")), domain.ErrAlreadySplit)
}

func TestSplitTransactionConcurrentCallersSplitOnce(t *testing.T) {
	f := newFixture(t)
	f.income(t, f.checking, usd("1000.00"), day(1))
	original := f.expense(t, f.checking, usd("300.00"), day(2))
	cat := domain.NewID[domain.CategoryKind]()

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.processor.SplitTransaction(context.Background(), domain.SplitTransactionCommand{
				RequestID:             newRequestID(),
				OriginalTransactionID: original.ID,
				Splits: []domain.SplitSpec{
					{Amount: usd("100.00"), CategoryID: cat},
					{Amount: usd("200.00"), CategoryID: cat},
				},
			})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadySplit)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.store.Children(original.ID), 2)
	assert.Equal(t, "700.00", f.balance(t, f.checking))
}

// balanceBarrier holds the first n balance reads until all n have happened,
// so every caller passes its overdraft check before any of them commits.
func balanceBarrier(n int32) func(domain.AccountID) {
	var reads atomic.Int32
	var ready sync.WaitGroup
	ready.Add(int(n))
	return func(domain.AccountID) {
		if reads.Add(1) <= n {
			ready.Done()
			ready.Wait()
		}
	}
}

func TestConcurrentExpensesNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.income(t, f.checking, usd("100.00"), day(1))

	const callers = 5
	f.store.AfterBalanceRead = balanceBarrier(callers)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.processor.CreateTransaction(context.Background(), domain.CreateTransactionCommand{
				RequestID: newRequestID(),
				LedgerID:  f.ledgerID,
				AccountID: f.checking.ID,
				Name:      "Rent",
				Amount:    usd("100.00"),
				Date:      day(2),
				Type:      domain.TransactionTypeExpense,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, f.store.Conflicts)
	assert.Equal(t, "0.00", f.balance(t, f.checking))
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.income(t, f.checking, usd("100.00"), day(1))

	const callers = 3
	f.store.AfterBalanceRead = balanceBarrier(callers)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.processor.Transfer(context.Background(), domain.TransferCommand{
				RequestID:     newRequestID(),
				LedgerID:      f.ledgerID,
				FromAccountID: f.checking.ID,
				ToAccountID:   f.savings.ID,
				Amount:        usd("60.00"),
				Date:          day(2),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "40.00", f.balance(t, f.checking))
	assert.Equal(t, "60.00", f.balance(t, f.savings))
}

func TestSplitTransactionLockWaitRespectsContext(t *testing.T) {
	f := newFixture(t)
	f.income(t, f.checking, usd("100.00"), day(1))
	original := f.expense(t, f.checking, usd("10.00"), day(2))

	holder, err := f.store.TxManager().Begin(context.Background())
	require.NoError(t, err)
	_, err = f.store.Transactions().GetByIDForUpdate(context.Background(), holder, original.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.processor.SplitTransaction(ctx, domain.SplitTransactionCommand{
		RequestID:             newRequestID(),
		OriginalTransactionID: original.ID,
		Splits: []domain.SplitSpec{
			{Amount: usd("5.00"), CategoryID: domain.NewID[domain.CategoryKind]()},
			{Amount: usd("5.00"), CategoryID: domain.NewID[domain.CategoryKind]()},
		},
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, holder.Rollback(context.Background()))

	assert.Empty(t, f.store.Children(original.ID))
}

func TestSplitTransactionSucceedsAfterLockRelease(t *testing.T) {
	f := newFixture(t)
	f.income(t, f.checking, usd("100.00"), day(1))
	original := f.expense(t, f.checking, usd("10.00"), day(2))

	holder, err := f.store.TxManager().Begin(context.Background())
	require.NoError(t, err)
	_, err = f.store.Transactions().GetByIDForUpdate(context.Background(), holder, original.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.processor.SplitTransaction(context.Background(), domain.SplitTransactionCommand{
			RequestID:             newRequestID(),
			OriginalTransactionID: original.ID,
			Splits: []domain.SplitSpec{
				{Amount: usd("4.00"), CategoryID: domain.NewID[domain.CategoryKind]()},
				{Amount: usd("6.00"), CategoryID: domain.NewID[domain.CategoryKind]()},
			},
		})
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("split finished while the row was locked: %v", err)
	case <-time.After(30 * time.Millisecond):
	}
	require.NoError(t, holder.Commit(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("split did not resume after the lock was released")
	}
	assert.Len(t, f.store.Children(original.ID), 2)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("1000.00"), day(1))

	res, err := f.processor.Transfer(ctx, domain.TransferCommand{
		RequestID:     newRequestID(),
		LedgerID:      f.ledgerID,
		FromAccountID: f.checking.ID,
		ToAccountID:   f.savings.ID,
		Amount:        usd("400.00"),
		Date:          day(2),
	})
	require.NoError(t, err)

	assert.Equal(t, "600.00", res.FromBalance.StringFixed())
	assert.Equal(t, "400.00", res.ToBalance.StringFixed())
	assert.Equal(t, "Transfer to Savings", res.FromTransaction.Name)
	assert.Equal(t, "Transfer from Checking", res.ToTransaction.Name)
	require.NotNil(t, res.FromTransaction.TransferID)
	assert.Equal(t, res.TransferID, *res.ToTransaction.TransferID)
	assert.Equal(t, domain.NatureOutflow, res.FromTransaction.Entries[0].Nature)
	assert.Equal(t, domain.NatureInflow, res.ToTransaction.Entries[0].Nature)
	assert.Nil(t, res.FxSpec)
}

func TestTransferCrossCurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("1000.00"), day(1))
	future := testNow.Add(time.Hour)
	past := testNow.Add(-time.Minute)

	cmd := domain.TransferCommand{
		RequestID:     newRequestID(),
		LedgerID:      f.ledgerID,
		FromAccountID: f.checking.ID,
		ToAccountID:   f.euro.ID,
		Amount:        usd("100.00"),
		Date:          day(2),
	}

	_, err := f.processor.Transfer(ctx, cmd)
	require.ErrorIs(t, err, domain.ErrFxSpecRequired)

	cmd.FxSpec = &domain.FxSpec{Rate: decimal.RequireFromString("0.9"), Source: "ecb", ObtainedAt: testNow, ValidUntil: &past}
	_, err = f.processor.Transfer(ctx, cmd)
	require.ErrorIs(t, err, domain.ErrFxSpecExpired)

	cmd.FxSpec = &domain.FxSpec{Rate: decimal.Zero, Source: "ecb", ObtainedAt: testNow}
	_, err = f.processor.Transfer(ctx, cmd)
	require.ErrorIs(t, err, domain.ErrInvalidFxSpec)

	cmd.FxSpec = &domain.FxSpec{Rate: decimal.RequireFromString("0.91234"), Source: "ecb", ObtainedAt: testNow, ValidUntil: &future}
	res, err := f.processor.Transfer(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, "91.23", res.ToTransaction.Amount.StringFixed())
	assert.Equal(t, domain.EUR, res.ToBalance.Currency())
	assert.Equal(t, "900.00", res.FromBalance.StringFixed())
	require.NotNil(t, res.FxSpec)
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("50.00"), day(1))

	base := domain.TransferCommand{
		RequestID:     newRequestID(),
		LedgerID:      f.ledgerID,
		FromAccountID: f.checking.ID,
		ToAccountID:   f.savings.ID,
		Amount:        usd("75.00"),
		Date:          day(2),
	}
	_, err := f.processor.Transfer(ctx, base)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	same := base
	same.ToAccountID = same.FromAccountID
	_, err = f.processor.Transfer(ctx, same)
	require.ErrorIs(t, err, domain.ErrSameAccount)

	assert.Equal(t, "50.00", f.balance(t, f.checking))
	assert.Equal(t, "0.00", f.balance(t, f.savings))
}

func TestDeleteAndRestoreTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("300.00"), day(1))
	transfer, err := f.processor.Transfer(ctx, domain.TransferCommand{
		RequestID:     newRequestID(),
		LedgerID:      f.ledgerID,
		FromAccountID: f.checking.ID,
		ToAccountID:   f.savings.ID,
		Amount:        usd("100.00"),
		Date:          day(2),
	})
	require.NoError(t, err)

	deleted, err := f.processor.DeleteTransaction(ctx, domain.DeleteTransactionCommand{
		RequestID:     newRequestID(),
		TransactionID: transfer.ToTransaction.ID,
	})
	require.NoError(t, err)
	assert.Len(t, deleted.TransactionIDs, 2)
	assert.Equal(t, "0.00", deleted.NewBalance.StringFixed())
	assert.Equal(t, "300.00", f.balance(t, f.checking))

	_, err = f.processor.DeleteTransaction(ctx, domain.DeleteTransactionCommand{
		RequestID:     newRequestID(),
		TransactionID: transfer.FromTransaction.ID,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	restored, err := f.processor.RestoreTransaction(ctx, domain.RestoreTransactionCommand{
		RequestID:     newRequestID(),
		TransactionID: transfer.FromTransaction.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, restored.Status)
	assert.Equal(t, "200.00", restored.NewBalance.StringFixed())
	assert.Equal(t, "100.00", f.balance(t, f.savings))
}

func TestRestoreKeepsPreviousStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := domain.StatusPending
	res, err := f.processor.CreateTransaction(ctx, domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Refund",
		Amount:    usd("20.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
		Status:    &pending,
	})
	require.NoError(t, err)

	_, err = f.processor.DeleteTransaction(ctx, domain.DeleteTransactionCommand{RequestID: newRequestID(), TransactionID: res.ID})
	require.NoError(t, err)
	restored, err := f.processor.RestoreTransaction(ctx, domain.RestoreTransactionCommand{RequestID: newRequestID(), TransactionID: res.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, restored.Status)
}

func TestRestoreRejectsOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("100.00"), day(1))
	rent := f.expense(t, f.checking, usd("80.00"), day(2))

	_, err := f.processor.DeleteTransaction(ctx, domain.DeleteTransactionCommand{RequestID: newRequestID(), TransactionID: rent.ID})
	require.NoError(t, err)
	f.expense(t, f.checking, usd("90.00"), day(3))

	_, err = f.processor.RestoreTransaction(ctx, domain.RestoreTransactionCommand{RequestID: newRequestID(), TransactionID: rent.ID})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	stored, _ := f.store.Transaction(rent.ID)
	assert.Equal(t, domain.StatusVoided, stored.Status)
}

func TestRestoreTransferByInflowLegRejectsOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("100.00"), day(1))
	transfer, err := f.processor.Transfer(ctx, domain.TransferCommand{
		RequestID:     newRequestID(),
		LedgerID:      f.ledgerID,
		FromAccountID: f.checking.ID,
		ToAccountID:   f.savings.ID,
		Amount:        usd("100.00"),
		Date:          day(2),
	})
	require.NoError(t, err)

	_, err = f.processor.DeleteTransaction(ctx, domain.DeleteTransactionCommand{RequestID: newRequestID(), TransactionID: transfer.FromTransaction.ID})
	require.NoError(t, err)
	f.expense(t, f.checking, usd("100.00"), day(3))

	_, err = f.processor.RestoreTransaction(ctx, domain.RestoreTransactionCommand{RequestID: newRequestID(), TransactionID: transfer.ToTransaction.ID})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.Equal(t, "0.00", f.balance(t, f.checking))
	assert.Equal(t, "0.00", f.balance(t, f.savings))
	for _, id := range []domain.TransactionID{transfer.FromTransaction.ID, transfer.ToTransaction.ID} {
		stored, _ := f.store.Transaction(id)
		assert.Equal(t, domain.StatusVoided, stored.Status)
	}
}

func TestDeleteIncomeRejectsOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	salary := f.income(t, f.checking, usd("100.00"), day(1))
	f.expense(t, f.checking, usd("100.00"), day(2))

	_, err := f.processor.DeleteTransaction(ctx, domain.DeleteTransactionCommand{RequestID: newRequestID(), TransactionID: salary.ID})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	stored, _ := f.store.Transaction(salary.ID)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "0.00", f.balance(t, f.checking))

	// Overdraft accounts may go negative.
	refund := f.income(t, f.card, usd("40.00"), day(1))
	f.expense(t, f.card, usd("40.00"), day(2))
	_, err = f.processor.DeleteTransaction(ctx, domain.DeleteTransactionCommand{RequestID: newRequestID(), TransactionID: refund.ID})
	require.NoError(t, err)
	assert.Equal(t, "-40.00", f.balance(t, f.card))
}

func TestSettleTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := domain.StatusPending
	var ids []domain.TransactionID
	for i := 0; i < 3; i++ {
		res, err := f.processor.CreateTransaction(ctx, domain.CreateTransactionCommand{
			RequestID: newRequestID(),
			LedgerID:  f.ledgerID,
			AccountID: f.card.ID,
			Name:      "Card payment",
			Amount:    usd("10.00"),
			Date:      day(1),
			Type:      domain.TransactionTypeExpense,
			Status:    &pending,
		})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	completed := f.expense(t, f.card, usd("5.00"), day(1))

	_, err := f.processor.SettleTransactions(ctx, domain.SettleTransactionsCommand{
		RequestID:      newRequestID(),
		TransactionIDs: append(append([]domain.TransactionID{}, ids...), completed.ID),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	for _, id := range ids {
		stored, _ := f.store.Transaction(id)
		assert.Equal(t, domain.StatusPending, stored.Status, "rejected batch must not settle anything")
	}

	res, err := f.processor.SettleTransactions(ctx, domain.SettleTransactionsCommand{
		RequestID:      newRequestID(),
		TransactionIDs: append(ids, ids[0]),
		SettlementDate: day(4).Add(15 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, day(4), res.SettlementDate)

	_, err = f.processor.SettleTransactions(ctx, domain.SettleTransactionsCommand{RequestID: newRequestID()})
	require.ErrorIs(t, err, domain.ErrEmptyTransactionList)
}

func TestReconcileTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.income(t, f.checking, usd("1200.00"), day(1))
	b := f.expense(t, f.checking, usd("200.00"), day(2))

	res, err := f.processor.ReconcileTransactions(ctx, domain.ReconcileTransactionsCommand{
		RequestID:        newRequestID(),
		AccountID:        f.checking.ID,
		TransactionIDs:   []domain.TransactionID{a.ID, b.ID},
		StatementDate:    day(5),
		StatementBalance: usd("1000.00"),
	})
	require.NoError(t, err)
	assert.True(t, res.IsBalanced)
	assert.True(t, res.Difference.IsZero())
	assert.Equal(t, "1000.00", res.ComputedBalance.StringFixed())

	stored, _ := f.store.Transaction(a.ID)
	assert.Equal(t, domain.StatusReconciled, stored.Status)

	_, err = f.processor.ReconcileTransactions(ctx, domain.ReconcileTransactionsCommand{
		RequestID:        newRequestID(),
		AccountID:        f.checking.ID,
		TransactionIDs:   []domain.TransactionID{a.ID},
		StatementDate:    day(5),
		StatementBalance: usd("1000.00"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReconcileTransactionsReportsSignedDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.income(t, f.checking, usd("1000.00"), day(1))
	other := f.income(t, f.savings, usd("10.00"), day(1))

	res, err := f.processor.ReconcileTransactions(ctx, domain.ReconcileTransactionsCommand{
		RequestID:        newRequestID(),
		AccountID:        f.checking.ID,
		TransactionIDs:   []domain.TransactionID{a.ID},
		StatementDate:    day(5),
		StatementBalance: usd("975.25"),
	})
	require.NoError(t, err)
	assert.False(t, res.IsBalanced)
	assert.Equal(t, "-24.75", res.Difference.StringFixed())

	_, err = f.processor.ReconcileTransactions(ctx, domain.ReconcileTransactionsCommand{
		RequestID:        newRequestID(),
		AccountID:        f.checking.ID,
		TransactionIDs:   []domain.TransactionID{other.ID},
		StatementDate:    day(5),
		StatementBalance: usd("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("100.00"), day(1))
	groceries := f.expense(t, f.checking, usd("30.00"), day(3))

	name := "Weekly groceries"
	amount := usd("45.00")
	date := day(2)
	res, err := f.processor.UpdateTransaction(ctx, domain.UpdateTransactionCommand{
		RequestID:     newRequestID(),
		TransactionID: groceries.ID,
		Name:          &name,
		Amount:        &amount,
		Date:          &date,
	})
	require.NoError(t, err)
	assert.Equal(t, name, res.Name)
	assert.Equal(t, "55.00", res.NewBalance.StringFixed())
	assert.Equal(t, "45.00", res.Entries[0].Amount.StringFixed())

	tooMuch := usd("101.00")
	_, err = f.processor.UpdateTransaction(ctx, domain.UpdateTransactionCommand{
		RequestID:     newRequestID(),
		TransactionID: groceries.ID,
		Amount:        &tooMuch,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, "55.00", f.balance(t, f.checking))
}

func TestCommitFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.store.CommitErr = errors.New("connection reset")

	_, err := f.processor.CreateTransaction(context.Background(), domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Salary",
		Amount:    usd("10.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	})
	require.Error(t, err)
	assert.Zero(t, f.store.TransactionCount())
	assert.Empty(t, f.store.OutboxEvents())
}

func TestCancelledContextLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.processor.CreateTransaction(ctx, domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Salary",
		Amount:    usd("10.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.TransactionCount())
}

// retryOnce retries an operation a single time regardless of the error.
type retryOnce struct{ attempts int }

func (r *retryOnce) Retry(_ context.Context, op func() error) error {
	r.attempts++
	if err := op(); err != nil {
		r.attempts++
		return op()
	}
	return nil
}

func TestProcessorRetriesWholeTransaction(t *testing.T) {
	store := mocks.NewLedgerStore()
	ledgerID := domain.NewID[domain.LedgerKind]()
	account := &domain.Account{ID: domain.NewID[domain.AccountKind](), LedgerID: ledgerID, Name: "Cash", Currency: domain.USD}
	store.AddAccount(account)
	retrier := &retryOnce{}
	p := usecase.NewLedgerProcessor(usecase.ProcessorConfig{
		TxManager:    store.TxManager(),
		Accounts:     store.Accounts(),
		Transactions: store.Transactions(),
		Entries:      store.Entries(),
		Balances:     store.Balances(),
		Outbox:       store.Outbox(),
		Retrier:      retrier,
		IDGen:        mocks.UUIDGenerator{},
		Logger:       zerolog.Nop(),
	})
	store.CommitErr = errors.New("serialization failure")

	res, err := p.CreateTransaction(context.Background(), domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  ledgerID,
		AccountID: account.ID,
		Name:      "Allowance",
		Amount:    usd("15.00"),
		Date:      day(1),
		Type:      domain.TransactionTypeIncome,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, retrier.attempts)
	assert.Equal(t, 2, store.Begins)
	assert.Equal(t, 1, store.TransactionCount())
	assert.Equal(t, "15.00", res.NewBalance.StringFixed())
}
