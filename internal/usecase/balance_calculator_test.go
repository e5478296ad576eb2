package usecase_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/usecase"
	"github.com/iho/famledger/internal/usecase/mocks"
)

func entry(accountID domain.AccountID, nature domain.Nature, amount string, date time.Time) *domain.Entry {
	return &domain.Entry{
		ID:        domain.NewID[domain.EntryKind](),
		AccountID: accountID,
		Amount:    usd(amount),
		Nature:    nature,
		Date:      date,
	}
}

func TestForwardAndReverseAgree(t *testing.T) {
	accountID := domain.NewID[domain.AccountKind]()
	tests := []struct {
		name    string
		opening string
		entries []*domain.Entry
	}{
		{name: "no entries", opening: "10.00"},
		{
			name:    "single day",
			opening: "0",
			entries: []*domain.Entry{entry(accountID, domain.NatureInflow, "100.00", day(1))},
		},
		{
			name:    "several entries per day",
			opening: "250.00",
			entries: []*domain.Entry{
				entry(accountID, domain.NatureInflow, "100.00", day(1)),
				entry(accountID, domain.NatureOutflow, "30.25", day(1).Add(8*time.Hour)),
				entry(accountID, domain.NatureOutflow, "500.00", day(3)),
				entry(accountID, domain.NatureInflow, "0.01", day(7)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opening := decimal.RequireFromString(tt.opening)
			total := decimal.Zero
			for _, e := range tt.entries {
				total = total.Add(e.Signed().Amount())
			}

			forward := usecase.CalculateForward(accountID, domain.USD, opening, tt.entries)
			reverse := usecase.CalculateReverse(accountID, domain.USD, opening.Add(total), tt.entries)

			require.Len(t, reverse, len(forward))
			for i := range forward {
				assert.True(t, forward[i].Date.Equal(reverse[i].Date))
				assert.True(t, forward[i].Balance.Equal(reverse[i].Balance),
					"day %s: forward %s reverse %s", forward[i].Date, forward[i].Balance, reverse[i].Balance)
				assert.True(t, forward[i].IsMaterialized)
				assert.False(t, forward[i].IsSynced)
			}
		})
	}
}

func TestCalculateForwardGroupsByDay(t *testing.T) {
	accountID := domain.NewID[domain.AccountKind]()
	entries := []*domain.Entry{
		entry(accountID, domain.NatureInflow, "100.00", day(1).Add(9*time.Hour)),
		entry(accountID, domain.NatureOutflow, "40.00", day(1).Add(18*time.Hour)),
		entry(accountID, domain.NatureOutflow, "10.00", day(2)),
	}

	got := usecase.CalculateForward(accountID, domain.USD, decimal.Zero, entries)

	require.Len(t, got, 2)
	assert.Equal(t, day(1), got[0].Date)
	assert.Equal(t, "60", got[0].Balance.String())
	assert.Equal(t, "50", got[1].Balance.String())
}

func newCalculator(f *fixture) *usecase.BalanceCalculator {
	return usecase.NewBalanceCalculator(usecase.BalanceCalculatorConfig{
		TxManager: f.store.TxManager(),
		Retrier:   serializationRetrier{},
		Accounts:  f.store.Accounts(),
		Balances:  f.store.Balances(),
		Logger:    zerolog.Nop(),
	})
}

func TestBalanceCalculatorStrategiesAgreeOnLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("1000.00"), day(1))
	f.expense(t, f.checking, usd("125.40"), day(3))
	grocery := f.expense(t, f.checking, usd("60.00"), day(4))
	f.income(t, f.checking, usd("15.00"), day(9))
	f.expense(t, f.checking, usd("5.00"), day(12))

	_, err := f.processor.SplitTransaction(ctx, domain.SplitTransactionCommand{
		RequestID:             newRequestID(),
		OriginalTransactionID: grocery.ID,
		Splits: []domain.SplitSpec{
			{Amount: usd("35.00"), CategoryID: domain.NewID[domain.CategoryKind]()},
			{Amount: usd("25.00"), CategoryID: domain.NewID[domain.CategoryKind]()},
		},
	})
	require.NoError(t, err)

	calc := newCalculator(f)
	for _, r := range []struct{ from, to int }{{1, 12}, {2, 9}, {4, 4}, {10, 20}} {
		forward, err := calc.History(ctx, f.checking.ID, day(r.from), day(r.to), domain.BalanceForward)
		require.NoError(t, err)
		reverse, err := calc.History(ctx, f.checking.ID, day(r.from), day(r.to), domain.BalanceReverse)
		require.NoError(t, err)
		require.Len(t, reverse, len(forward))
		for i := range forward {
			assert.True(t, forward[i].Balance.Equal(reverse[i].Balance), "range %v day %s", r, forward[i].Date)
		}
	}

	history, err := calc.Verify(ctx, f.checking.ID, day(1), day(12))
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "814.6", history[2].Balance.String())
	assert.Equal(t, "824.6", history[4].Balance.String())
}

func TestBalanceCalculatorMaterializeAnchorsLaterQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("100.00"), day(1))
	f.expense(t, f.checking, usd("10.00"), day(2))
	f.expense(t, f.checking, usd("20.00"), day(5))

	calc := newCalculator(f)
	materialized, err := calc.Materialize(ctx, f.checking.ID, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, materialized, 2)
	assert.Len(t, f.store.Materialized(f.checking.ID), 2)

	history, err := calc.Verify(ctx, f.checking.ID, day(3), day(6))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "70", history[0].Balance.String())

	// A backdated entry drops materialized balances from its date on.
	f.income(t, f.checking, usd("1.00"), day(2))
	assert.Len(t, f.store.Materialized(f.checking.ID), 1)

	history, err = calc.Verify(ctx, f.checking.ID, day(1), day(6))
	require.NoError(t, err)
	assert.Equal(t, "71", history[2].Balance.String())
}

func TestBalanceCalculatorDetectsDrift(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountRepository(ctrl)
	balances := mocks.NewMockBalanceRepository(ctrl)
	account := &domain.Account{ID: domain.NewID[domain.AccountKind](), Currency: domain.USD}
	entries := []*domain.Entry{entry(account.ID, domain.NatureInflow, "10.00", day(2))}

	accounts.EXPECT().GetByID(gomock.Any(), account.ID).Return(account, nil)
	balances.EXPECT().ListEntries(gomock.Any(), gomock.Nil(), account.ID, day(1), day(3)).Return(entries, nil).Times(2)
	balances.EXPECT().LatestMaterializedBefore(gomock.Any(), gomock.Nil(), account.ID, day(1)).Return(nil, nil)
	balances.EXPECT().SumBetween(gomock.Any(), gomock.Nil(), account.ID, time.Time{}, day(0)).Return(decimal.Zero, nil)
	// A stale anchor claims a balance the entries cannot explain.
	balances.EXPECT().LatestMaterialized(gomock.Any(), gomock.Nil(), account.ID).
		Return(&domain.Balance{AccountID: account.ID, Date: day(3), Balance: decimal.NewFromInt(99)}, nil)
	balances.EXPECT().SumBetween(gomock.Any(), gomock.Nil(), account.ID, day(3), day(3)).Return(decimal.Zero, nil)

	calc := usecase.NewBalanceCalculator(usecase.BalanceCalculatorConfig{
		Accounts: accounts,
		Balances: balances,
		Logger:   zerolog.Nop(),
	})

	_, err := calc.Verify(context.Background(), account.ID, day(1), day(3))
	require.ErrorIs(t, err, domain.ErrBalanceDrift)
	assert.Equal(t, domain.CodeIntegrity, domain.ErrorCode(err))
}

func TestBalanceCalculatorMaterializeRollsBackOnDrift(t *testing.T) {
	ctrl := gomock.NewController(t)
	txManager := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	accounts := mocks.NewMockAccountRepository(ctrl)
	balances := mocks.NewMockBalanceRepository(ctrl)
	account := &domain.Account{ID: domain.NewID[domain.AccountKind](), Currency: domain.USD}
	entries := []*domain.Entry{entry(account.ID, domain.NatureInflow, "10.00", day(2))}

	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accounts.EXPECT().GetByID(gomock.Any(), account.ID).Return(account, nil)
	balances.EXPECT().ListEntries(gomock.Any(), tx, account.ID, day(1), day(3)).Return(entries, nil).Times(2)
	balances.EXPECT().LatestMaterializedBefore(gomock.Any(), tx, account.ID, day(1)).Return(nil, nil)
	balances.EXPECT().SumBetween(gomock.Any(), tx, account.ID, time.Time{}, day(0)).Return(decimal.Zero, nil)
	balances.EXPECT().LatestMaterialized(gomock.Any(), tx, account.ID).
		Return(&domain.Balance{AccountID: account.ID, Date: day(3), Balance: decimal.NewFromInt(99)}, nil)
	balances.EXPECT().SumBetween(gomock.Any(), tx, account.ID, day(3), day(3)).Return(decimal.Zero, nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	calc := usecase.NewBalanceCalculator(usecase.BalanceCalculatorConfig{
		TxManager: txManager,
		Accounts:  accounts,
		Balances:  balances,
		Logger:    zerolog.Nop(),
	})

	_, err := calc.Materialize(context.Background(), account.ID, day(1), day(3))
	require.ErrorIs(t, err, domain.ErrBalanceDrift)
}

func TestBalanceCalculatorMaterializeRetriesAfterConcurrentEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.income(t, f.checking, usd("100.00"), day(1))
	f.income(t, f.checking, usd("50.00"), day(5))
	f.income(t, f.checking, usd("1.00"), day(6))

	// A backdated income commits after the range was read but before the
	// anchors are stored.
	var once sync.Once
	f.store.BeforeSaveMaterialized = func() {
		once.Do(func() { f.income(t, f.checking, usd("7.00"), day(3)) })
	}

	calc := newCalculator(f)
	materialized, err := calc.Materialize(ctx, f.checking.ID, day(1), day(5))
	require.NoError(t, err)
	require.Len(t, materialized, 3)
	assert.Equal(t, "157", materialized[2].Balance.String())
	assert.Equal(t, 1, f.store.Conflicts)

	stored := f.store.Materialized(f.checking.ID)
	require.Len(t, stored, 3)
	assert.Equal(t, day(5), stored[2].Date)
	assert.Equal(t, "157", stored[2].Balance.String())

	history, err := calc.History(ctx, f.checking.ID, day(6), day(6), domain.BalanceForward)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "158", history[0].Balance.String())

	_, err = calc.Verify(ctx, f.checking.ID, day(1), day(6))
	require.NoError(t, err)
}

func TestBalanceCalculatorHistoryUsesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)
	accounts := mocks.NewMockAccountRepository(ctrl)
	balances := mocks.NewMockBalanceRepository(ctrl)
	accountID := domain.NewID[domain.AccountKind]()
	cached := []domain.Balance{{AccountID: accountID, Date: day(2), Balance: decimal.NewFromInt(5), Currency: domain.USD, IsMaterialized: true}}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)

	cache.EXPECT().Get(gomock.Any(), "balances:"+accountID.String()+":forward:2026-03-01:2026-03-03").Return(payload, true, nil)

	calc := usecase.NewBalanceCalculator(usecase.BalanceCalculatorConfig{
		Accounts: accounts,
		Balances: balances,
		Cache:    cache,
		Logger:   zerolog.Nop(),
	})
	got, err := calc.History(context.Background(), accountID, day(1), day(3).Add(5*time.Hour), domain.BalanceForward)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.True(t, got[0].Balance.Equal(decimal.NewFromInt(5)))
}

func TestBalanceCalculatorRejectsBadRange(t *testing.T) {
	f := newFixture(t)
	calc := newCalculator(f)

	_, err := calc.History(context.Background(), f.checking.ID, day(5), day(1), domain.BalanceForward)
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = calc.History(context.Background(), f.checking.ID, day(1), day(5), "sideways")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestBalanceSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := domain.StatusPending
	f.income(t, f.checking, usd("500.00"), day(1))
	_, err := f.processor.CreateTransaction(ctx, domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: f.checking.ID,
		Name:      "Card hold",
		Amount:    usd("120.00"),
		Date:      day(3),
		Type:      domain.TransactionTypeExpense,
		Status:    &pending,
	})
	require.NoError(t, err)

	summary, err := newCalculator(f).Summary(ctx, f.checking.ID)
	require.NoError(t, err)

	assert.Equal(t, "500", summary.Balance.String())
	assert.Equal(t, "-120", summary.PendingTotal.String())
	assert.Equal(t, "380", summary.AvailableBalance.String())
	require.NotNil(t, summary.LastTransactionDate)
	assert.Equal(t, day(3), *summary.LastTransactionDate)
}
