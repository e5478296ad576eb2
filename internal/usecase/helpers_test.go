package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/usecase"
	"github.com/iho/famledger/internal/usecase/mocks"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store     *mocks.LedgerStore
	idem      *mocks.MemoryIdempotencyStore
	processor *usecase.LedgerProcessor
	service   *usecase.CommandService
	ledgerID  domain.LedgerID

	checking *domain.Account // USD, no overdraft
	savings  *domain.Account // USD, no overdraft
	card     *domain.Account // USD, overdraft allowed
	euro     *domain.Account // EUR
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := mocks.NewLedgerStore()
	ledgerID := domain.NewID[domain.LedgerKind]()
	newAccount := func(name string, currency domain.CurrencyCode, overdraft bool) *domain.Account {
		a := &domain.Account{
			ID:                   domain.NewID[domain.AccountKind](),
			LedgerID:             ledgerID,
			Name:                 name,
			Currency:             currency,
			AllowNegativeBalance: overdraft,
			CreatedAt:            testNow,
			UpdatedAt:            testNow,
		}
		store.AddAccount(a)
		return a
	}

	f := &fixture{
		store:    store,
		idem:     mocks.NewMemoryIdempotencyStore(),
		ledgerID: ledgerID,
		checking: newAccount("Checking", domain.USD, false),
		savings:  newAccount("Savings", domain.USD, false),
		card:     newAccount("Credit card", domain.USD, true),
		euro:     newAccount("Euro wallet", domain.EUR, false),
	}
	f.processor = usecase.NewLedgerProcessor(usecase.ProcessorConfig{
		TxManager:    store.TxManager(),
		Accounts:     store.Accounts(),
		Transactions: store.Transactions(),
		Entries:      store.Entries(),
		Balances:     store.Balances(),
		Outbox:       store.Outbox(),
		Retrier:      serializationRetrier{},
		IDGen:        mocks.UUIDGenerator{},
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return testNow },
	})
	f.idem.Now = func() time.Time { return testNow }
	f.service = usecase.NewCommandService(f.processor, f.idem, time.Hour, nil, zerolog.Nop())
	return f
}

// serializationRetrier re-runs an operation rejected by the store's
// serializability check, like the postgres retrier does for 40001.
type serializationRetrier struct{}

func (serializationRetrier) Retry(_ context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < 10; attempt++ {
		if err = op(); !errors.Is(err, mocks.ErrSerializationFailure) {
			return err
		}
	}
	return err
}

func newRequestID() domain.RequestID {
	return domain.NewID[domain.RequestKind]()
}

func usd(amount string) domain.Money { return domain.MustMoney(amount, domain.USD) }
func eur(amount string) domain.Money { return domain.MustMoney(amount, domain.EUR) }

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) create(t *testing.T, account *domain.Account, typ domain.TransactionType, amount domain.Money, date time.Time) *domain.TransactionResult {
	t.Helper()
	res, err := f.processor.CreateTransaction(context.Background(), domain.CreateTransactionCommand{
		RequestID: newRequestID(),
		LedgerID:  f.ledgerID,
		AccountID: account.ID,
		Name:      string(typ),
		Amount:    amount,
		Date:      date,
		Type:      typ,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) income(t *testing.T, account *domain.Account, amount domain.Money, date time.Time) *domain.TransactionResult {
	t.Helper()
	return f.create(t, account, domain.TransactionTypeIncome, amount, date)
}

func (f *fixture) expense(t *testing.T, account *domain.Account, amount domain.Money, date time.Time) *domain.TransactionResult {
	t.Helper()
	return f.create(t, account, domain.TransactionTypeExpense, amount, date)
}

func (f *fixture) balance(t *testing.T, account *domain.Account) string {
	t.Helper()
	b, err := f.store.Balances().CurrentBalance(context.Background(), nil, account.ID)
	require.NoError(t, err)
	return b.StringFixed(2)
}
