package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/metrics"
)

// CalculateForward walks entries oldest first from opening, the balance at
// the end of the day before the first entry, and returns the running balance
// at the end of every day that has entries.
func CalculateForward(accountID domain.AccountID, currency domain.CurrencyCode, opening decimal.Decimal, entries []*domain.Entry) []domain.Balance {
	days, sums := dailySums(entries)
	out := make([]domain.Balance, 0, len(days))
	running := opening
	for _, day := range days {
		running = running.Add(sums[day])
		out = append(out, materialized(accountID, currency, day, running))
	}
	return out
}

// CalculateReverse walks entries newest first from closing, the balance at
// the end of the last day of the range, and returns the balances in
// chronological order.
func CalculateReverse(accountID domain.AccountID, currency domain.CurrencyCode, closing decimal.Decimal, entries []*domain.Entry) []domain.Balance {
	days, sums := dailySums(entries)
	out := make([]domain.Balance, 0, len(days))
	running := closing
	for i := len(days) - 1; i >= 0; i-- {
		out = append(out, materialized(accountID, currency, days[i], running))
		running = running.Sub(sums[days[i]])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func dailySums(entries []*domain.Entry) ([]time.Time, map[time.Time]decimal.Decimal) {
	sums := make(map[time.Time]decimal.Decimal)
	for _, e := range entries {
		day := domain.Day(e.Date)
		sums[day] = sums[day].Add(e.Signed().Amount())
	}
	days := make([]time.Time, 0, len(sums))
	for day := range sums {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, sums
}

func materialized(accountID domain.AccountID, currency domain.CurrencyCode, day time.Time, amount decimal.Decimal) domain.Balance {
	return domain.Balance{
		AccountID:      accountID,
		Date:           day,
		Balance:        amount,
		Currency:       currency,
		IsMaterialized: true,
	}
}

// BalanceCalculatorConfig holds the collaborators of a BalanceCalculator.
// TxManager is required by Materialize.
type BalanceCalculatorConfig struct {
	TxManager TransactionManager
	Retrier   Retrier
	Accounts  AccountRepository
	Balances BalanceRepository
	Cache    Cache
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// BalanceCalculator reconstructs historical balances from entries.
type BalanceCalculator struct {
	txManager TransactionManager
	retrier   Retrier
	accounts  AccountRepository
	balances BalanceRepository
	cache    Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewBalanceCalculator(cfg BalanceCalculatorConfig) *BalanceCalculator {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultBalanceCacheTTL
	}
	if cfg.Retrier == nil {
		cfg.Retrier = noRetry{}
	}
	return &BalanceCalculator{
		txManager: cfg.TxManager,
		retrier:   cfg.Retrier,
		accounts:  cfg.Accounts,
		balances: cfg.Balances,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// History returns end-of-day balances for every day in [from, to] that has
// entries, computed with strategy. Results are cached for a short TTL.
func (c *BalanceCalculator) History(ctx context.Context, accountID domain.AccountID, from, to time.Time, strategy domain.BalanceStrategy) ([]domain.Balance, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown balance strategy %q", domain.ErrValidation, strategy)
	}
	from, to = domain.Day(from), domain.Day(to)
	if err := domain.ValidateDateRange(from, to); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("balances:%s:%s:%s:%s", accountID, strategy, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if cached, ok := c.cached(ctx, key); ok {
		return cached, nil
	}

	account, err := c.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balances, err := c.compute(ctx, nil, account, from, to, strategy)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, balances)
	return balances, nil
}

func (c *BalanceCalculator) compute(ctx context.Context, tx Transaction, account *domain.Account, from, to time.Time, strategy domain.BalanceStrategy) ([]domain.Balance, error) {
	entries, err := c.balances.ListEntries(ctx, tx, account.ID, from, to)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.BalanceCalculations.WithLabelValues(string(strategy)).Inc()
	}

	if strategy == domain.BalanceForward {
		opening, err := c.openingBalance(ctx, tx, account.ID, from)
		if err != nil {
			return nil, err
		}
		return CalculateForward(account.ID, account.Currency, opening, entries), nil
	}
	closing, err := c.closingBalance(ctx, tx, account.ID, to)
	if err != nil {
		return nil, err
	}
	return CalculateReverse(account.ID, account.Currency, closing, entries), nil
}

// openingBalance is the balance at the end of the day before from,
// anchored on the nearest materialized balance.
func (c *BalanceCalculator) openingBalance(ctx context.Context, tx Transaction, accountID domain.AccountID, from time.Time) (decimal.Decimal, error) {
	through := from.AddDate(0, 0, -1)
	anchor, err := c.balances.LatestMaterializedBefore(ctx, tx, accountID, from)
	if err != nil {
		return decimal.Zero, err
	}
	var after time.Time
	base := decimal.Zero
	if anchor != nil {
		after, base = anchor.Date, anchor.Balance
	}
	delta, err := c.balances.SumBetween(ctx, tx, accountID, after, through)
	if err != nil {
		return decimal.Zero, err
	}
	return base.Add(delta), nil
}

// closingBalance is the balance at the end of to, anchored on the latest
// materialized balance in either direction.
func (c *BalanceCalculator) closingBalance(ctx context.Context, tx Transaction, accountID domain.AccountID, to time.Time) (decimal.Decimal, error) {
	anchor, err := c.balances.LatestMaterialized(ctx, tx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if anchor == nil {
		return c.balances.SumBetween(ctx, tx, accountID, time.Time{}, to)
	}
	if anchor.Date.After(to) {
		delta, err := c.balances.SumBetween(ctx, tx, accountID, to, anchor.Date)
		if err != nil {
			return decimal.Zero, err
		}
		return anchor.Balance.Sub(delta), nil
	}
	delta, err := c.balances.SumBetween(ctx, tx, accountID, anchor.Date, to)
	if err != nil {
		return decimal.Zero, err
	}
	return anchor.Balance.Add(delta), nil
}

// Verify computes the range with both strategies and fails with
// ErrBalanceDrift at the first date where they disagree.
func (c *BalanceCalculator) Verify(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error) {
	from, to = domain.Day(from), domain.Day(to)
	if err := domain.ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	return c.verify(ctx, nil, accountID, from, to)
}

func (c *BalanceCalculator) verify(ctx context.Context, tx Transaction, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error) {
	account, err := c.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	forward, err := c.compute(ctx, tx, account, from, to, domain.BalanceForward)
	if err != nil {
		return nil, err
	}
	reverse, err := c.compute(ctx, tx, account, from, to, domain.BalanceReverse)
	if err != nil {
		return nil, err
	}
	if err := compareBalances(forward, reverse); err != nil {
		if c.metrics != nil {
			c.metrics.BalanceDrift.Inc()
		}
		c.logger.Error().Err(err).Str("account_id", accountID.String()).Msg("balance strategies disagree")
		return nil, err
	}
	return forward, nil
}

func compareBalances(forward, reverse []domain.Balance) error {
	if len(forward) != len(reverse) {
		return fmt.Errorf("%w: forward has %d days, reverse has %d", domain.ErrBalanceDrift, len(forward), len(reverse))
	}
	for i := range forward {
		f, r := forward[i], reverse[i]
		if !f.Date.Equal(r.Date) || !f.Balance.Equal(r.Balance) {
			return fmt.Errorf("%w: on %s forward is %s, reverse is %s",
				domain.ErrBalanceDrift, f.Date.Format(time.DateOnly), f.Balance, r.Balance)
		}
	}
	return nil
}

// Materialize verifies the range and stores the result as materialized
// balances. Reading and storing share one storage transaction, so a command
// committing entries in between forces the whole run to be retried instead
// of leaving a stale anchor behind.
func (c *BalanceCalculator) Materialize(ctx context.Context, accountID domain.AccountID, from, to time.Time) ([]domain.Balance, error) {
	from, to = domain.Day(from), domain.Day(to)
	if err := domain.ValidateDateRange(from, to); err != nil {
		return nil, err
	}

	var balances []domain.Balance
	attempts := 0
	err := c.retrier.Retry(ctx, func() error {
		attempts++
		tx, err := c.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

		verified, err := c.verify(ctx, tx, accountID, from, to)
		if err != nil {
			return err
		}
		if len(verified) > 0 {
			if err := c.balances.SaveMaterialized(ctx, tx, verified); err != nil {
				return err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		balances = verified
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("account_id", accountID.String()).
		Int("days", len(balances)).
		Int("attempts", attempts).
		Msg("balances materialized")
	return balances, nil
}

// Summary returns the current position of an account.
func (c *BalanceCalculator) Summary(ctx context.Context, accountID domain.AccountID) (*domain.BalanceSummary, error) {
	account, err := c.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	totals, err := c.balances.Totals(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &domain.BalanceSummary{
		AccountID:           account.ID,
		Currency:            account.Currency,
		Balance:             totals.Settled,
		PendingTotal:        totals.Pending,
		AvailableBalance:    totals.Settled.Add(totals.PendingOutflow),
		LastTransactionDate: totals.LastTransactionDate,
	}, nil
}

func (c *BalanceCalculator) cached(ctx context.Context, key string) ([]domain.Balance, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("balance cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	var balances []domain.Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, false
	}
	return balances, true
}

func (c *BalanceCalculator) store(ctx context.Context, key string, balances []domain.Balance) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(balances)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("balance cache write failed")
	}
}
