package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/usecase"
)

// ErrSerializationFailure is returned by Commit when an account the
// transaction read balances of was changed by another commit in between.
var ErrSerializationFailure = fmt.Errorf("%w: could not serialize access", domain.ErrConcurrencyConflict)

// LedgerStore is an in-memory ledger with transactional overlays and
// blocking row locks. Writes made through a FakeTx are invisible to other
// transactions until Commit. Balance reads inside a transaction are checked
// at commit the way a SERIALIZABLE database would.
type LedgerStore struct {
	mu           sync.Mutex
	accounts     map[domain.AccountID]*domain.Account
	transactions map[domain.TransactionID]*domain.Transaction
	entries      map[domain.EntryID]*domain.Entry
	materialized map[domain.AccountID][]domain.Balance
	outbox       []*domain.OutboxEvent
	locks        map[domain.TransactionID]chan struct{}
	versions     map[domain.AccountID]int

	// Begins counts started transactions; Commits counts successful commits.
	Begins  int
	Commits int

	// CommitErr, when set, fails the next commit and is then cleared.
	CommitErr error
	// Conflicts counts commits rejected with ErrSerializationFailure.
	Conflicts int

	// AfterBalanceRead, when set, runs after every CurrentBalance call.
	AfterBalanceRead func(accountID domain.AccountID)
	// BeforeSaveMaterialized, when set, runs at the start of SaveMaterialized.
	BeforeSaveMaterialized func()
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		accounts:     make(map[domain.AccountID]*domain.Account),
		transactions: make(map[domain.TransactionID]*domain.Transaction),
		entries:      make(map[domain.EntryID]*domain.Entry),
		materialized: make(map[domain.AccountID][]domain.Balance),
		locks:        make(map[domain.TransactionID]chan struct{}),
		versions:     make(map[domain.AccountID]int),
	}
}

// AddAccount stores an account directly.
func (s *LedgerStore) AddAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
}

// Transaction returns a committed copy of a transaction.
func (s *LedgerStore) Transaction(id domain.TransactionID) (*domain.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// TransactionCount returns the number of committed transactions.
func (s *LedgerStore) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// Children returns committed split children of id.
func (s *LedgerStore) Children(id domain.TransactionID) []*domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Transaction
	for _, t := range s.transactions {
		if t.OriginalTransactionID != nil && *t.OriginalTransactionID == id {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

// OutboxEvents returns committed outbox events.
func (s *LedgerStore) OutboxEvents() []*domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.OutboxEvent(nil), s.outbox...)
}

// Materialized returns stored materialized balances of an account.
func (s *LedgerStore) Materialized(accountID domain.AccountID) []domain.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Balance(nil), s.materialized[accountID]...)
}

func (s *LedgerStore) TxManager() usecase.TransactionManager       { return storeTxManager{s} }
func (s *LedgerStore) Accounts() usecase.AccountRepository         { return storeAccounts{s} }
func (s *LedgerStore) Transactions() usecase.TransactionRepository { return storeTransactions{s} }
func (s *LedgerStore) Entries() usecase.EntryRepository            { return storeEntries{s} }
func (s *LedgerStore) Balances() usecase.BalanceRepository         { return storeBalances{s} }
func (s *LedgerStore) Outbox() usecase.OutboxRepository            { return storeOutbox{s} }

// FakeTx is a LedgerStore transaction.
type FakeTx struct {
	store        *LedgerStore
	transactions map[domain.TransactionID]*domain.Transaction
	entries      map[domain.EntryID]*domain.Entry
	outbox       []*domain.OutboxEvent
	invalidate   map[domain.AccountID]time.Time
	materialized []domain.Balance
	held         map[domain.TransactionID]bool
	reads        map[domain.AccountID]int
	done         bool
}

func (tx *FakeTx) Commit(ctx context.Context) error {
	if tx.done {
		return errors.New("transaction already closed")
	}
	s := tx.store
	s.mu.Lock()
	if err := s.CommitErr; err != nil {
		s.CommitErr = nil
		s.mu.Unlock()
		tx.close()
		return err
	}
	for accountID, version := range tx.reads {
		if s.versions[accountID] != version {
			s.Conflicts++
			s.mu.Unlock()
			tx.close()
			return ErrSerializationFailure
		}
	}

	written := make(map[domain.AccountID]bool)
	for id, t := range tx.transactions {
		s.transactions[id] = t
		written[t.AccountID] = true
	}
	for id, e := range tx.entries {
		s.entries[id] = e
		written[e.AccountID] = true
	}
	s.outbox = append(s.outbox, tx.outbox...)
	for accountID, from := range tx.invalidate {
		s.dropMaterializedLocked(accountID, from)
		written[accountID] = true
	}
	for _, b := range tx.materialized {
		s.saveMaterializedLocked(b)
		written[b.AccountID] = true
	}
	for accountID := range written {
		s.versions[accountID]++
	}
	s.Commits++
	s.mu.Unlock()
	tx.close()
	return nil
}

func (tx *FakeTx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.close()
	return nil
}

func (tx *FakeTx) close() {
	tx.done = true
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for id := range tx.held {
		<-tx.store.locks[id]
	}
	tx.held = nil
}

func (tx *FakeTx) lock(ctx context.Context, id domain.TransactionID) error {
	if tx.held[id] {
		return nil
	}
	s := tx.store
	s.mu.Lock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
		tx.held[id] = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func asFakeTx(tx usecase.Transaction) *FakeTx {
	if tx == nil {
		return nil
	}
	return tx.(*FakeTx)
}

// view returns the transactions and entries visible to tx.
func (s *LedgerStore) view(tx *FakeTx) (map[domain.TransactionID]*domain.Transaction, map[domain.EntryID]*domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(tx)
}

// observeLocked records that tx read balances of accountID. Only the first read
// counts, as that is the snapshot later reads must agree with.
func (s *LedgerStore) observeLocked(tx *FakeTx, accountID domain.AccountID) {
	if tx == nil {
		return
	}
	if _, ok := tx.reads[accountID]; !ok {
		tx.reads[accountID] = s.versions[accountID]
	}
}

func (s *LedgerStore) viewLocked(tx *FakeTx) (map[domain.TransactionID]*domain.Transaction, map[domain.EntryID]*domain.Entry) {
	ts := make(map[domain.TransactionID]*domain.Transaction, len(s.transactions))
	for id, t := range s.transactions {
		ts[id] = t
	}
	es := make(map[domain.EntryID]*domain.Entry, len(s.entries))
	for id, e := range s.entries {
		es[id] = e
	}
	if tx != nil {
		for id, t := range tx.transactions {
			ts[id] = t
		}
		for id, e := range tx.entries {
			es[id] = e
		}
	}
	return ts, es
}

func (s *LedgerStore) saveMaterializedLocked(b domain.Balance) {
	existing := s.materialized[b.AccountID]
	for i := range existing {
		if existing[i].Date.Equal(b.Date) {
			existing[i] = b
			return
		}
	}
	s.materialized[b.AccountID] = append(existing, b)
}

func (s *LedgerStore) dropMaterializedLocked(accountID domain.AccountID, from time.Time) {
	kept := s.materialized[accountID][:0]
	for _, b := range s.materialized[accountID] {
		if b.Date.Before(from) {
			kept = append(kept, b)
		}
	}
	s.materialized[accountID] = kept
}

type storeTxManager struct{ s *LedgerStore }

func (m storeTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	m.s.Begins++
	m.s.mu.Unlock()
	return &FakeTx{
		store:        m.s,
		transactions: make(map[domain.TransactionID]*domain.Transaction),
		entries:      make(map[domain.EntryID]*domain.Entry),
		invalidate:   make(map[domain.AccountID]time.Time),
		held:         make(map[domain.TransactionID]bool),
		reads:        make(map[domain.AccountID]int),
	}, nil
}

type storeAccounts struct{ s *LedgerStore }

func (r storeAccounts) GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r storeAccounts) GetByIDTx(ctx context.Context, tx usecase.Transaction, id domain.AccountID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

type storeTransactions struct{ s *LedgerStore }

func (r storeTransactions) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	cp := *t
	asFakeTx(tx).transactions[t.ID] = &cp
	return nil
}

func (r storeTransactions) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	cp := *t
	asFakeTx(tx).transactions[t.ID] = &cp
	return nil
}

func (r storeTransactions) GetByID(ctx context.Context, tx usecase.Transaction, id domain.TransactionID) (*domain.Transaction, error) {
	ts, _ := r.s.view(asFakeTx(tx))
	t, ok := ts[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (r storeTransactions) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id domain.TransactionID) (*domain.Transaction, error) {
	if _, err := r.GetByID(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := asFakeTx(tx).lock(ctx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, tx, id)
}

func (r storeTransactions) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []domain.TransactionID) ([]*domain.Transaction, error) {
	sorted := append([]domain.TransactionID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })
	var out []*domain.Transaction
	for _, id := range sorted {
		t, err := r.GetByIDForUpdate(ctx, tx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r storeTransactions) ListByTransfer(ctx context.Context, tx usecase.Transaction, transferID domain.TransferID) ([]domain.TransactionID, error) {
	ts, _ := r.s.view(asFakeTx(tx))
	var ids []domain.TransactionID
	for id, t := range ts {
		if t.TransferID != nil && *t.TransferID == transferID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids, nil
}

func (r storeTransactions) GetByExternalID(ctx context.Context, tx usecase.Transaction, ledgerID domain.LedgerID, externalID string) (*domain.Transaction, error) {
	ts, _ := r.s.view(asFakeTx(tx))
	for _, t := range ts {
		if t.LedgerID == ledgerID && t.ExternalID != nil && *t.ExternalID == externalID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r storeTransactions) CountSplits(ctx context.Context, tx usecase.Transaction, originalID domain.TransactionID) (int, error) {
	ts, _ := r.s.view(asFakeTx(tx))
	n := 0
	for _, t := range ts {
		if t.OriginalTransactionID != nil && *t.OriginalTransactionID == originalID {
			n++
		}
	}
	return n, nil
}

type storeEntries struct{ s *LedgerStore }

func (r storeEntries) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	cp := *entry
	asFakeTx(tx).entries[entry.ID] = &cp
	return nil
}

func (r storeEntries) ListByTransaction(ctx context.Context, tx usecase.Transaction, transactionID domain.TransactionID) ([]*domain.Entry, error) {
	_, es := r.s.view(asFakeTx(tx))
	var out []*domain.Entry
	for _, e := range es {
		if e.TransactionID == transactionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

func (r storeEntries) UpdateForTransaction(ctx context.Context, tx usecase.Transaction, transactionID domain.TransactionID, amount domain.Money, date time.Time) error {
	entries, err := r.ListByTransaction(ctx, tx, transactionID)
	if err != nil {
		return err
	}
	ftx := asFakeTx(tx)
	for _, e := range entries {
		e.Amount = amount
		e.Date = date
		ftx.entries[e.ID] = e
	}
	return nil
}

type storeBalances struct{ s *LedgerStore }

// affecting returns entries of accountID whose transaction counts toward balances.
func (r storeBalances) affecting(tx *FakeTx, accountID domain.AccountID) ([]*domain.Entry, map[domain.TransactionID]*domain.Transaction) {
	r.s.mu.Lock()
	ts, es := r.s.viewLocked(tx)
	r.s.observeLocked(tx, accountID)
	r.s.mu.Unlock()

	var out []*domain.Entry
	for _, e := range es {
		t, ok := ts[e.TransactionID]
		if e.AccountID != accountID || !ok || !t.AffectsBalance() {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.Compare(out[j].ID) < 0
	})
	return out, ts
}

func (r storeBalances) CurrentBalance(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID) (decimal.Decimal, error) {
	entries, _ := r.affecting(asFakeTx(tx), accountID)
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Signed().Amount())
	}
	if r.s.AfterBalanceRead != nil {
		r.s.AfterBalanceRead(accountID)
	}
	return total, nil
}

func (r storeBalances) Totals(ctx context.Context, accountID domain.AccountID) (*usecase.BalanceTotals, error) {
	entries, ts := r.affecting(nil, accountID)
	totals := &usecase.BalanceTotals{Settled: decimal.Zero, Pending: decimal.Zero, PendingOutflow: decimal.Zero}
	for _, e := range entries {
		signed := e.Signed().Amount()
		if ts[e.TransactionID].Status == domain.StatusPending {
			totals.Pending = totals.Pending.Add(signed)
			if signed.IsNegative() {
				totals.PendingOutflow = totals.PendingOutflow.Add(signed)
			}
		} else {
			totals.Settled = totals.Settled.Add(signed)
		}
		date := e.Date
		if totals.LastTransactionDate == nil || date.After(*totals.LastTransactionDate) {
			totals.LastTransactionDate = &date
		}
	}
	return totals, nil
}

func (r storeBalances) ListEntries(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, from, to time.Time) ([]*domain.Entry, error) {
	entries, _ := r.affecting(asFakeTx(tx), accountID)
	var out []*domain.Entry
	for _, e := range entries {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r storeBalances) SumBetween(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, after, through time.Time) (decimal.Decimal, error) {
	entries, _ := r.affecting(asFakeTx(tx), accountID)
	total := decimal.Zero
	for _, e := range entries {
		if (after.IsZero() || e.Date.After(after)) && !e.Date.After(through) {
			total = total.Add(e.Signed().Amount())
		}
	}
	return total, nil
}

func (r storeBalances) LatestMaterializedBefore(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, before time.Time) (*domain.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.observeLocked(asFakeTx(tx), accountID)
	var latest *domain.Balance
	for _, b := range r.s.materialized[accountID] {
		if b.Date.Before(before) && (latest == nil || b.Date.After(latest.Date)) {
			cp := b
			latest = &cp
		}
	}
	return latest, nil
}

func (r storeBalances) LatestMaterialized(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID) (*domain.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.observeLocked(asFakeTx(tx), accountID)
	var latest *domain.Balance
	for _, b := range r.s.materialized[accountID] {
		if latest == nil || b.Date.After(latest.Date) {
			cp := b
			latest = &cp
		}
	}
	return latest, nil
}

// SaveMaterialized buffers the rows in tx, or stores them at once when tx is nil.
func (r storeBalances) SaveMaterialized(ctx context.Context, tx usecase.Transaction, balances []domain.Balance) error {
	if r.s.BeforeSaveMaterialized != nil {
		r.s.BeforeSaveMaterialized()
	}
	if ftx := asFakeTx(tx); ftx != nil {
		ftx.materialized = append(ftx.materialized, balances...)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range balances {
		r.s.saveMaterializedLocked(b)
	}
	return nil
}

func (r storeBalances) InvalidateFrom(ctx context.Context, tx usecase.Transaction, accountID domain.AccountID, date time.Time) error {
	ftx := asFakeTx(tx)
	if from, ok := ftx.invalidate[accountID]; !ok || date.Before(from) {
		ftx.invalidate[accountID] = date
	}
	return nil
}

type storeOutbox struct{ s *LedgerStore }

func (r storeOutbox) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	ftx := asFakeTx(tx)
	ftx.outbox = append(ftx.outbox, event)
	return nil
}

func (r storeOutbox) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range r.s.outbox {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r storeOutbox) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
		}
	}
	return nil
}

func (r storeOutbox) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.outbox[:0]
	var removed int64
	for _, e := range r.s.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return removed, nil
}

// MemoryIdempotencyStore is an IdempotencyStore backed by a map.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[domain.RequestID]domain.IdempotencyRecord
	Now     func() time.Time

	// Saves counts calls to Save.
	Saves int
	// SaveErr, when set, is returned by Save.
	SaveErr error
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		records: make(map[domain.RequestID]domain.IdempotencyRecord),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryIdempotencyStore) Get(ctx context.Context, requestID domain.RequestID) (*domain.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[requestID]
	if !ok || r.IsExpired(s.Now()) {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryIdempotencyStore) Save(ctx context.Context, record *domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.records[record.RequestID] = *record
	return nil
}

func (s *MemoryIdempotencyStore) Delete(ctx context.Context, requestID domain.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, requestID)
	return nil
}

func (s *MemoryIdempotencyStore) Exists(ctx context.Context, requestID domain.RequestID) (bool, error) {
	r, err := s.Get(ctx, requestID)
	return r != nil, err
}

func (s *MemoryIdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	now := s.Now()
	for id, r := range s.records {
		if r.IsExpired(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// UUIDGenerator generates random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() uuid.UUID { return uuid.New() }
