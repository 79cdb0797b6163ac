package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

// MockLedgerAccountRepository is an in-memory LedgerAccountRepository.
// Writes made through a *MockTransaction are undone if it rolls back.
type MockLedgerAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.LedgerAccount

	GetByAccountNumberFunc  func(ctx context.Context, accountNumber string, opts ...domain.QueryOption) (*domain.LedgerAccount, error)
	ApplyBalanceDeltaFunc   func(ctx context.Context, tx usecase.Transaction, accountNumber string, delta int64, updatedAt time.Time) (*domain.LedgerAccount, error)
	SumAvailableBalanceFunc func(ctx context.Context) (int64, error)
}

func NewMockLedgerAccountRepository() *MockLedgerAccountRepository {
	return &MockLedgerAccountRepository{
		accounts: make(map[string]*domain.LedgerAccount),
	}
}

// Seed stores account as-is.
func (m *MockLedgerAccountRepository) Seed(account *domain.LedgerAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := *account
	m.accounts[account.AccountNumber] = &a
}

// Balance returns the stored balance, or -1 if the account is unknown.
func (m *MockLedgerAccountRepository) Balance(accountNumber string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[accountNumber]; ok {
		return a.AvailableBalance
	}
	return -1
}

func (m *MockLedgerAccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string, opts ...domain.QueryOption) (*domain.LedgerAccount, error) {
	if m.GetByAccountNumberFunc != nil {
		return m.GetByAccountNumberFunc(ctx, accountNumber, opts...)
	}
	o := domain.ApplyQueryOptions(opts...)

	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[accountNumber]
	if !ok || (a.IsDeleted() && !o.IncludeDeleted) {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockLedgerAccountRepository) FindOrCreate(ctx context.Context, tx usecase.Transaction, account *domain.LedgerAccount) (*domain.LedgerAccount, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.accounts[account.AccountNumber]; ok {
		cp := *existing
		return &cp, false, nil
	}
	a := *account
	m.accounts[account.AccountNumber] = &a
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.accounts, account.AccountNumber)
	})
	cp := a
	return &cp, true, nil
}

func (m *MockLedgerAccountRepository) ApplyBalanceDelta(ctx context.Context, tx usecase.Transaction, accountNumber string, delta int64, updatedAt time.Time) (*domain.LedgerAccount, error) {
	if m.ApplyBalanceDeltaFunc != nil {
		return m.ApplyBalanceDeltaFunc(ctx, tx, accountNumber, delta, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountNumber]
	if !ok || a.IsDeleted() {
		return nil, domain.ErrAccountNotFound
	}
	if a.AvailableBalance+delta < 0 {
		return nil, domain.ErrInsufficientFunds
	}
	a.AvailableBalance += delta
	a.UpdatedAt = updatedAt
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		a.AvailableBalance -= delta
	})
	cp := *a
	return &cp, nil
}

func (m *MockLedgerAccountRepository) List(ctx context.Context, limit, offset int, opts ...domain.QueryOption) ([]*domain.LedgerAccount, error) {
	o := domain.ApplyQueryOptions(opts...)

	m.mu.RLock()
	defer m.mu.RUnlock()
	numbers := make([]string, 0, len(m.accounts))
	for n, a := range m.accounts {
		if a.IsDeleted() && !o.IncludeDeleted {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	var accounts []*domain.LedgerAccount
	for i := offset; i < len(numbers) && len(accounts) < limit; i++ {
		cp := *m.accounts[numbers[i]]
		accounts = append(accounts, &cp)
	}
	return accounts, nil
}

func (m *MockLedgerAccountRepository) SumAvailableBalance(ctx context.Context) (int64, error) {
	if m.SumAvailableBalanceFunc != nil {
		return m.SumAvailableBalanceFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, a := range m.accounts {
		total += a.AvailableBalance
	}
	return total, nil
}

func (m *MockLedgerAccountRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, accountNumber string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountNumber]
	if !ok || a.IsDeleted() {
		return domain.ErrAccountNotFound
	}
	at := deletedAt
	a.DeletedAt = &at
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		a.DeletedAt = nil
	})
	return nil
}

// MockLedgerTransactionRepository is an in-memory LedgerTransactionRepository
// keyed by reference number.
type MockLedgerTransactionRepository struct {
	mu    sync.RWMutex
	txns  map[string]*domain.LedgerTransaction
	order []string

	CreateFunc func(ctx context.Context, tx usecase.Transaction, txn *domain.LedgerTransaction) error
	SettleFunc func(ctx context.Context, tx usecase.Transaction, reference string, settlement domain.Settlement) (*domain.LedgerTransaction, error)
}

func NewMockLedgerTransactionRepository() *MockLedgerTransactionRepository {
	return &MockLedgerTransactionRepository{
		txns: make(map[string]*domain.LedgerTransaction),
	}
}

// All returns every stored transaction in insertion order.
func (m *MockLedgerTransactionRepository) All() []*domain.LedgerTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LedgerTransaction, 0, len(m.order))
	for _, ref := range m.order {
		cp := *m.txns[ref]
		out = append(out, &cp)
	}
	return out
}

func (m *MockLedgerTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.LedgerTransaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txns[txn.ReferenceNumber]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateReference, txn.ReferenceNumber)
	}
	cp := *txn
	m.txns[txn.ReferenceNumber] = &cp
	m.order = append(m.order, txn.ReferenceNumber)
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.txns, txn.ReferenceNumber)
		for i, ref := range m.order {
			if ref == txn.ReferenceNumber {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockLedgerTransactionRepository) GetByReference(ctx context.Context, reference string, opts ...domain.QueryOption) (*domain.LedgerTransaction, error) {
	o := domain.ApplyQueryOptions(opts...)

	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.txns[reference]
	if !ok || (t.DeletedAt != nil && !o.IncludeDeleted) {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockLedgerTransactionRepository) Settle(ctx context.Context, tx usecase.Transaction, reference string, settlement domain.Settlement) (*domain.LedgerTransaction, error) {
	if m.SettleFunc != nil {
		return m.SettleFunc(ctx, tx, reference, settlement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[reference]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if !t.Status.CanTransitionTo(settlement.Status) {
		return nil, domain.ErrTransactionTerminal
	}
	prev := *t
	t.Status = settlement.Status
	t.BalanceBefore = settlement.BalanceBefore
	t.BalanceAfter = settlement.BalanceAfter
	if settlement.TransactionID != "" {
		t.TransactionID = settlement.TransactionID
	}
	t.FailureReason = settlement.FailureReason
	t.UpdatedAt = settlement.SettledAt
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		*t = prev
	})
	cp := *t
	return &cp, nil
}

func (m *MockLedgerTransactionRepository) ListByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.LedgerTransaction
	for i := len(m.order) - 1; i >= 0; i-- {
		t := m.txns[m.order[i]]
		if t.AccountNumber == accountNumber && t.DeletedAt == nil {
			cp := *t
			matched = append(matched, &cp)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MockLedgerTransactionRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*domain.LedgerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerTransaction
	for _, ref := range m.order {
		t := m.txns[ref]
		if t.Status == domain.TransactionStatusPending && t.CreatedAt.Before(before) && len(out) < limit {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockLedgerTransactionRepository) SumSettled(ctx context.Context, accountNumber string) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var credits, debits int64
	for _, t := range m.txns {
		if t.AccountNumber != accountNumber || t.Status != domain.TransactionStatusSuccessful {
			continue
		}
		switch t.Type {
		case domain.TransactionTypeCredit:
			credits += t.Amount
		case domain.TransactionTypeDebit:
			debits += t.Amount
		}
	}
	return credits, debits, nil
}

func (m *MockLedgerTransactionRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, reference string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[reference]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	at := deletedAt
	t.DeletedAt = &at
	return nil
}

// MockOutboxRepository records outbox events in memory.
type MockOutboxRepository struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns the recorded events.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.events {
			if e == event {
				m.events = append(m.events[:i], m.events[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			at := publishedAt
			e.Published = true
			e.PublishedAt = &at
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return nil
}

// MockTransactionManager hands out MockTransactions.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction undoes in-memory writes on Rollback unless it was committed.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	mu        sync.Mutex
	undo      []func()
	committed bool
	done      bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = true
	m.done = true
	m.undo = nil
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	undo := m.undo
	m.undo = nil
	m.done = true
	m.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// Committed reports whether Commit succeeded.
func (m *MockTransaction) Committed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

func onRollback(tx usecase.Transaction, fn func()) {
	mt, ok := tx.(*MockTransaction)
	if !ok {
		return
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.undo = append(mt.undo, fn)
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MemoryLocker is an in-process Locker with the same retry contract as the
// Redis implementation.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Obtain(ctx context.Context, key string, opts usecase.LockOptions) (usecase.Lease, error) {
	for attempt := 0; ; attempt++ {
		l.mu.Lock()
		if _, busy := l.held[key]; !busy {
			l.held[key] = struct{}{}
			l.mu.Unlock()
			return &memoryLease{locker: l, key: key}, nil
		}
		l.mu.Unlock()

		if attempt >= opts.RetryCount {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockAcquisition, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
}

// Held reports whether key is currently locked.
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
}

func (l *memoryLease) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	return nil
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("cache miss: %s", key)
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu    sync.Mutex
	store map[string][]byte
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{store: make(map[string][]byte)}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.store[key]; ok {
		return true, existing, nil
	}
	m.store[key] = value
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

// Get returns the stored value for key.
func (m *MockIdempotencyStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	return v, ok
}
