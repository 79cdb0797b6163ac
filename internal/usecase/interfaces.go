package usecase

import (
	"context"
	"time"

	"github.com/iho/vaultledger/internal/domain"
)

// SoftDeletable is implemented by stores whose rows are hidden rather than removed.
// Lookups skip soft-deleted rows unless called with domain.IncludeDeleted().
type SoftDeletable interface {
	SoftDelete(ctx context.Context, tx Transaction, key string, deletedAt time.Time) error
}

// LedgerAccountRepository defines data access for ledger accounts.
type LedgerAccountRepository interface {
	SoftDeletable
	GetByAccountNumber(ctx context.Context, accountNumber string, opts ...domain.QueryOption) (*domain.LedgerAccount, error)
	// FindOrCreate inserts account unless a row for its account number exists.
	// An existing row is returned untouched, with created=false.
	FindOrCreate(ctx context.Context, tx Transaction, account *domain.LedgerAccount) (*domain.LedgerAccount, bool, error)
	// ApplyBalanceDelta adds delta to available_balance and returns the updated row.
	ApplyBalanceDelta(ctx context.Context, tx Transaction, accountNumber string, delta int64, updatedAt time.Time) (*domain.LedgerAccount, error)
	List(ctx context.Context, limit, offset int, opts ...domain.QueryOption) ([]*domain.LedgerAccount, error)
	SumAvailableBalance(ctx context.Context) (int64, error)
}

// LedgerTransactionRepository defines data access for ledger transactions.
type LedgerTransactionRepository interface {
	SoftDeletable
	// Create fails with domain.ErrDuplicateReference when the reference number is taken.
	Create(ctx context.Context, tx Transaction, txn *domain.LedgerTransaction) error
	GetByReference(ctx context.Context, reference string, opts ...domain.QueryOption) (*domain.LedgerTransaction, error)
	// Settle moves a PENDING transaction to a terminal state.
	// It fails with domain.ErrTransactionTerminal if the row is no longer PENDING.
	Settle(ctx context.Context, tx Transaction, reference string, settlement domain.Settlement) (*domain.LedgerTransaction, error)
	ListByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*domain.LedgerTransaction, error)
	// SumSettled returns the totals of SUCCESSFUL credits and debits for an account.
	SumSettled(ctx context.Context, accountNumber string) (credits, debits int64, err error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// LockOptions controls how a lock is acquired.
type LockOptions struct {
	TTL        time.Duration
	RetryCount int
	RetryDelay time.Duration
}

// Locker grants mutual exclusion over a string key across processes.
type Locker interface {
	// Obtain fails with domain.ErrLockAcquisition once retries are exhausted.
	Obtain(ctx context.Context, key string, opts LockOptions) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// ProviderClient is the banking provider as seen by the ledger.
// Implementations return *domain.ProviderError for rejected calls.
type ProviderClient interface {
	CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) (*VirtualAccount, error)
	DeactivateVirtualAccount(ctx context.Context, accountNumber, reference string) error
	Transfer(ctx context.Context, req ProviderTransferRequest) (*ProviderTransferResult, error)
	// WalletBalance returns the provider's reported balance in minor units.
	WalletBalance(ctx context.Context) (int64, error)
}

// VirtualAccountRequest asks the provider to provision a virtual account.
type VirtualAccountRequest struct {
	Reference   string
	AccountName string
	Email       string
	PhoneNumber string
	BVN         string
}

// VirtualAccount is a provisioned account as reported by the provider.
type VirtualAccount struct {
	AccountNumber string
	AccountName   string
	BankName      string
}

// ProviderTransferRequest is an outbound payment to an external bank account.
type ProviderTransferRequest struct {
	Reference           string
	SourceAccountNumber string
	DestinationAccount  string
	DestinationBankCode string
	DestinationName     string
	Amount              int64
	Narration           string
}

// ProviderStatusOK is the provider's business status for an accepted call.
const ProviderStatusOK = "00"

// ProviderTransferResult is the provider's acknowledgement of a transfer.
type ProviderTransferResult struct {
	StatusCode    string
	TransactionID string
	SessionID     string
}

// Cache defines caching operations. Get returns an error on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles HTTP idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically claims key with value unless it is already claimed.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, []byte, error)
	// Update replaces the value of a claimed key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the request may be retried.
	Release(ctx context.Context, key string) error
}
