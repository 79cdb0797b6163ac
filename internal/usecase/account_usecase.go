package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/domain"
)

// AccountUseCase handles virtual account lifecycle.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo LedgerAccountRepository
	outboxRepo  OutboxRepository
	provider    ProviderClient
	locker      Locker
	idGen       IDGenerator
	logger      zerolog.Logger
	lockOpts    LockOptions
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo LedgerAccountRepository,
	outboxRepo OutboxRepository,
	provider ProviderClient,
	locker Locker,
	idGen IDGenerator,
	logger zerolog.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		provider:    provider,
		locker:      locker,
		idGen:       idGen,
		logger:      logger.With().Str("component", "accounts").Logger(),
		lockOpts:    DefaultLockOptions(),
	}
}

// WithLockOptions overrides the lock policy used by DeactivateAccount.
func (uc *AccountUseCase) WithLockOptions(opts LockOptions) *AccountUseCase {
	if opts != (LockOptions{}) {
		uc.lockOpts = opts
	}
	return uc
}

// ProvisionAccountInput represents input for provisioning a virtual account.
// When AccountNumber is set the account already exists at the provider and is
// only registered in the ledger.
type ProvisionAccountInput struct {
	AccountNumber  string
	AccountName    string
	Email          string
	PhoneNumber    string
	BVN            string
	OpeningBalance int64
}

// ProvisionAccount creates the virtual account at the provider and registers
// it in the ledger. Registering an account number twice returns the existing row.
func (uc *AccountUseCase) ProvisionAccount(ctx context.Context, input ProvisionAccountInput) (*domain.LedgerAccount, bool, error) {
	now := time.Now().UTC()

	account := &domain.LedgerAccount{
		ID:               uc.idGen.Generate(),
		AccountNumber:    input.AccountNumber,
		AccountName:      input.AccountName,
		Email:            input.Email,
		PhoneNumber:      input.PhoneNumber,
		Currency:         domain.DefaultCurrency,
		AvailableBalance: input.OpeningBalance,
		OpeningBalance:   input.OpeningBalance,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if account.AccountNumber == "" {
		if account.AccountName == "" {
			return nil, false, domain.ErrInvalidAccountName
		}

		va, err := uc.provider.CreateVirtualAccount(ctx, VirtualAccountRequest{
			Reference:   uc.idGen.Generate(),
			AccountName: input.AccountName,
			Email:       input.Email,
			PhoneNumber: input.PhoneNumber,
			BVN:         input.BVN,
		})
		if err != nil {
			return nil, false, err
		}

		account.AccountNumber = va.AccountNumber
		if va.AccountName != "" {
			account.AccountName = va.AccountName
		}
	}

	if err := account.Validate(); err != nil {
		return nil, false, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	stored, created, err := uc.accountRepo.FindOrCreate(ctx, tx, account)
	if err != nil {
		return nil, false, err
	}

	if created {
		event := domain.NewAccountEvent(uc.idGen.Generate(), domain.EventTypeAccountProvisioned, stored, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	uc.logger.Info().
		Str("account_number", stored.AccountNumber).
		Bool("created", created).
		Msg("ledger account provisioned")

	return stored, created, nil
}

// GetAccount retrieves an account by account number.
func (uc *AccountUseCase) GetAccount(ctx context.Context, accountNumber string, opts ...domain.QueryOption) (*domain.LedgerAccount, error) {
	return uc.accountRepo.GetByAccountNumber(ctx, accountNumber, opts...)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.LedgerAccount, error) {
	limit, offset := NormalizePagination(input.Limit, input.Offset)

	var opts []domain.QueryOption
	if input.IncludeDeleted {
		opts = append(opts, domain.IncludeDeleted())
	}

	return uc.accountRepo.List(ctx, limit, offset, opts...)
}

// DeactivateAccount closes the virtual account at the provider and soft-deletes
// the ledger row. The debit lock is held so no withdrawal is in flight.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, accountNumber string) error {
	key := domain.LockKey(accountNumber, domain.LockOperationDebit)

	_, err := WithLock(ctx, uc.locker, key, uc.lockOpts, uc.logger, func(ctx context.Context) (struct{}, error) {
		account, err := uc.accountRepo.GetByAccountNumber(ctx, accountNumber)
		if err != nil {
			return struct{}{}, err
		}

		if err := uc.provider.DeactivateVirtualAccount(ctx, accountNumber, uc.idGen.Generate()); err != nil {
			return struct{}{}, err
		}

		now := time.Now().UTC()

		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return struct{}{}, err
		}
		defer tx.Rollback(ctx)

		if err := uc.accountRepo.SoftDelete(ctx, tx, accountNumber, now); err != nil {
			return struct{}{}, err
		}

		event := domain.NewAccountEvent(uc.idGen.Generate(), domain.EventTypeAccountDeactivated, account, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, tx.Commit(ctx)
	})

	return err
}
