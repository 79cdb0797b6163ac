package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/domain"
)

// MutationObserver receives the outcome of every balance mutation.
type MutationObserver interface {
	ObserveMutation(txType domain.TransactionType, status domain.TransactionStatus)
	ObserveLockFailure(operation string)
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(domain.TransactionType, domain.TransactionStatus) {}
func (nopObserver) ObserveLockFailure(string)                                        {}

// BalanceDeps groups the collaborators of BalanceUseCase.
type BalanceDeps struct {
	TxManager   TransactionManager
	Accounts    LedgerAccountRepository
	Transaction LedgerTransactionRepository
	Outbox      OutboxRepository
	Locker      Locker
	Provider    ProviderClient
	IDGen       IDGenerator
	Retrier     Retrier
	Observer    MutationObserver
	Logger      zerolog.Logger
	LockOptions LockOptions
}

// BalanceUseCase serializes and records every change to a ledger account balance.
type BalanceUseCase struct {
	txManager   TransactionManager
	accountRepo LedgerAccountRepository
	txnRepo     LedgerTransactionRepository
	outboxRepo  OutboxRepository
	locker      Locker
	provider    ProviderClient
	idGen       IDGenerator
	retrier     Retrier
	observer    MutationObserver
	logger      zerolog.Logger
	lockOpts    LockOptions
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(deps BalanceDeps) *BalanceUseCase {
	uc := &BalanceUseCase{
		txManager:   deps.TxManager,
		accountRepo: deps.Accounts,
		txnRepo:     deps.Transaction,
		outboxRepo:  deps.Outbox,
		locker:      deps.Locker,
		provider:    deps.Provider,
		idGen:       deps.IDGen,
		retrier:     deps.Retrier,
		observer:    deps.Observer,
		logger:      deps.Logger.With().Str("component", "balance").Logger(),
		lockOpts:    deps.LockOptions,
	}
	if uc.observer == nil {
		uc.observer = nopObserver{}
	}
	if uc.retrier == nil {
		uc.retrier = noRetry{}
	}
	if uc.lockOpts == (LockOptions{}) {
		uc.lockOpts = DefaultLockOptions()
	}
	return uc
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }

// WithdrawInput represents a debit paid out to an external bank account.
type WithdrawInput struct {
	AccountNumber       string
	Amount              int64
	Reference           string
	DestinationAccount  string
	DestinationBankCode string
	DestinationName     string
	Narration           string
}

// CreditInput represents a funding credit already settled by the provider.
type CreditInput struct {
	AccountNumber string
	Amount        int64
	Fee           int64
	Reference     string
	TransactionID string
	Narration     string
}

// TransferInput represents a movement between two ledger accounts.
type TransferInput struct {
	FromAccountNumber string
	ToAccountNumber   string
	Amount            int64
	Reference         string
	Narration         string
}

// TransferResult holds both legs of an internal transfer.
type TransferResult struct {
	Debit  *domain.LedgerTransaction
	Credit *domain.LedgerTransaction
}

// Withdraw debits an account and pays the amount out through the provider.
//
// The account lock spans the provider call. The PENDING row is committed before
// the call so the attempt is recorded even if the process dies mid-flight; the
// balance delta and SUCCESSFUL status are committed together afterwards.
func (uc *BalanceUseCase) Withdraw(ctx context.Context, input WithdrawInput) (*domain.LedgerTransaction, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.Reference == "" {
		return nil, domain.ErrInvalidReference
	}

	key := domain.LockKey(input.AccountNumber, domain.LockOperationDebit)
	txn, err := WithLock(ctx, uc.locker, key, uc.lockOpts, uc.logger, func(ctx context.Context) (*domain.LedgerTransaction, error) {
		return uc.withdrawLocked(ctx, input)
	})
	uc.observe(domain.TransactionTypeDebit, domain.LockOperationDebit, txn, err)

	return txn, err
}

func (uc *BalanceUseCase) withdrawLocked(ctx context.Context, input WithdrawInput) (*domain.LedgerTransaction, error) {
	account, err := uc.accountRepo.GetByAccountNumber(ctx, input.AccountNumber)
	if err != nil {
		return nil, err
	}

	if err := account.ValidateDebit(input.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pending := domain.NewPendingTransaction(uc.idGen.Generate(), account, domain.TransactionTypeDebit, input.Amount, input.Reference, now)
	pending.Narration = input.Narration
	if err := pending.Validate(); err != nil {
		return nil, err
	}

	if err := uc.createPending(ctx, pending); err != nil {
		return nil, err
	}

	result, err := uc.provider.Transfer(ctx, ProviderTransferRequest{
		Reference:           input.Reference,
		SourceAccountNumber: input.AccountNumber,
		DestinationAccount:  input.DestinationAccount,
		DestinationBankCode: input.DestinationBankCode,
		DestinationName:     input.DestinationName,
		Amount:              input.Amount,
		Narration:           input.Narration,
	})
	if err == nil && (result == nil || result.StatusCode != ProviderStatusOK) {
		err = unacceptedTransfer(result)
	}
	if err != nil {
		uc.markFailed(ctx, pending, err)
		return nil, err
	}

	var settled *domain.LedgerTransaction
	err = uc.inStorageTx(ctx, func(tx Transaction) error {
		settled, err = uc.settleSuccessful(ctx, tx, pending, result.TransactionID)
		return err
	})
	if err != nil {
		uc.logger.Error().
			Err(err).
			Str("reference", input.Reference).
			Str("provider_transaction_id", result.TransactionID).
			Msg("provider accepted withdrawal but ledger settlement failed")
		uc.markFailed(ctx, pending, err)
		return nil, fmt.Errorf("settle withdrawal %s: %w", input.Reference, err)
	}

	return settled, nil
}

// Credit records a provider-settled funding credit against an account.
func (uc *BalanceUseCase) Credit(ctx context.Context, input CreditInput) (*domain.LedgerTransaction, error) {
	if input.Amount <= 0 || input.Fee < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.Reference == "" {
		return nil, domain.ErrInvalidReference
	}

	key := domain.LockKey(input.AccountNumber, domain.LockOperationCredit)
	txn, err := WithLock(ctx, uc.locker, key, uc.lockOpts, uc.logger, func(ctx context.Context) (*domain.LedgerTransaction, error) {
		account, err := uc.accountRepo.GetByAccountNumber(ctx, input.AccountNumber)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		pending := domain.NewPendingTransaction(uc.idGen.Generate(), account, domain.TransactionTypeCredit, input.Amount, input.Reference, now)
		pending.Fee = input.Fee
		pending.Narration = input.Narration
		if input.TransactionID != "" {
			pending.TransactionID = input.TransactionID
		}
		if err := pending.Validate(); err != nil {
			return nil, err
		}

		var settled *domain.LedgerTransaction
		err = uc.inStorageTx(ctx, func(tx Transaction) error {
			if err := uc.txnRepo.Create(ctx, tx, pending); err != nil {
				return err
			}
			settled, err = uc.settleSuccessful(ctx, tx, pending, pending.TransactionID)
			return err
		})
		if err != nil {
			return nil, err
		}

		return settled, nil
	})
	uc.observe(domain.TransactionTypeCredit, domain.LockOperationCredit, txn, err)

	return txn, err
}

// Transfer moves funds between two ledger accounts without a provider call.
// Both accounts are locked, in lexicographic key order, before either balance changes.
func (uc *BalanceUseCase) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.FromAccountNumber == input.ToAccountNumber {
		return nil, domain.ErrSameAccount
	}
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.Reference == "" {
		return nil, domain.ErrInvalidReference
	}

	keys := []string{
		domain.LockKey(input.FromAccountNumber, domain.LockOperationDebit),
		domain.LockKey(input.ToAccountNumber, domain.LockOperationCredit),
	}

	result, err := WithLocks(ctx, uc.locker, keys, uc.lockOpts, uc.logger, func(ctx context.Context) (*TransferResult, error) {
		return uc.transferLocked(ctx, input)
	})

	var debit *domain.LedgerTransaction
	if result != nil {
		debit = result.Debit
	}
	uc.observe(domain.TransactionTypeDebit, domain.LockOperationDebit, debit, err)

	return result, err
}

func (uc *BalanceUseCase) transferLocked(ctx context.Context, input TransferInput) (*TransferResult, error) {
	sender, err := uc.accountRepo.GetByAccountNumber(ctx, input.FromAccountNumber)
	if err != nil {
		return nil, err
	}

	receiver, err := uc.accountRepo.GetByAccountNumber(ctx, input.ToAccountNumber)
	if err != nil {
		return nil, err
	}

	if err := sender.ValidateDebit(input.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	debit := domain.NewPendingTransaction(uc.idGen.Generate(), sender, domain.TransactionTypeDebit, input.Amount, input.Reference, now)
	debit.Narration = input.Narration
	credit := domain.NewPendingTransaction(uc.idGen.Generate(), receiver, domain.TransactionTypeCredit, input.Amount, uc.idGen.Generate(), now)
	credit.Narration = input.Narration
	credit.TransactionID = input.Reference

	result := &TransferResult{}
	err = uc.inStorageTx(ctx, func(tx Transaction) error {
		if err := uc.txnRepo.Create(ctx, tx, debit); err != nil {
			return err
		}
		if err := uc.txnRepo.Create(ctx, tx, credit); err != nil {
			return err
		}

		var err error
		if result.Debit, err = uc.settleSuccessful(ctx, tx, debit, input.Reference); err != nil {
			return err
		}
		if result.Credit, err = uc.settleSuccessful(ctx, tx, credit, input.Reference); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observer.ObserveMutation(domain.TransactionTypeCredit, domain.TransactionStatusSuccessful)

	return result, nil
}

// GetTransaction returns a transaction by its reference number.
func (uc *BalanceUseCase) GetTransaction(ctx context.Context, reference string) (*domain.LedgerTransaction, error) {
	return uc.txnRepo.GetByReference(ctx, reference)
}

// ListTransactions lists an account's transactions, newest first.
func (uc *BalanceUseCase) ListTransactions(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	if _, err := uc.accountRepo.GetByAccountNumber(ctx, accountNumber); err != nil {
		return nil, err
	}

	limit, offset = NormalizePagination(limit, offset)
	return uc.txnRepo.ListByAccount(ctx, accountNumber, limit, offset)
}

// FlagStalePending returns transactions still PENDING after olderThan.
// They usually mean a provider call timed out and may have succeeded upstream;
// resolving them needs the provider's own records.
func (uc *BalanceUseCase) FlagStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.LedgerTransaction, error) {
	limit, _ = NormalizePagination(limit, 0)
	cutoff := time.Now().UTC().Add(-olderThan)

	stale, err := uc.txnRepo.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}

	for _, txn := range stale {
		uc.logger.Warn().
			Str("reference", txn.ReferenceNumber).
			Str("account_number", txn.AccountNumber).
			Time("created_at", txn.CreatedAt).
			Msg("transaction stuck in PENDING")
	}

	return stale, nil
}

func (uc *BalanceUseCase) createPending(ctx context.Context, pending *domain.LedgerTransaction) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.txnRepo.Create(ctx, tx, pending); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// inStorageTx runs fn in a storage transaction, retrying the whole unit on
// deadlock or serialization failures.
func (uc *BalanceUseCase) inStorageTx(ctx context.Context, fn func(tx Transaction) error) error {
	return uc.retrier.Retry(ctx, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

// settleSuccessful applies txn's delta and marks it SUCCESSFUL inside tx.
// The recorded before/after come from the updated row, not the provisional values.
func (uc *BalanceUseCase) settleSuccessful(ctx context.Context, tx Transaction, txn *domain.LedgerTransaction, transactionID string) (*domain.LedgerTransaction, error) {
	now := time.Now().UTC()

	account, err := uc.accountRepo.ApplyBalanceDelta(ctx, tx, txn.AccountNumber, txn.Delta(), now)
	if err != nil {
		return nil, err
	}

	settled, err := uc.txnRepo.Settle(ctx, tx, txn.ReferenceNumber, domain.Settlement{
		Status:        domain.TransactionStatusSuccessful,
		BalanceBefore: account.AvailableBalance - txn.Delta(),
		BalanceAfter:  account.AvailableBalance,
		TransactionID: transactionID,
		SettledAt:     now,
	})
	if err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransactionSucceededEvent(uc.idGen.Generate(), settled, now)); err != nil {
		return nil, err
	}

	return settled, nil
}

// markFailed records a FAILED outcome. It never returns an error: the caller
// is already propagating the original failure.
// unacceptedTransfer reports a transfer the provider answered without its ok status.
func unacceptedTransfer(result *ProviderTransferResult) error {
	status := ""
	if result != nil {
		status = result.StatusCode
	}
	return &domain.ProviderError{
		Operation:  "transfer",
		StatusCode: status,
		Message:    "transfer not accepted",
	}
}

func (uc *BalanceUseCase) markFailed(ctx context.Context, txn *domain.LedgerTransaction, cause error) {
	ctx = context.WithoutCancel(ctx)

	err := func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if _, err := uc.txnRepo.Settle(ctx, tx, txn.ReferenceNumber, domain.Settlement{
			Status:        domain.TransactionStatusFailed,
			BalanceBefore: txn.BalanceBefore,
			BalanceAfter:  txn.BalanceBefore,
			FailureReason: cause.Error(),
			SettledAt:     time.Now().UTC(),
		}); err != nil {
			return err
		}

		return tx.Commit(ctx)
	}()
	if err != nil {
		uc.logger.Error().
			Err(err).
			AnErr("cause", cause).
			Str("reference", txn.ReferenceNumber).
			Msg("failed to mark transaction FAILED")
	}
}

func (uc *BalanceUseCase) observe(txType domain.TransactionType, operation string, txn *domain.LedgerTransaction, err error) {
	switch {
	case err == nil && txn != nil:
		uc.observer.ObserveMutation(txType, txn.Status)
	case errors.Is(err, domain.ErrLockAcquisition):
		uc.observer.ObserveLockFailure(operation)
	case errors.Is(err, domain.ErrProvider):
		uc.observer.ObserveMutation(txType, domain.TransactionStatusFailed)
	}
}
