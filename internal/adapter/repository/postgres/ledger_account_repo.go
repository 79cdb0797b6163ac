package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/postgres/generated"
	"github.com/iho/vaultledger/internal/usecase"
)

// LedgerAccountRepository implements usecase.LedgerAccountRepository.
type LedgerAccountRepository struct {
	queries *generated.Queries
}

// NewLedgerAccountRepository creates a new LedgerAccountRepository.
func NewLedgerAccountRepository(db generated.DBTX) *LedgerAccountRepository {
	return &LedgerAccountRepository{
		queries: generated.New(db),
	}
}

// GetByAccountNumber retrieves an account by its provider account number.
func (r *LedgerAccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string, opts ...domain.QueryOption) (*domain.LedgerAccount, error) {
	var (
		row generated.LedgerAccount
		err error
	)
	if domain.ApplyQueryOptions(opts...).IncludeDeleted {
		row, err = r.queries.GetLedgerAccountIncludingDeleted(ctx, accountNumber)
	} else {
		row, err = r.queries.GetLedgerAccount(ctx, accountNumber)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountNumber)
		}
		return nil, err
	}

	return rowToLedgerAccount(row), nil
}

// FindOrCreate inserts account unless its account number already exists.
// A soft-deleted row still counts as existing.
func (r *LedgerAccountRepository) FindOrCreate(ctx context.Context, tx usecase.Transaction, account *domain.LedgerAccount) (*domain.LedgerAccount, bool, error) {
	q := queriesFor(r.queries, tx)

	row, err := q.InsertLedgerAccountIfAbsent(ctx, generated.InsertLedgerAccountIfAbsentParams{
		ID:               account.ID,
		AccountNumber:    account.AccountNumber,
		AccountName:      account.AccountName,
		Email:            account.Email,
		PhoneNumber:      account.PhoneNumber,
		Currency:         account.Currency,
		AvailableBalance: account.AvailableBalance,
		OpeningBalance:   account.OpeningBalance,
		CreatedAt:        timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:        timeToPgTimestamptz(account.UpdatedAt),
	})
	if err == nil {
		return rowToLedgerAccount(row), true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translateError(err, account.AccountNumber)
	}

	existing, err := q.GetLedgerAccountIncludingDeleted(ctx, account.AccountNumber)
	if err != nil {
		return nil, false, err
	}
	return rowToLedgerAccount(existing), false, nil
}

// ApplyBalanceDelta adds delta to the stored balance in one relative UPDATE.
// A result below zero violates the balance CHECK and maps to ErrInsufficientFunds.
func (r *LedgerAccountRepository) ApplyBalanceDelta(ctx context.Context, tx usecase.Transaction, accountNumber string, delta int64, updatedAt time.Time) (*domain.LedgerAccount, error) {
	row, err := queriesFor(r.queries, tx).ApplyLedgerAccountDelta(ctx, generated.ApplyLedgerAccountDeltaParams{
		AccountNumber: accountNumber,
		Delta:         delta,
		UpdatedAt:     timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountNumber)
		}
		return nil, translateError(err, accountNumber)
	}

	return rowToLedgerAccount(row), nil
}

// List retrieves accounts ordered by account number.
func (r *LedgerAccountRepository) List(ctx context.Context, limit, offset int, opts ...domain.QueryOption) ([]*domain.LedgerAccount, error) {
	var (
		rows []generated.LedgerAccount
		err  error
	)
	if domain.ApplyQueryOptions(opts...).IncludeDeleted {
		rows, err = r.queries.ListLedgerAccountsIncludingDeleted(ctx, generated.ListLedgerAccountsIncludingDeletedParams{
			Limit:  clampInt32(limit),
			Offset: clampInt32(offset),
		})
	} else {
		rows, err = r.queries.ListLedgerAccounts(ctx, generated.ListLedgerAccountsParams{
			Limit:  clampInt32(limit),
			Offset: clampInt32(offset),
		})
	}
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.LedgerAccount, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToLedgerAccount(row))
	}

	return accounts, nil
}

// SumAvailableBalance totals every account, soft-deleted ones included.
func (r *LedgerAccountRepository) SumAvailableBalance(ctx context.Context) (int64, error) {
	return r.queries.SumLedgerAccountBalances(ctx)
}

// SoftDelete hides the account from default lookups.
func (r *LedgerAccountRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, accountNumber string, deletedAt time.Time) error {
	n, err := queriesFor(r.queries, tx).SoftDeleteLedgerAccount(ctx, generated.SoftDeleteLedgerAccountParams{
		AccountNumber: accountNumber,
		DeletedAt:     timeToPgTimestamptz(deletedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountNumber)
	}
	return nil
}

func rowToLedgerAccount(row generated.LedgerAccount) *domain.LedgerAccount {
	return &domain.LedgerAccount{
		ID:               row.ID,
		AccountNumber:    row.AccountNumber,
		AccountName:      row.AccountName,
		Email:            row.Email,
		PhoneNumber:      row.PhoneNumber,
		Currency:         row.Currency,
		AvailableBalance: row.AvailableBalance,
		OpeningBalance:   row.OpeningBalance,
		CreatedAt:        row.CreatedAt.Time,
		UpdatedAt:        row.UpdatedAt.Time,
		DeletedAt:        pgTimestamptzToPtr(row.DeletedAt),
	}
}
