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

// LedgerTransactionRepository implements usecase.LedgerTransactionRepository.
type LedgerTransactionRepository struct {
	queries *generated.Queries
}

// NewLedgerTransactionRepository creates a new LedgerTransactionRepository.
func NewLedgerTransactionRepository(db generated.DBTX) *LedgerTransactionRepository {
	return &LedgerTransactionRepository{
		queries: generated.New(db),
	}
}

// Create inserts txn. The unique index on reference_number is the final
// idempotency guard.
func (r *LedgerTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.LedgerTransaction) error {
	err := queriesFor(r.queries, tx).CreateLedgerTransaction(ctx, generated.CreateLedgerTransactionParams{
		ID:                   txn.ID,
		AccountNumber:        txn.AccountNumber,
		Amount:               txn.Amount,
		Fee:                  txn.Fee,
		Tax:                  txn.Tax,
		Status:               string(txn.Status),
		TransactionType:      string(txn.Type),
		ReferenceNumber:      txn.ReferenceNumber,
		TransactionReference: txn.TransactionReference,
		TransactionID:        txn.TransactionID,
		BalanceBefore:        txn.BalanceBefore,
		BalanceAfter:         txn.BalanceAfter,
		Currency:             txn.Currency,
		ReversalID:           stringPtrToPgText(txn.ReversalID),
		Narration:            txn.Narration,
		FailureReason:        txn.FailureReason,
		CreatedAt:            timeToPgTimestamptz(txn.CreatedAt),
		UpdatedAt:            timeToPgTimestamptz(txn.UpdatedAt),
	})
	if err != nil {
		return translateError(err, txn.ReferenceNumber)
	}
	return nil
}

// GetByReference retrieves a transaction by reference number.
func (r *LedgerTransactionRepository) GetByReference(ctx context.Context, reference string, opts ...domain.QueryOption) (*domain.LedgerTransaction, error) {
	return r.getByReference(ctx, r.queries, reference, domain.ApplyQueryOptions(opts...).IncludeDeleted)
}

func (r *LedgerTransactionRepository) getByReference(ctx context.Context, q *generated.Queries, reference string, includeDeleted bool) (*domain.LedgerTransaction, error) {
	var (
		row generated.LedgerTransaction
		err error
	)
	if includeDeleted {
		row, err = q.GetLedgerTransactionByReferenceIncludingDeleted(ctx, reference)
	} else {
		row, err = q.GetLedgerTransactionByReference(ctx, reference)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, reference)
		}
		return nil, err
	}

	return rowToLedgerTransaction(row), nil
}

// Settle moves a PENDING transaction to settlement.Status. The UPDATE only
// matches PENDING rows, so a terminal row is never overwritten.
func (r *LedgerTransactionRepository) Settle(ctx context.Context, tx usecase.Transaction, reference string, settlement domain.Settlement) (*domain.LedgerTransaction, error) {
	if !settlement.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot settle to %s", domain.ErrTransactionTerminal, settlement.Status)
	}

	q := queriesFor(r.queries, tx)
	row, err := q.SettleLedgerTransaction(ctx, generated.SettleLedgerTransactionParams{
		ReferenceNumber: reference,
		Status:          string(settlement.Status),
		BalanceBefore:   settlement.BalanceBefore,
		BalanceAfter:    settlement.BalanceAfter,
		TransactionID:   settlement.TransactionID,
		FailureReason:   settlement.FailureReason,
		UpdatedAt:       timeToPgTimestamptz(settlement.SettledAt),
	})
	if err == nil {
		return rowToLedgerTransaction(row), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No PENDING row: tell a missing reference apart from a terminal one.
	existing, lookupErr := r.getByReference(ctx, q, reference, true)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return nil, fmt.Errorf("%w: %s is %s", domain.ErrTransactionTerminal, reference, existing.Status)
}

// ListByAccount lists an account's transactions, newest first.
func (r *LedgerTransactionRepository) ListByAccount(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	rows, err := r.queries.ListLedgerTransactionsByAccount(ctx, generated.ListLedgerTransactionsByAccountParams{
		AccountNumber: accountNumber,
		Limit:         clampInt32(limit),
		Offset:        clampInt32(offset),
	})
	if err != nil {
		return nil, err
	}
	return rowsToLedgerTransactions(rows), nil
}

// ListPendingBefore lists PENDING transactions created before the cutoff, oldest first.
func (r *LedgerTransactionRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*domain.LedgerTransaction, error) {
	rows, err := r.queries.ListPendingLedgerTransactionsBefore(ctx, generated.ListPendingLedgerTransactionsBeforeParams{
		Before: timeToPgTimestamptz(before),
		Limit:  clampInt32(limit),
	})
	if err != nil {
		return nil, err
	}
	return rowsToLedgerTransactions(rows), nil
}

// SumSettled totals SUCCESSFUL credits and debits, soft-deleted rows included.
func (r *LedgerTransactionRepository) SumSettled(ctx context.Context, accountNumber string) (int64, int64, error) {
	row, err := r.queries.SumSettledLedgerTransactions(ctx, accountNumber)
	if err != nil {
		return 0, 0, err
	}
	return row.Credits, row.Debits, nil
}

// SoftDelete hides a transaction from default lookups.
func (r *LedgerTransactionRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, reference string, deletedAt time.Time) error {
	n, err := queriesFor(r.queries, tx).SoftDeleteLedgerTransaction(ctx, generated.SoftDeleteLedgerTransactionParams{
		ReferenceNumber: reference,
		DeletedAt:       timeToPgTimestamptz(deletedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, reference)
	}
	return nil
}

func rowsToLedgerTransactions(rows []generated.LedgerTransaction) []*domain.LedgerTransaction {
	txns := make([]*domain.LedgerTransaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, rowToLedgerTransaction(row))
	}
	return txns
}

func rowToLedgerTransaction(row generated.LedgerTransaction) *domain.LedgerTransaction {
	return &domain.LedgerTransaction{
		ID:                   row.ID,
		AccountNumber:        row.AccountNumber,
		Amount:               row.Amount,
		Fee:                  row.Fee,
		Tax:                  row.Tax,
		Status:               domain.TransactionStatus(row.Status),
		Type:                 domain.TransactionType(row.TransactionType),
		ReferenceNumber:      row.ReferenceNumber,
		TransactionReference: row.TransactionReference,
		TransactionID:        row.TransactionID,
		BalanceBefore:        row.BalanceBefore,
		BalanceAfter:         row.BalanceAfter,
		Currency:             row.Currency,
		ReversalID:           pgTextToPtr(row.ReversalID),
		Narration:            row.Narration,
		FailureReason:        row.FailureReason,
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
		DeletedAt:            pgTimestamptzToPtr(row.DeletedAt),
	}
}
