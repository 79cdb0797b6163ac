package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createLedgerTransaction = `-- name: CreateLedgerTransaction :exec
INSERT INTO ledger_transactions (
    id, account_number, amount, fee, tax, status, transaction_type, reference_number,
    transaction_reference, transaction_id, balance_before, balance_after, currency,
    reversal_id, narration, failure_reason, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`

type CreateLedgerTransactionParams struct {
	ID                   string             `json:"id"`
	AccountNumber        string             `json:"account_number"`
	Amount               int64              `json:"amount"`
	Fee                  int64              `json:"fee"`
	Tax                  int64              `json:"tax"`
	Status               string             `json:"status"`
	TransactionType      string             `json:"transaction_type"`
	ReferenceNumber      string             `json:"reference_number"`
	TransactionReference string             `json:"transaction_reference"`
	TransactionID        string             `json:"transaction_id"`
	BalanceBefore        int64              `json:"balance_before"`
	BalanceAfter         int64              `json:"balance_after"`
	Currency             string             `json:"currency"`
	ReversalID           pgtype.Text        `json:"reversal_id"`
	Narration            string             `json:"narration"`
	FailureReason        string             `json:"failure_reason"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateLedgerTransaction(ctx context.Context, arg CreateLedgerTransactionParams) error {
	_, err := q.db.Exec(ctx, createLedgerTransaction,
		arg.ID,
		arg.AccountNumber,
		arg.Amount,
		arg.Fee,
		arg.Tax,
		arg.Status,
		arg.TransactionType,
		arg.ReferenceNumber,
		arg.TransactionReference,
		arg.TransactionID,
		arg.BalanceBefore,
		arg.BalanceAfter,
		arg.Currency,
		arg.ReversalID,
		arg.Narration,
		arg.FailureReason,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getLedgerTransactionByReference = `-- name: GetLedgerTransactionByReference :one
SELECT id, account_number, amount, fee, tax, status, transaction_type, reference_number, transaction_reference, transaction_id, balance_before, balance_after, currency, reversal_id, narration, failure_reason, created_at, updated_at, deleted_at FROM ledger_transactions
WHERE reference_number = $1 AND deleted_at IS NULL
`

func (q *Queries) GetLedgerTransactionByReference(ctx context.Context, referenceNumber string) (LedgerTransaction, error) {
	row := q.db.QueryRow(ctx, getLedgerTransactionByReference, referenceNumber)
	var i LedgerTransaction
	err := row.Scan(
		&i.ID,
		&i.AccountNumber,
		&i.Amount,
		&i.Fee,
		&i.Tax,
		&i.Status,
		&i.TransactionType,
		&i.ReferenceNumber,
		&i.TransactionReference,
		&i.TransactionID,
		&i.BalanceBefore,
		&i.BalanceAfter,
		&i.Currency,
		&i.ReversalID,
		&i.Narration,
		&i.FailureReason,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const getLedgerTransactionByReferenceIncludingDeleted = `-- name: GetLedgerTransactionByReferenceIncludingDeleted :one
SELECT id, account_number, amount, fee, tax, status, transaction_type, reference_number, transaction_reference, transaction_id, balance_before, balance_after, currency, reversal_id, narration, failure_reason, created_at, updated_at, deleted_at FROM ledger_transactions
WHERE reference_number = $1
`

func (q *Queries) GetLedgerTransactionByReferenceIncludingDeleted(ctx context.Context, referenceNumber string) (LedgerTransaction, error) {
	row := q.db.QueryRow(ctx, getLedgerTransactionByReferenceIncludingDeleted, referenceNumber)
	var i LedgerTransaction
	err := row.Scan(
		&i.ID,
		&i.AccountNumber,
		&i.Amount,
		&i.Fee,
		&i.Tax,
		&i.Status,
		&i.TransactionType,
		&i.ReferenceNumber,
		&i.TransactionReference,
		&i.TransactionID,
		&i.BalanceBefore,
		&i.BalanceAfter,
		&i.Currency,
		&i.ReversalID,
		&i.Narration,
		&i.FailureReason,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const listLedgerTransactionsByAccount = `-- name: ListLedgerTransactionsByAccount :many
SELECT id, account_number, amount, fee, tax, status, transaction_type, reference_number, transaction_reference, transaction_id, balance_before, balance_after, currency, reversal_id, narration, failure_reason, created_at, updated_at, deleted_at FROM ledger_transactions
WHERE account_number = $1 AND deleted_at IS NULL
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type ListLedgerTransactionsByAccountParams struct {
	AccountNumber string `json:"account_number"`
	Limit         int32  `json:"limit"`
	Offset        int32  `json:"offset"`
}

func (q *Queries) ListLedgerTransactionsByAccount(ctx context.Context, arg ListLedgerTransactionsByAccountParams) ([]LedgerTransaction, error) {
	rows, err := q.db.Query(ctx, listLedgerTransactionsByAccount, arg.AccountNumber, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerTransaction
	for rows.Next() {
		var i LedgerTransaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountNumber,
			&i.Amount,
			&i.Fee,
			&i.Tax,
			&i.Status,
			&i.TransactionType,
			&i.ReferenceNumber,
			&i.TransactionReference,
			&i.TransactionID,
			&i.BalanceBefore,
			&i.BalanceAfter,
			&i.Currency,
			&i.ReversalID,
			&i.Narration,
			&i.FailureReason,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.DeletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPendingLedgerTransactionsBefore = `-- name: ListPendingLedgerTransactionsBefore :many
SELECT id, account_number, amount, fee, tax, status, transaction_type, reference_number, transaction_reference, transaction_id, balance_before, balance_after, currency, reversal_id, narration, failure_reason, created_at, updated_at, deleted_at FROM ledger_transactions
WHERE status = 'PENDING' AND created_at < $1
ORDER BY created_at
LIMIT $2
`

type ListPendingLedgerTransactionsBeforeParams struct {
	Before pgtype.Timestamptz `json:"before"`
	Limit  int32              `json:"limit"`
}

func (q *Queries) ListPendingLedgerTransactionsBefore(ctx context.Context, arg ListPendingLedgerTransactionsBeforeParams) ([]LedgerTransaction, error) {
	rows, err := q.db.Query(ctx, listPendingLedgerTransactionsBefore, arg.Before, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerTransaction
	for rows.Next() {
		var i LedgerTransaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountNumber,
			&i.Amount,
			&i.Fee,
			&i.Tax,
			&i.Status,
			&i.TransactionType,
			&i.ReferenceNumber,
			&i.TransactionReference,
			&i.TransactionID,
			&i.BalanceBefore,
			&i.BalanceAfter,
			&i.Currency,
			&i.ReversalID,
			&i.Narration,
			&i.FailureReason,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.DeletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const settleLedgerTransaction = `-- name: SettleLedgerTransaction :one
UPDATE ledger_transactions
SET status = $2,
    balance_before = $3,
    balance_after = $4,
    transaction_id = COALESCE(NULLIF($5::TEXT, ''), transaction_id),
    failure_reason = $6,
    updated_at = $7
WHERE reference_number = $1 AND status = 'PENDING'
RETURNING id, account_number, amount, fee, tax, status, transaction_type, reference_number, transaction_reference, transaction_id, balance_before, balance_after, currency, reversal_id, narration, failure_reason, created_at, updated_at, deleted_at
`

type SettleLedgerTransactionParams struct {
	ReferenceNumber string             `json:"reference_number"`
	Status          string             `json:"status"`
	BalanceBefore   int64              `json:"balance_before"`
	BalanceAfter    int64              `json:"balance_after"`
	TransactionID   string             `json:"transaction_id"`
	FailureReason   string             `json:"failure_reason"`
	UpdatedAt       pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) SettleLedgerTransaction(ctx context.Context, arg SettleLedgerTransactionParams) (LedgerTransaction, error) {
	row := q.db.QueryRow(ctx, settleLedgerTransaction,
		arg.ReferenceNumber,
		arg.Status,
		arg.BalanceBefore,
		arg.BalanceAfter,
		arg.TransactionID,
		arg.FailureReason,
		arg.UpdatedAt,
	)
	var i LedgerTransaction
	err := row.Scan(
		&i.ID,
		&i.AccountNumber,
		&i.Amount,
		&i.Fee,
		&i.Tax,
		&i.Status,
		&i.TransactionType,
		&i.ReferenceNumber,
		&i.TransactionReference,
		&i.TransactionID,
		&i.BalanceBefore,
		&i.BalanceAfter,
		&i.Currency,
		&i.ReversalID,
		&i.Narration,
		&i.FailureReason,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const softDeleteLedgerTransaction = `-- name: SoftDeleteLedgerTransaction :execrows
UPDATE ledger_transactions
SET deleted_at = $2
WHERE reference_number = $1 AND deleted_at IS NULL
`

type SoftDeleteLedgerTransactionParams struct {
	ReferenceNumber string             `json:"reference_number"`
	DeletedAt       pgtype.Timestamptz `json:"deleted_at"`
}

func (q *Queries) SoftDeleteLedgerTransaction(ctx context.Context, arg SoftDeleteLedgerTransactionParams) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteLedgerTransaction, arg.ReferenceNumber, arg.DeletedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const sumSettledLedgerTransactions = `-- name: SumSettledLedgerTransactions :one
SELECT
    COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'CREDIT'), 0)::BIGINT AS credits,
    COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'DEBIT'), 0)::BIGINT AS debits
FROM ledger_transactions
WHERE account_number = $1 AND status = 'SUCCESSFUL'
`

type SumSettledLedgerTransactionsRow struct {
	Credits int64 `json:"credits"`
	Debits  int64 `json:"debits"`
}

func (q *Queries) SumSettledLedgerTransactions(ctx context.Context, accountNumber string) (SumSettledLedgerTransactionsRow, error) {
	row := q.db.QueryRow(ctx, sumSettledLedgerTransactions, accountNumber)
	var i SumSettledLedgerTransactionsRow
	err := row.Scan(&i.Credits, &i.Debits)
	return i, err
}
