package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const applyLedgerAccountDelta = `-- name: ApplyLedgerAccountDelta :one
UPDATE ledger_accounts
SET available_balance = available_balance + $2, updated_at = $3
WHERE account_number = $1 AND deleted_at IS NULL
RETURNING id, account_number, account_name, email, phone_number, currency, available_balance, opening_balance, created_at, updated_at, deleted_at
`

type ApplyLedgerAccountDeltaParams struct {
	AccountNumber string             `json:"account_number"`
	Delta         int64              `json:"delta"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) ApplyLedgerAccountDelta(ctx context.Context, arg ApplyLedgerAccountDeltaParams) (LedgerAccount, error) {
	row := q.db.QueryRow(ctx, applyLedgerAccountDelta, arg.AccountNumber, arg.Delta, arg.UpdatedAt)
	var i LedgerAccount
	err := row.Scan(
		&i.ID,
		&i.AccountNumber,
		&i.AccountName,
		&i.Email,
		&i.PhoneNumber,
		&i.Currency,
		&i.AvailableBalance,
		&i.OpeningBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const getLedgerAccount = `-- name: GetLedgerAccount :one
SELECT id, account_number, account_name, email, phone_number, currency, available_balance, opening_balance, created_at, updated_at, deleted_at FROM ledger_accounts
WHERE account_number = $1 AND deleted_at IS NULL
`

func (q *Queries) GetLedgerAccount(ctx context.Context, accountNumber string) (LedgerAccount, error) {
	row := q.db.QueryRow(ctx, getLedgerAccount, accountNumber)
	var i LedgerAccount
	err := row.Scan(
		&i.ID,
		&i.AccountNumber,
		&i.AccountName,
		&i.Email,
		&i.PhoneNumber,
		&i.Currency,
		&i.AvailableBalance,
		&i.OpeningBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const getLedgerAccountIncludingDeleted = `-- name: GetLedgerAccountIncludingDeleted :one
SELECT id, account_number, account_name, email, phone_number, currency, available_balance, opening_balance, created_at, updated_at, deleted_at FROM ledger_accounts
WHERE account_number = $1
`

func (q *Queries) GetLedgerAccountIncludingDeleted(ctx context.Context, accountNumber string) (LedgerAccount, error) {
	row := q.db.QueryRow(ctx, getLedgerAccountIncludingDeleted, accountNumber)
	var i LedgerAccount
	err := row.Scan(
		&i.ID,
		&i.AccountNumber,
		&i.AccountName,
		&i.Email,
		&i.PhoneNumber,
		&i.Currency,
		&i.AvailableBalance,
		&i.OpeningBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const insertLedgerAccountIfAbsent = `-- name: InsertLedgerAccountIfAbsent :one
INSERT INTO ledger_accounts (id, account_number, account_name, email, phone_number, currency, available_balance, opening_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (account_number) DO NOTHING
RETURNING id, account_number, account_name, email, phone_number, currency, available_balance, opening_balance, created_at, updated_at, deleted_at
`

type InsertLedgerAccountIfAbsentParams struct {
	ID               string             `json:"id"`
	AccountNumber    string             `json:"account_number"`
	AccountName      string             `json:"account_name"`
	Email            string             `json:"email"`
	PhoneNumber      string             `json:"phone_number"`
	Currency         string             `json:"currency"`
	AvailableBalance int64              `json:"available_balance"`
	OpeningBalance   int64              `json:"opening_balance"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) InsertLedgerAccountIfAbsent(ctx context.Context, arg InsertLedgerAccountIfAbsentParams) (LedgerAccount, error) {
	row := q.db.QueryRow(ctx, insertLedgerAccountIfAbsent,
		arg.ID,
		arg.AccountNumber,
		arg.AccountName,
		arg.Email,
		arg.PhoneNumber,
		arg.Currency,
		arg.AvailableBalance,
		arg.OpeningBalance,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i LedgerAccount
	err := row.Scan(
		&i.ID,
		&i.AccountNumber,
		&i.AccountName,
		&i.Email,
		&i.PhoneNumber,
		&i.Currency,
		&i.AvailableBalance,
		&i.OpeningBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const listLedgerAccounts = `-- name: ListLedgerAccounts :many
SELECT id, account_number, account_name, email, phone_number, currency, available_balance, opening_balance, created_at, updated_at, deleted_at FROM ledger_accounts
WHERE deleted_at IS NULL
ORDER BY account_number
LIMIT $1 OFFSET $2
`

type ListLedgerAccountsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListLedgerAccounts(ctx context.Context, arg ListLedgerAccountsParams) ([]LedgerAccount, error) {
	rows, err := q.db.Query(ctx, listLedgerAccounts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerAccount
	for rows.Next() {
		var i LedgerAccount
		if err := rows.Scan(
			&i.ID,
			&i.AccountNumber,
			&i.AccountName,
			&i.Email,
			&i.PhoneNumber,
			&i.Currency,
			&i.AvailableBalance,
			&i.OpeningBalance,
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

const listLedgerAccountsIncludingDeleted = `-- name: ListLedgerAccountsIncludingDeleted :many
SELECT id, account_number, account_name, email, phone_number, currency, available_balance, opening_balance, created_at, updated_at, deleted_at FROM ledger_accounts
ORDER BY account_number
LIMIT $1 OFFSET $2
`

type ListLedgerAccountsIncludingDeletedParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListLedgerAccountsIncludingDeleted(ctx context.Context, arg ListLedgerAccountsIncludingDeletedParams) ([]LedgerAccount, error) {
	rows, err := q.db.Query(ctx, listLedgerAccountsIncludingDeleted, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerAccount
	for rows.Next() {
		var i LedgerAccount
		if err := rows.Scan(
			&i.ID,
			&i.AccountNumber,
			&i.AccountName,
			&i.Email,
			&i.PhoneNumber,
			&i.Currency,
			&i.AvailableBalance,
			&i.OpeningBalance,
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

const softDeleteLedgerAccount = `-- name: SoftDeleteLedgerAccount :execrows
UPDATE ledger_accounts
SET deleted_at = $2, updated_at = $2
WHERE account_number = $1 AND deleted_at IS NULL
`

type SoftDeleteLedgerAccountParams struct {
	AccountNumber string             `json:"account_number"`
	DeletedAt     pgtype.Timestamptz `json:"deleted_at"`
}

func (q *Queries) SoftDeleteLedgerAccount(ctx context.Context, arg SoftDeleteLedgerAccountParams) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteLedgerAccount, arg.AccountNumber, arg.DeletedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const sumLedgerAccountBalances = `-- name: SumLedgerAccountBalances :one
SELECT COALESCE(SUM(available_balance), 0)::BIGINT AS total FROM ledger_accounts
`

func (q *Queries) SumLedgerAccountBalances(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, sumLedgerAccountBalances)
	var total int64
	err := row.Scan(&total)
	return total, err
}
