package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/postgres/generated"
	"github.com/iho/vaultledger/internal/usecase"
)

// PostgreSQL error codes mapped to domain errors.
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrCheckViolation      = "23514"
)

// Constraint names from the migrations.
const (
	constraintReferenceNumber  = "ledger_transactions_reference_number_key"
	constraintAvailableBalance = "ledger_accounts_available_balance_check"
)

// queriesFor returns queries bound to tx, or to the pool when tx is nil.
func queriesFor(base *generated.Queries, tx usecase.Transaction) *generated.Queries {
	if tx == nil {
		return base
	}
	return base.WithTx(tx.(*Tx).PgxTx())
}

// translateError maps constraint violations to domain errors. Anything else,
// including deadlocks the Retrier must see, is returned unchanged.
func translateError(err error, key string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrUniqueViolation:
		if pgErr.ConstraintName == constraintReferenceNumber {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateReference, key)
		}
	case pgErrCheckViolation:
		if pgErr.ConstraintName == constraintAvailableBalance {
			return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, key)
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, pgErr.ConstraintName)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, key)
	}
	return err
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func pgTimestamptzToPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func stringPtrToPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func pgTextToPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func clampInt32(n int) int32 {
	const maxInt32 = 1<<31 - 1
	switch {
	case n < 0:
		return 0
	case n > maxInt32:
		return maxInt32
	default:
		return int32(n)
	}
}
