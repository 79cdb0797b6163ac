package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/vaultledger/internal/domain"
)

var accountColumns = []string{
	"id", "account_number", "account_name", "email", "phone_number", "currency",
	"available_balance", "opening_balance", "created_at", "updated_at", "deleted_at",
}

var transactionColumns = []string{
	"id", "account_number", "amount", "fee", "tax", "status", "transaction_type",
	"reference_number", "transaction_reference", "transaction_id", "balance_before",
	"balance_after", "currency", "reversal_id", "narration", "failure_reason",
	"created_at", "updated_at", "deleted_at",
}

func accountRow(mock pgxmock.PgxPoolIface, balance int64, deletedAt any) *pgxmock.Rows {
	now := time.Now().UTC()
	return mock.NewRows(accountColumns).AddRow(
		"01ACC", "ACC1", "Ada Obi", "ada@example.com", "", "NGN",
		balance, int64(100000), now, now, deletedAt,
	)
}

func transactionRow(mock pgxmock.PgxPoolIface, status domain.TransactionStatus, before, after int64) *pgxmock.Rows {
	now := time.Now().UTC()
	return mock.NewRows(transactionColumns).AddRow(
		"01TXN", "ACC1", int64(50000), int64(0), int64(0), string(status), "DEBIT",
		"REF-A", "REF-A", "PRV-1", before,
		after, "NGN", nil, "", "",
		now, now, nil,
	)
}

func beginTx(t *testing.T, mock pgxmock.PgxPoolIface) *Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := newTxManagerWithPool(mock).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx.(*Tx)
}

func TestApplyBalanceDeltaReturnsUpdatedRow(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerAccountRepository(mock)
	tx := beginTx(t, mock)

	mock.ExpectQuery("UPDATE ledger_accounts").
		WithArgs("ACC1", int64(-50000), pgxmock.AnyArg()).
		WillReturnRows(accountRow(mock, 50000, nil))

	account, err := repo.ApplyBalanceDelta(context.Background(), tx, "ACC1", -50000, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.AvailableBalance != 50000 || account.OpeningBalance != 100000 {
		t.Fatalf("unexpected account %+v", account)
	}
	if account.DeletedAt != nil {
		t.Fatalf("expected active account")
	}

	assertExpectations(t, mock)
}

func TestApplyBalanceDeltaMapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "negative balance",
			err:  &pgconn.PgError{Code: pgErrCheckViolation, ConstraintName: constraintAvailableBalance},
			want: domain.ErrInsufficientFunds,
		},
		{
			name: "missing account",
			err:  pgx.ErrNoRows,
			want: domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewLedgerAccountRepository(mock)
			tx := beginTx(t, mock)

			mock.ExpectQuery("UPDATE ledger_accounts").
				WithArgs("ACC1", int64(-1), pgxmock.AnyArg()).
				WillReturnError(tt.err)

			_, err := repo.ApplyBalanceDelta(context.Background(), tx, "ACC1", -1, time.Now())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFindOrCreateReturnsExistingRow(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerAccountRepository(mock)
	tx := beginTx(t, mock)

	mock.ExpectQuery("INSERT INTO ledger_accounts").
		WithArgs("01NEW", "ACC1", "Someone Else", "", "", "", int64(0), int64(0), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM ledger_accounts").
		WithArgs("ACC1").
		WillReturnRows(accountRow(mock, 75000, nil))

	account, created, err := repo.FindOrCreate(context.Background(), tx, &domain.LedgerAccount{
		ID:               "01NEW",
		AccountNumber:    "ACC1",
		AccountName:      "Someone Else",
		AvailableBalance: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected existing account")
	}
	if account.AvailableBalance != 75000 || account.AccountName != "Ada Obi" {
		t.Fatalf("existing row must be returned untouched, got %+v", account)
	}

	assertExpectations(t, mock)
}

func TestGetByAccountNumberHonoursIncludeDeleted(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerAccountRepository(mock)

	mock.ExpectQuery("WHERE account_number = \\$1 AND deleted_at IS NULL").
		WithArgs("ACC1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM ledger_accounts WHERE account_number = \\$1$").
		WithArgs("ACC1").
		WillReturnRows(accountRow(mock, 0, time.Now().UTC()))

	if _, err := repo.GetByAccountNumber(context.Background(), "ACC1"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	account, err := repo.GetByAccountNumber(context.Background(), "ACC1", domain.IncludeDeleted())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !account.IsDeleted() {
		t.Fatalf("expected soft-deleted account")
	}

	assertExpectations(t, mock)
}

func TestSoftDeleteAccountNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerAccountRepository(mock)
	tx := beginTx(t, mock)

	mock.ExpectExec("UPDATE ledger_accounts").
		WithArgs("ACC9", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SoftDelete(context.Background(), tx, "ACC9", time.Now())
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateTransactionDuplicateReference(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerTransactionRepository(mock)
	tx := beginTx(t, mock)

	mock.ExpectExec("INSERT INTO ledger_transactions").
		WithArgs(
			"01TXN", "ACC1", int64(50000), int64(0), int64(0), "PENDING", "DEBIT",
			"REF-A", "REF-A", "", int64(100000), int64(50000), "NGN",
			pgxmock.AnyArg(), "", "", pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintReferenceNumber})

	txn := domain.NewPendingTransaction("01TXN", &domain.LedgerAccount{AccountNumber: "ACC1", AvailableBalance: 100000, Currency: "NGN"},
		domain.TransactionTypeDebit, 50000, "REF-A", time.Now())

	err := repo.Create(context.Background(), tx, txn)
	if !errors.Is(err, domain.ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference, got %v", err)
	}

	assertExpectations(t, mock)
}

func TestSettleSuccessful(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerTransactionRepository(mock)
	tx := beginTx(t, mock)

	mock.ExpectQuery("UPDATE ledger_transactions").
		WithArgs("REF-A", "SUCCESSFUL", int64(100000), int64(50000), "PRV-1", "", pgxmock.AnyArg()).
		WillReturnRows(transactionRow(mock, domain.TransactionStatusSuccessful, 100000, 50000))

	txn, err := repo.Settle(context.Background(), tx, "REF-A", domain.Settlement{
		Status:        domain.TransactionStatusSuccessful,
		BalanceBefore: 100000,
		BalanceAfter:  50000,
		TransactionID: "PRV-1",
		SettledAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Status != domain.TransactionStatusSuccessful || !txn.BalancesConsistent() {
		t.Fatalf("unexpected transaction %+v", txn)
	}
	if txn.ReversalID != nil {
		t.Fatalf("expected nil reversal id")
	}

	assertExpectations(t, mock)
}

func TestSettleTerminalTransaction(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerTransactionRepository(mock)
	tx := beginTx(t, mock)

	mock.ExpectQuery("UPDATE ledger_transactions").
		WithArgs("REF-A", "SUCCESSFUL", int64(0), int64(0), "", "", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM ledger_transactions").
		WithArgs("REF-A").
		WillReturnRows(transactionRow(mock, domain.TransactionStatusFailed, 100000, 100000))

	_, err := repo.Settle(context.Background(), tx, "REF-A", domain.Settlement{
		Status:    domain.TransactionStatusSuccessful,
		SettledAt: time.Now(),
	})
	if !errors.Is(err, domain.ErrTransactionTerminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}

	assertExpectations(t, mock)
}

func TestSettleUnknownTransaction(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerTransactionRepository(mock)
	tx := beginTx(t, mock)

	mock.ExpectQuery("UPDATE ledger_transactions").
		WithArgs("REF-X", "FAILED", int64(0), int64(0), "", "", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM ledger_transactions").
		WithArgs("REF-X").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Settle(context.Background(), tx, "REF-X", domain.Settlement{
		Status:    domain.TransactionStatusFailed,
		SettledAt: time.Now(),
	})
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	assertExpectations(t, mock)
}

func TestSumSettled(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerTransactionRepository(mock)

	mock.ExpectQuery("SUM\\(amount\\)").
		WithArgs("ACC1").
		WillReturnRows(mock.NewRows([]string{"credits", "debits"}).AddRow(int64(250000), int64(50000)))

	credits, debits, err := repo.SumSettled(context.Background(), "ACC1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if credits != 250000 || debits != 50000 {
		t.Fatalf("unexpected sums credits=%d debits=%d", credits, debits)
	}

	assertExpectations(t, mock)
}

func TestTranslateErrorPassesThroughDeadlocks(t *testing.T) {
	deadlock := &pgconn.PgError{Code: pgErrDeadlock}
	if err := translateError(deadlock, "ACC1"); !isRetryableError(err) {
		t.Fatalf("deadlock must stay retryable, got %v", err)
	}
}
