package dto

import (
	"testing"
	"time"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Now().UTC()
	resp := AccountFromDomain(&domain.LedgerAccount{
		ID:               "acc-1",
		AccountNumber:    "9900000001",
		AccountName:      "Ada Obi",
		Currency:         domain.DefaultCurrency,
		AvailableBalance: 123456,
		OpeningBalance:   100,
		CreatedAt:        now,
		DeletedAt:        &now,
	})

	if resp.AvailableBalance.StringFixed(2) != "1234.56" {
		t.Fatalf("expected 1234.56, got %s", resp.AvailableBalance.StringFixed(2))
	}
	if resp.OpeningBalance.StringFixed(2) != "1.00" {
		t.Fatalf("expected 1.00, got %s", resp.OpeningBalance.StringFixed(2))
	}
	if resp.DeletedAt == nil {
		t.Fatal("expected deleted_at to be carried over")
	}
}

func TestTransactionFromDomain(t *testing.T) {
	resp := TransactionFromDomain(&domain.LedgerTransaction{
		AccountNumber:   "9900000001",
		Type:            domain.TransactionTypeDebit,
		Status:          domain.TransactionStatusFailed,
		Amount:          5000,
		BalanceBefore:   10000,
		BalanceAfter:    10000,
		ReferenceNumber: "WD-1",
		FailureReason:   "provider declined",
	})

	if resp.Type != "DEBIT" || resp.Status != "FAILED" {
		t.Fatalf("unexpected type/status %s/%s", resp.Type, resp.Status)
	}
	if resp.Amount.StringFixed(2) != "50.00" || !resp.BalanceBefore.Equal(resp.BalanceAfter) {
		t.Fatalf("unexpected amounts %+v", resp)
	}
	if resp.FailureReason != "provider declined" {
		t.Fatalf("expected failure reason, got %q", resp.FailureReason)
	}
}

func TestReconciliationReportFromUseCase(t *testing.T) {
	resp := ReconciliationReportFromUseCase(&usecase.ReconciliationReport{
		TotalAccounts:      3,
		ReconciledAccounts: 2,
		Discrepancies: []*usecase.ReconciliationResult{
			{AccountNumber: "1", RecordedBalance: 1000, CalculatedBalance: 900, Difference: 100},
		},
	})

	if len(resp.Discrepancies) != 1 || resp.Discrepancies[0].Difference.StringFixed(2) != "1.00" {
		t.Fatalf("unexpected discrepancies %+v", resp.Discrepancies)
	}
	if resp.Analytics != nil {
		t.Fatal("expected analytics to be omitted when unavailable")
	}
}

func TestReconciliationReportFromUseCase_EmptyDiscrepanciesIsNotNil(t *testing.T) {
	resp := ReconciliationReportFromUseCase(&usecase.ReconciliationReport{})
	if resp.Discrepancies == nil {
		t.Fatal("expected an empty slice so the JSON renders []")
	}
}
