package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

// major renders minor units as a major-unit decimal.
func major(minor int64) decimal.Decimal {
	return decimal.New(minor, -domain.MinorUnitExponent)
}

// AccountResponse represents a ledger account in API responses.
type AccountResponse struct {
	ID               string          `json:"id"`
	AccountNumber    string          `json:"account_number"`
	AccountName      string          `json:"account_name"`
	Email            string          `json:"email,omitempty"`
	PhoneNumber      string          `json:"phone_number,omitempty"`
	Currency         string          `json:"currency"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.LedgerAccount) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		AccountNumber:    a.AccountNumber,
		AccountName:      a.AccountName,
		Email:            a.Email,
		PhoneNumber:      a.PhoneNumber,
		Currency:         a.Currency,
		AvailableBalance: major(a.AvailableBalance),
		OpeningBalance:   major(a.OpeningBalance),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		DeletedAt:        a.DeletedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.LedgerAccount) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID                   string          `json:"id"`
	AccountNumber        string          `json:"account_number"`
	Type                 string          `json:"type"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	Fee                  decimal.Decimal `json:"fee"`
	Tax                  decimal.Decimal `json:"tax"`
	BalanceBefore        decimal.Decimal `json:"balance_before"`
	BalanceAfter         decimal.Decimal `json:"balance_after"`
	Currency             string          `json:"currency"`
	ReferenceNumber      string          `json:"reference_number"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	TransactionID        string          `json:"transaction_id,omitempty"`
	ReversalID           *string         `json:"reversal_id,omitempty"`
	Narration            string          `json:"narration,omitempty"`
	FailureReason        string          `json:"failure_reason,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.LedgerTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                   t.ID,
		AccountNumber:        t.AccountNumber,
		Type:                 string(t.Type),
		Status:               string(t.Status),
		Amount:               major(t.Amount),
		Fee:                  major(t.Fee),
		Tax:                  major(t.Tax),
		BalanceBefore:        major(t.BalanceBefore),
		BalanceAfter:         major(t.BalanceAfter),
		Currency:             t.Currency,
		ReferenceNumber:      t.ReferenceNumber,
		TransactionReference: t.TransactionReference,
		TransactionID:        t.TransactionID,
		ReversalID:           t.ReversalID,
		Narration:            t.Narration,
		FailureReason:        t.FailureReason,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.LedgerTransaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// TransferResponse carries both legs of an internal transfer.
type TransferResponse struct {
	Debit  *TransactionResponse `json:"debit"`
	Credit *TransactionResponse `json:"credit"`
}

// TransferFromResult converts a use case transfer result to a response.
func TransferFromResult(r *usecase.TransferResult) *TransferResponse {
	return &TransferResponse{
		Debit:  TransactionFromDomain(r.Debit),
		Credit: TransactionFromDomain(r.Credit),
	}
}

// AnalyticsResponse represents the funding position of the provider wallet.
type AnalyticsResponse struct {
	ProviderBalance       decimal.Decimal `json:"provider_balance"`
	TotalTrackedBalance   decimal.Decimal `json:"total_tracked_balance"`
	Difference            decimal.Decimal `json:"difference"`
	NeedsTopUp            bool            `json:"needs_top_up"`
	TopUpAmount           decimal.Decimal `json:"top_up_amount"`
	ProviderBalanceAgeSec float64         `json:"provider_balance_age_seconds"`
	GeneratedAt           time.Time       `json:"generated_at"`
}

// AnalyticsFromUseCase converts dashboard analytics to a response.
func AnalyticsFromUseCase(a *usecase.DashboardAnalytics) *AnalyticsResponse {
	return &AnalyticsResponse{
		ProviderBalance:       major(a.ProviderBalance),
		TotalTrackedBalance:   major(a.TotalTrackedBalance),
		Difference:            major(a.Difference),
		NeedsTopUp:            a.NeedsTopUp,
		TopUpAmount:           major(a.TopUpAmount),
		ProviderBalanceAgeSec: a.ProviderBalanceAge.Seconds(),
		GeneratedAt:           a.GeneratedAt,
	}
}

// ReconciliationResponse represents one account's balance replay.
type ReconciliationResponse struct {
	AccountNumber     string          `json:"account_number"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	TotalCredits      decimal.Decimal `json:"total_credits"`
	TotalDebits       decimal.Decimal `json:"total_debits"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconciliationFromUseCase converts a reconciliation result to a response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountNumber:     r.AccountNumber,
		OpeningBalance:    major(r.OpeningBalance),
		TotalCredits:      major(r.TotalCredits),
		TotalDebits:       major(r.TotalDebits),
		RecordedBalance:   major(r.RecordedBalance),
		CalculatedBalance: major(r.CalculatedBalance),
		Difference:        major(r.Difference),
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReconciliationReportResponse represents a ledger-wide reconciliation run.
type ReconciliationReportResponse struct {
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	Analytics          *AnalyticsResponse        `json:"analytics,omitempty"`
	CheckedAt          time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromUseCase converts a reconciliation report to a response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	resp := &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      make([]*ReconciliationResponse, len(r.Discrepancies)),
		CheckedAt:          r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = ReconciliationFromUseCase(d)
	}
	if r.Analytics != nil {
		resp.Analytics = AnalyticsFromUseCase(r.Analytics)
	}
	return resp
}

// WebhookAck acknowledges a funding notification.
type WebhookAck struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
