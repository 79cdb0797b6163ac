package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/vaultledger/internal/adapter/http/dto"
	"github.com/iho/vaultledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by LedgerHandler.
type ReconciliationService interface {
	GetDashboardAnalytics(ctx context.Context) (*usecase.DashboardAnalytics, error)
	ReconcileAccount(ctx context.Context, accountNumber string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	reconciliationUC ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciliationUC ReconciliationService) *LedgerHandler {
	return &LedgerHandler{reconciliationUC: reconciliationUC}
}

// Analytics reports the provider wallet against the tracked balances.
func (h *LedgerHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.reconciliationUC.GetDashboardAnalytics(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to compute analytics")
		return
	}

	writeJSON(w, http.StatusOK, dto.AnalyticsFromUseCase(analytics))
}

// Reconcile replays every account's transactions against its balance.
// An unbalanced ledger answers 409 with the full report.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to reconcile ledger")
		return
	}

	status := http.StatusOK
	if len(report.Discrepancies) > 0 {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto.ReconciliationReportFromUseCase(report))
}

// ReconcileAccount replays one account's transactions against its balance.
func (h *LedgerHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")
	if accountNumber == "" {
		writeError(w, http.StatusBadRequest, "missing account number", "")
		return
	}

	result, err := h.reconciliationUC.ReconcileAccount(r.Context(), accountNumber)
	if err != nil {
		writeDomainError(w, err, "failed to reconcile account")
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}
