package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/vaultledger/internal/adapter/http/dto"
	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

// BalanceService defines the behavior needed by TransactionHandler.
type BalanceService interface {
	Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.LedgerTransaction, error)
	Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
	GetTransaction(ctx context.Context, reference string) (*domain.LedgerTransaction, error)
	ListTransactions(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error)
}

// TransactionHandler handles balance-moving HTTP requests.
type TransactionHandler struct {
	balanceUC BalanceService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(balanceUC BalanceService) *TransactionHandler {
	return &TransactionHandler{balanceUC: balanceUC}
}

// Withdraw pays out from a ledger account through the provider.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	txn, err := h.balanceUC.Withdraw(r.Context(), input)
	if err != nil {
		writeDomainError(w, err, "failed to withdraw")
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// Transfer moves funds between two ledger accounts.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	result, err := h.balanceUC.Transfer(r.Context(), input)
	if err != nil {
		writeDomainError(w, err, "failed to transfer")
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromResult(result))
}

// Get retrieves a transaction by reference number.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "missing reference", "")
		return
	}

	txn, err := h.balanceUC.GetTransaction(r.Context(), reference)
	if err != nil {
		writeDomainError(w, err, "failed to get transaction")
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// ListByAccount lists an account's transactions.
func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")
	if accountNumber == "" {
		writeError(w, http.StatusBadRequest, "missing account number", "")
		return
	}

	txns, err := h.balanceUC.ListTransactions(r.Context(), accountNumber,
		parseIntQuery(r, "limit", usecase.DefaultListLimit),
		parseIntQuery(r, "offset", 0),
	)
	if err != nil {
		writeDomainError(w, err, "failed to list transactions")
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}
