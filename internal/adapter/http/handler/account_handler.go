package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/vaultledger/internal/adapter/http/dto"
	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	ProvisionAccount(ctx context.Context, input usecase.ProvisionAccountInput) (*domain.LedgerAccount, bool, error)
	GetAccount(ctx context.Context, accountNumber string, opts ...domain.QueryOption) (*domain.LedgerAccount, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.LedgerAccount, error)
	DeactivateAccount(ctx context.Context, accountNumber string) error
}

// AccountHandler handles ledger account HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Provision provisions a virtual account and registers it in the ledger.
// Registering an existing account number answers 200 with the stored row.
func (h *AccountHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req dto.ProvisionAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid opening balance", err.Error())
		return
	}

	account, created, err := h.accountUC.ProvisionAccount(r.Context(), input)
	if err != nil {
		writeDomainError(w, err, "failed to provision account")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.AccountFromDomain(account))
}

// Get retrieves an account by account number.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")
	if accountNumber == "" {
		writeError(w, http.StatusBadRequest, "missing account number", "")
		return
	}

	var opts []domain.QueryOption
	if parseBoolQuery(r, "include_deleted") {
		opts = append(opts, domain.IncludeDeleted())
	}

	account, err := h.accountUC.GetAccount(r.Context(), accountNumber, opts...)
	if err != nil {
		writeDomainError(w, err, "failed to get account")
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		Limit:          parseIntQuery(r, "limit", usecase.DefaultListLimit),
		Offset:         parseIntQuery(r, "offset", 0),
		IncludeDeleted: parseBoolQuery(r, "include_deleted"),
	})
	if err != nil {
		writeDomainError(w, err, "failed to list accounts")
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// Delete deactivates the virtual account and soft-deletes the ledger row.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")
	if accountNumber == "" {
		writeError(w, http.StatusBadRequest, "missing account number", "")
		return
	}

	if err := h.accountUC.DeactivateAccount(r.Context(), accountNumber); err != nil {
		writeDomainError(w, err, "failed to deactivate account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
