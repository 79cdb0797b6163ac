package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/adapter/http/dto"
	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/auth"
	"github.com/iho/vaultledger/internal/usecase"
)

// Acknowledgement statuses returned to the provider.
const (
	AckCredited  = "credited"
	AckDuplicate = "duplicate"
)

// NotificationVerifier authenticates funding notifications.
type NotificationVerifier interface {
	Verify(authorization string, n *auth.FundingNotification) error
}

// CreditService defines the behavior needed by WebhookHandler.
type CreditService interface {
	Credit(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error)
}

// WebhookHandler receives provider callbacks.
type WebhookHandler struct {
	verifier  NotificationVerifier
	balanceUC CreditService
	logger    zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(verifier NotificationVerifier, balanceUC CreditService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:  verifier,
		balanceUC: balanceUC,
		logger:    logger.With().Str("component", "webhook").Logger(),
	}
}

// Funding credits a virtual account from a verified funding notification.
// Replays of an already credited notification are acknowledged with 200 so the
// provider stops retrying.
func (h *WebhookHandler) Funding(w http.ResponseWriter, r *http.Request) {
	var n auth.FundingNotification
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.verifier.Verify(r.Header.Get("Authorization"), &n); err != nil {
		writeError(w, http.StatusUnauthorized, "webhook rejected", "")
		return
	}

	reference := n.IdempotencyReference()
	log := h.logger.With().
		Str("reference", reference).
		Str("account_number", n.AccountNumber).
		Str("status_code", n.StatusCode).
		Logger()

	gross, err := domain.MajorToMinor(n.Amount)
	if err != nil {
		writeDomainError(w, err, "invalid amount")
		return
	}
	var fee int64
	if n.ClearingFeeAmount != "" {
		if fee, err = domain.MajorToMinor(n.ClearingFeeAmount); err != nil {
			writeDomainError(w, err, "invalid clearing fee")
			return
		}
	}
	if gross-fee <= 0 {
		writeDomainError(w, domain.ErrInvalidAmount, "clearing fee exceeds amount")
		return
	}

	txn, err := h.balanceUC.Credit(r.Context(), usecase.CreditInput{
		AccountNumber: n.AccountNumber,
		Amount:        gross - fee,
		Fee:           fee,
		Reference:     reference,
		TransactionID: n.SessionID,
		Narration:     n.Narration,
	})
	if errors.Is(err, domain.ErrDuplicateReference) {
		log.Info().Msg("funding notification already credited")
		writeJSON(w, http.StatusOK, dto.WebhookAck{Status: AckDuplicate, Reference: reference})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to credit funding notification")
		writeDomainError(w, err, "failed to credit account")
		return
	}

	log.Info().
		Int64("amount", txn.Amount).
		Int64("fee", txn.Fee).
		Int64("balance_after", txn.BalanceAfter).
		Msg("funding notification credited")

	writeJSON(w, http.StatusOK, dto.WebhookAck{Status: AckCredited, Reference: reference})
}
