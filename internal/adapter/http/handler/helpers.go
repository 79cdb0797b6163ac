package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/vaultledger/internal/adapter/http/dto"
	"github.com/iho/vaultledger/internal/domain"
)

const (
	maxBodyBytes = 1 << 20
	// lockRetryAfter is the Retry-After hint, in seconds, when an account is busy.
	lockRetryAfter = "2"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status mapDomainError assigns it.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	status := mapDomainError(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", lockRetryAfter)
	}
	writeError(w, status, message, err.Error())
}

// writeValidationError writes a 400 carrying per-field validation failures.
func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:   "validation failed",
		Message: err.Error(),
		Details: dto.ValidationDetails(err),
	})
}

// decodeAndValidate reads a JSON body into req and checks its struct tags.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	if err := dto.Validate(req); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidAccountNumber),
		errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, domain.ErrInvalidTransactionType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateReference),
		errors.Is(err, domain.ErrTransactionTerminal):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrLockAcquisition):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrWebhookAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseBoolQuery parses a boolean query parameter, defaulting to false.
func parseBoolQuery(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}
