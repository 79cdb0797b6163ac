package domain

import (
	"errors"
	"fmt"
)

var (
	// Account errors
	ErrAccountNotFound      = errors.New("ledger account not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidAccountNumber = errors.New("invalid account number")
	ErrInvalidAccountName   = errors.New("invalid account name")

	// Transaction errors
	ErrDuplicateReference     = errors.New("duplicate reference number")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrTransactionTerminal    = errors.New("transaction already in terminal state")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidReference       = errors.New("reference number is required")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrSameAccount            = errors.New("cannot transfer to same account")

	// Infrastructure errors
	ErrLockAcquisition = errors.New("could not acquire ledger lock")
	ErrProvider        = errors.New("provider request failed")
	ErrWebhookAuth     = errors.New("webhook authentication failed")
)

// ProviderError is returned when the provider rejects a call or cannot be reached.
type ProviderError struct {
	Operation  string
	StatusCode string
	HTTPStatus int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != "" {
		return fmt.Sprintf("provider %s failed (status %s): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.Operation, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return ErrProvider
}

// IsRetryable reports whether err is a transient failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockAcquisition)
}
