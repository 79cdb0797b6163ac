package domain

import (
	"time"
)

// LedgerAccount tracks the running balance of one provider-issued account number.
// Balances are integers in the currency's minor unit (kobo for NGN).
type LedgerAccount struct {
	ID               string
	AccountNumber    string
	AccountName      string
	Email            string
	PhoneNumber      string
	Currency         string
	AvailableBalance int64
	OpeningBalance   int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Validate checks the fields required to provision an account.
func (a *LedgerAccount) Validate() error {
	if a.AccountNumber == "" {
		return ErrInvalidAccountNumber
	}
	if a.AccountName == "" {
		return ErrInvalidAccountName
	}
	if a.AvailableBalance < 0 || a.OpeningBalance < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateDebit checks if the account can be debited by amount.
func (a *LedgerAccount) ValidateDebit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > a.AvailableBalance {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns the balance after a debit of amount.
func (a *LedgerAccount) ApplyDebit(amount int64) int64 {
	return a.AvailableBalance - amount
}

// ApplyCredit returns the balance after a credit of amount.
func (a *LedgerAccount) ApplyCredit(amount int64) int64 {
	return a.AvailableBalance + amount
}

// IsDeleted reports whether the account has been soft-deleted.
func (a *LedgerAccount) IsDeleted() bool {
	return a.DeletedAt != nil
}
