package domain

import (
	"time"
)

// TransactionStatus is the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusSuccessful TransactionStatus = "SUCCESSFUL"
	TransactionStatusFailed     TransactionStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccessful || s == TransactionStatusFailed
}

// CanTransitionTo reports whether s -> next is a legal transition.
// Only PENDING may move, and only to a terminal state.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionStatusPending && next.IsTerminal()
}

// TransactionType is the direction of a balance movement.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// SignedAmount returns amount with the sign the type applies to a balance.
func (t TransactionType) SignedAmount(amount int64) int64 {
	if t == TransactionTypeDebit {
		return -amount
	}
	return amount
}

// LedgerTransaction records one balance-affecting event.
// ReferenceNumber is the idempotency key and is unique across all transactions.
type LedgerTransaction struct {
	ID                   string
	AccountNumber        string
	Amount               int64
	Fee                  int64
	Tax                  int64
	Status               TransactionStatus
	Type                 TransactionType
	ReferenceNumber      string
	TransactionReference string
	TransactionID        string
	BalanceBefore        int64
	BalanceAfter         int64
	Currency             string
	ReversalID           *string
	Narration            string
	FailureReason        string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

// NewPendingTransaction builds a PENDING transaction against the current balance
// of account, with BalanceAfter computed from the transaction type.
func NewPendingTransaction(id string, account *LedgerAccount, txType TransactionType, amount int64, reference string, now time.Time) *LedgerTransaction {
	balanceAfter := account.ApplyCredit(amount)
	if txType == TransactionTypeDebit {
		balanceAfter = account.ApplyDebit(amount)
	}
	return &LedgerTransaction{
		ID:                   id,
		AccountNumber:        account.AccountNumber,
		Amount:               amount,
		Status:               TransactionStatusPending,
		Type:                 txType,
		ReferenceNumber:      reference,
		TransactionReference: reference,
		BalanceBefore:        account.AvailableBalance,
		BalanceAfter:         balanceAfter,
		Currency:             account.Currency,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Validate checks amount and reference before persistence.
func (t *LedgerTransaction) Validate() error {
	if t.Amount <= 0 || t.Fee < 0 || t.Tax < 0 {
		return ErrInvalidAmount
	}
	if t.ReferenceNumber == "" {
		return ErrInvalidReference
	}
	if t.Type != TransactionTypeCredit && t.Type != TransactionTypeDebit {
		return ErrInvalidTransactionType
	}
	return nil
}

// Delta is the signed amount this transaction applies to its account balance.
func (t *LedgerTransaction) Delta() int64 {
	return t.Type.SignedAmount(t.Amount)
}

// BalancesConsistent reports whether BalanceAfter follows from BalanceBefore.
func (t *LedgerTransaction) BalancesConsistent() bool {
	return t.BalanceAfter == t.BalanceBefore+t.Delta()
}

// Settlement carries the terminal state written for a PENDING transaction.
type Settlement struct {
	Status        TransactionStatus
	BalanceBefore int64
	BalanceAfter  int64
	TransactionID string
	FailureReason string
	SettledAt     time.Time
}
