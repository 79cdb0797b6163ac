package domain

import "time"

// Event types
const (
	EventTypeTransactionSucceeded = "ledger.transaction.succeeded"
	EventTypeAccountProvisioned   = "ledger.account.provisioned"
	EventTypeAccountDeactivated   = "ledger.account.deactivated"
)

// Aggregate types
const (
	AggregateTypeTransaction = "ledger_transaction"
	AggregateTypeAccount     = "ledger_account"
)

// OutboxEvent is an event persisted alongside the state change it describes
// and published asynchronously.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewTransactionSucceededEvent describes a committed balance change.
func NewTransactionSucceededEvent(id string, txn *LedgerTransaction, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   txn.ReferenceNumber,
		AggregateType: AggregateTypeTransaction,
		EventType:     EventTypeTransactionSucceeded,
		Payload: map[string]any{
			"reference_number": txn.ReferenceNumber,
			"account_number":   txn.AccountNumber,
			"transaction_type": string(txn.Type),
			"amount":           txn.Amount,
			"fee":              txn.Fee,
			"balance_before":   txn.BalanceBefore,
			"balance_after":    txn.BalanceAfter,
			"currency":         txn.Currency,
		},
		CreatedAt: at,
	}
}

// NewAccountEvent describes a provisioning or deactivation of an account.
func NewAccountEvent(id, eventType string, account *LedgerAccount, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   account.AccountNumber,
		AggregateType: AggregateTypeAccount,
		EventType:     eventType,
		Payload: map[string]any{
			"account_number": account.AccountNumber,
			"account_name":   account.AccountName,
		},
		CreatedAt: at,
	}
}
