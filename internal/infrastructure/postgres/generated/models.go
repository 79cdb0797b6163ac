package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type LedgerAccount struct {
	ID               string             `json:"id"`
	AccountNumber    string             `json:"account_number"`
	AccountName      string             `json:"account_name"`
	Email            string             `json:"email"`
	PhoneNumber      string             `json:"phone_number"`
	Currency         string             `json:"currency"`
	AvailableBalance int64              `json:"available_balance"`
	OpeningBalance   int64              `json:"opening_balance"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
	DeletedAt        pgtype.Timestamptz `json:"deleted_at"`
}

type LedgerTransaction struct {
	ID                   string             `json:"id"`
	AccountNumber        string             `json:"account_number"`
	Amount               int64              `json:"amount"`
	Fee                  int64              `json:"fee"`
	Tax                  int64              `json:"tax"`
	Status               string             `json:"status"`
	TransactionType      string             `json:"transaction_type"`
	ReferenceNumber      string             `json:"reference_number"`
	TransactionReference string             `json:"transaction_reference"`
	TransactionID        string             `json:"transaction_id"`
	BalanceBefore        int64              `json:"balance_before"`
	BalanceAfter         int64              `json:"balance_after"`
	Currency             string             `json:"currency"`
	ReversalID           pgtype.Text        `json:"reversal_id"`
	Narration            string             `json:"narration"`
	FailureReason        string             `json:"failure_reason"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
	DeletedAt            pgtype.Timestamptz `json:"deleted_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}
