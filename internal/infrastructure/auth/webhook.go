package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/signing"
)

// Rejection reasons reported to the RejectionObserver.
const (
	ReasonMalformedHeader = "malformed_header"
	ReasonBadCredentials  = "bad_credentials"
	ReasonHashMismatch    = "hash_mismatch"
)

// FundingNotification is the provider's callback for money received into a
// virtual account. Amounts are major-unit strings and are hashed verbatim.
type FundingNotification struct {
	StatusCode                    string `json:"statusCode"`
	AccountNumber                 string `json:"accountNumber"`
	AccountName                   string `json:"accountName"`
	Amount                        string `json:"amount"`
	ClearingFeeAmount             string `json:"clearingFeeAmount"`
	FinancialIdentificationNumber string `json:"financialIdentificationNumber"`
	TransactionReference          string `json:"transactionReference"`
	SessionID                     string `json:"sessionId"`
	SourceAccountNumber           string `json:"sourceAccountNumber"`
	SourceAccountName             string `json:"sourceAccountName"`
	SourceBankName                string `json:"sourceBankName"`
	Narration                     string `json:"narration"`
	Hash                          string `json:"hash"`
}

// IdempotencyReference is the reference number a notification is credited under.
// Replays of the same notification always map to the same reference.
func (n *FundingNotification) IdempotencyReference() string {
	switch {
	case n.TransactionReference != "":
		return n.TransactionReference
	case n.SessionID != "":
		return n.SessionID
	default:
		return "WH-" + strings.ToLower(n.Hash)
	}
}

// RejectionObserver counts rejected notifications.
type RejectionObserver interface {
	ObserveWebhookRejection(reason string)
}

// WebhookConfig holds the shared secrets used to authenticate callbacks.
type WebhookConfig struct {
	Username   string
	Password   string
	HashSecret string
	// Strict requires both username and password to match.
	Strict bool
}

// WebhookVerifier authenticates funding notifications.
type WebhookVerifier struct {
	cfg      WebhookConfig
	observer RejectionObserver
	logger   zerolog.Logger
}

// NewWebhookVerifier creates a verifier. observer may be nil.
func NewWebhookVerifier(cfg WebhookConfig, observer RejectionObserver, logger zerolog.Logger) *WebhookVerifier {
	return &WebhookVerifier{
		cfg:      cfg,
		observer: observer,
		logger:   logger.With().Str("component", "webhook_verifier").Logger(),
	}
}

// Verify checks the Authorization header and then the payload hash.
// Every failure wraps domain.ErrWebhookAuth.
func (v *WebhookVerifier) Verify(authorization string, n *FundingNotification) error {
	if err := v.Authenticate(authorization); err != nil {
		return err
	}
	return v.VerifyHash(n)
}

// Authenticate checks a "Basic <base64(user:pass)>" header.
//
// Without Strict, a header passes when either the username or the password
// matches; every such partial match is logged.
func (v *WebhookVerifier) Authenticate(authorization string) error {
	username, password, ok := parseBasic(authorization)
	if !ok {
		return v.reject(ReasonMalformedHeader)
	}

	userOK := equalFold(username, v.cfg.Username)
	passOK := equalFold(password, v.cfg.Password)

	if userOK && passOK {
		return nil
	}
	if !v.cfg.Strict && (userOK || passOK) {
		v.logger.Warn().
			Bool("username_matched", userOK).
			Bool("password_matched", passOK).
			Msg("webhook accepted on partial credential match")
		return nil
	}
	return v.reject(ReasonBadCredentials)
}

// VerifyHash recomputes the notification digest and compares it to n.Hash.
func (v *WebhookVerifier) VerifyHash(n *FundingNotification) error {
	expected := signing.WebhookHash(n.StatusCode, n.AccountNumber, n.Amount, n.ClearingFeeAmount, v.cfg.HashSecret)
	if n.Hash == "" || !signing.Equal(expected, n.Hash) {
		v.logger.Warn().
			Str("account_number", n.AccountNumber).
			Str("amount", n.Amount).
			Msg("webhook hash mismatch")
		return v.reject(ReasonHashMismatch)
	}
	return nil
}

func (v *WebhookVerifier) reject(reason string) error {
	if v.observer != nil {
		v.observer.ObserveWebhookRejection(reason)
	}
	return fmt.Errorf("%w: %s", domain.ErrWebhookAuth, reason)
}

func parseBasic(header string) (username, password string, ok bool) {
	scheme, encoded, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}

// equalFold compares case-insensitively in constant time. An empty expected
// value never matches.
func equalFold(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(got)), []byte(strings.ToLower(want))) == 1
}
