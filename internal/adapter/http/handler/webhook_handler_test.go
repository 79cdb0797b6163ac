package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/adapter/http/dto"
	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/auth"
	"github.com/iho/vaultledger/internal/infrastructure/signing"
	"github.com/iho/vaultledger/internal/usecase"
)

const webhookHashSecret = "hook-secret"

func newWebhookHandler(creditFn func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error)) *WebhookHandler {
	verifier := auth.NewWebhookVerifier(auth.WebhookConfig{
		Username:   "provider",
		Password:   "s3cret",
		HashSecret: webhookHashSecret,
		Strict:     true,
	}, nil, zerolog.Nop())
	return NewWebhookHandler(verifier, &balanceServiceStub{creditFn: creditFn}, zerolog.Nop())
}

func fundingRequest(t *testing.T, n auth.FundingNotification, authorization string) *http.Request {
	t.Helper()
	n.Hash = signing.WebhookHash(n.StatusCode, n.AccountNumber, n.Amount, n.ClearingFeeAmount, webhookHashSecret)
	body, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal notification: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/funding", bytes.NewReader(body))
	req.Header.Set("Authorization", authorization)
	return req
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) dto.WebhookAck {
	t.Helper()
	var ack dto.WebhookAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	return ack
}

func TestWebhookHandler_CreditsNetOfClearingFee(t *testing.T) {
	var captured usecase.CreditInput
	handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
		captured = input
		return &domain.LedgerTransaction{Amount: input.Amount, Fee: input.Fee, ReferenceNumber: input.Reference}, nil
	})

	rec := httptest.NewRecorder()
	handler.Funding(rec, fundingRequest(t, auth.FundingNotification{
		StatusCode:           "00",
		AccountNumber:        "9900000001",
		Amount:               "1000.00",
		ClearingFeeAmount:    "10.75",
		TransactionReference: "FT-1",
		SessionID:            "SESSION-1",
	}, basicAuth("provider", "s3cret")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Amount != 98925 || captured.Fee != 1075 {
		t.Fatalf("expected net 98925 fee 1075, got %+v", captured)
	}
	if captured.Reference != "FT-1" || captured.TransactionID != "SESSION-1" {
		t.Fatalf("unexpected identifiers %+v", captured)
	}
	if ack := decodeAck(t, rec); ack.Status != AckCredited || ack.Reference != "FT-1" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestWebhookHandler_DuplicateIsAcknowledged(t *testing.T) {
	handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
		return nil, domain.ErrDuplicateReference
	})

	rec := httptest.NewRecorder()
	handler.Funding(rec, fundingRequest(t, auth.FundingNotification{
		StatusCode:    "00",
		AccountNumber: "9900000001",
		Amount:        "50.00",
		SessionID:     "SESSION-2",
	}, basicAuth("provider", "s3cret")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ack := decodeAck(t, rec); ack.Status != AckDuplicate || ack.Reference != "SESSION-2" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestWebhookHandler_FundingScenario(t *testing.T) {
	var calls []usecase.CreditInput
	handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
		for _, prev := range calls {
			if prev.Reference == input.Reference {
				return nil, domain.ErrDuplicateReference
			}
		}
		calls = append(calls, input)
		return &domain.LedgerTransaction{Amount: input.Amount, Fee: input.Fee, ReferenceNumber: input.Reference}, nil
	})
	notification := auth.FundingNotification{
		StatusCode:           "0",
		AccountNumber:        "ACC1",
		Amount:               "1000.00",
		ClearingFeeAmount:    "10.00",
		TransactionReference: "FT-0",
	}

	rec := httptest.NewRecorder()
	handler.Funding(rec, fundingRequest(t, notification, basicAuth("provider", "s3cret")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ack := decodeAck(t, rec); ack.Status != AckCredited {
		t.Fatalf("expected credited ack, got %+v", ack)
	}
	if len(calls) != 1 || calls[0].AccountNumber != "ACC1" || calls[0].Amount != 99000 || calls[0].Fee != 1000 {
		t.Fatalf("expected one 99000 credit to ACC1, got %+v", calls)
	}

	replay := httptest.NewRecorder()
	handler.Funding(replay, fundingRequest(t, notification, basicAuth("provider", "s3cret")))
	if replay.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", replay.Code)
	}
	if ack := decodeAck(t, replay); ack.Status != AckDuplicate {
		t.Fatalf("expected duplicate ack on replay, got %+v", ack)
	}
	if len(calls) != 1 {
		t.Fatalf("replay credited again: %+v", calls)
	}
}

func TestWebhookHandler_OversizedAmountRejected(t *testing.T) {
	handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
		t.Fatalf("Credit should not be called, got %+v", input)
		return nil, nil
	})

	rec := httptest.NewRecorder()
	handler.Funding(rec, fundingRequest(t, auth.FundingNotification{
		StatusCode:           "0",
		AccountNumber:        "ACC1",
		Amount:               "184467440737096516.16",
		TransactionReference: "FT-7",
	}, basicAuth("provider", "s3cret")))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookHandler_Rejections(t *testing.T) {
	notification := auth.FundingNotification{
		StatusCode:           "00",
		AccountNumber:        "9900000001",
		Amount:               "50.00",
		TransactionReference: "FT-4",
	}

	t.Run("bad credentials", func(t *testing.T) {
		handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
			t.Fatal("Credit should not be called")
			return nil, nil
		})
		rec := httptest.NewRecorder()
		handler.Funding(rec, fundingRequest(t, notification, basicAuth("provider", "wrong")))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("tampered amount", func(t *testing.T) {
		handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
			t.Fatal("Credit should not be called")
			return nil, nil
		})
		req := fundingRequest(t, notification, basicAuth("provider", "s3cret"))

		var n auth.FundingNotification
		if err := json.NewDecoder(req.Body).Decode(&n); err != nil {
			t.Fatalf("decode: %v", err)
		}
		n.Amount = "5000.00"
		body, _ := json.Marshal(n)
		req = httptest.NewRequest(http.MethodPost, "/webhooks/funding", bytes.NewReader(body))
		req.Header.Set("Authorization", basicAuth("provider", "s3cret"))

		rec := httptest.NewRecorder()
		handler.Funding(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		handler := newWebhookHandler(nil)
		rec := httptest.NewRecorder()
		handler.Funding(rec, httptest.NewRequest(http.MethodPost, "/webhooks/funding", bytes.NewBufferString("{")))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestWebhookHandler_FeeNotBelowAmount(t *testing.T) {
	handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
		t.Fatal("Credit should not be called")
		return nil, nil
	})

	rec := httptest.NewRecorder()
	handler.Funding(rec, fundingRequest(t, auth.FundingNotification{
		StatusCode:           "00",
		AccountNumber:        "9900000001",
		Amount:               "10.00",
		ClearingFeeAmount:    "10.00",
		TransactionReference: "FT-5",
	}, basicAuth("provider", "s3cret")))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestWebhookHandler_UnknownAccount(t *testing.T) {
	handler := newWebhookHandler(func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
		return nil, domain.ErrAccountNotFound
	})

	rec := httptest.NewRecorder()
	handler.Funding(rec, fundingRequest(t, auth.FundingNotification{
		StatusCode:           "00",
		AccountNumber:        "1111111111",
		Amount:               "10.00",
		TransactionReference: "FT-6",
	}, basicAuth("provider", "s3cret")))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
