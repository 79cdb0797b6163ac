package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/vaultledger/internal/adapter/http/dto"
	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

type balanceServiceStub struct {
	withdrawFn func(ctx context.Context, input usecase.WithdrawInput) (*domain.LedgerTransaction, error)
	transferFn func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
	creditFn   func(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error)
	getFn      func(ctx context.Context, reference string) (*domain.LedgerTransaction, error)
	listFn     func(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error)
}

func (s *balanceServiceStub) Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.LedgerTransaction, error) {
	return s.withdrawFn(ctx, input)
}

func (s *balanceServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
	return s.transferFn(ctx, input)
}

func (s *balanceServiceStub) Credit(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
	return s.creditFn(ctx, input)
}

func (s *balanceServiceStub) GetTransaction(ctx context.Context, reference string) (*domain.LedgerTransaction, error) {
	return s.getFn(ctx, reference)
}

func (s *balanceServiceStub) ListTransactions(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	return s.listFn(ctx, accountNumber, limit, offset)
}

const withdrawalBody = `{
	"account_number":"9900000001",
	"amount":"250.75",
	"reference":"WD-1",
	"destination_account":"0123456789",
	"destination_bank_code":"058",
	"destination_name":"Ada Obi"
}`

func TestTransactionHandler_Withdraw_Success(t *testing.T) {
	var captured usecase.WithdrawInput
	handler := NewTransactionHandler(&balanceServiceStub{
		withdrawFn: func(ctx context.Context, input usecase.WithdrawInput) (*domain.LedgerTransaction, error) {
			captured = input
			return &domain.LedgerTransaction{
				AccountNumber:   input.AccountNumber,
				Type:            domain.TransactionTypeDebit,
				Status:          domain.TransactionStatusSuccessful,
				Amount:          input.Amount,
				BalanceBefore:   100000,
				BalanceAfter:    100000 - input.Amount,
				ReferenceNumber: input.Reference,
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Withdraw(rec, httptest.NewRequest(http.MethodPost, "/withdrawals", bytes.NewBufferString(withdrawalBody)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Amount != 25075 || captured.DestinationBankCode != "058" {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(domain.TransactionStatusSuccessful) || resp.BalanceAfter.String() != "749.25" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestTransactionHandler_Withdraw_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"duplicate reference", domain.ErrDuplicateReference, http.StatusConflict},
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"provider declined", &domain.ProviderError{Operation: "transfer", StatusCode: "51", Message: "insufficient wallet"}, http.StatusBadGateway},
		{"account busy", domain.ErrLockAcquisition, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(&balanceServiceStub{
				withdrawFn: func(ctx context.Context, input usecase.WithdrawInput) (*domain.LedgerTransaction, error) {
					return nil, tt.err
				},
			})

			rec := httptest.NewRecorder()
			handler.Withdraw(rec, httptest.NewRequest(http.MethodPost, "/withdrawals", bytes.NewBufferString(withdrawalBody)))

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestTransactionHandler_Withdraw_RejectsBadAmounts(t *testing.T) {
	for _, amount := range []string{`"0"`, `"-5.00"`, `"1.001"`} {
		t.Run(amount, func(t *testing.T) {
			handler := NewTransactionHandler(&balanceServiceStub{
				withdrawFn: func(ctx context.Context, input usecase.WithdrawInput) (*domain.LedgerTransaction, error) {
					t.Fatal("Withdraw should not be called")
					return nil, nil
				},
			})

			body := `{"account_number":"1","amount":` + amount + `,"reference":"R","destination_account":"0123456789","destination_bank_code":"058"}`
			rec := httptest.NewRecorder()
			handler.Withdraw(rec, httptest.NewRequest(http.MethodPost, "/withdrawals", bytes.NewBufferString(body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestTransactionHandler_Transfer(t *testing.T) {
	handler := NewTransactionHandler(&balanceServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
			if input.Amount != 1000 {
				t.Fatalf("expected 1000 minor units, got %d", input.Amount)
			}
			return &usecase.TransferResult{
				Debit:  &domain.LedgerTransaction{AccountNumber: input.FromAccountNumber, ReferenceNumber: input.Reference},
				Credit: &domain.LedgerTransaction{AccountNumber: input.ToAccountNumber, ReferenceNumber: input.Reference + "-CR"},
			}, nil
		},
	})

	body := `{"from_account_number":"1000000001","to_account_number":"1000000002","amount":"10","reference":"TR-1"}`
	rec := httptest.NewRecorder()
	handler.Transfer(rec, httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Debit.AccountNumber != "1000000001" || resp.Credit.AccountNumber != "1000000002" {
		t.Fatalf("unexpected legs %+v / %+v", resp.Debit, resp.Credit)
	}
}

func TestTransactionHandler_Transfer_SameAccountRejected(t *testing.T) {
	handler := NewTransactionHandler(&balanceServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
			t.Fatal("Transfer should not be called")
			return nil, nil
		},
	})

	body := `{"from_account_number":"1000000001","to_account_number":"1000000001","amount":"10","reference":"TR-1"}`
	rec := httptest.NewRecorder()
	handler.Transfer(rec, httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get(t *testing.T) {
	handler := NewTransactionHandler(&balanceServiceStub{
		getFn: func(ctx context.Context, reference string) (*domain.LedgerTransaction, error) {
			if reference == "missing" {
				return nil, domain.ErrTransactionNotFound
			}
			return &domain.LedgerTransaction{ReferenceNumber: reference}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Get(rec, setChiURLParam(httptest.NewRequest(http.MethodGet, "/transactions/WD-1", nil), "reference", "WD-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Get(rec, setChiURLParam(httptest.NewRequest(http.MethodGet, "/transactions/missing", nil), "reference", "missing"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTransactionHandler_ListByAccount(t *testing.T) {
	handler := NewTransactionHandler(&balanceServiceStub{
		listFn: func(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error) {
			if accountNumber != "9900000001" || limit != usecase.DefaultListLimit || offset != 0 {
				t.Fatalf("unexpected arguments %s %d %d", accountNumber, limit, offset)
			}
			return []*domain.LedgerTransaction{{ReferenceNumber: "A"}, {ReferenceNumber: "B"}}, nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/9900000001/transactions", nil), "accountNumber", "9900000001")
	rec := httptest.NewRecorder()
	handler.ListByAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(resp))
	}
}
