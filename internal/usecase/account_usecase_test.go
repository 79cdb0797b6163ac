package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
	"github.com/iho/vaultledger/internal/usecase/mocks"
)

func newAccountUseCase(t *testing.T) (*usecase.AccountUseCase, *mocks.MockLedgerAccountRepository, *mocks.MockOutboxRepository, *mocks.MockProviderClient) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLedgerAccountRepository()
	outbox := mocks.NewMockOutboxRepository()
	provider := mocks.NewMockProviderClient(ctrl)

	uc := usecase.NewAccountUseCase(
		mocks.NewMockTransactionManager(),
		repo,
		outbox,
		provider,
		mocks.NewMemoryLocker(),
		mocks.NewMockIDGenerator(),
		zerolog.Nop(),
	)
	return uc, repo, outbox, provider
}

func TestAccountUseCase_ProvisionAccount(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.ProvisionAccountInput
		setupMocks  func(*mocks.MockProviderClient)
		wantNumber  string
		expectError error
	}{
		{
			name:  "provisions at provider then registers",
			input: usecase.ProvisionAccountInput{AccountName: "Ada Obi", Email: "ada@example.com"},
			setupMocks: func(p *mocks.MockProviderClient) {
				p.EXPECT().CreateVirtualAccount(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req usecase.VirtualAccountRequest) (*usecase.VirtualAccount, error) {
						if req.Reference == "" {
							t.Error("expected a provider reference")
						}
						return &usecase.VirtualAccount{AccountNumber: "9900000001", AccountName: "ADA OBI"}, nil
					})
			},
			wantNumber: "9900000001",
		},
		{
			name:       "registers existing provider account without calling provider",
			input:      usecase.ProvisionAccountInput{AccountNumber: "9900000002", AccountName: "Existing"},
			setupMocks: func(*mocks.MockProviderClient) {},
			wantNumber: "9900000002",
		},
		{
			name:        "missing name",
			input:       usecase.ProvisionAccountInput{},
			setupMocks:  func(*mocks.MockProviderClient) {},
			expectError: domain.ErrInvalidAccountName,
		},
		{
			name:  "provider rejects",
			input: usecase.ProvisionAccountInput{AccountName: "Ada"},
			setupMocks: func(p *mocks.MockProviderClient) {
				p.EXPECT().CreateVirtualAccount(gomock.Any(), gomock.Any()).
					Return(nil, &domain.ProviderError{Operation: "create virtual account", Message: "BVN mismatch"})
			},
			expectError: domain.ErrProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, repo, outbox, provider := newAccountUseCase(t)
			tt.setupMocks(provider)

			account, created, err := uc.ProvisionAccount(context.Background(), tt.input)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !created {
				t.Error("expected account to be created")
			}
			if account.AccountNumber != tt.wantNumber {
				t.Errorf("expected account number %q, got %q", tt.wantNumber, account.AccountNumber)
			}
			if repo.Balance(tt.wantNumber) != 0 {
				t.Errorf("expected zero balance")
			}
			if len(outbox.Events()) != 1 {
				t.Errorf("expected one provisioning event, got %d", len(outbox.Events()))
			}
		})
	}
}

func TestAccountUseCase_ProvisionAccount_FindOrCreateNeverOverwrites(t *testing.T) {
	uc, repo, outbox, _ := newAccountUseCase(t)
	repo.Seed(&domain.LedgerAccount{AccountNumber: "ACC1", AccountName: "Original", AvailableBalance: 700})

	account, created, err := uc.ProvisionAccount(context.Background(), usecase.ProvisionAccountInput{
		AccountNumber:  "ACC1",
		AccountName:    "Replacement",
		OpeningBalance: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected existing account to be returned")
	}
	if account.AccountName != "Original" || account.AvailableBalance != 700 {
		t.Errorf("existing account was modified: %+v", account)
	}
	if len(outbox.Events()) != 0 {
		t.Errorf("expected no event for existing account")
	}
}

func TestAccountUseCase_DeactivateAccount(t *testing.T) {
	uc, repo, outbox, provider := newAccountUseCase(t)
	repo.Seed(&domain.LedgerAccount{AccountNumber: "ACC1", AccountName: "Holder"})
	ctx := context.Background()

	provider.EXPECT().DeactivateVirtualAccount(gomock.Any(), "ACC1", gomock.Any()).Return(nil)

	if err := uc.DeactivateAccount(ctx, "ACC1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := uc.GetAccount(ctx, "ACC1"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected deleted account to be hidden, got %v", err)
	}

	account, err := uc.GetAccount(ctx, "ACC1", domain.IncludeDeleted())
	if err != nil {
		t.Fatalf("expected IncludeDeleted lookup to succeed: %v", err)
	}
	if !account.IsDeleted() {
		t.Error("expected DeletedAt to be set")
	}

	events := outbox.Events()
	if len(events) != 1 || events[0].EventType != domain.EventTypeAccountDeactivated {
		t.Errorf("expected deactivation event, got %+v", events)
	}
}

func TestAccountUseCase_DeactivateAccount_ProviderFailureKeepsAccount(t *testing.T) {
	uc, repo, _, provider := newAccountUseCase(t)
	repo.Seed(&domain.LedgerAccount{AccountNumber: "ACC1", AccountName: "Holder"})
	ctx := context.Background()

	provider.EXPECT().DeactivateVirtualAccount(gomock.Any(), "ACC1", gomock.Any()).
		Return(&domain.ProviderError{Operation: "deactivate virtual account", Message: "not found"})

	if err := uc.DeactivateAccount(ctx, "ACC1"); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, err := uc.GetAccount(ctx, "ACC1"); err != nil {
		t.Fatalf("account should remain active: %v", err)
	}
}

func TestAccountUseCase_ListAccounts(t *testing.T) {
	uc, repo, _, _ := newAccountUseCase(t)
	repo.Seed(&domain.LedgerAccount{AccountNumber: "A", AccountName: "a"})
	repo.Seed(&domain.LedgerAccount{AccountNumber: "B", AccountName: "b"})

	accounts, err := uc.ListAccounts(context.Background(), usecase.ListAccountsInput{Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 1 || accounts[0].AccountNumber != "A" {
		t.Errorf("unexpected page: %+v", accounts)
	}

	accounts, err = uc.ListAccounts(context.Background(), usecase.ListAccountsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("expected default limit to return both accounts, got %d", len(accounts))
	}
}
