package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/vaultledger/internal/adapter/http/middleware"
	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/auth"
	"github.com/iho/vaultledger/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_ReadinessReportsUnhealthyDependency(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.HealthHandler = handler.NewHealthHandler(
			handler.PingFunc(func(ctx context.Context) error { return nil }),
			handler.PingFunc(func(ctx context.Context) error { return context.DeadlineExceeded }),
		)
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected /ready to return 503, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessAPIRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("/api/v1/accounts"); code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", code)
	}
	if code := send("/api/v1/accounts"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", code)
	}
	if code := send("/health"); code != http.StatusOK {
		t.Fatalf("health checks must not be throttled, got %d", code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"account_name":"Ada Obi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_WebhookBypassesIdempotencyStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/funding", strings.NewReader(`{"statusCode":"00"}`))
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-wh")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if store.checkCalled {
		t.Fatalf("webhooks are deduplicated by reference, not by the idempotency store")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected the stub verifier to reject, got %d", rec.Code)
	}
}

func TestNewRouter_ServesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.MetricsGatherer = registry
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "router_test_total 1") {
		t.Fatalf("expected metrics exposition, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_LockContentionSetsRetryAfter(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.TransactionHandler = handler.NewTransactionHandler(&stubBalanceService{
			transferErr: domain.ErrLockAcquisition,
		})
	}))

	body := `{"from_account_number":"1000000001","to_account_number":"1000000002","amount":"10.00","reference":"REF-T"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(body)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.MetricsGatherer = prometheus.NewRegistry()
	}))

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /webhooks/funding",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/{accountNumber}",
		"DELETE /api/v1/accounts/{accountNumber}",
		"GET /api/v1/accounts/{accountNumber}/transactions",
		"GET /api/v1/accounts/{accountNumber}/reconciliation",
		"POST /api/v1/withdrawals",
		"POST /api/v1/transfers",
		"GET /api/v1/transactions/{reference}",
		"GET /api/v1/ledger/analytics",
		"GET /api/v1/ledger/reconciliation",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	ok := handler.PingFunc(func(ctx context.Context) error { return nil })
	balance := &stubBalanceService{}

	cfg := RouterConfig{
		HealthHandler:      handler.NewHealthHandler(ok, ok),
		AccountHandler:     handler.NewAccountHandler(&stubAccountService{}),
		TransactionHandler: handler.NewTransactionHandler(balance),
		LedgerHandler:      handler.NewLedgerHandler(&stubReconciliationService{}),
		WebhookHandler:     handler.NewWebhookHandler(rejectingVerifier{}, balance, zerolog.Nop()),
		Logger:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubAccountService struct{}

func (stubAccountService) ProvisionAccount(ctx context.Context, input usecase.ProvisionAccountInput) (*domain.LedgerAccount, bool, error) {
	return &domain.LedgerAccount{AccountNumber: "9900000001", AccountName: input.AccountName}, true, nil
}

func (stubAccountService) GetAccount(ctx context.Context, accountNumber string, opts ...domain.QueryOption) (*domain.LedgerAccount, error) {
	return &domain.LedgerAccount{AccountNumber: accountNumber}, nil
}

func (stubAccountService) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.LedgerAccount, error) {
	return []*domain.LedgerAccount{}, nil
}

func (stubAccountService) DeactivateAccount(ctx context.Context, accountNumber string) error {
	return nil
}

type stubBalanceService struct {
	transferErr error
}

func (s *stubBalanceService) Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.LedgerTransaction, error) {
	return &domain.LedgerTransaction{ReferenceNumber: input.Reference}, nil
}

func (s *stubBalanceService) Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
	if s.transferErr != nil {
		return nil, s.transferErr
	}
	return &usecase.TransferResult{
		Debit:  &domain.LedgerTransaction{ReferenceNumber: input.Reference},
		Credit: &domain.LedgerTransaction{ReferenceNumber: input.Reference + "-CR"},
	}, nil
}

func (s *stubBalanceService) Credit(ctx context.Context, input usecase.CreditInput) (*domain.LedgerTransaction, error) {
	return &domain.LedgerTransaction{ReferenceNumber: input.Reference}, nil
}

func (s *stubBalanceService) GetTransaction(ctx context.Context, reference string) (*domain.LedgerTransaction, error) {
	return &domain.LedgerTransaction{ReferenceNumber: reference}, nil
}

func (s *stubBalanceService) ListTransactions(ctx context.Context, accountNumber string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	return []*domain.LedgerTransaction{}, nil
}

type stubReconciliationService struct{}

func (stubReconciliationService) GetDashboardAnalytics(ctx context.Context) (*usecase.DashboardAnalytics, error) {
	return &usecase.DashboardAnalytics{}, nil
}

func (stubReconciliationService) ReconcileAccount(ctx context.Context, accountNumber string) (*usecase.ReconciliationResult, error) {
	return &usecase.ReconciliationResult{AccountNumber: accountNumber, IsReconciled: true}, nil
}

func (stubReconciliationService) GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error) {
	return &usecase.ReconciliationReport{}, nil
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(string, *auth.FundingNotification) error {
	return domain.ErrWebhookAuth
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
