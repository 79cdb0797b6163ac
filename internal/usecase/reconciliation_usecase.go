package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/domain"
)

// ReconciliationUseCase compares tracked balances with the provider and with
// the transaction history.
type ReconciliationUseCase struct {
	accountRepo LedgerAccountRepository
	txnRepo     LedgerTransactionRepository
	provider    ProviderClient
	cache       Cache
	cacheTTL    time.Duration
	observer    ReconciliationObserver
	logger      zerolog.Logger
}

// ReconciliationObserver receives funding and drift figures as they are computed.
type ReconciliationObserver interface {
	ObserveFundingPosition(providerBalance, trackedBalance int64)
	ObserveDiscrepancies(count int)
}

// NewReconciliationUseCase creates a new reconciliation use case.
// cache may be nil, in which case every call asks the provider.
func NewReconciliationUseCase(
	accountRepo LedgerAccountRepository,
	txnRepo LedgerTransactionRepository,
	provider ProviderClient,
	cache Cache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		provider:    provider,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "reconciliation").Logger(),
	}
}

// WithObserver sets the observer notified of each computed position.
func (uc *ReconciliationUseCase) WithObserver(observer ReconciliationObserver) *ReconciliationUseCase {
	uc.observer = observer
	return uc
}

// DashboardAnalytics is the provider-vs-ledger funding position.
type DashboardAnalytics struct {
	ProviderBalance     int64
	TotalTrackedBalance int64
	Difference          int64
	NeedsTopUp          bool
	TopUpAmount         int64
	ProviderBalanceAge  time.Duration
	GeneratedAt         time.Time
}

// GetDashboardAnalytics reports whether the provider wallet covers every
// tracked balance. It takes no locks and may be slightly stale.
func (uc *ReconciliationUseCase) GetDashboardAnalytics(ctx context.Context) (*DashboardAnalytics, error) {
	providerBalance, age, err := uc.providerBalance(ctx)
	if err != nil {
		return nil, err
	}

	tracked, err := uc.accountRepo.SumAvailableBalance(ctx)
	if err != nil {
		return nil, err
	}

	analytics := &DashboardAnalytics{
		ProviderBalance:     providerBalance,
		TotalTrackedBalance: tracked,
		Difference:          providerBalance - tracked,
		NeedsTopUp:          providerBalance < tracked,
		ProviderBalanceAge:  age,
		GeneratedAt:         time.Now().UTC(),
	}
	if analytics.NeedsTopUp {
		analytics.TopUpAmount = tracked - providerBalance
	}

	if uc.observer != nil {
		uc.observer.ObserveFundingPosition(providerBalance, tracked)
	}

	return analytics, nil
}

type cachedBalance struct {
	amount    int64
	fetchedAt time.Time
}

func (uc *ReconciliationUseCase) providerBalance(ctx context.Context) (int64, time.Duration, error) {
	if uc.cache != nil && uc.cacheTTL > 0 {
		if raw, err := uc.cache.Get(ctx, providerBalanceCacheKey); err == nil {
			if cached, ok := decodeCachedBalance(raw); ok {
				return cached.amount, time.Since(cached.fetchedAt), nil
			}
		}
	}

	balance, err := uc.provider.WalletBalance(ctx)
	if err != nil {
		return 0, 0, err
	}

	if uc.cache != nil && uc.cacheTTL > 0 {
		value := encodeCachedBalance(cachedBalance{amount: balance, fetchedAt: time.Now().UTC()})
		if err := uc.cache.Set(ctx, providerBalanceCacheKey, value, uc.cacheTTL); err != nil {
			uc.logger.Warn().Err(err).Msg("failed to cache provider balance")
		}
	}

	return balance, 0, nil
}

func encodeCachedBalance(b cachedBalance) string {
	return strconv.FormatInt(b.amount, 10) + "@" + strconv.FormatInt(b.fetchedAt.UnixMilli(), 10)
}

func decodeCachedBalance(raw string) (cachedBalance, bool) {
	amountPart, msPart, ok := strings.Cut(raw, "@")
	if !ok {
		return cachedBalance{}, false
	}
	amount, err := strconv.ParseInt(amountPart, 10, 64)
	if err != nil {
		return cachedBalance{}, false
	}
	ms, err := strconv.ParseInt(msPart, 10, 64)
	if err != nil {
		return cachedBalance{}, false
	}
	return cachedBalance{amount: amount, fetchedAt: time.UnixMilli(ms)}, true
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountNumber     string
	OpeningBalance    int64
	TotalCredits      int64
	TotalDebits       int64
	RecordedBalance   int64
	CalculatedBalance int64
	Difference        int64
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount replays SUCCESSFUL transactions from the opening balance
// and compares the result with the stored balance.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountNumber string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByAccountNumber(ctx, accountNumber, domain.IncludeDeleted())
	if err != nil {
		return nil, err
	}

	return uc.reconcile(ctx, account)
}

func (uc *ReconciliationUseCase) reconcile(ctx context.Context, account *domain.LedgerAccount) (*ReconciliationResult, error) {
	credits, debits, err := uc.txnRepo.SumSettled(ctx, account.AccountNumber)
	if err != nil {
		return nil, err
	}

	calculated := account.OpeningBalance + credits - debits

	return &ReconciliationResult{
		AccountNumber:     account.AccountNumber,
		OpeningBalance:    account.OpeningBalance,
		TotalCredits:      credits,
		TotalDebits:       debits,
		RecordedBalance:   account.AvailableBalance,
		CalculatedBalance: calculated,
		Difference:        account.AvailableBalance - calculated,
		IsReconciled:      calculated == account.AvailableBalance,
		LastChecked:       time.Now().UTC(),
	}, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	Analytics          *DashboardAnalytics
	CheckedAt          time.Time
}

// GenerateReconciliationReport reconciles every account, deleted ones included,
// and attaches the provider funding position when the provider is reachable.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for offset := 0; ; offset += MaxListLimit {
		accounts, err := uc.accountRepo.List(ctx, MaxListLimit, offset, domain.IncludeDeleted())
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			result, err := uc.reconcile(ctx, account)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.AccountNumber, err)
			}

			report.TotalAccounts++
			if result.IsReconciled {
				report.ReconciledAccounts++
			} else {
				report.Discrepancies = append(report.Discrepancies, result)
			}
		}

		if len(accounts) < MaxListLimit {
			break
		}
	}

	analytics, err := uc.GetDashboardAnalytics(ctx)
	if err != nil {
		uc.logger.Warn().Err(err).Msg("reconciliation report generated without provider balance")
	} else {
		report.Analytics = analytics
	}

	if uc.observer != nil {
		uc.observer.ObserveDiscrepancies(len(report.Discrepancies))
	}

	for _, d := range report.Discrepancies {
		uc.logger.Error().
			Str("account_number", d.AccountNumber).
			Int64("recorded", d.RecordedBalance).
			Int64("calculated", d.CalculatedBalance).
			Msg("ledger balance does not match transaction history")
	}

	return report, nil
}
