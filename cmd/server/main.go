package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/vaultledger/internal/adapter/http"
	"github.com/iho/vaultledger/internal/adapter/http/handler"
	"github.com/iho/vaultledger/internal/adapter/http/middleware"
	"github.com/iho/vaultledger/internal/adapter/provider"
	postgresRepo "github.com/iho/vaultledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/vaultledger/internal/adapter/repository/redis"
	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/auth"
	"github.com/iho/vaultledger/internal/infrastructure/config"
	"github.com/iho/vaultledger/internal/infrastructure/eventpublisher"
	"github.com/iho/vaultledger/internal/infrastructure/logger"
	"github.com/iho/vaultledger/internal/infrastructure/metrics"
	"github.com/iho/vaultledger/internal/infrastructure/postgres"
	"github.com/iho/vaultledger/internal/infrastructure/redis"
	"github.com/iho/vaultledger/internal/usecase"
)

const (
	stalePendingBatch   = 500
	rateLimitIdle       = 10 * time.Minute
	rateLimitEvictEvery = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "vaultledger",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return err
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewLedgerAccountRepository(pool)
	txnRepo := postgresRepo.NewLedgerTransactionRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	locker := redisRepo.NewLocker(rdb)

	providerClient := provider.NewClient(providerConfig(cfg), m, log)
	lockOpts := lockOptions(cfg)

	// Use cases
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, providerClient, locker, idGen, log).
		WithLockOptions(lockOpts)
	balanceUC := usecase.NewBalanceUseCase(usecase.BalanceDeps{
		TxManager:   txManager,
		Accounts:    accountRepo,
		Transaction: txnRepo,
		Outbox:      outboxRepo,
		Locker:      locker,
		Provider:    providerClient,
		IDGen:       idGen,
		Retrier:     postgresRepo.NewRetrier(log),
		Observer:    m,
		Logger:      log,
		LockOptions: lockOpts,
	})
	reconciliationUC := usecase.NewReconciliationUseCase(
		accountRepo, txnRepo, providerClient, redisRepo.NewCache(rdb), cfg.ProviderBalanceCacheTTL, log,
	).WithObserver(m)

	verifier := auth.NewWebhookVerifier(auth.WebhookConfig{
		Username:   cfg.WebhookUsername,
		Password:   cfg.WebhookPassword,
		HashSecret: cfg.ProviderHashSecret,
		Strict:     cfg.WebhookStrictCredentials,
	}, m, log)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		TransactionHandler: handler.NewTransactionHandler(balanceUC),
		LedgerHandler:      handler.NewLedgerHandler(reconciliationUC),
		WebhookHandler:     handler.NewWebhookHandler(verifier, balanceUC, log),
		HealthHandler: handler.NewHealthHandler(
			pool,
			handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		),
		Idempotency:     middleware.NewIdempotencyMiddleware(redisRepo.NewIdempotencyStore(rdb), cfg.IdempotencyTTL, log),
		RateLimiter:     limiter,
		MetricsGatherer: prometheus.DefaultGatherer,
		Logger:          log,
	})

	publisher, closer, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Observer:   m,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return relay.Start(gctx)
	})

	g.Go(func() error {
		sweepStalePending(gctx, balanceUC, cfg.StalePendingAfter, cfg.StalePendingInterval, log)
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			evictIdleClients(gctx, limiter, log)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func providerConfig(cfg *config.Config) provider.Config {
	return provider.Config{
		Username:          cfg.ProviderUsername,
		Secret:            cfg.ProviderSecret,
		HashSecret:        cfg.ProviderHashSecret,
		CollectionBaseURL: cfg.ProviderCollectionBaseURL,
		BusinessBaseURL:   cfg.ProviderBusinessBaseURL,
		SourceAccount:     cfg.ProviderSourceAccount,
		Timeout:           cfg.ProviderTimeout,
	}
}

func lockOptions(cfg *config.Config) usecase.LockOptions {
	return usecase.LockOptions{
		TTL:        cfg.LockTTL,
		RetryCount: cfg.LockRetryCount,
		RetryDelay: cfg.LockRetryDelay,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newPublisher picks the outbox relay target named by EVENT_BROKER.
func newPublisher(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, io.Closer, error) {
	switch cfg.EventBroker {
	case "", "log":
		return eventpublisher.NewLogPublisher(log), nopCloser{}, nil
	case "kafka":
		p := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p, nil
	case "nats":
		p, err := eventpublisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to nats: %w", err)
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown EVENT_BROKER %q", cfg.EventBroker)
	}
}

type stalePendingFlagger interface {
	FlagStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.LedgerTransaction, error)
}

// sweepStalePending logs PENDING transactions older than olderThan every interval.
func sweepStalePending(ctx context.Context, uc stalePendingFlagger, olderThan, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := uc.FlagStalePending(ctx, olderThan, stalePendingBatch)
			if err != nil {
				log.Error().Err(err).Msg("stale pending sweep failed")
				continue
			}
			if len(stale) > 0 {
				log.Warn().Int("count", len(stale)).Msg("pending transactions need manual resolution")
			}
		}
	}
}

func evictIdleClients(ctx context.Context, limiter *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(rateLimitEvictEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Evict(rateLimitIdle); n > 0 {
				log.Debug().Int("evicted", n).Msg("rate limiter dropped idle clients")
			}
		}
	}
}
