package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/famledger/internal/adapter/http"
	"github.com/iho/famledger/internal/adapter/http/handler"
	"github.com/iho/famledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/famledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/famledger/internal/adapter/repository/redis"
	"github.com/iho/famledger/internal/infrastructure/auth"
	"github.com/iho/famledger/internal/infrastructure/config"
	"github.com/iho/famledger/internal/infrastructure/eventpublisher"
	"github.com/iho/famledger/internal/infrastructure/logger"
	"github.com/iho/famledger/internal/infrastructure/metrics"
	"github.com/iho/famledger/internal/infrastructure/postgres"
	"github.com/iho/famledger/internal/infrastructure/postgres/generated"
	"github.com/iho/famledger/internal/infrastructure/redis"
	"github.com/iho/famledger/internal/usecase"
)

const (
	tokenTTL            = 24 * time.Hour
	limiterIdleTimeout  = 10 * time.Minute
	limiterSweepTimeout = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("server exited with error")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

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
	logger.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	logger.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	accountRepo := postgresRepo.NewAccountRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	balanceRepo := postgresRepo.NewBalanceRepository(pool)

	idempotencyStore, err := newIdempotencyStore(cfg.IdempotencyBackend, pool, redisClient, logger)
	if err != nil {
		return err
	}

	// Use cases
	txManager := postgresRepo.NewTxManager(pool, cfg.LedgerLockTimeout)
	retrier := postgresRepo.NewRetrier(postgresRepo.RetrierConfig{
		MaxRetries:      cfg.LedgerMaxRetries,
		InitialInterval: cfg.LedgerRetryInitialInterval,
		MaxInterval:     cfg.LedgerRetryMaxInterval,
		Metrics:         m,
		Logger:          logger,
	})
	processor := usecase.NewLedgerProcessor(usecase.ProcessorConfig{
		TxManager:    txManager,
		Accounts:     accountRepo,
		Transactions: postgresRepo.NewTransactionRepository(pool),
		Entries:      postgresRepo.NewEntryRepository(pool),
		Balances:     balanceRepo,
		Outbox:       outboxRepo,
		Retrier:      retrier,
		IDGen:        postgresRepo.NewULIDGenerator(),
		Metrics:      m,
		Logger:       logger,
		TxTimeout:    cfg.LedgerTxTimeout,
	})
	commands := usecase.NewCommandService(processor, idempotencyStore, cfg.IdempotencyTTL, m, logger)
	balances := usecase.NewBalanceCalculator(usecase.BalanceCalculatorConfig{
		TxManager: txManager,
		Retrier:   retrier,
		Accounts:  accountRepo,
		Balances:  balanceRepo,
		Cache:     redisRepo.NewCache(redisClient),
		CacheTTL:  cfg.BalanceCacheTTL,
		Metrics:   m,
		Logger:    logger,
	})

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	outbox := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Metrics:    m,
		Logger:     logger,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})
	janitor := usecase.NewJanitor(usecase.CleanupConfig{
		Store:    idempotencyStore,
		Metrics:  m,
		Logger:   logger,
		Interval: cfg.IdempotencyCleanupInterval,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)

	routerCfg := httpAdapter.RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(commands),
		TransferHandler:    handler.NewTransferHandler(commands),
		AccountHandler:     handler.NewAccountHandler(commands, balances),
		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pool,
			"redis":    redisPinger(redisClient),
		}),
		Logger:             logger,
		Metrics:            m,
		MetricsHandler:     promhttp.Handler(),
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, tokenTTL)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return ignoreCanceled(outbox.Start(gctx)) })
	g.Go(func() error { return ignoreCanceled(janitor.Start(gctx)) })
	g.Go(func() error {
		sweepLimiters(gctx, limiter, limiterSweepTimeout, limiterIdleTimeout)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}

// newIdempotencyStore picks the idempotency backend named by the configuration.
func newIdempotencyStore(backend string, db generated.DBTX, client *goredis.Client, logger zerolog.Logger) (usecase.IdempotencyStore, error) {
	switch backend {
	case config.IdempotencyBackendPostgres:
		return postgresRepo.NewIdempotencyStore(db), nil
	case config.IdempotencyBackendRedis:
		return redisRepo.NewIdempotencyStore(client), nil
	case config.IdempotencyBackendLayered:
		return usecase.NewLayeredIdempotencyStore(
			redisRepo.NewIdempotencyStore(client),
			postgresRepo.NewIdempotencyStore(db),
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}

// newPublisher returns the outbox sink and a function releasing it.
func newPublisher(cfg *config.Config, logger zerolog.Logger) (eventpublisher.Publisher, func()) {
	if !cfg.KafkaEnabled() {
		logger.Warn().Msg("no kafka brokers configured, outbox events are only logged")
		return eventpublisher.NewLogPublisher(logger), func() {}
	}

	kafka := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	return kafka, func() {
		if err := kafka.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close kafka writer")
		}
	}
}

func sweepLimiters(ctx context.Context, limiter *middleware.RateLimiter, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.CleanupLimiters(idle)
		}
	}
}

func redisPinger(client *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
