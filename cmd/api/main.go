package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/database"
	"clothing-marketplace/internal/events"
	"clothing-marketplace/internal/handler"
	"clothing-marketplace/internal/idempotency"
	"clothing-marketplace/internal/metrics"
	"clothing-marketplace/internal/pincode"
	"clothing-marketplace/internal/repository"
	"clothing-marketplace/internal/router"
	"clothing-marketplace/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting clothing marketplace API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	healthChecks := map[string]handler.Pinger{"postgres": pool}

	// Redis backs Idempotency-Key replay and webhook de-duplication; both are optional.
	var (
		replayer *idempotency.Replayer
		guard    *idempotency.Guard
	)
	if cfg.Redis.Enabled() {
		redisClient, err := idempotency.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		replayer = idempotency.NewReplayer(redisClient, cfg.Redis.IdempotencyTTL)
		guard = idempotency.NewGuard(redisClient, cfg.Webhook.DedupTTL)
		healthChecks["redis"] = redisClient
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis idempotency store enabled")
	} else {
		logger.Info().Msg("redis not configured, idempotency keys and webhook de-duplication disabled")
	}

	// Domain events go to Kafka when brokers are configured
	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka event publishing enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to flush event publisher")
		}
	}()

	// Initialize pincode checker
	checker, err := newPincodeChecker(ctx, cfg.Pincode, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pincode checker: %w", err)
	}
	defer checker.Close()

	m := metrics.New()

	// Initialize repositories
	txCfg := repository.TxConfig{
		AcquireTimeout:   cfg.Database.AcquireTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
		LockTimeout:      cfg.Database.LockTimeout,
	}
	orderRepo := repository.NewOrderRepository(pool, txCfg, logger)
	variantRepo := repository.NewVariantRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	returnRepo := repository.NewReturnRepository(pool, logger)

	// Initialize services
	orderService := service.NewOrderService(orderRepo, variantRepo, addressRepo, checker, publisher, m, nil, logger)
	returnService := service.NewReturnService(returnRepo, orderRepo, variantRepo, publisher, m, nil, logger)
	webhookService := service.NewWebhookService(orderRepo, returnRepo, variantRepo, publisher, m, nil, logger)
	catalogService := service.NewCatalogService(variantRepo, logger)

	sweeper := service.NewCompletionSweeper(orderRepo, publisher, m, nil, cfg.Jobs.CompletionSweepBatch, logger)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx, cfg.Jobs.CompletionSweepInterval)
	}()

	// Initialize router
	mux := router.New(router.Handlers{
		Health:  handler.NewHealthHandler(healthChecks, logger),
		Product: handler.NewProductHandler(catalogService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		Return:  handler.NewReturnHandler(returnService, logger),
		Webhook: handler.NewWebhookHandler(webhookService, guard, cfg.Webhook, logger),
	}, router.Options{
		Auth:           cfg.Auth,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.WriteTimeout,
		Replayer:       replayer,
		Metrics:        m,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Drain in-flight requests before the pool and publisher are closed by the deferred calls
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	cancel()
	<-sweepDone

	return nil
}

// newPincodeChecker loads the serviceable pincode files, from S3 with a local fallback when enabled.
func newPincodeChecker(ctx context.Context, cfg config.PincodeConfig, logger zerolog.Logger) (pincode.Checker, error) {
	fileLoader := pincode.NewFileLoader(logger)
	loader := fileLoader

	if cfg.S3.Enabled {
		s3Loader, err := pincode.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			loader = pincode.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger)
		}
	} else {
		logger.Info().Msg("using local file system for pincode files (S3 disabled)")
	}

	return pincode.NewChecker(ctx, cfg.FilePaths, loader, logger)
}
