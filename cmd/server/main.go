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

	"github.com/damon-houk/wex-purchase-conversion/internal/application/service"
	"github.com/damon-houk/wex-purchase-conversion/internal/config"
	"github.com/damon-houk/wex-purchase-conversion/internal/domain/repository"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/api"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/db"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/handler"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/metrics"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}

	log := logger.NewLogrusLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Fatal("Server stopped with error", map[string]interface{}{"error": err.Error()})
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	log.Info("Starting purchase conversion service", map[string]interface{}{
		"store": cfg.StoreDriver,
		"port":  cfg.Port,
	})

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	rates := api.NewTreasuryAPIClient(cfg.TreasuryBaseURL, &http.Client{Timeout: cfg.TreasuryTimeout}, log)
	purchaseService := service.NewPurchaseService(repo, rates, log, m)

	lim, closeLimiter, err := openLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := handler.NewRouter(handler.NewPurchaseHandler(purchaseService, log), log, m, lim)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down", map[string]interface{}{"timeout": cfg.ShutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("Server stopped", nil)
	return nil
}

// openStore opens the configured purchase store and returns a func releasing it.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.PurchaseRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return db.NewPostgresPurchaseRepository(pool), pool.Close, nil

	default:
		badgerDB, err := db.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		repo, err := db.NewBadgerPurchaseRepository(badgerDB)
		if err != nil {
			badgerDB.Close()
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Error("Error releasing purchase sequence", map[string]interface{}{"error": err.Error()})
			}
			if err := badgerDB.Close(); err != nil {
				log.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
			}
		}, nil
	}
}

// openLimiter builds the request limiter, backed by Redis when REDIS_URL is set.
// A nil limiter means limiting is disabled.
func openLimiter(ctx context.Context, cfg *config.Config, log logger.Logger) (*limiter.Limiter, func(), error) {
	if cfg.RateLimit == "" {
		log.Info("Rate limiting disabled", nil)
		return nil, func() {}, nil
	}

	if cfg.RedisURL == "" {
		lim, err := middleware.NewLimiter(cfg.RateLimit, nil)
		return lim, func() {}, err
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	lim, err := middleware.NewLimiter(cfg.RateLimit, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return lim, func() { client.Close() }, nil
}
