package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/nimbusdesk/inventory-service/contracts"
	accountshandler "github.com/nimbusdesk/inventory-service/domains/accounts/be/handler"
	accountsrepo "github.com/nimbusdesk/inventory-service/domains/accounts/be/repo"
	accountsservice "github.com/nimbusdesk/inventory-service/domains/accounts/be/service"
	inventoryhandler "github.com/nimbusdesk/inventory-service/domains/inventory/be/handler"
	inventoryrepo "github.com/nimbusdesk/inventory-service/domains/inventory/be/repo"
	inventoryservice "github.com/nimbusdesk/inventory-service/domains/inventory/be/service"
	subscriptionshandler "github.com/nimbusdesk/inventory-service/domains/subscriptions/be/handler"
	subscriptionsrepo "github.com/nimbusdesk/inventory-service/domains/subscriptions/be/repo"
	subscriptionsservice "github.com/nimbusdesk/inventory-service/domains/subscriptions/be/service"
	"github.com/nimbusdesk/inventory-service/platform/go/clock"
	platformlogging "github.com/nimbusdesk/inventory-service/platform/go/logging"
	platformmiddleware "github.com/nimbusdesk/inventory-service/platform/go/middleware"
	"github.com/nimbusdesk/inventory-service/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "inventory-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if err := persistence.BootstrapSchema(ctx, pool); err != nil {
		logger.Fatal("bootstrap database schema", zap.Error(err))
	}

	poolStore, err := persistence.NewPoolStore(ctx, pool)
	if err != nil {
		logger.Fatal("init pool store", zap.Error(err))
	}
	subscriptionStore, err := persistence.NewSubscriptionStore(ctx, pool)
	if err != nil {
		logger.Fatal("init subscription store", zap.Error(err))
	}
	accountStore, err := persistence.NewAccountStore(ctx, pool)
	if err != nil {
		logger.Fatal("init account store", zap.Error(err))
	}

	systemClock := clock.System()

	inventoryService := inventoryservice.New(inventoryrepo.NewPostgresRepository(poolStore), systemClock)
	inventoryHTTPHandler := inventoryhandler.New(inventoryService, logger)

	subscriptionService := subscriptionsservice.New(subscriptionsrepo.NewPostgresRepository(subscriptionStore))
	subscriptionHTTPHandler := subscriptionshandler.New(subscriptionService, logger)

	accountService := accountsservice.New(accountsrepo.NewPostgresRepository(accountStore), systemClock)
	accountHTTPHandler := accountshandler.New(accountService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(mustNewSpecValidator(logger))
	inventoryHTTPHandler.Routes(apiRouter)
	subscriptionHTTPHandler.Routes(apiRouter)
	accountHTTPHandler.Routes(apiRouter)

	rootRouter.Mount("/api/v1", apiRouter)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runSweeper(sweepCtx, logger, cfg.SweepInterval, inventoryService, accountService)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting inventory api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runSweeper drives the time-derived lifecycle transitions: pools to overdue or
// expired, accounts to expired. Both sweeps are idempotent, so an extra tick
// is harmless. An immediate run catches anything that expired while the
// service was down.
func runSweeper(ctx context.Context, logger *zap.Logger, interval time.Duration, pools inventoryservice.Service, accounts accountsservice.Service) {
	sweep := func() {
		poolCount, err := pools.RefreshStatuses(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("pool status sweep failed", zap.Error(err))
		} else if poolCount > 0 {
			logger.Info("pool status sweep", zap.Int64("transitioned", poolCount))
		}

		accountCount, err := accounts.RefreshStatuses(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("account status sweep failed", zap.Error(err))
		} else if accountCount > 0 {
			logger.Info("account status sweep", zap.Int64("transitioned", accountCount))
		}
	}

	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// mustNewSpecValidator loads the embedded OpenAPI document and builds
// oapi-codegen validator middleware so every request is checked against the
// contract before it reaches a handler.
func mustNewSpecValidator(logger *zap.Logger) func(http.Handler) http.Handler {
	loader := openapi3.NewLoader()

	spec, err := loader.LoadFromData(contracts.InventoryYAML)
	if err != nil {
		logger.Fatal("load openapi contract", zap.Error(err))
	}
	if err := spec.Validate(loader.Context); err != nil {
		logger.Fatal("validate openapi contract", zap.Error(err))
	}

	return oapimiddleware.OapiRequestValidator(spec)
}
