package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pharmanet-gr/pharmanet-backend/api/controllers"
	"github.com/pharmanet-gr/pharmanet-backend/api/routes"
	"github.com/pharmanet-gr/pharmanet-backend/internal/backorders"
	"github.com/pharmanet-gr/pharmanet-backend/internal/catalog"
	"github.com/pharmanet-gr/pharmanet-backend/internal/contracts"
	"github.com/pharmanet-gr/pharmanet-backend/internal/inventory"
	"github.com/pharmanet-gr/pharmanet-backend/internal/orders"
	"github.com/pharmanet-gr/pharmanet-backend/internal/shipments"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/config"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/metrics"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/migrate"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	procMetrics := metrics.NewProcurementMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	svcs, err := buildServices(cfg, dbClient, outboxService, procMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, readiness, registry, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, dbClient *db.Client, outboxService *outbox.Service, procMetrics *metrics.ProcurementMetrics) (routes.Services, error) {
	conn := dbClient.DB()

	catalogRepo := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	contractsService, err := contracts.NewService(contracts.NewRepository(conn), dbClient, outboxService)
	if err != nil {
		return routes.Services{}, err
	}

	inventoryRepo := inventory.NewRepository(conn)
	ledger, err := inventory.NewLedger(inventoryRepo)
	if err != nil {
		return routes.Services{}, err
	}
	inventoryService, err := inventory.NewService(inventoryRepo, ledger, dbClient, outboxService)
	if err != nil {
		return routes.Services{}, err
	}

	backordersService, err := backorders.NewService(backorders.NewRepository(conn), ledger, dbClient, outboxService, procMetrics)
	if err != nil {
		return routes.Services{}, err
	}

	shipmentsService, err := shipments.NewService(shipments.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	ordersService, err := orders.NewService(orders.Deps{
		Repo:            orders.NewRepository(conn),
		Products:        catalogRepo,
		Contracts:       contractsService,
		Ledger:          ledger,
		Backorders:      backordersService,
		Shipments:       shipmentsService,
		Tx:              dbClient,
		Outbox:          outboxService,
		Metrics:         procMetrics,
		MaxDeliveryDays: cfg.Ordering.MaxDeliveryDays,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:    catalogService,
		Contracts:  contractsService,
		Inventory:  inventoryService,
		Orders:     ordersService,
		Backorders: backordersService,
		Shipments:  shipmentsService,
	}, nil
}
