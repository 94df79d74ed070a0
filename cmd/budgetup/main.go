package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/budgetup/budgetup/pkg/api"
	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/config"
	"github.com/budgetup/budgetup/pkg/observability"
	"github.com/budgetup/budgetup/pkg/orgs"
	"github.com/budgetup/budgetup/pkg/rbac"
	"github.com/budgetup/budgetup/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "budgetup: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting budgetup API server")

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	defer cancelMigrate()
	if err := storage.RunMigrations(migrateCtx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, continuing without it")
		}
		cancel()
	}

	metrics := observability.NewMetrics(nil)

	var otelProviders *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(context.Background(), observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	auditLogger, err := audit.NewDBLogger(db, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to start audit logger: %w", err)
	}

	orgService := orgs.NewPostgresService(db)
	tokenStore := auth.NewTokenStore(db)

	server := api.NewServer(cfg, api.Dependencies{
		Logger:        logger,
		Metrics:       metrics,
		Orgs:          orgService,
		Evaluator:     rbac.NewEvaluator(orgService),
		Audit:         auditLogger,
		AuditStore:    audit.NewStore(db),
		Tokens:        tokenStore,
		Authenticator: tokenStore,
		Redis:         redisClient,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthHandler(db, redisClient, metrics),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return auditLogger.Close()
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	}

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API listener started")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health listener started")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	return group.Wait()
}

// healthHandler serves probes and metrics on the side listener, away
// from the rate-limited API surface.
func healthHandler(db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) http.Handler {
	checker := observability.NewHealthChecker(db, redisClient)
	router := mux.NewRouter()
	router.HandleFunc("/livez", checker.Liveness).Methods("GET")
	router.HandleFunc("/readyz", checker.Readiness).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	return router
}
