package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/redis/go-redis/v9"

	"balangay/internal/access"
	accessmetrics "balangay/internal/access/metrics"
	"balangay/internal/audit"
	"balangay/internal/geo"
	"balangay/internal/household"
	householdmetrics "balangay/internal/household/metrics"
	"balangay/internal/platform/config"
	"balangay/internal/platform/httpserver"
	"balangay/internal/platform/logger"
	"balangay/internal/platform/middleware"
	"balangay/internal/platform/postgres"
	"balangay/internal/principal"
	principalcache "balangay/internal/principal/cache"
	principalmetrics "balangay/internal/principal/metrics"
	httptransport "balangay/internal/transport/http"
	"balangay/pkg/platform/tx"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	// The geographic catalog is reference data: loaded once, cached for the
	// process lifetime, never queried on the request path.
	catalog, err := geo.LoadCatalog(ctx, db)
	if err != nil {
		log.Error("geo catalog load failed", "err", err)
		os.Exit(1)
	}
	if catalog.Len() == 0 {
		log.Warn("geo catalog is empty; load reference data before serving signups")
	}

	runner := tx.NewSQLRunner(db)
	auditEmitter := audit.NewEmitter(audit.NewPostgres(db), log)

	principalOpts := []principal.Option{
		principal.WithTxRunner(runner),
		principal.WithAudit(auditEmitter),
		principal.WithMetrics(principalmetrics.New()),
		principal.WithLogger(log),
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis URL invalid", "err", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Error("redis ping failed", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		principalOpts = append(principalOpts, principal.WithCache(principalcache.New(client, cfg.ProfileCacheTTL)))
	}

	principalSvc := principal.NewService(
		principal.NewPostgres(db),
		principal.NewPostgresRoleStore(db),
		catalog,
		principalOpts...,
	)

	evaluator := access.NewEvaluator(catalog)
	accessSvc := access.NewService(principalSvc, evaluator, accessmetrics.New(), log)

	householdSvc := household.NewService(
		household.NewPostgres(db),
		principalSvc,
		evaluator,
		catalog,
		household.WithTxRunner(runner),
		household.WithAudit(auditEmitter),
		household.WithMetrics(householdmetrics.New()),
		household.WithLogger(log),
	)

	handler := httptransport.NewHandler(principalSvc, accessSvc, householdSvc, log)
	validator := middleware.NewJWTValidator(cfg.JWTSigningKey)
	router := httptransport.NewRouter(handler, validator, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting balangay registry core", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		os.Exit(1)
	}
}
