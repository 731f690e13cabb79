package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "oee-backend/internal/api/http"
	"oee-backend/internal/assets/application"
	assetrepo "oee-backend/internal/assets/infrastructure/postgres"
	assethttp "oee-backend/internal/assets/interfaces/http"
	"oee-backend/internal/audit"
	"oee-backend/internal/auth"
	"oee-backend/internal/config"
	"oee-backend/internal/dbadmin"
	"oee-backend/internal/logging"
	"oee-backend/internal/observability/metrics"
	oeerepo "oee-backend/internal/oee/infrastructure/postgres"
	oeehttp "oee-backend/internal/oee/interfaces/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dbAdmin := dbadmin.NewManager(cfg.Database.URL, cfg.Database.ConfigFile, logger)
	if dbAdmin.DSN() == "" {
		logger.Fatal("no database configured", zap.String("hint", "set DATABASE_URL or POST /db/config"))
	}

	db, err := sql.Open("pgx", dbAdmin.DSN())
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// An unreachable database is not fatal: /db/config and /db/validate
	// exist to fix the DSN while the service is up.
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		logger.Warn("database unreachable at startup", zap.Error(err))
	}
	cancel()

	metrics.Init(db, logger)

	auditRepo := audit.NewRepository(db)
	assetRepo := assetrepo.NewAssetRepository(db)
	viewRepo := assetrepo.NewFlatViewRepository(db)
	recordRepo := oeerepo.NewRecordRepository(db)

	treeBuilder, err := application.NewTreeBuilder(viewRepo, assetRepo, recordRepo, logger)
	if err != nil {
		logger.Fatal("tree builder error", zap.Error(err))
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/db/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.Auth.JWTSecret), policy)
	if authMiddleware == nil {
		logger.Warn("auth disabled: no AUTH_JWT_SECRET configured")
	}

	r := chi.NewRouter()
	r.Use(apihttp.RequestID)
	r.Use(apihttp.RequestLogger(logger))
	r.Use(apihttp.Recoverer(logger))
	r.Use(apihttp.Metrics)
	r.Use(apihttp.RateLimit(cfg.HTTP.RatePerMinute))
	r.Use(authMiddleware.Wrap)

	assethttp.NewHandler(assetRepo, treeBuilder, auditRepo, logger).Routes(r)
	oeehttp.NewHandler(recordRepo, logger).Routes(r)
	dbadmin.NewHandler(dbAdmin, logger).Routes(r)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
