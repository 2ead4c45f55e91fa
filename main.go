package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	_ "github.com/schemalens/schemalens/pkg/adapters/datasource/postgres"
	_ "github.com/schemalens/schemalens/pkg/adapters/datasource/sqlite"
	_ "github.com/schemalens/schemalens/pkg/adapters/datasource/sqlserver"
	"github.com/schemalens/schemalens/pkg/auth"
	"github.com/schemalens/schemalens/pkg/config"
	"github.com/schemalens/schemalens/pkg/database"
	"github.com/schemalens/schemalens/pkg/handlers"
	"github.com/schemalens/schemalens/pkg/logging"
	"github.com/schemalens/schemalens/pkg/middleware"
	"github.com/schemalens/schemalens/pkg/repositories"
	"github.com/schemalens/schemalens/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.Int("max_key_columns", cfg.Inference.MaxKeyColumns))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database.ConnectionString(), cfg.Database.MaxConnections)
	if err != nil {
		logger.Fatal("Failed to connect to catalog database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories and services.
	datasourceRepo := repositories.NewDatasourceRepository(db)
	snapshotRepo := repositories.NewSnapshotRepository(db)
	inferenceRepo := repositories.NewInferenceRepository(db)

	snapshotSvc := services.NewSnapshotService(datasourceRepo, snapshotRepo, logger)
	keySvc := services.NewKeyGuessService(datasourceRepo, snapshotRepo, inferenceRepo, services.KeyGuessConfig{
		MaxKeyColumns: cfg.Inference.MaxKeyColumns,
		MaxGuesses:    cfg.Inference.MaxGuesses,
	}, logger)
	relationshipSvc := services.NewRelationshipService(datasourceRepo, snapshotRepo, inferenceRepo, logger)

	// HTTP surface.
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(cfg.Auth.Enabled, cfg.Auth.SigningSecret, logger)
	apiMux := http.NewServeMux()
	handlers.NewDatasourceHandler(datasourceRepo, logger).RegisterRoutes(apiMux)
	handlers.NewSnapshotHandler(snapshotSvc, logger).RegisterRoutes(apiMux)
	handlers.NewInferenceHandler(keySvc, relationshipSvc, logger).RegisterRoutes(apiMux)
	handlers.NewExportHandler(snapshotSvc, keySvc, relationshipSvc, logger).RegisterRoutes(apiMux)
	mux.HandleFunc("/api/", authMiddleware.RequireAuth(apiMux.ServeHTTP))

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	go func() {
		logger.Info("Starting schemalens",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

// runMigrations applies catalog migrations over a plain database/sql
// connection, which golang-migrate requires.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}
