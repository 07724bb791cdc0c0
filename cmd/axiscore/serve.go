package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Laisky/zap"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/wellb3tz/axiscore/internal/archive"
	"github.com/wellb3tz/axiscore/internal/config"
	"github.com/wellb3tz/axiscore/internal/database"
	"github.com/wellb3tz/axiscore/internal/database/migration"
	"github.com/wellb3tz/axiscore/internal/guard"
	handlers "github.com/wellb3tz/axiscore/internal/http/handler"
	"github.com/wellb3tz/axiscore/internal/http/middleware"
	"github.com/wellb3tz/axiscore/internal/otel"
	"github.com/wellb3tz/axiscore/internal/repository/postgres"
	"github.com/wellb3tz/axiscore/internal/service"
	"github.com/wellb3tz/axiscore/internal/storage"
	"github.com/wellb3tz/axiscore/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "serve",
	Long:  `run the webhook receiver and HTTP API`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		return serve(cmd.Context())
	},
}

func init() {
	serveCMD.Flags().String("port", "", "listen port, overrides PORT")
	rootCMD.AddCommand(serveCMD)
}

func serve(ctx context.Context) error {
	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			return err
		}
	}

	store, err := newStorage(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	inflight, closeInflight, err := newInFlight(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init in-flight guard: %w", err)
	}
	defer closeInflight()
	breaker := guard.NewBreaker(inflight, cfg.Archive.ResetWindow)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := database.RegisterStats(reg, db, cfg.Database.Name); err != nil {
		return err
	}
	archiveMetrics, err := archive.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register archive metrics: %w", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}
	cascade := archive.NewCascade(cfg.Archive, logger, archiveMetrics)

	// Initialize repositories and services
	modelRepo := postgres.NewModelPostgres(db)
	failureRepo := postgres.NewFailurePostgres(db)
	userRepo := postgres.NewUserPostgres(db)

	modelSvc := service.NewModelService(store, modelRepo, service.ModelServiceConfig{
		BaseURL:        cfg.BaseURL,
		DefaultOwnerID: cfg.Telegram.DefaultUserID,
	})
	userSvc := service.NewUserService(userRepo)

	client, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}
	processor := service.NewProcessor(
		modelSvc,
		failureRepo,
		inflight,
		breaker,
		cascade,
		client,
		service.ProcessorConfig{
			MaxFileSize: cfg.Telegram.MaxFileSize,
			MaxModels:   cfg.Archive.MaxModels,
			TempDir:     cfg.Archive.TempDir,
		},
		logger,
	)
	dispatcher := telegram.NewDispatcher(
		client,
		processor,
		modelSvc,
		userSvc,
		breaker,
		telegram.DispatcherConfig{BaseURL: cfg.BaseURL, AdminIDs: cfg.Telegram.AdminIDs},
		logger,
	)

	if cfg.Telegram.WebhookURL != "" {
		if err := client.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Warn("webhook registration failed", zap.Error(err))
		} else {
			logger.Info("webhook registered", zap.String("url", cfg.Telegram.WebhookURL))
		}
	}

	app := newApp(db, reg, promMiddleware, handlers.Deps{
		Models:        modelSvc,
		Users:         userSvc,
		Updates:       dispatcher,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		BotToken:      cfg.Telegram.Token,
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
		TokenTTL:      cfg.Auth.TokenTTL,
		BaseURL:       cfg.BaseURL,
		ViewerURL:     cfg.ViewerURL,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}

func newApp(db *sql.DB, reg *prometheus.Registry, prom *middleware.PrometheusMiddleware, deps handlers.Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(prom.Handler())

	deps.DB = db
	deps.Gatherer = reg
	deps.Logger = logger
	handlers.RegisterRoutes(app, deps)
	return app
}

// newStorage selects the side store for content above the inline threshold.
func newStorage(ctx context.Context, cfg *config.AppConfig, db *sql.DB) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "", "postgres":
		return storage.NewPostgres(db), nil
	case "minio":
		return storage.NewMinIO(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
}

// newInFlight shares the guard through redis when REDIS_ADDR is set so that
// several replicas see the same deliveries.
func newInFlight(ctx context.Context, cfg *config.AppConfig) (guard.InFlight, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("in-flight guard", zap.String("backend", "memory"))
		return guard.NewMemoryInFlight(cfg.Archive.InFlightTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("in-flight guard", zap.String("backend", "redis"), zap.String("addr", cfg.Redis.Addr))
	return guard.NewRedisInFlight(client, cfg.Archive.InFlightTTL), func() { _ = client.Close() }, nil
}
