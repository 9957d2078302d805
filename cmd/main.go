package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/devcon26/registration-api/config"
	"github.com/devcon26/registration-api/db"
	"github.com/devcon26/registration-api/handlers"
	"github.com/devcon26/registration-api/live"
	"github.com/devcon26/registration-api/metrics"
	"github.com/devcon26/registration-api/middleware"
	"github.com/devcon26/registration-api/repositories"
	api "github.com/devcon26/registration-api/routes"
	"github.com/devcon26/registration-api/services"
	"github.com/devcon26/registration-api/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Devcon '26 Registration API
// @version 1.0.0
// @description Регистрация участников, команды, платежи и админка Devcon '26.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("environment", cfg.Environment),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.UploadDir, cfg.QRCodeDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("failed to create directory", slog.String("dir", dir), slog.Any("error", err))
		}
	}

	// Подключение к базе данных. Недоступная база не останавливает старт:
	// сервер поднимется, а запросы будут падать до её появления.
	dbConn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	db.Bootstrap(ctx, dbConn, cfg.DBConnectRetries, cfg.DBRetryInterval, logger)

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize file storage", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("file storage initialized", slog.String("backend", cfg.StorageBackend))

	appMetrics := metrics.New()
	hub := live.NewHub(logger)

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	paymentRepo := repositories.NewPostgresPaymentRepository(dbConn)
	dashboardRepo := repositories.NewPostgresDashboardRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	paymentService := services.NewPaymentService(
		paymentRepo,
		services.LoggingApprovalHook{Logger: logger},
		hub,
		appMetrics,
		logger,
	)
	participantService := services.NewParticipantService(
		dbConn,
		participantRepo,
		teamRepo,
		paymentRepo,
		paymentService,
		uploader,
		hub,
		appMetrics,
		logger,
		services.ParticipantServiceConfig{
			MaxTeamSize:       cfg.MaxTeamSize,
			RegistrationFee:   cfg.RegistrationFee,
			AllowedExtensions: cfg.AllowedExtensions,
			MaxFileSize:       cfg.MaxFileSize,
		},
	)
	ambassadorService := services.NewAmbassadorService(participantRepo, paymentService)
	dashboardService := services.NewDashboardService(dbConn, dashboardRepo, logger)
	exportService := services.NewExportService(participantRepo)
	adminUserService := services.NewAdminUserService(userRepo, logger)
	adminPaymentService := services.NewAdminPaymentService(paymentService, paymentRepo, uploader)
	logger.Info("Services initialized")

	auth := middleware.NewAuth(middleware.AuthConfig{
		Secret:    cfg.JWTSecretKey,
		NoUser:    repositories.ErrUserNotFound,
		NoProfile: services.ErrParticipantRequired,
	}, userRepo, participantService, logger)

	// Инициализация обработчиков HTTP
	router := chi.NewRouter()
	api.SetupRoutes(router, auth, api.Handlers{
		Health:      handlers.NewHealthHandler(cfg.Environment),
		Participant: handlers.NewParticipantHandler(participantService, cfg.MaxFileSize),
		Ambassador:  handlers.NewAmbassadorHandler(ambassadorService),
		Admin:       handlers.NewAdminHandler(dashboardService, adminPaymentService, exportService),
		AdminUser:   handlers.NewAdminUserHandler(adminUserService),
		WebSocket:   handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
		Metrics:        appMetrics,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func newUploader(ctx context.Context, cfg *config.Config) (storage.FileUploader, error) {
	if cfg.StorageBackend == config.StorageBackendR2 {
		return storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
	}
	return storage.NewLocalDiskUploader(afero.NewOsFs(), cfg.UploadDir)
}
