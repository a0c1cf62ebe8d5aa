package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gigboard/gig-backend/internal/config"
	"github.com/gigboard/gig-backend/internal/db"
	httpHandlers "github.com/gigboard/gig-backend/internal/http/handlers"
	httpRouter "github.com/gigboard/gig-backend/internal/http/router"
	"github.com/gigboard/gig-backend/internal/logger"
	"github.com/gigboard/gig-backend/internal/repository"
	"github.com/gigboard/gig-backend/internal/service"
	"github.com/gigboard/gig-backend/internal/storage"
	"github.com/gigboard/gig-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	fileStorage, err := storage.NewFileStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	gigRepo := repository.NewGigRepository(dbConn)
	applicationRepo := repository.NewApplicationRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	withdrawalRepo := repository.NewWithdrawalRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))

	gigService := service.NewGigService(gigRepo, hub)
	applicationService := service.NewApplicationService(applicationRepo, gigRepo, hub)
	escrowService := service.NewEscrowService(paymentRepo, gigRepo, hub, cfg.PlatformFeePercent, cfg.PlatformAccountID)

	// Аккаунт комиссии обязан существовать до первой выплаты.
	if err := escrowService.EnsurePlatformAccount(ctx); err != nil {
		log.Fatalf("main: не удалось создать служебный аккаунт платформы: %v", err)
	}
	ledgerService := service.NewLedgerService(ledgerRepo)
	withdrawalService := service.NewWithdrawalService(withdrawalRepo, userRepo, cfg.MinWithdrawal)
	disputeService := service.NewDisputeService(disputeRepo, gigRepo, paymentRepo, hub, cfg.PlatformFeePercent, cfg.PlatformAccountID)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	gigHandler := httpHandlers.NewGigHandler(gigService, escrowService, mediaRepo)
	applicationHandler := httpHandlers.NewApplicationHandler(applicationService)
	paymentHandler := httpHandlers.NewPaymentHandler(escrowService, ledgerService)
	withdrawalHandler := httpHandlers.NewWithdrawalHandler(withdrawalService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	mediaHandler := httpHandlers.NewMediaHandler(mediaRepo, fileStorage)
	webhookHandler := httpHandlers.NewWebhookHandler(ledgerService, cfg.GatewaySecret)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		gigHandler,
		applicationHandler,
		paymentHandler,
		withdrawalHandler,
		disputeHandler,
		notificationHandler,
		mediaHandler,
		webhookHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
