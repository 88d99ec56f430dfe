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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/shenikar/pothole_tracker/internal/config"
	v1 "github.com/shenikar/pothole_tracker/internal/handler/http/v1"
	"github.com/shenikar/pothole_tracker/internal/repository"
	"github.com/shenikar/pothole_tracker/internal/service"
	"github.com/shenikar/pothole_tracker/internal/webhook"
	"github.com/shenikar/pothole_tracker/pkg/logger"
	"github.com/shenikar/pothole_tracker/pkg/postgres"
	redisclient "github.com/shenikar/pothole_tracker/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/pothole_tracker/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Pothole Tracker API
// @version 1.0
// @description Public pothole reporting and the operator dashboard behind it.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repository.EnsureDataDir(cfg.DataDir); err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}

	// Хранилище инцидентов
	incidentRepo, closeStorage, err := newIncidentRepository(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize incident storage: %v", err)
	}
	defer closeStorage()

	// Redis необязателен: без него нет кэша и вебхуков
	var (
		incidentCache    service.IncidentCache    = repository.NopIncidentCache{}
		webhookPublisher webhook.WebhookPublisher = webhook.NopPublisher{}
		redisClient      *redis.Client
	)
	if cfg.RedisEnabled() {
		redisClient, err = redisclient.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Info("Successfully connected to Redis")

		incidentCache = repository.NewRedisIncidentCache(redisClient, cfg.CacheTTL)
		webhookPublisher = webhook.NewRedisWebhookPublisher(redisClient)

		// Инициализация и запуск воркера вебхуков
		webhookWorker := webhook.NewWebhookWorker(redisClient, log, cfg)
		webhookWorker.Start(ctx)
	} else {
		log.Info("REDIS_ADDR is not set, incident cache and webhooks are disabled")
	}

	// Пользователи панели управления
	userRepo := repository.NewFileUserRepository(cfg.DataDir, log)
	if err := userRepo.EnsureDefaultAdmin(ctx, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create default admin: %v", err)
	}
	if cfg.UsersSeedPath != "" {
		if err := userRepo.SeedFromFile(ctx, cfg.UsersSeedPath); err != nil {
			log.Fatalf("Failed to seed users: %v", err)
		}
	}

	// Инициализация сервисов
	incidentService := service.NewIncidentService(incidentRepo, incidentCache, webhookPublisher, log)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, log)
	userService := service.NewUserService(userRepo, log)

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, authService, userService, log, cfg)

	// Настройка Gin роутера
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), v1.CORSMiddleware(cfg.CORSAllowedOrigins))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"storage": cfg.StorageDriver,
	}).Info("HTTP server started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}

// newIncidentRepository выбирает хранилище по STORAGE_DRIVER; возвращаемая функция освобождает ресурсы
func newIncidentRepository(ctx context.Context, cfg *config.Config, log *logrus.Logger) (service.IncidentRepository, func(), error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		// Запуск миграций
		if err := postgres.RunMigrations(cfg, log); err != nil {
			return nil, nil, err
		}

		// Подключение к PostgreSQL
		dbpool, err := postgres.NewPostgresDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Successfully connected to PostgreSQL")
		return repository.NewPostgresIncidentRepository(dbpool), dbpool.Close, nil
	default:
		log.WithField("data_dir", cfg.DataDir).Info("Using file storage")
		return repository.NewFileIncidentRepository(cfg.DataDir, log), func() {}, nil
	}
}
