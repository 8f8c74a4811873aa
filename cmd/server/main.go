package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vitrine-commerce/service-promotions/internal/adapter"
	"github.com/vitrine-commerce/service-promotions/internal/application"
	"github.com/vitrine-commerce/service-promotions/internal/config"
	"github.com/vitrine-commerce/service-promotions/internal/domain/loyalty"
	promotionEvents "github.com/vitrine-commerce/service-promotions/internal/events"
	"github.com/vitrine-commerce/service-promotions/internal/handler"
	"github.com/vitrine-commerce/service-promotions/internal/repository"
	"github.com/vitrine-commerce/service-promotions/pkg/auth"
	"github.com/vitrine-commerce/service-promotions/pkg/database"
	"github.com/vitrine-commerce/service-promotions/pkg/health"
	"github.com/vitrine-commerce/service-promotions/pkg/kafka"
	"github.com/vitrine-commerce/service-promotions/pkg/logger"
	"github.com/vitrine-commerce/service-promotions/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-promotions")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-promotions",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	db, err := database.Connect(dbConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.CouponModel{},
			&repository.CouponRuleModel{},
			&repository.LoyaltyAccountModel{},
			&repository.PointsHistoryModel{},
		); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		dbURL := dbConfig.DatabaseURL()
		if err := database.RunMigrations(dbURL, "migrations", zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Initialize repositories
	couponRepo := repository.NewGormCouponRepository(db)
	ruleRepo := repository.NewGormRuleRepository(db)
	loyaltyRepo := repository.NewGormLoyaltyRepository(db)

	// Birthday matching happens in a fixed reference zone
	location, err := time.LoadLocation(cfg.BirthdayTimezone)
	if err != nil {
		zapLogger.Fatal("invalid birthday timezone", zap.Error(err))
	}

	// Product categories come from the storefront catalog when configured,
	// otherwise from the static development catalog.
	var catalog application.ProductCatalog
	if cfg.CatalogBaseURL != "" {
		catalog = adapter.NewHTTPProductCatalog(cfg.CatalogBaseURL, zapLogger)
	} else {
		catalog = adapter.NewStaticProductCatalog(nil)
	}

	// Initialize application services
	generator := application.NewCodeGenerator(couponRepo)
	publisher := promotionEvents.NewPublisher(kafkaProducer)
	birthdayDirectory := adapter.NewGormBirthdayDirectory(db)

	issuanceService := application.NewIssuanceService(
		couponRepo, ruleRepo, generator, birthdayDirectory, publisher, location, zapLogger,
	)
	validationService := application.NewValidationService(couponRepo, catalog, zapLogger)
	promotionService := application.NewPromotionService(couponRepo, ruleRepo, zapLogger)
	loyaltyService := application.NewLoyaltyService(loyaltyRepo, generator, loyalty.DefaultCatalog(), zapLogger)

	// Initialize Kafka consumers
	accountConsumer := promotionEvents.NewAccountEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"promotions-account",
		issuanceService,
		zapLogger,
	)
	defer accountConsumer.Close()

	orderConsumer := promotionEvents.NewOrderEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"promotions-order",
		loyaltyService,
		couponRepo,
		cfg.PointsPerCurrencyUnit,
		zapLogger,
	)
	defer orderConsumer.Close()

	// Start Kafka consumers in goroutines
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting account event consumer")
		if err := accountConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("account event consumer failed", zap.Error(err))
			}
		}
	}()

	go func() {
		zapLogger.Info("starting order event consumer")
		if err := orderConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("order event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	promotionHandler := handler.NewPromotionHandler(validationService, promotionService)
	loyaltyHandler := handler.NewLoyaltyHandler(loyaltyService)
	adminHandler := handler.NewAdminHandler(issuanceService, promotionService, loyaltyService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-promotions")
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	promotionHandler.RegisterRoutes(apiV1, jwtManager)
	loyaltyHandler.RegisterRoutes(apiV1, jwtManager)
	adminHandler.RegisterRoutes(apiV1, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-promotions...")

	// Cancel Kafka consumers
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-promotions stopped")
}
