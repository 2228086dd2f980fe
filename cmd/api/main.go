package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/placementhq/readiness-api/internal/config"
	"github.com/placementhq/readiness-api/internal/database"
	"github.com/placementhq/readiness-api/internal/handler"
	"github.com/placementhq/readiness-api/internal/middleware"
	"github.com/placementhq/readiness-api/internal/models"
	"github.com/placementhq/readiness-api/internal/repository"
	"github.com/placementhq/readiness-api/internal/router"
	"github.com/placementhq/readiness-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.JobReadinessConfig{}, &models.StudentJobReadiness{}, &models.ActivityLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	configRepo := repository.NewConfigRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	resolver := service.NewCriteriaResolver(configRepo, logger)
	configService := service.NewConfigService(configRepo, validate, activityService, logger)
	readinessService := service.NewReadinessService(progressRepo, resolver, validate, activityService, logger)
	analyticsService := service.NewAnalyticsService(progressRepo, redisClient, cfg.OverviewCacheTTL, logger)

	configHandler := handler.NewConfigHandler(configService, validate, logger)
	readinessHandler := handler.NewReadinessHandler(readinessService, validate, logger)
	verificationHandler := handler.NewVerificationHandler(readinessService, validate, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ConfigHandler:       configHandler,
		ReadinessHandler:    readinessHandler,
		VerificationHandler: verificationHandler,
		AnalyticsHandler:    analyticsHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
