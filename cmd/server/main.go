// Package main is the entry point for the QR token API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"csy/internal/config"
	"csy/internal/handlers"
	"csy/internal/logger"
	"csy/internal/middleware"
	"csy/internal/repositories"
	"csy/internal/repositories/cache"
	"csy/internal/routes"
	"csy/internal/services/lookup"
	"csy/internal/services/notification"
	"csy/internal/services/order"
	"csy/internal/services/qr"
	"csy/internal/services/reservation"
)

const version = "1.0.0"

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// Orders and reservations always live in postgres; the driver only
	// selects where tokens are kept.
	db, err := repositories.InitDB(cfg.Database, zl)
	if err != nil {
		zl.Fatal("Database initialisation failed", zap.Error(err))
	}

	store, closeStore, err := repositories.NewTokenStore(cfg.QR, db)
	if err != nil {
		zl.Fatal("Token store initialisation failed", zap.Error(err))
	}

	// Redis is optional. Without it tokens are read straight from the store
	// and notifications are only logged.
	var rdb *redis.Client
	var cacheService *cache.CacheService
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			zl.Warn("Redis unavailable, running without token cache", zap.Error(err))
			rdb = nil
		}
	}
	var tokenStore qr.TokenStore = store
	var publisher notification.Publisher
	if rdb != nil {
		cacheService = cache.NewCacheService(rdb, cfg.QR.CacheTTL)
		if cfg.QR.CacheTTL > 0 {
			tokenStore = qr.NewCachedStore(store, cacheService, cfg.QR.CacheTTL, zl.Named("qr.cache"))
		}
		publisher = rdb
	}

	codec, err := qr.NewCodec([]byte(cfg.QR.SigningSecret))
	if err != nil {
		zl.Fatal("QR codec initialisation failed", zap.Error(err))
	}

	orderService := order.NewService(db)
	reservationService := reservation.NewService(db)
	entityLookup := lookup.NewService(orderService, reservationService)

	qrService := qr.NewService(qr.Deps{
		Store:    tokenStore,
		Codec:    codec,
		Lookup:   entityLookup,
		Handlers: qr.NewHandlers(entityLookup, orderService, reservationService),
		Metrics:  &qr.NoopMetricsCollector{},
		Logger:   zl.Named("qr"),
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	cleaner := qr.NewCleaner(store, cfg.QR.CleanupInterval, cfg.QR.CleanupRetention, nil, zl.Named("qr.cleanup"))
	go cleaner.Start(ctx)

	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	var stats handlers.StatsSource
	if cacheService != nil {
		checks["redis"] = cacheService.HealthCheck
		stats = cacheService
	}

	app := fiber.New(fiber.Config{
		AppName:      "csy-qr",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		QR:     handlers.NewQRHandler(qrService, notification.NewService(publisher, zl.Named("notification")), zl.Named("http")),
		Health: handlers.NewHealthHandler(version, checks, stats),
		Auth:   middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, zl.Named("auth")),
	})

	go func() {
		zl.Info("HTTP server started", zap.String("port", cfg.Port), zap.String("store", cfg.QR.StoreDriver))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zl.Info("Shutting down", zap.String("signal", sig.String()))

	stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := closeStore(); err != nil {
		zl.Error("Token store close failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if cacheService != nil {
		_ = cacheService.Close()
	}
	zl.Info("Server stopped")
}
