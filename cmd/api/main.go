package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"quartier-geo/internal/api"
	"quartier-geo/internal/config"
	"quartier-geo/internal/modules/cluster"
	"quartier-geo/internal/modules/privacy"
	"quartier-geo/internal/modules/proximity"
	"quartier-geo/internal/storage"
	"quartier-geo/pkg/email"
	"quartier-geo/pkg/logger"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// 2. --- HTTP server and middleware ---
	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:5173", cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("unable to parse database configuration", zap.Error(err))
	}
	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		zlog.Fatal("unable to create connection pool", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		zlog.Fatal("unable to ping database", zap.Error(err))
	}
	zlog.Info("connected to database")

	// 4. --- Redis (position cache) ---
	// The service runs without it; positions then live only in memory.
	var positionCache proximity.PositionCache
	redisClient, err := storage.NewRedisClient(cfg)
	if err != nil {
		zlog.Warn("redis unavailable, position cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		positionCache = redisClient
		zlog.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// 5. --- Email (schedule notifications, optional) ---
	var emailer email.ServiceInterface
	var templateManager *email.TemplateManager
	if cfg.EmailEnabled {
		sender, err := email.NewSESV2Sender(context.Background(), cfg.AWSRegion, cfg.EmailFrom)
		if err != nil {
			zlog.Warn("email sender init failed, notifications disabled", zap.Error(err))
		} else {
			emailer = sender
			templateManager, err = email.NewTemplateManager()
			if err != nil {
				zlog.Fatal("email templates failed to parse", zap.Error(err))
			}
		}
	}

	// 6. --- Dependency injection ---
	// --- Privacy Module ---
	zoneRepo := privacy.NewRepository(dbPool)
	privacyService := privacy.NewService(zoneRepo, zlog, cfg.Geo.DefaultFuzzRadiusMeters)
	privacyHandler := privacy.NewHandler(privacyService)

	// --- Proximity Module ---
	dropPointRepo := proximity.NewDropPointRepository(dbPool)
	imprintRepo := proximity.NewImprintRepository(dbPool)
	proximityManager := proximity.NewManager(dropPointRepo, imprintRepo, positionCache, zlog,
		cfg.Geo.PositionFreshness, cfg.Geo.PositionTimeout)
	proximityHandler := proximity.NewHandler(proximityManager, imprintRepo, cfg.Geo, zlog)

	// --- Cluster Module ---
	clusterRepo := cluster.NewRepository(dbPool)
	clusterService := cluster.NewService(clusterRepo, emailer, templateManager, zlog)
	clusterHandler := cluster.NewHandler(clusterService)

	// 7. --- Routes ---
	api.SetupRoutes(e, cfg.JWTSecret,
		privacyHandler,
		proximityHandler,
		clusterHandler,
	)

	// 8. --- Start server with graceful shutdown ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("server exiting")
}
