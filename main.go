// File: innkeeper/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innkeeper/config"
	"innkeeper/cron"
	"innkeeper/database"
	auditRepo "innkeeper/database/repository/audit"
	"innkeeper/handlers"
	"innkeeper/middleware"
	"innkeeper/routes"
	cacheStore "innkeeper/services/cache"
	"innkeeper/services/pms"
	"innkeeper/services/resilience"
	"innkeeper/services/reslock"
	"innkeeper/services/session"
	"innkeeper/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// stores.
	availabilityCache := cacheStore.NewRedisStore(utils.GetCacheClient())
	sessionCache := cacheStore.NewRedisStore(utils.GetSessionCacheClient())
	lockStore := reslock.NewRedisLockStore(utils.GetLockCacheClient())
	auditTrail := auditRepo.NewMongoAuditRepo()

	// PMS client behind its own circuit breaker.
	pmsClient := pms.NewHTTPClient(
		config.AppConfig.PMSBaseURL,
		config.AppConfig.PMSAPIKey,
		time.Duration(config.AppConfig.PMSTimeoutSeconds)*time.Second,
		config.AppConfig.PMSRatePerSecond,
		config.AppConfig.PMSRateBurst,
	)
	pmsBreaker := resilience.NewBreaker(
		"pms",
		config.AppConfig.BreakerFailureThreshold,
		time.Duration(config.AppConfig.BreakerRecoverySeconds)*time.Second,
		pms.IsExpectedFailure,
		logger,
	)

	// services.
	pmsAdapter := &pms.DefaultAdapter{
		Client:          pmsClient,
		Cache:           availabilityCache,
		Breaker:         pmsBreaker,
		AvailabilityTTL: time.Duration(config.AppConfig.AvailabilityTTLSeconds) * time.Second,
		LateCheckoutTTL: time.Duration(config.AppConfig.LateCheckoutTTLSeconds) * time.Second,
		SnapshotTTL:     time.Duration(config.AppConfig.SnapshotTTLHours) * time.Hour,
		Logger:          logger,
	}
	lockService := &reslock.DefaultLockService{
		Store:         lockStore,
		Audit:         auditTrail,
		MaxExtensions: config.AppConfig.LockMaxExtensions,
		Logger:        logger,
	}

	sessionService := &session.DefaultSessionService{
		Cache:       sessionCache,
		TTL:         time.Duration(config.AppConfig.SessionTTLSeconds) * time.Second,
		MaxRetries:  config.AppConfig.SessionMaxRetries,
		BackoffBase: time.Duration(config.AppConfig.SessionBackoffBaseMs) * time.Millisecond,
		Logger:      logger,
	}

	reservationHandler := handlers.NewReservationHandler(pmsAdapter, lockService, sessionService)

	cron.InitSessionSweeper(sessionService)

	utils.StartHealthMonitor([]*redis.Client{
		utils.GetCacheClient(),
		utils.GetSessionCacheClient(),
		utils.GetLockCacheClient(),
	}, database.MongoClient)

	routes.RegisterRoutes(router, reservationHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
