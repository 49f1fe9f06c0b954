package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "referral-backend/docs"
	"referral-backend/internal/common/cache"
	"referral-backend/internal/common/config"
	"referral-backend/internal/common/logger"
	"referral-backend/internal/common/middleware"
	"referral-backend/internal/events"
	balancehttp "referral-backend/internal/features/balance/delivery/http"
	balanceRepo "referral-backend/internal/features/balance/repository/postgres"
	balanceService "referral-backend/internal/features/balance/service"
	cataloghttp "referral-backend/internal/features/catalog/delivery/http"
	catalogRepo "referral-backend/internal/features/catalog/repository/postgres"
	catalogService "referral-backend/internal/features/catalog/service"
	paymenthttp "referral-backend/internal/features/payment/delivery/http"
	paymentRepo "referral-backend/internal/features/payment/repository/postgres"
	paymentService "referral-backend/internal/features/payment/service"
	"referral-backend/internal/features/tier"
	tierhttp "referral-backend/internal/features/tier/delivery/http"
	userhttp "referral-backend/internal/features/user/delivery/http"
	userRepo "referral-backend/internal/features/user/repository/postgres"
	userService "referral-backend/internal/features/user/service"
	"referral-backend/internal/platform/postgres"
	redisplatform "referral-backend/internal/platform/redis"
	"referral-backend/internal/platform/telegram"
	"referral-backend/internal/service/notifications"
)

// @title           Referral Platform API
// @version         1.0
// @description     API server for the referral and commission platform. All endpoints require init_data authentication.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data string for authentication

// @tag.name users
// @tag.description User profiles, KYC and account security events

// @tag.name payments
// @tag.description Package purchase intents and operator resolution

// @tag.name balance
// @tag.description Deposit notices, withdrawal requests and the balance ledger

// @tag.name packages
// @tag.description Package catalog management

// @tag.name tiers
// @tag.description Commission tiers

func main() {
	cfg := config.Load()

	logger.Init("referral-backend", cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("starting referral backend")

	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer postgresClient.Close()

	redisClient, err := redisplatform.Open(context.Background(),
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewCacheService(redisClient)

	tierCatalog := tier.NewCatalog()
	bus := events.NewBus(256)

	userRepository := userRepo.NewPostgresRepository(postgresClient.GetDB())
	catalogRepository := catalogRepo.NewPostgresRepository(postgresClient.GetDB())
	paymentRepository := paymentRepo.NewPostgresRepository(postgresClient.GetDB())
	balanceRepository := balanceRepo.NewPostgresRepository(postgresClient.GetDB())

	userSvc := userService.NewUserService(userRepository, tierCatalog, cfg.IsAdmin)
	catalogSvc := catalogService.NewPackageService(catalogRepository, paymentRepository, cacheService)
	paymentSvc := paymentService.NewPaymentService(paymentRepository, catalogRepository, tierCatalog, bus, userSvc, cfg.Payments.DedupWindow)
	balanceSvc := balanceService.NewBalanceService(balanceRepository, bus, userSvc)

	relay := notifications.NewRelay(bus, telegram.NewClient(cfg.Telegram.BotToken), cfg.Telegram.OperatorChatID)
	relay.Start(context.Background())

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, userSvc, catalogSvc, paymentSvc, balanceSvc, tierCatalog, postgresClient, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	// Handlers have stopped publishing; close the bus and let the relay
	// drain what is left.
	bus.Close()
	relay.Wait()

	logger.Info().Msg("server exited")
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	userSvc userService.UserService,
	catalogSvc catalogService.PackageService,
	paymentSvc paymentService.PaymentService,
	balanceSvc balanceService.BalanceService,
	tierCatalog *tier.Catalog,
	postgresClient *postgres.Client,
	redisClient *redisplatform.Client,
) {
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg, userSvc))
	{
		userhttp.NewUserHandler(userSvc).RegisterRoutes(v1)
		cataloghttp.NewPackageHandler(catalogSvc).RegisterRoutes(v1)
		paymenthttp.NewPaymentHandler(paymentSvc, balanceSvc).RegisterRoutes(v1)
		balancehttp.NewBalanceHandler(balanceSvc).RegisterRoutes(v1)
		tierhttp.NewTierHandler(tierCatalog).RegisterRoutes(v1)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "referral-backend",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := postgresClient.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unready",
				"error":  "postgres unavailable",
			})
			return
		}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unready",
				"error":  "redis unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "referral-backend",
		})
	})
}
