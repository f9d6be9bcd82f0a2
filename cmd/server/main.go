package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gaming_lounge_backend/internal/config"
	"gaming_lounge_backend/internal/database"
	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/notify"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/internal/router"
	"gaming_lounge_backend/internal/services"
	"gaming_lounge_backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", "console")
		utils.LogError(err, "Invalid configuration")
		os.Exit(1)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		utils.LogWarn(nil, "JWT_SECRET is not set, using the development signing key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lounge, err := config.LoadLounge(cfg.LoungeConfigPath)
	if err != nil {
		utils.LogError(err, "Failed to load lounge layout", map[string]interface{}{"path": cfg.LoungeConfigPath})
		os.Exit(1)
	}
	if cfg.RequireFullPayment != nil {
		lounge.Settings.RequireFullPayment = *cfg.RequireFullPayment
	}

	// Store
	var store repositories.Store
	switch cfg.StoreDriver {
	case "memory":
		utils.LogWarn(nil, "Using the in-memory store, data is lost on restart")
		store = repositories.NewMemoryStore()
	default:
		db, err := database.Open(ctx, database.Options{
			Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser,
			Password: cfg.DBPassword, Name: cfg.DBName, SSLMode: cfg.DBSSLMode,
		})
		if err != nil {
			utils.LogError(err, "Failed to initialize database")
			os.Exit(1)
		}
		defer db.Close()
		if err := database.ApplySchema(ctx, db, cfg.DBSchemaPath); err != nil {
			utils.LogError(err, "Failed to apply database schema")
			os.Exit(1)
		}
		store = repositories.NewPostgresStore(db)
	}

	// Locks and live quote cache: Redis when configured, in-process otherwise
	var (
		locker locks.Locker        = locks.NewLocalLocker()
		quotes services.QuoteCache = services.NewMemoryQuoteCache()
		rdb    *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			utils.LogError(err, "Failed to connect to Redis", map[string]interface{}{"addr": cfg.RedisAddr})
			os.Exit(1)
		}
		defer rdb.Close()
		locker = locks.NewRedisLocker(rdb, "lounge:lock:", 30*time.Second)
		quotes = services.NewRedisQuoteCache(rdb, "lounge:quote:")
		utils.LogInfo("Redis locks and quote cache enabled", map[string]interface{}{"addr": cfg.RedisAddr})
	}

	// Notifications: RabbitMQ behind an async dispatcher, or the log
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.RabbitMQURL != "" {
		publisher := notify.NewAMQPNotifier(cfg.RabbitMQURL, cfg.NotifyQueue)
		dispatcher := notify.NewDispatcher(publisher, 256, 5*time.Second)
		defer func() {
			dispatcher.Close()
			if err := publisher.Close(); err != nil {
				utils.LogWarn(err, "Closing RabbitMQ publisher")
			}
		}()
		notifier = dispatcher
		utils.LogInfo("RabbitMQ notifications enabled", map[string]interface{}{"queue": cfg.NotifyQueue})
	}

	rt := services.Runtime{
		Store:    store,
		Locker:   locker,
		Notifier: notifier,
		Audit:    notify.NewStoreAuditSink(store, time.Now),
		Settings: lounge.Settings,
		Now:      time.Now,
	}
	pricing := services.NewPricingResolver(rt)
	inventory := services.NewInventoryLedger(rt)
	bookings := services.NewBookingService(rt, pricing, inventory, services.PolicyFromSettings(lounge.Settings))
	groups := services.NewGroupCoordinator(rt, bookings)
	settings := services.NewSettingsService(rt)
	reports := services.NewReportService(rt, inventory)
	auth := services.NewAuthService(rt)

	if err := pricing.Seed(ctx, lounge.Rules, lounge.HappyHours); err != nil {
		utils.LogError(err, "Failed to seed pricing from the lounge layout")
		os.Exit(1)
	}
	if err := auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		utils.LogError(err, "Failed to create bootstrap admin")
		os.Exit(1)
	}

	sweeper := services.NewLiveBillingSweeper(rt, pricing, quotes, cfg.SweepInterval)
	go sweeper.Run(ctx)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.RequestID())
	engine.Use(utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", utils.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{utils.RequestIDHeader, "Retry-After"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.Setup(engine, router.Dependencies{
		Bookings:       bookings,
		Groups:         groups,
		Inventory:      inventory,
		Pricing:        pricing,
		Settings:       settings,
		Reports:        reports,
		Auth:           auth,
		Quotes:         quotes,
		Lounge:         lounge.Settings,
		Redis:          rdb,
		LoginRateLimit: cfg.LoginRateLimit,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port, "store": cfg.StoreDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError(err, "Failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Server shutdown failed")
	}
}
