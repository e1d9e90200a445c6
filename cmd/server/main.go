package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/projecthub-api/internal/auth"
	"github.com/yukikurage/projecthub-api/internal/config"
	"github.com/yukikurage/projecthub-api/internal/constants"
	"github.com/yukikurage/projecthub-api/internal/database"
	"github.com/yukikurage/projecthub-api/internal/handlers"
	"github.com/yukikurage/projecthub-api/internal/logger"
	"github.com/yukikurage/projecthub-api/internal/metrics"
	"github.com/yukikurage/projecthub-api/internal/middleware"
	"github.com/yukikurage/projecthub-api/internal/mq"
	"github.com/yukikurage/projecthub-api/internal/notify"
	"github.com/yukikurage/projecthub-api/internal/realtime"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"go.uber.org/zap"
)

const (
	notificationWorkers = 4
	shutdownTimeout     = 10 * time.Second
	wsWriteTimeout      = 5 * time.Second
)

func main() {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog, err := logger.New(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db, zapLog); err != nil {
		zapLog.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zapLog.Fatal("Failed to connect to redis", zap.String("addr", cfg.RedisAddr()), zap.Error(err))
	}

	queue, err := newQueue(cfg, rdb, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to create notification queue", zap.Error(err))
	}
	defer queue.Close()

	store := repository.NewStore(db, cfg.LockTimeout)
	tokens := auth.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, auth.NewRedisRevocationStore(rdb))
	registry := realtime.NewRegistry(zapLog, wsWriteTimeout)
	defer registry.Close()

	dispatcher := notify.NewDispatcher(queue, zapLog)
	worker := notify.NewWorker(store.Notifications, registry, cfg.MaxPushAttempts, cfg.PushBackoff, zapLog)

	var workers sync.WaitGroup
	for i := 0; i < workerCount(cfg); i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := worker.Run(ctx, queue); err != nil {
				zapLog.Error("Notification worker stopped", zap.Error(err))
			}
		}()
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zapLog))

	// Setup session middleware with Redis
	sessionStore, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisAddr(),
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		zapLog.Fatal("Failed to create Redis store", zap.Error(err))
	}
	isProduction := cfg.GinMode == gin.ReleaseMode
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "ProjectHub API is running",
		})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/ws", realtime.NewHandler(registry, tokens, zapLog).Connect)
	handlers.NewRoutes(store, tokens, dispatcher, zapLog).Register(api)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Server shutdown failed", zap.Error(err))
	}
	workers.Wait()
}

// newQueue uses RabbitMQ when MQ_URL is set and an in-process queue otherwise.
func newQueue(cfg *config.Config, rdb *redis.Client, log *zap.Logger) (notify.Queue, error) {
	if cfg.MQURL == "" {
		log.Info("Using in-process notification queue")
		return notify.NewChannelQueue(cfg.QueueBuffer, int(cfg.MQMaxRedeliver), cfg.PushBackoff, log), nil
	}
	retries := mq.NewRetryCounter(rdb, 24*time.Hour)
	return notify.NewAMQPQueue(cfg.MQURL, notificationWorkers, retries, cfg.MQMaxRedeliver, cfg.MQRedeliverDelay, log)
}

// The AMQP consumer spreads deliveries over its prefetch window on its own.
func workerCount(cfg *config.Config) int {
	if cfg.MQURL != "" {
		return 1
	}
	return notificationWorkers
}
