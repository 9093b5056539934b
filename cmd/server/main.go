package main

import (
	"context"                         // Startup and shutdown deadlines
	"errors"                          // Server close detection
	"net/http"                        // HTTP server
	"os"                              // Signals
	"os/signal"                       // Graceful shutdown
	"scorekeeper/internal/api"        // HTTP routes
	"scorekeeper/internal/config"     // Configuration
	"scorekeeper/internal/db"         // Database connection
	"scorekeeper/internal/jobs"       // Periodic maintenance
	"scorekeeper/internal/notify"     // Reset mail delivery
	"scorekeeper/internal/repository" // Persistence
	"scorekeeper/internal/service"    // Use cases
	"scorekeeper/internal/storage"    // Team image uploads
	"scorekeeper/internal/utils"      // Locks and cache
	"syscall"                         // SIGTERM
	"time"                            // Timeouts

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine-readable logs in production
	}
	log := logrus.StandardLogger()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	store := openStore(cfg, log)

	// Redis is optional: it backs the cache and cross-replica locks when present
	var (
		locker utils.Locker = utils.NewKeyedMutex()
		cache               = utils.NewCache(nil)
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		locker = utils.NewRedisLocker(redisClient, 2*cfg.StoreTimeout)
		cache = utils.NewCache(redisClient)
	}

	// Reset mails go to Resend when a key is configured, to the log otherwise
	var mailer notify.Sender = notify.LogSender{Log: log}
	if cfg.ResendAPIKey != "" {
		mailer = notify.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom, cfg.ResetTokenTTL, log)
	}

	opts := service.Options{
		LockBuffer:   cfg.PredictionLockBuffer,
		StoreTimeout: cfg.StoreTimeout,
		Now:          time.Now,
	}
	auth := service.NewAuthService(store, mailer, service.AuthOptions{
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		BaseURL:       cfg.AppBaseURL,
	}, opts, log)
	matches := service.NewMatchService(store, locker, service.NewReconciler(log), opts, log)
	svc := api.Services{
		Auth:        auth,
		Teams:       service.NewTeamService(store, cache, opts, log),
		Matches:     matches,
		Predictions: service.NewPredictionService(store, locker, opts, log),
		Leaderboard: service.NewLeaderboardService(store, opts, log),
		Cache:       cache,
	}
	if cfg.S3Bucket != "" {
		images, err := storage.NewImageStore(context.Background(), storage.Options{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKeyID:   cfg.S3AccessKeyID,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("failed to configure image storage: %v", err)
		}
		svc.Images = images
	}

	sched, err := jobs.Start(&jobs.Runner{Sweeper: matches, Purger: auth, Log: log}, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(svc, log)
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		log.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithField("error", err.Error()).Error("HTTP shutdown failed")
	}
	if err := sched.Shutdown(); err != nil {
		log.WithField("error", err.Error()).Error("Scheduler shutdown failed")
	}
}

// openStore picks the persistence backend from DB_DRIVER
func openStore(cfg *config.Config, log *logrus.Logger) repository.Store {
	if cfg.DBDriver == "memory" {
		log.Warn("Using the in-memory store, data is lost on restart")
		return repository.NewMemoryStore()
	}
	gdb, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	return repository.NewGormStore(gdb)
}
