// Package main is the entry point for the UGC Platform API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/config"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/database"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/handlers"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/router"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/aiedit"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/contentrequest"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/notify"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/storage"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/thumbnail"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/video"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/webhook"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// cleanupInterval is how often failed blob deletions are retried.
const cleanupInterval = 15 * time.Minute

func main() {
	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		logger.Log.Fatalf("❌ Failed to initialise logging: %v", err)
	}
	log := logger.WithComponent("main")

	log.Infof("🚀 UGC Platform API %s starting...", Version)
	log.Infof("📋 Config loaded: port=%s, workers=%d, gin_mode=%s", cfg.Port, cfg.WorkerCount, cfg.GinMode)
	gin.SetMode(cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Info("✅ Database connected")

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	blobs, err := storage.NewLocal(cfg.StorageDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to prepare storage: %v", err)
	}
	log.Infof("✅ Blob storage at %s", cfg.StorageDir)

	mock := aiedit.NewMock()
	var suggester aiedit.Suggester = mock
	if cfg.OpenRouterAPIKey != "" {
		suggester = aiedit.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		log.Infof("✅ AI suggestions via OpenRouter (%s)", cfg.OpenRouterModel)
	} else {
		log.Warn("⚠️  AI suggestions are mocked (set OPENROUTER_API_KEY to enable)")
	}

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.SMTPHost != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		log.Infof("✅ Email notifications via %s:%d", cfg.SMTPHost, cfg.SMTPPort)
	} else {
		log.Warn("⚠️  Email notifications are only logged (set SMTP_HOST to send)")
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.AppURL)

	webhookService := webhook.New(db)
	log.Info("✅ Webhook notification service initialized")

	// Step 4: Create and Start Worker Pool
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, worker.Deps{
		Store:      db,
		Blobs:      blobs,
		Thumbnails: thumbnail.NewPlaceholder(blobs),
		Editor:     mock,
		Events:     webhookService,
	})
	wp.Start()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				wp.SweepCleanups(sweepCtx)
			}
		}
	}()

	// Step 5: Setup HTTP Router
	h := handlers.NewHandler(handlers.Deps{
		Users:     db,
		Webhooks:  db,
		Health:    db,
		Queue:     wp,
		Requests:  contentrequest.New(db, dispatcher, webhookService),
		Videos:    video.New(db, blobs, wp, suggester),
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    time.Duration(cfg.JWTTTLHours) * time.Hour,
	})
	r := router.Setup(h, router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.DefaultRateLimit,
		StorageDir:     cfg.StorageDir,
	})

	// Step 6: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  5 * time.Minute, // 100 MB uploads on slow links
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Infof("📖 Health check: http://localhost:%s/api/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Infof("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("⚠️  Server forced to shutdown")
	}

	stopSweep()
	wp.Stop()
	log.Info("⏳ Workers drained")

	// Signal webhook service to stop pending deliveries
	webhookService.Shutdown()

	log.Info("👋 Server stopped. Goodbye!")
}
