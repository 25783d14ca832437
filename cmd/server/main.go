package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storeops/uptime-server/internal/api"
	"github.com/storeops/uptime-server/internal/database"
	"github.com/storeops/uptime-server/internal/notification"
	"github.com/storeops/uptime-server/internal/report"
	"github.com/storeops/uptime-server/internal/timer"
	"github.com/storeops/uptime-server/internal/uptime"
	"github.com/storeops/uptime-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Uptime Report Server...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	// Create timer manager for job timeouts
	timerManager := timer.NewManager()
	timerManager.Start()
	defer timerManager.Stop()
	fmt.Println("Timer manager started")

	// Create the report pipeline
	aggregator := uptime.NewAggregator(uptime.Policies{
		DefaultTimezone:     cfg.Report.DefaultTimezone,
		MissingHoursOpen:    cfg.Report.MissingHoursOpen,
		UnknownStatusActive: cfg.Report.UnknownStatusActive,
	})
	store := report.NewStore(redisClient, cfg.Report.ArtifactTTL)
	notifier := notification.NewEmailNotifier(&cfg.SMTP)
	jobs := report.NewManager(db, store, aggregator, timerManager, cfg.Report.JobTimeout, notifier)
	fmt.Printf("Job manager ready (timeout=%s)\n", cfg.Report.JobTimeout)

	// Build HTTP server
	handlers := api.New(jobs, db, redisClient)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPServer.Port),
		Handler: handlers.Router(),
	}

	go func() {
		fmt.Printf("HTTP server listening on :%d\n", cfg.HTTPServer.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	fmt.Println("\n✓ Uptime Report Server is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	jobs.Stop()
	fmt.Println("Uptime Report Server stopped")
}
