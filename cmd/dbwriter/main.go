package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storeops/uptime-server/internal/database"
	"github.com/storeops/uptime-server/internal/queue"
	"github.com/storeops/uptime-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Database Writer Service...")
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// One consumer and batch writer per dataset topic
	topics := []string{cfg.Kafka.TopicStatus, cfg.Kafka.TopicHours, cfg.Kafka.TopicTimezone}

	ctx := context.Background()
	var writers []*queue.BatchWriter
	var consumers []*queue.Consumer

	for _, topic := range topics {
		consumer := queue.NewConsumer(cfg.Kafka.Brokers, topic, "dbwriter-group")
		consumers = append(consumers, consumer)

		writer := queue.NewBatchWriter(consumer, db, cfg.Ingest.BatchSize, cfg.Ingest.FlushInterval)
		if err := writer.Start(ctx); err != nil {
			log.Fatalf("Failed to start batch writer for %s: %v", topic, err)
		}
		writers = append(writers, writer)
		fmt.Printf("Batch writer started for topic %s\n", topic)
	}

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			for i, consumer := range consumers {
				stats := consumer.Stats()
				fmt.Printf("Consumer stats (%s): Messages=%d, Bytes=%d, Errors=%d\n",
					topics[i], stats.Messages, stats.Bytes, stats.Errors)
			}
		}
	}()

	fmt.Println("\n✓ Database Writer Service is running")
	fmt.Printf("✓ Batch size: %d messages | Flush interval: %s\n", cfg.Ingest.BatchSize, cfg.Ingest.FlushInterval)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	for _, writer := range writers {
		writer.Stop()
	}
	for _, consumer := range consumers {
		consumer.Close()
	}
	fmt.Println("Database Writer Service stopped")
}
