package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/storeops/uptime-server/internal/ingest"
	"github.com/storeops/uptime-server/internal/queue"
	"github.com/storeops/uptime-server/pkg/config"
)

func main() {
	statusPath := flag.String("status", "store_status.csv", "path to the store_status CSV file")
	hoursPath := flag.String("hours", "store_hours.csv", "path to the store_hours CSV file")
	timezonePath := flag.String("timezones", "store_timezone.csv", "path to the store_timezone CSV file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting CSV ingest...")

	// Create topics up front; ignore failures for topics that already exist
	for _, topic := range []string{cfg.Kafka.TopicStatus, cfg.Kafka.TopicHours, cfg.Kafka.TopicTimezone} {
		if err := queue.CreateTopic(cfg.Kafka.Brokers, topic, cfg.Kafka.NumPartitions, 1); err != nil {
			fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
		}
	}

	statusProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStatus)
	defer statusProducer.Close()
	hoursProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicHours)
	defer hoursProducer.Close()
	timezoneProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTimezone)
	defer timezoneProducer.Close()

	loader := ingest.NewLoader(statusProducer, hoursProducer, timezoneProducer)
	ctx := context.Background()

	// Each file is validated completely before a single row is published:
	// a bad file is rejected whole and the run aborts.
	n, err := loader.LoadTimezoneFile(ctx, *timezonePath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *timezonePath, err)
	}
	fmt.Printf("Published %d timezone rows\n", n)

	n, err = loader.LoadHoursFile(ctx, *hoursPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *hoursPath, err)
	}
	fmt.Printf("Published %d business-hours rows\n", n)

	n, err = loader.LoadStatusFile(ctx, *statusPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *statusPath, err)
	}
	fmt.Printf("Published %d status rows\n", n)

	fmt.Println("Ingest complete")
}
