package ingest

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/storeops/uptime-server/internal/protocol"
	"github.com/storeops/uptime-server/internal/queue"
)

// publishChunkSize bounds the size of a single Kafka write
const publishChunkSize = 500

// Loader validates CSV datasets and publishes their rows to Kafka. A file
// is published only after every row has validated, so a bad file never
// reaches the pipeline partially.
type Loader struct {
	status    *queue.Producer
	hours     *queue.Producer
	timezones *queue.Producer
}

// NewLoader creates a loader with one producer per dataset topic
func NewLoader(status, hours, timezones *queue.Producer) *Loader {
	return &Loader{
		status:    status,
		hours:     hours,
		timezones: timezones,
	}
}

// LoadStatusFile reads, validates and publishes a store_status file
func (l *Loader) LoadStatusFile(ctx context.Context, path string) (int, error) {
	rows, err := ReadStatusFile(path)
	if err != nil {
		return 0, err
	}

	messages := make([]kafka.Message, 0, len(rows))
	for _, row := range rows {
		value, err := protocol.EncodeMessage(row)
		if err != nil {
			return 0, fmt.Errorf("failed to encode status row: %w", err)
		}
		messages = append(messages, kafka.Message{Key: []byte(row.StoreID), Value: value})
	}

	if err := publishChunked(ctx, l.status, messages); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// LoadHoursFile reads, validates and publishes a store_hours file
func (l *Loader) LoadHoursFile(ctx context.Context, path string) (int, error) {
	rows, err := ReadHoursFile(path)
	if err != nil {
		return 0, err
	}

	messages := make([]kafka.Message, 0, len(rows))
	for _, row := range rows {
		value, err := protocol.EncodeMessage(row)
		if err != nil {
			return 0, fmt.Errorf("failed to encode hours row: %w", err)
		}
		messages = append(messages, kafka.Message{Key: []byte(row.StoreID), Value: value})
	}

	if err := publishChunked(ctx, l.hours, messages); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// LoadTimezoneFile reads, validates and publishes a store_timezone file
func (l *Loader) LoadTimezoneFile(ctx context.Context, path string) (int, error) {
	rows, err := ReadTimezoneFile(path)
	if err != nil {
		return 0, err
	}

	messages := make([]kafka.Message, 0, len(rows))
	for _, row := range rows {
		value, err := protocol.EncodeMessage(row)
		if err != nil {
			return 0, fmt.Errorf("failed to encode timezone row: %w", err)
		}
		messages = append(messages, kafka.Message{Key: []byte(row.StoreID), Value: value})
	}

	if err := publishChunked(ctx, l.timezones, messages); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func publishChunked(ctx context.Context, producer *queue.Producer, messages []kafka.Message) error {
	for start := 0; start < len(messages); start += publishChunkSize {
		end := start + publishChunkSize
		if end > len(messages) {
			end = len(messages)
		}
		if err := producer.PublishBatch(ctx, messages[start:end]); err != nil {
			return fmt.Errorf("failed to publish rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}
