package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/storeops/uptime-server/internal/database"
	"github.com/storeops/uptime-server/internal/protocol"
)

// BatchWriter consumes ingest row messages from Kafka and batch-writes
// them to the database. Each flush writes one transaction per dataset and
// commits offsets only after the writes succeed.
type BatchWriter struct {
	consumer      *Consumer
	db            *database.DB
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(consumer *Consumer, db *database.DB, batchSize int, flushInterval time.Duration) *BatchWriter {
	return &BatchWriter{
		consumer:      consumer,
		db:            db,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to the database
func (bw *BatchWriter) Start(ctx context.Context) error {
	bw.wg.Add(1)
	go bw.run(ctx)
	return nil
}

// Stop stops the batch writer gracefully
func (bw *BatchWriter) Stop() {
	close(bw.stopCh)
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := bw.consumer.Consume(ctx)
			if err != nil {
				select {
				case <-bw.stopCh:
					return
				default:
				}
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			select {
			case msgChan <- msg:
			case <-bw.stopCh:
				return
			}
		}
	}()

	for {
		select {
		case <-bw.stopCh:
			// Flush remaining batch before stopping
			if len(batch) > 0 {
				bw.flush(ctx, batch)
			}
			return

		case <-ticker.C:
			if len(batch) > 0 {
				fmt.Printf("Flush interval reached (%d messages), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)
			if len(batch) >= bw.batchSize {
				fmt.Printf("Batch full (%d messages), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	var observations []database.Observation
	var hours []database.BusinessHours
	var timezones []database.Timezone

	decoded := 0
	for _, msg := range batch {
		parsed, err := protocol.ParseMessage(msg.Value)
		if err != nil {
			// Rows are validated before they reach Kafka; a decode failure
			// here means a corrupt message, which is skipped and committed
			// so it cannot wedge the partition.
			fmt.Printf("Skipping undecodable message (partition=%d, offset=%d): %v\n",
				msg.Partition, msg.Offset, err)
			continue
		}
		decoded++

		switch m := parsed.(type) {
		case *protocol.StatusMessage:
			ts, err := m.Timestamp()
			if err != nil {
				fmt.Printf("Skipping status row with bad timestamp: %v\n", err)
				continue
			}
			observations = append(observations, database.Observation{
				StoreID:   m.StoreID,
				Timestamp: ts,
				Status:    m.Status,
			})
		case *protocol.HoursMessage:
			start, _ := protocol.ParseLocalTime(m.StartLocal)
			end, _ := protocol.ParseLocalTime(m.EndLocal)
			hours = append(hours, database.BusinessHours{
				StoreID:    m.StoreID,
				DayOfWeek:  m.DayOfWeek,
				StartLocal: start,
				EndLocal:   end,
			})
		case *protocol.TimezoneMessage:
			timezones = append(timezones, database.Timezone{
				StoreID:     m.StoreID,
				TimezoneStr: m.TimezoneStr,
			})
		}
	}

	if err := bw.db.InsertObservations(ctx, observations); err != nil {
		fmt.Printf("Failed to write observation batch: %v\n", err)
		return
	}
	if err := bw.db.InsertBusinessHours(ctx, hours); err != nil {
		fmt.Printf("Failed to write business-hours batch: %v\n", err)
		return
	}
	if err := bw.db.UpsertTimezones(ctx, timezones); err != nil {
		fmt.Printf("Failed to write timezone batch: %v\n", err)
		return
	}

	// Commit offsets only after the database writes succeeded
	for _, msg := range batch {
		if err := bw.consumer.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	fmt.Printf("Flushed batch of %d messages to database\n", decoded)
}
