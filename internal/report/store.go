package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job statuses. A job is created Running and transitions exactly once to
// Complete or Failed.
const (
	StatusRunning  = "Running"
	StatusComplete = "Complete"
	StatusFailed   = "Failed"
)

// JobRecord is the persisted state of one report job
type JobRecord struct {
	ReportID     string    `json:"report_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Store persists job records and report artifacts in Redis. Every state
// transition is a single SET, so readers observe either the old record or
// the new one, never a partial write.
type Store struct {
	redis       *redis.Client
	artifactTTL time.Duration // 0 keeps artifacts until explicitly deleted
}

// NewStore creates a report store
func NewStore(redisClient *redis.Client, artifactTTL time.Duration) *Store {
	return &Store{redis: redisClient, artifactTTL: artifactTTL}
}

func jobKey(reportID string) string      { return "report:job:" + reportID }
func artifactKey(reportID string) string { return "report:artifact:" + reportID }

// SaveJob writes a job record. Terminal records carry the artifact TTL so
// a job and its artifact expire together when retention is configured.
func (s *Store) SaveJob(ctx context.Context, rec *JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal job record: %w", err)
	}

	var ttl time.Duration
	if rec.Status != StatusRunning {
		ttl = s.artifactTTL
	}

	if err := s.redis.Set(ctx, jobKey(rec.ReportID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}
	return nil
}

// GetJob retrieves a job record; it returns (nil, nil) when none exists
func (s *Store) GetJob(ctx context.Context, reportID string) (*JobRecord, error) {
	data, err := s.redis.Get(ctx, jobKey(reportID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}

	var rec JobRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job record: %w", err)
	}
	return &rec, nil
}

// SaveArtifact persists the report CSV for a completed job
func (s *Store) SaveArtifact(ctx context.Context, reportID string, data []byte) error {
	if err := s.redis.Set(ctx, artifactKey(reportID), data, s.artifactTTL).Err(); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves a report CSV; it returns (nil, nil) when none exists
func (s *Store) GetArtifact(ctx context.Context, reportID string) ([]byte, error) {
	data, err := s.redis.Get(ctx, artifactKey(reportID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return data, nil
}

// Delete discards a job record and its artifact
func (s *Store) Delete(ctx context.Context, reportID string) error {
	if err := s.redis.Del(ctx, jobKey(reportID), artifactKey(reportID)).Err(); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}
