package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storeops/uptime-server/internal/apperrors"
	"github.com/storeops/uptime-server/internal/database"
	"github.com/storeops/uptime-server/internal/timer"
	"github.com/storeops/uptime-server/internal/uptime"
)

// SnapshotSource provides a consistent read-only view of the source
// datasets. *database.DB implements it.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (*database.Snapshot, error)
}

// JobStore persists job records and artifacts; *Store is the Redis
// implementation.
type JobStore interface {
	SaveJob(ctx context.Context, rec *JobRecord) error
	GetJob(ctx context.Context, reportID string) (*JobRecord, error)
	SaveArtifact(ctx context.Context, reportID string, data []byte) error
	GetArtifact(ctx context.Context, reportID string) ([]byte, error)
	Delete(ctx context.Context, reportID string) error
}

// Notifier is told about failed jobs; it may be nil
type Notifier interface {
	NotifyJobFailed(reportID, errorKind, errorMessage string)
}

// Manager owns the asynchronous report lifecycle: it allocates jobs, runs
// the aggregation off the request path, enforces the per-job lifetime and
// exposes status and results. Each job transitions Running -> Complete or
// Running -> Failed exactly once; the in-process running set guarantees a
// single writer per job, so the completion and timeout paths cannot both
// commit.
type Manager struct {
	source     SnapshotSource
	store      JobStore
	aggregator *uptime.Aggregator
	timers     *timer.Manager
	jobTimeout time.Duration
	notifier   Notifier

	mu      sync.Mutex
	running map[string]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewManager creates a job manager. notifier may be nil.
func NewManager(source SnapshotSource, store JobStore, aggregator *uptime.Aggregator, timers *timer.Manager, jobTimeout time.Duration, notifier Notifier) *Manager {
	return &Manager{
		source:     source,
		store:      store,
		aggregator: aggregator,
		timers:     timers,
		jobTimeout: jobTimeout,
		notifier:   notifier,
		running:    make(map[string]struct{}),
	}
}

// Trigger allocates a new report job and schedules its computation on a
// background goroutine. It returns the report id immediately and never
// blocks on the computation.
func (m *Manager) Trigger(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return "", fmt.Errorf("job manager is stopped")
	}
	m.mu.Unlock()

	reportID := uuid.New().String()
	rec := &JobRecord{
		ReportID:  reportID,
		Status:    StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveJob(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	m.mu.Lock()
	m.running[reportID] = struct{}{}
	m.wg.Add(1)
	m.mu.Unlock()

	deadline := time.Now().Add(m.jobTimeout)
	if err := m.timers.Schedule(timeoutTaskID(reportID), deadline, func() {
		m.failJob(context.Background(), reportID,
			fmt.Errorf("job exceeded maximum lifetime of %s: %w", m.jobTimeout, apperrors.ErrTimeout))
	}); err != nil {
		log.Printf("Failed to schedule timeout for job %s: %v", reportID, err)
	}

	go m.compute(reportID)

	return reportID, nil
}

// Status returns the job's current record; unknown ids are NotFound
func (m *Manager) Status(ctx context.Context, reportID string) (*JobRecord, error) {
	rec, err := m.store.GetJob(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("report %s: %w", reportID, apperrors.ErrNotFound)
	}
	return rec, nil
}

// Result returns the job record and, for a Complete job, its artifact.
// Running jobs return a nil artifact; that is not an error. A Complete
// record whose artifact has been discarded is NotFound.
func (m *Manager) Result(ctx context.Context, reportID string) (*JobRecord, []byte, error) {
	rec, err := m.Status(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}

	if rec.Status != StatusComplete {
		return rec, nil, nil
	}

	artifact, err := m.store.GetArtifact(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if artifact == nil {
		return nil, nil, fmt.Errorf("artifact for report %s has been discarded: %w", reportID, apperrors.ErrNotFound)
	}
	return rec, artifact, nil
}

// Discard removes a terminal job and its artifact. Running jobs cannot be
// discarded: cancellation is not supported.
func (m *Manager) Discard(ctx context.Context, reportID string) error {
	rec, err := m.Status(ctx, reportID)
	if err != nil {
		return err
	}
	if rec.Status == StatusRunning {
		return fmt.Errorf("report %s is still running: %w", reportID, apperrors.ErrValidation)
	}
	return m.store.Delete(ctx, reportID)
}

// Stop refuses new jobs and waits for in-flight computations to settle
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.wg.Wait()
}

// compute runs the aggregation for one job and commits the outcome
func (m *Manager) compute(reportID string) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.failJob(context.Background(), reportID,
				fmt.Errorf("panic during aggregation: %v: %w", r, apperrors.ErrComputation))
		}
	}()

	ctx := context.Background()

	snap, err := m.source.LoadSnapshot(ctx)
	if err != nil {
		m.failJob(ctx, reportID, fmt.Errorf("snapshot read failed: %v: %w", err, apperrors.ErrComputation))
		return
	}

	records, err := m.aggregator.Aggregate(snap)
	if err != nil {
		if !errors.Is(err, apperrors.ErrConfig) {
			err = fmt.Errorf("%v: %w", err, apperrors.ErrComputation)
		}
		m.failJob(ctx, reportID, err)
		return
	}

	artifact, err := WriteCSV(records)
	if err != nil {
		m.failJob(ctx, reportID, fmt.Errorf("artifact serialization failed: %v: %w", err, apperrors.ErrComputation))
		return
	}

	m.completeJob(ctx, reportID, artifact)
}

// claim removes the job from the running set; the caller that gets true
// is the only writer allowed to commit the job's terminal state.
func (m *Manager) claim(reportID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.running[reportID]; !ok {
		return false
	}
	delete(m.running, reportID)
	return true
}

func (m *Manager) completeJob(ctx context.Context, reportID string, artifact []byte) {
	if !m.claim(reportID) {
		return
	}
	m.timers.Cancel(timeoutTaskID(reportID))

	// The artifact is written first: a Complete record must never be
	// visible without its artifact.
	if err := m.store.SaveArtifact(ctx, reportID, artifact); err != nil {
		log.Printf("Job %s: failed to persist artifact: %v", reportID, err)
		m.commitFailure(ctx, reportID, fmt.Errorf("artifact persistence failed: %v: %w", err, apperrors.ErrComputation))
		return
	}

	rec := &JobRecord{
		ReportID:  reportID,
		Status:    StatusComplete,
		CreatedAt: time.Now().UTC(),
	}
	if existing, err := m.store.GetJob(ctx, reportID); err == nil && existing != nil {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := m.store.SaveJob(ctx, rec); err != nil {
		log.Printf("Job %s: failed to commit completion: %v", reportID, err)
		return
	}

	log.Printf("Job %s: complete (%d bytes)", reportID, len(artifact))
}

func (m *Manager) failJob(ctx context.Context, reportID string, cause error) {
	if !m.claim(reportID) {
		return
	}
	m.timers.Cancel(timeoutTaskID(reportID))
	m.commitFailure(ctx, reportID, cause)
}

func (m *Manager) commitFailure(ctx context.Context, reportID string, cause error) {
	kind := apperrors.Kind(cause)
	log.Printf("Job %s: failed (%s): %v", reportID, kind, cause)

	rec := &JobRecord{
		ReportID:     reportID,
		Status:       StatusFailed,
		CreatedAt:    time.Now().UTC(),
		ErrorKind:    kind,
		ErrorMessage: cause.Error(),
	}
	if existing, err := m.store.GetJob(ctx, reportID); err == nil && existing != nil {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := m.store.SaveJob(ctx, rec); err != nil {
		log.Printf("Job %s: failed to commit failure: %v", reportID, err)
		return
	}

	if m.notifier != nil {
		m.notifier.NotifyJobFailed(reportID, kind, cause.Error())
	}
}

func timeoutTaskID(reportID string) string {
	return "report-timeout:" + reportID
}
