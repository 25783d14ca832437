package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storeops/uptime-server/internal/database"
	"github.com/storeops/uptime-server/internal/report"
	"github.com/storeops/uptime-server/internal/timer"
	"github.com/storeops/uptime-server/internal/uptime"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore is an in-memory JobStore for handler tests
type memStore struct {
	mu        sync.Mutex
	jobs      map[string]*report.JobRecord
	artifacts map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{
		jobs:      make(map[string]*report.JobRecord),
		artifacts: make(map[string][]byte),
	}
}

func (s *memStore) SaveJob(ctx context.Context, rec *report.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.jobs[rec.ReportID] = &cp
	return nil
}

func (s *memStore) GetJob(ctx context.Context, reportID string) (*report.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[reportID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) SaveArtifact(ctx context.Context, reportID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[reportID] = data
	return nil
}

func (s *memStore) GetArtifact(ctx context.Context, reportID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifacts[reportID], nil
}

func (s *memStore) Delete(ctx context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, reportID)
	delete(s.artifacts, reportID)
	return nil
}

// fakeSource serves a fixed snapshot, optionally after a delay
type fakeSource struct {
	snap  *database.Snapshot
	delay time.Duration
}

func (f *fakeSource) LoadSnapshot(ctx context.Context) (*database.Snapshot, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.snap, nil
}

func testSnapshot() *database.Snapshot {
	ref := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &database.Snapshot{
		Observations: map[string][]database.Observation{
			"S1": {
				{StoreID: "S1", Timestamp: ref.Add(-time.Hour), Status: database.StatusActive},
				{StoreID: "S1", Timestamp: ref, Status: database.StatusActive},
			},
		},
		Hours:            map[string][]database.BusinessHours{},
		Timezones:        map[string]string{"S1": "UTC"},
		ReferenceInstant: ref,
		StoreIDs:         []string{"S1"},
	}
}

func newTestRouter(t *testing.T, source report.SnapshotSource) (*gin.Engine, *report.Manager) {
	t.Helper()

	tm := timer.NewManager()
	tm.Start()
	t.Cleanup(tm.Stop)

	agg := uptime.NewAggregator(uptime.Policies{
		DefaultTimezone:  "America/Chicago",
		MissingHoursOpen: true,
	})
	jobs := report.NewManager(source, newMemStore(), agg, tm, 5*time.Second, nil)
	t.Cleanup(jobs.Stop)

	a := New(jobs, nil, nil)
	return a.Router(), jobs
}

func doRequest(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func triggerReport(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/trigger_report")
	if w.Code != http.StatusOK {
		t.Fatalf("trigger_report returned %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		ReportID string `json:"report_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid trigger response: %v", err)
	}
	if body.ReportID == "" {
		t.Fatal("trigger response has no report_id")
	}
	return body.ReportID
}

func TestTriggerThenDownload(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{snap: testSnapshot()})

	reportID := triggerReport(t, router)

	deadline := time.Now().Add(2 * time.Second)
	for {
		w := doRequest(router, http.MethodGet, "/get_report?report_id="+reportID)
		if w.Code != http.StatusOK {
			t.Fatalf("get_report returned %d: %s", w.Code, w.Body.String())
		}

		if strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
			if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "report.csv") {
				t.Errorf("unexpected Content-Disposition: %q", got)
			}
			lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
			if lines[0] != strings.Join(report.ArtifactHeader, ",") {
				t.Errorf("unexpected CSV header: %q", lines[0])
			}
			if len(lines) != 2 || !strings.HasPrefix(lines[1], "S1,") {
				t.Errorf("expected one data row for S1, got %v", lines[1:])
			}
			return
		}

		if time.Now().After(deadline) {
			t.Fatalf("report never completed, last response: %s", w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetReport_RunningStatus(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{snap: testSnapshot(), delay: 300 * time.Millisecond})

	reportID := triggerReport(t, router)

	w := doRequest(router, http.MethodGet, "/get_report?report_id="+reportID)
	if w.Code != http.StatusOK {
		t.Fatalf("get_report returned %d", w.Code)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if body.Status != report.StatusRunning {
		t.Errorf("expected status %q, got %q", report.StatusRunning, body.Status)
	}
}

func TestGetReport_MissingID(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{snap: testSnapshot()})

	w := doRequest(router, http.MethodGet, "/get_report")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetReport_UnknownID(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{snap: testSnapshot()})

	w := doRequest(router, http.MethodGet, "/get_report?report_id=no-such-report")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "report not found") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestDiscardReport(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{snap: testSnapshot()})

	reportID := triggerReport(t, router)

	// Wait for the job to settle before discarding
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := doRequest(router, http.MethodGet, "/get_report?report_id="+reportID)
		if strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("report never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	w := doRequest(router, http.MethodDelete, "/report?report_id="+reportID)
	if w.Code != http.StatusOK {
		t.Fatalf("discard returned %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/get_report?report_id="+reportID)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after discard, got %d", w.Code)
	}
}

func TestDiscardReport_StillRunning(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{snap: testSnapshot(), delay: 300 * time.Millisecond})

	reportID := triggerReport(t, router)

	w := doRequest(router, http.MethodDelete, "/report?report_id="+reportID)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for running job, got %d", w.Code)
	}
}
