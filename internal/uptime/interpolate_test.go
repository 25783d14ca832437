package uptime

import (
	"testing"
	"time"

	"github.com/storeops/uptime-server/internal/database"
)

func obsAt(storeID string, ts time.Time, status string) database.Observation {
	return database.Observation{StoreID: storeID, Timestamp: ts, Status: status}
}

func TestInterpolator_StepFunction(t *testing.T) {
	ip := NewInterpolator(false)

	rangeStart := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.Add(time.Hour)
	t0 := rangeStart.Add(10 * time.Minute)
	t1 := rangeStart.Add(25 * time.Minute)
	t2 := rangeStart.Add(40 * time.Minute)

	obs := []database.Observation{
		obsAt("s1", t0, database.StatusActive),
		obsAt("s1", t1, database.StatusInactive),
		obsAt("s1", t2, database.StatusActive),
	}

	segments := ip.Segments(obs, rangeStart, rangeEnd)
	want := []Segment{
		{Start: rangeStart, End: t0, Status: database.StatusInactive},
		{Start: t0, End: t1, Status: database.StatusActive},
		{Start: t1, End: t2, Status: database.StatusInactive},
		{Start: t2, End: rangeEnd, Status: database.StatusActive},
	}

	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %v", len(want), len(segments), segments)
	}
	for i, seg := range segments {
		if !seg.Start.Equal(want[i].Start) || !seg.End.Equal(want[i].End) || seg.Status != want[i].Status {
			t.Errorf("segment %d: got %v, want %v", i, seg, want[i])
		}
	}
}

func TestInterpolator_CoversRangeWithoutGaps(t *testing.T) {
	ip := NewInterpolator(false)

	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.Add(24 * time.Hour)
	obs := []database.Observation{
		obsAt("s1", rangeStart.Add(3*time.Hour), database.StatusActive),
		obsAt("s1", rangeStart.Add(9*time.Hour), database.StatusActive),
		obsAt("s1", rangeStart.Add(15*time.Hour), database.StatusInactive),
	}

	segments := ip.Segments(obs, rangeStart, rangeEnd)

	cursor := rangeStart
	var total time.Duration
	for _, seg := range segments {
		if !seg.Start.Equal(cursor) {
			t.Fatalf("gap before segment starting at %v", seg.Start)
		}
		cursor = seg.End
		total += seg.End.Sub(seg.Start)
	}
	if !cursor.Equal(rangeEnd) {
		t.Errorf("segments end at %v, want %v", cursor, rangeEnd)
	}
	if total != 24*time.Hour {
		t.Errorf("total segment duration %v, want 24h", total)
	}

	// Equal-status runs are merged
	for i := 1; i < len(segments); i++ {
		if segments[i].Status == segments[i-1].Status {
			t.Errorf("segments %d and %d share status %s", i-1, i, segments[i].Status)
		}
	}
}

func TestInterpolator_ObservationAtRangeStart(t *testing.T) {
	ip := NewInterpolator(false)

	rangeStart := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.Add(time.Hour)
	obs := []database.Observation{
		obsAt("s1", rangeStart, database.StatusActive),
	}

	segments := ip.Segments(obs, rangeStart, rangeEnd)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Status != database.StatusActive {
		t.Errorf("observation at range start should set status, got %s", segments[0].Status)
	}
}

func TestInterpolator_ObservationBeforeRange(t *testing.T) {
	ip := NewInterpolator(false)

	rangeStart := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.Add(time.Hour)
	obs := []database.Observation{
		obsAt("s1", rangeStart.Add(-2*time.Hour), database.StatusActive),
	}

	segments := ip.Segments(obs, rangeStart, rangeEnd)
	if len(segments) != 1 || segments[0].Status != database.StatusActive {
		t.Errorf("status should extrapolate forward from the last prior observation: %v", segments)
	}
}

func TestInterpolator_UnknownStatusDefault(t *testing.T) {
	rangeStart := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.Add(time.Hour)

	segments := NewInterpolator(false).Segments(nil, rangeStart, rangeEnd)
	if len(segments) != 1 || segments[0].Status != database.StatusInactive {
		t.Errorf("default unknown status should be inactive: %v", segments)
	}

	segments = NewInterpolator(true).Segments(nil, rangeStart, rangeEnd)
	if len(segments) != 1 || segments[0].Status != database.StatusActive {
		t.Errorf("configured unknown status should be active: %v", segments)
	}
}

func TestInterpolator_EmptyRange(t *testing.T) {
	ip := NewInterpolator(false)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	if segments := ip.Segments(nil, at, at); segments != nil {
		t.Errorf("empty range should produce no segments, got %v", segments)
	}
}
