package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/storeops/uptime-server/internal/apperrors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestReadStatusFile(t *testing.T) {
	path := writeFile(t, "store_status.csv",
		"store_id,timestamp_utc,status\n"+
			"S1,2023-01-25 10:05:00.123456 UTC,active\n"+
			"S2,2023-01-25T10:10:00Z,inactive\n")

	rows, err := ReadStatusFile(path)
	if err != nil {
		t.Fatalf("ReadStatusFile failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].StoreID != "S1" || rows[0].Status != "active" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}

	ts, err := rows[1].Timestamp()
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Hour() != 10 || ts.Minute() != 10 {
		t.Errorf("unexpected timestamp: %v", ts)
	}
}

func TestReadStatusFile_RejectsWholeFileOnBadRow(t *testing.T) {
	path := writeFile(t, "store_status.csv",
		"store_id,timestamp_utc,status\n"+
			"S1,2023-01-25 10:05:00 UTC,active\n"+
			"S2,not-a-timestamp,active\n"+
			"S3,2023-01-25 10:15:00 UTC,inactive\n")

	rows, err := ReadStatusFile(path)
	if err == nil {
		t.Fatal("expected error for malformed row")
	}
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if rows != nil {
		t.Error("a rejected file must yield no rows at all")
	}
}

func TestReadStatusFile_RejectsBadStatus(t *testing.T) {
	path := writeFile(t, "store_status.csv",
		"store_id,timestamp_utc,status\n"+
			"S1,2023-01-25 10:05:00 UTC,open\n")

	if _, err := ReadStatusFile(path); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ValidationError for bad status, got %v", err)
	}
}

func TestReadStatusFile_RejectsWrongHeader(t *testing.T) {
	path := writeFile(t, "store_status.csv",
		"id,time,state\nS1,2023-01-25 10:05:00 UTC,active\n")

	if _, err := ReadStatusFile(path); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ValidationError for wrong header, got %v", err)
	}
}

func TestReadHoursFile(t *testing.T) {
	path := writeFile(t, "store_hours.csv",
		"store_id,day_of_week,start_time_local,end_time_local\n"+
			"S1,0,09:00:00,17:00:00\n"+
			"S1,1,09:00,17:00\n")

	rows, err := ReadHoursFile(path)
	if err != nil {
		t.Fatalf("ReadHoursFile failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].DayOfWeek != 1 {
		t.Errorf("unexpected day: %d", rows[1].DayOfWeek)
	}
}

func TestReadHoursFile_RejectsBadDay(t *testing.T) {
	path := writeFile(t, "store_hours.csv",
		"store_id,day_of_week,start_time_local,end_time_local\n"+
			"S1,7,09:00:00,17:00:00\n")

	if _, err := ReadHoursFile(path); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ValidationError for day 7, got %v", err)
	}
}

func TestReadTimezoneFile(t *testing.T) {
	path := writeFile(t, "store_timezone.csv",
		"store_id,timezone_str\n"+
			"S1,America/Chicago\n"+
			"S2,Asia/Tokyo\n")

	rows, err := ReadTimezoneFile(path)
	if err != nil {
		t.Fatalf("ReadTimezoneFile failed: %v", err)
	}
	if len(rows) != 2 || rows[1].TimezoneStr != "Asia/Tokyo" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestReadTimezoneFile_RejectsUnknownZone(t *testing.T) {
	path := writeFile(t, "store_timezone.csv",
		"store_id,timezone_str\nS1,Not/AZone\n")

	if _, err := ReadTimezoneFile(path); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ValidationError for unknown zone, got %v", err)
	}
}

func TestReadStatusFile_EmptyFile(t *testing.T) {
	path := writeFile(t, "store_status.csv", "")

	if _, err := ReadStatusFile(path); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ValidationError for missing header, got %v", err)
	}
}
