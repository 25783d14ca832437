package uptime

import (
	"errors"
	"testing"
	"time"

	"github.com/storeops/uptime-server/internal/apperrors"
	"github.com/storeops/uptime-server/internal/database"
)

func TestWindowCalculator_MissingRowsOpenAllDay(t *testing.T) {
	calc, err := NewWindowCalculator(nil, true)
	if err != nil {
		t.Fatalf("NewWindowCalculator failed: %v", err)
	}

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		windows := calc.WindowsFor(wd)
		if len(windows) != 1 {
			t.Fatalf("weekday %v: expected 1 window, got %d", wd, len(windows))
		}
		if windows[0].Start != 0 || windows[0].End != secondsPerDay {
			t.Errorf("weekday %v: expected full-day window, got %v", wd, windows[0])
		}
	}
}

func TestWindowCalculator_MissingRowsClosed(t *testing.T) {
	calc, err := NewWindowCalculator(nil, false)
	if err != nil {
		t.Fatalf("NewWindowCalculator failed: %v", err)
	}

	if windows := calc.WindowsFor(time.Monday); len(windows) != 0 {
		t.Errorf("expected no windows, got %v", windows)
	}
}

func TestWindowCalculator_SortsWindows(t *testing.T) {
	rows := []database.BusinessHours{
		{StoreID: "s1", DayOfWeek: 0, StartLocal: "13:00:00", EndLocal: "17:00:00"},
		{StoreID: "s1", DayOfWeek: 0, StartLocal: "09:00:00", EndLocal: "12:00:00"},
	}

	calc, err := NewWindowCalculator(rows, true)
	if err != nil {
		t.Fatalf("NewWindowCalculator failed: %v", err)
	}

	// day_of_week 0 is Monday in the source data
	windows := calc.WindowsFor(time.Monday)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].Start != 9*3600 || windows[1].Start != 13*3600 {
		t.Errorf("windows not sorted by start: %v", windows)
	}

	// A store with rows keeps other days closed
	if other := calc.WindowsFor(time.Tuesday); len(other) != 0 {
		t.Errorf("expected Tuesday closed, got %v", other)
	}
}

func TestWindowCalculator_RejectsOverlap(t *testing.T) {
	rows := []database.BusinessHours{
		{StoreID: "s1", DayOfWeek: 2, StartLocal: "09:00:00", EndLocal: "13:00:00"},
		{StoreID: "s1", DayOfWeek: 2, StartLocal: "12:00:00", EndLocal: "17:00:00"},
	}

	_, err := NewWindowCalculator(rows, true)
	if err == nil {
		t.Fatal("expected error for overlapping windows")
	}
	if !errors.Is(err, apperrors.ErrConfig) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

func TestWindowCalculator_RejectsInvertedWindow(t *testing.T) {
	rows := []database.BusinessHours{
		{StoreID: "s1", DayOfWeek: 1, StartLocal: "17:00:00", EndLocal: "09:00:00"},
	}

	_, err := NewWindowCalculator(rows, true)
	if err == nil {
		t.Fatal("expected error for start >= end")
	}
	if !errors.Is(err, apperrors.ErrConfig) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

func TestWindowCalculator_TouchingWindowsAllowed(t *testing.T) {
	rows := []database.BusinessHours{
		{StoreID: "s1", DayOfWeek: 4, StartLocal: "09:00:00", EndLocal: "12:00:00"},
		{StoreID: "s1", DayOfWeek: 4, StartLocal: "12:00:00", EndLocal: "17:00:00"},
	}

	if _, err := NewWindowCalculator(rows, true); err != nil {
		t.Errorf("adjacent windows should be valid: %v", err)
	}
}
