package database

import (
	"time"
)

// Status values for store observations
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Observation is a single polled active/inactive ping for a store
type Observation struct {
	ID        int64
	StoreID   string
	Timestamp time.Time // UTC instant
	Status    string
}

// BusinessHours is one recurring weekly open interval for a store.
// Times are local to the store's timezone; day_of_week is 0-6.
type BusinessHours struct {
	ID         int64
	StoreID    string
	DayOfWeek  int
	StartLocal string // "HH:MM:SS"
	EndLocal   string // "HH:MM:SS"
}

// Timezone maps a store to its IANA zone identifier
type Timezone struct {
	StoreID     string
	TimezoneStr string
}

// Snapshot is a consistent read-only view of the three source datasets,
// taken inside a single repeatable-read transaction. Ingestion that
// commits after the snapshot is taken is invisible to it.
type Snapshot struct {
	// Observations per store, ordered by timestamp ascending
	Observations map[string][]Observation
	// Hours rows per store (all weekdays mixed)
	Hours map[string][]BusinessHours
	// Timezones per store
	Timezones map[string]string
	// ReferenceInstant is the maximum observation timestamp across the
	// whole dataset; zero when the dataset is empty.
	ReferenceInstant time.Time
	// StoreIDs lists every store with at least one observation, ascending
	StoreIDs []string
}
