package uptime

import (
	"sort"
	"time"

	"github.com/storeops/uptime-server/internal/database"
)

// Segment is a half-open [Start, End) interval with a constant status
type Segment struct {
	Start  time.Time
	End    time.Time
	Status string
}

// Interpolator turns a store's sparse, time-ordered observations into a
// gap-free sequence of status segments covering a requested range. Status
// is a right-continuous step function of the most recent observation at or
// before a segment's start; after the last observation it extrapolates
// unchanged. Before the first observation the status is undefined by data
// and unknownStatus applies.
type Interpolator struct {
	unknownStatus string
}

// NewInterpolator creates an interpolator. unknownActive selects the
// status assumed before a store's first observation; the default product
// policy is inactive (uptime counts only from the first active signal).
func NewInterpolator(unknownActive bool) *Interpolator {
	status := database.StatusInactive
	if unknownActive {
		status = database.StatusActive
	}
	return &Interpolator{unknownStatus: status}
}

// Segments covers [rangeStart, rangeEnd) with non-overlapping segments.
// Observations must be sorted by timestamp ascending. Runs of equal status
// are merged, so consecutive segments always differ in status.
func (ip *Interpolator) Segments(obs []database.Observation, rangeStart, rangeEnd time.Time) []Segment {
	if !rangeStart.Before(rangeEnd) {
		return nil
	}

	// First observation strictly after rangeStart; everything before it
	// determines the status at the range start.
	idx := sort.Search(len(obs), func(i int) bool {
		return obs[i].Timestamp.After(rangeStart)
	})

	current := ip.unknownStatus
	if idx > 0 {
		current = obs[idx-1].Status
	}

	var segments []Segment
	cursor := rangeStart

	for i := idx; i < len(obs) && obs[i].Timestamp.Before(rangeEnd); i++ {
		if obs[i].Status == current {
			continue
		}
		segments = append(segments, Segment{Start: cursor, End: obs[i].Timestamp, Status: current})
		cursor = obs[i].Timestamp
		current = obs[i].Status
	}

	segments = append(segments, Segment{Start: cursor, End: rangeEnd, Status: current})
	return segments
}
