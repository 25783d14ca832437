package uptime

import (
	"fmt"
	"time"

	"github.com/storeops/uptime-server/internal/apperrors"
	"github.com/storeops/uptime-server/internal/database"
)

// Trailing window lengths, anchored at the snapshot's reference instant
const (
	WindowHour = time.Hour
	WindowDay  = 24 * time.Hour
	WindowWeek = 7 * 24 * time.Hour
)

// Policies are the documented defaults applied when source rows are
// missing. They are injected at construction so deployments can change
// them without touching the computation.
type Policies struct {
	DefaultTimezone     string
	MissingHoursOpen    bool
	UnknownStatusActive bool
}

// Record is the per-store aggregation output. Durations are exact; the
// report writer chooses the presentation units.
type Record struct {
	StoreID          string
	UptimeLastHour   time.Duration
	DowntimeLastHour time.Duration
	UptimeLastDay    time.Duration
	DowntimeLastDay  time.Duration
	UptimeLastWeek   time.Duration
	DowntimeLastWeek time.Duration
}

// interval is an absolute half-open UTC range
type interval struct {
	start time.Time
	end   time.Time
}

// Aggregator intersects interpolated status segments with timezone-
// corrected business-hours windows and sums durations per trailing window.
// The computation is deterministic over a snapshot: the same snapshot
// always yields identical records.
type Aggregator struct {
	policies Policies
	interp   *Interpolator
}

// NewAggregator creates an aggregator with the given default policies
func NewAggregator(policies Policies) *Aggregator {
	return &Aggregator{
		policies: policies,
		interp:   NewInterpolator(policies.UnknownStatusActive),
	}
}

// Aggregate computes a record for every store in the snapshot, ordered by
// store_id ascending. An empty snapshot yields no records.
func (a *Aggregator) Aggregate(snap *database.Snapshot) ([]Record, error) {
	if snap.ReferenceInstant.IsZero() {
		return nil, nil
	}

	records := make([]Record, 0, len(snap.StoreIDs))
	for _, storeID := range snap.StoreIDs {
		rec, err := a.aggregateStore(storeID, snap)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", storeID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a *Aggregator) aggregateStore(storeID string, snap *database.Snapshot) (Record, error) {
	zone := snap.Timezones[storeID]
	if zone == "" {
		zone = a.policies.DefaultTimezone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Record{}, apperrors.Configf("unknown timezone %q", zone)
	}

	calc, err := NewWindowCalculator(snap.Hours[storeID], a.policies.MissingHoursOpen)
	if err != nil {
		return Record{}, err
	}

	obs := snap.Observations[storeID]
	ref := snap.ReferenceInstant

	rec := Record{StoreID: storeID}
	rec.UptimeLastHour, rec.DowntimeLastHour = a.windowTotals(calc, loc, obs, ref.Add(-WindowHour), ref)
	rec.UptimeLastDay, rec.DowntimeLastDay = a.windowTotals(calc, loc, obs, ref.Add(-WindowDay), ref)
	rec.UptimeLastWeek, rec.DowntimeLastWeek = a.windowTotals(calc, loc, obs, ref.Add(-WindowWeek), ref)
	return rec, nil
}

// windowTotals sums active and inactive time inside business hours over
// [rangeStart, rangeEnd).
func (a *Aggregator) windowTotals(calc *WindowCalculator, loc *time.Location, obs []database.Observation, rangeStart, rangeEnd time.Time) (up, down time.Duration) {
	segments := a.interp.Segments(obs, rangeStart, rangeEnd)
	open := businessIntervals(calc, loc, rangeStart, rangeEnd)

	// Both lists are sorted and non-overlapping; walk them together
	i, j := 0, 0
	for i < len(segments) && j < len(open) {
		seg, win := segments[i], open[j]

		start := seg.Start
		if win.start.After(start) {
			start = win.start
		}
		end := seg.End
		if win.end.Before(end) {
			end = win.end
		}

		if start.Before(end) {
			if seg.Status == database.StatusActive {
				up += end.Sub(start)
			} else {
				down += end.Sub(start)
			}
		}

		if seg.End.Before(win.end) {
			i++
		} else {
			j++
		}
	}
	return up, down
}

// businessIntervals expands the store's schedule into absolute UTC
// intervals overlapping [rangeStart, rangeEnd), clipped to it. Local
// windows are anchored with time.Date in the store's zone for each
// calendar day the range touches, so the UTC offset is the one in effect
// on that date; a DST transition inside the range changes the offset of
// the windows after it.
func businessIntervals(calc *WindowCalculator, loc *time.Location, rangeStart, rangeEnd time.Time) []interval {
	localStart := rangeStart.In(loc)
	localEnd := rangeEnd.In(loc)

	day := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, loc)
	lastDay := time.Date(localEnd.Year(), localEnd.Month(), localEnd.Day(), 0, 0, 0, 0, loc)

	var out []interval
	for !day.After(lastDay) {
		for _, w := range calc.WindowsFor(day.Weekday()) {
			start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, w.Start, 0, loc)
			end := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, w.End, 0, loc)

			if start.Before(rangeStart) {
				start = rangeStart
			}
			if end.After(rangeEnd) {
				end = rangeEnd
			}
			if start.Before(end) {
				out = append(out, interval{start: start.UTC(), end: end.UTC()})
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
