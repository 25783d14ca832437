package uptime

import (
	"sort"
	"time"

	"github.com/storeops/uptime-server/internal/apperrors"
	"github.com/storeops/uptime-server/internal/database"
)

// secondsPerDay is the length of a nominal local day
const secondsPerDay = 24 * 60 * 60

// Window is one business-hours interval within a local day, expressed as
// seconds since local midnight. End may be secondsPerDay (24:00).
type Window struct {
	Start int
	End   int
}

// WindowCalculator resolves a store's weekly recurring schedule into
// ordered, non-overlapping open windows per weekday. A store with no
// schedule rows is treated as open all day when missingOpen is set, and as
// never open otherwise.
type WindowCalculator struct {
	byDay [7][]Window
}

// NewWindowCalculator validates schedule rows and builds the per-day
// window table. Rows with start >= end, or rows that overlap within the
// same store/day, are a configuration error and reject the whole schedule
// rather than being silently repaired.
func NewWindowCalculator(rows []database.BusinessHours, missingOpen bool) (*WindowCalculator, error) {
	calc := &WindowCalculator{}

	if len(rows) == 0 {
		if missingOpen {
			for day := 0; day < 7; day++ {
				calc.byDay[day] = []Window{{Start: 0, End: secondsPerDay}}
			}
		}
		return calc, nil
	}

	for _, row := range rows {
		if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
			return nil, apperrors.Configf("store %s: day_of_week %d out of range", row.StoreID, row.DayOfWeek)
		}
		start, err := localSeconds(row.StartLocal)
		if err != nil {
			return nil, apperrors.Configf("store %s day %d: bad start time %q", row.StoreID, row.DayOfWeek, row.StartLocal)
		}
		end, err := localSeconds(row.EndLocal)
		if err != nil {
			return nil, apperrors.Configf("store %s day %d: bad end time %q", row.StoreID, row.DayOfWeek, row.EndLocal)
		}
		if start >= end {
			return nil, apperrors.Configf("store %s day %d: start %s is not before end %s",
				row.StoreID, row.DayOfWeek, row.StartLocal, row.EndLocal)
		}
		calc.byDay[row.DayOfWeek] = append(calc.byDay[row.DayOfWeek], Window{Start: start, End: end})
	}

	for day := 0; day < 7; day++ {
		windows := calc.byDay[day]
		sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
		for i := 1; i < len(windows); i++ {
			if windows[i].Start < windows[i-1].End {
				return nil, apperrors.Configf("day %d: windows %d-%d and %d-%d overlap",
					day, windows[i-1].Start, windows[i-1].End, windows[i].Start, windows[i].End)
			}
		}
	}

	return calc, nil
}

// WindowsFor returns the open windows for a weekday, sorted by start
func (c *WindowCalculator) WindowsFor(weekday time.Weekday) []Window {
	return c.byDay[dayIndex(weekday)]
}

// dayIndex maps time.Weekday onto the source data's day_of_week scheme,
// where 0 is Monday and 6 is Sunday.
func dayIndex(weekday time.Weekday) int {
	return (int(weekday) + 6) % 7
}

// localSeconds parses "HH:MM:SS" or "HH:MM" into seconds since midnight
func localSeconds(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return 0, err
		}
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}
