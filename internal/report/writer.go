package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/storeops/uptime-server/internal/uptime"
)

// ArtifactHeader is the exact header row of a report artifact
var ArtifactHeader = []string{
	"store_id",
	"uptime_last_hour",
	"uptime_last_day",
	"uptime_last_week",
	"downtime_last_hour",
	"downtime_last_day",
	"downtime_last_week",
}

// WriteCSV serializes aggregation records into the report artifact. Rows
// are ordered by store_id ascending. The hour window is reported in whole
// minutes; the day and week windows in hours with two decimals.
func WriteCSV(records []uptime.Record) ([]byte, error) {
	sorted := make([]uptime.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StoreID < sorted[j].StoreID })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ArtifactHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range sorted {
		row := []string{
			rec.StoreID,
			minutes(rec.UptimeLastHour),
			hours(rec.UptimeLastDay),
			hours(rec.UptimeLastWeek),
			minutes(rec.DowntimeLastHour),
			hours(rec.DowntimeLastDay),
			hours(rec.DowntimeLastWeek),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row for %s: %w", rec.StoreID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush artifact: %w", err)
	}
	return buf.Bytes(), nil
}

func minutes(d time.Duration) string {
	return strconv.FormatInt(int64(d.Round(time.Minute)/time.Minute), 10)
}

func hours(d time.Duration) string {
	return strconv.FormatFloat(d.Hours(), 'f', 2, 64)
}
