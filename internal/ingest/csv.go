package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/storeops/uptime-server/internal/apperrors"
	"github.com/storeops/uptime-server/internal/protocol"
)

// Fixed header rows for the three source files
var (
	statusHeader   = []string{"store_id", "timestamp_utc", "status"}
	hoursHeader    = []string{"store_id", "day_of_week", "start_time_local", "end_time_local"}
	timezoneHeader = []string{"store_id", "timezone_str"}
)

// ReadStatusFile parses and validates a store_status CSV file. The file is
// accepted as a whole or rejected as a whole: any malformed row fails the
// entire read and nothing is returned.
func ReadStatusFile(path string) ([]*protocol.StatusMessage, error) {
	records, err := readAll(path, statusHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]*protocol.StatusMessage, 0, len(records))
	for i, rec := range records {
		msg := &protocol.StatusMessage{
			Type:         protocol.MsgTypeStatus,
			StoreID:      rec[0],
			TimestampUTC: rec[1],
			Status:       rec[2],
		}
		if err := protocol.ValidateStatus(msg); err != nil {
			return nil, apperrors.Validationf("%s row %d: %v", path, i+2, err)
		}
		rows = append(rows, msg)
	}
	return rows, nil
}

// ReadHoursFile parses and validates a store_hours CSV file atomically.
func ReadHoursFile(path string) ([]*protocol.HoursMessage, error) {
	records, err := readAll(path, hoursHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]*protocol.HoursMessage, 0, len(records))
	for i, rec := range records {
		day, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, apperrors.Validationf("%s row %d: day_of_week %q is not a number", path, i+2, rec[1])
		}
		msg := &protocol.HoursMessage{
			Type:       protocol.MsgTypeHours,
			StoreID:    rec[0],
			DayOfWeek:  day,
			StartLocal: rec[2],
			EndLocal:   rec[3],
		}
		if err := protocol.ValidateHours(msg); err != nil {
			return nil, apperrors.Validationf("%s row %d: %v", path, i+2, err)
		}
		rows = append(rows, msg)
	}
	return rows, nil
}

// ReadTimezoneFile parses and validates a store_timezone CSV file atomically.
func ReadTimezoneFile(path string) ([]*protocol.TimezoneMessage, error) {
	records, err := readAll(path, timezoneHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]*protocol.TimezoneMessage, 0, len(records))
	for i, rec := range records {
		msg := &protocol.TimezoneMessage{
			Type:        protocol.MsgTypeTimezone,
			StoreID:     rec[0],
			TimezoneStr: rec[1],
		}
		if err := protocol.ValidateTimezone(msg); err != nil {
			return nil, apperrors.Validationf("%s row %d: %v", path, i+2, err)
		}
		rows = append(rows, msg)
	}
	return rows, nil
}

// readAll reads every record of a CSV file and checks the header row
func readAll(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.Validationf("%s: missing header row", path)
	}
	if err != nil {
		return nil, apperrors.Validationf("%s: %v", path, err)
	}
	for i, col := range header {
		if first[i] != col {
			return nil, apperrors.Validationf("%s: unexpected header %v, want %v", path, first, header)
		}
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Validationf("%s: %v", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
