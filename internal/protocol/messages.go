package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the kind of ingest row carried by a message
type MessageType string

const (
	MsgTypeStatus   MessageType = "status_row"
	MsgTypeHours    MessageType = "hours_row"
	MsgTypeTimezone MessageType = "timezone_row"
)

// Timestamp layouts accepted on ingest. The poller emits the first form;
// RFC3339 is accepted for hand-fed data.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999 UTC",
	"2006-01-02 15:04:05 UTC",
	time.RFC3339,
}

// BaseMessage is the common structure for all messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// StatusMessage carries one store_status row
type StatusMessage struct {
	Type         MessageType `json:"type"`
	StoreID      string      `json:"store_id"`
	TimestampUTC string      `json:"timestamp_utc"`
	Status       string      `json:"status"`
}

// Timestamp parses the row's timestamp into a UTC instant
func (m *StatusMessage) Timestamp() (time.Time, error) {
	return ParseTimestamp(m.TimestampUTC)
}

// HoursMessage carries one store_hours row
type HoursMessage struct {
	Type       MessageType `json:"type"`
	StoreID    string      `json:"store_id"`
	DayOfWeek  int         `json:"day_of_week"`
	StartLocal string      `json:"start_time_local"`
	EndLocal   string      `json:"end_time_local"`
}

// TimezoneMessage carries one store_timezone row
type TimezoneMessage struct {
	Type        MessageType `json:"type"`
	StoreID     string      `json:"store_id"`
	TimezoneStr string      `json:"timezone_str"`
}

// ParseMessage parses a JSON payload into the appropriate row message
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch base.Type {
	case MsgTypeStatus:
		var msg StatusMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid status message: %w", err)
		}
		if err := ValidateStatus(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeHours:
		var msg HoursMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid hours message: %w", err)
		}
		if err := ValidateHours(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeTimezone:
		var msg TimezoneMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid timezone message: %w", err)
		}
		if err := ValidateTimezone(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

// ValidateStatus validates a status row message
func ValidateStatus(msg *StatusMessage) error {
	if msg.StoreID == "" {
		return fmt.Errorf("store_id is required")
	}
	if _, err := ParseTimestamp(msg.TimestampUTC); err != nil {
		return err
	}
	if msg.Status != "active" && msg.Status != "inactive" {
		return fmt.Errorf("status must be active or inactive, got %q", msg.Status)
	}
	return nil
}

// ValidateHours validates a business-hours row message
func ValidateHours(msg *HoursMessage) error {
	if msg.StoreID == "" {
		return fmt.Errorf("store_id is required")
	}
	if msg.DayOfWeek < 0 || msg.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be 0-6, got %d", msg.DayOfWeek)
	}
	if _, err := ParseLocalTime(msg.StartLocal); err != nil {
		return fmt.Errorf("invalid start_time_local: %w", err)
	}
	if _, err := ParseLocalTime(msg.EndLocal); err != nil {
		return fmt.Errorf("invalid end_time_local: %w", err)
	}
	return nil
}

// ValidateTimezone validates a timezone row message
func ValidateTimezone(msg *TimezoneMessage) error {
	if msg.StoreID == "" {
		return fmt.Errorf("store_id is required")
	}
	if msg.TimezoneStr == "" {
		return fmt.Errorf("timezone_str is required")
	}
	if _, err := time.LoadLocation(msg.TimezoneStr); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", msg.TimezoneStr, err)
	}
	return nil
}

// ParseTimestamp parses an ingest timestamp string into a UTC instant
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseLocalTime parses a local time-of-day string ("HH:MM" or "HH:MM:SS")
// and returns it normalized to "HH:MM:SS".
func ParseLocalTime(s string) (string, error) {
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t.Format("15:04:05"), nil
	}
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format("15:04:05"), nil
	}
	return "", fmt.Errorf("invalid local time %q", s)
}

// EncodeMessage encodes a message to JSON
func EncodeMessage(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}
