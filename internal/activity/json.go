package activity

import (
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayout matches ISO-8601 timestamps written without a zone offset.
// They are read as local time.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// ParseTimestamp parses an RFC 3339 timestamp, or an ISO-8601 timestamp
// without an offset in the local zone.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(naiveLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

func parseOptionalTimestamp(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(*s)
}

// UnmarshalJSON accepts last_updated with or without a zone offset, or
// null.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	aux := struct {
		*plain
		TakenAt *string `json:"last_updated"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := parseOptionalTimestamp(aux.TakenAt)
	if err != nil {
		return fmt.Errorf("last_updated: %w", err)
	}
	s.TakenAt = t
	return nil
}

// UnmarshalJSON accepts a timestamp with or without a zone offset.
func (r *PersistedRecord) UnmarshalJSON(data []byte) error {
	type plain PersistedRecord
	aux := struct {
		*plain
		Timestamp *string `json:"timestamp"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := parseOptionalTimestamp(aux.Timestamp)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	r.Timestamp = t
	return nil
}
