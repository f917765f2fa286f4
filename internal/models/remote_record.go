package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ISOTimestampLayout is a fixed-width UTC layout, so lexicographic order of
// formatted timestamps equals chronological order
const ISOTimestampLayout = "2006-01-02T15:04:05.000Z"

// Remote record field names
const (
	FieldUserID    = "userId"
	FieldType      = "type"
	FieldSubtype   = "subtype"
	FieldTimestamp = "timestamp"
	FieldData      = "data"
)

// FormatISO renders t in ISOTimestampLayout
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOTimestampLayout)
}

// ToRecord maps an event to the remote-store record shape tagged with userID
func ToRecord(userID string, e Event) (map[string]any, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event has no payload")
	}

	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Kind(), err)
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to flatten %s payload: %w", e.Kind(), err)
	}

	fields := map[string]any{
		FieldUserID:    userID,
		FieldType:      string(e.Kind()),
		FieldTimestamp: FormatISO(e.Timestamp),
		FieldData:      data,
	}
	if sub := e.Subtype(); sub != "" {
		fields[FieldSubtype] = string(sub)
	}
	return fields, nil
}

// EventFromRecord is the inverse of ToRecord
func EventFromRecord(fields map[string]any) (Event, error) {
	kind, _ := fields[FieldType].(string)
	subtype, _ := fields[FieldSubtype].(string)

	var ts time.Time
	switch v := fields[FieldTimestamp].(type) {
	case string:
		parsed, err := time.Parse(ISOTimestampLayout, v)
		if err != nil {
			return Event{}, fmt.Errorf("invalid record timestamp %q: %w", v, err)
		}
		ts = parsed.Local()
	case time.Time:
		ts = v.Local()
	default:
		return Event{}, fmt.Errorf("record has no timestamp")
	}

	var data []byte
	if d, ok := fields[FieldData]; ok && d != nil {
		b, err := json.Marshal(d)
		if err != nil {
			return Event{}, fmt.Errorf("failed to re-encode record data: %w", err)
		}
		data = b
	}

	payload, err := DecodePayload(EventKind(kind), ActivitySubtype(subtype), data)
	if err != nil {
		return Event{}, err
	}
	return Event{Timestamp: ts, Payload: payload}, nil
}
