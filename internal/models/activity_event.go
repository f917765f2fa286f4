package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EventKind is the category of a recorded event
type EventKind string

const (
	KindSessionStart EventKind = "session_start"
	KindSessionEnd   EventKind = "session_end"
	KindActivity     EventKind = "activity"
	KindIdleStart    EventKind = "idle_start"
	KindIdleEnd      EventKind = "idle_end"
)

// ActivitySubtype identifies the editor action behind an activity event
type ActivitySubtype string

const (
	SubtypeEditorChange ActivitySubtype = "editor_change"
	SubtypeTextEdit     ActivitySubtype = "text_edit"
	SubtypeDocumentSave ActivitySubtype = "document_save"
	SubtypeWindowFocus  ActivitySubtype = "window_focus"
	SubtypeWindowBlur   ActivitySubtype = "window_blur"
)

// Payload is the kind-specific body of an event
type Payload interface {
	Kind() EventKind
}

// ActivityPayload is the body of an activity event
type ActivityPayload interface {
	Payload
	Subtype() ActivitySubtype
}

type SessionStart struct {
	HostVersion string `json:"vscodeVersion"`
}

type SessionEnd struct{}

type EditorChange struct {
	Document string `json:"document"`
}

type TextEdit struct {
	Document string `json:"document"`
	Changes  int    `json:"changes"`
}

type DocumentSave struct {
	Document string `json:"document"`
}

type WindowFocus struct{}

type WindowBlur struct{}

type IdleStart struct {
	IdleThresholdMs int64 `json:"idleThreshold"`
}

type IdleEnd struct {
	IdleDurationMs int64 `json:"idleDuration"`
}

func (SessionStart) Kind() EventKind { return KindSessionStart }
func (SessionEnd) Kind() EventKind   { return KindSessionEnd }
func (EditorChange) Kind() EventKind { return KindActivity }
func (TextEdit) Kind() EventKind     { return KindActivity }
func (DocumentSave) Kind() EventKind { return KindActivity }
func (WindowFocus) Kind() EventKind  { return KindActivity }
func (WindowBlur) Kind() EventKind   { return KindActivity }
func (IdleStart) Kind() EventKind    { return KindIdleStart }
func (IdleEnd) Kind() EventKind      { return KindIdleEnd }

func (EditorChange) Subtype() ActivitySubtype { return SubtypeEditorChange }
func (TextEdit) Subtype() ActivitySubtype     { return SubtypeTextEdit }
func (DocumentSave) Subtype() ActivitySubtype { return SubtypeDocumentSave }
func (WindowFocus) Subtype() ActivitySubtype  { return SubtypeWindowFocus }
func (WindowBlur) Subtype() ActivitySubtype   { return SubtypeWindowBlur }

// Event is a timestamped record of developer activity or session lifecycle
type Event struct {
	Timestamp time.Time
	Payload   Payload
}

// NewEvent creates an event observed at ts
func NewEvent(ts time.Time, payload Payload) Event {
	return Event{Timestamp: ts, Payload: payload}
}

// Kind returns the event category, or "" for an event without payload
func (e Event) Kind() EventKind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// Subtype returns the activity subtype; empty for non-activity events
func (e Event) Subtype() ActivitySubtype {
	if ap, ok := e.Payload.(ActivityPayload); ok {
		return ap.Subtype()
	}
	return ""
}

// eventJSON is the on-disk and over-the-wire shape of an Event
type eventJSON struct {
	Type      EventKind       `json:"type"`
	Subtype   ActivitySubtype `json:"subtype,omitempty"`
	Timestamp int64           `json:"timestamp"` // Unix timestamp in milliseconds
	Data      json.RawMessage `json:"data"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event has no payload")
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(eventJSON{
		Type:      e.Kind(),
		Subtype:   e.Subtype(),
		Timestamp: e.Timestamp.UnixMilli(),
		Data:      data,
	})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	payload, err := DecodePayload(raw.Type, raw.Subtype, raw.Data)
	if err != nil {
		return err
	}
	e.Timestamp = time.UnixMilli(raw.Timestamp)
	e.Payload = payload
	return nil
}

// DecodePayload builds the typed payload for kind/subtype from its JSON body
func DecodePayload(kind EventKind, subtype ActivitySubtype, data []byte) (Payload, error) {
	switch kind {
	case KindSessionStart:
		var p SessionStart
		err := decodeData(data, &p)
		return p, err
	case KindSessionEnd:
		return SessionEnd{}, nil
	case KindIdleStart:
		var p IdleStart
		err := decodeData(data, &p)
		return p, err
	case KindIdleEnd:
		var p IdleEnd
		err := decodeData(data, &p)
		return p, err
	case KindActivity:
		return decodeActivity(subtype, data)
	default:
		return nil, fmt.Errorf("unknown event type %q", kind)
	}
}

func decodeActivity(subtype ActivitySubtype, data []byte) (Payload, error) {
	switch subtype {
	case SubtypeEditorChange:
		var p EditorChange
		err := decodeData(data, &p)
		return p, err
	case SubtypeTextEdit:
		var p TextEdit
		err := decodeData(data, &p)
		return p, err
	case SubtypeDocumentSave:
		var p DocumentSave
		err := decodeData(data, &p)
		return p, err
	case SubtypeWindowFocus:
		return WindowFocus{}, nil
	case SubtypeWindowBlur:
		return WindowBlur{}, nil
	default:
		return nil, fmt.Errorf("unknown activity subtype %q", subtype)
	}
}

func decodeData(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}
	return nil
}
