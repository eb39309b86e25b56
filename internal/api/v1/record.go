package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Record is one diagnostic event emitted by the runtime's flight recorder.
// Field values are whatever the recording carried: numbers, strings, booleans,
// or nested objects for class, method and thread references.
type Record struct {
	// EventName is the recorder's event type, e.g. "jdk.Compilation".
	EventName string `json:"event_name"`

	// StartTime is when the runtime recorded the event.
	StartTime time.Time `json:"start_time"`

	// Duration is zero for instant events.
	Duration time.Duration `json:"duration,omitempty"`

	Fields map[string]interface{} `json:"fields,omitempty"`

	// Thread is the originating thread. Not every event kind carries one.
	Thread *ThreadRef `json:"thread,omitempty"`
}

// ThreadRef identifies a runtime thread.
type ThreadRef struct {
	JavaName     string `json:"java_name,omitempty"`
	JavaThreadID int64  `json:"java_thread_id,omitempty"`
	OSName       string `json:"os_name,omitempty"`
	OSThreadID   int64  `json:"os_thread_id,omitempty"`
}

// Validate ensures the record carries the envelope every consumer depends on.
func (r *Record) Validate() error {
	if r.EventName == "" {
		return fmt.Errorf("event_name is required")
	}

	if r.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}

	if r.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}

	return nil
}

// Field returns the named field and whether it was present and non-null.
func (r *Record) Field(name string) (interface{}, bool) {
	if r.Fields == nil {
		return nil, false
	}
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ThreadName returns the originating thread's Java name, falling back to the
// OS thread name. ok is false when the record has no usable thread.
func (r *Record) ThreadName() (name string, ok bool) {
	if r.Thread == nil {
		return "", false
	}
	if r.Thread.JavaName != "" {
		return r.Thread.JavaName, true
	}
	if r.Thread.OSName != "" {
		return r.Thread.OSName, true
	}
	return "", false
}

// Unmarshal decodes one JSON value into v. Numbers inside interface{}
// values are kept as json.Number so integers above 2^53 survive decoding.
func Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}

// DecodeRecord parses one JSON-encoded record and validates its envelope.
func DecodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return &rec, nil
}
