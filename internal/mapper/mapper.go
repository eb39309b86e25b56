// Package mapper turns single recorder events into discrete telemetry events.
// Mappers are pure: they read one record and share no state.
package mapper

import (
	"fmt"
	"sort"
	"time"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

// BaselineRuntimeVersion is the oldest runtime whose recorder events the
// built-in mappers understand.
const BaselineRuntimeVersion = 11

// Mapper maps one recorder event kind to zero or more telemetry events.
type Mapper struct {
	// EventName is the recorder event consumed, e.g. "jdk.Compilation".
	EventName string

	// EventType is the type of the produced events, e.g. "JfrCompilation".
	EventType string

	// PollingInterval is the period the recorder should sample a periodic
	// event at. Zero means the event is not polled.
	PollingInterval time.Duration

	// Since is the first runtime version that emits EventName.
	// Zero means BaselineRuntimeVersion.
	Since int

	Apply func(rec *v1.Record) []v1.Event
}

// MinRuntimeVersion returns the effective version gate.
func (m Mapper) MinRuntimeVersion() int {
	if m.Since == 0 {
		return BaselineRuntimeVersion
	}
	return m.Since
}

// Polled reports whether the mapper declares a polling interval.
func (m Mapper) Polled() bool {
	return m.PollingInterval > 0
}

// Set holds at most one mapper per recorder event name.
type Set struct {
	byName map[string]Mapper
}

// NewSet builds a set from mappers. Two mappers for one event name, or a
// mapper without an Apply function, is a wiring defect and returns an error.
func NewSet(mappers ...Mapper) (*Set, error) {
	s := &Set{byName: make(map[string]Mapper, len(mappers))}
	for _, m := range mappers {
		if m.EventName == "" {
			return nil, fmt.Errorf("mapper without event name")
		}
		if m.Apply == nil {
			return nil, fmt.Errorf("mapper %q: apply function is required", m.EventName)
		}
		if _, exists := s.byName[m.EventName]; exists {
			return nil, fmt.Errorf("mapper %q: duplicate event name", m.EventName)
		}
		s.byName[m.EventName] = m
	}
	return s, nil
}

// Get returns the mapper for eventName.
func (s *Set) Get(eventName string) (Mapper, bool) {
	m, ok := s.byName[eventName]
	return m, ok
}

// All returns every mapper ordered by event name.
func (s *Set) All() []Mapper {
	out := make([]Mapper, 0, len(s.byName))
	for _, m := range s.byName {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventName < out[j].EventName })
	return out
}

// Filter returns the mappers usable on runtimeVersion that are not disabled,
// ordered by event name. A runtimeVersion of zero disables the version gate.
func (s *Set) Filter(runtimeVersion int, disabled map[string]bool) []Mapper {
	var out []Mapper
	for _, m := range s.All() {
		if disabled[m.EventName] {
			continue
		}
		if runtimeVersion > 0 && m.MinRuntimeVersion() > runtimeVersion {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Builtins returns the mappers shipped with jfrtel.
func Builtins() []Mapper {
	return []Mapper{
		Compilation(),
		GarbageCollection(),
		CPULoad(),
		ObjectAllocationSample(),
	}
}

// newEvent stamps an event of eventType with rec's start time.
func newEvent(eventType string, rec *v1.Record, attrs v1.Attributes) v1.Event {
	return v1.Event{
		Type:       eventType,
		Timestamp:  rec.StartTime.UnixMilli(),
		Attributes: attrs,
	}
}
