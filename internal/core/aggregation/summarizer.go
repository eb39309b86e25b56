package aggregation

import (
	"fmt"
	"time"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

// Observation is one numeric value extracted from one record.
type Observation struct {
	Value     int64
	Timestamp time.Time
	Key       string
}

// KeyedSummarizer aggregates the observations of a single grouping key over
// one flush window at a time.
type KeyedSummarizer struct {
	name      string
	attribute string
	key       string

	acc         Accumulator
	windowStart time.Time
	windowEnd   time.Time
}

// NewKeyedSummarizer creates an empty summarizer whose first window starts at
// windowStart. attribute is the name under which key is reported; an empty
// attribute reports no grouping attribute.
func NewKeyedSummarizer(name, attribute, key string, windowStart time.Time) *KeyedSummarizer {
	return &KeyedSummarizer{
		name:        name,
		attribute:   attribute,
		key:         key,
		windowStart: windowStart,
		windowEnd:   windowStart,
	}
}

// Key returns the grouping key this summarizer was created for.
func (s *KeyedSummarizer) Key() string {
	return s.key
}

// Count returns the number of observations in the current window.
func (s *KeyedSummarizer) Count() uint64 {
	return s.acc.Count()
}

// Accept folds obs into the current window. Routing an observation of another
// key here is a defect in the caller and panics.
func (s *KeyedSummarizer) Accept(obs Observation) {
	if obs.Key != s.key {
		panic(fmt.Sprintf("aggregation: observation for key %q routed to summarizer %q of %s", obs.Key, s.key, s.name))
	}
	s.acc.Accept(obs.Value)
	if obs.Timestamp.After(s.windowEnd) {
		s.windowEnd = obs.Timestamp
	}
}

// Snapshot returns the statistics of the current window.
func (s *KeyedSummarizer) Snapshot() Stats {
	return s.acc.Snapshot()
}

// Window returns the current window bounds.
func (s *KeyedSummarizer) Window() (start, end time.Time) {
	return s.windowStart, s.windowEnd
}

// EmitAndReset closes the current window and opens a new one at flushTime.
// The returned point ends at the last observation, not at flushTime, so a late
// flush does not stretch the reported window. ok is false when the window had
// no observations; no point is produced for it.
func (s *KeyedSummarizer) EmitAndReset(flushTime time.Time) (point v1.SummaryPoint, ok bool) {
	stats := s.acc.Snapshot()
	if stats.Count > 0 {
		point = v1.SummaryPoint{
			Name:        s.name,
			Count:       int64(stats.Count),
			Sum:         stats.Sum,
			Min:         stats.Min.Value,
			Max:         stats.Max.Value,
			StartTimeMs: s.windowStart.UnixMilli(),
			EndTimeMs:   s.windowEnd.UnixMilli(),
			Attributes:  v1.Attributes{},
		}
		if s.attribute != "" {
			point.Attributes[s.attribute] = s.key
		}
		ok = true
	}

	s.acc.Reset()
	s.windowStart = flushTime
	s.windowEnd = flushTime
	return point, ok
}
