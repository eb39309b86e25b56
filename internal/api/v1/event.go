package v1

import (
	"github.com/shopspring/decimal"
)

// Attributes is the attribute set attached to emitted telemetry.
// Values are strings, numbers, booleans, or nil for an absent value.
type Attributes map[string]interface{}

// Event is a discrete telemetry event produced from exactly one Record.
type Event struct {
	// Type is a constant per mapper, e.g. "JfrCompilation".
	Type string `json:"event_type"`

	// Timestamp is the record's start time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	Attributes Attributes `json:"attributes"`
}

// SummaryPoint is the aggregate of one grouping key over one flush window.
// It is only produced for windows with at least one observation, so Min and
// Max are always defined.
type SummaryPoint struct {
	Name  string          `json:"name"`
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
	Min   int64           `json:"min"`
	Max   int64           `json:"max"`

	// StartTimeMs is the window start; EndTimeMs is the time of the last
	// observation folded into the window, both in epoch milliseconds.
	StartTimeMs int64 `json:"start_time_ms"`
	EndTimeMs   int64 `json:"end_time_ms"`

	Attributes Attributes `json:"attributes"`
}

// Interval returns the covered window length in milliseconds.
func (p SummaryPoint) Interval() int64 {
	return p.EndTimeMs - p.StartTimeMs
}
