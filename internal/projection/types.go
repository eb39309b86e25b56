package projection

import (
	"github.com/aevon-lab/jfrtel/internal/aggregation"
	"github.com/aevon-lab/jfrtel/internal/source"
)

// Totals rolls lane counters up across all event kinds.
type Totals struct {
	Lanes          int    `json:"lanes"`
	LiveKeys       int    `json:"live_keys"`
	Queued         int    `json:"queued"`
	Processed      uint64 `json:"processed"`
	Rejected       uint64 `json:"rejected"`
	BufferedEvents int    `json:"buffered_events"`
}

// PipelineResponse is the body of GET /v1/pipeline.
type PipelineResponse struct {
	FlushInterval string                       `json:"flush_interval"`
	Totals        Totals                       `json:"totals"`
	Lanes         []aggregation.LaneStats      `json:"lanes"`
	Dispatcher    *aggregation.DispatcherStats `json:"dispatcher,omitempty"`
	Sources       map[string]source.Stats      `json:"sources,omitempty"`
}

// RuleView is one summary rule as reported by GET /v1/rules.
type RuleView struct {
	Name           string `json:"name"`
	SourceEvent    string `json:"source_event"`
	Field          string `json:"field"`
	GroupBy        string `json:"group_by,omitempty"`
	GroupAttribute string `json:"group_attribute,omitempty"`
	Enabled        bool   `json:"enabled"`
	Fingerprint    string `json:"fingerprint,omitempty"`
}

// RecordingSettingsResponse is the body of GET /v1/recording/settings.
type RecordingSettingsResponse struct {
	Events map[string]aggregation.RecordingSetting `json:"events"`
}
