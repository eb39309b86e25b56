package projection

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/jfrtel/internal/aggregation"
	coreagg "github.com/aevon-lab/jfrtel/internal/core/aggregation"
	"github.com/aevon-lab/jfrtel/internal/source"
)

// ErrNotFound marks lookups of unknown event kinds or rules.
var ErrNotFound = errors.New("not found")

// PipelineStatus is the read side of aggregation.Pipeline.
type PipelineStatus interface {
	Stats() []aggregation.LaneStats
	RecordingSettings() map[string]aggregation.RecordingSetting
}

// DispatcherStatus is the read side of aggregation.Dispatcher.
type DispatcherStatus interface {
	Stats() aggregation.DispatcherStats
}

// SourceStatus is implemented by every record source.
type SourceStatus interface {
	Stats() source.Stats
}

// Service serves the read-only status API. It never mutates the pipeline.
type Service struct {
	pipeline      PipelineStatus
	dispatcher    DispatcherStatus
	flushInterval time.Duration
	rules         []RuleView

	mu      sync.RWMutex
	sources map[string]SourceStatus
}

// NewService creates the status service. dispatcher may be nil.
func NewService(pipeline PipelineStatus, dispatcher DispatcherStatus, flushInterval time.Duration, rules []coreagg.SummaryRule) *Service {
	if pipeline == nil {
		panic("projection: pipeline must not be nil")
	}

	views := make([]RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, RuleView{
			Name:           r.Name,
			SourceEvent:    r.SourceEvent,
			Field:          r.Field,
			GroupBy:        r.GroupBy,
			GroupAttribute: r.GroupAttribute,
			Enabled:        r.Enabled,
			Fingerprint:    r.Fingerprint,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })

	return &Service{
		pipeline:      pipeline,
		dispatcher:    dispatcher,
		flushInterval: flushInterval,
		rules:         views,
		sources:       make(map[string]SourceStatus),
	}
}

// AddSource registers a source whose counters are reported under name.
func (s *Service) AddSource(name string, src SourceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = src
}

// Pipeline returns the current pipeline status.
func (s *Service) Pipeline() PipelineResponse {
	lanes := s.pipeline.Stats()
	resp := PipelineResponse{
		FlushInterval: s.flushInterval.String(),
		Totals:        rollupTotals(lanes),
		Lanes:         lanes,
	}
	if s.dispatcher != nil {
		st := s.dispatcher.Stats()
		resp.Dispatcher = &st
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.sources) > 0 {
		resp.Sources = make(map[string]source.Stats, len(s.sources))
		for name, src := range s.sources {
			resp.Sources[name] = src.Stats()
		}
	}
	return resp
}

// Lane returns the status of one event kind.
func (s *Service) Lane(eventName string) (aggregation.LaneStats, error) {
	lane, ok := findLane(s.pipeline.Stats(), eventName)
	if !ok {
		return aggregation.LaneStats{}, ErrNotFound
	}
	return lane, nil
}

// RecordingSettings returns the recorder configuration of consumed events.
func (s *Service) RecordingSettings() RecordingSettingsResponse {
	return RecordingSettingsResponse{Events: s.pipeline.RecordingSettings()}
}

// Rules returns all configured summary rules, disabled ones included.
func (s *Service) Rules() []RuleView {
	return s.rules
}
