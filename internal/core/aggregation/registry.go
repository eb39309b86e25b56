package aggregation

import (
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

// Registry owns the live summarizers of one summary rule, keyed by grouping
// key. Route and FlushAll are mutually exclusive; registries of different
// rules share nothing.
type Registry struct {
	rule SummaryRule

	mu          sync.Mutex
	windowStart time.Time
	summarizers map[string]*KeyedSummarizer
}

// NewRegistry creates an empty registry whose first window starts at start.
func NewRegistry(rule SummaryRule, start time.Time) *Registry {
	return &Registry{
		rule:        rule,
		windowStart: start,
		summarizers: make(map[string]*KeyedSummarizer),
	}
}

// Rule returns the rule this registry aggregates.
func (r *Registry) Rule() SummaryRule {
	return r.rule
}

// Route folds obs into the summarizer of its key, creating one on first sight.
// A new summarizer's window starts with the registry's current window.
func (r *Registry) Route(obs Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.summarizers[obs.Key]
	if !ok {
		s = NewKeyedSummarizer(r.rule.Name, r.rule.GroupAttribute, obs.Key, r.windowStart)
		r.summarizers[obs.Key] = s
	}
	s.Accept(obs)
}

// FlushAll emits one point per key that saw observations in the closing
// window and resets those keys. Keys that stayed idle for the whole window are
// evicted without a point. Points are ordered by key.
func (r *Registry) FlushAll(flushTime time.Time) []v1.SummaryPoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.summarizers))
	for k := range r.summarizers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]v1.SummaryPoint, 0, len(keys))
	for _, k := range keys {
		s := r.summarizers[k]
		if s.Count() == 0 {
			// Idle for a whole window.
			delete(r.summarizers, s.Key())
			continue
		}
		point, _ := s.EmitAndReset(flushTime)
		points = append(points, point)
	}
	r.windowStart = flushTime
	return points
}

// Len returns the number of live grouping keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.summarizers)
}
