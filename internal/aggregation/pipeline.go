package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	core "github.com/aevon-lab/jfrtel/internal/core/aggregation"
	"github.com/aevon-lab/jfrtel/internal/mapper"
	"golang.org/x/sync/errgroup"
)

const defaultChannelBufferSize = 1024

var (
	// ErrUnsupportedEvent is returned for records of an event kind no enabled
	// rule or mapper consumes.
	ErrUnsupportedEvent = errors.New("unsupported event")

	// ErrInvalidRecord wraps envelope validation failures.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrPipelineStopped is returned by Ingest once Run is shutting down.
	ErrPipelineStopped = errors.New("pipeline stopped")
)

// PipelineOptions controls lane construction.
type PipelineOptions struct {
	// Start is the start of the first window of every registry.
	Start time.Time

	// ChannelBufferSize is the per-lane record queue length.
	ChannelBufferSize int
}

func (o PipelineOptions) normalized() PipelineOptions {
	n := o
	if n.Start.IsZero() {
		n.Start = time.Now()
	}
	if n.ChannelBufferSize <= 0 {
		n.ChannelBufferSize = defaultChannelBufferSize
	}
	return n
}

// Batch is everything one flush produced.
type Batch struct {
	FlushTime time.Time
	Events    []v1.Event
	Summaries []v1.SummaryPoint
}

// Empty reports whether the batch carries nothing to send.
func (b Batch) Empty() bool {
	return len(b.Events) == 0 && len(b.Summaries) == 0
}

// LaneStats describes one event kind's lane.
type LaneStats struct {
	EventName      string   `json:"event_name"`
	Rules          []string `json:"rules"`
	Mapped         bool     `json:"mapped"`
	LiveKeys       int      `json:"live_keys"`
	Queued         int      `json:"queued"`
	Processed      uint64   `json:"processed"`
	Rejected       uint64   `json:"rejected"`
	BufferedEvents int      `json:"buffered_events"`
}

// RecordingSetting is how a recorder agent should configure one event kind.
type RecordingSetting struct {
	Enabled bool   `json:"enabled"`
	Period  string `json:"period,omitempty"`
}

// lane is the processing path of one event kind. A single reader goroutine
// consumes records; the registries and the event buffer are also touched by
// Flush, each under its own lock.
type lane struct {
	eventName  string
	records    chan *v1.Record
	registries []*core.Registry
	mapper     *mapper.Mapper

	mu     sync.Mutex
	events []v1.Event

	processed atomic.Uint64
	rejected  atomic.Uint64
}

func (l *lane) run(ctx context.Context) {
	for {
		select {
		case rec := <-l.records:
			l.process(rec)
		case <-ctx.Done():
			l.drain()
			return
		}
	}
}

// drain processes what is already queued so the final flush sees it.
func (l *lane) drain() {
	for {
		select {
		case rec := <-l.records:
			l.process(rec)
		default:
			return
		}
	}
}

func (l *lane) process(rec *v1.Record) {
	for _, reg := range l.registries {
		obs, ok, err := reg.Rule().Observe(rec)
		if err != nil {
			l.rejected.Add(1)
			slog.Warn("[Pipeline] Rejected observation",
				"event", l.eventName,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}
		reg.Route(obs)
	}

	if l.mapper != nil {
		if events := l.mapper.Apply(rec); len(events) > 0 {
			l.mu.Lock()
			l.events = append(l.events, events...)
			l.mu.Unlock()
		}
	}

	l.processed.Add(1)
}

func (l *lane) takeEvents() []v1.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := l.events
	l.events = nil
	return events
}

// Pipeline routes records to per-event-kind lanes and collects their output
// on Flush.
type Pipeline struct {
	lanes map[string]*lane
	order []string

	started  atomic.Bool
	stopping chan struct{}
	stopped  chan struct{}

	// sendMu is read-held by Ingest for the whole send. Run takes it once
	// after closing stopping, so every accepted record is queued before the
	// lanes drain.
	sendMu sync.RWMutex
}

// NewPipeline composes one lane per event kind targeted by an enabled rule or
// a mapper. mappers are expected to be filtered for the runtime already.
func NewPipeline(rules []core.SummaryRule, mappers []mapper.Mapper, opts PipelineOptions) (*Pipeline, error) {
	opts = opts.normalized()

	p := &Pipeline{
		lanes:    make(map[string]*lane),
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	laneFor := func(eventName string) *lane {
		l, ok := p.lanes[eventName]
		if !ok {
			l = &lane{
				eventName: eventName,
				records:   make(chan *v1.Record, opts.ChannelBufferSize),
			}
			p.lanes[eventName] = l
			p.order = append(p.order, eventName)
		}
		return l
	}

	names := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if names[rule.Name] {
			return nil, fmt.Errorf("duplicate summary rule %q", rule.Name)
		}
		names[rule.Name] = true
		l := laneFor(rule.SourceEvent)
		l.registries = append(l.registries, core.NewRegistry(rule, opts.Start))
	}

	for i := range mappers {
		m := mappers[i]
		l := laneFor(m.EventName)
		if l.mapper != nil {
			return nil, fmt.Errorf("duplicate mapper for %q", m.EventName)
		}
		l.mapper = &m
	}

	if len(p.lanes) == 0 {
		return nil, fmt.Errorf("pipeline has no enabled event kinds")
	}
	sort.Strings(p.order)

	slog.Info("[Pipeline] Composed lanes",
		"lanes", len(p.lanes),
		"rules", len(names),
		"mappers", len(mappers),
		"channel_buffer_size", opts.ChannelBufferSize,
	)
	return p, nil
}

// Run starts one reader per lane and blocks until ctx is cancelled. Every
// record Ingest accepted is processed before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("pipeline already running")
	}
	defer close(p.stopped)

	laneCtx, stopLanes := context.WithCancel(context.Background())
	defer stopLanes()

	g, gctx := errgroup.WithContext(laneCtx)
	for _, name := range p.order {
		l := p.lanes[name]
		g.Go(func() error {
			l.run(gctx)
			return nil
		})
	}

	<-ctx.Done()
	close(p.stopping)
	// Wait out sends that passed the stopping check.
	p.sendMu.Lock()
	p.sendMu.Unlock()
	stopLanes()

	err := g.Wait()
	slog.Info("[Pipeline] Stopped")
	return err
}

// Stopped is closed once Run has returned.
func (p *Pipeline) Stopped() <-chan struct{} {
	return p.stopped
}

// Supports reports whether records of eventName are consumed.
func (p *Pipeline) Supports(eventName string) bool {
	_, ok := p.lanes[eventName]
	return ok
}

// EventNames returns the consumed event kinds in order.
func (p *Pipeline) EventNames() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Ingest queues rec on its lane. It blocks while the lane is full. Once Run
// has begun stopping, Ingest returns ErrPipelineStopped.
func (p *Pipeline) Ingest(ctx context.Context, rec v1.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	l, ok := p.lanes[rec.EventName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, rec.EventName)
	}

	p.sendMu.RLock()
	defer p.sendMu.RUnlock()

	select {
	case <-p.stopping:
		return ErrPipelineStopped
	default:
	}

	select {
	case l.records <- &rec:
		return nil
	case <-p.stopping:
		return ErrPipelineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush closes the current window of every registry and takes the mapped
// events buffered since the previous flush.
func (p *Pipeline) Flush(flushTime time.Time) Batch {
	batch := Batch{FlushTime: flushTime}
	for _, name := range p.order {
		l := p.lanes[name]
		for _, reg := range l.registries {
			batch.Summaries = append(batch.Summaries, reg.FlushAll(flushTime)...)
		}
		batch.Events = append(batch.Events, l.takeEvents()...)
	}
	return batch
}

// Stats returns one entry per lane, ordered by event name.
func (p *Pipeline) Stats() []LaneStats {
	out := make([]LaneStats, 0, len(p.order))
	for _, name := range p.order {
		l := p.lanes[name]
		st := LaneStats{
			EventName: name,
			Rules:     make([]string, 0, len(l.registries)),
			Mapped:    l.mapper != nil,
			Queued:    len(l.records),
			Processed: l.processed.Load(),
			Rejected:  l.rejected.Load(),
		}
		for _, reg := range l.registries {
			st.Rules = append(st.Rules, reg.Rule().Name)
			st.LiveKeys += reg.Len()
		}
		l.mu.Lock()
		st.BufferedEvents = len(l.events)
		l.mu.Unlock()
		out = append(out, st)
	}
	return out
}

// RecordingSettings returns the recorder configuration for every consumed
// event kind. Polled kinds carry the mapper's polling period.
func (p *Pipeline) RecordingSettings() map[string]RecordingSetting {
	out := make(map[string]RecordingSetting, len(p.lanes))
	for name, l := range p.lanes {
		setting := RecordingSetting{Enabled: true}
		if l.mapper != nil && l.mapper.Polled() {
			setting.Period = l.mapper.PollingInterval.String()
		}
		out[name] = setting
	}
	return out
}
