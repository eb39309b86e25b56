package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultShutdownTimeout = 30 * time.Second

// Flusher closes the current window and returns what it produced.
type Flusher interface {
	Flush(flushTime time.Time) Batch
}

// BatchDispatcher delivers flushed batches.
type BatchDispatcher interface {
	Dispatch(batch Batch)
	Send(ctx context.Context, batch Batch) error
}

// SchedulerOptions configures the flush driver.
type SchedulerOptions struct {
	// Interval is the flush period. Whole seconds only.
	Interval time.Duration

	// ShutdownTimeout bounds the final flush.
	ShutdownTimeout time.Duration

	// Drained, when set, is waited on (within ShutdownTimeout) before the
	// final flush so records queued at shutdown are included.
	Drained <-chan struct{}
}

// Scheduler flushes on a fixed period independent of record arrival and
// hands each batch to the dispatcher. A tick never waits on the sink.
type Scheduler struct {
	flusher    Flusher
	dispatcher BatchDispatcher
	opts       SchedulerOptions
	now        func() time.Time
}

// NewScheduler creates a flush driver.
func NewScheduler(flusher Flusher, dispatcher BatchDispatcher, opts SchedulerOptions) *Scheduler {
	if flusher == nil {
		panic("aggregation: flusher must not be nil")
	}
	if dispatcher == nil {
		panic("aggregation: dispatcher must not be nil")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Scheduler{
		flusher:    flusher,
		dispatcher: dispatcher,
		opts:       opts,
		now:        time.Now,
	}
}

// Tick runs one flush cycle.
func (s *Scheduler) Tick() {
	flushTime := s.now()
	batch := s.flusher.Flush(flushTime)

	slog.Debug("[Scheduler] Flushed",
		"flush_time", flushTime,
		"events", len(batch.Events),
		"summaries", len(batch.Summaries),
	)
	s.dispatcher.Dispatch(batch)
}

// Start runs periodic flushes until ctx is cancelled, then performs one
// final synchronous flush.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.opts.Interval < time.Second || s.opts.Interval%time.Second != 0 {
		return fmt.Errorf("flush interval must be a whole number of seconds, got %s", s.opts.Interval)
	}

	logger := cronLogger{logger: slog.Default()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.opts.Interval), s.Tick); err != nil {
		return fmt.Errorf("schedule flush: %w", err)
	}

	slog.Info("[Scheduler] Starting flush scheduler", "interval", s.opts.Interval)
	c.Start()

	<-ctx.Done()
	slog.Info("[Scheduler] Stopping (context cancelled)")

	// Wait for a tick that is already running.
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if s.opts.Drained != nil {
		select {
		case <-s.opts.Drained:
		case <-shutdownCtx.Done():
			slog.Warn("[Scheduler] Pipeline did not drain before final flush")
		}
	}

	slog.Info("[Scheduler] Running final flush before shutdown...")
	flushTime := s.now()
	batch := s.flusher.Flush(flushTime)
	if err := s.dispatcher.Send(shutdownCtx, batch); err != nil {
		slog.Error("[Scheduler] Final flush failed", "error", err)
		return nil
	}
	slog.Info("[Scheduler] Final flush complete",
		"events", len(batch.Events),
		"summaries", len(batch.Summaries),
	)
	return nil
}
