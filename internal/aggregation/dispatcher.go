package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aevon-lab/jfrtel/internal/core/storage"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDispatchWorkers = 4
	defaultSendTimeout     = 10 * time.Second
)

// DispatcherOptions bounds concurrent sends.
type DispatcherOptions struct {
	// Workers is the maximum number of batches in flight.
	Workers int

	// SendTimeout bounds one batch send.
	SendTimeout time.Duration
}

func (o DispatcherOptions) normalized() DispatcherOptions {
	n := o
	if n.Workers <= 0 {
		n.Workers = defaultDispatchWorkers
	}
	if n.SendTimeout <= 0 {
		n.SendTimeout = defaultSendTimeout
	}
	return n
}

// DispatcherStats counts batches by outcome.
type DispatcherStats struct {
	Submitted uint64 `json:"submitted"`
	Sent      uint64 `json:"sent"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	InFlight  int    `json:"in_flight"`
}

// Dispatcher hands batches to the sink without blocking the caller. When all
// workers are busy the batch is dropped; delivery is best effort and failed
// sends are not retried.
type Dispatcher struct {
	sink        storage.Sink
	pool        *ants.Pool
	sendTimeout time.Duration
	wg          sync.WaitGroup

	submitted atomic.Uint64
	sent      atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher creates a dispatcher with a fixed-size worker pool.
func NewDispatcher(sink storage.Sink, opts DispatcherOptions) (*Dispatcher, error) {
	if sink == nil {
		panic("aggregation: sink must not be nil")
	}
	opts = opts.normalized()

	logger := poolLogger{logger: slog.Default()}
	pool, err := ants.NewPool(opts.Workers,
		ants.WithNonblocking(true),
		ants.WithLogger(logger),
		ants.WithPanicHandler(func(reason interface{}) {
			slog.Error("[Dispatcher] Send panicked", "reason", reason)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create dispatch pool: %w", err)
	}

	return &Dispatcher{
		sink:        sink,
		pool:        pool,
		sendTimeout: opts.SendTimeout,
	}, nil
}

// Dispatch queues batch for sending and returns immediately. Empty batches
// are ignored.
func (d *Dispatcher) Dispatch(batch Batch) {
	if batch.Empty() {
		return
	}
	d.submitted.Add(1)

	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		defer cancel()
		d.send(ctx, batch)
	})
	if err != nil {
		d.wg.Done()
		d.dropped.Add(1)
		if errors.Is(err, ants.ErrPoolOverload) {
			slog.Warn("[Dispatcher] All workers busy, dropping batch",
				"events", len(batch.Events),
				"summaries", len(batch.Summaries),
			)
			return
		}
		slog.Error("[Dispatcher] Failed to submit batch", "error", err)
	}
}

// Send delivers batch synchronously. Used for the final flush on shutdown.
func (d *Dispatcher) Send(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}
	d.submitted.Add(1)

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.send(ctx, batch)
}

func (d *Dispatcher) send(ctx context.Context, batch Batch) error {
	g, gctx := errgroup.WithContext(ctx)
	if len(batch.Events) > 0 {
		g.Go(func() error {
			if err := d.sink.SendEvents(gctx, batch.Events); err != nil {
				return fmt.Errorf("send events: %w", err)
			}
			return nil
		})
	}
	if len(batch.Summaries) > 0 {
		g.Go(func() error {
			if err := d.sink.SendSummaries(gctx, batch.Summaries); err != nil {
				return fmt.Errorf("send summaries: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.failed.Add(1)
		slog.Error("[Dispatcher] Batch send failed",
			"error", err,
			"flush_time", batch.FlushTime,
			"events", len(batch.Events),
			"summaries", len(batch.Summaries),
		)
		return err
	}

	d.sent.Add(1)
	slog.Debug("[Dispatcher] Batch sent",
		"flush_time", batch.FlushTime,
		"events", len(batch.Events),
		"summaries", len(batch.Summaries),
	)
	return nil
}

// Stats returns the outcome counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Submitted: d.submitted.Load(),
		Sent:      d.sent.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
		InFlight:  d.pool.Running(),
	}
}

// Close waits for in-flight sends, bounded by ctx, then releases the pool.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	defer d.pool.Release()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher close: %w", ctx.Err())
	}
}
