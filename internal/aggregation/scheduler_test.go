package aggregation

import (
	"context"
	"sync"
	"testing"
	"time"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	mu      sync.Mutex
	flushes []time.Time
}

func (f *fakeFlusher) Flush(flushTime time.Time) Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes = append(f.flushes, flushTime)
	return Batch{
		FlushTime: flushTime,
		Events:    []v1.Event{{Type: "JfrCPULoad", Timestamp: flushTime.UnixMilli()}},
	}
}

func (f *fakeFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flushes)
}

type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []Batch
	sent       []Batch
}

func (d *recordingDispatcher) Dispatch(batch Batch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, batch)
}

func (d *recordingDispatcher) Send(_ context.Context, batch Batch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, batch)
	return nil
}

func (d *recordingDispatcher) counts() (dispatched, sent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dispatched), len(d.sent)
}

func TestScheduler_Tick(t *testing.T) {
	flusher := &fakeFlusher{}
	dispatcher := &recordingDispatcher{}

	s := NewScheduler(flusher, dispatcher, SchedulerOptions{Interval: time.Second})
	now := windowStart.Add(10 * time.Second)
	s.now = func() time.Time { return now }

	s.Tick()

	require.Equal(t, []time.Time{now}, flusher.flushes)
	require.Len(t, dispatcher.dispatched, 1)
	require.Equal(t, now, dispatcher.dispatched[0].FlushTime)
	require.Empty(t, dispatcher.sent)
}

func TestScheduler_FinalFlushOnShutdown(t *testing.T) {
	flusher := &fakeFlusher{}
	dispatcher := &recordingDispatcher{}
	drained := make(chan struct{})
	close(drained)

	s := NewScheduler(flusher, dispatcher, SchedulerOptions{
		Interval:        time.Minute,
		ShutdownTimeout: time.Second,
		Drained:         drained,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Start(ctx))

	dispatched, sent := dispatcher.counts()
	require.Equal(t, 0, dispatched)
	require.Equal(t, 1, sent)
	require.Equal(t, 1, flusher.count())
}

func TestScheduler_FinalFlushWaitsForDrain(t *testing.T) {
	flusher := &fakeFlusher{}
	dispatcher := &recordingDispatcher{}
	drained := make(chan struct{})

	s := NewScheduler(flusher, dispatcher, SchedulerOptions{
		Interval:        time.Minute,
		ShutdownTimeout: time.Second,
		Drained:         drained,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, flusher.count())

	close(drained)
	require.NoError(t, <-done)
	require.Equal(t, 1, flusher.count())
}

func TestScheduler_PeriodicFlush(t *testing.T) {
	flusher := &fakeFlusher{}
	dispatcher := &recordingDispatcher{}

	s := NewScheduler(flusher, dispatcher, SchedulerOptions{Interval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		dispatched, _ := dispatcher.counts()
		return dispatched >= 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	_, sent := dispatcher.counts()
	require.Equal(t, 1, sent)
}

func TestScheduler_InvalidInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, 500 * time.Millisecond, 1500 * time.Millisecond} {
		s := NewScheduler(&fakeFlusher{}, &recordingDispatcher{}, SchedulerOptions{Interval: interval})
		require.Error(t, s.Start(context.Background()), interval.String())
	}
}
