// Package source feeds recorder records into the pipeline from outside
// transports. Every source decodes one JSON record per message.
package source

import (
	"context"
	"log/slog"
	"sync/atomic"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

// Ingester accepts decoded records. Implemented by aggregation.Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, rec v1.Record) error
}

// Stats counts messages by outcome.
type Stats struct {
	Received  uint64 `json:"received"`
	Ingested  uint64 `json:"ingested"`
	Malformed uint64 `json:"malformed"`
	Rejected  uint64 `json:"rejected"`
}

// Counters is the concurrency-safe form of Stats.
type Counters struct {
	received  atomic.Uint64
	ingested  atomic.Uint64
	malformed atomic.Uint64
	rejected  atomic.Uint64
}

// Snapshot returns the current counts.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Received:  c.received.Load(),
		Ingested:  c.ingested.Load(),
		Malformed: c.malformed.Load(),
		Rejected:  c.rejected.Load(),
	}
}

// Deliver decodes data as one record and hands it to ing. Malformed or
// rejected records are logged and counted, never returned: a bad message must
// not stop a source. The only error is ctx's once it is done.
func Deliver(ctx context.Context, ing Ingester, c *Counters, component string, data []byte) error {
	c.received.Add(1)

	rec, err := v1.DecodeRecord(data)
	if err != nil {
		c.malformed.Add(1)
		slog.Warn("["+component+"] Skipping malformed record", "error", err, "payload_size", len(data))
		return nil
	}

	if err := ing.Ingest(ctx, *rec); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.rejected.Add(1)
		slog.Debug("["+component+"] Record rejected", "event", rec.EventName, "error", err)
		return nil
	}

	c.ingested.Add(1)
	return nil
}
