package storage

import (
	"context"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

// Sink is the external destination of emitted telemetry. Delivery is best
// effort: a failed send is reported once and never retried by the caller.
type Sink interface {
	SendEvents(ctx context.Context, events []v1.Event) error
	SendSummaries(ctx context.Context, points []v1.SummaryPoint) error
}
