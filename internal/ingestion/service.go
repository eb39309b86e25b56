package ingestion

import (
	"context"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	"github.com/gin-gonic/gin"
)

const defaultMaxBatchRecords = 10000

// RecordIngester is the pipeline as seen by the HTTP source.
type RecordIngester interface {
	Ingest(ctx context.Context, rec v1.Record) error
	Supports(eventName string) bool
}

type Service struct {
	ingester         RecordIngester
	maxBodySizeBytes int
	maxBatchRecords  int
}

func NewService(ingester RecordIngester, maxBodySizeMB, maxBatchRecords int) *Service {
	if ingester == nil {
		panic("ingestion: ingester must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	if maxBatchRecords <= 0 {
		maxBatchRecords = defaultMaxBatchRecords
	}
	return &Service{
		ingester:         ingester,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		maxBatchRecords:  maxBatchRecords,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/records", s.IngestHandler)
	r.POST("/v1/records/batch", s.IngestBatchHandler)
}
