package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aevon-lab/jfrtel/internal/aggregation"
	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	httperr "github.com/aevon-lab/jfrtel/internal/core/errors"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON body"
	msgIngestFailed     = "Failed to ingest record"
	msgPipelineStopped  = "Pipeline is shutting down"
	msgEmptyBatch       = "Batch contains no records"
	msgBatchTooLarge    = "Batch exceeds maximum record count"
	msgUnsupportedEvent = "Event kind is not consumed by any enabled summary or mapper"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler accepts one record.
func (s *Service) IngestHandler(c *gin.Context) {
	var rec v1.Record
	payloadSize, ierr := s.parseBody(c, &rec)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	if ierr := s.validateRecord(&rec, -1); ierr != nil {
		writeError(c, ierr)
		return
	}

	slog.Debug("[Ingestion] Received record",
		"event", rec.EventName,
		"payload_size", payloadSize)

	if ierr := s.ingest(c.Request.Context(), rec); ierr != nil {
		writeError(c, ierr)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// IngestBatchHandler accepts a JSON array of records. Every record is
// validated before any is ingested, so a bad record rejects the whole batch.
func (s *Service) IngestBatchHandler(c *gin.Context) {
	var recs []v1.Record
	payloadSize, ierr := s.parseBody(c, &recs)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	if len(recs) == 0 {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRecordError,
			message:    msgEmptyBatch,
		})
		return
	}
	if len(recs) > s.maxBatchRecords {
		writeError(c, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLargeError,
			message:    msgBatchTooLarge,
			details:    map[string]interface{}{"max_records": s.maxBatchRecords},
		})
		return
	}

	for i := range recs {
		if ierr := s.validateRecord(&recs[i], i); ierr != nil {
			writeError(c, ierr)
			return
		}
	}

	slog.Debug("[Ingestion] Received batch",
		"records", len(recs),
		"payload_size", payloadSize)

	for i, rec := range recs {
		if ierr := s.ingest(c.Request.Context(), rec); ierr != nil {
			ierr.details = map[string]interface{}{"index": i, "accepted": i}
			writeError(c, ierr)
			return
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "accepted": len(recs)})
}

// parseBody reads the size-limited request body and decodes it into dst.
// Returns the raw payload size (used for structured logging upstream).
func (s *Service) parseBody(c *gin.Context, dst interface{}) (int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLargeError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	if err := v1.Unmarshal(bodyBytes, dst); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	return len(bodyBytes), nil
}

// validateRecord checks the envelope and that the event kind is consumed.
// index is the position within a batch, or -1 for a single record.
func (s *Service) validateRecord(rec *v1.Record, index int) *ingestionError {
	var details map[string]interface{}
	if index >= 0 {
		details = map[string]interface{}{"index": index}
	}

	if err := rec.Validate(); err != nil {
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRecordError,
			message:    err.Error(),
			details:    details,
		}
	}

	if !s.ingester.Supports(rec.EventName) {
		if details == nil {
			details = map[string]interface{}{}
		}
		details["event_name"] = rec.EventName
		return &ingestionError{
			statusCode: http.StatusUnprocessableEntity,
			errorType:  httperr.HttpUnsupportedEventError,
			message:    msgUnsupportedEvent,
			details:    details,
		}
	}
	return nil
}

// ingest hands rec to the pipeline and maps its errors to HTTP.
func (s *Service) ingest(ctx context.Context, rec v1.Record) *ingestionError {
	err := s.ingester.Ingest(ctx, rec)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, aggregation.ErrUnsupportedEvent):
		return &ingestionError{
			statusCode: http.StatusUnprocessableEntity,
			errorType:  httperr.HttpUnsupportedEventError,
			message:    msgUnsupportedEvent,
		}
	case errors.Is(err, aggregation.ErrInvalidRecord):
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRecordError,
			message:    err.Error(),
		}
	case errors.Is(err, aggregation.ErrPipelineStopped), errors.Is(err, context.Canceled):
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpUnavailableError,
			message:    msgPipelineStopped,
		}
	default:
		slog.Error("[Ingestion] Failed to ingest record", "error", err, "event", rec.EventName)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    fmt.Sprintf("%s: %s", msgIngestFailed, rec.EventName),
		}
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
