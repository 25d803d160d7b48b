package ingestion

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	httperr "github.com/aevon-lab/tenantflow/internal/core/errors"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/dispatch"
	"github.com/aevon-lab/tenantflow/internal/projection"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON body"
	msgPersistFailed    = "Failed to persist event"
	msgDuplicateEvent   = "Event already exists"
	msgVersionConflict  = "Stream version is not the next version"
	msgDispatchDeferred = "Event stored; projection update will be retried"
	defaultListLimit    = 100
	maxListLimit        = 1000
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

// IngestHandler handles HTTP POST requests for event ingestion.
func (s *Service) IngestHandler(c *gin.Context) {
	evt, payloadSize, ierr := s.parseEvent(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	slog.Info("[Ingestion] Received event",
		"event_id", evt.ID,
		"stream_id", evt.StreamID,
		"stream_type", evt.StreamType,
		"event_type", evt.EventType,
		"payload_size", payloadSize)

	err := s.Ingest(c.Request.Context(), evt)
	if err == nil {
		c.JSON(http.StatusAccepted, gin.H{
			"status":         "applied",
			"event_id":       evt.ID,
			"stream_version": evt.StreamVersion,
		})
		return
	}

	// Appended but the dispatch hit a transient failure; the sweeper owns it now.
	if evt.Seq > 0 && !dispatch.IsFatal(err) {
		slog.Warn("[Ingestion] Dispatch deferred", "event_id", evt.ID, "error", err)
		c.JSON(http.StatusAccepted, gin.H{
			"status":         "pending",
			"event_id":       evt.ID,
			"stream_version": evt.StreamVersion,
			"message":        msgDispatchDeferred,
		})
		return
	}

	writeError(c, classify(evt, err))
}

// parseEvent reads the raw request body and binds it into an Event struct.
// Returns the parsed event and the raw payload size (used for structured logging upstream).
func (s *Service) parseEvent(c *gin.Context) (*v1.Event, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var evt v1.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	// processed_at is owned by the dispatcher.
	evt.ProcessedAt = nil
	return &evt, len(bodyBytes), nil
}

// classify maps an Ingest error onto the HTTP error shape.
func classify(evt *v1.Event, err error) *ingestionError {
	details := map[string]interface{}{"event_id": evt.ID}

	var (
		unknown   *dispatch.UnknownStreamTypeError
		unhandled *projection.UnhandledEventTypeError
		ordering  *projection.OrderingViolationError
	)

	switch {
	case errors.Is(err, dispatch.ErrInvalidEnvelope):
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidEnvelopeError,
			message:    err.Error(),
		}
	case errors.Is(err, storage.ErrDuplicate):
		slog.Info("[Ingestion] Duplicate event rejected", "event_id", evt.ID, "stream_id", evt.StreamID)
		return &ingestionError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpDuplicateEventError,
			message:    msgDuplicateEvent,
			details:    details,
		}
	case errors.Is(err, storage.ErrVersionConflict):
		slog.Info("[Ingestion] Version conflict", "stream_id", evt.StreamID, "stream_version", evt.StreamVersion)
		return &ingestionError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpVersionConflictError,
			message:    msgVersionConflict,
			details:    map[string]interface{}{"stream_id": evt.StreamID, "stream_version": evt.StreamVersion},
		}
	case errors.As(err, &unknown):
		details["stream_type"] = unknown.StreamType
		return unprocessable(httperr.HttpUnknownStreamTypeError, err, details)
	case errors.As(err, &unhandled):
		details["category"] = string(unhandled.Category)
		details["event_type"] = unhandled.EventType
		return unprocessable(httperr.HttpUnhandledEventError, err, details)
	case errors.As(err, &ordering):
		details["table"] = ordering.Table
		details["target_id"] = ordering.ID
		return unprocessable(httperr.HttpOrderingViolationError, err, details)
	case errors.Is(err, projection.ErrMissingTarget):
		return unprocessable(httperr.HttpMissingTargetError, err, details)
	}

	slog.Error("[Ingestion] Failed to persist event", "error", err, "event_id", evt.ID)
	return &ingestionError{
		statusCode: http.StatusInternalServerError,
		errorType:  httperr.HttpInternalError,
		message:    msgPersistFailed,
	}
}

func unprocessable(errorType string, err error, details map[string]interface{}) *ingestionError {
	slog.Warn("[Ingestion] Event stored but not applied", "error_type", errorType, "error", err)
	return &ingestionError{
		statusCode: http.StatusUnprocessableEntity,
		errorType:  errorType,
		message:    err.Error(),
		details:    details,
	}
}

// ListStreamHandler returns the events of one stream in version order.
// Query params: after_version (default 0), limit (1..1000, default 100).
func (s *Service) ListStreamHandler(c *gin.Context) {
	streamID := c.Param("stream_id")

	afterVersion := int64(0)
	if raw := c.Query("after_version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(c, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidParamsError,
				message:    "after_version must be a non-negative integer",
			})
			return
		}
		afterVersion = v
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxListLimit {
			writeError(c, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidParamsError,
				message:    "limit must be between 1 and 1000",
			})
			return
		}
		limit = v
	}

	events, err := s.store.ListStream(c.Request.Context(), streamID, afterVersion, limit)
	if err != nil {
		slog.Error("[Ingestion] Failed to list stream", "stream_id", streamID, "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to list events",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream_id": streamID,
		"events":    events,
		"count":     len(events),
	})
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
