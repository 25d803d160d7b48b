package errors

const (
	HttpInternalError          = "internal_error"
	HttpInvalidJsonError       = "invalid_json"
	HttpInvalidEnvelopeError   = "invalid_envelope"
	HttpDuplicateEventError    = "duplicate_event"
	HttpVersionConflictError   = "version_conflict"
	HttpUnknownStreamTypeError = "unknown_stream_type"
	HttpUnhandledEventError    = "unhandled_event_type"
	HttpOrderingViolationError = "ordering_violation"
	HttpMissingTargetError     = "missing_target"
	HttpNotFoundError          = "not_found"
	HttpUnknownTableError      = "unknown_table"
	HttpInvalidQueryError      = "invalid_query"
	HttpInvalidParamsError     = "invalid_params"
)

// ErrorResponse is the error response body for every API error.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
