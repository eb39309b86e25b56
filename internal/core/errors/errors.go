package errors

const (
	HttpInternalError         = "internal_error"
	HttpInvalidJsonError      = "invalid_json"
	HttpInvalidRecordError    = "invalid_record"
	HttpUnsupportedEventError = "unsupported_event"
	HttpPayloadTooLargeError  = "payload_too_large"
	HttpUnavailableError      = "unavailable"
)

// ErrorResponse is the error response body of every HTTP endpoint.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
