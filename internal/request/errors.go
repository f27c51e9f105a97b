package request

import "fmt"

// Error kinds carried in error responses. Transports map kinds to status
// codes.
const (
	KindValidationError    = "validation_error"
	KindGenerationError    = "generation_error"
	KindUnknownRequestType = "unknown_request_type"
)

// Error is a typed request-handling failure.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Err Error `json:"error"`
}

// Body wraps the error for serialization.
func (e *Error) Body() ErrorBody {
	return ErrorBody{Err: *e}
}

// NewValidationError reports malformed or incomplete input.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidationError, Message: message}
}

// NewGenerationError reports a failure while producing media.
func NewGenerationError(message string) *Error {
	return &Error{Kind: KindGenerationError, Message: message}
}

// NewUnknownTypeError reports an unrecognized request type.
func NewUnknownTypeError(requestType string) *Error {
	return &Error{
		Kind:    KindUnknownRequestType,
		Message: fmt.Sprintf("unknown request type: %q", requestType),
	}
}
