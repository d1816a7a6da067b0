package models

// ErrorCode is a machine readable API error code
type ErrorCode string

const (
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeConflict       ErrorCode = "CONFLICT"
	ErrorCodeUnavailable    ErrorCode = "UNAVAILABLE"
	ErrorCodeInternal       ErrorCode = "INTERNAL"
)

// ErrorDetail describes one invalid field
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorResponse is the standard API error body
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo carries the error code, message and details
type ErrorInfo struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

func newErrorResponse(code ErrorCode, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	}
}

// NewValidationError creates a validation error with field details
func NewValidationError(message string, details []ErrorDetail) ErrorResponse {
	resp := newErrorResponse(ErrorCodeInvalidRequest, message)
	resp.Error.Details = details
	return resp
}

// NewConflictError creates a conflict error
func NewConflictError(message string) ErrorResponse {
	return newErrorResponse(ErrorCodeConflict, message)
}

// NewUnauthorizedError creates an authentication error
func NewUnauthorizedError(message string) ErrorResponse {
	return newErrorResponse(ErrorCodeUnauthorized, message)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) ErrorResponse {
	return newErrorResponse(ErrorCodeNotFound, message)
}

// NewUnavailableError creates an error for a dependency that is down
func NewUnavailableError(message string) ErrorResponse {
	return newErrorResponse(ErrorCodeUnavailable, message)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) ErrorResponse {
	return newErrorResponse(ErrorCodeInternal, message)
}
