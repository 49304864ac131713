package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound is wrapped by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates an authentication failure.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypePermission indicates a permission/authorization failure.
	ErrorTypePermission ErrorType = "permission"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeRateLimit indicates the provider throttled the request.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeOverloaded indicates the provider is temporarily overloaded.
	ErrorTypeOverloaded ErrorType = "overloaded"

	// ErrorTypeNetwork indicates the provider could not be reached.
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeContextLength indicates the context length was exceeded.
	ErrorTypeContextLength ErrorType = "context_length"

	// ErrorTypeUnsupported indicates content the provider cannot handle.
	ErrorTypeUnsupported ErrorType = "unsupported"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeContextLengthExceeded ErrorCode = "context_length_exceeded"
	ErrorCodeRateLimitExceeded     ErrorCode = "rate_limit_exceeded"
	ErrorCodeInvalidAPIKey         ErrorCode = "invalid_api_key"
	ErrorCodeModelNotFound         ErrorCode = "model_not_found"
	ErrorCodeIllegalTransition     ErrorCode = "illegal_transition"
)

// APIError is a canonical error returned by providers and validation paths
// and translated to HTTP responses by the server.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Param is the parameter that caused the error (if applicable)
	Param string `json:"param,omitempty"`

	// StatusCode is the upstream or suggested HTTP status code
	StatusCode int `json:"-"`

	// RetryAfter is the server-suggested delay before retrying, if any
	RetryAfter time.Duration `json:"-"`

	// Provider names the AI provider the error originated from
	Provider string `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeContextLength, ErrorTypeUnsupported:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermission:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeOverloaded:
		return http.StatusServiceUnavailable
	case ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the error class is transient.
func (e *APIError) Retryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeOverloaded, ErrorTypeNetwork:
		return true
	}
	return false
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithParam adds a parameter name to the error.
func (e *APIError) WithParam(param string) *APIError {
	e.Param = param
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithRetryAfter records a server-suggested retry delay.
func (e *APIError) WithRetryAfter(d time.Duration) *APIError {
	e.RetryAfter = d
	return e
}

// WithProvider sets the originating provider name.
func (e *APIError) WithProvider(name string) *APIError {
	e.Provider = name
	return e
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message).
		WithCode(ErrorCodeInvalidAPIKey)
}

// ErrPermission creates a permission error.
func ErrPermission(message string) *APIError {
	return NewAPIError(ErrorTypePermission, message)
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *APIError {
	return NewAPIError(ErrorTypeRateLimit, message).
		WithCode(ErrorCodeRateLimitExceeded)
}

// ErrOverloaded creates an overloaded error.
func ErrOverloaded(message string) *APIError {
	return NewAPIError(ErrorTypeOverloaded, message)
}

// ErrNetwork creates a transport failure error.
func ErrNetwork(message string) *APIError {
	return NewAPIError(ErrorTypeNetwork, message)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// ErrIllegalTransition creates a validation error for a stage move.
func ErrIllegalTransition(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message).
		WithCode(ErrorCodeIllegalTransition)
}

// ErrorFromStatus classifies a raw HTTP status when the provider body carries
// no structured error.
func ErrorFromStatus(status int, message string) *APIError {
	var e *APIError
	switch {
	case status == http.StatusTooManyRequests:
		e = ErrRateLimit(message)
	case status == http.StatusServiceUnavailable || status == 529:
		e = ErrOverloaded(message)
	case status == http.StatusUnauthorized:
		e = ErrAuthentication(message)
	case status == http.StatusForbidden:
		e = ErrPermission(message)
	case status == http.StatusNotFound:
		e = NewAPIError(ErrorTypeNotFound, message)
	case status == http.StatusRequestEntityTooLarge:
		e = NewAPIError(ErrorTypeContextLength, message).WithCode(ErrorCodeContextLengthExceeded)
	case status == http.StatusUnsupportedMediaType:
		e = NewAPIError(ErrorTypeUnsupported, message)
	case status >= 400 && status < 500:
		e = ErrInvalidRequest(message)
	default:
		e = ErrServer(message)
	}
	return e.WithStatusCode(status)
}
