package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the warehouse and service layers. Typed errors below
// match them through errors.Is.
var (
	ErrQuery           = errors.New("query failed")
	ErrColumnNotFound  = errors.New("column not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrService         = errors.New("service error")
)

// QueryError wraps a driver failure together with the statement that caused it.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (sql: %s)", e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// ColumnNotFoundError is returned when a fetched row lacks the requested column.
type ColumnNotFoundError struct {
	Column string
	SQL    string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("no %s column found. SQL query: %s", e.Column, e.SQL)
}

func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrColumnNotFound }

// ServiceError reports an error payload returned by an external web service.
type ServiceError struct {
	Service      string
	Message      string
	Body         string
	ReproduceURL string
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("an error occurred when using the %s: %s", e.Service, e.Message)
	if e.Body != "" {
		msg += fmt.Sprintf(": %q", e.Body)
	}
	if e.ReproduceURL != "" {
		msg += "\nTo reproduce, visit: " + e.ReproduceURL
	}
	return msg
}

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// InvalidArgument builds an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound builds an error wrapping ErrNotFound.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// MCPError represents a standardized error response
type MCPError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrNotFoundCode   = "NOT_FOUND"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrExternalAPI    = "EXTERNAL_API_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// NewMCPError creates a new MCPError with timestamp
func NewMCPError(code, message, details, requestID string) *MCPError {
	return &MCPError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ErrorCode maps an error onto one of the response codes above.
func ErrorCode(err error) string {
	var validation *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument), errors.As(err, &validation):
		return ErrInvalidInput
	case errors.Is(err, ErrNotFound):
		return ErrNotFoundCode
	case errors.Is(err, ErrQuery), errors.Is(err, ErrColumnNotFound):
		return ErrDatabaseError
	case errors.Is(err, ErrService):
		return ErrExternalAPI
	default:
		return ErrInternalServer
	}
}

// ToMCPError converts any error into a response payload.
func ToMCPError(err error, requestID string) *MCPError {
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	code := ErrorCode(err)
	message := "request failed"
	switch code {
	case ErrInvalidInput:
		message = "invalid input"
	case ErrNotFoundCode:
		message = "not found"
	case ErrDatabaseError:
		message = "warehouse query failed"
	case ErrExternalAPI:
		message = "external service failed"
	}
	return NewMCPError(code, message, err.Error(), requestID)
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
