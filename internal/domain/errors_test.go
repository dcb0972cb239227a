package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMCPError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "Invalid HGVS notation",
			details:   "The provided HGVS notation does not match expected format",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrDatabaseError,
			message:   "Database connection failed",
			details:   "Unable to connect to MySQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMCPError(tt.code, tt.message, tt.details, tt.requestID)

			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.details, err.Details)
			assert.Equal(t, tt.requestID, err.RequestID)
			assert.WithinDuration(t, time.Now().UTC(), err.Timestamp, time.Minute)
			assert.Equal(t, tt.code+": "+tt.message, err.Error())
		})
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	driverErr := errors.New("Table 'medgen.nope' doesn't exist")
	queryErr := fmt.Errorf("fetching genes: %w", &QueryError{SQL: "select * from nope", Err: driverErr})

	assert.ErrorIs(t, queryErr, ErrQuery)
	assert.ErrorIs(t, queryErr, driverErr)
	assert.NotErrorIs(t, queryErr, ErrNotFound)

	colErr := &ColumnNotFoundError{Column: "ID", SQL: "select 1"}
	assert.ErrorIs(t, colErr, ErrColumnNotFound)
	assert.Equal(t, "no ID column found. SQL query: select 1", colErr.Error())

	svcErr := &ServiceError{Service: "NCBI Variant Report Service", Message: "error payload", Body: "Error: bad", ReproduceURL: "http://example.org/?annot1=x"}
	assert.ErrorIs(t, svcErr, ErrService)
	assert.Contains(t, svcErr.Error(), "To reproduce, visit: http://example.org/?annot1=x")
	assert.Contains(t, svcErr.Error(), "Error: bad")

	assert.ErrorIs(t, InvalidArgument("maxlen must be at least %d", 3), ErrInvalidArgument)
	assert.ErrorIs(t, NotFound("gene %q", "XYZ"), ErrNotFound)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"invalid argument", InvalidArgument("bad"), ErrInvalidInput},
		{"validation", NewValidationError("hgvs", "empty", ""), ErrInvalidInput},
		{"not found", NotFound("x"), ErrNotFoundCode},
		{"query", &QueryError{SQL: "x", Err: errors.New("boom")}, ErrDatabaseError},
		{"column", &ColumnNotFoundError{Column: "ID"}, ErrDatabaseError},
		{"service", &ServiceError{Service: "s"}, ErrExternalAPI},
		{"other", errors.New("boom"), ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestToMCPError(t *testing.T) {
	mcpErr := ToMCPError(NotFound("gene %q", "NOPE1"), "req-1")
	assert.Equal(t, ErrNotFoundCode, mcpErr.Code)
	assert.Equal(t, "req-1", mcpErr.RequestID)
	assert.Contains(t, mcpErr.Details, "NOPE1")

	original := NewMCPError(ErrInvalidInput, "bad", "", "req-2")
	assert.Same(t, original, ToMCPError(fmt.Errorf("wrapped: %w", original), "req-3"))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("hgvs", "Invalid format", "invalid-hgvs")

	assert.Equal(t, "hgvs", err.Field)
	assert.Equal(t, "invalid-hgvs", err.Value)
	assert.Equal(t, "validation error for field 'hgvs': Invalid format", err.Error())
}
