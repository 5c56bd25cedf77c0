// Package apperr provides the structured error type returned across the
// platform's transport boundaries.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSchemaMismatch     ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeInferenceFailed    ErrorCode = "INFERENCE_FAILED"
	ErrCodeConfigurationFault ErrorCode = "CONFIGURATION_FAULT"

	ErrCodeInvalidUpload  ErrorCode = "INVALID_UPLOAD"
	ErrCodeInvalidCSV     ErrorCode = "INVALID_CSV"
	ErrCodeInvalidMapping ErrorCode = "INVALID_COLUMN_MAPPING"
	ErrCodeUploadNotFound ErrorCode = "UPLOAD_NOT_FOUND"
	ErrCodeStorageFailed  ErrorCode = "STORAGE_FAILED"
	ErrCodeDatabaseFailed ErrorCode = "DATABASE_FAILED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// Coder is implemented by domain errors that carry their own code.
type Coder interface {
	Code() ErrorCode
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// HTTPStatus maps an error code to the status the HTTP layer responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeSchemaMismatch, ErrCodeInferenceFailed, ErrCodeInvalidUpload,
		ErrCodeInvalidCSV, ErrCodeInvalidMapping:
		return http.StatusBadRequest
	case ErrCodeUploadNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewBadRequest creates a non-retryable client error.
func NewBadRequest(code ErrorCode, message string, cause error) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewNotFound creates a non-retryable not-found error for the given resource.
func NewNotFound(code ErrorCode, message string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternal creates a retryable server-side error wrapping cause.
func NewInternal(code ErrorCode, message string, cause error) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// From normalizes any error into a *StandardError. Errors implementing Coder
// keep their code and message.
func From(err error) *StandardError {
	if err == nil {
		return nil
	}

	var std *StandardError
	if errors.As(err, &std) {
		return std
	}

	var coded Coder
	if errors.As(err, &coded) {
		code := coded.Code()
		return &StandardError{
			Code:      code,
			Message:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
			cause:     err,
		}
	}

	return NewInternal(ErrCodeInternal, "internal error", err)
}
