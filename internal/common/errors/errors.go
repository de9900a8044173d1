// internal/common/errors/errors.go

// Package errors provides standardized error handling for the intake
// submission pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation errors: recoverable, the agent corrects the form and resubmits.
	ErrCodeFieldValidationFailed      ErrorCode = "FIELD_VALIDATION_FAILED"
	ErrCodeSubmissionValidationFailed ErrorCode = "SUBMISSION_VALIDATION_FAILED"

	// Mapping errors: a malformed draft reached the record mapper. Indicates a
	// bug upstream of the mapper and is treated as fatal.
	ErrCodeInvalidEnumValue     ErrorCode = "INVALID_ENUM_VALUE"
	ErrCodeMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrCodeRecordMappingFailed  ErrorCode = "RECORD_MAPPING_FAILED"
	ErrCodeRecordSchemaMismatch ErrorCode = "RECORD_SCHEMA_MISMATCH"

	// Remote failures.
	ErrCodeRecordPersistFailed    ErrorCode = "RECORD_PERSIST_FAILED"
	ErrCodeDocumentRenderFailed   ErrorCode = "DOCUMENT_RENDER_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Orchestration errors.
	ErrCodeSubmissionInProgress ErrorCode = "SUBMISSION_IN_PROGRESS"

	// Session errors.
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"

	// Draft mutation errors.
	ErrCodeCannotRemoveLastClient ErrorCode = "CANNOT_REMOVE_LAST_CLIENT"
	ErrCodeUnknownFieldPath       ErrorCode = "UNKNOWN_FIELD_PATH"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// FieldErrors returns the per-field error map attached to a validation error,
// or nil when the error carries none.
func (e *StandardError) FieldErrors() map[string]string {
	raw, ok := e.Metadata["fieldErrors"]
	if !ok {
		return nil
	}
	fields, ok := raw.(map[string]string)
	if !ok {
		return nil
	}
	return fields
}

// ==========================
// Constructors
// ==========================

// NewValidationError aggregates per-field validation failures into the single
// error that blocks a submission.
func NewValidationError(fieldErrors map[string]string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionValidationFailed,
		Message:   fmt.Sprintf("submission blocked: %d field(s) failed validation", len(fieldErrors)),
		Retryable: false,
		Metadata:  map[string]interface{}{"fieldErrors": fieldErrors},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidEnumError reports a value outside a fixed enumerated set.
func NewInvalidEnumError(field, value string, allowed []string) *StandardError {
	return &StandardError{
		Code:    ErrCodeInvalidEnumValue,
		Message: fmt.Sprintf("%s must be one of [%s]", field, strings.Join(allowed, ", ")),
		Details: fmt.Sprintf("got %q", value),
		Metadata: map[string]interface{}{
			"field":   field,
			"value":   value,
			"allowed": allowed,
		},
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingFieldsError lists every missing required field at once so callers
// can report all problems together.
func NewMissingFieldsError(fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRequiredField,
		Message:   fmt.Sprintf("missing required field(s): %s", strings.Join(fields, ", ")),
		Metadata:  map[string]interface{}{"missingFields": fields},
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMappingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordMappingFailed,
		Message:   "failed to map draft to external record",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSchemaMismatchError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordSchemaMismatch,
		Message:   "external record does not match the table schema",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPersistenceError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordPersistFailed,
		Message:   "failed to persist record to the external store",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDocumentError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentRenderFailed,
		Message:   "cover sheet could not be generated",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "notification could not be sent",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewSubmissionInProgressError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInProgress,
		Message:   "a submission for this draft is already in progress",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "intake session not found or expired",
		Metadata:  map[string]interface{}{"sessionId": sessionID},
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionStoreError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "failed to read or write the intake session",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Classification helpers
// ==========================

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == code
}

// Normalize ensures we always have a StandardError to work with.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeFieldValidationFailed, ErrCodeSubmissionValidationFailed:
		return "validation"
	case ErrCodeInvalidEnumValue, ErrCodeMissingRequiredField,
		ErrCodeRecordMappingFailed, ErrCodeRecordSchemaMismatch:
		return "mapping"
	case ErrCodeRecordPersistFailed:
		return "persistence"
	case ErrCodeDocumentRenderFailed:
		return "document"
	case ErrCodeNotificationSendFailed:
		return "notification"
	case ErrCodeSessionNotFound, ErrCodeSessionStoreFailed:
		return "session"
	default:
		return "internal"
	}
}
