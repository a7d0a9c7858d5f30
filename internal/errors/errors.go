package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline errors. All of them are table-scoped: a
// single malformed source table never aborts the run.
type ErrorType string

const (
	// ErrTypeLayout means the Table Locator could not find a plausible
	// header/data split.
	ErrTypeLayout ErrorType = "LAYOUT_NOT_RECOGNIZED"
	// ErrTypeSchema means a required canonical field is absent from the
	// mapped columns.
	ErrTypeSchema ErrorType = "SCHEMA_MISMATCH"
	// ErrTypeCoercion means a raw value could not be converted to its
	// declared semantic type.
	ErrTypeCoercion ErrorType = "COERCION"
	// ErrTypeValidation means a consistency invariant was violated.
	ErrTypeValidation ErrorType = "VALIDATION"
	// ErrTypeConfig means the schema registry or runtime configuration is
	// invalid.
	ErrTypeConfig ErrorType = "CONFIG"
	// ErrTypeStorage means a source workbook could not be read.
	ErrTypeStorage ErrorType = "STORAGE"
)

// PipelineError is a typed, table-scoped application error.
type PipelineError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error for reporting.
func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a typed pipeline error.
func New(errType ErrorType, message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err is a PipelineError of the given type.
func IsType(err error, errType ErrorType) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type == errType
	}
	return false
}

// NewLayoutError creates a LayoutNotRecognized error.
func NewLayoutError(message string) *PipelineError {
	return New(ErrTypeLayout, message, nil)
}

// NewSchemaError creates a SchemaMismatch error.
func NewSchemaError(message string) *PipelineError {
	return New(ErrTypeSchema, message, nil)
}

// NewCoercionError creates a coercion error.
func NewCoercionError(message string, cause error) *PipelineError {
	return New(ErrTypeCoercion, message, cause)
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *PipelineError {
	return New(ErrTypeConfig, message, cause)
}

// NewStorageError creates a source-file access error.
func NewStorageError(message string, cause error) *PipelineError {
	return New(ErrTypeStorage, message, cause)
}
