package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can decide whether to surface or recover them.
type ErrorType string

const (
	ErrorTypeExtraction   ErrorType = "extraction"
	ErrorTypeInference    ErrorType = "inference_unavailable"
	ErrorTypeMalformed    ErrorType = "malformed_output"
	ErrorTypeNotFound     ErrorType = "session_not_found"
	ErrorTypeStorage      ErrorType = "storage_access"
	ErrorTypeCompute      ErrorType = "compute_failed"
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeConfig       ErrorType = "config"
)

// Sentinels for errors.Is matching. Every *Error matches the sentinel of its type.
var (
	ErrExtraction           = errors.New("document could not be extracted")
	ErrInferenceUnavailable = errors.New("inference service unavailable")
	ErrMalformedOutput      = errors.New("malformed inference output")
	ErrSessionNotFound      = errors.New("session not found")
	ErrStorageAccess        = errors.New("storage access failed")
	ErrComputeFailed        = errors.New("artifact computation failed")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConfig               = errors.New("invalid configuration")
)

var sentinels = map[ErrorType]error{
	ErrorTypeExtraction:   ErrExtraction,
	ErrorTypeInference:    ErrInferenceUnavailable,
	ErrorTypeMalformed:    ErrMalformedOutput,
	ErrorTypeNotFound:     ErrSessionNotFound,
	ErrorTypeStorage:      ErrStorageAccess,
	ErrorTypeCompute:      ErrComputeFailed,
	ErrorTypeInvalidInput: ErrInvalidInput,
	ErrorTypeConfig:       ErrConfig,
}

// Error is a domain error carrying its type and the underlying cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's type.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Type]
	return ok && s == target
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func ExtractionError(message string, err error) *Error {
	return NewError(ErrorTypeExtraction, message, err)
}

func InferenceError(message string, err error) *Error {
	return NewError(ErrorTypeInference, message, err)
}

func MalformedOutputError(message string, err error) *Error {
	return NewError(ErrorTypeMalformed, message, err)
}

func NotFoundError(id string) *Error {
	return NewError(ErrorTypeNotFound, "unknown session "+id, nil)
}

func StorageError(message string, err error) *Error {
	return NewError(ErrorTypeStorage, message, err)
}

func ComputeError(message string, err error) *Error {
	return NewError(ErrorTypeCompute, message, err)
}

func InvalidInputError(message string, err error) *Error {
	return NewError(ErrorTypeInvalidInput, message, err)
}

func ConfigError(message string, err error) *Error {
	return NewError(ErrorTypeConfig, message, err)
}

// TypeOf returns the domain type of err, or "" when err is not a domain error.
func TypeOf(err error) ErrorType {
	var de *Error
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}
