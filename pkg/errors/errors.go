// Copyright (c) 2025 A Bit of Help, Inc.

// Package errors provides the error kinds returned by the compression engine
// and helpers for classifying them.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Standard errors that can be used for comparison with errors.Is
var (
	// ErrNotFound indicates the input path does not exist
	ErrNotFound = errors.New("path not found")

	// ErrUnsupported indicates the input path is neither a regular file nor a directory
	ErrUnsupported = errors.New("unsupported path type")

	// ErrIOFailure indicates an I/O operation failed
	ErrIOFailure = errors.New("I/O operation failed")

	// ErrCorruptStream indicates compressed or container data is malformed
	ErrCorruptStream = errors.New("corrupt stream")

	// ErrPathTraversal indicates an archive entry would escape the destination root
	ErrPathTraversal = errors.New("path traversal")

	// ErrInvalidConfig indicates an option value is outside its allowed range
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCanceled indicates an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// Kind names the class of an engine error.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindNotFound      Kind = "not_found"
	KindUnsupported   Kind = "unsupported"
	KindIO            Kind = "io_error"
	KindCorruptStream Kind = "corrupt_stream"
	KindPathTraversal Kind = "path_traversal"
	KindInvalidConfig Kind = "invalid_config"
	KindCanceled      Kind = "canceled"
)

// OperationError represents an error that occurred while the engine was
// working on a path
type OperationError struct {
	// Err is the underlying error, always wrapping one of the sentinels above
	Err error

	// Operation is the operation being performed
	Operation string

	// Path is the filesystem path the operation was working on
	Path string

	// Time is when the error occurred
	Time time.Time
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new OperationError. kind must be one of the
// package sentinels; cause may be nil.
func NewOperationError(kind error, operation, path string, cause error) *OperationError {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return &OperationError{
		Err:       err,
		Operation: operation,
		Path:      path,
		Time:      time.Now(),
	}
}

// NotFound wraps cause as an ErrNotFound operation error
func NotFound(operation, path string, cause error) error {
	return NewOperationError(ErrNotFound, operation, path, cause)
}

// Unsupported wraps cause as an ErrUnsupported operation error
func Unsupported(operation, path string, cause error) error {
	return NewOperationError(ErrUnsupported, operation, path, cause)
}

// IO wraps cause as an ErrIOFailure operation error
func IO(operation, path string, cause error) error {
	return NewOperationError(ErrIOFailure, operation, path, cause)
}

// Corrupt wraps cause as an ErrCorruptStream operation error
func Corrupt(operation, path string, cause error) error {
	return NewOperationError(ErrCorruptStream, operation, path, cause)
}

// Traversal reports an archive entry name that escapes the destination root
func Traversal(operation, name string) error {
	return NewOperationError(ErrPathTraversal, operation, name, nil)
}

// InvalidConfig wraps cause as an ErrInvalidConfig operation error
func InvalidConfig(operation string, cause error) error {
	return NewOperationError(ErrInvalidConfig, operation, "", cause)
}

// Canceled wraps a context error as an ErrCanceled operation error
func Canceled(operation, path string, cause error) error {
	return NewOperationError(ErrCanceled, operation, path, cause)
}

// IsNotFoundError checks if the error is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnsupportedError checks if the error is an unsupported path type error
func IsUnsupportedError(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsIOError checks if the error is an I/O error
func IsIOError(err error) bool {
	return errors.Is(err, ErrIOFailure)
}

// IsCorruptStreamError checks if the error reports malformed input data
func IsCorruptStreamError(err error) bool {
	return errors.Is(err, ErrCorruptStream)
}

// IsPathTraversalError checks if the error reports an escaping archive entry
func IsPathTraversalError(err error) bool {
	return errors.Is(err, ErrPathTraversal)
}

// IsConfigError checks if the error is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsCancellationError checks if the error is a cancellation or deadline error
func IsCancellationError(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the kind of err. Cancellation is checked first because a
// canceled copy may also surface as a short write.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case IsCancellationError(err):
		return KindCanceled
	case IsPathTraversalError(err):
		return KindPathTraversal
	case IsNotFoundError(err):
		return KindNotFound
	case IsUnsupportedError(err):
		return KindUnsupported
	case IsCorruptStreamError(err):
		return KindCorruptStream
	case IsConfigError(err):
		return KindInvalidConfig
	case IsIOError(err):
		return KindIO
	default:
		return KindUnknown
	}
}
