// Package errors provides error types and handling for classpath scanning
// operations. It wraps underlying filesystem errors with the operation and
// path context needed to debug scans over large directory trees.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a scanning operation error with context about the
// operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "read", "open", "load")
	Op string

	// Root is the root element directory the operation ran under (if applicable)
	Root string

	// Path is the path of the resource relative to its root (if applicable)
	Path string

	// Err is the underlying error from the filesystem or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Root != "" && e.Path != "" {
		return fmt.Sprintf("classgraph.%s %s!%s: %v", e.Op, e.Root, e.Path, e.Err)
	}
	if e.Root != "" {
		return fmt.Sprintf("classgraph.%s root %s: %v", e.Op, e.Root, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("classgraph.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("classgraph.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewRootError creates a new Error with root element context.
func NewRootError(op, root string, err error) *Error {
	return &Error{
		Op:   op,
		Root: root,
		Err:  err,
	}
}

// NewResourceError creates a new Error with root element and resource path context.
func NewResourceError(op, root, path string, err error) *Error {
	return &Error{
		Op:   op,
		Root: root,
		Path: path,
		Err:  err,
	}
}

// Sentinel errors for common scanning failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrRootSkipped indicates the owning root element was skipped, so no
	// resources can be opened from it
	ErrRootSkipped = errors.New("classgraph: root element skipped")

	// ErrClosed indicates the resource handle has already been closed
	ErrClosed = errors.New("classgraph: resource closed")

	// ErrAlreadyOpen indicates the resource handle already has a live backend
	ErrAlreadyOpen = errors.New("classgraph: resource already open")

	// ErrTooLarge indicates a file exceeds what can be mapped on this platform
	ErrTooLarge = errors.New("classgraph: file too large to map")
)

// IsRootSkipped checks if an error indicates the owning root element was skipped.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsRootSkipped(err error) bool {
	return errors.Is(err, ErrRootSkipped)
}

// IsClosed checks if an error indicates a resource handle was already closed.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsAlreadyOpen checks if an error indicates a resource handle was already open.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAlreadyOpen(err error) bool {
	return errors.Is(err, ErrAlreadyOpen)
}
