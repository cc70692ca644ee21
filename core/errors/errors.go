// Package errors provides standardized error types and helpers for the gopml codebase.
//
// Two families matter to callers: document errors (ParseError, ValidationError),
// which originate from the file being read, and InvariantError, which marks a
// violation of the pathway graph's internal contracts and always indicates a
// bug in calling code, never bad input.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvariant indicates a graph invariant violation (programmer error)
	ErrInvariant = errors.New("graph invariant violated")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "pathway", "element", "record")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field or attribute that failed validation
	Value   string // Value that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// ParseError represents a structural error in a document being read.
// It is fatal to the read and carries the offending element's context.
type ParseError struct {
	Format  string // Format being parsed (e.g., "GPML2013a", "GPML2021")
	Element string // Element tag where the error occurred
	ID      string // Element identifier, if one was available
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	switch {
	case e.Element != "" && e.ID != "":
		return fmt.Sprintf("failed to parse %s element %s (id %s): %s", e.Format, e.Element, e.ID, e.Message)
	case e.Element != "":
		return fmt.Sprintf("failed to parse %s element %s: %s", e.Format, e.Element, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// InvariantError represents a violation of the pathway graph's contracts:
// double-attach, detach of an unwired ref, rebinding a bound endpoint.
// These are programmer errors in calling code, distinct from document errors.
type InvariantError struct {
	Op     string // Operation that was attempted (e.g., "attach", "detach")
	Kind   string // Entity or ref kind involved (e.g., "CitationRef")
	Reason string // What contract was violated
}

func (e *InvariantError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewParse creates a ParseError
func NewParse(format, element, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Element: element,
		Message: message,
	}
}

// NewInvariant creates an InvariantError
func NewInvariant(op, kind, reason string) *InvariantError {
	return &InvariantError{
		Op:     op,
		Kind:   kind,
		Reason: reason,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsInvariant reports whether err is a graph invariant violation.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}
