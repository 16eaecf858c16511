// Package compose builds, serializes and checks compose descriptors.
// This is part of the Functional Core - all functions are pure with no I/O.
package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Builder errors
	ErrNoServices         = errors.New("compose descriptor must define at least one service")
	ErrUnknownService     = errors.New("service is not defined")
	ErrDuplicateService   = errors.New("service is already defined")
	ErrServiceNoImage     = errors.New("service must have an image")
	ErrDuplicateVolume    = errors.New("volume is declared more than once")
	ErrUndeclaredVolume   = errors.New("mounted volume is not declared")
	ErrOrphanedVolume     = errors.New("declared volume is not mounted")
	ErrUndeclaredNetwork  = errors.New("attached network is not declared")
	ErrInvalidVolumeMount = errors.New("invalid volume mount")

	// Serialization errors
	ErrEmptyInput  = errors.New("compose spec is empty")
	ErrInvalidYAML = errors.New("invalid YAML syntax")
)

// ParseError wraps errors with context about where building or parsing failed.
type ParseError struct {
	Field   string // e.g., "services.web.volumes[0]"
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
