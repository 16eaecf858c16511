package docker

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrContainerNotFound is returned when an exec targets a missing container.
	ErrContainerNotFound = errors.New("container not found")

	// ErrContainerNotRunning is returned when an exec targets a stopped container.
	ErrContainerNotRunning = errors.New("container is not running")

	// ErrCommandFailed is returned when an engine command exits unsuccessfully.
	ErrCommandFailed = errors.New("engine command failed")

	// ErrConnectionFailed is returned when the engine cannot be reached.
	ErrConnectionFailed = errors.New("docker connection failed")

	// ErrUnsupportedHost is returned for engine hosts the SDK client cannot dial.
	ErrUnsupportedHost = errors.New("unsupported engine host")
)

// DockerError wraps errors with additional context.
type DockerError struct {
	Op      string // Operation that failed
	Entity  string // Entity type (compose, container, engine)
	ID      string // Entity ID if applicable
	Message string
	Err     error
}

func (e *DockerError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// NewDockerError creates a new DockerError.
func NewDockerError(op, entity, id, message string, err error) *DockerError {
	return &DockerError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
