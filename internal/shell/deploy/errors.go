// Package deploy applies a compose descriptor to a destination engine.
package deploy

import (
	"errors"
	"fmt"
)

// ErrIO marks failures to serialize or write the descriptor.
var ErrIO = errors.New("descriptor could not be written")

// Stage names the executor step that failed.
type Stage string

const (
	StageSerialize     Stage = "serialize"
	StagePull          Stage = "pull"
	StageUp            Stage = "up"
	StagePermissionFix Stage = "permission-fix"
)

// ExecutionError reports the stage at which a deployment stopped.
type ExecutionError struct {
	Stage     Stage
	ServiceID string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("deploy %s: %s failed: %v", e.ServiceID, e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// StageOf returns the failed stage of err, or "" when err is not an ExecutionError.
func StageOf(err error) Stage {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Stage
	}
	return ""
}
