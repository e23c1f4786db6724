package flow

import (
	"errors"
	"fmt"
)

var ErrAlreadyRunning = errors.New("flow run already in progress")
var ErrNilFlow = errors.New("flow is nil")

// StepExecutionError aborts a run. Cause is the executor failure or the
// context error when the run was cancelled.
type StepExecutionError struct {
	Index  int
	StepId string
	Cause  error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.StepId, e.Cause)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Cause
}
