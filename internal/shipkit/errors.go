package shipkit

import "fmt"

// PreconditionError aborts a run before any stage starts: wrong host
// platform or a missing tool.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// StageError is a fatal stage failure. ExitCode is the status the process
// exits with; for subprocess failures it is the subprocess's own status.
type StageError struct {
	Stage    string
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, ExitCode: 1, Err: err}
}
