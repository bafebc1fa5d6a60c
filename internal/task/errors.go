package task

import "errors"

// Dispatcher errors
var (
	// ErrReferenceUnsupported is returned when a reference is marked on a tool
	// that does not use one.
	ErrReferenceUnsupported = errors.New("tool does not use a style reference")

	// ErrSideInputUnsupported is returned when a side input is supplied to a
	// tool that does not use one.
	ErrSideInputUnsupported = errors.New("tool does not use a shared side input")

	// ErrNoOutput is returned when output bytes are requested from a job that
	// has not succeeded.
	ErrNoOutput = errors.New("job has no output")

	// ErrStopped is returned when a stopped dispatcher is asked to start again
	// or to accept new jobs.
	ErrStopped = errors.New("dispatcher stopped")
)
