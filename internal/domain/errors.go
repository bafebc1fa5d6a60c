package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrJobNotFound is returned when no job with the given ID exists in a queue.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when a job is asked to move to a state
	// that is not reachable from its current state.
	ErrInvalidTransition = errors.New("invalid job state transition")

	// ErrJobInFlight is returned when a retry is requested for a job whose
	// execution is still running.
	ErrJobInFlight = errors.New("job is currently processing")

	// ErrInvalidJobStatus is returned when a job status is not valid.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrUnknownTool is returned when a tool name is not recognized.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrUnknownVariant is returned when a variant kind is not in the variant table.
	ErrUnknownVariant = errors.New("unknown variant kind")

	// ErrVariantsUnsupported is returned when variants are requested from a
	// tool that cannot produce them.
	ErrVariantsUnsupported = errors.New("tool does not support variants")

	// ErrParentNotSucceeded is returned when variants are spawned from a job
	// that has not completed successfully.
	ErrParentNotSucceeded = errors.New("parent job has not succeeded")

	// ErrEmptyInput is returned when a job is created without an input artifact.
	ErrEmptyInput = errors.New("job input cannot be empty")
)
