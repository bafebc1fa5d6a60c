package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrArtifactNotFound indicates that the artifact was never stored or has
	// already been released.
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)

	// ErrEmptyArtifact is returned when Put is called without data.
	ErrEmptyArtifact = errors.New("artifact data cannot be empty")

	// ErrInvalidKey is returned when an artifact ID cannot be mapped to a
	// storage location.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
