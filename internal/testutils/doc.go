// Package testutils provides testing utilities shared across packages: image
// fixtures and a memory-backed slog handler for asserting on log output.
package testutils
