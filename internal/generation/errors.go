package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrRetryable marks failures caused by rate limiting or transient
	// unavailability of the external service.
	ErrRetryable = errors.New("retryable generation failure")

	// ErrFatal marks failures that must not be retried.
	ErrFatal = errors.New("fatal generation failure")

	// ErrNoImage is returned when the response carries no usable image data
	ErrNoImage = errors.New("no image produced")

	// ErrQuotaExceeded is returned when the retry budget is exhausted while the
	// service keeps reporting quota or rate limit exhaustion
	ErrQuotaExceeded = errors.New("usage limit exceeded")

	// ErrServiceUnavailable is returned when the retry budget is exhausted while
	// the service keeps reporting itself unavailable
	ErrServiceUnavailable = errors.New("generation service unavailable")

	// ErrMissingCredentials is returned when no API key is configured
	ErrMissingCredentials = errors.New("generation API key is missing")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
