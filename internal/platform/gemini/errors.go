package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyRequest is returned when a request has no parts to send.
	ErrEmptyRequest = errors.New("generation request has no parts")
)
