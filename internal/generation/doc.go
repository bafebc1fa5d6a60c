// Package generation defines the boundary between the studio core and the
// external image generation service.
//
// The core never speaks to the service directly. It builds an opaque Request,
// hands it to a Generator, and receives either the raw bytes of one generated
// image or a terminal failure. The Gateway in this package is the Generator
// used in production: it wraps a Transport (the single external call) with a
// fixed exponential backoff Policy, classifies failures as retryable or fatal,
// and validates that a response actually carries image data before declaring
// success.
//
// Failure taxonomy:
//
//   - ErrRetryable: rate limiting or transient unavailability. Handled inside
//     the Gateway and never returned unless the retry budget is exhausted, in
//     which case it surfaces as ErrQuotaExceeded or ErrServiceUnavailable.
//   - ErrFatal: everything else, returned after a single attempt. ErrNoImage
//     and ErrMissingCredentials are the common specific causes.
//
// UserMessage converts any failure into the text shown on a failed job.
package generation
