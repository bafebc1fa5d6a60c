// Package gemini provides the generation.Transport used in production. It
// sends one request to Google's Gemini API through the google.golang.org/genai
// client and translates the reply into the generation package's opaque
// Response, leaving retry policy and response validation to the
// generation.Gateway.
//
// API failures are translated into *generation.TransportError values carrying
// the HTTP code and the service's status string (RESOURCE_EXHAUSTED,
// UNAVAILABLE, ...) so the gateway can classify them.
//
// When no API key is configured the package returns a transport that fails
// every call with generation.ErrMissingCredentials instead of refusing to
// start, so the server can come up and report the problem per job.
package gemini
