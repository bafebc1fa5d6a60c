// Package middleware contains the HTTP middleware of the API: request
// tracing and bearer token authentication.
package middleware
