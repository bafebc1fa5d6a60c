// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts the per-tool job queues to HTTP: image
// uploads, queue commands, output downloads and a Server-Sent Events stream
// of job changes.
package api
