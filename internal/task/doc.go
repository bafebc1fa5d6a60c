// Package task runs the per-tool job queues.
//
// A Dispatcher owns one tool's ordered collection of jobs. Callers append
// jobs or request transitions (retry, clear, spawn variants); every change
// that can make a job eligible wakes the dispatch loop, which launches one
// goroutine per Pending job it can resolve. A job is marked Processing under
// the dispatcher's lock before its goroutine starts, so no job ever has two
// executions in flight.
//
// Auxiliary inputs (the style reference for gloves, the shared scene for
// compositing) are resolved once, at dispatch time, by a Resolver built from
// the dispatcher's current reference and side-input settings. A job whose
// required side input is missing simply stays Pending.
//
// Artifacts are reference counted: a job owns its input and output, a
// running execution holds leases on what it reads, and an artifact is
// released exactly once, when its last holder lets go.
//
// Every state change is published, in order, through an events.EventEmitter
// as a full job snapshot.
package task
