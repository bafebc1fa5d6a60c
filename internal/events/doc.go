// Package events carries job change notifications from the dispatcher to
// whoever presents them.
//
// The primary components are:
// - JobEvent: a full snapshot of one job after a change, or a removal notice
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
// - InMemoryEventEmitter: synchronous EventEmitter with per-tool handler scoping
// - Broadcaster: an EventHandler fanning events out to channel subscribers
package events
