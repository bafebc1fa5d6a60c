package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
)

// EventType distinguishes job notifications.
type EventType string

// Event types
const (
	EventJobChanged EventType = "job_changed"
	EventJobRemoved EventType = "job_removed"
)

// JobEvent describes a change to one job of one tool's queue.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type EventType   `json:"type"`
	Tool domain.Tool `json:"tool"`

	// Seq increases by one for every event a dispatcher emits.
	Seq uint64 `json:"seq"`

	JobID uuid.UUID `json:"job_id"`

	// Job is the full snapshot after the change. Nil for removals.
	Job *domain.Job `json:"job,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewJobChangedEvent wraps a job snapshot.
func NewJobChangedEvent(tool domain.Tool, seq uint64, snapshot domain.Job) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		Type:      EventJobChanged,
		Tool:      tool,
		Seq:       seq,
		JobID:     snapshot.ID,
		Job:       &snapshot,
		CreatedAt: time.Now().UTC(),
	}
}

// NewJobRemovedEvent announces that a job left the queue.
func NewJobRemovedEvent(tool domain.Tool, seq uint64, jobID uuid.UUID) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		Type:      EventJobRemoved,
		Tool:      tool,
		Seq:       seq,
		JobID:     jobID,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the dispatcher to publish changes without knowing who listens.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *JobEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *JobEvent) error {
	return f(ctx, event)
}
