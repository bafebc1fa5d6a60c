package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
)

// ErrInvalidEvent is returned for events that carry no known tool.
var ErrInvalidEvent = errors.New("invalid job event")

type registration struct {
	handler EventHandler
	// tools limits delivery; empty means every tool.
	tools []domain.Tool
}

func (r registration) wants(tool domain.Tool) bool {
	return len(r.tools) == 0 || slices.Contains(r.tools, tool)
}

// InMemoryEventEmitter dispatches job events to registered handlers
// synchronously, in registration order. A handler may be scoped to a subset
// of tools so it only sees those queues.
type InMemoryEventEmitter struct {
	registrations []registration
	mu            sync.RWMutex
	logger        *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		registrations: make([]registration, 0),
		logger:        logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds a handler. With no tools it receives every event;
// otherwise only events of the listed tools.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, tools ...domain.Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registrations = append(e.registrations, registration{handler: handler, tools: slices.Clone(tools)})
	e.logger.Debug("registered new event handler",
		"handler_count", len(e.registrations),
		"tools", tools)
}

// EmitEvent publishes the given event to every handler interested in its tool.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *JobEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if !event.Tool.Valid() {
		return fmt.Errorf("%w: unknown tool %q", ErrInvalidEvent, event.Tool)
	}

	e.mu.RLock()
	regs := make([]registration, len(e.registrations))
	copy(regs, e.registrations)
	e.mu.RUnlock()

	var firstErr error
	for i, reg := range regs {
		if !reg.wants(event.Tool) {
			continue
		}
		if err := reg.handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type,
				"tool", event.Tool,
				"seq", event.Seq,
				"job_id", event.JobID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
