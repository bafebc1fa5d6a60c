package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
)

// SubscriberBuffer is the channel capacity given to each subscriber.
const SubscriberBuffer = 256

type subscriber struct {
	tool domain.Tool
	ch   chan JobEvent
}

// Broadcaster fans events out to channel subscribers, optionally filtered by
// tool. A subscriber that falls a full buffer behind loses events rather than
// stalling the dispatcher.
type Broadcaster struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
}

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.With("component", "event_broadcaster"),
		subs:   make(map[*subscriber]struct{}),
	}
}

// Subscribe returns a channel receiving events for tool, or for every tool
// when tool is empty, and a function that ends the subscription.
func (b *Broadcaster) Subscribe(tool domain.Tool) (<-chan JobEvent, func()) {
	sub := &subscriber{tool: tool, ch: make(chan JobEvent, SubscriberBuffer)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			close(sub.ch)
			b.mu.Unlock()
		})
	}
	return sub.ch, unsubscribe
}

// HandleEvent implements EventHandler.
func (b *Broadcaster) HandleEvent(ctx context.Context, event *JobEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.tool != "" && sub.tool != event.Tool {
			continue
		}
		select {
		case sub.ch <- *event:
		default:
			b.logger.WarnContext(ctx, "subscriber channel full, dropping event",
				"tool", event.Tool,
				"job_id", event.JobID,
				"seq", event.Seq)
		}
	}
	return nil
}

// Subscribers reports the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
