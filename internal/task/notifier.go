package task

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
)

// notifier publishes job events in the order they were queued. Queueing
// never blocks, so the dispatcher can queue while holding its lock; a single
// goroutine delivers to the emitter.
type notifier struct {
	tool    domain.Tool
	emitter events.EventEmitter
	logger  *slog.Logger

	mu     sync.Mutex
	queue  []*events.JobEvent
	seq    uint64
	closed bool

	signal chan struct{}
	done   chan struct{}
}

func newNotifier(tool domain.Tool, emitter events.EventEmitter, logger *slog.Logger) *notifier {
	return &notifier{
		tool:    tool,
		emitter: emitter,
		logger:  logger,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (n *notifier) changed(snapshot domain.Job) {
	n.push(func(seq uint64) *events.JobEvent {
		return events.NewJobChangedEvent(n.tool, seq, snapshot)
	})
}

func (n *notifier) removed(id uuid.UUID) {
	n.push(func(seq uint64) *events.JobEvent {
		return events.NewJobRemovedEvent(n.tool, seq, id)
	})
}

func (n *notifier) push(build func(seq uint64) *events.JobEvent) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.seq++
	n.queue = append(n.queue, build(n.seq))
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
}

// run delivers queued events until close is called and the queue is empty.
func (n *notifier) run(ctx context.Context) {
	defer close(n.done)

	for {
		n.mu.Lock()
		batch := n.queue
		n.queue = nil
		closed := n.closed
		n.mu.Unlock()

		for _, e := range batch {
			if err := n.emitter.EmitEvent(ctx, e); err != nil {
				n.logger.WarnContext(ctx, "event delivery failed",
					"job_id", e.JobID,
					"seq", e.Seq,
					"error", err)
			}
		}

		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-n.signal
		}
	}
}

// close stops accepting events and waits until everything queued so far has
// been delivered.
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
	<-n.done
}
