package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/memory"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/prompt"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGenerator echoes the last image part of each request. Calls block on
// gate when it is set.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []generation.Request
	calls    map[string]int
	gate     chan struct{}
	fail     func(req generation.Request) error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{calls: make(map[string]int)}
}

func (g *fakeGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Image, error) {
	primary := req.Parts[len(req.Parts)-1].Data

	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.calls[string(primary)]++
	gate := g.gate
	fail := g.fail
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		if err := fail(req); err != nil {
			return nil, err
		}
	}

	out := append([]byte("out:"), primary...)
	return &generation.Image{Data: out, MIMEType: "image/png"}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *fakeGenerator) callsFor(primary string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[primary]
}

func (g *fakeGenerator) lastRequest() generation.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

// passthrough leaves generated bytes untouched.
type passthrough struct{}

func (passthrough) Canonicalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty")
	}
	return raw, nil
}

// eventRecorder keeps every event in delivery order.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.JobEvent
}

func (r *eventRecorder) HandleEvent(_ context.Context, e *events.JobEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *eventRecorder) all() []events.JobEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.JobEvent, len(r.events))
	copy(out, r.events)
	return out
}

type harness struct {
	dispatcher *Dispatcher
	store      *memory.ArtifactStore
	generator  *fakeGenerator
	recorder   *eventRecorder
}

func newHarness(t *testing.T, tool domain.Tool) *harness {
	t.Helper()

	builder, err := prompt.NewBuilder("test-model")
	require.NoError(t, err)

	h := &harness{
		store:     memory.NewArtifactStore(),
		generator: newFakeGenerator(),
		recorder:  &eventRecorder{},
	}
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(h.recorder, tool)

	h.dispatcher, err = NewDispatcher(tool, Dependencies{
		Store:         h.store,
		Generator:     h.generator,
		Builder:       builder,
		Canonicalizer: passthrough{},
		Emitter:       emitter,
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(h.dispatcher.Stop)

	return h
}

func (h *harness) put(t *testing.T, name, data string) domain.ArtifactRef {
	t.Helper()
	ref, err := h.store.Put(context.Background(), name, "image/png", []byte(data))
	require.NoError(t, err)
	return ref
}

func (h *harness) submit(t *testing.T, names ...string) []uuid.UUID {
	t.Helper()
	refs := make([]domain.ArtifactRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, h.put(t, name, name))
	}
	ids, err := h.dispatcher.Submit(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, ids, len(names))
	return ids
}

func (h *harness) waitStatus(t *testing.T, id uuid.UUID, status domain.JobStatus) domain.Job {
	t.Helper()
	var job domain.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = h.dispatcher.Job(id)
		return err == nil && job.Status == status
	}, waitTimeout, 5*time.Millisecond, "job %s never reached %s", id, status)
	return job
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := h.dispatcher.Stats()
		return s.Pending == 0 && s.Processing == 0
	}, waitTimeout, 5*time.Millisecond)
}

func errArtifactGone() error {
	return fmt.Errorf("%w: abc", store.ErrArtifactNotFound)
}

// waitStoreLen waits for executions to drop their leases.
func (h *harness) waitStoreLen(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.store.Len() == n }, waitTimeout, 5*time.Millisecond)
}
