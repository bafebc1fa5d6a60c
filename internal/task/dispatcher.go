package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/prompt"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/redact"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
)

// RequestBuilder shapes the generation request for one execution.
type RequestBuilder interface {
	Build(in prompt.Input) (generation.Request, error)
}

// Canonicalizer converts raw generated bytes into the output format.
type Canonicalizer interface {
	Canonicalize(raw []byte) ([]byte, error)
}

// Dependencies are the collaborators a Dispatcher drives.
type Dependencies struct {
	Store         store.ArtifactStore
	Generator     generation.Generator
	Builder       RequestBuilder
	Canonicalizer Canonicalizer
	Emitter       events.EventEmitter
}

func (d Dependencies) validate() error {
	switch {
	case d.Store == nil:
		return errors.New("artifact store cannot be nil")
	case d.Generator == nil:
		return errors.New("generator cannot be nil")
	case d.Builder == nil:
		return errors.New("request builder cannot be nil")
	case d.Canonicalizer == nil:
		return errors.New("canonicalizer cannot be nil")
	case d.Emitter == nil:
		return errors.New("event emitter cannot be nil")
	}
	return nil
}

// Stats summarizes a queue.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Dispatcher owns one tool's job queue and launches executions for every
// eligible Pending job.
type Dispatcher struct {
	tool     domain.Tool
	deps     Dependencies
	notifier *notifier
	logger   *slog.Logger

	mu        sync.Mutex
	jobs      map[uuid.UUID]*domain.Job
	order     []uuid.UUID
	reference uuid.UUID
	sideInput *domain.ArtifactRef
	leases    *leaseTable

	wake       chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
	loopWG     sync.WaitGroup
	execWG     sync.WaitGroup
	started    bool
	stopped    bool
}

// NewDispatcher creates a Dispatcher for tool. Events are delivered from the
// moment it is created; jobs only start running after Start. Stop must be
// called to release the notifier goroutine.
func NewDispatcher(tool domain.Tool, deps Dependencies, logger *slog.Logger) (*Dispatcher, error) {
	if !tool.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTool, tool)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	logger = logger.With("component", "dispatcher", "tool", string(tool))
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		tool:       tool,
		deps:       deps,
		notifier:   newNotifier(tool, deps.Emitter, logger),
		logger:     logger,
		jobs:       make(map[uuid.UUID]*domain.Job),
		leases:     newLeaseTable(),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	go d.notifier.run(context.WithoutCancel(ctx))

	return d, nil
}

// Tool returns the tool this dispatcher serves.
func (d *Dispatcher) Tool() domain.Tool {
	return d.tool
}

// Start launches the dispatch loop.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}
	if d.started {
		return nil
	}
	d.started = true

	d.loopWG.Add(1)
	go d.loop()
	d.signal()

	d.logger.Info("dispatcher started")
	return nil
}

// Stop cancels in-flight executions, waits for them to record their outcome
// and flushes pending notifications.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.cancelFunc()
	d.loopWG.Wait()
	d.execWG.Wait()
	d.notifier.close()

	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) loop() {
	defer d.loopWG.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.wake:
			d.scan()
		}
	}
}

// signal wakes the dispatch loop without blocking.
func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

type launch struct {
	job *domain.Job
	// snapshot is taken at dispatch; executions never read the live job.
	snapshot domain.Job
	aux      *domain.ArtifactRef
}

// scan launches one execution for every Pending job that resolves. Jobs are
// marked Processing before the lock is released, so a second scan cannot
// pick them up again.
func (d *Dispatcher) scan() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	resolver := d.resolverLocked()
	var launches []launch
	for _, id := range d.order {
		job := d.jobs[id]
		if job.Status != domain.JobStatusPending {
			continue
		}

		res := resolver.Resolve(job)
		if res.Kind == ResolutionNotReady {
			continue
		}

		if err := job.Start(); err != nil {
			d.logger.Error("failed to start job", "job_id", id, "error", err)
			continue
		}

		l := launch{job: job, snapshot: job.Snapshot()}
		d.leases.acquire(job.Input)
		if res.Kind == ResolutionAux {
			aux := res.Aux
			d.leases.acquire(aux)
			l.aux = &aux
		}
		d.notifier.changed(l.snapshot)
		launches = append(launches, l)
	}

	d.execWG.Add(len(launches))
	d.mu.Unlock()

	for _, l := range launches {
		go d.execute(l)
	}
}

func (d *Dispatcher) resolverLocked() Resolver {
	r := Resolver{SideInput: d.sideInput}
	if ref, ok := d.jobs[d.reference]; ok && d.reference != uuid.Nil {
		snap := ref.Snapshot()
		r.Reference = &snap
	}
	return r
}

// Submit appends one Pending job per input. The dispatcher takes ownership
// of the input artifacts and releases them when the jobs are cleared. After
// Stop it fails with ErrStopped and the caller keeps ownership.
func (d *Dispatcher) Submit(ctx context.Context, inputs []domain.ArtifactRef) ([]uuid.UUID, error) {
	jobs := make([]*domain.Job, 0, len(inputs))
	for _, in := range inputs {
		job, err := domain.NewJob(d.tool, in)
		if err != nil {
			return nil, fmt.Errorf("invalid input %q: %w", in.Name, err)
		}
		jobs = append(jobs, job)
	}

	ids := make([]uuid.UUID, 0, len(jobs))
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil, ErrStopped
	}
	for _, job := range jobs {
		d.insertLocked(job)
		ids = append(ids, job.ID)
	}
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "jobs submitted", "count", len(ids))
	d.signal()
	return ids, nil
}

func (d *Dispatcher) insertLocked(job *domain.Job) {
	d.jobs[job.ID] = job
	d.order = append(d.order, job.ID)
	d.leases.acquire(job.Input)
	d.notifier.changed(job.Snapshot())
}

// Retry returns a Success or Error job to Pending, releasing its output.
// Retrying a Pending job does nothing; retrying a Processing job fails with
// domain.ErrJobInFlight.
func (d *Dispatcher) Retry(ctx context.Context, id uuid.UUID) error {
	d.mu.Lock()
	job, ok := d.jobs[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}

	wasPending := job.Status == domain.JobStatusPending
	prev, err := job.Reset()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	var released []domain.ArtifactRef
	if prev != nil {
		if ref, last := d.leases.drop(*prev); last {
			released = append(released, ref)
		}
	}
	if !wasPending {
		d.notifier.changed(job.Snapshot())
	}
	d.mu.Unlock()

	d.release(ctx, released)
	if !wasPending {
		d.logger.InfoContext(ctx, "job reset for retry", "job_id", id)
		d.signal()
	}
	return nil
}

// RetryAllFailed resets every Error job and returns how many were reset.
func (d *Dispatcher) RetryAllFailed(ctx context.Context) int {
	d.mu.Lock()
	count := 0
	for _, id := range d.order {
		job := d.jobs[id]
		if job.Status != domain.JobStatusError {
			continue
		}
		if _, err := job.Reset(); err != nil {
			continue
		}
		d.notifier.changed(job.Snapshot())
		count++
	}
	d.mu.Unlock()

	if count > 0 {
		d.logger.InfoContext(ctx, "failed jobs reset for retry", "count", count)
		d.signal()
	}
	return count
}

// Clear removes every job, forgets the reference selection and releases the
// jobs' artifacts. Executions still running finish in the background; their
// results are discarded. The shared side input is kept.
func (d *Dispatcher) Clear(ctx context.Context) error {
	d.mu.Lock()
	var released []domain.ArtifactRef
	for _, id := range d.order {
		job := d.jobs[id]
		if ref, last := d.leases.drop(job.Input); last {
			released = append(released, ref)
		}
		if job.Output != nil {
			if ref, last := d.leases.drop(*job.Output); last {
				released = append(released, ref)
			}
		}
		d.notifier.removed(id)
	}
	cleared := len(d.order)
	d.jobs = make(map[uuid.UUID]*domain.Job)
	d.order = nil
	d.reference = uuid.Nil
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "queue cleared", "jobs", cleared, "artifacts_released", len(released))
	return d.release(ctx, released)
}

// SetReference marks id as the style reference. Marking the current
// reference again clears it, as does uuid.Nil.
func (d *Dispatcher) SetReference(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if !d.tool.UsesReference() {
		return uuid.Nil, ErrReferenceUnsupported
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case id == uuid.Nil || id == d.reference:
		d.reference = uuid.Nil
	default:
		if _, ok := d.jobs[id]; !ok {
			return d.reference, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
		}
		d.reference = id
	}

	d.logger.InfoContext(ctx, "reference updated", "reference_id", d.reference)
	return d.reference, nil
}

// Reference returns the marked reference job ID, or uuid.Nil.
func (d *Dispatcher) Reference() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reference
}

// SetSideInput replaces the shared side input and takes ownership of it. A
// nil ref removes it. The previous side input is released once no running
// execution still reads it.
func (d *Dispatcher) SetSideInput(ctx context.Context, ref *domain.ArtifactRef) error {
	if !d.tool.RequiresSideInput() {
		return ErrSideInputUnsupported
	}
	if ref != nil && ref.IsZero() {
		return fmt.Errorf("%w: side input reference is empty", domain.ErrValidation)
	}

	d.mu.Lock()
	var released []domain.ArtifactRef
	if d.sideInput != nil {
		if old, last := d.leases.drop(*d.sideInput); last {
			released = append(released, old)
		}
	}
	d.sideInput = nil
	if ref != nil {
		cp := *ref
		d.leases.acquire(cp)
		d.sideInput = &cp
	}
	d.mu.Unlock()

	if ref != nil {
		d.logger.InfoContext(ctx, "side input set", "artifact_id", ref.ID)
		d.signal()
	} else {
		d.logger.InfoContext(ctx, "side input removed")
	}
	return d.release(ctx, released)
}

// SideInput returns the current shared side input, if any.
func (d *Dispatcher) SideInput() *domain.ArtifactRef {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sideInput == nil {
		return nil
	}
	cp := *d.sideInput
	return &cp
}

// SpawnVariants appends one Pending job per distinct variant kind, each
// sharing the parent's input. All kinds are validated before any job is
// created.
func (d *Dispatcher) SpawnVariants(ctx context.Context, parentID uuid.UUID, kinds []string) ([]uuid.UUID, error) {
	if !d.tool.SupportsVariants() {
		return nil, domain.ErrVariantsUnsupported
	}

	parsed := make([]domain.VariantKind, 0, len(kinds))
	seen := make(map[domain.VariantKind]bool, len(kinds))
	for _, k := range kinds {
		kind, err := domain.ParseVariantKind(k)
		if err != nil {
			return nil, err
		}
		if !seen[kind] {
			seen[kind] = true
			parsed = append(parsed, kind)
		}
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: no variant kinds requested", domain.ErrValidation)
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil, ErrStopped
	}
	parent, ok := d.jobs[parentID]
	if !ok {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, parentID)
	}
	if parent.Status != domain.JobStatusSuccess {
		d.mu.Unlock()
		return nil, domain.ErrParentNotSucceeded
	}

	ids := make([]uuid.UUID, 0, len(parsed))
	for _, kind := range parsed {
		child, err := domain.NewVariantJob(parent, kind)
		if err != nil {
			d.mu.Unlock()
			return nil, err
		}
		d.insertLocked(child)
		ids = append(ids, child.ID)
	}
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "variants spawned", "parent_id", parentID, "count", len(ids))
	d.signal()
	return ids, nil
}

// Jobs returns snapshots of every job in insertion order.
func (d *Dispatcher) Jobs() []domain.Job {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]domain.Job, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.jobs[id].Snapshot())
	}
	return out
}

// Job returns a snapshot of one job.
func (d *Dispatcher) Job(id uuid.UUID) (domain.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	job, ok := d.jobs[id]
	if !ok {
		return domain.Job{}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return job.Snapshot(), nil
}

// Stats counts jobs by state.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{Total: len(d.order)}
	for _, job := range d.jobs {
		switch job.Status {
		case domain.JobStatusPending:
			s.Pending++
		case domain.JobStatusProcessing:
			s.Processing++
		case domain.JobStatusSuccess:
			s.Completed++
		case domain.JobStatusError:
			s.Failed++
		}
	}
	return s
}

// OutputBytes reads a successful job's output. The artifact is leased for
// the duration of the read so a concurrent retry cannot release it early.
func (d *Dispatcher) OutputBytes(ctx context.Context, id uuid.UUID) ([]byte, domain.Job, error) {
	d.mu.Lock()
	job, ok := d.jobs[id]
	if !ok {
		d.mu.Unlock()
		return nil, domain.Job{}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	if job.Status != domain.JobStatusSuccess || job.Output == nil {
		d.mu.Unlock()
		return nil, domain.Job{}, fmt.Errorf("%w: %s is %s", ErrNoOutput, id, job.Status)
	}
	snap := job.Snapshot()
	d.leases.acquire(*snap.Output)
	d.mu.Unlock()

	data, err := d.deps.Store.ReadBytes(ctx, *snap.Output)
	d.unlease(ctx, *snap.Output)
	if err != nil {
		return nil, domain.Job{}, err
	}
	return data, snap, nil
}

func (d *Dispatcher) unlease(ctx context.Context, refs ...domain.ArtifactRef) {
	d.mu.Lock()
	var released []domain.ArtifactRef
	for _, ref := range refs {
		if r, last := d.leases.drop(ref); last {
			released = append(released, r)
		}
	}
	d.mu.Unlock()

	_ = d.release(ctx, released)
}

// release frees artifacts whose last holder has gone. Failures are logged
// and joined; they never affect job state.
func (d *Dispatcher) release(ctx context.Context, refs []domain.ArtifactRef) error {
	var errs []error
	for _, ref := range refs {
		if err := d.deps.Store.Release(context.WithoutCancel(ctx), ref); err != nil {
			d.logger.WarnContext(ctx, "failed to release artifact",
				"artifact_id", ref.ID,
				"error", redact.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
