package task

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/imaging"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/prompt"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/redact"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
)

// Failure details recorded for errors that do not come from the generator.
const (
	detailUnreadableInput = "The uploaded image could not be read."
	detailInvalidOutput   = "The generated image could not be converted."
	detailMissingArtifact = "An input image is no longer available. Please upload it again."
	detailInternal        = "Unexpected error while processing the image."
)

var errPanic = errors.New("panic during execution")

// execute runs one job to completion and records the outcome.
func (d *Dispatcher) execute(l launch) {
	defer d.execWG.Done()

	ctx := d.ctx
	log := d.logger.With("job_id", l.snapshot.ID)
	start := time.Now()

	out, err := d.run(ctx, l)
	d.finish(ctx, l, out, err)

	refs := []domain.ArtifactRef{l.snapshot.Input}
	if l.aux != nil {
		refs = append(refs, *l.aux)
	}
	d.unlease(ctx, refs...)

	if err != nil {
		log.WarnContext(ctx, "job failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", redact.Error(err))
		return
	}
	log.InfoContext(ctx, "job completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"output", out.Name)
}

// run performs the work of one execution against the snapshot taken at
// dispatch. It never touches dispatcher state.
func (d *Dispatcher) run(ctx context.Context, l launch) (out domain.ArtifactRef, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "panic during job execution",
				"job_id", l.snapshot.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	job := l.snapshot
	primary, err := d.deps.Store.ReadBytes(ctx, job.Input)
	if err != nil {
		return out, fmt.Errorf("failed to read input: %w", err)
	}

	in := prompt.Input{
		Tool:    job.Tool,
		Primary: prompt.Image{Data: primary, MIMEType: job.Input.MIMEType},
	}
	if job.AuxRole != nil {
		in.Variant = job.AuxRole.Variant
	}
	if l.aux != nil {
		aux, err := d.deps.Store.ReadBytes(ctx, *l.aux)
		if err != nil {
			return out, fmt.Errorf("failed to read auxiliary input: %w", err)
		}
		in.Aux = &prompt.Image{Data: aux, MIMEType: l.aux.MIMEType}
	}

	req, err := d.deps.Builder.Build(in)
	if err != nil {
		return out, fmt.Errorf("failed to build request: %w", err)
	}

	img, err := d.deps.Generator.Generate(ctx, req)
	if err != nil {
		return out, err
	}

	canonical, err := d.deps.Canonicalizer.Canonicalize(img.Data)
	if err != nil {
		return out, err
	}

	return d.deps.Store.Put(ctx, OutputName(&job), imaging.OutputMIMEType, canonical)
}

// finish records the outcome on the live job. A job removed while it ran
// has its result discarded.
func (d *Dispatcher) finish(ctx context.Context, l launch, out domain.ArtifactRef, runErr error) {
	d.mu.Lock()
	live, ok := d.jobs[l.snapshot.ID]
	if !ok || live != l.job || live.Status != domain.JobStatusProcessing {
		d.mu.Unlock()
		if runErr == nil {
			d.logger.InfoContext(ctx, "discarding result of removed job", "job_id", l.snapshot.ID)
			_ = d.release(ctx, []domain.ArtifactRef{out})
		}
		return
	}

	if runErr == nil {
		if err := live.Succeed(out); err != nil {
			runErr = err
		} else {
			d.leases.acquire(out)
		}
	}
	if runErr != nil {
		_ = live.Fail(failureDetail(runErr))
	}
	d.notifier.changed(live.Snapshot())
	d.mu.Unlock()

	if runErr != nil && !out.IsZero() {
		_ = d.release(ctx, []domain.ArtifactRef{out})
	}
	d.signal()
}

// failureDetail converts an execution error into the message shown on the
// failed job.
func failureDetail(err error) string {
	switch {
	case errors.Is(err, imaging.ErrDecode), errors.Is(err, imaging.ErrEncode):
		return detailInvalidOutput
	case store.IsNotFoundError(err):
		return detailMissingArtifact
	case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, prompt.ErrMissingAux):
		return detailUnreadableInput
	case errors.Is(err, errPanic):
		return detailInternal
	}
	return generation.UserMessage(err)
}

// OutputName is the file name of a job's output: the input's base name, the
// job's suffix and a .jpg extension.
func OutputName(job *domain.Job) string {
	base := filepath.Base(job.Input.Name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return base + job.OutputSuffix() + ".jpg"
}
