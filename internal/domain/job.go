package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing state of a job
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSuccess    JobStatus = "success"
	JobStatusError      JobStatus = "error"
)

// IsTerminal reports whether s is Success or Error.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// AuxRole marks a job as a derived request spawned from another job.
// ParentID is kept for lineage only; the parent may be gone.
type AuxRole struct {
	Variant  VariantKind `json:"variant"`
	ParentID uuid.UUID   `json:"parent_id"`
}

// Job is one input tracked through one external transformation.
type Job struct {
	ID          uuid.UUID    `json:"id"`
	Tool        Tool         `json:"tool"`
	Input       ArtifactRef  `json:"input"`
	Status      JobStatus    `json:"status"`
	Output      *ArtifactRef `json:"output,omitempty"`
	ErrorDetail string       `json:"error_detail,omitempty"`
	AuxRole     *AuxRole     `json:"aux_role,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewJob creates a Pending job for the given tool and input.
func NewJob(tool Tool, input ArtifactRef) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New(),
		Tool:      tool,
		Input:     input,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// NewVariantJob creates a Pending job derived from parent. The new job shares
// the parent's input reference and carries the requested variant kind.
func NewVariantJob(parent *Job, kind VariantKind) (*Job, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, kind)
	}

	job, err := NewJob(parent.Tool, parent.Input)
	if err != nil {
		return nil, err
	}
	job.AuxRole = &AuxRole{Variant: kind, ParentID: parent.ID}
	return job, nil
}

// Validate checks the job's fields and the output/error invariant: exactly
// one of Output and ErrorDetail is set, and only in the matching terminal
// state.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return fmt.Errorf("%w: job ID cannot be empty", ErrInvalidID)
	}

	if !j.Tool.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTool, j.Tool)
	}

	if j.Input.IsZero() {
		return ErrEmptyInput
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	hasOutput := j.Output != nil
	hasError := j.ErrorDetail != ""
	switch j.Status {
	case JobStatusSuccess:
		if !hasOutput || hasError {
			return fmt.Errorf("%w: success job must carry only an output", ErrValidation)
		}
	case JobStatusError:
		if !hasError || hasOutput {
			return fmt.Errorf("%w: failed job must carry only an error detail", ErrValidation)
		}
	default:
		if hasOutput || hasError {
			return fmt.Errorf("%w: %s job cannot carry results", ErrValidation, j.Status)
		}
	}

	if j.AuxRole != nil && !j.AuxRole.Variant.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, j.AuxRole.Variant)
	}

	return nil
}

// Start moves a Pending job to Processing.
func (j *Job) Start() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: cannot start %s job", ErrInvalidTransition, j.Status)
	}
	j.setStatus(JobStatusProcessing)
	return nil
}

// Succeed records the canonical output of a Processing job.
func (j *Job) Succeed(output ArtifactRef) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: cannot complete %s job", ErrInvalidTransition, j.Status)
	}
	if output.IsZero() {
		return fmt.Errorf("%w: empty output", ErrValidation)
	}
	j.Output = &output
	j.ErrorDetail = ""
	j.setStatus(JobStatusSuccess)
	return nil
}

// Fail records the failure detail of a Processing job.
func (j *Job) Fail(detail string) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: cannot fail %s job", ErrInvalidTransition, j.Status)
	}
	if detail == "" {
		detail = "unknown error"
	}
	j.Output = nil
	j.ErrorDetail = detail
	j.setStatus(JobStatusError)
	return nil
}

// Reset returns a Success or Error job to Pending and hands back the output
// it held, if any, so the caller can release it. Resetting a Pending job is
// a no-op; resetting a Processing job is rejected with ErrJobInFlight.
func (j *Job) Reset() (*ArtifactRef, error) {
	switch j.Status {
	case JobStatusPending:
		return nil, nil
	case JobStatusProcessing:
		return nil, ErrJobInFlight
	}

	prev := j.Output
	j.Output = nil
	j.ErrorDetail = ""
	j.setStatus(JobStatusPending)
	return prev, nil
}

// OutputSuffix is appended to the input's base name when naming this job's
// output: the variant's suffix for derived jobs, the tool's otherwise.
func (j *Job) OutputSuffix() string {
	if j.AuxRole != nil {
		if spec, ok := j.AuxRole.Variant.Spec(); ok {
			return spec.Suffix
		}
	}
	return j.Tool.OutputSuffix()
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (j *Job) Snapshot() Job {
	cp := *j
	if j.Output != nil {
		out := *j.Output
		cp.Output = &out
	}
	if j.AuxRole != nil {
		role := *j.AuxRole
		cp.AuxRole = &role
	}
	return cp
}

func (j *Job) setStatus(status JobStatus) {
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusSuccess, JobStatusError:
		return true
	default:
		return false
	}
}
