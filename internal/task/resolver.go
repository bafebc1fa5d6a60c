package task

import "github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"

// ResolutionKind is the outcome of resolving a job's auxiliary input.
type ResolutionKind int

const (
	// ResolutionAbsent means the job runs on its primary input alone.
	ResolutionAbsent ResolutionKind = iota
	// ResolutionAux means the job runs with Resolution.Aux attached.
	ResolutionAux
	// ResolutionNotReady means a required input is missing; the job waits.
	ResolutionNotReady
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionAbsent:
		return "absent"
	case ResolutionAux:
		return "aux"
	case ResolutionNotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// Resolution carries the auxiliary artifact when Kind is ResolutionAux.
type Resolution struct {
	Kind ResolutionKind
	Aux  domain.ArtifactRef
}

// Resolver is a snapshot of the dispatcher's shared settings. Resolve is a
// pure lookup against it.
type Resolver struct {
	// Reference is the marked reference job, if any.
	Reference *domain.Job
	// SideInput is the shared side input, if one has been supplied.
	SideInput *domain.ArtifactRef
}

// Resolve decides which auxiliary input job needs.
func (r Resolver) Resolve(job *domain.Job) Resolution {
	switch {
	case job.Tool.RequiresSideInput():
		if r.SideInput == nil || r.SideInput.IsZero() {
			return Resolution{Kind: ResolutionNotReady}
		}
		return Resolution{Kind: ResolutionAux, Aux: *r.SideInput}

	case job.Tool.UsesReference():
		ref := r.Reference
		if ref == nil || ref.ID == job.ID || ref.Status != domain.JobStatusSuccess || ref.Output == nil {
			return Resolution{Kind: ResolutionAbsent}
		}
		return Resolution{Kind: ResolutionAux, Aux: *ref.Output}

	default:
		return Resolution{Kind: ResolutionAbsent}
	}
}
