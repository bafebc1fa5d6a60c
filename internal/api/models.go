package api

import (
	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/task"
)

// JobListResponse is the state of one tool's queue.
type JobListResponse struct {
	Tool      domain.Tool         `json:"tool"`
	Jobs      []domain.Job        `json:"jobs"`
	Stats     task.Stats          `json:"stats"`
	Reference *uuid.UUID          `json:"reference,omitempty"`
	SideInput *domain.ArtifactRef `json:"side_input,omitempty"`
}

// SubmitResponse lists the jobs created by an upload or variant request.
type SubmitResponse struct {
	JobIDs []uuid.UUID `json:"job_ids"`
}

// VariantsRequest asks for derived shots of a completed job.
type VariantsRequest struct {
	Kinds []string `json:"kinds" validate:"required,min=1,max=5,dive,required"`
}

// ReferenceRequest marks (or toggles off) the style reference job.
type ReferenceRequest struct {
	JobID string `json:"job_id" validate:"required,uuid"`
}

// ReferenceResponse reports the reference after an update.
type ReferenceResponse struct {
	Reference *uuid.UUID `json:"reference"`
}

// RetryFailedResponse reports how many jobs were reset.
type RetryFailedResponse struct {
	Count int `json:"count"`
}

// VariantKindResponse describes one selectable variant.
type VariantKindResponse struct {
	Kind  domain.VariantKind `json:"kind"`
	Label string             `json:"label"`
}

// ToolResponse describes one tool and its inputs.
type ToolResponse struct {
	Tool              domain.Tool           `json:"tool"`
	UsesReference     bool                  `json:"uses_reference"`
	RequiresSideInput bool                  `json:"requires_side_input"`
	Variants          []VariantKindResponse `json:"variants,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func toolResponse(tool domain.Tool) ToolResponse {
	resp := ToolResponse{
		Tool:              tool,
		UsesReference:     tool.UsesReference(),
		RequiresSideInput: tool.RequiresSideInput(),
	}
	if tool.SupportsVariants() {
		for _, kind := range domain.VariantKinds() {
			spec, _ := kind.Spec()
			resp.Variants = append(resp.Variants, VariantKindResponse{Kind: kind, Label: spec.Label})
		}
	}
	return resp
}
