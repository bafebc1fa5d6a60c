package task

import (
	"testing"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobFor(t *testing.T, tool domain.Tool, status domain.JobStatus) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(tool, domain.ArtifactRef{ID: "in-" + string(tool), Name: "in.png"})
	require.NoError(t, err)
	switch status {
	case domain.JobStatusProcessing:
		require.NoError(t, job.Start())
	case domain.JobStatusSuccess:
		require.NoError(t, job.Start())
		require.NoError(t, job.Succeed(domain.ArtifactRef{ID: "out-" + job.ID.String()}))
	case domain.JobStatusError:
		require.NoError(t, job.Start())
		require.NoError(t, job.Fail("nope"))
	}
	return job
}

func TestResolver_Reference(t *testing.T) {
	done := newJobFor(t, domain.ToolGloves, domain.JobStatusSuccess)
	failed := newJobFor(t, domain.ToolGloves, domain.JobStatusError)
	job := newJobFor(t, domain.ToolGloves, domain.JobStatusPending)

	tests := []struct {
		name     string
		resolver Resolver
		job      *domain.Job
		want     ResolutionKind
	}{
		{"no reference", Resolver{}, job, ResolutionAbsent},
		{"successful reference", Resolver{Reference: done}, job, ResolutionAux},
		{"failed reference", Resolver{Reference: failed}, job, ResolutionAbsent},
		{"self reference", Resolver{Reference: done}, done, ResolutionAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.resolver.Resolve(tt.job)
			assert.Equal(t, tt.want, res.Kind)
			if tt.want == ResolutionAux {
				assert.Equal(t, *done.Output, res.Aux)
			}
		})
	}
}

func TestResolver_SideInput(t *testing.T) {
	job := newJobFor(t, domain.ToolScene, domain.JobStatusPending)

	assert.Equal(t, ResolutionNotReady, Resolver{}.Resolve(job).Kind)
	assert.Equal(t, ResolutionNotReady, Resolver{SideInput: &domain.ArtifactRef{}}.Resolve(job).Kind)

	scene := domain.ArtifactRef{ID: "scene"}
	res := Resolver{SideInput: &scene}.Resolve(job)
	assert.Equal(t, ResolutionAux, res.Kind)
	assert.Equal(t, scene, res.Aux)
}

func TestResolver_ToolsWithoutAux(t *testing.T) {
	done := newJobFor(t, domain.ToolGloves, domain.JobStatusSuccess)
	scene := domain.ArtifactRef{ID: "scene"}
	r := Resolver{Reference: done, SideInput: &scene}

	for _, tool := range []domain.Tool{domain.ToolEcommerce, domain.ToolVariants} {
		job := newJobFor(t, tool, domain.JobStatusPending)
		assert.Equal(t, ResolutionAbsent, r.Resolve(job).Kind, tool)
	}
}

func TestResolutionKind_String(t *testing.T) {
	assert.Equal(t, "absent", ResolutionAbsent.String())
	assert.Equal(t, "aux", ResolutionAux.String())
	assert.Equal(t, "not_ready", ResolutionNotReady.String())
	assert.Equal(t, "unknown", ResolutionKind(99).String())
}
