package task

import (
	"testing"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/memory"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudio(t *testing.T) {
	builder, err := prompt.NewBuilder("test-model")
	require.NoError(t, err)

	studio, err := NewStudio(Dependencies{
		Store:         memory.NewArtifactStore(),
		Generator:     newFakeGenerator(),
		Builder:       builder,
		Canonicalizer: passthrough{},
		Emitter:       events.NewInMemoryEventEmitter(testLogger()),
	}, testLogger())
	require.NoError(t, err)
	require.NoError(t, studio.Start())
	t.Cleanup(studio.Stop)

	seen := make(map[*Dispatcher]bool)
	for _, tool := range domain.Tools() {
		d, err := studio.Dispatcher(tool)
		require.NoError(t, err)
		assert.Equal(t, tool, d.Tool())
		seen[d] = true
	}
	assert.Len(t, seen, len(domain.Tools()), "each tool has its own queue")

	_, err = studio.Dispatcher("bogus")
	assert.ErrorIs(t, err, domain.ErrUnknownTool)
}

func TestNewStudio_InvalidDependencies(t *testing.T) {
	_, err := NewStudio(Dependencies{}, testLogger())
	assert.Error(t, err)
}
