package prompt

import (
	"testing"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder("gemini-2.5-flash-image")
	require.NoError(t, err)
	return b
}

var (
	primary = Image{Data: []byte("product"), MIMEType: "image/png"}
	aux     = &Image{Data: []byte("aux"), MIMEType: "image/jpeg"}
)

func TestBuild_GlovesWithReference(t *testing.T) {
	t.Parallel()

	req, err := newBuilder(t).Build(Input{Tool: domain.ToolGloves, Primary: primary, Aux: aux})
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash-image", req.Model)
	require.Len(t, req.Parts, 3)
	assert.Contains(t, req.Parts[0].Text, "REFERENCE IMAGE PROVIDED")
	assert.Equal(t, []byte("aux"), req.Parts[1].Data)
	assert.Equal(t, []byte("product"), req.Parts[2].Data)
}

func TestBuild_GlovesWithoutReference(t *testing.T) {
	t.Parallel()

	req, err := newBuilder(t).Build(Input{Tool: domain.ToolGloves, Primary: primary})
	require.NoError(t, err)

	require.Len(t, req.Parts, 2)
	assert.Contains(t, req.Parts[0].Text, "NO REFERENCE IMAGE")
	assert.NotContains(t, req.Parts[0].Text, "same photoshoot")
	assert.Equal(t, "image/png", req.Parts[1].MIMEType)
}

func TestBuild_EcommerceVariant(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	for _, kind := range domain.VariantKinds() {
		spec, _ := kind.Spec()
		req, err := b.Build(Input{Tool: domain.ToolEcommerce, Primary: primary, Variant: kind})
		require.NoError(t, err, kind)
		require.Len(t, req.Parts, 2)
		assert.Contains(t, req.Parts[0].Text, spec.Label)
		assert.Contains(t, req.Parts[0].Text, spec.Directive)
	}

	req, err := b.Build(Input{Tool: domain.ToolEcommerce, Primary: primary})
	require.NoError(t, err)
	assert.Contains(t, req.Parts[0].Text, "Flat Lay")

	_, err = b.Build(Input{Tool: domain.ToolEcommerce, Primary: primary, Variant: "sepia"})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant)
}

func TestBuild_SceneOrdersSceneFirst(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	req, err := b.Build(Input{Tool: domain.ToolScene, Primary: primary, Aux: aux})
	require.NoError(t, err)
	require.Len(t, req.Parts, 3)
	assert.Equal(t, []byte("aux"), req.Parts[1].Data)
	assert.Equal(t, []byte("product"), req.Parts[2].Data)

	_, err = b.Build(Input{Tool: domain.ToolScene, Primary: primary})
	assert.ErrorIs(t, err, ErrMissingAux)
}

func TestBuild_IgnoresAuxForPlainTools(t *testing.T) {
	t.Parallel()

	req, err := newBuilder(t).Build(Input{Tool: domain.ToolVariants, Primary: primary, Aux: aux})
	require.NoError(t, err)
	assert.Len(t, req.Parts, 2)
}

func TestBuild_Validation(t *testing.T) {
	t.Parallel()

	b := newBuilder(t)
	_, err := b.Build(Input{Tool: domain.ToolVariants})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = b.Build(Input{Tool: "paint", Primary: primary})
	assert.ErrorIs(t, err, domain.ErrUnknownTool)

	_, err = NewBuilder("")
	assert.Error(t, err)
}
