// Package prompt builds generation requests for each tool: the instruction
// text and which images are attached in which order.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"text/template"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrMissingAux is returned when a tool that needs an auxiliary image is
// asked to build a request without one.
var ErrMissingAux = errors.New("auxiliary image required")

// Image is an attachment for a request.
type Image struct {
	Data     []byte
	MIMEType string
}

// Input describes one job execution.
type Input struct {
	Tool    domain.Tool
	Primary Image
	// Aux is the style reference (gloves) or shared scene (scene).
	Aux     *Image
	Variant domain.VariantKind
}

type templateData struct {
	HasAux  bool
	Variant domain.VariantSpec
}

// Builder renders the embedded templates into generation requests.
type Builder struct {
	model     string
	templates *template.Template
}

// NewBuilder parses the embedded templates.
func NewBuilder(model string) (*Builder, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt templates: %v", generation.ErrInvalidConfig, err)
	}
	return &Builder{model: model, templates: tmpl}, nil
}

// Build assembles the request for in. Auxiliary images always precede the
// primary image.
func (b *Builder) Build(in Input) (generation.Request, error) {
	if len(in.Primary.Data) == 0 {
		return generation.Request{}, domain.ErrEmptyInput
	}

	name, data, err := b.selectTemplate(in)
	if err != nil {
		return generation.Request{}, err
	}

	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return generation.Request{}, fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}

	parts := []generation.Part{generation.TextPart(buf.String())}
	if in.Aux != nil && (in.Tool.UsesReference() || in.Tool.RequiresSideInput()) {
		parts = append(parts, generation.ImagePart(in.Aux.Data, in.Aux.MIMEType))
	}
	parts = append(parts, generation.ImagePart(in.Primary.Data, in.Primary.MIMEType))

	return generation.Request{Model: b.model, Parts: parts}, nil
}

func (b *Builder) selectTemplate(in Input) (string, templateData, error) {
	data := templateData{HasAux: in.Aux != nil}

	switch in.Tool {
	case domain.ToolGloves:
		return "gloves.tmpl", data, nil
	case domain.ToolEcommerce:
		if in.Variant == "" {
			return "ecommerce.tmpl", data, nil
		}
		spec, ok := in.Variant.Spec()
		if !ok {
			return "", data, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, in.Variant)
		}
		data.Variant = spec
		return "ecommerce_variant.tmpl", data, nil
	case domain.ToolVariants:
		return "variants.tmpl", data, nil
	case domain.ToolScene:
		if in.Aux == nil {
			return "", data, fmt.Errorf("%w: scene image", ErrMissingAux)
		}
		return "scene.tmpl", data, nil
	default:
		return "", data, fmt.Errorf("%w: %q", domain.ErrUnknownTool, in.Tool)
	}
}
