package domain

import "fmt"

// Tool identifies the pipeline a job is processed by.
type Tool string

// Supported tools
const (
	ToolGloves    Tool = "gloves"
	ToolEcommerce Tool = "ecommerce"
	ToolVariants  Tool = "variants"
	ToolScene     Tool = "scene"
)

// Tools returns every supported tool in display order.
func Tools() []Tool {
	return []Tool{ToolGloves, ToolEcommerce, ToolVariants, ToolScene}
}

// ParseTool converts a string to a Tool.
func ParseTool(s string) (Tool, error) {
	t := Tool(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
	}
	return t, nil
}

// Valid reports whether t is a supported tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolGloves, ToolEcommerce, ToolVariants, ToolScene:
		return true
	default:
		return false
	}
}

// UsesReference reports whether jobs of this tool take the marked reference
// job's output as a style reference.
func (t Tool) UsesReference() bool {
	return t == ToolGloves
}

// RequiresSideInput reports whether jobs of this tool cannot run until a
// shared side input has been supplied.
func (t Tool) RequiresSideInput() bool {
	return t == ToolScene
}

// SupportsVariants reports whether successful jobs of this tool can spawn
// variant jobs.
func (t Tool) SupportsVariants() bool {
	return t == ToolEcommerce
}

// OutputSuffix is appended to the input's base name when results are exported.
func (t Tool) OutputSuffix() string {
	switch t {
	case ToolGloves:
		return "_glove"
	case ToolEcommerce:
		return "_flatlay"
	case ToolVariants:
		return "_variant"
	case ToolScene:
		return "_composed"
	default:
		return "_output"
	}
}
