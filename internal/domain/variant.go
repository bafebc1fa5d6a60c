package domain

import (
	"fmt"
	"strings"
)

// VariantKind selects which derived shot a variant job requests.
type VariantKind string

// Supported variant kinds
const (
	VariantMacroDetail    VariantKind = "macro_detail"
	VariantLifestyleTable VariantKind = "lifestyle_table"
	VariantPackaging      VariantKind = "packaging"
	VariantHandHeld       VariantKind = "hand_held"
	VariantContext        VariantKind = "context"
)

// VariantSpec holds the request-shaping parameters of a variant kind.
type VariantSpec struct {
	// Label is the human-readable name shown to users.
	Label string
	// Directive is the instruction handed to the generator.
	Directive string
	// Suffix is appended to the export file name: the label without spaces.
	Suffix string
}

var variantTable = map[VariantKind]VariantSpec{
	VariantMacroDetail: {
		Label:     "Macro Detail",
		Directive: "Zoom in close on the beads and tassel. Show texture and grain. Shallow depth of field.",
		Suffix:    "_MacroDetail",
	},
	VariantLifestyleTable: {
		Label:     "Lifestyle (Table)",
		Directive: "Place the beads naturally on a wooden or marble table. Warm, cozy lighting.",
		Suffix:    "_Lifestyle(Table)",
	},
	VariantPackaging: {
		Label:     "Packaging",
		Directive: "Show the beads neatly arranged in or next to a luxury velvet pouch or box.",
		Suffix:    "_Packaging",
	},
	VariantHandHeld: {
		Label:     "Hand Held",
		Directive: "Show a close-up of a hand (natural skin or simple glove) counting the beads.",
		Suffix:    "_HandHeld",
	},
	VariantContext: {
		Label:     "Context",
		Directive: "Show the beads draped over a religious book or an Islamic art background.",
		Suffix:    "_Context",
	},
}

// VariantKinds returns every supported variant kind in display order.
func VariantKinds() []VariantKind {
	return []VariantKind{
		VariantMacroDetail,
		VariantLifestyleTable,
		VariantPackaging,
		VariantHandHeld,
		VariantContext,
	}
}

// ParseVariantKind accepts either the kind identifier or its label,
// case-insensitively.
func ParseVariantKind(s string) (VariantKind, error) {
	needle := strings.TrimSpace(s)
	for _, k := range VariantKinds() {
		if strings.EqualFold(needle, string(k)) || strings.EqualFold(needle, variantTable[k].Label) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Spec returns the parameters for k.
func (k VariantKind) Spec() (VariantSpec, bool) {
	spec, ok := variantTable[k]
	return spec, ok
}

// Valid reports whether k is in the variant table.
func (k VariantKind) Valid() bool {
	_, ok := variantTable[k]
	return ok
}
