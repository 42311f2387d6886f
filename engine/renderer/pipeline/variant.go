package pipeline

import (
	"fmt"
	"path"
	"strings"
)

// Variant identifies a pipeline implementation. The set of variants is closed.
type Variant int

const (
	// VariantUnknown is the zero Variant and is never constructible.
	VariantUnknown Variant = iota

	// VariantDefaultObject draws every object routed to it with one instanced draw,
	// using one fixed frame uniform and a grow-only transform buffer.
	VariantDefaultObject
)

// Label returns the static label of the variant.
//
// Returns:
//   - string: the label, or "unknown"
func (v Variant) Label() string {
	switch v {
	case VariantDefaultObject:
		return "default_object"
	default:
		return "unknown"
	}
}

func (v Variant) String() string {
	return v.Label()
}

// ParseVariant returns the variant with the given label.
//
// Parameters:
//   - label: the variant label, e.g. "default_object"
//
// Returns:
//   - Variant: the matching variant
//   - error: ErrUnknownVariant if no variant has that label
func ParseVariant(label string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case VariantDefaultObject.Label():
		return VariantDefaultObject, nil
	default:
		return VariantUnknown, fmt.Errorf("%w: %q", ErrUnknownVariant, label)
	}
}

// KeyFor derives the routing key a variant uses for a shader identifier. It does not touch
// the device, so objects can be routed before any pipeline exists.
//
// Parameters:
//   - variant: the pipeline variant
//   - shaderID: the shader identifier, usually a file path
//
// Returns:
//   - string: the routing key, empty for VariantUnknown
func KeyFor(variant Variant, shaderID string) string {
	switch variant {
	case VariantDefaultObject:
		return shaderStem(shaderID)
	default:
		return ""
	}
}

// shaderStem lower-cases the file name of id without its final extension,
// accepting both slash and backslash separators.
func shaderStem(id string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(id), `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
}
