// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader source for
// @oxy:include annotations and replaces each with a registered WGSL snippet, so that structs whose
// binary layout is owned by Go code (uniform blocks, vertex inputs) are declared in exactly one place.
package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// includeDirective is the only supported annotation.
//
// Syntax: //@oxy:include <name>
const includeDirective = "include"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps include names to the WGSL text injected in their place.
	includes map[string]string
	// used records the include names expanded by the most recent Process call.
	used []string
}

// PreProcessor expands @oxy:include annotations in WGSL source.
type PreProcessor interface {
	// Process replaces every //@oxy:include <name> line with the registered snippet for name.
	// Each name is expanded at most once per source; repeated includes produce nothing.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error if an annotation is malformed or names an unregistered snippet
	Process(source string) (string, error)

	// Included returns the include names expanded by the most recent Process call, in source order.
	//
	// Returns:
	//   - []string: the expanded include names
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the given include registry.
//
// Parameters:
//   - includes: a map of include names to WGSL snippets
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(includes map[string]string) PreProcessor {
	registry := make(map[string]string, len(includes))
	for k, v := range includes {
		registry[k] = v
	}
	return &preProcessor{includes: registry}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.used = p.used[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)

	for i, line := range lines {
		name, ok, err := parseInclude(line)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		if !ok {
			out = append(out, line)
			continue
		}

		snippet, registered := p.includes[name]
		if !registered {
			return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		p.used = append(p.used, name)
		out = append(out, strings.TrimRight(snippet, "\n"))
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Included() []string {
	return p.used
}

// parseInclude recognizes a //@oxy:include line. Lines that are not annotations return ok=false.
func parseInclude(line string) (string, bool, error) {
	trimmed := strings.TrimSpace(line)
	body, isComment := strings.CutPrefix(trimmed, "//")
	if !isComment {
		return "", false, nil
	}
	body, isAnnotation := strings.CutPrefix(strings.TrimSpace(body), annotationPrefix)
	if !isAnnotation {
		return "", false, nil
	}

	fields := strings.Fields(body)
	if len(fields) == 0 || fields[0] != includeDirective {
		return "", false, fmt.Errorf("unknown annotation %q", trimmed)
	}
	if len(fields) != 2 {
		return "", false, fmt.Errorf("@oxy:include takes exactly one argument, got %d", len(fields)-1)
	}
	return fields[1], true, nil
}
