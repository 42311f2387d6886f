package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrInvalidSource wraps every parse, lowering or validation failure reported by Compile.
var ErrInvalidSource = errors.New("shader: invalid WGSL source")

// Stage identifies a shader stage.
type Stage int

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota

	// StageFragment is the fragment stage.
	StageFragment

	// StageCompute is the compute stage.
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// BindingKind classifies a resource binding declared by a shader.
type BindingKind int

const (
	// BindingUnknown is a binding whose type could not be classified.
	BindingUnknown BindingKind = iota

	// BindingUniform is a var<uniform> buffer.
	BindingUniform

	// BindingStorage is a read-write var<storage> buffer.
	BindingStorage

	// BindingReadOnlyStorage is a var<storage, read> buffer.
	BindingReadOnlyStorage

	// BindingSampler is a filtering or non-filtering sampler.
	BindingSampler

	// BindingComparisonSampler is a sampler_comparison.
	BindingComparisonSampler

	// BindingTexture is a sampled texture.
	BindingTexture

	// BindingDepthTexture is a depth texture.
	BindingDepthTexture

	// BindingStorageTexture is a storage texture.
	BindingStorageTexture
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorage:
		return "storage"
	case BindingReadOnlyStorage:
		return "read_only_storage"
	case BindingSampler:
		return "sampler"
	case BindingComparisonSampler:
		return "comparison_sampler"
	case BindingTexture:
		return "texture"
	case BindingDepthTexture:
		return "depth_texture"
	case BindingStorageTexture:
		return "storage_texture"
	default:
		return "unknown"
	}
}

// IsBuffer reports whether the binding kind is a uniform or storage buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniform || k == BindingStorage || k == BindingReadOnlyStorage
}

// Binding is a resource binding declared at module scope.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Kind    BindingKind
}

// shader is the implementation of the Shader interface.
type shader struct {
	key         string
	source      string
	entryPoints map[Stage]string
	bindings    []Binding
}

// Shader is a validated WGSL module together with the reflection data pipelines need to build
// layouts: its entry points per stage and its declared resource bindings.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the validated WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the name of the first entry point declared for a stage.
	//
	// Parameters:
	//   - stage: the shader stage
	//
	// Returns:
	//   - string: the entry point name, or "" if the stage has none
	EntryPoint(stage Stage) string

	// Bindings returns every resource binding declared by the module in declaration order.
	//
	// Returns:
	//   - []Binding: the declared bindings
	Bindings() []Binding

	// Binding looks up a declared binding by group and binding index.
	//
	// Parameters:
	//   - group: the @group index
	//   - binding: the @binding index
	//
	// Returns:
	//   - Binding: the declared binding
	//   - bool: false if the module declares nothing at that slot
	Binding(group, binding uint32) (Binding, bool)
}

var _ Shader = &shader{}

// Compile parses, lowers and validates WGSL source with naga and reflects its entry points and
// bindings. The returned Shader holds the source unchanged.
//
// Parameters:
//   - key: the unique identifier of the shader
//   - source: the WGSL source code
//
// Returns:
//   - Shader: the validated shader
//   - error: an error wrapping ErrInvalidSource if the source is not valid WGSL
func Compile(key, source string) (Shader, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidSource, key)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, key, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, key, err)
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, key, err)
	}
	if len(problems) > 0 {
		errs := make([]error, len(problems))
		for i, p := range problems {
			errs[i] = p
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, key, errors.Join(errs...))
	}

	s := &shader{
		key:         key,
		source:      source,
		entryPoints: make(map[Stage]string),
		bindings:    reflectBindings(module),
	}
	for _, ep := range module.EntryPoints {
		stage, ok := stageOf(ep.Stage)
		if !ok {
			continue
		}
		if _, seen := s.entryPoints[stage]; !seen {
			s.entryPoints[stage] = ep.Name
		}
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(stage Stage) string {
	return s.entryPoints[stage]
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) Binding(group, binding uint32) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Group == group && b.Binding == binding {
			return b, true
		}
	}
	return Binding{}, false
}

func stageOf(s ir.ShaderStage) (Stage, bool) {
	switch s {
	case ir.StageVertex:
		return StageVertex, true
	case ir.StageFragment:
		return StageFragment, true
	case ir.StageCompute:
		return StageCompute, true
	default:
		return 0, false
	}
}

func reflectBindings(module *ir.Module) []Binding {
	var out []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		out = append(out, Binding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Name:    gv.Name,
			Kind:    classify(module, gv),
		})
	}
	return out
}

func classify(module *ir.Module, gv ir.GlobalVariable) BindingKind {
	switch gv.Space {
	case ir.SpaceUniform:
		return BindingUniform
	case ir.SpaceStorage:
		if gv.Access == ir.StorageRead {
			return BindingReadOnlyStorage
		}
		return BindingStorage
	case ir.SpaceHandle:
	default:
		return BindingUnknown
	}

	if int(gv.Type) >= len(module.Types) {
		return BindingUnknown
	}
	switch inner := module.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		return samplerKind(inner)
	case *ir.SamplerType:
		return samplerKind(*inner)
	case ir.ImageType:
		return imageKind(inner)
	case *ir.ImageType:
		return imageKind(*inner)
	default:
		return BindingUnknown
	}
}

func samplerKind(s ir.SamplerType) BindingKind {
	if s.Comparison {
		return BindingComparisonSampler
	}
	return BindingSampler
}

func imageKind(img ir.ImageType) BindingKind {
	switch img.Class {
	case ir.ImageClassDepth:
		return BindingDepthTexture
	case ir.ImageClassStorage:
		return BindingStorageTexture
	default:
		return BindingTexture
	}
}
