package pipeline

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// Bindings of the object pipeline's bind group 0.
const (
	bindingFrameUniform uint32 = iota
	bindingSampler
	bindingDiffuse
	bindingSpecular
	bindingNormal
	bindingTransforms
)

// requiredBindings lists the group 0 bindings an object shader must declare and their kinds.
var requiredBindings = []struct {
	binding uint32
	kind    shader.BindingKind
}{
	{bindingFrameUniform, shader.BindingUniform},
	{bindingSampler, shader.BindingSampler},
	{bindingDiffuse, shader.BindingTexture},
	{bindingSpecular, shader.BindingTexture},
	{bindingNormal, shader.BindingTexture},
	{bindingTransforms, shader.BindingReadOnlyStorage},
}

// objectPipeline is the VariantDefaultObject implementation of Pipeline.
// It owns a fixed-size frame uniform buffer and a grow-only transform buffer.
type objectPipeline struct {
	mu *sync.Mutex

	id       uuid.UUID
	label    string
	key      string
	shaderID string
	device   gpu.Device
	cfg      *pipelineConfig
	log      *log.Logger

	shader         shader.Shader
	module         gpu.ShaderModule
	layout         gpu.BindGroupLayout
	renderPipeline gpu.RenderPipeline
	sampler        gpu.Sampler
	uniform        gpu.Buffer
	transforms     gpu.GrowableBuffer

	stats        Stats
	lastOverflow int
	released     bool
}

var _ Pipeline = &objectPipeline{}

// newObjectPipeline builds the object pipeline: it awaits the shader source, validates it,
// then creates the shader module, bind group layout, render pipeline, sampler and uniform buffer.
func newObjectPipeline(shaderID string, s scene.Scene, device gpu.Device, cfg *pipelineConfig) (_ *objectPipeline, err error) {
	if s == nil {
		return nil, ErrNilScene
	}
	if device == nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineCreation, gpu.ErrNilDevice)
	}

	key := KeyFor(VariantDefaultObject, shaderID)
	label := VariantDefaultObject.Label() + ":" + key
	p := &objectPipeline{
		mu:       &sync.Mutex{},
		id:       uuid.New(),
		label:    label,
		key:      key,
		shaderID: shaderID,
		device:   device,
		cfg:      cfg,
		log:      cfg.log(label),
	}

	resolver := s.Shaders()
	if resolver == nil {
		return nil, fmt.Errorf("%w: scene %q has no shader resolver", ErrShaderResolution, s.Name())
	}
	source, err := resolver.Shader(shaderID).Await()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShaderResolution, shaderID, err)
	}
	source, err = shader.NewPreProcessor(cfg.includes).Process(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShaderResolution, shaderID, err)
	}
	p.shader, err = shader.Compile(key, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineCreation, err)
	}
	if err := checkBindings(p.shader); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPipelineCreation, shaderID, err)
	}

	defer func() {
		if err != nil {
			p.Release()
			err = fmt.Errorf("%w: %s: %w", ErrPipelineCreation, label, err)
		}
	}()

	p.module, err = device.CreateShaderModule(&gpu.ShaderModuleDescriptor{Label: label, Code: source})
	if err != nil {
		return nil, fmt.Errorf("shader module: %w", err)
	}
	p.layout, err = device.CreateBindGroupLayout(bindGroupLayoutDescriptor(label))
	if err != nil {
		return nil, fmt.Errorf("bind group layout: %w", err)
	}
	p.renderPipeline, err = device.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
		Label:              label,
		Module:             p.module,
		VertexEntryPoint:   p.shader.EntryPoint(shader.StageVertex),
		FragmentEntryPoint: p.shader.EntryPoint(shader.StageFragment),
		VertexBuffers:      []wgpu.VertexBufferLayout{model.VertexBufferLayout()},
		BindGroupLayouts:   []gpu.BindGroupLayout{p.layout},
		ColorFormat:        s.ColorFormat(),
		BlendState:         cfg.blendState,
		WriteMask:          wgpu.ColorWriteMaskAll,
		Topology:           wgpu.PrimitiveTopologyTriangleList,
		FrontFace:          cfg.frontFace,
		CullMode:           cfg.cullMode,
		DepthWriteEnabled:  true,
		DepthCompare:       wgpu.CompareFunctionLess,
	})
	if err != nil {
		return nil, fmt.Errorf("render pipeline: %w", err)
	}
	p.sampler, err = device.CreateSampler(label+"_sampler", cfg.sampler)
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	p.uniform, err = gpu.NewBuffer(device, label+"_frame_uniform", make([]byte, FrameUniformSize), wgpu.BufferUsageUniform)
	if err != nil {
		return nil, fmt.Errorf("frame uniform: %w", err)
	}
	p.transforms = gpu.NewGrowableBuffer(device, label+"_transforms", wgpu.BufferUsageStorage)

	p.log.Debug("pipeline created", "shader", shaderID, "id", p.id, "format", s.ColorFormat())
	return p, nil
}

// checkBindings verifies that s declares every binding the object pipeline binds.
func checkBindings(s shader.Shader) error {
	if s.EntryPoint(shader.StageVertex) == "" || s.EntryPoint(shader.StageFragment) == "" {
		return fmt.Errorf("shader %q needs a vertex and a fragment entry point", s.Key())
	}
	for _, req := range requiredBindings {
		b, ok := s.Binding(0, req.binding)
		if !ok {
			return fmt.Errorf("shader %q does not declare @group(0) @binding(%d)", s.Key(), req.binding)
		}
		if b.Kind != req.kind {
			return fmt.Errorf("shader %q binds %s at @group(0) @binding(%d), want %s", s.Key(), b.Kind, req.binding, req.kind)
		}
	}
	return nil
}

// bindGroupLayoutDescriptor describes bind group 0: the frame uniform, the material sampler,
// the diffuse, specular and normal textures, and the read-only transform array.
func bindGroupLayoutDescriptor(label string) *wgpu.BindGroupLayoutDescriptor {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(requiredBindings))

	uniform := wgpu.BindGroupLayoutEntry{Binding: bindingFrameUniform, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
	uniform.Buffer.Type = wgpu.BufferBindingTypeUniform
	uniform.Buffer.MinBindingSize = FrameUniformSize
	entries = append(entries, uniform)

	samp := wgpu.BindGroupLayoutEntry{Binding: bindingSampler, Visibility: wgpu.ShaderStageFragment}
	samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	entries = append(entries, samp)

	for _, binding := range []uint32{bindingDiffuse, bindingSpecular, bindingNormal} {
		tex := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: wgpu.ShaderStageFragment}
		tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
		tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entries = append(entries, tex)
	}

	transforms := wgpu.BindGroupLayoutEntry{Binding: bindingTransforms, Visibility: wgpu.ShaderStageVertex}
	transforms.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	transforms.Buffer.MinBindingSize = TransformStride
	entries = append(entries, transforms)

	return &wgpu.BindGroupLayoutDescriptor{Label: label + "_layout", Entries: entries}
}

func (p *objectPipeline) ID() uuid.UUID {
	return p.id
}

func (p *objectPipeline) Label() string {
	return p.label
}

func (p *objectPipeline) Key() string {
	return p.key
}

func (p *objectPipeline) Variant() Variant {
	return VariantDefaultObject
}

func (p *objectPipeline) ShaderID() string {
	return p.shaderID
}

func (p *objectPipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *objectPipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true

	if p.transforms != nil {
		p.transforms.Destroy()
	}
	if p.uniform != nil {
		p.uniform.Destroy()
	}
	for _, r := range []gpu.Releasable{p.sampler, p.renderPipeline, p.layout, p.module} {
		if r != nil {
			r.Release()
		}
	}
	p.log.Debug("pipeline released", "id", p.id)
}
