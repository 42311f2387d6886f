package gpu

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDevice is the WebGPU implementation of the Device interface.
type wgpuDevice struct {
	mu       *sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	forceFallbackAdapter bool
	maxBindGroups        uint32
	label                string
}

// wgpuSurface is the WebGPU implementation of the Surface interface.
type wgpuSurface struct {
	mu          *sync.Mutex
	owner       *wgpuDevice
	surface     *wgpu.Surface
	format      wgpu.TextureFormat
	presentMode wgpu.PresentMode

	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView
}

var (
	_ Device  = &wgpuDevice{}
	_ Surface = &wgpuSurface{}
)

// NewWGPU acquires a WebGPU adapter and device compatible with the given window surface.
// The calling goroutine is locked to its OS thread. Failure to acquire an adapter or device panics,
// as nothing can be rendered without one.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor of the target window
//   - opts: a variadic list of WGPUBuilderOption functions
//
// Returns:
//   - Device: the device context
//   - Surface: the window surface, unconfigured until Configure is called
func NewWGPU(surfaceDescriptor *wgpu.SurfaceDescriptor, opts ...WGPUBuilderOption) (Device, Surface) {
	runtime.LockOSThread()

	d := &wgpuDevice{
		mu:            &sync.Mutex{},
		instance:      wgpu.CreateInstance(nil),
		maxBindGroups: 4,
		label:         "Main Device",
	}
	s := &wgpuSurface{
		mu:          &sync.Mutex{},
		owner:       d,
		presentMode: wgpu.PresentModeFifo,
	}
	for _, opt := range opts {
		opt(d, s)
	}

	s.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    s.surface,
	})
	if err != nil {
		panic(err)
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = d.maxBindGroups

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := s.surface.GetCapabilities(d.adapter)
	s.format = capabilities.Formats[0]

	return d, s
}

func (d *wgpuDevice) CreateBuffer(desc *BufferDescriptor) (DeviceBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            desc.Usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, label: desc.Label, size: desc.Size}, nil
}

func (d *wgpuDevice) WriteBuffer(buf DeviceBuffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.WriteBuffer(rawBuffer(buf), offset, data)
}

func (d *wgpuDevice) CreateTexture(desc *TextureDescriptor) (TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := wgpu.Extent3D{
		Width:              desc.Width,
		Height:             desc.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Usage:         desc.Usage,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        desc.Format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	if len(desc.Pixels) > 0 {
		err = d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			desc.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  desc.Width * 4,
				RowsPerImage: desc.Height,
			},
			&size,
		)
		if err != nil {
			tex.Release()
			return nil, fmt.Errorf("failed to upload texture %s: %w", desc.Label, err)
		}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTextureView{view: view, texture: tex}, nil
}

func (d *wgpuDevice) CreateSampler(label string, data common.SamplerStagingData) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(data.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{samp}, nil
}

func (d *wgpuDevice) CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mod, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Code,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{mod}, nil
}

func (d *wgpuDevice) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.device.CreateBindGroupLayout(desc)
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroupLayout{layout}, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layouts[i] = l.(*wgpuBindGroupLayout).layout
	}

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	module := desc.Module.(*wgpuShaderModule).module
	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    desc.ColorFormat,
					Blend:     desc.BlendState,
					WriteMask: desc.WriteMask,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: desc.DepthWriteEnabled,
			DepthCompare:      desc.DepthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuRenderPipeline{created}, nil
}

func (d *wgpuDevice) CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			entry.Buffer = rawBuffer(e.Buffer)
			entry.Offset = e.Offset
			entry.Size = e.Size
			if entry.Size == 0 {
				entry.Size = wgpu.WholeSize
			}
		case e.Sampler != nil:
			entry.Sampler = e.Sampler.(*wgpuSampler).sampler
		case e.TextureView != nil:
			entry.TextureView = rawTextureView(e.TextureView)
		default:
			return nil, fmt.Errorf("bind group %s entry %d binds no resource", desc.Label, e.Binding)
		}
		entries[i] = entry
	}

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  desc.Layout.(*wgpuBindGroupLayout).layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{group}, nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{encoder}, nil
}

func (d *wgpuDevice) Submit(buffers ...CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw := make([]*wgpu.CommandBuffer, len(buffers))
	for i, b := range buffers {
		raw[i] = b.(*wgpuCommandBuffer).buffer
	}
	d.queue.Submit(raw...)
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (s *wgpuSurface) Format() wgpu.TextureFormat {
	return s.format
}

func (s *wgpuSurface) Configure(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capabilities := s.surface.GetCapabilities(s.owner.adapter)
	s.surface.Configure(s.owner.adapter, s.owner.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: s.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (s *wgpuSurface) AcquireTexture() (TextureView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// wgpu-native rejects a second acquire while an image is still held.
	if s.frameTexture != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented")
	}

	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	s.frameTexture = tex
	s.frameView = view

	return &wgpuTextureView{view: view}, nil
}

func (s *wgpuSurface) Present() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frameTexture == nil {
		return
	}
	s.surface.Present()

	s.frameView.Release()
	s.frameView = nil
	s.frameTexture.Release()
	s.frameTexture = nil
}

type wgpuBuffer struct {
	buf   *wgpu.Buffer
	label string
	size  uint64
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }
func (b *wgpuBuffer) Release()      { b.buf.Release() }

type wgpuTextureView struct {
	view *wgpu.TextureView
	// texture is nil for swapchain views, which are released by Present.
	texture *wgpu.Texture
}

func (v *wgpuTextureView) Release() {
	if v.texture == nil {
		return
	}
	v.view.Release()
	v.texture.Release()
}

type wgpuSampler struct{ sampler *wgpu.Sampler }

func (s *wgpuSampler) Release() { s.sampler.Release() }

type wgpuShaderModule struct{ module *wgpu.ShaderModule }

func (m *wgpuShaderModule) Release() { m.module.Release() }

type wgpuBindGroupLayout struct{ layout *wgpu.BindGroupLayout }

func (l *wgpuBindGroupLayout) Release() { l.layout.Release() }

type wgpuBindGroup struct{ group *wgpu.BindGroup }

func (g *wgpuBindGroup) Release() { g.group.Release() }

type wgpuRenderPipeline struct{ pipeline *wgpu.RenderPipeline }

func (p *wgpuRenderPipeline) Release() { p.pipeline.Release() }

type wgpuCommandBuffer struct{ buffer *wgpu.CommandBuffer }

func (b *wgpuCommandBuffer) Release() { b.buffer.Release() }

type wgpuCommandEncoder struct{ encoder *wgpu.CommandEncoder }

func (e *wgpuCommandEncoder) BeginRenderPass(desc *RenderPassDescriptor) RenderPass {
	raw := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for _, c := range desc.ColorAttachments {
		raw.ColorAttachments = append(raw.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:       rawTextureView(c.View),
			LoadOp:     c.LoadOp,
			StoreOp:    c.StoreOp,
			ClearValue: c.ClearValue,
		})
	}
	if desc.DepthAttachment != nil {
		raw.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            rawTextureView(desc.DepthAttachment.View),
			DepthLoadOp:     desc.DepthAttachment.DepthLoadOp,
			DepthStoreOp:    desc.DepthAttachment.DepthStoreOp,
			DepthClearValue: desc.DepthAttachment.DepthClearValue,
		}
	}
	return &wgpuRenderPass{e.encoder.BeginRenderPass(raw)}
}

func (e *wgpuCommandEncoder) Finish() (CommandBuffer, error) {
	buf, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{buf}, nil
}

func (e *wgpuCommandEncoder) Release() { e.encoder.Release() }

type wgpuRenderPass struct{ pass *wgpu.RenderPassEncoder }

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	p.pass.SetPipeline(rp.(*wgpuRenderPipeline).pipeline)
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group BindGroup) {
	p.pass.SetBindGroup(index, group.(*wgpuBindGroup).group, nil)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf DeviceBuffer) {
	p.pass.SetVertexBuffer(slot, rawBuffer(buf), 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetIndexBuffer(buf DeviceBuffer, format wgpu.IndexFormat) {
	p.pass.SetIndexBuffer(rawBuffer(buf), format, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() error {
	return p.pass.End()
}

func rawBuffer(b DeviceBuffer) *wgpu.Buffer {
	if b == nil {
		return nil
	}
	return b.(*wgpuBuffer).buf
}

func rawTextureView(v TextureView) *wgpu.TextureView {
	if v == nil {
		return nil
	}
	return v.(*wgpuTextureView).view
}
