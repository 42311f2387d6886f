// Package gpu defines the device context used by every render pipeline: opaque handles for
// device-owned objects, the descriptors used to create them, and the Device and Surface
// interfaces that allocate them and submit work. The production implementation is backed by
// WebGPU (see NewWGPU); tests use the recording implementation in package gputest.
package gpu

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// DepthFormat is the depth attachment format used by every pipeline and depth target.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// CopyAlignment is the byte alignment required for buffer sizes and write offsets.
const CopyAlignment = 4

var (
	// ErrNilDevice is returned when a resource is requested from a nil Device.
	ErrNilDevice = errors.New("gpu: nil device")

	// ErrInvalidBufferSize is returned when a buffer would be created with no bytes.
	ErrInvalidBufferSize = errors.New("gpu: invalid buffer size")

	// ErrBufferDestroyed is the panic value used when a destroyed buffer is written.
	ErrBufferDestroyed = errors.New("gpu: buffer destroyed")
)

// Releasable is implemented by every device object handle.
type Releasable interface {
	// Release frees the device object. Handles must not be used after Release.
	Release()
}

// DeviceBuffer is a device-allocated buffer.
type DeviceBuffer interface {
	Releasable

	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Size returns the allocated size of the buffer in bytes.
	//
	// Returns:
	//   - uint64: the buffer size in bytes
	Size() uint64
}

// TextureView is a view of a device texture usable as a binding or render attachment.
type TextureView interface {
	Releasable
}

// Sampler is a device sampler.
type Sampler interface {
	Releasable
}

// ShaderModule is a compiled shader module.
type ShaderModule interface {
	Releasable
}

// BindGroupLayout describes the shape of a bind group.
type BindGroupLayout interface {
	Releasable
}

// BindGroup is a bundle of resource bindings attached to a pipeline for one draw.
type BindGroup interface {
	Releasable
}

// RenderPipeline is a compiled render pipeline state object.
type RenderPipeline interface {
	Releasable
}

// CommandBuffer is a finished, submittable list of GPU commands.
type CommandBuffer interface {
	Releasable
}

// CommandEncoder records GPU commands.
type CommandEncoder interface {
	Releasable

	// BeginRenderPass opens a render pass against the attachments in desc.
	//
	// Parameters:
	//   - desc: the attachments and load/store operations of the pass
	//
	// Returns:
	//   - RenderPass: the pass encoder; End must be called before Finish
	BeginRenderPass(desc *RenderPassDescriptor) RenderPass

	// Finish closes the encoder and produces a command buffer.
	//
	// Returns:
	//   - CommandBuffer: the recorded commands
	//   - error: an error if the recorded commands are invalid
	Finish() (CommandBuffer, error)
}

// RenderPass records draw commands inside a render pass.
type RenderPass interface {
	// SetPipeline binds the pipeline state used by subsequent draws.
	//
	// Parameters:
	//   - p: the render pipeline
	SetPipeline(p RenderPipeline)

	// SetBindGroup binds a bind group at the given group index.
	//
	// Parameters:
	//   - index: the group index
	//   - group: the bind group
	SetBindGroup(index uint32, group BindGroup)

	// SetVertexBuffer binds the whole of buf to a vertex buffer slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//   - buf: the vertex buffer
	SetVertexBuffer(slot uint32, buf DeviceBuffer)

	// SetIndexBuffer binds the whole of buf as the index buffer.
	//
	// Parameters:
	//   - buf: the index buffer
	//   - format: the index format
	SetIndexBuffer(buf DeviceBuffer, format wgpu.IndexFormat)

	// DrawIndexed issues an indexed, instanced draw starting at index 0 and instance 0.
	//
	// Parameters:
	//   - indexCount: the number of indices to draw
	//   - instanceCount: the number of instances to draw
	DrawIndexed(indexCount, instanceCount uint32)

	// End closes the pass.
	//
	// Returns:
	//   - error: an error if the pass could not be ended
	End() error
}

// BufferDescriptor describes a buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// TextureDescriptor describes a 2D texture allocation. When Pixels is non-empty they are
// uploaded as tightly packed rows of 4 bytes per texel.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
	Pixels []byte
}

// ShaderModuleDescriptor describes a WGSL shader module.
type ShaderModuleDescriptor struct {
	Label string
	Code  string
}

// RenderPipelineDescriptor describes a render pipeline with a single vertex buffer layout set,
// a single color target and a depth attachment in DepthFormat.
type RenderPipelineDescriptor struct {
	Label              string
	Module             ShaderModule
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexBuffers      []wgpu.VertexBufferLayout
	BindGroupLayouts   []BindGroupLayout
	ColorFormat        wgpu.TextureFormat
	BlendState         *wgpu.BlendState
	WriteMask          wgpu.ColorWriteMask
	Topology           wgpu.PrimitiveTopology
	FrontFace          wgpu.FrontFace
	CullMode           wgpu.CullMode
	DepthWriteEnabled  bool
	DepthCompare       wgpu.CompareFunction
}

// BindGroupEntry binds exactly one of Buffer, Sampler or TextureView to Binding.
// A zero Size binds the whole buffer.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      DeviceBuffer
	Offset      uint64
	Size        uint64
	Sampler     Sampler
	TextureView TextureView
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// ColorAttachment describes the color target of a render pass.
type ColorAttachment struct {
	View       TextureView
	LoadOp     wgpu.LoadOp
	StoreOp    wgpu.StoreOp
	ClearValue wgpu.Color
}

// DepthAttachment describes the depth target of a render pass.
type DepthAttachment struct {
	View            TextureView
	DepthLoadOp     wgpu.LoadOp
	DepthStoreOp    wgpu.StoreOp
	DepthClearValue float32
}

// RenderPassDescriptor describes the attachments of a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
	DepthAttachment  *DepthAttachment
}

// Device is the process-wide device context. It allocates device objects and owns the command
// queue. A Device is created once before any pipeline is constructed and outlives them all.
type Device interface {
	// CreateBuffer allocates an uninitialized buffer.
	//
	// Parameters:
	//   - desc: the size, usage and label of the buffer
	//
	// Returns:
	//   - DeviceBuffer: the allocated buffer
	//   - error: an error if the device could not allocate the buffer
	CreateBuffer(desc *BufferDescriptor) (DeviceBuffer, error)

	// WriteBuffer queues a write of data into buf at offset. The write is applied on the queue
	// timeline before any later submission executes; the caller is not blocked.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination offset in bytes
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the device rejected the write
	WriteBuffer(buf DeviceBuffer, offset uint64, data []byte) error

	// CreateTexture allocates a 2D texture, uploads desc.Pixels if present, and returns a view of it.
	// Releasing the view releases the texture.
	//
	// Parameters:
	//   - desc: the texture description and optional pixel data
	//
	// Returns:
	//   - TextureView: a view of the whole texture
	//   - error: an error if the texture or view could not be created
	CreateTexture(desc *TextureDescriptor) (TextureView, error)

	// CreateSampler creates a sampler. Zero fields of data fall back to linear filtering and repeat addressing.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the sampler configuration
	//
	// Returns:
	//   - Sampler: the sampler
	//   - error: an error if the sampler could not be created
	CreateSampler(label string, data common.SamplerStagingData) (Sampler, error)

	// CreateShaderModule compiles a WGSL module.
	//
	// Parameters:
	//   - desc: the module source and label
	//
	// Returns:
	//   - ShaderModule: the compiled module
	//   - error: an error if compilation failed
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)

	// CreateBindGroupLayout creates a bind group layout.
	//
	// Parameters:
	//   - desc: the layout entries
	//
	// Returns:
	//   - BindGroupLayout: the layout
	//   - error: an error if the layout is invalid
	CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreateRenderPipeline builds the pipeline layout and render pipeline described by desc.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - RenderPipeline: the pipeline state object
	//   - error: an error if pipeline creation failed
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateBindGroup creates a bind group against a layout.
	//
	// Parameters:
	//   - desc: the layout and entries
	//
	// Returns:
	//   - BindGroup: the bind group
	//   - error: an error if the entries do not match the layout
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)

	// CreateCommandEncoder starts recording a new command list.
	//
	// Parameters:
	//   - label: the debug label
	//
	// Returns:
	//   - CommandEncoder: the encoder
	//   - error: an error if the encoder could not be created
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit hands finished command buffers to the queue for execution in order.
	//
	// Parameters:
	//   - buffers: the command buffers to execute
	Submit(buffers ...CommandBuffer)

	// Release frees the device and everything it owns.
	Release()
}

// Surface is the presentable swapchain of a window.
type Surface interface {
	// Format returns the color format of the surface textures.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface color format
	Format() wgpu.TextureFormat

	// Configure (re)creates the swapchain at the given size.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	Configure(width, height int)

	// AcquireTexture acquires the next swapchain texture for rendering.
	// Only one texture may be held at a time; it is released by Present.
	//
	// Returns:
	//   - TextureView: a view of the acquired texture
	//   - error: an error if no texture could be acquired
	AcquireTexture() (TextureView, error)

	// Present shows the acquired texture and releases it. It is a no-op when nothing is held.
	Present()
}
