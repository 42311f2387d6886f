// Package gputest provides a recording implementation of gpu.Device and gpu.Surface for tests.
// Every allocation, write, bind group, pass and draw is kept so tests can assert on exactly what
// a pipeline asked the device to do. Buffers mirror their written contents in memory.
package gputest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Operation names accepted by FailOn.
const (
	OpCreateBuffer          = "CreateBuffer"
	OpWriteBuffer           = "WriteBuffer"
	OpCreateTexture         = "CreateTexture"
	OpCreateSampler         = "CreateSampler"
	OpCreateShaderModule    = "CreateShaderModule"
	OpCreateBindGroupLayout = "CreateBindGroupLayout"
	OpCreateRenderPipeline  = "CreateRenderPipeline"
	OpCreateBindGroup       = "CreateBindGroup"
	OpCreateCommandEncoder  = "CreateCommandEncoder"
	OpFinish                = "Finish"
	OpAcquireTexture        = "AcquireTexture"
)

// Buffer is a recorded device buffer. Data mirrors every write made to it.
type Buffer struct {
	ID       int
	Desc     gpu.BufferDescriptor
	Data     []byte
	Released bool
}

func (b *Buffer) Label() string { return b.Desc.Label }
func (b *Buffer) Size() uint64  { return b.Desc.Size }
func (b *Buffer) Release()      { b.Released = true }

// Write is a recorded buffer write.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Data   []byte
}

// Resource is a recorded device object with no further behavior: textures, samplers, modules,
// layouts and pipelines.
type Resource struct {
	ID       int
	Kind     string
	Label    string
	Released bool
	// Desc holds the descriptor the resource was created from.
	Desc any
}

func (r *Resource) Release() { r.Released = true }

// BindGroup is a recorded bind group.
type BindGroup struct {
	ID       int
	Desc     gpu.BindGroupDescriptor
	Released bool
}

func (g *BindGroup) Release() { g.Released = true }

// Entry returns the entry bound at binding, or nil.
func (g *BindGroup) Entry(binding uint32) *gpu.BindGroupEntry {
	for i := range g.Desc.Entries {
		if g.Desc.Entries[i].Binding == binding {
			return &g.Desc.Entries[i]
		}
	}
	return nil
}

// Draw is a recorded indexed draw together with the state bound when it was issued.
type Draw struct {
	Pipeline      gpu.RenderPipeline
	BindGroups    map[uint32]gpu.BindGroup
	VertexBuffer  gpu.DeviceBuffer
	IndexBuffer   gpu.DeviceBuffer
	IndexFormat   wgpu.IndexFormat
	IndexCount    uint32
	InstanceCount uint32
}

// Pass is a recorded render pass.
type Pass struct {
	Desc  gpu.RenderPassDescriptor
	Draws []Draw
	Ended bool

	pipeline     gpu.RenderPipeline
	bindGroups   map[uint32]gpu.BindGroup
	vertexBuffer gpu.DeviceBuffer
	indexBuffer  gpu.DeviceBuffer
	indexFormat  wgpu.IndexFormat
}

func (p *Pass) SetPipeline(rp gpu.RenderPipeline) { p.pipeline = rp }

func (p *Pass) SetBindGroup(index uint32, group gpu.BindGroup) {
	if p.bindGroups == nil {
		p.bindGroups = make(map[uint32]gpu.BindGroup)
	}
	p.bindGroups[index] = group
}

func (p *Pass) SetVertexBuffer(_ uint32, buf gpu.DeviceBuffer) { p.vertexBuffer = buf }

func (p *Pass) SetIndexBuffer(buf gpu.DeviceBuffer, format wgpu.IndexFormat) {
	p.indexBuffer = buf
	p.indexFormat = format
}

func (p *Pass) DrawIndexed(indexCount, instanceCount uint32) {
	groups := make(map[uint32]gpu.BindGroup, len(p.bindGroups))
	for k, v := range p.bindGroups {
		groups[k] = v
	}
	p.Draws = append(p.Draws, Draw{
		Pipeline:      p.pipeline,
		BindGroups:    groups,
		VertexBuffer:  p.vertexBuffer,
		IndexBuffer:   p.indexBuffer,
		IndexFormat:   p.indexFormat,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
	})
}

func (p *Pass) End() error {
	if p.Ended {
		return fmt.Errorf("gputest: pass ended twice")
	}
	p.Ended = true
	return nil
}

// Encoder is a recorded command encoder.
type Encoder struct {
	device   *Device
	Label    string
	Passes   []*Pass
	Finished bool
	Released bool
}

func (e *Encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) gpu.RenderPass {
	p := &Pass{Desc: *desc}
	e.Passes = append(e.Passes, p)
	e.device.mu.Lock()
	e.device.passes = append(e.device.passes, p)
	e.device.mu.Unlock()
	return p
}

func (e *Encoder) Finish() (gpu.CommandBuffer, error) {
	if err := e.device.failure(OpFinish); err != nil {
		return nil, err
	}
	for _, p := range e.Passes {
		if !p.Ended {
			return nil, fmt.Errorf("gputest: encoder %s finished with an open pass", e.Label)
		}
	}
	e.Finished = true
	return &CommandBuffer{Encoder: e}, nil
}

func (e *Encoder) Release() { e.Released = true }

// CommandBuffer is a recorded command buffer.
type CommandBuffer struct {
	Encoder  *Encoder
	Released bool
}

func (c *CommandBuffer) Release() { c.Released = true }

// Device is a recording gpu.Device. The zero value is not usable; use NewDevice.
type Device struct {
	mu       sync.Mutex
	nextID   int
	failures map[string]error

	buffers    []*Buffer
	writes     []Write
	resources  []*Resource
	bindGroups []*BindGroup
	encoders   []*Encoder
	passes     []*Pass
	submitted  []*CommandBuffer
	released   bool
}

var _ gpu.Device = &Device{}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{failures: make(map[string]error)}
}

// FailOn makes every subsequent call of op return err until ClearFailures is called.
func (d *Device) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = err
}

// ClearFailures removes all injected failures.
func (d *Device) ClearFailures() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.failures)
}

func (d *Device) failure(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures[op]
}

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.DeviceBuffer, error) {
	if err := d.failure(OpCreateBuffer); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := &Buffer{ID: d.id(), Desc: *desc, Data: make([]byte, desc.Size)}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *Device) WriteBuffer(buf gpu.DeviceBuffer, offset uint64, data []byte) error {
	if err := d.failure(OpWriteBuffer); err != nil {
		return err
	}
	b := buf.(*Buffer)
	if b.Released {
		return fmt.Errorf("gputest: write to released buffer %s", b.Desc.Label)
	}
	if offset+uint64(len(data)) > b.Desc.Size {
		return fmt.Errorf("gputest: write of %d bytes at %d overflows %s", len(data), offset, b.Desc.Label)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(b.Data[offset:], data)
	d.writes = append(d.writes, Write{Buffer: b, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (d *Device) resource(op, kind, label string, desc any) (*Resource, error) {
	if err := d.failure(op); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	r := &Resource{ID: d.id(), Kind: kind, Label: label, Desc: desc}
	d.resources = append(d.resources, r)
	return r, nil
}

func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.TextureView, error) {
	r, err := d.resource(OpCreateTexture, "texture", desc.Label, *desc)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Device) CreateSampler(label string, data common.SamplerStagingData) (gpu.Sampler, error) {
	r, err := d.resource(OpCreateSampler, "sampler", label, data)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	r, err := d.resource(OpCreateShaderModule, "shader", desc.Label, *desc)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Device) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	r, err := d.resource(OpCreateBindGroupLayout, "bind_group_layout", desc.Label, *desc)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	r, err := d.resource(OpCreateRenderPipeline, "render_pipeline", desc.Label, *desc)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	if err := d.failure(OpCreateBindGroup); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	g := &BindGroup{ID: d.id(), Desc: *desc}
	g.Desc.Entries = append([]gpu.BindGroupEntry(nil), desc.Entries...)
	d.bindGroups = append(d.bindGroups, g)
	return g, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	if err := d.failure(OpCreateCommandEncoder); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e := &Encoder{device: d, Label: label}
	d.encoders = append(d.encoders, e)
	return e, nil
}

func (d *Device) Submit(buffers ...gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range buffers {
		d.submitted = append(d.submitted, b.(*CommandBuffer))
	}
}

func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

// Buffers returns every buffer ever created, in creation order.
func (d *Device) Buffers() []*Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Buffer(nil), d.buffers...)
}

// BuffersLabeled returns every buffer created with the given label, in creation order.
func (d *Device) BuffersLabeled(label string) []*Buffer {
	var out []*Buffer
	for _, b := range d.Buffers() {
		if b.Desc.Label == label {
			out = append(out, b)
		}
	}
	return out
}

// LiveBuffers returns buffers that have not been released.
func (d *Device) LiveBuffers() []*Buffer {
	var out []*Buffer
	for _, b := range d.Buffers() {
		if !b.Released {
			out = append(out, b)
		}
	}
	return out
}

// Writes returns every recorded buffer write, in order.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

// WritesTo returns the recorded writes targeting b.
func (d *Device) WritesTo(b *Buffer) []Write {
	var out []Write
	for _, w := range d.Writes() {
		if w.Buffer == b {
			out = append(out, w)
		}
	}
	return out
}

// Resources returns every recorded resource of the given kind ("texture", "sampler", "shader",
// "bind_group_layout", "render_pipeline"), or all of them when kind is empty.
func (d *Device) Resources(kind string) []*Resource {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Resource
	for _, r := range d.resources {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// BindGroups returns every bind group ever created.
func (d *Device) BindGroups() []*BindGroup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*BindGroup(nil), d.bindGroups...)
}

// Encoders returns every command encoder ever created.
func (d *Device) Encoders() []*Encoder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Encoder(nil), d.encoders...)
}

// Passes returns every render pass ever begun.
func (d *Device) Passes() []*Pass {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Pass(nil), d.passes...)
}

// Draws returns every draw across all passes.
func (d *Device) Draws() []Draw {
	var out []Draw
	for _, p := range d.Passes() {
		out = append(out, p.Draws...)
	}
	return out
}

// Submitted returns every submitted command buffer.
func (d *Device) Submitted() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*CommandBuffer(nil), d.submitted...)
}

// Released reports whether Release was called.
func (d *Device) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}
