package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/async"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Render draws every object routed to the pipeline with one instanced draw.
//
// Objects sharing a key are assumed to share a mesh and material: the textures and mesh of
// the first routed object are used for the whole group, and instance i reads the model
// matrix of the i-th routed object.
//
// Textures are resolved, and the transform and frame uniform buffers written, before the
// render pass is recorded, so a failed texture fetch never leaves a pass open.
func (p *objectPipeline) Render(s scene.Scene) error {
	if s == nil {
		return ErrNilScene
	}
	if p.isReleased() {
		return fmt.Errorf("%w: %s", ErrReleased, p.label)
	}

	objects := p.selectObjects(s)
	color, depth := s.ColorTarget(), s.DepthTarget()
	if len(objects) == 0 || color == nil || depth == nil {
		p.mu.Lock()
		p.stats.FramesSkipped++
		p.mu.Unlock()
		return nil
	}

	first := objects[0]
	mesh := first.Mesh()
	if mesh == nil || mesh.VertexBuffer() == nil || mesh.IndexBuffer() == nil {
		return fmt.Errorf("%w: first object routed to %s", ErrMeshNotReady, p.label)
	}

	flags, views, err := p.resolveTextures(s, first)
	if err != nil {
		return err
	}

	reallocated, err := p.transforms.Upload(common.Float32sToBytes(PackTransforms(objects)))
	if err != nil {
		return fmt.Errorf("%s: transforms: %w", p.label, err)
	}
	if reallocated {
		p.log.Debug("transform buffer grown", "objects", len(objects), "capacity", p.transforms.Capacity())
	}

	lights := s.Lights()
	p.reportLightOverflow(len(lights))
	uniform := PackFrameUniform(flags, s.Camera(), lights)
	if err := p.uniform.Write(0, uniform.Marshal()); err != nil {
		return fmt.Errorf("%s: frame uniform: %w", p.label, err)
	}

	bindGroup, err := p.device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:  p.label + "_bind_group",
		Layout: p.layout,
		Entries: []gpu.BindGroupEntry{
			{Binding: bindingFrameUniform, Buffer: p.uniform.Handle()},
			{Binding: bindingSampler, Sampler: p.sampler},
			{Binding: bindingDiffuse, TextureView: views[scene.TextureDiffuse]},
			{Binding: bindingSpecular, TextureView: views[scene.TextureSpecular]},
			{Binding: bindingNormal, TextureView: views[scene.TextureNormal]},
			{Binding: bindingTransforms, Buffer: p.transforms.Buffer().Handle()},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: bind group: %w", p.label, err)
	}
	defer bindGroup.Release()

	encoder, err := p.device.CreateCommandEncoder(p.label)
	if err != nil {
		return fmt.Errorf("%s: command encoder: %w", p.label, err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&gpu.RenderPassDescriptor{
		Label: p.label,
		ColorAttachments: []gpu.ColorAttachment{{
			View:       color,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: p.cfg.clearColor,
		}},
		DepthAttachment: &gpu.DepthAttachment{
			View:            depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: p.cfg.depthClear,
		},
	})
	pass.SetPipeline(p.renderPipeline)
	pass.SetBindGroup(0, bindGroup)
	pass.SetVertexBuffer(0, mesh.VertexBuffer())
	pass.SetIndexBuffer(mesh.IndexBuffer(), mesh.IndexFormat())
	pass.DrawIndexed(mesh.IndexCount(), uint32(len(objects)))
	if err := pass.End(); err != nil {
		return fmt.Errorf("%s: end pass: %w", p.label, err)
	}

	commands, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("%s: finish: %w", p.label, err)
	}
	p.device.Submit(commands)
	commands.Release()

	p.mu.Lock()
	p.stats.FramesRendered++
	p.stats.ObjectsDrawn = len(objects)
	p.stats.TransformCapacity = p.transforms.Capacity()
	p.stats.TransformReallocations = p.transforms.Reallocations()
	p.mu.Unlock()
	return nil
}

// selectObjects returns the enabled objects of s routed to this pipeline, in scene order.
func (p *objectPipeline) selectObjects(s scene.Scene) []scene.Object {
	var out []scene.Object
	for _, obj := range s.Objects() {
		if obj.PipelineKey() == p.key {
			out = append(out, obj)
		}
	}
	return out
}

// resolveTextures requests every material texture of obj at once, then waits for all of them.
// Slots the object leaves empty resolve to the resolver's placeholder.
func (p *objectPipeline) resolveTextures(s scene.Scene, obj scene.Object) (TextureFlags, [len(scene.TextureSlots)]gpu.TextureView, error) {
	var (
		flags   TextureFlags
		views   [len(scene.TextureSlots)]gpu.TextureView
		futures [len(scene.TextureSlots)]*async.Future[gpu.TextureView]
	)

	resolver := s.Textures()
	if resolver == nil {
		return flags, views, fmt.Errorf("%w: scene %q has no texture resolver", ErrTextureResolution, s.Name())
	}
	for _, slot := range scene.TextureSlots {
		id, ok := obj.Texture(slot)
		flags[slot] = ok
		futures[slot] = resolver.Texture(id)
	}
	for _, slot := range scene.TextureSlots {
		view, err := futures[slot].Await()
		if err != nil {
			return flags, views, fmt.Errorf("%w: %s texture: %w", ErrTextureResolution, slot, err)
		}
		if view == nil {
			return flags, views, fmt.Errorf("%w: %s texture resolved to nil", ErrTextureResolution, slot)
		}
		views[slot] = view
	}
	return flags, views, nil
}

// reportLightOverflow warns when the number of lights beyond MaxLights changes.
func (p *objectPipeline) reportLightOverflow(lights int) {
	overflow := max(lights-MaxLights, 0)

	p.mu.Lock()
	changed := overflow != p.lastOverflow
	p.lastOverflow = overflow
	p.stats.LightsDropped = overflow
	p.mu.Unlock()

	if changed && overflow > 0 {
		p.log.Warn("too many lights, extra lights ignored", "lights", lights, "max", MaxLights, "dropped", overflow)
	}
}

func (p *objectPipeline) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
