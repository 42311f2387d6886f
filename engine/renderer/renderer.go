// Package renderer drives the frame: it owns the device and surface, keeps the depth target
// sized to the surface, and renders every registered pipeline into the acquired surface texture.
package renderer

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoPipeline is returned when a key or shader matches no registered pipeline.
var ErrNoPipeline = errors.New("renderer: no such pipeline")

// registration remembers how a pipeline was built so it can be rebuilt.
type registration struct {
	pipeline pipeline.Pipeline
	scene    scene.Scene
	variant  pipeline.Variant
	shaderID string
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device  gpu.Device
	surface gpu.Surface
	log     *log.Logger

	pipelineOptions []pipeline.PipelineBuilderOption
	pipelineCache   map[string]*registration
	order           []string

	width, height int
	depth         gpu.TextureView
	frames        uint64
	released      bool
}

// Renderer defines the interface for the rendering system.
//
// The Renderer keeps a registry of pipelines keyed by their PipelineKey. Each frame it acquires
// the next surface texture, hands it and the depth target to the scene, renders every registered
// pipeline in registration order and presents the result.
type Renderer interface {
	// RegisterPipeline builds a pipeline for the scene and registers it under its key.
	// When a pipeline with the same key is already registered it is returned unchanged.
	//
	// Parameters:
	//   - s: the scene the pipeline resolves shaders from and renders
	//   - variant: the pipeline variant
	//   - shaderID: the shader identifier
	//
	// Returns:
	//   - pipeline.Pipeline: the registered pipeline
	//   - error: an error if the pipeline could not be built
	RegisterPipeline(s scene.Scene, variant pipeline.Variant, shaderID string) (pipeline.Pipeline, error)

	// Pipeline retrieves the registered Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline or nil
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns the registered pipelines in registration order.
	//
	// Returns:
	//   - []pipeline.Pipeline: the registered pipelines
	Pipelines() []pipeline.Pipeline

	// Unregister removes and releases the pipeline registered under key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - bool: true if a pipeline was removed
	Unregister(key string) bool

	// Rebuild recreates every pipeline built from shaderID, for example after its source changed.
	// A replacement is built before the old pipeline is released; if building fails the old
	// pipeline stays registered.
	//
	// Parameters:
	//   - shaderID: the identifier of the changed shader
	//
	// Returns:
	//   - error: ErrNoPipeline if nothing uses the shader, or the joined build errors
	Rebuild(shaderID string) error

	// Resize configures the surface and recreates the depth target at the new size.
	// A zero width or height suspends rendering until the next non-zero Resize.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the depth target could not be created
	Resize(width, height int) error

	// RenderFrame renders one frame of s to the surface.
	//
	// Parameters:
	//   - s: the scene to render
	//
	// Returns:
	//   - error: the acquire error, or the joined errors of pipelines that failed
	RenderFrame(s scene.Scene) error

	// Suspended reports whether RenderFrame currently skips frames, which happens while the
	// surface has zero size or after Release.
	//
	// Returns:
	//   - bool: true if no frame would be drawn
	Suspended() bool

	// ColorFormat returns the format of the surface textures, which pipelines must target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	ColorFormat() wgpu.TextureFormat

	// Frames returns the number of frames presented.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Release releases every pipeline, the depth target, and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer over a device and its window surface.
//
// Parameters:
//   - device: the device context
//   - surface: the window surface to present to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the initial depth target could not be created
func NewRenderer(device gpu.Device, surface gpu.Surface, options ...RendererBuilderOption) (Renderer, error) {
	if device == nil {
		return nil, gpu.ErrNilDevice
	}
	r := &renderer{
		mu:            &sync.Mutex{},
		device:        device,
		surface:       surface,
		pipelineCache: make(map[string]*registration),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.With("component", "renderer")
	}

	if r.width > 0 && r.height > 0 {
		if err := r.Resize(r.width, r.height); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *renderer) Suspended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released || r.depth == nil || r.surface == nil
}

func (r *renderer) ColorFormat() wgpu.TextureFormat {
	if r.surface == nil {
		return wgpu.TextureFormatBGRA8UnormSrgb
	}
	return r.surface.Format()
}

func (r *renderer) RegisterPipeline(s scene.Scene, variant pipeline.Variant, shaderID string) (pipeline.Pipeline, error) {
	key := pipeline.KeyFor(variant, shaderID)

	r.mu.Lock()
	if reg, exists := r.pipelineCache[key]; exists && key != "" {
		r.mu.Unlock()
		return reg.pipeline, nil
	}
	r.mu.Unlock()

	p, err := pipeline.Create(variant, shaderID, s, r.device, r.pipelineOptions...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have registered the same key while this one was compiling.
	if reg, exists := r.pipelineCache[p.Key()]; exists {
		p.Release()
		return reg.pipeline, nil
	}
	r.pipelineCache[p.Key()] = &registration{pipeline: p, scene: s, variant: variant, shaderID: shaderID}
	r.order = append(r.order, p.Key())
	r.log.Info("pipeline registered", "key", p.Key(), "shader", shaderID)
	return p, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.pipelineCache[key]; ok {
		return reg.pipeline
	}
	return nil
}

func (r *renderer) Pipelines() []pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pipeline.Pipeline, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.pipelineCache[key].pipeline)
	}
	return out
}

func (r *renderer) Unregister(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.pipelineCache[key]
	if !ok {
		return false
	}
	delete(r.pipelineCache, key)
	r.order = slices.DeleteFunc(r.order, func(k string) bool { return k == key })
	reg.pipeline.Release()
	r.log.Info("pipeline unregistered", "key", key)
	return true
}

func (r *renderer) Rebuild(shaderID string) error {
	r.mu.Lock()
	var stale []*registration
	for _, key := range r.order {
		reg := r.pipelineCache[key]
		if reg.shaderID == shaderID || reg.pipeline.Key() == pipeline.KeyFor(reg.variant, shaderID) {
			stale = append(stale, reg)
		}
	}
	r.mu.Unlock()

	if len(stale) == 0 {
		return fmt.Errorf("%w: shader %s", ErrNoPipeline, shaderID)
	}

	var errs []error
	for _, old := range stale {
		p, err := pipeline.Create(old.variant, old.shaderID, old.scene, r.device, r.pipelineOptions...)
		if err != nil {
			r.log.Error("pipeline rebuild failed, keeping previous pipeline", "key", old.pipeline.Key(), "err", err)
			errs = append(errs, err)
			continue
		}

		r.mu.Lock()
		current, ok := r.pipelineCache[p.Key()]
		if !ok || current != old {
			r.mu.Unlock()
			p.Release()
			continue
		}
		r.pipelineCache[p.Key()] = &registration{pipeline: p, scene: old.scene, variant: old.variant, shaderID: old.shaderID}
		old.pipeline.Release()
		r.mu.Unlock()
		r.log.Info("pipeline rebuilt", "key", p.Key(), "shader", old.shaderID)
	}
	return errors.Join(errs...)
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.width, r.height = width, height
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	if r.surface != nil {
		r.surface.Configure(width, height)
	}

	depth, err := r.device.CreateTexture(&gpu.TextureDescriptor{
		Label:  "depth",
		Width:  uint32(width),
		Height: uint32(height),
		Format: gpu.DepthFormat,
		Usage:  wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("failed to create %dx%d depth target: %w", width, height, err)
	}
	r.depth = depth
	r.log.Debug("surface resized", "width", width, "height", height)
	return nil
}

func (r *renderer) RenderFrame(s scene.Scene) error {
	if s == nil {
		return pipeline.ErrNilScene
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released || r.depth == nil || r.surface == nil {
		return nil
	}

	color, err := r.surface.AcquireTexture()
	if err != nil {
		return fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	s.SetTargets(color, r.depth)
	defer s.SetTargets(nil, nil)

	var errs []error
	for _, key := range r.order {
		if err := r.pipelineCache[key].pipeline.Render(s); err != nil {
			errs = append(errs, err)
		}
	}
	r.surface.Present()
	r.frames++
	return errors.Join(errs...)
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true

	for _, key := range r.order {
		r.pipelineCache[key].pipeline.Release()
	}
	clear(r.pipelineCache)
	r.order = nil
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
	r.device.Release()
}
