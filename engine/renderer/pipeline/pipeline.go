// Package pipeline implements render pipelines: compiled pipeline state bound to a routing key,
// constructed once from a shader and executed once per frame against the objects routed to it.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/async"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/google/uuid"
)

var (
	// ErrUnknownVariant is returned for variant labels or values with no implementation.
	ErrUnknownVariant = errors.New("pipeline: unknown variant")

	// ErrNilScene is returned when a pipeline is constructed or rendered without a scene.
	ErrNilScene = errors.New("pipeline: nil scene")

	// ErrShaderResolution wraps failures to obtain shader source during construction.
	ErrShaderResolution = errors.New("pipeline: shader resolution failed")

	// ErrPipelineCreation wraps shader validation and device failures during construction.
	ErrPipelineCreation = errors.New("pipeline: pipeline creation failed")

	// ErrTextureResolution wraps failures to resolve the textures of a frame.
	ErrTextureResolution = errors.New("pipeline: texture resolution failed")

	// ErrMeshNotReady is returned when the representative object has no uploaded mesh.
	ErrMeshNotReady = errors.New("pipeline: mesh not ready")

	// ErrReleased is returned when a released pipeline is rendered.
	ErrReleased = errors.New("pipeline: released")
)

// Stats is a snapshot of a pipeline's frame counters.
type Stats struct {
	// FramesRendered counts frames that submitted a render pass.
	FramesRendered uint64
	// FramesSkipped counts frames with no routed objects or no render targets.
	FramesSkipped uint64
	// ObjectsDrawn is the instance count of the most recent draw.
	ObjectsDrawn int
	// LightsDropped is how many lights beyond MaxLights the most recent frame ignored.
	LightsDropped int
	// TransformCapacity is the current size in bytes of the transform buffer.
	TransformCapacity uint64
	// TransformReallocations counts how often the transform buffer was recreated.
	TransformReallocations int
}

// Pipeline defines the interface for a render pipeline bound to a routing key.
// A Pipeline renders, once per frame, exactly the scene objects whose PipelineKey equals Key.
//
// Render must not be called concurrently with itself or with Release on the same pipeline;
// the frame driver serializes those calls.
type Pipeline interface {
	// ID returns the unique identifier of this pipeline instance.
	//
	// Returns:
	//   - uuid.UUID: the instance ID
	ID() uuid.UUID

	// Label returns the debug label, "<variant>:<key>".
	//
	// Returns:
	//   - string: the label
	Label() string

	// Key returns the routing key selecting which objects this pipeline renders.
	//
	// Returns:
	//   - string: the routing key
	Key() string

	// Variant returns the implementation variant of the pipeline.
	//
	// Returns:
	//   - Variant: the variant
	Variant() Variant

	// ShaderID returns the shader identifier the pipeline was constructed from.
	//
	// Returns:
	//   - string: the shader identifier
	ShaderID() string

	// Render records and submits one render pass for the objects of s routed to this pipeline.
	// A frame with no routed objects or without color and depth targets is skipped silently.
	//
	// Parameters:
	//   - s: the scene holding objects, camera, lights and the current render targets
	//
	// Returns:
	//   - error: a texture resolution, mesh or device error; the frame is abandoned
	Render(s scene.Scene) error

	// Stats returns a snapshot of the pipeline's frame counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// Release frees every device object owned by the pipeline. Calling it again is a no-op.
	Release()
}

// Create constructs a pipeline of the given variant, blocking while the shader source is resolved
// through the scene's shader resolver. No pipeline is returned on failure, and any device objects
// created before the failure are released.
//
// Parameters:
//   - variant: the pipeline variant
//   - shaderID: the shader identifier passed to the scene's shader resolver
//   - s: the scene supplying the shader resolver and color target format
//   - device: the device that allocates the pipeline's objects
//   - options: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the ready-to-render pipeline
//   - error: an error wrapping ErrUnknownVariant, ErrNilScene, ErrShaderResolution or ErrPipelineCreation
func Create(variant Variant, shaderID string, s scene.Scene, device gpu.Device, options ...PipelineBuilderOption) (Pipeline, error) {
	cfg := defaultConfig()
	for _, option := range options {
		option(cfg)
	}

	switch variant {
	case VariantDefaultObject:
		p, err := newObjectPipeline(shaderID, s, device, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(variant))
	}
}

// CreateAsync runs Create on its own goroutine.
//
// Parameters:
//   - variant: the pipeline variant
//   - shaderID: the shader identifier passed to the scene's shader resolver
//   - s: the scene supplying the shader resolver and color target format
//   - device: the device that allocates the pipeline's objects
//   - options: functional options to configure the pipeline
//
// Returns:
//   - *async.Future[Pipeline]: settles with the pipeline or the construction error
func CreateAsync(variant Variant, shaderID string, s scene.Scene, device gpu.Device, options ...PipelineBuilderOption) *async.Future[Pipeline] {
	return async.Go(func() (Pipeline, error) {
		return Create(variant, shaderID, s, device, options...)
	})
}
