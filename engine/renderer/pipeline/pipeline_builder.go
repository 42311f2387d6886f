package pipeline

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineConfig holds the construction settings shared by every variant.
type pipelineConfig struct {
	cullMode   wgpu.CullMode
	frontFace  wgpu.FrontFace
	clearColor wgpu.Color
	depthClear float32
	blendState *wgpu.BlendState
	sampler    common.SamplerStagingData
	includes   map[string]string
	logger     *log.Logger
}

func defaultConfig() *pipelineConfig {
	return &pipelineConfig{
		cullMode:   wgpu.CullModeNone,
		frontFace:  wgpu.FrontFaceCCW,
		clearColor: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		depthClear: 1.0,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorZero,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorZero,
			},
		},
		sampler: common.SamplerStagingData{
			AddressModeU: wgpu.AddressModeRepeat,
			AddressModeV: wgpu.AddressModeRepeat,
			AddressModeW: wgpu.AddressModeRepeat,
			MagFilter:    wgpu.FilterModeLinear,
			MinFilter:    wgpu.FilterModeLinear,
			MipmapFilter: wgpu.MipmapFilterModeLinear,
		},
		includes: Includes(),
	}
}

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipelineConfig)

// WithCullMode sets the face culling mode. Culling is off by default.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.cullMode = mode
	}
}

// WithFrontFace sets the winding order of front faces. Counter-clockwise by default.
//
// Parameters:
//   - face: the front face winding
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face
func WithFrontFace(face wgpu.FrontFace) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.frontFace = face
	}
}

// WithBlendState sets the color target blend state. Blending replaces the destination by default.
//
// Parameters:
//   - blendState: the blend state, or nil to disable blending
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.blendState = blendState
	}
}

// WithClearColor sets the color the render pass clears the color target to. Opaque black by default.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - PipelineBuilderOption: a function that sets the clear color
func WithClearColor(color wgpu.Color) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.clearColor = color
	}
}

// WithDepthClear sets the value the render pass clears the depth target to. 1.0 by default.
//
// Parameters:
//   - depth: the depth clear value
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth clear value
func WithDepthClear(depth float32) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.depthClear = depth
	}
}

// WithSampler sets the configuration of the pipeline's material sampler.
//
// Parameters:
//   - data: the sampler configuration
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sampler configuration
func WithSampler(data common.SamplerStagingData) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.sampler = data
	}
}

// WithIncludes adds WGSL snippets available to "//@oxy:include" in the pipeline's shader,
// on top of the frame_uniform and vertex_input snippets.
//
// Parameters:
//   - includes: include name to WGSL source
//
// Returns:
//   - PipelineBuilderOption: a function that registers the includes
func WithIncludes(includes map[string]string) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		for name, src := range includes {
			c.includes[name] = src
		}
	}
}

// WithLogger sets the logger the pipeline reports to. Defaults to the engine logger.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - PipelineBuilderOption: a function that sets the logger
func WithLogger(l *log.Logger) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.logger = l
	}
}

func (c *pipelineConfig) log(label string) *log.Logger {
	if c.logger != nil {
		return c.logger.With("pipeline", label)
	}
	return logger.With("pipeline", label)
}
