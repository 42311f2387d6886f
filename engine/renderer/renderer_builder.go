package renderer

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/charmbracelet/log"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSize configures the surface and creates the depth target at the given size during construction.
//
// Parameters:
//   - width: the initial width in pixels
//   - height: the initial height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.width, r.height = width, height
	}
}

// WithPipelineOptions sets options applied to every pipeline the renderer builds, such as the clear color.
//
// Parameters:
//   - options: the pipeline options
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline options to a renderer
func WithPipelineOptions(options ...pipeline.PipelineBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelineOptions = append(r.pipelineOptions, options...)
	}
}

// WithLogger sets the logger the renderer reports registrations and rebuilds to.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(l *log.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.log = l
	}
}
