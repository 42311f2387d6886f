package scene

import "github.com/cogentcore/webgpu/wgpu"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithObjects adds initial objects to the scene.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...Object) SceneBuilderOption {
	return func(s *scene) {
		s.add(objects...)
	}
}

// WithLights adds initial lights to the scene.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...Light) SceneBuilderOption {
	return func(s *scene) {
		for _, l := range lights {
			s.addLight(l)
		}
	}
}

// WithCamera sets the scene's camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam Camera) SceneBuilderOption {
	return func(s *scene) {
		s.camera = cam
	}
}

// WithColorFormat sets the format of the color target pipelines render into.
//
// Parameters:
//   - format: the color format
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithColorFormat(format wgpu.TextureFormat) SceneBuilderOption {
	return func(s *scene) {
		s.colorFormat = format
	}
}

// WithShaderResolver sets the resolver pipelines use to load shader source.
//
// Parameters:
//   - r: the shader resolver
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShaderResolver(r ShaderResolver) SceneBuilderOption {
	return func(s *scene) {
		s.shaders = r
	}
}

// WithTextureResolver sets the resolver pipelines use to load textures.
//
// Parameters:
//   - r: the texture resolver
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTextureResolver(r TextureResolver) SceneBuilderOption {
	return func(s *scene) {
		s.textures = r
	}
}
