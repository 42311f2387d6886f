package assets

import (
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStoreBuilderOption is a functional option for configuring a TextureStore via NewTextureStore.
type TextureStoreBuilderOption func(*textureStore)

// WithTextureDir resolves texture identifiers against dir instead of the working directory.
//
// Parameters:
//   - dir: the texture directory
//
// Returns:
//   - TextureStoreBuilderOption: a function that sets the texture directory
func WithTextureDir(dir string) TextureStoreBuilderOption {
	return func(s *textureStore) {
		s.dir = dir
	}
}

// WithWorkers sets how many textures decode concurrently. Defaults to 4.
//
// Parameters:
//   - n: the worker count, values below 1 are ignored
//
// Returns:
//   - TextureStoreBuilderOption: a function that sets the worker count
func WithWorkers(n int) TextureStoreBuilderOption {
	return func(s *textureStore) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTextureFormat sets the format textures are uploaded in. Defaults to RGBA8UnormSrgb.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - TextureStoreBuilderOption: a function that sets the format
func WithTextureFormat(format wgpu.TextureFormat) TextureStoreBuilderOption {
	return func(s *textureStore) {
		s.format = format
	}
}

// WithTextureLogger sets the logger the store reports loads and failures to.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - TextureStoreBuilderOption: a function that sets the logger
func WithTextureLogger(l *log.Logger) TextureStoreBuilderOption {
	return func(s *textureStore) {
		s.log = l
	}
}
