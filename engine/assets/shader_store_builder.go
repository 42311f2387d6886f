package assets

import (
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
)

// ShaderStoreBuilderOption is a functional option for configuring a ShaderStore via NewShaderStore.
type ShaderStoreBuilderOption func(*shaderStore)

// WithShaderDir serves shaders from a directory on disk. Only a directory store can be watched.
//
// Parameters:
//   - dir: the shader directory
//
// Returns:
//   - ShaderStoreBuilderOption: a function that sets the shader directory
func WithShaderDir(dir string) ShaderStoreBuilderOption {
	return func(s *shaderStore) {
		s.dir = dir
		s.fsys = os.DirFS(dir)
	}
}

// WithShaderFS serves shaders from an arbitrary file system, such as an embed.FS.
//
// Parameters:
//   - fsys: the file system
//
// Returns:
//   - ShaderStoreBuilderOption: a function that sets the shader file system
func WithShaderFS(fsys fs.FS) ShaderStoreBuilderOption {
	return func(s *shaderStore) {
		s.dir = ""
		s.fsys = fsys
	}
}

// WithFallbackFS replaces the built-in shaders consulted when an id is not found. nil disables the fallback.
//
// Parameters:
//   - fsys: the fallback file system, looked up by file name
//
// Returns:
//   - ShaderStoreBuilderOption: a function that sets the fallback
func WithFallbackFS(fsys fs.FS) ShaderStoreBuilderOption {
	return func(s *shaderStore) {
		s.fallback = fsys
	}
}

// WithShaderLogger sets the logger the store reports loads and file changes to.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ShaderStoreBuilderOption: a function that sets the logger
func WithShaderLogger(l *log.Logger) ShaderStoreBuilderOption {
	return func(s *shaderStore) {
		s.log = l
	}
}
