package loader

import (
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
)

// LoaderBuilderOption is a functional option for configuring a Loader.
type LoaderBuilderOption func(*loader)

// WithDir roots the loader at a directory on disk.
//
// Parameters:
//   - dir: the directory model identifiers are relative to
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = os.DirFS(dir)
	}
}

// WithFS roots the loader at an arbitrary file system, such as an embed.FS.
//
// Parameters:
//   - fsys: the file system model identifiers are relative to
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = fsys
	}
}

// WithLogger sets the loader's logger.
//
// Parameters:
//   - lg: the logger
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLogger(lg *log.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.log = lg
	}
}
