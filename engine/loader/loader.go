// Package loader imports glTF 2.0 (.gltf and .glb) files as static meshes for object pipelines.
package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/async"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/charmbracelet/log"
)

// ErrUnsupportedFormat is returned for files that are neither .gltf nor .glb.
var ErrUnsupportedFormat = errors.New("loader: unsupported model format")

// Asset is an imported model together with the texture identifiers its material references.
// Texture identifiers are slash paths relative to the loader root.
type Asset struct {
	Model    model.Model
	Textures map[scene.TextureSlot]string
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	fsys  fs.FS
	log   *log.Logger
	cache map[string]Asset
}

// Loader imports model files and caches the result by identifier.
type Loader interface {
	// Load imports the model at id, a slash path relative to the loader root.
	// A cached asset is returned without touching the file system.
	//
	// Parameters:
	//   - id: the model identifier, ending in .gltf or .glb
	//
	// Returns:
	//   - Asset: the imported model and its texture identifiers
	//   - error: ErrUnsupportedFormat, or the read or parse error
	Load(id string) (Asset, error)

	// LoadAsync runs Load on its own goroutine.
	//
	// Parameters:
	//   - id: the model identifier
	//
	// Returns:
	//   - *async.Future[Asset]: settles with the Load result
	LoadAsync(id string) *async.Future[Asset]

	// UploadAsync loads the model on its own goroutine and uploads it to device once loaded.
	//
	// Parameters:
	//   - id: the model identifier
	//   - device: the device the vertex and index buffers are created on
	//
	// Returns:
	//   - *async.Future[Asset]: settles with the uploaded asset, or the load or upload error
	UploadAsync(id string, device gpu.Device) *async.Future[Asset]

	// LoadReader imports a model from r and caches it under name.
	// External buffers and images are resolved relative to the loader root.
	//
	// Parameters:
	//   - name: the cache key and model name
	//   - r: glTF JSON or GLB bytes
	//
	// Returns:
	//   - Asset: the imported model
	//   - error: the read or parse error
	LoadReader(name string, r io.Reader) (Asset, error)

	// Evict drops a cached asset and releases its uploaded buffers.
	//
	// Parameters:
	//   - id: the model identifier
	//
	// Returns:
	//   - bool: true if the asset was cached
	Evict(id string) bool

	// Release drops every cached asset and releases their uploaded buffers.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a Loader rooted at the current directory unless configured otherwise.
//
// Parameters:
//   - options: functional options for the loader
//
// Returns:
//   - Loader: the new loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		fsys:  os.DirFS("."),
		cache: make(map[string]Asset),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.With("component", "loader")
	}
	return l
}

func (l *loader) Load(id string) (Asset, error) {
	key := normalizeID(id)
	if a, ok := l.cached(key); ok {
		return a, nil
	}

	switch strings.ToLower(path.Ext(key)) {
	case ".gltf", ".glb":
	default:
		return Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, id)
	}
	data, err := fs.ReadFile(l.fsys, key)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return l.importBytes(key, path.Dir(key), data)
}

func (l *loader) LoadAsync(id string) *async.Future[Asset] {
	return async.Go(func() (Asset, error) {
		return l.Load(id)
	})
}

func (l *loader) UploadAsync(id string, device gpu.Device) *async.Future[Asset] {
	return async.Then(l.LoadAsync(id), func(a Asset) (Asset, error) {
		if err := a.Model.Upload(device); err != nil {
			return Asset{}, fmt.Errorf("failed to upload %s: %w", id, err)
		}
		return a, nil
	})
}

func (l *loader) LoadReader(name string, r io.Reader) (Asset, error) {
	key := normalizeID(name)
	if a, ok := l.cached(key); ok {
		return a, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return l.importBytes(key, ".", data)
}

func (l *loader) importBytes(key, baseDir string, data []byte) (Asset, error) {
	p := newGLTFParser(l.fsys, baseDir)
	if err := p.parse(data); err != nil {
		return Asset{}, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	vertices, indices, err := extractMesh(p)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to extract mesh from %s: %w", key, err)
	}

	a := Asset{
		Model: model.NewModel(
			model.WithName(strings.TrimSuffix(path.Base(key), path.Ext(key))),
			model.WithVertices(vertices),
			model.WithIndices(indices),
		),
		Textures: extractTextures(p),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.cache[key]; ok {
		return existing, nil
	}
	l.cache[key] = a
	l.log.Debug("model imported", "id", key, "vertices", len(vertices), "indices", len(indices))
	return a, nil
}

// normalizeID converts an identifier to a clean slash path.
func normalizeID(id string) string {
	return path.Clean(strings.ReplaceAll(strings.TrimSpace(id), "\\", "/"))
}

func (l *loader) cached(key string) (Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.cache[key]
	return a, ok
}

func (l *loader) Evict(id string) bool {
	key := normalizeID(id)
	l.mu.Lock()
	a, ok := l.cache[key]
	delete(l.cache, key)
	l.mu.Unlock()

	if ok {
		a.Model.Release()
	}
	return ok
}

func (l *loader) Release() {
	l.mu.Lock()
	cache := l.cache
	l.cache = make(map[string]Asset)
	l.mu.Unlock()

	for _, a := range cache {
		a.Model.Release()
	}
}
