package assets

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/async"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// PlaceholderID is the identifier of the 1x1 opaque white texture bound to empty material slots.
const PlaceholderID = ""

// textureStore is the implementation of the TextureStore interface.
type textureStore struct {
	mu *sync.Mutex

	device  gpu.Device
	dir     string
	format  wgpu.TextureFormat
	workers int
	pool    worker.DynamicWorkerPool
	log     *log.Logger

	cache    map[string]*textureLoad
	nextTask int
	closed   bool
}

// textureLoad is one cached or in-flight load.
type textureLoad struct {
	once   sync.Once
	key    string
	taskID int
	future *async.Future[gpu.TextureView]
}

// TextureStore decodes image files on a worker pool, uploads them through the device and
// caches the resulting views by identifier. Concurrent requests for the same identifier share
// one load; failed loads are not cached.
type TextureStore interface {
	scene.TextureResolver

	// Loaded returns the number of identifiers with a cached or in-flight load.
	//
	// Returns:
	//   - int: the cache size
	Loaded() int

	// Close waits for in-flight loads, releases every cached view and stops the worker pool.
	Close()
}

var _ TextureStore = &textureStore{}

// NewTextureStore creates a TextureStore that uploads through device, with the provided options applied.
//
// Parameters:
//   - device: the device textures are created on
//   - options: variadic list of TextureStoreBuilderOption functions
//
// Returns:
//   - TextureStore: the store
func NewTextureStore(device gpu.Device, options ...TextureStoreBuilderOption) TextureStore {
	s := &textureStore{
		mu:      &sync.Mutex{},
		device:  device,
		format:  wgpu.TextureFormatRGBA8UnormSrgb,
		workers: 4,
		cache:   make(map[string]*textureLoad),
	}
	for _, option := range options {
		option(s)
	}
	if s.log == nil {
		s.log = defaultLogger("textures")
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, 64, 1*time.Second)
	return s
}

func (s *textureStore) Texture(id string) *async.Future[gpu.TextureView] {
	key := normalizeID(id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return async.Failed[gpu.TextureView](fmt.Errorf("%w: texture %s", ErrStoreClosed, id))
	}
	l, ok := s.cache[key]
	if !ok {
		l = &textureLoad{key: key, taskID: s.nextTask}
		s.nextTask++
		s.cache[key] = l
	}
	s.mu.Unlock()
	return s.start(l)
}

// start submits the load for l once; later callers share its future.
func (s *textureStore) start(l *textureLoad) *async.Future[gpu.TextureView] {
	l.once.Do(func() {
		l.future = async.Submit(s.pool, l.taskID, func() (gpu.TextureView, error) {
			view, err := s.load(l.key)
			if err != nil {
				s.forget(l)
				s.log.Warn("texture load failed", "id", l.key, "err", err)
			}
			return view, err
		})
	})
	return l.future
}

// load decodes and uploads the texture for key. The placeholder needs no file.
func (s *textureStore) load(key string) (gpu.TextureView, error) {
	if s.device == nil {
		return nil, gpu.ErrNilDevice
	}

	label := "placeholder"
	data := common.SolidColor(255, 255, 255, 255)
	if key != PlaceholderID {
		label = key
		p := filepath.Join(s.dir, filepath.FromSlash(key))
		var err error
		data, err = common.DecodeImageFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: texture %s: %w", ErrNotFound, key, err)
		}
	}

	view, err := s.device.CreateTexture(&gpu.TextureDescriptor{
		Label:  label,
		Width:  data.Width,
		Height: data.Height,
		Format: s.format,
		Usage:  wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Pixels: data.Pixels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload texture %s: %w", label, err)
	}
	s.log.Debug("texture loaded", "id", label, "width", data.Width, "height", data.Height)
	return view, nil
}

// forget drops a failed load so the next request retries it.
func (s *textureStore) forget(l *textureLoad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache[l.key] == l {
		delete(s.cache, l.key)
	}
}

func (s *textureStore) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *textureStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := make([]*textureLoad, 0, len(s.cache))
	for _, l := range s.cache {
		pending = append(pending, l)
	}
	clear(s.cache)
	s.mu.Unlock()

	for _, l := range pending {
		if view, err := s.start(l).Await(); err == nil && view != nil {
			view.Release()
		}
	}
	s.pool.Stop()
}
