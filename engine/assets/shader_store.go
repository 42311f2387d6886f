package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/assets/shaders"
	"github.com/Carmen-Shannon/oxy-render/engine/async"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// shaderStore is the implementation of the ShaderStore interface.
type shaderStore struct {
	mu *sync.RWMutex

	dir      string
	fsys     fs.FS
	fallback fs.FS
	log      *log.Logger

	cache     map[string]string
	callbacks []func(id string)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// ShaderStore resolves WGSL sources by identifier. Identifiers are paths relative to the
// store's directory; anything not found there falls back to the built-in shaders by file name.
type ShaderStore interface {
	scene.ShaderResolver

	// Source loads the source for id synchronously, from the cache when possible.
	//
	// Parameters:
	//   - id: the shader identifier
	//
	// Returns:
	//   - string: the WGSL source
	//   - error: an error wrapping ErrNotFound or ErrStoreClosed
	Source(id string) (string, error)

	// Invalidate drops the cached source for id so the next request reads it again.
	//
	// Parameters:
	//   - id: the shader identifier
	Invalidate(id string)

	// OnChange registers a callback run after a watched shader file is created or written.
	// Callbacks run on the watcher goroutine after the cache entry has been dropped.
	//
	// Parameters:
	//   - fn: receives the identifier of the changed shader
	OnChange(fn func(id string))

	// Watch starts watching the store's directory and its subdirectories for changes.
	//
	// Returns:
	//   - error: ErrNotWatchable if the store was not created with a directory, or the watcher error
	Watch() error

	// Close stops the watcher and fails all later requests with ErrStoreClosed.
	//
	// Returns:
	//   - error: an error if the watcher could not be closed
	Close() error
}

var _ ShaderStore = &shaderStore{}

// NewShaderStore creates a ShaderStore with the provided options applied. Without options
// it serves only the built-in shaders.
//
// Parameters:
//   - options: variadic list of ShaderStoreBuilderOption functions
//
// Returns:
//   - ShaderStore: the store
func NewShaderStore(options ...ShaderStoreBuilderOption) ShaderStore {
	s := &shaderStore{
		mu:       &sync.RWMutex{},
		fallback: shaders.FS,
		cache:    make(map[string]string),
	}
	for _, option := range options {
		option(s)
	}
	if s.log == nil {
		s.log = defaultLogger("shaders")
	}
	return s
}

func (s *shaderStore) Shader(id string) *async.Future[string] {
	key := normalizeID(id)

	s.mu.RLock()
	closed := s.closed
	src, ok := s.cache[key]
	s.mu.RUnlock()

	if closed {
		return async.Failed[string](fmt.Errorf("%w: shader %s", ErrStoreClosed, id))
	}
	if ok {
		return async.Ready(src)
	}
	return async.Go(func() (string, error) {
		return s.Source(id)
	})
}

func (s *shaderStore) Source(id string) (string, error) {
	key := normalizeID(id)

	s.mu.RLock()
	closed := s.closed
	src, ok := s.cache[key]
	s.mu.RUnlock()

	if closed {
		return "", fmt.Errorf("%w: shader %s", ErrStoreClosed, id)
	}
	if ok {
		return src, nil
	}

	src, err := s.read(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cache[key] = src
	s.mu.Unlock()
	s.log.Debug("shader loaded", "id", key, "bytes", len(src))
	return src, nil
}

// read looks key up in the store's file system first and then in the fallback by base name.
func (s *shaderStore) read(key string) (string, error) {
	if key == "" || !fs.ValidPath(key) {
		return "", fmt.Errorf("%w: invalid shader id %q", ErrNotFound, key)
	}
	if s.fsys != nil {
		data, err := fs.ReadFile(s.fsys, key)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read shader %s: %w", key, err)
		}
	}
	if s.fallback != nil {
		if data, err := fs.ReadFile(s.fallback, path.Base(key)); err == nil {
			return string(data), nil
		}
	}
	return "", fmt.Errorf("%w: shader %s", ErrNotFound, key)
}

func (s *shaderStore) Invalidate(id string) {
	key := normalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
}

func (s *shaderStore) OnChange(fn func(id string)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

func (s *shaderStore) Watch() error {
	if s.dir == "" {
		return ErrNotWatchable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create shader watcher: %w", err)
	}
	if err := watchRecursive(watcher, s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.watch(watcher, s.done)
	s.log.Info("watching shaders", "dir", s.dir)
	return nil
}

// watch drains watcher events until done is closed.
func (s *shaderStore) watch(watcher *fsnotify.Watcher, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(watcher, e)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("shader watcher error", "err", err)
		case <-done:
			return
		}
	}
}

func (s *shaderStore) handleEvent(watcher *fsnotify.Watcher, e fsnotify.Event) {
	if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := watchRecursive(watcher, e.Name); err != nil {
				s.log.Warn("failed to watch new directory", "dir", e.Name, "err", err)
			}
		}
		return
	}

	rel, err := filepath.Rel(s.dir, e.Name)
	if err != nil {
		return
	}
	id := normalizeID(filepath.ToSlash(rel))
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) && !e.Has(fsnotify.Remove) && !e.Has(fsnotify.Rename) {
		return
	}
	s.Invalidate(id)
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
		return
	}

	s.mu.RLock()
	callbacks := append([]func(string){}, s.callbacks...)
	s.mu.RUnlock()

	s.log.Debug("shader changed", "id", id, "op", e.Op)
	for _, fn := range callbacks {
		fn(id)
	}
}

// watchRecursive adds root and every directory below it to watcher.
func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

func (s *shaderStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	clear(s.cache)
	watcher, done := s.watcher, s.done
	s.watcher = nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(done)
	err := watcher.Close()
	s.wg.Wait()
	return err
}
