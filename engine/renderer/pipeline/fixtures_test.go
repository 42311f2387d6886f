package pipeline_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/assets/shaders"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/async"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

const defaultShaderID = "shaders/default_3d.wgsl"

var errNotFound = errors.New("not found")

// shaderSources resolves shader ids from an in-memory map.
type shaderSources map[string]string

func (s shaderSources) Shader(id string) *async.Future[string] {
	src, ok := s[id]
	if !ok {
		return async.Failed[string](fmt.Errorf("%s: %w", id, errNotFound))
	}
	return async.Ready(src)
}

func defaultShaders(t *testing.T) shaderSources {
	t.Helper()
	src, err := shaders.FS.ReadFile(shaders.Default)
	if err != nil {
		t.Fatalf("read %s: %v", shaders.Default, err)
	}
	return shaderSources{defaultShaderID: string(src)}
}

// textureStore creates a texture per requested id and records every request.
type textureStore struct {
	mu        sync.Mutex
	device    gpu.Device
	requested []string
	fail      map[string]bool
}

func (s *textureStore) Texture(id string) *async.Future[gpu.TextureView] {
	s.mu.Lock()
	s.requested = append(s.requested, id)
	fail := s.fail[id]
	s.mu.Unlock()

	if fail {
		return async.Failed[gpu.TextureView](fmt.Errorf("%s: %w", id, errNotFound))
	}
	label := id
	if label == "" {
		label = "placeholder"
	}
	view, err := s.device.CreateTexture(&gpu.TextureDescriptor{
		Label:  label,
		Width:  1,
		Height: 1,
		Format: wgpu.TextureFormatRGBA8UnormSrgb,
		Usage:  wgpu.TextureUsageTextureBinding,
		Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return async.Failed[gpu.TextureView](err)
	}
	return async.Ready(view)
}

func (s *textureStore) Requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requested...)
}

type fixture struct {
	device   *gputest.Device
	scene    scene.Scene
	textures *textureStore
	cube     model.Model
}

func newFixture(t *testing.T, sources shaderSources) *fixture {
	t.Helper()
	dev := gputest.NewDevice()
	textures := &textureStore{device: dev, fail: map[string]bool{}}
	s := scene.NewScene("test",
		scene.WithShaderResolver(sources),
		scene.WithTextureResolver(textures),
	)

	color, err := dev.CreateTexture(&gpu.TextureDescriptor{Label: "color", Width: 4, Height: 4, Format: s.ColorFormat()})
	if err != nil {
		t.Fatalf("color target: %v", err)
	}
	depth, err := dev.CreateTexture(&gpu.TextureDescriptor{Label: "depth", Width: 4, Height: 4, Format: gpu.DepthFormat})
	if err != nil {
		t.Fatalf("depth target: %v", err)
	}
	s.SetTargets(color, depth)

	cube := model.Cube(1)
	if err := cube.Upload(dev); err != nil {
		t.Fatalf("upload cube: %v", err)
	}
	return &fixture{device: dev, scene: s, textures: textures, cube: cube}
}

// addObjects adds n cubes routed to key, placed one unit apart on X.
func (f *fixture) addObjects(key string, n int, options ...game_object.GameObjectBuilderOption) []game_object.GameObject {
	out := make([]game_object.GameObject, 0, n)
	for i := 0; i < n; i++ {
		opts := append([]game_object.GameObjectBuilderOption{
			game_object.WithPipelineKey(key),
			game_object.WithModel(f.cube),
			game_object.WithPosition(float32(f.scene.Count()), 0, 0),
		}, options...)
		obj := game_object.NewGameObject(opts...)
		f.scene.Add(obj)
		out = append(out, obj)
	}
	return out
}

func (f *fixture) buffer(t *testing.T, label string) *gputest.Buffer {
	t.Helper()
	var live *gputest.Buffer
	for _, b := range f.device.BuffersLabeled(label) {
		if !b.Released {
			live = b
		}
	}
	if live == nil {
		t.Fatalf("no live buffer labeled %q", label)
	}
	return live
}

func (f *fixture) uniformFloats(t *testing.T) []float32 {
	t.Helper()
	return common.BytesToFloat32s(f.buffer(t, "default_object:default_3d_frame_uniform").Data)
}
