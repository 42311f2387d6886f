package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/async"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureSlot identifies one of the material textures an Object can carry.
type TextureSlot int

const (
	// TextureDiffuse is the base color texture.
	TextureDiffuse TextureSlot = iota

	// TextureSpecular is the specular intensity texture.
	TextureSpecular

	// TextureNormal is the tangent-space normal map.
	TextureNormal
)

// TextureSlots lists every TextureSlot in binding order.
var TextureSlots = [...]TextureSlot{TextureDiffuse, TextureSpecular, TextureNormal}

func (t TextureSlot) String() string {
	switch t {
	case TextureDiffuse:
		return "diffuse"
	case TextureSpecular:
		return "specular"
	case TextureNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Mesh is the vertex and index data an Object is drawn with.
type Mesh interface {
	// VertexBuffer returns the vertex buffer, or nil if the mesh is not uploaded.
	VertexBuffer() gpu.DeviceBuffer

	// IndexBuffer returns the index buffer, or nil if the mesh is not uploaded.
	IndexBuffer() gpu.DeviceBuffer

	// IndexFormat returns the format of the index buffer.
	IndexFormat() wgpu.IndexFormat

	// IndexCount returns the number of indices to draw.
	IndexCount() uint32
}

// Object is a renderable scene entity routed to a pipeline by its pipeline key.
type Object interface {
	// Enabled reports whether the object should be rendered.
	//
	// Returns:
	//   - bool: true if the object is rendered
	Enabled() bool

	// PipelineKey returns the key of the pipeline that renders this object.
	//
	// Returns:
	//   - string: the routing key
	PipelineKey() string

	// ModelMatrix returns the object's model-to-world transform (column-major).
	//
	// Returns:
	//   - [16]float32: the model matrix
	ModelMatrix() [16]float32

	// Texture returns the identifier of the texture in slot, and whether the object has one.
	//
	// Parameters:
	//   - slot: the material texture slot
	//
	// Returns:
	//   - string: the texture identifier
	//   - bool: true if the object carries a texture in slot
	Texture(slot TextureSlot) (string, bool)

	// Mesh returns the mesh the object is drawn with, or nil.
	//
	// Returns:
	//   - Mesh: the mesh
	Mesh() Mesh
}

// Camera supplies the view and projection matrices for a frame.
type Camera interface {
	// ViewMatrix returns the 4x4 view matrix (column-major).
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the 4x4 projection matrix (column-major).
	ProjectionMatrix() [16]float32
}

// Light is a point light packed into the per-frame uniform.
type Light interface {
	// Position returns the world-space position; the fourth channel is reserved.
	Position() [4]float32

	// Color returns the RGB color.
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier.
	Intensity() float32

	// Enabled reports whether the light contributes to rendering.
	Enabled() bool
}

// ShaderResolver resolves shader identifiers to WGSL source.
type ShaderResolver interface {
	// Shader starts resolving the source of the shader named id.
	//
	// Parameters:
	//   - id: the shader identifier, usually a file path
	//
	// Returns:
	//   - *async.Future[string]: resolves to the WGSL source or fails if id is unresolvable
	Shader(id string) *async.Future[string]
}

// TextureResolver resolves texture identifiers to device texture views.
type TextureResolver interface {
	// Texture starts resolving the texture named id. An empty id resolves to a placeholder.
	//
	// Parameters:
	//   - id: the texture identifier, usually a file path
	//
	// Returns:
	//   - *async.Future[gpu.TextureView]: resolves to the view or fails if the texture cannot be loaded
	Texture(id string) *async.Future[gpu.TextureView]
}

type scene struct {
	mu *sync.RWMutex

	name        string
	objects     []Object
	lights      []Light
	camera      Camera
	colorTarget gpu.TextureView
	depthTarget gpu.TextureView
	colorFormat wgpu.TextureFormat
	shaders     ShaderResolver
	textures    TextureResolver
}

// Scene is the per-frame context handed to every pipeline: the object collection,
// camera, lights, current render targets and the resolvers used to load shaders and textures.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Objects returns a snapshot of the enabled objects in insertion order.
	//
	// Returns:
	//   - []Object: the enabled objects
	Objects() []Object

	// Count returns the number of objects in the scene, enabled or not.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Add appends objects to the scene. Objects already present are not added twice.
	//
	// Parameters:
	//   - objects: the objects to add
	Add(objects ...Object)

	// Remove removes an object from the scene.
	//
	// Parameters:
	//   - obj: the object to remove
	//
	// Returns:
	//   - bool: true if the object was present
	Remove(obj Object) bool

	// Clear removes all objects from the scene. Lights and camera are kept.
	Clear()

	// Camera returns the scene's camera, or nil.
	Camera() Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam Camera)

	// Lights returns a snapshot of the enabled lights in insertion order.
	//
	// Returns:
	//   - []Light: the enabled lights
	Lights() []Light

	// AddLight adds a light to the scene. Adding a light twice is a no-op.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l Light)

	// RemoveLight removes a light from the scene.
	//
	// Parameters:
	//   - l: the light to remove
	RemoveLight(l Light)

	// ColorTarget returns the color attachment for the current frame, or nil between frames.
	ColorTarget() gpu.TextureView

	// DepthTarget returns the depth attachment for the current frame, or nil between frames.
	DepthTarget() gpu.TextureView

	// SetTargets sets the render targets for the current frame. Pass nils to clear them.
	//
	// Parameters:
	//   - color: the color attachment view
	//   - depth: the depth attachment view
	SetTargets(color, depth gpu.TextureView)

	// ColorFormat returns the format of the color target pipelines must render into.
	ColorFormat() wgpu.TextureFormat

	// SetColorFormat sets the color target format.
	//
	// Parameters:
	//   - format: the color format
	SetColorFormat(format wgpu.TextureFormat)

	// Shaders returns the shader resolver, or nil.
	Shaders() ShaderResolver

	// Textures returns the texture resolver, or nil.
	Textures() TextureResolver

	// Tick advances every object that animates itself by dt seconds.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Tick(dt float64)
}

var _ Scene = &scene{}

// NewScene creates an empty Scene. The color format defaults to BGRA8UnormSrgb.
//
// Parameters:
//   - name: the scene identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:          &sync.RWMutex{},
		name:        name,
		colorFormat: wgpu.TextureFormatBGRA8UnormSrgb,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Objects() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Object, 0, len(s.objects))
	for _, obj := range s.objects {
		if obj.Enabled() {
			out = append(out, obj)
		}
	}
	return out
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *scene) Add(objects ...Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(objects...)
}

func (s *scene) add(objects ...Object) {
	for _, obj := range objects {
		if obj == nil || slices.Contains(s.objects, obj) {
			continue
		}
		s.objects = append(s.objects, obj)
	}
}

func (s *scene) Remove(obj Object) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.objects, obj)
	if i < 0 {
		return false
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	return true
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
}

func (s *scene) Camera() Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.camera
}

func (s *scene) SetCamera(cam Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) Lights() []Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Light, 0, len(s.lights))
	for _, l := range s.lights {
		if l.Enabled() {
			out = append(out, l)
		}
	}
	return out
}

func (s *scene) AddLight(l Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLight(l)
}

func (s *scene) addLight(l Light) {
	if l == nil || slices.Contains(s.lights, l) {
		return
	}
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.lights, l); i >= 0 {
		s.lights = slices.Delete(s.lights, i, i+1)
	}
}

func (s *scene) ColorTarget() gpu.TextureView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.colorTarget
}

func (s *scene) DepthTarget() gpu.TextureView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depthTarget
}

func (s *scene) SetTargets(color, depth gpu.TextureView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colorTarget = color
	s.depthTarget = depth
}

func (s *scene) ColorFormat() wgpu.TextureFormat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.colorFormat
}

func (s *scene) SetColorFormat(format wgpu.TextureFormat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colorFormat = format
}

func (s *scene) Shaders() ShaderResolver {
	return s.shaders
}

func (s *scene) Textures() TextureResolver {
	return s.textures
}

func (s *scene) Tick(dt float64) {
	type ticker interface{ Tick(dt float64) }
	for _, obj := range s.Objects() {
		if t, ok := obj.(ticker); ok {
			t.Tick(dt)
		}
	}
}
