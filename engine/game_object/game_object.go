package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// nextID is an atomic counter used to assign object IDs.
var nextID atomic.Uint64

type gameObject struct {
	mu *sync.Mutex

	id          uint64
	enabled     atomic.Bool
	pipelineKey string
	mdl         model.Model
	textures    map[scene.TextureSlot]string

	position      mgl32.Vec3
	rotation      mgl32.Vec3
	rotationSpeed mgl32.Vec3
	scale         mgl32.Vec3
}

// GameObject defines the interface for a renderable scene entity.
// A GameObject is routed to the pipeline whose key matches PipelineKey and is
// drawn with its Model and material textures at its current transform.
type GameObject interface {
	scene.Object

	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetEnabled sets whether the object is rendered.
	//
	// Parameters:
	//   - enabled: true to render the object
	SetEnabled(enabled bool)

	// SetPipelineKey routes the object to a different pipeline.
	//
	// Parameters:
	//   - key: the pipeline key
	SetPipelineKey(key string)

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// SetModel replaces the object's model.
	//
	// Parameters:
	//   - m: the model
	SetModel(m model.Model)

	// SetTexture assigns a texture identifier to a material slot. An empty id clears the slot.
	//
	// Parameters:
	//   - slot: the material texture slot
	//   - id: the texture identifier
	SetTexture(slot scene.TextureSlot, id string)

	// Position returns the object's world-space position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// SetPosition sets the object's world-space position.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// Rotation returns the object's Euler rotation in radians (XYZ order).
	//
	// Returns:
	//   - rx, ry, rz: rotation angles
	Rotation() (rx, ry, rz float32)

	// SetRotation sets the object's Euler rotation in radians (XYZ order).
	//
	// Parameters:
	//   - rx, ry, rz: rotation angles
	SetRotation(rx, ry, rz float32)

	// RotationSpeed returns the rotation applied per second by Tick.
	//
	// Returns:
	//   - rx, ry, rz: angular speed in radians per second
	RotationSpeed() (rx, ry, rz float32)

	// SetRotationSpeed sets the rotation applied per second by Tick.
	//
	// Parameters:
	//   - rx, ry, rz: angular speed in radians per second
	SetRotationSpeed(rx, ry, rz float32)

	// Scale returns the object's scale factors.
	//
	// Returns:
	//   - sx, sy, sz: scale components
	Scale() (sx, sy, sz float32)

	// SetScale sets the object's scale factors.
	//
	// Parameters:
	//   - sx, sy, sz: scale components
	SetScale(sx, sy, sz float32)

	// Tick advances the rotation by RotationSpeed * dt.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Tick(dt float64)
}

var _ GameObject = &gameObject{}

// NewGameObject creates an enabled GameObject at the origin with unit scale.
// Objects without an explicit ID get the next value of a process-wide counter.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		mu:       &sync.Mutex{},
		textures: make(map[scene.TextureSlot]string),
		scale:    mgl32.Vec3{1, 1, 1},
	}
	g.enabled.Store(true)
	for _, option := range options {
		option(g)
	}
	if g.id == 0 {
		g.id = nextID.Add(1)
	}
	return g
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) PipelineKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pipelineKey
}

func (g *gameObject) SetPipelineKey(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pipelineKey = key
}

func (g *gameObject) Model() model.Model {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mdl
}

func (g *gameObject) SetModel(m model.Model) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mdl = m
}

func (g *gameObject) Mesh() scene.Mesh {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mdl == nil {
		return nil
	}
	return g.mdl
}

func (g *gameObject) Texture(slot scene.TextureSlot) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.textures[slot]
	return id, ok
}

func (g *gameObject) SetTexture(slot scene.TextureSlot, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id == "" {
		delete(g.textures, slot)
		return
	}
	g.textures[slot] = id
}

func (g *gameObject) Position() (x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position.Elem()
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = mgl32.Vec3{x, y, z}
}

func (g *gameObject) Rotation() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation.Elem()
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = mgl32.Vec3{rx, ry, rz}
}

func (g *gameObject) RotationSpeed() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotationSpeed.Elem()
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = mgl32.Vec3{rx, ry, rz}
}

func (g *gameObject) Scale() (sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale.Elem()
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = mgl32.Vec3{sx, sy, sz}
}

func (g *gameObject) Tick(dt float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = g.rotation.Add(g.rotationSpeed.Mul(float32(dt)))
}

// ModelMatrix composes translation * rotation * scale.
func (g *gameObject) ModelMatrix() [16]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := mgl32.Translate3D(g.position.Elem())
	r := mgl32.AnglesToQuat(g.rotation.X(), g.rotation.Y(), g.rotation.Z(), mgl32.XYZ).Mat4()
	s := mgl32.Scale3D(g.scale.Elem())
	return t.Mul4(r).Mul4(s)
}
