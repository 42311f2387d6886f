package game_object

import (
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject.
type GameObjectBuilderOption func(*gameObject)

// WithID sets an explicit object ID.
//
// Parameters:
//   - id: the object ID, non-zero
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithID(id uint64) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.id = id
	}
}

// WithEnabled sets whether the object starts enabled.
//
// Parameters:
//   - enabled: true to render the object
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.enabled.Store(enabled)
	}
}

// WithPipelineKey routes the object to the pipeline with the given key.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithPipelineKey(key string) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.pipelineKey = key
	}
}

// WithModel sets the model the object is drawn with.
//
// Parameters:
//   - m: the model
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.mdl = m
	}
}

// WithTexture assigns a texture identifier to a material slot.
//
// Parameters:
//   - slot: the material texture slot
//   - id: the texture identifier
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithTexture(slot scene.TextureSlot, id string) GameObjectBuilderOption {
	return func(g *gameObject) {
		if id != "" {
			g.textures[slot] = id
		}
	}
}

// WithPosition sets the initial world-space position.
//
// Parameters:
//   - x, y, z: position components
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.position = mgl32.Vec3{x, y, z}
	}
}

// WithScale sets the initial scale.
//
// Parameters:
//   - sx, sy, sz: scale components
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithScale(sx, sy, sz float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.scale = mgl32.Vec3{sx, sy, sz}
	}
}

// WithRotation sets the initial Euler rotation in radians.
//
// Parameters:
//   - rx, ry, rz: rotation angles
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithRotation(rx, ry, rz float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.rotation = mgl32.Vec3{rx, ry, rz}
	}
}

// WithRotationSpeed sets the rotation applied per second by Tick.
//
// Parameters:
//   - rx, ry, rz: angular speed in radians per second
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithRotationSpeed(rx, ry, rz float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.rotationSpeed = mgl32.Vec3{rx, ry, rz}
	}
}
