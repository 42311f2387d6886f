package pipeline

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// TextureFlags records which material textures the drawn objects carry, in
// diffuse, specular, normal order.
type TextureFlags [3]bool

func boolFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// PackFrameUniform builds the per-frame uniform from the texture presence flags, camera and lights.
// At most MaxLights lights are packed; the rest are dropped and the light count is clamped.
// A nil camera packs identity matrices.
//
// Parameters:
//   - flags: texture presence of the representative object
//   - cam: the scene camera
//   - lights: the active lights in scene order
//
// Returns:
//   - GPUFrameUniform: the packed uniform
func PackFrameUniform(flags TextureFlags, cam scene.Camera, lights []scene.Light) GPUFrameUniform {
	n := min(len(lights), MaxLights)

	u := GPUFrameUniform{
		Flags:      [4]float32{boolFloat(flags[0]), boolFloat(flags[1]), boolFloat(flags[2]), float32(n)},
		View:       common.Identity(),
		Projection: common.Identity(),
	}
	if cam != nil {
		u.View = cam.ViewMatrix()
		u.Projection = cam.ProjectionMatrix()
	}
	for i, l := range lights[:n] {
		c := l.Color()
		u.Lights[i] = GPULight{
			Position: l.Position(),
			Color:    [4]float32{c[0], c[1], c[2], l.Intensity()},
		}
	}
	return u
}

// PackTransforms concatenates the model matrices of objects in order. Instance i of the
// draw reads matrix i.
//
// Parameters:
//   - objects: the selected objects
//
// Returns:
//   - []float32: 16 floats per object
func PackTransforms(objects []scene.Object) []float32 {
	out := make([]float32, 0, len(objects)*16)
	for _, obj := range objects {
		m := obj.ModelMatrix()
		out = append(out, m[:]...)
	}
	return out
}
