package pipeline

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

// MaxLights is the fixed number of light records in the frame uniform.
const MaxLights = 10

// FrameUniformFloats is the number of floats in one packed frame uniform.
const FrameUniformFloats = 4 + 16 + 16 + MaxLights*8

// FrameUniformSize is the size in bytes of the frame uniform buffer.
const FrameUniformSize = FrameUniformFloats * common.Float32Size

// TransformStride is the size in bytes of one per-instance model matrix in the transform buffer.
const TransformStride = 16 * common.Float32Size

// GPUFrameUniformSource is the canonical WGSL definition of the FrameUniform and Light structs.
// Matches GPUFrameUniform layout exactly (464 bytes). Shaders pull it in with
// "//@oxy:include frame_uniform".
//
//go:embed assets/frame_uniform.wgsl
var GPUFrameUniformSource string

// GPULight is the GPU-aligned representation of one light record.
// Size: 32 bytes.
type GPULight struct {
	Position [4]float32 // offset  0: world-space position, w reserved
	Color    [4]float32 // offset 16: RGB color, w carries intensity
}

// GPUFrameUniform is the GPU-aligned representation of the per-frame uniform buffer.
// Matches the WGSL FrameUniform struct layout exactly (see GPUFrameUniformSource).
// Size: 464 bytes.
type GPUFrameUniform struct {
	Flags      [4]float32          // offset   0: diffuse, specular and normal presence (0 or 1), light count
	View       [16]float32         // offset  16: view matrix (mat4x4<f32>)
	Projection [16]float32         // offset  80: projection matrix (mat4x4<f32>)
	Lights     [MaxLights]GPULight // offset 144: light records, unused slots zeroed
}

// Size returns the size of the GPUFrameUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (464)
func (g *GPUFrameUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Floats flattens the uniform into its field order.
//
// Returns:
//   - []float32: FrameUniformFloats values
func (g *GPUFrameUniform) Floats() []float32 {
	out := make([]float32, 0, FrameUniformFloats)
	out = append(out, g.Flags[:]...)
	out = append(out, g.View[:]...)
	out = append(out, g.Projection[:]...)
	for i := range g.Lights {
		out = append(out, g.Lights[i].Position[:]...)
		out = append(out, g.Lights[i].Color[:]...)
	}
	return out
}

// Marshal serializes the GPUFrameUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameUniform) Marshal() []byte {
	return common.Float32sToBytes(g.Floats())
}

// Includes returns the WGSL snippets object shaders may include by name.
//
// Returns:
//   - map[string]string: include name to WGSL source
func Includes() map[string]string {
	return map[string]string{
		"frame_uniform": GPUFrameUniformSource,
		"vertex_input":  model.GPUVertexSource,
	}
}
