package common

import (
	"encoding/binary"
	"math"
)

// Float32Size is the size in bytes of a single float32 as laid out in GPU memory.
const Float32Size = 4

// Identity returns a 4x4 identity matrix in column-major order.
//
// Returns:
//   - [16]float32: the identity matrix
func Identity() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// PutFloat32s writes the given floats into dst in little-endian order, starting at offset 0.
// dst must be at least len(src)*Float32Size bytes long.
//
// Parameters:
//   - dst: destination byte slice
//   - src: the floats to serialize
//
// Returns:
//   - int: the number of bytes written
func PutFloat32s(dst []byte, src []float32) int {
	for i, f := range src {
		binary.LittleEndian.PutUint32(dst[i*Float32Size:], math.Float32bits(f))
	}
	return len(src) * Float32Size
}

// Float32sToBytes serializes a float slice into a freshly allocated little-endian byte slice
// suitable for GPU buffer uploads.
//
// Parameters:
//   - src: the floats to serialize
//
// Returns:
//   - []byte: the serialized bytes, or nil if src is empty
func Float32sToBytes(src []float32) []byte {
	if len(src) == 0 {
		return nil
	}
	buf := make([]byte, len(src)*Float32Size)
	PutFloat32s(buf, src)
	return buf
}

// BytesToFloat32s decodes a little-endian byte slice back into floats. Trailing bytes that
// do not form a whole float are ignored.
//
// Parameters:
//   - src: the bytes to decode
//
// Returns:
//   - []float32: the decoded floats
func BytesToFloat32s(src []byte) []float32 {
	out := make([]float32, len(src)/Float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*Float32Size:]))
	}
	return out
}

// AlignUp rounds n up to the next multiple of alignment. An alignment of zero returns n unchanged.
//
// Parameters:
//   - n: the value to round
//   - alignment: the alignment boundary
//
// Returns:
//   - uint64: n rounded up to a multiple of alignment
func AlignUp(n, alignment uint64) uint64 {
	if alignment == 0 {
		return n
	}
	return (n + alignment - 1) / alignment * alignment
}
