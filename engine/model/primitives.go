package model

// Cube creates an axis-aligned cube centered at the origin with one quad per face,
// so each face carries its own normal and a full 0..1 UV range.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Model: the cube model named "cube"
func Cube(size float32) Model {
	h := size / 2
	faces := []struct {
		normal  [3]float32
		corners [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}

	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		vertices = append(vertices, quad(f.corners, f.normal)...)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewModel(WithName("cube"), WithVertices(vertices), WithIndices(indices))
}

// Plane creates a square on the XZ plane centered at the origin, facing +Y.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Model: the plane model named "plane"
func Plane(size float32) Model {
	h := size / 2
	vertices := quad([4][3]float32{{-h, 0, h}, {h, 0, h}, {h, 0, -h}, {-h, 0, -h}}, [3]float32{0, 1, 0})
	return NewModel(WithName("plane"), WithVertices(vertices), WithIndices([]uint32{0, 1, 2, 0, 2, 3}))
}

// quad expands four counter-clockwise corners into vertices with a shared normal.
func quad(corners [4][3]float32, normal [3]float32) []GPUVertex {
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	out := make([]GPUVertex, 4)
	for i := range corners {
		out[i] = GPUVertex{Position: corners[i], Normal: normal, TexCoord: uvs[i]}
	}
	return out
}
