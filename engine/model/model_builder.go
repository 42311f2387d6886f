package model

// ModelBuilderOption is a function that configures a Model during construction.
type ModelBuilderOption func(*model)

// WithName sets the model identifier, also used as the label prefix of its GPU buffers.
//
// Parameters:
//   - name: the model name
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithVertices sets the vertex data of the model.
//
// Parameters:
//   - vertices: the vertices
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertex option
func WithVertices(vertices []GPUVertex) ModelBuilderOption {
	return func(m *model) {
		m.vertices = vertices
	}
}

// WithIndices sets the triangle indices of the model.
//
// Parameters:
//   - indices: the indices, three per triangle
//
// Returns:
//   - ModelBuilderOption: a function that applies the index option
func WithIndices(indices []uint32) ModelBuilderOption {
	return func(m *model) {
		m.indices = indices
	}
}

// WithBoundingRadius overrides the bounding radius derived from the vertices.
//
// Parameters:
//   - radius: the bounding sphere radius
//
// Returns:
//   - ModelBuilderOption: a function that applies the bounding radius option
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}
