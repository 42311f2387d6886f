package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrEmptyMesh is returned when a model without vertices or indices is uploaded.
var ErrEmptyMesh = errors.New("model: empty mesh")

// model is the implementation of the Model interface.
type model struct {
	mu *sync.Mutex

	name           string
	vertices       []GPUVertex
	indices        []uint32
	boundingRadius float32

	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
}

// Model defines the interface for an indexed triangle mesh.
// A Model holds CPU-side geometry and, after Upload, the vertex and index buffers
// an object pipeline binds for its draw call.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices returns the CPU-side vertex data.
	//
	// Returns:
	//   - []GPUVertex: the vertices
	Vertices() []GPUVertex

	// Indices returns the CPU-side triangle indices.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// IndexCount returns the number of indices drawn for this mesh.
	//
	// Returns:
	//   - uint32: the index count
	IndexCount() uint32

	// BoundingRadius returns the radius of the bounding sphere centered at the model origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Upload creates the vertex and index buffers on the device. Uploading an already
	// uploaded model is a no-op.
	//
	// Parameters:
	//   - device: the device that allocates the buffers
	//
	// Returns:
	//   - error: ErrEmptyMesh for empty geometry, or the allocation error
	Upload(device gpu.Device) error

	// VertexBuffer returns the uploaded vertex buffer, or nil before Upload.
	//
	// Returns:
	//   - gpu.DeviceBuffer: the vertex buffer
	VertexBuffer() gpu.DeviceBuffer

	// IndexBuffer returns the uploaded index buffer, or nil before Upload.
	//
	// Returns:
	//   - gpu.DeviceBuffer: the index buffer
	IndexBuffer() gpu.DeviceBuffer

	// IndexFormat returns the format of the index buffer.
	//
	// Returns:
	//   - wgpu.IndexFormat: always wgpu.IndexFormatUint32
	IndexFormat() wgpu.IndexFormat

	// Release destroys the uploaded buffers. The model can be uploaded again afterwards.
	Release()
}

var _ Model = &model{}

// NewModel creates a new Model from the given options. The bounding radius is derived
// from the vertices unless set explicitly.
//
// Parameters:
//   - options: functional options to configure the model
//
// Returns:
//   - Model: the newly created model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{
		mu: &sync.Mutex{},
	}
	for _, option := range options {
		option(m)
	}
	if m.boundingRadius == 0 {
		for _, v := range m.vertices {
			m.boundingRadius = max(m.boundingRadius, mgl32.Vec3(v.Position).Len())
		}
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Vertices() []GPUVertex {
	return m.vertices
}

func (m *model) Indices() []uint32 {
	return m.indices
}

func (m *model) IndexCount() uint32 {
	return uint32(len(m.indices))
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) Upload(device gpu.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vertexBuffer != nil && m.indexBuffer != nil {
		return nil
	}
	if len(m.vertices) == 0 || len(m.indices) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyMesh, m.name)
	}

	vb, err := gpu.NewBuffer(device, m.name+"_vertices", MarshalVertices(m.vertices), wgpu.BufferUsageVertex)
	if err != nil {
		return fmt.Errorf("model %q: vertex buffer: %w", m.name, err)
	}
	ib, err := gpu.NewBuffer(device, m.name+"_indices", MarshalIndices(m.indices), wgpu.BufferUsageIndex)
	if err != nil {
		vb.Destroy()
		return fmt.Errorf("model %q: index buffer: %w", m.name, err)
	}
	m.vertexBuffer = vb
	m.indexBuffer = ib
	return nil
}

func (m *model) VertexBuffer() gpu.DeviceBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vertexBuffer == nil {
		return nil
	}
	return m.vertexBuffer.Handle()
}

func (m *model) IndexBuffer() gpu.DeviceBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexBuffer == nil {
		return nil
	}
	return m.indexBuffer.Handle()
}

func (m *model) IndexFormat() wgpu.IndexFormat {
	return wgpu.IndexFormatUint32
}

func (m *model) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Destroy()
		m.indexBuffer = nil
	}
}
