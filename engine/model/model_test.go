package model

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestGPUVertexLayout(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0.5, 1}}
	if v.Size() != 32 {
		t.Fatalf("Size() = %d, want 32", v.Size())
	}
	buf := v.Marshal()
	if len(buf) != 32 {
		t.Fatalf("len(Marshal()) = %d, want 32", len(buf))
	}
	layout := VertexBufferLayout()
	if layout.ArrayStride != uint64(v.Size()) {
		t.Errorf("ArrayStride = %d, want %d", layout.ArrayStride, v.Size())
	}
	if got := MarshalVertices([]GPUVertex{v, v}); string(got[32:]) != string(buf) {
		t.Error("MarshalVertices() second vertex differs from Marshal()")
	}
	if got := MarshalIndices([]uint32{1, 258}); len(got) != 8 || got[4] != 2 || got[5] != 1 {
		t.Errorf("MarshalIndices() = %v", got)
	}
}

func TestPrimitives(t *testing.T) {
	tests := []struct {
		name     string
		m        Model
		vertices int
		indices  uint32
		radius   float64
	}{
		{"cube", Cube(2), 24, 36, math.Sqrt(3)},
		{"plane", Plane(2), 4, 6, math.Sqrt(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.m.Vertices()) != tt.vertices || tt.m.IndexCount() != tt.indices {
				t.Errorf("got %d vertices %d indices, want %d %d", len(tt.m.Vertices()), tt.m.IndexCount(), tt.vertices, tt.indices)
			}
			if math.Abs(float64(tt.m.BoundingRadius())-tt.radius) > 1e-5 {
				t.Errorf("BoundingRadius() = %v, want %v", tt.m.BoundingRadius(), tt.radius)
			}
			for _, idx := range tt.m.Indices() {
				if int(idx) >= tt.vertices {
					t.Fatalf("index %d out of range", idx)
				}
			}
		})
	}
}

func TestUploadCreatesBuffers(t *testing.T) {
	dev := gputest.NewDevice()
	m := Cube(1)
	if m.VertexBuffer() != nil || m.IndexBuffer() != nil {
		t.Fatal("buffers present before Upload")
	}
	if err := m.Upload(dev); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if err := m.Upload(dev); err != nil {
		t.Fatalf("second Upload() error = %v", err)
	}
	if got := len(dev.Buffers()); got != 2 {
		t.Fatalf("buffers created = %d, want 2", got)
	}
	if m.VertexBuffer().Size() != 24*32 || m.IndexBuffer().Size() != 36*4 {
		t.Errorf("sizes = %d/%d", m.VertexBuffer().Size(), m.IndexBuffer().Size())
	}
	if dev.Buffers()[0].Desc.Usage&wgpu.BufferUsageVertex == 0 || dev.Buffers()[1].Desc.Usage&wgpu.BufferUsageIndex == 0 {
		t.Error("buffer usages missing vertex/index flags")
	}

	m.Release()
	if m.VertexBuffer() != nil || len(dev.LiveBuffers()) != 0 {
		t.Error("Release() left buffers alive")
	}
}

func TestUploadErrors(t *testing.T) {
	if err := NewModel(WithName("empty")).Upload(gputest.NewDevice()); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("Upload() error = %v, want ErrEmptyMesh", err)
	}

	dev := gputest.NewDevice()
	boom := errors.New("out of memory")
	dev.FailOn(gputest.OpCreateBuffer, boom)
	if err := Plane(1).Upload(dev); !errors.Is(err, boom) {
		t.Errorf("Upload() error = %v, want %v", err, boom)
	}
	if err := Plane(1).Upload(nil); !errors.Is(err, gpu.ErrNilDevice) {
		t.Errorf("Upload(nil) error = %v, want ErrNilDevice", err)
	}
}
