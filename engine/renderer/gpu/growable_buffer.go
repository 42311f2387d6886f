package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// growableBuffer is the implementation of the GrowableBuffer interface.
type growableBuffer struct {
	device        Device
	label         string
	usage         wgpu.BufferUsage
	current       Buffer
	requested     uint64
	reallocations int
}

// GrowableBuffer is a grow-only wrapper around a Buffer whose required size is only known at
// upload time. When an upload needs more bytes than the current capacity a new buffer of exactly
// the required size replaces the old one, which is destroyed only once the allocation succeeds; otherwise the data is written in place at offset 0
// and any trailing capacity is left untouched. Capacity never shrinks.
type GrowableBuffer interface {
	// Capacity returns the size of the current buffer in bytes, or 0 before the first upload.
	//
	// Returns:
	//   - uint64: the current capacity in bytes
	Capacity() uint64

	// Requested returns the size in bytes of the most recent upload.
	//
	// Returns:
	//   - uint64: the most recently requested size
	Requested() uint64

	// Reallocations returns how many times the buffer has been (re)created.
	//
	// Returns:
	//   - int: the allocation count
	Reallocations() int

	// Buffer returns the current buffer, or nil before the first upload.
	//
	// Returns:
	//   - Buffer: the current buffer
	Buffer() Buffer

	// Upload writes data at offset 0, growing the buffer first when len(data) exceeds Capacity.
	//
	// Parameters:
	//   - data: the bytes to upload
	//
	// Returns:
	//   - bool: true if the buffer was reallocated
	//   - error: an error if allocation or the write failed
	Upload(data []byte) (bool, error)

	// Destroy releases the current buffer. Calling Destroy more than once is a no-op.
	Destroy()
}

var _ GrowableBuffer = &growableBuffer{}

// NewGrowableBuffer creates an empty grow-only buffer. No device memory is allocated until the first Upload.
//
// Parameters:
//   - device: the device to allocate from
//   - label: the debug label used for every allocation
//   - usage: the usage flags of every allocation
//
// Returns:
//   - GrowableBuffer: the empty buffer
func NewGrowableBuffer(device Device, label string, usage wgpu.BufferUsage) GrowableBuffer {
	return &growableBuffer{
		device: device,
		label:  label,
		usage:  usage,
	}
}

func (g *growableBuffer) Capacity() uint64 {
	if g.current == nil {
		return 0
	}
	return g.current.Size()
}

func (g *growableBuffer) Requested() uint64 {
	return g.requested
}

func (g *growableBuffer) Reallocations() int {
	return g.reallocations
}

func (g *growableBuffer) Buffer() Buffer {
	return g.current
}

func (g *growableBuffer) Upload(data []byte) (bool, error) {
	needed := uint64(len(data))
	if needed == 0 {
		return false, nil
	}
	g.requested = needed

	if needed <= g.Capacity() {
		return false, g.current.Write(0, data)
	}

	buf, err := NewBuffer(g.device, g.label, data, g.usage)
	if err != nil {
		return false, fmt.Errorf("failed to grow %s to %d bytes: %w", g.label, needed, err)
	}
	if g.current != nil {
		g.current.Destroy()
	}
	g.current = buf
	g.reallocations++
	return true, nil
}

func (g *growableBuffer) Destroy() {
	if g.current == nil {
		return
	}
	g.current.Destroy()
	g.current = nil
}
