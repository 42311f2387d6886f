package gpu

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// buffer is the implementation of the Buffer interface.
type buffer struct {
	mu     *sync.Mutex
	device Device
	handle DeviceBuffer
	label  string
	size   uint64
	usage  wgpu.BufferUsage
}

// Buffer owns exactly one device buffer and knows its committed size. It is created with its
// initial contents, updated in place with Write, and released with Destroy.
type Buffer interface {
	// Label returns the debug label of the buffer.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Size returns the committed size of the buffer in bytes. The size never changes over the
	// lifetime of a Buffer.
	//
	// Returns:
	//   - uint64: the buffer size in bytes
	Size() uint64

	// Usage returns the usage flags the buffer was allocated with.
	//
	// Returns:
	//   - wgpu.BufferUsage: the usage flags
	Usage() wgpu.BufferUsage

	// Handle returns the underlying device buffer for binding, or nil once destroyed.
	//
	// Returns:
	//   - DeviceBuffer: the device buffer
	Handle() DeviceBuffer

	// Write queues an in-place update of the buffer. The caller is not blocked.
	// Writing past Size or writing a destroyed buffer is a programming error and panics.
	//
	// Parameters:
	//   - offset: the destination offset in bytes
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the device rejected the write
	Write(offset uint64, data []byte) error

	// Destroy releases the device buffer. Calling Destroy more than once is a no-op.
	Destroy()

	// Destroyed reports whether Destroy has been called.
	//
	// Returns:
	//   - bool: true once the buffer has been destroyed
	Destroyed() bool
}

var _ Buffer = &buffer{}

// NewBuffer allocates a device buffer sized to data, rounded up to CopyAlignment, and uploads data
// into it. CopyDst is always added to usage so the buffer can be written afterwards.
//
// Parameters:
//   - device: the device to allocate from
//   - label: the debug label
//   - data: the initial contents; must not be empty
//   - usage: the usage flags of the buffer
//
// Returns:
//   - Buffer: the owning handle
//   - error: an error if the device could not allocate or upload the buffer
func NewBuffer(device Device, label string, data []byte, usage wgpu.BufferUsage) (Buffer, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s has no initial data", ErrInvalidBufferSize, label)
	}

	size := common.AlignUp(uint64(len(data)), CopyAlignment)
	usage |= wgpu.BufferUsageCopyDst

	handle, err := device.CreateBuffer(&BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate buffer %s (%d bytes): %w", label, size, err)
	}

	if err := device.WriteBuffer(handle, 0, padded(data, size)); err != nil {
		handle.Release()
		return nil, fmt.Errorf("failed to upload buffer %s: %w", label, err)
	}

	return &buffer{
		mu:     &sync.Mutex{},
		device: device,
		handle: handle,
		label:  label,
		size:   size,
		usage:  usage,
	}, nil
}

func (b *buffer) Label() string {
	return b.label
}

func (b *buffer) Size() uint64 {
	return b.size
}

func (b *buffer) Usage() wgpu.BufferUsage {
	return b.usage
}

func (b *buffer) Handle() DeviceBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

func (b *buffer) Write(offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle == nil {
		panic(fmt.Errorf("%w: write to %s", ErrBufferDestroyed, b.label))
	}
	if offset+uint64(len(data)) > b.size {
		panic(fmt.Sprintf("gpu: write of %d bytes at offset %d overflows buffer %s of %d bytes", len(data), offset, b.label, b.size))
	}
	if len(data) == 0 {
		return nil
	}
	return b.device.WriteBuffer(b.handle, offset, data)
}

func (b *buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle == nil {
		return
	}
	b.handle.Release()
	b.handle = nil
}

func (b *buffer) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle == nil
}

// padded returns data extended with zeros to size bytes, or data itself when no padding is needed.
func padded(data []byte, size uint64) []byte {
	if uint64(len(data)) == size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}
