package gputest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is a recording gpu.Surface.
type Surface struct {
	mu       sync.Mutex
	device   *Device
	format   wgpu.TextureFormat
	width    int
	height   int
	held     *Resource
	acquired int
	presents int
}

var _ gpu.Surface = &Surface{}

// NewSurface returns a surface of the given format whose acquire failures are injected through device.
func NewSurface(device *Device, format wgpu.TextureFormat) *Surface {
	return &Surface{device: device, format: format}
}

func (s *Surface) Format() wgpu.TextureFormat { return s.format }

func (s *Surface) Configure(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

func (s *Surface) AcquireTexture() (gpu.TextureView, error) {
	if err := s.device.failure(OpAcquireTexture); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held != nil {
		return nil, fmt.Errorf("gputest: surface texture already acquired")
	}
	s.acquired++
	s.held = &Resource{ID: s.acquired, Kind: "surface_texture", Label: fmt.Sprintf("frame %d", s.acquired)}
	return s.held, nil
}

func (s *Surface) Present() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		return
	}
	s.held.Released = true
	s.held = nil
	s.presents++
}

// Size returns the most recently configured size.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Presents returns how many frames were presented.
func (s *Surface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Acquired returns how many textures were acquired.
func (s *Surface) Acquired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}
