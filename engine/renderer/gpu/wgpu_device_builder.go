package gpu

import "github.com/cogentcore/webgpu/wgpu"

// WGPUBuilderOption is a functional option used to configure the WebGPU device and surface during construction.
type WGPUBuilderOption func(*wgpuDevice, *wgpuSurface)

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - WGPUBuilderOption: a function that sets the adapter preference
func WithForceFallbackAdapter(force bool) WGPUBuilderOption {
	return func(d *wgpuDevice, _ *wgpuSurface) {
		d.forceFallbackAdapter = force
	}
}

// WithMaxBindGroups raises the MaxBindGroups device limit.
//
// Parameters:
//   - n: the number of bind groups required
//
// Returns:
//   - WGPUBuilderOption: a function that sets the limit
func WithMaxBindGroups(n uint32) WGPUBuilderOption {
	return func(d *wgpuDevice, _ *wgpuSurface) {
		d.maxBindGroups = n
	}
}

// WithDeviceLabel sets the debug label of the device.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - WGPUBuilderOption: a function that sets the label
func WithDeviceLabel(label string) WGPUBuilderOption {
	return func(d *wgpuDevice, _ *wgpuSurface) {
		d.label = label
	}
}

// WithVSync selects Fifo presentation when enabled and Immediate presentation otherwise.
//
// Parameters:
//   - enabled: whether presentation waits for vertical sync
//
// Returns:
//   - WGPUBuilderOption: a function that sets the present mode
func WithVSync(enabled bool) WGPUBuilderOption {
	return func(_ *wgpuDevice, s *wgpuSurface) {
		if enabled {
			s.presentMode = wgpu.PresentModeFifo
		} else {
			s.presentMode = wgpu.PresentModeImmediate
		}
	}
}
