// Package window opens the native window the renderer presents to and forwards its input
// and resize events to callbacks.
package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a native window backed by GLFW.
type Window interface {
	// SetUpdateCallback registers the function called after each batch of events is processed.
	//
	// Parameters:
	//   - callback: called once per event poll
	SetUpdateCallback(callback func())

	// SetResizeCallback registers the function called when the framebuffer size changes.
	//
	// Parameters:
	//   - callback: receives the new framebuffer size in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback registers the function called on vertical scroll.
	//
	// Parameters:
	//   - callback: receives the scroll delta
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback registers the function called when a key is pressed or repeats.
	//
	// Parameters:
	//   - callback: receives the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetDragCallback registers the function called while the cursor moves with the left button held.
	//
	// Parameters:
	//   - callback: receives the cursor movement in pixels since the last event
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns the platform surface descriptor used to create the GPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: true until the window is closed
	IsRunning() bool

	// Close destroys the window.
	//
	// Returns:
	//   - error: an error if the window was never opened
	Close() error

	// ProcessMessages polls events until the window closes. It must run on the main thread.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the framebuffer height in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int
}

// engineWindow holds the platform independent window state.
type engineWindow struct {
	title               string
	width, height       int
	minWidth, minHeight int
	maxWidth, maxHeight int
	resizable           bool
	platform            *glfwWindow

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onDrag    func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow opens a window with the provided options applied.
//
// Parameters:
//   - options: variadic list of WindowBuilderOption functions
//
// Returns:
//   - Window: the open window
//   - error: an error if GLFW could not open the window
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-render",
		width:     1280,
		height:    720,
		minWidth:  320,
		minHeight: 200,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := openPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunning(w)
}

func (w *engineWindow) Close() error {
	return platformClose(w)
}

func (w *engineWindow) ProcessMessages() {
	for platformPollEvents(w) {
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
