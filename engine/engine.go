// Package engine runs the fixed-rate tick loop and the render loop that drive a scene.
package engine

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
	"github.com/charmbracelet/log"
)

// aspectSetter is implemented by cameras whose projection follows the surface aspect ratio.
type aspectSetter interface {
	SetAspect(aspect float32)
}

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration
	running         bool
	wg              sync.WaitGroup
	quitChannel     chan struct{}
	quitOnce        sync.Once

	window   window.Window
	renderer renderer.Renderer
	scene    scene.Scene
	log      *log.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate   time.Duration
	renderFrameLimit time.Duration
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32)

	lastRenderErr string
}

// Engine is the main entry point for the engine.
// It ticks the scene at a fixed rate and renders it as fast as the frame limit allows.
type Engine interface {
	// Window returns the window the engine presents to, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer that draws the scene.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Scene returns the scene being driven.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick after the scene has ticked.
	//
	// Parameters:
	//   - callback: receives the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: receives the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Resize propagates a new surface size to the renderer and the scene camera.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	Resize(width, height int)

	// Run starts the tick and render loops and blocks until the window closes or Quit is called.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// idleFrameWait is how long the render loop sleeps when no frame can be drawn and no frame limit is set.
const idleFrameWait = 10 * time.Millisecond

// NewEngine creates a new Engine that renders s with r.
//
// Parameters:
//   - r: the renderer
//   - s: the scene to tick and render
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(r renderer.Renderer, s scene.Scene, options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		renderer:        r,
		scene:           s,
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.With("component", "engine")
	}
	e.profiler = profiler.NewProfiler(e.log, time.Second)

	if e.window != nil {
		e.window.SetResizeCallback(e.Resize)
		// Quit from another goroutine closes the window so ProcessMessages returns.
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.Close()
			default:
			}
		})
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Resize(width, height int) {
	if e.renderer != nil {
		if err := e.renderer.Resize(width, height); err != nil {
			e.log.Error("resize failed", "width", width, "height", height, "err", err)
		}
	}
	if height <= 0 || e.scene == nil {
		return
	}
	if c, ok := e.scene.Camera().(aspectSetter); ok {
		c.SetAspect(float32(width) / float32(height))
	}
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	if e.window != nil {
		e.window.ProcessMessages()
		e.Quit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop until the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := now.Sub(lastTick).Seconds()
			lastTick = now

			if e.scene != nil {
				e.scene.Tick(dt)
			}
			e.mu.Lock()
			callback := e.tickCallback
			e.mu.Unlock()
			if callback != nil {
				callback(float32(dt))
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender renders the scene until the quit channel is closed.
// A panic while rendering is logged and stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("render loop panicked", "panic", r)
			e.Quit()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		frameStart := time.Now()
		dt := float32(frameStart.Sub(lastRender).Seconds())
		lastRender = frameStart

		if e.renderer != nil && e.scene != nil {
			e.reportRenderError(e.renderer.RenderFrame(e.scene))
		}

		e.mu.Lock()
		callback, profiling, limit := e.renderCallback, e.profilingEnabled, e.renderFrameLimit
		e.mu.Unlock()
		if callback != nil {
			callback(dt)
		}
		if profiling {
			e.profiler.Tick()
		}

		if limit > 0 {
			if remaining := limit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		} else if e.renderer == nil || e.renderer.Suspended() {
			time.Sleep(idleFrameWait)
		}
	}
}

// reportRenderError logs a render error once until a different error or a clean frame occurs.
func (e *engine) reportRenderError(err error) {
	if err == nil {
		e.lastRenderErr = ""
		return
	}
	if msg := err.Error(); msg != e.lastRenderErr {
		e.lastRenderErr = msg
		e.log.Error("frame failed", "err", err)
	}
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.engineTickRate = newRate
	e.mu.Unlock()
	if !running {
		return
	}

	// Replace any pending update that the tick loop has not consumed yet.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameDuration(fps)
}

// frameDuration converts a rate to a period; non-positive rates mean no limit.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
