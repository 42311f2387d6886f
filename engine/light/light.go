package light

import "sync"

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	position  [3]float32
	color     [3]float32
	intensity float32
	enabled   bool
}

// Light defines the interface for a point light in the scene.
//
// Lights are scene-level entities packed into the per-frame uniform by every
// object pipeline. Only enabled lights are reported by the scene.
type Light interface {
	// Position returns the world-space position of the light. The fourth
	// channel is reserved and always 1.
	//
	// Returns:
	//   - [4]float32: position as (x, y, z, 1)
	Position() [4]float32

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Enabled returns whether this light is active for rendering.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// SetPosition moves the light.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetPosition(x, y, z float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier. Negative values are clamped to 0.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetEnabled toggles whether the light contributes to rendering.
	//
	// Parameters:
	//   - enabled: true to enable the light
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new white point light at the origin with unit intensity and
// any provided options applied.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		color:     [3]float32{1, 1, 1},
		intensity: 1.0,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Position() [4]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return [4]float32{l.position[0], l.position[1], l.position[2], 1}
}

func (l *lightImpl) Color() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = max(intensity, 0)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}
