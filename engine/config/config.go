// Package config loads the engine's TOML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/pelletier/go-toml/v2"
)

// PresentMode names accepted for renderer.present_mode.
const (
	PresentModeVSync    = "vsync"
	PresentModeUncapped = "uncapped"
)

// ErrInvalid is wrapped by every validation failure returned from Load and Parse.
var ErrInvalid = errors.New("config: invalid value")

// Config is the root of the engine configuration file.
type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Assets   Assets   `toml:"assets"`
	Log      Log      `toml:"log"`
}

// Window configures the native window.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Renderer configures the GPU device and the pipeline the scene is drawn with.
type Renderer struct {
	ClearColor           [4]float64 `toml:"clear_color"`
	PresentMode          string     `toml:"present_mode"`
	ForceFallbackAdapter bool       `toml:"force_fallback_adapter"`
	Variant              string     `toml:"variant"`
	Shader               string     `toml:"shader"`
	FrameLimit           int        `toml:"frame_limit"`
}

// PipelineVariant returns the pipeline variant named by renderer.variant.
//
// Returns:
//   - pipeline.Variant: the variant
//   - error: an error wrapping ErrInvalid if the label names no variant
func (r Renderer) PipelineVariant() (pipeline.Variant, error) {
	v, err := pipeline.ParseVariant(r.Variant)
	if err != nil {
		return pipeline.VariantUnknown, fmt.Errorf("%w: renderer.variant: %w", ErrInvalid, err)
	}
	return v, nil
}

// Assets configures the shader and texture stores.
type Assets struct {
	ShaderDir  string `toml:"shader_dir"`
	TextureDir string `toml:"texture_dir"`
	Workers    int    `toml:"workers"`
	Watch      bool   `toml:"watch"`
}

// Log configures the process logger.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is supplied and the base that file values are layered over.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: Window{
			Title:  "oxy-render",
			Width:  1280,
			Height: 720,
		},
		Renderer: Renderer{
			ClearColor:  [4]float64{0.1, 0.1, 0.1, 1.0},
			PresentMode: PresentModeVSync,
			Variant:     pipeline.VariantDefaultObject.Label(),
			Shader:      "default_3d.wgsl",
		},
		Assets: Assets{
			ShaderDir:  "assets/shaders",
			TextureDir: "assets/textures",
			Workers:    4,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads and parses the TOML file at path. A missing file yields the defaults.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the parsed configuration
//   - error: an error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a TOML document over the defaults. Unknown keys are rejected.
//
// Parameters:
//   - r: the TOML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: an error if decoding or validation fails
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
//
// Returns:
//   - error: an error wrapping ErrInvalid describing the first bad value
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	switch c.Renderer.PresentMode {
	case PresentModeVSync, PresentModeUncapped:
	default:
		return fmt.Errorf("%w: present_mode %q", ErrInvalid, c.Renderer.PresentMode)
	}
	if _, err := c.Renderer.PipelineVariant(); err != nil {
		return err
	}
	if c.Renderer.Shader == "" {
		return fmt.Errorf("%w: renderer.shader is empty", ErrInvalid)
	}
	if c.Renderer.FrameLimit < 0 {
		return fmt.Errorf("%w: frame_limit %d", ErrInvalid, c.Renderer.FrameLimit)
	}
	if c.Assets.Workers <= 0 {
		return fmt.Errorf("%w: assets.workers %d", ErrInvalid, c.Assets.Workers)
	}
	for _, ch := range c.Renderer.ClearColor {
		if ch < 0 || ch > 1 {
			return fmt.Errorf("%w: clear_color channel %v", ErrInvalid, ch)
		}
	}
	return nil
}
