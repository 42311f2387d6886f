package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
)

func TestParseOverridesDefaults(t *testing.T) {
	doc := `
[window]
title = "demo"
width = 800

[renderer]
clear_color = [0.0, 0.5, 1.0, 1.0]
present_mode = "uncapped"

[assets]
workers = 2
watch = true

[log]
level = "debug"
`
	cfg, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Window.Title != "demo" || cfg.Window.Width != 800 {
		t.Errorf("window = %+v, want title demo width 800", cfg.Window)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("window.height = %d, want default 720", cfg.Window.Height)
	}
	if cfg.Renderer.ClearColor != [4]float64{0, 0.5, 1, 1} {
		t.Errorf("clear_color = %v", cfg.Renderer.ClearColor)
	}
	if cfg.Renderer.PresentMode != PresentModeUncapped {
		t.Errorf("present_mode = %q, want uncapped", cfg.Renderer.PresentMode)
	}
	if v, err := cfg.Renderer.PipelineVariant(); err != nil || v != pipeline.VariantDefaultObject {
		t.Errorf("PipelineVariant() = %v, %v; want default_object", v, err)
	}
	if cfg.Renderer.Shader != "default_3d.wgsl" {
		t.Errorf("shader = %q, want default", cfg.Renderer.Shader)
	}
	if !cfg.Assets.Watch || cfg.Assets.Workers != 2 {
		t.Errorf("assets = %+v", cfg.Assets)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("[window]\nfullscreen = true\n"))
	if err == nil {
		t.Fatal("Parse() error = nil, want unknown key error")
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero width", "[window]\nwidth = 0\n"},
		{"bad present mode", "[renderer]\npresent_mode = \"mailbox\"\n"},
		{"empty shader", "[renderer]\nshader = \"\"\n"},
		{"unknown variant", "[renderer]\nvariant = \"deferred\"\n"},
		{"no workers", "[assets]\nworkers = 0\n"},
		{"clear color out of range", "[renderer]\nclear_color = [2.0, 0.0, 0.0, 1.0]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	if err := os.WriteFile(path, []byte("[renderer]\nshader = \"lit.wgsl\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Renderer.Shader != "lit.wgsl" {
		t.Errorf("shader = %q, want lit.wgsl", cfg.Renderer.Shader)
	}
}
