package shader

import (
	"strings"
	"testing"
)

func TestPreProcessorExpandsIncludes(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"globals": "struct Globals { tint: vec4<f32>, };\n",
	})

	src := strings.Join([]string{
		"//@oxy:include globals",
		"// @oxy:include globals",
		"@group(0) @binding(0) var<uniform> g: Globals;",
		"// plain comment",
	}, "\n")

	out, err := pp.Process(src)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if strings.Count(out, "struct Globals") != 1 {
		t.Errorf("include expanded %d times, want 1:\n%s", strings.Count(out, "struct Globals"), out)
	}
	if strings.Contains(out, "@oxy:") {
		t.Errorf("annotation left in output:\n%s", out)
	}
	if !strings.Contains(out, "// plain comment") {
		t.Error("ordinary comment removed")
	}
	if got := pp.Included(); len(got) != 1 || got[0] != "globals" {
		t.Errorf("Included() = %v, want [globals]", got)
	}
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor(nil)
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown include", "//@oxy:include missing", "unknown @oxy:include argument"},
		{"unknown annotation", "//@oxy:group 0 0", "unknown annotation"},
		{"missing argument", "//@oxy:include", "exactly one argument"},
		{"extra argument", "//@oxy:include a b", "exactly one argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pp.Process("\n" + tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.want) || !strings.Contains(err.Error(), "line 2") {
				t.Errorf("Process() error = %v, want %q on line 2", err, tt.want)
			}
		})
	}
}

func TestPreProcessedSourceCompiles(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"vertex_input": "struct VertexInput {\n    @location(0) position: vec3<f32>,\n};",
	})
	src, err := pp.Process(`//@oxy:include vertex_input

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return vec4<f32>(in.position, 1.0);
}
`)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Compile("included", src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if s.EntryPoint(StageVertex) != "vs_main" {
		t.Errorf("EntryPoint(vertex) = %q", s.EntryPoint(StageVertex))
	}
}
