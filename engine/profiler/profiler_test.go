package profiler

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestTickReportsAfterInterval(t *testing.T) {
	var out bytes.Buffer
	p := NewProfiler(log.New(&out), 20*time.Millisecond)

	if _, logged := p.Tick(); logged {
		t.Fatal("Tick() logged before the interval elapsed")
	}
	time.Sleep(30 * time.Millisecond)
	snap, logged := p.Tick()
	if !logged {
		t.Fatal("Tick() did not log after the interval")
	}
	if snap.FPS <= 0 || snap.SysMB <= 0 {
		t.Errorf("Snapshot = %+v", snap)
	}
	if !strings.Contains(out.String(), "frame stats") || !strings.Contains(out.String(), "fps=") {
		t.Errorf("log output = %q", out.String())
	}
	if _, logged := p.Tick(); logged {
		t.Error("Tick() logged twice in one interval")
	}
}
