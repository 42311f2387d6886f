package gpu_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestGrowableBufferNeverShrinks(t *testing.T) {
	dev := gputest.NewDevice()
	g := gpu.NewGrowableBuffer(dev, "transforms", wgpu.BufferUsageStorage)
	if g.Capacity() != 0 || g.Buffer() != nil {
		t.Fatalf("new buffer capacity = %d, want 0 and no allocation", g.Capacity())
	}

	steps := []struct {
		size        int
		wantRealloc bool
		wantCap     uint64
	}{
		{64, true, 64},
		{64, false, 64},
		{320, true, 320},
		{128, false, 320},
		{0, false, 320},
		{320, false, 320},
		{384, true, 384},
	}

	var last uint64
	for i, s := range steps {
		realloc, err := g.Upload(make([]byte, s.size))
		if err != nil {
			t.Fatalf("step %d: Upload() error = %v", i, err)
		}
		if realloc != s.wantRealloc {
			t.Errorf("step %d: reallocated = %v, want %v", i, realloc, s.wantRealloc)
		}
		if g.Capacity() != s.wantCap {
			t.Errorf("step %d: Capacity() = %d, want %d", i, g.Capacity(), s.wantCap)
		}
		if g.Capacity() < last {
			t.Errorf("step %d: capacity shrank from %d to %d", i, last, g.Capacity())
		}
		last = g.Capacity()
	}

	if g.Reallocations() != 3 {
		t.Errorf("Reallocations() = %d, want 3", g.Reallocations())
	}
	if g.Requested() != 384 {
		t.Errorf("Requested() = %d, want 384", g.Requested())
	}

	all := dev.BuffersLabeled("transforms")
	if len(all) != 3 {
		t.Fatalf("allocations = %d, want 3", len(all))
	}
	for _, b := range all[:2] {
		if !b.Released {
			t.Errorf("superseded buffer of %d bytes was not released", b.Desc.Size)
		}
	}
}

func TestGrowableBufferWritesInPlaceWithoutRealloc(t *testing.T) {
	dev := gputest.NewDevice()
	g := gpu.NewGrowableBuffer(dev, "transforms", wgpu.BufferUsageStorage)

	big := make([]byte, 128)
	for i := range big {
		big[i] = 1
	}
	if _, err := g.Upload(big); err != nil {
		t.Fatal(err)
	}
	small := make([]byte, 64)
	for i := range small {
		small[i] = 2
	}
	if _, err := g.Upload(small); err != nil {
		t.Fatal(err)
	}

	buf := dev.BuffersLabeled("transforms")[0]
	if buf.Data[0] != 2 || buf.Data[63] != 2 {
		t.Error("active range not overwritten")
	}
	if buf.Data[64] != 1 || buf.Data[127] != 1 {
		t.Error("trailing capacity was modified")
	}
	writes := dev.WritesTo(buf)
	if len(writes) != 2 || writes[1].Offset != 0 {
		t.Errorf("writes = %d (last offset %d), want 2 at offset 0", len(writes), writes[len(writes)-1].Offset)
	}
}

func TestGrowableBufferAllocationFailureKeepsOldBuffer(t *testing.T) {
	dev := gputest.NewDevice()
	g := gpu.NewGrowableBuffer(dev, "transforms", wgpu.BufferUsageStorage)
	if _, err := g.Upload(make([]byte, 320)); err != nil {
		t.Fatal(err)
	}
	old := g.Buffer()

	oom := errors.New("out of memory")
	dev.FailOn(gputest.OpCreateBuffer, oom)
	if _, err := g.Upload(make([]byte, 640)); !errors.Is(err, oom) {
		t.Fatalf("Upload() error = %v, want allocation failure", err)
	}
	if g.Buffer() != old || g.Capacity() != 320 {
		t.Errorf("after failed growth Capacity() = %d, want 320 with the old buffer kept", g.Capacity())
	}
	if len(dev.LiveBuffers()) != 1 {
		t.Errorf("live buffers = %d, want 1", len(dev.LiveBuffers()))
	}

	dev.ClearFailures()
	realloc, err := g.Upload(make([]byte, 64))
	if err != nil || realloc {
		t.Errorf("Upload() after recovery = %v, %v; want in-place write", realloc, err)
	}
	if g.Capacity() != 320 || g.Reallocations() != 1 {
		t.Errorf("Capacity() = %d, Reallocations() = %d; want 320, 1", g.Capacity(), g.Reallocations())
	}
}

func TestGrowableBufferDestroy(t *testing.T) {
	dev := gputest.NewDevice()
	g := gpu.NewGrowableBuffer(dev, "transforms", wgpu.BufferUsageStorage)
	g.Destroy()
	if _, err := g.Upload(make([]byte, 64)); err != nil {
		t.Fatal(err)
	}
	g.Destroy()
	g.Destroy()
	if len(dev.LiveBuffers()) != 0 {
		t.Errorf("live buffers = %d, want 0", len(dev.LiveBuffers()))
	}
}
