// Package profiler reports frame rate and memory statistics through the engine logger.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/charmbracelet/log"
)

// Snapshot is one reporting interval's worth of statistics.
type Snapshot struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	log            *log.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler that reports every interval.
// A non-positive interval defaults to 1 second; a nil logger uses the engine logger.
//
// Parameters:
//   - l: the logger stats are written to
//   - interval: how often stats are reported
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(l *log.Logger, interval time.Duration) *Profiler {
	if l == nil {
		l = logger.With("component", "profiler")
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		log:            l,
		lastTime:       time.Now(),
		updateInterval: interval,
	}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - Snapshot: the statistics of the interval that just ended
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() (Snapshot, bool) {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Snapshot{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	snap := Snapshot{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:     p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	if gc := snap.GCCount; gc > 0 {
		snap.LastPauseUs = p.memStats.PauseNs[(gc-1)%256] / 1000
		start := p.lastGCCount
		if gc-start > 256 {
			start = gc - 256
		}
		for i := start; i < gc; i++ {
			snap.MaxPauseUs = max(snap.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.log.Info("frame stats",
		"fps", snap.FPS,
		"heap_mb", snap.HeapMB,
		"alloc_mb_s", snap.AllocRateMB,
		"gc", snap.GCCount,
		"gc_last_us", snap.LastPauseUs,
		"gc_max_us", snap.MaxPauseUs,
		"sys_mb", snap.SysMB,
	)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = snap.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return snap, true
}
