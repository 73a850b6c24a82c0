package profiler

import (
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"go.uber.org/zap"
)

// Profiler tracks frame rate, per-stage timings and memory statistics for
// performance monitoring. Outputs stats to the log at a configurable interval.
// Safe for concurrent use.
type Profiler struct {
	mu             sync.Mutex
	enabled        bool
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	stages         map[string]*stageTiming
	logger         *zap.Logger
}

type stageTiming struct {
	total time.Duration
	count int
	max   time.Duration
}

// StageReport is the accumulated timing of one stage over a reporting interval.
type StageReport struct {
	Name    string
	Average time.Duration
	Max     time.Duration
	Count   int
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often Tick logs statistics.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithLogger sets the logger statistics are written to.
//
// Parameters:
//   - l: the logger; nil falls back to the global logger
//
// Returns:
//   - ProfilerOption: option function to apply
func WithLogger(l *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		p.logger = l
	}
}

// WithClock replaces time.Now, mainly for tests.
//
// Parameters:
//   - now: the clock function
//
// Returns:
//   - ProfilerOption: option function to apply
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - opts: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerOption) *Profiler {
	p := &Profiler{
		enabled:        true,
		updateInterval: time.Second,
		now:            time.Now,
		stages:         make(map[string]*stageTiming),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastTime = p.now()
	p.logger = logger.Named(p.logger, "profiler")
	return p
}

// SetEnabled turns recording on or off. A disabled profiler ignores Observe
// and Tick and starts a fresh interval when re-enabled.
func (p *Profiler) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled && !p.enabled {
		p.frameCount = 0
		p.lastTime = p.now()
		clear(p.stages)
	}
	p.enabled = enabled
}

// Enabled reports whether the profiler is recording.
func (p *Profiler) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Observe records one execution of a named stage.
//
// Parameters:
//   - stage: the stage name
//   - d: how long the stage took
func (p *Profiler) Observe(stage string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	s, ok := p.stages[stage]
	if !ok {
		s = &stageTiming{}
		p.stages[stage] = s
	}
	s.total += d
	s.count++
	s.max = max(s.max, d)
}

// Stages returns the timings accumulated since the last report, sorted by name.
//
// Returns:
//   - []StageReport: one entry per observed stage
func (p *Profiler) Stages() []StageReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stageReports()
}

func (p *Profiler) stageReports() []StageReport {
	out := make([]StageReport, 0, len(p.stages))
	for name, s := range p.stages {
		r := StageReport{Name: name, Max: s.max, Count: s.count}
		if s.count > 0 {
			r.Average = s.total / time.Duration(s.count)
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b StageReport) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, per-stage timings, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return false
	}

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	fields := []zap.Field{
		zap.Float64("fps", fps),
		zap.Float64("heap_mb", allocMB),
		zap.Float64("alloc_rate_mb_s", allocRateMB),
		zap.Uint32("gc", gcCount),
		zap.Uint64("gc_last_us", lastPauseUs),
		zap.Uint64("gc_max_us", maxPauseUs),
		zap.Float64("sys_mb", sysMB),
	}
	for _, s := range p.stageReports() {
		fields = append(fields, zap.Duration(s.Name, s.Average))
	}
	p.logger.Info("frame stats", fields...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	clear(p.stages)
	return true
}
