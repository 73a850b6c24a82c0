package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/engine/frame"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"github.com/Carmen-Shannon/oxy-clustered/engine/profiler"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/Carmen-Shannon/oxy-clustered/engine/window"
	"go.uber.org/zap"
)

// ErrNoBackend is returned by NewEngine when no render backend is supplied.
var ErrNoBackend = errors.New("no render backend")

// RenderBackend is a frame.Backend that also owns a resizable viewport.
// Both the software backend and the WebGPU renderer satisfy it.
type RenderBackend interface {
	frame.Backend

	// Resize changes the viewport and every size-dependent resource.
	//
	// Parameters:
	//   - width, height: the new viewport in pixels
	//
	// Returns:
	//   - error: error if the viewport is empty or resources cannot be rebuilt
	Resize(width, height int) error

	// Close releases the backend.
	//
	// Returns:
	//   - error: error if releasing fails
	Close() error
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window       window.Window
	title        string
	backend      RenderBackend
	orchestrator frame.Orchestrator
	scene        scene.Scene

	profiler  *profiler.Profiler
	profiling bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // frames rendered before quitting; 0 = unlimited
	fixedStep        float32       // light clock step per frame; 0 = wall clock

	lightStep    int
	lightsPaused atomic.Bool
	lightTime    float32 // render goroutine only

	orbitSpeed  float32
	orbitPaused atomic.Bool

	mu            sync.Mutex
	orbit         orbitState
	pendingResize *[2]int
	minimized     bool
	err           error

	// input state, touched only by window callbacks on the main thread
	dragging     bool
	lastX, lastY int32

	logger *zap.Logger
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window, nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Backend returns the render backend the frames run on.
	//
	// Returns:
	//   - RenderBackend: the backend
	Backend() RenderBackend

	// Orchestrator returns the frame state machine driving the backend.
	//
	// Returns:
	//   - frame.Orchestrator: the orchestrator
	Orchestrator() frame.Orchestrator

	// Scene returns the rendered scene.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AdjustLights changes the active light count by delta, clamped to
	// [0, MaxLights] of the scene light set.
	//
	// Parameters:
	//   - delta: lights to add, negative to remove
	//
	// Returns:
	//   - int: the new active light count
	//   - error: error if the light set rejects the count
	AdjustLights(delta int) (int, error)

	// Run starts the engine and blocks until the window closes, the frame
	// budget is spent, a frame fails or Quit is called. The backend is closed
	// before Run returns.
	//
	// Returns:
	//   - error: the first frame error, or the backend close error
	Run() error

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine rendering sc through backend.
//
// Parameters:
//   - sc: the scene to render
//   - backend: the software backend or the WebGPU renderer
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrNoBackend or renderer.ErrNoScene
func NewEngine(sc scene.Scene, backend RenderBackend, options ...EngineBuilderOption) (Engine, error) {
	if sc == nil {
		return nil, renderer.ErrNoScene
	}
	if backend == nil {
		return nil, ErrNoBackend
	}
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scene:           sc,
		backend:         backend,
		engineTickRate:  time.Second / 60,
		lightStep:       DefaultLightStep,
	}
	for _, opt := range options {
		opt(e)
	}
	e.logger = logger.Named(e.logger, "engine")
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}
	e.profiler.SetEnabled(e.profiling)
	e.orchestrator = frame.NewOrchestrator(backend,
		frame.WithProfiler(e.profiler),
		frame.WithLogger(e.logger),
	)
	e.orbit = orbitFromCamera(sc.Camera())

	if e.window != nil {
		e.bindInput()
	}
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Backend() RenderBackend {
	return e.backend
}

func (e *engine) Orchestrator() frame.Orchestrator {
	return e.orchestrator
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Run() error {
	e.running.Store(true)
	e.logger.Info("engine started",
		zap.Bool("windowed", e.window != nil),
		zap.Int("lights", e.activeLights()),
		zap.Uint64("max_frames", e.maxFrames),
	)
	e.handle()

	if e.window != nil {
		// The window is only closed from this goroutine, after the render
		// loop has stopped using its surface.
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.RequestClose()
			default:
			}
		})
		e.window.ProcessMessages()
	} else {
		<-e.quitChannel
	}

	e.signalQuit()
	e.wg.Wait()

	e.mu.Lock()
	runErr := e.err
	e.mu.Unlock()

	if err := e.backend.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close backend: %w", err)
	}
	if e.window != nil {
		_ = e.window.Close()
	}
	e.logger.Info("engine stopped", zap.Uint64("frames", e.orchestrator.Frame()), zap.Error(runErr))
	return runErr
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// fail records the first fatal render error and stops the engine.
func (e *engine) fail(err error) {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	e.signalQuit()
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Advances the camera orbit and fires the tick callback at the configured
// tick rate. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.tickOrbit(dt)
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration applies a pending resize and runs one orchestrated frame.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", zap.Any("panic", r))
			e.fail(fmt.Errorf("render panic: %v", r))
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if !e.applyResize() {
			time.Sleep(minimizedPoll)
			continue
		}

		if !e.lightsPaused.Load() {
			if e.fixedStep > 0 {
				e.lightTime += e.fixedStep
			} else {
				e.lightTime += dt
			}
		}

		err := e.orchestrator.RenderFrame(e.lightTime)
		switch {
		case err == nil:
		case errors.Is(err, renderer.ErrSurfaceUnavailable):
			e.logger.Debug("frame skipped", zap.Error(err))
		default:
			e.logger.Error("frame failed", zap.Uint64("frame", e.orchestrator.Frame()), zap.Error(err))
			e.fail(err)
			return
		}

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}

		if e.maxFrames > 0 && e.orchestrator.Frame() >= e.maxFrames {
			e.logger.Info("frame budget reached", zap.Uint64("frames", e.maxFrames))
			e.signalQuit()
			return
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			elapsed := time.Since(now)
			if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// minimizedPoll is how long the render loop sleeps while the viewport is empty.
const minimizedPoll = 50 * time.Millisecond

// queueResize records a viewport change for the render goroutine.
func (e *engine) queueResize(width, height int) {
	e.mu.Lock()
	e.pendingResize = &[2]int{width, height}
	e.mu.Unlock()
}

// applyResize resizes the backend when a resize is pending. It reports
// whether the viewport is drawable.
func (e *engine) applyResize() bool {
	e.mu.Lock()
	pending := e.pendingResize
	e.pendingResize = nil
	if pending != nil {
		e.minimized = pending[0] <= 0 || pending[1] <= 0
	}
	minimized := e.minimized
	e.mu.Unlock()

	if pending == nil || minimized {
		return !minimized
	}
	if err := e.backend.Resize(pending[0], pending[1]); err != nil {
		e.logger.Warn("resize failed", zap.Int("width", pending[0]), zap.Int("height", pending[1]), zap.Error(err))
		return true
	}
	e.logger.Debug("resized", zap.Int("width", pending[0]), zap.Int("height", pending[1]))
	return true
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profiler.SetEnabled(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profiler.SetEnabled(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AdjustLights(delta int) (int, error) {
	ls := e.scene.Lights()
	if ls == nil {
		return 0, nil
	}
	n := max(0, min(ls.NumLights()+delta, ls.MaxLights()))
	if err := ls.SetNumLights(n); err != nil {
		return ls.NumLights(), err
	}
	e.logger.Info("active lights changed", zap.Int("lights", n))
	return n, nil
}
