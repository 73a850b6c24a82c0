package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/engine/profiler"
	"github.com/Carmen-Shannon/oxy-clustered/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profiling = enabled
	}
}

// WithProfiler replaces the default profiler. Its enabled state is set from WithProfiling.
//
// Parameters:
//   - p: the profiler stage timings are reported to
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow attaches the window the backend presents to. The engine binds
// its resize, key and mouse callbacks and runs the window message loop.
// Without a window the engine runs headless.
//
// Parameters:
//   - w: the window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithTitle sets the base window title the light count is appended to.
func WithTitle(title string) EngineBuilderOption {
	return func(e *engine) {
		e.title = title
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithMaxFrames stops the engine after n frames. Zero runs until quit.
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithFixedTimeStep advances the light clock by step seconds per frame
// instead of by wall time, making headless runs deterministic.
func WithFixedTimeStep(step float32) EngineBuilderOption {
	return func(e *engine) {
		e.fixedStep = step
	}
}

// WithLightStep sets how many lights one key press adds or removes.
func WithLightStep(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.lightStep = n
		}
	}
}

// WithCameraOrbit orbits the camera around its target at speed radians per second.
// Zero keeps the camera still.
func WithCameraOrbit(speed float32) EngineBuilderOption {
	return func(e *engine) {
		e.orbitSpeed = speed
	}
}

// WithLogger sets the parent logger. The engine logs under the "engine" name.
func WithLogger(l *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = l
	}
}

// WithLightsPaused starts the engine with the light animation clock stopped.
func WithLightsPaused(paused bool) EngineBuilderOption {
	return func(e *engine) {
		e.lightsPaused.Store(paused)
	}
}
