package frame

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"github.com/Carmen-Shannon/oxy-clustered/engine/profiler"
	"go.uber.org/zap"
)

// ErrStageOrder is returned when a stage is requested out of sequence.
var ErrStageOrder = errors.New("frame stage out of order")

// Stage identifies a step of the per-frame pipeline.
type Stage uint32

const (
	// StageIdle is the state between frames.
	StageIdle Stage = iota

	// StageLightAnimation moves the active lights for the frame time.
	StageLightAnimation

	// StageClusterAssignment rebuilds the per-cluster light lists.
	StageClusterAssignment

	// StageGeometry rasterizes the scene into the G-buffer.
	StageGeometry

	// StageShadingResolve lights every covered pixel from its cluster's list.
	StageShadingResolve

	// StagePresent hands the finished image to the output.
	StagePresent
)

// String returns the snake_case name of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLightAnimation:
		return "light_animation"
	case StageClusterAssignment:
		return "cluster_assignment"
	case StageGeometry:
		return "geometry"
	case StageShadingResolve:
		return "shading_resolve"
	case StagePresent:
		return "present"
	default:
		return fmt.Sprintf("Stage(%d)", uint32(s))
	}
}

// next returns the stage that must follow s.
func (s Stage) next() Stage {
	if s == StageIdle || s >= StagePresent {
		return StageLightAnimation
	}
	return s + 1
}

// Backend executes the frame stages. Each method runs exactly one stage and
// may rely on every earlier stage of the same frame having completed.
type Backend interface {
	// AnimateLights moves the active lights to their positions at time t.
	AnimateLights(t float32) error

	// AssignClusters rebuilds the cluster light lists from the current lights and camera.
	AssignClusters() error

	// RenderGeometry clears and fills the G-buffer.
	RenderGeometry() error

	// ResolveShading shades the G-buffer into the output image.
	ResolveShading() error

	// Present hands the output image to the window or file.
	Present() error
}

// Orchestrator sequences the frame stages over a Backend.
// Thread-safe for concurrent access; stages never overlap.
type Orchestrator interface {
	// RenderFrame runs every stage of one frame in order.
	//
	// Parameters:
	//   - t: the frame time in seconds, passed to light animation
	//
	// Returns:
	//   - error: ErrStageOrder if a manually stepped frame is in progress, or the
	//     first backend error wrapped with its stage name
	RenderFrame(t float32) error

	// Advance runs a single stage. Stages must be requested in pipeline order;
	// completing StagePresent ends the frame.
	//
	// Parameters:
	//   - stage: the stage to run
	//   - t: the frame time in seconds, used by StageLightAnimation only
	//
	// Returns:
	//   - error: ErrStageOrder without touching the backend, or the backend error
	//     wrapped with the stage name
	Advance(stage Stage, t float32) error

	// Stage returns the last completed stage of the frame in progress, or
	// StageIdle between frames.
	Stage() Stage

	// Frame returns the number of frames presented.
	Frame() uint64

	// Reset abandons the frame in progress and returns to StageIdle.
	Reset()
}

type orchestratorImpl struct {
	mu       sync.Mutex
	backend  Backend
	stage    Stage
	frame    uint64
	profiler *profiler.Profiler
	logger   *zap.Logger
}

var _ Orchestrator = &orchestratorImpl{}

// NewOrchestrator creates an Orchestrator driving backend.
//
// Parameters:
//   - backend: the stage implementation
//   - opts: functional options to configure the orchestrator
//
// Returns:
//   - Orchestrator: the new orchestrator
func NewOrchestrator(backend Backend, opts ...OrchestratorBuilderOption) Orchestrator {
	o := &orchestratorImpl{backend: backend}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logger.Named(o.logger, "frame")
	return o
}

func (o *orchestratorImpl) RenderFrame(t float32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage != StageIdle {
		return fmt.Errorf("%w: frame in progress at %s", ErrStageOrder, o.stage)
	}
	for s := StageLightAnimation; s <= StagePresent; s++ {
		if err := o.advance(s, t); err != nil {
			return err
		}
	}
	return nil
}

func (o *orchestratorImpl) Advance(stage Stage, t float32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.advance(stage, t)
}

// advance runs one stage. Caller must hold the mutex.
func (o *orchestratorImpl) advance(stage Stage, t float32) error {
	if want := o.stage.next(); stage != want {
		return fmt.Errorf("%w: %s requested after %s, want %s", ErrStageOrder, stage, o.stage, want)
	}

	start := time.Now()
	var err error
	switch stage {
	case StageLightAnimation:
		err = o.backend.AnimateLights(t)
	case StageClusterAssignment:
		err = o.backend.AssignClusters()
	case StageGeometry:
		err = o.backend.RenderGeometry()
	case StageShadingResolve:
		err = o.backend.ResolveShading()
	case StagePresent:
		err = o.backend.Present()
	}
	if err != nil {
		o.logger.Warn("frame aborted",
			zap.Uint64("frame", o.frame),
			zap.Stringer("stage", stage),
			zap.Error(err),
		)
		o.stage = StageIdle
		return fmt.Errorf("%s: %w", stage, err)
	}
	if o.profiler != nil {
		o.profiler.Observe(stage.String(), time.Since(start))
	}

	if stage != StagePresent {
		o.stage = stage
		return nil
	}
	o.stage = StageIdle
	o.frame++
	if o.profiler != nil {
		o.profiler.Tick()
	}
	return nil
}

func (o *orchestratorImpl) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

func (o *orchestratorImpl) Frame() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frame
}

func (o *orchestratorImpl) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stage = StageIdle
}
