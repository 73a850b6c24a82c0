package engine

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"go.uber.org/zap"
)

// Camera control constants.
const (
	// DefaultLightStep is how many lights one key press adds or removes.
	DefaultLightStep = 100

	keyOrbitStep   = 0.1   // radians per arrow key press
	dragSpeed      = 0.005 // radians per dragged pixel
	zoomFactor     = 0.1   // radius fraction per scroll notch
	minOrbitRadius = 1.0
)

// orbitState is the camera placement around its target in spherical coordinates.
type orbitState struct {
	azimuth   float32
	elevation float32
	radius    float32
}

// orbitFromCamera derives the spherical placement of the camera eye around its target.
func orbitFromCamera(cam camera.Camera) orbitState {
	if cam == nil {
		return orbitState{radius: minOrbitRadius}
	}
	d := common.Sub3(cam.Position(), cam.Target())
	r := common.Length3(d)
	if r < 1e-6 {
		return orbitState{radius: minOrbitRadius}
	}
	return orbitState{
		azimuth:   float32(math.Atan2(float64(d[2]), float64(d[0]))),
		elevation: float32(math.Asin(float64(common.Clamp(d[1]/r, -1, 1)))),
		radius:    r,
	}
}

// moveOrbit applies a change to the orbit and repositions the camera.
func (e *engine) moveOrbit(dAzimuth, dElevation, radiusScale float32) {
	cam := e.scene.Camera()
	if cam == nil {
		return
	}
	limit := float32(math.Pi/2 - 0.01)

	e.mu.Lock()
	e.orbit.azimuth += dAzimuth
	e.orbit.elevation = common.Clamp(e.orbit.elevation+dElevation, -limit, limit)
	e.orbit.radius = common.Clamp(e.orbit.radius*radiusScale, minOrbitRadius, max(cam.Far()*0.5, minOrbitRadius))
	o := e.orbit
	e.mu.Unlock()

	cam.Orbit(o.azimuth, o.elevation, o.radius)
}

// tickOrbit advances the automatic camera orbit.
func (e *engine) tickOrbit(dt float32) {
	if e.orbitSpeed == 0 || e.orbitPaused.Load() {
		return
	}
	e.moveOrbit(e.orbitSpeed*dt, 0, 1)
}

// bindInput registers the window callbacks driving the demo controls.
func (e *engine) bindInput() {
	e.window.SetResizeCallback(e.queueResize)
	e.window.SetKeyDownCallback(e.handleKey)
	e.window.SetScrollCallback(func(delta float32) {
		e.moveOrbit(0, 0, 1-zoomFactor*delta)
	})
	e.window.SetMiddleMouseDownCallback(func(x, y int32) {
		e.dragging = true
		e.lastX, e.lastY = x, y
	})
	e.window.SetMiddleMouseUpCallback(func(x, y int32) {
		e.dragging = false
	})
	e.window.SetMouseMoveCallback(func(x, y int32) {
		if !e.dragging {
			return
		}
		dx, dy := x-e.lastX, y-e.lastY
		e.lastX, e.lastY = x, y
		e.moveOrbit(float32(dx)*dragSpeed, float32(dy)*dragSpeed, 1)
	})
	e.updateTitle()
}

func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyEqual, common.KeyUp:
		e.stepLights(e.lightStep)
	case common.KeyMinus, common.KeyDown:
		e.stepLights(-e.lightStep)
	case common.KeyLeft:
		e.moveOrbit(-keyOrbitStep, 0, 1)
	case common.KeyRight:
		e.moveOrbit(keyOrbitStep, 0, 1)
	case common.KeyP:
		paused := !e.lightsPaused.Load()
		e.lightsPaused.Store(paused)
		e.logger.Info("light animation", zap.Bool("paused", paused))
	case common.KeySpace:
		paused := !e.orbitPaused.Load()
		e.orbitPaused.Store(paused)
		e.logger.Info("camera orbit", zap.Bool("paused", paused))
	case common.KeyF:
		enabled := !e.profiler.Enabled()
		e.profiler.SetEnabled(enabled)
		e.logger.Info("profiling", zap.Bool("enabled", enabled))
	case common.KeyEsc:
		e.Quit()
	}
}

func (e *engine) stepLights(delta int) {
	if _, err := e.AdjustLights(delta); err != nil {
		e.logger.Warn("light count rejected", zap.Error(err))
		return
	}
	e.updateTitle()
}

// updateTitle shows the active light count in the title bar.
func (e *engine) updateTitle() {
	if e.window == nil || e.title == "" {
		return
	}
	e.window.SetTitle(fmt.Sprintf("%s (%d lights)", e.title, e.activeLights()))
}

func (e *engine) activeLights() int {
	if ls := e.scene.Lights(); ls != nil {
		return ls.NumLights()
	}
	return 0
}
