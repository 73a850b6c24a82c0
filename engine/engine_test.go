package engine

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBackend struct {
	mu         sync.Mutex
	times      []float32
	resizes    [][2]int
	presentErr []error
	failErr    error
	closed     bool
}

func (b *fakeBackend) AnimateLights(t float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.times = append(b.times, t)
	return nil
}

func (b *fakeBackend) AssignClusters() error { return nil }
func (b *fakeBackend) RenderGeometry() error { return nil }

func (b *fakeBackend) ResolveShading() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failErr
}

func (b *fakeBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.presentErr) > 0 {
		err := b.presentErr[0]
		b.presentErr = b.presentErr[1:]
		return err
	}
	return nil
}

func (b *fakeBackend) Resize(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resizes = append(b.resizes, [2]int{width, height})
	return nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func newTestScene(t *testing.T, numLights int) scene.Scene {
	t.Helper()
	lights, err := light.NewLightSet(light.WithMaxLights(50), light.WithNumLights(numLights))
	require.NoError(t, err)
	cam := camera.NewCamera(
		camera.WithPosition([3]float32{10, 0, 0}),
		camera.WithTarget([3]float32{0, 0, 0}),
		camera.WithDepthRange(0.1, 100),
	)
	return scene.NewScene("test", scene.WithCamera(cam), scene.WithLights(lights))
}

func newTestEngine(t *testing.T, b *fakeBackend, numLights int, opts ...EngineBuilderOption) *engine {
	t.Helper()
	opts = append(opts, WithLogger(zaptest.NewLogger(t)))
	e, err := NewEngine(newTestScene(t, numLights), b, opts...)
	require.NoError(t, err)
	return e.(*engine)
}

func TestNewEngineRequiresSceneAndBackend(t *testing.T) {
	_, err := NewEngine(nil, &fakeBackend{})
	assert.ErrorIs(t, err, renderer.ErrNoScene)

	_, err = NewEngine(newTestScene(t, 1), nil)
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestHeadlessRunStopsAtFrameBudget(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(t, b, 10, WithMaxFrames(3), WithFixedTimeStep(0.5))

	require.NoError(t, e.Run())

	assert.Equal(t, uint64(3), e.Orchestrator().Frame())
	assert.Equal(t, []float32{0.5, 1.0, 1.5}, b.times)
	assert.True(t, b.closed)
}

func TestPausedLightsKeepClock(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(t, b, 10, WithMaxFrames(2), WithFixedTimeStep(0.5), WithLightsPaused(true))

	require.NoError(t, e.Run())
	assert.Equal(t, []float32{0, 0}, b.times)
}

func TestRunReturnsFrameError(t *testing.T) {
	boom := errors.New("device lost")
	b := &fakeBackend{failErr: boom}
	e := newTestEngine(t, b, 10)

	err := e.Run()
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, e.Orchestrator().Frame())
	assert.True(t, b.closed)
}

func TestSurfaceUnavailableSkipsFrame(t *testing.T) {
	b := &fakeBackend{presentErr: []error{renderer.ErrSurfaceUnavailable}}
	e := newTestEngine(t, b, 10, WithMaxFrames(2), WithFixedTimeStep(1))

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(2), e.Orchestrator().Frame())
	assert.Len(t, b.times, 3)
}

func TestQuitStopsUnboundedRun(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(t, b, 10, WithRenderFrameLimit(1000))

	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	time.Sleep(20 * time.Millisecond)
	e.Quit()
	e.Quit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.True(t, b.closed)
}

func TestResizeAppliedOnRenderThread(t *testing.T) {
	b := &fakeBackend{}
	e := newTestEngine(t, b, 10)

	assert.True(t, e.applyResize(), "no pending resize")
	assert.Empty(t, b.resizes)

	e.queueResize(640, 360)
	e.queueResize(800, 600)
	assert.True(t, e.applyResize())
	assert.Equal(t, [][2]int{{800, 600}}, b.resizes)

	e.queueResize(0, 0)
	assert.False(t, e.applyResize(), "minimized viewport is not drawable")
	assert.False(t, e.applyResize())
	assert.Len(t, b.resizes, 1)

	e.queueResize(1024, 768)
	assert.True(t, e.applyResize())
	assert.Equal(t, [2]int{1024, 768}, b.resizes[1])
}

func TestAdjustLightsClamps(t *testing.T) {
	e := newTestEngine(t, &fakeBackend{}, 10)

	n, err := e.AdjustLights(15)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = e.AdjustLights(1000)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	n, err = e.AdjustLights(-1000)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, e.Scene().Lights().NumLights())
}

func TestKeyBindings(t *testing.T) {
	e := newTestEngine(t, &fakeBackend{}, 10, WithLightStep(5))

	e.handleKey(common.KeyEqual)
	e.handleKey(common.KeyUp)
	assert.Equal(t, 20, e.activeLights())
	e.handleKey(common.KeyMinus)
	assert.Equal(t, 15, e.activeLights())
	e.handleKey(common.KeyDown)
	assert.Equal(t, 10, e.activeLights())

	e.handleKey(common.KeyP)
	assert.True(t, e.lightsPaused.Load())
	e.handleKey(common.KeySpace)
	assert.True(t, e.orbitPaused.Load())

	require.False(t, e.profiler.Enabled())
	e.handleKey(common.KeyF)
	assert.True(t, e.profiler.Enabled())

	e.handleKey(common.KeyEsc)
	select {
	case <-e.quitChannel:
	default:
		t.Fatal("escape did not quit")
	}
}

func TestOrbitFromCamera(t *testing.T) {
	cam := camera.NewCamera(camera.WithTarget([3]float32{1, 2, 3}))
	cam.Orbit(0.7, 0.3, 12)

	o := orbitFromCamera(cam)
	assert.InDelta(t, 0.7, o.azimuth, 1e-4)
	assert.InDelta(t, 0.3, o.elevation, 1e-4)
	assert.InDelta(t, 12, o.radius, 1e-4)

	degenerate := camera.NewCamera(camera.WithPosition([3]float32{1, 1, 1}), camera.WithTarget([3]float32{1, 1, 1}))
	assert.Equal(t, float32(minOrbitRadius), orbitFromCamera(degenerate).radius)
}

func TestOrbitControls(t *testing.T) {
	e := newTestEngine(t, &fakeBackend{}, 10, WithCameraOrbit(1))
	cam := e.Scene().Camera()

	e.tickOrbit(0.5)
	assert.InDelta(t, 0.5, e.orbit.azimuth, 1e-5)
	assert.InDelta(t, 10, common.Length3(cam.Position()), 1e-4)

	e.orbitPaused.Store(true)
	e.tickOrbit(0.5)
	assert.InDelta(t, 0.5, e.orbit.azimuth, 1e-5)

	e.moveOrbit(0, 10, 0.5)
	assert.InDelta(t, math.Pi/2-0.01, e.orbit.elevation, 1e-5)
	assert.InDelta(t, 5, e.orbit.radius, 1e-5)

	e.moveOrbit(0, 0, 0)
	assert.Equal(t, float32(minOrbitRadius), e.orbit.radius)
}
