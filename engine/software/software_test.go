package software

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/frame"
	"github.com/Carmen-Shannon/oxy-clustered/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var background = [3]float32{0, 0, 0.1}

func newTestScene(t *testing.T, numLights int) scene.Scene {
	t.Helper()
	log := zaptest.NewLogger(t)
	cam := camera.NewCamera(
		camera.WithPosition([3]float32{0, 5, 12}),
		camera.WithTarget([3]float32{0, 1, 0}),
		camera.WithDepthRange(0.1, 60),
	)
	opts := []scene.SceneBuilderOption{
		scene.WithCamera(cam),
		scene.WithAmbient([3]float32{0.03, 0.03, 0.03}),
		scene.WithBackground(background),
		scene.WithObjects(
			game_object.NewGameObject(game_object.WithModel(model.NewQuad(20, 20))),
			game_object.NewGameObject(game_object.WithModel(model.NewSphere(1, 16, 8)), game_object.WithPosition(-2, 1, 0)),
			game_object.NewGameObject(game_object.WithModel(model.NewCube(1.5)), game_object.WithPosition(2, 0.75, 0)),
		),
		scene.WithLogger(log),
	}
	if numLights > 0 {
		lights, err := light.NewLightSet(
			light.WithMaxLights(numLights),
			light.WithNumLights(numLights),
			light.WithBounds(common.AABB{Min: [3]float32{-8, 0, -8}, Max: [3]float32{8, 4, 8}}),
			light.WithSeed(3),
			light.WithLogger(log),
		)
		require.NoError(t, err)
		opts = append(opts, scene.WithLights(lights))
	}
	return scene.NewScene("software", opts...)
}

func newTestBackend(t *testing.T, sc scene.Scene, opts ...BackendBuilderOption) Backend {
	t.Helper()
	opts = append([]BackendBuilderOption{
		WithViewport(96, 54),
		WithWorkers(3),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	b, err := NewBackend(sc, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func countNot(img *image.RGBA, rgb [3]float32) int {
	want := [3]uint8{uint8(rgb[0]*255 + 0.5), uint8(rgb[1]*255 + 0.5), uint8(rgb[2]*255 + 0.5)}
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != want[0] || img.Pix[i+1] != want[1] || img.Pix[i+2] != want[2] {
			n++
		}
	}
	return n
}

func TestBackendRendersFrames(t *testing.T) {
	b := newTestBackend(t, newTestScene(t, 64))
	o := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t)))

	n, err := Render(context.Background(), o, 3, 0, 1.0/30)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, uint64(3), o.Frame())

	stats := b.Stats()
	assert.Equal(t, 3, stats.Geometry.Drawables)
	assert.Positive(t, stats.Geometry.Fragments)
	assert.Equal(t, b.Grid().Count(), b.Clusters().Header()[0])
	assert.Equal(t, uint32(64), b.Clusters().NumLights())

	img := b.Image()
	assert.Equal(t, image.Rect(0, 0, 96, 54), img.Bounds())
	assert.Positive(t, countNot(img, background), "scene geometry must be visible")
}

func TestBackendMatchesReference(t *testing.T) {
	clustered := newTestBackend(t, newTestScene(t, 128))
	reference := newTestBackend(t, newTestScene(t, 128), WithReference(true))

	for _, b := range []Backend{clustered, reference} {
		o := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, o.RenderFrame(2.5))
	}

	requireSameImage(t, reference.Image(), clustered.Image())
}

// requireSameImage allows one step of rounding difference per channel.
func requireSameImage(t *testing.T, want, got *image.RGBA) {
	t.Helper()
	require.Len(t, got.Pix, len(want.Pix))
	for i := range want.Pix {
		d := int(got.Pix[i]) - int(want.Pix[i])
		require.LessOrEqual(t, d*d, 1, "byte %d", i)
	}
}

func TestBackendFollowsCameraDepthRange(t *testing.T) {
	sc := newTestScene(t, 128)
	sc.Camera().SetDepthRange(0.1, 6)
	clustered := newTestBackend(t, sc)
	assert.Equal(t, float32(6), clustered.Grid().Far())

	sc.Camera().SetDepthRange(0.1, 60)
	reference := newTestBackend(t, newTestScene(t, 128), WithReference(true))
	for _, b := range []Backend{clustered, reference} {
		require.NoError(t, frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t))).RenderFrame(2.5))
	}

	assert.Equal(t, float32(60), clustered.Grid().Far())
	requireSameImage(t, reference.Image(), clustered.Image())
}

func TestBackendRejectsUnusableCameraDepthRange(t *testing.T) {
	sc := newTestScene(t, 8)
	b := newTestBackend(t, sc)
	sc.Camera().SetDepthRange(0, 60)

	err := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t))).RenderFrame(0)
	assert.ErrorIs(t, err, cluster.ErrInvalidGrid)
	assert.Equal(t, float32(0.1), b.Grid().Near())
}

func TestBackendUsesCameraSampledAtAssignment(t *testing.T) {
	sc := newTestScene(t, 128)
	clustered := newTestBackend(t, sc)
	reference := newTestBackend(t, newTestScene(t, 128), WithReference(true))
	require.NoError(t, frame.NewOrchestrator(reference, frame.WithLogger(zaptest.NewLogger(t))).RenderFrame(2.5))

	o := frame.NewOrchestrator(clustered, frame.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, o.Advance(frame.StageLightAnimation, 2.5))
	require.NoError(t, o.Advance(frame.StageClusterAssignment, 2.5))
	sc.Camera().Orbit(1.2, 0.4, 12)
	for _, stage := range []frame.Stage{frame.StageGeometry, frame.StageShadingResolve, frame.StagePresent} {
		require.NoError(t, o.Advance(stage, 2.5))
	}

	requireSameImage(t, reference.Image(), clustered.Image())

	// The next frame picks up the moved camera.
	require.NoError(t, o.RenderFrame(2.5))
	assert.NotEqual(t, reference.Image().Pix, clustered.Image().Pix)
}

func TestBackendDeterministic(t *testing.T) {
	a := newTestBackend(t, newTestScene(t, 32), WithWorkers(1))
	b := newTestBackend(t, newTestScene(t, 32), WithWorkers(5))
	for _, be := range []Backend{a, b} {
		require.NoError(t, frame.NewOrchestrator(be, frame.WithLogger(zaptest.NewLogger(t))).RenderFrame(1))
	}
	assert.Equal(t, a.Image().Pix, b.Image().Pix)
}

func TestBackendWithoutLights(t *testing.T) {
	b := newTestBackend(t, newTestScene(t, 0))
	o := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, o.RenderFrame(0))

	assert.Zero(t, b.Clusters().NumLights())
	assert.Zero(t, b.Stats().Clusters.Assignments)
	assert.Positive(t, countNot(b.Image(), background))
}

func TestNewBackendRequiresScene(t *testing.T) {
	_, err := NewBackend(nil)
	assert.ErrorIs(t, err, ErrNoScene)
}

func TestResize(t *testing.T) {
	sc := newTestScene(t, 8)
	b := newTestBackend(t, sc)

	require.NoError(t, b.Resize(64, 64))
	w, h := b.Grid().Viewport()
	assert.Equal(t, uint32(64), w)
	assert.Equal(t, uint32(64), h)
	assert.Equal(t, 64, b.Target().Width)
	assert.Equal(t, image.Rect(0, 0, 64, 64), b.Image().Bounds())
	assert.InDelta(t, 1.0, sc.Camera().Aspect(), 1e-6)

	o := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, o.RenderFrame(0))

	assert.Error(t, b.Resize(0, 10))
}

type failingPresenter struct{ err error }

func (p failingPresenter) Present(uint64, *image.RGBA) error { return p.err }

func TestPresenterErrorAbortsFrame(t *testing.T) {
	boom := errors.New("disk full")
	b := newTestBackend(t, newTestScene(t, 4), WithPresenter(failingPresenter{err: boom}))
	o := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t)))

	n, err := Render(context.Background(), o, 2, 0, 0.1)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Equal(t, frame.StageIdle, o.Stage())
}

func TestPNGWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	w, err := NewPNGWriter(dir, 2, zaptest.NewLogger(t))
	require.NoError(t, err)

	b := newTestBackend(t, newTestScene(t, 16), WithPresenter(w))
	o := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t)))
	_, err = Render(context.Background(), o, 2, 0, 0.5)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Len(t, w.Written(), 2)
	for _, name := range []string{"frame_0000.png", "frame_0001.png"} {
		f, err := os.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 96, 54), img.Bounds())
	}
}

func TestRenderStopsOnCancel(t *testing.T) {
	b := newTestBackend(t, newTestScene(t, 4))
	o := frame.NewOrchestrator(b, frame.WithLogger(zaptest.NewLogger(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := Render(ctx, o, 5, 0, 0.1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Zero(t, o.Frame())
}
