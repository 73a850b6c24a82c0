package geometry

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func identity() [16]float32 {
	var m [16]float32
	common.Identity(m[:])
	return m
}

// drawableAt wraps a model placed at the origin without transform.
func drawableAt(id uint64, mdl model.Model) scene.Drawable {
	return scene.Drawable{
		ID:           id,
		Model:        mdl,
		Material:     mdl.Material(),
		Transform:    identity(),
		NormalMatrix: identity(),
		Radius:       mdl.BoundingRadius(),
	}
}

func frontCamera(z float32) camera.Camera {
	return camera.NewCamera(
		camera.WithPosition([3]float32{0, 0, z}),
		camera.WithTarget([3]float32{0, 0, 0}),
	)
}

func unpackAt(t *testing.T, target *gbuffer.Target, x, y int) gbuffer.Attributes {
	t.Helper()
	e, _ := target.At(x, y)
	s, ok := gbuffer.Unpack(e)
	require.True(t, ok, "pixel (%d, %d) not covered", x, y)
	return s.Decode()
}

func TestRenderTriangleWritesSurface(t *testing.T) {
	mat := material.NewMaterial(
		material.WithBaseColor([3]float32{1, 0, 0}),
		material.WithRoughness(0.5),
		material.WithID(7),
	)
	tri := model.NewTriangle(
		[3]float32{-1, -1, 0}, [3]float32{1, -1, 0}, [3]float32{0, 1, 0},
		model.WithMaterial(mat),
	)
	target := gbuffer.NewTarget(64, 64)
	pass := NewPass(WithLogger(zaptest.NewLogger(t)))

	stats, err := pass.Render(target, frontCamera(3).ViewProjectionMatrix(), slices.Values([]scene.Drawable{drawableAt(1, tri)}))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Drawables)
	assert.Equal(t, 1, stats.Triangles)
	assert.Zero(t, stats.Culled)
	assert.Greater(t, stats.Fragments, 0)

	a := unpackAt(t, target, 32, 32)
	assert.InDelta(t, 0, a.Normal[0], 1e-3)
	assert.InDelta(t, 0, a.Normal[1], 1e-3)
	assert.InDelta(t, 1, a.Normal[2], 1e-3)
	assert.Equal(t, [3]float32{1, 0, 0}, a.Albedo)
	assert.Equal(t, uint8(7), a.MaterialID)
	assert.InDelta(t, 0.5, a.Roughness, 1.0/255)

	_, depth := target.At(32, 32)
	assert.Greater(t, depth, float32(0))
	assert.Less(t, depth, float32(1))

	e, depth := target.At(0, 0)
	assert.Equal(t, gbuffer.Entry{}, e)
	assert.Equal(t, float32(1), depth)

	covered := 0
	for _, e := range target.Entries {
		if e != (gbuffer.Entry{}) {
			covered++
		}
	}
	assert.Equal(t, stats.Fragments, covered)
}

func TestBackFaceCulling(t *testing.T) {
	// Clockwise when seen from +Z.
	tri := model.NewTriangle([3]float32{-1, -1, 0}, [3]float32{0, 1, 0}, [3]float32{1, -1, 0})
	viewProj := frontCamera(3).ViewProjectionMatrix()

	target := gbuffer.NewTarget(32, 32)
	stats, err := NewPass(WithLogger(zaptest.NewLogger(t))).Render(target, viewProj, slices.Values([]scene.Drawable{drawableAt(1, tri)}))
	require.NoError(t, err)
	assert.Zero(t, stats.Fragments)
	assert.Equal(t, 1, stats.Clipped)

	stats, err = NewPass(WithCullMode(CullNone), WithLogger(zaptest.NewLogger(t))).Render(target, viewProj, slices.Values([]scene.Drawable{drawableAt(1, tri)}))
	require.NoError(t, err)
	assert.Greater(t, stats.Fragments, 0)
	a := unpackAt(t, target, 16, 16)
	assert.InDelta(t, -1, a.Normal[2], 1e-3)

	target.Clear()
	stats, err = NewPass(WithFrontFace(FrontFaceCW), WithLogger(zaptest.NewLogger(t))).Render(target, viewProj, slices.Values([]scene.Drawable{drawableAt(1, tri)}))
	require.NoError(t, err)
	assert.Greater(t, stats.Fragments, 0)

	target.Clear()
	stats, err = NewPass(WithCullMode(CullFront), WithLogger(zaptest.NewLogger(t))).Render(target, viewProj, slices.Values([]scene.Drawable{drawableAt(1, tri)}))
	require.NoError(t, err)
	assert.Greater(t, stats.Fragments, 0)
}

func TestDepthTestKeepsNearest(t *testing.T) {
	red := material.NewMaterial(material.WithBaseColor([3]float32{1, 0, 0}))
	green := material.NewMaterial(material.WithBaseColor([3]float32{0, 1, 0}))
	far := drawableAt(1, model.NewTriangle([3]float32{-1, -1, 0}, [3]float32{1, -1, 0}, [3]float32{0, 1, 0}, model.WithMaterial(red)))
	near := drawableAt(2, model.NewTriangle([3]float32{-1, -1, 1}, [3]float32{1, -1, 1}, [3]float32{0, 1, 1}, model.WithMaterial(green)))
	near.Center = [3]float32{0, 0, 1}
	viewProj := frontCamera(4).ViewProjectionMatrix()

	for name, order := range map[string][]scene.Drawable{
		"far first":  {far, near},
		"near first": {near, far},
	} {
		t.Run(name, func(t *testing.T) {
			target := gbuffer.NewTarget(32, 32)
			_, err := NewPass(WithLogger(zaptest.NewLogger(t))).Render(target, viewProj, slices.Values(order))
			require.NoError(t, err)
			assert.Equal(t, [3]float32{0, 1, 0}, unpackAt(t, target, 16, 16).Albedo)
		})
	}
}

func TestSharedEdgeCoveredOnce(t *testing.T) {
	// With an identity view-projection NDC maps straight onto the viewport and the
	// shared diagonal passes through pixel centers.
	lower := model.NewTriangle([3]float32{-1, -1, 0.5}, [3]float32{1, -1, 0.5}, [3]float32{1, 1, 0.5})
	upper := model.NewTriangle([3]float32{-1, -1, 0.5}, [3]float32{1, 1, 0.5}, [3]float32{-1, 1, 0.5})
	viewProj := identity()

	render := func(mdl model.Model) *gbuffer.Target {
		target := gbuffer.NewTarget(8, 8)
		d := drawableAt(1, mdl)
		d.Center = [3]float32{0, 0, 0.5}
		_, err := NewPass(WithLogger(zaptest.NewLogger(t))).Render(target, viewProj, slices.Values([]scene.Drawable{d}))
		require.NoError(t, err)
		return target
	}
	a := render(lower)
	b := render(upper)

	for i := range a.Entries {
		inA := a.Entries[i] != (gbuffer.Entry{})
		inB := b.Entries[i] != (gbuffer.Entry{})
		assert.True(t, inA != inB, "pixel %d covered by lower=%v upper=%v", i, inA, inB)
	}
}

func TestNearPlaneClipping(t *testing.T) {
	floor := game_object.NewGameObject(
		game_object.WithModel(model.NewQuad(100, 100)),
		game_object.WithPosition(0, -1, 0),
	)
	s := scene.NewScene("floor", scene.WithObjects(floor), scene.WithLogger(zaptest.NewLogger(t)))
	cam := camera.NewCamera(
		camera.WithPosition([3]float32{0, 0, 0}),
		camera.WithTarget([3]float32{0, 0, -1}),
		camera.WithDepthRange(0.1, 100),
	)

	target := gbuffer.NewTarget(32, 32)
	stats, err := NewPass(WithLogger(zaptest.NewLogger(t))).Render(target, cam.ViewProjectionMatrix(), s.Drawables())
	require.NoError(t, err)
	assert.Greater(t, stats.Fragments, 0)

	for y := range target.Height {
		for x := range target.Width {
			e, depth := target.At(x, y)
			if e == (gbuffer.Entry{}) {
				assert.Equal(t, float32(1), depth)
				continue
			}
			assert.GreaterOrEqual(t, depth, float32(0))
			assert.Less(t, depth, float32(1))
		}
	}
	bottom, _ := target.At(16, 31)
	top, _ := target.At(16, 0)
	assert.NotEqual(t, gbuffer.Entry{}, bottom)
	assert.Equal(t, gbuffer.Entry{}, top)
	assert.InDelta(t, 1, unpackAt(t, target, 16, 31).Normal[1], 1e-3)
}

func TestFrustumRejectsDrawable(t *testing.T) {
	d := drawableAt(1, model.NewCube(1))
	d.Center = [3]float32{0, 0, 50}

	target := gbuffer.NewTarget(16, 16)
	stats, err := NewPass(WithLogger(zaptest.NewLogger(t))).Render(target, frontCamera(3).ViewProjectionMatrix(), slices.Values([]scene.Drawable{d}))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Culled)
	assert.Zero(t, stats.Triangles)
	assert.Zero(t, stats.Fragments)
}

func TestBandsAreDeterministic(t *testing.T) {
	objs := []game_object.GameObject{
		game_object.NewGameObject(game_object.WithModel(model.NewSphere(1, 16, 8))),
		game_object.NewGameObject(game_object.WithModel(model.NewCube(1)), game_object.WithPosition(1.5, 0.5, 0), game_object.WithRotation(0.3, 0.6, 0)),
		game_object.NewGameObject(game_object.WithModel(model.NewQuad(6, 6)), game_object.WithPosition(0, -1, 0)),
	}
	s := scene.NewScene("bands", scene.WithObjects(objs...), scene.WithLogger(zaptest.NewLogger(t)))
	viewProj := camera.NewCamera(
		camera.WithPosition([3]float32{3, 3, 5}),
		camera.WithAspect(4.0/3.0),
	).ViewProjectionMatrix()

	render := func(bands int) *gbuffer.Target {
		target := gbuffer.NewTarget(80, 60)
		_, err := NewPass(WithBands(bands), WithLogger(zaptest.NewLogger(t))).Render(target, viewProj, s.Drawables())
		require.NoError(t, err)
		return target
	}
	single := render(1)
	for _, bands := range []int{0, 3, 7, 200} {
		got := render(bands)
		assert.Equal(t, single.Entries, got.Entries, "bands=%d", bands)
		assert.Equal(t, single.Depth, got.Depth, "bands=%d", bands)
	}
}

func TestInvalidTarget(t *testing.T) {
	pass := NewPass(WithLogger(zaptest.NewLogger(t)))
	_, err := pass.Render(nil, identity(), slices.Values([]scene.Drawable{}))
	assert.ErrorIs(t, err, ErrInvalidTarget)

	bad := gbuffer.NewTarget(4, 4)
	bad.Depth = bad.Depth[:3]
	_, err = pass.Render(bad, identity(), slices.Values([]scene.Drawable{}))
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestObjectUniformLayout(t *testing.T) {
	mat := material.NewMaterial(material.WithID(9))
	d := drawableAt(3, model.NewCube(1, model.WithMaterial(mat)))
	u := NewGPUObjectUniform(d)
	require.Equal(t, 160, u.Size())
	buf := u.Marshal()
	require.Len(t, buf, 160)
	assert.Equal(t, byte(9), buf[128+20])
	assert.Contains(t, GPUGeometrySource, "gbuffer_pack")
}
