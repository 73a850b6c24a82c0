package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewSceneDefaults(t *testing.T) {
	s := NewScene("main", WithLogger(zaptest.NewLogger(t)))
	assert.Equal(t, "main", s.Name())
	assert.True(t, s.Active())
	assert.NotNil(t, s.Camera())
	assert.Nil(t, s.Lights())
	assert.Zero(t, s.Count())
}

func TestSceneOptions(t *testing.T) {
	cam := camera.NewCamera()
	lights, err := light.NewLightSet(light.WithMaxLights(8), light.WithNumLights(4))
	require.NoError(t, err)

	s := NewScene("opts",
		WithActive(false),
		WithCamera(cam),
		WithLights(lights),
		WithAmbient([3]float32{0.1, 0.1, 0.1}),
		WithBackground([3]float32{0, 0, 0.2}),
		WithLogger(zaptest.NewLogger(t)),
	)
	assert.False(t, s.Active())
	assert.Same(t, cam, s.Camera())
	assert.Equal(t, 4, s.Lights().NumLights())
	assert.Equal(t, [3]float32{0.1, 0.1, 0.1}, s.Ambient())
	assert.Equal(t, [3]float32{0, 0, 0.2}, s.Background())

	s.SetActive(true)
	s.SetName("renamed")
	assert.True(t, s.Active())
	assert.Equal(t, "renamed", s.Name())
}

func TestAddGetRemove(t *testing.T) {
	s := NewScene("registry", WithLogger(zaptest.NewLogger(t)))

	a := game_object.NewGameObject()
	b := game_object.NewGameObject(game_object.WithID(10))
	c := game_object.NewGameObject()

	assert.Equal(t, uint64(1), s.Add(a))
	assert.Equal(t, uint64(10), s.Add(b))
	assert.Equal(t, uint64(11), s.Add(c))
	assert.Equal(t, 3, s.Count())
	assert.Same(t, b, s.Get(10))

	s.Remove(10)
	s.Remove(42)
	assert.Nil(t, s.Get(10))
	assert.Equal(t, 2, s.Count())

	s.Clear()
	assert.Zero(t, s.Count())
}

func TestDrawablesOrderAndFiltering(t *testing.T) {
	red := material.NewMaterial(material.WithName("red"), material.WithID(3))
	cube := model.NewCube(1, model.WithMaterial(red))

	s := NewScene("drawables",
		WithObjects(
			game_object.NewGameObject(game_object.WithID(5), game_object.WithModel(cube), game_object.WithPosition(1, 0, 0)),
			game_object.NewGameObject(game_object.WithID(2), game_object.WithModel(cube)),
			game_object.NewGameObject(game_object.WithID(3)),
			game_object.NewGameObject(game_object.WithID(4), game_object.WithModel(cube), game_object.WithEnabled(false)),
			game_object.NewGameObject(game_object.WithID(6), game_object.WithModel(cube), game_object.WithScale(0, 1, 1)),
		),
		WithLogger(zaptest.NewLogger(t)),
	)

	var ids []uint64
	for d := range s.Drawables() {
		ids = append(ids, d.ID)
		assert.Same(t, red, d.Material)
		assert.Greater(t, d.Radius, float32(0))
	}
	assert.Equal(t, []uint64{2, 5}, ids)

	var objs []uint64
	for obj := range s.Objects() {
		objs = append(objs, obj.ID())
	}
	assert.Equal(t, []uint64{2, 3, 4, 5, 6}, objs)
}

func TestDrawableTransformAndNormalMatrix(t *testing.T) {
	s := NewScene("transform", WithLogger(zaptest.NewLogger(t)))
	s.Add(game_object.NewGameObject(
		game_object.WithModel(model.NewQuad(2, 2)),
		game_object.WithPosition(0, 3, 0),
		game_object.WithScale(2, 1, 1),
	))

	var got []Drawable
	for d := range s.Drawables() {
		got = append(got, d)
	}
	require.Len(t, got, 1)
	d := got[0]
	assert.Equal(t, float32(3), d.Transform[13])
	assert.Equal(t, [3]float32{0, 3, 0}, d.Center)
	assert.InDelta(t, 0.5, d.NormalMatrix[0], 1e-6)
	assert.InDelta(t, 1, d.NormalMatrix[5], 1e-6)
	assert.Zero(t, d.NormalMatrix[13])
}

func TestDrawablesStopsEarly(t *testing.T) {
	s := NewScene("early", WithLogger(zaptest.NewLogger(t)))
	for range 4 {
		s.Add(game_object.NewGameObject(game_object.WithModel(model.NewCube(1))))
	}
	n := 0
	for range s.Drawables() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}
