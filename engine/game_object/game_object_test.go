package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/stretchr/testify/assert"
)

func TestNewGameObjectDefaults(t *testing.T) {
	g := NewGameObject()
	assert.True(t, g.Enabled())
	assert.Equal(t, [3]float32{1, 1, 1}, g.Scale())
	assert.Nil(t, g.Model())

	var id [16]float32
	common.Identity(id[:])
	assert.Equal(t, id, g.ModelMatrix())
}

func TestModelMatrixTranslatesAndScales(t *testing.T) {
	g := NewGameObject(WithPosition(1, 2, 3), WithScale(2, 2, 2))
	m := g.ModelMatrix()
	p := common.TransformPoint(m[:], [3]float32{1, 0, 0})
	assert.InDelta(t, 3, p[0], 1e-6)
	assert.InDelta(t, 2, p[1], 1e-6)
	assert.InDelta(t, 3, p[2], 1e-6)
}

func TestBoundingSphere(t *testing.T) {
	g := NewGameObject(
		WithModel(model.NewSphere(1.5, 8, 4)),
		WithPosition(0, 4, 0),
		WithScale(1, -3, 2),
	)
	c, r := g.BoundingSphere()
	assert.Equal(t, [3]float32{0, 4, 0}, c)
	assert.Equal(t, float32(4.5), r)

	g.SetEnabled(false)
	assert.False(t, g.Enabled())
}
