package material

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
	"github.com/stretchr/testify/assert"
)

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial()
	assert.Equal(t, [3]float32{1, 1, 1}, m.BaseColor())
	assert.Equal(t, float32(1), m.Roughness())
	assert.Equal(t, float32(0), m.Metallic())
	assert.Equal(t, uint8(0), m.ID())
}

func TestMaterialAttributesRoundTrip(t *testing.T) {
	m := NewMaterial(
		WithName("brick"),
		WithID(7),
		WithBaseColor([3]float32{0.8, 0.4, 0.2}),
		WithRoughness(0.6),
		WithMetallic(0.1),
	)

	a := m.Attributes([3]float32{0, 1, 0})
	s, ok := gbuffer.Unpack(gbuffer.Pack(gbuffer.Encode(a)))
	assert.True(t, ok)
	assert.Equal(t, uint8(7), s.MaterialID)
	assert.Equal(t, [3]uint8{204, 102, 51}, s.Albedo)
	assert.Equal(t, "brick", m.Name())
}

func TestMaterialParams(t *testing.T) {
	p := NewMaterial(WithID(3)).Params()
	assert.Equal(t, 32, p.Size())
	buf := p.Marshal()
	assert.Len(t, buf, 32)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[20:24]))
}
