package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faceNormal returns the counter-clockwise normal of triangle t.
func faceNormal(m Model, t int) [3]float32 {
	v := m.Vertices()
	idx := m.Indices()
	a, b, c := v[idx[3*t]].Position, v[idx[3*t+1]].Position, v[idx[3*t+2]].Position
	return common.Cross3(common.Sub3(b, a), common.Sub3(c, a))
}

func TestGPUVertexSize(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}}
	assert.Equal(t, 32, v.Size())
	assert.Len(t, v.Marshal(), 32)
	assert.Equal(t, v.Marshal(), NewModel(WithVertices([]GPUVertex{v})).VertexData())
}

func TestNewTriangle(t *testing.T) {
	m := NewTriangle([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})
	require.Equal(t, 3, m.IndexCount())
	assert.Equal(t, [3]float32{0, 0, 1}, m.Vertices()[0].Normal)
	assert.Equal(t, float32(1), m.BoundingRadius())
	assert.Equal(t, material.Default, m.Material())
	assert.Len(t, m.IndexData(), 12)
}

func TestPrimitivesWindOutward(t *testing.T) {
	tests := []struct {
		name  string
		model Model
	}{
		{"cube", NewCube(2)},
		{"sphere", NewSphere(1, 16, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.model.Vertices()
			idx := tt.model.Indices()
			for tri := range len(idx) / 3 {
				n := faceNormal(tt.model, tri)
				if common.Length3(n) < 1e-6 {
					continue // pole triangles collapse
				}
				centroid := common.Scale3(common.Add3(common.Add3(v[idx[3*tri]].Position, v[idx[3*tri+1]].Position), v[idx[3*tri+2]].Position), 1.0/3.0)
				assert.Positive(t, common.Dot3(n, centroid), "triangle %d faces inward", tri)
			}
		})
	}
}

func TestNewQuadFacesUp(t *testing.T) {
	m := NewQuad(4, 2)
	for tri := range m.IndexCount() / 3 {
		n := common.Normalize3(faceNormal(m, tri))
		assert.InDelta(t, 1, n[1], 1e-6)
	}
	assert.Equal(t, [3]float32{0, 1, 0}, m.Vertices()[0].Normal)
}

func TestSetMaterial(t *testing.T) {
	mat := material.NewMaterial(material.WithID(4))
	m := NewCube(1, WithMaterial(mat))
	assert.Equal(t, mat, m.Material())

	m.SetMaterial(nil)
	assert.Equal(t, material.Default, m.Material())
}
