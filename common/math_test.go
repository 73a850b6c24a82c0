package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approx3(t *testing.T, want, got [3]float32, eps float32) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], float64(eps), "component %d: want %v got %v", i, want, got)
	}
}

func TestMul4Identity(t *testing.T) {
	var id, m, out [16]float32
	Identity(id[:])
	BuildModelMatrix(m[:], 1, 2, 3, 0.3, 0.2, 0.1, 2, 2, 2)

	Mul4(out[:], m[:], id[:])
	assert.Equal(t, m, out)

	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)
}

func TestInvert4RoundTrip(t *testing.T) {
	var m, inv, out [16]float32
	BuildModelMatrix(m[:], 4, -2, 7, 0.5, 1.1, -0.3, 1, 3, 0.5)

	require.True(t, Invert4(inv[:], m[:]))
	Mul4(out[:], m[:], inv[:])

	for i := range 16 {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		assert.InDelta(t, want, out[i], 1e-5, "element %d", i)
	}
}

func TestInvert4Singular(t *testing.T) {
	var m, out [16]float32
	out[0] = 42
	assert.False(t, Invert4(out[:], m[:]))
	assert.Equal(t, float32(42), out[0], "singular input must leave out untouched")
}

func TestPerspectiveDepthRange(t *testing.T) {
	var proj [16]float32
	Perspective(proj[:], float32(math.Pi/3), 16.0/9.0, 0.5, 50)

	near := TransformHomogeneous(proj[:], [4]float32{0, 0, -0.5, 1})
	far := TransformHomogeneous(proj[:], [4]float32{0, 0, -50, 1})

	assert.InDelta(t, 0, near[2]/near[3], 1e-6)
	assert.InDelta(t, 1, far[2]/far[3], 1e-6)
}

func TestUnprojectInvertsProjection(t *testing.T) {
	var proj, inv [16]float32
	Perspective(proj[:], float32(math.Pi/4), 1.5, 0.1, 100)
	require.True(t, Invert4(inv[:], proj[:]))

	view := [3]float32{1.5, -0.75, -12}
	clip := TransformHomogeneous(proj[:], [4]float32{view[0], view[1], view[2], 1})
	ndc := [3]float32{clip[0] / clip[3], clip[1] / clip[3], clip[2] / clip[3]}

	approx3(t, view, Unproject(inv[:], ndc), 1e-3)
}

func TestLookAtForwardIsNegativeZ(t *testing.T) {
	var view [16]float32
	LookAt(view[:], 0, 0, 10, 0, 0, 0, 0, 1, 0)

	p := TransformPoint(view[:], [3]float32{0, 0, 0})
	approx3(t, [3]float32{0, 0, -10}, p, 1e-6)
}

func TestNormalMatrixNonUniformScale(t *testing.T) {
	var m, n [16]float32
	BuildModelMatrix(m[:], 5, 5, 5, 0, 0, 0, 2, 1, 1)
	require.True(t, NormalMatrix(n[:], m[:]))

	// A plane x = y scaled by 2 along x has normal (1, -2, 0) direction.
	got := Normalize3(TransformDirection(n[:], Normalize3([3]float32{1, -1, 0})))
	approx3(t, Normalize3([3]float32{0.5, -1, 0}), got, 1e-5)
}

func TestVectorHelpers(t *testing.T) {
	a := [3]float32{1, 2, 3}
	b := [3]float32{4, 5, 6}

	assert.Equal(t, [3]float32{5, 7, 9}, Add3(a, b))
	assert.Equal(t, [3]float32{-3, -3, -3}, Sub3(a, b))
	assert.Equal(t, float32(32), Dot3(a, b))
	assert.Equal(t, [3]float32{-3, 6, -3}, Cross3(a, b))
	assert.Equal(t, [3]float32{4, 10, 18}, Mul3(a, b))
	assert.Equal(t, [3]float32{2.5, 3.5, 4.5}, Lerp3(a, b, 0.5))
	assert.InDelta(t, 1, Length3(Normalize3(b)), 1e-6)
	assert.Equal(t, [3]float32{}, Normalize3([3]float32{}))
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, float32(-1), Clamp(float32(-4), -1, 1))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]uint32{}))
	b := SliceToBytes([]uint32{0x04030201})
	assert.Equal(t, []byte{1, 2, 3, 4}, b)
}
