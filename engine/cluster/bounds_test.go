package cluster

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inflate grows a box by a relative epsilon to absorb float rounding.
func inflate(b common.AABB, eps float32) common.AABB {
	for i := range 3 {
		pad := eps * max(1, float32(math.Abs(float64(b.Min[i]))), float32(math.Abs(float64(b.Max[i]))))
		b.Min[i] -= pad
		b.Max[i] += pad
	}
	return b
}

func TestComputeBoundsContainsPixelPoints(t *testing.T) {
	for _, slicing := range []Slicing{SlicingLogarithmic, SlicingLinear} {
		t.Run(slicing.String(), func(t *testing.T) {
			g, err := NewGrid(WithViewport(640, 360), WithSlicing(slicing))
			require.NoError(t, err)

			var proj, invProj [16]float32
			common.Perspective(proj[:], float32(math.Pi/3), 640.0/360.0, 0.1, 100)
			require.True(t, common.Invert4(invProj[:], proj[:]))

			bounds := make([]common.AABB, g.Count())
			ComputeBounds(g, invProj, bounds)

			rng := rand.New(rand.NewPCG(1, 2))
			for range 2000 {
				px := rng.Float32() * 640
				py := rng.Float32() * 360
				depth := 0.1 + rng.Float32()*99.9

				ndc := [3]float32{2*px/640 - 1, 1 - 2*py/360, 0}
				near := common.Unproject(invProj[:], ndc)
				p := common.Scale3(near, depth/-near[2])

				c := g.ClusterAt(px, py, depth)
				assert.True(t, inflate(bounds[c], 1e-5).Contains(p),
					"pixel (%v,%v) depth %v outside cluster %d", px, py, depth, c)
			}
		})
	}
}

func TestComputeBoundsDepthExtent(t *testing.T) {
	g, err := NewGrid(WithViewport(640, 360))
	require.NoError(t, err)

	var proj, invProj [16]float32
	common.Perspective(proj[:], float32(math.Pi/3), 640.0/360.0, 0.1, 100)
	require.True(t, common.Invert4(invProj[:], proj[:]))

	bounds := make([]common.AABB, g.Count())
	ComputeBounds(g, invProj, bounds)

	for cz := range g.Dims()[2] {
		dn, df := g.SliceDepths(cz)
		box := bounds[g.Index(3, 4, cz)]
		assert.Equal(t, -df, box.Min[2])
		assert.Equal(t, -dn, box.Max[2])
	}
}
