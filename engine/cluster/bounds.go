package cluster

import (
	"github.com/Carmen-Shannon/oxy-clustered/common"
)

// boundsCache holds the view-space AABB of every cluster for one projection,
// viewport and depth range.
type boundsCache struct {
	aabbs     []common.AABB
	invProj   [16]float32
	width     uint32
	height    uint32
	near, far float32
	valid     bool
}

// update recomputes the AABBs when the projection, viewport or depth range changed since the last call.
// It reports whether a recompute happened.
func (b *boundsCache) update(grid Grid, invProj [16]float32) bool {
	w, h := grid.Viewport()
	near, far := grid.Near(), grid.Far()
	if b.valid && b.invProj == invProj && b.width == w && b.height == h && b.near == near && b.far == far {
		return false
	}
	if uint32(len(b.aabbs)) != grid.Count() {
		b.aabbs = make([]common.AABB, grid.Count())
	}
	ComputeBounds(grid, invProj, b.aabbs)
	b.invProj, b.width, b.height, b.valid = invProj, w, h, true
	b.near, b.far = near, far
	return true
}

// ComputeBounds fills out with the view-space AABB of every cluster of grid.
//
// Each tile's four screen corners are unprojected onto the near plane, giving
// rays from the eye. The rays are scaled to the slice's near and far depths and
// the AABB of the resulting eight points bounds the cluster. The projection must
// be a perspective projection looking down -Z.
//
// Parameters:
//   - grid: the cluster grid
//   - invProj: the inverse projection matrix (column-major)
//   - out: destination slice of at least grid.Count() AABBs
func ComputeBounds(grid Grid, invProj [16]float32, out []common.AABB) {
	dims := grid.Dims()
	w, h := grid.Viewport()

	// Rays through the tile corner grid, normalized to z = -1.
	rays := make([][3]float32, (dims[0]+1)*(dims[1]+1))
	for j := uint32(0); j <= dims[1]; j++ {
		py := float32(float64(j) * float64(h) / float64(dims[1]))
		for i := uint32(0); i <= dims[0]; i++ {
			px := float32(float64(i) * float64(w) / float64(dims[0]))
			ndc := [3]float32{2*px/float32(w) - 1, 1 - 2*py/float32(h), 0}
			p := common.Unproject(invProj[:], ndc)
			rays[j*(dims[0]+1)+i] = common.Scale3(p, -1/p[2])
		}
	}

	for cz := range dims[2] {
		dn, df := grid.SliceDepths(cz)
		for cy := range dims[1] {
			for cx := range dims[0] {
				box := common.EmptyAABB()
				for _, c := range [4][2]uint32{{cx, cy}, {cx + 1, cy}, {cx, cy + 1}, {cx + 1, cy + 1}} {
					r := rays[c[1]*(dims[0]+1)+c[0]]
					box.Extend([3]float32{r[0] * dn, r[1] * dn, -dn})
					box.Extend([3]float32{r[0] * df, r[1] * df, -df})
				}
				out[grid.Index(cx, cy, cz)] = box
			}
		}
	}
}
