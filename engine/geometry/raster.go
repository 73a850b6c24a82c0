package geometry

import (
	"math"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
)

// clipCapacity bounds the vertex count of a triangle clipped by two planes.
const clipCapacity = 8

type clipVertex struct {
	pos    [4]float32
	normal [3]float32
}

type screenVertex struct {
	x, y   float32 // pixel space, origin top-left
	z      float32 // normalized device depth
	invW   float32
	normal [3]float32 // world normal scaled by invW
}

// screenTriangle is a projected triangle with positive edge-function area.
// Edge i is the edge opposite vertex i.
type screenTriangle struct {
	v       [3]screenVertex
	area    float32
	topLeft [3]bool
	minX    int
	maxX    int
	minY    int
	maxY    int
	attrs   gbuffer.Attributes
}

type triangleSetup struct {
	width     float32
	height    float32
	cullMode  CullMode
	frontFace FrontFace
}

// appendDrawable transforms, clips and projects every triangle of d and appends
// the visible ones to tris. It returns the grown slice, the number of source
// triangles and how many of them produced nothing.
func (s triangleSetup) appendDrawable(tris []screenTriangle, viewProj [16]float32, d scene.Drawable) ([]screenTriangle, int, int) {
	if d.Model == nil {
		return tris, 0, 0
	}
	mat := d.Material
	if mat == nil {
		mat = material.Default
	}
	attrs := mat.Attributes([3]float32{})

	var mvp [16]float32
	common.Mul4(mvp[:], viewProj[:], d.Transform[:])
	verts := d.Model.Vertices()
	clip := make([]clipVertex, len(verts))
	for i, v := range verts {
		clip[i].pos = common.TransformHomogeneous(mvp[:], [4]float32{v.Position[0], v.Position[1], v.Position[2], 1})
		clip[i].normal = common.TransformDirection(d.NormalMatrix[:], v.Normal)
	}

	var poly, scratch [clipCapacity]clipVertex
	indices := d.Model.Indices()
	submitted, dropped := 0, 0
	for t := 0; t+2 < len(indices); t += 3 {
		submitted++
		i0, i1, i2 := int(indices[t]), int(indices[t+1]), int(indices[t+2])
		if i0 >= len(clip) || i1 >= len(clip) || i2 >= len(clip) {
			dropped++
			continue
		}
		poly[0], poly[1], poly[2] = clip[i0], clip[i1], clip[i2]
		n := clipPlane(poly[:3], scratch[:], nearDistance)
		n = clipPlane(scratch[:n], poly[:], farDistance)
		if n < 3 {
			dropped++
			continue
		}
		emitted := 0
		for k := 1; k+1 < n; k++ {
			if tri, ok := s.project(poly[0], poly[k], poly[k+1], attrs); ok {
				tris = append(tris, tri)
				emitted++
			}
		}
		if emitted == 0 {
			dropped++
		}
	}
	return tris, submitted, dropped
}

func nearDistance(v clipVertex) float32 { return v.pos[2] }

func farDistance(v clipVertex) float32 { return v.pos[3] - v.pos[2] }

// clipPlane clips the closed polygon in against the half-space dist >= 0 and
// writes the result to out.
func clipPlane(in, out []clipVertex, dist func(clipVertex) float32) int {
	n := 0
	for i := range in {
		a := in[i]
		b := in[(i+1)%len(in)]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out[n] = a
			n++
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			var v clipVertex
			for k := range 4 {
				v.pos[k] = a.pos[k] + (b.pos[k]-a.pos[k])*t
			}
			v.normal = common.Lerp3(a.normal, b.normal, t)
			out[n] = v
			n++
		}
	}
	return n
}

// project performs the perspective divide and viewport transform, applies
// facing rules and normalizes the winding so that every edge function is
// non-negative inside the triangle.
func (s triangleSetup) project(a, b, c clipVertex, attrs gbuffer.Attributes) (screenTriangle, bool) {
	var t screenTriangle
	for i, cv := range [3]clipVertex{a, b, c} {
		w := cv.pos[3]
		if !(w > 0) || math.IsInf(float64(w), 1) {
			return t, false
		}
		invW := 1 / w
		t.v[i] = screenVertex{
			x:      (cv.pos[0]*invW*0.5 + 0.5) * s.width,
			y:      (0.5 - cv.pos[1]*invW*0.5) * s.height,
			z:      cv.pos[2] * invW,
			invW:   invW,
			normal: common.Scale3(cv.normal, invW),
		}
	}

	area := edge(t.v[0], t.v[1], t.v[2].x, t.v[2].y)
	if area == 0 || math.IsNaN(float64(area)) || math.IsInf(float64(area), 0) {
		return t, false
	}
	// The viewport flips Y, so counter-clockwise in NDC has negative area here.
	front := area < 0
	if s.frontFace == FrontFaceCW {
		front = !front
	}
	switch s.cullMode {
	case CullBack:
		if !front {
			return t, false
		}
	case CullFront:
		if front {
			return t, false
		}
	}
	if area < 0 {
		t.v[1], t.v[2] = t.v[2], t.v[1]
		area = -area
	}
	t.area = area
	t.topLeft = [3]bool{
		isTopLeft(t.v[1], t.v[2]),
		isTopLeft(t.v[2], t.v[0]),
		isTopLeft(t.v[0], t.v[1]),
	}

	minX := min(t.v[0].x, t.v[1].x, t.v[2].x)
	maxX := max(t.v[0].x, t.v[1].x, t.v[2].x)
	minY := min(t.v[0].y, t.v[1].y, t.v[2].y)
	maxY := max(t.v[0].y, t.v[1].y, t.v[2].y)
	// A pixel is a candidate when its center lies inside the bounding box.
	t.minX = pixelBound(minX-0.5, true, s.width)
	t.maxX = pixelBound(maxX-0.5, false, s.width)
	t.minY = pixelBound(minY-0.5, true, s.height)
	t.maxY = pixelBound(maxY-0.5, false, s.height)
	if t.minX > t.maxX || t.minY > t.maxY {
		return t, false
	}
	t.attrs = attrs
	return t, true
}

// pixelBound converts a bounding coordinate to a clamped pixel index, rounding
// up for lower bounds and down for upper bounds.
func pixelBound(v float32, lower bool, size float32) int {
	f := float64(v)
	if lower {
		f = math.Ceil(f)
	} else {
		f = math.Floor(f)
	}
	return int(common.Clamp(f, -1, float64(size)))
}

// edge is the signed parallelogram area spanned by a->b and a->p.
func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// isTopLeft reports whether a->b is a top or left edge for a triangle with
// positive area in the Y-down pixel space.
func isTopLeft(a, b screenVertex) bool {
	return (a.y == b.y && b.x > a.x) || b.y < a.y
}

func covers(w float32, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

// rasterizeBand draws every triangle into rows [y0, y1) of target and returns
// the number of fragments that passed the depth test.
func rasterizeBand(target *gbuffer.Target, tris []screenTriangle, y0, y1 int) int {
	fragments := 0
	maxX := target.Width - 1
	for i := range tris {
		t := &tris[i]
		ya := max(t.minY, y0)
		yb := min(t.maxY, y1-1)
		xa := max(t.minX, 0)
		xb := min(t.maxX, maxX)
		for y := ya; y <= yb; y++ {
			py := float32(y) + 0.5
			for x := xa; x <= xb; x++ {
				px := float32(x) + 0.5
				w0 := edge(t.v[1], t.v[2], px, py)
				w1 := edge(t.v[2], t.v[0], px, py)
				w2 := edge(t.v[0], t.v[1], px, py)
				if !covers(w0, t.topLeft[0]) || !covers(w1, t.topLeft[1]) || !covers(w2, t.topLeft[2]) {
					continue
				}
				l0, l1, l2 := w0/t.area, w1/t.area, w2/t.area
				z := l0*t.v[0].z + l1*t.v[1].z + l2*t.v[2].z
				if z < 0 || z > 1 {
					continue
				}
				idx := target.Index(x, y)
				if !(z < target.Depth[idx]) {
					continue
				}
				invW := l0*t.v[0].invW + l1*t.v[1].invW + l2*t.v[2].invW
				n := common.Add3(
					common.Add3(common.Scale3(t.v[0].normal, l0), common.Scale3(t.v[1].normal, l1)),
					common.Scale3(t.v[2].normal, l2),
				)
				attrs := t.attrs
				attrs.Normal = common.Normalize3(common.Scale3(n, 1/invW))
				target.Entries[idx] = gbuffer.Pack(gbuffer.Encode(attrs))
				target.Depth[idx] = z
				fragments++
			}
		}
	}
	return fragments
}
