package model

import (
	"math"

	"github.com/Carmen-Shannon/oxy-clustered/common"
)

// NewTriangle creates a single triangle model with a flat normal. The winding
// a, b, c is taken as counter-clockwise from the front.
//
// Parameters:
//   - a, b, c: model-space corners
//   - opts: additional ModelBuilderOption functions
//
// Returns:
//   - Model: the triangle model
func NewTriangle(a, b, c [3]float32, opts ...ModelBuilderOption) Model {
	n := common.Normalize3(common.Cross3(common.Sub3(b, a), common.Sub3(c, a)))
	vertices := []GPUVertex{
		{Position: a, Normal: n, TexCoord: [2]float32{0, 0}},
		{Position: b, Normal: n, TexCoord: [2]float32{1, 0}},
		{Position: c, Normal: n, TexCoord: [2]float32{0, 1}},
	}
	return NewModel(append([]ModelBuilderOption{
		WithName("triangle"),
		WithVertices(vertices),
		WithIndices([]uint32{0, 1, 2}),
	}, opts...)...)
}

// NewQuad creates a width x depth quad in the XZ plane facing +Y.
//
// Parameters:
//   - width: extent along X
//   - depth: extent along Z
//   - opts: additional ModelBuilderOption functions
//
// Returns:
//   - Model: the quad model
func NewQuad(width, depth float32, opts ...ModelBuilderOption) Model {
	var vertices []GPUVertex
	var indices []uint32
	vertices, indices = appendFace(vertices, indices,
		[3]float32{}, [3]float32{0, 0, depth / 2}, [3]float32{width / 2, 0, 0})
	return NewModel(append([]ModelBuilderOption{
		WithName("quad"),
		WithVertices(vertices),
		WithIndices(indices),
	}, opts...)...)
}

// NewCube creates an axis-aligned cube of edge length size centered on the origin.
//
// Parameters:
//   - size: the edge length
//   - opts: additional ModelBuilderOption functions
//
// Returns:
//   - Model: the cube model
func NewCube(size float32, opts ...ModelBuilderOption) Model {
	h := size / 2
	faces := [6][2][3]float32{
		{{0, h, 0}, {0, 0, h}}, // +X
		{{0, 0, h}, {0, h, 0}}, // -X
		{{0, 0, h}, {h, 0, 0}}, // +Y
		{{h, 0, 0}, {0, 0, h}}, // -Y
		{{h, 0, 0}, {0, h, 0}}, // +Z
		{{0, h, 0}, {h, 0, 0}}, // -Z
	}
	var vertices []GPUVertex
	var indices []uint32
	for _, f := range faces {
		n := common.Normalize3(common.Cross3(f[0], f[1]))
		vertices, indices = appendFace(vertices, indices, common.Scale3(n, h), f[0], f[1])
	}
	return NewModel(append([]ModelBuilderOption{
		WithName("cube"),
		WithVertices(vertices),
		WithIndices(indices),
	}, opts...)...)
}

// NewSphere creates a UV sphere centered on the origin.
//
// Parameters:
//   - radius: the sphere radius
//   - segments: divisions around the Y axis, at least 3
//   - rings: divisions from pole to pole, at least 2
//   - opts: additional ModelBuilderOption functions
//
// Returns:
//   - Model: the sphere model
func NewSphere(radius float32, segments, rings int, opts ...ModelBuilderOption) Model {
	segments = max(segments, 3)
	rings = max(rings, 2)

	vertices := make([]GPUVertex, 0, (rings+1)*(segments+1))
	for i := 0; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := 0; j <= segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			n := [3]float32{
				float32(math.Sin(theta) * math.Cos(phi)),
				float32(math.Cos(theta)),
				float32(math.Sin(theta) * math.Sin(phi)),
			}
			vertices = append(vertices, GPUVertex{
				Position: common.Scale3(n, radius),
				Normal:   n,
				TexCoord: [2]float32{float32(j) / float32(segments), float32(i) / float32(rings)},
			})
		}
	}

	stride := uint32(segments + 1)
	indices := make([]uint32, 0, rings*segments*6)
	for i := range uint32(rings) {
		for j := range uint32(segments) {
			a := i*stride + j
			b := a + stride
			c := b + 1
			d := a + 1
			indices = append(indices, a, c, b, a, d, c)
		}
	}

	return NewModel(append([]ModelBuilderOption{
		WithName("sphere"),
		WithVertices(vertices),
		WithIndices(indices),
		WithBoundingRadius(radius),
	}, opts...)...)
}

// appendFace appends a quad centered on c spanning c +/- u +/- v. The face
// normal is u x v and the two triangles wind counter-clockwise around it.
func appendFace(vertices []GPUVertex, indices []uint32, c, u, v [3]float32) ([]GPUVertex, []uint32) {
	n := common.Normalize3(common.Cross3(u, v))
	base := uint32(len(vertices))
	corners := [4][3]float32{
		common.Sub3(common.Sub3(c, u), v),
		common.Sub3(common.Add3(c, u), v),
		common.Add3(common.Add3(c, u), v),
		common.Add3(common.Sub3(c, u), v),
	}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for i, p := range corners {
		vertices = append(vertices, GPUVertex{Position: p, Normal: n, TexCoord: uvs[i]})
	}
	indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	return vertices, indices
}
