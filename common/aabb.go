package common

import "math"

// AABB is an axis-aligned bounding box with inclusive bounds.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// EmptyAABB returns an inverted box that any Extend call will overwrite.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
}

// Extend grows the box to include p.
func (b *AABB) Extend(p [3]float32) {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// Contains reports whether p lies inside the box, bounds included.
func (b AABB) Contains(p [3]float32) bool {
	for i := range 3 {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Center returns the midpoint of the box.
func (b AABB) Center() [3]float32 {
	return Scale3(Add3(b.Min, b.Max), 0.5)
}

// ClosestPoint returns the point of the box nearest to p.
func (b AABB) ClosestPoint(p [3]float32) [3]float32 {
	return [3]float32{
		Clamp(p[0], b.Min[0], b.Max[0]),
		Clamp(p[1], b.Min[1], b.Max[1]),
		Clamp(p[2], b.Min[2], b.Max[2]),
	}
}

// IntersectsSphere reports whether the sphere touches the box. Touching counts,
// so a sphere centered on a face shared by two boxes intersects both.
//
// Parameters:
//   - center: sphere center
//   - radius: sphere radius
//
// Returns:
//   - bool: true if the squared distance from center to the box is <= radius^2
func (b AABB) IntersectsSphere(center [3]float32, radius float32) bool {
	d := Sub3(b.ClosestPoint(center), center)
	return Dot3(d, d) <= radius*radius
}
