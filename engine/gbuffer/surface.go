package gbuffer

import (
	"math"

	"github.com/Carmen-Shannon/oxy-clustered/common"
)

// Surface is the quantized content of one entry. Every value of every field is
// representable, so Unpack(Pack(s)) == s.
type Surface struct {
	NormalU    uint16 // octahedral U, unorm16
	NormalV    uint16 // octahedral V, unorm16
	Albedo     [3]uint8
	Roughness  uint8
	Metallic   uint8
	MaterialID uint8
}

// Attributes is the float form of a surface as produced by rasterization.
type Attributes struct {
	Normal     [3]float32 // world-space, need not be normalized
	Albedo     [3]float32 // linear RGB in [0, 1]
	Roughness  float32
	Metallic   float32
	MaterialID uint8
}

// Encode quantizes a into a Surface. Normals are octahedral-mapped, a zero
// normal encodes as +Z. Rounding is half-to-even to match WGSL round().
//
// Parameters:
//   - a: the float attributes
//
// Returns:
//   - Surface: the quantized surface
func Encode(a Attributes) Surface {
	u, v := octEncode(a.Normal)
	return Surface{
		NormalU:    uint16(unorm(u*0.5+0.5, 65535)),
		NormalV:    uint16(unorm(v*0.5+0.5, 65535)),
		Albedo:     [3]uint8{uint8(unorm(a.Albedo[0], 255)), uint8(unorm(a.Albedo[1], 255)), uint8(unorm(a.Albedo[2], 255))},
		Roughness:  uint8(unorm(a.Roughness, 255)),
		Metallic:   uint8(unorm(a.Metallic, 255)),
		MaterialID: a.MaterialID,
	}
}

// Decode expands s back to float attributes with a unit-length normal.
//
// Returns:
//   - Attributes: the decoded attributes
func (s Surface) Decode() Attributes {
	u := float32(s.NormalU)/65535*2 - 1
	v := float32(s.NormalV)/65535*2 - 1
	return Attributes{
		Normal:     octDecode(u, v),
		Albedo:     [3]float32{float32(s.Albedo[0]) / 255, float32(s.Albedo[1]) / 255, float32(s.Albedo[2]) / 255},
		Roughness:  float32(s.Roughness) / 255,
		Metallic:   float32(s.Metallic) / 255,
		MaterialID: s.MaterialID,
	}
}

func unorm(x float32, scale float64) uint32 {
	if !(x > 0) {
		return 0
	}
	if x >= 1 {
		return uint32(scale)
	}
	return uint32(math.RoundToEven(float64(x) * scale))
}

// signNotZero returns 1 for x >= 0 and -1 otherwise.
func signNotZero(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}

func abs32(x float32) float32 {
	return float32(math.Abs(float64(x)))
}

// octEncode maps a direction onto the [-1, 1]^2 octahedral square.
func octEncode(n [3]float32) (float32, float32) {
	sum := abs32(n[0]) + abs32(n[1]) + abs32(n[2])
	if !(sum > 0) || math.IsInf(float64(sum), 0) {
		return 0, 0
	}
	x, y := n[0]/sum, n[1]/sum
	if n[2] < 0 {
		x, y = (1-abs32(y))*signNotZero(x), (1-abs32(x))*signNotZero(y)
	}
	return x, y
}

// octDecode inverts octEncode and normalizes the result.
func octDecode(u, v float32) [3]float32 {
	n := [3]float32{u, v, 1 - abs32(u) - abs32(v)}
	if n[2] < 0 {
		n[0], n[1] = (1-abs32(v))*signNotZero(u), (1-abs32(u))*signNotZero(v)
	}
	return common.Normalize3(n)
}
