package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-clustered/common"
)

// Animator computes light positions as a pure function of light index and time.
type Animator interface {
	// Position returns the world-space position of light index at time t.
	//
	// Parameters:
	//   - index: light index
	//   - t: animation time in seconds
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position(index int, t float32) [3]float32
}

// OrbitAnimator moves each light around a hashed base point inside the scene
// bounds, circling in XZ and bobbing in Y. The move_lights compute shader
// evaluates the same formula from Params.
type OrbitAnimator interface {
	Animator

	// Params returns the uniform block consumed by the move_lights shader.
	//
	// Returns:
	//   - GPUOrbitParams: the orbit parameters
	Params() GPUOrbitParams
}

// orbitAnimatorImpl is the implementation of the OrbitAnimator interface.
type orbitAnimatorImpl struct {
	bounds common.AABB
	seed   uint32
	radius float32
	bob    float32
	speed  float32
	lo, hi [3]float32
}

var _ OrbitAnimator = &orbitAnimatorImpl{}

// OrbitAnimatorOption is a function that configures an OrbitAnimator during construction.
type OrbitAnimatorOption func(*orbitAnimatorImpl)

// WithOrbitSeed sets the hash seed that decorrelates base points between light sets.
func WithOrbitSeed(seed uint32) OrbitAnimatorOption {
	return func(o *orbitAnimatorImpl) {
		o.seed = seed
	}
}

// WithOrbitRadius sets the XZ orbit radius.
func WithOrbitRadius(radius float32) OrbitAnimatorOption {
	return func(o *orbitAnimatorImpl) {
		o.radius = radius
	}
}

// WithOrbitBob sets the Y bob amplitude.
func WithOrbitBob(bob float32) OrbitAnimatorOption {
	return func(o *orbitAnimatorImpl) {
		o.bob = bob
	}
}

// WithOrbitSpeed sets the base angular speed in radians per second.
func WithOrbitSpeed(speed float32) OrbitAnimatorOption {
	return func(o *orbitAnimatorImpl) {
		o.speed = speed
	}
}

// NewOrbitAnimator creates an OrbitAnimator confined to bounds.
//
// Parameters:
//   - bounds: the world-space volume lights stay within
//   - opts: variadic list of OrbitAnimatorOption functions
//
// Returns:
//   - OrbitAnimator: a new OrbitAnimator instance
func NewOrbitAnimator(bounds common.AABB, opts ...OrbitAnimatorOption) OrbitAnimator {
	o := &orbitAnimatorImpl{
		bounds: bounds,
		seed:   1,
		radius: 1.5,
		bob:    0.5,
		speed:  0.5,
	}
	for _, opt := range opts {
		opt(o)
	}

	margin := [3]float32{o.radius, o.bob, o.radius}
	for axis := range 3 {
		lo := bounds.Min[axis] + margin[axis]
		hi := bounds.Max[axis] - margin[axis]
		if lo > hi {
			lo = (bounds.Min[axis] + bounds.Max[axis]) * 0.5
			hi = lo
		}
		o.lo[axis], o.hi[axis] = lo, hi
	}
	return o
}

func (o *orbitAnimatorImpl) Position(index int, t float32) [3]float32 {
	key := uint32(index)*4 + o.seed*2654435769
	h := [4]float32{hash01(key), hash01(key + 1), hash01(key + 2), hash01(key + 3)}

	var base [3]float32
	for axis := range 3 {
		base[axis] = o.lo[axis] + (o.hi[axis]-o.lo[axis])*h[axis]
	}

	angle := t*o.speed*(0.5+h[3]) + h[3]*2*math.Pi
	return [3]float32{
		base[0] + o.radius*float32(math.Cos(float64(angle))),
		base[1] + o.bob*float32(math.Sin(float64(2*angle))),
		base[2] + o.radius*float32(math.Sin(float64(angle))),
	}
}

func (o *orbitAnimatorImpl) Params() GPUOrbitParams {
	return GPUOrbitParams{
		BaseMin:     o.lo,
		Seed:        o.seed,
		BaseMax:     o.hi,
		OrbitRadius: o.radius,
		Bob:         o.bob,
		Speed:       o.speed,
	}
}

// pcg is the PCG-RXS-M-XS 32-bit hash. move_lights.wgsl carries the same function.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// hash01 maps v to [0, 1].
func hash01(v uint32) float32 {
	return float32(pcg(v)) / 4294967295.0
}
