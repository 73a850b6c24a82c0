package light

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"go.uber.org/zap"
)

const (
	// DefaultMaxLights is the fixed arena capacity allocated for a LightSet.
	DefaultMaxLights = 5000

	// DefaultNumLights is the number of lights active after construction.
	DefaultNumLights = 500

	// DefaultIntensity scales every generated light color.
	DefaultIntensity = 0.1

	// DefaultRadius is the influence radius shared by every light. Beyond this
	// distance a light contributes nothing and is never assigned to a cluster.
	DefaultRadius = 2.0

	// colorSaturation is how far each color is lerped from white toward its hue.
	colorSaturation = 0.8
)

var (
	// ErrLightCount is returned when an active light count falls outside [0, maxLights].
	ErrLightCount = errors.New("light count out of range")

	// ErrInvalidLightSet is returned when a LightSet is constructed with unusable options.
	ErrInvalidLightSet = errors.New("invalid light set")
)

// Light is a single point light. All lights share the influence radius of their LightSet.
type Light struct {
	Position [3]float32
	Color    [3]float32
}

// lightSetImpl is the implementation of the LightSet interface.
type lightSetImpl struct {
	mu        *sync.Mutex
	lights    []Light
	maxLights int
	numLights int
	intensity float32
	radius    float32
	seed      uint64
	bounds    common.AABB
	animator  Animator
	logger    *zap.Logger
}

// LightSet defines the interface for the fixed-capacity pool of point lights
// lighting the scene.
//
// Storage for MaxLights lights is allocated once at construction. Only the first
// NumLights are active; the remainder stay allocated but are never read by
// cluster assignment or shading. Light colors are generated once and never
// change, positions are driven by an Animator.
type LightSet interface {
	// MaxLights returns the fixed capacity of the set.
	//
	// Returns:
	//   - int: the maximum number of lights
	MaxLights() int

	// NumLights returns the number of active lights.
	//
	// Returns:
	//   - int: the active light count
	NumLights() int

	// SetNumLights changes the number of active lights without reallocating.
	// The set is left unchanged when n is out of range.
	//
	// Parameters:
	//   - n: the new active count, in [0, MaxLights]
	//
	// Returns:
	//   - error: an error wrapping ErrLightCount if n is out of range
	SetNumLights(n int) error

	// Light returns a copy of the light at index i.
	//
	// Parameters:
	//   - i: light index in [0, MaxLights)
	//
	// Returns:
	//   - Light: the light value
	Light(i int) Light

	// Position returns the world-space position of light i.
	//
	// Parameters:
	//   - i: light index in [0, MaxLights)
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position(i int) [3]float32

	// SetPosition overrides the world-space position of light i.
	//
	// Parameters:
	//   - i: light index in [0, MaxLights)
	//   - p: the new position
	SetPosition(i int, p [3]float32)

	// Color returns the RGB color of light i, already scaled by the set intensity.
	//
	// Parameters:
	//   - i: light index in [0, MaxLights)
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color(i int) [3]float32

	// Active returns a view over the first NumLights lights. Callers must not
	// modify the returned slice or hold it across Animate or SetNumLights.
	//
	// Returns:
	//   - []Light: the active lights in index order
	Active() []Light

	// Radius returns the influence radius shared by every light.
	//
	// Returns:
	//   - float32: the radius in world units
	Radius() float32

	// Bounds returns the scene volume the lights are animated within.
	//
	// Returns:
	//   - common.AABB: the world-space bounds
	Bounds() common.AABB

	// Animator returns the animator driving light positions.
	//
	// Returns:
	//   - Animator: the position animator
	Animator() Animator

	// Animate moves every active light to its position at time t.
	//
	// Parameters:
	//   - t: animation time in seconds
	Animate(t float32)

	// Marshal serializes the header and all MaxLights lights into the GPU light buffer layout.
	//
	// Returns:
	//   - []byte: LightBufferSize(MaxLights) bytes ready for GPU upload
	Marshal() []byte

	// MarshalHeader serializes only the light set header.
	//
	// Returns:
	//   - []byte: 16-byte buffer ready for GPU upload at offset 0
	MarshalHeader() []byte
}

var _ LightSet = &lightSetImpl{}

// NewLightSet creates a new LightSet with randomized colors and animator-driven
// initial positions.
//
// Parameters:
//   - opts: variadic list of LightSetBuilderOption functions to configure the set
//
// Returns:
//   - LightSet: a new LightSet instance
//   - error: an error wrapping ErrLightCount or ErrInvalidLightSet if the options are invalid
func NewLightSet(opts ...LightSetBuilderOption) (LightSet, error) {
	ls := &lightSetImpl{
		mu:        &sync.Mutex{},
		maxLights: DefaultMaxLights,
		numLights: DefaultNumLights,
		intensity: DefaultIntensity,
		radius:    DefaultRadius,
		seed:      1,
		bounds: common.AABB{
			Min: [3]float32{-14, 0, -6},
			Max: [3]float32{14, 12, 6},
		},
	}
	for _, opt := range opts {
		opt(ls)
	}
	maxLights := ls.maxLights

	if maxLights <= 0 {
		return nil, fmt.Errorf("%w: max lights %d", ErrInvalidLightSet, maxLights)
	}
	if ls.numLights < 0 || ls.numLights > maxLights {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrLightCount, ls.numLights, maxLights)
	}
	if !(ls.radius > 0) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidLightSet, ls.radius)
	}
	for axis := range 3 {
		if ls.bounds.Min[axis] > ls.bounds.Max[axis] {
			return nil, fmt.Errorf("%w: bounds inverted on axis %d", ErrInvalidLightSet, axis)
		}
	}
	ls.logger = logger.Named(ls.logger, "light")
	if ls.animator == nil {
		ls.animator = NewOrbitAnimator(ls.bounds, WithOrbitSeed(uint32(ls.seed)))
	}

	ls.lights = make([]Light, maxLights)
	rng := rand.New(rand.NewPCG(ls.seed, ls.seed^0x9E3779B97F4A7C15))
	for i := range ls.lights {
		hue := hueToRGB(rng.Float32())
		ls.lights[i] = Light{
			Position: ls.animator.Position(i, 0),
			Color:    common.Scale3(common.Lerp3([3]float32{1, 1, 1}, hue, colorSaturation), ls.intensity),
		}
	}

	ls.logger.Debug("light set created",
		zap.Int("max_lights", maxLights),
		zap.Int("num_lights", ls.numLights),
		zap.Float32("radius", ls.radius),
	)
	return ls, nil
}

func (l *lightSetImpl) MaxLights() int {
	return len(l.lights)
}

func (l *lightSetImpl) NumLights() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.numLights
}

func (l *lightSetImpl) SetNumLights(n int) error {
	if n < 0 || n > len(l.lights) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrLightCount, n, len(l.lights))
	}
	l.mu.Lock()
	l.numLights = n
	l.mu.Unlock()
	l.logger.Debug("active lights changed", zap.Int("num_lights", n))
	return nil
}

func (l *lightSetImpl) Light(i int) Light {
	return l.lights[i]
}

func (l *lightSetImpl) Position(i int) [3]float32 {
	return l.lights[i].Position
}

func (l *lightSetImpl) SetPosition(i int, p [3]float32) {
	l.lights[i].Position = p
}

func (l *lightSetImpl) Color(i int) [3]float32 {
	return l.lights[i].Color
}

func (l *lightSetImpl) Active() []Light {
	n := l.NumLights()
	return l.lights[:n:n]
}

func (l *lightSetImpl) Radius() float32 {
	return l.radius
}

func (l *lightSetImpl) Bounds() common.AABB {
	return l.bounds
}

func (l *lightSetImpl) Animator() Animator {
	return l.animator
}

func (l *lightSetImpl) Animate(t float32) {
	n := l.NumLights()
	for i := range n {
		l.lights[i].Position = l.animator.Position(i, t)
	}
}

func (l *lightSetImpl) Marshal() []byte {
	buf := make([]byte, 0, LightBufferSize(len(l.lights)))
	buf = append(buf, l.MarshalHeader()...)
	for i := range l.lights {
		g := GPULight{Position: l.lights[i].Position, Color: l.lights[i].Color}
		buf = append(buf, g.Marshal()...)
	}
	return buf
}

func (l *lightSetImpl) MarshalHeader() []byte {
	h := GPULightSetHeader{NumLights: uint32(l.NumLights())}
	return h.Marshal()
}

// hueToRGB converts a hue in [0, 1) to a fully saturated RGB color.
func hueToRGB(h float32) [3]float32 {
	f := func(n float32) float32 {
		k := float32(math.Mod(float64(n+h*6), 6))
		return 1 - common.Clamp(min(k, 4-k), 0, 1)
	}
	return [3]float32{f(5), f(3), f(1)}
}
