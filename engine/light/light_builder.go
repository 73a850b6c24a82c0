package light

import (
	"github.com/Carmen-Shannon/oxy-clustered/common"
	"go.uber.org/zap"
)

// LightSetBuilderOption is a function that configures a LightSet instance during construction.
type LightSetBuilderOption func(*lightSetImpl)

// WithMaxLights is an option builder that sets the fixed capacity of the light arena.
//
// Parameters:
//   - maxLights: the number of lights to allocate
//
// Returns:
//   - LightSetBuilderOption: a function that applies the capacity option to a lightSetImpl
func WithMaxLights(maxLights int) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.maxLights = maxLights
	}
}

// WithNumLights is an option builder that sets the initial active light count.
//
// Parameters:
//   - numLights: the active count, in [0, maxLights]
//
// Returns:
//   - LightSetBuilderOption: a function that applies the count option to a lightSetImpl
func WithNumLights(numLights int) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.numLights = numLights
	}
}

// WithIntensity is an option builder that sets the scalar applied to every generated color.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightSetBuilderOption: a function that applies the intensity option to a lightSetImpl
func WithIntensity(intensity float32) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.intensity = intensity
	}
}

// WithRadius is an option builder that sets the influence radius shared by all lights.
//
// Parameters:
//   - radius: the radius in world units, must be positive
//
// Returns:
//   - LightSetBuilderOption: a function that applies the radius option to a lightSetImpl
func WithRadius(radius float32) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.radius = radius
	}
}

// WithSeed is an option builder that seeds color generation and the default animator.
//
// Parameters:
//   - seed: the random seed
//
// Returns:
//   - LightSetBuilderOption: a function that applies the seed option to a lightSetImpl
func WithSeed(seed uint64) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.seed = seed
	}
}

// WithBounds is an option builder that sets the scene volume lights are placed within.
//
// Parameters:
//   - bounds: the world-space bounds
//
// Returns:
//   - LightSetBuilderOption: a function that applies the bounds option to a lightSetImpl
func WithBounds(bounds common.AABB) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.bounds = bounds
	}
}

// WithAnimator is an option builder that replaces the default OrbitAnimator.
//
// Parameters:
//   - animator: the animator driving light positions
//
// Returns:
//   - LightSetBuilderOption: a function that applies the animator option to a lightSetImpl
func WithAnimator(animator Animator) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.animator = animator
	}
}

// WithLogger is an option builder that sets the logger used by the light set.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - LightSetBuilderOption: a function that applies the logger option to a lightSetImpl
func WithLogger(logger *zap.Logger) LightSetBuilderOption {
	return func(l *lightSetImpl) {
		l.logger = logger
	}
}
