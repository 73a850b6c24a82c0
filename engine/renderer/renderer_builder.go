package renderer

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
	"go.uber.org/zap"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithResolveMode requests the fullscreen or the compute shading resolve.
// The compute resolve falls back to fullscreen when the surface cannot be
// configured as rgba8unorm.
//
// Parameters:
//   - mode: the requested resolve
//
// Returns:
//   - RendererBuilderOption: a function that applies the resolve option to a renderer
func WithResolveMode(mode shading.ResolveMode) RendererBuilderOption {
	return func(r *renderer) {
		r.requestedResolve = mode
	}
}

// WithGrid sets the cluster grid dimensions, slicing and per-cluster capacity.
//
// Parameters:
//   - dims: tile columns, tile rows and depth slices
//   - slicing: the depth slicing scheme
//   - maxLightsPerCluster: per-cluster list capacity
//
// Returns:
//   - RendererBuilderOption: a function that applies the grid option to a renderer
func WithGrid(dims [3]uint32, slicing cluster.Slicing, maxLightsPerCluster uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.dims = dims
		r.slicing = slicing
		r.maxLightsPerCluster = maxLightsPerCluster
	}
}

// WithLogger sets the parent logger. The renderer logs under the "renderer" name.
func WithLogger(l *zap.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = l
	}
}
