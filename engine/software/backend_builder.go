package software

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"go.uber.org/zap"
)

// BackendBuilderOption is a functional option for configuring a software Backend.
type BackendBuilderOption func(*backendImpl)

// WithViewport sets the output size in pixels.
//
// Parameters:
//   - width, height: the viewport size
//
// Returns:
//   - BackendBuilderOption: option function to apply
func WithViewport(width, height int) BackendBuilderOption {
	return func(b *backendImpl) {
		b.width = width
		b.height = height
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
//   - BackendBuilderOption: option function to apply
func WithGrid(dims [3]uint32, slicing cluster.Slicing, maxLightsPerCluster uint32) BackendBuilderOption {
	return func(b *backendImpl) {
		b.dims = dims
		b.slicing = slicing
		b.maxLights = maxLightsPerCluster
	}
}

// WithWorkers sets the worker count of the assignment pool and the band count
// of the geometry and shading passes. Zero keeps GOMAXPROCS.
//
// Parameters:
//   - n: the parallelism
//
// Returns:
//   - BackendBuilderOption: option function to apply
func WithWorkers(n int) BackendBuilderOption {
	return func(b *backendImpl) {
		b.workers = n
		b.bands = n
	}
}

// WithPresenter sets where finished frames go.
//
// Parameters:
//   - p: the presenter; nil discards frames
//
// Returns:
//   - BackendBuilderOption: option function to apply
func WithPresenter(p Presenter) BackendBuilderOption {
	return func(b *backendImpl) {
		b.presenter = p
	}
}

// WithReference shades every pixel against every active light instead of its cluster list.
//
// Parameters:
//   - reference: true to use the reference resolver
//
// Returns:
//   - BackendBuilderOption: option function to apply
func WithReference(reference bool) BackendBuilderOption {
	return func(b *backendImpl) {
		b.reference = reference
	}
}

// WithLogger sets the logger used by the backend and its passes.
//
// Parameters:
//   - l: the logger; nil falls back to the global logger
//
// Returns:
//   - BackendBuilderOption: option function to apply
func WithLogger(l *zap.Logger) BackendBuilderOption {
	return func(b *backendImpl) {
		b.logger = l
	}
}
