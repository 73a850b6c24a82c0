package cluster

// GridBuilderOption is a function that configures a Grid instance during construction.
type GridBuilderOption func(*gridImpl)

// WithDims is an option builder that sets the cluster counts along X, Y and Z.
//
// Parameters:
//   - x: tile columns
//   - y: tile rows
//   - z: depth slices
//
// Returns:
//   - GridBuilderOption: a function that applies the dimensions option to a gridImpl
func WithDims(x, y, z uint32) GridBuilderOption {
	return func(g *gridImpl) {
		g.dims = [3]uint32{x, y, z}
	}
}

// WithDepthRange is an option builder that sets the clustered view-space depth range.
//
// Parameters:
//   - near: depth where slice 0 begins, must be positive
//   - far: depth where the last slice ends, must exceed near
//
// Returns:
//   - GridBuilderOption: a function that applies the depth range option to a gridImpl
func WithDepthRange(near, far float32) GridBuilderOption {
	return func(g *gridImpl) {
		g.near = near
		g.far = far
	}
}

// WithViewport is an option builder that sets the initial viewport size in pixels.
//
// Parameters:
//   - width: viewport width
//   - height: viewport height
//
// Returns:
//   - GridBuilderOption: a function that applies the viewport option to a gridImpl
func WithViewport(width, height uint32) GridBuilderOption {
	return func(g *gridImpl) {
		g.width = width
		g.height = height
	}
}

// WithSlicing is an option builder that sets the depth slicing mode.
//
// Parameters:
//   - slicing: SlicingLogarithmic or SlicingLinear
//
// Returns:
//   - GridBuilderOption: a function that applies the slicing option to a gridImpl
func WithSlicing(slicing Slicing) GridBuilderOption {
	return func(g *gridImpl) {
		g.slicing = slicing
	}
}

// WithMaxLightsPerCluster is an option builder that sets the per-cluster light list capacity.
//
// Parameters:
//   - n: the capacity
//
// Returns:
//   - GridBuilderOption: a function that applies the capacity option to a gridImpl
func WithMaxLightsPerCluster(n uint32) GridBuilderOption {
	return func(g *gridImpl) {
		g.maxLightsPerCluster = n
	}
}
