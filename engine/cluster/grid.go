package cluster

import (
	"errors"
	"fmt"
	"math"
)

// Slicing selects how view-space depth is partitioned into Z slices.
type Slicing uint32

const (
	// SlicingLogarithmic splits [near, far] so every slice spans the same depth ratio.
	SlicingLogarithmic Slicing = iota

	// SlicingLinear splits [near, far] into slices of equal thickness.
	SlicingLinear
)

// String returns the config name of the slicing mode.
func (s Slicing) String() string {
	switch s {
	case SlicingLogarithmic:
		return "log"
	case SlicingLinear:
		return "linear"
	default:
		return fmt.Sprintf("Slicing(%d)", uint32(s))
	}
}

// ParseSlicing maps a config name ("log" or "linear") to a Slicing.
func ParseSlicing(name string) (Slicing, error) {
	switch name {
	case "log", "logarithmic", "":
		return SlicingLogarithmic, nil
	case "linear":
		return SlicingLinear, nil
	default:
		return 0, fmt.Errorf("%w: unknown slicing %q", ErrInvalidGrid, name)
	}
}

const (
	// DefaultDimX is the default number of screen-space tile columns.
	DefaultDimX = 16
	// DefaultDimY is the default number of screen-space tile rows.
	DefaultDimY = 9
	// DefaultDimZ is the default number of depth slices.
	DefaultDimZ = 24
	// DefaultNear is the default near depth of the clustered range.
	DefaultNear = 0.1
	// DefaultFar is the default far depth of the clustered range.
	DefaultFar = 100.0
	// DefaultMaxLightsPerCluster is the default per-cluster light list capacity.
	DefaultMaxLightsPerCluster = 1000
)

// ErrInvalidGrid is returned when a Grid is constructed or resized with unusable parameters.
var ErrInvalidGrid = errors.New("invalid cluster grid")

// gridImpl is the implementation of the Grid interface.
type gridImpl struct {
	dims                [3]uint32
	near, far           float32
	width, height       uint32
	slicing             Slicing
	maxLightsPerCluster uint32
	logRatio            float64
}

// Grid defines the fixed 3D subdivision of the view frustum into clusters.
//
// X and Y split the viewport into equal screen-space tiles with the pixel origin
// at the top-left. Z splits the positive view-space depth range [Near, Far]
// logarithmically or linearly. Every cluster lookup, on the CPU and in the
// shaders, goes through the same Tile, Slice and Index formulas.
//
// Dimensions are fixed for the lifetime of the grid. The viewport and the depth
// range may change between frames, never while a frame is using the grid.
type Grid interface {
	// Dims returns the cluster counts along X, Y and Z.
	//
	// Returns:
	//   - [3]uint32: (Nx, Ny, Nz)
	Dims() [3]uint32

	// Count returns the total number of clusters, Nx*Ny*Nz.
	//
	// Returns:
	//   - uint32: the cluster count
	Count() uint32

	// Near returns the view-space depth where slice 0 begins.
	//
	// Returns:
	//   - float32: the near depth
	Near() float32

	// Far returns the view-space depth where the last slice ends.
	//
	// Returns:
	//   - float32: the far depth
	Far() float32

	// Viewport returns the screen size in pixels the tiles divide.
	//
	// Returns:
	//   - w: viewport width in pixels
	//   - h: viewport height in pixels
	Viewport() (w, h uint32)

	// Resize changes the viewport. Cluster dimensions are unaffected.
	//
	// Parameters:
	//   - w: the new width in pixels
	//   - h: the new height in pixels
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidGrid if either size is zero
	Resize(w, h uint32) error

	// SetDepthRange moves the clustered depth range. Cluster dimensions are unaffected.
	//
	// Parameters:
	//   - near: the new near depth, greater than zero
	//   - far: the new far depth, greater than near and finite
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidGrid; the previous range is kept
	SetDepthRange(near, far float32) error

	// Slicing returns the depth slicing mode.
	//
	// Returns:
	//   - Slicing: logarithmic or linear
	Slicing() Slicing

	// MaxLightsPerCluster returns the per-cluster light list capacity.
	//
	// Returns:
	//   - uint32: the capacity
	MaxLightsPerCluster() uint32

	// Index flattens cluster coordinates as cx + cy*Nx + cz*Nx*Ny.
	//
	// Parameters:
	//   - cx, cy, cz: cluster coordinates
	//
	// Returns:
	//   - uint32: the flat cluster index
	Index(cx, cy, cz uint32) uint32

	// Coords inverts Index.
	//
	// Parameters:
	//   - i: a flat cluster index
	//
	// Returns:
	//   - cx, cy, cz: cluster coordinates
	Coords(i uint32) (cx, cy, cz uint32)

	// Slice maps a positive view-space depth to its Z slice, clamped to [0, Nz-1].
	// Non-finite or non-positive depths map to slice 0.
	//
	// Parameters:
	//   - depth: distance along the camera forward axis (-z in view space)
	//
	// Returns:
	//   - uint32: the slice index
	Slice(depth float32) uint32

	// SliceDepths returns the depth range covered by slice cz.
	//
	// Parameters:
	//   - cz: the slice index
	//
	// Returns:
	//   - near: depth where the slice begins
	//   - far: depth where the slice ends
	SliceDepths(cz uint32) (near, far float32)

	// Tile maps a pixel position to its tile, clamped to the grid.
	//
	// Parameters:
	//   - px, py: pixel coordinates with the origin at the top-left
	//
	// Returns:
	//   - cx, cy: tile coordinates
	Tile(px, py float32) (cx, cy uint32)

	// ClusterAt returns the flat index of the cluster containing a pixel at a given depth.
	//
	// Parameters:
	//   - px, py: pixel coordinates with the origin at the top-left
	//   - depth: positive view-space depth
	//
	// Returns:
	//   - uint32: the flat cluster index
	ClusterAt(px, py, depth float32) uint32

	// Params returns the uniform block describing this grid to the shaders.
	// LightRadius is left zero for the caller to fill.
	//
	// Returns:
	//   - GPUClusterParams: the cluster params uniform
	Params() GPUClusterParams
}

var _ Grid = &gridImpl{}

// NewGrid creates a new Grid with the provided options applied over the defaults.
//
// Parameters:
//   - opts: variadic list of GridBuilderOption functions to configure the grid
//
// Returns:
//   - Grid: a new Grid instance
//   - error: an error wrapping ErrInvalidGrid if the configuration is unusable
func NewGrid(opts ...GridBuilderOption) (Grid, error) {
	g := &gridImpl{
		dims:                [3]uint32{DefaultDimX, DefaultDimY, DefaultDimZ},
		near:                DefaultNear,
		far:                 DefaultFar,
		width:               1280,
		height:              720,
		slicing:             SlicingLogarithmic,
		maxLightsPerCluster: DefaultMaxLightsPerCluster,
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	g.logRatio = math.Log(float64(g.far) / float64(g.near))
	return g, nil
}

func (g *gridImpl) validate() error {
	for axis, d := range g.dims {
		if d == 0 {
			return fmt.Errorf("%w: dimension %d is zero", ErrInvalidGrid, axis)
		}
	}
	if !(g.near > 0) || !(g.far > g.near) || math.IsInf(float64(g.far), 0) {
		return fmt.Errorf("%w: depth range [%v, %v]", ErrInvalidGrid, g.near, g.far)
	}
	if g.width == 0 || g.height == 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidGrid, g.width, g.height)
	}
	if g.maxLightsPerCluster == 0 {
		return fmt.Errorf("%w: max lights per cluster is zero", ErrInvalidGrid)
	}
	if g.slicing != SlicingLogarithmic && g.slicing != SlicingLinear {
		return fmt.Errorf("%w: slicing %v", ErrInvalidGrid, g.slicing)
	}
	count := uint64(g.dims[0]) * uint64(g.dims[1]) * uint64(g.dims[2])
	words := count*(1+uint64(g.maxLightsPerCluster)) + headerWords
	if words > math.MaxUint32 {
		return fmt.Errorf("%w: %d clusters with capacity %d overflow a u32 buffer index",
			ErrInvalidGrid, count, g.maxLightsPerCluster)
	}
	return nil
}

func (g *gridImpl) Dims() [3]uint32 {
	return g.dims
}

func (g *gridImpl) Count() uint32 {
	return g.dims[0] * g.dims[1] * g.dims[2]
}

func (g *gridImpl) Near() float32 {
	return g.near
}

func (g *gridImpl) Far() float32 {
	return g.far
}

func (g *gridImpl) Viewport() (uint32, uint32) {
	return g.width, g.height
}

func (g *gridImpl) Resize(w, h uint32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidGrid, w, h)
	}
	g.width, g.height = w, h
	return nil
}

func (g *gridImpl) SetDepthRange(near, far float32) error {
	if !(near > 0) || !(far > near) || math.IsInf(float64(far), 0) {
		return fmt.Errorf("%w: depth range [%v, %v]", ErrInvalidGrid, near, far)
	}
	g.near, g.far = near, far
	g.logRatio = math.Log(float64(far) / float64(near))
	return nil
}

func (g *gridImpl) Slicing() Slicing {
	return g.slicing
}

func (g *gridImpl) MaxLightsPerCluster() uint32 {
	return g.maxLightsPerCluster
}

func (g *gridImpl) Index(cx, cy, cz uint32) uint32 {
	return cx + cy*g.dims[0] + cz*g.dims[0]*g.dims[1]
}

func (g *gridImpl) Coords(i uint32) (uint32, uint32, uint32) {
	plane := g.dims[0] * g.dims[1]
	cz := i / plane
	rem := i % plane
	return rem % g.dims[0], rem / g.dims[0], cz
}

func (g *gridImpl) Slice(depth float32) uint32 {
	d := float64(depth)
	if !(d > 0) || math.IsInf(d, 0) {
		return 0
	}

	var f float64
	nz := float64(g.dims[2])
	switch g.slicing {
	case SlicingLinear:
		f = nz * (d - float64(g.near)) / float64(g.far-g.near)
	default:
		f = nz * math.Log(d/float64(g.near)) / g.logRatio
	}
	return clampIndex(f, g.dims[2])
}

func (g *gridImpl) SliceDepths(cz uint32) (float32, float32) {
	return g.sliceBoundary(cz), g.sliceBoundary(cz + 1)
}

// sliceBoundary returns the depth where slice k begins; k == Nz yields far.
func (g *gridImpl) sliceBoundary(k uint32) float32 {
	if k >= g.dims[2] {
		return g.far
	}
	t := float64(k) / float64(g.dims[2])
	switch g.slicing {
	case SlicingLinear:
		return g.near + float32(t)*(g.far-g.near)
	default:
		return float32(float64(g.near) * math.Exp(t*g.logRatio))
	}
}

func (g *gridImpl) Tile(px, py float32) (uint32, uint32) {
	fx := float64(px) * float64(g.dims[0]) / float64(g.width)
	fy := float64(py) * float64(g.dims[1]) / float64(g.height)
	return clampIndex(fx, g.dims[0]), clampIndex(fy, g.dims[1])
}

func (g *gridImpl) ClusterAt(px, py, depth float32) uint32 {
	cx, cy := g.Tile(px, py)
	return g.Index(cx, cy, g.Slice(depth))
}

func (g *gridImpl) Params() GPUClusterParams {
	return GPUClusterParams{
		ScreenWidth:         float32(g.width),
		ScreenHeight:        float32(g.height),
		DimX:                g.dims[0],
		DimY:                g.dims[1],
		DimZ:                g.dims[2],
		Near:                g.near,
		Far:                 g.far,
		MaxLightsPerCluster: g.maxLightsPerCluster,
		Slicing:             uint32(g.slicing),
	}
}

// FollowDepthRange moves grid to [near, far] when its range differs, so a
// camera whose clip planes changed keeps its clusters covering the frustum.
//
// Parameters:
//   - grid: the grid to update
//   - near, far: the camera clip planes
//
// Returns:
//   - error: an error wrapping ErrInvalidGrid if the range is unusable
func FollowDepthRange(grid Grid, near, far float32) error {
	if grid.Near() == near && grid.Far() == far {
		return nil
	}
	if err := grid.SetDepthRange(near, far); err != nil {
		return fmt.Errorf("camera depth range: %w", err)
	}
	return nil
}

// clampIndex floors f into [0, n-1]. NaN maps to 0.
func clampIndex(f float64, n uint32) uint32 {
	if !(f > 0) {
		return 0
	}
	if f >= float64(n) {
		return n - 1
	}
	return uint32(f)
}
