package software

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/frame"
	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/geometry"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
	"go.uber.org/zap"
)

// ErrNoScene is returned when a backend is created without a scene.
var ErrNoScene = errors.New("software backend needs a scene")

// Presenter receives every finished frame.
type Presenter interface {
	// Present consumes the image of one frame. The image is reused by the next
	// frame, so implementations that keep it must copy it.
	//
	// Parameters:
	//   - index: zero-based presented frame index
	//   - img: the shaded frame
	//
	// Returns:
	//   - error: error if the frame could not be consumed
	Present(index uint64, img *image.RGBA) error
}

// Stats is the bookkeeping of the most recent frame.
type Stats struct {
	Clusters cluster.Stats
	Geometry geometry.Stats
}

// Backend runs every frame stage on the CPU.
type Backend interface {
	frame.Backend

	// Target returns the G-buffer written by the geometry stage.
	Target() *gbuffer.Target

	// Image returns the output written by the shading stage.
	Image() *image.RGBA

	// Grid returns the cluster grid.
	Grid() cluster.Grid

	// Clusters returns the cluster buffer written by the assignment stage.
	Clusters() *cluster.Buffer

	// Stats returns the counters of the most recent frame.
	Stats() Stats

	// Resize changes the viewport, the grid and the camera aspect.
	//
	// Parameters:
	//   - width, height: the new viewport in pixels
	//
	// Returns:
	//   - error: cluster.ErrInvalidGrid for an empty viewport
	Resize(width, height int) error

	// Close stops the assignment workers and closes the presenter when it is an io.Closer.
	//
	// Returns:
	//   - error: the presenter's close error
	Close() error
}

type backendImpl struct {
	mu sync.Mutex

	scene     scene.Scene
	empty     light.LightSet
	grid      cluster.Grid
	assigner  cluster.Assigner
	pass      geometry.Pass
	resolver  shading.Resolver
	target    *gbuffer.Target
	img       *image.RGBA
	presenter Presenter
	presented uint64
	stats     Stats

	// view is the camera as sampled by AssignClusters. The later stages of the
	// same frame read it instead of the live camera.
	view camera.GPUCameraUniform

	width     int
	height    int
	dims      [3]uint32
	maxLights uint32
	slicing   cluster.Slicing
	workers   int
	bands     int
	reference bool
	logger    *zap.Logger
}

var _ Backend = &backendImpl{}

// NewBackend creates a CPU Backend rendering sc. The cluster grid takes its
// depth range from the scene camera.
//
// Parameters:
//   - sc: the scene to render
//   - opts: functional options to configure the backend
//
// Returns:
//   - Backend: the new backend
//   - error: ErrNoScene or a grid configuration error
func NewBackend(sc scene.Scene, opts ...BackendBuilderOption) (Backend, error) {
	if sc == nil {
		return nil, ErrNoScene
	}
	b := &backendImpl{
		scene:     sc,
		width:     1280,
		height:    720,
		dims:      [3]uint32{cluster.DefaultDimX, cluster.DefaultDimY, cluster.DefaultDimZ},
		maxLights: cluster.DefaultMaxLightsPerCluster,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logger.Named(b.logger, "software")

	cam := sc.Camera()
	cam.SetAspect(float32(b.width) / float32(b.height))
	grid, err := cluster.NewGrid(
		cluster.WithDims(b.dims[0], b.dims[1], b.dims[2]),
		cluster.WithDepthRange(cam.Near(), cam.Far()),
		cluster.WithViewport(uint32(b.width), uint32(b.height)),
		cluster.WithSlicing(b.slicing),
		cluster.WithMaxLightsPerCluster(b.maxLights),
	)
	if err != nil {
		return nil, err
	}
	assigner, err := cluster.NewAssigner(grid,
		cluster.WithWorkers(b.workers),
		cluster.WithLogger(b.logger),
	)
	if err != nil {
		return nil, err
	}
	empty, err := light.NewLightSet(light.WithMaxLights(1), light.WithNumLights(0), light.WithLogger(b.logger))
	if err != nil {
		assigner.Close()
		return nil, err
	}

	b.grid = grid
	b.assigner = assigner
	b.empty = empty
	passOpts := []geometry.PassBuilderOption{geometry.WithLogger(b.logger)}
	resolverOpts := []shading.ResolverBuilderOption{shading.WithLogger(b.logger)}
	if b.bands > 0 {
		passOpts = append(passOpts, geometry.WithBands(b.bands))
		resolverOpts = append(resolverOpts, shading.WithBands(b.bands))
	}
	b.pass = geometry.NewPass(passOpts...)
	if b.reference {
		b.resolver = shading.NewReferenceResolver(resolverOpts...)
	} else {
		b.resolver = shading.NewResolver(resolverOpts...)
	}
	b.view = cam.Uniform()
	b.target = gbuffer.NewTarget(b.width, b.height)
	b.img = image.NewRGBA(image.Rect(0, 0, b.width, b.height))

	b.logger.Info("software backend ready",
		zap.Int("width", b.width),
		zap.Int("height", b.height),
		zap.Uint32("clusters", grid.Count()),
		zap.Bool("reference", b.reference),
	)
	return b, nil
}

// lights returns the scene light set or an empty one. Caller must hold the mutex.
func (b *backendImpl) lights() light.LightSet {
	if ls := b.scene.Lights(); ls != nil {
		return ls
	}
	return b.empty
}

func (b *backendImpl) AnimateLights(t float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lights().Animate(t)
	return nil
}

func (b *backendImpl) AssignClusters() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cam := b.scene.Camera()
	if err := cluster.FollowDepthRange(b.grid, cam.Near(), cam.Far()); err != nil {
		return err
	}
	b.view = cam.Uniform()
	stats, err := b.assigner.Assign(b.view.View, b.view.Proj, b.lights())
	if err != nil {
		return err
	}
	b.stats.Clusters = stats
	return nil
}

func (b *backendImpl) RenderGeometry() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target.Clear()
	stats, err := b.pass.Render(b.target, b.view.ViewProj, b.scene.Drawables())
	if err != nil {
		return err
	}
	b.stats.Geometry = stats
	return nil
}

func (b *backendImpl) ResolveShading() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolver.Resolve(shading.Inputs{
		Target:     b.target,
		Lights:     b.lights(),
		Clusters:   b.assigner.Buffer(),
		Grid:       b.grid,
		View:       b.view.View,
		InvView:    b.view.InvView,
		InvProj:    b.view.InvProj,
		Ambient:    b.scene.Ambient(),
		Background: b.scene.Background(),
	}, b.img)
}

func (b *backendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.presenter == nil {
		b.presented++
		return nil
	}
	if err := b.presenter.Present(b.presented, b.img); err != nil {
		return fmt.Errorf("present frame %d: %w", b.presented, err)
	}
	b.presented++
	return nil
}

func (b *backendImpl) Target() *gbuffer.Target {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

func (b *backendImpl) Image() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img
}

func (b *backendImpl) Grid() cluster.Grid {
	return b.grid
}

func (b *backendImpl) Clusters() *cluster.Buffer {
	return b.assigner.Buffer()
}

func (b *backendImpl) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *backendImpl) Resize(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", cluster.ErrInvalidGrid, width, height)
	}
	if err := b.grid.Resize(uint32(width), uint32(height)); err != nil {
		return err
	}
	b.width, b.height = width, height
	b.target.Resize(width, height)
	b.img = image.NewRGBA(image.Rect(0, 0, width, height))
	b.scene.Camera().SetAspect(float32(width) / float32(height))
	b.logger.Debug("viewport resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (b *backendImpl) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assigner.Close()
	if c, ok := b.presenter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
