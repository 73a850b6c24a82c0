package cluster

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned when Assign receives a camera or light set it cannot cluster.
var ErrInvalidInput = errors.New("invalid cluster assignment input")

// Stats summarizes one assignment.
type Stats struct {
	NumLights   int // active lights considered
	Assignments int // light indices written across all clusters
	NonEmpty    int // clusters with at least one light
	Truncated   int // intersecting lights dropped because a cluster was full
}

// viewLight is an active light transformed to view space.
type viewLight struct {
	pos   [3]float32
	index uint32
}

// assignerImpl is the implementation of the Assigner interface.
type assignerImpl struct {
	mu         *sync.Mutex
	grid       Grid
	buffer     *Buffer
	bounds     boundsCache
	pool       worker.DynamicWorkerPool
	ownsPool   bool
	workers    int
	viewLights []viewLight
	candidates [][]viewLight
	sliceStats []Stats
	logger     *zap.Logger
}

// Assigner defines the interface for the cluster assignment stage.
//
// Each call overwrites the cluster Buffer in place. For every cluster the light
// list holds, in ascending index order, the active lights whose influence sphere
// touches the cluster's view-space AABB. Lists are capped at the grid's
// MaxLightsPerCluster; lights past the cap are dropped and only counted in Stats.
// The buffer contents are a pure function of the view, projection, lights and grid.
type Assigner interface {
	// Assign rebuilds every cluster light list for the given camera and lights.
	//
	// Parameters:
	//   - view: the world-to-view matrix (column-major)
	//   - proj: the perspective projection matrix (column-major)
	//   - lights: the light set; only its active lights are read
	//
	// Returns:
	//   - Stats: counts describing the assignment
	//   - error: an error wrapping ErrInvalidInput if proj is singular or lights is nil
	Assign(view, proj [16]float32, lights light.LightSet) (Stats, error)

	// Buffer returns the cluster light list arena written by Assign.
	//
	// Returns:
	//   - *Buffer: the cluster buffer
	Buffer() *Buffer

	// Bounds returns the view-space AABB of every cluster from the last Assign.
	//
	// Returns:
	//   - []common.AABB: the AABBs, indexed by flat cluster index
	Bounds() []common.AABB

	// Grid returns the cluster grid.
	//
	// Returns:
	//   - Grid: the grid
	Grid() Grid

	// Close stops the worker pool if the assigner created it.
	Close()
}

var _ Assigner = &assignerImpl{}

// NewAssigner creates a new Assigner for grid.
//
// Parameters:
//   - grid: the cluster grid
//   - opts: variadic list of AssignerBuilderOption functions
//
// Returns:
//   - Assigner: a new Assigner instance
//   - error: an error wrapping ErrInvalidGrid if grid is nil
func NewAssigner(grid Grid, opts ...AssignerBuilderOption) (Assigner, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidGrid)
	}
	a := &assignerImpl{
		mu:      &sync.Mutex{},
		grid:    grid,
		buffer:  NewBuffer(grid),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logger.Named(a.logger, "cluster")

	nz := grid.Dims()[2]
	if a.pool == nil {
		a.pool = worker.NewDynamicWorkerPool(a.workers, int(nz), 1*time.Second)
		a.ownsPool = true
	}
	a.candidates = make([][]viewLight, nz)
	a.sliceStats = make([]Stats, nz)

	a.logger.Debug("cluster assigner created",
		zap.Uint32("clusters", grid.Count()),
		zap.Uint32("max_lights_per_cluster", grid.MaxLightsPerCluster()),
		zap.Uint64("buffer_bytes", a.buffer.Size()),
		zap.Int("workers", a.workers),
	)
	return a, nil
}

func (a *assignerImpl) Assign(view, proj [16]float32, lights light.LightSet) (Stats, error) {
	if lights == nil {
		return Stats{}, fmt.Errorf("%w: nil light set", ErrInvalidInput)
	}
	if n, capacity := lights.NumLights(), lights.MaxLights(); n < 0 || n > capacity || len(lights.Active()) != n {
		return Stats{}, fmt.Errorf("%w: %d active lights with capacity %d", ErrInvalidInput, n, capacity)
	}
	var invProj [16]float32
	if !common.Invert4(invProj[:], proj[:]) {
		return Stats{}, fmt.Errorf("%w: projection is not invertible", ErrInvalidInput)
	}
	radius := lights.Radius()
	if !(radius > 0) {
		return Stats{}, fmt.Errorf("%w: light radius %v", ErrInvalidInput, radius)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bounds.update(a.grid, invProj) {
		a.logger.Debug("cluster bounds rebuilt")
	}

	active := lights.Active()
	a.viewLights = a.viewLights[:0]
	for i, l := range active {
		a.viewLights = append(a.viewLights, viewLight{
			pos:   common.TransformPoint(view[:], l.Position),
			index: uint32(i),
		})
	}
	a.buffer.words[2] = uint32(len(active))

	// Slices are independent; the WaitGroup is the frame barrier since pool
	// workers persist between frames.
	var wg sync.WaitGroup
	for cz := range a.grid.Dims()[2] {
		wg.Add(1)
		a.pool.SubmitTask(worker.Task{
			ID: int(cz),
			Do: func() (any, error) {
				defer wg.Done()
				a.sliceStats[cz] = a.assignSlice(cz, radius)
				return nil, nil
			},
		})
	}
	wg.Wait()

	stats := Stats{NumLights: len(active)}
	for _, s := range a.sliceStats {
		stats.Assignments += s.Assignments
		stats.NonEmpty += s.NonEmpty
		stats.Truncated += s.Truncated
	}
	if stats.Truncated > 0 {
		a.logger.Debug("cluster light lists truncated",
			zap.Int("dropped", stats.Truncated),
			zap.Uint32("capacity", a.grid.MaxLightsPerCluster()),
		)
	}
	return stats, nil
}

// assignSlice rebuilds the light lists of every cluster in depth slice cz.
func (a *assignerImpl) assignSlice(cz uint32, radius float32) Stats {
	var stats Stats
	dims := a.grid.Dims()
	maxLights := a.grid.MaxLightsPerCluster()

	// All clusters of a slice share the z extent [-far, -near].
	dn, df := a.grid.SliceDepths(cz)
	cands := a.candidates[cz][:0]
	for _, vl := range a.viewLights {
		if vl.pos[2]-radius <= -dn && vl.pos[2]+radius >= -df {
			cands = append(cands, vl)
		}
	}
	a.candidates[cz] = cands

	for cy := range dims[1] {
		for cx := range dims[0] {
			c := a.grid.Index(cx, cy, cz)
			box := a.bounds.aabbs[c]
			rec := a.buffer.record(c)
			prev := rec[0]

			n := uint32(0)
			for _, vl := range cands {
				if !box.IntersectsSphere(vl.pos, radius) {
					continue
				}
				if n < maxLights {
					rec[1+n] = vl.index
					n++
				} else {
					stats.Truncated++
				}
			}
			if prev > n {
				clear(rec[1+n : 1+prev])
			}
			rec[0] = n

			stats.Assignments += int(n)
			if n > 0 {
				stats.NonEmpty++
			}
		}
	}
	return stats
}

func (a *assignerImpl) Buffer() *Buffer {
	return a.buffer
}

func (a *assignerImpl) Bounds() []common.AABB {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bounds.aabbs
}

func (a *assignerImpl) Grid() Grid {
	return a.grid
}

func (a *assignerImpl) Close() {
	if a.ownsPool {
		a.pool.Stop()
	}
}
