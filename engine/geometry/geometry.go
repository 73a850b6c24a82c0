package geometry

import (
	"errors"
	"fmt"
	"iter"
	"runtime"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidTarget is returned when a G-buffer target is missing or its
// attachments do not match its dimensions.
var ErrInvalidTarget = errors.New("invalid geometry target")

// CullMode selects which triangle facing is discarded before rasterization.
type CullMode uint32

const (
	// CullBack discards back-facing triangles.
	CullBack CullMode = iota

	// CullFront discards front-facing triangles.
	CullFront

	// CullNone rasterizes both facings.
	CullNone
)

// FrontFace selects the winding order, as seen in normalized device coordinates,
// that marks a triangle as front-facing.
type FrontFace uint32

const (
	// FrontFaceCCW treats counter-clockwise triangles as front-facing.
	FrontFaceCCW FrontFace = iota

	// FrontFaceCW treats clockwise triangles as front-facing.
	FrontFaceCW
)

// Stats summarizes one Render call.
type Stats struct {
	Drawables int // drawables submitted
	Culled    int // drawables rejected by the frustum test
	Triangles int // triangles of the surviving drawables
	Clipped   int // triangles fully removed by near/far clipping or facing
	Fragments int // fragments that passed the depth test
}

// Pass rasterizes scene geometry into a G-buffer target.
type Pass interface {
	// Render draws every drawable into target using depth test "less" with depth
	// writes and no blending. The target is not cleared, so callers clear it once
	// per frame before the first Render.
	//
	// Parameters:
	//   - target: the G-buffer and depth attachment to draw into
	//   - viewProj: the camera's projection * view matrix
	//   - drawables: the geometry to draw, in submission order
	//
	// Returns:
	//   - Stats: counters for the call
	//   - error: ErrInvalidTarget if the target is unusable
	Render(target *gbuffer.Target, viewProj [16]float32, drawables iter.Seq[scene.Drawable]) (Stats, error)
}

type passImpl struct {
	cullMode  CullMode
	frontFace FrontFace
	bands     int
	logger    *zap.Logger
}

var _ Pass = &passImpl{}

// NewPass creates a CPU geometry Pass.
// Defaults to back-face culling, counter-clockwise front faces and one row band per CPU.
//
// Parameters:
//   - opts: functional options to configure the pass
//
// Returns:
//   - Pass: the new geometry pass
func NewPass(opts ...PassBuilderOption) Pass {
	p := &passImpl{
		cullMode:  CullBack,
		frontFace: FrontFaceCCW,
		bands:     runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bands < 1 {
		p.bands = 1
	}
	p.logger = logger.Named(p.logger, "geometry")
	return p
}

func (p *passImpl) Render(target *gbuffer.Target, viewProj [16]float32, drawables iter.Seq[scene.Drawable]) (Stats, error) {
	var stats Stats
	if target == nil || target.Width <= 0 || target.Height <= 0 {
		return stats, fmt.Errorf("%w: missing or empty target", ErrInvalidTarget)
	}
	n := target.Width * target.Height
	if len(target.Entries) != n || len(target.Depth) != n {
		return stats, fmt.Errorf("%w: attachments hold %d/%d texels, want %d",
			ErrInvalidTarget, len(target.Entries), len(target.Depth), n)
	}

	frustum := common.ExtractFrustumFromMatrix(viewProj[:])
	setup := triangleSetup{
		width:     float32(target.Width),
		height:    float32(target.Height),
		cullMode:  p.cullMode,
		frontFace: p.frontFace,
	}
	var tris []screenTriangle
	for d := range drawables {
		stats.Drawables++
		if !frustum.IntersectsSphere(d.Center, d.Radius) {
			stats.Culled++
			continue
		}
		var submitted, dropped int
		tris, submitted, dropped = setup.appendDrawable(tris, viewProj, d)
		stats.Triangles += submitted
		stats.Clipped += dropped
	}
	if len(tris) == 0 {
		return stats, nil
	}

	bands := common.RowBands(target.Height, p.bands)
	fragments := make([]int, len(bands))
	var g errgroup.Group
	for b, rows := range bands {
		g.Go(func() error {
			fragments[b] = rasterizeBand(target, tris, rows[0], rows[1])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	for _, f := range fragments {
		stats.Fragments += f
	}

	p.logger.Debug("geometry rendered",
		zap.Int("drawables", stats.Drawables),
		zap.Int("culled", stats.Culled),
		zap.Int("triangles", stats.Triangles),
		zap.Int("fragments", stats.Fragments),
	)
	return stats, nil
}
