package shading

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidInputs is returned when Resolve is called with missing or
// mismatched inputs.
var ErrInvalidInputs = errors.New("invalid shading inputs")

// MinDistanceSquared bounds the inverse-square term so a light sitting on a
// surface stays finite.
const MinDistanceSquared = 1e-4

// ResolveMode selects how the GPU backend runs the shading resolve.
type ResolveMode uint32

const (
	// ResolveModeFullscreen shades in a fragment shader over a 4-vertex triangle strip.
	ResolveModeFullscreen ResolveMode = iota

	// ResolveModeCompute shades in 8x8 compute workgroups into a storage texture
	// that is then copied to the surface.
	ResolveModeCompute
)

// String returns the config name of the mode.
func (m ResolveMode) String() string {
	switch m {
	case ResolveModeFullscreen:
		return "fullscreen"
	case ResolveModeCompute:
		return "compute"
	default:
		return fmt.Sprintf("ResolveMode(%d)", uint32(m))
	}
}

// ParseResolveMode maps a config name to a ResolveMode.
func ParseResolveMode(name string) (ResolveMode, error) {
	switch name {
	case "fullscreen", "":
		return ResolveModeFullscreen, nil
	case "compute":
		return ResolveModeCompute, nil
	default:
		return 0, fmt.Errorf("unknown resolve mode %q", name)
	}
}

// Inputs bundles everything one resolve reads. Target and Lights are required;
// Clusters and Grid are required by the clustered resolver only.
type Inputs struct {
	Target   *gbuffer.Target
	Lights   light.LightSet
	Clusters *cluster.Buffer
	Grid     cluster.Grid

	// View maps world to view space. InvView is derived from it when left zero.
	View    [16]float32
	InvView [16]float32
	InvProj [16]float32

	Ambient    [3]float32
	Background [3]float32
}

// Resolver turns a G-buffer into lit color.
type Resolver interface {
	// Resolve shades every pixel of in.Target into out. Uncovered pixels receive
	// the background color and covered pixels ambient plus the sum of their lights.
	//
	// Parameters:
	//   - in: the frame inputs
	//   - out: the destination image, sized like in.Target
	//
	// Returns:
	//   - error: ErrInvalidInputs if the inputs are incomplete or mismatched
	Resolve(in Inputs, out *image.RGBA) error
}

type resolverImpl struct {
	clustered bool
	bands     int
	logger    *zap.Logger
}

var _ Resolver = &resolverImpl{}

// NewResolver creates a Resolver that reads each pixel's light list from the
// cluster buffer.
//
// Parameters:
//   - opts: functional options to configure the resolver
//
// Returns:
//   - Resolver: the clustered resolver
func NewResolver(opts ...ResolverBuilderOption) Resolver {
	return newResolver(true, opts)
}

// NewReferenceResolver creates a Resolver that evaluates every active light at
// every pixel. It produces the image the clustered resolver must match.
//
// Parameters:
//   - opts: functional options to configure the resolver
//
// Returns:
//   - Resolver: the brute force resolver
func NewReferenceResolver(opts ...ResolverBuilderOption) Resolver {
	return newResolver(false, opts)
}

func newResolver(clustered bool, opts []ResolverBuilderOption) *resolverImpl {
	r := &resolverImpl{
		clustered: clustered,
		bands:     runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bands < 1 {
		r.bands = 1
	}
	name := "resolve"
	if !clustered {
		name = "resolve_reference"
	}
	r.logger = logger.Named(r.logger, name)
	return r
}

func (r *resolverImpl) Resolve(in Inputs, out *image.RGBA) error {
	if err := r.validate(in, out); err != nil {
		return err
	}
	if in.InvView == ([16]float32{}) {
		if !common.Invert4(in.InvView[:], in.View[:]) {
			return fmt.Errorf("%w: view matrix is not invertible", ErrInvalidInputs)
		}
	}

	var lights []light.Light
	radius := float32(0)
	if in.Lights != nil {
		lights = in.Lights.Active()
		radius = in.Lights.Radius()
	}
	if r.clustered && in.Clusters.NumLights() != uint32(len(lights)) {
		// The assignment must match the current light count.
		return fmt.Errorf("%w: cluster buffer holds %d lights, light set has %d",
			ErrInvalidInputs, in.Clusters.NumLights(), len(lights))
	}

	sh := shader{
		in:         in,
		lights:     lights,
		radius:     radius,
		clustered:  r.clustered,
		width:      float32(in.Target.Width),
		height:     float32(in.Target.Height),
		background: quantize(in.Background),
	}
	if !r.clustered {
		sh.all = make([]uint32, len(lights))
		for i := range sh.all {
			sh.all[i] = uint32(i)
		}
	}

	height := in.Target.Height
	var g errgroup.Group
	for _, rows := range common.RowBands(height, r.bands) {
		g.Go(func() error {
			sh.rows(out, rows[0], rows[1])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.Debug("shading resolved",
		zap.Int("width", in.Target.Width),
		zap.Int("height", height),
		zap.Int("lights", len(lights)),
	)
	return nil
}

func (r *resolverImpl) validate(in Inputs, out *image.RGBA) error {
	t := in.Target
	if t == nil || t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("%w: missing or empty target", ErrInvalidInputs)
	}
	if n := t.Width * t.Height; len(t.Entries) != n || len(t.Depth) != n {
		return fmt.Errorf("%w: target attachments do not match %dx%d", ErrInvalidInputs, t.Width, t.Height)
	}
	if out == nil {
		return fmt.Errorf("%w: missing output image", ErrInvalidInputs)
	}
	if b := out.Bounds(); b.Dx() != t.Width || b.Dy() != t.Height {
		return fmt.Errorf("%w: output is %dx%d, target is %dx%d",
			ErrInvalidInputs, b.Dx(), b.Dy(), t.Width, t.Height)
	}
	if !r.clustered {
		return nil
	}
	if in.Clusters == nil || in.Grid == nil {
		return fmt.Errorf("%w: clustered resolve needs a grid and a cluster buffer", ErrInvalidInputs)
	}
	if w, h := in.Grid.Viewport(); int(w) != t.Width || int(h) != t.Height {
		return fmt.Errorf("%w: grid viewport %dx%d, target %dx%d", ErrInvalidInputs, w, h, t.Width, t.Height)
	}
	if in.Clusters.Header()[0] != in.Grid.Count() {
		return fmt.Errorf("%w: cluster buffer does not belong to the grid", ErrInvalidInputs)
	}
	return nil
}

type shader struct {
	in         Inputs
	lights     []light.Light
	all        []uint32
	radius     float32
	clustered  bool
	width      float32
	height     float32
	background color.RGBA
}

func (s *shader) rows(out *image.RGBA, y0, y1 int) {
	t := s.in.Target
	origin := out.Bounds().Min
	for y := y0; y < y1; y++ {
		for x := 0; x < t.Width; x++ {
			out.SetRGBA(origin.X+x, origin.Y+y, s.pixel(x, y))
		}
	}
}

func (s *shader) pixel(x, y int) color.RGBA {
	i := s.in.Target.Index(x, y)
	surface, ok := gbuffer.Unpack(s.in.Target.Entries[i])
	if !ok {
		return s.background
	}
	attrs := surface.Decode()

	px := float32(x) + 0.5
	py := float32(y) + 0.5
	ndc := [3]float32{2*px/s.width - 1, 1 - 2*py/s.height, s.in.Target.Depth[i]}
	viewPos := common.Unproject(s.in.InvProj[:], ndc)
	world := common.TransformPoint(s.in.InvView[:], viewPos)

	indices := s.all
	if s.clustered {
		indices = s.in.Clusters.Lights(s.in.Grid.ClusterAt(px, py, -viewPos[2]))
	}

	c := common.Mul3(s.in.Ambient, attrs.Albedo)
	for _, li := range indices {
		l := s.lights[li]
		c = common.Add3(c, Contribution(l, world, attrs.Normal, attrs.Albedo, s.radius))
	}
	return quantize(c)
}

// Contribution evaluates one light at a surface point.
//
// Parameters:
//   - l: the light
//   - position: world-space surface position
//   - normal: unit world-space surface normal
//   - albedo: surface albedo
//   - radius: the light influence radius
//
// Returns:
//   - [3]float32: the linear RGB contribution, zero at and beyond radius
func Contribution(l light.Light, position, normal, albedo [3]float32, radius float32) [3]float32 {
	toLight := common.Sub3(l.Position, position)
	d := common.Length3(toLight)
	if !(d < radius) {
		return [3]float32{}
	}
	ndl := max(common.Dot3(normal, common.Scale3(toLight, 1/max(d, 1e-6))), 0)
	if ndl == 0 {
		return [3]float32{}
	}
	return common.Scale3(common.Mul3(l.Color, albedo), ndl*Falloff(d, radius))
}

// Falloff is the windowed inverse-square attenuation
// clamp(1 - (d/r)^4, 0, 1) / max(d^2, MinDistanceSquared).
func Falloff(d, radius float32) float32 {
	x := d / radius
	x2 := x * x
	return common.Clamp(1-x2*x2, 0, 1) / max(d*d, MinDistanceSquared)
}

func quantize(c [3]float32) color.RGBA {
	return color.RGBA{R: unorm8(c[0]), G: unorm8(c[1]), B: unorm8(c[2]), A: 255}
}

func unorm8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.RoundToEven(float64(v) * 255))
}
