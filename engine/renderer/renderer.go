package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/frame"
	"github.com/Carmen-Shannon/oxy-clustered/engine/geometry"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
	"github.com/Carmen-Shannon/oxy-clustered/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

var (
	// ErrResourceCreation wraps every failure to create a GPU object.
	ErrResourceCreation = errors.New("gpu resource creation failed")

	// ErrNoScene is returned when a renderer is created without a scene.
	ErrNoScene = errors.New("renderer needs a scene")

	// ErrSurfaceUnavailable is returned when the swapchain image cannot be acquired.
	// The frame is dropped and the next one may succeed.
	ErrSurfaceUnavailable = errors.New("surface texture unavailable")
)

// Shared buffer keys.
const (
	bufCamera = iota
	bufClusterParams
	bufLights
	bufClusters
	bufTime
	bufOrbit
	bufResolve
)

// Renderer runs the clustered deferred frame on the GPU through WebGPU.
// Light movement is submitted on its own. Assignment, geometry and resolve are
// recorded into one frame encoder that Present submits once.
type Renderer interface {
	frame.Backend

	// Grid returns the cluster grid.
	Grid() cluster.Grid

	// ResolveMode returns the resolve in use, which may differ from the requested
	// one when the surface cannot take the compute output.
	ResolveMode() shading.ResolveMode

	// SurfaceFormat returns the configured swapchain format.
	SurfaceFormat() wgpu.TextureFormat

	// Pipeline returns a registered pipeline by key, or nil.
	//
	// Parameters:
	//   - key: one of the shader.Program* keys
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline or nil
	Pipeline(key string) pipeline.Pipeline

	// Resize reconfigures the surface and recreates the size-dependent targets.
	//
	// Parameters:
	//   - width, height: the new surface size in pixels
	//
	// Returns:
	//   - error: cluster.ErrInvalidGrid for an empty size, or ErrResourceCreation
	Resize(width, height int) error

	// Close releases every GPU object.
	//
	// Returns:
	//   - error: always nil
	Close() error
}

type renderer struct {
	mu      sync.Mutex
	backend wgpuRendererBackend
	scene   scene.Scene
	empty   light.LightSet
	grid    cluster.Grid
	logger  *zap.Logger

	width                int
	height               int
	dims                 [3]uint32
	slicing              cluster.Slicing
	maxLightsPerCluster  uint32
	presentMode          PresentMode
	requestedResolve     shading.ResolveMode
	resolveMode          shading.ResolveMode
	surfaceFormat        wgpu.TextureFormat
	forceFallbackAdapter bool

	pipelineCache map[string]pipeline.Pipeline

	// shared owns the buffers bound by more than one pipeline.
	shared     bind_group_provider.BindGroupProvider
	moveLights bind_group_provider.BindGroupProvider
	assign     bind_group_provider.BindGroupProvider
	camera     bind_group_provider.BindGroupProvider
	resolve    bind_group_provider.BindGroupProvider
	meshes     map[model.Model]bind_group_provider.BindGroupProvider
	objects    map[uint64]bind_group_provider.BindGroupProvider

	// uploaded is the light set whose static data is on the GPU.
	uploaded light.LightSet

	gbuffer *renderTarget
	depth   *renderTarget
	output  *renderTarget

	// Frame state, valid between AssignClusters and Present.
	encoder      *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ Renderer = &renderer{}

// NewRenderer creates the GPU backend for sc, drawing into win's surface.
//
// Parameters:
//   - win: the window providing the surface descriptor and the initial size
//   - sc: the scene to render
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the ready renderer
//   - error: ErrNoScene, a grid configuration error or ErrResourceCreation
func NewRenderer(win window.Window, sc scene.Scene, options ...RendererBuilderOption) (Renderer, error) {
	if sc == nil {
		return nil, ErrNoScene
	}
	r := &renderer{
		scene:               sc,
		width:               win.Width(),
		height:              win.Height(),
		dims:                [3]uint32{cluster.DefaultDimX, cluster.DefaultDimY, cluster.DefaultDimZ},
		maxLightsPerCluster: cluster.DefaultMaxLightsPerCluster,
		presentMode:         PresentModeVSync,
		pipelineCache:       make(map[string]pipeline.Pipeline),
		meshes:              make(map[model.Model]bind_group_provider.BindGroupProvider),
		objects:             make(map[uint64]bind_group_provider.BindGroupProvider),
	}
	for _, opt := range options {
		opt(r)
	}
	r.logger = logger.Named(r.logger, "renderer")

	cam := sc.Camera()
	cam.SetAspect(float32(max(r.width, 1)) / float32(max(r.height, 1)))
	grid, err := cluster.NewGrid(
		cluster.WithDims(r.dims[0], r.dims[1], r.dims[2]),
		cluster.WithDepthRange(cam.Near(), cam.Far()),
		cluster.WithViewport(uint32(r.width), uint32(r.height)),
		cluster.WithSlicing(r.slicing),
		cluster.WithMaxLightsPerCluster(r.maxLightsPerCluster),
	)
	if err != nil {
		return nil, err
	}
	r.grid = grid
	empty, err := light.NewLightSet(light.WithMaxLights(1), light.WithNumLights(0), light.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	r.empty = empty

	backend, err := newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
	if err != nil {
		return nil, err
	}
	r.backend = backend

	var fellBack bool
	r.surfaceFormat, r.resolveMode, fellBack = chooseSurface(r.requestedResolve, backend.SurfaceFormats())
	if r.surfaceFormat == wgpu.TextureFormatUndefined {
		r.Close()
		return nil, fmt.Errorf("%w: surface reports no formats", ErrResourceCreation)
	}
	if fellBack {
		r.logger.Warn("surface cannot take the compute resolve output, using fullscreen resolve",
			zap.Stringer("requested", r.requestedResolve),
			zap.Any("format", r.surfaceFormat),
		)
	}
	backend.ConfigureSurface(r.width, r.height, r.surfaceFormat, surfaceUsage(r.resolveMode), wgpuPresentMode(r.presentMode))

	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}

	r.logger.Info("gpu renderer ready",
		zap.Int("width", r.width),
		zap.Int("height", r.height),
		zap.Uint32("clusters", grid.Count()),
		zap.Stringer("resolve", r.resolveMode),
		zap.Any("surface_format", r.surfaceFormat),
	)
	return r, nil
}

// init registers the pipelines and creates every buffer, target and bind group.
func (r *renderer) init() error {
	if err := r.registerPipelines(); err != nil {
		return err
	}
	if err := r.createSharedBuffers(); err != nil {
		return err
	}
	if err := r.createTargets(); err != nil {
		return err
	}
	if err := r.createBindGroups(); err != nil {
		return err
	}
	r.uploadLights(r.lights())
	return nil
}

func (r *renderer) registerPipelines() error {
	var pipelines []pipeline.Pipeline
	for _, key := range []string{shader.ProgramMoveLights, shader.ProgramClusterAssign} {
		cs, err := shader.LoadProgram(key, shader.ShaderTypeCompute)
		if err != nil {
			return err
		}
		pipelines = append(pipelines, pipeline.NewPipeline(key, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(cs)))
	}

	vs, err := shader.LoadProgram(shader.ProgramGeometry, shader.ShaderTypeVertex)
	if err != nil {
		return err
	}
	fs, err := shader.LoadProgram(shader.ProgramGeometry, shader.ShaderTypeFragment)
	if err != nil {
		return err
	}
	pipelines = append(pipelines, pipeline.NewPipeline(shader.ProgramGeometry, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithColorFormat(GBufferFormat),
		pipeline.WithDepthFormat(DepthFormat),
		pipeline.WithCullMode(wgpu.CullModeBack),
	))

	switch r.resolveMode {
	case shading.ResolveModeCompute:
		cs, err := shader.LoadProgram(shader.ProgramResolveCompute, shader.ShaderTypeCompute)
		if err != nil {
			return err
		}
		pipelines = append(pipelines, pipeline.NewPipeline(shader.ProgramResolveCompute, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(cs),
		))
	default:
		rvs, err := shader.LoadProgram(shader.ProgramResolveFullscreen, shader.ShaderTypeVertex)
		if err != nil {
			return err
		}
		rfs, err := shader.LoadProgram(shader.ProgramResolveFullscreen, shader.ShaderTypeFragment)
		if err != nil {
			return err
		}
		pipelines = append(pipelines, pipeline.NewPipeline(shader.ProgramResolveFullscreen, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(rvs),
			pipeline.WithFragmentShader(rfs),
			pipeline.WithColorFormat(r.surfaceFormat),
			pipeline.WithDepthFormat(wgpu.TextureFormatUndefined),
			pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		))
	}

	for _, p := range pipelines {
		var err error
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			err = r.backend.RegisterComputePipeline(p)
		case pipeline.PipelineTypeRender:
			err = r.backend.RegisterRenderPipeline(p)
		}
		if err != nil {
			return err
		}
		r.pipelineCache[p.PipelineKey()] = p
		r.logger.Debug("pipeline registered", zap.String("key", p.PipelineKey()))
	}
	return nil
}

func (r *renderer) createSharedBuffers() error {
	uniform := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	var (
		cam    = r.scene.Camera().Uniform()
		params = r.grid.Params()
		tu     light.GPUTimeUniform
		orbit  light.GPUOrbitParams
		ru     shading.GPUResolveUniforms
	)
	specs := []struct {
		key   int
		label string
		size  uint64
		usage wgpu.BufferUsage
	}{
		{bufCamera, "Camera Uniform", uint64(cam.Size()), uniform},
		{bufClusterParams, "Cluster Params", uint64(params.Size()), uniform},
		{bufLights, "Light Set", light.LightBufferSize(r.lights().MaxLights()), storage},
		{bufClusters, "Cluster Set", cluster.BufferSize(r.grid), wgpu.BufferUsageStorage},
		{bufTime, "Time Uniform", uint64(tu.Size()), uniform},
		{bufOrbit, "Orbit Params", uint64(orbit.Size()), uniform},
		{bufResolve, "Resolve Uniforms", uint64(ru.Size()), uniform},
	}

	r.shared = bind_group_provider.NewBindGroupProvider("shared")
	for _, s := range specs {
		buf, err := r.backend.CreateBuffer(s.label, s.size, s.usage)
		if err != nil {
			return err
		}
		r.shared.SetBuffer(s.key, buf)
	}
	return nil
}

func (r *renderer) createTargets() error {
	gbuffer, err := r.backend.CreateTarget("G-Buffer", GBufferFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, r.width, r.height)
	if err != nil {
		return err
	}
	depth, err := r.backend.CreateTarget("Depth", DepthFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, r.width, r.height)
	if err != nil {
		gbuffer.release()
		return err
	}
	var output *renderTarget
	if r.resolveMode == shading.ResolveModeCompute {
		output, err = r.backend.CreateTarget("Resolve Output", ResolveStorageFormat,
			wgpu.TextureUsageStorageBinding|wgpu.TextureUsageCopySrc, r.width, r.height)
		if err != nil {
			gbuffer.release()
			depth.release()
			return err
		}
	}
	r.releaseTargets()
	r.gbuffer, r.depth, r.output = gbuffer, depth, output
	return nil
}

func (r *renderer) releaseTargets() {
	r.gbuffer.release()
	r.depth.release()
	r.output.release()
	r.gbuffer, r.depth, r.output = nil, nil, nil
}

// bindGroupSpec describes a group 0 bind group and where to store it.
type bindGroupSpec struct {
	target   *bind_group_provider.BindGroupProvider
	label    string
	pipeline string
	opts     []bind_group_provider.BindGroupProviderOption
}

// createBindGroups (re)builds every bind group that does not belong to a drawable.
func (r *renderer) createBindGroups() error {
	shared := func(bindings ...[2]int) []bind_group_provider.BindGroupProviderOption {
		opts := make([]bind_group_provider.BindGroupProviderOption, 0, len(bindings))
		for _, b := range bindings {
			opts = append(opts, bind_group_provider.WithSharedBuffer(b[0], r.shared.Buffer(b[1])))
		}
		return opts
	}

	groups := []bindGroupSpec{
		{&r.moveLights, "Move Lights", shader.ProgramMoveLights,
			shared([2]int{0, bufLights}, [2]int{1, bufTime}, [2]int{2, bufOrbit})},
		{&r.assign, "Cluster Assign", shader.ProgramClusterAssign,
			shared([2]int{0, bufCamera}, [2]int{1, bufClusterParams}, [2]int{2, bufLights}, [2]int{3, bufClusters})},
		{&r.camera, "Geometry Camera", shader.ProgramGeometry,
			shared([2]int{0, bufCamera})},
	}

	resolveKey := shader.ProgramResolveFullscreen
	resolveOpts := append(shared(
		[2]int{0, bufCamera}, [2]int{1, bufClusterParams}, [2]int{2, bufResolve},
		[2]int{3, bufLights}, [2]int{4, bufClusters},
	),
		bind_group_provider.WithTextureView(5, r.gbuffer.view),
		bind_group_provider.WithTextureView(6, r.depth.view),
	)
	if r.resolveMode == shading.ResolveModeCompute {
		resolveKey = shader.ProgramResolveCompute
		resolveOpts = append(resolveOpts, bind_group_provider.WithTextureView(7, r.output.view))
	}
	groups = append(groups, bindGroupSpec{&r.resolve, "Resolve", resolveKey, resolveOpts})

	for _, g := range groups {
		p := bind_group_provider.NewBindGroupProvider(g.label, g.opts...)
		if err := r.backend.InitBindGroup(p, g.pipeline, 0); err != nil {
			p.Release()
			return err
		}
		if *g.target != nil {
			(*g.target).Release()
		}
		*g.target = p
	}
	return nil
}

// lights returns the scene light set or an empty one.
func (r *renderer) lights() light.LightSet {
	if ls := r.scene.Lights(); ls != nil {
		return ls
	}
	return r.empty
}

// uploadLights writes the whole light set, colors included.
func (r *renderer) uploadLights(ls light.LightSet) {
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		bind_group_provider.Write(r.shared, bufLights, ls.Marshal()),
	})
	r.uploaded = ls
}

// ensureLights reallocates the light buffer when the scene swapped in a light set
// with a different capacity, and re-uploads static data for any new set.
func (r *renderer) ensureLights(ls light.LightSet) error {
	if ls == r.uploaded {
		return nil
	}
	size := light.LightBufferSize(ls.MaxLights())
	if r.uploaded == nil || light.LightBufferSize(r.uploaded.MaxLights()) != size {
		buf, err := r.backend.CreateBuffer("Light Set", size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
		if err != nil {
			return err
		}
		if old := r.shared.Buffer(bufLights); old != nil {
			old.Release()
		}
		r.shared.SetBuffer(bufLights, buf)
		if err := r.createBindGroups(); err != nil {
			return err
		}
	}
	r.uploadLights(ls)
	r.logger.Debug("light set uploaded", zap.Int("max_lights", ls.MaxLights()), zap.Int("num_lights", ls.NumLights()))
	return nil
}

// beginFrame creates the frame encoder, dropping any frame left unfinished.
func (r *renderer) beginFrame() error {
	if r.encoder != nil {
		r.logger.Debug("dropping unfinished frame")
		r.abortFrame()
	}
	encoder, err := r.backend.Device().CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: command encoder: %v", ErrResourceCreation, err)
	}
	r.encoder = encoder
	return nil
}

// frameEncoder returns the open encoder, or ErrStageOrder when no frame is open.
func (r *renderer) frameEncoder() (*wgpu.CommandEncoder, error) {
	if r.encoder == nil {
		return nil, fmt.Errorf("%w: no frame in progress", frame.ErrStageOrder)
	}
	return r.encoder, nil
}

// abortFrame releases the frame encoder and any acquired surface image.
func (r *renderer) abortFrame() {
	if r.encoder != nil {
		r.encoder.Release()
		r.encoder = nil
	}
	r.releaseSurfaceTexture()
}

func (r *renderer) releaseSurfaceTexture() {
	if r.frameView != nil {
		r.frameView.Release()
		r.frameView = nil
	}
	if r.frameSurface != nil {
		r.frameSurface.Release()
		r.frameSurface = nil
	}
}

// acquireSurface acquires the swapchain image for the frame.
func (r *renderer) acquireSurface() error {
	if r.frameSurface != nil {
		return nil
	}
	surfaceTexture, err := r.backend.Surface().GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("%w: surface view: %v", ErrResourceCreation, err)
	}
	r.frameSurface = surfaceTexture
	r.frameView = view
	return nil
}

func (r *renderer) dispatch(encoder *wgpu.CommandEncoder, key string, provider bind_group_provider.BindGroupProvider, x, y, z uint32) {
	p := r.pipelineCache[key]
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: key})
	pass.SetPipeline(p.Pipeline().(*wgpu.ComputePipeline))
	pass.SetBindGroup(0, provider.BindGroup(), nil)
	pass.DispatchWorkgroups(x, y, z)
	pass.End()
}

func (r *renderer) AnimateLights(t float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder != nil {
		r.logger.Debug("dropping unfinished frame")
		r.abortFrame()
	}
	ls := r.lights()
	if err := r.ensureLights(ls); err != nil {
		return err
	}

	orbit, ok := ls.Animator().(light.OrbitAnimator)
	if !ok {
		ls.Animate(t)
		r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
			bind_group_provider.Write(r.shared, bufLights, ls.Marshal()),
		})
		return nil
	}

	tu := light.GPUTimeUniform{Time: t}
	params := orbit.Params()
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		bind_group_provider.Write(r.shared, bufLights, ls.MarshalHeader()),
		bind_group_provider.Write(r.shared, bufTime, tu.Marshal()),
		bind_group_provider.Write(r.shared, bufOrbit, params.Marshal()),
	})
	n := uint32(ls.NumLights())
	if n == 0 {
		return nil
	}

	// Light movement is its own submission so it completes before assignment reads the lights.
	encoder, err := r.backend.Device().CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Move Lights"})
	if err != nil {
		return fmt.Errorf("%w: command encoder: %v", ErrResourceCreation, err)
	}
	defer encoder.Release()
	r.dispatch(encoder, shader.ProgramMoveLights, r.moveLights, dispatchSize(n, light.MoveLightsWorkgroupSize), 1, 1)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("%w: finish light movement: %v", ErrResourceCreation, err)
	}
	r.backend.Queue().Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (r *renderer) AssignClusters() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.beginFrame(); err != nil {
		return err
	}
	encoder := r.encoder
	sceneCam := r.scene.Camera()
	if err := cluster.FollowDepthRange(r.grid, sceneCam.Near(), sceneCam.Far()); err != nil {
		return err
	}
	cam := sceneCam.Uniform()
	params := r.grid.Params()
	params.LightRadius = r.lights().Radius()
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		bind_group_provider.Write(r.shared, bufCamera, cam.Marshal()),
		bind_group_provider.Write(r.shared, bufClusterParams, params.Marshal()),
	})
	x, y, z := cluster.WorkgroupCounts(r.grid)
	r.dispatch(encoder, shader.ProgramClusterAssign, r.assign, x, y, z)
	return nil
}

// meshFor returns the uploaded mesh of m, uploading it on first use.
func (r *renderer) meshFor(m model.Model) (bind_group_provider.BindGroupProvider, error) {
	if mesh, ok := r.meshes[m]; ok {
		return mesh, nil
	}
	mesh := bind_group_provider.NewBindGroupProvider(m.Name())
	if err := r.backend.InitMeshBuffers(mesh, m.VertexData(), m.IndexData(), m.IndexCount()); err != nil {
		return nil, err
	}
	r.meshes[m] = mesh
	return mesh, nil
}

// objectFor returns the object uniform bind group of a drawable, creating it on first use.
func (r *renderer) objectFor(id uint64) (bind_group_provider.BindGroupProvider, error) {
	if obj, ok := r.objects[id]; ok {
		return obj, nil
	}
	var u geometry.GPUObjectUniform
	buf, err := r.backend.CreateBuffer(fmt.Sprintf("Object %d Uniform", id), uint64(u.Size()), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	obj := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Object %d", id), bind_group_provider.WithBuffer(0, buf))
	if err := r.backend.InitBindGroup(obj, shader.ProgramGeometry, 1); err != nil {
		obj.Release()
		return nil, err
	}
	r.objects[id] = obj
	return obj, nil
}

// drawItem is one recorded draw of the geometry pass.
type drawItem struct {
	mesh   bind_group_provider.BindGroupProvider
	object bind_group_provider.BindGroupProvider
}

func (r *renderer) RenderGeometry() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder, err := r.frameEncoder()
	if err != nil {
		return err
	}

	var (
		items  []drawItem
		writes []bind_group_provider.BufferWrite
		seen   = make(map[uint64]struct{}, len(r.objects))
	)
	for d := range r.scene.Drawables() {
		if d.Model == nil || d.Model.IndexCount() == 0 {
			continue
		}
		mesh, err := r.meshFor(d.Model)
		if err != nil {
			r.abortFrame()
			return err
		}
		obj, err := r.objectFor(d.ID)
		if err != nil {
			r.abortFrame()
			return err
		}
		u := geometry.NewGPUObjectUniform(d)
		writes = append(writes, bind_group_provider.Write(obj, 0, u.Marshal()))
		items = append(items, drawItem{mesh: mesh, object: obj})
		seen[d.ID] = struct{}{}
	}
	for id, obj := range r.objects {
		if _, ok := seen[id]; !ok {
			obj.Release()
			delete(r.objects, id)
		}
	}
	r.backend.WriteBuffers(writes)

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Geometry Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       r.gbuffer.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	if len(items) > 0 {
		pass.SetPipeline(r.pipelineCache[shader.ProgramGeometry].Pipeline().(*wgpu.RenderPipeline))
		pass.SetBindGroup(0, r.camera.BindGroup(), nil)
		for _, it := range items {
			pass.SetBindGroup(1, it.object.BindGroup(), nil)
			pass.SetVertexBuffer(0, it.mesh.VertexBuffer(), 0, wgpu.WholeSize)
			pass.SetIndexBuffer(it.mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(uint32(it.mesh.IndexCount()), 1, 0, 0, 0)
		}
	}
	pass.End()
	return nil
}

func (r *renderer) ResolveShading() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder, err := r.frameEncoder()
	if err != nil {
		return err
	}
	ru := shading.NewGPUResolveUniforms(r.scene.Ambient(), r.scene.Background(), uint32(r.width), uint32(r.height))
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		bind_group_provider.Write(r.shared, bufResolve, ru.Marshal()),
	})

	if r.resolveMode == shading.ResolveModeCompute {
		r.dispatch(encoder, shader.ProgramResolveCompute, r.resolve,
			dispatchSize(uint32(r.width), shading.ResolveWorkgroupSize),
			dispatchSize(uint32(r.height), shading.ResolveWorkgroupSize),
			1,
		)
		if err := r.acquireSurface(); err != nil {
			r.abortFrame()
			return err
		}
		size := extent(r.width, r.height)
		encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: r.output.texture, Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyTexture{Texture: r.frameSurface, Aspect: wgpu.TextureAspectAll},
			&size,
		)
		return nil
	}

	if err := r.acquireSurface(); err != nil {
		r.abortFrame()
		return err
	}
	bg := r.scene.Background()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Resolve Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       r.frameView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: float64(bg[0]), G: float64(bg[1]), B: float64(bg[2]), A: 1.0},
			},
		},
	})
	pass.SetPipeline(r.pipelineCache[shader.ProgramResolveFullscreen].Pipeline().(*wgpu.RenderPipeline))
	pass.SetBindGroup(0, r.resolve.BindGroup(), nil)
	pass.Draw(4, 1, 0, 0)
	pass.End()
	return nil
}

func (r *renderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder, err := r.frameEncoder()
	if err != nil {
		return err
	}
	if r.frameSurface == nil {
		r.abortFrame()
		return fmt.Errorf("%w: present before resolve", frame.ErrStageOrder)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		r.abortFrame()
		return fmt.Errorf("%w: finish frame: %v", ErrResourceCreation, err)
	}
	r.backend.Queue().Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
	r.encoder = nil

	r.backend.Surface().Present()
	r.releaseSurfaceTexture()
	return nil
}

func (r *renderer) Grid() cluster.Grid {
	return r.grid
}

func (r *renderer) ResolveMode() shading.ResolveMode {
	return r.resolveMode
}

func (r *renderer) SurfaceFormat() wgpu.TextureFormat {
	return r.surfaceFormat
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", cluster.ErrInvalidGrid, width, height)
	}
	if err := r.grid.Resize(uint32(width), uint32(height)); err != nil {
		return err
	}
	r.abortFrame()
	r.width, r.height = width, height
	r.scene.Camera().SetAspect(float32(width) / float32(height))
	r.backend.ConfigureSurface(width, height, r.surfaceFormat, surfaceUsage(r.resolveMode), wgpuPresentMode(r.presentMode))
	if err := r.createTargets(); err != nil {
		return err
	}
	if err := r.createBindGroups(); err != nil {
		return err
	}
	r.logger.Debug("surface resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (r *renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.abortFrame()
	for _, p := range []bind_group_provider.BindGroupProvider{r.moveLights, r.assign, r.camera, r.resolve, r.shared} {
		if p != nil {
			p.Release()
		}
	}
	r.moveLights, r.assign, r.camera, r.resolve, r.shared = nil, nil, nil, nil, nil
	for m, mesh := range r.meshes {
		mesh.Release()
		delete(r.meshes, m)
	}
	for id, obj := range r.objects {
		obj.Release()
		delete(r.objects, id)
	}
	r.releaseTargets()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	if r.backend != nil {
		r.backend.Release()
		r.backend = nil
	}
	return nil
}
