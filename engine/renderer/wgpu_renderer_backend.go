package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderTarget is a texture with its default view.
type renderTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *renderTarget) release() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	// layouts holds the bind group layouts created for each registered pipeline, by group.
	layouts map[string][]*wgpu.BindGroupLayout
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Surface() *wgpu.Surface

	// SurfaceFormats returns the formats the surface can be configured with on this adapter.
	//
	// Returns:
	//   - []wgpu.TextureFormat: supported formats, preferred first
	SurfaceFormats() []wgpu.TextureFormat

	// ConfigureSurface (re)configures the swapchain. Required after every resize.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	//   - format: the swapchain format
	//   - usage: the swapchain texture usage
	//   - mode: the present mode
	ConfigureSurface(width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage, mode wgpu.PresentMode)

	// RegisterRenderPipeline creates the shader modules, bind group layouts, pipeline layout
	// and render pipeline for p, and stores the pipeline on it via SetRenderPipeline.
	//
	// Parameters:
	//   - p: a validated render pipeline description
	//
	// Returns:
	//   - error: ErrResourceCreation wrapping the device error
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline creates the shader module, bind group layouts, pipeline layout
	// and compute pipeline for p, and stores the pipeline on it via SetComputePipeline.
	//
	// Parameters:
	//   - p: a validated compute pipeline description
	//
	// Returns:
	//   - error: ErrResourceCreation wrapping the device error
	RegisterComputePipeline(p pipeline.Pipeline) error

	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the size in bytes
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: ErrResourceCreation wrapping the device error
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// CreateTarget allocates a 2D texture and its view.
	//
	// Parameters:
	//   - label: the debug label
	//   - format: the texel format
	//   - usage: the texture usage flags
	//   - width, height: the size in pixels
	//
	// Returns:
	//   - *renderTarget: the texture and view
	//   - error: ErrResourceCreation wrapping the device error
	CreateTarget(label string, format wgpu.TextureFormat, usage wgpu.TextureUsage, width, height int) (*renderTarget, error)

	// InitMeshBuffers uploads vertex and index data and stores the buffers on provider.
	//
	// Parameters:
	//   - provider: receives the buffers through SetMesh
	//   - vertexData, indexData: the raw bytes to upload
	//   - indexCount: number of indices drawn
	//
	// Returns:
	//   - error: ErrResourceCreation wrapping the device error
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates the bind group of provider against the layout the pipeline
	// registered for group.
	//
	// Parameters:
	//   - provider: holds the buffers and views to bind
	//   - pipelineKey: the registered pipeline the bind group is used with
	//   - group: the bind group index
	//
	// Returns:
	//   - error: ErrResourceCreation for an unknown layout or a device error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int) error

	// WriteBuffers queues every staged buffer write.
	//
	// Parameters:
	//   - writes: the writes; targets without a buffer are skipped
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// Release releases the device objects owned by the backend.
	Release()
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
		layouts:  make(map[string][]*wgpu.BindGroupLayout),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", ErrResourceCreation, err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrResourceCreation, err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) SurfaceFormats() []wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.GetCapabilities(b.adapter).Formats
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage, mode wgpu.PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	var alpha wgpu.CompositeAlphaMode
	if len(capabilities.AlphaModes) > 0 {
		alpha = capabilities.AlphaModes[0]
	}
	size := extent(width, height)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       usage,
		Format:      format,
		Width:       size.Width,
		Height:      size.Height,
		PresentMode: mode,
		AlphaMode:   alpha,
	})
}

// createLayouts creates one bind group layout per group index, filling gaps with empty layouts.
func (b *wgpuRendererBackendImpl) createLayouts(p pipeline.Pipeline) ([]*wgpu.BindGroupLayout, error) {
	descriptors := p.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		if g > maxGroup {
			maxGroup = g
		}
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range layouts {
		desc, ok := descriptors[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s group %d", p.PipelineKey(), g)}
		}
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			for _, l := range layouts[:g] {
				l.Release()
			}
			return nil, fmt.Errorf("%w: bind group layout %d of %s: %v", ErrResourceCreation, g, p.PipelineKey(), err)
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func (b *wgpuRendererBackendImpl) shaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key() + " " + s.ShaderType().String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: shader module %s: %v", ErrResourceCreation, s.Key(), err)
	}
	return m, nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.shaderModule(vertexShader)
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.shaderModule(fragmentShader)
	if err != nil {
		return err
	}
	defer fs.Release()

	layouts, err := b.createLayouts(p)
	if err != nil {
		return err
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("%w: pipeline layout %s: %v", ErrResourceCreation, p.PipelineKey(), err)
	}
	defer pipelineLayout.Release()

	target := wgpu.ColorTargetState{
		Format:    p.ColorFormat(),
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	var depthStencil *wgpu.DepthStencilState
	if p.DepthFormat() != wgpu.TextureFormatUndefined {
		depthCompare := wgpu.CompareFunctionLess
		if !p.DepthTestEnabled() {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            p.DepthFormat(),
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("%w: render pipeline %s: %v", ErrResourceCreation, p.PipelineKey(), err)
	}

	p.SetRenderPipeline(created)
	b.storeLayouts(p.PipelineKey(), layouts)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	computeShader := p.Shader(shader.ShaderTypeCompute)
	s, err := b.shaderModule(computeShader)
	if err != nil {
		return err
	}
	defer s.Release()

	layouts, err := b.createLayouts(p)
	if err != nil {
		return err
	}
	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("%w: pipeline layout %s: %v", ErrResourceCreation, p.PipelineKey(), err)
	}
	defer layout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("%w: compute pipeline %s: %v", ErrResourceCreation, p.PipelineKey(), err)
	}

	p.SetComputePipeline(created)
	b.storeLayouts(p.PipelineKey(), layouts)
	return nil
}

// storeLayouts replaces the layouts kept for key. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) storeLayouts(key string, layouts []*wgpu.BindGroupLayout) {
	releaseLayouts(b.layouts[key])
	b.layouts[key] = layouts
}

func releaseLayouts(layouts []*wgpu.BindGroupLayout) {
	for _, l := range layouts {
		if l != nil {
			l.Release()
		}
	}
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: buffer %s: %v", ErrResourceCreation, label, err)
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) CreateTarget(label string, format wgpu.TextureFormat, usage wgpu.TextureUsage, width, height int) (*renderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent(width, height),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: texture %s: %v", ErrResourceCreation, label, err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("%w: texture view %s: %v", ErrResourceCreation, label, err)
	}
	return &renderTarget{texture: texture, view: view}, nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: vertex buffer %s: %v", ErrResourceCreation, provider.Label(), err)
	}
	ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return fmt.Errorf("%w: index buffer %s: %v", ErrResourceCreation, provider.Label(), err)
	}
	b.queue.WriteBuffer(vb, 0, vertexData)
	b.queue.WriteBuffer(ib, 0, indexData)
	provider.SetMesh(vb, ib, indexCount)
	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	layouts := b.layouts[pipelineKey]
	if group < 0 || group >= len(layouts) {
		return fmt.Errorf("%w: pipeline %s has no bind group %d", ErrResourceCreation, pipelineKey, group)
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  layouts[group],
		Entries: provider.Entries(),
	})
	if err != nil {
		return fmt.Errorf("%w: bind group %s: %v", ErrResourceCreation, provider.Label(), err)
	}
	provider.SetBindGroup(bg)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, layouts := range b.layouts {
		releaseLayouts(layouts)
		delete(b.layouts, key)
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
