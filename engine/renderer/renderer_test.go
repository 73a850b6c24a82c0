package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestChooseSurface(t *testing.T) {
	bgraFirst := []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8Unorm}
	bgraOnly := []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb}

	tests := []struct {
		name      string
		requested shading.ResolveMode
		formats   []wgpu.TextureFormat
		format    wgpu.TextureFormat
		mode      shading.ResolveMode
		fellBack  bool
	}{
		{"fullscreen uses preferred format", shading.ResolveModeFullscreen, bgraFirst, wgpu.TextureFormatBGRA8Unorm, shading.ResolveModeFullscreen, false},
		{"compute picks rgba8", shading.ResolveModeCompute, bgraFirst, wgpu.TextureFormatRGBA8Unorm, shading.ResolveModeCompute, false},
		{"compute falls back without rgba8", shading.ResolveModeCompute, bgraOnly, wgpu.TextureFormatBGRA8Unorm, shading.ResolveModeFullscreen, true},
		{"no formats", shading.ResolveModeFullscreen, nil, wgpu.TextureFormatUndefined, shading.ResolveModeFullscreen, false},
		{"no formats with compute", shading.ResolveModeCompute, nil, wgpu.TextureFormatUndefined, shading.ResolveModeFullscreen, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, mode, fellBack := chooseSurface(tt.requested, tt.formats)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.mode, mode)
			assert.Equal(t, tt.fellBack, fellBack)
		})
	}
}

func TestSurfaceUsage(t *testing.T) {
	assert.Equal(t, wgpu.TextureUsageRenderAttachment, surfaceUsage(shading.ResolveModeFullscreen))
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageCopyDst, surfaceUsage(shading.ResolveModeCompute))
}

func TestWGPUPresentMode(t *testing.T) {
	assert.Equal(t, wgpu.PresentModeFifo, wgpuPresentMode(PresentModeVSync))
	assert.Equal(t, wgpu.PresentModeImmediate, wgpuPresentMode(PresentModeUncapped))
}

func TestDispatchSize(t *testing.T) {
	assert.Equal(t, uint32(0), dispatchSize(0, 64))
	assert.Equal(t, uint32(1), dispatchSize(1, 64))
	assert.Equal(t, uint32(1), dispatchSize(64, 64))
	assert.Equal(t, uint32(2), dispatchSize(65, 64))
	assert.Equal(t, uint32(160), dispatchSize(1280, shading.ResolveWorkgroupSize))
	assert.Equal(t, uint32(90), dispatchSize(720, shading.ResolveWorkgroupSize))
	assert.Equal(t, uint32(0), dispatchSize(10, 0))
}

func TestExtentClampsEmptyViewport(t *testing.T) {
	e := extent(0, -3)
	assert.Equal(t, uint32(1), e.Width)
	assert.Equal(t, uint32(1), e.Height)
	assert.Equal(t, uint32(1), e.DepthOrArrayLayers)

	e = extent(1280, 720)
	assert.Equal(t, uint32(1280), e.Width)
	assert.Equal(t, uint32(720), e.Height)
}

func TestBuilderOptions(t *testing.T) {
	r := &renderer{}
	WithPresentMode(PresentModeUncapped)(r)
	WithForceSoftwareRenderer(true)(r)
	WithResolveMode(shading.ResolveModeCompute)(r)
	WithGrid([3]uint32{8, 4, 12}, cluster.SlicingLinear, 64)(r)

	assert.Equal(t, PresentModeUncapped, r.presentMode)
	assert.True(t, r.forceFallbackAdapter)
	assert.Equal(t, shading.ResolveModeCompute, r.requestedResolve)
	assert.Equal(t, [3]uint32{8, 4, 12}, r.dims)
	assert.Equal(t, cluster.SlicingLinear, r.slicing)
	assert.Equal(t, uint32(64), r.maxLightsPerCluster)
}
