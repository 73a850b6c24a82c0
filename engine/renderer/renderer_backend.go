package renderer

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Render target formats.
const (
	// GBufferFormat packs one G-buffer entry per pixel.
	GBufferFormat = wgpu.TextureFormatRGBA32Uint

	// DepthFormat is the geometry pass depth attachment, sampled by the resolve.
	DepthFormat = wgpu.TextureFormatDepth24Plus

	// ResolveStorageFormat is the compute resolve output, copied to the surface.
	ResolveStorageFormat = wgpu.TextureFormatRGBA8Unorm
)

// wgpuPresentMode maps a PresentMode to the surface present mode.
func wgpuPresentMode(mode PresentMode) wgpu.PresentMode {
	switch mode {
	case PresentModeVSync:
		return wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		return wgpu.PresentModeImmediate
	}
}

// chooseSurface picks the surface format and the effective resolve mode.
// The compute resolve copies an rgba8unorm storage texture into the swapchain
// image, so it needs a surface that can be configured as RGBA8Unorm. When it
// cannot, the fullscreen resolve is used instead and fellBack is true.
func chooseSurface(requested shading.ResolveMode, formats []wgpu.TextureFormat) (format wgpu.TextureFormat, mode shading.ResolveMode, fellBack bool) {
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined, shading.ResolveModeFullscreen, requested != shading.ResolveModeFullscreen
	}
	if requested == shading.ResolveModeCompute {
		if slices.Contains(formats, ResolveStorageFormat) {
			return ResolveStorageFormat, shading.ResolveModeCompute, false
		}
		return formats[0], shading.ResolveModeFullscreen, true
	}
	return formats[0], shading.ResolveModeFullscreen, false
}

// surfaceUsage returns the usage the surface must be configured with for a resolve mode.
func surfaceUsage(mode shading.ResolveMode) wgpu.TextureUsage {
	if mode == shading.ResolveModeCompute {
		return wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst
	}
	return wgpu.TextureUsageRenderAttachment
}

// dispatchSize returns the workgroup count covering n items in groups of size.
func dispatchSize(n, size uint32) uint32 {
	return common.CeilDiv(n, size)
}

// extent returns the 2D texture size of a viewport.
func extent(width, height int) wgpu.Extent3D {
	return wgpu.Extent3D{
		Width:              uint32(max(width, 1)),
		Height:             uint32(max(height, 1)),
		DepthOrArrayLayers: 1,
	}
}
