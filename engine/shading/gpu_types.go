package shading

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUShadingSource declares the resolve bindings and shade_pixel. It requires
// the camera, cluster, light and G-buffer layout sources ahead of it.
//
//go:embed assets/shading.wgsl
var GPUShadingSource string

// GPUResolveFullscreenSource is the fullscreen resolve render pipeline, drawn as
// a 4-vertex triangle strip after GPUShadingSource.
//
//go:embed assets/resolve_fullscreen.wgsl
var GPUResolveFullscreenSource string

// GPUResolveComputeSource is the compute resolve writing an rgba8unorm storage
// texture, included after GPUShadingSource.
//
//go:embed assets/resolve_compute.wgsl
var GPUResolveComputeSource string

// ResolveWorkgroupSize is the X and Y workgroup size of GPUResolveComputeSource.
const ResolveWorkgroupSize = 8

// GPUResolveUniforms is the resolve uniform block.
// Matches the WGSL ResolveUniforms struct layout exactly (see GPUShadingSource).
// Size: 48 bytes.
type GPUResolveUniforms struct {
	Ambient    [3]float32 // offset  0: ambient light color
	_pad0      float32    // offset 12
	Background [3]float32 // offset 16: color of uncovered pixels
	_pad1      float32    // offset 28
	ScreenSize [2]float32 // offset 32: viewport in pixels
	_pad2      [2]float32 // offset 40
}

// NewGPUResolveUniforms builds the uniform block for a viewport.
//
// Parameters:
//   - ambient: ambient light color
//   - background: color of uncovered pixels
//   - width, height: viewport size in pixels
//
// Returns:
//   - GPUResolveUniforms: the uniform block
func NewGPUResolveUniforms(ambient, background [3]float32, width, height uint32) GPUResolveUniforms {
	return GPUResolveUniforms{
		Ambient:    ambient,
		Background: background,
		ScreenSize: [2]float32{float32(width), float32(height)},
	}
}

// Size returns the size of the GPUResolveUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPUResolveUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUResolveUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPUResolveUniforms) Marshal() []byte {
	buf := make([]byte, 48)
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Ambient[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Background[i]))
	}
	binary.LittleEndian.PutUint32(buf[32:], math.Float32bits(g.ScreenSize[0]))
	binary.LittleEndian.PutUint32(buf[36:], math.Float32bits(g.ScreenSize[1]))
	return buf
}
