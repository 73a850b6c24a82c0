package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (336 bytes, uniform aligned).
//
//go:embed assets/camera.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 336 bytes.
type GPUCameraUniform struct {
	View     [16]float32 // offset   0: world -> view
	Proj     [16]float32 // offset  64: view -> clip
	InvProj  [16]float32 // offset 128: clip -> view
	InvView  [16]float32 // offset 192: view -> world
	ViewProj [16]float32 // offset 256: world -> clip
	Position [4]float32  // offset 320: eye position, w = 1
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (336)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := 0
	for _, m := range [][16]float32{g.View, g.Proj, g.InvProj, g.InvView, g.ViewProj} {
		for i := range 16 {
			binary.LittleEndian.PutUint32(buf[off+i*4:], math.Float32bits(m[i]))
		}
		off += 64
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[off+i*4:], math.Float32bits(g.Position[i]))
	}
	return buf
}
