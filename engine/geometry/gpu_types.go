package geometry

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
)

// GPUGeometrySource is the G-buffer render pipeline. It expects the camera
// uniform, vertex input, material params and G-buffer layout sources ahead of it.
//
//go:embed assets/gbuffer.wgsl
var GPUGeometrySource string

// GPUObjectUniform is the per-drawable uniform of the G-buffer pipeline.
// Matches the WGSL ObjectUniform struct in GPUGeometrySource.
// Size: 160 bytes.
type GPUObjectUniform struct {
	Model        [16]float32                // offset   0: model -> world
	NormalMatrix [16]float32                // offset  64: inverse transpose of Model
	Material     material.GPUMaterialParams // offset 128: surface scalars
}

// NewGPUObjectUniform snapshots a drawable into its GPU uniform.
//
// Parameters:
//   - d: the drawable
//
// Returns:
//   - GPUObjectUniform: the uniform ready for upload
func NewGPUObjectUniform(d scene.Drawable) GPUObjectUniform {
	mat := d.Material
	if mat == nil {
		mat = material.Default
	}
	return GPUObjectUniform{
		Model:        d.Transform,
		NormalMatrix: d.NormalMatrix,
		Material:     mat.Params(),
	}
}

// Size returns the size of the GPUObjectUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (g *GPUObjectUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUObjectUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUObjectUniform) Marshal() []byte {
	buf := make([]byte, 0, g.Size())
	for _, m := range [][16]float32{g.Model, g.NormalMatrix} {
		for _, v := range m {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return append(buf, g.Material.Marshal()...)
}
