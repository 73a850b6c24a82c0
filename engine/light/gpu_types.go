package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULightSource is the canonical WGSL definition of the Light, LightSet and
// TimeUniform structs. Matches GPULightSetHeader, GPULight and GPUTimeUniform exactly.
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPUMoveLightsSource is the light animation compute shader. It requires
// GPULightSource to be included ahead of it.
//
//go:embed assets/move_lights.wgsl
var GPUMoveLightsSource string

// MoveLightsWorkgroupSize is the x workgroup size declared by GPUMoveLightsSource.
const MoveLightsWorkgroupSize = 64

// GPULightSetHeader is the header at the start of the light storage buffer.
// Size: 16 bytes (u32 + 12 bytes padding so the light array starts 16-aligned).
type GPULightSetHeader struct {
	NumLights uint32    // offset 0: active light count
	_pad      [3]uint32 // offset 4: padding
}

// Size returns the size of the GPULightSetHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (h *GPULightSetHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the GPULightSetHeader struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (h *GPULightSetHeader) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], h.NumLights)
	return buf
}

// GPULight is the GPU-aligned representation of a single point light.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 32 bytes (two vec3<f32> each padded to 16).
type GPULight struct {
	Position [3]float32 // offset  0: world-space position
	_pad0    float32    // offset 12: padding
	Color    [3]float32 // offset 16: RGB color, intensity applied
	_pad1    float32    // offset 28: padding
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 32)
	off := 0
	for _, v := range g.Position {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	off += 4
	for _, v := range g.Color {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return buf
}

// LightBufferSize returns the byte size of a light storage buffer holding maxLights lights.
//
// Parameters:
//   - maxLights: the light capacity
//
// Returns:
//   - uint64: header size plus maxLights light records
func LightBufferSize(maxLights int) uint64 {
	return uint64((&GPULightSetHeader{}).Size() + maxLights*(&GPULight{}).Size())
}

// GPUTimeUniform carries the animation time to the move_lights shader.
// Size: 16 bytes (f32 + padding to a uniform-friendly size).
type GPUTimeUniform struct {
	Time float32    // offset 0: seconds
	_pad [3]float32 // offset 4: padding
}

// Size returns the size of the GPUTimeUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (u *GPUTimeUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUTimeUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (u *GPUTimeUniform) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(u.Time))
	return buf
}

// GPUOrbitParams is the uniform block describing an OrbitAnimator.
// Matches the WGSL OrbitParams struct in GPUMoveLightsSource.
// Size: 48 bytes.
type GPUOrbitParams struct {
	BaseMin     [3]float32 // offset  0: lower corner of the base point volume
	Seed        uint32     // offset 12: hash seed
	BaseMax     [3]float32 // offset 16: upper corner of the base point volume
	OrbitRadius float32    // offset 28: XZ orbit radius
	Bob         float32    // offset 32: Y bob amplitude
	Speed       float32    // offset 36: base angular speed
	_pad        [2]float32 // offset 40: padding
}

// Size returns the size of the GPUOrbitParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (p *GPUOrbitParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUOrbitParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (p *GPUOrbitParams) Marshal() []byte {
	buf := make([]byte, 48)
	off := 0
	for _, v := range p.BaseMin {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], p.Seed)
	off += 4
	for _, v := range p.BaseMax {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.OrbitRadius))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.Bob))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.Speed))
	return buf
}
