package cluster

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-clustered/common"
)

// GPUClusterSource is the canonical WGSL definition of the ClusterParams and
// ClusterSet structs plus the shared cluster index functions. Both the
// assignment and the resolve shaders include it.
//
//go:embed assets/cluster.wgsl
var GPUClusterSource string

// GPUClusterAssignSource is the cluster assignment compute shader. It requires
// the camera, light and cluster sources to be included ahead of it.
//
//go:embed assets/cluster_assign.wgsl
var GPUClusterAssignSource string

// AssignWorkgroupSize is the X and Y workgroup size of GPUClusterAssignSource.
const AssignWorkgroupSize = 8

// GPUClusterParams is the uniform block describing the grid, viewport and light radius.
// Matches the WGSL ClusterParams struct layout exactly (see GPUClusterSource).
// Size: 48 bytes.
type GPUClusterParams struct {
	ScreenWidth         float32   // offset  0: viewport width in pixels
	ScreenHeight        float32   // offset  4: viewport height in pixels
	DimX                uint32    // offset  8: tile columns
	DimY                uint32    // offset 12: tile rows
	DimZ                uint32    // offset 16: depth slices
	Near                float32   // offset 20: clustered near depth
	Far                 float32   // offset 24: clustered far depth
	MaxLightsPerCluster uint32    // offset 28: light list capacity
	LightRadius         float32   // offset 32: influence radius shared by all lights
	Slicing             uint32    // offset 36: 0 = logarithmic, 1 = linear
	_pad                [2]uint32 // offset 40: padding
}

// Size returns the size of the GPUClusterParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (p *GPUClusterParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUClusterParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (p *GPUClusterParams) Marshal() []byte {
	buf := make([]byte, 48)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.ScreenWidth))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.ScreenHeight))
	binary.LittleEndian.PutUint32(buf[8:12], p.DimX)
	binary.LittleEndian.PutUint32(buf[12:16], p.DimY)
	binary.LittleEndian.PutUint32(buf[16:20], p.DimZ)
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(p.Near))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(p.Far))
	binary.LittleEndian.PutUint32(buf[28:32], p.MaxLightsPerCluster)
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(p.LightRadius))
	binary.LittleEndian.PutUint32(buf[36:40], p.Slicing)
	return buf
}

// WorkgroupCounts returns the dispatch size of the assignment shader for grid.
//
// Parameters:
//   - grid: the cluster grid
//
// Returns:
//   - x, y, z: workgroup counts covering every cluster
func WorkgroupCounts(grid Grid) (x, y, z uint32) {
	dims := grid.Dims()
	x = common.CeilDiv(dims[0], AssignWorkgroupSize)
	y = common.CeilDiv(dims[1], AssignWorkgroupSize)
	z = dims[2]
	return
}
