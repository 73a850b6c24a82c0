package cluster

import (
	"github.com/Carmen-Shannon/oxy-clustered/common"
)

// headerWords is the number of u32 words ahead of the first cluster record.
const headerWords = 4

// Buffer is the per-cluster light list arena shared by assignment and resolve.
//
// Layout in u32 words: a header {clusterCount, maxLightsPerCluster, numLights, 0}
// followed, for each cluster in index order, by {lightCount, indices[maxLightsPerCluster]}.
// The byte view of the arena is uploaded to the GPU unchanged and matches the
// ClusterSet struct in GPUClusterSource.
type Buffer struct {
	words  []uint32
	count  uint32
	max    uint32
	stride uint32
}

// NewBuffer allocates a zeroed Buffer sized for grid.
//
// Parameters:
//   - grid: the cluster grid
//
// Returns:
//   - *Buffer: the allocated buffer
func NewBuffer(grid Grid) *Buffer {
	count := grid.Count()
	maxLights := grid.MaxLightsPerCluster()
	b := &Buffer{
		words:  make([]uint32, BufferSize(grid)/4),
		count:  count,
		max:    maxLights,
		stride: 1 + maxLights,
	}
	b.words[0] = count
	b.words[1] = maxLights
	return b
}

// BufferSize returns the byte size of a cluster buffer for grid.
//
// Parameters:
//   - grid: the cluster grid
//
// Returns:
//   - uint64: the buffer size in bytes
func BufferSize(grid Grid) uint64 {
	return 4 * (headerWords + uint64(grid.Count())*(1+uint64(grid.MaxLightsPerCluster())))
}

// Header returns the buffer header words.
func (b *Buffer) Header() [4]uint32 {
	return [4]uint32(b.words[:headerWords])
}

// NumLights returns the active light count recorded by the last assignment.
func (b *Buffer) NumLights() uint32 {
	return b.words[2]
}

// Count returns the number of lights assigned to cluster c.
func (b *Buffer) Count(c uint32) uint32 {
	return b.words[b.offset(c)]
}

// Lights returns the light indices of cluster c. The slice aliases the arena
// and must not be modified.
func (b *Buffer) Lights(c uint32) []uint32 {
	off := b.offset(c)
	n := b.words[off]
	return b.words[off+1 : off+1+n : off+1+n]
}

// Words returns the whole arena.
func (b *Buffer) Words() []uint32 {
	return b.words
}

// Bytes returns a little-endian byte view of the arena without copying.
func (b *Buffer) Bytes() []byte {
	return common.SliceToBytes(b.words)
}

// Size returns the arena size in bytes.
func (b *Buffer) Size() uint64 {
	return uint64(len(b.words)) * 4
}

func (b *Buffer) offset(c uint32) uint32 {
	return headerWords + c*b.stride
}

// record returns the full record of cluster c, count word included.
func (b *Buffer) record(c uint32) []uint32 {
	off := b.offset(c)
	return b.words[off : off+b.stride]
}
