package cluster

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferLayout(t *testing.T) {
	g, err := NewGrid(WithDims(2, 2, 2), WithMaxLightsPerCluster(3))
	require.NoError(t, err)

	b := NewBuffer(g)
	assert.Equal(t, uint64(4*(4+8*4)), BufferSize(g))
	assert.Equal(t, BufferSize(g), b.Size())
	assert.Equal(t, [4]uint32{8, 3, 0, 0}, b.Header())

	rec := b.record(5)
	rec[0] = 2
	rec[1], rec[2] = 7, 9
	assert.Equal(t, uint32(2), b.Count(5))
	assert.Equal(t, []uint32{7, 9}, b.Lights(5))
	assert.Empty(t, b.Lights(4))

	raw := b.Bytes()
	require.Len(t, raw, int(b.Size()))
	off := 4 * (4 + 5*4)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw[off:]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(raw[off+4:]))
}
