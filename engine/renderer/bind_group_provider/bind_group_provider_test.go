package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindGroupProviderKeepsLabel(t *testing.T) {
	p := NewBindGroupProvider("resolve")
	assert.Equal(t, "resolve", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Empty(t, p.Entries())
}

func TestEntriesSortedByBinding(t *testing.T) {
	camera, lights := &wgpu.Buffer{}, &wgpu.Buffer{}
	gbuf, depth := &wgpu.TextureView{}, &wgpu.TextureView{}

	p := NewBindGroupProvider("resolve",
		WithTextureView(6, depth),
		WithBuffer(3, lights),
		WithTextureView(5, gbuf),
		WithBuffer(0, camera),
	)
	entries := p.Entries()
	require.Len(t, entries, 4)

	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Same(t, camera, entries[0].Buffer)
	assert.Equal(t, uint64(wgpu.WholeSize), entries[0].Size)

	assert.Equal(t, uint32(3), entries[1].Binding)
	assert.Same(t, lights, entries[1].Buffer)

	assert.Equal(t, uint32(5), entries[2].Binding)
	assert.Same(t, gbuf, entries[2].TextureView)
	assert.Nil(t, entries[2].Buffer)

	assert.Equal(t, uint32(6), entries[3].Binding)
	assert.Same(t, depth, entries[3].TextureView)

	assert.Same(t, lights, p.Buffer(3))
	assert.Nil(t, p.Buffer(1))
	assert.Same(t, gbuf, p.TextureView(5))
}

func TestSetMesh(t *testing.T) {
	p := NewBindGroupProvider("cube")
	vb, ib := &wgpu.Buffer{}, &wgpu.Buffer{}
	p.SetMesh(vb, ib, 36)

	assert.Same(t, vb, p.VertexBuffer())
	assert.Same(t, ib, p.IndexBuffer())
	assert.Equal(t, 36, p.IndexCount())
}

func TestWrite(t *testing.T) {
	p := NewBindGroupProvider("object")
	w := Write(p, 2, []byte{1, 2, 3})
	assert.Same(t, p, w.Provider)
	assert.Equal(t, 2, w.Binding)
	assert.Zero(t, w.Offset)
	assert.Equal(t, []byte{1, 2, 3}, w.Data)
}

func TestSharedBuffers(t *testing.T) {
	owned, shared, other := &wgpu.Buffer{}, &wgpu.Buffer{}, &wgpu.Buffer{}
	p := NewBindGroupProvider("assign",
		WithSharedBuffer(0, shared),
		WithSharedBuffer(1, other),
		WithBuffer(1, owned),
	)
	entries := p.Entries()
	require.Len(t, entries, 2)
	assert.Same(t, shared, entries[0].Buffer)
	assert.Same(t, owned, entries[1].Buffer)
	assert.Same(t, owned, p.Buffer(1))
	assert.Same(t, shared, p.Buffer(0))

	p.SetSharedBuffer(2, other)
	assert.Same(t, other, p.Buffer(2))
	assert.Len(t, p.Entries(), 3)
}
