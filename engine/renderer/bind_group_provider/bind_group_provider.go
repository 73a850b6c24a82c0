package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

type bindGroupProvider struct {
	label string

	// bindGroup is created by the renderer from Entries.
	bindGroup *wgpu.BindGroup

	// buffers are owned by the provider and released with it.
	buffers map[int]*wgpu.Buffer

	// shared buffers are owned elsewhere and bound by several providers.
	shared map[int]*wgpu.Buffer

	// textureViews are borrowed from render targets and never released here.
	textureViews map[int]*wgpu.TextureView

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

// BindGroupProvider holds the GPU resources behind one bind group, or the
// vertex and index buffers of one mesh.
//
// Usage pattern:
//  1. The renderer creates a provider and allocates its buffers
//  2. The renderer creates the bind group from Entries and stores it with SetBindGroup
//  3. Per frame, the renderer uploads data through BufferWrite values
//  4. Draw and dispatch calls bind BindGroup
type BindGroupProvider interface {
	// Release releases the bind group and every owned buffer. Shared buffers and
	// texture views are borrowed and left alone.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil before creation.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// Buffer returns the owned or shared buffer at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Entries returns one bind group entry per buffer and texture view, sorted by
	// binding. Buffers are bound whole. An owned buffer wins over a shared one
	// at the same binding.
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: entries ready for a BindGroupDescriptor
	Entries() []wgpu.BindGroupEntry

	// VertexBuffer returns the GPU vertex buffer, or nil.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the GPU index buffer, or nil.
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices for indexed draws.
	IndexCount() int

	// SetBindGroup stores the created bind group, releasing the previous one.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBuffer stores an owned buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetSharedBuffer stores a borrowed buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetSharedBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores a borrowed texture view at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetMesh stores the vertex and index buffers of a mesh.
	//
	// Parameters:
	//   - vertices: the vertex buffer
	//   - indices: the index buffer
	//   - indexCount: number of indices to draw
	SetMesh(vertices, indices *wgpu.Buffer, indexCount int)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty BindGroupProvider.
//
// Parameters:
//   - label: the debug label, also used for the GPU objects created for it
//   - options: functional options to configure the provider
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		shared:       make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	if buf, ok := p.buffers[binding]; ok {
		return buf
	}
	return p.shared[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Entries() []wgpu.BindGroupEntry {
	entries := make([]wgpu.BindGroupEntry, 0, len(p.buffers)+len(p.shared)+len(p.textureViews))
	for b := range p.shared {
		if _, owned := p.buffers[b]; owned {
			continue
		}
		entries = append(entries, bufferEntry(b, p.shared[b]))
	}
	for b, buf := range p.buffers {
		entries = append(entries, bufferEntry(b, buf))
	}
	for b, tv := range p.textureViews {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(b),
			TextureView: tv,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	return entries
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetSharedBuffer(binding int, buf *wgpu.Buffer) {
	p.shared[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetMesh(vertices, indices *wgpu.Buffer, indexCount int) {
	p.vertexBuffer = vertices
	p.indexBuffer = indices
	p.indexCount = indexCount
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for b, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, b)
	}
	clear(p.shared)
	clear(p.textureViews)
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.indexCount = 0
}

func bufferEntry(binding int, buf *wgpu.Buffer) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{
		Binding: uint32(binding),
		Buffer:  buf,
		Offset:  0,
		Size:    wgpu.WholeSize,
	}
}
