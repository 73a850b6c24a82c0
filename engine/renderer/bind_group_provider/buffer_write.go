package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Write builds a BufferWrite of data at offset 0 of a binding.
//
// Parameters:
//   - p: the provider owning the buffer
//   - binding: the binding index
//   - data: the bytes to upload
//
// Returns:
//   - BufferWrite: the write description
func Write(p BindGroupProvider, binding int, data []byte) BufferWrite {
	return BufferWrite{Provider: p, Binding: binding, Data: data}
}
