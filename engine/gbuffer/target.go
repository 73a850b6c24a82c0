package gbuffer

// Target is a CPU G-buffer with its depth attachment. Depth holds WebGPU
// normalized device depth in [0, 1]; the cleared value is 1 (far).
type Target struct {
	Width   int
	Height  int
	Entries []Entry
	Depth   []float32
}

// NewTarget allocates a cleared Target.
func NewTarget(width, height int) *Target {
	t := &Target{}
	t.Resize(width, height)
	return t
}

// Resize reallocates the attachments when the size changes and clears them.
func (t *Target) Resize(width, height int) {
	n := max(width, 0) * max(height, 0)
	if cap(t.Entries) < n {
		t.Entries = make([]Entry, n)
		t.Depth = make([]float32, n)
	}
	t.Entries = t.Entries[:n]
	t.Depth = t.Depth[:n]
	t.Width, t.Height = width, height
	t.Clear()
}

// Clear resets every entry to background and every depth to 1.
func (t *Target) Clear() {
	clear(t.Entries)
	for i := range t.Depth {
		t.Depth[i] = 1
	}
}

// Index returns the linear index of pixel (x, y), row-major from the top-left.
func (t *Target) Index(x, y int) int {
	return y*t.Width + x
}

// At returns the entry and depth of pixel (x, y).
func (t *Target) At(x, y int) (Entry, float32) {
	i := t.Index(x, y)
	return t.Entries[i], t.Depth[i]
}
