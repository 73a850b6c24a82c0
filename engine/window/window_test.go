package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	w, err := newEngineWindow()
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, w.title)
	assert.Equal(t, DefaultWidth, w.Width())
	assert.Equal(t, DefaultHeight, w.Height())
	assert.Equal(t, [4]int{DefaultMinWidth, DefaultMinHeight, DefaultMaxWidth, DefaultMaxHeight},
		[4]int{w.minWidth, w.minHeight, w.maxWidth, w.maxHeight})
}

func TestBuilderOptions(t *testing.T) {
	w, err := newEngineWindow(
		WithTitle("clustered"),
		WithSize(1920, 1080),
		WithSizeLimits(640, 360, 2560, 1440),
	)
	require.NoError(t, err)
	assert.Equal(t, "clustered", w.title)
	assert.Equal(t, 1920, w.Width())
	assert.Equal(t, 1080, w.Height())
	assert.Equal(t, [4]int{640, 360, 2560, 1440}, [4]int{w.minWidth, w.minHeight, w.maxWidth, w.maxHeight})
}

func TestBuilderKeepsDefaultsForUnsetFields(t *testing.T) {
	w, err := newEngineWindow(WithTitle(""), WithSize(0, 900), WithSizeLimits(0, 0, 0, 1000))
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, w.title)
	assert.Equal(t, DefaultWidth, w.Width())
	assert.Equal(t, 900, w.Height())
	assert.Equal(t, 1000, w.maxHeight)
}

func TestBuilderClampsSizeToLimits(t *testing.T) {
	w, err := newEngineWindow(WithSize(100, 5000))
	require.NoError(t, err)
	assert.Equal(t, DefaultMinWidth, w.Width())
	assert.Equal(t, DefaultMaxHeight, w.Height())
}

func TestNewWindowRejectsUnusableSize(t *testing.T) {
	tests := []struct {
		name string
		opts []WindowBuilderOption
	}{
		{"negative width", []WindowBuilderOption{WithSize(-1, 720)}},
		{"inverted limits", []WindowBuilderOption{WithSizeLimits(800, 600, 640, 480)}},
		{"negative minimum", []WindowBuilderOption{WithSizeLimits(-10, 180, 0, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWindow(tt.opts...)
			assert.ErrorIs(t, err, ErrWindowCreation)
			assert.Nil(t, w)
		})
	}
}

func TestDispatchKey(t *testing.T) {
	w := &engineWindow{}
	assert.True(t, w.dispatchKey(common.KeyEsc, true), "escape closes a window without a key handler")
	assert.False(t, w.dispatchKey(common.KeySpace, true))

	var down, up []uint32
	w.SetKeyDownCallback(func(code uint32) { down = append(down, code) })
	w.SetKeyUpCallback(func(code uint32) { up = append(up, code) })
	assert.False(t, w.dispatchKey(common.KeyEsc, true), "the key handler decides how to quit")
	assert.False(t, w.dispatchKey(common.KeyEsc, false))
	assert.Equal(t, []uint32{common.KeyEsc}, down)
	assert.Equal(t, []uint32{common.KeyEsc}, up)
}

func TestDispatchResize(t *testing.T) {
	w, err := newEngineWindow()
	require.NoError(t, err)
	var got [][2]int
	w.SetResizeCallback(func(width, height int) { got = append(got, [2]int{width, height}) })

	w.dispatchResize(2560, 1440)
	w.dispatchResize(0, 0)
	assert.Equal(t, [][2]int{{2560, 1440}, {0, 0}}, got)
	assert.Zero(t, w.Width())
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.RequestClose()
	assert.False(t, w.IsRunning())
	w.SetTitle("no window")
	assert.Equal(t, "no window", w.title)
}
