package window

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/common"
)

// Window defaults. The minimum keeps every cluster tile of the default grid at
// least 20 pixels wide.
const (
	DefaultTitle     = "Oxy - Clustered Deferred"
	DefaultWidth     = 1280
	DefaultHeight    = 720
	DefaultMinWidth  = 320
	DefaultMinHeight = 180
	DefaultMaxWidth  = 3840
	DefaultMaxHeight = 2160
)

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the base title shown in the title bar. An empty title keeps DefaultTitle.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = common.Coalesce(title, w.title)
	}
}

// WithSize sets the requested client area in pixels. A zero dimension keeps
// the current value, so an unset config field falls back to the default.
//
// Parameters:
//   - width: requested width in pixels
//   - height: requested height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = common.Coalesce(width, w.width)
		w.height = common.Coalesce(height, w.height)
	}
}

// WithSizeLimits bounds interactive resizing. Zero keeps the current limit.
//
// Parameters:
//   - minWidth, minHeight: smallest client area in pixels
//   - maxWidth, maxHeight: largest client area in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = common.Coalesce(minWidth, w.minWidth)
		w.minHeight = common.Coalesce(minHeight, w.minHeight)
		w.maxWidth = common.Coalesce(maxWidth, w.maxWidth)
		w.maxHeight = common.Coalesce(maxHeight, w.maxHeight)
	}
}

// newEngineWindow applies options over the defaults and fits the requested
// size into the limits. No platform window is created.
func newEngineWindow(options ...WindowBuilderOption) (*engineWindow, error) {
	w := &engineWindow{
		title:     DefaultTitle,
		width:     DefaultWidth,
		height:    DefaultHeight,
		minWidth:  DefaultMinWidth,
		minHeight: DefaultMinHeight,
		maxWidth:  DefaultMaxWidth,
		maxHeight: DefaultMaxHeight,
	}
	for _, opt := range options {
		opt(w)
	}

	if w.width <= 0 || w.height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrWindowCreation, w.width, w.height)
	}
	if w.minWidth <= 0 || w.minHeight <= 0 || w.minWidth > w.maxWidth || w.minHeight > w.maxHeight {
		return nil, fmt.Errorf("%w: size limits %dx%d to %dx%d",
			ErrWindowCreation, w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	}
	w.width = common.Clamp(w.width, w.minWidth, w.maxWidth)
	w.height = common.Clamp(w.height, w.minHeight, w.maxHeight)
	return w, nil
}
