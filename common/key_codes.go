package common

// Virtual key codes delivered by the window key callbacks.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyMinus = 45  // - key, fewer active lights
	KeyEqual = 61  // = key, more active lights
	KeyF     = 70  // F key, toggle frame profiling
	KeyP     = 80  // P key, pause light animation
	KeySpace = 32  // Spacebar, pause camera orbit
	KeyEsc   = 256 // Escape key (GLFW)
	KeyRight = 262 // Right arrow (GLFW)
	KeyLeft  = 263 // Left arrow (GLFW)
	KeyDown  = 264 // Down arrow (GLFW)
	KeyUp    = 265 // Up arrow (GLFW)
)
