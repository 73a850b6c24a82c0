// Package config handles renderer configuration loading and validation.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Backend names accepted by RendererConfig.Backend.
const (
	BackendGPU      = "gpu"
	BackendSoftware = "software"
)

// Resolve mode names accepted by RendererConfig.Resolve.
const (
	ResolveFullscreen = "fullscreen"
	ResolveCompute    = "compute"
)

// Slicing names accepted by ClustersConfig.Slicing.
const (
	SlicingLog    = "log"
	SlicingLinear = "linear"
)

// Config holds all renderer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Lights   LightsConfig   `yaml:"lights"`
	Clusters ClustersConfig `yaml:"clusters"`
	Camera   CameraConfig   `yaml:"camera"`
	Scene    SceneConfig    `yaml:"scene"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	VSync  bool   `yaml:"vsync"`
}

// RendererConfig selects the execution backend and shading options.
type RendererConfig struct {
	Backend              string     `yaml:"backend"`
	Resolve              string     `yaml:"resolve"`
	ForceFallbackAdapter bool       `yaml:"force_fallback_adapter"`
	Ambient              [3]float32 `yaml:"ambient"`
	Background           [3]float32 `yaml:"background"`
	TickRate             int        `yaml:"tick_rate"`
	FrameLimit           int        `yaml:"frame_limit"`
	Profiling            bool       `yaml:"profiling"`
}

// LightsConfig holds light set settings.
type LightsConfig struct {
	MaxLights int        `yaml:"max_lights"`
	NumLights int        `yaml:"num_lights"`
	Intensity float32    `yaml:"intensity"`
	Radius    float32    `yaml:"radius"`
	Seed      uint64     `yaml:"seed"`
	BoundsMin [3]float32 `yaml:"bounds_min"`
	BoundsMax [3]float32 `yaml:"bounds_max"`
	Animate   bool       `yaml:"animate"`
}

// ClustersConfig holds cluster grid settings.
type ClustersConfig struct {
	X                   int    `yaml:"x"`
	Y                   int    `yaml:"y"`
	Z                   int    `yaml:"z"`
	MaxLightsPerCluster int    `yaml:"max_lights_per_cluster"`
	Slicing             string `yaml:"slicing"`
	Workers             int    `yaml:"workers"`
}

// CameraConfig holds the initial camera placement and projection.
type CameraConfig struct {
	FovDegrees float32    `yaml:"fov_degrees"`
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`
	Position   [3]float32 `yaml:"position"`
	Target     [3]float32 `yaml:"target"`
	Orbit      bool       `yaml:"orbit"`
}

// SceneConfig adds an optional glTF or GLB model to the stock scene.
type SceneConfig struct {
	Model      string  `yaml:"model"`
	ModelScale float32 `yaml:"model_scale"`
}

// OutputConfig controls offline rendering through the software backend.
type OutputConfig struct {
	Dir      string  `yaml:"dir"`
	Frames   int     `yaml:"frames"`
	TimeStep float32 `yaml:"time_step"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the stock scene settings.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Oxy - Clustered Deferred",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Renderer: RendererConfig{
			Backend:    BackendGPU,
			Resolve:    ResolveFullscreen,
			Ambient:    [3]float32{0.02, 0.02, 0.02},
			Background: [3]float32{0, 0, 0},
			TickRate:   60,
		},
		Lights: LightsConfig{
			MaxLights: 5000,
			NumLights: 500,
			Intensity: 0.1,
			Radius:    2.0,
			Seed:      1,
			BoundsMin: [3]float32{-14, 0, -6},
			BoundsMax: [3]float32{14, 12, 6},
			Animate:   true,
		},
		Clusters: ClustersConfig{
			X:                   16,
			Y:                   9,
			Z:                   24,
			MaxLightsPerCluster: 1000,
			Slicing:             SlicingLog,
		},
		Camera: CameraConfig{
			FovDegrees: 45,
			Near:       0.1,
			Far:        100,
			Position:   [3]float32{-12, 5, 0},
			Target:     [3]float32{0, 4, 0},
			Orbit:      true,
		},
		Scene: SceneConfig{
			ModelScale: 1,
		},
		Output: OutputConfig{
			Dir:      "frames",
			Frames:   1,
			TimeStep: 1.0 / 60.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every setting that the renderer would reject, joined into one error.
//
// Returns:
//   - error: nil if the configuration is usable, otherwise an error wrapping ErrInvalidConfig
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d", c.Window.Width, c.Window.Height)
	check(c.Renderer.Backend == BackendGPU || c.Renderer.Backend == BackendSoftware, "renderer.backend %q", c.Renderer.Backend)
	check(c.Renderer.Resolve == ResolveFullscreen || c.Renderer.Resolve == ResolveCompute, "renderer.resolve %q", c.Renderer.Resolve)
	check(c.Lights.MaxLights > 0, "lights.max_lights %d", c.Lights.MaxLights)
	check(c.Lights.NumLights >= 0 && c.Lights.NumLights <= c.Lights.MaxLights,
		"lights.num_lights %d outside [0, %d]", c.Lights.NumLights, c.Lights.MaxLights)
	check(c.Lights.Radius > 0, "lights.radius %v", c.Lights.Radius)
	check(c.Lights.Intensity >= 0, "lights.intensity %v", c.Lights.Intensity)
	for i := range 3 {
		check(c.Lights.BoundsMin[i] <= c.Lights.BoundsMax[i], "lights bounds axis %d inverted", i)
	}
	check(c.Clusters.X > 0 && c.Clusters.Y > 0 && c.Clusters.Z > 0,
		"cluster dims %dx%dx%d", c.Clusters.X, c.Clusters.Y, c.Clusters.Z)
	check(c.Clusters.MaxLightsPerCluster > 0, "clusters.max_lights_per_cluster %d", c.Clusters.MaxLightsPerCluster)
	check(c.Clusters.Slicing == SlicingLog || c.Clusters.Slicing == SlicingLinear, "clusters.slicing %q", c.Clusters.Slicing)
	check(c.Camera.Near > 0 && c.Camera.Near < c.Camera.Far, "camera near/far %v/%v", c.Camera.Near, c.Camera.Far)
	check(c.Camera.FovDegrees > 0 && c.Camera.FovDegrees < 180, "camera.fov_degrees %v", c.Camera.FovDegrees)
	check(c.Scene.ModelScale > 0, "scene.model_scale %v", c.Scene.ModelScale)
	check(c.Output.Frames >= 0, "output.frames %d", c.Output.Frames)

	return errors.Join(errs...)
}
