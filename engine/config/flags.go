package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagBackend  = flag.String("backend", "", "Execution backend: gpu or software")
	flagResolve  = flag.String("resolve", "", "Shading resolve mode: fullscreen or compute")
	flagLights   = flag.Int("lights", -1, "Number of active lights")
	flagWidth    = flag.Int("width", 0, "Framebuffer width")
	flagHeight   = flag.Int("height", 0, "Framebuffer height")
	flagFrames   = flag.Int("frames", -1, "Frames to render offline")
	flagOut      = flag.String("out", "", "Output directory for offline frames")
	flagFallback = flag.Bool("fallback-adapter", false, "Force the software WebGPU adapter")
	flagModel    = flag.String("model", "", "glTF or GLB model to add to the scene")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Renderer.Profiling = true
	}
	if *flagBackend != "" {
		cfg.Renderer.Backend = *flagBackend
	}
	if *flagResolve != "" {
		cfg.Renderer.Resolve = *flagResolve
	}
	if *flagLights >= 0 {
		cfg.Lights.NumLights = *flagLights
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagFrames >= 0 {
		cfg.Output.Frames = *flagFrames
	}
	if *flagOut != "" {
		cfg.Output.Dir = *flagOut
	}
	if *flagFallback {
		cfg.Renderer.ForceFallbackAdapter = true
	}
	if *flagModel != "" {
		cfg.Scene.Model = *flagModel
	}
}
