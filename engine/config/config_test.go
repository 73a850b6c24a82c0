package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.Clusters.X)
	assert.Equal(t, 9, cfg.Clusters.Y)
	assert.Equal(t, 24, cfg.Clusters.Z)
	assert.Equal(t, 1000, cfg.Clusters.MaxLightsPerCluster)
	assert.Equal(t, 500, cfg.Lights.NumLights)
	assert.Equal(t, 5000, cfg.Lights.MaxLights)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"unknown backend", func(c *Config) { c.Renderer.Backend = "vulkan" }},
		{"unknown resolve", func(c *Config) { c.Renderer.Resolve = "tiled" }},
		{"too many lights", func(c *Config) { c.Lights.NumLights = c.Lights.MaxLights + 1 }},
		{"negative lights", func(c *Config) { c.Lights.NumLights = -1 }},
		{"zero radius", func(c *Config) { c.Lights.Radius = 0 }},
		{"inverted bounds", func(c *Config) { c.Lights.BoundsMin[1] = 20 }},
		{"zero cluster dim", func(c *Config) { c.Clusters.Z = 0 }},
		{"zero cluster capacity", func(c *Config) { c.Clusters.MaxLightsPerCluster = 0 }},
		{"unknown slicing", func(c *Config) { c.Clusters.Slicing = "exp" }},
		{"near past far", func(c *Config) { c.Camera.Near = 200 }},
		{"zero near", func(c *Config) { c.Camera.Near = 0 }},
		{"wide fov", func(c *Config) { c.Camera.FovDegrees = 180 }},
		{"zero model scale", func(c *Config) { c.Scene.ModelScale = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateJoinsAllIssues(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 0
	cfg.Clusters.X = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window size")
	assert.Contains(t, err.Error(), "cluster dims")
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "oxy.yaml")

	cfg := Default()
	cfg.Lights.NumLights = 42
	cfg.Renderer.Backend = BackendSoftware
	cfg.Clusters.Slicing = SlicingLinear
	require.NoError(t, cfg.SaveTo(path))

	loaded := Default()
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lights:\n  num_lights: 7\nclusters:\n  z: 12\n"), 0644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path))
	assert.Equal(t, 7, cfg.Lights.NumLights)
	assert.Equal(t, 12, cfg.Clusters.Z)
	assert.Equal(t, 16, cfg.Clusters.X)
	assert.Equal(t, float32(2.0), cfg.Lights.Radius)
}

func TestLoadFromFileMissing(t *testing.T) {
	err := loadFromFile(Default(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	oldLights, oldBackend, oldDebug, oldModel := *flagLights, *flagBackend, *flagDebug, *flagModel
	t.Cleanup(func() {
		*flagLights, *flagBackend, *flagDebug, *flagModel = oldLights, oldBackend, oldDebug, oldModel
	})

	*flagLights = 0
	*flagBackend = BackendSoftware
	*flagDebug = true
	*flagModel = "sponza.glb"

	cfg := Default()
	applyFlags(cfg)
	assert.Equal(t, 0, cfg.Lights.NumLights)
	assert.Equal(t, BackendSoftware, cfg.Renderer.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Renderer.Profiling)
	assert.Equal(t, "sponza.glb", cfg.Scene.Model)
}
