package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/config"
	"github.com/Carmen-Shannon/oxy-clustered/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/loader"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
	"github.com/Carmen-Shannon/oxy-clustered/engine/software"
	"github.com/Carmen-Shannon/oxy-clustered/engine/window"
	"go.uber.org/zap"
)

// DefaultOrbitSpeed is the camera orbit speed in radians per second when camera.orbit is set.
const DefaultOrbitSpeed = 0.2

// NewLights creates the light set described by cfg.Lights.
//
// Parameters:
//   - cfg: the configuration
//   - l: the parent logger
//
// Returns:
//   - light.LightSet: the light set
//   - error: a light set configuration error
func NewLights(cfg *config.Config, l *zap.Logger) (light.LightSet, error) {
	lc := cfg.Lights
	return light.NewLightSet(
		light.WithMaxLights(lc.MaxLights),
		light.WithNumLights(lc.NumLights),
		light.WithIntensity(lc.Intensity),
		light.WithRadius(lc.Radius),
		light.WithSeed(lc.Seed),
		light.WithBounds(common.AABB{Min: lc.BoundsMin, Max: lc.BoundsMax}),
		light.WithLogger(l),
	)
}

// NewCamera creates the camera described by cfg.Camera, with the window aspect.
func NewCamera(cfg *config.Config) camera.Camera {
	cc := cfg.Camera
	return camera.NewCamera(
		camera.WithPosition(cc.Position),
		camera.WithTarget(cc.Target),
		camera.WithFov(cc.FovDegrees*math.Pi/180),
		camera.WithAspect(float32(cfg.Window.Width)/float32(cfg.Window.Height)),
		camera.WithDepthRange(cc.Near, cc.Far),
	)
}

// NewDemoScene builds the stock scene: a floor, a back wall and rows of cubes
// and spheres with varied materials inside the light volume. When
// cfg.Scene.Model is set the model is loaded and placed at the origin,
// scaled by cfg.Scene.ModelScale.
//
// Parameters:
//   - cfg: the configuration
//   - l: the parent logger
//
// Returns:
//   - scene.Scene: the scene
//   - error: a light set configuration or model load error
func NewDemoScene(cfg *config.Config, l *zap.Logger) (scene.Scene, error) {
	lights, err := NewLights(cfg, l)
	if err != nil {
		return nil, err
	}

	floorMat := material.NewMaterial(material.WithName("floor"), material.WithID(1),
		material.WithBaseColor([3]float32{0.8, 0.8, 0.8}), material.WithRoughness(0.9))
	wallMat := material.NewMaterial(material.WithName("wall"), material.WithID(2),
		material.WithBaseColor([3]float32{0.7, 0.65, 0.6}), material.WithRoughness(0.8))

	objects := []game_object.GameObject{
		game_object.NewGameObject(game_object.WithModel(model.NewQuad(32, 16, model.WithMaterial(floorMat)))),
		game_object.NewGameObject(
			game_object.WithModel(model.NewQuad(32, 14, model.WithMaterial(wallMat))),
			game_object.WithPosition(0, 7, -8),
			game_object.WithRotation(math.Pi/2, 0, 0),
		),
	}

	cube := model.NewCube(1.5, model.WithMaterial(material.NewMaterial(
		material.WithName("cube"), material.WithID(3),
		material.WithBaseColor([3]float32{0.9, 0.3, 0.25}), material.WithRoughness(0.5))))
	sphere := model.NewSphere(0.9, 24, 16, model.WithMaterial(material.NewMaterial(
		material.WithName("sphere"), material.WithID(4),
		material.WithBaseColor([3]float32{0.25, 0.45, 0.9}), material.WithRoughness(0.3), material.WithMetallic(0.6))))

	for i := range 7 {
		x := float32(i-3) * 4
		objects = append(objects,
			game_object.NewGameObject(game_object.WithModel(cube), game_object.WithPosition(x, 0.75, -3), game_object.WithRotation(0, float32(i)*0.4, 0)),
			game_object.NewGameObject(game_object.WithModel(sphere), game_object.WithPosition(x, 0.9, 3)),
		)
	}

	if cfg.Scene.Model != "" {
		asset, err := loader.NewLoader(loader.WithLogger(l)).Load(cfg.Scene.Model)
		if err != nil {
			return nil, err
		}
		s := cfg.Scene.ModelScale
		for _, m := range asset.Models {
			objects = append(objects, game_object.NewGameObject(game_object.WithModel(m), game_object.WithScale(s, s, s)))
		}
	}

	return scene.NewScene("clustered",
		scene.WithCamera(NewCamera(cfg)),
		scene.WithLights(lights),
		scene.WithAmbient(cfg.Renderer.Ambient),
		scene.WithBackground(cfg.Renderer.Background),
		scene.WithObjects(objects...),
		scene.WithLogger(l),
	), nil
}

// NewFromConfig builds an engine for sc on the backend cfg.Renderer.Backend
// selects. The gpu backend opens a window and a WebGPU renderer. The software
// backend runs headless with a still camera and writes cfg.Output.Frames PNG
// files into cfg.Output.Dir.
//
// Parameters:
//   - cfg: a validated configuration
//   - sc: the scene to render
//   - l: the parent logger
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: a configuration, window or backend creation error
func NewFromConfig(cfg *config.Config, sc scene.Scene, l *zap.Logger) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slicing, err := cluster.ParseSlicing(cfg.Clusters.Slicing)
	if err != nil {
		return nil, err
	}
	dims := [3]uint32{uint32(cfg.Clusters.X), uint32(cfg.Clusters.Y), uint32(cfg.Clusters.Z)}
	maxPerCluster := uint32(cfg.Clusters.MaxLightsPerCluster)

	opts := []EngineBuilderOption{
		WithTickRate(float64(cfg.Renderer.TickRate)),
		WithRenderFrameLimit(float64(cfg.Renderer.FrameLimit)),
		WithProfiling(cfg.Renderer.Profiling),
		WithLogger(l),
	}
	if !cfg.Lights.Animate {
		opts = append(opts, WithLightsPaused(true))
	}

	switch cfg.Renderer.Backend {
	case config.BackendSoftware:
		var presenter software.Presenter
		if cfg.Output.Dir != "" {
			w, err := software.NewPNGWriter(cfg.Output.Dir, cfg.Clusters.Workers, l)
			if err != nil {
				return nil, err
			}
			presenter = w
		}
		backend, err := software.NewBackend(sc,
			software.WithViewport(cfg.Window.Width, cfg.Window.Height),
			software.WithGrid(dims, slicing, maxPerCluster),
			software.WithWorkers(cfg.Clusters.Workers),
			software.WithPresenter(presenter),
			software.WithLogger(l),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			WithMaxFrames(uint64(cfg.Output.Frames)),
			WithFixedTimeStep(cfg.Output.TimeStep),
		)
		return NewEngine(sc, backend, opts...)

	case config.BackendGPU:
		resolve, err := shading.ParseResolveMode(cfg.Renderer.Resolve)
		if err != nil {
			return nil, err
		}
		win, err := window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		if err != nil {
			return nil, err
		}
		present := renderer.PresentModeUncapped
		if cfg.Window.VSync {
			present = renderer.PresentModeVSync
		}
		r, err := renderer.NewRenderer(win, sc,
			renderer.WithPresentMode(present),
			renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceFallbackAdapter),
			renderer.WithResolveMode(resolve),
			renderer.WithGrid(dims, slicing, maxPerCluster),
			renderer.WithLogger(l),
		)
		if err != nil {
			return nil, errors.Join(err, win.Close())
		}
		opts = append(opts, WithWindow(win), WithTitle(cfg.Window.Title))
		if cfg.Camera.Orbit {
			opts = append(opts, WithCameraOrbit(DefaultOrbitSpeed))
		}
		return NewEngine(sc, r, opts...)
	}
	return nil, fmt.Errorf("%w: renderer.backend %q", config.ErrInvalidConfig, cfg.Renderer.Backend)
}
