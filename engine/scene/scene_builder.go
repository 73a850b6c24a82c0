package scene

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active.Store(active)
	}
}

// WithCamera sets the scene's camera.
//
// Parameters:
//   - cam: the camera to view the scene through
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cam = cam
	}
}

// WithLights attaches the light set shading the scene.
//
// Parameters:
//   - lights: the light set
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights light.LightSet) SceneBuilderOption {
	return func(s *scene) {
		s.lights = lights
	}
}

// WithAmbient sets the ambient light color.
//
// Parameters:
//   - color: linear RGB ambient color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbient(color [3]float32) SceneBuilderOption {
	return func(s *scene) {
		s.ambient = color
	}
}

// WithBackground sets the color of pixels no geometry covers.
//
// Parameters:
//   - color: linear RGB background color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackground(color [3]float32) SceneBuilderOption {
	return func(s *scene) {
		s.background = color
	}
}

// WithObjects adds initial objects to the scene.
// Objects without IDs will be assigned new IDs.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			if obj.ID() == 0 {
				obj.SetID(s.nextID)
			}
			if obj.ID() >= s.nextID {
				s.nextID = obj.ID() + 1
			}
			s.registry[obj.ID()] = obj
		}
	}
}

// WithLogger sets the logger used by the scene.
//
// Parameters:
//   - l: the logger; nil falls back to the global logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(l *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.logger = l
	}
}
