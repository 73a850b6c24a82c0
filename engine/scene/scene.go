package scene

import (
	"iter"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"go.uber.org/zap"
)

// Drawable is a frame snapshot of one enabled object that carries a model.
// Transform maps model space to world space and NormalMatrix is its inverse transpose.
type Drawable struct {
	ID           uint64
	Model        model.Model
	Material     material.Material
	Transform    [16]float32
	NormalMatrix [16]float32
	Center       [3]float32
	Radius       float32
}

// Scene groups the camera, the light set and a registry of GameObjects that
// together describe one rendered view.
// Scenes can be hot-swapped via the Active flag.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Lights returns the scene's light set, or nil if none was attached.
	Lights() light.LightSet

	// SetLights replaces the scene's light set.
	//
	// Parameters:
	//   - lights: the new light set
	SetLights(lights light.LightSet)

	// Ambient returns the ambient light color applied to every covered pixel.
	Ambient() [3]float32

	// SetAmbient sets the ambient light color.
	SetAmbient(color [3]float32)

	// Background returns the color written to pixels no geometry covers.
	Background() [3]float32

	// SetBackground sets the background color.
	SetBackground(color [3]float32)

	// Count returns the number of GameObjects in the registry.
	//
	// Returns:
	//   - int: count of registered objects
	Count() int

	// Add registers a GameObject. Objects without an ID are assigned the next free one.
	// Adding an object whose ID is already registered replaces the previous entry.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a GameObject by its ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove removes a GameObject from the registry by ID.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Clear removes all objects from the scene.
	Clear()

	// Objects iterates the registered objects in ascending ID order.
	Objects() iter.Seq[game_object.GameObject]

	// Drawables iterates a snapshot of every enabled object that carries a model,
	// in ascending ID order. Objects added or removed during iteration are not observed.
	Drawables() iter.Seq[Drawable]
}

type scene struct {
	mu     *sync.RWMutex
	name   string
	active atomic.Bool

	cam        camera.Camera
	lights     light.LightSet
	ambient    [3]float32
	background [3]float32

	registry map[uint64]game_object.GameObject
	nextID   uint64

	logger *zap.Logger
}

var _ Scene = &scene{}

// NewScene creates a new Scene, active by default, with a default camera and no lights.
//
// Parameters:
//   - name: the scene's identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.RWMutex{},
		name:     name,
		registry: make(map[uint64]game_object.GameObject),
		nextID:   1,
	}
	s.active.Store(true)
	for _, opt := range options {
		opt(s)
	}
	if s.cam == nil {
		s.cam = camera.NewCamera()
	}
	s.logger = logger.Named(s.logger, "scene").With(zap.String("scene", name))
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	return s.active.Load()
}

func (s *scene) SetActive(active bool) {
	s.active.Store(active)
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Lights() light.LightSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lights
}

func (s *scene) SetLights(lights light.LightSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = lights
}

func (s *scene) Ambient() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

func (s *scene) SetAmbient(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = color
}

func (s *scene) Background() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background
}

func (s *scene) SetBackground(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = color
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add registers obj. Caller must hold the write lock.
func (s *scene) add(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
	}
	id := obj.ID()
	if id >= s.nextID {
		s.nextID = id + 1
	}
	s.registry[id] = obj
	s.logger.Debug("object added", zap.Uint64("id", id))
	return id
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry[id]; !ok {
		return
	}
	delete(s.registry, id)
	s.logger.Debug("object removed", zap.Uint64("id", id))
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.registry)
}

func (s *scene) Objects() iter.Seq[game_object.GameObject] {
	objs := s.sorted()
	return func(yield func(game_object.GameObject) bool) {
		for _, obj := range objs {
			if !yield(obj) {
				return
			}
		}
	}
}

func (s *scene) Drawables() iter.Seq[Drawable] {
	objs := s.sorted()
	return func(yield func(Drawable) bool) {
		for _, obj := range objs {
			d, ok := drawableOf(obj)
			if !ok {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// sorted snapshots the registry in ascending ID order.
func (s *scene) sorted() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(s.registry))
	objs := make([]game_object.GameObject, len(ids))
	for i, id := range ids {
		objs[i] = s.registry[id]
	}
	return objs
}

func drawableOf(obj game_object.GameObject) (Drawable, bool) {
	if !obj.Enabled() {
		return Drawable{}, false
	}
	mdl := obj.Model()
	if mdl == nil || mdl.IndexCount() == 0 {
		return Drawable{}, false
	}
	d := Drawable{
		ID:        obj.ID(),
		Model:     mdl,
		Material:  mdl.Material(),
		Transform: obj.ModelMatrix(),
	}
	if !common.NormalMatrix(d.NormalMatrix[:], d.Transform[:]) {
		// Degenerate scale, nothing visible survives the projection.
		return Drawable{}, false
	}
	d.Center, d.Radius = obj.BoundingSphere()
	return d, true
}
