package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32
	up       [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix              [16]float32
	projectionMatrix        [16]float32
	viewProjectionMatrix    [16]float32
	inverseProjectionMatrix [16]float32
	inverseViewMatrix       [16]float32
}

// Camera defines the interface for a perspective camera.
// The camera owns its eye position, look-at target and projection settings and
// keeps every derived matrix in sync whenever one of them changes.
type Camera interface {
	// Position returns the camera's world-space eye position.
	//
	// Returns:
	//   - [3]float32: world-space eye position
	Position() [3]float32

	// Target returns the world-space look-at point.
	//
	// Returns:
	//   - [3]float32: world-space target position
	Target() [3]float32

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - [3]float32: up vector
	Up() [3]float32

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ViewMatrix returns the world-to-view matrix in column-major order.
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the perspective projection matrix with a [0, 1] depth range.
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view.
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// InverseProjectionMatrix returns the inverse of the projection matrix, used to
	// reconstruct view-space positions from clip space.
	//
	// Returns:
	//   - [16]float32: the inverse projection matrix
	InverseProjectionMatrix() [16]float32

	// InverseViewMatrix returns the view-to-world matrix.
	//
	// Returns:
	//   - [16]float32: the inverse view matrix
	InverseViewMatrix() [16]float32

	// Uniform snapshots every matrix and the eye position in GPU layout.
	//
	// Returns:
	//   - GPUCameraUniform: the camera uniform ready for upload
	Uniform() GPUCameraUniform

	// SetPosition moves the eye position.
	//
	// Parameters:
	//   - position: world-space eye position
	SetPosition(position [3]float32)

	// SetTarget sets the look-at point.
	//
	// Parameters:
	//   - target: world-space target position
	SetTarget(target [3]float32)

	// SetUp sets the up vector.
	//
	// Parameters:
	//   - up: up vector
	SetUp(up [3]float32)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio, typically after a viewport resize.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)

	// SetDepthRange sets the near and far clipping planes.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetDepthRange(near, far float32)

	// Orbit places the eye on a sphere around the current target.
	// Azimuth is measured in the XZ plane from +X towards +Z, elevation from the XZ
	// plane towards +Y. Both angles are in radians.
	//
	// Parameters:
	//   - azimuth: horizontal angle in radians
	//   - elevation: vertical angle in radians
	//   - radius: distance from the target
	Orbit(azimuth, elevation, radius float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new perspective Camera.
// Defaults to an eye at (0, 0, 5) looking at the origin with a 45 degree field of view,
// a square aspect and a 0.1 to 100 depth range.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: [3]float32{0, 0, 5},
		up:       [3]float32{0, 1, 0},
		fov:      45.0 * (math.Pi / 180.0),
		aspect:   1.0,
		near:     0.1,
		far:      100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) InverseViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		View:     c.viewMatrix,
		Proj:     c.projectionMatrix,
		InvProj:  c.inverseProjectionMatrix,
		InvView:  c.inverseViewMatrix,
		ViewProj: c.viewProjectionMatrix,
		Position: [4]float32{c.position[0], c.position[1], c.position[2], 1},
	}
}

func (c *cameraImpl) SetPosition(position [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(target [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetDepthRange(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) Orbit(azimuth, elevation, radius float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	limit := float32(math.Pi/2 - 0.01)
	elevation = common.Clamp(elevation, -limit, limit)
	ca := float32(math.Cos(float64(azimuth)))
	sa := float32(math.Sin(float64(azimuth)))
	ce := float32(math.Cos(float64(elevation)))
	se := float32(math.Sin(float64(elevation)))
	c.position = [3]float32{
		c.target[0] + radius*ce*ca,
		c.target[1] + radius*se,
		c.target[2] + radius*ce*sa,
	}
	c.updateMatrices()
}

// updateMatrices recalculates every derived matrix from the current eye, target and
// projection settings. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:],
		c.position[0], c.position[1], c.position[2],
		c.target[0], c.target[1], c.target[2],
		c.up[0], c.up[1], c.up[2],
	)
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	if !common.Invert4(c.inverseProjectionMatrix[:], c.projectionMatrix[:]) {
		common.Identity(c.inverseProjectionMatrix[:])
	}
	if !common.Invert4(c.inverseViewMatrix[:], c.viewMatrix[:]) {
		common.Identity(c.inverseViewMatrix[:])
	}
}
