package material

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
)

// material is the implementation of the Material interface.
type material struct {
	name      string
	id        uint8
	baseColor [3]float32
	metallic  float32
	roughness float32
}

// Material defines the interface for an opaque surface material.
//
// Materials carry only the scalar properties the geometry pass encodes into the
// G-buffer. They are immutable after construction so a material can be shared
// between drawables rendered in parallel.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// ID retrieves the material id stored in every G-buffer entry the material covers.
	//
	// Returns:
	//   - uint8: the material id
	ID() uint8

	// BaseColor retrieves the linear RGB albedo of the material.
	//
	// Returns:
	//   - [3]float32: the albedo
	BaseColor() [3]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Attributes combines the material with a surface normal into G-buffer attributes.
	//
	// Parameters:
	//   - normal: the world-space surface normal
	//
	// Returns:
	//   - gbuffer.Attributes: the attributes to encode
	Attributes(normal [3]float32) gbuffer.Attributes

	// Params returns the per-draw uniform consumed by the geometry shader.
	//
	// Returns:
	//   - GPUMaterialParams: the material uniform
	Params() GPUMaterialParams
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [3]float32{1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Default is the white, fully rough dielectric used when a drawable has no material.
var Default = NewMaterial(WithName("default"))

func (m *material) Name() string {
	return m.name
}

func (m *material) ID() uint8 {
	return m.id
}

func (m *material) BaseColor() [3]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Attributes(normal [3]float32) gbuffer.Attributes {
	return gbuffer.Attributes{
		Normal:     normal,
		Albedo:     m.baseColor,
		Roughness:  m.roughness,
		Metallic:   m.metallic,
		MaterialID: m.id,
	}
}

func (m *material) Params() GPUMaterialParams {
	return GPUMaterialParams{
		BaseColor:  m.baseColor,
		Roughness:  m.roughness,
		Metallic:   m.metallic,
		MaterialID: uint32(m.id),
	}
}
