package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
	idBase uint8
}

// gltfMaterialExtractor converts glTF metallic-roughness factors into engine materials.
// Textures are ignored; the geometry pass encodes scalar factors only.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - material.Material: the material, with id idBase+materialIndex clamped to 255
	//   - error: error if the index is out of range
	ExtractMaterial(materialIndex int) (material.Material, error)

	// ExtractAllMaterials extracts every material in document order.
	//
	// Returns:
	//   - []material.Material: all materials
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]material.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

func newGLTFMaterialExtractor(parser gltfParser, idBase uint8) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser, idBase: idBase}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (material.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrInvalidAsset)
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("%w: material %d out of range", ErrInvalidAsset, materialIndex)
	}
	mat := &doc.Materials[materialIndex]

	baseColor := [3]float32{1, 1, 1}
	metallic, roughness := float32(1), float32(1)
	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			baseColor = [3]float32{pbr.BaseColorFactor[0], pbr.BaseColorFactor[1], pbr.BaseColorFactor[2]}
		}
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
	}

	name := mat.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", materialIndex)
	}

	return material.NewMaterial(
		material.WithName(name),
		material.WithID(uint8(min(int(e.idBase)+materialIndex, 255))),
		material.WithBaseColor(baseColor),
		material.WithMetallic(common.Clamp(metallic, 0, 1)),
		material.WithRoughness(common.Clamp(roughness, 0, 1)),
	), nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]material.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrInvalidAsset)
	}
	out := make([]material.Material, len(doc.Materials))
	for i := range doc.Materials {
		m, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}
