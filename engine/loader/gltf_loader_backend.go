package loader

import (
	"fmt"
	"io"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	materialIDBase uint8
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

func newGLTFLoaderBackend(materialIDBase uint8) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{materialIDBase: materialIDBase}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*importedAsset, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, err
	}
	return b.importFromParser(parser)
}

func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader, isGLB bool) (*importedAsset, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, err
	}
	return b.importFromParser(parser)
}

// importFromParser extracts meshes and materials from a parsed document.
func (b *gltfLoaderBackendImpl) importFromParser(parser gltfParser) (*importedAsset, error) {
	meshes, err := newGLTFMeshExtractor(parser).ExtractScene()
	if err != nil {
		return nil, fmt.Errorf("meshes: %w", err)
	}
	materials, err := newGLTFMaterialExtractor(parser, b.materialIDBase).ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("materials: %w", err)
	}
	for _, m := range meshes {
		if m.MaterialIndex >= len(materials) {
			return nil, fmt.Errorf("%w: mesh %q references material %d", ErrInvalidAsset, m.Name, m.MaterialIndex)
		}
	}

	doc := parser.Document()
	name := ""
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		name = doc.Scenes[*doc.Scene].Name
	}

	return &importedAsset{
		Name:      name,
		Meshes:    meshes,
		Materials: materials,
	}, nil
}
