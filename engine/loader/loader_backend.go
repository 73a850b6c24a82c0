package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
)

// importedAsset is the CPU-side result of a backend import, before models are built.
type importedAsset struct {
	Name      string
	Meshes    []importedMesh
	Materials []material.Material
}

// loaderBackend defines the generic interface for importing static geometry from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load imports the asset at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *importedAsset: the flattened meshes and their materials
	//   - error: error if loading fails
	Load(path string) (*importedAsset, error)

	// LoadReader imports an asset from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing the asset
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *importedAsset: the flattened meshes and their materials
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*importedAsset, error)
}
