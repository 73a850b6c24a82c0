package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/logger"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"go.uber.org/zap"
)

var (
	// ErrInvalidAsset is returned when a file is not a well-formed asset.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrUnsupported is returned for well-formed assets that use a feature the loader cannot read.
	ErrUnsupported = errors.New("unsupported asset feature")
)

// DefaultMaterialIDBase is the id given to the first material of a loaded asset.
const DefaultMaterialIDBase = 16

// Asset is a loaded static scene: one model per primitive instance, with node
// transforms already applied to the vertices.
type Asset struct {
	Name   string
	Models []model.Model
	Bounds common.AABB
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cache map[string]Asset

	backend        loaderBackend
	materialIDBase uint8
	logger         *zap.Logger
}

// Loader imports static geometry and caches the result by path or name.
type Loader interface {
	// Load imports an asset file and caches the result.
	// If the asset is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the asset
	//
	// Returns:
	//   - Asset: the loaded asset
	//   - error: ErrUnsupported for unknown extensions, or the import error
	Load(path string) (Asset, error)

	// LoadReader imports an asset from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the asset
	//   - r: the reader providing the asset
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - Asset: the loaded asset
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (Asset, error)

	// Get retrieves a cached asset by name.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - Asset: the cached asset
	//   - bool: false if nothing is cached under name
	Get(name string) (Asset, bool)

	// Names returns the sorted cache keys.
	Names() []string
}

var _ Loader = &loader{}

// NewLoader creates a glTF/GLB Loader with the given options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		cache:          make(map[string]Asset),
		materialIDBase: DefaultMaterialIDBase,
	}
	for _, option := range options {
		option(l)
	}
	l.backend = newGLTFLoaderBackend(l.materialIDBase)
	l.logger = logger.Named(l.logger, "loader")
	return l
}

func (l *loader) Load(path string) (Asset, error) {
	if a, ok := l.Get(path); ok {
		return a, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return Asset{}, err
	}
	imported, err := backend.Load(path)
	if err != nil {
		return Asset{}, fmt.Errorf("load %s: %w", path, err)
	}
	if imported.Name == "" {
		imported.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return l.store(path, imported), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (Asset, error) {
	if a, ok := l.Get(name); ok {
		return a, nil
	}

	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return Asset{}, fmt.Errorf("load %q: %w", name, err)
	}
	if imported.Name == "" {
		imported.Name = name
	}
	return l.store(name, imported), nil
}

func (l *loader) Get(name string) (Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.cache[name]
	return a, ok
}

func (l *loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.cache))
	for k := range l.cache {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// resolveBackend selects an appropriate loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%w: model format %q", ErrUnsupported, ext)
	}
}

// store builds models from an import and caches the asset under key. A
// concurrent load of the same key keeps whichever asset was stored first.
func (l *loader) store(key string, imported *importedAsset) Asset {
	asset := toAsset(imported)

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.cache[key]; ok {
		return existing
	}
	l.cache[key] = asset

	vertices := 0
	for _, m := range imported.Meshes {
		vertices += len(m.Vertices)
	}
	l.logger.Info("asset loaded",
		zap.String("key", key),
		zap.String("name", asset.Name),
		zap.Int("models", len(asset.Models)),
		zap.Int("materials", len(imported.Materials)),
		zap.Int("vertices", vertices),
	)
	return asset
}

// toAsset builds one model per imported mesh. Meshes without a material use material.Default.
func toAsset(imported *importedAsset) Asset {
	asset := Asset{
		Name:   imported.Name,
		Models: make([]model.Model, 0, len(imported.Meshes)),
		Bounds: common.EmptyAABB(),
	}
	for _, m := range imported.Meshes {
		if len(m.Indices) == 0 {
			continue
		}
		mat := material.Default
		if m.MaterialIndex >= 0 {
			mat = imported.Materials[m.MaterialIndex]
		}
		asset.Models = append(asset.Models, model.NewModel(
			model.WithName(m.Name),
			model.WithVertices(m.Vertices),
			model.WithIndices(m.Indices),
			model.WithMaterial(mat),
		))
		asset.Bounds.Extend(m.Bounds.Min)
		asset.Bounds.Extend(m.Bounds.Max)
	}
	return asset
}
