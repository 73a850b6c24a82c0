package loader

import "go.uber.org/zap"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger sets the parent logger. A nil logger uses the package default.
//
// Parameters:
//   - l: the parent logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(l *zap.Logger) LoaderBuilderOption {
	return func(ld *loader) {
		ld.logger = l
	}
}

// WithMaterialIDBase sets the G-buffer material id of the first material in each
// loaded asset. Later materials count up from it and saturate at 255.
//
// Parameters:
//   - base: the first material id
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithMaterialIDBase(base uint8) LoaderBuilderOption {
	return func(l *loader) {
		l.materialIDBase = base
	}
}

// WithAsset pre-populates the cache with an asset.
//
// Parameters:
//   - key: the cache key for the asset
//   - asset: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, asset Asset) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = asset
	}
}
