package shading

import "go.uber.org/zap"

// ResolverBuilderOption is a functional option for configuring a Resolver.
type ResolverBuilderOption func(*resolverImpl)

// WithBands sets how many row bands are shaded in parallel.
//
// Parameters:
//   - n: number of bands, values below 1 mean a single band
//
// Returns:
//   - ResolverBuilderOption: option function to apply
func WithBands(n int) ResolverBuilderOption {
	return func(r *resolverImpl) {
		r.bands = n
	}
}

// WithLogger sets the logger used by the resolver.
//
// Parameters:
//   - l: the logger; nil falls back to the global logger
//
// Returns:
//   - ResolverBuilderOption: option function to apply
func WithLogger(l *zap.Logger) ResolverBuilderOption {
	return func(r *resolverImpl) {
		r.logger = l
	}
}
