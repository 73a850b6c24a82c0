package geometry

import "go.uber.org/zap"

// PassBuilderOption is a functional option for configuring a Pass.
type PassBuilderOption func(*passImpl)

// WithCullMode sets which triangle facing is discarded.
//
// Parameters:
//   - mode: the cull mode (CullBack by default)
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithCullMode(mode CullMode) PassBuilderOption {
	return func(p *passImpl) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the winding that marks a triangle as front-facing.
//
// Parameters:
//   - face: the front face winding (FrontFaceCCW by default)
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithFrontFace(face FrontFace) PassBuilderOption {
	return func(p *passImpl) {
		p.frontFace = face
	}
}

// WithBands sets how many row bands are rasterized in parallel.
//
// Parameters:
//   - n: number of bands, values below 1 mean a single band
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithBands(n int) PassBuilderOption {
	return func(p *passImpl) {
		p.bands = n
	}
}

// WithLogger sets the logger used by the pass.
//
// Parameters:
//   - l: the logger; nil falls back to the global logger
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithLogger(l *zap.Logger) PassBuilderOption {
	return func(p *passImpl) {
		p.logger = l
	}
}
