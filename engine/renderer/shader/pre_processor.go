// pre_processor.go implements the WGSL pre-processor. It expands @oxy:include
// annotations with sources from a registry so that every shader shares one
// definition of each GPU struct and helper library.
package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
)

// ErrUnknownInclude is returned when an include names a source missing from the registry.
var ErrUnknownInclude = errors.New("unknown shader include")

// ErrIncludeCycle is returned when registered sources include each other.
var ErrIncludeCycle = errors.New("shader include cycle")

// Include names of the engine's shared WGSL sources.
const (
	IncludeCamera   = "camera"
	IncludeVertex   = "vertex"
	IncludeMaterial = "material"
	IncludeLight    = "light"
	IncludeCluster  = "cluster"
	IncludeGBuffer  = "gbuffer"
	IncludeShading  = "shading"
)

// DefaultIncludes returns the registry of shared engine sources.
//
// Returns:
//   - map[string]string: WGSL source keyed by include name
func DefaultIncludes() map[string]string {
	return map[string]string{
		IncludeCamera:   camera.GPUCameraUniformSource,
		IncludeVertex:   model.GPUVertexSource,
		IncludeMaterial: material.GPUMaterialParamsSource,
		IncludeLight:    light.GPULightSource,
		IncludeCluster:  cluster.GPUClusterSource,
		IncludeGBuffer:  gbuffer.LayoutV1.WGSL(),
		IncludeShading: "//@oxy:include " + IncludeCamera + "\n" +
			"//@oxy:include " + IncludeCluster + "\n" +
			"//@oxy:include " + IncludeLight + "\n" +
			"//@oxy:include " + IncludeGBuffer + "\n" +
			shading.GPUShadingSource,
	}
}

type preProcessor struct {
	registry map[string]string
	included []string
}

// PreProcessor expands @oxy:include annotations in WGSL source.
type PreProcessor interface {
	// Process expands every include in source. Registered sources may include
	// other sources; each is emitted once, at its first include site.
	//
	// Parameters:
	//   - source: WGSL source containing annotations
	//
	// Returns:
	//   - string: the expanded source
	//   - error: ErrAnnotation, ErrUnknownInclude or ErrIncludeCycle
	Process(source string) (string, error)

	// Includes returns the include names expanded by the most recent Process call, in emission order.
	//
	// Returns:
	//   - []string: the expanded include names
	Includes() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor over the DefaultIncludes registry
// merged with extra. Entries in extra replace defaults of the same name.
//
// Parameters:
//   - extra: additional sources keyed by include name, may be nil
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(extra map[string]string) PreProcessor {
	reg := DefaultIncludes()
	for k, v := range extra {
		reg[k] = v
	}
	return &preProcessor{registry: reg}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]
	seen := make(map[string]bool)
	var sb strings.Builder
	if err := p.expand(&sb, source, seen, nil); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *preProcessor) Includes() []string {
	return append([]string(nil), p.included...)
}

// expand writes source into sb, recursing into includes. stack holds the
// include chain currently being expanded.
func (p *preProcessor) expand(sb *strings.Builder, source string, seen map[string]bool, stack []string) error {
	for i, line := range strings.Split(source, "\n") {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return err
		}
		if a == nil {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}

		name := a.Args[0]
		for _, s := range stack {
			if s == name {
				return fmt.Errorf("%w: %s -> %s", ErrIncludeCycle, strings.Join(stack, " -> "), name)
			}
		}
		if seen[name] {
			continue
		}
		src, ok := p.registry[name]
		if !ok {
			return fmt.Errorf("%w: line %d: %q", ErrUnknownInclude, a.Line, name)
		}
		if err := p.expand(sb, src, seen, append(stack, name)); err != nil {
			return err
		}
		seen[name] = true
		p.included = append(p.included, name)
	}
	return nil
}
