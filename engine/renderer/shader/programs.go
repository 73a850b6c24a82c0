package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-clustered/engine/cluster"
	"github.com/Carmen-Shannon/oxy-clustered/engine/geometry"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/shading"
)

// Built-in shader program keys.
const (
	ProgramMoveLights        = "move_lights"
	ProgramClusterAssign     = "cluster_assign"
	ProgramGeometry          = "geometry"
	ProgramResolveFullscreen = "resolve_fullscreen"
	ProgramResolveCompute    = "resolve_compute"
)

// program is a shader body plus the includes it needs ahead of it.
type program struct {
	includes []string
	body     string
}

var programs = map[string]program{
	ProgramMoveLights: {
		includes: []string{IncludeLight},
		body:     light.GPUMoveLightsSource,
	},
	ProgramClusterAssign: {
		includes: []string{IncludeCamera, IncludeLight, IncludeCluster},
		body:     cluster.GPUClusterAssignSource,
	},
	ProgramGeometry: {
		includes: []string{IncludeCamera, IncludeVertex, IncludeMaterial, IncludeGBuffer},
		body:     geometry.GPUGeometrySource,
	},
	ProgramResolveFullscreen: {
		includes: []string{IncludeShading},
		body:     shading.GPUResolveFullscreenSource,
	},
	ProgramResolveCompute: {
		includes: []string{IncludeShading},
		body:     shading.GPUResolveComputeSource,
	},
}

// ProgramSource returns the annotated WGSL source of a built-in program.
//
// Parameters:
//   - key: one of the Program* keys
//
// Returns:
//   - string: the source, still carrying its @oxy:include lines
//   - error: ErrUnknownProgram for an unregistered key
func ProgramSource(key string) (string, error) {
	p, ok := programs[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProgram, key)
	}
	var sb strings.Builder
	for _, inc := range p.includes {
		sb.WriteString("//@oxy:include ")
		sb.WriteString(inc)
		sb.WriteByte('\n')
	}
	sb.WriteString(p.body)
	return sb.String(), nil
}

// LoadProgram builds the Shader of a built-in program for one stage.
//
// Parameters:
//   - key: one of the Program* keys
//   - shaderType: the stage to reflect
//
// Returns:
//   - Shader: the processed and reflected shader
//   - error: ErrUnknownProgram, or a pre-processing or reflection error
func LoadProgram(key string, shaderType ShaderType) (Shader, error) {
	src, err := ProgramSource(key)
	if err != nil {
		return nil, err
	}
	return NewShader(key, shaderType, src)
}
