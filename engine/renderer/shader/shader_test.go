package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("  //@oxy:include camera  ", 3)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeInclude, a.Type)
	assert.Equal(t, []string{"camera"}, a.Args)
	assert.Equal(t, 3, a.Line)

	a, err = parseAnnotation("// plain comment", 1)
	assert.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation("let x = 1;", 1)
	assert.NoError(t, err)
	assert.Nil(t, a)

	_, err = parseAnnotation("//@oxy:group 0 0 uniform camera camera", 7)
	assert.ErrorIs(t, err, ErrAnnotation)

	_, err = parseAnnotation("//@oxy:include", 2)
	assert.ErrorIs(t, err, ErrAnnotation)
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"a": "const A: u32 = 1u;",
		"b": "//@oxy:include a\nconst B: u32 = A + 1u;",
	})
	out, err := pp.Process("//@oxy:include b\n//@oxy:include a\nconst C: u32 = B;")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "const A"))
	assert.Less(t, strings.Index(out, "const A"), strings.Index(out, "const B"))
	assert.Less(t, strings.Index(out, "const B"), strings.Index(out, "const C"))
	assert.Equal(t, []string{"a", "b"}, pp.Includes())
	assert.NotContains(t, out, "@oxy:")
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"x": "//@oxy:include y",
		"y": "//@oxy:include x",
	})
	_, err := pp.Process("//@oxy:include x")
	assert.ErrorIs(t, err, ErrIncludeCycle)

	_, err = pp.Process("//@oxy:include missing")
	assert.ErrorIs(t, err, ErrUnknownInclude)
}

func TestMoveLightsProgram(t *testing.T) {
	s, err := LoadProgram(ProgramMoveLights, ShaderTypeCompute)
	require.NoError(t, err)

	assert.Equal(t, "main", s.EntryPoint())
	assert.Equal(t, [3]uint32{64, 1, 1}, s.WorkgroupSize())
	assert.Equal(t, []string{IncludeLight}, s.Includes())
	assert.Nil(t, s.VertexLayouts())

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, desc.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(48), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[1].Buffer.Type)
	assert.Equal(t, uint64(16), desc.Entries[1].Buffer.MinBindingSize)
	assert.Equal(t, uint64(48), desc.Entries[2].Buffer.MinBindingSize)
	for _, e := range desc.Entries {
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}
}

func TestClusterAssignProgram(t *testing.T) {
	s, err := LoadProgram(ProgramClusterAssign, ShaderTypeCompute)
	require.NoError(t, err)

	assert.Equal(t, [3]uint32{8, 8, 1}, s.WorkgroupSize())
	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 4)

	want := []struct {
		name string
		typ  wgpu.BufferBindingType
		size uint64
	}{
		{"camera", wgpu.BufferBindingTypeUniform, 336},
		{"params", wgpu.BufferBindingTypeUniform, 48},
		{"lightSet", wgpu.BufferBindingTypeReadOnlyStorage, 48},
		{"clusters", wgpu.BufferBindingTypeStorage, 20},
	}
	for i, w := range want {
		assert.Equal(t, w.name, s.BindGroupVarName(0, i))
		assert.Equal(t, w.typ, desc.Entries[i].Buffer.Type, w.name)
		assert.Equal(t, w.size, desc.Entries[i].Buffer.MinBindingSize, w.name)
	}

	b, ok := s.BindGroupFromVarName(0, "clusters")
	assert.True(t, ok)
	assert.Equal(t, 3, b)
	_, ok = s.BindGroupFromVarName(1, "clusters")
	assert.False(t, ok)
}

func TestGeometryProgram(t *testing.T) {
	vs, err := LoadProgram(ProgramGeometry, ShaderTypeVertex)
	require.NoError(t, err)
	fs, err := LoadProgram(ProgramGeometry, ShaderTypeFragment)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, "fs_main", fs.EntryPoint())
	assert.Equal(t, [3]uint32{}, vs.WorkgroupSize())

	layouts := vs.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(32), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 3)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[0].Attributes[1].Format)
	assert.Equal(t, uint64(12), layouts[0].Attributes[1].Offset)
	assert.Equal(t, uint32(2), layouts[0].Attributes[2].ShaderLocation)

	obj := fs.BindGroupLayoutDescriptor(1)
	require.Len(t, obj.Entries, 1)
	assert.Equal(t, uint64(160), obj.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageFragment, obj.Entries[0].Visibility)
	assert.Contains(t, fs.Source(), "fn gbuffer_pack")
}

func TestResolvePrograms(t *testing.T) {
	cs, err := LoadProgram(ProgramResolveCompute, ShaderTypeCompute)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{8, 8, 1}, cs.WorkgroupSize())

	desc := cs.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 8)
	assert.Equal(t, uint64(48), desc.Entries[2].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, desc.Entries[4].Buffer.Type)

	gb := desc.Entries[5]
	assert.Equal(t, wgpu.TextureSampleTypeUint, gb.Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, gb.Texture.ViewDimension)

	depth := desc.Entries[6]
	assert.Equal(t, wgpu.TextureSampleTypeDepth, depth.Texture.SampleType)

	out := desc.Entries[7]
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, out.StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, out.StorageTexture.Access)

	for _, inc := range []string{IncludeCamera, IncludeCluster, IncludeLight, IncludeGBuffer, IncludeShading} {
		assert.Contains(t, cs.Includes(), inc)
	}
	assert.Equal(t, 1, strings.Count(cs.Source(), "struct CameraUniform"))

	fs, err := LoadProgram(ProgramResolveFullscreen, ShaderTypeFragment)
	require.NoError(t, err)
	assert.Len(t, fs.BindGroupLayoutDescriptor(0).Entries, 7)

	vs, err := LoadProgram(ProgramResolveFullscreen, ShaderTypeVertex)
	require.NoError(t, err)
	assert.Empty(t, vs.VertexLayouts())
}

func TestMissingEntryPoint(t *testing.T) {
	_, err := LoadProgram(ProgramMoveLights, ShaderTypeVertex)
	assert.ErrorIs(t, err, ErrNoEntryPoint)

	_, err = LoadProgram("nope", ShaderTypeCompute)
	assert.ErrorIs(t, err, ErrUnknownProgram)
}

func TestNewShaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fill.wgsl")
	src := `//@oxy:include camera
/* block /* nested */ comment */
@group(0) @binding(0) var<uniform> camera: CameraUniform;
@group(0) @binding(1) var<storage, read_write> outBuf: array<vec4<f32>>;

@compute @workgroup_size(16)
fn fill(@builtin(global_invocation_id) gid: vec3<u32>) {
    outBuf[gid.x] = camera.position; // trailing
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	s, err := NewShaderFromPath("fill", ShaderTypeCompute, path)
	require.NoError(t, err)
	assert.Equal(t, "fill", s.EntryPoint())
	assert.Equal(t, [3]uint32{16, 1, 1}, s.WorkgroupSize())
	assert.Equal(t, "fill", s.Module().Label)

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 2)
	assert.Equal(t, uint64(336), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(16), desc.Entries[1].Buffer.MinBindingSize)

	_, err = NewShaderFromPath("gone", ShaderTypeCompute, filepath.Join(t.TempDir(), "gone.wgsl"))
	assert.Error(t, err)
}

func TestStripComments(t *testing.T) {
	got := stripComments("a /* x /* y */ z */ b // c\nd")
	assert.Equal(t, "a  b \nd", got)
}
