package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// triangleBuffer holds three float positions followed by three uint16 indices, padded to 44 bytes.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, f)
	}
	for _, i := range []uint16{0, 1, 2} {
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

// triangleDoc returns a one-triangle document. With uri empty the buffer is expected in a GLB chunk.
func triangleDoc(uri string) map[string]any {
	buffer := map[string]any{"byteLength": 44}
	if uri != "" {
		buffer["uri"] = uri
	}
	return map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"name": "tri", "nodes": []int{0}}},
		"nodes":  []any{map[string]any{"mesh": 0}},
		"meshes": []any{map[string]any{
			"name":       "triangle",
			"primitives": []any{map[string]any{"attributes": map[string]int{"POSITION": 0}, "indices": 1}},
		}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfComponentTypeFloat, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfComponentTypeUnsignedShort, "count": 3, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 6},
		},
		"buffers": []any{buffer},
	}
}

func embeddedTriangle() map[string]any {
	return triangleDoc("data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(triangleBuffer()))
}

func loadDoc(t *testing.T, doc map[string]any) (Asset, error) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	l := NewLoader(WithLogger(zaptest.NewLogger(t)))
	return l.LoadReader("test", bytes.NewReader(data), false)
}

func assertVec3(t *testing.T, want, got [3]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestLoadEmbeddedTriangle(t *testing.T) {
	asset, err := loadDoc(t, embeddedTriangle())
	require.NoError(t, err)

	assert.Equal(t, "tri", asset.Name)
	require.Len(t, asset.Models, 1)
	m := asset.Models[0]
	assert.Equal(t, "triangle", m.Name())
	assert.Equal(t, []uint32{0, 1, 2}, m.Indices())
	for _, v := range m.Vertices() {
		assertVec3(t, [3]float32{0, 0, 1}, v.Normal)
	}
	assert.Equal(t, [3]float32{0, 0, 0}, asset.Bounds.Min)
	assert.Equal(t, [3]float32{1, 1, 0}, asset.Bounds.Max)
	assert.Equal(t, "default", m.Material().Name())
}

func TestLoadBakesNodeTransform(t *testing.T) {
	doc := embeddedTriangle()
	doc["nodes"] = []any{
		map[string]any{"translation": []float32{0, 0, 5}, "children": []int{1}},
		map[string]any{"mesh": 0, "scale": []float32{2, 2, 2}},
	}

	asset, err := loadDoc(t, doc)
	require.NoError(t, err)
	require.Len(t, asset.Models, 1)

	v := asset.Models[0].Vertices()
	assertVec3(t, [3]float32{0, 0, 5}, v[0].Position)
	assertVec3(t, [3]float32{2, 0, 5}, v[1].Position)
	assertVec3(t, [3]float32{0, 2, 5}, v[2].Position)
	assertVec3(t, [3]float32{2, 2, 5}, asset.Bounds.Max)
}

func TestLoadMirroredNodeKeepsWinding(t *testing.T) {
	doc := embeddedTriangle()
	doc["nodes"] = []any{map[string]any{"mesh": 0, "scale": []float32{-1, 1, 1}}}

	asset, err := loadDoc(t, doc)
	require.NoError(t, err)

	m := asset.Models[0]
	assert.Equal(t, []uint32{0, 2, 1}, m.Indices())
	assertVec3(t, [3]float32{0, 0, 1}, m.Vertices()[0].Normal)
}

func TestLoadRotatesProvidedNormals(t *testing.T) {
	buf := triangleBuffer()
	for range 3 {
		for _, f := range []float32{0, 0, 1} {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	doc := triangleDoc("data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf))
	doc["buffers"] = []any{map[string]any{"byteLength": len(buf), "uri": doc["buffers"].([]any)[0].(map[string]any)["uri"]}}
	doc["bufferViews"] = append(doc["bufferViews"].([]any), map[string]any{"buffer": 0, "byteOffset": 44, "byteLength": 36})
	doc["accessors"] = append(doc["accessors"].([]any),
		map[string]any{"bufferView": 2, "componentType": gltfComponentTypeFloat, "count": 3, "type": "VEC3"})
	prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
	prim["attributes"] = map[string]int{"POSITION": 0, "NORMAL": 2}
	s := float32(math.Sqrt2 / 2)
	doc["nodes"] = []any{map[string]any{"mesh": 0, "rotation": []float32{0, s, 0, s}}}

	asset, err := loadDoc(t, doc)
	require.NoError(t, err)
	for _, v := range asset.Models[0].Vertices() {
		assertVec3(t, [3]float32{1, 0, 0}, v.Normal)
	}
}

func TestLoadMaterialFactors(t *testing.T) {
	doc := embeddedTriangle()
	doc["materials"] = []any{map[string]any{
		"name": "paint",
		"pbrMetallicRoughness": map[string]any{
			"baseColorFactor": []float32{0.5, 0.25, 1, 1},
			"metallicFactor":  0,
		},
	}}
	prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
	prim["material"] = 0

	asset, err := loadDoc(t, doc)
	require.NoError(t, err)

	mat := asset.Models[0].Material()
	assert.Equal(t, "paint", mat.Name())
	assert.Equal(t, uint8(DefaultMaterialIDBase), mat.ID())
	assert.Equal(t, [3]float32{0.5, 0.25, 1}, mat.BaseColor())
	assert.Equal(t, float32(0), mat.Metallic())
	assert.Equal(t, float32(1), mat.Roughness())
}

func TestLoadRejectsUnreadableAssets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   error
	}{
		{"required extension", func(doc map[string]any) {
			doc["extensionsRequired"] = []string{"KHR_draco_mesh_compression"}
		}, ErrUnsupported},
		{"version 1", func(doc map[string]any) {
			doc["asset"] = map[string]any{"version": "1.0"}
		}, ErrUnsupported},
		{"line primitive", func(doc map[string]any) {
			prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
			prim["mode"] = 1
		}, ErrUnsupported},
		{"missing material", func(doc map[string]any) {
			prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
			prim["material"] = 3
		}, ErrInvalidAsset},
		{"short buffer", func(doc map[string]any) {
			doc["buffers"] = []any{map[string]any{"byteLength": 44, "uri": "data:application/octet-stream;base64,AAAA"}}
		}, ErrInvalidAsset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := embeddedTriangle()
			tt.mutate(doc)
			_, err := loadDoc(t, doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// writeGLB packs a document and its binary chunk into a GLB file.
func writeGLB(t *testing.T, path string, doc map[string]any, bin []byte) {
	t.Helper()
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}

	var buf bytes.Buffer
	total := 12 + 8 + len(js) + 8 + len(bin)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)}))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON}))
	buf.Write(js)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN}))
	buf.Write(bin)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLoadGLBFileIsCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.glb")
	writeGLB(t, path, triangleDoc(""), triangleBuffer())

	l := NewLoader(WithLogger(zaptest.NewLogger(t)), WithMaterialIDBase(40))
	first, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, first.Models, 1)
	assert.Equal(t, 3, first.Models[0].IndexCount())

	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first.Models[0], second.Models[0])

	cached, ok := l.Get(path)
	assert.True(t, ok)
	assert.Equal(t, first.Name, cached.Name)
	assert.Equal(t, []string{path}, l.Names())
}

func TestLoadExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.bin"), triangleBuffer(), 0o644))
	doc := triangleDoc("tri.bin")
	delete(doc, "scenes")
	delete(doc, "scene")
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	asset, err := NewLoader(WithLogger(zaptest.NewLogger(t))).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tri", asset.Name)
	assert.Len(t, asset.Models, 1)
}

func TestLoadUnknownExtension(t *testing.T) {
	_, err := NewLoader().Load("scene.obj")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestWithAssetPrepopulatesCache(t *testing.T) {
	l := NewLoader(WithAsset("cached", Asset{Name: "cached"}))
	a, err := l.LoadReader("cached", strings.NewReader("not json"), false)
	require.NoError(t, err)
	assert.Equal(t, "cached", a.Name)
}
