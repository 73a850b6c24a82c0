package gbuffer

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutV1Valid(t *testing.T) {
	require.NoError(t, LayoutV1.Validate())
}

func TestLayoutValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layout)
	}{
		{"overlap", func(l *Layout) { l.Ranges[FieldAlbedoG].Offset = 4 }},
		{"past word end", func(l *Layout) { l.Ranges[FieldRoughness].Offset = 28 }},
		{"bad word", func(l *Layout) { l.Ranges[FieldMetallic].Word = 4 }},
		{"too narrow", func(l *Layout) { l.Ranges[FieldNormalU].Width = 12 }},
		{"zero version", func(l *Layout) { l.Version = 0 }},
		{"version overflow", func(l *Layout) { l.Version = 16 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LayoutV1
			tt.mutate(&l)
			assert.ErrorIs(t, l.Validate(), ErrInvalidLayout)
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	samples := []Surface{
		{},
		{NormalU: 0xffff, NormalV: 0xffff, Albedo: [3]uint8{255, 255, 255}, Roughness: 255, Metallic: 255, MaterialID: 255},
		{NormalU: 1, NormalV: 0x8000, Albedo: [3]uint8{1, 2, 3}},
	}
	for range 5000 {
		samples = append(samples, Surface{
			NormalU:    uint16(rng.Uint32()),
			NormalV:    uint16(rng.Uint32()),
			Albedo:     [3]uint8{uint8(rng.Uint32()), uint8(rng.Uint32()), uint8(rng.Uint32())},
			Roughness:  uint8(rng.Uint32()),
			Metallic:   uint8(rng.Uint32()),
			MaterialID: uint8(rng.Uint32()),
		})
	}

	for _, s := range samples {
		e := Pack(s)
		assert.NotEqual(t, Entry{}, e, "a packed surface must never look like background")
		got, ok := Unpack(e)
		require.True(t, ok)
		require.Equal(t, s, got)
	}
}

func TestPackBitPositions(t *testing.T) {
	e := Pack(Surface{
		NormalU:    0x1234,
		NormalV:    0xabcd,
		Albedo:     [3]uint8{0x11, 0x22, 0x33},
		Roughness:  0x44,
		Metallic:   0x55,
		MaterialID: 0x66,
	})
	assert.Equal(t, Entry{0xabcd1234, 0x44332211, 0x00006655, 0x11}, e)
}

func TestUnpackRejects(t *testing.T) {
	_, ok := Unpack(Entry{})
	assert.False(t, ok, "background")

	e := Pack(Surface{MaterialID: 3})
	LayoutV1.Set(&e, FieldVersion, 2)
	_, ok = Unpack(e)
	assert.False(t, ok, "foreign version")

	e = Pack(Surface{MaterialID: 3})
	LayoutV1.Set(&e, FieldFlags, 0)
	_, ok = Unpack(e)
	assert.False(t, ok, "not covered")
}

func TestEncodeDecodeNormals(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	dirs := [][3]float32{{0, 0, 1}, {0, 0, -1}, {1, 0, 0}, {0, -1, 0}, {0.577, -0.577, -0.577}}
	for range 1000 {
		dirs = append(dirs, common.Normalize3([3]float32{
			rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1,
		}))
	}

	for _, n := range dirs {
		want := common.Normalize3(n)
		got := Encode(Attributes{Normal: n}).Decode().Normal
		assert.InDelta(t, 1, common.Length3(got), 1e-5)
		assert.Greater(t, common.Dot3(want, got), float32(0.9999), "normal %v decoded as %v", n, got)
	}
}

func TestEncodeDegenerateNormal(t *testing.T) {
	got := Encode(Attributes{}).Decode().Normal
	assert.Equal(t, [3]float32{0, 0, 1}, got)
}

func TestEncodeQuantizesScalars(t *testing.T) {
	s := Encode(Attributes{
		Normal:     [3]float32{0, 1, 0},
		Albedo:     [3]float32{1, 0.5, -2},
		Roughness:  2,
		Metallic:   0.25,
		MaterialID: 9,
	})
	assert.Equal(t, [3]uint8{255, 128, 0}, s.Albedo)
	assert.Equal(t, uint8(255), s.Roughness)
	assert.Equal(t, uint8(64), s.Metallic)
	assert.Equal(t, uint8(9), s.MaterialID)

	// Quantized scalars decode and re-encode to themselves.
	again := Encode(s.Decode())
	assert.Equal(t, s.Albedo, again.Albedo)
	assert.Equal(t, s.Roughness, again.Roughness)
	assert.Equal(t, s.Metallic, again.Metallic)
}

func TestTarget(t *testing.T) {
	tg := NewTarget(4, 3)
	assert.Len(t, tg.Entries, 12)
	for _, d := range tg.Depth {
		assert.Equal(t, float32(1), d)
	}

	tg.Entries[tg.Index(2, 1)] = Pack(Surface{})
	tg.Depth[tg.Index(2, 1)] = 0.5
	e, d := tg.At(2, 1)
	assert.NotEqual(t, Entry{}, e)
	assert.Equal(t, float32(0.5), d)

	tg.Clear()
	e, d = tg.At(2, 1)
	assert.Equal(t, Entry{}, e)
	assert.Equal(t, float32(1), d)

	tg.Resize(2, 2)
	assert.Len(t, tg.Entries, 4)
	assert.Equal(t, 2, tg.Width)
}

func TestWGSLDeclaresEveryField(t *testing.T) {
	src := LayoutV1.WGSL()
	for i := range NumFields {
		assert.Contains(t, src, "GB_FIELD_"+strings.ToUpper(Field(i).String())+":")
	}
	assert.Contains(t, src, "const GB_FIELD_NORMAL_V: vec3<u32> = vec3<u32>(0u, 16u, 0xffffu);")
	assert.Contains(t, src, "fn gbuffer_pack(")
	assert.Contains(t, src, "fn gbuffer_unpack(")
	assert.Contains(t, src, "const GBUFFER_VERSION: u32 = 1u;")
}
