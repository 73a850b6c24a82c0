// Package gbuffer defines the packed per-pixel surface record written by the
// geometry pass and read by the shading resolve.
package gbuffer

import (
	"errors"
	"fmt"
)

// Entry is one packed G-buffer texel: four u32 words, stored as an rgba32uint
// texel on the GPU. The all-zero entry is the cleared background.
type Entry [4]uint32

// Field identifies one packed attribute of an Entry.
type Field int

const (
	FieldNormalU Field = iota
	FieldNormalV
	FieldAlbedoR
	FieldAlbedoG
	FieldAlbedoB
	FieldRoughness
	FieldMetallic
	FieldMaterialID
	FieldVersion
	FieldFlags

	// NumFields is the number of fields every Layout assigns a range to.
	NumFields = int(FieldFlags) + 1
)

var fieldNames = [NumFields]string{
	"normal_u", "normal_v", "albedo_r", "albedo_g", "albedo_b",
	"roughness", "metallic", "material_id", "version", "flags",
}

func (f Field) String() string {
	if f < 0 || int(f) >= NumFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// FlagCovered marks an entry written by the geometry pass.
const FlagCovered = 1 << 0

// ErrInvalidLayout is returned by Layout.Validate.
var ErrInvalidLayout = errors.New("invalid gbuffer layout")

// BitRange locates a field inside an Entry.
type BitRange struct {
	Word   uint32 // word index, 0..3
	Offset uint32 // least significant bit within the word
	Width  uint32 // number of bits
}

// Mask returns the right-aligned mask of the range.
func (r BitRange) Mask() uint32 {
	if r.Width >= 32 {
		return ^uint32(0)
	}
	return 1<<r.Width - 1
}

// Layout is a versioned field to bit range table. The version is stored in the
// entry itself so a reader can reject entries written with a different table.
type Layout struct {
	Version uint32
	Ranges  [NumFields]BitRange
}

// LayoutV1 is the current G-buffer layout:
//
//	word 0: normal U (0..15), normal V (16..31), octahedral unorm16
//	word 1: albedo R, G, B (0..23) unorm8, roughness (24..31) unorm8
//	word 2: metallic (0..7) unorm8, material id (8..15)
//	word 3: version (0..3), flags (4..7)
var LayoutV1 = Layout{
	Version: 1,
	Ranges: [NumFields]BitRange{
		FieldNormalU:    {Word: 0, Offset: 0, Width: 16},
		FieldNormalV:    {Word: 0, Offset: 16, Width: 16},
		FieldAlbedoR:    {Word: 1, Offset: 0, Width: 8},
		FieldAlbedoG:    {Word: 1, Offset: 8, Width: 8},
		FieldAlbedoB:    {Word: 1, Offset: 16, Width: 8},
		FieldRoughness:  {Word: 1, Offset: 24, Width: 8},
		FieldMetallic:   {Word: 2, Offset: 0, Width: 8},
		FieldMaterialID: {Word: 2, Offset: 8, Width: 8},
		FieldVersion:    {Word: 3, Offset: 0, Width: 4},
		FieldFlags:      {Word: 3, Offset: 4, Width: 4},
	},
}

// fieldWidths are the widths Surface can carry per field.
var fieldWidths = [NumFields]uint32{16, 16, 8, 8, 8, 8, 8, 8, 32, 32}

// Validate checks that every range fits its word, no two ranges overlap, every
// Surface value is representable and the version fits its field.
//
// Returns:
//   - error: nil if the layout is usable, otherwise an error wrapping ErrInvalidLayout
func (l Layout) Validate() error {
	var used [4]uint32
	for i, r := range l.Ranges {
		f := Field(i)
		if r.Word > 3 || r.Width == 0 || r.Offset+r.Width > 32 {
			return fmt.Errorf("%w: %s range %+v out of word", ErrInvalidLayout, f, r)
		}
		if r.Width < fieldWidths[i] && f != FieldVersion && f != FieldFlags {
			return fmt.Errorf("%w: %s needs %d bits, has %d", ErrInvalidLayout, f, fieldWidths[i], r.Width)
		}
		bits := r.Mask() << r.Offset
		if used[r.Word]&bits != 0 {
			return fmt.Errorf("%w: %s overlaps another field", ErrInvalidLayout, f)
		}
		used[r.Word] |= bits
	}
	if l.Version == 0 || l.Version > l.Ranges[FieldVersion].Mask() {
		return fmt.Errorf("%w: version %d does not fit %d bits", ErrInvalidLayout, l.Version, l.Ranges[FieldVersion].Width)
	}
	return nil
}

// Get extracts field f from e.
func (l Layout) Get(e Entry, f Field) uint32 {
	r := l.Ranges[f]
	return (e[r.Word] >> r.Offset) & r.Mask()
}

// Set stores v into field f of e, truncated to the field width.
func (l Layout) Set(e *Entry, f Field, v uint32) {
	r := l.Ranges[f]
	m := r.Mask() << r.Offset
	e[r.Word] = e[r.Word]&^m | (v<<r.Offset)&m
}

// Pack encodes s into an entry tagged with the layout version and the covered flag.
//
// Parameters:
//   - s: the quantized surface
//
// Returns:
//   - Entry: the packed entry, never all-zero
func (l Layout) Pack(s Surface) Entry {
	var e Entry
	l.Set(&e, FieldNormalU, uint32(s.NormalU))
	l.Set(&e, FieldNormalV, uint32(s.NormalV))
	l.Set(&e, FieldAlbedoR, uint32(s.Albedo[0]))
	l.Set(&e, FieldAlbedoG, uint32(s.Albedo[1]))
	l.Set(&e, FieldAlbedoB, uint32(s.Albedo[2]))
	l.Set(&e, FieldRoughness, uint32(s.Roughness))
	l.Set(&e, FieldMetallic, uint32(s.Metallic))
	l.Set(&e, FieldMaterialID, uint32(s.MaterialID))
	l.Set(&e, FieldVersion, l.Version)
	l.Set(&e, FieldFlags, FlagCovered)
	return e
}

// Unpack decodes e. It reports false for the background entry, for entries
// without the covered flag and for entries written with another layout version.
//
// Parameters:
//   - e: the packed entry
//
// Returns:
//   - Surface: the decoded surface, zero when ok is false
//   - bool: true if e holds a surface of this layout
func (l Layout) Unpack(e Entry) (Surface, bool) {
	if e == (Entry{}) || l.Get(e, FieldVersion) != l.Version || l.Get(e, FieldFlags)&FlagCovered == 0 {
		return Surface{}, false
	}
	return Surface{
		NormalU:    uint16(l.Get(e, FieldNormalU)),
		NormalV:    uint16(l.Get(e, FieldNormalV)),
		Albedo:     [3]uint8{uint8(l.Get(e, FieldAlbedoR)), uint8(l.Get(e, FieldAlbedoG)), uint8(l.Get(e, FieldAlbedoB))},
		Roughness:  uint8(l.Get(e, FieldRoughness)),
		Metallic:   uint8(l.Get(e, FieldMetallic)),
		MaterialID: uint8(l.Get(e, FieldMaterialID)),
	}, true
}

// Pack encodes s with LayoutV1.
func Pack(s Surface) Entry {
	return LayoutV1.Pack(s)
}

// Unpack decodes e with LayoutV1.
func Unpack(e Entry) (Surface, bool) {
	return LayoutV1.Unpack(e)
}
