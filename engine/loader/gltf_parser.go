package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads a glTF or GLB document with its buffers and decodes accessors.
type gltfParser interface {
	// Parse loads a .gltf or .glb file. GLB is detected by extension or magic number.
	//
	// Parameters:
	//   - path: path to the file; external buffers resolve relative to its directory
	//
	// Returns:
	//   - error: ErrInvalidAsset or ErrUnsupported wrapping the cause
	Parse(path string) error

	// ParseReader parses a document from r. External buffer URIs resolve
	// relative to the working directory.
	//
	// Parameters:
	//   - r: the document bytes
	//   - isGLB: true for the binary container
	//
	// Returns:
	//   - error: ErrInvalidAsset or ErrUnsupported wrapping the cause
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed document, nil before a successful parse.
	Document() *gltfDocument

	// ReadFloats decodes a float or normalized integer accessor of element type
	// typ into a flat slice of Count*n components.
	//
	// Parameters:
	//   - accessorIndex: the accessor to read
	//   - typ: the required element type (VEC2, VEC3, ...)
	//
	// Returns:
	//   - []float32: the components
	//   - error: error if the accessor has another type or is out of range
	ReadFloats(accessorIndex int, typ string) ([]float32, error)

	// ReadIndices decodes an unsigned SCALAR accessor into uint32 indices.
	//
	// Parameters:
	//   - accessorIndex: the accessor to read
	//
	// Returns:
	//   - []uint32: the indices
	//   - error: error if the accessor is not an unsigned scalar
	ReadIndices(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".glb") || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read asset: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

// parseJSON decodes the document, checks it is readable and loads its buffers.
func (p *gltfParserImpl) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("%w: asset version %q", ErrUnsupported, doc.Asset.Version)
	}
	if len(doc.ExtensionsRequired) > 0 {
		return fmt.Errorf("%w: required extensions %v", ErrUnsupported, doc.ExtensionsRequired)
	}
	if err := p.loadBuffers(&doc); err != nil {
		return err
	}
	p.document = &doc
	return nil
}

// parseGLB splits the binary container into its JSON and BIN chunks.
func (p *gltfParserImpl) parseGLB(data []byte) error {
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: glb header: %v", ErrInvalidAsset, err)
	}
	if header.Magic != gltfGLBMagic {
		return fmt.Errorf("%w: glb magic %#x", ErrInvalidAsset, header.Magic)
	}
	if header.Version != gltfGLBVersion {
		return fmt.Errorf("%w: glb version %d", ErrUnsupported, header.Version)
	}

	var jsonChunk []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: glb chunk header: %v", ErrInvalidAsset, err)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("%w: glb chunk: %v", ErrInvalidAsset, err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonChunk = body
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = body
		}
	}
	if jsonChunk == nil {
		return fmt.Errorf("%w: glb has no JSON chunk", ErrInvalidAsset)
	}
	return p.parseJSON(jsonChunk)
}

// loadBuffers fills every buffer from the GLB chunk, a data URI or a file next to the asset.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("%w: buffer %d has no data", ErrInvalidAsset, i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(buf.URI)))
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("%w: buffer %d holds %d bytes, want %d", ErrInvalidAsset, i, len(buf.Data), buf.ByteLength)
		}
	}
	return nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrInvalidAsset)
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: data URI encoding %q", ErrUnsupported, header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	return data, nil
}

// accessorElements returns the raw bytes of every element of an accessor,
// honouring the buffer view stride, and the element byte size.
func (p *gltfParserImpl) accessorElements(accessorIndex int) (*gltfAccessor, [][]byte, error) {
	doc := p.document
	if doc == nil {
		return nil, nil, fmt.Errorf("%w: no document", ErrInvalidAsset)
	}
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, nil, fmt.Errorf("%w: accessor %d out of range", ErrInvalidAsset, accessorIndex)
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("%w: sparse accessor %d", ErrUnsupported, accessorIndex)
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, nil, fmt.Errorf("%w: accessor %d has no buffer view", ErrInvalidAsset, accessorIndex)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, nil, fmt.Errorf("%w: buffer view %d references buffer %d", ErrInvalidAsset, *acc.BufferView, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data

	size := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if size == 0 {
		return nil, nil, fmt.Errorf("%w: accessor %d type %s/%d", ErrUnsupported, accessorIndex, acc.Type, acc.ComponentType)
	}
	stride := size
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	base := bv.ByteOffset + acc.ByteOffset
	out := make([][]byte, acc.Count)
	for i := range out {
		start := base + i*stride
		if start+size > len(data) || start+size > bv.ByteOffset+bv.ByteLength {
			return nil, nil, fmt.Errorf("%w: accessor %d element %d past buffer end", ErrInvalidAsset, accessorIndex, i)
		}
		out[i] = data[start : start+size]
	}
	return acc, out, nil
}

func (p *gltfParserImpl) ReadFloats(accessorIndex int, typ string) ([]float32, error) {
	acc, elems, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != typ {
		return nil, fmt.Errorf("%w: accessor %d is %s, want %s", ErrInvalidAsset, accessorIndex, acc.Type, typ)
	}
	if acc.ComponentType != gltfComponentTypeFloat && !acc.Normalized {
		return nil, fmt.Errorf("%w: accessor %d component type %d is not float", ErrUnsupported, accessorIndex, acc.ComponentType)
	}

	n := componentCount(typ)
	cs := componentSize(acc.ComponentType)
	out := make([]float32, 0, len(elems)*n)
	for _, e := range elems {
		for c := range n {
			out = append(out, decodeComponent(e[c*cs:(c+1)*cs], acc.ComponentType))
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	acc, elems, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("%w: index accessor %d is %s", ErrInvalidAsset, accessorIndex, acc.Type)
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			out[i] = uint32(e[0])
		case gltfComponentTypeUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltfComponentTypeUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, fmt.Errorf("%w: index component type %d", ErrInvalidAsset, acc.ComponentType)
		}
	}
	return out, nil
}

// decodeComponent converts one component to float32, mapping normalized
// integers onto [0, 1] or [-1, 1].
func decodeComponent(b []byte, componentType int) float32 {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeUnsignedByte:
		return float32(b[0]) / 255
	case gltfComponentTypeByte:
		return max(float32(int8(b[0]))/127, -1)
	case gltfComponentTypeUnsignedShort:
		return float32(binary.LittleEndian.Uint16(b)) / 65535
	case gltfComponentTypeShort:
		return max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1)
	}
	return 0
}

// componentSize returns the byte size of a component type.
func componentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	}
	return 0
}

// componentCount returns the number of components of an element type.
func componentCount(typ string) int {
	switch typ {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	}
	return 0
}
