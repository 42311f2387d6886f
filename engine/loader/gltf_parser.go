package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errAccessorBounds     = errors.New("accessor reads past the end of its buffer")
)

// gltfParser decodes a .gltf or .glb document and reads typed accessor data from its buffers.
// External buffer URIs are resolved against baseDir inside fsys.
type gltfParser struct {
	fsys     fs.FS
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

func newGLTFParser(fsys fs.FS, baseDir string) *gltfParser {
	return &gltfParser{fsys: fsys, baseDir: baseDir}
}

// parse decodes data as GLB when it starts with the GLB magic, and as glTF JSON otherwise.
func (p *gltfParser) parse(data []byte) error {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

func (p *gltfParser) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

func (p *gltfParser) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		chunkData := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			p.binChunk = chunkData
		}
	}
	if jsonData == nil {
		return errMissingJSONChunk
	}
	return p.parseJSON(jsonData)
}

// loadBuffers fills every buffer from its URI, or from the GLB binary chunk for a URI-less first buffer.
func (p *gltfParser) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.binChunk != nil:
			buf.Data = p.binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			data, err := p.loadBufferURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

func (p *gltfParser) loadBufferURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}
	if p.fsys == nil {
		return nil, fmt.Errorf("external buffer %q needs a file system", uri)
	}
	data, err := fs.ReadFile(p.fsys, path.Join(p.baseDir, uri))
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errInvalidBufferURI
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// accessorBytes returns the tightly packed element bytes of an accessor, de-interleaving strided views.
func (p *gltfParser) accessorBytes(index int) (*gltfAccessor, []byte, error) {
	if p.document == nil {
		return nil, nil, errors.New("no document loaded")
	}
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &p.document.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, errors.New("sparse accessors are not supported")
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(p.document.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d has no valid bufferView", index)
	}
	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return nil, nil, fmt.Errorf("bufferView references buffer %d out of range", bv.Buffer)
	}
	data := p.document.Buffers[bv.Buffer].Data

	elementSize := componentTypeSize(acc.ComponentType) * accessorTypeComponentCount(acc.Type)
	if elementSize == 0 {
		return nil, nil, fmt.Errorf("accessor %d has unsupported layout %s/%d", index, acc.Type, acc.ComponentType)
	}
	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && start+(acc.Count-1)*stride+elementSize > len(data) {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, errAccessorBounds)
	}

	out := make([]byte, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		src := start + i*stride
		copy(out[i*elementSize:(i+1)*elementSize], data[src:src+elementSize])
	}
	return acc, out, nil
}

// readFloats reads a FLOAT accessor of the given element type as a flat slice.
func (p *gltfParser) readFloats(index int, accessorType string) ([]float32, error) {
	acc, data, err := p.accessorBytes(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor is not %s FLOAT: type=%s, componentType=%d", accessorType, acc.Type, acc.ComponentType)
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

func (p *gltfParser) readVec3(index int) ([][3]float32, error) {
	flat, err := p.readFloats(index, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(flat)/3)
	for i := range out {
		out[i] = [3]float32{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out, nil
}

func (p *gltfParser) readVec2(index int) ([][2]float32, error) {
	flat, err := p.readFloats(index, gltfAccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, len(flat)/2)
	for i := range out {
		out[i] = [2]float32{flat[i*2], flat[i*2+1]}
	}
	return out, nil
}

// readIndices reads a SCALAR accessor of unsigned byte, short or int components as uint32.
func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	acc, data, err := p.accessorBytes(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor is not SCALAR: type=%s", acc.Type)
	}

	out := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte:
		for i := range out {
			out[i] = uint32(data[i])
		}
	case gltfComponentTypeUnsignedShort:
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case gltfComponentTypeUnsignedInt:
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	default:
		return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
	}
	return out, nil
}

func componentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

func accessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	default:
		return 0
	}
}
