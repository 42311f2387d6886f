package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// triangleBuffer returns three XY-plane positions followed by three uint16 indices padded to 4 bytes.
func triangleBuffer() []byte {
	var b bytes.Buffer
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		binary.Write(&b, binary.LittleEndian, math.Float32bits(f))
	}
	for _, i := range []uint16{0, 1, 2, 0} {
		binary.Write(&b, binary.LittleEndian, i)
	}
	return b.Bytes()
}

// triangleJSON describes triangleBuffer; bufferJSON is spliced in as the single buffer entry.
func triangleJSON(bufferJSON string) string {
	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "buffers": [%s],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "images": [{"uri": "bricks.png"}, {"uri": "bricks_n.png"}],
  "textures": [{"source": 0}, {"source": 1}],
  "materials": [{"pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}, "normalTexture": {"index": 1}}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}]
}`, bufferJSON)
}

func dataURI(data []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
}

func glb(jsonDoc string, bin []byte) []byte {
	pad := func(b []byte, fill byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, fill)
		}
		return b
	}
	js := pad([]byte(jsonDoc), ' ')
	bin = pad(append([]byte(nil), bin...), 0)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, gltfGLBHeader{
		Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(12 + 8 + len(js) + 8 + len(bin)),
	})
	binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON})
	out.Write(js)
	binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	out.Write(bin)
	return out.Bytes()
}

func checkTriangle(t *testing.T, a Asset) {
	t.Helper()
	if got := a.Model.IndexCount(); got != 3 {
		t.Fatalf("IndexCount() = %d, want 3", got)
	}
	v := a.Model.Vertices()
	if len(v) != 3 {
		t.Fatalf("len(Vertices()) = %d, want 3", len(v))
	}
	if v[1].Position != [3]float32{1, 0, 0} {
		t.Errorf("Vertices()[1].Position = %v, want [1 0 0]", v[1].Position)
	}
	// Counter-clockwise in the XY plane, so the generated normal points along +Z.
	for i := range v {
		if v[i].Normal != [3]float32{0, 0, 1} {
			t.Errorf("Vertices()[%d].Normal = %v, want [0 0 1]", i, v[i].Normal)
		}
	}
}

func TestLoadEmbeddedGLTF(t *testing.T) {
	buf := triangleBuffer()
	doc := triangleJSON(fmt.Sprintf(`{"byteLength": %d, "uri": %q}`, len(buf), dataURI(buf)))
	fsys := fstest.MapFS{"models/tri.gltf": {Data: []byte(doc)}}

	l := NewLoader(WithFS(fsys))
	a, err := l.Load("models\\tri.gltf")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	checkTriangle(t, a)
	if a.Model.Name() != "tri" {
		t.Errorf("Name() = %q, want %q", a.Model.Name(), "tri")
	}
	if got := a.Textures[scene.TextureDiffuse]; got != "models/bricks.png" {
		t.Errorf("diffuse texture = %q, want %q", got, "models/bricks.png")
	}
	if got := a.Textures[scene.TextureNormal]; got != "models/bricks_n.png" {
		t.Errorf("normal texture = %q, want %q", got, "models/bricks_n.png")
	}
	if _, ok := a.Textures[scene.TextureSpecular]; ok {
		t.Error("specular texture set without a metallicRoughness texture")
	}

	again, err := l.Load("models/tri.gltf")
	if err != nil {
		t.Fatalf("Load() cached error = %v", err)
	}
	if again.Model != a.Model {
		t.Error("Load() did not return the cached model")
	}
}

func TestLoadExternalBuffer(t *testing.T) {
	buf := triangleBuffer()
	doc := triangleJSON(fmt.Sprintf(`{"byteLength": %d, "uri": "tri.bin"}`, len(buf)))
	fsys := fstest.MapFS{
		"tri.gltf": {Data: []byte(doc)},
		"tri.bin":  {Data: buf},
	}

	a, err := NewLoader(WithFS(fsys)).Load("tri.gltf")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	checkTriangle(t, a)
}

func TestLoadGLB(t *testing.T) {
	buf := triangleBuffer()
	data := glb(triangleJSON(fmt.Sprintf(`{"byteLength": %d}`, len(buf))), buf)

	a, err := NewLoader(WithFS(fstest.MapFS{"tri.glb": {Data: data}})).Load("tri.glb")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	checkTriangle(t, a)

	r, err := NewLoader(WithFS(fstest.MapFS{})).LoadReader("reader", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}
	checkTriangle(t, r)
}

func TestLoadAsyncUploads(t *testing.T) {
	buf := triangleBuffer()
	doc := triangleJSON(fmt.Sprintf(`{"byteLength": %d, "uri": %q}`, len(buf), dataURI(buf)))
	l := NewLoader(WithFS(fstest.MapFS{"tri.gltf": {Data: []byte(doc)}}))

	if a, err := l.LoadAsync("tri.gltf").Await(); err != nil || a.Model.VertexBuffer() != nil {
		t.Fatalf("LoadAsync() = %v, %v; want a loaded model without buffers", a.Model, err)
	}

	dev := gputest.NewDevice()
	a, err := l.UploadAsync("tri.gltf", dev).Await()
	if err != nil {
		t.Fatalf("UploadAsync() error = %v", err)
	}
	if a.Model.VertexBuffer() == nil || a.Model.IndexBuffer() == nil {
		t.Fatal("UploadAsync() left buffers nil")
	}
	if got := len(dev.LiveBuffers()); got != 2 {
		t.Errorf("live buffers = %d, want 2", got)
	}

	if !l.Evict("tri.gltf") {
		t.Fatal("Evict() = false, want true")
	}
	if a.Model.VertexBuffer() != nil {
		t.Error("Evict() did not release the uploaded buffers")
	}
	if l.Evict("tri.gltf") {
		t.Error("second Evict() = true, want false")
	}
}

func TestUploadAsyncFailures(t *testing.T) {
	l := NewLoader(WithFS(fstest.MapFS{}))
	dev := gputest.NewDevice()
	if _, err := l.UploadAsync("missing.gltf", dev).Await(); err == nil {
		t.Error("UploadAsync(missing) error = nil")
	}
	if got := len(dev.Buffers()); got != 0 {
		t.Errorf("buffers created for a failed load = %d, want 0", got)
	}

	buf := triangleBuffer()
	doc := triangleJSON(fmt.Sprintf(`{"byteLength": %d, "uri": %q}`, len(buf), dataURI(buf)))
	l = NewLoader(WithFS(fstest.MapFS{"tri.gltf": {Data: []byte(doc)}}))
	boom := errors.New("device lost")
	dev.FailOn(gputest.OpCreateBuffer, boom)
	if _, err := l.UploadAsync("tri.gltf", dev).Await(); !errors.Is(err, boom) {
		t.Errorf("UploadAsync() error = %v, want device lost", err)
	}
}

func TestLoadFailures(t *testing.T) {
	buf := triangleBuffer()
	valid := triangleJSON(fmt.Sprintf(`{"byteLength": %d, "uri": %q}`, len(buf), dataURI(buf)))
	fsys := fstest.MapFS{
		"mesh.obj":        {Data: []byte("v 0 0 0")},
		"v1.gltf":         {Data: []byte(strings.Replace(valid, `"2.0"`, `"1.0"`, 1))},
		"short.gltf":      {Data: []byte(triangleJSON(fmt.Sprintf(`{"byteLength": 400, "uri": %q}`, dataURI(buf))))},
		"nobuffer.gltf":   {Data: []byte(triangleJSON(`{"byteLength": 48, "uri": "missing.bin"}`))},
		"bounds.gltf":     {Data: []byte(strings.Replace(valid, `"count": 3, "type": "VEC3"`, `"count": 9, "type": "VEC3"`, 1))},
		"points.gltf":     {Data: []byte(strings.Replace(valid, `"material": 0`, `"material": 0, "mode": 0`, 1))},
		"noposition.gltf": {Data: []byte(strings.Replace(valid, `"POSITION": 0`, `"NORMAL": 0`, 1))},
	}
	l := NewLoader(WithFS(fsys))

	if _, err := l.Load("mesh.obj"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(mesh.obj) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := l.Load("v1.gltf"); !errors.Is(err, errInvalidGLTFVersion) {
		t.Errorf("Load(v1.gltf) error = %v, want errInvalidGLTFVersion", err)
	}
	if _, err := l.Load("short.gltf"); !errors.Is(err, errBufferSizeMismatch) {
		t.Errorf("Load(short.gltf) error = %v, want errBufferSizeMismatch", err)
	}
	if _, err := l.Load("bounds.gltf"); !errors.Is(err, errAccessorBounds) {
		t.Errorf("Load(bounds.gltf) error = %v, want errAccessorBounds", err)
	}
	for _, id := range []string{"missing.gltf", "nobuffer.gltf", "points.gltf", "noposition.gltf"} {
		if _, err := l.Load(id); err == nil {
			t.Errorf("Load(%s) error = nil, want failure", id)
		}
	}
}

func TestDecodeDataURI(t *testing.T) {
	if _, err := decodeDataURI("data:application/octet-stream;base64"); !errors.Is(err, errInvalidBufferURI) {
		t.Errorf("missing comma error = %v, want errInvalidBufferURI", err)
	}
	if _, err := decodeDataURI("data:text/plain,abc"); err == nil {
		t.Error("non-base64 data URI error = nil")
	}
	got, err := decodeDataURI("data:application/gltf-buffer;base64,AQID")
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("decodeDataURI() = %v, %v, want [1 2 3]", got, err)
	}
}
