package loader

import (
	"fmt"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// extractMesh merges every triangle primitive of every mesh in the document into one vertex and
// index list, offsetting each primitive's indices by the vertices already emitted.
func extractMesh(p *gltfParser) ([]model.GPUVertex, []uint32, error) {
	var vertices []model.GPUVertex
	var indices []uint32

	for mi := range p.document.Meshes {
		for pi := range p.document.Meshes[mi].Primitives {
			v, idx, err := extractPrimitive(p, &p.document.Meshes[mi].Primitives[pi])
			if err != nil {
				return nil, nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			base := uint32(len(vertices))
			for _, i := range idx {
				indices = append(indices, base+i)
			}
			vertices = append(vertices, v...)
		}
	}
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, nil, model.ErrEmptyMesh
	}
	return vertices, indices, nil
}

func extractPrimitive(p *gltfParser, prim *gltfPrimitive) ([]model.GPUVertex, []uint32, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, nil, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := p.readVec3(posAccessor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read positions: %w", err)
	}
	vertices := make([]model.GPUVertex, len(positions))
	for i, pos := range positions {
		vertices[i].Position = pos
	}

	hasNormals := false
	if accessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := p.readVec3(accessor)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read normals: %w", err)
		}
		for i := range min(len(normals), len(vertices)) {
			vertices[i].Normal = normals[i]
		}
		hasNormals = true
	}

	if accessor, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := p.readVec2(accessor)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		for i := range min(len(uvs), len(vertices)) {
			vertices[i].TexCoord = uvs[i]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = p.readIndices(*prim.Indices); err != nil {
			return nil, nil, fmt.Errorf("failed to read indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(vertices) {
				return nil, nil, fmt.Errorf("index %d out of range for %d vertices", i, len(vertices))
			}
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if !hasNormals {
		generateNormals(vertices, indices)
	}
	return vertices, indices, nil
}

// generateNormals writes area-weighted smooth normals derived from the triangle list.
// Vertices touched by no triangle get +Y.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := mgl32.Vec3(vertices[i0].Position)
		face := mgl32.Vec3(vertices[i1].Position).Sub(p0).Cross(mgl32.Vec3(vertices[i2].Position).Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}
	for i, n := range accum {
		if n.Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = n.Normalize()
	}
}

// extractTextures maps the first primitive material's image URIs onto texture slots.
// Embedded images (data URIs or buffer views) have no identifier and are skipped.
func extractTextures(p *gltfParser) map[scene.TextureSlot]string {
	doc := p.document
	out := map[scene.TextureSlot]string{}

	var mat *gltfMaterial
	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(doc.Materials) {
				mat = &doc.Materials[*prim.Material]
				break
			}
		}
		if mat != nil {
			break
		}
	}
	if mat == nil {
		return out
	}

	set := func(slot scene.TextureSlot, info *gltfTextureInfo) {
		if info == nil || info.Index < 0 || info.Index >= len(doc.Textures) {
			return
		}
		src := doc.Textures[info.Index].Source
		if src == nil || *src < 0 || *src >= len(doc.Images) {
			return
		}
		uri := doc.Images[*src].URI
		if uri == "" || strings.HasPrefix(uri, "data:") {
			return
		}
		out[slot] = path.Join(p.baseDir, uri)
	}
	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		set(scene.TextureDiffuse, pbr.BaseColorTexture)
		set(scene.TextureSpecular, pbr.MetallicRoughnessTexture)
	}
	set(scene.TextureNormal, mat.NormalTexture)
	return out
}
