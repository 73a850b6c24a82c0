package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
)

// importedMesh is one glTF primitive instance with its node transform baked into the vertices.
type importedMesh struct {
	Name          string
	Vertices      []model.GPUVertex
	Indices       []uint32
	MaterialIndex int // -1 when the primitive has no material
	Bounds        common.AABB
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor walks the node hierarchy of a parsed document and flattens
// every mesh instance into asset space.
type gltfMeshExtractor interface {
	// ExtractScene extracts every primitive reachable from the default scene, or
	// from all root nodes when the document names no scene.
	//
	// Returns:
	//   - []importedMesh: one entry per primitive instance
	//   - error: error if a primitive cannot be read
	ExtractScene() ([]importedMesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractScene() ([]importedMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrInvalidAsset)
	}

	var identity [16]float32
	common.Identity(identity[:])

	var out []importedMesh
	if len(doc.Nodes) == 0 {
		for i := range doc.Meshes {
			meshes, err := e.extractMesh(i, identity)
			if err != nil {
				return nil, err
			}
			out = append(out, meshes...)
		}
		return out, nil
	}

	visited := make([]bool, len(doc.Nodes))
	var walk func(node int, parent [16]float32) error
	walk = func(node int, parent [16]float32) error {
		if node < 0 || node >= len(doc.Nodes) {
			return fmt.Errorf("%w: node %d out of range", ErrInvalidAsset, node)
		}
		if visited[node] {
			return fmt.Errorf("%w: node %d appears twice in the hierarchy", ErrInvalidAsset, node)
		}
		visited[node] = true

		n := &doc.Nodes[node]
		local := gltfNodeMatrix(n)
		var world [16]float32
		common.Mul4(world[:], parent[:], local[:])

		if n.Mesh != nil {
			meshes, err := e.extractMesh(*n.Mesh, world)
			if err != nil {
				return fmt.Errorf("node %d: %w", node, err)
			}
			out = append(out, meshes...)
		}
		for _, child := range n.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range gltfRootNodes(doc) {
		if err := walk(root, identity); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// extractMesh extracts every primitive of a mesh under the world transform.
func (e *gltfMeshExtractorImpl) extractMesh(meshIndex int, world [16]float32) ([]importedMesh, error) {
	doc := e.parser.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d out of range", ErrInvalidAsset, meshIndex)
	}
	mesh := &doc.Meshes[meshIndex]

	result := make([]importedMesh, 0, len(mesh.Primitives))
	for primIdx := range mesh.Primitives {
		imported, err := e.extractPrimitive(&mesh.Primitives[primIdx], mesh.Name, primIdx, world)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		result = append(result, *imported)
	}
	return result, nil
}

func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, meshName string, primIndex int, world [16]float32) (*importedMesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("%w: primitive mode %d", ErrUnsupported, *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%w: primitive has no POSITION attribute", ErrInvalidAsset)
	}
	positions, err := e.parser.ReadFloats(posAccessor, gltfAccessorTypeVec3)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	vertexCount := len(positions) / 3
	vertices := make([]model.GPUVertex, vertexCount)
	for i := range vertices {
		vertices[i].Position = [3]float32{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}

	hasNormals := false
	if acc, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.ReadFloats(acc, gltfAccessorTypeVec3)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		if len(normals) != len(positions) {
			return nil, fmt.Errorf("%w: %d normals for %d positions", ErrInvalidAsset, len(normals)/3, vertexCount)
		}
		for i := range vertices {
			vertices[i].Normal = [3]float32{normals[i*3], normals[i*3+1], normals[i*3+2]}
		}
		hasNormals = true
	}

	if acc, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := e.parser.ReadFloats(acc, gltfAccessorTypeVec2)
		if err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
		for i := range min(vertexCount, len(uvs)/2) {
			vertices[i].TexCoord = [2]float32{uvs[i*2], uvs[i*2+1]}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndices(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= vertexCount {
				return nil, fmt.Errorf("%w: index %d past %d vertices", ErrInvalidAsset, idx, vertexCount)
			}
		}
	} else {
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	indices = indices[:len(indices)-len(indices)%3]

	bakeTransform(vertices, indices, world, hasNormals)
	if !hasNormals {
		generateNormals(vertices, indices)
	}

	bounds := common.EmptyAABB()
	for i := range vertices {
		bounds.Extend(vertices[i].Position)
	}

	materialIndex := -1
	if prim.Material != nil {
		materialIndex = *prim.Material
	}

	name := meshName
	if name == "" {
		name = "mesh"
	}
	if primIndex > 0 {
		name = fmt.Sprintf("%s_prim%d", name, primIndex)
	}

	return &importedMesh{
		Name:          name,
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
		Bounds:        bounds,
	}, nil
}

// bakeTransform moves vertices into asset space. Normals use the inverse
// transpose, and a mirroring transform reverses the triangle winding.
func bakeTransform(vertices []model.GPUVertex, indices []uint32, world [16]float32, hasNormals bool) {
	var normalMat [16]float32
	normalOK := common.NormalMatrix(normalMat[:], world[:])

	for i := range vertices {
		v := &vertices[i]
		v.Position = common.TransformPoint(world[:], v.Position)
		if hasNormals && normalOK {
			v.Normal = common.Normalize3(common.TransformDirection(normalMat[:], v.Normal))
		}
	}

	if determinant3(world) < 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
		}
	}
}

// determinant3 returns the determinant of the upper 3x3 of a column-major matrix.
func determinant3(m [16]float32) float32 {
	x := [3]float32{m[0], m[1], m[2]}
	y := [3]float32{m[4], m[5], m[6]}
	z := [3]float32{m[8], m[9], m[10]}
	return common.Dot3(x, common.Cross3(y, z))
}

// generateNormals computes smooth vertex normals by accumulating
// area-weighted face normals over counter-clockwise triangles.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = [3]float32{}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		e1 := common.Sub3(vertices[b].Position, vertices[a].Position)
		e2 := common.Sub3(vertices[c].Position, vertices[a].Position)
		face := common.Cross3(e1, e2)
		for _, idx := range [3]uint32{a, b, c} {
			vertices[idx].Normal = common.Add3(vertices[idx].Normal, face)
		}
	}
	for i := range vertices {
		if common.Length3(vertices[i].Normal) == 0 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = common.Normalize3(vertices[i].Normal)
	}
}

// gltfNodeMatrix returns the column-major local transform of a node.
func gltfNodeMatrix(n *gltfNode) [16]float32 {
	var m [16]float32
	if n.Matrix != nil {
		return *n.Matrix
	}

	t := [3]float32{}
	if n.Translation != nil {
		t = *n.Translation
	}
	q := [4]float32{0, 0, 0, 1}
	if n.Rotation != nil {
		q = *n.Rotation
	}
	s := [3]float32{1, 1, 1}
	if n.Scale != nil {
		s = *n.Scale
	}

	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	m[0] = (1 - 2*(yy+zz)) * s[0]
	m[1] = 2 * (xy + wz) * s[0]
	m[2] = 2 * (xz - wy) * s[0]

	m[4] = 2 * (xy - wz) * s[1]
	m[5] = (1 - 2*(xx+zz)) * s[1]
	m[6] = 2 * (yz + wx) * s[1]

	m[8] = 2 * (xz + wy) * s[2]
	m[9] = 2 * (yz - wx) * s[2]
	m[10] = (1 - 2*(xx+yy)) * s[2]

	m[12], m[13], m[14] = t[0], t[1], t[2]
	m[15] = 1
	return m
}

// gltfRootNodes returns the nodes of the default scene, the first scene when
// none is marked default, or every node no other node lists as a child.
func gltfRootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}
