package math

// Vertex3D is the vertex layout shared by the example pipelines.
type Vertex3D struct {
	Position Vec3
	Normal   Vec3
	Texcoord Vec2
	Colour   Vec4
}

// Vertex2D is the vertex layout of the UI overlay.
type Vertex2D struct {
	Position Vec2
	Texcoord Vec2
	Colour   Vec4
}

// Extents3D is an axis aligned bounding box.
type Extents3D struct {
	Min Vec3
	Max Vec3
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

func (e Extents3D) Size() Vec3 {
	return e.Max.Sub(e.Min)
}

// GeometryExtents returns the bounds of the given vertices.
func GeometryExtents(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	e := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		p := v.Position
		e.Min = Vec3{min(e.Min.X, p.X), min(e.Min.Y, p.Y), min(e.Min.Z, p.Z)}
		e.Max = Vec3{max(e.Max.X, p.X), max(e.Max.Y, p.Y), max(e.Max.Z, p.Z)}
	}
	return e
}

// GeometryGenerateNormals assigns the face normal of every triangle to its
// three vertices. Smoothing should be done in a separate pass if desired.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)
		normal := edge1.Cross(edge2).Normalized()
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

// GeometryDeduplicateVertices merges identical vertices and rewrites indices
// to point at the merged copies. The relative order of first occurrences is
// kept.
func GeometryDeduplicateVertices(vertices []Vertex3D, indices []uint32) ([]Vertex3D, []uint32) {
	unique := make([]Vertex3D, 0, len(vertices))
	seen := make(map[Vertex3D]uint32, len(vertices))
	remap := make([]uint32, len(vertices))
	for i, v := range vertices {
		idx, ok := seen[v]
		if !ok {
			idx = uint32(len(unique))
			seen[v] = idx
			unique = append(unique, v)
		}
		remap[i] = idx
	}
	out := make([]uint32, len(indices))
	for i, idx := range indices {
		out[i] = remap[idx]
	}
	return unique, out
}
