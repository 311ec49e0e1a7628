package loaders

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/jobs"
	"github.com/spaghettifunk/vkbase/engine/math"
)

// ScenePrimitive is one drawable piece of a glTF scene placed in world
// space.
type ScenePrimitive struct {
	Mesh      *MeshData
	Transform math.Mat4
	// Texture indexes SceneData.Images, -1 when untextured.
	Texture   int
	BaseColor math.Vec4
}

// SceneData is a flattened glTF scene.
type SceneData struct {
	Primitives []ScenePrimitive
	Images     []*ImageData
}

// LoadGLTF reads a .gltf or .glb file and flattens the default scene.
// Triangle primitives only; base colour textures are decoded to RGBA.
func LoadGLTF(path string) (*SceneData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", path, err, core.ErrInvalidAsset)
	}
	scene, err := flattenGLTF(doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scene, nil
}

func flattenGLTF(doc *gltf.Document, dir string) (*SceneData, error) {
	out := &SceneData{}

	// Images are only recorded during the walk and decoded in parallel
	// afterwards.
	images := make(map[int]int)
	var sources []int
	imageFor := func(textureIndex int) (int, error) {
		if textureIndex < 0 || textureIndex >= len(doc.Textures) || doc.Textures[textureIndex].Source == nil {
			return -1, nil
		}
		src := int(*doc.Textures[textureIndex].Source)
		if i, ok := images[src]; ok {
			return i, nil
		}
		if src >= len(doc.Images) {
			return -1, fmt.Errorf("texture %d references image %d: %w", textureIndex, src, core.ErrInvalidAsset)
		}
		sources = append(sources, src)
		images[src] = len(sources) - 1
		return images[src], nil
	}

	var roots []int
	switch {
	case doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes):
		roots = nodeIndices(doc.Scenes[*doc.Scene].Nodes)
	case len(doc.Scenes) > 0:
		roots = nodeIndices(doc.Scenes[0].Nodes)
	default:
		for i := range doc.Nodes {
			roots = append(roots, i)
		}
	}

	var visit func(node int, parent math.Mat4, depth int) error
	visit = func(node int, parent math.Mat4, depth int) error {
		if node < 0 || node >= len(doc.Nodes) || depth > 64 {
			return fmt.Errorf("bad node %d: %w", node, core.ErrInvalidAsset)
		}
		n := doc.Nodes[node]
		world := nodeTransform(n).Mul(parent)
		if n.Mesh != nil {
			prims, err := meshPrimitives(doc, int(*n.Mesh), imageFor)
			if err != nil {
				return fmt.Errorf("node %d: %w", node, err)
			}
			for _, p := range prims {
				p.Transform = world
				out.Primitives = append(out.Primitives, p)
			}
		}
		for _, child := range n.Children {
			if err := visit(int(child), world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range roots {
		if err := visit(root, math.NewMat4Identity(), 0); err != nil {
			return nil, err
		}
	}
	if len(out.Primitives) == 0 {
		return nil, fmt.Errorf("scene has no triangle meshes: %w", core.ErrInvalidAsset)
	}

	out.Images = make([]*ImageData, len(sources))
	decoders := make([]func() error, len(sources))
	for i, src := range sources {
		decoders[i] = func() error {
			data, err := gltfImageBytes(doc, src, dir)
			if err != nil {
				return fmt.Errorf("image %d: %w", src, err)
			}
			img, err := DecodeImage(bytes.NewReader(data), false)
			if err != nil {
				return fmt.Errorf("image %d: %w", src, err)
			}
			out.Images[i] = img
			return nil
		}
	}
	if err := jobs.RunAll("gltf image", decoders...); err != nil {
		return nil, err
	}
	return out, nil
}

func nodeIndices(nodes []uint32) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n)
	}
	return out
}

// nodeTransform returns the local matrix, either given directly or composed
// from translation, rotation and scale.
func nodeTransform(n *gltf.Node) math.Mat4 {
	m := n.MatrixOrDefault()
	if m != gltf.DefaultMatrix {
		var values [16]float32
		for i := range m {
			values[i] = float32(m[i])
		}
		return math.NewMat4FromSlice(values)
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return math.NewMat4TRS(
		math.NewVec3(float32(t[0]), float32(t[1]), float32(t[2])),
		math.Quaternion{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])},
		math.NewVec3(float32(s[0]), float32(s[1]), float32(s[2])),
	)
}

func meshPrimitives(doc *gltf.Document, meshIndex int, imageFor func(int) (int, error)) ([]ScenePrimitive, error) {
	if meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range: %w", meshIndex, core.ErrInvalidAsset)
	}
	mesh := doc.Meshes[meshIndex]
	var out []ScenePrimitive
	for pi, p := range mesh.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			core.LogWarn("mesh %q primitive %d: mode %d is not supported, skipping", mesh.Name, pi, p.Mode)
			continue
		}
		data, err := primitiveMesh(doc, p)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, pi, err)
		}
		data.Name = mesh.Name

		prim := ScenePrimitive{Mesh: data, Texture: -1, BaseColor: math.NewVec4One()}
		if p.Material != nil && int(*p.Material) < len(doc.Materials) {
			if pbr := doc.Materials[*p.Material].PBRMetallicRoughness; pbr != nil {
				if f := pbr.BaseColorFactor; f != nil {
					prim.BaseColor = math.NewVec4(float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3]))
				}
				if pbr.BaseColorTexture != nil {
					if prim.Texture, err = imageFor(int(pbr.BaseColorTexture.Index)); err != nil {
						return nil, err
					}
				}
			}
		}
		out = append(out, prim)
	}
	return out, nil
}

func primitiveMesh(doc *gltf.Document, p *gltf.Primitive) (*MeshData, error) {
	posIndex, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute: %w", core.ErrInvalidAsset)
	}
	acr, err := gltfAccessor(doc, gltf.POSITION, posIndex)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return nil, err
	}
	vertices := make([]math.Vertex3D, len(positions))
	for i, pos := range positions {
		vertices[i].Position = math.NewVec3(pos[0], pos[1], pos[2])
		vertices[i].Colour = math.NewVec4One()
	}

	hasNormals := false
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		acr, err := gltfAccessor(doc, gltf.NORMAL, idx)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return nil, err
		}
		for i := range vertices {
			if i < len(normals) {
				vertices[i].Normal = math.NewVec3(normals[i][0], normals[i][1], normals[i][2])
			}
		}
		hasNormals = true
	}
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := gltfAccessor(doc, gltf.TEXCOORD_0, idx)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return nil, err
		}
		for i := range vertices {
			if i < len(uvs) {
				vertices[i].Texcoord = math.NewVec2(uvs[i][0], uvs[i][1])
			}
		}
	}

	var indices []uint32
	if p.Indices != nil {
		acr, err := gltfAccessor(doc, "indices", *p.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return nil, err
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return nil, fmt.Errorf("index %d out of range (%d vertices): %w", i, len(vertices), core.ErrInvalidAsset)
		}
	}
	if !hasNormals {
		math.GeometryGenerateNormals(vertices, indices)
	}
	return &MeshData{
		Vertices: vertices,
		Indices:  indices,
		Extents:  math.GeometryExtents(vertices),
	}, nil
}

func gltfAccessor(doc *gltf.Document, what string, index uint32) (*gltf.Accessor, error) {
	if int(index) >= len(doc.Accessors) || doc.Accessors[index] == nil {
		return nil, fmt.Errorf("%s accessor %d out of range (%d accessors): %w", what, index, len(doc.Accessors), core.ErrInvalidAsset)
	}
	return doc.Accessors[index], nil
}

// gltfImageBytes returns the encoded bytes of an image stored in a buffer
// view, a data URI or an external file next to the document.
func gltfImageBytes(doc *gltf.Document, index int, dir string) ([]byte, error) {
	if index >= len(doc.Images) {
		return nil, fmt.Errorf("image %d out of range: %w", index, core.ErrInvalidAsset)
	}
	img := doc.Images[index]
	switch {
	case img.BufferView != nil:
		if int(*img.BufferView) >= len(doc.BufferViews) {
			return nil, fmt.Errorf("image %d buffer view %d out of range: %w", index, *img.BufferView, core.ErrInvalidAsset)
		}
		return modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			uri = img.URI
		}
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(uri)))
	}
	return nil, fmt.Errorf("image %d has no data: %w", index, core.ErrInvalidAsset)
}
