package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/math"
)

// MeshData is an indexed triangle list.
type MeshData struct {
	Name     string
	Vertices []math.Vertex3D
	Indices  []uint32
	Extents  math.Extents3D
}

func LoadOBJ(path string) (*MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mesh.Name == "" {
		mesh.Name = path
	}
	return mesh, nil
}

type objIndex struct {
	position, texcoord, normal int
}

// ParseOBJ reads positions (with optional vertex colours), texture
// coordinates, normals and faces. Polygons are triangulated as fans,
// identical corners are merged and missing normals are generated from the
// faces. Texture V is flipped to the top-left origin Vulkan samples with.
func ParseOBJ(r io.Reader) (*MeshData, error) {
	var (
		positions []math.Vec3
		colours   []math.Vec4
		texcoords []math.Vec2
		normals   []math.Vec3
		corners   []objIndex
		name      string
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			f, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, objError(lineNo, err)
			}
			positions = append(positions, math.NewVec3(f[0], f[1], f[2]))
			colour := math.NewVec4One()
			if len(f) >= 6 {
				colour = math.NewVec4(f[3], f[4], f[5], 1)
			}
			colours = append(colours, colour)
		case "vt":
			f, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, objError(lineNo, err)
			}
			texcoords = append(texcoords, math.NewVec2(f[0], 1-f[1]))
		case "vn":
			f, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, objError(lineNo, err)
			}
			normals = append(normals, math.NewVec3(f[0], f[1], f[2]))
		case "f":
			if len(fields) < 4 {
				return nil, objError(lineNo, fmt.Errorf("face with %d corners", len(fields)-1))
			}
			face := make([]objIndex, 0, len(fields)-1)
			for _, c := range fields[1:] {
				idx, err := parseCorner(c, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, objError(lineNo, err)
				}
				face = append(face, idx)
			}
			for i := 1; i+1 < len(face); i++ {
				corners = append(corners, face[0], face[i], face[i+1])
			}
		case "o":
			if name == "" && len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
		case "g", "s", "mtllib", "usemtl", "l", "p":
			// grouping and materials are not used
		default:
			core.LogDebug("obj line %d: skipping %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(corners) == 0 {
		return nil, fmt.Errorf("no faces: %w", core.ErrInvalidAsset)
	}

	vertices := make([]math.Vertex3D, len(corners))
	indices := make([]uint32, len(corners))
	hasNormals := true
	for i, c := range corners {
		v := math.Vertex3D{
			Position: positions[c.position],
			Colour:   colours[c.position],
		}
		if c.texcoord >= 0 {
			v.Texcoord = texcoords[c.texcoord]
		}
		if c.normal >= 0 {
			v.Normal = normals[c.normal]
		} else {
			hasNormals = false
		}
		vertices[i] = v
		indices[i] = uint32(i)
	}
	if !hasNormals {
		math.GeometryGenerateNormals(vertices, indices)
	}
	vertices, indices = math.GeometryDeduplicateVertices(vertices, indices)

	return &MeshData{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
		Extents:  math.GeometryExtents(vertices),
	}, nil
}

func objError(line int, err error) error {
	return fmt.Errorf("line %d: %s: %w", line, err, core.ErrInvalidAsset)
}

func parseFloats(fields []string, minCount int) ([]float32, error) {
	if len(fields) < minCount {
		return nil, fmt.Errorf("expected %d values, got %d", minCount, len(fields))
	}
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseCorner parses v, v/vt, v//vn or v/vt/vn. Indices are 1-based and may
// be negative to count back from the latest element.
func parseCorner(s string, nPos, nTex, nNorm int) (objIndex, error) {
	parts := strings.Split(s, "/")
	idx := objIndex{position: -1, texcoord: -1, normal: -1}
	resolve := func(part string, count int) (int, error) {
		if part == "" {
			return -1, nil
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			n = count + n
		} else {
			n--
		}
		if n < 0 || n >= count {
			return 0, fmt.Errorf("index %s out of range (%d elements)", part, count)
		}
		return n, nil
	}

	var err error
	if idx.position, err = resolve(parts[0], nPos); err != nil {
		return idx, err
	}
	if idx.position < 0 {
		return idx, fmt.Errorf("corner %q has no position", s)
	}
	if len(parts) > 1 {
		if idx.texcoord, err = resolve(parts[1], nTex); err != nil {
			return idx, err
		}
	}
	if len(parts) > 2 {
		if idx.normal, err = resolve(parts[2], nNorm); err != nil {
			return idx, err
		}
	}
	return idx, nil
}
