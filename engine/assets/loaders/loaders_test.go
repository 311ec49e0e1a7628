package loaders

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/math"
)

func spirvBytes(words ...uint32) []byte {
	buf := new(bytes.Buffer)
	for _, w := range words {
		_ = binary.Write(buf, binary.LittleEndian, w)
	}
	return buf.Bytes()
}

func TestParseSPIRV(t *testing.T) {
	code, err := ParseSPIRV(spirvBytes(SPIRVMagic, 0x00010000, 0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0x00010000, 0, 1, 0}, code)

	_, err = ParseSPIRV(spirvBytes(0xdeadbeef, 0, 0, 0, 0))
	assert.ErrorIs(t, err, core.ErrInvalidAsset)

	_, err = ParseSPIRV(append(spirvBytes(SPIRVMagic, 0, 0, 0, 0), 1))
	assert.ErrorIs(t, err, core.ErrInvalidAsset)

	_, err = ParseSPIRV(nil)
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}

func writePNG(t *testing.T, path string, w, h int, fill func(x, y int) color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.png")
	writePNG(t, path, 2, 2, func(x, y int) color.NRGBA {
		if y == 0 {
			return color.NRGBA{R: 255, A: 255}
		}
		return color.NRGBA{B: 255, A: 255}
	})

	img, err := LoadImage(path, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	require.Len(t, img.Pixels, 16)
	assert.Equal(t, []byte{255, 0, 0, 255}, img.Pixels[0:4])
	assert.Equal(t, []byte{0, 0, 255, 255}, img.Pixels[8:12])

	flipped, err := LoadImage(path, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255, 255}, flipped.Pixels[0:4])

	small := img.Resize(1, 1)
	assert.Len(t, small.Pixels, 4)

	_, err = DecodeImage(strings.NewReader("not an image"), false)
	assert.ErrorIs(t, err, core.ErrInvalidAsset)

	// A zip archive renamed to .png is rejected by its signature.
	_, err = DecodeImage(bytes.NewReader([]byte{'P', 'K', 0x03, 0x04, 0, 0, 0, 0}), false)
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
	assert.ErrorContains(t, err, "not an image")

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func buildKTX(order binary.ByteOrder, kv map[string]string, levels [][]byte, width, height uint32) []byte {
	buf := new(bytes.Buffer)
	buf.Write(ktxIdentifier[:])

	var kvData bytes.Buffer
	for k, v := range kv {
		entry := append([]byte(k+"\x00"), []byte(v+"\x00")...)
		_ = binary.Write(&kvData, order, uint32(len(entry)))
		kvData.Write(entry)
		for kvData.Len()%4 != 0 {
			kvData.WriteByte(0)
		}
	}

	h := ktxHeader{
		Endianness:           ktxEndianness,
		GLType:               0x1401, // GL_UNSIGNED_BYTE
		GLTypeSize:           1,
		GLFormat:             0x1908, // GL_RGBA
		GLInternalFormat:     0x8058, // GL_RGBA8
		GLBaseInternalFormat: 0x1908,
		PixelWidth:           width,
		PixelHeight:          height,
		NumberOfFaces:        1,
		NumberOfMipmapLevels: uint32(len(levels)),
		BytesOfKeyValueData:  uint32(kvData.Len()),
	}
	_ = binary.Write(buf, order, h)
	buf.Write(kvData.Bytes())
	for _, l := range levels {
		_ = binary.Write(buf, order, uint32(len(l)))
		buf.Write(l)
		for buf.Len()%4 != 0 {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

func TestParseKTX(t *testing.T) {
	level0 := bytes.Repeat([]byte{1, 2, 3, 4}, 4)
	level1 := []byte{9, 9, 9, 9}

	for name, order := range map[string]binary.ByteOrder{"little": binary.LittleEndian, "big": binary.BigEndian} {
		t.Run(name, func(t *testing.T) {
			data := buildKTX(order, map[string]string{"KTXorientation": "S=r,T=d"}, [][]byte{level0, level1}, 2, 2)
			tex, err := ParseKTX(data)
			require.NoError(t, err)

			assert.Equal(t, uint32(0x8058), tex.GLInternalFormat)
			assert.False(t, tex.Compressed())
			assert.Equal(t, uint32(2), tex.Width)
			assert.Equal(t, uint32(1), tex.Depth)
			assert.Equal(t, "S=r,T=d", tex.KeyValues["KTXorientation"])
			require.Len(t, tex.Levels, 2)
			assert.Equal(t, uint32(1), tex.Levels[1].Width)
			assert.Equal(t, [][]byte{level0, level1}, tex.LevelData())
		})
	}
}

func TestParseKTXErrors(t *testing.T) {
	_, err := ParseKTX([]byte("definitely not a ktx file"))
	assert.ErrorIs(t, err, core.ErrInvalidAsset)

	data := buildKTX(binary.LittleEndian, nil, [][]byte{make([]byte, 16)}, 2, 2)
	_, err = ParseKTX(data[:len(data)-8])
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}

// ktxHeaderOnly is a bare 64-byte KTX header with one field overridden.
func ktxHeaderOnly(t *testing.T, edit func(h *ktxHeader)) []byte {
	h := ktxHeader{
		Endianness:           ktxEndianness,
		GLInternalFormat:     0x8058,
		PixelWidth:           4,
		PixelHeight:          4,
		NumberOfFaces:        1,
		NumberOfMipmapLevels: 1,
	}
	edit(&h)
	buf := new(bytes.Buffer)
	buf.Write(ktxIdentifier[:])
	require.NoError(t, binary.Write(buf, binary.LittleEndian, h))
	require.Len(t, buf.Bytes(), 64)
	return buf.Bytes()
}

func TestParseKTXRejectsOversizedHeaderFields(t *testing.T) {
	tests := map[string]func(h *ktxHeader){
		"key/value data past the end": func(h *ktxHeader) { h.BytesOfKeyValueData = 0x7FFFFFFF },
		"key/value data off by one":   func(h *ktxHeader) { h.BytesOfKeyValueData = 1 },
		"mip levels past the chain":   func(h *ktxHeader) { h.NumberOfMipmapLevels = 4 },
		"huge mip level count":        func(h *ktxHeader) { h.NumberOfMipmapLevels = 0xFFFFFFFF },
	}
	for name, edit := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseKTX(ktxHeaderOnly(t, edit))
			assert.ErrorIs(t, err, core.ErrInvalidAsset)
		})
	}

	// A full 4x4 chain is three levels.
	levels := [][]byte{make([]byte, 64), make([]byte, 16), make([]byte, 4)}
	tex, err := ParseKTX(buildKTX(binary.LittleEndian, nil, levels, 4, 4))
	require.NoError(t, err)
	assert.Len(t, tex.Levels, 3)
}

const quadOBJ = `
# a unit quad
o Quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl none
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestParseOBJ(t *testing.T) {
	mesh, err := ParseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	assert.Equal(t, "Quad", mesh.Name)
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, math.NewVec2(1, 0), mesh.Vertices[2].Texcoord, "V is flipped")
	assert.Equal(t, math.NewVec3(0, 0, 1), mesh.Vertices[0].Normal)
	assert.Equal(t, math.NewVec4One(), mesh.Vertices[0].Colour)
	assert.Equal(t, math.NewVec3(1, 1, 0), mesh.Extents.Max)
}

func TestParseOBJNegativeIndicesAndNormals(t *testing.T) {
	src := `
v 0 0 0 1 0 0
v 1 0 0 0 1 0
v 0 1 0 0 0 1
f -3 -2 -1
`
	mesh, err := ParseOBJ(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, mesh.Vertices, 3)
	for _, v := range mesh.Vertices {
		assert.True(t, v.Normal.Compare(math.NewVec3(0, 0, 1), 1e-6), "generated normal %v", v.Normal)
	}
	assert.Equal(t, math.NewVec4(0, 1, 0, 1), mesh.Vertices[1].Colour)
}

func TestParseOBJErrors(t *testing.T) {
	tests := map[string]string{
		"no faces":     "v 0 0 0\n",
		"bad index":    "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n",
		"bad number":   "v 0 zero 0\n",
		"short face":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"no position":  "v 0 0 0\nv 1 0 0\nv 0 1 0\nf /1 2 3\n",
		"short vertex": "v 0 0\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(src))
			assert.ErrorIs(t, err, core.ErrInvalidAsset)
		})
	}
}

func TestFlattenGLTF(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: gltf.Attribute{gltf.POSITION: pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "parent", Translation: [3]float64{1, 2, 3}, Children: []uint32{1}},
		{Name: "child", Mesh: gltf.Index(0), Translation: [3]float64{10, 0, 0}},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}
	doc.Scene = gltf.Index(0)

	scene, err := flattenGLTF(doc, t.TempDir())
	require.NoError(t, err)
	require.Len(t, scene.Primitives, 1)

	p := scene.Primitives[0]
	assert.Equal(t, -1, p.Texture)
	assert.Equal(t, []uint32{0, 1, 2}, p.Mesh.Indices)
	assert.Equal(t, "tri", p.Mesh.Name)
	origin := math.NewVec3Zero().Transform(p.Transform)
	assert.True(t, origin.Compare(math.NewVec3(11, 2, 3), 1e-5), "%v", origin)
	assert.True(t, p.Mesh.Vertices[0].Normal.Compare(math.NewVec3(0, 0, 1), 1e-6))
}

func TestFlattenGLTFRejectsDanglingIndices(t *testing.T) {
	tests := map[string]func(doc *gltf.Document){
		"position without accessors": func(doc *gltf.Document) {
			doc.Accessors = nil
			doc.Meshes[0].Primitives[0].Attributes = gltf.Attribute{gltf.POSITION: 5}
		},
		"normal out of range": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes[gltf.NORMAL] = 42
		},
		"texcoord out of range": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes[gltf.TEXCOORD_0] = 42
		},
		"indices out of range": func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Indices = gltf.Index(42)
		},
		"image buffer view out of range": func(doc *gltf.Document) {
			doc.Images = []*gltf.Image{{MimeType: "image/png", BufferView: gltf.Index(42)}}
			doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
			doc.Materials = []*gltf.Material{{PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorTexture: &gltf.TextureInfo{Index: 0},
			}}}
			doc.Meshes[0].Primitives[0].Material = gltf.Index(0)
		},
	}
	for name, edit := range tests {
		t.Run(name, func(t *testing.T) {
			doc := gltf.NewDocument()
			pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
			doc.Meshes = []*gltf.Mesh{{
				Name: "tri",
				Primitives: []*gltf.Primitive{{
					Attributes: gltf.Attribute{gltf.POSITION: pos},
				}},
			}}
			doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
			doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}
			doc.Scene = gltf.Index(0)
			edit(doc)

			var err error
			assert.NotPanics(t, func() { _, err = flattenGLTF(doc, t.TempDir()) })
			assert.ErrorIs(t, err, core.ErrInvalidAsset)
		})
	}
}

func TestFlattenGLTFWithoutMeshes(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{{Name: "empty"}}
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}
	doc.Scene = gltf.Index(0)
	_, err := flattenGLTF(doc, t.TempDir())
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}

const testFNT = `info face="Test" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=18 base=14 scaleW=16 scaleH=16 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="test_0.png"
chars count=2
char id=65   x=0     y=0     width=8     height=10    xoffset=0     yoffset=4     xadvance=9     page=0  chnl=15
char id=63   x=8     y=0     width=6     height=10    xoffset=1     yoffset=4     xadvance=7     page=0  chnl=15
kernings count=1
kerning first=65  second=63  amount=-1
`

func TestLoadBitmapFont(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.fnt"), []byte(testFNT), 0o644))
	writePNG(t, filepath.Join(dir, "test_0.png"), 16, 16, func(x, y int) color.NRGBA {
		return color.NRGBA{R: 255, G: 255, B: 255, A: uint8(x * 16)}
	})

	font, err := LoadBitmapFont(filepath.Join(dir, "test.fnt"))
	require.NoError(t, err)
	assert.Equal(t, "Test", font.Face)
	assert.Equal(t, int32(18), font.LineHeight)
	assert.Equal(t, int32(14), font.Baseline)
	assert.Equal(t, []string{"test_0.png"}, font.Pages)
	require.NotNil(t, font.Atlas)
	assert.Equal(t, uint32(16), font.Atlas.Width)

	g, ok := font.Glyph('A')
	require.True(t, ok)
	assert.Equal(t, int16(9), g.XAdvance)
	fallback, ok := font.Glyph('Z')
	require.True(t, ok)
	assert.Equal(t, rune('?'), fallback.Codepoint)
	assert.Equal(t, int16(-1), font.Kerning('A', '?'))
	assert.Equal(t, int16(0), font.Kerning('?', 'A'))
}
