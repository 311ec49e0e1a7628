package ui

import "github.com/spaghettifunk/vkbase/engine/math"

// SolidUV is the texture coordinate of untextured quads. The overlay
// fragment shader skips the atlas lookup for negative coordinates.
var SolidUV = math.NewVec2(-1, -1)

type Rect struct {
	X, Y, W, H float32
}

func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Intersect returns the overlap of r and o, empty when they do not touch.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// DrawCommand draws IndexCount indices starting at IndexOffset with the
// scissor set to Clip.
type DrawCommand struct {
	IndexOffset uint32
	IndexCount  uint32
	Clip        Rect
}

// DrawList is the output of one UI frame. Positions are in pixels with the
// origin at the top-left corner of the framebuffer.
type DrawList struct {
	Vertices []math.Vertex2D
	Indices  []uint32
	Commands []DrawCommand
}

func (d *DrawList) Reset() {
	d.Vertices = d.Vertices[:0]
	d.Indices = d.Indices[:0]
	d.Commands = d.Commands[:0]
}

func (d *DrawList) Empty() bool {
	return len(d.Indices) == 0
}

// addQuad appends a quad and returns the index of its first vertex.
func (d *DrawList) addQuad(r Rect, uvMin, uvMax math.Vec2, colour math.Vec4) int {
	base := len(d.Vertices)
	d.Vertices = append(d.Vertices,
		math.Vertex2D{Position: math.NewVec2(r.X, r.Y), Texcoord: uvMin, Colour: colour},
		math.Vertex2D{Position: math.NewVec2(r.X+r.W, r.Y), Texcoord: math.NewVec2(uvMax.X, uvMin.Y), Colour: colour},
		math.Vertex2D{Position: math.NewVec2(r.X+r.W, r.Y+r.H), Texcoord: uvMax, Colour: colour},
		math.Vertex2D{Position: math.NewVec2(r.X, r.Y+r.H), Texcoord: math.NewVec2(uvMin.X, uvMax.Y), Colour: colour},
	)
	b := uint32(base)
	d.Indices = append(d.Indices, b, b+1, b+2, b+2, b+3, b)
	return base
}

func (d *DrawList) addRect(r Rect, colour math.Vec4) int {
	return d.addQuad(r, SolidUV, SolidUV, colour)
}

// resizeQuad moves the corners of the quad at base to r.
func (d *DrawList) resizeQuad(base int, r Rect) {
	d.Vertices[base].Position = math.NewVec2(r.X, r.Y)
	d.Vertices[base+1].Position = math.NewVec2(r.X+r.W, r.Y)
	d.Vertices[base+2].Position = math.NewVec2(r.X+r.W, r.Y+r.H)
	d.Vertices[base+3].Position = math.NewVec2(r.X, r.Y+r.H)
}

// command closes the indices added since start into a draw command.
func (d *DrawList) command(start int, clip Rect) {
	if len(d.Indices) == start {
		return
	}
	d.Commands = append(d.Commands, DrawCommand{
		IndexOffset: uint32(start),
		IndexCount:  uint32(len(d.Indices) - start),
		Clip:        clip,
	})
}
