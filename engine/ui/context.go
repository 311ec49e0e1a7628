package ui

import (
	"fmt"
	"unicode/utf8"

	"github.com/spaghettifunk/vkbase/engine/assets/loaders"
	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/math"
)

type Style struct {
	Padding      float32
	Spacing      float32
	WindowColour math.Vec4
	TitleColour  math.Vec4
	TextColour   math.Vec4
	ButtonColour math.Vec4
	HoverColour  math.Vec4
	ActiveColour math.Vec4
	CheckColour  math.Vec4
}

func DefaultStyle() Style {
	return Style{
		Padding:      6,
		Spacing:      4,
		WindowColour: math.NewVec4(0.08, 0.08, 0.1, 0.85),
		TitleColour:  math.NewVec4(0.2, 0.25, 0.45, 1),
		TextColour:   math.NewVec4(0.95, 0.95, 0.95, 1),
		ButtonColour: math.NewVec4(0.25, 0.3, 0.4, 1),
		HoverColour:  math.NewVec4(0.35, 0.42, 0.55, 1),
		ActiveColour: math.NewVec4(0.45, 0.55, 0.75, 1),
		CheckColour:  math.NewVec4(0.6, 0.85, 0.45, 1),
	}
}

// Input is the mouse state the UI reacts to, in framebuffer pixels.
type Input struct {
	MouseX    float32
	MouseY    float32
	MouseDown bool
}

// InputFromCore samples the input subsystem.
func InputFromCore() Input {
	x, y := core.InputGetMousePosition()
	return Input{
		MouseX:    float32(x),
		MouseY:    float32(y),
		MouseDown: core.InputIsButtonDown(core.BUTTON_LEFT),
	}
}

type window struct {
	id         string
	rect       Rect
	background int
	firstIndex int
}

// Context builds one draw list per frame. Widgets are identified by their
// label within the enclosing window.
type Context struct {
	Style Style

	font     *loaders.FontData
	list     DrawList
	frame    Rect
	input    Input
	pressed  bool
	released bool
	wasDown  bool

	cursor math.Vec2
	window *window
	// first index of top level widgets not yet covered by a command
	rootStart int

	hot    string
	active string
	inside bool
}

func NewContext(font *loaders.FontData) *Context {
	return &Context{Style: DefaultStyle(), font: font}
}

func (c *Context) Font() *loaders.FontData {
	return c.font
}

// Begin starts a frame of the given framebuffer size.
func (c *Context) Begin(width, height float32, in Input) {
	if c.inside {
		core.LogWarn("ui: Begin called twice without End")
	}
	c.list.Reset()
	c.frame = Rect{W: width, H: height}
	c.input = in
	c.pressed = in.MouseDown && !c.wasDown
	c.released = !in.MouseDown && c.wasDown
	c.wasDown = in.MouseDown
	c.hot = ""
	c.window = nil
	c.rootStart = 0
	c.cursor = math.NewVec2(c.Style.Padding, c.Style.Padding)
	c.inside = true
}

// End closes the open window and returns the frame's draw list. The list is
// reused by the next Begin.
func (c *Context) End() *DrawList {
	c.closeWindow()
	c.list.command(c.rootStart, c.frame)
	if c.released {
		c.active = ""
	}
	c.inside = false
	return &c.list
}

// Window starts a window at (x, y) that is w pixels wide and grows to fit
// its content. A previously open window is closed.
func (c *Context) Window(title string, x, y, w float32) {
	c.closeWindow()
	c.list.command(c.rootStart, c.frame)

	lineHeight := c.lineHeight()
	win := &window{
		id:         title,
		rect:       Rect{X: x, Y: y, W: w},
		firstIndex: len(c.list.Indices),
	}
	win.background = c.list.addRect(win.rect, c.Style.WindowColour)
	titleBar := Rect{X: x, Y: y, W: w, H: lineHeight + 2*c.Style.Padding}
	c.list.addRect(titleBar, c.Style.TitleColour)
	c.drawText(title, x+c.Style.Padding, y+c.Style.Padding, c.Style.TextColour)

	c.window = win
	c.cursor = math.NewVec2(x+c.Style.Padding, y+titleBar.H+c.Style.Padding)
}

func (c *Context) closeWindow() {
	win := c.window
	if win == nil {
		return
	}
	win.rect.H = c.cursor.Y - win.rect.Y
	c.list.resizeQuad(win.background, win.rect)
	c.list.command(win.firstIndex, win.rect.Intersect(c.frame))
	c.window = nil
	c.rootStart = len(c.list.Indices)
	c.cursor = math.NewVec2(c.Style.Padding, win.rect.Y+win.rect.H+c.Style.Spacing)
}

// Text draws a formatted line at the cursor.
func (c *Context) Text(format string, args ...any) {
	s := format
	if len(args) > 0 {
		s = fmt.Sprintf(format, args...)
	}
	c.drawText(s, c.cursor.X, c.cursor.Y, c.Style.TextColour)
	c.advance(c.lineHeight() * float32(countLines(s)))
}

// Button draws a button sized to its label and reports whether it was
// clicked this frame.
func (c *Context) Button(label string) bool {
	r := Rect{
		X: c.cursor.X,
		Y: c.cursor.Y,
		W: c.MeasureText(label) + 2*c.Style.Padding,
		H: c.lineHeight() + c.Style.Padding,
	}
	clicked, colour := c.interact(c.id(label), r)
	c.list.addRect(r, colour)
	c.drawText(label, r.X+c.Style.Padding, r.Y+c.Style.Padding/2, c.Style.TextColour)
	c.advance(r.H)
	return clicked
}

// Checkbox toggles *value when clicked and reports whether it changed.
func (c *Context) Checkbox(label string, value *bool) bool {
	lineHeight := c.lineHeight()
	box := Rect{X: c.cursor.X, Y: c.cursor.Y, W: lineHeight, H: lineHeight}
	hit := Rect{X: box.X, Y: box.Y, W: box.W + c.Style.Spacing + c.MeasureText(label), H: lineHeight}

	clicked, colour := c.interact(c.id(label), hit)
	if clicked {
		*value = !*value
	}
	c.list.addRect(box, colour)
	if *value {
		inset := lineHeight / 4
		c.list.addRect(Rect{X: box.X + inset, Y: box.Y + inset, W: box.W - 2*inset, H: box.H - 2*inset}, c.Style.CheckColour)
	}
	c.drawText(label, box.X+box.W+c.Style.Spacing, box.Y, c.Style.TextColour)
	c.advance(lineHeight)
	return clicked
}

// MeasureText returns the advance of the widest line of s.
func (c *Context) MeasureText(s string) float32 {
	if c.font == nil {
		return 0
	}
	var widest, x float32
	prev := rune(-1)
	for _, r := range s {
		if r == '\n' {
			widest = max(widest, x)
			x = 0
			prev = -1
			continue
		}
		g, ok := c.glyph(r)
		if !ok {
			continue
		}
		if prev >= 0 {
			x += float32(c.font.Kerning(prev, r))
		}
		x += float32(g.XAdvance)
		prev = r
	}
	return max(widest, x)
}

// interact updates the hot and active widgets and returns whether id was
// clicked along with the colour to draw it with.
func (c *Context) interact(id string, r Rect) (bool, math.Vec4) {
	over := r.Contains(c.input.MouseX, c.input.MouseY)
	if over {
		c.hot = id
		if c.pressed {
			c.active = id
		}
	}
	clicked := over && c.released && c.active == id
	switch {
	case c.active == id && c.input.MouseDown:
		return clicked, c.Style.ActiveColour
	case over:
		return clicked, c.Style.HoverColour
	}
	return clicked, c.Style.ButtonColour
}

// Hovered reports whether the mouse is over any widget this frame.
func (c *Context) Hovered() bool {
	return c.hot != ""
}

func (c *Context) id(label string) string {
	if c.window != nil {
		return c.window.id + "/" + label
	}
	return label
}

func (c *Context) advance(h float32) {
	c.cursor.Y += h + c.Style.Spacing
}

func (c *Context) lineHeight() float32 {
	if c.font == nil {
		return 0
	}
	return float32(c.font.LineHeight)
}

// drawText emits one quad per visible glyph with its top-left line corner at
// (x, y).
func (c *Context) drawText(s string, x, y float32, colour math.Vec4) {
	if c.font == nil || !utf8.ValidString(s) {
		return
	}
	atlasW := float32(max(c.font.AtlasSizeX, 1))
	atlasH := float32(max(c.font.AtlasSizeY, 1))
	penX := x
	prev := rune(-1)
	for _, r := range s {
		switch r {
		case '\n':
			penX = x
			y += c.lineHeight()
			prev = -1
			continue
		}
		g, ok := c.glyph(r)
		if !ok {
			continue
		}
		if prev >= 0 {
			penX += float32(c.font.Kerning(prev, r))
		}
		if g.Width > 0 && g.Height > 0 {
			quad := Rect{
				X: penX + float32(g.XOffset),
				Y: y + float32(g.YOffset),
				W: float32(g.Width),
				H: float32(g.Height),
			}
			uvMin := math.NewVec2(float32(g.X)/atlasW, float32(g.Y)/atlasH)
			uvMax := math.NewVec2(float32(g.X+g.Width)/atlasW, float32(g.Y+g.Height)/atlasH)
			c.list.addQuad(quad, uvMin, uvMax, colour)
		}
		penX += float32(g.XAdvance)
		prev = r
	}
}

// glyph looks r up in the font. Fonts without a space glyph get a blank
// quarter-line advance instead of the fallback glyph.
func (c *Context) glyph(r rune) (loaders.FontGlyph, bool) {
	if r == ' ' {
		if g, ok := c.font.Glyphs[r]; ok {
			return g, true
		}
		return loaders.FontGlyph{Codepoint: r, XAdvance: int16(c.lineHeight() / 4)}, true
	}
	return c.font.Glyph(r)
}

func countLines(s string) int {
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
