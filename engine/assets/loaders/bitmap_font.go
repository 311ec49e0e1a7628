package loaders

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/vkbase/engine/core"
)

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type KerningPair struct {
	First  rune
	Second rune
}

// FontData is a bitmap font with its first atlas page decoded to RGBA.
type FontData struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     map[rune]FontGlyph
	Kernings   map[KerningPair]int16
	Pages      []string
	Atlas      *ImageData
}

// Glyph returns the glyph for r, falling back to '?' for missing ones.
func (f *FontData) Glyph(r rune) (FontGlyph, bool) {
	if g, ok := f.Glyphs[r]; ok {
		return g, true
	}
	g, ok := f.Glyphs['?']
	return g, ok
}

// Kerning returns the advance adjustment between a and b.
func (f *FontData) Kerning(a, b rune) int16 {
	return f.Kernings[KerningPair{First: a, Second: b}]
}

// LoadBitmapFont reads an AngelCode .fnt descriptor and its first page.
func LoadBitmapFont(path string) (*FontData, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", path, err, core.ErrInvalidAsset)
	}
	d := font.Descriptor

	out := &FontData{
		Face:       d.Info.Face,
		Size:       uint32(d.Info.Size),
		LineHeight: int32(d.Common.LineHeight),
		Baseline:   int32(d.Common.Base),
		AtlasSizeX: int32(d.Common.ScaleW),
		AtlasSizeY: int32(d.Common.ScaleH),
		Glyphs:     make(map[rune]FontGlyph, len(d.Chars)),
		Kernings:   make(map[KerningPair]int16, len(d.Kerning)),
	}

	pageIDs := make([]int, 0, len(d.Pages))
	for id := range d.Pages {
		pageIDs = append(pageIDs, id)
	}
	sort.Ints(pageIDs)
	for _, id := range pageIDs {
		out.Pages = append(out.Pages, d.Pages[id].File)
	}

	for _, g := range d.Chars {
		out.Glyphs[g.ID] = FontGlyph{
			Codepoint: g.ID,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		}
	}
	for p, k := range d.Kerning {
		out.Kernings[KerningPair{First: p.First, Second: p.Second}] = int16(k.Amount)
	}

	if len(out.Pages) == 0 {
		return nil, fmt.Errorf("%s: font has no pages: %w", path, core.ErrInvalidAsset)
	}
	atlas, err := LoadImage(filepath.Join(filepath.Dir(path), out.Pages[0]), false)
	if err != nil {
		return nil, err
	}
	out.Atlas = atlas
	return out, nil
}
