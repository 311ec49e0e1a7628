package loaders

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"

	// Registered decoders.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"

	"github.com/spaghettifunk/vkbase/engine/core"
)

// sniffLen is how many leading bytes filetype needs to match a signature.
const sniffLen = 262

// ImageData holds tightly packed 8-bit RGBA pixels, top row first.
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// LoadImage decodes PNG, JPEG, BMP, TIFF or WebP into RGBA.
func LoadImage(path string, flipY bool) (*ImageData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := DecodeImage(f, flipY)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// DecodeImage sniffs the content first so that a non-image file under an
// image name is reported by what it really is.
func DecodeImage(r io.Reader, flipY bool) (*ImageData, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(sniffLen)
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown && kind.MIME.Type != "image" {
		return nil, fmt.Errorf("content is %s, not an image: %w", kind.MIME.Value, core.ErrInvalidAsset)
	}
	src, format, err := image.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, core.ErrInvalidAsset)
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%s image is empty: %w", format, core.ErrInvalidAsset)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	if flipY {
		flipRows(rgba.Pix, rgba.Stride, bounds.Dy())
	}
	return &ImageData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}, nil
}

// FromImage converts any image to ImageData.
func FromImage(src image.Image) *ImageData {
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	return &ImageData{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy()), Pixels: rgba.Pix}
}

func flipRows(pix []byte, stride, rows int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// Resize scales the image to width x height with Catmull-Rom filtering.
func (d *ImageData) Resize(width, height uint32) *ImageData {
	src := &image.RGBA{
		Pix:    d.Pixels,
		Stride: int(d.Width) * 4,
		Rect:   image.Rect(0, 0, int(d.Width), int(d.Height)),
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return &ImageData{Width: width, Height: height, Pixels: dst.Pix}
}
