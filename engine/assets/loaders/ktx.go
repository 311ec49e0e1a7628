package loaders

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/spaghettifunk/vkbase/engine/core"
)

var ktxIdentifier = [12]byte{0xAB, 'K', 'T', 'X', ' ', '1', '1', 0xBB, '\r', '\n', 0x1A, '\n'}

const ktxEndianness uint32 = 0x04030201

type ktxHeader struct {
	Endianness            uint32
	GLType                uint32
	GLTypeSize            uint32
	GLFormat              uint32
	GLInternalFormat      uint32
	GLBaseInternalFormat  uint32
	PixelWidth            uint32
	PixelHeight           uint32
	PixelDepth            uint32
	NumberOfArrayElements uint32
	NumberOfFaces         uint32
	NumberOfMipmapLevels  uint32
	BytesOfKeyValueData   uint32
}

// KTXLevel is one mip level. Faces holds one slice per cube face (or a single
// slice), each covering every array element and depth slice.
type KTXLevel struct {
	Width  uint32
	Height uint32
	Faces  [][]byte
}

// KTXTexture is a parsed KTX 1.0 container.
type KTXTexture struct {
	GLType           uint32
	GLFormat         uint32
	GLInternalFormat uint32
	Width            uint32
	Height           uint32
	Depth            uint32
	ArrayElements    uint32
	Faces            uint32
	KeyValues        map[string]string
	Levels           []KTXLevel
}

// Compressed reports whether the payload is a block-compressed format.
func (t *KTXTexture) Compressed() bool {
	return t.GLType == 0
}

// LevelData returns face 0 of every level, the layout a 2D texture upload
// expects.
func (t *KTXTexture) LevelData() [][]byte {
	out := make([][]byte, len(t.Levels))
	for i, l := range t.Levels {
		out[i] = l.Faces[0]
	}
	return out
}

func LoadKTX(path string) (*KTXTexture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tex, err := ParseKTX(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tex, nil
}

func ParseKTX(data []byte) (*KTXTexture, error) {
	r := bytes.NewReader(data)

	var id [12]byte
	if _, err := io.ReadFull(r, id[:]); err != nil || id != ktxIdentifier {
		return nil, fmt.Errorf("not a KTX 1.0 file: %w", core.ErrInvalidAsset)
	}

	var order binary.ByteOrder = binary.LittleEndian
	var endianness [4]byte
	if _, err := io.ReadFull(r, endianness[:]); err != nil {
		return nil, fmt.Errorf("truncated KTX header: %w", core.ErrInvalidAsset)
	}
	switch {
	case binary.LittleEndian.Uint32(endianness[:]) == ktxEndianness:
	case binary.BigEndian.Uint32(endianness[:]) == ktxEndianness:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("bad KTX endianness marker: %w", core.ErrInvalidAsset)
	}
	if _, err := r.Seek(-4, io.SeekCurrent); err != nil {
		return nil, err
	}

	var h ktxHeader
	if err := binary.Read(r, order, &h); err != nil {
		return nil, fmt.Errorf("truncated KTX header: %w", core.ErrInvalidAsset)
	}
	if h.PixelWidth == 0 {
		return nil, fmt.Errorf("KTX width is zero: %w", core.ErrInvalidAsset)
	}
	if h.NumberOfFaces != 1 && h.NumberOfFaces != 6 {
		return nil, fmt.Errorf("KTX face count %d: %w", h.NumberOfFaces, core.ErrInvalidAsset)
	}

	tex := &KTXTexture{
		GLType:           h.GLType,
		GLFormat:         h.GLFormat,
		GLInternalFormat: h.GLInternalFormat,
		Width:            h.PixelWidth,
		Height:           max(h.PixelHeight, 1),
		Depth:            max(h.PixelDepth, 1),
		ArrayElements:    max(h.NumberOfArrayElements, 1),
		Faces:            h.NumberOfFaces,
		KeyValues:        map[string]string{},
	}

	if uint64(h.BytesOfKeyValueData) > uint64(r.Len()) {
		return nil, fmt.Errorf("KTX key/value data of %d bytes exceeds remaining %d: %w",
			h.BytesOfKeyValueData, r.Len(), core.ErrInvalidAsset)
	}
	// A mip chain ends at 1x1x1.
	if chain := uint32(bits.Len32(max(tex.Width, tex.Height, tex.Depth))); h.NumberOfMipmapLevels > chain {
		return nil, fmt.Errorf("KTX declares %d mip levels, a %dx%dx%d chain has %d: %w",
			h.NumberOfMipmapLevels, tex.Width, tex.Height, tex.Depth, chain, core.ErrInvalidAsset)
	}

	kv := make([]byte, h.BytesOfKeyValueData)
	if _, err := io.ReadFull(r, kv); err != nil {
		return nil, fmt.Errorf("truncated KTX key/value data: %w", core.ErrInvalidAsset)
	}
	if err := parseKTXKeyValues(kv, order, tex.KeyValues); err != nil {
		return nil, err
	}

	levels := max(h.NumberOfMipmapLevels, 1)
	// Non-array cube maps store the size of one face.
	perFace := h.NumberOfFaces == 6 && h.NumberOfArrayElements == 0
	for level := uint32(0); level < levels; level++ {
		var imageSize uint32
		if err := binary.Read(r, order, &imageSize); err != nil {
			return nil, fmt.Errorf("truncated KTX level %d: %w", level, core.ErrInvalidAsset)
		}
		l := KTXLevel{
			Width:  max(tex.Width>>level, 1),
			Height: max(tex.Height>>level, 1),
		}
		if perFace {
			for face := uint32(0); face < 6; face++ {
				buf, err := readPadded(r, imageSize)
				if err != nil {
					return nil, fmt.Errorf("KTX level %d face %d: %w", level, face, err)
				}
				l.Faces = append(l.Faces, buf)
			}
		} else {
			buf, err := readPadded(r, imageSize)
			if err != nil {
				return nil, fmt.Errorf("KTX level %d: %w", level, err)
			}
			l.Faces = [][]byte{buf}
		}
		tex.Levels = append(tex.Levels, l)
	}
	return tex, nil
}

// readPadded reads n bytes and skips the padding up to the next 4 byte
// boundary.
func readPadded(r *bytes.Reader, n uint32) ([]byte, error) {
	if uint64(n) > uint64(r.Len()) {
		return nil, fmt.Errorf("image size %d exceeds remaining %d bytes: %w", n, r.Len(), core.ErrInvalidAsset)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if pad := (4 - n%4) % 4; pad > 0 {
		if _, err := r.Seek(int64(min(int(pad), r.Len())), io.SeekCurrent); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func parseKTXKeyValues(kv []byte, order binary.ByteOrder, out map[string]string) error {
	for len(kv) >= 4 {
		size := order.Uint32(kv)
		kv = kv[4:]
		if uint64(size) > uint64(len(kv)) {
			return fmt.Errorf("KTX key/value entry overflows: %w", core.ErrInvalidAsset)
		}
		entry := kv[:size]
		if i := bytes.IndexByte(entry, 0); i >= 0 {
			out[string(entry[:i])] = string(bytes.TrimRight(entry[i+1:], "\x00"))
		}
		padded := size + (4-size%4)%4
		if uint64(padded) > uint64(len(kv)) {
			padded = uint32(len(kv))
		}
		kv = kv[padded:]
	}
	return nil
}
