package loaders

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spaghettifunk/vkbase/engine/core"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// LoadSPIRV reads a compiled shader and returns its words.
func LoadSPIRV(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, err := ParseSPIRV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return code, nil
}

// ParseSPIRV converts little-endian SPIR-V bytes to words and checks the
// magic number.
func ParseSPIRV(data []byte) ([]uint32, error) {
	if len(data) < 20 || len(data)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V size %d is not a whole number of words with a header: %w", len(data), core.ErrInvalidAsset)
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if code[0] != SPIRVMagic {
		return nil, fmt.Errorf("bad SPIR-V magic %#08x: %w", code[0], core.ErrInvalidAsset)
	}
	return code, nil
}
