package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbase/engine/math"
)

// VertexLayout describes one interleaved vertex buffer bound at binding 0.
type VertexLayout struct {
	Stride     uint32
	Attributes []vk.VertexInputAttributeDescription
}

func attribute(location uint32, format vk.Format, offset uintptr) vk.VertexInputAttributeDescription {
	return vk.VertexInputAttributeDescription{
		Binding:  0,
		Location: location,
		Format:   format,
		Offset:   uint32(offset),
	}
}

// Vertex3DLayout matches math.Vertex3D: position, normal, texcoord, colour at
// locations 0 to 3.
func Vertex3DLayout() VertexLayout {
	var v math.Vertex3D
	return VertexLayout{
		Stride: uint32(unsafe.Sizeof(v)),
		Attributes: []vk.VertexInputAttributeDescription{
			attribute(0, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(v.Position)),
			attribute(1, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(v.Normal)),
			attribute(2, vk.FormatR32g32Sfloat, unsafe.Offsetof(v.Texcoord)),
			attribute(3, vk.FormatR32g32b32a32Sfloat, unsafe.Offsetof(v.Colour)),
		},
	}
}

// Vertex2DLayout matches math.Vertex2D: position, texcoord, colour at
// locations 0 to 2.
func Vertex2DLayout() VertexLayout {
	var v math.Vertex2D
	return VertexLayout{
		Stride: uint32(unsafe.Sizeof(v)),
		Attributes: []vk.VertexInputAttributeDescription{
			attribute(0, vk.FormatR32g32Sfloat, unsafe.Offsetof(v.Position)),
			attribute(1, vk.FormatR32g32Sfloat, unsafe.Offsetof(v.Texcoord)),
			attribute(2, vk.FormatR32g32b32a32Sfloat, unsafe.Offsetof(v.Colour)),
		},
	}
}
