package vulkan

import (
	vk "github.com/goki/vulkan"
)

// glFormats maps the OpenGL internal formats found in KTX 1.0 files to their
// Vulkan equivalents.
var glFormats = map[uint32]vk.Format{
	0x8058: vk.FormatR8g8b8a8Unorm,          // GL_RGBA8
	0x8C43: vk.FormatR8g8b8a8Srgb,           // GL_SRGB8_ALPHA8
	0x83F0: vk.FormatBc1RgbUnormBlock,       // GL_COMPRESSED_RGB_S3TC_DXT1_EXT
	0x83F1: vk.FormatBc1RgbaUnormBlock,      // GL_COMPRESSED_RGBA_S3TC_DXT1_EXT
	0x83F2: vk.FormatBc2UnormBlock,          // GL_COMPRESSED_RGBA_S3TC_DXT3_EXT
	0x83F3: vk.FormatBc3UnormBlock,          // GL_COMPRESSED_RGBA_S3TC_DXT5_EXT
	0x8C4F: vk.FormatBc3SrgbBlock,           // GL_COMPRESSED_SRGB_ALPHA_S3TC_DXT5_EXT
	0x8E8C: vk.FormatBc7UnormBlock,          // GL_COMPRESSED_RGBA_BPTC_UNORM
	0x8E8D: vk.FormatBc7SrgbBlock,           // GL_COMPRESSED_SRGB_ALPHA_BPTC_UNORM
	0x9274: vk.FormatEtc2R8g8b8UnormBlock,   // GL_COMPRESSED_RGB8_ETC2
	0x9278: vk.FormatEtc2R8g8b8a8UnormBlock, // GL_COMPRESSED_RGBA8_ETC2_EAC
	0x93B0: vk.FormatAstc4x4UnormBlock,      // GL_COMPRESSED_RGBA_ASTC_4x4_KHR
	0x93D0: vk.FormatAstc4x4SrgbBlock,       // GL_COMPRESSED_SRGB8_ALPHA8_ASTC_4x4_KHR
}

// FormatFromGL returns the Vulkan format for a GL internal format.
func FormatFromGL(internalFormat uint32) (vk.Format, bool) {
	f, ok := glFormats[internalFormat]
	return f, ok
}

// FormatSupportsSampling reports whether optimally tiled images of format can
// be sampled on the selected device.
func FormatSupportsSampling(context *VulkanContext, format vk.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(context.Device.PhysicalDevice, format, &properties)
	properties.Deref()
	flags := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit)
	return properties.OptimalTilingFeatures&flags == flags
}
