package vulkan

import (
	"math"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkbase/engine/config"
	vkmath "github.com/spaghettifunk/vkbase/engine/math"
	"github.com/spaghettifunk/vkbase/engine/renderer/frameloop"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, srgb, chooseSurfaceFormat([]vk.SurfaceFormat{other, unorm, srgb}))
	assert.Equal(t, unorm, chooseSurfaceFormat([]vk.SurfaceFormat{other, unorm}))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}))
	assert.Equal(t, srgb, chooseSurfaceFormat(nil))
}

func TestBackendStagesRebuildRenderpassWithSwapchain(t *testing.T) {
	stages := New(nil, config.RendererConfig{}, "test", nil).Stages()

	index := map[string]int{}
	for i, st := range stages {
		index[st.Name] = i
	}
	require.Contains(t, index, "swapchain")
	require.Contains(t, index, "renderpass")
	require.Contains(t, index, "framebuffers")

	assert.Equal(t, frameloop.ScopeSwapchain, stages[index["renderpass"]].Scope)
	assert.Less(t, index["swapchain"], index["renderpass"], "the render pass uses the format the swapchain chose")
	assert.Less(t, index["renderpass"], index["framebuffers"])
	for _, name := range []string{"instance", "surface", "device", "sync"} {
		assert.Equal(t, frameloop.ScopeDevice, stages[index[name]].Scope, name)
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeImmediate}

	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(all, true))
	assert.Equal(t, vk.PresentModeImmediate, choosePresentMode(all, false))
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, true))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil, false))
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(caps, 1280, 720))

	caps.CurrentExtent = vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, chooseExtent(caps, 1280, 720))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 1}, chooseExtent(caps, 10000, 0))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}))
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, uint32(2), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
}

func TestStatusFromResult(t *testing.T) {
	tests := []struct {
		result vk.Result
		status frameloop.Status
		ok     bool
	}{
		{vk.Success, frameloop.StatusSuccess, true},
		{vk.Suboptimal, frameloop.StatusSuboptimal, true},
		{vk.ErrorOutOfDate, frameloop.StatusOutOfDate, true},
		{vk.ErrorDeviceLost, frameloop.StatusSuccess, false},
		{vk.ErrorSurfaceLost, frameloop.StatusSuccess, false},
	}
	for _, tt := range tests {
		status, ok := statusFromResult(tt.result)
		assert.Equal(t, tt.status, status, VulkanResultString(tt.result, false))
		assert.Equal(t, tt.ok, ok, VulkanResultString(tt.result, false))
	}
}

func TestSelectMemoryType(t *testing.T) {
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	coherent := vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	types := []vk.MemoryType{
		{PropertyFlags: deviceLocal},
		{PropertyFlags: hostVisible},
		{PropertyFlags: hostVisible | coherent},
	}

	idx, ok := selectMemoryType(types, 0b111, hostVisible)
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx, "first compatible type wins")

	idx, ok = selectMemoryType(types, 0b100, hostVisible)
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx, "filter excludes type 1")

	idx, ok = selectMemoryType(types, 0b111, hostVisible|coherent)
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx)

	_, ok = selectMemoryType(types, 0b011, hostVisible|coherent)
	assert.False(t, ok)
	_, ok = selectMemoryType(nil, math.MaxUint32, deviceLocal)
	assert.False(t, ok)
}

func TestTransitionFor(t *testing.T) {
	tr, err := transitionFor(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.AccessFlags(0), tr.srcAccess)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), tr.dstAccess)

	tr, err = transitionFor(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), tr.dstStage)

	tr, err = transitionFor(vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit), tr.dstStage)

	_, err = transitionFor(vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutUndefined)
	assert.Error(t, err)
}

func TestMipSize(t *testing.T) {
	assert.Equal(t, uint32(256), mipSize(256, 0))
	assert.Equal(t, uint32(32), mipSize(256, 3))
	assert.Equal(t, uint32(1), mipSize(256, 8))
	assert.Equal(t, uint32(1), mipSize(256, 12))
	assert.Equal(t, uint32(1), mipSize(3, 2))
}

func TestNameHelpers(t *testing.T) {
	assert.Equal(t, []string{"b"}, missingNames([]string{"a", "b"}, []string{"a", "c"}))
	assert.Empty(t, missingNames([]string{"a"}, []string{"a"}))
	assert.Empty(t, missingNames(nil, nil))

	list := appendUnique([]string{"VK_KHR_surface"}, "VK_KHR_surface", "VK_KHR_xcb_surface", "VK_KHR_xcb_surface")
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, list)

	assert.Equal(t, "VK_LAYER_KHRONOS_validation", cString([]byte("VK_LAYER_KHRONOS_validation\x00\x00junk")))
	assert.Equal(t, "abc", cString([]byte("abc")))
	assert.Equal(t, "", cString([]byte{0, 'x'}))
}

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))
	assert.Equal(t, "\x00", VulkanSafeString(""))

	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0], "input is not modified")
}

func TestResultStrings(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", VulkanResultString(vk.ErrorDeviceLost, false))
	assert.Contains(t, VulkanResultString(vk.ErrorDeviceLost, true), "device has been lost")
	assert.Equal(t, "VK_RESULT_-999", VulkanResultString(vk.Result(-999), false))

	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorOutOfDate))
	assert.False(t, VulkanResultIsSuccess(vk.Result(-999)))
}

func TestPickQueueFamilies(t *testing.T) {
	shared := pickQueueFamilies([]bool{false, true, true}, []bool{true, false, true})
	assert.Equal(t, queueFamilyInfo{Graphics: 2, Present: 2}, shared, "a family doing both wins")

	split := pickQueueFamilies([]bool{true, false}, []bool{false, true})
	assert.Equal(t, queueFamilyInfo{Graphics: 0, Present: 1}, split)

	none := pickQueueFamilies([]bool{false}, []bool{false})
	assert.Equal(t, queueFamilyInfo{Graphics: -1, Present: -1}, none)
}

func TestDeviceScore(t *testing.T) {
	assert.Greater(t, deviceScore(vk.PhysicalDeviceTypeDiscreteGpu, true), deviceScore(vk.PhysicalDeviceTypeIntegratedGpu, true))
	assert.Equal(t, deviceScore(vk.PhysicalDeviceTypeDiscreteGpu, false), deviceScore(vk.PhysicalDeviceTypeIntegratedGpu, false))
	assert.Greater(t, deviceScore(vk.PhysicalDeviceTypeIntegratedGpu, true), deviceScore(vk.PhysicalDeviceTypeVirtualGpu, true))
	assert.Equal(t, 0, deviceScore(vk.PhysicalDeviceTypeCpu, true))
}

func TestAsBytes(t *testing.T) {
	assert.Nil(t, AsBytes[uint32](nil))

	words := []uint32{0x04030201, 0x08070605}
	b := AsBytes(words)
	require.Len(t, b, 8)
	// little endian hosts only
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b)

	m := vkmath.NewMat4Identity()
	assert.Len(t, ValueBytes(&m), int(unsafe.Sizeof(m)))
}

func TestVertexLayouts(t *testing.T) {
	l3 := Vertex3DLayout()
	assert.Equal(t, uint32(48), l3.Stride)
	require.Len(t, l3.Attributes, 4)
	for i, want := range []uint32{0, 12, 24, 32} {
		assert.Equal(t, uint32(i), l3.Attributes[i].Location)
		assert.Equal(t, want, l3.Attributes[i].Offset)
	}

	l2 := Vertex2DLayout()
	assert.Equal(t, uint32(32), l2.Stride)
	require.Len(t, l2.Attributes, 3)
	assert.Equal(t, uint32(16), l2.Attributes[2].Offset)
}

func TestValidatePushConstants(t *testing.T) {
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	assert.NoError(t, validatePushConstants(nil))
	assert.NoError(t, validatePushConstants([]PushConstantRange{{Stages: stages, Offset: 0, Size: 64}, {Stages: stages, Offset: 64, Size: 64}}))
	assert.Error(t, validatePushConstants([]PushConstantRange{{Stages: stages, Offset: 0, Size: 6}}))
	assert.Error(t, validatePushConstants([]PushConstantRange{{Stages: stages, Offset: 2, Size: 4}}))
	assert.Error(t, validatePushConstants([]PushConstantRange{{Stages: stages, Offset: 64, Size: 128}}))
}

func TestSpecializationEntries(t *testing.T) {
	entries, data := specializationEntries([]SpecializationConstant{{ID: 0, Value: 2}, {ID: 5, Value: 7}})
	require.Len(t, entries, 2)
	assert.Equal(t, []uint32{2, 7}, data)
	assert.Equal(t, uint32(5), entries[1].ConstantID)
	assert.Equal(t, uint32(4), entries[1].Offset)
}

func TestPoolSizesFor(t *testing.T) {
	bindings := []DescriptorBinding{
		{Binding: 0, Type: vk.DescriptorTypeUniformBuffer},
		{Binding: 1, Type: vk.DescriptorTypeCombinedImageSampler, Count: 2},
		{Binding: 2, Type: vk.DescriptorTypeUniformBuffer},
	}
	sizes := poolSizesFor(bindings, 3)
	require.Len(t, sizes, 2)
	byType := map[vk.DescriptorType]uint32{}
	for _, s := range sizes {
		byType[s.Type] = s.DescriptorCount
	}
	assert.Equal(t, uint32(6), byType[vk.DescriptorTypeUniformBuffer])
	assert.Equal(t, uint32(6), byType[vk.DescriptorTypeCombinedImageSampler])
}

func TestCullModeFlags(t *testing.T) {
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), CullModeBack.flags())
	assert.Equal(t, vk.CullModeFlags(vk.CullModeNone), CullModeNone.flags())
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontAndBack), CullModeFrontAndBack.flags())
}

func TestFormatFromGL(t *testing.T) {
	f, ok := FormatFromGL(0x8C43)
	assert.True(t, ok)
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, f)

	f, ok = FormatFromGL(0x83F3)
	assert.True(t, ok)
	assert.Equal(t, vk.FormatBc3UnormBlock, f)

	_, ok = FormatFromGL(0x1908)
	assert.False(t, ok, "unsized GL_RGBA has no direct equivalent")
}
