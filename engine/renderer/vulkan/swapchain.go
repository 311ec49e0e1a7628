package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbase/engine/core"
	vkmath "github.com/spaghettifunk/vkbase/engine/math"
	"github.com/spaghettifunk/vkbase/engine/renderer/frameloop"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	id uuid.UUID
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// SwapchainCreate builds a swapchain for the requested framebuffer size. The
// surface support is queried again so the extent and format follow the
// surface, and the chosen format is stored on the context for the render
// pass.
func SwapchainCreate(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	device := context.Device
	if err := DeviceQuerySwapchainSupport(device.PhysicalDevice, context.Surface, &device.SwapchainSupport); err != nil {
		return nil, err
	}
	support := &device.SwapchainSupport
	context.SurfaceFormat = chooseSurfaceFormat(support.Formats)

	swapchain := &VulkanSwapchain{
		ImageFormat: context.SurfaceFormat,
		PresentMode: choosePresentMode(support.PresentModes, vsync),
		Extent:      chooseExtent(support.Capabilities, width, height),
	}
	if swapchain.Extent.Width == 0 || swapchain.Extent.Height == 0 {
		return nil, fmt.Errorf("swapchain extent is %dx%d", swapchain.Extent.Width, swapchain.Extent.Height)
	}
	imageCount := chooseImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateSwapchainKHR", res)
	}
	swapchain.Handle = handle
	swapchain.id = context.track("swapchain", fmt.Sprintf("%dx%d", swapchain.Extent.Width, swapchain.Extent.Height))

	// Images
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		swapchain.Destroy(context)
		return nil, vkError("vkGetSwapchainImagesKHR", res)
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context)
		return nil, vkError("vkGetSwapchainImagesKHR", res)
	}

	// Views
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	for i := range swapchain.Images {
		view, err := imageViewCreate(context, swapchain.Images[i], swapchain.ImageFormat.Format,
			vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
		swapchain.Views[i] = view
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.",
		swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount, swapchain.PresentMode)
	return swapchain, nil
}

// Destroy releases the views and the swapchain. The images belong to the
// swapchain and go with it.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for i := range vs.Views {
		if vs.Views[i] != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
	context.release(vs.id)
	vs.id = uuid.Nil
	vs.ImageCount = 0
}

// AcquireNextImageIndex asks for the next presentable image. Out-of-date and
// suboptimal swapchains are reported through the status, not as errors.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, frameloop.Status, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)
	status, ok := statusFromResult(result)
	if !ok {
		return 0, status, vkError("vkAcquireNextImageKHR", result)
	}
	return imageIndex, status, nil
}

// Present returns the image to the swapchain once renderCompleteSemaphore
// signals.
func (vs *VulkanSwapchain) Present(presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, imageIndex uint32) (frameloop.Status, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	result := vk.QueuePresent(presentQueue, &presentInfo)
	status, ok := statusFromResult(result)
	if !ok {
		return status, vkError("vkQueuePresentKHR", result)
	}
	return status, nil
}

// statusFromResult maps acquire and present results. ok is false for
// results that are fatal.
func statusFromResult(result vk.Result) (frameloop.Status, bool) {
	switch result {
	case vk.Success:
		return frameloop.StatusSuccess, true
	case vk.Suboptimal:
		return frameloop.StatusSuboptimal, true
	case vk.ErrorOutOfDate:
		return frameloop.StatusOutOfDate, true
	}
	return frameloop.StatusSuccess, false
}

// chooseSurfaceFormat prefers 8-bit BGRA sRGB and falls back to the first
// format the surface offers.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox. Without vsync immediate wins when
// available. FIFO is always supported.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	has := func(want vk.PresentMode) bool {
		for _, mode := range modes {
			if mode == want {
				return true
			}
		}
		return false
	}
	if !vsync && has(vk.PresentModeImmediate) {
		return vk.PresentModeImmediate
	}
	if has(vk.PresentModeMailbox) {
		return vk.PresentModeMailbox
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent when it is defined,
// otherwise the framebuffer size clamped to what the surface allows.
func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  vkmath.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: vkmath.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum. A maximum of
// zero means there is no limit.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	return imageCount
}
