package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	vkmath "github.com/spaghettifunk/vkbase/engine/math"
)

type VulkanImage struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    vk.Format
	Aspect    vk.ImageAspectFlags

	id uuid.UUID
}

// ImageConfig describes a 2D image with its own memory.
type ImageConfig struct {
	Name        string
	Width       uint32
	Height      uint32
	MipLevels   uint32
	Format      vk.Format
	Tiling      vk.ImageTiling
	Usage       vk.ImageUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
	// CreateView also creates a view covering every mip level.
	CreateView bool
	Aspect     vk.ImageAspectFlags
}

func ImageCreate(context *VulkanContext, cfg ImageConfig) (*VulkanImage, error) {
	if cfg.MipLevels == 0 {
		cfg.MipLevels = 1
	}
	device := context.Device.LogicalDevice
	image := &VulkanImage{
		Width:     cfg.Width,
		Height:    cfg.Height,
		MipLevels: cfg.MipLevels,
		Format:    cfg.Format,
		Aspect:    cfg.Aspect,
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  cfg.Width,
			Height: cfg.Height,
			Depth:  1,
		},
		MipLevels:     cfg.MipLevels,
		ArrayLayers:   1,
		Format:        cfg.Format,
		Tiling:        cfg.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         cfg.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	var handle vk.Image
	if res := vk.CreateImage(device, &imageInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateImage", res)
	}
	image.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryType, err := context.FindMemoryIndex(requirements.MemoryTypeBits, cfg.MemoryFlags)
	if err != nil {
		vk.DestroyImage(device, handle, context.Allocator)
		return nil, fmt.Errorf("image %q: %w", cfg.Name, err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocInfo, context.Allocator, &memory); res != vk.Success {
		vk.DestroyImage(device, handle, context.Allocator)
		return nil, vkError("vkAllocateMemory", res)
	}
	image.Memory = memory

	if res := vk.BindImageMemory(device, handle, memory, 0); res != vk.Success {
		image.Destroy(context)
		return nil, vkError("vkBindImageMemory", res)
	}

	if cfg.CreateView {
		view, err := imageViewCreate(context, handle, cfg.Format, cfg.Aspect, cfg.MipLevels)
		if err != nil {
			image.Destroy(context)
			return nil, err
		}
		image.View = view
	}
	image.id = context.track("image", cfg.Name)
	return image, nil
}

func imageViewCreate(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		return vk.NullImageView, vkError("vkCreateImageView", res)
	}
	return view, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(device, vi.View, context.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, vi.Memory, context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(device, vi.Handle, context.Allocator)
		vi.Handle = vk.NullImage
	}
	context.release(vi.id)
	vi.id = uuid.Nil
}

type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// transitionFor returns the access masks and stages of the layout changes
// the wrappers perform.
func transitionFor(oldLayout, newLayout vk.ImageLayout) (layoutTransition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return layoutTransition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutTransferSrcOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessTransferReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferSrcOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferReadBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutDepthStencilAttachmentOptimal:
		return layoutTransition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		}, nil
	}
	return layoutTransition{}, fmt.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
}

func (vi *VulkanImage) barrier(cb *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout, baseMip, levels uint32) error {
	t, err := transitionFor(oldLayout, newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SrcAccessMask:       t.srcAccess,
		DstAccessMask:       t.dstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vi.Aspect,
			BaseMipLevel:   baseMip,
			LevelCount:     levels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(cb.Handle, t.srcStage, t.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// TransitionLayout records a barrier moving every mip level to newLayout.
func (vi *VulkanImage) TransitionLayout(cb *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	return vi.barrier(cb, oldLayout, newLayout, 0, vi.MipLevels)
}

// CopyFromBuffer records a copy of tightly packed pixels into mip level.
func (vi *VulkanImage) CopyFromBuffer(cb *VulkanCommandBuffer, buffer *VulkanBuffer, offset uint64, level uint32) {
	region := vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vi.Aspect,
			MipLevel:       level,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  mipSize(vi.Width, level),
			Height: mipSize(vi.Height, level),
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cb.Handle, buffer.Handle, vi.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// GenerateMipmaps fills levels 1..n by blitting each level into the next.
// Level 0 must be in TRANSFER_DST layout; every level ends up in
// SHADER_READ_ONLY.
func (vi *VulkanImage) GenerateMipmaps(context *VulkanContext, cb *VulkanCommandBuffer) error {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(context.Device.PhysicalDevice, vi.Format, &props)
	props.Deref()
	if props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) == 0 {
		return fmt.Errorf("format %d does not support linear blitting", vi.Format)
	}

	width, height := int32(vi.Width), int32(vi.Height)
	for level := uint32(1); level < vi.MipLevels; level++ {
		if err := vi.barrier(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, level-1, 1); err != nil {
			return err
		}
		nextWidth, nextHeight := max(width/2, 1), max(height/2, 1)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vi.Aspect,
				MipLevel:       level - 1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: width, Y: height, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vi.Aspect,
				MipLevel:       level,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: nextWidth, Y: nextHeight, Z: 1}},
		}
		vk.CmdBlitImage(cb.Handle,
			vi.Handle, vk.ImageLayoutTransferSrcOptimal,
			vi.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)
		if err := vi.barrier(cb, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, level-1, 1); err != nil {
			return err
		}
		width, height = nextWidth, nextHeight
	}
	// the last level was only ever written to
	return vi.barrier(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, vi.MipLevels-1, 1)
}

func mipSize(size, level uint32) uint32 {
	return max(size>>level, 1)
}

// TextureCreate uploads RGBA pixels into a sampled image. With generateMips
// the full chain is produced on the GPU.
func TextureCreate(context *VulkanContext, name string, width, height uint32, format vk.Format, pixels []byte, generateMips bool) (*VulkanImage, error) {
	levels := uint32(1)
	if generateMips {
		levels = vkmath.MipLevels(width, height)
	}
	return textureUpload(context, name, width, height, format, [][]byte{pixels}, levels)
}

// TextureCreateWithLevels uploads precomputed mip levels, for example from a
// KTX container. levels[0] is the full size image.
func TextureCreateWithLevels(context *VulkanContext, name string, width, height uint32, format vk.Format, levels [][]byte) (*VulkanImage, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("texture %q has no levels", name)
	}
	return textureUpload(context, name, width, height, format, levels, uint32(len(levels)))
}

func textureUpload(context *VulkanContext, name string, width, height uint32, format vk.Format, data [][]byte, mipLevelCount uint32) (*VulkanImage, error) {
	var total uint64
	for _, level := range data {
		total += uint64(len(level))
	}
	staging, err := BufferCreate(context, name+" staging", total,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	offsets := make([]uint64, len(data))
	var offset uint64
	for i, level := range data {
		offsets[i] = offset
		if err := staging.LoadData(context, offset, level); err != nil {
			return nil, err
		}
		offset += uint64(len(level))
	}

	generate := len(data) == 1 && mipLevelCount > 1
	usage := vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit)
	if generate {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	image, err := ImageCreate(context, ImageConfig{
		Name:        name,
		Width:       width,
		Height:      height,
		MipLevels:   mipLevelCount,
		Format:      format,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       usage,
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		CreateView:  true,
		Aspect:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	pool := context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	record := func() error {
		if err := image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		for i := range data {
			image.CopyFromBuffer(cb, staging, offsets[i], uint32(i))
		}
		if generate {
			return image.GenerateMipmaps(context, cb)
		}
		return image.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	}
	if err := record(); err != nil {
		cb.Free(context, pool)
		image.Destroy(context)
		return nil, err
	}
	if err := cb.EndSingleUse(context, pool, context.Device.GraphicsQueue); err != nil {
		image.Destroy(context)
		return nil, err
	}
	return image, nil
}

// DepthImageCreate creates the depth attachment for a swapchain extent.
func DepthImageCreate(context *VulkanContext, width, height uint32) (*VulkanImage, error) {
	return ImageCreate(context, ImageConfig{
		Name:        "depth",
		Width:       width,
		Height:      height,
		Format:      context.Device.DepthFormat,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		CreateView:  true,
		Aspect:      vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
}

type VulkanSampler struct {
	Handle vk.Sampler

	id uuid.UUID
}

// SamplerCreate creates a linear, repeating sampler covering mipLevels
// levels, anisotropic when the device allows it.
func SamplerCreate(context *VulkanContext, name string, mipLevels uint32) (*VulkanSampler, error) {
	limits := context.Device.Properties.Limits
	limits.Deref()

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        context.Device.Features.SamplerAnisotropy,
		MaxAnisotropy:           limits.MaxSamplerAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MinLod:                  0,
		MaxLod:                  float32(mipLevels),
	}
	if samplerInfo.AnisotropyEnable == vk.False {
		samplerInfo.MaxAnisotropy = 1
	}

	var handle vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateSampler", res)
	}
	return &VulkanSampler{Handle: handle, id: context.track("sampler", name)}, nil
}

func (s *VulkanSampler) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullSampler
		context.release(s.id)
	}
}
