package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbase/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool

	id uuid.UUID
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateFence", res)
	}
	fence.Handle = handle
	fence.id = context.track("fence", "")
	return fence, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
		context.release(vf.id)
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence signals. A timeout is an error: the loop waits
// with an unbounded timeout, so hitting it means the GPU is stuck.
func (vf *VulkanFence) Wait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	}
	return vkError("vkWaitForFences", result)
}

// Reset always resets the handle: after a device wait idle the fence may be
// signaled without IsSignaled knowing it.
func (vf *VulkanFence) Reset(context *VulkanContext) error {
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return vkError("vkResetFences", res)
	}
	vf.IsSignaled = false
	return nil
}

type VulkanSemaphore struct {
	Handle vk.Semaphore

	id uuid.UUID
}

func NewSemaphore(context *VulkanContext, name string) (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError(fmt.Sprintf("vkCreateSemaphore(%s)", name), res)
	}
	return &VulkanSemaphore{Handle: handle, id: context.track("semaphore", name)}, nil
}

func (vs *VulkanSemaphore) Destroy(context *VulkanContext) {
	if vs.Handle != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSemaphore
		context.release(vs.id)
	}
}

// FrameSync is the synchronization of one frame slot.
type FrameSync struct {
	ImageAvailable *VulkanSemaphore
	RenderFinished *VulkanSemaphore
	InFlight       *VulkanFence
}

// NewFrameSync creates the objects of one slot. The fence starts signaled so
// the first wait on the slot returns at once.
func NewFrameSync(context *VulkanContext, slot int) (*FrameSync, error) {
	fs := &FrameSync{}
	var err error
	if fs.ImageAvailable, err = NewSemaphore(context, fmt.Sprintf("image available %d", slot)); err != nil {
		return nil, err
	}
	if fs.RenderFinished, err = NewSemaphore(context, fmt.Sprintf("render finished %d", slot)); err != nil {
		fs.Destroy(context)
		return nil, err
	}
	if fs.InFlight, err = NewFence(context, true); err != nil {
		fs.Destroy(context)
		return nil, err
	}
	return fs, nil
}

func (fs *FrameSync) Destroy(context *VulkanContext) {
	if fs.ImageAvailable != nil {
		fs.ImageAvailable.Destroy(context)
	}
	if fs.RenderFinished != nil {
		fs.RenderFinished.Destroy(context)
	}
	if fs.InFlight != nil {
		fs.InFlight.Destroy(context)
	}
}
