package vulkan

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbase/engine/config"
	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/renderer/frameloop"
)

// VulkanBackend owns the objects every example needs: instance, surface,
// device, per-slot sync objects, the main render pass and the swapchain with
// its depth buffer, framebuffers and one command buffer per image. Creation
// happens through Stages, the frame loop talks to it as its Driver.
type VulkanBackend struct {
	ws      WindowSystem
	cfg     config.RendererConfig
	appName string
	context *VulkanContext

	frames         []*FrameSync
	renderpass     *VulkanRenderpass
	swapchain      *VulkanSwapchain
	depth          *VulkanImage
	framebuffers   []*VulkanFramebuffer
	commandBuffers []*VulkanCommandBuffer
}

var _ frameloop.Driver = (*VulkanBackend)(nil)

func New(ws WindowSystem, cfg config.RendererConfig, appName string, tracker *core.Tracker) *VulkanBackend {
	return &VulkanBackend{
		ws:      ws,
		cfg:     cfg,
		appName: appName,
		context: &VulkanContext{
			Allocator: nil,
			Tracker:   tracker,
		},
	}
}

// Stages returns the backend's setup stages in creation order. Example
// stages are appended after them. The render pass depends on the surface
// format, so it is rebuilt with the swapchain.
func (vb *VulkanBackend) Stages() []frameloop.Stage {
	return []frameloop.Stage{
		{
			Name:  "instance",
			Scope: frameloop.ScopeDevice,
			Create: func(frameloop.Extent) error {
				return InstanceCreate(vb.context, vb.ws, vb.appName, vb.cfg.Validation)
			},
			Destroy: func() { InstanceDestroy(vb.context) },
		},
		{
			Name:    "surface",
			Scope:   frameloop.ScopeDevice,
			Create:  func(frameloop.Extent) error { return SurfaceCreate(vb.context, vb.ws) },
			Destroy: func() { SurfaceDestroy(vb.context) },
		},
		{
			Name:    "device",
			Scope:   frameloop.ScopeDevice,
			Create:  vb.createDevice,
			Destroy: func() { DeviceDestroy(vb.context) },
		},
		{
			Name:    "sync",
			Scope:   frameloop.ScopeDevice,
			Create:  vb.createSync,
			Destroy: vb.destroySync,
		},
		{
			Name:    "swapchain",
			Scope:   frameloop.ScopeSwapchain,
			Create:  vb.createSwapchain,
			Destroy: vb.destroySwapchain,
		},
		{
			Name:    "renderpass",
			Scope:   frameloop.ScopeSwapchain,
			Create:  vb.createRenderpass,
			Destroy: vb.destroyRenderpass,
		},
		{
			Name:    "depth",
			Scope:   frameloop.ScopeSwapchain,
			Create:  vb.createDepth,
			Destroy: vb.destroyDepth,
		},
		{
			Name:    "framebuffers",
			Scope:   frameloop.ScopeSwapchain,
			Create:  vb.createFramebuffers,
			Destroy: vb.destroyFramebuffers,
		},
		{
			Name:    "command buffers",
			Scope:   frameloop.ScopeSwapchain,
			Create:  vb.createCommandBuffers,
			Destroy: vb.destroyCommandBuffers,
		},
	}
}

func (vb *VulkanBackend) createDevice(frameloop.Extent) error {
	return DeviceCreate(vb.context)
}

func (vb *VulkanBackend) createSync(frameloop.Extent) error {
	vb.frames = make([]*FrameSync, 0, vb.cfg.FramesInFlight)
	for i := 0; i < vb.cfg.FramesInFlight; i++ {
		fs, err := NewFrameSync(vb.context, i)
		if err != nil {
			vb.destroySync()
			return err
		}
		vb.frames = append(vb.frames, fs)
	}
	return nil
}

func (vb *VulkanBackend) destroySync() {
	for _, fs := range vb.frames {
		fs.Destroy(vb.context)
	}
	vb.frames = nil
}

func (vb *VulkanBackend) createRenderpass(frameloop.Extent) error {
	rp, err := RenderpassCreate(vb.context, vb.context.SurfaceFormat.Format, vb.context.Device.DepthFormat, vb.cfg.ClearColor)
	if err != nil {
		return err
	}
	vb.renderpass = rp
	return nil
}

func (vb *VulkanBackend) destroyRenderpass() {
	if vb.renderpass != nil {
		vb.renderpass.Destroy(vb.context)
		vb.renderpass = nil
	}
}

func (vb *VulkanBackend) createSwapchain(extent frameloop.Extent) error {
	sc, err := SwapchainCreate(vb.context, extent.Width, extent.Height, vb.cfg.VSync)
	if err != nil {
		return err
	}
	vb.swapchain = sc
	return nil
}

func (vb *VulkanBackend) destroySwapchain() {
	if vb.swapchain != nil {
		vb.swapchain.Destroy(vb.context)
		vb.swapchain = nil
	}
}

func (vb *VulkanBackend) createDepth(frameloop.Extent) error {
	depth, err := DepthImageCreate(vb.context, vb.swapchain.Extent.Width, vb.swapchain.Extent.Height)
	if err != nil {
		return err
	}
	vb.depth = depth
	return nil
}

func (vb *VulkanBackend) destroyDepth() {
	if vb.depth != nil {
		vb.depth.Destroy(vb.context)
		vb.depth = nil
	}
}

func (vb *VulkanBackend) createFramebuffers(frameloop.Extent) error {
	extent := vb.swapchain.Extent
	vb.framebuffers = make([]*VulkanFramebuffer, 0, len(vb.swapchain.Views))
	for _, view := range vb.swapchain.Views {
		fb, err := FramebufferCreate(vb.context, vb.renderpass, extent.Width, extent.Height,
			[]vk.ImageView{view, vb.depth.View})
		if err != nil {
			vb.destroyFramebuffers()
			return err
		}
		vb.framebuffers = append(vb.framebuffers, fb)
	}
	return nil
}

func (vb *VulkanBackend) destroyFramebuffers() {
	for _, fb := range vb.framebuffers {
		fb.Destroy(vb.context)
	}
	vb.framebuffers = nil
}

// createCommandBuffers allocates one buffer per image and records a bare
// clear into each, so that an image is presentable before any example
// recorded into it.
func (vb *VulkanBackend) createCommandBuffers(frameloop.Extent) error {
	pool := vb.context.Device.GraphicsCommandPool
	vb.commandBuffers = make([]*VulkanCommandBuffer, 0, len(vb.framebuffers))
	for range vb.framebuffers {
		cb, err := NewVulkanCommandBuffer(vb.context, pool, true)
		if err != nil {
			vb.destroyCommandBuffers()
			return err
		}
		vb.commandBuffers = append(vb.commandBuffers, cb)
	}
	for i := range vb.commandBuffers {
		if _, err := vb.BeginRecording(uint32(i)); err != nil {
			vb.destroyCommandBuffers()
			return err
		}
		if err := vb.EndRecording(uint32(i)); err != nil {
			vb.destroyCommandBuffers()
			return err
		}
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vb *VulkanBackend) destroyCommandBuffers() {
	for _, cb := range vb.commandBuffers {
		cb.Free(vb.context, vb.context.Device.GraphicsCommandPool)
	}
	vb.commandBuffers = nil
}

func (vb *VulkanBackend) ImageCount() int {
	if vb.swapchain == nil {
		return 0
	}
	return int(vb.swapchain.ImageCount)
}

func (vb *VulkanBackend) frame(slot int) (*FrameSync, error) {
	if slot < 0 || slot >= len(vb.frames) {
		return nil, fmt.Errorf("frame slot %d out of range (%d slots)", slot, len(vb.frames))
	}
	return vb.frames[slot], nil
}

func (vb *VulkanBackend) commandBuffer(image uint32) (*VulkanCommandBuffer, error) {
	if int(image) >= len(vb.commandBuffers) {
		return nil, fmt.Errorf("image %d has no command buffer (%d images)", image, len(vb.commandBuffers))
	}
	return vb.commandBuffers[image], nil
}

func (vb *VulkanBackend) WaitForFrame(slot int) error {
	fs, err := vb.frame(slot)
	if err != nil {
		return err
	}
	return fs.InFlight.Wait(vb.context, math.MaxUint64)
}

func (vb *VulkanBackend) ResetFrame(slot int) error {
	fs, err := vb.frame(slot)
	if err != nil {
		return err
	}
	return fs.InFlight.Reset(vb.context)
}

func (vb *VulkanBackend) AcquireNextImage(slot int) (uint32, frameloop.Status, error) {
	fs, err := vb.frame(slot)
	if err != nil {
		return 0, frameloop.StatusSuccess, err
	}
	if vb.swapchain == nil {
		return 0, frameloop.StatusSuccess, errors.New("no swapchain")
	}
	return vb.swapchain.AcquireNextImageIndex(vb.context, math.MaxUint64, fs.ImageAvailable.Handle)
}

// Submit queues the command buffer of image. It waits for the slot's image
// available semaphore at colour output, signals the render finished
// semaphore and the slot's fence.
func (vb *VulkanBackend) Submit(slot int, image uint32) error {
	fs, err := vb.frame(slot)
	if err != nil {
		return err
	}
	cb, err := vb.commandBuffer(image)
	if err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{fs.ImageAvailable.Handle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{fs.RenderFinished.Handle},
	}
	if res := vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fs.InFlight.Handle); res != vk.Success {
		return vkError("vkQueueSubmit", res)
	}
	fs.InFlight.IsSignaled = false
	cb.UpdateSubmitted()
	return nil
}

func (vb *VulkanBackend) Present(slot int, image uint32) (frameloop.Status, error) {
	fs, err := vb.frame(slot)
	if err != nil {
		return frameloop.StatusSuccess, err
	}
	return vb.swapchain.Present(vb.context.Device.PresentQueue, fs.RenderFinished.Handle, image)
}

func (vb *VulkanBackend) WaitIdle() error {
	return DeviceWaitIdle(vb.context)
}

// BeginRecording resets the command buffer of image, sets a full-extent
// viewport and scissor and begins the main render pass on the image's
// framebuffer.
func (vb *VulkanBackend) BeginRecording(image uint32) (*VulkanCommandBuffer, error) {
	cb, err := vb.commandBuffer(image)
	if err != nil {
		return nil, err
	}
	if err := cb.Reset(); err != nil {
		return nil, err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return nil, err
	}

	extent := vb.swapchain.Extent
	SetViewport(cb, vk.Rect2D{Extent: extent})
	vb.renderpass.Begin(cb, vb.framebuffers[image].Handle, extent)
	return cb, nil
}

// EndRecording closes the render pass and the command buffer of image.
func (vb *VulkanBackend) EndRecording(image uint32) error {
	cb, err := vb.commandBuffer(image)
	if err != nil {
		return err
	}
	vb.renderpass.End(cb)
	return cb.End()
}

// SetViewport records a viewport and a scissor covering area.
func SetViewport(cb *VulkanCommandBuffer, area vk.Rect2D) {
	viewport := vk.Viewport{
		X:        float32(area.Offset.X),
		Y:        float32(area.Offset.Y),
		Width:    float32(area.Extent.Width),
		Height:   float32(area.Extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{area})
}

func (vb *VulkanBackend) Context() *VulkanContext { return vb.context }

func (vb *VulkanBackend) Renderpass() *VulkanRenderpass { return vb.renderpass }

// Extent returns the size of the current swapchain images.
func (vb *VulkanBackend) Extent() vk.Extent2D {
	if vb.swapchain == nil {
		return vk.Extent2D{}
	}
	return vb.swapchain.Extent
}

func (vb *VulkanBackend) Swapchain() *VulkanSwapchain { return vb.swapchain }

func (vb *VulkanBackend) FramesInFlight() int { return vb.cfg.FramesInFlight }
