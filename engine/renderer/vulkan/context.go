package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbase/engine/core"
)

// VulkanContext holds the objects shared by every wrapper: the instance,
// the surface and the device. Swapchain-dependent objects live in the
// backend.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	// SurfaceFormat is chosen again on every swapchain creation. The render
	// pass is rebuilt after it.
	SurfaceFormat vk.SurfaceFormat

	// Tracker receives every created object. May be nil.
	Tracker *core.Tracker
}

func (vc *VulkanContext) track(kind, name string) uuid.UUID {
	if vc.Tracker == nil {
		return uuid.Nil
	}
	return vc.Tracker.Track(kind, name)
}

func (vc *VulkanContext) release(id uuid.UUID) {
	if vc.Tracker == nil || id == uuid.Nil {
		return
	}
	vc.Tracker.Release(id)
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has all of the requested property flags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
	}

	index, ok := selectMemoryType(memoryProperties.MemoryTypes[:memoryProperties.MemoryTypeCount], typeFilter, propertyFlags)
	if !ok {
		core.LogWarn("Unable to find suitable memory type!")
		return 0, fmt.Errorf("filter %#x flags %#x: %w", typeFilter, uint32(propertyFlags), core.ErrNoMemoryType)
	}
	return index, nil
}

func selectMemoryType(types []vk.MemoryType, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, bool) {
	for i := range types {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<uint(i)) != 0 && types[i].PropertyFlags&propertyFlags == propertyFlags {
			return uint32(i), true
		}
	}
	return 0, false
}
