package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

// VulkanBuffer is a buffer with its own memory allocation. Host visible
// buffers are mapped on first use and stay mapped until Destroy.
type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	Size        uint64
	Usage       vk.BufferUsageFlags
	MemoryFlags vk.MemoryPropertyFlags

	mapped unsafe.Pointer
	id     uuid.UUID
}

func BufferCreate(context *VulkanContext, name string, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer %q: size must be greater than zero", name)
	}
	device := context.Device.LogicalDevice
	buffer := &VulkanBuffer{
		Size:        size,
		Usage:       usage,
		MemoryFlags: memoryFlags,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(device, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateBuffer", res)
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryType, err := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		vk.DestroyBuffer(device, handle, context.Allocator)
		return nil, fmt.Errorf("buffer %q: %w", name, err)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocInfo, context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(device, handle, context.Allocator)
		return nil, vkError("vkAllocateMemory", res)
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(device, handle, memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, vkError("vkBindBufferMemory", res)
	}
	buffer.id = context.track("buffer", name)
	return buffer, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	b.Unmap(context)
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	context.release(b.id)
	b.id = uuid.Nil
}

// Map maps the whole buffer. Repeated calls return the same pointer.
func (b *VulkanBuffer) Map(context *VulkanContext) (unsafe.Pointer, error) {
	if b.mapped != nil {
		return b.mapped, nil
	}
	if b.MemoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return nil, fmt.Errorf("buffer memory is not host visible")
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, vk.DeviceSize(vk.WholeSize), 0, &data); res != vk.Success {
		return nil, vkError("vkMapMemory", res)
	}
	b.mapped = data
	return data, nil
}

func (b *VulkanBuffer) Unmap(context *VulkanContext) {
	if b.mapped == nil {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	b.mapped = nil
}

// Flush makes host writes visible to the device. Coherent memory needs no
// flush.
func (b *VulkanBuffer) Flush(context *VulkanContext, offset, size uint64) error {
	if b.MemoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0 {
		return nil
	}
	memoryRange := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: b.Memory,
		Offset: vk.DeviceSize(offset),
		Size:   vk.DeviceSize(size),
	}
	if res := vk.FlushMappedMemoryRanges(context.Device.LogicalDevice, 1, []vk.MappedMemoryRange{memoryRange}); res != vk.Success {
		return vkError("vkFlushMappedMemoryRanges", res)
	}
	return nil
}

// LoadData copies data into the buffer at offset and flushes it.
func (b *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("load of %d bytes at %d overflows buffer of %d bytes", len(data), offset, b.Size)
	}
	ptr, err := b.Map(context)
	if err != nil {
		return err
	}
	vk.Memcopy(unsafe.Add(ptr, offset), data)
	return b.Flush(context, offset, uint64(len(data)))
}

// CopyTo records and runs a copy of size bytes into dst on the graphics
// queue, waiting for it to finish.
func (b *VulkanBuffer) CopyTo(context *VulkanContext, dst *VulkanBuffer, size uint64) error {
	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(cb.Handle, b.Handle, dst.Handle, 1, []vk.BufferCopy{{Size: vk.DeviceSize(size)}})
	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

// BufferUpload creates a device local buffer holding data, going through a
// host visible staging buffer.
func BufferUpload(context *VulkanContext, name string, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := uint64(len(data))
	staging, err := BufferCreate(context, name+" staging", size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(context, 0, data); err != nil {
		return nil, err
	}

	buffer, err := BufferCreate(context, name, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	if err := staging.CopyTo(context, buffer, size); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

// AsBytes reinterprets a slice of plain values as bytes without copying.
func AsBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// ValueBytes is AsBytes for a single value.
func ValueBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}
