package vulkan

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

// DescriptorBinding is one binding of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	Stages  vk.ShaderStageFlags
	// Count defaults to 1.
	Count uint32
}

func (b DescriptorBinding) count() uint32 {
	if b.Count == 0 {
		return 1
	}
	return b.Count
}

type VulkanDescriptorSetLayout struct {
	Handle   vk.DescriptorSetLayout
	Bindings []DescriptorBinding

	id uuid.UUID
}

func DescriptorSetLayoutCreate(context *VulkanContext, name string, bindings ...DescriptorBinding) (*VulkanDescriptorSetLayout, error) {
	seen := make(map[uint32]bool, len(bindings))
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		if seen[b.Binding] {
			return nil, fmt.Errorf("descriptor set layout %q: binding %d declared twice", name, b.Binding)
		}
		seen[b.Binding] = true
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: b.count(),
			StageFlags:      b.Stages,
		}
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateDescriptorSetLayout", res)
	}
	return &VulkanDescriptorSetLayout{
		Handle:   handle,
		Bindings: append([]DescriptorBinding(nil), bindings...),
		id:       context.track("descriptor set layout", name),
	}, nil
}

func (l *VulkanDescriptorSetLayout) Destroy(context *VulkanContext) {
	if l.Handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, l.Handle, context.Allocator)
		l.Handle = vk.NullDescriptorSetLayout
		context.release(l.id)
	}
}

// poolSizesFor sums the descriptors of sets copies of layout per type.
func poolSizesFor(bindings []DescriptorBinding, sets uint32) []vk.DescriptorPoolSize {
	counts := make(map[vk.DescriptorType]uint32)
	for _, b := range bindings {
		counts[b.Type] += b.count() * sets
	}
	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for t, n := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Type < sizes[j].Type })
	return sizes
}

// VulkanDescriptorPool allocates sets of a single layout.
type VulkanDescriptorPool struct {
	Handle  vk.DescriptorPool
	MaxSets uint32

	id uuid.UUID
}

// DescriptorPoolCreate sizes a pool for maxSets sets of layout.
func DescriptorPoolCreate(context *VulkanContext, name string, layout *VulkanDescriptorSetLayout, maxSets uint32) (*VulkanDescriptorPool, error) {
	sizes := poolSizesFor(layout.Bindings, maxSets)
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       maxSets,
	}
	var handle vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateDescriptorPool", res)
	}
	return &VulkanDescriptorPool{Handle: handle, MaxSets: maxSets, id: context.track("descriptor pool", name)}, nil
}

// Allocate returns count sets of layout. They are freed with the pool.
func (p *VulkanDescriptorPool) Allocate(context *VulkanContext, layout *VulkanDescriptorSetLayout, count uint32) ([]vk.DescriptorSet, error) {
	if count == 0 {
		return nil, nil
	}
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout.Handle
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: count,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		return nil, vkError("vkAllocateDescriptorSets", res)
	}
	return sets, nil
}

func (p *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if p.Handle != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, p.Handle, context.Allocator)
		p.Handle = vk.NullDescriptorPool
		context.release(p.id)
	}
}

// WriteBufferDescriptor points binding of set at size bytes of buffer.
func WriteBufferDescriptor(context *VulkanContext, set vk.DescriptorSet, binding uint32, buffer *VulkanBuffer, offset, size uint64) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle,
			Offset: vk.DeviceSize(offset),
			Range:  vk.DeviceSize(size),
		}},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// WriteImageDescriptor binds a sampled image for fragment shader reads.
func WriteImageDescriptor(context *VulkanContext, set vk.DescriptorSet, binding uint32, image *VulkanImage, sampler *VulkanSampler) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   image.View,
			Sampler:     sampler.Handle,
		}},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
