package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

// SpecializationConstant sets one constant_id of a shader stage to a 32-bit
// value.
type SpecializationConstant struct {
	ID    uint32
	Value uint32
}

// VulkanShaderStage is a shader module plus the stage info a pipeline needs.
type VulkanShaderStage struct {
	Handle vk.ShaderModule
	Stage  vk.ShaderStageFlagBits

	specialization []SpecializationConstant
	id             uuid.UUID
}

// ShaderModuleCreate wraps SPIR-V words in a shader module for stage.
func ShaderModuleCreate(context *VulkanContext, name string, code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("shader %q: empty SPIR-V", name)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateShaderModule", res)
	}
	return &VulkanShaderStage{
		Handle: handle,
		Stage:  stage,
		id:     context.track("shader module", name),
	}, nil
}

// Specialize returns a copy of the stage with the given constants applied.
// The copy shares the module; only the original must be destroyed.
func (s *VulkanShaderStage) Specialize(constants ...SpecializationConstant) *VulkanShaderStage {
	out := *s
	out.specialization = append([]SpecializationConstant(nil), constants...)
	out.id = uuid.Nil
	return &out
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
		context.release(s.id)
	}
}

// createInfo builds the stage description. The returned data slice backs the
// specialization info and has to stay alive until the pipeline is created.
func (s *VulkanShaderStage) createInfo() (vk.PipelineShaderStageCreateInfo, []uint32) {
	info := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Handle,
		PName:  VulkanSafeString("main"),
	}
	if len(s.specialization) == 0 {
		return info, nil
	}
	entries, data := specializationEntries(s.specialization)
	info.PSpecializationInfo = []vk.SpecializationInfo{{
		MapEntryCount: uint32(len(entries)),
		PMapEntries:   entries,
		DataSize:      uint64(len(data) * 4),
		PData:         unsafe.Pointer(&data[0]),
	}}
	return info, data
}

// specializationEntries lays the constants out as consecutive 4-byte values.
func specializationEntries(constants []SpecializationConstant) ([]vk.SpecializationMapEntry, []uint32) {
	entries := make([]vk.SpecializationMapEntry, len(constants))
	data := make([]uint32, len(constants))
	for i, c := range constants {
		entries[i] = vk.SpecializationMapEntry{
			ConstantID: c.ID,
			Offset:     uint32(i * 4),
			Size:       4,
		}
		data[i] = c.Value
	}
	return entries, data
}
