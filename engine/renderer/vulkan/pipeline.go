package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbase/engine/core"
)

// maxPushConstantSize is the guaranteed minimum of maxPushConstantsSize.
const maxPushConstantSize = 128

type CullMode int

const (
	CullModeBack CullMode = iota
	CullModeNone
	CullModeFront
	CullModeFrontAndBack
)

func (m CullMode) flags() vk.CullModeFlags {
	switch m {
	case CullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case CullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	}
	return vk.CullModeFlags(vk.CullModeBackBit)
}

// PushConstantRange is a block of push constant memory visible to Stages.
type PushConstantRange struct {
	Stages vk.ShaderStageFlags
	Offset uint32
	Size   uint32
}

// VulkanPipeline holds a graphics pipeline and its layout.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout

	id uuid.UUID
}

type VulkanPipelineConfig struct {
	Name       string
	Renderpass *VulkanRenderpass
	Vertex     VertexLayout
	// DescriptorSetLayouts are bound in order, set 0 first.
	DescriptorSetLayouts []*VulkanDescriptorSetLayout
	Stages               []*VulkanShaderStage
	CullMode             CullMode
	Wireframe            bool
	DepthTest            bool
	DepthWrite           bool
	// Blend enables straight alpha blending on the colour attachment.
	Blend         bool
	PushConstants []PushConstantRange
}

// validatePushConstants checks alignment and the 128 byte budget every
// device supports.
func validatePushConstants(ranges []PushConstantRange) error {
	for i, r := range ranges {
		if r.Size == 0 || r.Size%4 != 0 || r.Offset%4 != 0 {
			return fmt.Errorf("push constant range %d (offset %d, size %d) is not 4-byte aligned", i, r.Offset, r.Size)
		}
		if r.Offset+r.Size > maxPushConstantSize {
			return fmt.Errorf("push constant range %d ends at %d, beyond %d bytes", i, r.Offset+r.Size, maxPushConstantSize)
		}
	}
	return nil
}

// NewGraphicsPipeline creates a triangle list pipeline with dynamic viewport
// and scissor.
func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	if config.Renderpass == nil {
		return nil, fmt.Errorf("pipeline %q: no renderpass", config.Name)
	}
	if len(config.Stages) == 0 {
		return nil, fmt.Errorf("pipeline %q: no shader stages", config.Name)
	}
	if err := validatePushConstants(config.PushConstants); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", config.Name, err)
	}
	device := context.Device.LogicalDevice
	outPipeline := &VulkanPipeline{}

	// Viewport and scissor are set per frame.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                config.CullMode.flags(),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.Wireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    vk.CompareOpLess,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if config.Blend {
		colorBlendAttachmentState.BlendEnable = vk.True
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if config.Vertex.Stride > 0 {
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    config.Vertex.Stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(config.Vertex.Attributes))
		vertexInputInfo.PVertexAttributeDescriptions = config.Vertex.Attributes
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Pipeline layout
	setLayouts := make([]vk.DescriptorSetLayout, len(config.DescriptorSetLayouts))
	for i, l := range config.DescriptorSetLayouts {
		setLayouts[i] = l.Handle
	}
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if len(config.PushConstants) > 0 {
		ranges := make([]vk.PushConstantRange, len(config.PushConstants))
		for i, r := range config.PushConstants {
			ranges[i] = vk.PushConstantRange{StageFlags: r.Stages, Offset: r.Offset, Size: r.Size}
		}
		pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(ranges))
		pipelineLayoutCreateInfo.PPushConstantRanges = ranges
	}

	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device, &pipelineLayoutCreateInfo, context.Allocator, &pipelineLayout); res != vk.Success {
		return nil, vkError("vkCreatePipelineLayout", res)
	}
	outPipeline.PipelineLayout = pipelineLayout

	// The specialization data has to outlive the create call.
	stages := make([]vk.PipelineShaderStageCreateInfo, len(config.Stages))
	keep := make([][]uint32, len(config.Stages))
	for i, s := range config.Stages {
		stages[i], keep[i] = s.createInfo()
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines)
	runtime.KeepAlive(keep)
	if res != vk.Success {
		vk.DestroyPipelineLayout(device, outPipeline.PipelineLayout, context.Allocator)
		return nil, vkError("vkCreateGraphicsPipelines", res)
	}
	outPipeline.Handle = pipelines[0]
	outPipeline.id = context.track("pipeline", config.Name)

	core.LogDebug("Graphics pipeline %q created.", config.Name)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
	if pipeline.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
		pipeline.PipelineLayout = vk.NullPipelineLayout
	}
	context.release(pipeline.id)
	pipeline.id = uuid.Nil
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
}

// BindDescriptorSets binds sets starting at set index first.
func (pipeline *VulkanPipeline) BindDescriptorSets(commandBuffer *VulkanCommandBuffer, first uint32, sets ...vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.PipelineLayout,
		first, uint32(len(sets)), sets, 0, nil)
}

// PushConstants records a push of data at offset for stages.
func (pipeline *VulkanPipeline) PushConstants(commandBuffer *VulkanCommandBuffer, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(commandBuffer.Handle, pipeline.PipelineLayout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}
