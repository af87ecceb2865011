package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline, its layout and the descriptor set
 * layouts it was built against.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
	/** @brief One descriptor set layout per binding group. */
	DescriptorSetLayouts []vk.DescriptorSetLayout

	shaderModules []vk.ShaderModule
}

// NewGraphicsPipeline compiles a graphics pipeline from a shader's
// reflection data and a fixed-function render state. Vertex input uses
// binding 0 for per-vertex data and binding 1 for per-instance data.
func NewGraphicsPipeline(context *VulkanContext, shader *metadata.ReflectedShader, state metadata.RenderState) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{}

	stages, modules, err := shaderStageCreateInfos(context, shader)
	if err != nil {
		return nil, err
	}
	outPipeline.shaderModules = modules

	// Viewport state. Actual viewport and scissor are dynamic.
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(context.FramebufferWidth),
		Height:   float32(context.FramebufferHeight),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: context.FramebufferWidth, Height: context.FramebufferHeight},
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}
	viewportState.Deref()

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if state.Wireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}
	switch state.CullMode {
	case metadata.FaceCullModeNone:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		fallthrough
	case metadata.FaceCullModeBack:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	rasterizerCreateInfo.Deref()

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	multisamplingCreateInfo.Deref()

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	switch state.DepthStencil {
	case metadata.DepthStencilModeDepthOnly:
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	case metadata.DepthStencilModeDepthStencil:
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
		depthStencil.StencilTestEnable = vk.True
	}
	depthStencil.Deref()

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendAttachmentState.Deref()

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}
	colorBlendStateCreateInfo.Deref()

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
	dynamicStateCreateInfo.Deref()

	// Vertex input. Binding 0 advances per vertex, binding 1 per instance.
	bindingDescriptions := []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(shader.PerVertexStride),
		InputRate: vk.VertexInputRateVertex,
	}}
	attributeDescriptions := make([]vk.VertexInputAttributeDescription, 0, len(shader.PerVertexAttributes)+len(shader.PerInstanceInput.Elements))
	for _, attribute := range shader.PerVertexAttributes {
		attributeDescriptions = append(attributeDescriptions, vk.VertexInputAttributeDescription{
			Binding:  0,
			Location: attribute.Location,
			Format:   vulkanVertexFormat(attribute.Format),
			Offset:   uint32(attribute.Offset),
		})
	}
	if len(shader.PerInstanceInput.Elements) > 0 {
		bindingDescriptions = append(bindingDescriptions, vk.VertexInputBindingDescription{
			Binding:   1,
			Stride:    uint32(shader.PerInstanceInput.Stride),
			InputRate: vk.VertexInputRateInstance,
		})
		for _, element := range shader.PerInstanceInput.Elements {
			attributeDescriptions = append(attributeDescriptions, vk.VertexInputAttributeDescription{
				Binding:  1,
				Location: element.Attribute.Location,
				Format:   vulkanVertexFormat(element.Attribute.Format),
				Offset:   uint32(element.Attribute.Offset),
			})
		}
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}
	vertexInputInfo.Deref()

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	inputAssembly.Deref()

	// Descriptor set layouts, one per declared binding group.
	setLayouts, err := descriptorSetLayouts(context, shader)
	if err != nil {
		outPipeline.destroyShaderModules(context)
		return nil, err
	}
	outPipeline.DescriptorSetLayouts = setLayouts

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	pipelineLayoutCreateInfo.Deref()

	var pPipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pPipelineLayout); res != vk.Success {
		outPipeline.Destroy(context)
		return nil, ResultError(res, "vkCreatePipelineLayout")
	}
	outPipeline.PipelineLayout = pPipelineLayout

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
		RenderPass:          context.MainRenderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	pipelineCreateInfo.Deref()

	pPipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pPipelines); res != vk.Success {
		outPipeline.Destroy(context)
		return nil, ResultError(res, "vkCreateGraphicsPipelines")
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("Graphics pipeline created for shader '%s'.", shader.Name)
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
	for _, layout := range pipeline.DescriptorSetLayouts {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
	pipeline.DescriptorSetLayouts = nil
	pipeline.destroyShaderModules(context)
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}

func (pipeline *VulkanPipeline) destroyShaderModules(context *VulkanContext) {
	for _, module := range pipeline.shaderModules {
		vk.DestroyShaderModule(context.Device.LogicalDevice, module, context.Allocator)
	}
	pipeline.shaderModules = nil
}

func shaderStageCreateInfos(context *VulkanContext, shader *metadata.ReflectedShader) ([]vk.PipelineShaderStageCreateInfo, []vk.ShaderModule, error) {
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(shader.Stages))
	modules := make([]vk.ShaderModule, 0, len(shader.Stages))

	for _, blob := range shader.Stages {
		moduleCreateInfo := vk.ShaderModuleCreateInfo{
			SType:    vk.StructureTypeShaderModuleCreateInfo,
			CodeSize: uint(len(blob.SPIRV)),
			PCode:    sliceUint32(blob.SPIRV),
		}
		moduleCreateInfo.Deref()

		var module vk.ShaderModule
		if res := vk.CreateShaderModule(context.Device.LogicalDevice, &moduleCreateInfo, context.Allocator, &module); res != vk.Success {
			for _, created := range modules {
				vk.DestroyShaderModule(context.Device.LogicalDevice, created, context.Allocator)
			}
			return nil, nil, ResultError(res, "vkCreateShaderModule")
		}
		modules = append(modules, module)

		entry := blob.Entry
		if entry == "" {
			entry = "main"
		}
		stageInfo := vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkanShaderStage(blob.Stage),
			Module: module,
			PName:  VulkanSafeString(entry),
		}
		stageInfo.Deref()
		stages = append(stages, stageInfo)
	}

	if len(stages) == 0 {
		return nil, nil, fmt.Errorf("shader '%s' has no compiled stages", shader.Name)
	}
	return stages, modules, nil
}

func descriptorSetLayouts(context *VulkanContext, shader *metadata.ReflectedShader) ([]vk.DescriptorSetLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, 0, len(shader.BindGroupLayouts))
	for _, group := range shader.BindGroupLayouts {
		bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(group.Bindings))
		for _, binding := range group.Bindings {
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         binding.Binding,
				DescriptorType:  vulkanDescriptorType(binding.Type),
				DescriptorCount: 1,
				StageFlags:      vulkanShaderStageFlags(binding.Stages),
			})
		}
		layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		layoutCreateInfo.Deref()

		var layout vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &layout); res != vk.Success {
			for _, created := range layouts {
				vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, created, context.Allocator)
			}
			return nil, ResultError(res, "vkCreateDescriptorSetLayout")
		}
		layouts = append(layouts, layout)
	}
	return layouts, nil
}

func vulkanVertexFormat(format metadata.VertexFormat) vk.Format {
	switch format {
	case metadata.VertexFormatFloat32:
		return vk.FormatR32Sfloat
	case metadata.VertexFormatFloat32x2:
		return vk.FormatR32g32Sfloat
	case metadata.VertexFormatFloat32x3:
		return vk.FormatR32g32b32Sfloat
	case metadata.VertexFormatFloat32x4:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.VertexFormatSint32:
		return vk.FormatR32Sint
	case metadata.VertexFormatUint32:
		return vk.FormatR32Uint
	case metadata.VertexFormatUint32x4:
		return vk.FormatR32g32b32a32Uint
	default:
		return vk.FormatUndefined
	}
}

func vulkanShaderStage(stage metadata.ShaderStage) vk.ShaderStageFlagBits {
	switch stage {
	case metadata.ShaderStageVertex:
		return vk.ShaderStageVertexBit
	case metadata.ShaderStageGeometry:
		return vk.ShaderStageGeometryBit
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit
	case metadata.ShaderStageCompute:
		return vk.ShaderStageComputeBit
	default:
		return vk.ShaderStageAll
	}
}

func vulkanShaderStageFlags(stages metadata.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	if stages&metadata.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if stages&metadata.ShaderStageGeometry != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageGeometryBit)
	}
	if stages&metadata.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	if stages&metadata.ShaderStageCompute != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	if flags == 0 {
		flags = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	return flags
}

func vulkanDescriptorType(bindingType metadata.BindingType) vk.DescriptorType {
	switch bindingType {
	case metadata.BindingTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case metadata.BindingTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case metadata.BindingTypeSampler:
		return vk.DescriptorTypeSampler
	case metadata.BindingTypeTexture:
		return vk.DescriptorTypeSampledImage
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}
