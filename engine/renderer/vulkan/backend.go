package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// VulkanRenderer renders into an offscreen color target. One frame is in
// flight at a time; EndFrame submits the frame's command buffer and waits
// for the queue to drain.
type VulkanRenderer struct {
	platform    *platform.Platform
	FrameNumber uint64
	context     *VulkanContext

	frameCommandBuffer *VulkanCommandBuffer

	debug bool
}

func New(p *platform.Platform) *VulkanRenderer {
	return &VulkanRenderer{
		platform:    p,
		FrameNumber: 0,
		context: &VulkanContext{
			FramebufferWidth:  0,
			FramebufferHeight: 0,
			Allocator:         nil,
		},
		debug: true,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		core.LogFatal("GetInstanceProcAddress is nil")
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vk: %s", err)
		return err
	}

	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prisma Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugUtilsExtensionName, vk.ExtDebugReportExtensionName)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers; enabled only on debug builds.
	requiredValidationLayerNames := []string{}
	if vr.debug {
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return ResultError(res, "vkEnumerateInstanceLayerProperties")
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return ResultError(res, "vkEnumerateInstanceLayerProperties")
		}

		for i := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredValidationLayerNames[i] == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					break
				}
			}
			if !found {
				core.LogFatal("Required validation layer is missing: %s", requiredValidationLayerNames[i])
				return fmt.Errorf("required validation layer is missing: %s", requiredValidationLayerNames[i])
			}
		}
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		core.LogError("failed to create the Vulkan instance")
		return ResultError(res, "vkCreateInstance")
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}
	if !DeviceDetectDepthFormat(vr.context.Device) {
		return fmt.Errorf("no supported depth format found")
	}

	if err := vr.createRenderTargets(); err != nil {
		return err
	}

	commandBuffer, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
	if err != nil {
		return err
	}
	vr.frameCommandBuffer = commandBuffer

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createRenderTargets() error {
	colorTarget, err := ImageCreate(vr.context,
		vr.context.FramebufferWidth, vr.context.FramebufferHeight,
		vk.FormatR8g8b8a8Unorm, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return err
	}
	vr.context.ColorTarget = colorTarget

	depthTarget, err := ImageCreate(vr.context,
		vr.context.FramebufferWidth, vr.context.FramebufferHeight,
		vr.context.Device.DepthFormat, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return err
	}
	vr.context.DepthTarget = depthTarget

	renderpass, err := RenderpassCreate(vr.context,
		vr.context.FramebufferWidth, vr.context.FramebufferHeight,
		0.0, 0.0, 0.2, 1.0,
		1.0,
		0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = renderpass

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: 2,
		PAttachments:    []vk.ImageView{colorTarget.View, depthTarget.View},
		Width:           vr.context.FramebufferWidth,
		Height:          vr.context.FramebufferHeight,
		Layers:          1,
	}
	framebufferCreateInfo.Deref()

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(vr.context.Device.LogicalDevice, &framebufferCreateInfo, vr.context.Allocator, &framebuffer); res != vk.Success {
		return ResultError(res, "vkCreateFramebuffer")
	}
	vr.context.Framebuffer = framebuffer
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	if vr.frameCommandBuffer != nil {
		vr.frameCommandBuffer.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		vr.frameCommandBuffer = nil
	}
	if vr.context.Framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(vr.context.Device.LogicalDevice, vr.context.Framebuffer, vr.context.Allocator)
		vr.context.Framebuffer = vk.NullFramebuffer
	}
	if vr.context.MainRenderpass != nil {
		vr.context.MainRenderpass.RenderpassDestroy(vr.context)
		vr.context.MainRenderpass = nil
	}
	if vr.context.DepthTarget != nil {
		vr.context.DepthTarget.Destroy(vr.context)
		vr.context.DepthTarget = nil
	}
	if vr.context.ColorTarget != nil {
		vr.context.ColorTarget.Destroy(vr.context)
		vr.context.ColorTarget = nil
	}

	DeviceDestroy(vr.context)

	if vr.debug && vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}
	if vr.context.Instance != nil {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}

	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

func (vr *VulkanRenderer) BeginFrame(deltaTime float64) error {
	vr.frameCommandBuffer.Reset()
	if err := vr.frameCommandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(vr.frameCommandBuffer.Handle, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}
	vk.CmdSetScissor(vr.frameCommandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	return nil
}

func (vr *VulkanRenderer) EndFrame(deltaTime float64) error {
	if err := vr.frameCommandBuffer.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{vr.frameCommandBuffer.Handle},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return ResultError(res, "vkQueueSubmit")
	}
	vr.frameCommandBuffer.State = COMMAND_BUFFER_STATE_SUBMITTED

	if res := vk.QueueWaitIdle(vr.context.Device.GraphicsQueue); res != vk.Success {
		return ResultError(res, "vkQueueWaitIdle")
	}

	vr.FrameNumber++
	return nil
}

func (vr *VulkanRenderer) DeviceBufferCreate(usage metadata.BufferUsage, size uint64) (renderer.BufferHandle, error) {
	buffer, err := NewVulkanBuffer(vr.context, size,
		vulkanBufferUsage(usage),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

func (vr *VulkanRenderer) DeviceBufferDestroy(handle renderer.BufferHandle) {
	buffer, ok := handle.(*VulkanBuffer)
	if !ok || buffer == nil {
		return
	}
	buffer.Destroy(vr.context)
}

// DeviceBufferUpload copies bytes into a device-local buffer through a
// transient host-visible staging buffer.
func (vr *VulkanRenderer) DeviceBufferUpload(handle renderer.BufferHandle, offset uint64, data []byte) error {
	buffer, ok := handle.(*VulkanBuffer)
	if !ok || buffer == nil {
		return fmt.Errorf("upload target is not a vulkan buffer")
	}
	if len(data) == 0 {
		return nil
	}

	staging, err := NewVulkanBuffer(vr.context, uint64(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(vr.context)

	if err := staging.LoadData(vr.context, 0, data); err != nil {
		return err
	}
	return staging.CopyTo(vr.context,
		vr.context.Device.GraphicsCommandPool, vr.context.Device.GraphicsQueue,
		0, buffer, vk.DeviceSize(offset), vk.DeviceSize(len(data)))
}

func (vr *VulkanRenderer) PipelineCreate(shader *metadata.ReflectedShader, state metadata.RenderState) (renderer.PipelineHandle, error) {
	pipeline, err := NewGraphicsPipeline(vr.context, shader, state)
	if err != nil {
		return nil, err
	}
	return pipeline, nil
}

func (vr *VulkanRenderer) PipelineDestroy(handle renderer.PipelineHandle) {
	pipeline, ok := handle.(*VulkanPipeline)
	if !ok || pipeline == nil {
		return
	}
	pipeline.Destroy(vr.context)
}

func (vr *VulkanRenderer) RenderPassBegin() (renderer.RenderPass, error) {
	if vr.frameCommandBuffer.State != COMMAND_BUFFER_STATE_RECORDING {
		return nil, fmt.Errorf("render pass must begin between BeginFrame and EndFrame")
	}
	vr.context.MainRenderpass.RenderpassBegin(vr.frameCommandBuffer, vr.context.Framebuffer)
	return &VulkanRenderPass{
		commandBuffer: vr.frameCommandBuffer,
	}, nil
}

func (vr *VulkanRenderer) RenderPassEnd(pass renderer.RenderPass) error {
	vulkanPass, ok := pass.(*VulkanRenderPass)
	if !ok || vulkanPass == nil {
		return fmt.Errorf("pass was not produced by this backend")
	}
	vr.context.MainRenderpass.RenderpassEnd(vulkanPass.commandBuffer)
	return nil
}

// VulkanRenderPass records bindings and draws into the frame command
// buffer while the main render pass is open.
type VulkanRenderPass struct {
	commandBuffer *VulkanCommandBuffer

	boundPipeline *VulkanPipeline
}

func (p *VulkanRenderPass) SetPipeline(pipeline renderer.PipelineHandle) {
	vulkanPipeline := pipeline.(*VulkanPipeline)
	vulkanPipeline.Bind(p.commandBuffer, vk.PipelineBindPointGraphics)
	p.boundPipeline = vulkanPipeline
}

func (p *VulkanRenderPass) SetBindGroup(group uint32, bindGroup renderer.BindGroupHandle) {
	if p.boundPipeline == nil {
		core.LogError("SetBindGroup called with no pipeline bound; skipping.")
		return
	}
	descriptorSet, ok := bindGroup.(vk.DescriptorSet)
	if !ok {
		core.LogError("bind group %d is not a vulkan descriptor set; skipping.", group)
		return
	}
	vk.CmdBindDescriptorSets(p.commandBuffer.Handle, vk.PipelineBindPointGraphics,
		p.boundPipeline.PipelineLayout, group, 1, []vk.DescriptorSet{descriptorSet}, 0, nil)
}

func (p *VulkanRenderPass) SetVertexBuffer(slot uint32, allocation renderer.GenericBufferAllocation[*renderer.DeviceBuffer]) {
	buffer, ok := allocation.Buffer().Handle().(*VulkanBuffer)
	if !ok || buffer == nil {
		core.LogError("vertex buffer at slot %d is not a vulkan buffer; skipping.", slot)
		return
	}
	vk.CmdBindVertexBuffers(p.commandBuffer.Handle, slot, 1,
		[]vk.Buffer{buffer.Handle}, []vk.DeviceSize{vk.DeviceSize(allocation.Offset())})
}

func (p *VulkanRenderPass) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(p.commandBuffer.Handle, vertexCount, instanceCount, 0, 0)
}

func vulkanBufferUsage(usage metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlags
	if usage&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usage&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usage&metadata.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}
	if usage&metadata.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	return flags
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogInfo("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.False
}
