package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
)

// VulkanContext carries the handles every backend object needs: the
// instance, the selected device and the offscreen render target state.
type VulkanContext struct {
	// The render target's current width.
	FramebufferWidth uint32
	// The render target's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	MainRenderpass *VulkanRenderpass
	ColorTarget    *VulkanImage
	DepthTarget    *VulkanImage
	Framebuffer    vk.Framebuffer
}

// FindMemoryIndex returns the index of a memory type matching typeFilter
// and the requested property flags, or -1 when none qualifies.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
