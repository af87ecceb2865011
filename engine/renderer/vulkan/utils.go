package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
)

// ResultError wraps a non-success VkResult into an error, mapping the
// handful of results the engine reacts to onto core sentinel errors.
func ResultError(result vk.Result, operation string) error {
	if result == vk.Success {
		return nil
	}
	switch result {
	case vk.ErrorDeviceLost:
		return fmt.Errorf("%s: %w", operation, core.ErrDeviceLost)
	case vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfHostMemory:
		return fmt.Errorf("%s: %w", operation, core.ErrOutOfDeviceMemory)
	default:
		return fmt.Errorf("%s: vulkan result %d", operation, result)
	}
}

var end = "\x00"
var endChar byte = '\x00'

// VulkanSafeString null-terminates a Go string for the C API.
func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// FindFirstZeroInByteArray returns the index of the first zero byte, used
// to trim fixed-size C strings.
func FindFirstZeroInByteArray(arr []byte) int {
	end := 0
	for i, b := range arr {
		if b == 0 {
			end = i
			break
		}
	}
	return end
}

// sliceUint32 reinterprets a SPIR-V byte blob as the []uint32 the shader
// module API expects. The blob length must be a multiple of 4.
func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
