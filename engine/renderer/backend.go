package renderer

import (
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Backend-specific handles for GPU objects. Opaque to the frontend; the
// backend is responsible for creation and destruction.
type BufferHandle interface{}
type PipelineHandle interface{}
type BindGroupHandle interface{}

// Backend is the device-facing contract the rendering frontend drives.
// Implementations (e.g. the Vulkan backend) own the GPU device lifecycle;
// device-lost and out-of-memory failures propagate as errors and are fatal
// at the frame level.
type Backend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error

	// DeviceBufferCreate allocates a GPU-resident buffer. The returned
	// handle is owned by the caller until DeviceBufferDestroy.
	DeviceBufferCreate(usage metadata.BufferUsage, size uint64) (BufferHandle, error)
	DeviceBufferDestroy(handle BufferHandle)
	// DeviceBufferUpload copies CPU-visible bytes into a device buffer at
	// the given offset. The copy is complete before any draw recorded
	// afterwards observes the buffer.
	DeviceBufferUpload(handle BufferHandle, offset uint64, data []byte) error

	// PipelineCreate compiles a graphics pipeline from reflected shader
	// data and fixed-function render state.
	PipelineCreate(shader *metadata.ReflectedShader, state metadata.RenderState) (PipelineHandle, error)
	PipelineDestroy(handle PipelineHandle)

	// RenderPassBegin opens the frame's main pass for command replay;
	// RenderPassEnd closes it. Must be called between BeginFrame and
	// EndFrame.
	RenderPassBegin() (RenderPass, error)
	RenderPassEnd(pass RenderPass) error
}

// RenderPass records draw-time bindings for a single pass. Obtained from
// the backend while a frame is open; commands are replayed against it in
// submission order.
type RenderPass interface {
	SetPipeline(pipeline PipelineHandle)
	SetBindGroup(group uint32, bindGroup BindGroupHandle)
	SetVertexBuffer(slot uint32, allocation GenericBufferAllocation[*DeviceBuffer])
	Draw(vertexCount, instanceCount uint32)
}
