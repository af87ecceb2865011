package metadata

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief Depth/stencil usage for a pipeline. */
type DepthStencilMode uint8

const (
	DepthStencilModeNone DepthStencilMode = iota
	DepthStencilModeDepthOnly
	DepthStencilModeDepthStencil
)

/**
 * @brief The fixed-function render state a pipeline is compiled against.
 * Part of the pipeline cache key.
 */
type RenderState struct {
	DepthStencil DepthStencilMode
	CullMode     FaceCullMode
	Wireframe    bool
}

/** @brief Usage flags for device buffers. */
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageTransferSrc
	BufferUsageTransferDst
)
