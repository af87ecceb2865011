package renderer

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// ShaderManager is the collaborator that owns reflected shader descriptors
// and knows how to compile them into pipelines. The shader system
// implements it; tests substitute fakes.
type ShaderManager interface {
	// CompilePipeline produces an opaque pipeline object from reflection
	// data and render state. Synchronous from the core's perspective.
	CompilePipeline(shader *metadata.ReflectedShader, state metadata.RenderState) (PipelineHandle, error)
}

// PipelineProvider is a per-renderable capability resolving the shader,
// render state and material a draw needs. It may fail to resolve while
// assets are still loading; that is a normal state, not an error, and the
// renderable is simply skipped this frame.
type PipelineProvider interface {
	// PipelineSpec reports the shader and render state the pipeline must
	// be compiled against, or ok=false when not yet ready.
	PipelineSpec() (shader *metadata.ReflectedShader, state metadata.RenderState, ok bool)
	// Material returns the shared material, or nil when not yet ready.
	Material() *Material
}

// ObjectHierarchy resolves an object's world matrix, assumed already
// updated for the current frame.
type ObjectHierarchy interface {
	Matrix(objectID uint32) math.Mat4
}

// Renderer is the per-renderable contract the command assembler consumes:
// where the vertices live, how many there are, and how to fill
// engine/game-specific per-instance semantics the core does not know.
type Renderer interface {
	PipelineProvider() PipelineProvider
	VertexCount() uint32
	VertexBuffers() []GenericBufferAllocation[*DeviceBuffer]
	// CopySemanticPerInstanceInput fills the allocation for a semantic key
	// beyond the four reserved transform rows.
	CopySemanticPerInstanceInput(key metadata.SemanticKey, allocation GenericBufferAllocation[*HostBuffer])
}
