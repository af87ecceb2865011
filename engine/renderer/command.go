package renderer

import (
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief An ephemeral, non-owning bundle of everything one draw needs:
 * the compiled pipeline, the material (whose read lock it holds), the
 * object's per-vertex buffers and the committed per-instance buffer.
 * Built fresh each draw, replayed once against a render pass, and released
 * before the frame ends.
 */
type RenderingCommand struct {
	pipeline          *CachedPipeline
	material          *Material
	vertexCount       uint32
	perVertexBuffers  []GenericBufferAllocation[*DeviceBuffer]
	perInstanceBuffer *GenericBufferAllocation[*DeviceBuffer]
	released          bool
}

func (c *RenderingCommand) Pipeline() *CachedPipeline { return c.pipeline }
func (c *RenderingCommand) Material() *Material       { return c.material }
func (c *RenderingCommand) VertexCount() uint32       { return c.vertexCount }

// Render replays the command against a render pass: pipeline bind, bind
// groups, per-vertex buffers at sequential slots from 0, the per-instance
// buffer at the next slot, then a single-instance draw over all vertices.
//
// Invalid state reaching this point (missing pipeline, missing vertex
// buffer) is a programming error; assembly must have returned nothing
// instead.
func (c *RenderingCommand) Render(pass RenderPass) {
	if c.released {
		panic("rendering command replayed after release")
	}
	if c.pipeline == nil || c.pipeline.Handle == nil {
		panic("rendering command with no pipeline")
	}

	pass.SetPipeline(c.pipeline.Handle)

	for _, holder := range c.material.BindGroupHolders {
		// Holders whose resources are still loading have no compiled bind
		// group yet; they are skipped, not an error.
		if holder.BindGroup != nil {
			pass.SetBindGroup(holder.Group, holder.BindGroup)
		}
	}

	for index, buffer := range c.perVertexBuffers {
		pass.SetVertexBuffer(uint32(index), buffer)
	}

	if c.perInstanceBuffer != nil {
		pass.SetVertexBuffer(uint32(len(c.perVertexBuffers)), *c.perInstanceBuffer)
	}

	pass.Draw(c.vertexCount, 1)
}

// Release drops the material read lock. Must be called exactly once, after
// the command has been replayed (or abandoned).
func (c *RenderingCommand) Release() {
	if c.released {
		panic("rendering command released twice")
	}
	c.released = true
	c.material.mu.RUnlock()
}

// BuildRenderingCommand assembles the draw command for a single renderable:
// resolve the world matrix, resolve (or compile) the pipeline, stage the
// per-instance data, commit it to a device buffer, and bundle the result.
//
// Returns (nil, nil) when the renderable is not ready this frame — pipeline
// or material still unresolved — which is normal control flow, not an
// error. The returned command holds the material's read lock; callers must
// Release it after submission.
func BuildRenderingCommand(
	objectID uint32,
	hierarchy ObjectHierarchy,
	rdr Renderer,
	shaderMgr ShaderManager,
	pipelineCache *PipelineCache,
	frameAllocator *FrameBufferAllocator,
) (*RenderingCommand, error) {
	matrix := hierarchy.Matrix(objectID)

	provider := rdr.PipelineProvider()
	pipeline, err := pipelineCache.ObtainPipeline(provider, shaderMgr)
	if err != nil {
		return nil, err
	}
	if pipeline == nil {
		return nil, nil
	}

	material := provider.Material()
	if material == nil {
		return nil, nil
	}

	// The lock is held only while staging; the final command re-acquires it
	// below so allocation failures never leave the material locked.
	material.mu.RLock()

	staging := frameAllocator.AllocStagingBuffer(material.Shader.PerInstanceInput.Stride)

	for key, input := range material.SemanticInputs {
		if input.StepMode != metadata.VertexStepModeInstance {
			continue
		}

		size := material.Shader.PerInstanceInput.Elements[input.Index].Attribute.Format.Size()
		allocation := staging.Slice(input.Offset, size)

		switch key {
		case metadata.KeyTransformRow0:
			allocation.CopyFromSlice(matrix.Row(0).Bytes())
		case metadata.KeyTransformRow1:
			allocation.CopyFromSlice(matrix.Row(1).Bytes())
		case metadata.KeyTransformRow2:
			allocation.CopyFromSlice(matrix.Row(2).Bytes())
		case metadata.KeyTransformRow3:
			allocation.CopyFromSlice(matrix.Row(3).Bytes())
		default:
			rdr.CopySemanticPerInstanceInput(key, allocation)
		}
	}

	for _, property := range material.PerInstanceProperties {
		if property.Value != nil {
			staging.Slice(property.Offset, property.Format.Size()).CopyFromSlice(property.Value.Bytes())
		}
	}

	material.mu.RUnlock()

	perInstanceBuffer, err := frameAllocator.CommitStagingBuffer(staging)
	if err != nil {
		return nil, err
	}

	// The provider is queried twice by design; both resolutions must
	// observe the same material.
	final := rdr.PipelineProvider().Material()
	if final == nil {
		panic("material vanished between resolution and command assembly")
	}
	final.mu.RLock()

	return &RenderingCommand{
		pipeline:          pipeline,
		material:          final,
		vertexCount:       rdr.VertexCount(),
		perVertexBuffers:  rdr.VertexBuffers(),
		perInstanceBuffer: &perInstanceBuffer,
	}, nil
}
