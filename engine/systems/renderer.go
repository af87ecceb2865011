package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer"
)

// RenderSystem drives the per-frame pipeline: it assembles rendering
// commands for every registered renderable, replays them into the
// backend's main pass and recycles the frame's transient buffers.
type RenderSystem struct {
	backend renderer.Backend

	bufferPool     *renderer.GenericBufferPool
	frameAllocator *renderer.FrameBufferAllocator
	pipelineCache  *renderer.PipelineCache

	shaderSystem *ShaderSystem
	hierarchy    renderer.ObjectHierarchy

	mu          sync.RWMutex
	renderables map[uint32]renderer.Renderer
}

func NewRenderSystem(backend renderer.Backend, shaderSystem *ShaderSystem, hierarchy renderer.ObjectHierarchy) (*RenderSystem, error) {
	if backend == nil {
		return nil, fmt.Errorf("NewRenderSystem requires a backend")
	}
	if shaderSystem == nil {
		return nil, fmt.Errorf("NewRenderSystem requires a shader system")
	}
	if hierarchy == nil {
		return nil, fmt.Errorf("NewRenderSystem requires an object hierarchy")
	}

	pool := renderer.NewGenericBufferPool(backend)
	rs := &RenderSystem{
		backend:        backend,
		bufferPool:     pool,
		frameAllocator: renderer.NewFrameBufferAllocator(backend, pool),
		pipelineCache:  renderer.NewPipelineCache(),
		shaderSystem:   shaderSystem,
		hierarchy:      hierarchy,
		renderables:    make(map[uint32]renderer.Renderer),
	}

	core.EventRegister(core.EVENT_CODE_SHADER_RELOADED, rs, rs.onShaderReloaded)
	return rs, nil
}

func (rs *RenderSystem) Shutdown() error {
	core.EventUnregister(core.EVENT_CODE_SHADER_RELOADED, rs)

	for _, cached := range rs.pipelineCache.Clear() {
		rs.backend.PipelineDestroy(cached.Handle)
	}
	rs.bufferPool.Shutdown()
	return nil
}

// BufferPool exposes the pool shared with asset systems so that mesh data
// lands in the same recycled device buffers the frame allocator uses.
func (rs *RenderSystem) BufferPool() *renderer.GenericBufferPool {
	return rs.bufferPool
}

func (rs *RenderSystem) PipelineCache() *renderer.PipelineCache {
	return rs.pipelineCache
}

// AddRenderable registers a renderable under the scene object whose
// transform positions it.
func (rs *RenderSystem) AddRenderable(objectID uint32, rdr renderer.Renderer) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.renderables[objectID] = rdr
}

func (rs *RenderSystem) RemoveRenderable(objectID uint32) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.renderables, objectID)
}

// DrawFrame assembles and replays one frame. Renderables whose pipeline
// or material is not yet resolvable are skipped; they will be drawn once
// their assets finish loading.
func (rs *RenderSystem) DrawFrame(deltaTime float64) error {
	if err := rs.backend.BeginFrame(deltaTime); err != nil {
		return err
	}

	rs.mu.RLock()
	objectIDs := make([]uint32, 0, len(rs.renderables))
	renderables := make([]renderer.Renderer, 0, len(rs.renderables))
	for objectID, rdr := range rs.renderables {
		objectIDs = append(objectIDs, objectID)
		renderables = append(renderables, rdr)
	}
	rs.mu.RUnlock()

	commands := make([]*renderer.RenderingCommand, 0, len(renderables))
	for i, rdr := range renderables {
		command, err := renderer.BuildRenderingCommand(
			objectIDs[i], rs.hierarchy, rdr,
			rs.shaderSystem, rs.pipelineCache, rs.frameAllocator)
		if err != nil {
			rs.releaseCommands(commands)
			return err
		}
		if command == nil {
			continue
		}
		commands = append(commands, command)
	}

	pass, err := rs.backend.RenderPassBegin()
	if err != nil {
		rs.releaseCommands(commands)
		return err
	}
	for _, command := range commands {
		command.Render(pass)
	}
	if err := rs.backend.RenderPassEnd(pass); err != nil {
		rs.releaseCommands(commands)
		return err
	}

	rs.releaseCommands(commands)

	if err := rs.backend.EndFrame(deltaTime); err != nil {
		return err
	}

	// The frame's staging and committed buffers are safe to recycle once
	// the submission above has completed.
	rs.frameAllocator.Reset()
	return nil
}

func (rs *RenderSystem) releaseCommands(commands []*renderer.RenderingCommand) {
	for _, command := range commands {
		command.Release()
	}
}

// onShaderReloaded drops every cached pipeline compiled from the reloaded
// shader. The next frame recompiles on demand.
func (rs *RenderSystem) onShaderReloaded(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	name := data.Data.S[0]
	shader, err := rs.shaderSystem.GetShader(name)
	if err != nil {
		core.LogWarn("Reload event for unknown shader '%s'.", name)
		return false
	}

	evicted := rs.pipelineCache.Invalidate(shader.ID)
	for _, cached := range evicted {
		rs.backend.PipelineDestroy(cached.Handle)
	}
	core.LogInfo("Evicted %d cached pipeline(s) for shader '%s'.", len(evicted), name)
	return true
}
