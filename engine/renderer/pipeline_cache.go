package renderer

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// PipelineKey identifies a compiled pipeline: shader identity plus hashes
// of the vertex layout and fixed-function render state it was compiled
// against.
type PipelineKey struct {
	ShaderID         uint32
	VertexLayoutHash uint64
	RenderStateHash  uint64
}

// CachedPipeline is a compiled, immutable pipeline. A cache hit returns
// the same logical pipeline a fresh compile would produce.
type CachedPipeline struct {
	Key    PipelineKey
	Handle PipelineHandle
	Shader *metadata.ReflectedShader
	State  metadata.RenderState
}

// PipelineCache maps pipeline keys to compiled pipelines. At most one
// compiled pipeline exists per key; compilation is idempotent. Entries are
// never evicted except through Invalidate, the shader hot-reload hook.
//
// Reads take the fast path under RLock with double-check locking on the
// compile path, so concurrent lookups from loading threads are safe even
// though frame submission itself is single-threaded.
type PipelineCache struct {
	mu        sync.RWMutex
	pipelines map[PipelineKey]*CachedPipeline

	hits     uint64
	misses   uint64
	compiles uint64
}

func NewPipelineCache() *PipelineCache {
	return &PipelineCache{
		pipelines: make(map[PipelineKey]*CachedPipeline),
	}
}

// ObtainPipeline resolves the provider's pipeline, compiling on miss via
// the shader manager. Returns (nil, nil) when the provider cannot yet
// supply a valid shader/material pair; that signals "skip this renderable
// this frame".
func (c *PipelineCache) ObtainPipeline(provider PipelineProvider, shaderMgr ShaderManager) (*CachedPipeline, error) {
	shader, state, ok := provider.PipelineSpec()
	if !ok {
		return nil, nil
	}

	key := PipelineKey{
		ShaderID:         shader.ID,
		VertexLayoutHash: hashVertexLayout(shader),
		RenderStateHash:  hashRenderState(state),
	}

	c.mu.RLock()
	if pipeline, found := c.pipelines[key]; found {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return pipeline, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if pipeline, found := c.pipelines[key]; found {
		atomic.AddUint64(&c.hits, 1)
		return pipeline, nil
	}
	atomic.AddUint64(&c.misses, 1)

	handle, err := shaderMgr.CompilePipeline(shader, state)
	if err != nil {
		core.LogError("pipeline compilation failed for shader '%s': %s", shader.Name, err.Error())
		return nil, err
	}
	atomic.AddUint64(&c.compiles, 1)

	pipeline := &CachedPipeline{
		Key:    key,
		Handle: handle,
		Shader: shader,
		State:  state,
	}
	c.pipelines[key] = pipeline

	core.LogDebug("compiled pipeline for shader '%s' (cache size %d)", shader.Name, len(c.pipelines))
	return pipeline, nil
}

// Invalidate evicts every pipeline compiled from the given shader and
// returns the evicted entries so the caller can destroy their GPU objects.
// Used when a shader hot-reload makes cached pipelines stale.
func (c *PipelineCache) Invalidate(shaderID uint32) []*CachedPipeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []*CachedPipeline
	for key, pipeline := range c.pipelines {
		if key.ShaderID == shaderID {
			evicted = append(evicted, pipeline)
			delete(c.pipelines, key)
		}
	}
	if len(evicted) > 0 {
		core.LogInfo("invalidated %d pipeline(s) for shader id %d", len(evicted), shaderID)
	}
	return evicted
}

// Clear evicts every cached pipeline and returns the entries so the
// caller can destroy their GPU objects. Used at shutdown.
func (c *PipelineCache) Clear() []*CachedPipeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := make([]*CachedPipeline, 0, len(c.pipelines))
	for key, pipeline := range c.pipelines {
		evicted = append(evicted, pipeline)
		delete(c.pipelines, key)
	}
	return evicted
}

// Stats reports cache hits, misses and compile count.
func (c *PipelineCache) Stats() (hits, misses, compiles uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.compiles)
}

// Len returns the number of cached pipelines.
func (c *PipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

func hashVertexLayout(shader *metadata.ReflectedShader) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeU64(shader.PerVertexStride)
	for _, attr := range shader.PerVertexAttributes {
		writeU64(uint64(attr.Location))
		writeU64(uint64(attr.Format))
		writeU64(attr.Offset)
	}
	writeU64(shader.PerInstanceInput.Stride)
	for _, elem := range shader.PerInstanceInput.Elements {
		writeU64(uint64(elem.Attribute.Location))
		writeU64(uint64(elem.Attribute.Format))
		writeU64(elem.Attribute.Offset)
	}
	return h.Sum64()
}

func hashRenderState(state metadata.RenderState) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	wireframe := uint64(0)
	if state.Wireframe {
		wireframe = 1
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(state.DepthStencil)<<32|uint64(state.CullMode)<<1|wireframe)
	h.Write(buf[:])
	return h.Sum64()
}
