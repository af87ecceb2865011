package systems

import (
	"encoding/binary"
	"fmt"
	gomath "math"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Vertex3DStride is the byte size of one packed Vertex3D.
const Vertex3DStride = 12 + 12 + 8 + 16

// MeshRenderer is a drawable mesh: GPU-resident vertex data plus the
// shader, render state and material it draws with. It is both the
// renderable and its own pipeline provider.
type MeshRenderer struct {
	Name string

	vertexCount   uint32
	vertexBuffers []renderer.GenericBufferAllocation[*renderer.DeviceBuffer]

	shader *metadata.ReflectedShader
	state  metadata.RenderState

	mu         sync.RWMutex
	material   *renderer.Material
	customData map[metadata.SemanticKey][]byte
}

func (m *MeshRenderer) PipelineProvider() renderer.PipelineProvider {
	return m
}

// PipelineSpec reports ok=false until a shader is attached, which makes
// the mesh silently skippable while its assets load.
func (m *MeshRenderer) PipelineSpec() (*metadata.ReflectedShader, metadata.RenderState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.shader == nil {
		return nil, metadata.RenderState{}, false
	}
	return m.shader, m.state, true
}

func (m *MeshRenderer) Material() *renderer.Material {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.material
}

func (m *MeshRenderer) SetMaterial(material *renderer.Material) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.material = material
}

func (m *MeshRenderer) SetShader(shader *metadata.ReflectedShader, state metadata.RenderState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shader = shader
	m.state = state
}

// SetSemanticData wires the bytes filled into a custom per-instance
// semantic slot each frame. The length must match the slot's format size.
func (m *MeshRenderer) SetSemanticData(key metadata.SemanticKey, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.customData == nil {
		m.customData = make(map[metadata.SemanticKey][]byte)
	}
	m.customData[key] = data
}

func (m *MeshRenderer) VertexCount() uint32 {
	return m.vertexCount
}

func (m *MeshRenderer) VertexBuffers() []renderer.GenericBufferAllocation[*renderer.DeviceBuffer] {
	return m.vertexBuffers
}

// CopySemanticPerInstanceInput fills a custom semantic slot. Slots with no
// registered data stay zeroed.
func (m *MeshRenderer) CopySemanticPerInstanceInput(key metadata.SemanticKey, allocation renderer.GenericBufferAllocation[*renderer.HostBuffer]) {
	m.mu.RLock()
	data, found := m.customData[key]
	m.mu.RUnlock()
	if !found {
		return
	}
	allocation.CopyFromSlice(data)
}

// MeshSystem uploads mesh vertex data into pooled device buffers and owns
// the resulting renderables.
type MeshSystem struct {
	backend renderer.Backend
	pool    *renderer.GenericBufferPool

	mu     sync.Mutex
	meshes map[string]*MeshRenderer
	// checked-out device buffers per mesh, returned to the pool on destroy
	buffers map[string][]*renderer.DeviceBuffer
}

func NewMeshSystem(backend renderer.Backend, pool *renderer.GenericBufferPool) (*MeshSystem, error) {
	if backend == nil || pool == nil {
		return nil, fmt.Errorf("NewMeshSystem requires a backend and a buffer pool")
	}
	return &MeshSystem{
		backend: backend,
		pool:    pool,
		meshes:  make(map[string]*MeshRenderer),
		buffers: make(map[string][]*renderer.DeviceBuffer),
	}, nil
}

func (ms *MeshSystem) Shutdown() error {
	ms.mu.Lock()
	names := make([]string, 0, len(ms.meshes))
	for name := range ms.meshes {
		names = append(names, name)
	}
	ms.mu.Unlock()

	for _, name := range names {
		if err := ms.DestroyMesh(name); err != nil {
			core.LogWarn("failed to destroy mesh '%s': %s", name, err)
		}
	}
	return nil
}

// CreateMesh packs the vertices, uploads them into a pooled device buffer
// and returns the renderable.
func (ms *MeshSystem) CreateMesh(name string, vertices []math.Vertex3D) (*MeshRenderer, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("mesh '%s' has no vertices", name)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.meshes[name]; exists {
		return nil, fmt.Errorf("mesh '%s' already exists", name)
	}

	data := packVertices(vertices)
	buffer, err := ms.pool.Checkout(metadata.BufferUsageVertex|metadata.BufferUsageTransferDst, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := ms.backend.DeviceBufferUpload(buffer.Handle(), 0, data); err != nil {
		ms.pool.Release(buffer)
		return nil, err
	}

	mesh := &MeshRenderer{
		Name:        name,
		vertexCount: uint32(len(vertices)),
		vertexBuffers: []renderer.GenericBufferAllocation[*renderer.DeviceBuffer]{
			renderer.NewBufferAllocation(buffer, 0, uint64(len(data))),
		},
	}
	ms.meshes[name] = mesh
	ms.buffers[name] = []*renderer.DeviceBuffer{buffer}

	core.LogDebug("Created mesh '%s' (%d vertices).", name, len(vertices))
	return mesh, nil
}

func (ms *MeshSystem) GetMesh(name string) (*MeshRenderer, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	mesh, found := ms.meshes[name]
	return mesh, found
}

// DestroyMesh returns the mesh's device buffers to the pool.
func (ms *MeshSystem) DestroyMesh(name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, found := ms.meshes[name]; !found {
		return fmt.Errorf("mesh '%s' does not exist", name)
	}
	for _, buffer := range ms.buffers[name] {
		ms.pool.Release(buffer)
	}
	delete(ms.meshes, name)
	delete(ms.buffers, name)
	return nil
}

func packVertices(vertices []math.Vertex3D) []byte {
	out := make([]byte, 0, len(vertices)*Vertex3DStride)
	putFloat := func(f float32) {
		var scratch [4]byte
		binary.LittleEndian.PutUint32(scratch[:], gomath.Float32bits(f))
		out = append(out, scratch[:]...)
	}
	for _, vertex := range vertices {
		putFloat(vertex.Position.X)
		putFloat(vertex.Position.Y)
		putFloat(vertex.Position.Z)
		putFloat(vertex.Normal.X)
		putFloat(vertex.Normal.Y)
		putFloat(vertex.Normal.Z)
		putFloat(vertex.Texcoord.X)
		putFloat(vertex.Texcoord.Y)
		putFloat(vertex.Colour.X)
		putFloat(vertex.Colour.Y)
		putFloat(vertex.Colour.Z)
		putFloat(vertex.Colour.W)
	}
	return out
}
