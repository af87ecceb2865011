package systems

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/scene"
)

type frameFixture struct {
	backend        *fakeBackend
	shaderSystem   *ShaderSystem
	materialSystem *MaterialSystem
	meshSystem     *MeshSystem
	hierarchy      *scene.Hierarchy
	renderSystem   *RenderSystem
}

func newFrameFixture(t *testing.T) *frameFixture {
	t.Helper()
	core.EventInitialize()

	backend := &fakeBackend{}
	shaderSystem := newShaderSystem(t, backend)
	_, err := shaderSystem.RegisterShader(transformShader("builtin.mesh"))
	require.NoError(t, err)

	materialSystem, err := NewMaterialSystem(shaderSystem)
	require.NoError(t, err)

	hierarchy := scene.NewHierarchy()
	renderSystem, err := NewRenderSystem(backend, shaderSystem, hierarchy)
	require.NoError(t, err)
	t.Cleanup(func() { core.EventUnregister(core.EVENT_CODE_SHADER_RELOADED, renderSystem) })

	meshSystem, err := NewMeshSystem(backend, renderSystem.BufferPool())
	require.NoError(t, err)

	return &frameFixture{
		backend:        backend,
		shaderSystem:   shaderSystem,
		materialSystem: materialSystem,
		meshSystem:     meshSystem,
		hierarchy:      hierarchy,
		renderSystem:   renderSystem,
	}
}

// addTriangle wires a fully renderable mesh under a new scene object.
func (f *frameFixture) addTriangle(t *testing.T, name string, position math.Vec3) (*MeshRenderer, uint32) {
	t.Helper()

	mesh, err := f.meshSystem.CreateMesh(name, triangleVertices())
	require.NoError(t, err)

	shader, err := f.shaderSystem.GetShader("builtin.mesh")
	require.NoError(t, err)
	mesh.SetShader(shader, metadata.RenderState{DepthStencil: metadata.DepthStencilModeDepthOnly})

	material, err := f.materialSystem.Acquire(&MaterialConfig{Name: name, ShaderName: "builtin.mesh"})
	require.NoError(t, err)
	mesh.SetMaterial(material)

	objectID := f.hierarchy.AddObject(name, math.TransformFromPosition(position))
	f.renderSystem.AddRenderable(objectID, mesh)
	return mesh, objectID
}

func TestDrawFrameRendersRegisteredMesh(t *testing.T) {
	fixture := newFrameFixture(t)
	fixture.addTriangle(t, "triangle", math.Vec3{X: 2, Y: 3, Z: 4})

	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))

	assert.Equal(t, 1, fixture.backend.beginFrames)
	assert.Equal(t, 1, fixture.backend.endFrames)

	pass := fixture.backend.lastPass
	require.NotNil(t, pass)
	require.Equal(t, 1, pass.drawCount())

	// pipeline, vertex buffer, instance buffer, draw
	var ops []string
	for _, op := range pass.ops {
		ops = append(ops, op.op)
	}
	assert.Equal(t, []string{"pipeline", "vertexbuffer", "vertexbuffer", "draw"}, ops)
	assert.Equal(t, [2]uint32{3, 1}, pass.ops[3].counts)
}

func TestDrawFrameCommitsWorldMatrixRows(t *testing.T) {
	fixture := newFrameFixture(t)
	fixture.addTriangle(t, "triangle", math.Vec3{X: 2, Y: 3, Z: 4})

	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))

	pass := fixture.backend.lastPass
	var instanceBuffer *renderer.DeviceBuffer
	for _, op := range pass.ops {
		if op.op == "vertexbuffer" && op.slot == 1 {
			instanceBuffer = op.handle.(*renderer.DeviceBuffer)
		}
	}
	require.NotNil(t, instanceBuffer)

	gpu := instanceBuffer.Handle().(*fakeGPUBuffer)
	at := func(offset int) float32 {
		return gomath.Float32frombits(binary.LittleEndian.Uint32(gpu.data[offset : offset+4]))
	}
	// Last row of a translation matrix.
	assert.Equal(t, float32(2), at(48))
	assert.Equal(t, float32(3), at(52))
	assert.Equal(t, float32(4), at(56))
	assert.Equal(t, float32(1), at(60))
	// Upper-left of identity rotation/scale.
	assert.Equal(t, float32(1), at(0))
}

func TestDrawFrameSkipsUnreadyRenderable(t *testing.T) {
	fixture := newFrameFixture(t)

	mesh, err := fixture.meshSystem.CreateMesh("loading", triangleVertices())
	require.NoError(t, err)
	objectID := fixture.hierarchy.AddObject("loading", nil)
	fixture.renderSystem.AddRenderable(objectID, mesh)

	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))
	assert.Equal(t, 0, fixture.backend.lastPass.drawCount())
	assert.Equal(t, 1, fixture.backend.endFrames)
}

func TestDrawFrameReusesCachedPipeline(t *testing.T) {
	fixture := newFrameFixture(t)
	fixture.addTriangle(t, "triangle", math.Vec3{})

	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))
	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))

	assert.Equal(t, 1, fixture.backend.pipelineCreates)
	assert.Equal(t, 1, fixture.renderSystem.PipelineCache().Len())
}

func TestShaderReloadEvictsAndRecompiles(t *testing.T) {
	fixture := newFrameFixture(t)
	fixture.addTriangle(t, "triangle", math.Vec3{})

	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))
	require.Equal(t, 1, fixture.backend.pipelineCreates)

	err := fixture.shaderSystem.ReloadShader("builtin.mesh", []metadata.ShaderStageBlob{
		{Stage: metadata.ShaderStageVertex, Entry: "main", SPIRV: []byte{0, 1, 2, 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fixture.backend.destroyedPipes)
	assert.Equal(t, 0, fixture.renderSystem.PipelineCache().Len())

	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))
	assert.Equal(t, 2, fixture.backend.pipelineCreates)
}

func TestDrawFrameCustomSemanticDelegation(t *testing.T) {
	fixture := newFrameFixture(t)

	// A shader with a renderer-filled slot beyond the transform rows.
	shader := tintedShader("builtin.skinned")
	_, err := fixture.shaderSystem.RegisterShader(shader)
	require.NoError(t, err)

	mesh, err := fixture.meshSystem.CreateMesh("skinned", triangleVertices())
	require.NoError(t, err)
	mesh.SetShader(shader, metadata.RenderState{})

	material, err := fixture.materialSystem.Acquire(&MaterialConfig{Name: "skinned", ShaderName: "builtin.skinned"})
	require.NoError(t, err)
	mesh.SetMaterial(material)

	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	mesh.SetSemanticData(metadata.SemanticKey("tint"), payload)

	objectID := fixture.hierarchy.AddObject("skinned", nil)
	fixture.renderSystem.AddRenderable(objectID, mesh)

	require.NoError(t, fixture.renderSystem.DrawFrame(0.016))

	var instanceBuffer *renderer.DeviceBuffer
	for _, op := range fixture.backend.lastPass.ops {
		if op.op == "vertexbuffer" && op.slot == 1 {
			instanceBuffer = op.handle.(*renderer.DeviceBuffer)
		}
	}
	require.NotNil(t, instanceBuffer)
	gpu := instanceBuffer.Handle().(*fakeGPUBuffer)
	assert.Equal(t, payload, gpu.data[64:80])
}
