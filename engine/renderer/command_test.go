package renderer

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vmath "github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

type commandTestEnv struct {
	backend   *fakeBackend
	pool      *GenericBufferPool
	allocator *FrameBufferAllocator
	cache     *PipelineCache
	shaderMgr *fakeShaderManager
	hierarchy *fakeHierarchy
}

func newCommandTestEnv() *commandTestEnv {
	backend := &fakeBackend{}
	pool := NewGenericBufferPool(backend)
	return &commandTestEnv{
		backend:   backend,
		pool:      pool,
		allocator: NewFrameBufferAllocator(backend, pool),
		cache:     NewPipelineCache(),
		shaderMgr: &fakeShaderManager{backend: backend},
		hierarchy: &fakeHierarchy{matrix: vmath.NewMat4Identity()},
	}
}

func (env *commandTestEnv) build(t *testing.T, rdr Renderer) *RenderingCommand {
	t.Helper()
	command, err := BuildRenderingCommand(1, env.hierarchy, rdr, env.shaderMgr, env.cache, env.allocator)
	require.NoError(t, err)
	return command
}

func float32Bytes(values ...float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], gomath.Float32bits(v))
		out = append(out, b[:]...)
	}
	return out
}

func TestBuildWritesIdentityTransformRows(t *testing.T) {
	env := newCommandTestEnv()

	shader := transformShader(1)
	provider := &fakeProvider{shader: shader, material: transformMaterial(shader), ready: true}
	rdr := &fakeRenderer{provider: provider, vertexCount: 3}

	command := env.build(t, rdr)
	require.NotNil(t, command)
	defer command.Release()

	gpu := command.perInstanceBuffer.Buffer().Handle().(*fakeGPUBuffer)
	expected := float32Bytes(
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	)
	assert.Equal(t, expected, gpu.data[:64], "instance region must be identity rows concatenated in order")
}

func TestBuildWritesTranslationRow(t *testing.T) {
	env := newCommandTestEnv()
	env.hierarchy.matrix = vmath.NewMat4Translation(vmath.Vec3{X: 2, Y: 3, Z: 4})

	shader := transformShader(1)
	provider := &fakeProvider{shader: shader, material: transformMaterial(shader), ready: true}
	rdr := &fakeRenderer{provider: provider, vertexCount: 3}

	command := env.build(t, rdr)
	require.NotNil(t, command)
	defer command.Release()

	gpu := command.perInstanceBuffer.Buffer().Handle().(*fakeGPUBuffer)
	// Row-major translation matrix keeps the offsets in row 3.
	assert.Equal(t, float32Bytes(2, 3, 4, 1), gpu.data[48:64])
}

func TestBuildDelegatesCustomSemantics(t *testing.T) {
	env := newCommandTestEnv()

	shader := transformShader(1)
	shader.PerInstanceInput.Stride = 80
	shader.PerInstanceInput.Elements = append(shader.PerInstanceInput.Elements, metadata.PerInstanceElement{
		Attribute: metadata.VertexAttribute{Name: "skin_index", Location: 5, Format: metadata.VertexFormatUint32x4, Offset: 64},
	})

	inputs := transformSemanticInputs()
	inputs["skin_index"] = SemanticInput{StepMode: metadata.VertexStepModeInstance, Index: 4, Offset: 64}
	material, err := NewMaterial(1, "skinned", shader, nil, inputs, nil)
	require.NoError(t, err)

	provider := &fakeProvider{shader: shader, material: material, ready: true}
	rdr := &fakeRenderer{
		provider:    provider,
		vertexCount: 3,
		customData: map[metadata.SemanticKey][]byte{
			"skin_index": {9, 0, 0, 0, 8, 0, 0, 0, 7, 0, 0, 0, 6, 0, 0, 0},
		},
	}

	command := env.build(t, rdr)
	require.NotNil(t, command)
	defer command.Release()

	gpu := command.perInstanceBuffer.Buffer().Handle().(*fakeGPUBuffer)
	assert.Equal(t, []byte{9, 0, 0, 0, 8, 0, 0, 0, 7, 0, 0, 0, 6, 0, 0, 0}, gpu.data[64:80])
}

func TestBuildWritesPresentPropertyValues(t *testing.T) {
	env := newCommandTestEnv()

	shader := transformShader(1)
	shader.PerInstanceInput.Stride = 80
	properties := map[string]*MaterialProperty{
		"tint":  {Format: metadata.VertexFormatFloat32x4, Offset: 64},
		"unset": {Format: metadata.VertexFormatFloat32, Offset: 76},
	}
	material, err := NewMaterial(1, "tinted", shader, nil, transformSemanticInputs(), properties)
	require.NoError(t, err)
	require.NoError(t, material.SetProperty("tint", Vec4Value{X: 1, Y: 0.5, Z: 0, W: 1}))

	provider := &fakeProvider{shader: shader, material: material, ready: true}
	command := env.build(t, &fakeRenderer{provider: provider, vertexCount: 3})
	require.NotNil(t, command)
	defer command.Release()

	gpu := command.perInstanceBuffer.Buffer().Handle().(*fakeGPUBuffer)
	assert.Equal(t, float32Bytes(1, 0.5, 0, 1), gpu.data[64:80])
}

func TestBuildSkipsUnresolvedRenderable(t *testing.T) {
	env := newCommandTestEnv()

	shader := transformShader(1)
	provider := &fakeProvider{shader: shader, material: transformMaterial(shader), ready: false}
	rdr := &fakeRenderer{provider: provider, vertexCount: 3}

	command, err := BuildRenderingCommand(1, env.hierarchy, rdr, env.shaderMgr, env.cache, env.allocator)
	require.NoError(t, err)
	assert.Nil(t, command, "asset not ready is normal control flow")
	assert.Equal(t, 0, env.backend.pipelineCreates)
	assert.Equal(t, 0, env.backend.bufferCreates)

	// Once the provider resolves, the command appears fully formed.
	provider.ready = true
	command = env.build(t, rdr)
	require.NotNil(t, command)
	defer command.Release()
	assert.NotNil(t, command.Pipeline())
	assert.NotNil(t, command.perInstanceBuffer)
}

func TestBuildResolvesSameMaterialTwice(t *testing.T) {
	env := newCommandTestEnv()

	shader := transformShader(1)
	material := transformMaterial(shader)
	provider := &fakeProvider{shader: shader, material: material, ready: true}

	command := env.build(t, &fakeRenderer{provider: provider, vertexCount: 3})
	require.NotNil(t, command)
	defer command.Release()

	assert.Same(t, material, command.Material(), "both provider resolutions must observe the same material")
}

func TestCommandHoldsMaterialReadLock(t *testing.T) {
	env := newCommandTestEnv()

	shader := transformShader(1)
	material := transformMaterial(shader)
	provider := &fakeProvider{shader: shader, material: material, ready: true}

	command := env.build(t, &fakeRenderer{provider: provider, vertexCount: 3})
	require.NotNil(t, command)

	assert.False(t, material.mu.TryLock(), "exclusive acquisition must block while the command is live")

	command.Release()
	assert.True(t, material.mu.TryLock())
	material.mu.Unlock()

	assert.Panics(t, func() { command.Release() })
}

func TestRenderReplaysBindSequence(t *testing.T) {
	env := newCommandTestEnv()

	shader := transformShader(1)
	compiledBindGroup := &struct{}{}
	holders := []BindGroupHolder{
		{Group: 0, BindGroup: compiledBindGroup},
		{Group: 1}, // still loading, must be skipped
	}
	material, err := NewMaterial(1, "bound", shader, holders, transformSemanticInputs(), nil)
	require.NoError(t, err)

	vertexBuffer, err := env.pool.Checkout(metadata.BufferUsageVertex, 36)
	require.NoError(t, err)

	provider := &fakeProvider{shader: shader, material: material, ready: true}
	rdr := &fakeRenderer{
		provider:      provider,
		vertexCount:   3,
		vertexBuffers: []GenericBufferAllocation[*DeviceBuffer]{NewBufferAllocation(vertexBuffer, 0, 36)},
	}

	command := env.build(t, rdr)
	require.NotNil(t, command)
	defer command.Release()

	pass := &fakeRenderPass{}
	command.Render(pass)

	require.Len(t, pass.ops, 5)
	assert.Equal(t, "pipeline", pass.ops[0].op)
	assert.Equal(t, "bindgroup", pass.ops[1].op)
	assert.Equal(t, uint32(0), pass.ops[1].slot)
	assert.Equal(t, "vertexbuffer", pass.ops[2].op)
	assert.Equal(t, uint32(0), pass.ops[2].slot)
	assert.Equal(t, "vertexbuffer", pass.ops[3].op)
	assert.Equal(t, uint32(1), pass.ops[3].slot, "per-instance buffer binds after the last per-vertex buffer")
	assert.Equal(t, "draw", pass.ops[4].op)
	assert.Equal(t, [2]uint32{3, 1}, pass.ops[4].counts)
}

func TestRenderPanicsWithoutPipeline(t *testing.T) {
	command := &RenderingCommand{}
	assert.Panics(t, func() { command.Render(&fakeRenderPass{}) })
}
