package renderer

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// fakeGPUBuffer stands in for a device allocation; uploads land in data so
// tests can inspect committed bytes.
type fakeGPUBuffer struct {
	data []byte
}

type fakeGPUPipeline struct {
	shader *metadata.ReflectedShader
	state  metadata.RenderState
}

type fakeBackend struct {
	bufferCreates   int
	pipelineCreates int
	destroyed       int
}

func (b *fakeBackend) Initialize(appName string, appWidth, appHeight uint32) error { return nil }
func (b *fakeBackend) Shutdown() error                                             { return nil }
func (b *fakeBackend) BeginFrame(deltaTime float64) error                          { return nil }
func (b *fakeBackend) EndFrame(deltaTime float64) error                            { return nil }

func (b *fakeBackend) DeviceBufferCreate(usage metadata.BufferUsage, size uint64) (BufferHandle, error) {
	b.bufferCreates++
	return &fakeGPUBuffer{data: make([]byte, size)}, nil
}

func (b *fakeBackend) DeviceBufferDestroy(handle BufferHandle) {
	b.destroyed++
}

func (b *fakeBackend) DeviceBufferUpload(handle BufferHandle, offset uint64, data []byte) error {
	copy(handle.(*fakeGPUBuffer).data[offset:], data)
	return nil
}

func (b *fakeBackend) PipelineCreate(shader *metadata.ReflectedShader, state metadata.RenderState) (PipelineHandle, error) {
	b.pipelineCreates++
	return &fakeGPUPipeline{shader: shader, state: state}, nil
}

func (b *fakeBackend) PipelineDestroy(handle PipelineHandle) {}

func (b *fakeBackend) RenderPassBegin() (RenderPass, error) { return &fakeRenderPass{}, nil }
func (b *fakeBackend) RenderPassEnd(pass RenderPass) error  { return nil }

// fakeShaderManager compiles through the fake backend so tests can count
// compilations.
type fakeShaderManager struct {
	backend *fakeBackend
}

func (m *fakeShaderManager) CompilePipeline(shader *metadata.ReflectedShader, state metadata.RenderState) (PipelineHandle, error) {
	return m.backend.PipelineCreate(shader, state)
}

// fakeProvider resolves once ready is set.
type fakeProvider struct {
	shader   *metadata.ReflectedShader
	state    metadata.RenderState
	material *Material
	ready    bool
}

func (p *fakeProvider) PipelineSpec() (*metadata.ReflectedShader, metadata.RenderState, bool) {
	if !p.ready {
		return nil, metadata.RenderState{}, false
	}
	return p.shader, p.state, true
}

func (p *fakeProvider) Material() *Material {
	if !p.ready {
		return nil
	}
	return p.material
}

// fakeRenderer is a minimal per-renderable implementation.
type fakeRenderer struct {
	provider      *fakeProvider
	vertexCount   uint32
	vertexBuffers []GenericBufferAllocation[*DeviceBuffer]
	customData    map[metadata.SemanticKey][]byte
}

func (r *fakeRenderer) PipelineProvider() PipelineProvider { return r.provider }
func (r *fakeRenderer) VertexCount() uint32                { return r.vertexCount }
func (r *fakeRenderer) VertexBuffers() []GenericBufferAllocation[*DeviceBuffer] {
	return r.vertexBuffers
}

func (r *fakeRenderer) CopySemanticPerInstanceInput(key metadata.SemanticKey, allocation GenericBufferAllocation[*HostBuffer]) {
	if data, found := r.customData[key]; found {
		allocation.CopyFromSlice(data)
	}
}

// fakeHierarchy returns a fixed matrix for every object.
type fakeHierarchy struct {
	matrix math.Mat4
}

func (h *fakeHierarchy) Matrix(objectID uint32) math.Mat4 { return h.matrix }

// passOp records one call against the fake render pass.
type passOp struct {
	op     string
	slot   uint32
	handle interface{}
	counts [2]uint32
}

type fakeRenderPass struct {
	ops []passOp
}

func (p *fakeRenderPass) SetPipeline(pipeline PipelineHandle) {
	p.ops = append(p.ops, passOp{op: "pipeline", handle: pipeline})
}

func (p *fakeRenderPass) SetBindGroup(group uint32, bindGroup BindGroupHandle) {
	p.ops = append(p.ops, passOp{op: "bindgroup", slot: group, handle: bindGroup})
}

func (p *fakeRenderPass) SetVertexBuffer(slot uint32, allocation GenericBufferAllocation[*DeviceBuffer]) {
	p.ops = append(p.ops, passOp{op: "vertexbuffer", slot: slot, handle: allocation.Buffer()})
}

func (p *fakeRenderPass) Draw(vertexCount, instanceCount uint32) {
	p.ops = append(p.ops, passOp{op: "draw", counts: [2]uint32{vertexCount, instanceCount}})
}

// transformShader is a 64-byte-stride shader whose per-instance input is
// exactly the four world matrix rows.
func transformShader(id uint32) *metadata.ReflectedShader {
	return &metadata.ReflectedShader{
		ID:   id,
		Name: "test-transform",
		PerVertexAttributes: []metadata.VertexAttribute{
			{Name: "position", Location: 0, Format: metadata.VertexFormatFloat32x3, Offset: 0},
		},
		PerVertexStride: 12,
		PerInstanceInput: metadata.PerInstanceInput{
			Stride: 64,
			Elements: []metadata.PerInstanceElement{
				{Attribute: metadata.VertexAttribute{Name: "row0", Location: 1, Format: metadata.VertexFormatFloat32x4, Offset: 0}},
				{Attribute: metadata.VertexAttribute{Name: "row1", Location: 2, Format: metadata.VertexFormatFloat32x4, Offset: 16}},
				{Attribute: metadata.VertexAttribute{Name: "row2", Location: 3, Format: metadata.VertexFormatFloat32x4, Offset: 32}},
				{Attribute: metadata.VertexAttribute{Name: "row3", Location: 4, Format: metadata.VertexFormatFloat32x4, Offset: 48}},
			},
		},
	}
}

func transformSemanticInputs() map[metadata.SemanticKey]SemanticInput {
	return map[metadata.SemanticKey]SemanticInput{
		metadata.KeyTransformRow0: {StepMode: metadata.VertexStepModeInstance, Index: 0, Offset: 0},
		metadata.KeyTransformRow1: {StepMode: metadata.VertexStepModeInstance, Index: 1, Offset: 16},
		metadata.KeyTransformRow2: {StepMode: metadata.VertexStepModeInstance, Index: 2, Offset: 32},
		metadata.KeyTransformRow3: {StepMode: metadata.VertexStepModeInstance, Index: 3, Offset: 48},
	}
}

func transformMaterial(shader *metadata.ReflectedShader) *Material {
	material, err := NewMaterial(1, "test-material", shader, nil, transformSemanticInputs(), nil)
	if err != nil {
		panic(err)
	}
	return material
}
