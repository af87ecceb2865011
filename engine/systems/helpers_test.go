package systems

import (
	"github.com/spaghettifunk/prisma/engine/renderer"
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
	beginFrames     int
	endFrames       int
	bufferCreates   int
	pipelineCreates int
	destroyedPipes  int

	lastPass *fakeRenderPass
}

func (b *fakeBackend) Initialize(appName string, appWidth, appHeight uint32) error { return nil }
func (b *fakeBackend) Shutdown() error                                             { return nil }

func (b *fakeBackend) BeginFrame(deltaTime float64) error {
	b.beginFrames++
	return nil
}

func (b *fakeBackend) EndFrame(deltaTime float64) error {
	b.endFrames++
	return nil
}

func (b *fakeBackend) DeviceBufferCreate(usage metadata.BufferUsage, size uint64) (renderer.BufferHandle, error) {
	b.bufferCreates++
	return &fakeGPUBuffer{data: make([]byte, size)}, nil
}

func (b *fakeBackend) DeviceBufferDestroy(handle renderer.BufferHandle) {}

func (b *fakeBackend) DeviceBufferUpload(handle renderer.BufferHandle, offset uint64, data []byte) error {
	copy(handle.(*fakeGPUBuffer).data[offset:], data)
	return nil
}

func (b *fakeBackend) PipelineCreate(shader *metadata.ReflectedShader, state metadata.RenderState) (renderer.PipelineHandle, error) {
	b.pipelineCreates++
	return &fakeGPUPipeline{shader: shader, state: state}, nil
}

func (b *fakeBackend) PipelineDestroy(handle renderer.PipelineHandle) {
	b.destroyedPipes++
}

func (b *fakeBackend) RenderPassBegin() (renderer.RenderPass, error) {
	b.lastPass = &fakeRenderPass{}
	return b.lastPass, nil
}

func (b *fakeBackend) RenderPassEnd(pass renderer.RenderPass) error { return nil }

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

func (p *fakeRenderPass) SetPipeline(pipeline renderer.PipelineHandle) {
	p.ops = append(p.ops, passOp{op: "pipeline", handle: pipeline})
}

func (p *fakeRenderPass) SetBindGroup(group uint32, bindGroup renderer.BindGroupHandle) {
	p.ops = append(p.ops, passOp{op: "bindgroup", slot: group, handle: bindGroup})
}

func (p *fakeRenderPass) SetVertexBuffer(slot uint32, allocation renderer.GenericBufferAllocation[*renderer.DeviceBuffer]) {
	p.ops = append(p.ops, passOp{op: "vertexbuffer", slot: slot, handle: allocation.Buffer()})
}

func (p *fakeRenderPass) Draw(vertexCount, instanceCount uint32) {
	p.ops = append(p.ops, passOp{op: "draw", counts: [2]uint32{vertexCount, instanceCount}})
}

func (p *fakeRenderPass) drawCount() int {
	count := 0
	for _, op := range p.ops {
		if op.op == "draw" {
			count++
		}
	}
	return count
}

// transformShader reflects a 64-byte per-instance stride holding exactly
// the four world matrix rows, named so the material system wires them to
// the reserved transform keys.
func transformShader(name string) *metadata.ReflectedShader {
	return &metadata.ReflectedShader{
		Name: name,
		PerVertexAttributes: []metadata.VertexAttribute{
			{Name: "position", Location: 0, Format: metadata.VertexFormatFloat32x3, Offset: 0},
		},
		PerVertexStride: 12,
		PerInstanceInput: metadata.PerInstanceInput{
			Stride: 64,
			Elements: []metadata.PerInstanceElement{
				{Attribute: metadata.VertexAttribute{Name: "transform_row_0", Location: 1, Format: metadata.VertexFormatFloat32x4, Offset: 0}},
				{Attribute: metadata.VertexAttribute{Name: "transform_row_1", Location: 2, Format: metadata.VertexFormatFloat32x4, Offset: 16}},
				{Attribute: metadata.VertexAttribute{Name: "transform_row_2", Location: 3, Format: metadata.VertexFormatFloat32x4, Offset: 32}},
				{Attribute: metadata.VertexAttribute{Name: "transform_row_3", Location: 4, Format: metadata.VertexFormatFloat32x4, Offset: 48}},
			},
		},
	}
}

// tintedShader extends the transform layout with a vec4 tint property.
func tintedShader(name string) *metadata.ReflectedShader {
	shader := transformShader(name)
	shader.PerInstanceInput.Stride = 80
	shader.PerInstanceInput.Elements = append(shader.PerInstanceInput.Elements,
		metadata.PerInstanceElement{Attribute: metadata.VertexAttribute{Name: "tint", Location: 5, Format: metadata.VertexFormatFloat32x4, Offset: 64}})
	return shader
}
