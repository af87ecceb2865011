package testbed

import (
	"github.com/spaghettifunk/prisma/engine"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/systems"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	cube       *systems.MeshRenderer
	cubeObject uint32
}

func NewTestGame() (*TestGame, error) {
	config, err := engine.LoadApplicationConfig("prisma.toml")
	if err != nil {
		return nil, err
	}
	config.Name = "Prisma Testbed"

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")

	state := g.State.(*gameState)

	shader := meshShader()
	if _, err := g.Systems.ShaderSystem.RegisterShader(shader); err != nil {
		return err
	}

	cube, err := g.Systems.MeshSystem.CreateMesh("test_cube", cubeVertices(1.0))
	if err != nil {
		return err
	}
	cube.SetShader(shader, metadata.RenderState{
		DepthStencil: metadata.DepthStencilModeDepthOnly,
		CullMode:     metadata.FaceCullModeBack,
	})

	material, err := g.Systems.MaterialSystem.Acquire(&systems.MaterialConfig{
		Name:       "test_material",
		ShaderName: shader.Name,
		Properties: map[string]renderer.PropertyValue{
			"tint": renderer.Vec4Value{X: 0.9, Y: 0.5, Z: 0.2, W: 1.0},
		},
	})
	if err != nil {
		return err
	}
	cube.SetMaterial(material)

	state.cube = cube
	state.cubeObject = g.Systems.Hierarchy.AddObject("test_cube", math.TransformCreate())
	g.Systems.RenderSystem.AddRenderable(state.cubeObject, cube)

	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)

	rotation := math.NewQuatFromAxisAngle(math.Vec3{Y: 1}, float32(0.5*deltaTime), false)
	if object, ok := g.Systems.Hierarchy.Object(state.cubeObject); ok {
		object.Transform.Rotate(rotation)
	}

	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)

	if state.cube != nil {
		g.Systems.RenderSystem.RemoveRenderable(state.cubeObject)
		if err := g.Systems.Hierarchy.RemoveObject(state.cubeObject); err != nil {
			core.LogWarn(err.Error())
		}
		if err := g.Systems.MaterialSystem.Release("test_material"); err != nil {
			core.LogWarn(err.Error())
		}
		if err := g.Systems.MeshSystem.DestroyMesh("test_cube"); err != nil {
			core.LogWarn(err.Error())
		}
		state.cube = nil
	}
	return nil
}

// meshShader is the reflection the testbed uses until real SPIR-V
// reflection lands: position/normal/texcoord/colour per vertex, a world
// matrix plus a tint colour per instance.
func meshShader() *metadata.ReflectedShader {
	return &metadata.ReflectedShader{
		Name: "builtin.mesh",
		PerVertexAttributes: []metadata.VertexAttribute{
			{Name: "position", Location: 0, Format: metadata.VertexFormatFloat32x3, Offset: 0},
			{Name: "normal", Location: 1, Format: metadata.VertexFormatFloat32x3, Offset: 12},
			{Name: "texcoord", Location: 2, Format: metadata.VertexFormatFloat32x2, Offset: 24},
			{Name: "colour", Location: 3, Format: metadata.VertexFormatFloat32x4, Offset: 32},
		},
		PerVertexStride: systems.Vertex3DStride,
		PerInstanceInput: metadata.PerInstanceInput{
			Stride: 80,
			Elements: []metadata.PerInstanceElement{
				{Attribute: metadata.VertexAttribute{Name: "transform_row_0", Location: 4, Format: metadata.VertexFormatFloat32x4, Offset: 0}},
				{Attribute: metadata.VertexAttribute{Name: "transform_row_1", Location: 5, Format: metadata.VertexFormatFloat32x4, Offset: 16}},
				{Attribute: metadata.VertexAttribute{Name: "transform_row_2", Location: 6, Format: metadata.VertexFormatFloat32x4, Offset: 32}},
				{Attribute: metadata.VertexAttribute{Name: "transform_row_3", Location: 7, Format: metadata.VertexFormatFloat32x4, Offset: 48}},
				{Attribute: metadata.VertexAttribute{Name: "tint", Location: 8, Format: metadata.VertexFormatFloat32x4, Offset: 64}},
			},
		},
		Stages: []metadata.ShaderStageBlob{
			{Stage: metadata.ShaderStageVertex, Entry: "main"},
			{Stage: metadata.ShaderStageFragment, Entry: "main"},
		},
	}
}

// cubeVertices builds an axis-aligned cube centered at the origin,
// 6 faces of 2 triangles each.
func cubeVertices(size float32) []math.Vertex3D {
	h := size * 0.5
	white := math.Vec4{X: 1, Y: 1, Z: 1, W: 1}

	type face struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}
	faces := []face{
		{math.Vec3{Z: 1}, [4]math.Vec3{{X: -h, Y: -h, Z: h}, {X: h, Y: -h, Z: h}, {X: h, Y: h, Z: h}, {X: -h, Y: h, Z: h}}},
		{math.Vec3{Z: -1}, [4]math.Vec3{{X: h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: -h}, {X: -h, Y: h, Z: -h}, {X: h, Y: h, Z: -h}}},
		{math.Vec3{X: 1}, [4]math.Vec3{{X: h, Y: -h, Z: h}, {X: h, Y: -h, Z: -h}, {X: h, Y: h, Z: -h}, {X: h, Y: h, Z: h}}},
		{math.Vec3{X: -1}, [4]math.Vec3{{X: -h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: h}, {X: -h, Y: h, Z: h}, {X: -h, Y: h, Z: -h}}},
		{math.Vec3{Y: 1}, [4]math.Vec3{{X: -h, Y: h, Z: h}, {X: h, Y: h, Z: h}, {X: h, Y: h, Z: -h}, {X: -h, Y: h, Z: -h}}},
		{math.Vec3{Y: -1}, [4]math.Vec3{{X: -h, Y: -h, Z: -h}, {X: h, Y: -h, Z: -h}, {X: h, Y: -h, Z: h}, {X: -h, Y: -h, Z: h}}},
	}
	uvs := [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	indices := [6]int{0, 1, 2, 0, 2, 3}

	vertices := make([]math.Vertex3D, 0, len(faces)*len(indices))
	for _, f := range faces {
		for _, idx := range indices {
			vertices = append(vertices, math.Vertex3D{
				Position: f.corners[idx],
				Normal:   f.normal,
				Texcoord: uvs[idx],
				Colour:   white,
			})
		}
	}
	return vertices
}
