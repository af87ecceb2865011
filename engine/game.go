package engine

import (
	"github.com/spaghettifunk/prisma/engine/scene"
	"github.com/spaghettifunk/prisma/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	Systems           *SystemBundle
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error

/** @brief the systems the engine exposes to the game once initialized */
type SystemBundle struct {
	ShaderSystem   *systems.ShaderSystem
	MaterialSystem *systems.MaterialSystem
	MeshSystem     *systems.MeshSystem
	RenderSystem   *systems.RenderSystem
	Hierarchy      *scene.Hierarchy
}
