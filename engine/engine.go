package engine

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/assets"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer/vulkan"
	"github.com/spaghettifunk/prisma/engine/scene"
	"github.com/spaghettifunk/prisma/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool

	platform *platform.Platform
	backend  *vulkan.VulkanRenderer

	hierarchy      *scene.Hierarchy
	shaderSystem   *systems.ShaderSystem
	materialSystem *systems.MaterialSystem
	meshSystem     *systems.MeshSystem
	renderSystem   *systems.RenderSystem
	shaderWatcher  *assets.ShaderWatcher

	width  uint32
	height uint32

	clock    *core.Clock
	lastTime float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("engine requires a game with an application config")
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		isRunning:    false,
		isSuspended:  false,
		platform:     p,
		backend:      vulkan.New(p),
		hierarchy:    scene.NewHierarchy(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
		clock:        core.NewClock(),
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting

	config := e.gameInstance.ApplicationConfig
	core.SetLogLevel(config.LogLevel)

	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
		return err
	}

	e.currentStage = EngineStageBootComplete

	if err := e.backend.Initialize(config.Name, e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitializing

	shaderSystem, err := systems.NewShaderSystem(&systems.ShaderSystemConfig{
		MaxShaderCount: config.MaxShaderCount,
	}, e.backend)
	if err != nil {
		return err
	}
	e.shaderSystem = shaderSystem

	materialSystem, err := systems.NewMaterialSystem(shaderSystem)
	if err != nil {
		return err
	}
	e.materialSystem = materialSystem

	renderSystem, err := systems.NewRenderSystem(e.backend, shaderSystem, e.hierarchy)
	if err != nil {
		return err
	}
	e.renderSystem = renderSystem

	meshSystem, err := systems.NewMeshSystem(e.backend, renderSystem.BufferPool())
	if err != nil {
		return err
	}
	e.meshSystem = meshSystem

	if config.ShaderDir != "" {
		watcher, err := assets.NewShaderWatcher(config.ShaderDir, shaderSystem)
		if err != nil {
			core.LogWarn("shader hot reload unavailable: %s", err.Error())
		} else {
			e.shaderWatcher = watcher
			watcher.Start()
		}
	}

	e.gameInstance.Systems = &SystemBundle{
		ShaderSystem:   e.shaderSystem,
		MaterialSystem: e.materialSystem,
		MeshSystem:     e.meshSystem,
		RenderSystem:   e.renderSystem,
		Hierarchy:      e.hierarchy,
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	e.isRunning = true
	e.currentStage = EngineStageRunning

	for e.isRunning {
		e.platform.PumpMessages()

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogFatal("game update failed, shutting down")
				e.isRunning = false
				break
			}
		}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(delta); err != nil {
				core.LogFatal("game render failed, shutting down")
				e.isRunning = false
				break
			}
		}

		if err := e.renderSystem.DrawFrame(delta); err != nil {
			core.LogError("frame %d failed: %s", e.backend.FrameNumber, err.Error())
		}

		e.clock.Update()
		core.MetricsUpdate(e.clock.Elapsed() - currentTime)

		e.lastTime = currentTime
	}

	return e.Shutdown()
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.shaderWatcher != nil {
		if err := e.shaderWatcher.Close(); err != nil {
			core.LogWarn("shader watcher close: %s", err.Error())
		}
	}

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogWarn("game shutdown: %s", err.Error())
		}
	}

	if e.meshSystem != nil {
		if err := e.meshSystem.Shutdown(); err != nil {
			return err
		}
	}
	if e.materialSystem != nil {
		if err := e.materialSystem.Shutdown(); err != nil {
			return err
		}
	}
	if e.renderSystem != nil {
		if err := e.renderSystem.Shutdown(); err != nil {
			return err
		}
	}
	if e.shaderSystem != nil {
		if err := e.shaderSystem.Shutdown(); err != nil {
			return err
		}
	}

	if err := e.backend.Shutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	core.EventUnregister(core.EVENT_CODE_RESIZED, e)
	return core.EventShutdown()
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onQuit(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	core.LogInfo("application quit requested, shutting down")
	e.isRunning = false
	return true
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]

	if width == e.width && height == e.height {
		return false
	}

	e.width = width
	e.height = height

	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application")
		e.isSuspended = true
		return true
	}

	if e.isSuspended {
		core.LogInfo("window restored, resuming application")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize handler: %s", err.Error())
		}
	}
	return false
}
