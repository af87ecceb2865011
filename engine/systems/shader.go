package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief The maximum number of shaders held in the system. */
	MaxShaderCount uint16
}

// ShaderSystem owns reflected shader descriptors and compiles pipelines
// for them through the backend. It is the renderer.ShaderManager the
// pipeline cache talks to.
type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig
	// A lookup table for shader name->id
	Lookup map[string]uint32

	mu      sync.RWMutex
	shaders map[uint32]*metadata.ReflectedShader
	backend renderer.Backend
}

func NewShaderSystem(config *ShaderSystemConfig, backend renderer.Backend) (*ShaderSystem, error) {
	if config.MaxShaderCount == 0 {
		err := fmt.Errorf("NewShaderSystem - config.MaxShaderCount must be greater than 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &ShaderSystem{
		Config:  config,
		Lookup:  make(map[string]uint32),
		shaders: make(map[uint32]*metadata.ReflectedShader),
		backend: backend,
	}, nil
}

func (s *ShaderSystem) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.shaders {
		if err := core.IdentifierReleaseID(id); err != nil {
			core.LogWarn("failed to release shader id %d: %s", id, err)
		}
	}
	s.shaders = make(map[uint32]*metadata.ReflectedShader)
	s.Lookup = make(map[string]uint32)
	return nil
}

// RegisterShader takes ownership of a reflected shader descriptor,
// assigns it an id and makes it resolvable by name.
func (s *ShaderSystem) RegisterShader(shader *metadata.ReflectedShader) (uint32, error) {
	if shader == nil || shader.Name == "" {
		return core.InvalidID, fmt.Errorf("RegisterShader requires a named shader")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.shaders) >= int(s.Config.MaxShaderCount) {
		return core.InvalidID, fmt.Errorf("shader system is full (max=%d)", s.Config.MaxShaderCount)
	}
	if _, exists := s.Lookup[shader.Name]; exists {
		return core.InvalidID, fmt.Errorf("shader '%s' is already registered", shader.Name)
	}

	shader.ID = core.IdentifierAcquireNewID(shader)
	s.shaders[shader.ID] = shader
	s.Lookup[shader.Name] = shader.ID

	core.LogDebug("Registered shader '%s' with id %d.", shader.Name, shader.ID)
	return shader.ID, nil
}

// GetShader resolves a shader by name.
func (s *ShaderSystem) GetShader(name string) (*metadata.ReflectedShader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, found := s.Lookup[name]
	if !found {
		return nil, fmt.Errorf("shader '%s': %w", name, core.ErrShaderNotFound)
	}
	return s.shaders[id], nil
}

func (s *ShaderSystem) GetShaderByID(id uint32) (*metadata.ReflectedShader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shader, found := s.shaders[id]
	if !found {
		return nil, fmt.Errorf("shader id %d: %w", id, core.ErrShaderNotFound)
	}
	return shader, nil
}

// ReloadShader swaps in freshly compiled stage blobs for a registered
// shader and announces the reload so cached pipelines can be evicted.
func (s *ShaderSystem) ReloadShader(name string, stages []metadata.ShaderStageBlob) error {
	s.mu.Lock()
	id, found := s.Lookup[name]
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("shader '%s': %w", name, core.ErrShaderNotFound)
	}
	s.shaders[id].Stages = stages
	s.mu.Unlock()

	context := core.EventContext{}
	context.Data.S[0] = name
	core.EventFire(core.EVENT_CODE_SHADER_RELOADED, s, context)

	core.LogInfo("Shader '%s' reloaded.", name)
	return nil
}

// CompilePipeline satisfies renderer.ShaderManager by delegating to the
// backend's pipeline compiler.
func (s *ShaderSystem) CompilePipeline(shader *metadata.ReflectedShader, state metadata.RenderState) (renderer.PipelineHandle, error) {
	return s.backend.PipelineCreate(shader, state)
}
