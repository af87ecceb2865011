package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func newShaderSystem(t *testing.T, backend *fakeBackend) *ShaderSystem {
	t.Helper()
	system, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 16}, backend)
	require.NoError(t, err)
	return system
}

func TestShaderSystemRegisterAndLookup(t *testing.T) {
	system := newShaderSystem(t, &fakeBackend{})

	id, err := system.RegisterShader(transformShader("builtin.mesh"))
	require.NoError(t, err)
	require.NotEqual(t, core.InvalidID, id)

	byName, err := system.GetShader("builtin.mesh")
	require.NoError(t, err)
	byID, err := system.GetShaderByID(id)
	require.NoError(t, err)
	assert.Same(t, byName, byID)
}

func TestShaderSystemRejectsDuplicates(t *testing.T) {
	system := newShaderSystem(t, &fakeBackend{})

	_, err := system.RegisterShader(transformShader("builtin.mesh"))
	require.NoError(t, err)
	_, err = system.RegisterShader(transformShader("builtin.mesh"))
	assert.Error(t, err)
}

func TestShaderSystemUnknownShader(t *testing.T) {
	system := newShaderSystem(t, &fakeBackend{})

	_, err := system.GetShader("missing")
	assert.ErrorIs(t, err, core.ErrShaderNotFound)
}

func TestShaderSystemCompileDelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{}
	system := newShaderSystem(t, backend)

	shader := transformShader("builtin.mesh")
	_, err := system.RegisterShader(shader)
	require.NoError(t, err)

	handle, err := system.CompilePipeline(shader, metadata.RenderState{})
	require.NoError(t, err)
	assert.NotNil(t, handle)
	assert.Equal(t, 1, backend.pipelineCreates)
}

func TestShaderSystemReloadFiresEvent(t *testing.T) {
	core.EventInitialize()
	defer core.EventShutdown()

	system := newShaderSystem(t, &fakeBackend{})
	_, err := system.RegisterShader(transformShader("builtin.mesh"))
	require.NoError(t, err)

	var reloadedName string
	listener := struct{}{}
	core.EventRegister(core.EVENT_CODE_SHADER_RELOADED, &listener,
		func(code core.SystemEventCode, sender interface{}, l interface{}, data core.EventContext) bool {
			reloadedName = data.Data.S[0]
			return true
		})
	defer core.EventUnregister(core.EVENT_CODE_SHADER_RELOADED, &listener)

	err = system.ReloadShader("builtin.mesh", []metadata.ShaderStageBlob{
		{Stage: metadata.ShaderStageVertex, Entry: "main", SPIRV: []byte{1, 2, 3, 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "builtin.mesh", reloadedName)

	shader, err := system.GetShader("builtin.mesh")
	require.NoError(t, err)
	assert.Len(t, shader.Stages, 1)
}

func TestShaderSystemReloadUnknownShader(t *testing.T) {
	system := newShaderSystem(t, &fakeBackend{})
	err := system.ReloadShader("missing", nil)
	assert.ErrorIs(t, err, core.ErrShaderNotFound)
}
