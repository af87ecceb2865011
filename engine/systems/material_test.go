package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func newMaterialFixture(t *testing.T, shader *metadata.ReflectedShader) (*MaterialSystem, *ShaderSystem) {
	t.Helper()
	shaderSystem := newShaderSystem(t, &fakeBackend{})
	_, err := shaderSystem.RegisterShader(shader)
	require.NoError(t, err)
	materialSystem, err := NewMaterialSystem(shaderSystem)
	require.NoError(t, err)
	return materialSystem, shaderSystem
}

func TestMaterialSystemAcquireBuildsTransformLayout(t *testing.T) {
	materialSystem, _ := newMaterialFixture(t, transformShader("builtin.mesh"))

	material, err := materialSystem.Acquire(&MaterialConfig{
		Name:       "crate",
		ShaderName: "builtin.mesh",
	})
	require.NoError(t, err)

	// All four rows wire to the reserved transform semantics.
	require.Len(t, material.SemanticInputs, 4)
	input, found := material.SemanticInputs[metadata.KeyTransformRow2]
	require.True(t, found)
	assert.Equal(t, uint64(32), input.Offset)
	assert.Equal(t, metadata.VertexStepModeInstance, input.StepMode)
	assert.Empty(t, material.PerInstanceProperties)
}

func TestMaterialSystemAcquireSplitsProperties(t *testing.T) {
	materialSystem, _ := newMaterialFixture(t, tintedShader("builtin.tinted"))

	tint := renderer.Vec4Value{X: 1, Y: 0, Z: 0, W: 1}
	material, err := materialSystem.Acquire(&MaterialConfig{
		Name:       "red-crate",
		ShaderName: "builtin.tinted",
		Properties: map[string]renderer.PropertyValue{"tint": tint},
	})
	require.NoError(t, err)

	assert.Len(t, material.SemanticInputs, 4)
	require.Contains(t, material.PerInstanceProperties, "tint")
	property := material.PerInstanceProperties["tint"]
	assert.Equal(t, uint64(64), property.Offset)
	assert.Equal(t, tint, property.Value)
}

func TestMaterialSystemAcquireIsRefCounted(t *testing.T) {
	materialSystem, _ := newMaterialFixture(t, transformShader("builtin.mesh"))

	config := &MaterialConfig{Name: "crate", ShaderName: "builtin.mesh"}
	first, err := materialSystem.Acquire(config)
	require.NoError(t, err)
	second, err := materialSystem.Acquire(config)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, materialSystem.Release("crate"))
	// Still held once; a later acquire returns the same material.
	third, err := materialSystem.Acquire(config)
	require.NoError(t, err)
	assert.Same(t, first, third)

	require.NoError(t, materialSystem.Release("crate"))
	require.NoError(t, materialSystem.Release("crate"))
	assert.Error(t, materialSystem.Release("crate"))
}

func TestMaterialSystemAcquireUnknownShader(t *testing.T) {
	materialSystem, _ := newMaterialFixture(t, transformShader("builtin.mesh"))
	_, err := materialSystem.Acquire(&MaterialConfig{Name: "broken", ShaderName: "missing"})
	assert.Error(t, err)
}

func TestSemanticInputsFromReflection(t *testing.T) {
	inputs := SemanticInputsFromReflection(tintedShader("builtin.tinted"))
	require.Len(t, inputs, 5)
	assert.Equal(t, 4, inputs[metadata.SemanticKey("tint")].Index)
	assert.Equal(t, uint64(64), inputs[metadata.SemanticKey("tint")].Offset)
}
