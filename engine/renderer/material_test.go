package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func TestMaterialValidateAcceptsTransformLayout(t *testing.T) {
	shader := transformShader(1)
	_, err := NewMaterial(1, "ok", shader, nil, transformSemanticInputs(), nil)
	assert.NoError(t, err)
}

func TestMaterialValidateRejectsStrideOverflow(t *testing.T) {
	shader := transformShader(1)
	inputs := transformSemanticInputs()
	// Push row3 past the declared 64-byte stride.
	inputs[metadata.KeyTransformRow3] = SemanticInput{StepMode: metadata.VertexStepModeInstance, Index: 3, Offset: 56}

	_, err := NewMaterial(1, "overflow", shader, nil, inputs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds per-instance stride")
}

func TestMaterialValidateRejectsOverlap(t *testing.T) {
	shader := transformShader(1)
	inputs := transformSemanticInputs()
	inputs[metadata.KeyTransformRow1] = SemanticInput{StepMode: metadata.VertexStepModeInstance, Index: 1, Offset: 8}

	_, err := NewMaterial(1, "overlap", shader, nil, inputs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestMaterialValidateRejectsPropertyOutsideStride(t *testing.T) {
	shader := transformShader(1)
	properties := map[string]*MaterialProperty{
		"tint": {Format: metadata.VertexFormatFloat32x4, Offset: 60},
	}

	_, err := NewMaterial(1, "bad-prop", shader, nil, nil, properties)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds per-instance stride")
}

func TestSetPropertyChecksFormat(t *testing.T) {
	shader := transformShader(1)
	shader.PerInstanceInput.Stride = 80
	properties := map[string]*MaterialProperty{
		"tint": {Format: metadata.VertexFormatFloat32x4, Offset: 64},
	}
	material, err := NewMaterial(1, "props", shader, nil, transformSemanticInputs(), properties)
	require.NoError(t, err)

	assert.Error(t, material.SetProperty("missing", Float32Value(1)))
	assert.Error(t, material.SetProperty("tint", Float32Value(1)))
	assert.NoError(t, material.SetProperty("tint", Vec4Value{X: 1, Y: 0, Z: 0, W: 1}))
	assert.NotNil(t, material.PerInstanceProperties["tint"].Value)

	// Clearing a value is allowed.
	assert.NoError(t, material.SetProperty("tint", nil))
	assert.Nil(t, material.PerInstanceProperties["tint"].Value)
}

func TestSetBindGroup(t *testing.T) {
	shader := transformShader(1)
	holders := []BindGroupHolder{{Group: 0}, {Group: 1}}
	material, err := NewMaterial(1, "groups", shader, holders, transformSemanticInputs(), nil)
	require.NoError(t, err)

	compiled := &struct{}{}
	require.NoError(t, material.SetBindGroup(1, compiled))
	assert.Nil(t, material.BindGroupHolders[0].BindGroup)
	assert.Equal(t, BindGroupHandle(compiled), material.BindGroupHolders[1].BindGroup)

	assert.Error(t, material.SetBindGroup(5, compiled))
}
