package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/** @brief Configuration for a material to be acquired. */
type MaterialConfig struct {
	/** @brief The material name. */
	Name string
	/** @brief The name of the shader the material renders with. */
	ShaderName string
	/** @brief Bind group handles, one per group the shader declares. */
	BindGroups []renderer.BindGroupHolder
	/** @brief Named per-instance property defaults, keyed by attribute name. */
	Properties map[string]renderer.PropertyValue
}

type materialReference struct {
	material       *renderer.Material
	referenceCount uint32
}

// MaterialSystem hands out shared, reference-counted materials. Acquiring
// the same name twice returns the same material; it is destroyed when the
// last holder releases it.
type MaterialSystem struct {
	mu           sync.Mutex
	references   map[string]*materialReference
	shaderSystem *ShaderSystem
}

func NewMaterialSystem(shaderSystem *ShaderSystem) (*MaterialSystem, error) {
	if shaderSystem == nil {
		return nil, fmt.Errorf("NewMaterialSystem requires a shader system")
	}
	return &MaterialSystem{
		references:   make(map[string]*materialReference),
		shaderSystem: shaderSystem,
	}, nil
}

func (ms *MaterialSystem) Shutdown() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for name, reference := range ms.references {
		if reference.referenceCount > 0 {
			core.LogWarn("Material '%s' still has %d holders at shutdown.", name, reference.referenceCount)
		}
	}
	ms.references = make(map[string]*materialReference)
	return nil
}

// Acquire returns the material for config.Name, creating it on first use.
// The per-instance layout is derived from the shader's reflection data.
func (ms *MaterialSystem) Acquire(config *MaterialConfig) (*renderer.Material, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if reference, found := ms.references[config.Name]; found {
		reference.referenceCount++
		return reference.material, nil
	}

	shader, err := ms.shaderSystem.GetShader(config.ShaderName)
	if err != nil {
		return nil, err
	}

	// Each reflected element is either a semantic input the renderer
	// fills, or a property game logic sets. The config's property names
	// draw the line.
	semanticInputs := make(map[metadata.SemanticKey]renderer.SemanticInput)
	properties := make(map[string]*renderer.MaterialProperty)
	for index, element := range shader.PerInstanceInput.Elements {
		name := element.Attribute.Name
		if _, isProperty := config.Properties[name]; isProperty && !isTransformRow(metadata.SemanticKey(name)) {
			properties[name] = &renderer.MaterialProperty{
				Format: element.Attribute.Format,
				Offset: element.Attribute.Offset,
			}
			continue
		}
		semanticInputs[metadata.SemanticKey(name)] = renderer.SemanticInput{
			StepMode: metadata.VertexStepModeInstance,
			Index:    index,
			Offset:   element.Attribute.Offset,
		}
	}

	material, err := renderer.NewMaterial(
		core.IdentifierAcquireNewID(config.Name),
		config.Name,
		shader,
		config.BindGroups,
		semanticInputs,
		properties,
	)
	if err != nil {
		return nil, err
	}

	for name, value := range config.Properties {
		if err := material.SetProperty(name, value); err != nil {
			return nil, fmt.Errorf("material '%s': %w", config.Name, err)
		}
	}

	ms.references[config.Name] = &materialReference{
		material:       material,
		referenceCount: 1,
	}
	core.LogDebug("Created material '%s' (shader '%s').", config.Name, config.ShaderName)
	return material, nil
}

// Release drops one reference to the named material, destroying it when
// no holders remain.
func (ms *MaterialSystem) Release(name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	reference, found := ms.references[name]
	if !found {
		return fmt.Errorf("material '%s' was never acquired", name)
	}
	reference.referenceCount--
	if reference.referenceCount == 0 {
		if err := core.IdentifierReleaseID(reference.material.ID); err != nil {
			core.LogWarn("failed to release material id %d: %s", reference.material.ID, err)
		}
		delete(ms.references, name)
		core.LogDebug("Destroyed material '%s'.", name)
	}
	return nil
}

// SemanticInputsFromReflection maps every reflected per-instance element
// to the semantic key with the attribute's name. Renderers fill
// non-transform keys themselves.
func SemanticInputsFromReflection(shader *metadata.ReflectedShader) map[metadata.SemanticKey]renderer.SemanticInput {
	inputs := make(map[metadata.SemanticKey]renderer.SemanticInput, len(shader.PerInstanceInput.Elements))
	for index, element := range shader.PerInstanceInput.Elements {
		inputs[metadata.SemanticKey(element.Attribute.Name)] = renderer.SemanticInput{
			StepMode: metadata.VertexStepModeInstance,
			Index:    index,
			Offset:   element.Attribute.Offset,
		}
	}
	return inputs
}

func isTransformRow(key metadata.SemanticKey) bool {
	switch key {
	case metadata.KeyTransformRow0, metadata.KeyTransformRow1, metadata.KeyTransformRow2, metadata.KeyTransformRow3:
		return true
	}
	return false
}
