package renderer

import (
	"encoding/binary"
	"fmt"
	gomath "math"
	"sort"
	"sync"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief Holds one binding group slot of a material. The compiled bind
 * group may be absent while its resources (e.g. textures) are still
 * loading; rendering skips absent holders.
 */
type BindGroupHolder struct {
	/** @brief The binding group index in the pipeline. */
	Group uint32
	/** @brief The compiled bind group, or nil while still loading. */
	BindGroup BindGroupHandle
}

// SemanticInput maps a semantic key onto a region of the per-instance
// input: which reflected element it feeds and at which byte offset.
type SemanticInput struct {
	StepMode metadata.VertexStepMode
	Index    int
	Offset   uint64
}

// MaterialProperty is a per-instance property override. Value is nil until
// game logic sets it; unset properties are skipped during assembly.
type MaterialProperty struct {
	Format metadata.VertexFormat
	Offset uint64
	Value  PropertyValue
}

// PropertyValue is a typed value serializable into a vertex format.
type PropertyValue interface {
	Format() metadata.VertexFormat
	Bytes() []byte
}

type Float32Value float32

func (v Float32Value) Format() metadata.VertexFormat { return metadata.VertexFormatFloat32 }
func (v Float32Value) Bytes() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, gomath.Float32bits(float32(v)))
	return out
}

type Vec4Value math.Vec4

func (v Vec4Value) Format() metadata.VertexFormat { return metadata.VertexFormatFloat32x4 }
func (v Vec4Value) Bytes() []byte                 { return math.Vec4(v).Bytes() }

type Uint32Value uint32

func (v Uint32Value) Format() metadata.VertexFormat { return metadata.VertexFormatUint32 }
func (v Uint32Value) Bytes() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(v))
	return out
}

/**
 * @brief A material: the bindable surface state shared across possibly
 * many renderables. Readers (command assembly, rendering) hold the shared
 * lock; writers (property updates from game logic) take the exclusive
 * lock, which cannot be acquired while a rendering command still holds its
 * read lock.
 */
type Material struct {
	mu sync.RWMutex

	/** @brief The material id. */
	ID uint32
	/** @brief The material name. */
	Name string
	/** @brief Reflection data of the shader this material binds. */
	Shader *metadata.ReflectedShader
	/** @brief Ordered binding group holders. */
	BindGroupHolders []BindGroupHolder
	/** @brief Semantic key → per-instance input mapping. */
	SemanticInputs map[metadata.SemanticKey]SemanticInput
	/** @brief Property id → per-instance property override. */
	PerInstanceProperties map[string]*MaterialProperty
}

// NewMaterial builds a material and validates its per-instance layout
// against the shader's reflected stride.
func NewMaterial(
	id uint32,
	name string,
	shader *metadata.ReflectedShader,
	holders []BindGroupHolder,
	semanticInputs map[metadata.SemanticKey]SemanticInput,
	properties map[string]*MaterialProperty,
) (*Material, error) {
	m := &Material{
		ID:                    id,
		Name:                  name,
		Shader:                shader,
		BindGroupHolders:      holders,
		SemanticInputs:        semanticInputs,
		PerInstanceProperties: properties,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate enforces the material's layout invariants: every semantic input
// and property must land inside the shader's per-instance stride, and
// instance-rate regions must not overlap.
func (m *Material) Validate() error {
	stride := m.Shader.PerInstanceInput.Stride
	elements := m.Shader.PerInstanceInput.Elements

	type region struct {
		name  string
		begin uint64
		end   uint64
	}
	var regions []region

	for key, input := range m.SemanticInputs {
		if input.StepMode != metadata.VertexStepModeInstance {
			continue
		}
		if input.Index < 0 || input.Index >= len(elements) {
			return fmt.Errorf("material '%s': semantic input '%s' references element %d of %d", m.Name, key, input.Index, len(elements))
		}
		size := elements[input.Index].Attribute.Format.Size()
		if input.Offset+size > stride {
			return fmt.Errorf("material '%s': semantic input '%s' [%d, %d) exceeds per-instance stride %d", m.Name, key, input.Offset, input.Offset+size, stride)
		}
		regions = append(regions, region{name: string(key), begin: input.Offset, end: input.Offset + size})
	}

	for name, prop := range m.PerInstanceProperties {
		size := prop.Format.Size()
		if prop.Offset+size > stride {
			return fmt.Errorf("material '%s': property '%s' [%d, %d) exceeds per-instance stride %d", m.Name, name, prop.Offset, prop.Offset+size, stride)
		}
		regions = append(regions, region{name: name, begin: prop.Offset, end: prop.Offset + size})
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].begin < regions[j].begin })
	for i := 1; i < len(regions); i++ {
		if regions[i].begin < regions[i-1].end {
			return fmt.Errorf("material '%s': per-instance regions '%s' and '%s' overlap", m.Name, regions[i-1].name, regions[i].name)
		}
	}

	return nil
}

// SetProperty updates a property value under the exclusive lock. It blocks
// while any rendering command still holds the material's read lock.
func (m *Material) SetProperty(name string, value PropertyValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prop, found := m.PerInstanceProperties[name]
	if !found {
		return fmt.Errorf("material '%s' has no property '%s'", m.Name, name)
	}
	if value != nil && value.Format() != prop.Format {
		return fmt.Errorf("material '%s' property '%s' expects format %d, got %d", m.Name, name, prop.Format, value.Format())
	}
	prop.Value = value
	return nil
}

// SetBindGroup installs (or clears) the compiled bind group for a group
// index under the exclusive lock.
func (m *Material) SetBindGroup(group uint32, bindGroup BindGroupHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.BindGroupHolders {
		if m.BindGroupHolders[i].Group == group {
			m.BindGroupHolders[i].BindGroup = bindGroup
			return nil
		}
	}
	return fmt.Errorf("material '%s' has no binding group %d", m.Name, group)
}
