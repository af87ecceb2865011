package metadata

/**
 * @brief A well-known identifier for a per-instance data slot that the
 * rendering core knows how to populate without help. Renderers may define
 * their own keys beyond the reserved transform rows.
 */
type SemanticKey string

const (
	// The four rows of the object's world matrix, row-major.
	KeyTransformRow0 SemanticKey = "transform_row_0"
	KeyTransformRow1 SemanticKey = "transform_row_1"
	KeyTransformRow2 SemanticKey = "transform_row_2"
	KeyTransformRow3 SemanticKey = "transform_row_3"
)

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x00000008
)

/**
 * @brief One element of the per-instance input layout reported by shader
 * reflection.
 */
type PerInstanceElement struct {
	/** @brief The reflected attribute. */
	Attribute VertexAttribute
}

/**
 * @brief The per-instance vertex input contract reported by shader
 * reflection. Stride is the byte size of one instance's worth of data;
 * every element must fit inside it.
 */
type PerInstanceInput struct {
	Stride   uint64
	Elements []PerInstanceElement
}

/**
 * @brief The layout of a single binding group: its group index plus the
 * bindings it expects. Opaque to the rendering core beyond the index.
 */
type BindGroupLayout struct {
	/** @brief The binding group index in the pipeline. */
	Group uint32
	/** @brief Binding slot descriptors, backend-interpreted. */
	Bindings []BindingDescriptor
}

type BindingType uint8

const (
	BindingTypeUniformBuffer BindingType = iota
	BindingTypeStorageBuffer
	BindingTypeSampler
	BindingTypeTexture
)

type BindingDescriptor struct {
	Binding uint32
	Type    BindingType
	Stages  ShaderStage
}

/**
 * @brief One compiled shader stage: the SPIR-V blob plus its entry point.
 */
type ShaderStageBlob struct {
	Stage  ShaderStage
	Entry  string
	SPIRV  []byte
	Source string
}

/**
 * @brief A compiled shader's reflection data, consumed as an opaque
 * descriptor by the rendering core. Produced by the shader system.
 */
type ReflectedShader struct {
	/** @brief The shader identifier assigned by the shader system. */
	ID uint32
	/** @brief The shader name. */
	Name string
	/** @brief Per-vertex attributes, one buffer per attribute set. */
	PerVertexAttributes []VertexAttribute
	/** @brief The per-vertex element stride in bytes. */
	PerVertexStride uint64
	/** @brief The per-instance input contract. */
	PerInstanceInput PerInstanceInput
	/** @brief Binding group layouts declared by the shader. */
	BindGroupLayouts []BindGroupLayout
	/** @brief Compiled stage blobs, backend-consumed. */
	Stages []ShaderStageBlob
}
