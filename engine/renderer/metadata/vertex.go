package metadata

import "fmt"

/** @brief Available vertex attribute formats, mirroring GPU vertex input formats. */
type VertexFormat uint

const (
	VertexFormatFloat32   VertexFormat = 0
	VertexFormatFloat32x2 VertexFormat = 1
	VertexFormatFloat32x3 VertexFormat = 2
	VertexFormatFloat32x4 VertexFormat = 3
	VertexFormatSint32    VertexFormat = 4
	VertexFormatUint32    VertexFormat = 5
	VertexFormatUint32x4  VertexFormat = 6
)

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatFloat32, VertexFormatSint32, VertexFormatUint32:
		return 4
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4, VertexFormatUint32x4:
		return 16
	default:
		panic(fmt.Sprintf("unknown vertex format %d", f))
	}
}

/** @brief Determines whether a vertex buffer advances per vertex or per instance. */
type VertexStepMode uint8

const (
	VertexStepModeVertex VertexStepMode = iota
	VertexStepModeInstance
)

/**
 * @brief A single vertex attribute as reported by shader reflection.
 */
type VertexAttribute struct {
	/** @brief The attribute Name. */
	Name string
	/** @brief The shader location the attribute is bound to. */
	Location uint32
	/** @brief The attribute format. */
	Format VertexFormat
	/** @brief The byte offset of the attribute within its buffer element. */
	Offset uint64
}
