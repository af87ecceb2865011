package renderer

import "fmt"

// Buffer is implemented by both staging (host) and device buffers so that
// allocations can view either side of the staging→device copy.
type Buffer interface {
	Size() uint64
	// writeAt copies data into the buffer at offset. Device buffers are not
	// CPU-writable and panic; host buffers validate their frame generation.
	writeAt(offset uint64, data []byte)
}

// GenericBufferAllocation is a lightweight view over a region of a backing
// buffer. It never owns memory; it is valid only while its backing buffer
// is alive.
type GenericBufferAllocation[B Buffer] struct {
	buffer B
	offset uint64
	size   uint64
}

// NewBufferAllocation builds a bounds-checked view over buffer.
func NewBufferAllocation[B Buffer](buffer B, offset, size uint64) GenericBufferAllocation[B] {
	if offset+size > buffer.Size() {
		panic(fmt.Sprintf("buffer allocation [%d, %d) exceeds buffer size %d", offset, offset+size, buffer.Size()))
	}
	return GenericBufferAllocation[B]{buffer: buffer, offset: offset, size: size}
}

func (a GenericBufferAllocation[B]) Buffer() B {
	return a.buffer
}

func (a GenericBufferAllocation[B]) Offset() uint64 {
	return a.offset
}

func (a GenericBufferAllocation[B]) Size() uint64 {
	return a.size
}

// CopyFromSlice writes data into the viewed region. The data must exactly
// fill the view; a mismatch is a programmer error and panics, since a
// semantic-input mis-mapping would otherwise silently corrupt instance
// data.
func (a GenericBufferAllocation[B]) CopyFromSlice(data []byte) {
	if uint64(len(data)) != a.size {
		panic(fmt.Sprintf("copy of %d bytes into allocation of size %d", len(data), a.size))
	}
	a.buffer.writeAt(a.offset, data)
}
