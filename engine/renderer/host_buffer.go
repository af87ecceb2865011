package renderer

import "fmt"

// HostBuffer is CPU-writable staging memory handed out by the frame buffer
// allocator. It is valid only for the frame it was allocated in: the
// allocator's generation is captured at allocation time and every access
// re-checks it, so a stale handle from a prior frame fails fast instead of
// corrupting the arena. A committed buffer is consumed and unusable.
type HostBuffer struct {
	allocator  *FrameBufferAllocator
	data       []byte
	generation uint64
	committed  bool
}

func (b *HostBuffer) Size() uint64 {
	return uint64(len(b.data))
}

// Slice returns a bounds-checked sub-view of the staging region.
// Out-of-range offset/size combinations panic.
func (b *HostBuffer) Slice(offset, size uint64) GenericBufferAllocation[*HostBuffer] {
	b.assertUsable()
	return NewBufferAllocation(b, offset, size)
}

func (b *HostBuffer) writeAt(offset uint64, data []byte) {
	b.assertUsable()
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		panic(fmt.Sprintf("staging write [%d, %d) exceeds staging buffer size %d", offset, offset+uint64(len(data)), len(b.data)))
	}
	copy(b.data[offset:], data)
}

func (b *HostBuffer) assertUsable() {
	if b.committed {
		panic("staging buffer used after commit")
	}
	if b.generation != b.allocator.Generation() {
		panic(fmt.Sprintf("staging buffer from frame generation %d used in generation %d", b.generation, b.allocator.Generation()))
	}
}
