package renderer

import (
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// DeviceBuffer is GPU-resident memory. It is owned by the generic buffer
// pool: checked out for the lifetime of a frame (or until explicitly
// released) and returned to the pool's free list rather than destroyed.
type DeviceBuffer struct {
	handle BufferHandle
	usage  metadata.BufferUsage
	size   uint64
	name   string
}

func (b *DeviceBuffer) Size() uint64 {
	return b.size
}

func (b *DeviceBuffer) Usage() metadata.BufferUsage {
	return b.usage
}

func (b *DeviceBuffer) Handle() BufferHandle {
	return b.handle
}

func (b *DeviceBuffer) Name() string {
	return b.name
}

func (b *DeviceBuffer) writeAt(offset uint64, data []byte) {
	panic("device buffers are not CPU writable; commit a staging buffer instead")
}
