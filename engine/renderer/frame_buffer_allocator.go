package renderer

import (
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// stagingArenaSize is the initial capacity of the per-frame staging arena.
// The arena grows when a frame needs more.
const stagingArenaSize = 64 * 1024

// FrameBufferAllocator owns the transient memory of a single frame: a bump
// arena for CPU-writable staging regions plus a reference to the generic
// buffer pool for committing staged bytes into device buffers.
//
// Lifecycle per frame: N × (AllocStagingBuffer → write → CommitStagingBuffer),
// then Reset at the frame boundary. Reset bumps the generation counter,
// which invalidates every staging handle issued during the prior frame,
// and returns all committed device buffers to the pool.
type FrameBufferAllocator struct {
	backend Backend
	pool    *GenericBufferPool

	arena  []byte
	cursor uint64

	generation uint64
	checkedOut []*DeviceBuffer
}

func NewFrameBufferAllocator(backend Backend, pool *GenericBufferPool) *FrameBufferAllocator {
	return &FrameBufferAllocator{
		backend: backend,
		pool:    pool,
		arena:   make([]byte, stagingArenaSize),
	}
}

// AllocStagingBuffer returns a fresh zeroed CPU-writable region of exactly
// size bytes, valid until the next Reset. Callers must not write beyond
// size.
func (a *FrameBufferAllocator) AllocStagingBuffer(size uint64) *HostBuffer {
	aligned := (size + 3) &^ 3

	if a.cursor+aligned > uint64(len(a.arena)) {
		grown := make([]byte, max(uint64(len(a.arena))*2, a.cursor+aligned))
		copy(grown, a.arena[:a.cursor])
		a.arena = grown
	}

	region := a.arena[a.cursor : a.cursor+size : a.cursor+size]
	for i := range region {
		region[i] = 0
	}
	a.cursor += aligned

	return &HostBuffer{
		allocator:  a,
		data:       region,
		generation: a.generation,
	}
}

// CommitStagingBuffer copies the staging contents into a device buffer
// checked out from the pool and consumes the staging handle. The returned
// allocation is usable in draw calls for the remainder of the frame; the
// underlying device buffer is returned to the pool on Reset.
func (a *FrameBufferAllocator) CommitStagingBuffer(staging *HostBuffer) (GenericBufferAllocation[*DeviceBuffer], error) {
	staging.assertUsable()

	buffer, err := a.pool.Checkout(metadata.BufferUsageVertex|metadata.BufferUsageTransferDst, staging.Size())
	if err != nil {
		return GenericBufferAllocation[*DeviceBuffer]{}, err
	}

	if err := a.backend.DeviceBufferUpload(buffer.handle, 0, staging.data); err != nil {
		a.pool.Release(buffer)
		return GenericBufferAllocation[*DeviceBuffer]{}, err
	}

	staging.committed = true
	a.checkedOut = append(a.checkedOut, buffer)

	return NewBufferAllocation(buffer, 0, staging.Size()), nil
}

// Reset marks the frame boundary: the arena rewinds, outstanding staging
// handles become invalid, and the frame's device buffers go back to the
// pool.
func (a *FrameBufferAllocator) Reset() {
	a.generation++
	a.cursor = 0
	for _, buffer := range a.checkedOut {
		a.pool.Release(buffer)
	}
	a.checkedOut = a.checkedOut[:0]
}

func (a *FrameBufferAllocator) Generation() uint64 {
	return a.generation
}
