package renderer

import (
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// minBucketSize keeps very small requests from fragmenting buckets.
const minBucketSize uint64 = 256

type bufferBucketKey struct {
	usage     metadata.BufferUsage
	sizeClass uint64
}

// GenericBufferPool hands out device buffers bucketed by (usage, power-of-
// two size class) and takes them back for reuse, amortizing allocation
// cost across frames. Buckets grow monotonically; nothing is evicted.
//
// Access is expected to be confined to the single thread driving frame
// submission. If multiple submission threads exist the pool must be
// externally synchronized, since bucket maps are mutated on checkout and
// release.
type GenericBufferPool struct {
	backend Backend
	buckets map[bufferBucketKey][]*DeviceBuffer

	created int
}

func NewGenericBufferPool(backend Backend) *GenericBufferPool {
	return &GenericBufferPool{
		backend: backend,
		buckets: make(map[bufferBucketKey][]*DeviceBuffer),
	}
}

// Checkout returns an idle buffer from the matching bucket if one exists,
// else allocates a new device buffer of the bucket's canonical size. The
// buffer is owned exclusively by the holder until Release.
func (p *GenericBufferPool) Checkout(usage metadata.BufferUsage, size uint64) (*DeviceBuffer, error) {
	key := bufferBucketKey{usage: usage, sizeClass: p.sizeClass(size)}

	if idle := p.buckets[key]; len(idle) > 0 {
		buffer := idle[len(idle)-1]
		p.buckets[key] = idle[:len(idle)-1]
		return buffer, nil
	}

	handle, err := p.backend.DeviceBufferCreate(usage, key.sizeClass)
	if err != nil {
		core.LogError("buffer pool failed to allocate %d bytes (usage 0x%x): %s", key.sizeClass, usage, err.Error())
		return nil, err
	}
	p.created++

	return &DeviceBuffer{
		handle: handle,
		usage:  usage,
		size:   key.sizeClass,
		name:   core.NewDebugName("pooled-buffer"),
	}, nil
}

// Release returns a checked-out buffer to its bucket's idle set.
func (p *GenericBufferPool) Release(buffer *DeviceBuffer) {
	key := bufferBucketKey{usage: buffer.usage, sizeClass: buffer.size}
	for _, idle := range p.buckets[key] {
		if idle == buffer {
			panic("device buffer released twice")
		}
	}
	p.buckets[key] = append(p.buckets[key], buffer)
}

// Shutdown destroys every idle buffer. Buffers still checked out are the
// holder's responsibility.
func (p *GenericBufferPool) Shutdown() {
	for key, idle := range p.buckets {
		for _, buffer := range idle {
			p.backend.DeviceBufferDestroy(buffer.handle)
		}
		delete(p.buckets, key)
	}
}

// Created reports how many device buffers the pool has allocated in total.
func (p *GenericBufferPool) Created() int {
	return p.created
}

func (p *GenericBufferPool) sizeClass(size uint64) uint64 {
	if size < minBucketSize {
		return minBucketSize
	}
	return math.NextPow2(size)
}
