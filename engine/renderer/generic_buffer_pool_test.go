package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func TestPoolCheckoutAllocatesCanonicalSize(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewGenericBufferPool(backend)

	buffer, err := pool.Checkout(metadata.BufferUsageVertex, 100)
	require.NoError(t, err)

	// Requests below the minimum bucket size round up to it.
	assert.Equal(t, uint64(256), buffer.Size())
	assert.Equal(t, 1, backend.bufferCreates)

	big, err := pool.Checkout(metadata.BufferUsageVertex, 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(512), big.Size())
}

func TestPoolRoundTripReusesBuffer(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewGenericBufferPool(backend)

	first, err := pool.Checkout(metadata.BufferUsageVertex, 64)
	require.NoError(t, err)
	pool.Release(first)

	second, err := pool.Checkout(metadata.BufferUsageVertex, 64)
	require.NoError(t, err)

	assert.Same(t, first, second, "pool should return the released buffer, not allocate")
	assert.Equal(t, 1, backend.bufferCreates)

	// A smaller request in the same size class also reuses it.
	pool.Release(second)
	third, err := pool.Checkout(metadata.BufferUsageVertex, 16)
	require.NoError(t, err)
	assert.Same(t, first, third)
}

func TestPoolSeparatesBucketsByUsage(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewGenericBufferPool(backend)

	vertex, err := pool.Checkout(metadata.BufferUsageVertex, 64)
	require.NoError(t, err)
	pool.Release(vertex)

	uniform, err := pool.Checkout(metadata.BufferUsageUniform, 64)
	require.NoError(t, err)

	assert.NotSame(t, vertex, uniform)
	assert.Equal(t, 2, backend.bufferCreates)
}

func TestPoolNeverHandsOutSameBufferTwice(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewGenericBufferPool(backend)

	first, err := pool.Checkout(metadata.BufferUsageVertex, 64)
	require.NoError(t, err)
	second, err := pool.Checkout(metadata.BufferUsageVertex, 64)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestPoolDoubleReleasePanics(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewGenericBufferPool(backend)

	buffer, err := pool.Checkout(metadata.BufferUsageVertex, 64)
	require.NoError(t, err)
	pool.Release(buffer)

	assert.Panics(t, func() { pool.Release(buffer) })
}

func TestPoolShutdownDestroysIdleBuffers(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewGenericBufferPool(backend)

	a, err := pool.Checkout(metadata.BufferUsageVertex, 64)
	require.NoError(t, err)
	b, err := pool.Checkout(metadata.BufferUsageUniform, 1024)
	require.NoError(t, err)
	pool.Release(a)
	pool.Release(b)

	pool.Shutdown()
	assert.Equal(t, 2, backend.destroyed)
}
