package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

type recordingReloader struct {
	mu      sync.Mutex
	reloads map[string][]metadata.ShaderStageBlob
	notify  chan string
}

func newRecordingReloader() *recordingReloader {
	return &recordingReloader{
		reloads: make(map[string][]metadata.ShaderStageBlob),
		notify:  make(chan string, 8),
	}
}

func (r *recordingReloader) ReloadShader(name string, stages []metadata.ShaderStageBlob) error {
	r.mu.Lock()
	r.reloads[name] = stages
	r.mu.Unlock()
	r.notify <- name
	return nil
}

func (r *recordingReloader) stages(name string) []metadata.ShaderStageBlob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads[name]
}

func TestShaderNameParsing(t *testing.T) {
	name, ok := shaderNameFromFile("builtin.mesh.vert.spv")
	require.True(t, ok)
	assert.Equal(t, "builtin.mesh", name)

	stage, ok := stageFromFile("builtin.mesh.frag.spv")
	require.True(t, ok)
	assert.Equal(t, metadata.ShaderStageFragment, stage)

	_, ok = shaderNameFromFile("notes.txt")
	assert.False(t, ok)
	_, ok = shaderNameFromFile("mesh.spv")
	assert.False(t, ok)
}

func TestLoadShaderStages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.vert.spv"), []byte{1, 2, 3, 4}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.frag.spv"), []byte{5, 6, 7, 8}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.vert.spv"), []byte{9}, 0o644))

	stages, err := LoadShaderStages(dir, "crate")
	require.NoError(t, err)
	assert.Len(t, stages, 2)
	for _, stage := range stages {
		assert.Equal(t, "main", stage.Entry)
		assert.NotEmpty(t, stage.SPIRV)
	}
}

func TestShaderWatcherPushesReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crate.vert.spv")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644))

	reloader := newRecordingReloader()
	watcher, err := NewShaderWatcher(dir, reloader)
	require.NoError(t, err)
	defer watcher.Close()
	watcher.Start()

	require.NoError(t, os.WriteFile(path, []byte{4, 3, 2, 1}, 0o644))

	select {
	case name := <-reloader.notify:
		assert.Equal(t, "crate", name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the reload")
	}

	stages := reloader.stages("crate")
	require.Len(t, stages, 1)
	assert.Equal(t, metadata.ShaderStageVertex, stages[0].Stage)
	assert.Equal(t, []byte{4, 3, 2, 1}, stages[0].SPIRV)
}

func TestShaderWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	reloader := newRecordingReloader()
	watcher, err := NewShaderWatcher(dir, reloader)
	require.NoError(t, err)
	defer watcher.Close()
	watcher.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("notes"), 0o644))

	select {
	case name := <-reloader.notify:
		t.Fatalf("unexpected reload for %q", name)
	case <-time.After(250 * time.Millisecond):
	}
}

func TestShaderWatcherCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewShaderWatcher(dir, newRecordingReloader())
	require.NoError(t, err)
	require.NoError(t, watcher.Close())
	require.NoError(t, watcher.Close())
}
