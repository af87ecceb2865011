package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// ShaderReloader receives recompiled stage blobs for a named shader. The
// shader system implements it.
type ShaderReloader interface {
	ReloadShader(name string, stages []metadata.ShaderStageBlob) error
}

// ShaderWatcher watches a directory of compiled SPIR-V blobs and pushes
// reloads when they change on disk. Files follow the
// `<shader>.<stage>.spv` convention, e.g. `builtin.mesh.vert.spv`.
type ShaderWatcher struct {
	directory string
	reloader  ShaderReloader
	watcher   *fsnotify.Watcher

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewShaderWatcher(directory string, reloader ShaderReloader) (*ShaderWatcher, error) {
	if reloader == nil {
		return nil, fmt.Errorf("NewShaderWatcher requires a reloader")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(directory); err != nil {
		watcher.Close()
		return nil, err
	}

	return &ShaderWatcher{
		directory: directory,
		reloader:  reloader,
		watcher:   watcher,
		done:      make(chan struct{}),
	}, nil
}

// Start begins consuming filesystem events until Close.
func (w *ShaderWatcher) Start() {
	go w.run()
}

func (w *ShaderWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return w.watcher.Close()
}

func (w *ShaderWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			shaderName, stageOK := shaderNameFromPath(event.Name)
			if !stageOK {
				continue
			}
			if err := w.reload(shaderName); err != nil {
				core.LogWarn("shader '%s' reload failed: %s", shaderName, err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher error: %s", err)
		}
	}
}

// reload gathers every stage blob of the shader currently on disk and
// hands them to the reloader in one call.
func (w *ShaderWatcher) reload(shaderName string) error {
	stages, err := LoadShaderStages(w.directory, shaderName)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		return fmt.Errorf("no stage blobs found for shader '%s'", shaderName)
	}
	return w.reloader.ReloadShader(shaderName, stages)
}

// LoadShaderStages reads all `<shaderName>.<stage>.spv` blobs from the
// directory.
func LoadShaderStages(directory, shaderName string) ([]metadata.ShaderStageBlob, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}

	var stages []metadata.ShaderStageBlob
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := shaderNameFromFile(entry.Name())
		if !ok || name != shaderName {
			continue
		}
		stage, ok := stageFromFile(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(directory, entry.Name()))
		if err != nil {
			return nil, err
		}
		stages = append(stages, metadata.ShaderStageBlob{
			Stage: stage,
			Entry: "main",
			SPIRV: data,
		})
	}
	return stages, nil
}

func shaderNameFromPath(path string) (string, bool) {
	return shaderNameFromFile(filepath.Base(path))
}

// shaderNameFromFile strips the `.<stage>.spv` suffix.
func shaderNameFromFile(file string) (string, bool) {
	if !strings.HasSuffix(file, ".spv") {
		return "", false
	}
	trimmed := strings.TrimSuffix(file, ".spv")
	dot := strings.LastIndex(trimmed, ".")
	if dot <= 0 {
		return "", false
	}
	if _, ok := stageFromSuffix(trimmed[dot+1:]); !ok {
		return "", false
	}
	return trimmed[:dot], true
}

func stageFromFile(file string) (metadata.ShaderStage, bool) {
	trimmed := strings.TrimSuffix(file, ".spv")
	dot := strings.LastIndex(trimmed, ".")
	if dot < 0 {
		return 0, false
	}
	return stageFromSuffix(trimmed[dot+1:])
}

func stageFromSuffix(suffix string) (metadata.ShaderStage, bool) {
	switch suffix {
	case "vert":
		return metadata.ShaderStageVertex, true
	case "frag":
		return metadata.ShaderStageFragment, true
	case "geom":
		return metadata.ShaderStageGeometry, true
	case "comp":
		return metadata.ShaderStageCompute, true
	}
	return 0, false
}
