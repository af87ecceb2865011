package scene

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
)

/**
 * @brief A single object in the scene graph. Owns its transform; world
 * matrices are resolved through the parent chain.
 */
type Object struct {
	ID        uint32
	Name      string
	Transform *math.Transform
	ParentID  uint32
}

// Hierarchy is the scene graph: a flat table of objects with parent
// links. It implements the world-matrix lookup the rendering core uses
// when assembling commands.
type Hierarchy struct {
	mu      sync.RWMutex
	objects map[uint32]*Object
}

func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		objects: make(map[uint32]*Object),
	}
}

// AddObject registers a new root object and returns its id.
func (h *Hierarchy) AddObject(name string, transform *math.Transform) uint32 {
	return h.AddChildObject(name, transform, core.InvalidID)
}

// AddChildObject registers a new object parented to parentID. Pass
// core.InvalidID for a root object.
func (h *Hierarchy) AddChildObject(name string, transform *math.Transform, parentID uint32) uint32 {
	if transform == nil {
		transform = math.TransformCreate()
	}

	object := &Object{
		Name:      name,
		Transform: transform,
		ParentID:  parentID,
	}
	object.ID = core.IdentifierAcquireNewID(object)

	h.mu.Lock()
	defer h.mu.Unlock()
	if parent, found := h.objects[parentID]; found {
		transform.Parent = parent.Transform
	}
	h.objects[object.ID] = object
	return object.ID
}

// RemoveObject unregisters an object. Children keep their last world
// transform through the detached parent pointer.
func (h *Hierarchy) RemoveObject(objectID uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, found := h.objects[objectID]; !found {
		return fmt.Errorf("object %d is not part of the hierarchy", objectID)
	}
	delete(h.objects, objectID)
	return core.IdentifierReleaseID(objectID)
}

func (h *Hierarchy) Object(objectID uint32) (*Object, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	object, found := h.objects[objectID]
	return object, found
}

func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.objects)
}

// Matrix resolves the world matrix for objectID, walking the parent chain
// through the transforms. An unknown id resolves to identity so a stale
// renderable draws at the origin instead of crashing the frame.
func (h *Hierarchy) Matrix(objectID uint32) math.Mat4 {
	h.mu.RLock()
	object, found := h.objects[objectID]
	h.mu.RUnlock()

	if !found {
		core.LogWarn("Matrix requested for unknown object %d; returning identity.", objectID)
		return math.NewMat4Identity()
	}
	return object.Transform.WorldMatrix()
}
