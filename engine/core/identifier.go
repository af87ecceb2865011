package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InvalidID marks an unassigned slot identifier.
const InvalidID uint32 = 0xFFFFFFFF

var identifierMu sync.Mutex
var owners []interface{}

// IdentifierAcquireNewID hands out the lowest free slot id, growing the
// owner table when all slots are taken.
func IdentifierAcquireNewID(owner interface{}) uint32 {
	identifierMu.Lock()
	defer identifierMu.Unlock()

	if len(owners) == 0 {
		owners = make([]interface{}, 100)
	}
	for i := range owners {
		// Existing free spot. Take it.
		if owners[i] == nil {
			owners[i] = owner
			return uint32(i)
		}
	}

	// No existing free slots, push a new one.
	owners = append(owners, owner)
	return uint32(len(owners) - 1)
}

func IdentifierReleaseID(id uint32) error {
	identifierMu.Lock()
	defer identifierMu.Unlock()

	if len(owners) == 0 {
		return fmt.Errorf("IdentifierReleaseID called before IdentifierAcquireNewID. Nothing was done")
	}
	if id >= uint32(len(owners)) {
		return fmt.Errorf("IdentifierReleaseID: id '%d' out of range (max=%d). Nothing was done", id, len(owners))
	}
	owners[id] = nil
	return nil
}

// NewDebugName produces a unique resource name with the given prefix, used
// for labelling GPU objects in logs.
func NewDebugName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}
