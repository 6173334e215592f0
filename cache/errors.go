// ABOUTME: Structural errors raised by InfraCache mutations and typed lookups.
// ABOUTME: Callers match them with errors.As; nothing in the cache panics on a missing object.
package cache

import (
	"errors"
	"fmt"

	"github.com/2389-research/infracache/schema"
)

// ErrNoObjectSource indicates a registry load was attempted without a source.
var ErrNoObjectSource = errors.New("no object source configured")

// ObjectNotFoundError indicates the referenced object is not in the cache.
type ObjectNotFoundError struct {
	ObjType schema.ObjectType
	ObjID   string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object not found: %s:%s", e.ObjType, e.ObjID)
}

// DuplicateIDsProvidedError indicates an object with the same type and id is already cached.
type DuplicateIDsProvidedError struct {
	ObjType schema.ObjectType
	ObjID   string
}

func (e *DuplicateIDsProvidedError) Error() string {
	return fmt.Sprintf("duplicate ids provided: %s:%s", e.ObjType, e.ObjID)
}

func notFound(ref schema.ObjectRef) error {
	return &ObjectNotFoundError{ObjType: ref.Type, ObjID: ref.ID}
}
