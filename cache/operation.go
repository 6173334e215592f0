// ABOUTME: CacheOperation applies Create, Update and Delete edits to an InfraCache.
// ABOUTME: Updates are a delete followed by a create; a batch stops at its first failure.
package cache

import (
	"fmt"

	"github.com/2389-research/infracache/schema"
)

// CacheOperation is an edit expressed on cached values. Implementations:
// CreateCacheOperation, UpdateCacheOperation and DeleteCacheOperation.
type CacheOperation interface {
	Ref() schema.ObjectRef
	cacheOperationSeal()
}

// CreateCacheOperation adds a new object.
type CreateCacheOperation struct {
	Object ObjectCache
}

// UpdateCacheOperation replaces an object with a new value of the same ref.
type UpdateCacheOperation struct {
	Object ObjectCache
}

// DeleteCacheOperation removes an object.
type DeleteCacheOperation struct {
	ObjRef schema.ObjectRef
}

func (o CreateCacheOperation) Ref() schema.ObjectRef { return o.Object.Ref() }
func (o UpdateCacheOperation) Ref() schema.ObjectRef { return o.Object.Ref() }
func (o DeleteCacheOperation) Ref() schema.ObjectRef { return o.ObjRef }

func (CreateCacheOperation) cacheOperationSeal() {}
func (UpdateCacheOperation) cacheOperationSeal() {}
func (DeleteCacheOperation) cacheOperationSeal() {}

// NewCreateCacheOperation converts a created persistable object.
func NewCreateCacheOperation(obj schema.InfraObject) (CreateCacheOperation, error) {
	cached, err := FromObject(obj)
	if err != nil {
		return CreateCacheOperation{}, err
	}
	return CreateCacheOperation{Object: cached}, nil
}

// NewUpdateCacheOperation converts the result of an update.
func NewUpdateCacheOperation(obj schema.InfraObject) (UpdateCacheOperation, error) {
	cached, err := FromObject(obj)
	if err != nil {
		return UpdateCacheOperation{}, err
	}
	return UpdateCacheOperation{Object: cached}, nil
}

// ApplyCreate adds obj.
func (c *InfraCache) ApplyCreate(obj ObjectCache) error {
	return c.Add(obj)
}

// ApplyDelete removes the referenced object.
func (c *InfraCache) ApplyDelete(ref schema.ObjectRef) error {
	_, err := c.Remove(ref)
	return err
}

// ApplyUpdate replaces the object sharing obj's ref.
func (c *InfraCache) ApplyUpdate(obj ObjectCache) error {
	if err := c.ApplyDelete(obj.Ref()); err != nil {
		return err
	}
	return c.ApplyCreate(obj)
}

// Apply dispatches a single operation.
func (c *InfraCache) Apply(op CacheOperation) error {
	switch o := op.(type) {
	case CreateCacheOperation:
		return c.ApplyCreate(o.Object)
	case UpdateCacheOperation:
		return c.ApplyUpdate(o.Object)
	case DeleteCacheOperation:
		return c.ApplyDelete(o.ObjRef)
	default:
		return fmt.Errorf("unknown cache operation %T", op)
	}
}

// ApplyOperations applies ops in order and returns the first error.
// Operations before the failing one stay applied.
func (c *InfraCache) ApplyOperations(ops []CacheOperation) error {
	for _, op := range ops {
		if err := c.Apply(op); err != nil {
			return err
		}
	}
	return nil
}
