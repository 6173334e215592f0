// ABOUTME: Persistable edit operations (Create, Update with a JSON Patch, Delete) and their JSON codec.
// ABOUTME: Operations carry an "operation_type" discriminator matching the editing API wire format.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

var (
	// ErrInvalidPatch indicates a railjson patch could not be applied.
	ErrInvalidPatch = errors.New("invalid railjson patch")

	// ErrModifyID indicates a patch tried to change the id of the patched object.
	ErrModifyID = errors.New("patch cannot modify the object id")
)

// OperationKind is the discriminator of an Operation.
type OperationKind string

const (
	OperationCreate OperationKind = "CREATE"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
)

// Operation is a persistable edit. Implementations: CreateOperation,
// UpdateOperation and DeleteOperation.
type Operation interface {
	Kind() OperationKind
	Ref() ObjectRef
	operationSeal()
}

// CreateOperation inserts a new object.
type CreateOperation struct {
	Object InfraObject
}

// UpdateOperation patches an existing object with an RFC 6902 JSON Patch.
type UpdateOperation struct {
	ObjID         string
	ObjType       ObjectType
	RailjsonPatch jsonpatch.Patch
}

// DeleteOperation removes an object.
type DeleteOperation struct {
	ObjID   string
	ObjType ObjectType
}

func (CreateOperation) Kind() OperationKind { return OperationCreate }
func (UpdateOperation) Kind() OperationKind { return OperationUpdate }
func (DeleteOperation) Kind() OperationKind { return OperationDelete }

func (o CreateOperation) Ref() ObjectRef { return RefOf(o.Object) }
func (o UpdateOperation) Ref() ObjectRef { return NewObjectRef(o.ObjType, o.ObjID) }
func (o DeleteOperation) Ref() ObjectRef { return NewObjectRef(o.ObjType, o.ObjID) }

func (CreateOperation) operationSeal() {}
func (UpdateOperation) operationSeal() {}
func (DeleteOperation) operationSeal() {}

// NewDeleteOperation builds the Delete of the referenced object.
func NewDeleteOperation(ref ObjectRef) DeleteOperation {
	return DeleteOperation{ObjID: ref.ID, ObjType: ref.Type}
}

// NewUpdateOperation decodes a raw JSON Patch document into an UpdateOperation.
func NewUpdateOperation(ref ObjectRef, rawPatch []byte) (UpdateOperation, error) {
	patch, err := jsonpatch.DecodePatch(rawPatch)
	if err != nil {
		return UpdateOperation{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return UpdateOperation{ObjID: ref.ID, ObjType: ref.Type, RailjsonPatch: patch}, nil
}

// Apply patches obj and returns the patched copy. obj is left untouched.
func (o UpdateOperation) Apply(obj InfraObject) (InfraObject, error) {
	if obj.ObjectType() != o.ObjType {
		return nil, fmt.Errorf("%w: cannot apply %s patch to %s", ErrInvalidPatch, o.ObjType, obj.ObjectType())
	}
	doc, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal %s before patch: %w", o.Ref(), err)
	}
	patched, err := o.RailjsonPatch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, o.Ref(), err)
	}
	result, err := DecodeRailjson(o.ObjType, patched)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if result.ObjectID() != obj.ObjectID() {
		return nil, fmt.Errorf("%w: %s became %q", ErrModifyID, o.Ref(), result.ObjectID())
	}
	return result, nil
}

type operationJSON struct {
	OperationType OperationKind   `json:"operation_type"`
	ObjType       ObjectType      `json:"obj_type"`
	ObjID         string          `json:"obj_id,omitempty"`
	Railjson      json.RawMessage `json:"railjson,omitempty"`
	RailjsonPatch json.RawMessage `json:"railjson_patch,omitempty"`
}

// MarshalOperation serializes an Operation with its operation_type tag.
func MarshalOperation(op Operation) ([]byte, error) {
	switch v := op.(type) {
	case CreateOperation:
		if v.Object == nil {
			return nil, fmt.Errorf("cannot marshal create operation without object")
		}
		body, err := json.Marshal(v.Object)
		if err != nil {
			return nil, fmt.Errorf("marshal create %s: %w", v.Ref(), err)
		}
		return json.Marshal(operationJSON{
			OperationType: OperationCreate,
			ObjType:       v.Object.ObjectType(),
			Railjson:      body,
		})
	case UpdateOperation:
		patch, err := json.Marshal(v.RailjsonPatch)
		if err != nil {
			return nil, fmt.Errorf("marshal update %s: %w", v.Ref(), err)
		}
		return json.Marshal(operationJSON{
			OperationType: OperationUpdate,
			ObjType:       v.ObjType,
			ObjID:         v.ObjID,
			RailjsonPatch: patch,
		})
	case DeleteOperation:
		return json.Marshal(operationJSON{
			OperationType: OperationDelete,
			ObjType:       v.ObjType,
			ObjID:         v.ObjID,
		})
	case nil:
		return nil, fmt.Errorf("cannot marshal nil operation")
	default:
		return nil, fmt.Errorf("unknown operation %T", op)
	}
}

// UnmarshalOperation is the inverse of MarshalOperation.
func UnmarshalOperation(data []byte) (Operation, error) {
	var j operationJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}
	if !j.ObjType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, j.ObjType)
	}

	switch j.OperationType {
	case OperationCreate:
		obj, err := DecodeRailjson(j.ObjType, j.Railjson)
		if err != nil {
			return nil, err
		}
		return CreateOperation{Object: obj}, nil
	case OperationUpdate:
		if j.RailjsonPatch == nil {
			return nil, fmt.Errorf("%w: update of %s:%s has no railjson_patch", ErrInvalidPatch, j.ObjType, j.ObjID)
		}
		return NewUpdateOperation(NewObjectRef(j.ObjType, j.ObjID), j.RailjsonPatch)
	case OperationDelete:
		return DeleteOperation{ObjID: j.ObjID, ObjType: j.ObjType}, nil
	default:
		return nil, fmt.Errorf("unknown operation_type %q", j.OperationType)
	}
}

// OperationList is a JSON-friendly list of operations.
type OperationList []Operation

// MarshalJSON encodes each operation with its tag.
func (l OperationList) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(l))
	for _, op := range l {
		data, err := MarshalOperation(op)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a list of tagged operations.
func (l *OperationList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal operation list: %w", err)
	}
	ops := make(OperationList, 0, len(raw))
	for i, r := range raw {
		op, err := UnmarshalOperation(r)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	*l = ops
	return nil
}
