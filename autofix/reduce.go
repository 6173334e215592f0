// ABOUTME: ReduceOperation merges a pending edit and a later edit of the same object into one operation.
// ABOUTME: Combinations that cannot happen in a consistent edit history are logged and rejected.
package autofix

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/logging"
	"github.com/2389-research/infracache/schema"
)

// ReduceOperation merges earlier and later, two operations on the same
// object, into a single equivalent operation.
//
//	Delete + Delete  -> Delete
//	Delete + Update  -> Delete
//	Update + Delete  -> Delete
//	Update + Update  -> Update with both patches in order
//	Create + Update  -> Create with the patch applied
//
// Every other combination returns an *IrreducibleOperationsError.
func ReduceOperation(earlier, later schema.Operation) (schema.Operation, error) {
	ref := earlier.Ref()
	if later.Ref() != ref {
		return nil, fmt.Errorf("cannot reduce operations on distinct objects %s and %s", ref, later.Ref())
	}

	switch e := earlier.(type) {
	case schema.DeleteOperation:
		switch later.(type) {
		case schema.DeleteOperation, schema.UpdateOperation:
			return e, nil
		}
	case schema.UpdateOperation:
		switch l := later.(type) {
		case schema.DeleteOperation:
			return l, nil
		case schema.UpdateOperation:
			patch := make(jsonpatch.Patch, 0, len(e.RailjsonPatch)+len(l.RailjsonPatch))
			patch = append(patch, e.RailjsonPatch...)
			patch = append(patch, l.RailjsonPatch...)
			return schema.UpdateOperation{ObjID: e.ObjID, ObjType: e.ObjType, RailjsonPatch: patch}, nil
		}
	case schema.CreateOperation:
		if l, ok := later.(schema.UpdateOperation); ok {
			patched, err := l.Apply(e.Object)
			if err != nil {
				return nil, err
			}
			return schema.CreateOperation{Object: patched}, nil
		}
	}

	err := &IrreducibleOperationsError{Object: ref, Earlier: earlier.Kind(), Later: later.Kind()}
	logging.Component("autofix").WithFields(logrus.Fields{
		"action":  "reduce",
		"obj":     ref.String(),
		"earlier": string(earlier.Kind()),
		"later":   string(later.Kind()),
	}).Warn("irreducible operations")
	return nil, err
}
