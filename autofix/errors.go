// ABOUTME: Errors of the auto-fix loop and of operation reduction.
// ABOUTME: Typed errors carry the offending object so HTTP callers can report it.
package autofix

import (
	"errors"
	"fmt"

	"github.com/2389-research/infracache/schema"
)

// ErrMaximumIterationReached indicates the loop did not converge within MaxIterations.
var ErrMaximumIterationReached = errors.New("auto-fix did not converge: maximum iteration reached")

// ConflictingFixesError indicates two fixes of one iteration target the same object.
type ConflictingFixesError struct {
	Object schema.ObjectRef
	Fixes  []schema.Operation
}

func (e *ConflictingFixesError) Error() string {
	return fmt.Sprintf("conflicting fixes on same object %s (%d fixes)", e.Object, len(e.Fixes))
}

// FixTrialFailureError indicates the fixes of an iteration could not be applied to the cache.
type FixTrialFailureError struct {
	Err error
}

func (e *FixTrialFailureError) Error() string {
	return fmt.Sprintf("fix trial failure: %v", e.Err)
}

func (e *FixTrialFailureError) Unwrap() error {
	return e.Err
}

// MissingErrorObjectError indicates an error was reported on an object that is not cached.
type MissingErrorObjectError struct {
	Object schema.ObjectRef
}

func (e *MissingErrorObjectError) Error() string {
	return fmt.Sprintf("object with error not found in cache: %s", e.Object)
}

// IrreducibleOperationsError indicates two operations cannot be merged.
type IrreducibleOperationsError struct {
	Object  schema.ObjectRef
	Earlier schema.OperationKind
	Later   schema.OperationKind
}

func (e *IrreducibleOperationsError) Error() string {
	return fmt.Sprintf("cannot reduce %s then %s on %s", e.Earlier, e.Later, e.Object)
}
