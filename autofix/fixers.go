// ABOUTME: Per object type repair policies turning detected errors into Create or Delete fixes.
// ABOUTME: Errors without a policy are logged and left for a human.
package autofix

import (
	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/detect"
	"github.com/2389-research/infracache/schema"
)

// Fix pairs a persistable operation with its effect on the cache.
type Fix struct {
	Operation      schema.Operation
	CacheOperation cache.CacheOperation
}

type refFix struct {
	ref schema.ObjectRef
	fix Fix
}

func deleteFix(ref schema.ObjectRef) refFix {
	return refFix{
		ref: ref,
		fix: Fix{
			Operation:      schema.NewDeleteOperation(ref),
			CacheOperation: cache.DeleteCacheOperation{ObjRef: ref},
		},
	}
}

func createFix(obj schema.InfraObject) (refFix, error) {
	op, err := cache.NewCreateCacheOperation(obj)
	if err != nil {
		return refFix{}, err
	}
	return refFix{
		ref: schema.RefOf(obj),
		fix: Fix{Operation: schema.CreateOperation{Object: obj}, CacheOperation: op},
	}, nil
}

// fixObject applies the policy of obj's type to the errors reported on it.
// The erroring object is deleted at most once whatever the number of errors
// asking for it.
func (e *Engine) fixObject(obj cache.ObjectCache, errs []detect.InfraError) ([]refFix, error) {
	var fixes []refFix
	deleted := false
	deleteSelf := func() {
		if !deleted {
			fixes = append(fixes, deleteFix(obj.Ref()))
			deleted = true
		}
	}

	for _, ie := range errs {
		switch decide(obj, ie) {
		case actionDelete:
			deleteSelf()
		case actionCreateBufferStop:
			fix, err := e.bufferStopFix(obj, ie)
			if err != nil {
				return nil, err
			}
			fixes = append(fixes, fix)
		case actionIgnore:
		default:
			e.log.WithFields(logrus.Fields{
				"action":     "not_fixable",
				"obj":        obj.Ref().String(),
				"error_type": string(ie.SubType.ErrorType()),
				"field":      ie.Field,
			}).Debug("error not yet fixable for this object type")
		}
	}
	return fixes, nil
}

type action int

const (
	actionNone action = iota
	actionIgnore
	actionDelete
	actionCreateBufferStop
)

func decide(obj cache.ObjectCache, ie detect.InfraError) action {
	switch ie.SubType.(type) {
	case detect.InvalidSwitchPorts, detect.EmptyObject:
		return actionDelete
	}

	switch obj.Ref().Type {
	case schema.BufferStop, schema.Signal, schema.Detector:
		switch sub := ie.SubType.(type) {
		case detect.InvalidReference:
			if sub.Reference.Type == schema.TrackSection {
				return actionDelete
			}
		case detect.OutOfRange:
			return actionDelete
		}
	case schema.TrackNode:
		if sub, ok := ie.SubType.(detect.InvalidReference); ok && sub.Reference.Type == schema.TrackSection {
			return actionDelete
		}
	case schema.Route:
		if _, ok := ie.SubType.(detect.InvalidReference); ok && (ie.Field == "entry_point" || ie.Field == "exit_point") {
			return actionDelete
		}
	case schema.TrackSection:
		switch ie.SubType.(type) {
		case detect.MissingBufferStop:
			return actionCreateBufferStop
		case detect.OutOfRange:
			return actionIgnore
		}
	case schema.SpeedSection, schema.Electrification, schema.OperationalPoint, schema.NeutralSection:
		if _, ok := ie.SubType.(detect.OutOfRange); ok {
			return actionIgnore
		}
	}
	return actionNone
}

// bufferStopFix closes the reported extremity of a track with a new buffer stop.
func (e *Engine) bufferStopFix(obj cache.ObjectCache, ie detect.InfraError) (refFix, error) {
	track := obj.(*cache.TrackSectionCache)
	missing := ie.SubType.(detect.MissingBufferStop)

	position := 0.0
	if missing.Endpoint == schema.End {
		position = track.Length
	}
	return createFix(&schema.BufferStopObject{
		ID:       e.newID(),
		Track:    track.ID,
		Position: position,
	})
}
