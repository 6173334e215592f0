// ABOUTME: JSON codec for InfraObject values using an "obj_type" discriminator and a "railjson" body.
// ABOUTME: DecodeRailjson rebuilds the concrete object struct for a given ObjectType.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownObjectType is returned when an obj_type discriminator is not recognized.
var ErrUnknownObjectType = errors.New("unknown object type")

// NewInfraObject returns an empty object of the given type.
func NewInfraObject(objType ObjectType) (InfraObject, error) {
	switch objType {
	case TrackSection:
		return &TrackSectionObject{}, nil
	case Signal:
		return &SignalObject{}, nil
	case SpeedSection:
		return &SpeedSectionObject{}, nil
	case TrackNode:
		return &TrackNodeObject{}, nil
	case Detector:
		return &DetectorObject{}, nil
	case BufferStop:
		return &BufferStopObject{}, nil
	case Route:
		return &RouteObject{}, nil
	case OperationalPoint:
		return &OperationalPointObject{}, nil
	case TrackNodeType:
		return &TrackNodeTypeObject{}, nil
	case Electrification:
		return &ElectrificationObject{}, nil
	case NeutralSection:
		return &NeutralSectionObject{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, objType)
	}
}

// DecodeRailjson parses the RailJSON body of an object of the given type.
func DecodeRailjson(objType ObjectType, data []byte) (InfraObject, error) {
	obj, err := NewInfraObject(objType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", objType, err)
	}
	return obj, nil
}

type infraObjectJSON struct {
	ObjType  ObjectType      `json:"obj_type"`
	Railjson json.RawMessage `json:"railjson"`
}

// MarshalInfraObject serializes an object with its type tag.
func MarshalInfraObject(obj InfraObject) ([]byte, error) {
	if obj == nil {
		return nil, fmt.Errorf("cannot marshal nil infra object")
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", obj.ObjectType(), err)
	}
	return json.Marshal(infraObjectJSON{ObjType: obj.ObjectType(), Railjson: body})
}

// UnmarshalInfraObject is the inverse of MarshalInfraObject.
func UnmarshalInfraObject(data []byte) (InfraObject, error) {
	var envelope infraObjectJSON
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal infra object envelope: %w", err)
	}
	if len(envelope.Railjson) == 0 {
		return nil, fmt.Errorf("infra object %s has no railjson body", envelope.ObjType)
	}
	return DecodeRailjson(envelope.ObjType, envelope.Railjson)
}
