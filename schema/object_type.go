// ABOUTME: ObjectType enumerates the eleven kinds of infrastructure objects and ObjectRef names one.
// ABOUTME: ObjectRef orders by its "Type:ID" string so maps keyed by it iterate deterministically.
package schema

import (
	"fmt"
	"strings"
)

// ObjectType is the kind of an infrastructure object. It serializes as its name.
type ObjectType string

const (
	TrackSection     ObjectType = "TrackSection"
	Signal           ObjectType = "Signal"
	SpeedSection     ObjectType = "SpeedSection"
	TrackNode        ObjectType = "TrackNode"
	Detector         ObjectType = "Detector"
	BufferStop       ObjectType = "BufferStop"
	Route            ObjectType = "Route"
	OperationalPoint ObjectType = "OperationalPoint"
	TrackNodeType    ObjectType = "TrackNodeType"
	Electrification  ObjectType = "Electrification"
	NeutralSection   ObjectType = "NeutralSection"
)

// AllObjectTypes lists every object type in load and detection order.
var AllObjectTypes = []ObjectType{
	TrackSection,
	Signal,
	SpeedSection,
	TrackNode,
	Detector,
	BufferStop,
	Route,
	OperationalPoint,
	TrackNodeType,
	Electrification,
	NeutralSection,
}

// Valid reports whether t is one of the known object types.
func (t ObjectType) Valid() bool {
	for _, known := range AllObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseObjectType resolves a type name, accepting any letter case.
func ParseObjectType(s string) (ObjectType, error) {
	for _, known := range AllObjectTypes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown object type %q", s)
}

// ObjectRef identifies one object of the infrastructure.
type ObjectRef struct {
	Type ObjectType `json:"type"`
	ID   string     `json:"id"`
}

// NewObjectRef builds an ObjectRef.
func NewObjectRef(objType ObjectType, id string) ObjectRef {
	return ObjectRef{Type: objType, ID: id}
}

func (r ObjectRef) String() string {
	return string(r.Type) + ":" + r.ID
}
