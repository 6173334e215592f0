// ABOUTME: InfraError describes one integrity problem of an infrastructure object.
// ABOUTME: Sub types form a closed set and serialize flat with an "error_type" discriminator.
package detect

import (
	"encoding/json"
	"fmt"

	"github.com/2389-research/infracache/schema"
)

// ErrorType is the discriminator of an InfraError sub type.
type ErrorType string

const (
	ErrorInvalidReference            ErrorType = "invalid_reference"
	ErrorOutOfRange                  ErrorType = "out_of_range"
	ErrorInvalidSwitchPorts          ErrorType = "invalid_switch_ports"
	ErrorEmptyObject                 ErrorType = "empty_object"
	ErrorOverlappingSpeedSections    ErrorType = "overlapping_speed_sections"
	ErrorOverlappingElectrifications ErrorType = "overlapping_electrifications"
	ErrorMissingBufferStop           ErrorType = "missing_buffer_stop"
	ErrorOddBufferStopLocation       ErrorType = "odd_buffer_stop_location"
	ErrorInvalidRoute                ErrorType = "invalid_route"
	ErrorObjectOutOfPath             ErrorType = "object_out_of_path"
	ErrorMissingRoute                ErrorType = "missing_route"
	ErrorInvalidGroup                ErrorType = "invalid_group"
	ErrorUnknownPortName             ErrorType = "unknown_port_name"
	ErrorNodeEndpointsNotUnique      ErrorType = "node_endpoints_not_unique"
)

// SubType is the kind-specific part of an InfraError.
type SubType interface {
	ErrorType() ErrorType
	subTypeSeal()
}

type InvalidReference struct {
	Reference schema.ObjectRef `json:"reference"`
}

type OutOfRange struct {
	Position      float64    `json:"position"`
	ExpectedRange [2]float64 `json:"expected_range"`
}

type InvalidSwitchPorts struct{}

type EmptyObject struct{}

type OverlappingSpeedSections struct {
	Reference schema.ObjectRef `json:"reference"`
}

type OverlappingElectrifications struct {
	Reference schema.ObjectRef `json:"reference"`
}

type MissingBufferStop struct {
	Endpoint schema.Endpoint `json:"endpoint"`
}

type OddBufferStopLocation struct{}

type InvalidRoute struct{}

type ObjectOutOfPath struct {
	Reference schema.ObjectRef `json:"reference"`
}

type MissingRoute struct{}

type InvalidGroup struct {
	Group         string `json:"group"`
	TrackNodeType string `json:"track_node_type"`
}

type UnknownPortName struct {
	PortName string `json:"port_name"`
}

type NodeEndpointsNotUnique struct{}

func (InvalidReference) ErrorType() ErrorType { return ErrorInvalidReference }
func (OutOfRange) ErrorType() ErrorType { return ErrorOutOfRange }
func (InvalidSwitchPorts) ErrorType() ErrorType { return ErrorInvalidSwitchPorts }
func (EmptyObject) ErrorType() ErrorType { return ErrorEmptyObject }
func (OverlappingSpeedSections) ErrorType() ErrorType { return ErrorOverlappingSpeedSections }
func (OverlappingElectrifications) ErrorType() ErrorType { return ErrorOverlappingElectrifications }
func (MissingBufferStop) ErrorType() ErrorType { return ErrorMissingBufferStop }
func (OddBufferStopLocation) ErrorType() ErrorType { return ErrorOddBufferStopLocation }
func (InvalidRoute) ErrorType() ErrorType { return ErrorInvalidRoute }
func (ObjectOutOfPath) ErrorType() ErrorType { return ErrorObjectOutOfPath }
func (MissingRoute) ErrorType() ErrorType { return ErrorMissingRoute }
func (InvalidGroup) ErrorType() ErrorType { return ErrorInvalidGroup }
func (UnknownPortName) ErrorType() ErrorType { return ErrorUnknownPortName }
func (NodeEndpointsNotUnique) ErrorType() ErrorType { return ErrorNodeEndpointsNotUnique }

func (InvalidReference) subTypeSeal() {}
func (OutOfRange) subTypeSeal() {}
func (InvalidSwitchPorts) subTypeSeal() {}
func (EmptyObject) subTypeSeal() {}
func (OverlappingSpeedSections) subTypeSeal() {}
func (OverlappingElectrifications) subTypeSeal() {}
func (MissingBufferStop) subTypeSeal() {}
func (OddBufferStopLocation) subTypeSeal() {}
func (InvalidRoute) subTypeSeal() {}
func (ObjectOutOfPath) subTypeSeal() {}
func (MissingRoute) subTypeSeal() {}
func (InvalidGroup) subTypeSeal() {}
func (UnknownPortName) subTypeSeal() {}
func (NodeEndpointsNotUnique) subTypeSeal() {}

// InfraError is an integrity problem located on a field of one object.
type InfraError struct {
	ObjRef    schema.ObjectRef
	Field     string
	IsWarning bool
	SubType   SubType
}

func (e InfraError) String() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.ObjRef, e.SubType.ErrorType())
	}
	return fmt.Sprintf("%s.%s: %s", e.ObjRef, e.Field, e.SubType.ErrorType())
}

// MarshalJSON flattens the sub type next to the common fields.
func (e InfraError) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.SubType)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["obj_id"] = e.ObjRef.ID
	m["obj_type"] = e.ObjRef.Type
	m["field"] = e.Field
	m["is_warning"] = e.IsWarning
	m["error_type"] = e.SubType.ErrorType()
	return json.Marshal(m)
}

func newError(obj schema.ObjectRef, field string, warning bool, sub SubType) InfraError {
	return InfraError{ObjRef: obj, Field: field, IsWarning: warning, SubType: sub}
}

func newInvalidReference(obj schema.ObjectRef, field string, ref schema.ObjectRef) InfraError {
	return newError(obj, field, false, InvalidReference{Reference: ref})
}

func newOutOfRange(obj schema.ObjectRef, field string, warning bool, position, length float64) InfraError {
	return newError(obj, field, warning, OutOfRange{Position: position, ExpectedRange: [2]float64{0, length}})
}
