// ABOUTME: RailJSON is a whole infrastructure document, importable from JSON or YAML.
// ABOUTME: YAML input is decoded with yaml.v3 and re-encoded as JSON so one set of tags applies.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RailJSONVersion is the document version written by this module.
const RailJSONVersion = "3.4.12"

// RailJSON is a complete infrastructure document.
type RailJSON struct {
	Version           string                    `json:"version"`
	TrackSections     []*TrackSectionObject     `json:"track_sections"`
	Signals           []*SignalObject           `json:"signals"`
	SpeedSections     []*SpeedSectionObject     `json:"speed_sections"`
	TrackNodes        []*TrackNodeObject        `json:"track_nodes"`
	Detectors         []*DetectorObject         `json:"detectors"`
	BufferStops       []*BufferStopObject       `json:"buffer_stops"`
	Routes            []*RouteObject            `json:"routes"`
	OperationalPoints []*OperationalPointObject `json:"operational_points"`
	ExtendedNodeTypes []*TrackNodeTypeObject    `json:"extended_track_node_types"`
	Electrifications  []*ElectrificationObject  `json:"electrifications"`
	NeutralSections   []*NeutralSectionObject   `json:"neutral_sections"`
}

// Objects flattens the document in AllObjectTypes order.
func (r *RailJSON) Objects() []InfraObject {
	var objs []InfraObject
	for _, o := range r.TrackSections {
		objs = append(objs, o)
	}
	for _, o := range r.Signals {
		objs = append(objs, o)
	}
	for _, o := range r.SpeedSections {
		objs = append(objs, o)
	}
	for _, o := range r.TrackNodes {
		objs = append(objs, o)
	}
	for _, o := range r.Detectors {
		objs = append(objs, o)
	}
	for _, o := range r.BufferStops {
		objs = append(objs, o)
	}
	for _, o := range r.Routes {
		objs = append(objs, o)
	}
	for _, o := range r.OperationalPoints {
		objs = append(objs, o)
	}
	for _, o := range r.ExtendedNodeTypes {
		objs = append(objs, o)
	}
	for _, o := range r.Electrifications {
		objs = append(objs, o)
	}
	for _, o := range r.NeutralSections {
		objs = append(objs, o)
	}
	return objs
}

// Add appends an object to the list matching its type.
func (r *RailJSON) Add(obj InfraObject) {
	switch o := obj.(type) {
	case *TrackSectionObject:
		r.TrackSections = append(r.TrackSections, o)
	case *SignalObject:
		r.Signals = append(r.Signals, o)
	case *SpeedSectionObject:
		r.SpeedSections = append(r.SpeedSections, o)
	case *TrackNodeObject:
		r.TrackNodes = append(r.TrackNodes, o)
	case *DetectorObject:
		r.Detectors = append(r.Detectors, o)
	case *BufferStopObject:
		r.BufferStops = append(r.BufferStops, o)
	case *RouteObject:
		r.Routes = append(r.Routes, o)
	case *OperationalPointObject:
		r.OperationalPoints = append(r.OperationalPoints, o)
	case *TrackNodeTypeObject:
		r.ExtendedNodeTypes = append(r.ExtendedNodeTypes, o)
	case *ElectrificationObject:
		r.Electrifications = append(r.Electrifications, o)
	case *NeutralSectionObject:
		r.NeutralSections = append(r.NeutralSections, o)
	}
}

// ParseRailJSON decodes a document. format is "json" or "yaml"; an empty
// format is treated as JSON.
func ParseRailJSON(data []byte, format string) (*RailJSON, error) {
	switch strings.ToLower(format) {
	case "", "json":
	case "yaml", "yml":
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parse railjson yaml: %w", err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("convert railjson yaml: %w", err)
		}
		data = converted
	default:
		return nil, fmt.Errorf("unsupported railjson format %q", format)
	}

	var doc RailJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse railjson: %w", err)
	}
	if doc.Version == "" {
		doc.Version = RailJSONVersion
	}
	return &doc, nil
}
