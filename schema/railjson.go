// ABOUTME: Persistable RailJSON projection of the eleven infrastructure object kinds.
// ABOUTME: Each struct implements the sealed InfraObject interface and round-trips through JSON.
package schema

// InfraObject is a persistable infrastructure object. The set of
// implementations is closed.
type InfraObject interface {
	ObjectType() ObjectType
	ObjectID() string
	infraObjectSeal()
}

// RefOf returns the ObjectRef of a persistable object.
func RefOf(obj InfraObject) ObjectRef {
	return NewObjectRef(obj.ObjectType(), obj.ObjectID())
}

// Slope is a gradient applied on part of a track section.
type Slope struct {
	Begin    float64 `json:"begin"`
	End      float64 `json:"end"`
	Gradient float64 `json:"gradient"`
}

// Curve is a radius applied on part of a track section.
type Curve struct {
	Begin  float64 `json:"begin"`
	End    float64 `json:"end"`
	Radius float64 `json:"radius"`
}

// LineString is a GeoJSON line geometry.
type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// TrackSectionSNCFExtension carries line identification of a track.
type TrackSectionSNCFExtension struct {
	LineCode    int    `json:"line_code"`
	LineName    string `json:"line_name"`
	TrackNumber int    `json:"track_number"`
	TrackName   string `json:"track_name"`
}

// TrackSectionExtensions groups optional track extensions.
type TrackSectionExtensions struct {
	SNCF *TrackSectionSNCFExtension `json:"sncf,omitempty"`
}

type TrackSectionObject struct {
	ID         string                  `json:"id"`
	Length     float64                 `json:"length"`
	Slopes     []Slope                 `json:"slopes"`
	Curves     []Curve                 `json:"curves"`
	Geo        *LineString             `json:"geo,omitempty"`
	Extensions *TrackSectionExtensions `json:"extensions,omitempty"`
}

// LogicalSignal is one signaling-system aspect of a physical signal.
type LogicalSignal struct {
	SignalingSystem      string            `json:"signaling_system"`
	NextSignalingSystems []string          `json:"next_signaling_systems"`
	Settings             map[string]string `json:"settings"`
}

type SignalObject struct {
	ID             string          `json:"id"`
	Track          string          `json:"track"`
	Position       float64         `json:"position"`
	Direction      Direction       `json:"direction"`
	SightDistance  float64         `json:"sight_distance"`
	LogicalSignals []LogicalSignal `json:"logical_signals"`
}

type SpeedSectionObject struct {
	ID              string                           `json:"id"`
	SpeedLimit      *float64                         `json:"speed_limit,omitempty"`
	SpeedLimitByTag map[string]float64               `json:"speed_limit_by_tag,omitempty"`
	TrackRanges     []ApplicableDirectionsTrackRange `json:"track_ranges"`
}

type TrackNodeObject struct {
	ID               string                   `json:"id"`
	TrackNodeType    string                   `json:"track_node_type"`
	GroupChangeDelay float64                  `json:"group_change_delay"`
	Ports            map[string]TrackEndpoint `json:"ports"`
}

type DetectorObject struct {
	ID       string  `json:"id"`
	Track    string  `json:"track"`
	Position float64 `json:"position"`
}

type BufferStopObject struct {
	ID       string  `json:"id"`
	Track    string  `json:"track"`
	Position float64 `json:"position"`
}

type RouteObject struct {
	ID                   string            `json:"id"`
	EntryPoint           Waypoint          `json:"entry_point"`
	EntryPointDirection  Direction         `json:"entry_point_direction"`
	ExitPoint            Waypoint          `json:"exit_point"`
	ReleaseDetectors     []string          `json:"release_detectors"`
	TrackNodesDirections map[string]string `json:"track_nodes_directions"`
}

// OperationalPointPart locates an operational point on one track.
type OperationalPointPart struct {
	ID       string  `json:"id"`
	Track    string  `json:"track"`
	Position float64 `json:"position"`
}

// OperationalPointIdentifier names an operational point.
type OperationalPointIdentifier struct {
	Name string `json:"name"`
	UIC  int    `json:"uic"`
}

// OperationalPointExtensions groups optional operational point extensions.
type OperationalPointExtensions struct {
	Identifier *OperationalPointIdentifier `json:"identifier,omitempty"`
}

type OperationalPointObject struct {
	ID         string                      `json:"id"`
	Parts      []OperationalPointPart      `json:"parts"`
	Extensions *OperationalPointExtensions `json:"extensions,omitempty"`
}

type TrackNodeTypeObject struct {
	ID     string                      `json:"id"`
	Ports  []string                    `json:"ports"`
	Groups map[string][]PortConnection `json:"groups"`
}

type ElectrificationObject struct {
	ID          string                           `json:"id"`
	Voltage     string                           `json:"voltage"`
	TrackRanges []ApplicableDirectionsTrackRange `json:"track_ranges"`
}

type NeutralSectionObject struct {
	ID                      string                  `json:"id"`
	LowerPantograph         bool                    `json:"lower_pantograph"`
	TrackRanges             []DirectionalTrackRange `json:"track_ranges"`
	AnnouncementTrackRanges []DirectionalTrackRange `json:"announcement_track_ranges"`
}

func (*TrackSectionObject) ObjectType() ObjectType { return TrackSection }
func (*SignalObject) ObjectType() ObjectType { return Signal }
func (*SpeedSectionObject) ObjectType() ObjectType { return SpeedSection }
func (*TrackNodeObject) ObjectType() ObjectType { return TrackNode }
func (*DetectorObject) ObjectType() ObjectType { return Detector }
func (*BufferStopObject) ObjectType() ObjectType { return BufferStop }
func (*RouteObject) ObjectType() ObjectType { return Route }
func (*OperationalPointObject) ObjectType() ObjectType { return OperationalPoint }
func (*TrackNodeTypeObject) ObjectType() ObjectType { return TrackNodeType }
func (*ElectrificationObject) ObjectType() ObjectType { return Electrification }
func (*NeutralSectionObject) ObjectType() ObjectType { return NeutralSection }

func (o *TrackSectionObject) ObjectID() string { return o.ID }
func (o *SignalObject) ObjectID() string { return o.ID }
func (o *SpeedSectionObject) ObjectID() string { return o.ID }
func (o *TrackNodeObject) ObjectID() string { return o.ID }
func (o *DetectorObject) ObjectID() string { return o.ID }
func (o *BufferStopObject) ObjectID() string { return o.ID }
func (o *RouteObject) ObjectID() string { return o.ID }
func (o *OperationalPointObject) ObjectID() string { return o.ID }
func (o *TrackNodeTypeObject) ObjectID() string { return o.ID }
func (o *ElectrificationObject) ObjectID() string { return o.ID }
func (o *NeutralSectionObject) ObjectID() string { return o.ID }

func (*TrackSectionObject) infraObjectSeal() {}
func (*SignalObject) infraObjectSeal() {}
func (*SpeedSectionObject) infraObjectSeal() {}
func (*TrackNodeObject) infraObjectSeal() {}
func (*DetectorObject) infraObjectSeal() {}
func (*BufferStopObject) infraObjectSeal() {}
func (*RouteObject) infraObjectSeal() {}
func (*OperationalPointObject) infraObjectSeal() {}
func (*TrackNodeTypeObject) infraObjectSeal() {}
func (*ElectrificationObject) infraObjectSeal() {}
func (*NeutralSectionObject) infraObjectSeal() {}
