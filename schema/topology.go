// ABOUTME: Topology value types shared by the cache, graph and route path computation.
// ABOUTME: Endpoints, directions, waypoints, track ranges and the RoutePath result.
package schema

import "fmt"

// Endpoint is one extremity of a track section.
type Endpoint string

const (
	Begin Endpoint = "BEGIN"
	End   Endpoint = "END"
)

// Opposite returns the other extremity.
func (e Endpoint) Opposite() Endpoint {
	if e == Begin {
		return End
	}
	return Begin
}

// TrackEndpoint is an endpoint of a named track section.
type TrackEndpoint struct {
	Endpoint Endpoint `json:"endpoint"`
	Track    string   `json:"track"`
}

// NewTrackEndpoint builds a TrackEndpoint.
func NewTrackEndpoint(endpoint Endpoint, track string) TrackEndpoint {
	return TrackEndpoint{Endpoint: endpoint, Track: track}
}

func (t TrackEndpoint) String() string {
	return fmt.Sprintf("%s:%s", t.Track, t.Endpoint)
}

// Direction is a travel direction along a track section.
type Direction string

const (
	StartToStop Direction = "START_TO_STOP"
	StopToStart Direction = "STOP_TO_START"
)

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == StartToStop {
		return StopToStart
	}
	return StartToStop
}

// ApplicableDirections restricts an extent object to one or both directions.
type ApplicableDirections string

const (
	ApplicableStartToStop ApplicableDirections = "START_TO_STOP"
	ApplicableStopToStart ApplicableDirections = "STOP_TO_START"
	ApplicableBoth        ApplicableDirections = "BOTH"
)

// WaypointType is the kind of object a route may start or end at.
type WaypointType string

const (
	WaypointDetector   WaypointType = "Detector"
	WaypointBufferStop WaypointType = "BufferStop"
)

// Waypoint is a route extremity: a detector or a buffer stop.
type Waypoint struct {
	Type WaypointType `json:"type"`
	ID   string       `json:"id"`
}

// NewDetectorWaypoint builds a detector waypoint.
func NewDetectorWaypoint(id string) Waypoint {
	return Waypoint{Type: WaypointDetector, ID: id}
}

// NewBufferStopWaypoint builds a buffer stop waypoint.
func NewBufferStopWaypoint(id string) Waypoint {
	return Waypoint{Type: WaypointBufferStop, ID: id}
}

// IsDetector reports whether the waypoint points at a detector.
func (w Waypoint) IsDetector() bool {
	return w.Type == WaypointDetector
}

// Ref returns the ObjectRef of the waypoint's target.
func (w Waypoint) Ref() ObjectRef {
	if w.IsDetector() {
		return NewObjectRef(Detector, w.ID)
	}
	return NewObjectRef(BufferStop, w.ID)
}

// ParseWaypointType resolves a waypoint type name such as "Detector" or "BufferStop".
func ParseWaypointType(s string) (WaypointType, error) {
	switch WaypointType(s) {
	case WaypointDetector, WaypointBufferStop:
		return WaypointType(s), nil
	}
	return "", fmt.Errorf("unknown waypoint type %q", s)
}

// DirectionalTrackRange is a directed interval on a track, Begin <= End.
type DirectionalTrackRange struct {
	Track     string    `json:"track"`
	Begin     float64   `json:"begin"`
	End       float64   `json:"end"`
	Direction Direction `json:"direction"`
}

// NewDirectionalTrackRange builds a range, swapping bounds so Begin <= End.
func NewDirectionalTrackRange(track string, a, b float64, dir Direction) DirectionalTrackRange {
	if a > b {
		a, b = b, a
	}
	return DirectionalTrackRange{Track: track, Begin: a, End: b, Direction: dir}
}

// Length is the extent of the range.
func (r DirectionalTrackRange) Length() float64 {
	return r.End - r.Begin
}

// ApplicableDirectionsTrackRange is an interval on a track covering one or both directions.
type ApplicableDirectionsTrackRange struct {
	Track                string               `json:"track"`
	Begin                float64              `json:"begin"`
	End                  float64              `json:"end"`
	ApplicableDirections ApplicableDirections `json:"applicable_directions"`
}

// NodeDirection records the group a route uses on a track node.
type NodeDirection struct {
	Node  string `json:"node"`
	Group string `json:"group"`
}

// RoutePath is the physical path of a route: contiguous directed ranges
// plus the group taken on every node crossed.
type RoutePath struct {
	TrackRanges          []DirectionalTrackRange `json:"track_ranges"`
	TrackNodesDirections []NodeDirection         `json:"track_nodes_directions"`
}
