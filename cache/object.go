// ABOUTME: ObjectCache is the closed set of cached infrastructure object variants.
// ABOUTME: Each variant knows its ObjectRef and the track sections it references.
package cache

import "github.com/2389-research/infracache/schema"

// ObjectCache is one cached infrastructure object. The value is itself the
// canonical cached form; variants are immutable once added to an InfraCache.
type ObjectCache interface {
	Ref() schema.ObjectRef
	// TrackReferencedIDs lists the track sections this object sits on.
	TrackReferencedIDs() []string
	objectCacheSeal()
}

// BoundingBox is the lon/lat envelope of a track geometry.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// TrackSectionCache is a track: its length, geometry envelope and profile.
type TrackSectionCache struct {
	ID       string
	Length   float64
	BBox     *BoundingBox
	LineCode *int
	Curves   []schema.Curve
	Slopes   []schema.Slope
}

// Begin is the BEGIN endpoint of the track.
func (t *TrackSectionCache) Begin() schema.TrackEndpoint {
	return schema.NewTrackEndpoint(schema.Begin, t.ID)
}

// End is the END endpoint of the track.
func (t *TrackSectionCache) End() schema.TrackEndpoint {
	return schema.NewTrackEndpoint(schema.End, t.ID)
}

// SignalCache is a signal placed at a position of a track.
type SignalCache struct {
	ID             string
	Track          string
	Position       float64
	Direction      schema.Direction
	LogicalSignals []schema.LogicalSignal
}

// SpeedSectionCache is a speed limit applied over track ranges.
type SpeedSectionCache struct {
	ID              string
	SpeedLimit      *float64
	SpeedLimitByTag map[string]float64
	TrackRanges     []schema.ApplicableDirectionsTrackRange
}

// TrackNodeCache is a switch or link joining track endpoints through named ports.
type TrackNodeCache struct {
	ID            string
	TrackNodeType string
	Ports         map[string]schema.TrackEndpoint
}

// DetectorCache is a train detector placed on a track.
type DetectorCache struct {
	ID       string
	Track    string
	Position float64
}

// BufferStopCache is a buffer stop closing a track extremity.
type BufferStopCache struct {
	ID       string
	Track    string
	Position float64
}

// RouteCache is a route between two waypoints with the node groups it sets.
type RouteCache struct {
	ID                   string
	EntryPoint           schema.Waypoint
	EntryPointDirection  schema.Direction
	ExitPoint            schema.Waypoint
	ReleaseDetectors     []string
	TrackNodesDirections map[string]string
}

// OperationalPointCache is a named location made of parts on one or more tracks.
type OperationalPointCache struct {
	ID    string
	Name  string
	Parts []schema.OperationalPointPart
}

// TrackNodeTypeCache is a node type declared by the infrastructure.
type TrackNodeTypeCache struct {
	ID     string
	Ports  []string
	Groups map[string][]schema.PortConnection
}

// NodeType returns the node type description used by the graph.
func (t *TrackNodeTypeCache) NodeType() schema.TrackNodeTypeObject {
	return schema.TrackNodeTypeObject{ID: t.ID, Ports: t.Ports, Groups: t.Groups}
}

// ElectrificationCache is a catenary voltage over track ranges.
type ElectrificationCache struct {
	ID          string
	Voltage     string
	TrackRanges []schema.ApplicableDirectionsTrackRange
}

// NeutralSectionCache is a section where trains must cut traction.
type NeutralSectionCache struct {
	ID                      string
	LowerPantograph         bool
	TrackRanges             []schema.DirectionalTrackRange
	AnnouncementTrackRanges []schema.DirectionalTrackRange
}

func (t *TrackSectionCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.TrackSection, t.ID)
}

func (s *SignalCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.Signal, s.ID)
}

func (s *SpeedSectionCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.SpeedSection, s.ID)
}

func (n *TrackNodeCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.TrackNode, n.ID)
}

func (d *DetectorCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.Detector, d.ID)
}

func (b *BufferStopCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.BufferStop, b.ID)
}

func (r *RouteCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.Route, r.ID)
}

func (o *OperationalPointCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.OperationalPoint, o.ID)
}

func (t *TrackNodeTypeCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.TrackNodeType, t.ID)
}

func (e *ElectrificationCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.Electrification, e.ID)
}

func (n *NeutralSectionCache) Ref() schema.ObjectRef {
	return schema.NewObjectRef(schema.NeutralSection, n.ID)
}

// Tracks reference nothing, routes are indexed through their waypoints and
// node types are not located on tracks.
func (*TrackSectionCache) TrackReferencedIDs() []string { return nil }
func (*RouteCache) TrackReferencedIDs() []string { return nil }
func (*TrackNodeTypeCache) TrackReferencedIDs() []string { return nil }

func (s *SignalCache) TrackReferencedIDs() []string { return []string{s.Track} }
func (d *DetectorCache) TrackReferencedIDs() []string { return []string{d.Track} }
func (b *BufferStopCache) TrackReferencedIDs() []string { return []string{b.Track} }

func (s *SpeedSectionCache) TrackReferencedIDs() []string {
	return applicableRangeTracks(s.TrackRanges)
}

func (e *ElectrificationCache) TrackReferencedIDs() []string {
	return applicableRangeTracks(e.TrackRanges)
}

func (n *TrackNodeCache) TrackReferencedIDs() []string {
	ids := make([]string, 0, len(n.Ports))
	for _, port := range sortedKeys(n.Ports) {
		ids = appendUnique(ids, n.Ports[port].Track)
	}
	return ids
}

func (o *OperationalPointCache) TrackReferencedIDs() []string {
	ids := make([]string, 0, len(o.Parts))
	for _, part := range o.Parts {
		ids = appendUnique(ids, part.Track)
	}
	return ids
}

func (n *NeutralSectionCache) TrackReferencedIDs() []string {
	var ids []string
	for _, r := range n.TrackRanges {
		ids = appendUnique(ids, r.Track)
	}
	for _, r := range n.AnnouncementTrackRanges {
		ids = appendUnique(ids, r.Track)
	}
	return ids
}

func (*TrackSectionCache) objectCacheSeal() {}
func (*SignalCache) objectCacheSeal() {}
func (*SpeedSectionCache) objectCacheSeal() {}
func (*TrackNodeCache) objectCacheSeal() {}
func (*DetectorCache) objectCacheSeal() {}
func (*BufferStopCache) objectCacheSeal() {}
func (*RouteCache) objectCacheSeal() {}
func (*OperationalPointCache) objectCacheSeal() {}
func (*TrackNodeTypeCache) objectCacheSeal() {}
func (*ElectrificationCache) objectCacheSeal() {}
func (*NeutralSectionCache) objectCacheSeal() {}

func applicableRangeTracks(ranges []schema.ApplicableDirectionsTrackRange) []string {
	ids := make([]string, 0, len(ranges))
	for _, r := range ranges {
		ids = appendUnique(ids, r.Track)
	}
	return ids
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
