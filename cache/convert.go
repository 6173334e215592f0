// ABOUTME: Conversion from persistable RailJSON objects to their cached variants.
// ABOUTME: Derives track bounding boxes and line codes on the way in.
package cache

import (
	"fmt"
	"math"
	"slices"

	"github.com/2389-research/infracache/schema"
)

// FromObject converts a persistable object into its cached variant.
func FromObject(obj schema.InfraObject) (ObjectCache, error) {
	switch o := obj.(type) {
	case *schema.TrackSectionObject:
		track := &TrackSectionCache{
			ID:     o.ID,
			Length: o.Length,
			BBox:   boundingBox(o.Geo),
			Curves: slices.Clone(o.Curves),
			Slopes: slices.Clone(o.Slopes),
		}
		if o.Extensions != nil && o.Extensions.SNCF != nil {
			code := o.Extensions.SNCF.LineCode
			track.LineCode = &code
		}
		return track, nil
	case *schema.SignalObject:
		return &SignalCache{
			ID:             o.ID,
			Track:          o.Track,
			Position:       o.Position,
			Direction:      o.Direction,
			LogicalSignals: slices.Clone(o.LogicalSignals),
		}, nil
	case *schema.SpeedSectionObject:
		return &SpeedSectionCache{
			ID:              o.ID,
			SpeedLimit:      o.SpeedLimit,
			SpeedLimitByTag: o.SpeedLimitByTag,
			TrackRanges:     slices.Clone(o.TrackRanges),
		}, nil
	case *schema.TrackNodeObject:
		ports := make(map[string]schema.TrackEndpoint, len(o.Ports))
		for name, ep := range o.Ports {
			ports[name] = ep
		}
		return &TrackNodeCache{ID: o.ID, TrackNodeType: o.TrackNodeType, Ports: ports}, nil
	case *schema.DetectorObject:
		return &DetectorCache{ID: o.ID, Track: o.Track, Position: o.Position}, nil
	case *schema.BufferStopObject:
		return &BufferStopCache{ID: o.ID, Track: o.Track, Position: o.Position}, nil
	case *schema.RouteObject:
		dirs := make(map[string]string, len(o.TrackNodesDirections))
		for node, group := range o.TrackNodesDirections {
			dirs[node] = group
		}
		return &RouteCache{
			ID:                   o.ID,
			EntryPoint:           o.EntryPoint,
			EntryPointDirection:  o.EntryPointDirection,
			ExitPoint:            o.ExitPoint,
			ReleaseDetectors:     slices.Clone(o.ReleaseDetectors),
			TrackNodesDirections: dirs,
		}, nil
	case *schema.OperationalPointObject:
		op := &OperationalPointCache{ID: o.ID, Parts: slices.Clone(o.Parts)}
		if o.Extensions != nil && o.Extensions.Identifier != nil {
			op.Name = o.Extensions.Identifier.Name
		}
		return op, nil
	case *schema.TrackNodeTypeObject:
		groups := make(map[string][]schema.PortConnection, len(o.Groups))
		for name, conns := range o.Groups {
			groups[name] = slices.Clone(conns)
		}
		return &TrackNodeTypeCache{ID: o.ID, Ports: slices.Clone(o.Ports), Groups: groups}, nil
	case *schema.ElectrificationObject:
		return &ElectrificationCache{
			ID:          o.ID,
			Voltage:     o.Voltage,
			TrackRanges: slices.Clone(o.TrackRanges),
		}, nil
	case *schema.NeutralSectionObject:
		return &NeutralSectionCache{
			ID:                      o.ID,
			LowerPantograph:         o.LowerPantograph,
			TrackRanges:             slices.Clone(o.TrackRanges),
			AnnouncementTrackRanges: slices.Clone(o.AnnouncementTrackRanges),
		}, nil
	case nil:
		return nil, fmt.Errorf("cannot cache nil object")
	default:
		return nil, fmt.Errorf("cannot cache object of type %T", obj)
	}
}

func boundingBox(geo *schema.LineString) *BoundingBox {
	if geo == nil || len(geo.Coordinates) == 0 {
		return nil
	}
	bbox := &BoundingBox{
		MinLon: math.Inf(1),
		MinLat: math.Inf(1),
		MaxLon: math.Inf(-1),
		MaxLat: math.Inf(-1),
	}
	for _, c := range geo.Coordinates {
		bbox.MinLon = math.Min(bbox.MinLon, c[0])
		bbox.MinLat = math.Min(bbox.MinLat, c[1])
		bbox.MaxLon = math.Max(bbox.MaxLon, c[0])
		bbox.MaxLat = math.Max(bbox.MaxLat, c[1])
	}
	return bbox
}
