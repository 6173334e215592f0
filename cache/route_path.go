// ABOUTME: Computes the physical path of a route by walking the graph from its entry to its exit.
// ABOUTME: The walk never branches: an unresolved switch or a dead end fails the whole computation.
package cache

import "github.com/2389-research/infracache/schema"

type trackDirection struct {
	track string
	dir   schema.Direction
}

// ComputeTrackRangesOnRoute walks from the route's entry waypoint in its
// entry direction until the exit waypoint is reached. On every node crossed,
// a single-group node type is taken as is, otherwise the group must be given
// by route.TrackNodesDirections. It returns false when the entry and exit
// coincide, a waypoint or track is missing, the exit lies behind the walk,
// a node is unresolved, or a track would be traversed twice in the same
// direction.
func (c *InfraCache) ComputeTrackRangesOnRoute(route *RouteCache, g *Graph) (*schema.RoutePath, bool) {
	if route.EntryPoint == route.ExitPoint {
		return nil, false
	}
	curTrack, curOffset, err := c.WaypointLocation(route.EntryPoint)
	if err != nil {
		return nil, false
	}
	exitTrack, exitOffset, err := c.WaypointLocation(route.ExitPoint)
	if err != nil {
		return nil, false
	}
	curDir := route.EntryPointDirection

	path := &schema.RoutePath{}
	visited := make(map[trackDirection]bool)
	for {
		key := trackDirection{track: curTrack, dir: curDir}
		if visited[key] {
			return nil, false
		}
		visited[key] = true

		track, err := c.TrackSection(curTrack)
		if err != nil {
			return nil, false
		}

		if curTrack == exitTrack {
			if curDir == schema.StartToStop && curOffset > exitOffset {
				return nil, false
			}
			if curDir == schema.StopToStart && curOffset < exitOffset {
				return nil, false
			}
			path.TrackRanges = append(path.TrackRanges,
				schema.NewDirectionalTrackRange(curTrack, curOffset, exitOffset, curDir))
			return path, true
		}

		farEnd, farOffset := schema.End, track.Length
		if curDir == schema.StopToStart {
			farEnd, farOffset = schema.Begin, 0
		}
		path.TrackRanges = append(path.TrackRanges,
			schema.NewDirectionalTrackRange(curTrack, curOffset, farOffset, curDir))

		ep := schema.NewTrackEndpoint(farEnd, curTrack)
		if !g.HasNeighbour(ep) {
			return nil, false
		}
		node, ok := g.TrackNode(ep)
		if !ok {
			return nil, false
		}
		group, ok := c.nodeGroup(route, node)
		if !ok {
			return nil, false
		}
		next, ok := g.Neighbour(ep, group)
		if !ok {
			return nil, false
		}
		path.TrackNodesDirections = append(path.TrackNodesDirections,
			schema.NodeDirection{Node: node.ID, Group: group})

		nextTrack, err := c.TrackSection(next.Track)
		if err != nil {
			return nil, false
		}
		curTrack = next.Track
		if next.Endpoint == schema.Begin {
			curOffset, curDir = 0, schema.StartToStop
		} else {
			curOffset, curDir = nextTrack.Length, schema.StopToStart
		}
	}
}

func (c *InfraCache) nodeGroup(route *RouteCache, node *TrackNodeCache) (string, bool) {
	nodeType, ok := c.NodeType(node.TrackNodeType)
	if !ok {
		return "", false
	}
	if len(nodeType.Groups) == 1 {
		for group := range nodeType.Groups {
			return group, true
		}
	}
	group, ok := route.TrackNodesDirections[node.ID]
	return group, ok
}
