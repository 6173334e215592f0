// ABOUTME: Checks for routes: dangling references, unknown groups, uncomputable paths.
// ABOUTME: Also reports the tracks that no computable route covers.
package detect

import (
	"fmt"
	"slices"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/schema"
)

func checkRouteRefs(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	route, ok := obj.(*cache.RouteCache)
	if !ok {
		return nil
	}
	var errs []InfraError
	if ref := route.EntryPoint.Ref(); !infra.Contains(ref) {
		errs = append(errs, newInvalidReference(route.Ref(), "entry_point", ref))
	}
	if ref := route.ExitPoint.Ref(); !infra.Contains(ref) {
		errs = append(errs, newInvalidReference(route.Ref(), "exit_point", ref))
	}
	for i, det := range route.ReleaseDetectors {
		ref := schema.NewObjectRef(schema.Detector, det)
		if !infra.Contains(ref) {
			errs = append(errs, newInvalidReference(route.Ref(), fmt.Sprintf("release_detectors.%d", i), ref))
		}
	}
	for _, node := range sortedNodeIDs(route) {
		ref := schema.NewObjectRef(schema.TrackNode, node)
		if !infra.Contains(ref) {
			errs = append(errs, newInvalidReference(route.Ref(), "track_nodes_directions."+node, ref))
		}
	}
	return errs
}

func checkRouteGroups(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	route, ok := obj.(*cache.RouteCache)
	if !ok {
		return nil
	}
	var errs []InfraError
	for _, nodeID := range sortedNodeIDs(route) {
		node, err := infra.TrackNode(nodeID)
		if err != nil {
			continue
		}
		nodeType, ok := infra.NodeType(node.TrackNodeType)
		if !ok {
			continue
		}
		group := route.TrackNodesDirections[nodeID]
		if _, ok := nodeType.Groups[group]; !ok {
			errs = append(errs, newError(route.Ref(), "track_nodes_directions."+nodeID, false,
				InvalidGroup{Group: group, TrackNodeType: nodeType.ID}))
		}
	}
	return errs
}

func checkRoutePath(obj cache.ObjectCache, infra *cache.InfraCache, graph *cache.Graph) []InfraError {
	route, ok := obj.(*cache.RouteCache)
	if !ok {
		return nil
	}
	path, ok := infra.ComputeTrackRangesOnRoute(route, graph)
	if !ok {
		return []InfraError{newError(route.Ref(), "", false, InvalidRoute{})}
	}

	var errs []InfraError
	for i, detID := range route.ReleaseDetectors {
		det, err := infra.Detector(detID)
		if err != nil {
			continue
		}
		if !onPath(path, det.Track, det.Position) {
			errs = append(errs, newError(route.Ref(), fmt.Sprintf("release_detectors.%d", i), false,
				ObjectOutOfPath{Reference: det.Ref()}))
		}
	}
	return errs
}

func onPath(path *schema.RoutePath, track string, position float64) bool {
	for _, r := range path.TrackRanges {
		if r.Track == track && r.Begin <= position && position <= r.End {
			return true
		}
	}
	return false
}

// checkMissingRoutes warns about every track that no computable route crosses.
func checkMissingRoutes(infra *cache.InfraCache, graph *cache.Graph) []InfraError {
	covered := make(map[string]bool)
	for _, id := range infra.SortedIDs(schema.Route) {
		route, err := infra.Route(id)
		if err != nil {
			continue
		}
		path, ok := infra.ComputeTrackRangesOnRoute(route, graph)
		if !ok {
			continue
		}
		for _, r := range path.TrackRanges {
			covered[r.Track] = true
		}
	}

	var errs []InfraError
	for _, id := range infra.SortedIDs(schema.TrackSection) {
		if !covered[id] {
			errs = append(errs, newError(schema.NewObjectRef(schema.TrackSection, id), "", true, MissingRoute{}))
		}
	}
	return errs
}

func sortedNodeIDs(route *cache.RouteCache) []string {
	ids := make([]string, 0, len(route.TrackNodesDirections))
	for id := range route.TrackNodesDirections {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
