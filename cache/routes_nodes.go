// ABOUTME: Selection of routes by the positions they require from a set of track nodes.
// ABOUTME: Backs the editor query "which routes cross these switches, in which positions".
package cache

import (
	"sort"

	"github.com/2389-research/infracache/schema"
)

// RoutesFromNodes lists the routes crossing every requested node and, per
// node, the groups those routes use.
type RoutesFromNodes struct {
	Routes                 []string            `json:"routes"`
	AvailableNodePositions map[string][]string `json:"available_node_positions"`
}

// RoutesCrossingNodes returns the routes that set every node of states. A
// nil state accepts any group; a non-nil one requires that group. Routes not
// constrained by any node are never returned.
func (c *InfraCache) RoutesCrossingNodes(states map[string]*string) RoutesFromNodes {
	result := RoutesFromNodes{Routes: []string{}, AvailableNodePositions: map[string][]string{}}
	if len(states) == 0 {
		return result
	}

	positions := make(map[string]map[string]struct{})
	for _, id := range c.SortedIDs(schema.Route) {
		route, err := c.Route(id)
		if err != nil || len(route.TrackNodesDirections) == 0 || !routeMatches(route, states) {
			continue
		}
		result.Routes = append(result.Routes, id)
		for node := range states {
			set, ok := positions[node]
			if !ok {
				set = make(map[string]struct{})
				positions[node] = set
			}
			set[route.TrackNodesDirections[node]] = struct{}{}
		}
	}

	for node, set := range positions {
		groups := make([]string, 0, len(set))
		for g := range set {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		result.AvailableNodePositions[node] = groups
	}
	return result
}

func routeMatches(route *RouteCache, states map[string]*string) bool {
	for node, state := range states {
		group, ok := route.TrackNodesDirections[node]
		if !ok {
			return false
		}
		if state != nil && *state != group {
			return false
		}
	}
	return true
}
