// ABOUTME: Graph is the endpoint adjacency derived from the track nodes of an InfraCache.
// ABOUTME: It is a plain value: rebuild it after any mutation of the cache it came from.
package cache

import (
	"sort"

	"github.com/2389-research/infracache/schema"
)

// Graph maps each track endpoint to its neighbour per node group, and to
// the node that owns it.
type Graph struct {
	links map[schema.TrackEndpoint]map[string]schema.TrackEndpoint
	nodes map[schema.TrackEndpoint]*TrackNodeCache
}

// BuildGraph derives the adjacency of every cached track node. Nodes of an
// unknown type and connections naming a missing port are skipped.
func BuildGraph(c *InfraCache) *Graph {
	g := &Graph{
		links: make(map[schema.TrackEndpoint]map[string]schema.TrackEndpoint),
		nodes: make(map[schema.TrackEndpoint]*TrackNodeCache),
	}

	for _, id := range c.SortedIDs(schema.TrackNode) {
		node, err := c.TrackNode(id)
		if err != nil {
			continue
		}
		nodeType, ok := c.NodeType(node.TrackNodeType)
		if !ok {
			continue
		}
		for _, ep := range node.Ports {
			g.nodes[ep] = node
		}
		for group, conns := range nodeType.Groups {
			for _, conn := range conns {
				src, okSrc := node.Ports[conn.Src]
				dst, okDst := node.Ports[conn.Dst]
				if !okSrc || !okDst {
					continue
				}
				g.link(src, group, dst)
				g.link(dst, group, src)
			}
		}
	}
	return g
}

func (g *Graph) link(from schema.TrackEndpoint, group string, to schema.TrackEndpoint) {
	groups, ok := g.links[from]
	if !ok {
		groups = make(map[string]schema.TrackEndpoint)
		g.links[from] = groups
	}
	groups[group] = to
}

// HasNeighbour reports whether ep is connected to anything.
func (g *Graph) HasNeighbour(ep schema.TrackEndpoint) bool {
	return len(g.links[ep]) > 0
}

// AllNeighbours returns every neighbour of ep ordered by group name.
func (g *Graph) AllNeighbours(ep schema.TrackEndpoint) []schema.TrackEndpoint {
	groups := g.links[ep]
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	neighbours := make([]schema.TrackEndpoint, 0, len(names))
	for _, name := range names {
		neighbours = append(neighbours, groups[name])
	}
	return neighbours
}

// Groups returns the groups through which ep has a neighbour, sorted.
func (g *Graph) Groups(ep schema.TrackEndpoint) []string {
	return sortedKeys(g.links[ep])
}

// Neighbour returns the endpoint reached from ep through group.
func (g *Graph) Neighbour(ep schema.TrackEndpoint, group string) (schema.TrackEndpoint, bool) {
	next, ok := g.links[ep][group]
	return next, ok
}

// TrackNode returns the node owning ep.
func (g *Graph) TrackNode(ep schema.TrackEndpoint) (*TrackNodeCache, bool) {
	node, ok := g.nodes[ep]
	return node, ok
}
