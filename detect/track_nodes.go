// ABOUTME: Checks for track nodes and custom track node types.
// ABOUTME: Validates references, port sets against the node type and group port names.
package detect

import (
	"fmt"
	"slices"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/schema"
)

func checkTrackNodeRefs(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	node, ok := obj.(*cache.TrackNodeCache)
	if !ok {
		return nil
	}
	var errs []InfraError
	if _, ok := infra.NodeType(node.TrackNodeType); !ok {
		errs = append(errs, newInvalidReference(node.Ref(), "track_node_type",
			schema.NewObjectRef(schema.TrackNodeType, node.TrackNodeType)))
	}
	for _, port := range sortedPortNames(node.Ports) {
		ref := schema.NewObjectRef(schema.TrackSection, node.Ports[port].Track)
		if !infra.Contains(ref) {
			errs = append(errs, newInvalidReference(node.Ref(), "ports."+port, ref))
		}
	}
	return errs
}

func checkTrackNodePorts(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	node, ok := obj.(*cache.TrackNodeCache)
	if !ok {
		return nil
	}
	nodeType, ok := infra.NodeType(node.TrackNodeType)
	if !ok {
		return nil
	}

	var errs []InfraError
	expected := slices.Clone(nodeType.Ports)
	slices.Sort(expected)
	if !slices.Equal(expected, sortedPortNames(node.Ports)) {
		errs = append(errs, newError(node.Ref(), "ports", false, InvalidSwitchPorts{}))
	}

	seen := make(map[schema.TrackEndpoint]bool, len(node.Ports))
	for _, port := range sortedPortNames(node.Ports) {
		ep := node.Ports[port]
		if seen[ep] {
			errs = append(errs, newError(node.Ref(), "ports", false, NodeEndpointsNotUnique{}))
			break
		}
		seen[ep] = true
	}
	return errs
}

func checkTrackNodeTypePorts(obj cache.ObjectCache, _ *cache.InfraCache, _ *cache.Graph) []InfraError {
	nodeType, ok := obj.(*cache.TrackNodeTypeCache)
	if !ok {
		return nil
	}
	var errs []InfraError
	groups := make([]string, 0, len(nodeType.Groups))
	for g := range nodeType.Groups {
		groups = append(groups, g)
	}
	slices.Sort(groups)
	for _, group := range groups {
		for _, conn := range nodeType.Groups[group] {
			for _, port := range []string{conn.Src, conn.Dst} {
				if !slices.Contains(nodeType.Ports, port) {
					errs = append(errs, newError(nodeType.Ref(), fmt.Sprintf("groups.%s", group), false,
						UnknownPortName{PortName: port}))
				}
			}
		}
	}
	return errs
}

func sortedPortNames(ports map[string]schema.TrackEndpoint) []string {
	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
