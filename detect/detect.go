// ABOUTME: Runs every integrity check over an InfraCache and returns the errors found.
// ABOUTME: Per-type checks run by priority; a later priority is skipped once an earlier one reported.
package detect

import (
	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/logging"
	"github.com/2389-research/infracache/schema"
)

// objectCheck inspects a single object.
type objectCheck struct {
	priority int
	check    func(obj cache.ObjectCache, infra *cache.InfraCache, graph *cache.Graph) []InfraError
}

// globalCheck inspects the whole infrastructure for one object type.
type globalCheck func(infra *cache.InfraCache, graph *cache.Graph) []InfraError

type generators struct {
	objects []objectCheck
	global  []globalCheck
}

// registry lists the checks of every object type, object checks sorted by priority.
var registry = map[schema.ObjectType]generators{
	schema.TrackSection: {
		objects: []objectCheck{{1, checkTrackSlopes}, {1, checkTrackCurves}},
	},
	schema.Signal: {
		objects: []objectCheck{{1, checkPointInvalidRef}, {2, checkPointOutOfRange}},
	},
	schema.SpeedSection: {
		objects: []objectCheck{{1, checkSpeedSectionRefs}, {2, checkSpeedSectionRanges}},
		global:  []globalCheck{checkOverlappingSpeedSections},
	},
	schema.TrackNode: {
		objects: []objectCheck{{1, checkTrackNodeRefs}, {2, checkTrackNodePorts}},
	},
	schema.Detector: {
		objects: []objectCheck{{1, checkPointInvalidRef}, {2, checkPointOutOfRange}},
	},
	schema.BufferStop: {
		objects: []objectCheck{{1, checkPointInvalidRef}, {2, checkPointOutOfRange}, {3, checkOddBufferStopLocation}},
		global:  []globalCheck{checkMissingBufferStops},
	},
	schema.Route: {
		objects: []objectCheck{{1, checkRouteRefs}, {2, checkRouteGroups}, {3, checkRoutePath}},
		global:  []globalCheck{checkMissingRoutes},
	},
	schema.OperationalPoint: {
		objects: []objectCheck{{1, checkOperationalPointRefs}, {2, checkOperationalPointRanges}},
	},
	schema.TrackNodeType: {
		objects: []objectCheck{{1, checkTrackNodeTypePorts}},
	},
	schema.Electrification: {
		objects: []objectCheck{{1, checkElectrificationRefs}, {2, checkElectrificationRanges}},
		global:  []globalCheck{checkOverlappingElectrifications},
	},
	schema.NeutralSection: {
		objects: []objectCheck{{1, checkNeutralSectionRefs}, {2, checkNeutralSectionRanges}},
	},
}

// GenerateErrors runs every check. Object types are visited in
// schema.AllObjectTypes order and objects by ascending id, so the result is
// deterministic.
func GenerateErrors(infra *cache.InfraCache) []InfraError {
	graph := cache.BuildGraph(infra)

	var errs []InfraError
	for _, objType := range schema.AllObjectTypes {
		gens := registry[objType]
		objects := infra.Objects(objType)
		for _, id := range infra.SortedIDs(objType) {
			errs = append(errs, runObjectChecks(objects[id], gens.objects, infra, graph)...)
		}
		for _, check := range gens.global {
			errs = append(errs, check(infra, graph)...)
		}
	}

	logging.Component("detect").WithFields(logrus.Fields{
		"action": "generate",
		"errors": len(errs),
	}).Debug("infra errors generated")
	return errs
}

func runObjectChecks(obj cache.ObjectCache, checks []objectCheck, infra *cache.InfraCache, graph *cache.Graph) []InfraError {
	var errs []InfraError
	priority := 0
	for _, c := range checks {
		if c.priority != priority {
			if len(errs) > 0 {
				break
			}
			priority = c.priority
		}
		errs = append(errs, c.check(obj, infra, graph)...)
	}
	return errs
}

// Filter keeps the errors matching keep.
func Filter(errs []InfraError, keep func(InfraError) bool) []InfraError {
	var out []InfraError
	for _, e := range errs {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
