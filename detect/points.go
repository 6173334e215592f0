// ABOUTME: Checks for objects located at a single point of a track: signals, detectors and buffer stops.
// ABOUTME: Includes the buffer stop placement checks against the track topology.
package detect

import (
	"sort"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/schema"
)

func pointLocation(obj cache.ObjectCache) (track string, position float64, ok bool) {
	switch o := obj.(type) {
	case *cache.SignalCache:
		return o.Track, o.Position, true
	case *cache.DetectorCache:
		return o.Track, o.Position, true
	case *cache.BufferStopCache:
		return o.Track, o.Position, true
	}
	return "", 0, false
}

func checkPointInvalidRef(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	track, _, ok := pointLocation(obj)
	if !ok {
		return nil
	}
	ref := schema.NewObjectRef(schema.TrackSection, track)
	if infra.Contains(ref) {
		return nil
	}
	return []InfraError{newInvalidReference(obj.Ref(), "track", ref)}
}

func checkPointOutOfRange(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	trackID, position, ok := pointLocation(obj)
	if !ok {
		return nil
	}
	track, err := infra.TrackSection(trackID)
	if err != nil {
		return nil
	}
	if position < 0 || position > track.Length {
		return []InfraError{newOutOfRange(obj.Ref(), "position", false, position, track.Length)}
	}
	return nil
}

// nearestEndpoint is the track extremity closest to position.
func nearestEndpoint(track *cache.TrackSectionCache, position float64) schema.TrackEndpoint {
	if position < track.Length/2 {
		return track.Begin()
	}
	return track.End()
}

// checkOddBufferStopLocation flags a buffer stop that does not close an end
// of the infrastructure: its track is linked at both ends, or another stop
// sits nearer to the unlinked extremity it would protect.
func checkOddBufferStopLocation(obj cache.ObjectCache, infra *cache.InfraCache, graph *cache.Graph) []InfraError {
	bs, ok := obj.(*cache.BufferStopCache)
	if !ok {
		return nil
	}
	track, err := infra.TrackSection(bs.Track)
	if err != nil {
		return nil
	}
	odd := []InfraError{newError(bs.Ref(), "position", false, OddBufferStopLocation{})}
	beginLinked := graph.HasNeighbour(track.Begin())
	endLinked := graph.HasNeighbour(track.End())
	if beginLinked && endLinked {
		return odd
	}

	refs := infra.TrackRefsOfType(bs.Track, schema.BufferStop)
	if len(refs) == 1 || (len(refs) == 2 && !beginLinked && !endLinked) {
		return nil
	}

	stops := make([]*cache.BufferStopCache, 0, len(refs))
	for _, ref := range refs {
		if stop, err := infra.BufferStop(ref.ID); err == nil {
			stops = append(stops, stop)
		}
	}
	if len(stops) == 0 {
		return nil
	}
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Position < stops[j].Position })
	first, last := stops[0].ID, stops[len(stops)-1].ID

	protectsBegin := !beginLinked && first == bs.ID
	protectsEnd := !endLinked && last == bs.ID
	if !protectsBegin && !protectsEnd {
		return odd
	}
	return nil
}

// checkMissingBufferStops reports the unconnected track extremities that no
// buffer stop closes. Tracks connected at both ends, or already holding two
// or more buffer stops, are never reported.
func checkMissingBufferStops(infra *cache.InfraCache, graph *cache.Graph) []InfraError {
	var errs []InfraError
	for _, id := range infra.SortedIDs(schema.TrackSection) {
		track, err := infra.TrackSection(id)
		if err != nil {
			continue
		}
		beginLinked := graph.HasNeighbour(track.Begin())
		endLinked := graph.HasNeighbour(track.End())
		if beginLinked && endLinked {
			continue
		}

		stops := infra.TrackRefsOfType(id, schema.BufferStop)
		switch len(stops) {
		case 0:
			if !beginLinked {
				errs = append(errs, missingBufferStop(track, schema.Begin))
			}
			if !endLinked {
				errs = append(errs, missingBufferStop(track, schema.End))
			}
		case 1:
			if beginLinked || endLinked {
				continue
			}
			bs, err := infra.BufferStop(stops[0].ID)
			if err != nil {
				continue
			}
			missing := nearestEndpoint(track, bs.Position).Endpoint.Opposite()
			errs = append(errs, missingBufferStop(track, missing))
		}
	}
	return errs
}

func missingBufferStop(track *cache.TrackSectionCache, endpoint schema.Endpoint) InfraError {
	return newError(track.Ref(), "buffer_stops", false, MissingBufferStop{Endpoint: endpoint})
}
