// ABOUTME: Checks for objects spanning track ranges: speed sections, electrifications, neutral sections,
// ABOUTME: operational points and the slopes and curves of track sections.
package detect

import (
	"fmt"
	"maps"
	"slices"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/schema"
)

type span struct {
	track      string
	begin, end float64
}

func applicableSpans(ranges []schema.ApplicableDirectionsTrackRange) []span {
	spans := make([]span, 0, len(ranges))
	for _, r := range ranges {
		spans = append(spans, span{track: r.Track, begin: r.Begin, end: r.End})
	}
	return spans
}

func directionalSpans(ranges []schema.DirectionalTrackRange) []span {
	spans := make([]span, 0, len(ranges))
	for _, r := range ranges {
		spans = append(spans, span{track: r.Track, begin: r.Begin, end: r.End})
	}
	return spans
}

func checkSpanRefs(obj schema.ObjectRef, field string, spans []span, infra *cache.InfraCache) []InfraError {
	var errs []InfraError
	for i, s := range spans {
		ref := schema.NewObjectRef(schema.TrackSection, s.track)
		if !infra.Contains(ref) {
			errs = append(errs, newInvalidReference(obj, fmt.Sprintf("%s.%d", field, i), ref))
		}
	}
	return errs
}

// Out-of-range extents are reported as warnings.
func checkSpanRanges(obj schema.ObjectRef, field string, spans []span, infra *cache.InfraCache) []InfraError {
	var errs []InfraError
	for i, s := range spans {
		track, err := infra.TrackSection(s.track)
		if err != nil {
			continue
		}
		if s.begin < 0 || s.begin > track.Length {
			errs = append(errs, newOutOfRange(obj, fmt.Sprintf("%s.%d.begin", field, i), true, s.begin, track.Length))
		}
		if s.end < 0 || s.end > track.Length {
			errs = append(errs, newOutOfRange(obj, fmt.Sprintf("%s.%d.end", field, i), true, s.end, track.Length))
		}
	}
	return errs
}

func checkTrackSlopes(obj cache.ObjectCache, _ *cache.InfraCache, _ *cache.Graph) []InfraError {
	track, ok := obj.(*cache.TrackSectionCache)
	if !ok {
		return nil
	}
	var errs []InfraError
	for i, s := range track.Slopes {
		errs = append(errs, trackIntervalOutOfRange(track, fmt.Sprintf("slopes.%d", i), s.Begin, s.End)...)
	}
	return errs
}

func checkTrackCurves(obj cache.ObjectCache, _ *cache.InfraCache, _ *cache.Graph) []InfraError {
	track, ok := obj.(*cache.TrackSectionCache)
	if !ok {
		return nil
	}
	var errs []InfraError
	for i, c := range track.Curves {
		errs = append(errs, trackIntervalOutOfRange(track, fmt.Sprintf("curves.%d", i), c.Begin, c.End)...)
	}
	return errs
}

func trackIntervalOutOfRange(track *cache.TrackSectionCache, field string, begin, end float64) []InfraError {
	var errs []InfraError
	if begin < 0 || begin > track.Length {
		errs = append(errs, newOutOfRange(track.Ref(), field+".begin", true, begin, track.Length))
	}
	if end < 0 || end > track.Length {
		errs = append(errs, newOutOfRange(track.Ref(), field+".end", true, end, track.Length))
	}
	return errs
}

func checkSpeedSectionRefs(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	sp, ok := obj.(*cache.SpeedSectionCache)
	if !ok {
		return nil
	}
	if len(sp.TrackRanges) == 0 {
		return []InfraError{newError(sp.Ref(), "track_ranges", false, EmptyObject{})}
	}
	return checkSpanRefs(sp.Ref(), "track_ranges", applicableSpans(sp.TrackRanges), infra)
}

func checkSpeedSectionRanges(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	sp, ok := obj.(*cache.SpeedSectionCache)
	if !ok {
		return nil
	}
	return checkSpanRanges(sp.Ref(), "track_ranges", applicableSpans(sp.TrackRanges), infra)
}

func checkElectrificationRefs(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	e, ok := obj.(*cache.ElectrificationCache)
	if !ok {
		return nil
	}
	if len(e.TrackRanges) == 0 {
		return []InfraError{newError(e.Ref(), "track_ranges", false, EmptyObject{})}
	}
	return checkSpanRefs(e.Ref(), "track_ranges", applicableSpans(e.TrackRanges), infra)
}

func checkElectrificationRanges(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	e, ok := obj.(*cache.ElectrificationCache)
	if !ok {
		return nil
	}
	return checkSpanRanges(e.Ref(), "track_ranges", applicableSpans(e.TrackRanges), infra)
}

func checkNeutralSectionRefs(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	ns, ok := obj.(*cache.NeutralSectionCache)
	if !ok {
		return nil
	}
	if len(ns.TrackRanges) == 0 {
		return []InfraError{newError(ns.Ref(), "track_ranges", false, EmptyObject{})}
	}
	errs := checkSpanRefs(ns.Ref(), "track_ranges", directionalSpans(ns.TrackRanges), infra)
	return append(errs, checkSpanRefs(ns.Ref(), "announcement_track_ranges", directionalSpans(ns.AnnouncementTrackRanges), infra)...)
}

func checkNeutralSectionRanges(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	ns, ok := obj.(*cache.NeutralSectionCache)
	if !ok {
		return nil
	}
	errs := checkSpanRanges(ns.Ref(), "track_ranges", directionalSpans(ns.TrackRanges), infra)
	return append(errs, checkSpanRanges(ns.Ref(), "announcement_track_ranges", directionalSpans(ns.AnnouncementTrackRanges), infra)...)
}

func checkOperationalPointRefs(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	op, ok := obj.(*cache.OperationalPointCache)
	if !ok {
		return nil
	}
	if len(op.Parts) == 0 {
		return []InfraError{newError(op.Ref(), "parts", false, EmptyObject{})}
	}
	var errs []InfraError
	for i, part := range op.Parts {
		ref := schema.NewObjectRef(schema.TrackSection, part.Track)
		if !infra.Contains(ref) {
			errs = append(errs, newInvalidReference(op.Ref(), fmt.Sprintf("parts.%d.track", i), ref))
		}
	}
	return errs
}

func checkOperationalPointRanges(obj cache.ObjectCache, infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	op, ok := obj.(*cache.OperationalPointCache)
	if !ok {
		return nil
	}
	var errs []InfraError
	for i, part := range op.Parts {
		track, err := infra.TrackSection(part.Track)
		if err != nil {
			continue
		}
		if part.Position < 0 || part.Position > track.Length {
			errs = append(errs, newOutOfRange(op.Ref(), fmt.Sprintf("parts.%d.position", i), true, part.Position, track.Length))
		}
	}
	return errs
}

func directionsOverlap(a, b schema.ApplicableDirections) bool {
	return a == schema.ApplicableBoth || b == schema.ApplicableBoth || a == b
}

func rangesOverlap(a, b schema.ApplicableDirectionsTrackRange) bool {
	if a.Track != b.Track || !directionsOverlap(a.ApplicableDirections, b.ApplicableDirections) {
		return false
	}
	return max(a.Begin, b.Begin) < min(a.End, b.End)
}

func anyRangeOverlap(a, b []schema.ApplicableDirectionsTrackRange) bool {
	for _, ra := range a {
		for _, rb := range b {
			if rangesOverlap(ra, rb) {
				return true
			}
		}
	}
	return false
}

// sameSpeedScope reports whether two speed sections constrain the same
// trains: both or neither set a default limit, and they share tag keys.
func sameSpeedScope(a, b *cache.SpeedSectionCache) bool {
	if (a.SpeedLimit == nil) != (b.SpeedLimit == nil) {
		return false
	}
	tagsA := slices.Sorted(maps.Keys(a.SpeedLimitByTag))
	tagsB := slices.Sorted(maps.Keys(b.SpeedLimitByTag))
	return slices.Equal(tagsA, tagsB)
}

// Overlaps are reported once, on the section with the greater id.
func checkOverlappingSpeedSections(infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	ids := infra.SortedIDs(schema.SpeedSection)
	var errs []InfraError
	for j, id := range ids {
		later, err := infra.SpeedSection(id)
		if err != nil {
			continue
		}
		for _, otherID := range ids[:j] {
			earlier, err := infra.SpeedSection(otherID)
			if err != nil || !sameSpeedScope(earlier, later) {
				continue
			}
			if anyRangeOverlap(earlier.TrackRanges, later.TrackRanges) {
				errs = append(errs, newError(later.Ref(), "track_ranges", true,
					OverlappingSpeedSections{Reference: earlier.Ref()}))
			}
		}
	}
	return errs
}

func checkOverlappingElectrifications(infra *cache.InfraCache, _ *cache.Graph) []InfraError {
	ids := infra.SortedIDs(schema.Electrification)
	var errs []InfraError
	for j, id := range ids {
		later, err := infra.Electrification(id)
		if err != nil {
			continue
		}
		for _, otherID := range ids[:j] {
			earlier, err := infra.Electrification(otherID)
			if err != nil {
				continue
			}
			if anyRangeOverlap(earlier.TrackRanges, later.TrackRanges) {
				errs = append(errs, newError(later.Ref(), "track_ranges", false,
					OverlappingElectrifications{Reference: earlier.Ref()}))
			}
		}
	}
	return errs
}
