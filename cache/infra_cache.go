// ABOUTME: InfraCache is the typed, reference-indexed in-memory mirror of one infrastructure.
// ABOUTME: It keeps one partition per ObjectType and a reverse index from track id to the objects on it.
package cache

import (
	"maps"
	"slices"
	"sort"

	"github.com/2389-research/infracache/schema"
)

// InfraCache holds every object of an infrastructure keyed by type and id,
// plus a reverse index from track section id to the refs located on it.
//
// For every cached object o and every track t in o.TrackReferencedIDs(),
// o.Ref() is in the set of t. An InfraCache is not safe for concurrent
// mutation; share it through a Registry.
type InfraCache struct {
	trackSectionsRefs map[string]map[schema.ObjectRef]struct{}
	objects           map[schema.ObjectType]map[string]ObjectCache
}

// New returns an empty cache with a partition for every object type.
func New() *InfraCache {
	c := &InfraCache{
		trackSectionsRefs: make(map[string]map[schema.ObjectRef]struct{}),
		objects:           make(map[schema.ObjectType]map[string]ObjectCache, len(schema.AllObjectTypes)),
	}
	for _, t := range schema.AllObjectTypes {
		c.objects[t] = make(map[string]ObjectCache)
	}
	return c
}

// Add inserts obj. The ref is first recorded against every referenced
// track, then the object is inserted by id. A duplicate id fails with
// *DuplicateIDsProvidedError; the track references already recorded are
// left in place.
func (c *InfraCache) Add(obj ObjectCache) error {
	ref := obj.Ref()
	for _, track := range obj.TrackReferencedIDs() {
		refs, ok := c.trackSectionsRefs[track]
		if !ok {
			refs = make(map[schema.ObjectRef]struct{})
			c.trackSectionsRefs[track] = refs
		}
		refs[ref] = struct{}{}
	}

	partition := c.partition(ref.Type)
	if _, exists := partition[ref.ID]; exists {
		return &DuplicateIDsProvidedError{ObjType: ref.Type, ObjID: ref.ID}
	}
	partition[ref.ID] = obj
	return nil
}

// Remove deletes the referenced object and its reverse index entries.
func (c *InfraCache) Remove(ref schema.ObjectRef) (ObjectCache, error) {
	partition := c.partition(ref.Type)
	obj, ok := partition[ref.ID]
	if !ok {
		return nil, notFound(ref)
	}
	delete(partition, ref.ID)

	for _, track := range obj.TrackReferencedIDs() {
		refs, ok := c.trackSectionsRefs[track]
		if !ok {
			return obj, notFound(ref)
		}
		delete(refs, ref)
	}
	return obj, nil
}

func (c *InfraCache) partition(t schema.ObjectType) map[string]ObjectCache {
	p, ok := c.objects[t]
	if !ok {
		p = make(map[string]ObjectCache)
		c.objects[t] = p
	}
	return p
}

// Get returns the cached object for ref.
func (c *InfraCache) Get(ref schema.ObjectRef) (ObjectCache, bool) {
	obj, ok := c.objects[ref.Type][ref.ID]
	return obj, ok
}

// Contains reports whether ref is cached.
func (c *InfraCache) Contains(ref schema.ObjectRef) bool {
	_, ok := c.Get(ref)
	return ok
}

// Objects returns the partition of the given type. The map must not be modified.
func (c *InfraCache) Objects(t schema.ObjectType) map[string]ObjectCache {
	return c.objects[t]
}

// SortedIDs returns the ids of the given type in ascending order.
func (c *InfraCache) SortedIDs(t schema.ObjectType) []string {
	return sortedKeys(c.objects[t])
}

// Len returns the number of cached objects of the given type.
func (c *InfraCache) Len(t schema.ObjectType) int {
	return len(c.objects[t])
}

// Counts returns the number of cached objects per type.
func (c *InfraCache) Counts() map[schema.ObjectType]int {
	counts := make(map[schema.ObjectType]int, len(schema.AllObjectTypes))
	for _, t := range schema.AllObjectTypes {
		counts[t] = len(c.objects[t])
	}
	return counts
}

// TrackSectionsRefs exposes the reverse index. The maps must not be modified.
func (c *InfraCache) TrackSectionsRefs() map[string]map[schema.ObjectRef]struct{} {
	return c.trackSectionsRefs
}

// TrackRefsOfType returns the refs of the given type located on a track,
// sorted. An unknown track yields an empty result.
func (c *InfraCache) TrackRefsOfType(trackID string, t schema.ObjectType) []schema.ObjectRef {
	var refs []schema.ObjectRef
	for ref := range c.trackSectionsRefs[trackID] {
		if ref.Type == t {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// Clone returns an independent cache. Cached values are shared since they
// are never mutated in place.
func (c *InfraCache) Clone() *InfraCache {
	clone := &InfraCache{
		trackSectionsRefs: make(map[string]map[schema.ObjectRef]struct{}, len(c.trackSectionsRefs)),
		objects:           make(map[schema.ObjectType]map[string]ObjectCache, len(c.objects)),
	}
	for track, refs := range c.trackSectionsRefs {
		clone.trackSectionsRefs[track] = maps.Clone(refs)
	}
	for t, partition := range c.objects {
		clone.objects[t] = maps.Clone(partition)
	}
	return clone
}

func getAs[T ObjectCache](c *InfraCache, t schema.ObjectType, id string) (T, error) {
	var zero T
	obj, ok := c.objects[t][id]
	if !ok {
		return zero, &ObjectNotFoundError{ObjType: t, ObjID: id}
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, &ObjectNotFoundError{ObjType: t, ObjID: id}
	}
	return typed, nil
}

// TrackSection returns the cached track section with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) TrackSection(id string) (*TrackSectionCache, error) {
	return getAs[*TrackSectionCache](c, schema.TrackSection, id)
}

// Signal returns the cached signal with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) Signal(id string) (*SignalCache, error) {
	return getAs[*SignalCache](c, schema.Signal, id)
}

// SpeedSection returns the cached speed section with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) SpeedSection(id string) (*SpeedSectionCache, error) {
	return getAs[*SpeedSectionCache](c, schema.SpeedSection, id)
}

// TrackNode returns the cached track node with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) TrackNode(id string) (*TrackNodeCache, error) {
	return getAs[*TrackNodeCache](c, schema.TrackNode, id)
}

// Detector returns the cached detector with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) Detector(id string) (*DetectorCache, error) {
	return getAs[*DetectorCache](c, schema.Detector, id)
}

// BufferStop returns the cached buffer stop with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) BufferStop(id string) (*BufferStopCache, error) {
	return getAs[*BufferStopCache](c, schema.BufferStop, id)
}

// Route returns the cached route with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) Route(id string) (*RouteCache, error) {
	return getAs[*RouteCache](c, schema.Route, id)
}

// OperationalPoint returns the cached operational point with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) OperationalPoint(id string) (*OperationalPointCache, error) {
	return getAs[*OperationalPointCache](c, schema.OperationalPoint, id)
}

// TrackNodeType returns the cached declared track node type with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) TrackNodeType(id string) (*TrackNodeTypeCache, error) {
	return getAs[*TrackNodeTypeCache](c, schema.TrackNodeType, id)
}

// Electrification returns the cached electrification with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) Electrification(id string) (*ElectrificationCache, error) {
	return getAs[*ElectrificationCache](c, schema.Electrification, id)
}

// NeutralSection returns the cached neutral section with the given id, or an *ObjectNotFoundError.
func (c *InfraCache) NeutralSection(id string) (*NeutralSectionCache, error) {
	return getAs[*NeutralSectionCache](c, schema.NeutralSection, id)
}

// NodeType resolves a node type id against the builtins first, then the
// cached TrackNodeType objects.
func (c *InfraCache) NodeType(id string) (schema.TrackNodeTypeObject, bool) {
	if builtin, ok := schema.BuiltinNodeType(id); ok {
		return builtin, true
	}
	custom, err := c.TrackNodeType(id)
	if err != nil {
		return schema.TrackNodeTypeObject{}, false
	}
	return custom.NodeType(), true
}

// WaypointLocation resolves a waypoint to its track and position.
func (c *InfraCache) WaypointLocation(w schema.Waypoint) (track string, position float64, err error) {
	if w.IsDetector() {
		det, err := c.Detector(w.ID)
		if err != nil {
			return "", 0, err
		}
		return det.Track, det.Position, nil
	}
	bs, err := c.BufferStop(w.ID)
	if err != nil {
		return "", 0, err
	}
	return bs.Track, bs.Position, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}
