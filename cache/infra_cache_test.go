// ABOUTME: Tests for InfraCache add/remove, the track reverse index and typed lookups.
// ABOUTME: Uses the shared small infrastructure fixture.
package cache_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/cache/cachetest"
	"github.com/2389-research/infracache/schema"
)

func TestFromRailJSON_LoadsEveryObject(t *testing.T) {
	c := cachetest.SmallInfraCache(t)

	want := map[schema.ObjectType]int{
		schema.TrackSection: 4,
		schema.TrackNode:    2,
		schema.Signal:       1,
		schema.Detector:     2,
		schema.BufferStop:   3,
		schema.Route:        3,
	}
	for objType, n := range want {
		if got := c.Len(objType); got != n {
			t.Errorf("%s: got %d objects, want %d", objType, got, n)
		}
	}
}

func TestTrackRefsOfType(t *testing.T) {
	c := cachetest.SmallInfraCache(t)

	got := c.TrackRefsOfType("A", schema.Detector)
	want := []schema.ObjectRef{schema.NewObjectRef(schema.Detector, "D0")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("detectors on A mismatch (-want +got):\n%s", diff)
	}

	nodes := c.TrackRefsOfType("B", schema.TrackNode)
	if len(nodes) != 2 {
		t.Errorf("got %d track nodes on B, want 2 (link and switch)", len(nodes))
	}

	if refs := c.TrackRefsOfType("nope", schema.Signal); len(refs) != 0 {
		t.Errorf("got %v for unknown track, want none", refs)
	}
}

func TestAdd_DuplicateIDs(t *testing.T) {
	c := cachetest.SmallInfraCache(t)
	dup, _ := cache.FromObject(cachetest.Detector("D1", "C", 10))

	err := c.Add(dup)
	var dupErr *cache.DuplicateIDsProvidedError
	if !errors.As(err, &dupErr) {
		t.Fatalf("got %v, want DuplicateIDsProvidedError", err)
	}
	if dupErr.ObjID != "D1" || dupErr.ObjType != schema.Detector {
		t.Errorf("got %+v, want Detector D1", dupErr)
	}

	// The reference recorded before the collision is kept.
	refs := c.TrackRefsOfType("C", schema.Detector)
	if len(refs) != 1 || refs[0].ID != "D1" {
		t.Errorf("got refs %v on C, want the D1 ref left in place", refs)
	}
}

func TestRemove_Missing(t *testing.T) {
	c := cachetest.SmallInfraCache(t)

	_, err := c.Remove(schema.NewObjectRef(schema.Signal, "ghost"))
	var nf *cache.ObjectNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want ObjectNotFoundError", err)
	}
	if nf.ObjID != "ghost" {
		t.Errorf("got id %q, want ghost", nf.ObjID)
	}
}

func TestRemove_ClearsReverseIndex(t *testing.T) {
	c := cachetest.SmallInfraCache(t)
	ref := schema.NewObjectRef(schema.TrackNode, "switch")

	if _, err := c.Remove(ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	for _, track := range []string{"B", "C", "D"} {
		for _, r := range c.TrackRefsOfType(track, schema.TrackNode) {
			if r == ref {
				t.Errorf("switch still indexed on %s", track)
			}
		}
	}
	if c.Contains(ref) {
		t.Error("switch still cached")
	}
}

func TestTypedGetters(t *testing.T) {
	c := cachetest.SmallInfraCache(t)

	track, err := c.TrackSection("C")
	if err != nil {
		t.Fatalf("track C: %v", err)
	}
	if track.Length != 500 {
		t.Errorf("got length %v, want 500", track.Length)
	}

	if _, err := c.BufferStop("D1"); err == nil {
		t.Error("expected BufferStop(D1) to fail: D1 is a detector")
	}

	route, err := c.Route("R3")
	if err != nil {
		t.Fatalf("route R3: %v", err)
	}
	if route.EntryPoint != schema.NewBufferStopWaypoint("BF3") {
		t.Errorf("got entry %v, want BF3", route.EntryPoint)
	}
}

func TestApplyUpdate_MovesReferences(t *testing.T) {
	c := cachetest.SmallInfraCache(t)
	moved, _ := cache.FromObject(cachetest.Detector("D0", "C", 100))

	if err := c.ApplyUpdate(moved); err != nil {
		t.Fatalf("update: %v", err)
	}
	if refs := c.TrackRefsOfType("A", schema.Detector); len(refs) != 0 {
		t.Errorf("got %v on A after move, want none", refs)
	}
	if refs := c.TrackRefsOfType("C", schema.Detector); len(refs) != 1 {
		t.Errorf("got %v on C after move, want D0", refs)
	}
}

func TestApplyOperations_StopsAtFirstError(t *testing.T) {
	c := cachetest.SmallInfraCache(t)
	bs, _ := cache.FromObject(cachetest.BufferStop("BF9", "B", 1))

	err := c.ApplyOperations([]cache.CacheOperation{
		cache.DeleteCacheOperation{ObjRef: schema.NewObjectRef(schema.Signal, "S0")},
		cache.DeleteCacheOperation{ObjRef: schema.NewObjectRef(schema.Signal, "S0")},
		cache.CreateCacheOperation{Object: bs},
	})
	if err == nil {
		t.Fatal("expected the second delete to fail")
	}
	if c.Contains(schema.NewObjectRef(schema.Signal, "S0")) {
		t.Error("first delete should stay applied")
	}
	if c.Contains(schema.NewObjectRef(schema.BufferStop, "BF9")) {
		t.Error("operations after the failure must not run")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	c := cachetest.SmallInfraCache(t)
	clone := c.Clone()

	if err := clone.ApplyDelete(schema.NewObjectRef(schema.Detector, "D1")); err != nil {
		t.Fatalf("delete on clone: %v", err)
	}
	if !c.Contains(schema.NewObjectRef(schema.Detector, "D1")) {
		t.Error("deleting from the clone changed the original")
	}
	if refs := c.TrackRefsOfType("B", schema.Detector); len(refs) != 1 {
		t.Errorf("original index changed: %v", refs)
	}
}

func TestFromObject_TrackSectionExtras(t *testing.T) {
	track := cachetest.Track("geo", 100)
	track.Geo = &schema.LineString{Type: "LineString", Coordinates: [][2]float64{{2.0, 48.0}, {2.5, 47.5}}}
	track.Extensions = &schema.TrackSectionExtensions{SNCF: &schema.TrackSectionSNCFExtension{LineCode: 420000}}

	obj, err := cache.FromObject(track)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	cached := obj.(*cache.TrackSectionCache)
	want := &cache.BoundingBox{MinLon: 2.0, MinLat: 47.5, MaxLon: 2.5, MaxLat: 48.0}
	if diff := cmp.Diff(want, cached.BBox); diff != "" {
		t.Errorf("bbox mismatch (-want +got):\n%s", diff)
	}
	if cached.LineCode == nil || *cached.LineCode != 420000 {
		t.Errorf("got line code %v, want 420000", cached.LineCode)
	}
}
