// ABOUTME: Tests for Graph construction from track nodes and builtin node types.
// ABOUTME: Checks neighbour lookups per group and tolerance of inconsistent input.
package cache_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/cache/cachetest"
	"github.com/2389-research/infracache/schema"
)

func ep(track string, e schema.Endpoint) schema.TrackEndpoint {
	return schema.NewTrackEndpoint(e, track)
}

func TestBuildGraph_SmallInfra(t *testing.T) {
	g := cache.BuildGraph(cachetest.SmallInfraCache(t))

	if !g.HasNeighbour(ep("A", schema.End)) {
		t.Error("A:END should be linked to B:BEGIN")
	}
	if g.HasNeighbour(ep("A", schema.Begin)) {
		t.Error("A:BEGIN should be a dead end")
	}

	next, ok := g.Neighbour(ep("B", schema.End), "A_B2")
	if !ok || next != ep("D", schema.Begin) {
		t.Errorf("got %v,%v through A_B2, want D:BEGIN", next, ok)
	}
	back, ok := g.Neighbour(ep("C", schema.Begin), "A_B1")
	if !ok || back != ep("B", schema.End) {
		t.Errorf("got %v,%v from C through A_B1, want B:END", back, ok)
	}
	if _, ok := g.Neighbour(ep("C", schema.Begin), "A_B2"); ok {
		t.Error("C:BEGIN should have no A_B2 neighbour")
	}

	got := g.AllNeighbours(ep("B", schema.End))
	want := []schema.TrackEndpoint{ep("C", schema.Begin), ep("D", schema.Begin)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("neighbours of B:END mismatch (-want +got):\n%s", diff)
	}

	node, ok := g.TrackNode(ep("D", schema.Begin))
	if !ok || node.ID != "switch" {
		t.Errorf("got node %v for D:BEGIN, want switch", node)
	}
}

func TestBuildGraph_CrossingStaticGroup(t *testing.T) {
	c := cachetest.MustCache(t, &schema.RailJSON{})
	for _, id := range []string{"W", "E", "N", "S"} {
		cachetest.MustAdd(t, c, cachetest.Track(id, 100))
	}
	cachetest.MustAdd(t, c, &schema.TrackNodeObject{
		ID:            "X",
		TrackNodeType: schema.CrossingNodeType,
		Ports: map[string]schema.TrackEndpoint{
			"A1": ep("W", schema.End),
			"B1": ep("E", schema.Begin),
			"A2": ep("N", schema.End),
			"B2": ep("S", schema.Begin),
		},
	})

	g := cache.BuildGraph(c)
	if next, ok := g.Neighbour(ep("W", schema.End), schema.StaticGroup); !ok || next != ep("E", schema.Begin) {
		t.Errorf("got %v,%v, want E:BEGIN", next, ok)
	}
	if next, ok := g.Neighbour(ep("S", schema.Begin), schema.StaticGroup); !ok || next != ep("N", schema.End) {
		t.Errorf("got %v,%v, want N:END", next, ok)
	}
}

func TestBuildGraph_CustomNodeType(t *testing.T) {
	c := cachetest.MustCache(t, &schema.RailJSON{})
	cachetest.MustAdd(t, c, cachetest.Track("P", 10))
	cachetest.MustAdd(t, c, cachetest.Track("Q", 10))
	cachetest.MustAdd(t, c, &schema.TrackNodeTypeObject{
		ID:     "turntable",
		Ports:  []string{"IN", "OUT"},
		Groups: map[string][]schema.PortConnection{"TURN": {{Src: "IN", Dst: "OUT"}}},
	})
	cachetest.MustAdd(t, c, &schema.TrackNodeObject{
		ID:            "tt",
		TrackNodeType: "turntable",
		Ports: map[string]schema.TrackEndpoint{
			"IN":  ep("P", schema.End),
			"OUT": ep("Q", schema.End),
		},
	})

	g := cache.BuildGraph(c)
	if next, ok := g.Neighbour(ep("P", schema.End), "TURN"); !ok || next != ep("Q", schema.End) {
		t.Errorf("got %v,%v, want Q:END", next, ok)
	}
}

func TestBuildGraph_SkipsInconsistentNodes(t *testing.T) {
	c := cachetest.MustCache(t, &schema.RailJSON{})
	cachetest.MustAdd(t, c, cachetest.Track("P", 10))
	cachetest.MustAdd(t, c, &schema.TrackNodeObject{
		ID:            "unknown",
		TrackNodeType: "does_not_exist",
		Ports:         map[string]schema.TrackEndpoint{"A": ep("P", schema.End)},
	})
	cachetest.MustAdd(t, c, &schema.TrackNodeObject{
		ID:            "half",
		TrackNodeType: schema.LinkNodeType,
		Ports:         map[string]schema.TrackEndpoint{"A": ep("P", schema.Begin)},
	})

	g := cache.BuildGraph(c)
	if g.HasNeighbour(ep("P", schema.End)) || g.HasNeighbour(ep("P", schema.Begin)) {
		t.Error("inconsistent nodes should not produce neighbours")
	}
}
