// ABOUTME: Test fixtures shared by the cache, detect, autofix, store and server tests.
// ABOUTME: SmallInfra is four tracks joined by a link and a point switch, with three routes.
package cachetest

import (
	"testing"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/schema"
)

// Track builds a bare track section.
func Track(id string, length float64) *schema.TrackSectionObject {
	return &schema.TrackSectionObject{ID: id, Length: length, Slopes: []schema.Slope{}, Curves: []schema.Curve{}}
}

// BufferStop builds a buffer stop.
func BufferStop(id, track string, position float64) *schema.BufferStopObject {
	return &schema.BufferStopObject{ID: id, Track: track, Position: position}
}

// Detector builds a detector.
func Detector(id, track string, position float64) *schema.DetectorObject {
	return &schema.DetectorObject{ID: id, Track: track, Position: position}
}

// Signal builds a signal facing START_TO_STOP.
func Signal(id, track string, position float64) *schema.SignalObject {
	return &schema.SignalObject{
		ID:            id,
		Track:         track,
		Position:      position,
		Direction:     schema.StartToStop,
		SightDistance: 400,
	}
}

// Link joins the END of from to the BEGIN of to.
func Link(id, from, to string) *schema.TrackNodeObject {
	return &schema.TrackNodeObject{
		ID:            id,
		TrackNodeType: schema.LinkNodeType,
		Ports: map[string]schema.TrackEndpoint{
			"A": schema.NewTrackEndpoint(schema.End, from),
			"B": schema.NewTrackEndpoint(schema.Begin, to),
		},
	}
}

// PointSwitch joins the END of base to the BEGIN of left (A_B1) and right (A_B2).
func PointSwitch(id, base, left, right string) *schema.TrackNodeObject {
	return &schema.TrackNodeObject{
		ID:            id,
		TrackNodeType: schema.PointSwitchNodeType,
		Ports: map[string]schema.TrackEndpoint{
			"A":  schema.NewTrackEndpoint(schema.End, base),
			"B1": schema.NewTrackEndpoint(schema.Begin, left),
			"B2": schema.NewTrackEndpoint(schema.Begin, right),
		},
	}
}

// Route builds a route between two waypoints.
func Route(id string, entry schema.Waypoint, dir schema.Direction, exit schema.Waypoint, nodes map[string]string) *schema.RouteObject {
	if nodes == nil {
		nodes = map[string]string{}
	}
	return &schema.RouteObject{
		ID:                   id,
		EntryPoint:           entry,
		EntryPointDirection:  dir,
		ExitPoint:            exit,
		ReleaseDetectors:     []string{},
		TrackNodesDirections: nodes,
	}
}

// SmallInfra returns a fresh document:
//
//	BF1  S0  D0         D1              ┌── C ── BF2
//	 A ─────────── link ── B ── switch ─┤
//	                                    └── D ── BF3
//
// Every track is 500 long. Routes: R1 D1→BF2 (A_B1), R2 D1→BF3 (A_B2),
// R3 BF3→D1 backwards through A_B2.
func SmallInfra() *schema.RailJSON {
	doc := &schema.RailJSON{Version: schema.RailJSONVersion}
	for _, id := range []string{"A", "B", "C", "D"} {
		doc.Add(Track(id, 500))
	}
	doc.Add(Link("link", "A", "B"))
	doc.Add(PointSwitch("switch", "B", "C", "D"))
	doc.Add(Signal("S0", "A", 200))
	doc.Add(Detector("D0", "A", 250))
	doc.Add(Detector("D1", "B", 250))
	doc.Add(BufferStop("BF1", "A", 20))
	doc.Add(BufferStop("BF2", "C", 480))
	doc.Add(BufferStop("BF3", "D", 480))
	doc.Add(Route("R1",
		schema.NewDetectorWaypoint("D1"), schema.StartToStop, schema.NewBufferStopWaypoint("BF2"),
		map[string]string{"switch": "A_B1"}))
	doc.Add(Route("R2",
		schema.NewDetectorWaypoint("D1"), schema.StartToStop, schema.NewBufferStopWaypoint("BF3"),
		map[string]string{"switch": "A_B2"}))
	doc.Add(Route("R3",
		schema.NewBufferStopWaypoint("BF3"), schema.StopToStart, schema.NewDetectorWaypoint("D1"),
		map[string]string{"switch": "A_B2"}))
	return doc
}

// SmallInfraCache returns SmallInfra loaded into a cache.
func SmallInfraCache(tb testing.TB) *cache.InfraCache {
	tb.Helper()
	return MustCache(tb, SmallInfra())
}

// MustCache loads doc into a cache, failing the test on error.
func MustCache(tb testing.TB, doc *schema.RailJSON) *cache.InfraCache {
	tb.Helper()
	c, err := cache.FromRailJSON(doc)
	if err != nil {
		tb.Fatalf("build cache: %v", err)
	}
	return c
}

// MustAdd converts and adds obj to c, failing the test on error.
func MustAdd(tb testing.TB, c *cache.InfraCache, obj schema.InfraObject) {
	tb.Helper()
	cached, err := cache.FromObject(obj)
	if err != nil {
		tb.Fatalf("convert %s: %v", schema.RefOf(obj), err)
	}
	if err := c.Add(cached); err != nil {
		tb.Fatalf("add %s: %v", schema.RefOf(obj), err)
	}
}
