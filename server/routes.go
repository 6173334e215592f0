// ABOUTME: Handlers for route queries: track ranges of routes, routes at a waypoint, routes through switches.
// ABOUTME: Track ranges are computed on a graph built from the cached infrastructure under a read guard.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/schema"
)

const (
	routeComputed        = "Computed"
	routeNotFound        = "NotFound"
	routeCantComputePath = "CantComputePath"
)

// routeTrackRanges is the outcome for one requested route. RoutePath is set
// only when Type is Computed.
type routeTrackRanges struct {
	Type string `json:"type"`
	*schema.RoutePath
}

func (s *Server) handleRouteTrackRanges(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("routes"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		badRequest(w, "routes query parameter is required")
		return
	}

	guard, err := s.registry.GetOrLoad(r.Context(), s.store, infra.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer guard.Release()

	c := guard.Cache()
	graph := cache.BuildGraph(c)
	results := make([]routeTrackRanges, 0, len(ids))
	for _, id := range ids {
		route, err := c.Route(id)
		if err != nil {
			results = append(results, routeTrackRanges{Type: routeNotFound})
			continue
		}
		path, ok := c.ComputeTrackRangesOnRoute(route, graph)
		if !ok {
			results = append(results, routeTrackRanges{Type: routeCantComputePath})
			continue
		}
		results = append(results, routeTrackRanges{Type: routeComputed, RoutePath: path})
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleRoutesFromWaypoint(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	wpType, err := schema.ParseWaypointType(chi.URLParam(r, "waypoint_type"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	waypoint := schema.Waypoint{Type: wpType, ID: chi.URLParam(r, "waypoint_id")}

	routes, err := s.store.GetRoutesFromWaypoint(r.Context(), infra.ID, waypoint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

// handleRoutesNodes takes a node id to group mapping, null meaning any group,
// and returns the routes crossing all those nodes in compatible positions.
func (s *Server) handleRoutesNodes(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	var states map[string]*string
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&states); err != nil {
		badRequest(w, fmt.Sprintf("invalid node states: %v", err))
		return
	}

	guard, err := s.registry.GetOrLoad(r.Context(), s.store, infra.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer guard.Release()
	writeJSON(w, http.StatusOK, guard.Cache().RoutesCrossingNodes(states))
}
